package board

import (
	"context"

	log "github.com/sirupsen/logrus"

	"fluxo-board/domain"
)

// Repository is the slice of the task adapter the facade consumes.
type Repository interface {
	List(ctx context.Context, scope domain.Scope) ([]domain.Task, error)
	Create(ctx context.Context, draft domain.TaskDraft) (domain.Task, error)
	Update(ctx context.Context, id int64, patch domain.TaskPatch) (domain.Task, error)
	DeleteMany(ctx context.Context, ids []int64) error
	GetByID(ctx context.Context, id int64) (domain.Task, error)
}

// Facade feeds filtered and freshly created task sets into the store. It
// owns no state beyond its collaborators.
type Facade struct {
	store  *Store
	repo   Repository
	logger *log.Logger
}

// NewFacade wires the facade to the store and the task adapter.
func NewFacade(store *Store, repo Repository, logger *log.Logger) *Facade {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Facade{store: store, repo: repo, logger: logger}
}

// Reload fetches the task set for the scope and replaces the store's
// content. On failure the previous in-memory set is left untouched and
// the error is surfaced once to the caller.
func (f *Facade) Reload(ctx context.Context, scope domain.Scope) error {
	tasks, err := f.repo.List(ctx, scope)
	if err != nil {
		f.logger.WithField("workspace", scope.WorkspaceID).Errorf("board reload failed: %v", err)
		return err
	}
	f.store.Load(tasks)
	return nil
}

// QuickCreate validates the draft, creates the task remotely and inserts
// the full server-computed representation into the store. The create
// response may be a partial projection, so the task is re-fetched; if the
// re-fetch fails the partial projection is used.
func (f *Facade) QuickCreate(ctx context.Context, draft domain.TaskDraft) (domain.Task, error) {
	if err := draft.Validate(); err != nil {
		return domain.Task{}, err
	}
	created, err := f.repo.Create(ctx, draft)
	if err != nil {
		return domain.Task{}, err
	}
	full, err := f.repo.GetByID(ctx, created.ID)
	if err != nil {
		f.logger.WithField("task", created.ID).Warnf("create re-fetch failed, using partial projection: %v", err)
		full = created
	}
	f.store.UpsertOne(full)
	return full, nil
}

// Edit validates and applies a patch, then refreshes the stored task the
// same way QuickCreate does.
func (f *Facade) Edit(ctx context.Context, id int64, patch domain.TaskPatch) (domain.Task, error) {
	if err := patch.Validate(); err != nil {
		return domain.Task{}, err
	}
	updated, err := f.repo.Update(ctx, id, patch)
	if err != nil {
		return domain.Task{}, err
	}
	full, err := f.repo.GetByID(ctx, id)
	if err != nil {
		f.logger.WithField("task", id).Warnf("update re-fetch failed, using partial projection: %v", err)
		full = updated
	}
	f.store.UpsertOne(full)
	return full, nil
}

// Delete removes tasks remotely, then locally. The local set is only
// touched after the remote delete succeeded, so a failure never corrupts
// the board.
func (f *Facade) Delete(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	if err := f.repo.DeleteMany(ctx, ids); err != nil {
		return err
	}
	f.store.RemoveMany(ids)
	return nil
}
