package api

import (
	"context"

	"fluxo-board/domain"
)

// BoardView is the read surface handlers render from.
type BoardView interface {
	View() map[int64][]domain.Task
	Subscribe() chan struct{}
	Unsubscribe(chan struct{})
}

// TaskOps covers the facade operations exposed over the gateway.
type TaskOps interface {
	Reload(ctx context.Context, scope domain.Scope) error
	QuickCreate(ctx context.Context, draft domain.TaskDraft) (domain.Task, error)
	Edit(ctx context.Context, id int64, patch domain.TaskPatch) (domain.Task, error)
	Delete(ctx context.Context, ids []int64) error
}

// MoveReconciler settles one move intent against the remote service.
type MoveReconciler interface {
	Reconcile(ctx context.Context, intent domain.MoveIntent) error
}

// Authenticator is implemented by types able to extract user IDs from headers.
type Authenticator interface {
	UserIDFromAuthHeader(string) (string, error)
}
