package board

import (
	"context"
	"sync"

	log "github.com/sirupsen/logrus"

	"fluxo-board/domain"
)

// Mover issues the remote move request for one task.
type Mover interface {
	Move(ctx context.Context, id, stepID int64) error
}

// Notifier surfaces user-visible move failures. Called exactly once per
// rolled-back move.
type Notifier interface {
	MoveFailed(intent domain.MoveIntent, err error)
}

// Reconciler makes moves feel instantaneous while keeping the store
// eventually consistent with the remote service. The local move is applied
// before the remote call; a failed call rolls back to the captured
// previous column, scoped to the single task.
//
// Moves on different tasks are independent and may be in flight
// simultaneously. Moves on the same task are fenced by a monotonic
// per-task sequence: the outcome of a superseded request is discarded, so
// the last issued move always wins the local view. Outcomes that complete
// after the store was reloaded are discarded the same way.
type Reconciler struct {
	store  *Store
	mover  Mover
	notify Notifier
	logger *log.Logger

	mu       sync.Mutex
	seq      map[int64]uint64
	inflight map[int64]int
}

// NewReconciler wires the reconciler to its store, remote mover and
// failure notifier.
func NewReconciler(store *Store, mover Mover, notify Notifier, logger *log.Logger) *Reconciler {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Reconciler{
		store:    store,
		mover:    mover,
		notify:   notify,
		logger:   logger,
		seq:      make(map[int64]uint64),
		inflight: make(map[int64]int),
	}
}

// Reconcile consumes one move intent: optimistic local move, remote call,
// commit or rollback. It blocks until the move settles; callers that need
// fire-and-forget semantics run it in a goroutine.
func (r *Reconciler) Reconcile(ctx context.Context, intent domain.MoveIntent) error {
	r.mu.Lock()
	prev, gen, ok := r.store.ApplyMove(intent.TaskID, intent.StepID)
	if !ok {
		r.mu.Unlock()
		r.logger.WithField("task", intent.TaskID).Warn("move intent for unknown task ignored")
		return nil
	}
	r.seq[intent.TaskID]++
	mySeq := r.seq[intent.TaskID]

	if prev == intent.StepID && r.inflight[intent.TaskID] == 0 {
		// Dropping a task onto its current column with nothing in flight
		// needs no remote confirmation.
		r.mu.Unlock()
		return nil
	}
	r.inflight[intent.TaskID]++
	r.mu.Unlock()

	err := r.mover.Move(ctx, intent.TaskID, intent.StepID)

	r.mu.Lock()
	r.inflight[intent.TaskID]--
	if r.inflight[intent.TaskID] == 0 {
		delete(r.inflight, intent.TaskID)
	}

	if r.store.Generation() != gen || r.seq[intent.TaskID] != mySeq {
		// Superseded by a later move or a scope reload; the outcome no
		// longer describes the current board.
		r.mu.Unlock()
		r.logger.WithFields(log.Fields{"task": intent.TaskID, "step": intent.StepID}).
			Debug("discarding stale move outcome")
		return nil
	}
	if err == nil {
		r.mu.Unlock()
		return nil
	}
	r.store.MoveLocal(intent.TaskID, prev)
	r.mu.Unlock()

	// The notifier runs unlocked so it may issue follow-up moves.
	r.logger.WithFields(log.Fields{
		"task": intent.TaskID,
		"from": prev,
		"to":   intent.StepID,
	}).Warnf("move rolled back: %v", err)
	if r.notify != nil {
		r.notify.MoveFailed(intent, err)
	}
	return err
}
