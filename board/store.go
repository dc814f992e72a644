package board

import (
	"sync"

	"fluxo-board/domain"
)

// Store holds the in-memory task set for the current load scope and the
// derived grouping by step. It is the single shared mutable resource of
// the board core; every operation is synchronous and mutually exclusive,
// and subscribers are signalled before the mutating call returns.
//
// The store is a read-mostly cache of the remote service, never the
// system of record.
type Store struct {
	mu     sync.Mutex
	tasks  map[int64]domain.Task
	order  []int64
	steps  map[int64]struct{}
	seeded []int64
	gen    uint64
	subs   map[chan struct{}]struct{}
}

// NewStore creates an empty store. Steps seeded here always appear as
// columns in View, even when no task references them.
func NewStore(steps []int64) *Store {
	s := &Store{
		tasks:  make(map[int64]domain.Task),
		steps:  make(map[int64]struct{}),
		seeded: append([]int64(nil), steps...),
		subs:   make(map[chan struct{}]struct{}),
	}
	for _, id := range steps {
		s.steps[id] = struct{}{}
	}
	return s
}

// Load replaces the full task set. There is no partial merge; an empty
// list is a valid scope. Learned columns from the previous scope are
// dropped, seeded columns survive. Bumps the load generation so in-flight
// reconciliations against the old set are discarded on completion.
func (s *Store) Load(tasks []domain.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tasks = make(map[int64]domain.Task, len(tasks))
	s.order = s.order[:0]
	s.steps = make(map[int64]struct{}, len(s.seeded)+8)
	for _, id := range s.seeded {
		s.steps[id] = struct{}{}
	}
	for _, t := range tasks {
		if _, dup := s.tasks[t.ID]; !dup {
			s.order = append(s.order, t.ID)
		}
		s.tasks[t.ID] = t
		s.steps[t.StepID] = struct{}{}
	}
	s.gen++
	s.notifyLocked()
}

// UpsertOne inserts or replaces a single task by identity. The entry is
// replaced as a whole value; readers never observe a half-updated record.
func (s *Store) UpsertOne(t domain.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tasks[t.ID]; !exists {
		s.order = append(s.order, t.ID)
	}
	s.tasks[t.ID] = t
	s.steps[t.StepID] = struct{}{}
	s.notifyLocked()
}

// RemoveMany removes every task whose id is in ids. Removing an absent id
// is a no-op, not an error.
func (s *Store) RemoveMany(ids []int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := false
	for _, id := range ids {
		if _, ok := s.tasks[id]; !ok {
			continue
		}
		delete(s.tasks, id)
		removed = true
	}
	if !removed {
		return
	}
	kept := s.order[:0]
	for _, id := range s.order {
		if _, ok := s.tasks[id]; ok {
			kept = append(kept, id)
		}
	}
	s.order = kept
	s.notifyLocked()
}

// MoveLocal rewrites only the step reference of one task, leaving every
// other attribute untouched, and returns the previous step. The moved
// task becomes the most recent entry of its new column. Reports ok=false
// when the task is unknown.
func (s *Store) MoveLocal(id, stepID int64) (prev int64, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.moveLocked(id, stepID)
}

// ApplyMove is MoveLocal plus the load generation the move was applied
// under, captured under the same lock. Callers fencing against reloads
// need the two values from one critical section; a Load between separate
// Generation and MoveLocal calls would leave the move unfenced.
func (s *Store) ApplyMove(id, stepID int64) (prev int64, gen uint64, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok = s.moveLocked(id, stepID)
	return prev, s.gen, ok
}

func (s *Store) moveLocked(id, stepID int64) (prev int64, ok bool) {
	t, exists := s.tasks[id]
	if !exists {
		return 0, false
	}
	prev = t.StepID
	if prev == stepID {
		return prev, true
	}
	t.StepID = stepID
	s.tasks[id] = t
	s.steps[stepID] = struct{}{}
	s.touchLocked(id)
	s.notifyLocked()
	return prev, true
}

// ColumnOf reports the step a task currently belongs to.
func (s *Store) ColumnOf(id int64) (int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return 0, false
	}
	return t.StepID, true
}

// Generation returns the current load generation. It changes only on Load.
func (s *Store) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen
}

// View produces the grouping of tasks by step. Every known column is
// present, emptied ones included; every task appears in exactly one
// column, in insertion/recency order.
func (s *Store) View() map[int64][]domain.Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	view := make(map[int64][]domain.Task, len(s.steps))
	for step := range s.steps {
		view[step] = []domain.Task{}
	}
	for _, id := range s.order {
		t := s.tasks[id]
		view[t.StepID] = append(view[t.StepID], t)
	}
	return view
}

// Subscribe registers a coalesced change signal. The channel receives at
// most one pending notification; consumers pull View after each signal.
func (s *Store) Subscribe() chan struct{} {
	ch := make(chan struct{}, 1)
	s.mu.Lock()
	s.subs[ch] = struct{}{}
	s.mu.Unlock()
	return ch
}

// Unsubscribe detaches a previously subscribed channel.
func (s *Store) Unsubscribe(ch chan struct{}) {
	s.mu.Lock()
	delete(s.subs, ch)
	s.mu.Unlock()
}

func (s *Store) notifyLocked() {
	for ch := range s.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func (s *Store) touchLocked(id int64) {
	for i, cur := range s.order {
		if cur == id {
			s.order = append(append(s.order[:i:i], s.order[i+1:]...), id)
			return
		}
	}
}
