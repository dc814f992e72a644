package board

import (
	"testing"

	"fluxo-board/domain"
)

func task(id, step int64, title string) domain.Task {
	return domain.Task{ID: id, Title: title, StepID: step}
}

// checkGrouping asserts every task appears in exactly one column and the
// union of columns equals the task set.
func checkGrouping(t *testing.T, s *Store, wantIDs []int64) {
	t.Helper()
	view := s.View()
	seen := make(map[int64]int)
	for _, tasks := range view {
		for _, tk := range tasks {
			seen[tk.ID]++
		}
	}
	for id, n := range seen {
		if n != 1 {
			t.Fatalf("task %d appears in %d columns", id, n)
		}
	}
	if len(seen) != len(wantIDs) {
		t.Fatalf("expected %d tasks in view, got %d", len(wantIDs), len(seen))
	}
	for _, id := range wantIDs {
		if seen[id] != 1 {
			t.Fatalf("task %d missing from view", id)
		}
	}
}

func TestGroupingInvariantAcrossMutations(t *testing.T) {
	s := NewStore(nil)
	s.Load([]domain.Task{task(1, 10, "a"), task(2, 10, "b"), task(3, 11, "c")})
	checkGrouping(t, s, []int64{1, 2, 3})

	s.UpsertOne(task(4, 12, "d"))
	checkGrouping(t, s, []int64{1, 2, 3, 4})

	s.UpsertOne(task(2, 11, "b2"))
	checkGrouping(t, s, []int64{1, 2, 3, 4})

	if _, ok := s.MoveLocal(1, 11); !ok {
		t.Fatal("move of known task should succeed")
	}
	checkGrouping(t, s, []int64{1, 2, 3, 4})

	s.RemoveMany([]int64{2, 4})
	checkGrouping(t, s, []int64{1, 3})
}

func TestLoadReplacesFullSet(t *testing.T) {
	s := NewStore(nil)
	s.Load([]domain.Task{task(1, 10, "a"), task(2, 11, "b")})
	s.Load([]domain.Task{task(3, 12, "c")})

	checkGrouping(t, s, []int64{3})
	if _, ok := s.ColumnOf(1); ok {
		t.Fatal("task from the previous scope should be gone")
	}
}

func TestLoadEmptyIsValid(t *testing.T) {
	s := NewStore([]int64{10, 11})
	s.Load(nil)

	view := s.View()
	if len(view) != 2 {
		t.Fatalf("expected seeded columns to survive empty load, got %#v", view)
	}
	for step, tasks := range view {
		if len(tasks) != 0 {
			t.Fatalf("column %d should be empty, got %d tasks", step, len(tasks))
		}
	}
}

func TestLoadBumpsGeneration(t *testing.T) {
	s := NewStore(nil)
	before := s.Generation()
	s.Load(nil)
	if s.Generation() == before {
		t.Fatal("load must change the generation")
	}

	gen := s.Generation()
	s.UpsertOne(task(1, 10, "a"))
	s.MoveLocal(1, 11)
	s.RemoveMany([]int64{1})
	if s.Generation() != gen {
		t.Fatal("only load may change the generation")
	}
}

func TestMoveLocalRewritesOnlyStep(t *testing.T) {
	s := NewStore(nil)
	orig := domain.Task{ID: 1, Title: "a", Description: "keep", StepID: 10, PriorityID: 3}
	s.Load([]domain.Task{orig})

	prev, ok := s.MoveLocal(1, 11)
	if !ok || prev != 10 {
		t.Fatalf("unexpected move result: prev=%d ok=%v", prev, ok)
	}

	moved := s.View()[11][0]
	if moved.StepID != 11 {
		t.Fatalf("step not rewritten: %#v", moved)
	}
	moved.StepID = orig.StepID
	if moved != orig {
		t.Fatalf("attributes other than step changed: %#v", moved)
	}
}

func TestMoveLocalIdempotent(t *testing.T) {
	s := NewStore(nil)
	s.Load([]domain.Task{task(1, 10, "a"), task(2, 10, "b")})

	s.MoveLocal(1, 11)
	first := s.View()
	s.MoveLocal(1, 11)
	second := s.View()

	if len(first[11]) != 1 || len(second[11]) != 1 {
		t.Fatalf("expected single task in target column: %#v vs %#v", first[11], second[11])
	}
	if len(first[10]) != len(second[10]) {
		t.Fatalf("repeated move changed the grouping: %#v vs %#v", first, second)
	}
}

func TestMoveLocalUnknownTask(t *testing.T) {
	s := NewStore(nil)
	if _, ok := s.MoveLocal(99, 10); ok {
		t.Fatal("moving an unknown task must report ok=false")
	}
}

func TestMoveLocalKeepsSourceColumnVisible(t *testing.T) {
	s := NewStore(nil)
	s.Load([]domain.Task{task(1, 10, "a")})
	s.MoveLocal(1, 11)

	view := s.View()
	if got, ok := view[10]; !ok || len(got) != 0 {
		t.Fatalf("emptied source column must stay in the view: %#v", view)
	}
	if len(view[11]) != 1 || view[11][0].ID != 1 {
		t.Fatalf("task missing from target column: %#v", view)
	}
}

func TestApplyMoveReportsLoadGeneration(t *testing.T) {
	s := NewStore(nil)
	s.Load([]domain.Task{task(1, 10, "a")})

	prev, gen, ok := s.ApplyMove(1, 11)
	if !ok || prev != 10 {
		t.Fatalf("unexpected move result: prev=%d ok=%v", prev, ok)
	}
	if gen != s.Generation() {
		t.Fatalf("reported generation %d, store at %d", gen, s.Generation())
	}

	s.Load([]domain.Task{task(1, 10, "a")})
	if _, gen2, _ := s.ApplyMove(1, 12); gen2 != gen+1 {
		t.Fatalf("move after reload must carry the new generation: %d vs %d", gen2, gen+1)
	}
}

func TestRemoveManyIdempotent(t *testing.T) {
	s := NewStore(nil)
	s.Load([]domain.Task{task(1, 10, "a"), task(2, 10, "b"), task(3, 11, "c")})

	s.RemoveMany([]int64{2, 4})
	checkGrouping(t, s, []int64{1, 3})

	s.RemoveMany([]int64{2, 4})
	checkGrouping(t, s, []int64{1, 3})
}

func TestUpsertOneReplacesAtomically(t *testing.T) {
	s := NewStore(nil)
	s.Load([]domain.Task{{ID: 1, Title: "old", Description: "old desc", StepID: 10}})

	s.UpsertOne(domain.Task{ID: 1, Title: "new", StepID: 10})
	got := s.View()[10][0]
	if got.Title != "new" || got.Description != "" {
		t.Fatalf("expected whole-value replacement, got %#v", got)
	}
}

func TestColumnOrderIsInsertionOrder(t *testing.T) {
	s := NewStore(nil)
	s.Load([]domain.Task{task(1, 10, "a"), task(2, 10, "b"), task(3, 10, "c")})

	col := s.View()[10]
	for i, want := range []int64{1, 2, 3} {
		if col[i].ID != want {
			t.Fatalf("unexpected order: %#v", col)
		}
	}

	// A moved task becomes the most recent entry of its new column.
	s.MoveLocal(1, 11)
	s.MoveLocal(2, 11)
	col = s.View()[11]
	if col[0].ID != 1 || col[1].ID != 2 {
		t.Fatalf("unexpected order after moves: %#v", col)
	}
}

func TestSubscribeSignalsEveryMutation(t *testing.T) {
	s := NewStore(nil)
	ch := s.Subscribe()

	drain := func() bool {
		select {
		case <-ch:
			return true
		default:
			return false
		}
	}

	s.Load([]domain.Task{task(1, 10, "a")})
	if !drain() {
		t.Fatal("load must notify subscribers")
	}
	s.UpsertOne(task(2, 10, "b"))
	if !drain() {
		t.Fatal("upsert must notify subscribers")
	}
	s.MoveLocal(1, 11)
	if !drain() {
		t.Fatal("move must notify subscribers")
	}
	s.RemoveMany([]int64{2})
	if !drain() {
		t.Fatal("remove must notify subscribers")
	}
	s.RemoveMany([]int64{2})
	if drain() {
		t.Fatal("removing absent ids must not notify")
	}

	s.Unsubscribe(ch)
	s.Load(nil)
	if drain() {
		t.Fatal("detached subscriber must not be notified")
	}
}
