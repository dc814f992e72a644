package board

import (
	"testing"

	"fluxo-board/domain"
)

func TestDropProducesIntent(t *testing.T) {
	var got []domain.MoveIntent
	d := NewDragController(func(i domain.MoveIntent) { got = append(got, i) })

	d.Begin(1)
	if !d.Dragging() {
		t.Fatal("expected active gesture after Begin")
	}
	d.Drop(11)

	if len(got) != 1 || got[0] != (domain.MoveIntent{TaskID: 1, StepID: 11}) {
		t.Fatalf("unexpected intents: %#v", got)
	}
	if d.Dragging() {
		t.Fatal("gesture should be idle after drop")
	}
}

func TestDropWithoutTargetCancels(t *testing.T) {
	var got []domain.MoveIntent
	d := NewDragController(func(i domain.MoveIntent) { got = append(got, i) })

	d.Begin(1)
	d.Drop(0)
	if len(got) != 0 {
		t.Fatalf("release outside a column must not emit an intent: %#v", got)
	}
	if d.Dragging() {
		t.Fatal("gesture should be idle after cancelled drop")
	}
}

func TestDropOutsideGestureIgnored(t *testing.T) {
	var got []domain.MoveIntent
	d := NewDragController(func(i domain.MoveIntent) { got = append(got, i) })

	d.Drop(11)
	if len(got) != 0 {
		t.Fatalf("drop without Begin must be ignored: %#v", got)
	}
}

func TestCancelDiscardsGesture(t *testing.T) {
	var got []domain.MoveIntent
	d := NewDragController(func(i domain.MoveIntent) { got = append(got, i) })

	d.Begin(1)
	d.Cancel()
	d.Drop(11)
	if len(got) != 0 {
		t.Fatalf("cancelled gesture must not emit on a later drop: %#v", got)
	}
}

func TestBeginReplacesActiveGesture(t *testing.T) {
	var got []domain.MoveIntent
	d := NewDragController(func(i domain.MoveIntent) { got = append(got, i) })

	d.Begin(1)
	d.Begin(2)
	d.Drop(11)

	if len(got) != 1 || got[0].TaskID != 2 {
		t.Fatalf("latest gesture should win: %#v", got)
	}
}

func TestDropOntoCurrentColumnStillEmits(t *testing.T) {
	var got []domain.MoveIntent
	d := NewDragController(func(i domain.MoveIntent) { got = append(got, i) })

	// The controller is pure translation; eliding no-op moves is the
	// reconciler's decision.
	d.Begin(1)
	d.Drop(10)
	if len(got) != 1 || got[0] != (domain.MoveIntent{TaskID: 1, StepID: 10}) {
		t.Fatalf("expected intent for same-column drop: %#v", got)
	}
}
