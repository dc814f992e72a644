package board

import (
	"sync"

	"fluxo-board/domain"
)

// IntentConsumer receives the move intent of a completed gesture.
type IntentConsumer func(domain.MoveIntent)

type gestureState int

const (
	gestureIdle gestureState = iota
	gestureDragging
)

// DragController translates drag gestures into move intents. It is pure
// translation: it touches neither the store nor the network, and hands
// every completed gesture to a single consumer callback.
//
// Transitions: idle -> dragging on Begin, dragging -> idle on Drop or
// Cancel. A drop without a valid target is a cancelled gesture, not an
// error. Dropping a task onto its current column still emits the intent.
type DragController struct {
	mu      sync.Mutex
	state   gestureState
	taskID  int64
	consume IntentConsumer
}

// NewDragController creates a controller feeding the given consumer.
func NewDragController(consume IntentConsumer) *DragController {
	if consume == nil {
		panic("board.NewDragController: consumer is nil")
	}
	return &DragController{consume: consume}
}

// Begin starts a drag gesture for the given task. Beginning a new gesture
// while one is active abandons the previous one.
func (d *DragController) Begin(taskID int64) {
	d.mu.Lock()
	d.state = gestureDragging
	d.taskID = taskID
	d.mu.Unlock()
}

// Cancel ends the gesture without producing an intent.
func (d *DragController) Cancel() {
	d.mu.Lock()
	d.state = gestureIdle
	d.taskID = 0
	d.mu.Unlock()
}

// Drop ends the gesture over the given column. A non-positive stepID
// means the drag was released outside any valid column and the gesture is
// cancelled. Drops outside an active gesture are ignored.
func (d *DragController) Drop(stepID int64) {
	d.mu.Lock()
	if d.state != gestureDragging {
		d.mu.Unlock()
		return
	}
	taskID := d.taskID
	d.state = gestureIdle
	d.taskID = 0
	d.mu.Unlock()

	if stepID <= 0 {
		return
	}
	d.consume(domain.MoveIntent{TaskID: taskID, StepID: stepID})
}

// Dragging reports whether a gesture is active.
func (d *DragController) Dragging() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state == gestureDragging
}
