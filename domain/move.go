package domain

// MoveIntent is the ephemeral (task, target column) pair produced by a
// completed drag gesture. It is consumed exactly once by the reconciler.
type MoveIntent struct {
	TaskID int64
	StepID int64
}

// Scope bounds which tasks are loaded onto the board. A nil SprintID
// means the whole backlog of the workspace.
type Scope struct {
	WorkspaceID int64
	SprintID    *int64
}
