package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// MaxTitleLen bounds task titles, matching the remote service's limit.
const MaxTitleLen = 200

// Task represents a single board item. ID is the opaque identity; Code is
// the human-readable display code and carries no identity semantics.
type Task struct {
	ID          int64      `json:"id"`
	Code        string     `json:"code,omitempty"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Estimate    *float64   `json:"estimate,omitempty"`
	StartDate   *time.Time `json:"startDate,omitempty"`
	Deadline    *time.Time `json:"deadline,omitempty"`
	StepID      int64      `json:"stepId"`
	SprintID    *int64     `json:"sprintId,omitempty"`
	PriorityID  int64      `json:"priorityId,omitempty"`
	TypeID      int64      `json:"typeId,omitempty"`
	ReporterID  int64      `json:"reporterId,omitempty"`
	AssigneeID  *int64     `json:"assigneeId,omitempty"`
	OwnerID     *int64     `json:"ownerId,omitempty"`
	CreatedAt   time.Time  `json:"createdAt,omitempty"`
	UpdatedAt   time.Time  `json:"updatedAt,omitempty"`
}

// TaskDraft is the payload for creating a task.
type TaskDraft struct {
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Estimate    *float64   `json:"estimate,omitempty"`
	StartDate   *time.Time `json:"startDate,omitempty"`
	Deadline    *time.Time `json:"deadline,omitempty"`
	StepID      int64      `json:"stepId"`
	SprintID    *int64     `json:"sprintId,omitempty"`
	PriorityID  int64      `json:"priorityId"`
	TypeID      int64      `json:"typeId"`
	ReporterID  int64      `json:"reporterId"`
	AssigneeID  *int64     `json:"assigneeId,omitempty"`
	OwnerID     *int64     `json:"ownerId,omitempty"`
}

// TaskPatch is a partial update; nil fields are left untouched remotely.
type TaskPatch struct {
	Title       *string    `json:"title,omitempty"`
	Description *string    `json:"description,omitempty"`
	Estimate    *float64   `json:"estimate,omitempty"`
	StartDate   *time.Time `json:"startDate,omitempty"`
	Deadline    *time.Time `json:"deadline,omitempty"`
	StepID      *int64     `json:"stepId,omitempty"`
	SprintID    *int64     `json:"sprintId,omitempty"`
	PriorityID  *int64     `json:"priorityId,omitempty"`
	TypeID      *int64     `json:"typeId,omitempty"`
	AssigneeID  *int64     `json:"assigneeId,omitempty"`
	OwnerID     *int64     `json:"ownerId,omitempty"`
}

var (
	errEmptyTitle    = errors.New("title must not be empty")
	errDeadlineOrder = errors.New("deadline must not precede start date")
)

func validateTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return errEmptyTitle
	}
	if n := utf8.RuneCountInString(title); n > MaxTitleLen {
		return fmt.Errorf("title exceeds %d characters: %d", MaxTitleLen, n)
	}
	return nil
}

func validateDates(start, deadline *time.Time) error {
	if start != nil && deadline != nil && deadline.Before(*start) {
		return errDeadlineOrder
	}
	return nil
}

// Validate checks the draft before it is sent to the remote service.
func (d TaskDraft) Validate() error {
	if err := validateTitle(d.Title); err != nil {
		return err
	}
	if d.StepID <= 0 {
		return errors.New("stepId is required")
	}
	return validateDates(d.StartDate, d.Deadline)
}

// Validate checks the fields present in the patch. An empty patch is
// rejected so callers do not issue no-op updates.
func (p TaskPatch) Validate() error {
	if p == (TaskPatch{}) {
		return errors.New("patch has no fields")
	}
	if p.Title != nil {
		if err := validateTitle(*p.Title); err != nil {
			return err
		}
	}
	return validateDates(p.StartDate, p.Deadline)
}
