package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrTaskFinalized     = errors.New("task is already completed or skipped")
	ErrTaskMoved         = errors.New("task has been rescheduled to another date")
	ErrRescheduleSameDay = errors.New("cannot reschedule a task to its own date")
)

const (
	TaskStatusPending   = "pending"
	TaskStatusCompleted = "completed"
	TaskStatusSkipped   = "skipped"
)

// ScheduledTask is one concrete occurrence of a session on a calendar day.
// RuleID is nil for ad-hoc entries created outside any recurrence rule.
// At most one task exists per (user, session, scheduled date); the store
// enforces this with a unique index, which is what makes regeneration
// idempotent.
type ScheduledTask struct {
	ID              string     `json:"id"`
	UserID          string     `json:"user_id"`
	SessionID       string     `json:"session_id"`
	RuleID          *string    `json:"rule_id,omitempty"`
	ScheduledDate   DayKey     `json:"scheduled_date"`
	Status          string     `json:"status"`
	RescheduledFrom *DayKey    `json:"rescheduled_from,omitempty"`
	RescheduledTo   *DayKey    `json:"rescheduled_to,omitempty"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func NewScheduledTask(userID, sessionID string, ruleID *string, date DayKey) *ScheduledTask {
	now := time.Now().UTC()

	return &ScheduledTask{
		ID:            uuid.NewString(),
		UserID:        userID,
		SessionID:     sessionID,
		RuleID:        ruleID,
		ScheduledDate: date,
		Status:        TaskStatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// IsMoved reports whether this task was rescheduled away from its date.
// A moved task keeps status pending as bookkeeping but is no longer
// actionable in place.
func (t *ScheduledTask) IsMoved() bool {
	return t.RescheduledTo != nil
}

func (t *ScheduledTask) actionable() error {
	if t.Status != TaskStatusPending {
		return ErrTaskFinalized
	}
	if t.IsMoved() {
		return ErrTaskMoved
	}
	return nil
}

// Complete finalizes the task. Terminal: no transition leads out of it.
func (t *ScheduledTask) Complete(now time.Time) error {
	if err := t.actionable(); err != nil {
		return err
	}

	done := now.UTC()
	t.Status = TaskStatusCompleted
	t.CompletedAt = &done
	t.UpdatedAt = done
	return nil
}

// Skip finalizes the task without marking it done. Terminal.
func (t *ScheduledTask) Skip() error {
	if err := t.actionable(); err != nil {
		return err
	}

	t.Status = TaskStatusSkipped
	t.UpdatedAt = time.Now().UTC()
	return nil
}

// MoveTo records that this task's occurrence now lives on target. The
// counterpart task carrying RescheduledFrom is managed by the service
// layer; the two links together preserve the move bidirectionally.
func (t *ScheduledTask) MoveTo(target DayKey) error {
	if err := t.actionable(); err != nil {
		return err
	}
	if target == t.ScheduledDate {
		return ErrRescheduleSameDay
	}

	t.RescheduledTo = &target
	t.UpdatedAt = time.Now().UTC()
	return nil
}
