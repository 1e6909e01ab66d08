package domain

import (
	"context"
	"errors"
	"time"
)

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrSessionNotFound  = errors.New("session not found")
	ErrRuleNotFound     = errors.New("recurrence rule not found")
	ErrTaskNotFound     = errors.New("scheduled task not found")
	ErrReminderNotFound = errors.New("reminder rule not found")

	// ErrRuleConflict and ErrSessionConflict signal optimistic-lock
	// version mismatches.
	ErrRuleConflict    = errors.New("recurrence rule version conflict")
	ErrSessionConflict = errors.New("session version conflict")

	// ErrTaskConflict is the unique-index violation on
	// (user, session, scheduled date). Generation treats it as
	// "already exists", never as a failure.
	ErrTaskConflict = errors.New("a task already exists for this session and date")
)

type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
}

type SessionRepository interface {
	Create(ctx context.Context, session *Session) error
	GetByID(ctx context.Context, id string) (*Session, error)
	ListByUserID(ctx context.Context, userID string) ([]*Session, error)
	Update(ctx context.Context, session *Session) error

	// Delete is logical; occurrences referencing the session survive.
	Delete(ctx context.Context, id string) error
}

type RuleRepository interface {
	Create(ctx context.Context, rule *RecurrenceRule) error
	GetByID(ctx context.Context, id string) (*RecurrenceRule, error)
	ListByUserID(ctx context.Context, userID string) ([]*RecurrenceRule, error)
	ListBySessionID(ctx context.Context, sessionID string) ([]*RecurrenceRule, error)

	// Update must enforce optimistic locking on Version and return
	// ErrRuleConflict on a mismatch.
	Update(ctx context.Context, rule *RecurrenceRule) error

	// Delete is logical (DeletedAt); generated occurrences are never lost.
	Delete(ctx context.Context, id string) error

	// ListEnabledForBatch returns every enabled, non-deleted,
	// auto-generating rule whose owner still exists. Feeds the daily run.
	ListEnabledForBatch(ctx context.Context) ([]*RecurrenceRule, error)
}

type TaskRepository interface {
	// Create returns ErrTaskConflict when a task already occupies the
	// (user, session, date) slot.
	Create(ctx context.Context, task *ScheduledTask) error

	GetByID(ctx context.Context, id string) (*ScheduledTask, error)
	GetByDate(ctx context.Context, userID, sessionID string, date DayKey) (*ScheduledTask, error)
	ListByUserIDAndRange(ctx context.Context, userID string, from, to DayKey) ([]*ScheduledTask, error)

	// FindExistingDates reports which of the candidate dates already hold
	// a task for the session. The generation pre-check; the unique index
	// remains the correctness backstop under concurrency.
	FindExistingDates(ctx context.Context, userID, sessionID string, dates []DayKey) (map[DayKey]bool, error)

	// BulkInsert writes pending tasks, silently skipping rows that lose a
	// race on the unique index. Returns the number actually inserted.
	BulkInsert(ctx context.Context, tasks []*ScheduledTask) (int, error)

	Update(ctx context.Context, task *ScheduledTask) error

	// DeleteFuturePending removes pending, not-yet-moved tasks of a rule
	// scheduled on or after the given day. Completed and skipped rows are
	// never touched.
	DeleteFuturePending(ctx context.Context, userID, ruleID string, from DayKey) (int64, error)
}

type ReminderRepository interface {
	Create(ctx context.Context, reminder *ReminderRule) error
	GetByID(ctx context.Context, id string) (*ReminderRule, error)
	ListByUserID(ctx context.Context, userID string) ([]*ReminderRule, error)
	Update(ctx context.Context, reminder *ReminderRule) error
	Delete(ctx context.Context, id string) error

	// ListDue returns enabled reminders whose NextFireAt is at or before
	// now. Consumed by the notification sweep.
	ListDue(ctx context.Context, now time.Time) ([]*ReminderRule, error)
}
