package services

import (
	"context"
	"log"
	"time"

	"github.com/mshiraki/trainlog/internal/core/domain"
)

type ReminderService struct {
	reminderRepo domain.ReminderRepository
	sessionRepo  domain.SessionRepository
	now          func() time.Time
}

func NewReminderService(reminderRepo domain.ReminderRepository, sessionRepo domain.SessionRepository) *ReminderService {
	return &ReminderService{
		reminderRepo: reminderRepo,
		sessionRepo:  sessionRepo,
		now:          time.Now,
	}
}

// WithClock replaces the service's clock. Test hook.
func (s *ReminderService) WithClock(now func() time.Time) *ReminderService {
	s.now = now
	return s
}

type CreateReminderInput struct {
	UserID     string
	SessionID  string
	Frequency  string
	TimeOfDay  string
	StartDate  domain.DayKey
	EndDate    *domain.DayKey
	DayOfWeek  *int
	DayOfMonth *int
}

type UpdateReminderInput struct {
	ID         string
	UserID     string
	Frequency  string
	TimeOfDay  string
	StartDate  domain.DayKey
	EndDate    *domain.DayKey
	DayOfWeek  *int
	DayOfMonth *int
	IsEnabled  bool
}

// refreshNextFire recomputes the denormalized NextFireAt. An expired
// series clears the pointer so the sweep stops considering the rule.
func (s *ReminderService) refreshNextFire(r *domain.ReminderRule) {
	if !r.IsEnabled {
		r.NextFireAt = nil
		return
	}

	if next, ok := r.NextFireAfter(s.now()); ok {
		r.NextFireAt = &next
	} else {
		r.NextFireAt = nil
	}
}

func (s *ReminderService) Create(ctx context.Context, input CreateReminderInput) (*domain.ReminderRule, error) {
	session, err := s.sessionRepo.GetByID(ctx, input.SessionID)
	if err != nil {
		return nil, err
	}
	if session.UserID != input.UserID {
		return nil, domain.ErrSessionNotFound
	}

	reminder, err := domain.NewReminderRule(input.UserID, input.SessionID, input.Frequency,
		input.TimeOfDay, input.StartDate, input.EndDate, input.DayOfWeek, input.DayOfMonth)
	if err != nil {
		return nil, err
	}

	s.refreshNextFire(reminder)

	if err := s.reminderRepo.Create(ctx, reminder); err != nil {
		return nil, err
	}
	return reminder, nil
}

func (s *ReminderService) GetByID(ctx context.Context, id, userID string) (*domain.ReminderRule, error) {
	reminder, err := s.reminderRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if reminder.UserID != userID {
		return nil, domain.ErrReminderNotFound
	}
	return reminder, nil
}

func (s *ReminderService) ListByUserID(ctx context.Context, userID string) ([]*domain.ReminderRule, error) {
	return s.reminderRepo.ListByUserID(ctx, userID)
}

func (s *ReminderService) Update(ctx context.Context, input UpdateReminderInput) (*domain.ReminderRule, error) {
	reminder, err := s.GetByID(ctx, input.ID, input.UserID)
	if err != nil {
		return nil, err
	}

	if err := reminder.Update(input.Frequency, input.TimeOfDay, input.StartDate,
		input.EndDate, input.DayOfWeek, input.DayOfMonth, input.IsEnabled); err != nil {
		return nil, err
	}

	s.refreshNextFire(reminder)

	if err := s.reminderRepo.Update(ctx, reminder); err != nil {
		return nil, err
	}
	return reminder, nil
}

func (s *ReminderService) Delete(ctx context.Context, id, userID string) error {
	reminder, err := s.GetByID(ctx, id, userID)
	if err != nil {
		return err
	}
	return s.reminderRepo.Delete(ctx, reminder.ID)
}

// Sweep fires every due reminder and advances its NextFireAt past now.
// Without this re-advance a recurring reminder would fire once and then
// stall until the next manual edit. An expired series is disabled rather
// than left with a stale pointer. Per-reminder failures are logged and
// counted, never aborting the rest of the sweep. Returns the number of
// reminders fired.
func (s *ReminderService) Sweep(ctx context.Context) (int, error) {
	now := s.now()

	due, err := s.reminderRepo.ListDue(ctx, now)
	if err != nil {
		return 0, err
	}

	fired := 0
	for _, reminder := range due {
		firedAt := now.UTC()
		reminder.LastFiredAt = &firedAt

		if next, ok := reminder.NextFireAfter(now); ok {
			reminder.NextFireAt = &next
		} else {
			reminder.NextFireAt = nil
			reminder.IsEnabled = false
		}
		reminder.UpdatedAt = firedAt

		if err := s.reminderRepo.Update(ctx, reminder); err != nil {
			log.Printf("reminder sweep: failed to advance reminder %s: %v", reminder.ID, err)
			continue
		}

		log.Printf("reminder fired: session %s at %s", reminder.SessionID, firedAt.Format(time.RFC3339))
		fired++
	}

	return fired, nil
}
