package services

import (
	"context"
	"fmt"

	"github.com/mshiraki/trainlog/internal/core/domain"
	"github.com/mshiraki/trainlog/internal/core/workers"
)

type RuleService struct {
	ruleRepo    domain.RuleRepository
	sessionRepo domain.SessionRepository
	resync      *workers.ResyncWorker
}

func NewRuleService(ruleRepo domain.RuleRepository, sessionRepo domain.SessionRepository, resync *workers.ResyncWorker) *RuleService {
	return &RuleService{
		ruleRepo:    ruleRepo,
		sessionRepo: sessionRepo,
		resync:      resync,
	}
}

type CreateRuleInput struct {
	UserID       string
	SessionID    string
	RuleType     string
	Weekdays     []int
	IntervalDays int
	StartDate    domain.DayKey
	EndDate      *domain.DayKey
}

type UpdateRuleInput struct {
	ID           string
	UserID       string
	RuleType     string
	Weekdays     []int
	IntervalDays int
	StartDate    domain.DayKey
	EndDate      *domain.DayKey
	IsEnabled    bool
	Version      int
}

func (s *RuleService) Create(ctx context.Context, input CreateRuleInput) (*domain.RecurrenceRule, error) {
	session, err := s.sessionRepo.GetByID(ctx, input.SessionID)
	if err != nil {
		return nil, err
	}
	if session.UserID != input.UserID {
		return nil, domain.ErrSessionNotFound
	}

	rule, err := domain.NewRecurrenceRule(input.UserID, input.SessionID, input.RuleType,
		input.Weekdays, input.IntervalDays, input.StartDate, input.EndDate)
	if err != nil {
		return nil, err
	}

	if err := s.ruleRepo.Create(ctx, rule); err != nil {
		return nil, err
	}

	s.resync.Enqueue(workers.ResyncJob{UserID: rule.UserID, RuleID: rule.ID})

	return rule, nil
}

func (s *RuleService) GetByID(ctx context.Context, id, userID string) (*domain.RecurrenceRule, error) {
	rule, err := s.ruleRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if rule.UserID != userID {
		return nil, domain.ErrRuleNotFound
	}
	return rule, nil
}

func (s *RuleService) ListByUserID(ctx context.Context, userID string) ([]*domain.RecurrenceRule, error) {
	return s.ruleRepo.ListByUserID(ctx, userID)
}

// Update edits the cadence and schedules a resync: pending future tasks
// generated under the old parameters are stale and get rebuilt.
func (s *RuleService) Update(ctx context.Context, input UpdateRuleInput) (*domain.RecurrenceRule, error) {
	rule, err := s.GetByID(ctx, input.ID, input.UserID)
	if err != nil {
		return nil, err
	}

	if input.Version > 0 && rule.Version != input.Version {
		return nil, fmt.Errorf("%w: client v%d vs server v%d", domain.ErrRuleConflict, input.Version, rule.Version)
	}

	if err := rule.Update(input.RuleType, input.Weekdays, input.IntervalDays,
		input.StartDate, input.EndDate, input.IsEnabled); err != nil {
		return nil, err
	}

	if err := s.ruleRepo.Update(ctx, rule); err != nil {
		return nil, err
	}

	s.resync.Enqueue(workers.ResyncJob{UserID: rule.UserID, RuleID: rule.ID})

	return rule, nil
}

// TriggerSync queues a full regeneration of the rule's window on demand,
// e.g. after a client restores from backup.
func (s *RuleService) TriggerSync(ctx context.Context, id, userID string) error {
	rule, err := s.GetByID(ctx, id, userID)
	if err != nil {
		return err
	}

	s.resync.Enqueue(workers.ResyncJob{UserID: userID, RuleID: rule.ID})
	return nil
}

// Delete soft-deletes the rule and schedules cleanup of its future
// pending tasks. Completed and skipped history stays.
func (s *RuleService) Delete(ctx context.Context, id, userID string) error {
	rule, err := s.GetByID(ctx, id, userID)
	if err != nil {
		return err
	}

	if err := s.ruleRepo.Delete(ctx, rule.ID); err != nil {
		return err
	}

	s.resync.Enqueue(workers.ResyncJob{UserID: userID, RuleID: rule.ID, Cleanup: true})

	return nil
}
