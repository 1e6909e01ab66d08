package services

import (
	"context"

	"github.com/mshiraki/trainlog/internal/core/domain"
	"github.com/mshiraki/trainlog/internal/core/workers"
)

type SessionService struct {
	sessionRepo domain.SessionRepository
	ruleRepo    domain.RuleRepository
	resync      *workers.ResyncWorker
}

func NewSessionService(sessionRepo domain.SessionRepository, ruleRepo domain.RuleRepository, resync *workers.ResyncWorker) *SessionService {
	return &SessionService{
		sessionRepo: sessionRepo,
		ruleRepo:    ruleRepo,
		resync:      resync,
	}
}

type CreateSessionInput struct {
	UserID string
	Name   string
	Note   string
}

type UpdateSessionInput struct {
	ID     string
	UserID string
	Name   string
	Note   string
}

func (s *SessionService) Create(ctx context.Context, input CreateSessionInput) (*domain.Session, error) {
	session, err := domain.NewSession(input.UserID, input.Name, input.Note)
	if err != nil {
		return nil, err
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *SessionService) GetByID(ctx context.Context, id, userID string) (*domain.Session, error) {
	session, err := s.sessionRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if session.UserID != userID {
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

func (s *SessionService) ListByUserID(ctx context.Context, userID string) ([]*domain.Session, error) {
	return s.sessionRepo.ListByUserID(ctx, userID)
}

func (s *SessionService) Update(ctx context.Context, input UpdateSessionInput) (*domain.Session, error) {
	session, err := s.GetByID(ctx, input.ID, input.UserID)
	if err != nil {
		return nil, err
	}

	if err := session.Update(input.Name, input.Note); err != nil {
		return nil, err
	}

	if err := s.sessionRepo.Update(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// Archive hides the session from active rotation. Its rules keep
// generating and its history stays intact; only edits are blocked until
// the session is restored.
func (s *SessionService) Archive(ctx context.Context, id, userID string) (*domain.Session, error) {
	session, err := s.GetByID(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	session.Archive()

	if err := s.sessionRepo.Update(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *SessionService) Restore(ctx context.Context, id, userID string) (*domain.Session, error) {
	session, err := s.GetByID(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	session.Restore()

	if err := s.sessionRepo.Update(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *SessionService) Reorder(ctx context.Context, id, userID string, position int) (*domain.Session, error) {
	session, err := s.GetByID(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	if err := session.ChangePosition(position); err != nil {
		return nil, err
	}

	if err := s.sessionRepo.Update(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// Delete soft-deletes the session, its rules, and their future pending
// tasks. Occurrence history survives.
func (s *SessionService) Delete(ctx context.Context, id, userID string) error {
	session, err := s.GetByID(ctx, id, userID)
	if err != nil {
		return err
	}

	rules, err := s.ruleRepo.ListBySessionID(ctx, session.ID)
	if err != nil {
		return err
	}

	for _, rule := range rules {
		if err := s.ruleRepo.Delete(ctx, rule.ID); err != nil {
			return err
		}
		s.resync.Enqueue(workers.ResyncJob{UserID: userID, RuleID: rule.ID, Cleanup: true})
	}

	return s.sessionRepo.Delete(ctx, session.ID)
}
