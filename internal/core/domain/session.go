package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrSessionNameEmpty   = errors.New("session name cannot be empty")
	ErrSessionNameTooLong = errors.New("session name is too long (max 100 chars)")
	ErrSessionNoteTooLong = errors.New("session note is too long (max 500 chars)")
	ErrSessionInvalidUser = errors.New("invalid user id")
	ErrSessionArchived    = errors.New("cannot update an archived session")
)

const (
	MaxSessionNameLen = 100
	MaxSessionNoteLen = 500
)

// Session is a named training routine (e.g. "Upper A", "Leg day") that
// recurrence rules and scheduled tasks hang off.
type Session struct {
	ID         string     `json:"id"`
	UserID     string     `json:"user_id"`
	Name       string     `json:"name"`
	Note       string     `json:"note,omitempty"`
	SortOrder  int        `json:"sort_order"`
	ArchivedAt *time.Time `json:"archived_at,omitempty"`
	Version    int        `json:"version"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	DeletedAt  *time.Time `json:"deleted_at,omitempty"`
}

func validateSessionFields(name, note string) (string, string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", "", ErrSessionNameEmpty
	}
	if len(name) > MaxSessionNameLen {
		return "", "", ErrSessionNameTooLong
	}

	note = strings.TrimSpace(note)
	if len(note) > MaxSessionNoteLen {
		return "", "", ErrSessionNoteTooLong
	}

	return name, note, nil
}

func NewSession(userID, name, note string) (*Session, error) {
	if userID == "" {
		return nil, ErrSessionInvalidUser
	}

	name, note, err := validateSessionFields(name, note)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()

	return &Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		Name:      name,
		Note:      note,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *Session) Update(name, note string) error {
	if s.ArchivedAt != nil {
		return ErrSessionArchived
	}

	name, note, err := validateSessionFields(name, note)
	if err != nil {
		return err
	}

	s.Name = name
	s.Note = note
	s.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *Session) ChangePosition(newOrder int) error {
	if s.ArchivedAt != nil {
		return ErrSessionArchived
	}

	s.SortOrder = newOrder
	s.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *Session) Archive() {
	if s.ArchivedAt != nil {
		return
	}

	now := time.Now().UTC()
	s.ArchivedAt = &now
	s.UpdatedAt = now
}

func (s *Session) Restore() {
	if s.ArchivedAt == nil {
		return
	}
	s.ArchivedAt = nil
	s.UpdatedAt = time.Now().UTC()
}
