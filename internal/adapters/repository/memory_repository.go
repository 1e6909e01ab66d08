package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/mshiraki/trainlog/internal/core/domain"
)

// In-memory repositories backing handler and service tests. They implement
// the same contracts as the Postgres adapters, including the unique
// (user, session, date) slot for tasks.

type InMemorySessionRepository struct {
	store map[string]*domain.Session

	mu sync.RWMutex
}

func NewInMemorySessionRepository() *InMemorySessionRepository {
	return &InMemorySessionRepository{
		store: make(map[string]*domain.Session),
	}
}

func (r *InMemorySessionRepository) Create(ctx context.Context, session *domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.store[session.ID] = session
	return nil
}

func (r *InMemorySessionRepository) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	session, ok := r.store[id]
	if !ok || session.DeletedAt != nil {
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

func (r *InMemorySessionRepository) ListByUserID(ctx context.Context, userID string) ([]*domain.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var sessions []*domain.Session
	for _, s := range r.store {
		if s.UserID == userID && s.DeletedAt == nil {
			sessions = append(sessions, s)
		}
	}

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].SortOrder < sessions[j].SortOrder
	})

	return sessions, nil
}

func (r *InMemorySessionRepository) Update(ctx context.Context, session *domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.store[session.ID]; !ok {
		return domain.ErrSessionNotFound
	}

	r.store[session.ID] = session
	return nil
}

func (r *InMemorySessionRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.store[id]
	if !ok || session.DeletedAt != nil {
		return domain.ErrSessionNotFound
	}

	now := time.Now().UTC()
	session.DeletedAt = &now
	return nil
}

type InMemoryRuleRepository struct {
	store        map[string]*domain.RecurrenceRule
	deletedUsers map[string]bool

	mu sync.RWMutex
}

func NewInMemoryRuleRepository() *InMemoryRuleRepository {
	return &InMemoryRuleRepository{
		store:        make(map[string]*domain.RecurrenceRule),
		deletedUsers: make(map[string]bool),
	}
}

// MarkUserDeleted retires a user's rules from batch listings, mirroring
// the owner join the Postgres adapter does against the users table.
func (r *InMemoryRuleRepository) MarkUserDeleted(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.deletedUsers[userID] = true
}

func (r *InMemoryRuleRepository) Create(ctx context.Context, rule *domain.RecurrenceRule) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.store[rule.ID] = rule
	return nil
}

func (r *InMemoryRuleRepository) GetByID(ctx context.Context, id string) (*domain.RecurrenceRule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rule, ok := r.store[id]
	if !ok || rule.DeletedAt != nil {
		return nil, domain.ErrRuleNotFound
	}
	return rule, nil
}

func (r *InMemoryRuleRepository) ListByUserID(ctx context.Context, userID string) ([]*domain.RecurrenceRule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var rules []*domain.RecurrenceRule
	for _, rule := range r.store {
		if rule.UserID == userID && rule.DeletedAt == nil {
			rules = append(rules, rule)
		}
	}

	sort.Slice(rules, func(i, j int) bool {
		return rules[i].CreatedAt.Before(rules[j].CreatedAt)
	})

	return rules, nil
}

func (r *InMemoryRuleRepository) ListBySessionID(ctx context.Context, sessionID string) ([]*domain.RecurrenceRule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var rules []*domain.RecurrenceRule
	for _, rule := range r.store {
		if rule.SessionID == sessionID && rule.DeletedAt == nil {
			rules = append(rules, rule)
		}
	}
	return rules, nil
}

func (r *InMemoryRuleRepository) Update(ctx context.Context, rule *domain.RecurrenceRule) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.store[rule.ID]
	if !ok || current.DeletedAt != nil {
		return domain.ErrRuleNotFound
	}
	if current.Version != rule.Version {
		return domain.ErrRuleConflict
	}

	rule.Version++
	r.store[rule.ID] = rule
	return nil
}

func (r *InMemoryRuleRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rule, ok := r.store[id]
	if !ok || rule.DeletedAt != nil {
		return domain.ErrRuleNotFound
	}

	now := time.Now().UTC()
	rule.DeletedAt = &now
	return nil
}

func (r *InMemoryRuleRepository) ListEnabledForBatch(ctx context.Context) ([]*domain.RecurrenceRule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var rules []*domain.RecurrenceRule
	for _, rule := range r.store {
		if rule.IsEnabled && rule.DeletedAt == nil &&
			rule.RuleType != domain.RuleTypeManual &&
			!r.deletedUsers[rule.UserID] {
			rules = append(rules, rule)
		}
	}

	sort.Slice(rules, func(i, j int) bool {
		return rules[i].ID < rules[j].ID
	})

	return rules, nil
}

type InMemoryTaskRepository struct {
	store map[string]*domain.ScheduledTask

	mu sync.RWMutex
}

func NewInMemoryTaskRepository() *InMemoryTaskRepository {
	return &InMemoryTaskRepository{
		store: make(map[string]*domain.ScheduledTask),
	}
}

func (r *InMemoryTaskRepository) slotTaken(task *domain.ScheduledTask) bool {
	for _, t := range r.store {
		if t.ID != task.ID &&
			t.UserID == task.UserID &&
			t.SessionID == task.SessionID &&
			t.ScheduledDate == task.ScheduledDate {
			return true
		}
	}
	return false
}

func (r *InMemoryTaskRepository) Create(ctx context.Context, task *domain.ScheduledTask) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.slotTaken(task) {
		return domain.ErrTaskConflict
	}

	r.store[task.ID] = task
	return nil
}

func (r *InMemoryTaskRepository) GetByID(ctx context.Context, id string) (*domain.ScheduledTask, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	task, ok := r.store[id]
	if !ok {
		return nil, domain.ErrTaskNotFound
	}
	return task, nil
}

func (r *InMemoryTaskRepository) GetByDate(ctx context.Context, userID, sessionID string, date domain.DayKey) (*domain.ScheduledTask, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, t := range r.store {
		if t.UserID == userID && t.SessionID == sessionID && t.ScheduledDate == date {
			return t, nil
		}
	}
	return nil, domain.ErrTaskNotFound
}

func (r *InMemoryTaskRepository) ListByUserIDAndRange(ctx context.Context, userID string, from, to domain.DayKey) ([]*domain.ScheduledTask, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var tasks []*domain.ScheduledTask
	for _, t := range r.store {
		if t.UserID == userID && t.ScheduledDate >= from && t.ScheduledDate <= to {
			tasks = append(tasks, t)
		}
	}

	sort.Slice(tasks, func(i, j int) bool {
		return tasks[i].ScheduledDate < tasks[j].ScheduledDate
	})

	return tasks, nil
}

func (r *InMemoryTaskRepository) FindExistingDates(ctx context.Context, userID, sessionID string, dates []domain.DayKey) (map[domain.DayKey]bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	wanted := make(map[domain.DayKey]bool, len(dates))
	for _, d := range dates {
		wanted[d] = true
	}

	existing := make(map[domain.DayKey]bool)
	for _, t := range r.store {
		if t.UserID == userID && t.SessionID == sessionID && wanted[t.ScheduledDate] {
			existing[t.ScheduledDate] = true
		}
	}
	return existing, nil
}

func (r *InMemoryTaskRepository) BulkInsert(ctx context.Context, tasks []*domain.ScheduledTask) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	inserted := 0
	for _, task := range tasks {
		if r.slotTaken(task) {
			continue
		}
		r.store[task.ID] = task
		inserted++
	}
	return inserted, nil
}

func (r *InMemoryTaskRepository) Update(ctx context.Context, task *domain.ScheduledTask) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.store[task.ID]; !ok {
		return domain.ErrTaskNotFound
	}

	r.store[task.ID] = task
	return nil
}

func (r *InMemoryTaskRepository) DeleteFuturePending(ctx context.Context, userID, ruleID string, from domain.DayKey) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var deleted int64
	for id, t := range r.store {
		if t.UserID == userID &&
			t.RuleID != nil && *t.RuleID == ruleID &&
			t.Status == domain.TaskStatusPending &&
			t.RescheduledTo == nil &&
			t.ScheduledDate >= from {
			delete(r.store, id)
			deleted++
		}
	}
	return deleted, nil
}

type InMemoryReminderRepository struct {
	store map[string]*domain.ReminderRule

	mu sync.RWMutex
}

func NewInMemoryReminderRepository() *InMemoryReminderRepository {
	return &InMemoryReminderRepository{
		store: make(map[string]*domain.ReminderRule),
	}
}

func (r *InMemoryReminderRepository) Create(ctx context.Context, reminder *domain.ReminderRule) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.store[reminder.ID] = reminder
	return nil
}

func (r *InMemoryReminderRepository) GetByID(ctx context.Context, id string) (*domain.ReminderRule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	reminder, ok := r.store[id]
	if !ok {
		return nil, domain.ErrReminderNotFound
	}
	return reminder, nil
}

func (r *InMemoryReminderRepository) ListByUserID(ctx context.Context, userID string) ([]*domain.ReminderRule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var reminders []*domain.ReminderRule
	for _, rem := range r.store {
		if rem.UserID == userID {
			reminders = append(reminders, rem)
		}
	}

	sort.Slice(reminders, func(i, j int) bool {
		return reminders[i].CreatedAt.Before(reminders[j].CreatedAt)
	})

	return reminders, nil
}

func (r *InMemoryReminderRepository) Update(ctx context.Context, reminder *domain.ReminderRule) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.store[reminder.ID]; !ok {
		return domain.ErrReminderNotFound
	}

	r.store[reminder.ID] = reminder
	return nil
}

func (r *InMemoryReminderRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.store[id]; !ok {
		return domain.ErrReminderNotFound
	}

	delete(r.store, id)
	return nil
}

func (r *InMemoryReminderRepository) ListDue(ctx context.Context, now time.Time) ([]*domain.ReminderRule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var due []*domain.ReminderRule
	for _, rem := range r.store {
		if rem.IsEnabled && rem.NextFireAt != nil && !rem.NextFireAt.After(now) {
			due = append(due, rem)
		}
	}

	sort.Slice(due, func(i, j int) bool {
		return due[i].NextFireAt.Before(*due[j].NextFireAt)
	})

	return due, nil
}

type InMemoryUserRepository struct {
	store map[string]*domain.User

	mu sync.RWMutex
}

func NewInMemoryUserRepository() *InMemoryUserRepository {
	return &InMemoryUserRepository{
		store: make(map[string]*domain.User),
	}
}

func (r *InMemoryUserRepository) Create(ctx context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.store {
		if u.Email == user.Email {
			return domain.ErrEmailAlreadyExists
		}
	}

	r.store[user.ID] = user
	return nil
}

func (r *InMemoryUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.store[id]
	if !ok || user.DeletedAt != nil {
		return nil, domain.ErrUserNotFound
	}
	return user, nil
}

func (r *InMemoryUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.store {
		if u.Email == email && u.DeletedAt == nil {
			return u, nil
		}
	}
	return nil, domain.ErrUserNotFound
}
