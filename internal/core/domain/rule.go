package domain

import (
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidRuleUserID  = errors.New("invalid user id")
	ErrInvalidRuleSession = errors.New("invalid session id")
	ErrInvalidRuleType    = errors.New("invalid rule type (must be weekly, interval, or manual)")
	ErrEmptyWeekdays      = errors.New("weekly rule requires at least one weekday")
	ErrInvalidWeekdays    = errors.New("invalid weekdays (must be 0-6, Sunday=0)")
	ErrInvalidInterval    = errors.New("interval days must be a positive integer")
	ErrEndBeforeStart     = errors.New("end date cannot be before start date")
)

const (
	RuleTypeWeekly   = "weekly"
	RuleTypeInterval = "interval"
	RuleTypeManual   = "manual"
)

// RecurrenceRule describes when a training session recurs. A rule belongs
// to exactly one session and one user. Disabling a rule stops future
// generation without touching occurrences that already exist; deletion is
// logical (DeletedAt) so occurrences are never orphaned.
type RecurrenceRule struct {
	ID           string     `json:"id"`
	UserID       string     `json:"user_id"`
	SessionID    string     `json:"session_id"`
	RuleType     string     `json:"rule_type"`
	Weekdays     []int      `json:"weekdays,omitempty"`
	IntervalDays int        `json:"interval_days,omitempty"`
	StartDate    DayKey     `json:"start_date"`
	EndDate      *DayKey    `json:"end_date,omitempty"`
	IsEnabled    bool       `json:"is_enabled"`
	Version      int        `json:"version"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	DeletedAt    *time.Time `json:"deleted_at,omitempty"`
}

func normalizeWeekdays(days []int) []int {
	if len(days) == 0 {
		return nil
	}

	seen := make(map[int]bool)
	var unique []int
	for _, d := range days {
		if !seen[d] {
			seen[d] = true
			unique = append(unique, d)
		}
	}

	sort.Ints(unique)
	return unique
}

func validateRule(ruleType string, weekdays []int, intervalDays int, startDate DayKey, endDate *DayKey) error {
	switch ruleType {
	case RuleTypeWeekly:
		if len(weekdays) == 0 {
			return ErrEmptyWeekdays
		}
	case RuleTypeInterval:
		if intervalDays <= 0 {
			return ErrInvalidInterval
		}
	case RuleTypeManual:
	default:
		return ErrInvalidRuleType
	}

	for _, d := range weekdays {
		if d < 0 || d > 6 {
			return ErrInvalidWeekdays
		}
	}

	if _, err := ParseDayKey(string(startDate)); err != nil {
		return err
	}
	if endDate != nil {
		if _, err := ParseDayKey(string(*endDate)); err != nil {
			return err
		}
		if *endDate < startDate {
			return ErrEndBeforeStart
		}
	}

	return nil
}

func NewRecurrenceRule(userID, sessionID, ruleType string, weekdays []int, intervalDays int, startDate DayKey, endDate *DayKey) (*RecurrenceRule, error) {
	if userID == "" {
		return nil, ErrInvalidRuleUserID
	}
	if sessionID == "" {
		return nil, ErrInvalidRuleSession
	}

	if err := validateRule(ruleType, weekdays, intervalDays, startDate, endDate); err != nil {
		return nil, err
	}

	now := time.Now().UTC()

	return &RecurrenceRule{
		ID:           uuid.NewString(),
		UserID:       userID,
		SessionID:    sessionID,
		RuleType:     ruleType,
		Weekdays:     normalizeWeekdays(weekdays),
		IntervalDays: intervalDays,
		StartDate:    startDate,
		EndDate:      endDate,
		IsEnabled:    true,
		Version:      1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

func (r *RecurrenceRule) Update(ruleType string, weekdays []int, intervalDays int, startDate DayKey, endDate *DayKey, enabled bool) error {
	if err := validateRule(ruleType, weekdays, intervalDays, startDate, endDate); err != nil {
		return err
	}

	r.RuleType = ruleType
	r.Weekdays = normalizeWeekdays(weekdays)
	r.IntervalDays = intervalDays
	r.StartDate = startDate
	r.EndDate = endDate
	r.IsEnabled = enabled
	r.UpdatedAt = time.Now().UTC()

	return nil
}

// IsScheduledOn reports whether day is an occurrence of this rule. The
// function is pure over well-formed rules: validation happens at
// construction, never here. Manual rules never auto-generate.
func (r *RecurrenceRule) IsScheduledOn(day DayKey) bool {
	if day < r.StartDate {
		return false
	}
	if r.EndDate != nil && day > *r.EndDate {
		return false
	}

	switch r.RuleType {
	case RuleTypeWeekly:
		wd := day.Weekday()
		for _, d := range r.Weekdays {
			if d == wd {
				return true
			}
		}
		return false
	case RuleTypeInterval:
		return DaysBetween(r.StartDate, day)%r.IntervalDays == 0
	default:
		return false
	}
}
