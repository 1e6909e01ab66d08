package domain

import (
	"errors"
	"regexp"
	"strconv"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidFrequency  = errors.New("invalid frequency (must be daily, weekly, or monthly)")
	ErrInvalidTimeOfDay  = errors.New("invalid time of day (must be HH:MM 24h)")
	ErrInvalidDayOfWeek  = errors.New("day of week must be 0-6 (Sunday=0)")
	ErrInvalidDayOfMonth = errors.New("day of month must be 1-31")
)

const (
	ReminderFreqDaily   = "daily"
	ReminderFreqWeekly  = "weekly"
	ReminderFreqMonthly = "monthly"
)

var timeOfDayRegex = regexp.MustCompile(`^([0-1][0-9]|2[0-3]):[0-5][0-9]$`)

// ReminderRule drives notifications for a session. NextFireAt is a
// denormalized pointer into the future: recomputed and persisted on every
// save and advanced by the sweep after each firing, so the worker only
// ever has to compare it against the clock.
type ReminderRule struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	SessionID   string     `json:"session_id"`
	Frequency   string     `json:"frequency"`
	TimeOfDay   string     `json:"time_of_day"`
	StartDate   DayKey     `json:"start_date"`
	EndDate     *DayKey    `json:"end_date,omitempty"`
	DayOfWeek   *int       `json:"day_of_week,omitempty"`
	DayOfMonth  *int       `json:"day_of_month,omitempty"`
	NextFireAt  *time.Time `json:"next_fire_at,omitempty"`
	LastFiredAt *time.Time `json:"last_fired_at,omitempty"`
	IsEnabled   bool       `json:"is_enabled"`
	Version     int        `json:"version"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func validateReminder(frequency, timeOfDay string, startDate DayKey, endDate *DayKey, dayOfWeek, dayOfMonth *int) error {
	switch frequency {
	case ReminderFreqDaily, ReminderFreqWeekly, ReminderFreqMonthly:
	default:
		return ErrInvalidFrequency
	}

	if !timeOfDayRegex.MatchString(timeOfDay) {
		return ErrInvalidTimeOfDay
	}

	if dayOfWeek != nil && (*dayOfWeek < 0 || *dayOfWeek > 6) {
		return ErrInvalidDayOfWeek
	}
	if dayOfMonth != nil && (*dayOfMonth < 1 || *dayOfMonth > 31) {
		return ErrInvalidDayOfMonth
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

func NewReminderRule(userID, sessionID, frequency, timeOfDay string, startDate DayKey, endDate *DayKey, dayOfWeek, dayOfMonth *int) (*ReminderRule, error) {
	if userID == "" {
		return nil, ErrInvalidRuleUserID
	}
	if sessionID == "" {
		return nil, ErrInvalidRuleSession
	}

	if err := validateReminder(frequency, timeOfDay, startDate, endDate, dayOfWeek, dayOfMonth); err != nil {
		return nil, err
	}

	now := time.Now().UTC()

	return &ReminderRule{
		ID:         uuid.NewString(),
		UserID:     userID,
		SessionID:  sessionID,
		Frequency:  frequency,
		TimeOfDay:  timeOfDay,
		StartDate:  startDate,
		EndDate:    endDate,
		DayOfWeek:  dayOfWeek,
		DayOfMonth: dayOfMonth,
		IsEnabled:  true,
		Version:    1,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

func (r *ReminderRule) Update(frequency, timeOfDay string, startDate DayKey, endDate *DayKey, dayOfWeek, dayOfMonth *int, enabled bool) error {
	if err := validateReminder(frequency, timeOfDay, startDate, endDate, dayOfWeek, dayOfMonth); err != nil {
		return err
	}

	r.Frequency = frequency
	r.TimeOfDay = timeOfDay
	r.StartDate = startDate
	r.EndDate = endDate
	r.DayOfWeek = dayOfWeek
	r.DayOfMonth = dayOfMonth
	r.IsEnabled = enabled
	r.UpdatedAt = time.Now().UTC()

	return nil
}

func (r *ReminderRule) timeOfDayParts() (int, int) {
	hour, _ := strconv.Atoi(r.TimeOfDay[:2])
	minute, _ := strconv.Atoi(r.TimeOfDay[3:])
	return hour, minute
}

func lastDayOfMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func clampDay(day, year int, month time.Month) int {
	if last := lastDayOfMonth(year, month); day > last {
		return last
	}
	return day
}

// NextFireAfter computes the next instant this reminder should fire
// strictly after now. The second return value is false when the series
// has expired (the computed candidate falls past EndDate); callers must
// treat that as "do not fire again".
//
// Pure over well-formed rules: no I/O, no reference to NextFireAt.
func (r *ReminderRule) NextFireAfter(now time.Time) (time.Time, bool) {
	hour, minute := r.timeOfDayParts()

	start, err := r.StartDate.DayStart()
	if err != nil {
		return time.Time{}, false
	}
	startT := start.Time()

	base := now.In(DisplayLocation)
	if startT.After(base) {
		base = startT
	}

	cand := time.Date(base.Year(), base.Month(), base.Day(), hour, minute, 0, 0, DisplayLocation)

	switch r.Frequency {
	case ReminderFreqDaily:
		if !cand.After(now) || cand.Before(startT) {
			cand = cand.AddDate(0, 0, 1)
		}

	case ReminderFreqWeekly:
		target := r.StartDate.Weekday()
		if r.DayOfWeek != nil {
			target = *r.DayOfWeek
		}
		delta := (target - int(cand.Weekday()) + 7) % 7
		cand = cand.AddDate(0, 0, delta)
		if !cand.After(now) || cand.Before(startT) {
			cand = cand.AddDate(0, 0, 7)
		}

	case ReminderFreqMonthly:
		target := dayOfKey(r.StartDate)
		if r.DayOfMonth != nil {
			target = *r.DayOfMonth
		}
		cand = time.Date(cand.Year(), cand.Month(), clampDay(target, cand.Year(), cand.Month()), hour, minute, 0, 0, DisplayLocation)
		if !cand.After(now) || cand.Before(startT) {
			next := time.Date(cand.Year(), cand.Month()+1, 1, 0, 0, 0, 0, DisplayLocation)
			cand = time.Date(next.Year(), next.Month(), clampDay(target, next.Year(), next.Month()), hour, minute, 0, 0, DisplayLocation)
		}
	}

	if r.EndDate != nil && DayKeyOf(cand) > *r.EndDate {
		return time.Time{}, false
	}

	return cand.UTC(), true
}

func dayOfKey(k DayKey) int {
	t, _ := time.ParseInLocation(DayKeyLayout, string(k), time.UTC)
	return t.Day()
}
