package domain

import (
	"errors"
	"fmt"
	"regexp"
	"time"
)

var (
	ErrInvalidDayKey = errors.New("invalid day key (must be YYYY-MM-DD)")
	ErrInvalidDate   = errors.New("invalid calendar date")
)

// DayKeyLayout is the canonical wire/storage format for a calendar day.
const DayKeyLayout = "2006-01-02"

var dayKeyRegex = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// DisplayLocation is the single timezone every calendar day shown to the
// user is interpreted in. All deployments run against Asia/Tokyo; the
// fixed-offset fallback keeps containers without tzdata working.
var DisplayLocation = loadDisplayLocation()

func loadDisplayLocation() *time.Location {
	loc, err := time.LoadLocation("Asia/Tokyo")
	if err != nil {
		return time.FixedZone("JST", 9*60*60)
	}
	return loc
}

// DayKey names one calendar day in the display timezone, independent of
// time-of-day. Because the layout is zero-padded, lexicographic order of
// keys matches chronological order, so keys compare with < and >.
type DayKey string

// DisplayInstant is an absolute instant obtained by anchoring a DayKey at
// 00:00 in the display timezone. It is the encoding to use for range
// comparisons against real timestamps.
type DisplayInstant struct {
	t time.Time
}

func (i DisplayInstant) Time() time.Time { return i.t }

// DateOnlyInstant is an absolute instant at the key's literal Y/M/D at
// 00:00 UTC. It exists only to feed DATE columns, whose readers recover
// the day via DayKeyFromStorage. It is NOT interchangeable with
// DisplayInstant; the two wrap different instants for the same key.
type DateOnlyInstant struct {
	t time.Time
}

func (i DateOnlyInstant) Time() time.Time { return i.t }

// ParseDayKey validates a raw string into a DayKey. Format errors and
// calendar errors (e.g. 2025-02-30) are reported separately.
func ParseDayKey(s string) (DayKey, error) {
	if !dayKeyRegex.MatchString(s) {
		return "", ErrInvalidDayKey
	}
	if _, err := time.ParseInLocation(DayKeyLayout, s, time.UTC); err != nil {
		return "", ErrInvalidDate
	}
	return DayKey(s), nil
}

// DayKeyOf projects an absolute instant into the display timezone and
// returns the calendar day it falls on.
func DayKeyOf(instant time.Time) DayKey {
	return DayKey(instant.In(DisplayLocation).Format(DayKeyLayout))
}

// DayKeyFromYMD formats an already-known display-timezone date. No
// timezone math is involved.
func DayKeyFromYMD(year int, month time.Month, day int) DayKey {
	return DayKey(fmt.Sprintf("%04d-%02d-%02d", year, int(month), day))
}

// DayKeyFromStorage reinterprets a DATE-column instant's UTC Y/M/D as the
// display key. This is the inverse of DayKey.Storage.
func DayKeyFromStorage(i DateOnlyInstant) DayKey {
	y, m, d := i.t.UTC().Date()
	return DayKeyFromYMD(y, m, d)
}

// StoredDate wraps a raw instant read back from a DATE-only column so it
// can flow into DayKeyFromStorage. Only the storage layer should call it.
func StoredDate(t time.Time) DateOnlyInstant {
	return DateOnlyInstant{t: t}
}

// DayStart returns the instant this day begins in the display timezone.
func (k DayKey) DayStart() (DisplayInstant, error) {
	t, err := time.ParseInLocation(DayKeyLayout, string(k), DisplayLocation)
	if err != nil {
		return DisplayInstant{}, ErrInvalidDayKey
	}
	return DisplayInstant{t: t}, nil
}

// Storage returns the UTC-midnight instant destined for a DATE column.
func (k DayKey) Storage() (DateOnlyInstant, error) {
	t, err := time.ParseInLocation(DayKeyLayout, string(k), time.UTC)
	if err != nil {
		return DateOnlyInstant{}, ErrInvalidDayKey
	}
	return DateOnlyInstant{t: t}, nil
}

// Weekday returns the day of week, 0=Sunday through 6=Saturday.
func (k DayKey) Weekday() int {
	t, _ := time.ParseInLocation(DayKeyLayout, string(k), time.UTC)
	return int(t.Weekday())
}

// AddDays returns the key n calendar days later (or earlier for negative n).
func (k DayKey) AddDays(n int) DayKey {
	t, _ := time.ParseInLocation(DayKeyLayout, string(k), time.UTC)
	return DayKey(t.AddDate(0, 0, n).Format(DayKeyLayout))
}

// DaysBetween counts whole calendar days from a to b (negative when b is
// earlier). It counts days, not elapsed 24h periods, so it stays correct
// across DST transitions in zones that observe them.
func DaysBetween(a, b DayKey) int {
	ta, _ := time.ParseInLocation(DayKeyLayout, string(a), time.UTC)
	tb, _ := time.ParseInLocation(DayKeyLayout, string(b), time.UTC)
	return int(tb.Sub(ta) / (24 * time.Hour))
}

func (k DayKey) String() string { return string(k) }
