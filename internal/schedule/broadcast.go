// Package schedule holds the weekly broadcast math used to decide whether
// cached episode data predates the current airing cycle.
package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mmcdole/anikino/internal/domain"
)

// TimezoneError reports an unknown IANA zone name
type TimezoneError struct {
	Name string
	Err  error
}

func (e *TimezoneError) Error() string {
	return fmt.Sprintf("invalid broadcast timezone %q: %v", e.Name, e.Err)
}

func (e *TimezoneError) Unwrap() error { return e.Err }

// LocalTimeError reports a broadcast time that is not HH:MM
type LocalTimeError struct {
	Value string
}

func (e *LocalTimeError) Error() string {
	return fmt.Sprintf("invalid broadcast time %q", e.Value)
}

// WeekdayError reports a broadcast day that is not a weekday name
type WeekdayError struct {
	Value string
}

func (e *WeekdayError) Error() string {
	return fmt.Sprintf("invalid broadcast weekday %q", e.Value)
}

var weekdays = map[string]time.Weekday{
	"sun": time.Sunday,
	"mon": time.Monday,
	"tue": time.Tuesday,
	"wed": time.Wednesday,
	"thu": time.Thursday,
	"fri": time.Friday,
	"sat": time.Saturday,
}

// ParseWeekday accepts "Saturday", "Saturdays", "sat" and similar forms
func ParseWeekday(s string) (time.Weekday, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	if len(v) < 3 {
		return 0, &WeekdayError{Value: s}
	}
	day, ok := weekdays[v[:3]]
	if !ok {
		return 0, &WeekdayError{Value: s}
	}
	return day, nil
}

// ParseLocalTime parses "HH:MM" or "HH:MM:SS" into hour and minute
func ParseLocalTime(s string) (hour, minute int, err error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, 0, &LocalTimeError{Value: s}
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, &LocalTimeError{Value: s}
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, &LocalTimeError{Value: s}
	}
	return hour, minute, nil
}

// MostRecentBroadcast returns the latest occurrence of weekday at
// localTime in timezone that is not after ref. This is the canonical
// broadcast instant of the current weekly cycle.
func MostRecentBroadcast(weekday time.Weekday, localTime, timezone string, ref time.Time) (time.Time, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return time.Time{}, &TimezoneError{Name: timezone, Err: err}
	}
	hour, minute, err := ParseLocalTime(localTime)
	if err != nil {
		return time.Time{}, err
	}

	local := ref.In(loc)
	back := (int(local.Weekday()) - int(weekday) + 7) % 7
	candidate := time.Date(local.Year(), local.Month(), local.Day()-back, hour, minute, 0, 0, loc)
	if candidate.After(ref) {
		candidate = time.Date(local.Year(), local.Month(), local.Day()-back-7, hour, minute, 0, 0, loc)
	}
	return candidate, nil
}

// IsStale reports whether a new broadcast cycle started after lastSyncedAt.
// An incomplete broadcast is never stale.
func IsStale(lastSyncedAt time.Time, b domain.Broadcast, ref time.Time) (bool, error) {
	if !b.Complete() {
		return false, nil
	}
	day, err := ParseWeekday(b.Weekday)
	if err != nil {
		return false, err
	}
	latest, err := MostRecentBroadcast(day, b.LocalTime, b.Timezone, ref)
	if err != nil {
		return false, err
	}
	return latest.After(lastSyncedAt), nil
}
