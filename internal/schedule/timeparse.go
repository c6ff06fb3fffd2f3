package schedule

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "time/tzdata"
)

// DefaultZone is the timezone all capacity times are expressed in
const DefaultZone = "America/Vancouver"

// DefaultCrossing is used when neither an arrival time nor a duration is usable
const DefaultCrossing = 2 * time.Hour

const clockLayout = "3:04 PM"

// ErrUnparseableTime is returned for malformed time-of-day strings
var ErrUnparseableTime = errors.New("unparseable time")

// LoadZone loads a timezone by name, falling back to DefaultZone when name is empty
func LoadZone(name string) (*time.Location, error) {
	if name == "" {
		name = DefaultZone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone %s: %w", name, err)
	}
	return loc, nil
}

// ParseClock parses a 12-hour time of day such as "6:15 am" or "12:05 PM"
func ParseClock(s string) (hour, minute int, err error) {
	normalized := strings.ToUpper(strings.Join(strings.Fields(s), " "))
	if normalized == "" {
		return 0, 0, fmt.Errorf("%w: empty time string", ErrUnparseableTime)
	}

	t, err := time.Parse(clockLayout, normalized)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrUnparseableTime, s)
	}

	return t.Hour(), t.Minute(), nil
}

// anchorToday places hour:minute on today's calendar date in loc
func anchorToday(hour, minute int, now time.Time, loc *time.Location) time.Time {
	local := now.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), hour, minute, 0, 0, loc)
}

// ParseDeparture anchors a time of day to today in loc. A time that is already
// in the past is the next day's sailing.
func ParseDeparture(s string, now time.Time, loc *time.Location) (time.Time, error) {
	hour, minute, err := ParseClock(s)
	if err != nil {
		return time.Time{}, err
	}

	departure := anchorToday(hour, minute, now, loc)
	if departure.Before(now) {
		departure = departure.AddDate(0, 0, 1)
	}

	return departure, nil
}

// ParseArrival derives the arrival timestamp of a sailing.
// An explicit arrival time is taken as given, with no rollover. Otherwise the
// route duration is added to the departure, or DefaultCrossing when the
// duration is missing or unparseable.
func ParseArrival(arrival *string, duration string, departure, now time.Time, loc *time.Location) time.Time {
	if arrival != nil && strings.TrimSpace(*arrival) != "" {
		if hour, minute, err := ParseClock(*arrival); err == nil {
			return anchorToday(hour, minute, now, loc)
		}
	}

	if d, ok := ParseDuration(duration); ok {
		return departure.Add(d)
	}

	return departure.Add(DefaultCrossing)
}

// ParseDuration parses coarse durations such as "1h 40m", "2h" or "45m".
// Unknown segments are ignored; a zero total is reported as unparseable.
func ParseDuration(s string) (time.Duration, bool) {
	var total time.Duration

	for _, part := range strings.Fields(s) {
		switch {
		case strings.HasSuffix(part, "h"):
			if hours, err := strconv.ParseFloat(strings.TrimSuffix(part, "h"), 64); err == nil {
				total += time.Duration(hours * float64(time.Hour))
			}
		case strings.HasSuffix(part, "m"):
			if minutes, err := strconv.ParseFloat(strings.TrimSuffix(part, "m"), 64); err == nil {
				total += time.Duration(minutes * float64(time.Minute))
			}
		}
	}

	if total <= 0 {
		return 0, false
	}
	return total, true
}
