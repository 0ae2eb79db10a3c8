package scheduler

import (
	"fmt"
	"time"
)

// SendAt computes the absolute instant whose wall clock in the given
// IANA timezone reads timeOfDay (HH:MM) on the anchor's calendar date
// plus offsetDays.
//
// A first approximation applies the offset and time fields directly to
// the anchor's UTC date, then the approximation is read back in the
// target zone and shifted by the signed minute difference between the
// observed and desired local time, normalized at the 12-hour wrap
// boundary. One correction step suffices because a zone's offset is
// constant within a day except at the DST transition instant itself,
// which is accepted as approximation error.
func SendAt(anchor time.Time, offsetDays int, timeOfDay, timezone string) (time.Time, error) {
	hour, minute, err := parseTimeOfDay(timeOfDay)
	if err != nil {
		return time.Time{}, err
	}

	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return time.Time{}, fmt.Errorf("scheduler: unknown timezone %q: %w", timezone, err)
	}

	base := anchor.UTC()
	approx := time.Date(base.Year(), base.Month(), base.Day()+offsetDays, hour, minute, 0, 0, time.UTC)

	local := approx.In(loc)
	observed := local.Hour()*60 + local.Minute()
	desired := hour*60 + minute

	diff := observed - desired
	if diff > 12*60 {
		diff -= 24 * 60
	} else if diff < -12*60 {
		diff += 24 * 60
	}

	return approx.Add(-time.Duration(diff) * time.Minute), nil
}

func parseTimeOfDay(s string) (hour, minute int, err error) {
	if len(s) != 5 || s[2] != ':' {
		return 0, 0, fmt.Errorf("scheduler: invalid time of day %q", s)
	}
	if _, err := fmt.Sscanf(s, "%02d:%02d", &hour, &minute); err != nil {
		return 0, 0, fmt.Errorf("scheduler: invalid time of day %q", s)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("scheduler: invalid time of day %q", s)
	}
	return hour, minute, nil
}
