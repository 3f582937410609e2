// Package timex holds the pure time arithmetic shared by the scheduling and
// booking flows: HH:MM parsing, half-open range overlap, date+time-of-day
// combination and weekday recurrence expansion. Nothing here touches storage
// or the wall clock; callers inject a Clock.
package timex

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

var ErrInvalidTimeFormat = errors.New("invalid time format, expected HH:MM")

// ParseMinutes converts a 24h "HH:MM" string into minutes since midnight.
func ParseMinutes(hhmm string) (int, error) {
	if len(hhmm) != 5 || hhmm[2] != ':' {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeFormat, hhmm)
	}
	var h, m int
	if _, err := fmt.Sscanf(hhmm, "%02d:%02d", &h, &m); err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeFormat, hhmm)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeFormat, hhmm)
	}
	return h*60 + m, nil
}

// FormatMinutes renders minutes since midnight as zero padded "HH:MM".
func FormatMinutes(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// RangesOverlap reports whether the half-open ranges [s1,e1) and [s2,e2)
// intersect. Touching edges (e1 == s2) do not count as overlap.
func RangesOverlap(s1, e1, s2, e2 int) bool {
	return s1 < e2 && s2 < e1
}

// Combine anchors an "HH:MM" time of day onto the calendar day of date.
func Combine(date time.Time, hhmm string) (time.Time, error) {
	minutes, err := ParseMinutes(hhmm)
	if err != nil {
		return time.Time{}, err
	}
	return CombineMinutes(date, minutes), nil
}

// CombineMinutes anchors minutes-since-midnight onto the calendar day of date.
func CombineMinutes(date time.Time, minutes int) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, minutes/60, minutes%60, 0, 0, date.Location())
}

// DateOnly truncates t to midnight in its own location.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// FutureDatesForWeekdays expands a weekday set into concrete dates over the
// next weeksAhead weeks, counting from the day after today. Today is never
// included even when its weekday matches. The result is sorted ascending and
// free of duplicates by construction.
func FutureDatesForWeekdays(weekdays []time.Weekday, weeksAhead int, today time.Time) []time.Time {
	base := DateOnly(today)

	var dates []time.Time
	for week := 0; week < weeksAhead; week++ {
		for _, wd := range weekdays {
			daysAhead := (int(wd)-int(base.Weekday())+7)%7 + week*7
			date := base.AddDate(0, 0, daysAhead)
			if date.After(base) {
				dates = append(dates, date)
			}
		}
	}

	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates
}

// ReportingTime computes the staggered check-in time (minutes since
// midnight) for the index-th booking of a slot, distributing patients
// evenly across the slot duration and flooring to whole minutes.
func ReportingTime(startMin, endMin, maxPatients, index int) int {
	return startMin + (endMin-startMin)*index/maxPatients
}

var weekdayNames = map[string]time.Weekday{
	"SUNDAY":    time.Sunday,
	"MONDAY":    time.Monday,
	"TUESDAY":   time.Tuesday,
	"WEDNESDAY": time.Wednesday,
	"THURSDAY":  time.Thursday,
	"FRIDAY":    time.Friday,
	"SATURDAY":  time.Saturday,
}

// ParseWeekday maps an upper-case weekday name to its time.Weekday.
func ParseWeekday(name string) (time.Weekday, error) {
	wd, ok := weekdayNames[strings.ToUpper(name)]
	if !ok {
		return 0, fmt.Errorf("unknown weekday %q", name)
	}
	return wd, nil
}
