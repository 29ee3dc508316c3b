// Package timeutil formats times and recording dates for CLI output.
package timeutil

import (
	"fmt"
	"time"
)

// DateLayout is the YYYYMMDD form used in recording folder names.
const DateLayout = "20060102"

// ParseDate parses a YYYYMMDD date in the local time zone.
func ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (want YYYYMMDD): %w", s, err)
	}
	return t, nil
}

// FormatDate renders t as YYYYMMDD.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// Today returns the current local date as YYYYMMDD.
func Today() string {
	return FormatDate(time.Now())
}

// FormatElapsed renders a run duration as "1h 2m 3s", "2m 3s", "3.2s" or "45ms".
func FormatElapsed(d time.Duration) string {
	switch {
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	}

	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60
	if hours > 0 {
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	}
	return fmt.Sprintf("%dm %ds", minutes, seconds)
}
