package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// formatHM renders seconds as "7h 05m".
func formatHM(secs int64) string {
	if secs < 0 {
		secs = -secs
	}
	return fmt.Sprintf("%dh %02dm", secs/3600, (secs%3600)/60)
}

// formatDelta renders a signed duration, "+0h 30m" for overtime.
func formatDelta(secs int64) string {
	sign := "+"
	if secs < 0 {
		sign = "-"
	}
	return sign + formatHM(secs)
}

func formatClock(secs int64) string {
	if secs < 0 {
		secs = 0
	}
	return fmt.Sprintf("%02d:%02d:%02d", secs/3600, (secs%3600)/60, secs%60)
}

var timeLayouts = []string{
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// parseTime accepts "YYYY-MM-DD HH:MM[:SS]", RFC 3339, or a bare "HH:MM"
// meaning that time on now's date.
func parseTime(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	loc := now.Location()
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.In(loc), nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	if t, err := time.ParseInLocation("15:04", s, loc); err == nil {
		y, m, d := now.Date()
		return time.Date(y, m, d, t.Hour(), t.Minute(), 0, 0, loc), nil
	}
	return time.Time{}, fmt.Errorf("invalid time %q (want YYYY-MM-DD HH:MM or HH:MM)", s)
}

// parseDate accepts YYYY-MM-DD, "today" and "yesterday".
func parseDate(s string, now time.Time) (time.Time, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "today":
		return now, nil
	case "yesterday":
		return now.AddDate(0, 0, -1), nil
	}
	t, err := time.ParseInLocation("2006-01-02", s, now.Location())
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (want YYYY-MM-DD)", s)
	}
	return t, nil
}

func parseID(s, what string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s id %q", what, s)
	}
	return id, nil
}

var weekdayNames = []string{"sun", "mon", "tue", "wed", "thu", "fri", "sat"}

// parseWeekday accepts 1..7 (1 = Sunday) or a day name.
func parseWeekday(s string) (int, error) {
	if n, err := strconv.Atoi(s); err == nil && n >= 1 && n <= 7 {
		return n, nil
	}
	l := strings.ToLower(s)
	for i, name := range weekdayNames {
		if len(l) >= 3 && strings.HasPrefix(l, name) {
			return i + 1, nil
		}
	}
	return 0, fmt.Errorf("invalid weekday %q (want 1-7 or mon..sun)", s)
}

// parseMinutes accepts a Go duration ("7h30m") or plain minutes ("450").
func parseMinutes(s string) (int, error) {
	if n, err := strconv.Atoi(s); err == nil && n >= 0 {
		return n, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("invalid duration %q (want minutes or e.g. 7h30m)", s)
	}
	return int(d / time.Minute), nil
}

func weekdayLabel(weekday int) string {
	if weekday < 1 || weekday > 7 {
		return "?"
	}
	return time.Weekday(weekday - 1).String()
}
