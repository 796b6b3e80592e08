// Package timecalc contains the interval arithmetic behind daily totals and
// break detection. Every function is pure: the current instant is always
// passed in, never read from the wall clock.
package timecalc

import (
	"sort"
	"time"

	"github.com/sadopc/timekeep/internal/models"
)

// DayInterval is the half-open range [StartUTC, EndUTC) covering one local
// calendar day, in epoch seconds.
type DayInterval struct {
	StartUTC int64
	EndUTC   int64
}

// BreakInterval is an idle gap between two busy periods.
type BreakInterval struct {
	StartAt int64
	EndAt   int64
}

func (b BreakInterval) Duration() int64 {
	return max(0, b.EndAt-b.StartAt)
}

// LocalDayInterval returns the bounds of the calendar day containing date,
// as observed in loc. Days around DST transitions are 23 or 25 hours long.
func LocalDayInterval(date time.Time, loc *time.Location) DayInterval {
	if loc == nil {
		loc = time.Local
	}
	y, m, d := date.In(loc).Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, loc)
	end := time.Date(y, m, d+1, 0, 0, 0, 0, loc)
	return DayInterval{StartUTC: start.Unix(), EndUTC: end.Unix()}
}

// Weekday numbers t's weekday from 1 (Sunday) to 7 (Saturday).
func Weekday(t time.Time) int {
	return int(t.Weekday()) + 1
}

// Intersect returns how many seconds of [entryStart, entryEndOrNow) fall
// inside [periodStart, periodEnd). Never negative.
func Intersect(entryStart, entryEndOrNow, periodStart, periodEnd int64) int64 {
	start := max(entryStart, periodStart)
	end := min(entryEndOrNow, periodEnd)
	return max(0, end-start)
}

// Overlaps reports whether two spans share at least one second. Spans that
// only touch at an endpoint do not overlap.
func Overlaps(start, end, otherStart, otherEnd int64) bool {
	return Intersect(start, end, otherStart, otherEnd) > 0
}

func WorkedSecondsForDay(entries []models.TimeEntry, day DayInterval, now int64) int64 {
	var total int64
	for _, e := range entries {
		total += Intersect(e.StartAt, e.EndOrNow(now), day.StartUTC, day.EndUTC)
	}
	return total
}

func TargetSecondsForDay(hours []models.WorkingHour, weekday int) int64 {
	for _, h := range hours {
		if h.Weekday == weekday {
			return int64(h.MinutesTarget) * 60
		}
	}
	return 0
}

// DeltaSeconds is positive for overtime.
func DeltaSeconds(worked, target int64) int64 {
	return worked - target
}

// MissingSeconds is zero whenever no target is set, even if nothing was worked.
func MissingSeconds(worked, target int64) int64 {
	if target <= 0 {
		return 0
	}
	return max(0, target-worked)
}

// ComputeBreaksForDay finds the gaps between busy periods of a day whose
// length lies within [minGap, maxGap] seconds. Entries are clipped to the
// day first; intervals that overlap or touch are merged into one busy period.
func ComputeBreaksForDay(entries []models.TimeEntry, day DayInterval, minGap, maxGap, now int64) []BreakInterval {
	if day.EndUTC <= day.StartUTC {
		return nil
	}

	busy := make([]BreakInterval, 0, len(entries))
	for _, e := range entries {
		start := max(e.StartAt, day.StartUTC)
		end := min(e.EndOrNow(now), day.EndUTC)
		if end <= start {
			continue
		}
		busy = append(busy, BreakInterval{StartAt: start, EndAt: end})
	}
	if len(busy) == 0 {
		return nil
	}

	sort.Slice(busy, func(i, j int) bool {
		if busy[i].StartAt == busy[j].StartAt {
			return busy[i].EndAt < busy[j].EndAt
		}
		return busy[i].StartAt < busy[j].StartAt
	})

	merged := []BreakInterval{busy[0]}
	for _, iv := range busy[1:] {
		last := &merged[len(merged)-1]
		if iv.StartAt <= last.EndAt {
			last.EndAt = max(last.EndAt, iv.EndAt)
			continue
		}
		merged = append(merged, iv)
	}

	var breaks []BreakInterval
	for i := 0; i+1 < len(merged); i++ {
		prev, next := merged[i], merged[i+1]
		gap := next.StartAt - prev.EndAt
		if gap >= minGap && gap <= maxGap {
			breaks = append(breaks, BreakInterval{StartAt: prev.EndAt, EndAt: next.StartAt})
		}
	}
	return breaks
}
