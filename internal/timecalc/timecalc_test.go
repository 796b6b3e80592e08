package timecalc

import (
	"testing"
	"time"

	"github.com/sadopc/timekeep/internal/models"
)

func at(y int, mo time.Month, d, h, mi int) int64 {
	return time.Date(y, mo, d, h, mi, 0, 0, time.UTC).Unix()
}

func closed(start, end int64) models.TimeEntry {
	return models.TimeEntry{TaskID: 1, StartAt: start, EndAt: &end, Source: models.SourceManual}
}

func open(start int64) models.TimeEntry {
	return models.TimeEntry{TaskID: 1, StartAt: start, Source: models.SourceTimer}
}

func utcDay(y int, mo time.Month, d int) DayInterval {
	return LocalDayInterval(time.Date(y, mo, d, 12, 0, 0, 0, time.UTC), time.UTC)
}

// ============================================================
// Day boundaries
// ============================================================

func TestLocalDayIntervalUTC(t *testing.T) {
	day := utcDay(2026, 1, 5)
	if day.StartUTC != at(2026, 1, 5, 0, 0) {
		t.Fatalf("start = %d, want %d", day.StartUTC, at(2026, 1, 5, 0, 0))
	}
	if day.EndUTC-day.StartUTC != 86400 {
		t.Fatalf("day length = %d, want 86400", day.EndUTC-day.StartUTC)
	}
}

func TestLocalDayIntervalUsesZoneMidnight(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*3600)
	// 23:30 UTC on Jan 5 is already Jan 6 in UTC+2.
	day := LocalDayInterval(time.Date(2026, 1, 5, 23, 30, 0, 0, time.UTC), loc)
	want := time.Date(2026, 1, 6, 0, 0, 0, 0, loc).Unix()
	if day.StartUTC != want {
		t.Fatalf("start = %d, want %d", day.StartUTC, want)
	}
	if day.StartUTC != at(2026, 1, 5, 22, 0) {
		t.Fatalf("local midnight should be 22:00 UTC, got %d", day.StartUTC)
	}
}

func TestLocalDayIntervalDSTDay(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Paris")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	// Clocks go forward on 2026-03-29 in Europe.
	day := LocalDayInterval(time.Date(2026, 3, 29, 12, 0, 0, 0, loc), loc)
	if got := day.EndUTC - day.StartUTC; got != 23*3600 {
		t.Fatalf("spring-forward day length = %d, want %d", got, 23*3600)
	}
}

func TestWeekday(t *testing.T) {
	tests := []struct {
		date time.Time
		want int
	}{
		{time.Date(2026, 1, 4, 0, 0, 0, 0, time.UTC), 1},  // Sunday
		{time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC), 2},  // Monday
		{time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC), 7}, // Saturday
	}
	for _, tt := range tests {
		if got := Weekday(tt.date); got != tt.want {
			t.Errorf("Weekday(%s) = %d, want %d", tt.date.Format("Mon"), got, tt.want)
		}
	}
}

// ============================================================
// Intersection
// ============================================================

func TestIntersect(t *testing.T) {
	tests := []struct {
		name                     string
		start, end, pStart, pEnd int64
		want                     int64
	}{
		{"inside", 12, 16, 10, 20, 4},
		{"clipped start", 5, 12, 10, 20, 2},
		{"clipped end", 16, 25, 10, 20, 4},
		{"covers period", 0, 30, 10, 20, 10},
		{"before", 0, 5, 10, 20, 0},
		{"after", 25, 30, 10, 20, 0},
		{"touching end", 5, 10, 10, 20, 0},
		{"touching start", 20, 25, 10, 20, 0},
		{"inverted entry", 15, 12, 10, 20, 0},
	}
	for _, tt := range tests {
		if got := Intersect(tt.start, tt.end, tt.pStart, tt.pEnd); got != tt.want {
			t.Errorf("%s: Intersect(%d,%d,%d,%d) = %d, want %d",
				tt.name, tt.start, tt.end, tt.pStart, tt.pEnd, got, tt.want)
		}
	}
}

func TestIntersectNeverNegative(t *testing.T) {
	for s := int64(0); s < 12; s++ {
		for e := int64(0); e < 12; e++ {
			if got := Intersect(s, e, 3, 8); got < 0 {
				t.Fatalf("Intersect(%d,%d,3,8) = %d", s, e, got)
			}
			if e <= 3 || s >= 8 {
				if got := Intersect(s, e, 3, 8); got != 0 {
					t.Fatalf("disjoint Intersect(%d,%d,3,8) = %d, want 0", s, e, got)
				}
			}
		}
	}
}

func TestOverlapsStrict(t *testing.T) {
	if !Overlaps(10, 20, 10, 20) {
		t.Fatal("identical spans should overlap")
	}
	if !Overlaps(10, 20, 15, 25) {
		t.Fatal("partial overlap should overlap")
	}
	if Overlaps(10, 20, 20, 30) {
		t.Fatal("touching spans must not overlap")
	}
	if Overlaps(20, 30, 10, 20) {
		t.Fatal("touching spans must not overlap")
	}
}

// ============================================================
// Worked / target / delta / missing
// ============================================================

func TestWorkedSecondsInsideDay(t *testing.T) {
	e := closed(at(2026, 1, 5, 9, 0), at(2026, 1, 5, 11, 30))
	got := WorkedSecondsForDay([]models.TimeEntry{e}, utcDay(2026, 1, 5), 0)
	if got != 9000 {
		t.Fatalf("worked = %d, want 9000", got)
	}
}

func TestWorkedSecondsSplitAcrossMidnight(t *testing.T) {
	e := closed(at(2026, 1, 5, 23, 0), at(2026, 1, 6, 1, 0))
	entries := []models.TimeEntry{e}

	one := WorkedSecondsForDay(entries, utcDay(2026, 1, 5), 0)
	two := WorkedSecondsForDay(entries, utcDay(2026, 1, 6), 0)
	if one != 3600 || two != 3600 {
		t.Fatalf("split = %d/%d, want 3600/3600", one, two)
	}
	if one+two != *e.EndAt-e.StartAt {
		t.Fatalf("sum %d != duration %d", one+two, *e.EndAt-e.StartAt)
	}
}

func TestWorkedSecondsRunningEntryUsesNow(t *testing.T) {
	now := at(2026, 1, 5, 10, 15)
	got := WorkedSecondsForDay([]models.TimeEntry{open(at(2026, 1, 5, 9, 0))}, utcDay(2026, 1, 5), now)
	if got != 4500 {
		t.Fatalf("worked = %d, want 4500", got)
	}
}

func TestTargetDeltaMissing(t *testing.T) {
	entries := []models.TimeEntry{
		closed(at(2026, 1, 5, 9, 0), at(2026, 1, 5, 13, 0)),
		closed(at(2026, 1, 5, 14, 0), at(2026, 1, 5, 18, 0)),
	}
	worked := WorkedSecondsForDay(entries, utcDay(2026, 1, 5), 0)
	target := TargetSecondsForDay([]models.WorkingHour{{Weekday: 1, MinutesTarget: 450}}, 1)

	if worked != 8*3600 {
		t.Fatalf("worked = %d, want %d", worked, 8*3600)
	}
	if target != 27000 {
		t.Fatalf("target = %d, want 27000", target)
	}
	if d := DeltaSeconds(worked, target); d != 1800 {
		t.Fatalf("delta = %d, want 1800", d)
	}
	if m := MissingSeconds(worked, target); m != 0 {
		t.Fatalf("missing = %d, want 0", m)
	}
	if m := MissingSeconds(0, 0); m != 0 {
		t.Fatalf("missing with no target = %d, want 0", m)
	}
}

func TestTargetAbsentWeekday(t *testing.T) {
	if got := TargetSecondsForDay([]models.WorkingHour{{Weekday: 2, MinutesTarget: 60}}, 3); got != 0 {
		t.Fatalf("target = %d, want 0", got)
	}
	if got := TargetSecondsForDay(nil, 1); got != 0 {
		t.Fatalf("target = %d, want 0", got)
	}
}

func TestMissingWhenShort(t *testing.T) {
	if got := MissingSeconds(3600, 7200); got != 3600 {
		t.Fatalf("missing = %d, want 3600", got)
	}
	if got := DeltaSeconds(3600, 7200); got != -3600 {
		t.Fatalf("delta = %d, want -3600", got)
	}
}

// ============================================================
// Breaks
// ============================================================

const (
	fiveMin = 5 * 60
	fourH   = 240 * 60
)

func TestBreakDetectedWithinThreshold(t *testing.T) {
	entries := []models.TimeEntry{
		closed(at(2026, 1, 5, 9, 0), at(2026, 1, 5, 12, 0)),
		closed(at(2026, 1, 5, 12, 30), at(2026, 1, 5, 17, 0)),
	}
	breaks := ComputeBreaksForDay(entries, utcDay(2026, 1, 5), fiveMin, fourH, 0)
	if len(breaks) != 1 {
		t.Fatalf("expected 1 break, got %d", len(breaks))
	}
	if breaks[0].StartAt != at(2026, 1, 5, 12, 0) || breaks[0].EndAt != at(2026, 1, 5, 12, 30) {
		t.Fatalf("unexpected break %+v", breaks[0])
	}
	if breaks[0].Duration() != 1800 {
		t.Fatalf("duration = %d, want 1800", breaks[0].Duration())
	}
}

func TestBreakIgnoredWhenGapTooShort(t *testing.T) {
	entries := []models.TimeEntry{
		closed(at(2026, 1, 5, 9, 0), at(2026, 1, 5, 12, 0)),
		closed(at(2026, 1, 5, 12, 3), at(2026, 1, 5, 17, 0)),
	}
	if breaks := ComputeBreaksForDay(entries, utcDay(2026, 1, 5), fiveMin, fourH, 0); len(breaks) != 0 {
		t.Fatalf("expected no breaks, got %+v", breaks)
	}
}

func TestBreakIgnoredWhenGapTooLong(t *testing.T) {
	entries := []models.TimeEntry{
		closed(at(2026, 1, 5, 8, 0), at(2026, 1, 5, 9, 0)),
		closed(at(2026, 1, 5, 14, 30), at(2026, 1, 5, 17, 0)),
	}
	if breaks := ComputeBreaksForDay(entries, utcDay(2026, 1, 5), fiveMin, fourH, 0); len(breaks) != 0 {
		t.Fatalf("expected no breaks, got %+v", breaks)
	}
}

func TestBreakBoundsAreInclusive(t *testing.T) {
	entries := []models.TimeEntry{
		closed(at(2026, 1, 5, 9, 0), at(2026, 1, 5, 10, 0)),
		closed(at(2026, 1, 5, 10, 5), at(2026, 1, 5, 11, 0)), // gap == minGap
		closed(at(2026, 1, 5, 15, 0), at(2026, 1, 5, 16, 0)), // gap == maxGap
	}
	breaks := ComputeBreaksForDay(entries, utcDay(2026, 1, 5), fiveMin, fourH, 0)
	if len(breaks) != 2 {
		t.Fatalf("expected 2 breaks at the exact bounds, got %d", len(breaks))
	}
}

func TestBreakTouchingIntervalsMerge(t *testing.T) {
	// 9-10 and 10-11 touch and form one busy block; with minGap 0 a
	// non-merging implementation would report a zero-length break at 10:00.
	entries := []models.TimeEntry{
		closed(at(2026, 1, 5, 9, 0), at(2026, 1, 5, 10, 0)),
		closed(at(2026, 1, 5, 10, 0), at(2026, 1, 5, 11, 0)),
		closed(at(2026, 1, 5, 11, 30), at(2026, 1, 5, 12, 0)),
	}
	breaks := ComputeBreaksForDay(entries, utcDay(2026, 1, 5), 0, fourH, 0)
	if len(breaks) != 1 {
		t.Fatalf("expected 1 break, got %+v", breaks)
	}
	if breaks[0].StartAt != at(2026, 1, 5, 11, 0) {
		t.Fatalf("break should start at 11:00, got %+v", breaks[0])
	}
}

func TestBreakOverlappingAndUnsortedEntries(t *testing.T) {
	entries := []models.TimeEntry{
		closed(at(2026, 1, 5, 13, 0), at(2026, 1, 5, 14, 0)),
		closed(at(2026, 1, 5, 10, 0), at(2026, 1, 5, 12, 0)),
		closed(at(2026, 1, 5, 9, 0), at(2026, 1, 5, 11, 0)),
	}
	breaks := ComputeBreaksForDay(entries, utcDay(2026, 1, 5), fiveMin, fourH, 0)
	if len(breaks) != 1 {
		t.Fatalf("expected 1 break, got %+v", breaks)
	}
	if breaks[0].StartAt != at(2026, 1, 5, 12, 0) || breaks[0].EndAt != at(2026, 1, 5, 13, 0) {
		t.Fatalf("unexpected break %+v", breaks[0])
	}
}

func TestBreakClipsToDayAndRunningEntry(t *testing.T) {
	now := at(2026, 1, 5, 15, 0)
	entries := []models.TimeEntry{
		closed(at(2026, 1, 4, 22, 0), at(2026, 1, 5, 1, 0)),
		open(at(2026, 1, 5, 2, 0)),
	}
	breaks := ComputeBreaksForDay(entries, utcDay(2026, 1, 5), fiveMin, fourH, now)
	if len(breaks) != 1 {
		t.Fatalf("expected 1 break, got %+v", breaks)
	}
	if breaks[0].StartAt != at(2026, 1, 5, 1, 0) || breaks[0].EndAt != at(2026, 1, 5, 2, 0) {
		t.Fatalf("unexpected break %+v", breaks[0])
	}
}

func TestBreakEmptyInputs(t *testing.T) {
	if breaks := ComputeBreaksForDay(nil, utcDay(2026, 1, 5), 0, fourH, 0); len(breaks) != 0 {
		t.Fatal("no entries should give no breaks")
	}
	degenerate := DayInterval{StartUTC: 100, EndUTC: 100}
	entries := []models.TimeEntry{closed(0, 50), closed(60, 200)}
	if breaks := ComputeBreaksForDay(entries, degenerate, 0, fourH, 0); len(breaks) != 0 {
		t.Fatal("degenerate day should give no breaks")
	}
	// Entries entirely outside the day are discarded.
	outside := []models.TimeEntry{closed(at(2026, 1, 4, 9, 0), at(2026, 1, 4, 10, 0))}
	if breaks := ComputeBreaksForDay(outside, utcDay(2026, 1, 5), 0, fourH, 0); len(breaks) != 0 {
		t.Fatal("entries outside the day should give no breaks")
	}
}
