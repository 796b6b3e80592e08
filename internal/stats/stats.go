// Package stats rolls time entries up into worked/target figures and
// per-project and per-tag totals for a period.
package stats

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sadopc/timekeep/internal/models"
	"github.com/sadopc/timekeep/internal/timecalc"
)

// NamedSeconds is one bucket of a rollup.
type NamedSeconds struct {
	Name    string
	Seconds int64
}

// Totals is the rollup of one period.
type Totals struct {
	WorkedSeconds int64
	ProjectTotals []NamedSeconds
	TagTotals     []NamedSeconds
}

// Aggregate clips every entry to [startUTC, endUTC) and sums the
// contributions overall, per project name and per tag. An entry counts fully
// toward each of its task's tags, so tag totals may exceed WorkedSeconds.
// Entries whose task has no known project are counted in WorkedSeconds only.
func Aggregate(
	entries []models.TimeEntry,
	startUTC, endUTC, now int64,
	taskToProject map[int64]int64,
	projectNames map[int64]string,
	tagsByTask map[int64][]string,
) Totals {
	var worked int64
	byProject := make(map[string]int64)
	byTag := make(map[string]int64)

	for _, e := range entries {
		sec := timecalc.Intersect(e.StartAt, e.EndOrNow(now), startUTC, endUTC)
		if sec <= 0 {
			continue
		}
		worked += sec

		if pid, ok := taskToProject[e.TaskID]; ok {
			if name, ok := projectNames[pid]; ok {
				byProject[name] += sec
			}
		}
		for _, tag := range tagsByTask[e.TaskID] {
			byTag[tag] += sec
		}
	}

	return Totals{
		WorkedSeconds: worked,
		ProjectTotals: sortedTotals(byProject),
		TagTotals:     sortedTotals(byTag),
	}
}

// sortedTotals orders by seconds descending, then case-insensitive name.
func sortedTotals(m map[string]int64) []NamedSeconds {
	out := make([]NamedSeconds, 0, len(m))
	for name, sec := range m {
		out = append(out, NamedSeconds{Name: name, Seconds: sec})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Seconds != out[j].Seconds {
			return out[i].Seconds > out[j].Seconds
		}
		a, b := strings.ToLower(out[i].Name), strings.ToLower(out[j].Name)
		if a != b {
			return a < b
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// TargetSecondsForPeriod sums the weekday targets of every local calendar
// day from startLocal up to, but not including, the day of endLocal. A
// partial last day contributes nothing.
func TargetSecondsForPeriod(startLocal, endLocal time.Time, hours []models.WorkingHour) int64 {
	loc := startLocal.Location()
	y, m, d := startLocal.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, loc)
	ey, em, ed := endLocal.In(loc).Date()
	end := time.Date(ey, em, ed, 0, 0, 0, 0, loc)

	var total int64
	for day.Before(end) {
		total += timecalc.TargetSecondsForDay(hours, timecalc.Weekday(day))
		day = time.Date(day.Year(), day.Month(), day.Day()+1, 0, 0, 0, 0, loc)
	}
	return total
}

type Period int

const (
	Today Period = iota
	ThisWeek
	ThisMonth
)

func (p Period) String() string {
	switch p {
	case Today:
		return "today"
	case ThisWeek:
		return "week"
	case ThisMonth:
		return "month"
	}
	return fmt.Sprintf("Period(%d)", int(p))
}

// ParsePeriod accepts "today", "week" and "month" (and their "this-" forms).
func ParsePeriod(s string) (Period, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "today", "day":
		return Today, nil
	case "week", "this-week", "thisweek":
		return ThisWeek, nil
	case "month", "this-month", "thismonth":
		return ThisMonth, nil
	}
	return Today, fmt.Errorf("unknown period %q (want today, week or month)", s)
}

// Range is a period in both local and UTC form.
type Range struct {
	StartLocal time.Time
	EndLocal   time.Time
	StartUTC   int64
	EndUTC     int64
}

// Days returns the local midnight of every day in the range.
func (r Range) Days() []time.Time {
	var days []time.Time
	loc := r.StartLocal.Location()
	for d := r.StartLocal; d.Before(r.EndLocal); d = time.Date(d.Year(), d.Month(), d.Day()+1, 0, 0, 0, 0, loc) {
		days = append(days, d)
	}
	return days
}

// PeriodRange returns the bounds of the period containing now, observed in
// loc. Weeks begin on weekStart.
func PeriodRange(p Period, now time.Time, loc *time.Location, weekStart time.Weekday) Range {
	if loc == nil {
		loc = time.Local
	}
	n := now.In(loc)
	y, m, d := n.Date()

	var start, end time.Time
	switch p {
	case ThisWeek:
		offset := (int(n.Weekday()) - int(weekStart) + 7) % 7
		start = time.Date(y, m, d-offset, 0, 0, 0, 0, loc)
		end = time.Date(y, m, d-offset+7, 0, 0, 0, 0, loc)
	case ThisMonth:
		start = time.Date(y, m, 1, 0, 0, 0, 0, loc)
		end = time.Date(y, m+1, 1, 0, 0, 0, 0, loc)
	default:
		start = time.Date(y, m, d, 0, 0, 0, 0, loc)
		end = time.Date(y, m, d+1, 0, 0, 0, 0, loc)
	}
	return Range{StartLocal: start, EndLocal: end, StartUTC: start.Unix(), EndUTC: end.Unix()}
}

// DaySummary is the worked/target picture for one local day.
type DaySummary struct {
	Day     timecalc.DayInterval
	Weekday int
	Worked  int64
	Target  int64
	Delta   int64
	Missing int64
	Breaks  []timecalc.BreakInterval
}

// BreakSeconds is the total length of the day's breaks.
func (s DaySummary) BreakSeconds() int64 {
	var total int64
	for _, b := range s.Breaks {
		total += b.Duration()
	}
	return total
}

func SummarizeDay(
	entries []models.TimeEntry,
	date time.Time,
	loc *time.Location,
	hours []models.WorkingHour,
	rules models.BreakRules,
	now int64,
) DaySummary {
	if loc == nil {
		loc = time.Local
	}
	day := timecalc.LocalDayInterval(date, loc)
	weekday := timecalc.Weekday(date.In(loc))
	worked := timecalc.WorkedSecondsForDay(entries, day, now)
	target := timecalc.TargetSecondsForDay(hours, weekday)
	return DaySummary{
		Day:     day,
		Weekday: weekday,
		Worked:  worked,
		Target:  target,
		Delta:   timecalc.DeltaSeconds(worked, target),
		Missing: timecalc.MissingSeconds(worked, target),
		Breaks: timecalc.ComputeBreaksForDay(entries, day,
			int64(rules.MinGapMinutes)*60, int64(rules.MaxGapMinutes)*60, now),
	}
}

// DayWorked is one bar of the daily chart.
type DayWorked struct {
	Date    time.Time
	Seconds int64
}

// DailyWorked splits the worked time in r per local day.
func DailyWorked(entries []models.TimeEntry, r Range, now int64) []DayWorked {
	loc := r.StartLocal.Location()
	var out []DayWorked
	for _, d := range r.Days() {
		day := timecalc.LocalDayInterval(d, loc)
		out = append(out, DayWorked{Date: d, Seconds: timecalc.WorkedSecondsForDay(entries, day, now)})
	}
	return out
}
