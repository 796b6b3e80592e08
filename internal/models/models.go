// Package models holds the domain types shared by the store, the timer and
// the calculation packages. All instants are Unix epoch seconds.
package models

type Category struct {
	ID        int64
	Name      string
	SortOrder int
	CreatedAt int64
	UpdatedAt int64
}

type Project struct {
	ID         int64
	CategoryID int64
	Name       string
	Color      string
	SortOrder  int
	Archived   bool
	CreatedAt  int64
	UpdatedAt  int64
}

type Task struct {
	ID           int64
	ProjectID    int64
	ParentTaskID *int64
	Name         string
	Note         string
	SortOrder    int
	Archived     bool
	CreatedAt    int64
	UpdatedAt    int64
}

// Source records how a time entry came to exist.
type Source string

const (
	SourceTimer     Source = "timer"
	SourceManual    Source = "manual"
	SourceRecovered Source = "recovered"
)

// TimeEntry is a span of work on a task. EndAt is nil while the entry is
// running; at most one entry may be running at any time.
type TimeEntry struct {
	ID        int64
	UID       string
	TaskID    int64
	StartAt   int64
	EndAt     *int64
	Note      string
	Source    Source
	CreatedAt int64
	UpdatedAt int64
}

// Running reports whether the entry has not been closed yet.
func (e TimeEntry) Running() bool {
	return e.EndAt == nil
}

// EndOrNow returns EndAt, or now for a running entry.
func (e TimeEntry) EndOrNow(now int64) int64 {
	if e.EndAt == nil {
		return now
	}
	return *e.EndAt
}

// WorkingHour is the target for one weekday, numbered 1 (Sunday) to 7 (Saturday).
type WorkingHour struct {
	Weekday       int
	MinutesTarget int
}

// BreakRules bound the idle gaps that count as breaks. Callers keep
// MinGapMinutes <= MaxGapMinutes.
type BreakRules struct {
	MinGapMinutes int
	MaxGapMinutes int
}

// DefaultBreakRules are seeded on first migration.
var DefaultBreakRules = BreakRules{MinGapMinutes: 5, MaxGapMinutes: 240}

type Tag struct {
	ID        int64
	Name      string
	CreatedAt int64
	UpdatedAt int64
}

type Setting struct {
	Key   string
	Value string
}
