package store

// EntryFilter is used to filter time entries in queries.
type EntryFilter struct {
	TaskID *int64
	From   *int64 // entries ending after From (open entries always match)
	To     *int64 // entries starting before To
	Limit  int
}

// ExportRow is one time entry joined with its task, project, category and
// tags, as written by the exporters.
type ExportRow struct {
	EntryID        int64
	EntryUID       string
	StartAt        int64
	EndAt          *int64
	Note           string
	Source         string
	TaskID         int64
	TaskName       string
	TaskNote       string
	ParentTaskID   *int64
	ParentTaskName string
	ProjectID      int64
	ProjectName    string
	ProjectColor   string
	CategoryID     int64
	CategoryName   string
	Tags           []string
}

// DurationSeconds is the entry length, counting a running entry up to now.
func (r ExportRow) DurationSeconds(now int64) int64 {
	end := now
	if r.EndAt != nil {
		end = *r.EndAt
	}
	return max(0, end-r.StartAt)
}
