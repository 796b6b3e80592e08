package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sadopc/timekeep/internal/store"
)

var csvHeader = []string{
	"time_entry_id", "entry_uid", "start_at_utc", "end_at_utc", "duration_seconds",
	"time_entry_note", "source", "task_id", "task_name", "task_note",
	"parent_task_id", "parent_task_name", "project_id", "project_name", "project_color",
	"category_id", "category_name", "tags", "exported_at_utc",
}

// FileName returns the default export file name for the given instant.
func FileName(now time.Time, ext string) string {
	return fmt.Sprintf("timekeep_export_%s.%s", now.UTC().Format("2006-01-02_150405"), ext)
}

// ToCSV writes rows to a new file at path.
func ToCSV(rows []store.ExportRow, now time.Time, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv file: %w", err)
	}
	defer f.Close()

	if err := WriteCSV(f, rows, now); err != nil {
		return err
	}
	return f.Close()
}

// WriteCSV writes a header and one record per row. Running entries have an
// empty end and a duration counted up to now.
func WriteCSV(out io.Writer, rows []store.ExportRow, now time.Time) error {
	w := csv.NewWriter(out)

	if err := w.Write(csvHeader); err != nil {
		return err
	}

	exportedAt := formatUTC(now.Unix())
	for _, r := range rows {
		record := []string{
			strconv.FormatInt(r.EntryID, 10),
			r.EntryUID,
			formatUTC(r.StartAt),
			formatOptionalUTC(r.EndAt),
			strconv.FormatInt(r.DurationSeconds(now.Unix()), 10),
			r.Note,
			r.Source,
			strconv.FormatInt(r.TaskID, 10),
			r.TaskName,
			r.TaskNote,
			formatOptionalID(r.ParentTaskID),
			r.ParentTaskName,
			strconv.FormatInt(r.ProjectID, 10),
			r.ProjectName,
			r.ProjectColor,
			strconv.FormatInt(r.CategoryID, 10),
			r.CategoryName,
			joinTags(r.Tags),
			exportedAt,
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

func formatUTC(epoch int64) string {
	return time.Unix(epoch, 0).UTC().Format(time.RFC3339)
}

func formatOptionalUTC(epoch *int64) string {
	if epoch == nil {
		return ""
	}
	return formatUTC(*epoch)
}

func formatOptionalID(id *int64) string {
	if id == nil {
		return ""
	}
	return strconv.FormatInt(*id, 10)
}

func joinTags(tags []string) string {
	return strings.Join(sortedCopy(tags), ";")
}

func formatDuration(secs int64) string {
	h := secs / 3600
	m := (secs % 3600) / 60
	s := secs % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
