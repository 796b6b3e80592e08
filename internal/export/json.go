package export

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/sadopc/timekeep/internal/store"
)

type jsonExport struct {
	ExportedAt string      `json:"exported_at"`
	Count      int         `json:"count"`
	Entries    []jsonEntry `json:"entries"`
}

type jsonEntry struct {
	ID           int64    `json:"id"`
	UID          string   `json:"uid"`
	StartAt      string   `json:"start_at"`
	EndAt        string   `json:"end_at,omitempty"`
	DurationSec  int64    `json:"duration_seconds"`
	Duration     string   `json:"duration"`
	Note         string   `json:"note,omitempty"`
	Source       string   `json:"source"`
	TaskID       int64    `json:"task_id"`
	Task         string   `json:"task"`
	TaskNote     string   `json:"task_note,omitempty"`
	ParentTaskID *int64   `json:"parent_task_id,omitempty"`
	ParentTask   string   `json:"parent_task,omitempty"`
	ProjectID    int64    `json:"project_id"`
	Project      string   `json:"project"`
	ProjectColor string   `json:"project_color,omitempty"`
	CategoryID   int64    `json:"category_id"`
	Category     string   `json:"category"`
	Tags         []string `json:"tags"`
}

func ToJSON(rows []store.ExportRow, now time.Time, path string) error {
	export := jsonExport{
		ExportedAt: formatUTC(now.Unix()),
		Count:      len(rows),
		Entries:    make([]jsonEntry, 0, len(rows)),
	}

	for _, r := range rows {
		dur := r.DurationSeconds(now.Unix())
		export.Entries = append(export.Entries, jsonEntry{
			ID:           r.EntryID,
			UID:          r.EntryUID,
			StartAt:      formatUTC(r.StartAt),
			EndAt:        formatOptionalUTC(r.EndAt),
			DurationSec:  dur,
			Duration:     formatDuration(dur),
			Note:         r.Note,
			Source:       r.Source,
			TaskID:       r.TaskID,
			Task:         r.TaskName,
			TaskNote:     r.TaskNote,
			ParentTaskID: r.ParentTaskID,
			ParentTask:   r.ParentTaskName,
			ProjectID:    r.ProjectID,
			Project:      r.ProjectName,
			ProjectColor: r.ProjectColor,
			CategoryID:   r.CategoryID,
			Category:     r.CategoryName,
			Tags:         sortedCopy(r.Tags),
		})
	}

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write json file: %w", err)
	}
	return nil
}

func sortedCopy(tags []string) []string {
	out := append([]string{}, tags...)
	sort.Strings(out)
	return out
}
