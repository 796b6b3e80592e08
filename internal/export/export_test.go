package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sadopc/timekeep/internal/store"
)

var exportTime = time.Date(2026, 3, 10, 18, 30, 5, 0, time.UTC)

func sampleRows() []store.ExportRow {
	start := exportTime.Add(-2 * time.Hour).Unix()
	end := start + 3600
	parent := int64(10)

	return []store.ExportRow{
		{
			EntryID:        1,
			EntryUID:       "3b0e6c4a-0000-4000-8000-000000000001",
			StartAt:        start,
			EndAt:          &end,
			Note:           "worked on feature",
			Source:         "manual",
			TaskID:         11,
			TaskName:       "Auth",
			TaskNote:       "login flow",
			ParentTaskID:   &parent,
			ParentTaskName: "Backend",
			ProjectID:      1,
			ProjectName:    "Project Alpha",
			ProjectColor:   "#FF0000",
			CategoryID:     1,
			CategoryName:   "Work",
			Tags:           []string{"swift", "deep"},
		},
		{
			EntryID:      2,
			EntryUID:     "3b0e6c4a-0000-4000-8000-000000000002",
			StartAt:      exportTime.Add(-10 * time.Minute).Unix(),
			Source:       "timer",
			TaskID:       10,
			TaskName:     "Backend",
			ProjectID:    1,
			ProjectName:  "Project Alpha",
			CategoryID:   1,
			CategoryName: "Work",
		},
	}
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	return records
}

func column(t *testing.T, header []string, name string) int {
	t.Helper()
	for i, h := range header {
		if h == name {
			return i
		}
	}
	t.Fatalf("column %q missing from header %v", name, header)
	return -1
}

// ============================================================
// CSV
// ============================================================

func TestToCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.csv")
	if err := ToCSV(sampleRows(), exportTime, path); err != nil {
		t.Fatalf("ToCSV: %v", err)
	}

	records := readCSV(t, path)
	if len(records) != 3 {
		t.Fatalf("expected 3 rows (1 header + 2 data), got %d", len(records))
	}
	header := records[0]
	if strings.Join(header, ",") != strings.Join(csvHeader, ",") {
		t.Fatalf("unexpected header %v", header)
	}

	row := records[1]
	checks := map[string]string{
		"time_entry_id":    "1",
		"entry_uid":        "3b0e6c4a-0000-4000-8000-000000000001",
		"start_at_utc":     "2026-03-10T16:30:05Z",
		"end_at_utc":       "2026-03-10T17:30:05Z",
		"duration_seconds": "3600",
		"time_entry_note":  "worked on feature",
		"source":           "manual",
		"task_name":        "Auth",
		"parent_task_id":   "10",
		"parent_task_name": "Backend",
		"project_color":    "#FF0000",
		"category_name":    "Work",
		"tags":             "deep;swift",
		"exported_at_utc":  "2026-03-10T18:30:05Z",
	}
	for name, want := range checks {
		if got := row[column(t, header, name)]; got != want {
			t.Errorf("%s = %q, want %q", name, got, want)
		}
	}

	running := records[2]
	if got := running[column(t, header, "end_at_utc")]; got != "" {
		t.Fatalf("running entry should have empty end, got %q", got)
	}
	if got := running[column(t, header, "duration_seconds")]; got != "600" {
		t.Fatalf("running duration should count up to export time, got %q", got)
	}
	if got := running[column(t, header, "parent_task_id")]; got != "" {
		t.Fatalf("expected empty parent id, got %q", got)
	}
}

func TestToCSVEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.csv")
	if err := ToCSV(nil, exportTime, path); err != nil {
		t.Fatal(err)
	}
	if records := readCSV(t, path); len(records) != 1 {
		t.Fatalf("expected 1 row (header only), got %d", len(records))
	}
}

func TestToCSVBadPath(t *testing.T) {
	if err := ToCSV(nil, exportTime, "/nonexistent/dir/file.csv"); err == nil {
		t.Fatal("expected error for bad path")
	}
}

func TestWriteCSVSpecialCharacters(t *testing.T) {
	rows := sampleRows()[:1]
	rows[0].Note = `notes with "quotes" and, commas`
	rows[0].ProjectName = `Project "Special"`

	var buf bytes.Buffer
	if err := WriteCSV(&buf, rows, exportTime); err != nil {
		t.Fatal(err)
	}
	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("CSV should be valid even with special chars: %v", err)
	}
	if got := records[1][column(t, records[0], "project_name")]; got != `Project "Special"` {
		t.Fatalf("project name mangled: %q", got)
	}
	if got := records[1][column(t, records[0], "time_entry_note")]; got != `notes with "quotes" and, commas` {
		t.Fatalf("note mangled: %q", got)
	}
}

func TestFileName(t *testing.T) {
	if got := FileName(exportTime, "csv"); got != "timekeep_export_2026-03-10_183005.csv" {
		t.Fatalf("unexpected file name %q", got)
	}
}

// ============================================================
// JSON
// ============================================================

func TestToJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.json")
	if err := ToJSON(sampleRows(), exportTime, path); err != nil {
		t.Fatalf("ToJSON: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var result jsonExport
	if err := json.Unmarshal(data, &result); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if result.Count != 2 || len(result.Entries) != 2 {
		t.Fatalf("expected 2 entries, got count=%d len=%d", result.Count, len(result.Entries))
	}
	if _, err := time.Parse(time.RFC3339, result.ExportedAt); err != nil {
		t.Fatalf("exported_at is not valid RFC3339: %q", result.ExportedAt)
	}

	e := result.Entries[0]
	if e.ID != 1 || e.Project != "Project Alpha" || e.Task != "Auth" || e.Category != "Work" {
		t.Fatalf("unexpected entry %+v", e)
	}
	if e.DurationSec != 3600 || e.Duration != "01:00:00" {
		t.Fatalf("unexpected duration %d / %q", e.DurationSec, e.Duration)
	}
	if len(e.Tags) != 2 || e.Tags[0] != "deep" {
		t.Fatalf("expected sorted tags, got %v", e.Tags)
	}
	if e.ParentTaskID == nil || *e.ParentTaskID != 10 {
		t.Fatalf("expected parent 10, got %v", e.ParentTaskID)
	}

	running := result.Entries[1]
	if running.EndAt != "" {
		t.Fatalf("running entry end_at should be empty, got %q", running.EndAt)
	}
	if running.DurationSec != 600 {
		t.Fatalf("expected running duration 600, got %d", running.DurationSec)
	}
}

func TestToJSONEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.json")
	if err := ToJSON(nil, exportTime, path); err != nil {
		t.Fatal(err)
	}

	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), `"entries": []`) {
		t.Fatalf("expected empty entries array, got %s", data)
	}
	if !strings.Contains(string(data), "\n  ") {
		t.Fatal("JSON should be pretty-printed")
	}
}

func TestToJSONBadPath(t *testing.T) {
	if err := ToJSON(nil, exportTime, "/nonexistent/dir/file.json"); err == nil {
		t.Fatal("expected error for bad path")
	}
}

func TestSortedCopyDoesNotMutate(t *testing.T) {
	in := []string{"b", "a"}
	out := sortedCopy(in)
	if in[0] != "b" || out[0] != "a" {
		t.Fatalf("sortedCopy mutated input: in=%v out=%v", in, out)
	}
}

// ============================================================
// formatDuration (internal helper)
// ============================================================

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		secs int64
		want string
	}{
		{0, "00:00:00"},
		{1, "00:00:01"},
		{60, "00:01:00"},
		{3600, "01:00:00"},
		{3661, "01:01:01"},
		{86400, "24:00:00"},
		{90061, "25:01:01"},
	}

	for _, tt := range tests {
		got := formatDuration(tt.secs)
		if got != tt.want {
			t.Errorf("formatDuration(%d) = %q, want %q", tt.secs, got, tt.want)
		}
	}
}
