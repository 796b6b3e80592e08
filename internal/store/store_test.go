package store

import (
	"errors"
	"testing"
	"time"

	"github.com/sadopc/timekeep/internal/clock"
	"github.com/sadopc/timekeep/internal/events"
	"github.com/sadopc/timekeep/internal/models"
)

const base = int64(1_700_000_000)

// testClock lets a test move "now" between store calls.
type testClock struct{ now int64 }

func (c *testClock) Now() int64 { return c.now }

func newTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	s, err := NewMemory(opts...)
	if err != nil {
		t.Fatalf("new memory store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// newClockedStore returns a store whose clock the test controls.
func newClockedStore(t *testing.T) (*Store, *testClock) {
	t.Helper()
	c := &testClock{now: base}
	return newTestStore(t, WithClock(c)), c
}

// seedTask creates a category, project and task and returns the task id.
func seedTask(t *testing.T, s *Store) int64 {
	t.Helper()
	c, err := s.CreateCategory("Work", 0)
	if err != nil {
		t.Fatalf("create category: %v", err)
	}
	p, err := s.CreateProject(c.ID, "Alpha", "#ff0000", 0)
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	task, err := s.CreateTask(p.ID, nil, "Build", "", 0)
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	return task.ID
}

func countEntries(t *testing.T, s *Store) int {
	t.Helper()
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM time_entry`).Scan(&n); err != nil {
		t.Fatal(err)
	}
	return n
}

func mustManual(t *testing.T, s *Store, taskID, start, end int64) *models.TimeEntry {
	t.Helper()
	e, err := s.CreateManualEntry(taskID, start, end, "")
	if err != nil {
		t.Fatalf("create manual entry [%d,%d): %v", start, end, err)
	}
	return e
}

// ============================================================
// Store initialization
// ============================================================

func TestNewMemory(t *testing.T) {
	s := newTestStore(t)

	var version int
	s.db.QueryRow("PRAGMA user_version").Scan(&version)
	if version != currentVersion {
		t.Fatalf("expected user_version %d, got %d", currentVersion, version)
	}
}

func TestNewWithPath(t *testing.T) {
	path := t.TempDir() + "/sub/timekeep.db"
	s, err := New(path)
	if err != nil {
		t.Fatal(err)
	}
	task := seedTask(t, s)
	if _, err := s.CreateTimerEntry(task, base); err != nil {
		t.Fatal(err)
	}
	s.Close()

	// Reopen: data survives and migration is not repeated.
	s2, err := New(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s2.Close()
	running, err := s2.GetRunningEntry()
	if err != nil {
		t.Fatal(err)
	}
	if running == nil || running.TaskID != task {
		t.Fatalf("expected running entry to survive reopen, got %+v", running)
	}
}

func TestDefaultDBPath(t *testing.T) {
	path, err := DefaultDBPath()
	if err != nil {
		t.Fatal(err)
	}
	if path == "" {
		t.Fatal("empty path")
	}
}

func TestPragmasConfigured(t *testing.T) {
	s := newTestStore(t)
	var fk int
	s.db.QueryRow("PRAGMA foreign_keys").Scan(&fk)
	if fk != 1 {
		t.Fatalf("expected foreign_keys=1, got %d", fk)
	}
}

func TestMigrationIdempotent(t *testing.T) {
	s := newTestStore(t)
	if err := s.migrate(); err != nil {
		t.Fatalf("second migration failed: %v", err)
	}
	if err := s.migrateV1(); err != nil {
		t.Fatalf("re-running v1 DDL failed: %v", err)
	}
	hours, _ := s.WorkingHours()
	if len(hours) != 7 {
		t.Fatalf("seeds duplicated: %d working hour rows", len(hours))
	}
}

// ============================================================
// Catalog
// ============================================================

func TestCategoryCRUD(t *testing.T) {
	s := newTestStore(t)
	b, _ := s.CreateCategory("Private", 2)
	a, _ := s.CreateCategory("Work", 1)

	list, err := s.ListCategories()
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].ID != a.ID || list[1].ID != b.ID {
		t.Fatalf("expected categories ordered by sort order, got %+v", list)
	}

	if err := s.UpdateCategory(a.ID, "Job", 1); err != nil {
		t.Fatal(err)
	}
	got, _ := s.GetCategory(a.ID)
	if got.Name != "Job" {
		t.Fatalf("expected renamed category, got %q", got.Name)
	}

	if err := s.DeleteCategory(b.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := s.GetCategory(b.ID); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := s.UpdateCategory(999, "x", 0); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected ErrNotFound updating missing category, got %v", err)
	}
}

func TestProjectCRUDAndArchive(t *testing.T) {
	s := newTestStore(t)
	c, _ := s.CreateCategory("Work", 0)
	p, err := s.CreateProject(c.ID, "Alpha", "", 0)
	if err != nil {
		t.Fatal(err)
	}
	if p.Color != "" || p.Archived {
		t.Fatalf("unexpected new project %+v", p)
	}
	s.CreateProject(c.ID, "Beta", "#00ff00", 1)

	p.Color = "#123456"
	p.Name = "Alpha2"
	if err := s.UpdateProject(*p); err != nil {
		t.Fatal(err)
	}
	if err := s.ArchiveProject(p.ID, true); err != nil {
		t.Fatal(err)
	}

	active, _ := s.ListProjects(c.ID, false)
	if len(active) != 1 || active[0].Name != "Beta" {
		t.Fatalf("expected only Beta active, got %+v", active)
	}
	all, _ := s.ListProjects(0, true)
	if len(all) != 2 {
		t.Fatalf("expected 2 projects with archived, got %d", len(all))
	}
	got, _ := s.GetProject(p.ID)
	if got.Name != "Alpha2" || got.Color != "#123456" || !got.Archived {
		t.Fatalf("unexpected project after update %+v", got)
	}
}

func TestCreateProjectInvalidCategory(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.CreateProject(999, "Orphan", "", 0); err == nil {
		t.Fatal("expected foreign key error")
	}
}

func TestTasksAndSubtasks(t *testing.T) {
	s := newTestStore(t)
	c, _ := s.CreateCategory("Work", 0)
	p, _ := s.CreateProject(c.ID, "Alpha", "", 0)
	other, _ := s.CreateProject(c.ID, "Beta", "", 0)

	parent, _ := s.CreateTask(p.ID, nil, "Backend", "api work", 0)
	pid := parent.ID
	child, err := s.CreateTask(p.ID, &pid, "Auth", "", 0)
	if err != nil {
		t.Fatal(err)
	}
	if child.ParentTaskID == nil || *child.ParentTaskID != parent.ID {
		t.Fatalf("expected parent %d, got %v", parent.ID, child.ParentTaskID)
	}

	if _, err := s.CreateTask(other.ID, &pid, "Cross", "", 0); err == nil {
		t.Fatal("expected error for parent in another project")
	}

	path, err := s.TaskPath(child.ID)
	if err != nil {
		t.Fatal(err)
	}
	if path != "Alpha > Backend > Auth" {
		t.Fatalf("unexpected task path %q", path)
	}

	// Deleting the parent promotes the child.
	if err := s.DeleteTask(parent.ID); err != nil {
		t.Fatal(err)
	}
	got, _ := s.GetTask(child.ID)
	if got.ParentTaskID != nil {
		t.Fatalf("expected parent cleared, got %v", *got.ParentTaskID)
	}
}

func TestUpdateTaskRejectsSelfParent(t *testing.T) {
	s := newTestStore(t)
	id := seedTask(t, s)
	task, _ := s.GetTask(id)
	task.ParentTaskID = &id
	if err := s.UpdateTask(*task); err == nil {
		t.Fatal("expected error")
	}
}

func TestArchiveTaskHidesFromList(t *testing.T) {
	s := newTestStore(t)
	id := seedTask(t, s)
	task, _ := s.GetTask(id)
	if err := s.ArchiveTask(id, true); err != nil {
		t.Fatal(err)
	}
	if tasks, _ := s.ListTasks(task.ProjectID, false); len(tasks) != 0 {
		t.Fatalf("expected archived task hidden, got %d", len(tasks))
	}
	if tasks, _ := s.ListTasks(0, true); len(tasks) != 1 {
		t.Fatalf("expected archived task listed, got %d", len(tasks))
	}
	if err := s.ArchiveTask(id, false); err != nil {
		t.Fatal(err)
	}
	if tasks, _ := s.ListTasks(task.ProjectID, false); len(tasks) != 1 {
		t.Fatal("expected task restored")
	}
}

func TestProjectIndex(t *testing.T) {
	s := newTestStore(t)
	id := seedTask(t, s)
	task, _ := s.GetTask(id)

	taskToProject, names, err := s.ProjectIndex()
	if err != nil {
		t.Fatal(err)
	}
	if taskToProject[id] != task.ProjectID {
		t.Fatalf("expected task %d in project %d", id, task.ProjectID)
	}
	if names[task.ProjectID] != "Alpha" {
		t.Fatalf("expected project name Alpha, got %q", names[task.ProjectID])
	}
}

// ============================================================
// Timer entries
// ============================================================

func TestTimerEntryLifecycle(t *testing.T) {
	s, c := newClockedStore(t)
	task := seedTask(t, s)

	e, err := s.CreateTimerEntry(task, base)
	if err != nil {
		t.Fatal(err)
	}
	if !e.Running() || e.Source != models.SourceTimer || e.UID == "" {
		t.Fatalf("unexpected new entry %+v", e)
	}

	running, _ := s.GetRunningEntry()
	if running == nil || running.ID != e.ID {
		t.Fatal("expected the new entry to be running")
	}

	c.now = base + 100
	stopped, err := s.StopRunningEntry(c.now)
	if err != nil {
		t.Fatal(err)
	}
	if stopped.EndAt == nil || *stopped.EndAt != base+100 {
		t.Fatalf("expected end %d, got %v", base+100, stopped.EndAt)
	}
	if stopped.UID != e.UID {
		t.Fatal("uid must be stable across updates")
	}

	running, err = s.GetRunningEntry()
	if err != nil || running != nil {
		t.Fatalf("expected no running entry, got %+v, %v", running, err)
	}
}

func TestSecondRunningEntryRejected(t *testing.T) {
	s := newTestStore(t)
	task := seedTask(t, s)

	if _, err := s.CreateTimerEntry(task, base); err != nil {
		t.Fatal(err)
	}
	_, err := s.CreateTimerEntry(task, base+10)
	if !errors.Is(err, models.ErrRunningTimerConflict) {
		t.Fatalf("expected ErrRunningTimerConflict, got %v", err)
	}
	if countEntries(t, s) != 1 {
		t.Fatal("rejected insert must not write")
	}
}

func TestStopWhenIdleReturnsNil(t *testing.T) {
	s := newTestStore(t)
	e, err := s.StopRunningEntry(base)
	if err != nil || e != nil {
		t.Fatalf("expected nil, nil; got %+v, %v", e, err)
	}
	e, err = s.RecoverRunningEntry(base)
	if err != nil || e != nil {
		t.Fatalf("expected nil, nil; got %+v, %v", e, err)
	}
}

func TestStopClampsEndBeforeStart(t *testing.T) {
	s := newTestStore(t)
	task := seedTask(t, s)
	s.CreateTimerEntry(task, base)

	e, err := s.StopRunningEntry(base - 50)
	if err != nil {
		t.Fatal(err)
	}
	if *e.EndAt != base {
		t.Fatalf("expected end clamped to start %d, got %d", base, *e.EndAt)
	}
}

func TestRecoverRunningEntry(t *testing.T) {
	s := newTestStore(t)
	task := seedTask(t, s)
	s.CreateTimerEntry(task, base)

	e, err := s.RecoverRunningEntry(base + 3600)
	if err != nil {
		t.Fatal(err)
	}
	if e.Source != models.SourceRecovered || *e.EndAt != base+3600 {
		t.Fatalf("unexpected recovered entry %+v", e)
	}
}

func TestTimerEntryInvalidTask(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.CreateTimerEntry(999, base); err == nil {
		t.Fatal("expected foreign key error")
	}
}

// ============================================================
// Listing
// ============================================================

func TestListEntriesInRange(t *testing.T) {
	s, c := newClockedStore(t)
	task := seedTask(t, s)

	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC).Unix()
	c.now = day + 86400 + 7200

	mustManual(t, s, task, day-3600, day+3600)      // crosses midnight
	mustManual(t, s, task, day+7200, day+9000)      // inside
	mustManual(t, s, task, day-7200, day-3600)      // previous day only
	mustManual(t, s, task, day+86400, day+86400+60) // next day, touches end
	s.CreateTimerEntry(task, day+86400+3600)        // running, next day

	got, err := s.ListEntriesInRange(day, day+86400)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 entries in day, got %d", len(got))
	}
	if got[0].StartAt != day-3600 || got[1].StartAt != day+7200 {
		t.Fatalf("expected entries ordered by start, got %+v", got)
	}

	next, _ := s.ListDayEntries(time.Unix(day+86400+10, 0), time.UTC)
	if len(next) != 2 {
		t.Fatalf("expected 2 entries next day (one running), got %d", len(next))
	}
	if !next[1].Running() {
		t.Fatal("expected running entry last")
	}
}

func TestListEntriesFilterAndLimit(t *testing.T) {
	s, c := newClockedStore(t)
	task := seedTask(t, s)
	c.now = base + 10_000
	for i := int64(0); i < 5; i++ {
		mustManual(t, s, task, base+i*100, base+i*100+50)
	}

	got, err := s.ListEntries(EntryFilter{Limit: 3})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 || got[0].StartAt != base+400 {
		t.Fatalf("expected newest 3 first, got %+v", got)
	}

	from, to := base+140, base+300
	got, _ = s.ListEntries(EntryFilter{TaskID: &task, From: &from, To: &to})
	if len(got) != 2 {
		t.Fatalf("expected 2 entries in window, got %d", len(got))
	}
}

// ============================================================
// Overlap validator
// ============================================================

func TestCreateManualEntryOverlap(t *testing.T) {
	s, c := newClockedStore(t)
	task := seedTask(t, s)
	c.now = base + 10_000
	mustManual(t, s, task, base+100, base+200)

	tests := []struct {
		name       string
		start, end int64
		wantErr    error
	}{
		{"overlaps tail", base + 150, base + 250, models.ErrOverlapConflict},
		{"contains", base + 50, base + 300, models.ErrOverlapConflict},
		{"inside", base + 120, base + 180, models.ErrOverlapConflict},
		{"touches end", base + 200, base + 300, nil},
		{"touches start", base + 50, base + 100, nil},
		{"empty range", base + 500, base + 500, models.ErrInvalidRange},
		{"reversed range", base + 600, base + 500, models.ErrInvalidRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := countEntries(t, s)
			_, err := s.CreateManualEntry(task, tt.start, tt.end, "")
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			if tt.wantErr != nil && countEntries(t, s) != before {
				t.Fatal("failed create must not write")
			}
		})
	}
}

func TestOverlapWithRunningEntryUsesNow(t *testing.T) {
	s, c := newClockedStore(t)
	task := seedTask(t, s)
	s.CreateTimerEntry(task, base)
	c.now = base + 500

	if _, err := s.CreateManualEntry(task, base+100, base+200, ""); !errors.Is(err, models.ErrOverlapConflict) {
		t.Fatalf("expected overlap with running entry, got %v", err)
	}
	// Starts exactly at now: touches the running entry's implied end.
	if _, err := s.CreateManualEntry(task, base+500, base+600, ""); err != nil {
		t.Fatalf("expected no overlap at now, got %v", err)
	}
	// Before the running entry started.
	if _, err := s.CreateManualEntry(task, base-100, base, ""); err != nil {
		t.Fatalf("expected no overlap before start, got %v", err)
	}
}

func TestExistsOverlapExcludesSelf(t *testing.T) {
	s, c := newClockedStore(t)
	task := seedTask(t, s)
	c.now = base + 10_000
	e := mustManual(t, s, task, base+100, base+200)

	ok, err := s.ExistsOverlap(base+100, base+200, nil)
	if err != nil || !ok {
		t.Fatalf("expected overlap without exclusion, got %v, %v", ok, err)
	}
	ok, err = s.ExistsOverlap(base+100, base+200, &e.ID)
	if err != nil || ok {
		t.Fatalf("expected no overlap when excluding self, got %v, %v", ok, err)
	}
}

func TestUpdateEntry(t *testing.T) {
	s, c := newClockedStore(t)
	task := seedTask(t, s)
	c.now = base + 10_000
	a := mustManual(t, s, task, base+100, base+200)
	b := mustManual(t, s, task, base+300, base+400)

	// Moving within its own old span is fine.
	moved := *a
	end := int64(base + 250)
	moved.StartAt, moved.EndAt, moved.Note = base+150, &end, "moved"
	got, err := s.UpdateEntry(moved)
	if err != nil {
		t.Fatal(err)
	}
	if got.StartAt != base+150 || *got.EndAt != base+250 || got.Note != "moved" {
		t.Fatalf("unexpected updated entry %+v", got)
	}

	// Extending into b conflicts and leaves a unchanged.
	clash := *got
	clashEnd := int64(base + 350)
	clash.EndAt = &clashEnd
	if _, err := s.UpdateEntry(clash); !errors.Is(err, models.ErrOverlapConflict) {
		t.Fatalf("expected ErrOverlapConflict, got %v", err)
	}
	again, _ := s.GetEntry(a.ID)
	if *again.EndAt != base+250 {
		t.Fatal("failed update must not write")
	}

	bad := *b
	badEnd := b.StartAt
	bad.EndAt = &badEnd
	if _, err := s.UpdateEntry(bad); !errors.Is(err, models.ErrInvalidRange) {
		t.Fatalf("expected ErrInvalidRange, got %v", err)
	}

	missing := *b
	missing.ID = 999
	if _, err := s.UpdateEntry(missing); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateEntryReopenWhileRunning(t *testing.T) {
	s, c := newClockedStore(t)
	task := seedTask(t, s)
	c.now = base + 1000
	closedEntry := mustManual(t, s, task, base+100, base+200)
	s.CreateTimerEntry(task, c.now)

	reopen := *closedEntry
	reopen.EndAt = nil
	if _, err := s.UpdateEntry(reopen); !errors.Is(err, models.ErrRunningTimerConflict) {
		t.Fatalf("expected ErrRunningTimerConflict, got %v", err)
	}
}

func TestUpdateEntryNoteAndDelete(t *testing.T) {
	s, c := newClockedStore(t)
	task := seedTask(t, s)
	c.now = base + 1000
	e := mustManual(t, s, task, base, base+60)

	if err := s.UpdateEntryNote(e.ID, "standup"); err != nil {
		t.Fatal(err)
	}
	got, _ := s.GetEntry(e.ID)
	if got.Note != "standup" {
		t.Fatalf("expected note, got %q", got.Note)
	}
	if err := s.DeleteEntry(e.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := s.GetEntry(e.ID); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := s.DeleteEntry(e.ID); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

// ============================================================
// Notifications
// ============================================================

func TestStorePublishesEntryEvents(t *testing.T) {
	bus := events.NewBus()
	ch := bus.Subscribe()
	s := newTestStore(t, WithClock(clock.Fixed(base+1000)), WithNotifier(bus))
	task := seedTask(t, s)

	s.CreateTimerEntry(task, base)
	s.StopRunningEntry(base + 10)
	m, _ := s.CreateManualEntry(task, base+20, base+30, "")
	s.UpdateEntryNote(m.ID, "x")
	s.DeleteEntry(m.ID)
	s.CreateManualEntry(task, base, base+20, "") // overlap: no event

	want := []events.Op{events.EntryStarted, events.EntryStopped, events.EntryCreated, events.EntryUpdated, events.EntryDeleted}
	for i, op := range want {
		select {
		case e := <-ch:
			if e.Op != op {
				t.Fatalf("event %d: expected %s, got %s", i, op, e.Op)
			}
		default:
			t.Fatalf("event %d: expected %s, got nothing", i, op)
		}
	}
	select {
	case e := <-ch:
		t.Fatalf("unexpected extra event %+v", e)
	default:
	}
}

// ============================================================
// Tags
// ============================================================

func TestNormalizeTag(t *testing.T) {
	tests := []struct {
		in, want string
		ok       bool
	}{
		{"  Deep ", "deep", true},
		{"swift_ui", "swift_ui", true},
		{"a-b-9", "a-b-9", true},
		{"", "", false},
		{"   ", "", false},
		{"two words", "", false},
		{"emoji🙂", "", false},
	}
	for _, tt := range tests {
		got, err := NormalizeTag(tt.in)
		if tt.ok && (err != nil || got != tt.want) {
			t.Errorf("NormalizeTag(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
		}
		if !tt.ok && !errors.Is(err, models.ErrTagFormatInvalid) {
			t.Errorf("NormalizeTag(%q): expected ErrTagFormatInvalid, got %v", tt.in, err)
		}
	}
}

func TestSetTaskTags(t *testing.T) {
	s := newTestStore(t)
	task := seedTask(t, s)

	if err := s.SetTaskTags(task, []string{"Swift", "deep", "swift"}); err != nil {
		t.Fatal(err)
	}
	tags, _ := s.TaskTags(task)
	if len(tags) != 2 || tags[0].Name != "deep" || tags[1].Name != "swift" {
		t.Fatalf("unexpected tags %+v", tags)
	}

	// Invalid input leaves the previous tags intact.
	if err := s.SetTaskTags(task, []string{"ok", "not ok"}); !errors.Is(err, models.ErrTagFormatInvalid) {
		t.Fatalf("expected ErrTagFormatInvalid, got %v", err)
	}
	tags, _ = s.TaskTags(task)
	if len(tags) != 2 {
		t.Fatalf("expected tags unchanged, got %+v", tags)
	}
	if all, _ := s.SearchTags(""); len(all) != 2 {
		t.Fatalf("invalid call must not create tags, got %+v", all)
	}

	if err := s.SetTaskTags(task, nil); err != nil {
		t.Fatal(err)
	}
	if tags, _ = s.TaskTags(task); len(tags) != 0 {
		t.Fatalf("expected tags cleared, got %+v", tags)
	}
	// Tags themselves survive.
	if all, _ := s.SearchTags(""); len(all) != 2 {
		t.Fatalf("expected tag rows kept, got %d", len(all))
	}
}

func TestEnsureTagsIdempotent(t *testing.T) {
	s := newTestStore(t)
	first, err := s.EnsureTags([]string{"go", "db"})
	if err != nil {
		t.Fatal(err)
	}
	second, _ := s.EnsureTags([]string{"GO"})
	if len(second) != 1 || second[0].ID != first[1].ID {
		t.Fatalf("expected existing tag reused, got %+v vs %+v", second, first)
	}
}

func TestSearchTagsPrefix(t *testing.T) {
	s := newTestStore(t)
	s.EnsureTags([]string{"swift", "swift_ui", "swiftdata", "sql", "s_x"})

	got, err := s.SearchTags("Swift")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 swift tags, got %+v", got)
	}
	got, _ = s.SearchTags("s_")
	if len(got) != 1 || got[0].Name != "s_x" {
		t.Fatalf("underscore must match literally, got %+v", got)
	}
	if _, err := s.SearchTags("bad prefix"); !errors.Is(err, models.ErrTagFormatInvalid) {
		t.Fatalf("expected ErrTagFormatInvalid, got %v", err)
	}
}

func TestTagsByTask(t *testing.T) {
	s := newTestStore(t)
	task := seedTask(t, s)
	s.SetTaskTags(task, []string{"b", "a"})

	m, err := s.TagsByTask()
	if err != nil {
		t.Fatal(err)
	}
	if got := m[task]; len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("unexpected tags %v", got)
	}
}

// ============================================================
// Settings
// ============================================================

func TestWorkingHoursDefaultsAndUpdate(t *testing.T) {
	s := newTestStore(t)
	hours, err := s.WorkingHours()
	if err != nil {
		t.Fatal(err)
	}
	if len(hours) != 7 {
		t.Fatalf("expected 7 seeded weekdays, got %d", len(hours))
	}
	for i, h := range hours {
		if h.Weekday != i+1 || h.MinutesTarget != 0 {
			t.Fatalf("unexpected seed %+v", h)
		}
	}

	err = s.SetWorkingHours([]models.WorkingHour{
		{Weekday: 2, MinutesTarget: 480},
		{Weekday: 0, MinutesTarget: 60},
		{Weekday: 8, MinutesTarget: 60},
	})
	if err != nil {
		t.Fatal(err)
	}
	hours, _ = s.WorkingHours()
	if len(hours) != 7 || hours[1].MinutesTarget != 480 {
		t.Fatalf("expected only Monday updated, got %+v", hours)
	}

	if err := s.SetWorkingHours([]models.WorkingHour{{Weekday: 3, MinutesTarget: -1}}); err == nil {
		t.Fatal("expected error for negative target")
	}
}

func TestBreakRules(t *testing.T) {
	s := newTestStore(t)
	r, err := s.BreakRules()
	if err != nil {
		t.Fatal(err)
	}
	if r != models.DefaultBreakRules {
		t.Fatalf("expected defaults, got %+v", r)
	}

	if err := s.SetBreakRules(models.BreakRules{MinGapMinutes: 10, MaxGapMinutes: 60}); err != nil {
		t.Fatal(err)
	}
	r, _ = s.BreakRules()
	if r.MinGapMinutes != 10 || r.MaxGapMinutes != 60 {
		t.Fatalf("unexpected rules %+v", r)
	}

	s.db.Exec(`DELETE FROM break_rules`)
	r, _ = s.BreakRules()
	if r != models.DefaultBreakRules {
		t.Fatalf("expected defaults when row missing, got %+v", r)
	}
}

func TestSettingsKeyValue(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.GetSetting(SettingLastTaskID); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	s.SetSetting(SettingLastTaskID, "3")
	s.SetSetting(SettingLastTaskID, "4")
	v, err := s.GetSetting(SettingLastTaskID)
	if err != nil || v != "4" {
		t.Fatalf("expected 4, got %q, %v", v, err)
	}
	all, _ := s.GetAllSettings()
	if len(all) != 1 {
		t.Fatalf("expected 1 setting, got %d", len(all))
	}
}

// ============================================================
// Export rows and reset
// ============================================================

func TestExportRows(t *testing.T) {
	s, c := newClockedStore(t)
	cat, _ := s.CreateCategory("Work", 0)
	p, _ := s.CreateProject(cat.ID, "Alpha", "#ff0000", 0)
	parent, _ := s.CreateTask(p.ID, nil, "Backend", "", 0)
	pid := parent.ID
	child, _ := s.CreateTask(p.ID, &pid, "Auth", "login", 0)
	s.SetTaskTags(child.ID, []string{"swift", "deep"})

	c.now = base + 1000
	mustManual(t, s, child.ID, base, base+60)
	s.CreateTimerEntry(parent.ID, base+100)

	rows, err := s.ExportRows()
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	r := rows[0]
	if r.TaskName != "Auth" || r.TaskNote != "login" || r.ParentTaskName != "Backend" ||
		r.ProjectName != "Alpha" || r.ProjectColor != "#ff0000" || r.CategoryName != "Work" {
		t.Fatalf("unexpected row %+v", r)
	}
	if len(r.Tags) != 2 || r.Tags[0] != "deep" {
		t.Fatalf("expected sorted tags, got %v", r.Tags)
	}
	if r.DurationSeconds(c.now) != 60 {
		t.Fatalf("expected 60s, got %d", r.DurationSeconds(c.now))
	}
	running := rows[1]
	if running.EndAt != nil || running.ParentTaskID != nil {
		t.Fatalf("unexpected running row %+v", running)
	}
	if running.DurationSeconds(c.now) != 900 {
		t.Fatalf("expected running duration up to now, got %d", running.DurationSeconds(c.now))
	}
}

func TestReset(t *testing.T) {
	s := newTestStore(t)
	task := seedTask(t, s)
	s.SetTaskTags(task, []string{"x"})
	s.CreateTimerEntry(task, base)
	s.SetWorkingHours([]models.WorkingHour{{Weekday: 2, MinutesTarget: 60}})

	if err := s.Reset(); err != nil {
		t.Fatal(err)
	}
	if countEntries(t, s) != 0 {
		t.Fatal("expected entries wiped")
	}
	if cats, _ := s.ListCategories(); len(cats) != 0 {
		t.Fatal("expected categories wiped")
	}
	if tags, _ := s.SearchTags(""); len(tags) != 0 {
		t.Fatal("expected tags wiped")
	}
	hours, _ := s.WorkingHours()
	if hours[1].MinutesTarget != 60 {
		t.Fatal("working hours must survive reset")
	}
}

func TestSeed(t *testing.T) {
	s := newTestStore(t)
	task := seedTask(t, s)
	s.CreateTimerEntry(task, base)

	day := time.Date(2026, 3, 9, 15, 0, 0, 0, time.UTC)
	if err := s.Seed(day, time.UTC); err != nil {
		t.Fatal(err)
	}

	if running, _ := s.GetRunningEntry(); running != nil {
		t.Fatal("seed should replace the running entry")
	}
	cats, _ := s.ListCategories()
	if len(cats) != 2 || cats[0].Name != "Client" || cats[1].Name != "Perso" {
		t.Fatalf("categories = %+v", cats)
	}
	tasks, _ := s.ListTasks(0, false)
	if len(tasks) != 7 {
		t.Fatalf("expected 7 tasks, got %d", len(tasks))
	}

	entries, err := s.ListDayEntries(day, time.UTC)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	first := entries[0]
	if first.StartAt != time.Date(2026, 3, 9, 9, 0, 0, 0, time.UTC).Unix() || first.Source != models.SourceManual {
		t.Fatalf("first entry = %+v", first)
	}
	path, _ := s.TaskPath(entries[1].TaskID)
	if path != "Projet A > Montage > Derush" {
		t.Fatalf("second entry path = %q", path)
	}

	byTask, _ := s.TagsByTask()
	if tags := byTask[entries[1].TaskID]; len(tags) != 1 || tags[0] != "montage" {
		t.Fatalf("Derush tags = %v", tags)
	}

	// Seeding twice gives the same data, not duplicates.
	if err := s.Seed(day, time.UTC); err != nil {
		t.Fatal(err)
	}
	if cats, _ := s.ListCategories(); len(cats) != 2 {
		t.Fatalf("reseed duplicated categories: %d", len(cats))
	}
}

func TestCloseStore(t *testing.T) {
	s, _ := NewMemory()
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}
