package tui

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/sadopc/timekeep/internal/models"
)

type entriesModel struct {
	deps
	width  int
	height int

	dayOffset int // days before today (0 = today)
	entries   []recentEntry
	tasks     []taskChoice
	cursor    int
	lastErr   string

	formActive bool
	form       *huh.Form
	editing    *models.TimeEntry // nil while adding
	deleting   bool

	formTask    *int64
	formStart   *string
	formEnd     *string
	formNote    *string
	formConfirm *bool
}

func newEntriesModel(d deps) entriesModel {
	var task int64
	start, end, note, confirm := "", "", "", false
	return entriesModel{
		deps:        d,
		formTask:    &task,
		formStart:   &start,
		formEnd:     &end,
		formNote:    &note,
		formConfirm: &confirm,
	}
}

func (m *entriesModel) setSize(w, h int) {
	m.width = w
	m.height = h
}

// day is local midnight of the viewed day.
func (m entriesModel) day() time.Time {
	n := m.now()
	return time.Date(n.Year(), n.Month(), n.Day()-m.dayOffset, 0, 0, 0, 0, m.loc)
}

type entriesDataMsg struct {
	entries []recentEntry
	tasks   []taskChoice
}

// entryWriteMsg reports the outcome of an add, edit or delete.
type entryWriteMsg struct {
	err error
	verb string
}

func (m entriesModel) refresh() tea.Cmd {
	day := m.day()
	return func() tea.Msg {
		entries, err := m.store.ListDayEntries(day, m.loc)
		if err != nil {
			return errStatus("Load entries", err)
		}
		out := make([]recentEntry, 0, len(entries))
		for _, e := range entries {
			path, _ := m.store.TaskPath(e.TaskID)
			out = append(out, recentEntry{entry: e, path: path})
		}
		tasks, err := loadTaskChoices(m.store)
		if err != nil {
			return errStatus("Load tasks", err)
		}
		return entriesDataMsg{entries: out, tasks: tasks}
	}
}

func (m entriesModel) update(msg tea.Msg) (entriesModel, tea.Cmd) {
	if m.formActive && m.form != nil {
		return m.updateForm(msg)
	}

	switch msg := msg.(type) {
	case entriesDataMsg:
		m.entries = msg.entries
		m.tasks = msg.tasks
		if m.cursor >= len(m.entries) {
			m.cursor = max(0, len(m.entries)-1)
		}
		return m, nil

	case entryWriteMsg:
		if msg.err != nil {
			m.lastErr = describeEntryError(msg.err)
			return m, nil
		}
		m.lastErr = ""
		return m, tea.Batch(m.refresh(), func() tea.Msg {
			return statusMsg{text: "Entry " + msg.verb}
		})

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Up):
			if m.cursor > 0 {
				m.cursor--
			}
		case key.Matches(msg, keys.Down):
			if m.cursor < len(m.entries)-1 {
				m.cursor++
			}
		case key.Matches(msg, keys.Left):
			m.dayOffset++
			m.cursor = 0
			m.lastErr = ""
			return m, m.refresh()
		case key.Matches(msg, keys.Right):
			if m.dayOffset > 0 {
				m.dayOffset--
				m.cursor = 0
				m.lastErr = ""
				return m, m.refresh()
			}
		case key.Matches(msg, keys.New):
			if len(m.tasks) == 0 {
				m.lastErr = "Create a task first (view 2)."
				return m, nil
			}
			return m.showForm(nil)
		case key.Matches(msg, keys.Edit), key.Matches(msg, keys.Enter):
			if m.cursor < len(m.entries) {
				e := m.entries[m.cursor].entry
				return m.showForm(&e)
			}
		case key.Matches(msg, keys.Delete):
			if m.cursor < len(m.entries) {
				return m.showDelete(m.entries[m.cursor])
			}
		}
	}
	return m, nil
}

func describeEntryError(err error) string {
	switch {
	case errors.Is(err, models.ErrOverlapConflict):
		return "Overlaps an existing entry."
	case errors.Is(err, models.ErrInvalidRange):
		return "End must be after start."
	case errors.Is(err, models.ErrRunningTimerConflict):
		return "Another entry is already running."
	}
	return err.Error()
}

func validateClock(s string) error {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	if _, err := time.Parse("15:04", strings.TrimSpace(s)); err != nil {
		return errors.New("use HH:MM")
	}
	return nil
}

// atClock returns hh:mm on the viewed day.
func (m entriesModel) atClock(s string) (int64, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("time %q: use HH:MM", s)
	}
	d := m.day()
	return time.Date(d.Year(), d.Month(), d.Day(), t.Hour(), t.Minute(), 0, 0, m.loc).Unix(), nil
}

func (m entriesModel) showForm(e *models.TimeEntry) (entriesModel, tea.Cmd) {
	m.editing = e
	m.deleting = false
	*m.formNote = ""
	*m.formStart = ""
	*m.formEnd = ""
	if len(m.tasks) > 0 {
		*m.formTask = m.tasks[0].ID
	}

	if e != nil {
		*m.formTask = e.TaskID
		*m.formNote = e.Note
		*m.formStart = time.Unix(e.StartAt, 0).In(m.loc).Format("15:04")
		if e.EndAt != nil {
			*m.formEnd = time.Unix(*e.EndAt, 0).In(m.loc).Format("15:04")
		}
	}

	opts := make([]huh.Option[int64], len(m.tasks))
	for i, t := range m.tasks {
		opts[i] = huh.NewOption(t.Path, t.ID)
	}
	endTitle := "End (HH:MM)"
	if e != nil && e.Running() {
		endTitle = "End (HH:MM, empty keeps it running)"
	}

	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[int64]().Title("Task").Options(opts...).Value(m.formTask),
			huh.NewInput().Title("Start (HH:MM)").Value(m.formStart).Validate(func(s string) error {
				if strings.TrimSpace(s) == "" {
					return errors.New("start is required")
				}
				return validateClock(s)
			}),
			huh.NewInput().Title(endTitle).Value(m.formEnd).Validate(validateClock),
			huh.NewInput().Title("Note").Value(m.formNote),
		),
	).WithShowHelp(true).WithShowErrors(true)

	m.formActive = true
	m.lastErr = ""
	return m, m.form.Init()
}

func (m entriesModel) showDelete(r recentEntry) (entriesModel, tea.Cmd) {
	e := r.entry
	m.editing = &e
	m.deleting = true
	*m.formConfirm = false

	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Delete entry #%d?", e.ID)).
				Description(r.path).
				Value(m.formConfirm),
		),
	)
	m.formActive = true
	return m, m.form.Init()
}

func (m entriesModel) updateForm(msg tea.Msg) (entriesModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == "esc" {
			m.formActive = false
			m.form = nil
			return m, nil
		}
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		m.formActive = false
		return m, m.submit()
	case huh.StateAborted:
		m.formActive = false
		m.form = nil
		return m, nil
	}
	return m, cmd
}

func (m entriesModel) submit() tea.Cmd {
	s := m.store

	if m.deleting {
		if !*m.formConfirm || m.editing == nil {
			return nil
		}
		id := m.editing.ID
		return func() tea.Msg {
			return entryWriteMsg{err: s.DeleteEntry(id), verb: "deleted"}
		}
	}

	taskID := *m.formTask
	note := *m.formNote
	start, err := m.atClock(*m.formStart)
	if err != nil {
		return func() tea.Msg { return entryWriteMsg{err: err} }
	}
	var end *int64
	if strings.TrimSpace(*m.formEnd) != "" {
		v, err := m.atClock(*m.formEnd)
		if err != nil {
			return func() tea.Msg { return entryWriteMsg{err: err} }
		}
		end = &v
	}

	if m.editing == nil {
		if end == nil {
			return func() tea.Msg { return entryWriteMsg{err: errors.New("end is required for a new entry")} }
		}
		return func() tea.Msg {
			_, err := s.CreateManualEntry(taskID, start, *end, note)
			return entryWriteMsg{err: err, verb: "added"}
		}
	}

	e := *m.editing
	if end == nil && !e.Running() {
		return func() tea.Msg { return entryWriteMsg{err: errors.New("end is required for a finished entry")} }
	}
	e.TaskID, e.StartAt, e.EndAt, e.Note = taskID, start, end, note
	return func() tea.Msg {
		_, err := s.UpdateEntry(e)
		return entryWriteMsg{err: err, verb: "updated"}
	}
}

func (m entriesModel) view() string {
	w := m.width - 4
	if m.formActive && m.form != nil {
		title := "New Entry"
		switch {
		case m.deleting:
			title = "Delete Entry"
		case m.editing != nil:
			title = fmt.Sprintf("Edit Entry #%d", m.editing.ID)
		}
		content := lipgloss.JoinVertical(lipgloss.Left,
			titleStyle.Render(title), subtitleStyle.Render(m.day().Format("Monday, Jan 02 2006")), "", m.form.View())
		return panelStyle.Width(w).Render(content)
	}

	title := titleStyle.Render("Entries") + "  " + highlightStyle.Render(m.day().Format("Mon, Jan 02 2006"))
	rows := []string{title, ""}

	if m.lastErr != "" {
		rows = append(rows, errorStyle.Render("  "+m.lastErr), "")
	}

	if len(m.entries) == 0 {
		rows = append(rows, mutedStyle.Render("  No entries on this day. Press n to add one."))
	} else {
		rows = append(rows, mutedStyle.Render(fmt.Sprintf("  %-5s %-5s %-8s %-9s %-32s %s", "Start", "End", "Duration", "Source", "Task", "Note")))
		now := m.clock.Now()
		for i, r := range m.entries {
			e := r.entry
			end := "…"
			if e.EndAt != nil {
				end = time.Unix(*e.EndAt, 0).In(m.loc).Format("15:04")
			}
			line := fmt.Sprintf("%-5s %-5s %-8s %-9s %-32s %s",
				time.Unix(e.StartAt, 0).In(m.loc).Format("15:04"),
				end,
				formatHM(e.EndOrNow(now)-e.StartAt),
				string(e.Source),
				r.path,
				e.Note)
			if i == m.cursor {
				rows = append(rows, selectedItemStyle.Render("> "+line))
			} else if e.Running() {
				rows = append(rows, successStyle.Render("  "+line))
			} else if e.Source == models.SourceRecovered {
				rows = append(rows, warningStyle.Render("  "+line))
			} else {
				rows = append(rows, normalItemStyle.Render("  "+line))
			}
		}
	}

	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render("  ←/→: day  n: add  e: edit  d: delete"))
	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}
