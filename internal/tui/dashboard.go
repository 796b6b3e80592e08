package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/sadopc/timekeep/internal/models"
	"github.com/sadopc/timekeep/internal/stats"
	"github.com/sadopc/timekeep/internal/store"
)

// taskChoice is a selectable task with its display path.
type taskChoice struct {
	ID   int64
	Path string
}

func loadTaskChoices(s *store.Store) ([]taskChoice, error) {
	tasks, err := s.ListTasks(0, false)
	if err != nil {
		return nil, err
	}
	projects, err := s.ListProjects(0, false)
	if err != nil {
		return nil, err
	}
	active := make(map[int64]bool, len(projects))
	for _, p := range projects {
		active[p.ID] = true
	}

	var out []taskChoice
	for _, t := range tasks {
		if !active[t.ProjectID] {
			continue
		}
		path, err := s.TaskPath(t.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, taskChoice{ID: t.ID, Path: path})
	}
	return out, nil
}

type recentEntry struct {
	entry models.TimeEntry
	path  string
}

type dashboardModel struct {
	deps
	timer  timerModel
	width  int
	height int

	summary stats.DaySummary
	recent  []recentEntry
	tasks   []taskChoice

	// Task picker state
	picking      bool
	pickerCursor int
}

func newDashboardModel(d deps, tm timerModel) dashboardModel {
	return dashboardModel{deps: d, timer: tm}
}

func (d dashboardModel) Init() tea.Cmd {
	return d.loadData()
}

func (d *dashboardModel) setSize(w, h int) {
	d.width = w
	d.height = h
}

func (d dashboardModel) isRunning() bool { return d.timer.running() }
func (d dashboardModel) elapsed() time.Duration {
	return d.timer.currentElapsed()
}

type dashboardDataMsg struct {
	summary stats.DaySummary
	recent  []recentEntry
	tasks   []taskChoice
}

func (d dashboardModel) loadData() tea.Cmd {
	return func() tea.Msg {
		summary, err := summarizeDay(d.deps, d.now())
		if err != nil {
			return errStatus("Load today", err)
		}

		entries, err := d.store.ListEntries(store.EntryFilter{Limit: 5})
		if err != nil {
			return errStatus("Load entries", err)
		}
		recent := make([]recentEntry, 0, len(entries))
		for _, e := range entries {
			path, _ := d.store.TaskPath(e.TaskID)
			recent = append(recent, recentEntry{entry: e, path: path})
		}

		tasks, err := loadTaskChoices(d.store)
		if err != nil {
			return errStatus("Load tasks", err)
		}

		return dashboardDataMsg{summary: summary, recent: recent, tasks: tasks}
	}
}

// summarizeDay computes the worked/target figures of the local day
// containing date.
func summarizeDay(d deps, date time.Time) (stats.DaySummary, error) {
	entries, err := d.store.ListDayEntries(date, d.loc)
	if err != nil {
		return stats.DaySummary{}, err
	}
	hours, err := d.store.WorkingHours()
	if err != nil {
		return stats.DaySummary{}, err
	}
	rules, err := d.store.BreakRules()
	if err != nil {
		return stats.DaySummary{}, err
	}
	return stats.SummarizeDay(entries, date, d.loc, hours, rules, d.clock.Now()), nil
}

func (d dashboardModel) update(msg tea.Msg) (dashboardModel, tea.Cmd) {
	switch msg := msg.(type) {
	case dashboardDataMsg:
		d.summary = msg.summary
		d.recent = msg.recent
		d.tasks = msg.tasks
		if d.pickerCursor >= len(d.tasks) {
			d.pickerCursor = max(0, len(d.tasks)-1)
		}
		return d, nil

	case tea.KeyMsg:
		if d.picking {
			return d.updatePicker(msg)
		}

		switch {
		case key.Matches(msg, keys.Start):
			if len(d.tasks) == 0 {
				return d, func() tea.Msg {
					return statusMsg{text: "No tasks yet. Press 2 to go to Projects and create one.", isError: true}
				}
			}
			if len(d.tasks) == 1 {
				return d.startTimer(d.tasks[0].ID)
			}
			d.picking = true
			d.pickerCursor = 0
			for i, t := range d.tasks {
				if t.ID == d.timer.taskID() {
					d.pickerCursor = i
				}
			}
			return d, nil

		case key.Matches(msg, keys.Stop):
			return d.stopTimer()
		}
	}
	return d, nil
}

func (d dashboardModel) updatePicker(msg tea.KeyMsg) (dashboardModel, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Up):
		if d.pickerCursor > 0 {
			d.pickerCursor--
		}
	case key.Matches(msg, keys.Down):
		if d.pickerCursor < len(d.tasks)-1 {
			d.pickerCursor++
		}
	case key.Matches(msg, keys.Enter):
		d.picking = false
		if d.pickerCursor < len(d.tasks) {
			return d.startTimer(d.tasks[d.pickerCursor].ID)
		}
	case key.Matches(msg, keys.Back):
		d.picking = false
	}
	return d, nil
}

func (d dashboardModel) startTimer(taskID int64) (dashboardModel, tea.Cmd) {
	entry, err := d.timer.start(taskID)
	if err != nil {
		return d, func() tea.Msg { return errStatus("Start", err) }
	}
	if err := d.store.SetSetting(store.SettingLastTaskID, fmt.Sprint(taskID)); err != nil {
		d.logf("remember last task: %v", err)
	}
	return d, tea.Batch(
		d.loadData(),
		func() tea.Msg { return timerStartedMsg{entry: entry} },
	)
}

func (d dashboardModel) stopTimer() (dashboardModel, tea.Cmd) {
	if !d.timer.running() {
		return d, nil
	}
	entry, err := d.timer.stop()
	if err != nil {
		return d, func() tea.Msg { return errStatus("Stop", err) }
	}
	return d, tea.Batch(
		d.loadData(),
		func() tea.Msg { return timerStoppedMsg{entry: entry} },
	)
}

func (d dashboardModel) view() string {
	if d.width < 20 {
		return "Terminal too small"
	}

	contentWidth := d.width - 4

	timerPanel := d.renderTimerPanel(contentWidth)
	summaryPanel := d.renderSummaryPanel(contentWidth)

	var bottomPanel string
	if d.picking {
		bottomPanel = d.renderTaskPicker(contentWidth)
	} else {
		bottomPanel = d.renderRecentPanel(contentWidth)
	}

	return lipgloss.JoinVertical(lipgloss.Left, timerPanel, summaryPanel, bottomPanel)
}

func (d dashboardModel) renderTimerPanel(w int) string {
	if d.timer.running() {
		timeDisplay := timerRunningStyle.Width(w - 6).Render(formatDuration(d.timer.currentElapsed()))
		indicator := successStyle.Render("●  RUNNING")
		started := time.Unix(d.timer.entry.StartAt, 0).In(d.loc)
		taskLine := highlightStyle.Render(d.timer.label) +
			mutedStyle.Render("  since "+started.Format("15:04"))

		content := lipgloss.JoinVertical(lipgloss.Center, timeDisplay, indicator, taskLine)
		return activePanelStyle.Width(w).Render(content)
	}

	timeDisplay := timerStyle.Width(w - 6).Render("00:00:00")
	indicator := mutedStyle.Render("■  STOPPED")
	hint := mutedStyle.Render("Press s to start tracking")

	content := lipgloss.JoinVertical(lipgloss.Center, timeDisplay, indicator, hint)
	return panelStyle.Width(w).Render(content)
}

func (d dashboardModel) renderSummaryPanel(w int) string {
	s := d.summary
	title := titleStyle.Render("Today")
	header := fmt.Sprintf("%s  %s", title, highlightStyle.Render(formatHM(s.Worked)))

	rows := []string{header}
	if s.Target > 0 {
		rows = append(rows, fmt.Sprintf("  Target   %s", formatHM(s.Target)))
		if s.Delta >= 0 {
			rows = append(rows, fmt.Sprintf("  Delta    %s", overtimeStyle.Render(formatDelta(s.Delta))))
		} else {
			rows = append(rows, fmt.Sprintf("  Delta    %s", missingStyle.Render(formatDelta(s.Delta))))
		}
		rows = append(rows, fmt.Sprintf("  Missing  %s", formatHM(s.Missing)))
	} else {
		rows = append(rows, mutedStyle.Render("  No target today"))
	}

	if len(s.Breaks) > 0 {
		var spans []string
		for _, b := range s.Breaks {
			spans = append(spans, fmt.Sprintf("%s-%s",
				time.Unix(b.StartAt, 0).In(d.loc).Format("15:04"),
				time.Unix(b.EndAt, 0).In(d.loc).Format("15:04")))
		}
		rows = append(rows, fmt.Sprintf("  Breaks   %s  %s",
			breakStyle.Render(formatHM(s.BreakSeconds())), mutedStyle.Render(strings.Join(spans, ", "))))
	}

	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}

func (d dashboardModel) renderRecentPanel(w int) string {
	title := titleStyle.Render("Recent Entries")
	if len(d.recent) == 0 {
		content := lipgloss.JoinVertical(lipgloss.Left,
			title,
			mutedStyle.Render("No entries yet"),
		)
		return panelStyle.Width(w).Render(content)
	}

	now := d.clock.Now()
	nowT := time.Unix(now, 0)
	rows := []string{title}
	for _, r := range d.recent {
		e := r.entry
		status := entryMarker(e)
		dur := formatSeconds(e.EndOrNow(now) - e.StartAt)
		if e.Running() {
			dur = "running"
		}
		when := humanize.RelTime(time.Unix(e.StartAt, 0), nowT, "ago", "from now")
		rows = append(rows, fmt.Sprintf("  %s %-14s %-32s %s", status, when, r.path, dur))
	}

	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}

// entryMarker flags running entries and entries closed by crash recovery.
func entryMarker(e models.TimeEntry) string {
	switch {
	case e.Running():
		return successStyle.Render("●")
	case e.Source == models.SourceRecovered:
		return warningStyle.Render("!")
	}
	return "✓"
}

func (d dashboardModel) renderTaskPicker(w int) string {
	title := titleStyle.Render("Select Task")

	rows := []string{title}
	for i, t := range d.tasks {
		cursor := "  "
		style := normalItemStyle
		if i == d.pickerCursor {
			cursor = "> "
			style = selectedItemStyle
		}
		line := style.Render(cursor + t.Path)
		if t.ID == d.timer.taskID() {
			line += successStyle.Render(" ●")
		}
		rows = append(rows, line)
	}
	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render("  enter: start  esc: cancel"))

	return activePanelStyle.Width(w).Render(strings.Join(rows, "\n"))
}
