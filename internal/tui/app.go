// Package tui is the interactive Bubble Tea front end.
package tui

import (
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sadopc/timekeep/internal/clock"
	"github.com/sadopc/timekeep/internal/events"
	"github.com/sadopc/timekeep/internal/export"
	"github.com/sadopc/timekeep/internal/store"
	"github.com/sadopc/timekeep/internal/timer"
)

// Options wires the app to an open store and timer.
type Options struct {
	Store     *store.Store
	Timer     *timer.Service
	Bus       *events.Bus // optional; without it views refresh only on their own writes
	Clock     clock.Clock
	Location  *time.Location
	WeekStart time.Weekday
	ExportDir string
}

// deps is what every view needs to read the store and the clock.
type deps struct {
	store     *store.Store
	clock     clock.Clock
	loc       *time.Location
	weekStart time.Weekday
}

func (d deps) now() time.Time {
	return time.Unix(d.clock.Now(), 0).In(d.loc)
}

func (d deps) logf(format string, args ...any) {
	log.Printf(format, args...)
}

// App is the root Bubble Tea model.
type App struct {
	deps
	bus       *events.Bus
	events    chan events.Event
	exportDir string
	width     int
	height    int

	activeView    viewState
	showHelp      bool
	exportPicking bool
	exportCursor  int

	dashboard dashboardModel
	projects  projectsModel
	entries   entriesModel
	reports   reportsModel
	settings  settingsModel

	help          help.Model
	status        string
	statusIsError bool
}

func NewApp(opts Options) App {
	h := help.New()
	h.ShowAll = false

	if opts.Clock == nil {
		opts.Clock = clock.System{}
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Timer == nil {
		opts.Timer = timer.New(opts.Store, opts.Clock)
		if err := opts.Timer.Refresh(); err != nil {
			log.Printf("tui: load running entry: %v", err)
		}
	}
	if opts.ExportDir == "" {
		opts.ExportDir = "."
	}

	d := deps{
		store:     opts.Store,
		clock:     opts.Clock,
		loc:       opts.Location,
		weekStart: opts.WeekStart,
	}
	tm := newTimerModel(opts.Timer, opts.Store)

	a := App{
		deps:       d,
		bus:        opts.Bus,
		exportDir:  opts.ExportDir,
		activeView: viewDashboard,
		dashboard:  newDashboardModel(d, tm),
		projects:   newProjectsModel(d),
		entries:    newEntriesModel(d),
		reports:    newReportsModel(d),
		settings:   newSettingsModel(d),
		help:       h,
	}
	if opts.Bus != nil {
		a.events = opts.Bus.Subscribe()
	}
	return a
}

func (a App) Init() tea.Cmd {
	return tea.Batch(
		a.dashboard.Init(),
		tickCmd(),
		waitForEvent(a.events),
	)
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// waitForEvent blocks on the next store notification. It returns nil (no
// command) when there is no subscription.
func waitForEvent(ch chan events.Event) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		e, ok := <-ch
		if !ok {
			return nil
		}
		return entryEventMsg{event: e}
	}
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.help.Width = msg.Width
		contentHeight := a.height - 4 // header + footer
		a.dashboard.setSize(a.width, contentHeight)
		a.projects.setSize(a.width, contentHeight)
		a.entries.setSize(a.width, contentHeight)
		a.reports.setSize(a.width, contentHeight)
		a.settings.setSize(a.width, contentHeight)
		return a, nil

	case tea.KeyMsg:
		if a.exportPicking {
			return a.updateExportPicker(msg)
		}

		// If a child view is capturing input (e.g. form), delegate first.
		if a.isFormActive() {
			return a.updateActiveView(msg)
		}

		switch {
		case key.Matches(msg, keys.Export):
			a.exportPicking = true
			a.exportCursor = 0
			return a, nil
		case key.Matches(msg, keys.Quit):
			if a.bus != nil && a.events != nil {
				a.bus.Unsubscribe(a.events)
			}
			return a, tea.Quit
		case key.Matches(msg, keys.Help):
			a.showHelp = !a.showHelp
			a.help.ShowAll = a.showHelp
			return a, nil
		case key.Matches(msg, keys.Tab1):
			return a.switchView(viewDashboard)
		case key.Matches(msg, keys.Tab2):
			return a.switchView(viewProjects)
		case key.Matches(msg, keys.Tab3):
			return a.switchView(viewEntries)
		case key.Matches(msg, keys.Tab4):
			return a.switchView(viewReports)
		case key.Matches(msg, keys.Tab5):
			return a.switchView(viewSettings)
		case key.Matches(msg, keys.Tab):
			return a.switchView((a.activeView + 1) % viewState(len(viewNames)))
		case key.Matches(msg, keys.Stop):
			// Stopping works from every view.
			var cmd tea.Cmd
			a.dashboard, cmd = a.dashboard.stopTimer()
			return a, cmd
		}

	case tickMsg:
		// Elapsed time is derived from the clock; the tick only redraws.
		return a, tickCmd()

	case entryEventMsg:
		if err := a.dashboard.timer.refresh(); err != nil {
			a.status = fmt.Sprintf("Timer refresh: %v", err)
			a.statusIsError = true
		}
		return a, tea.Batch(
			waitForEvent(a.events),
			a.dashboard.loadData(),
			a.refreshCurrentView(),
		)

	case statusMsg:
		a.status = msg.text
		a.statusIsError = msg.isError
		return a, nil

	case timerStoppedMsg:
		a.status = "Timer stopped"
		a.statusIsError = false
		if msg.entry != nil && msg.entry.EndAt != nil {
			a.status += " after " + formatSeconds(*msg.entry.EndAt-msg.entry.StartAt)
		}
		return a, nil

	case timerStartedMsg:
		a.status = "Timer started: " + a.dashboard.timer.label
		a.statusIsError = false
		return a, nil

	case exportDoneMsg:
		a.status = fmt.Sprintf("Exported %d entries to %s", msg.count, msg.path)
		a.statusIsError = false
		a.exportPicking = false
		return a, nil

	case startTaskMsg:
		var cmd tea.Cmd
		a.dashboard, cmd = a.dashboard.startTimer(msg.taskID)
		return a, cmd

	case dashboardDataMsg:
		var cmd tea.Cmd
		a.dashboard, cmd = a.dashboard.update(msg)
		return a, cmd

	case projectsDataMsg:
		// Cascading deletes remove entries without notifying.
		if err := a.dashboard.timer.refresh(); err != nil {
			a.status = fmt.Sprintf("Timer refresh: %v", err)
			a.statusIsError = true
		}
		var cmd tea.Cmd
		a.projects, cmd = a.projects.update(msg)
		return a, tea.Batch(cmd, a.dashboard.loadData())
	}

	return a.updateActiveView(msg)
}

func (a App) switchView(v viewState) (tea.Model, tea.Cmd) {
	a.activeView = v
	return a, a.refreshCurrentView()
}

func (a App) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch a.activeView {
	case viewDashboard:
		a.dashboard, cmd = a.dashboard.update(msg)
	case viewProjects:
		a.projects, cmd = a.projects.update(msg)
	case viewEntries:
		a.entries, cmd = a.entries.update(msg)
	case viewReports:
		a.reports, cmd = a.reports.update(msg)
	case viewSettings:
		a.settings, cmd = a.settings.update(msg)
	}
	return a, cmd
}

func (a App) isFormActive() bool {
	switch a.activeView {
	case viewDashboard:
		return a.dashboard.picking
	case viewProjects:
		return a.projects.formActive
	case viewEntries:
		return a.entries.formActive
	case viewSettings:
		return a.settings.formActive
	}
	return false
}

func (a App) refreshCurrentView() tea.Cmd {
	switch a.activeView {
	case viewDashboard:
		return a.dashboard.loadData()
	case viewProjects:
		return a.projects.refresh()
	case viewEntries:
		return a.entries.refresh()
	case viewReports:
		return a.reports.refresh()
	case viewSettings:
		return a.settings.refresh()
	}
	return nil
}

func (a App) View() string {
	if a.width == 0 {
		return "Loading..."
	}

	header := a.renderHeader()
	footer := a.renderFooter()

	var content string
	switch a.activeView {
	case viewDashboard:
		content = a.dashboard.view()
	case viewProjects:
		content = a.projects.view()
	case viewEntries:
		content = a.entries.view()
	case viewReports:
		content = a.reports.view()
	case viewSettings:
		content = a.settings.view()
	}

	headerHeight := lipgloss.Height(header)
	footerHeight := lipgloss.Height(footer)
	contentHeight := max(1, a.height-headerHeight-footerHeight)

	if a.exportPicking {
		content = a.renderExportPicker()
	}

	content = lipgloss.NewStyle().
		Width(a.width).
		Height(contentHeight).
		Render(content)

	return lipgloss.JoinVertical(lipgloss.Left, header, content, footer)
}

func (a App) renderHeader() string {
	var tabs []string
	for i, name := range viewNames {
		if viewState(i) == a.activeView {
			tabs = append(tabs, activeTabStyle.Render(name))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(name))
		}
	}

	tabRow := lipgloss.JoinHorizontal(lipgloss.Bottom, tabs...)

	title := lipgloss.NewStyle().Bold(true).Foreground(colorPrimary).Render("timekeep")
	gap := max(1, a.width-lipgloss.Width(title)-lipgloss.Width(tabRow)-4)
	spacer := lipgloss.NewStyle().Width(gap).Render("")

	return headerStyle.Render(
		lipgloss.JoinHorizontal(lipgloss.Bottom, title, spacer, tabRow),
	)
}

func (a App) renderFooter() string {
	helpView := a.help.View(keys)

	status := ""
	if a.status != "" {
		style := mutedStyle
		if a.statusIsError {
			style = errorStyle
		}
		status = style.Render(" " + a.status)
	}

	timerInfo := ""
	if a.dashboard.isRunning() {
		timerInfo = successStyle.Render(" ● " + formatDuration(a.dashboard.elapsed()))
	}

	left := footerStyle.Render(helpView)
	right := timerInfo + status

	gap := max(1, a.width-lipgloss.Width(left)-lipgloss.Width(right)-2)
	spacer := lipgloss.NewStyle().Width(gap).Render("")

	return lipgloss.JoinHorizontal(lipgloss.Bottom, left, spacer, right)
}

var exportFormats = []string{"csv", "json"}

func (a App) renderExportPicker() string {
	title := titleStyle.Render("Export Format")
	rows := []string{title, mutedStyle.Render("  to " + a.exportDir), ""}
	for i, f := range exportFormats {
		cursor := "  "
		style := normalItemStyle
		if i == a.exportCursor {
			cursor = "> "
			style = selectedItemStyle
		}
		rows = append(rows, style.Render(cursor+f))
	}
	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render("  enter: export  esc: cancel"))

	return activePanelStyle.Width(a.width - 4).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (a App) updateExportPicker(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Up):
		if a.exportCursor > 0 {
			a.exportCursor--
		}
	case key.Matches(msg, keys.Down):
		if a.exportCursor < len(exportFormats)-1 {
			a.exportCursor++
		}
	case key.Matches(msg, keys.Enter):
		a.exportPicking = false
		return a, a.doExport(exportFormats[a.exportCursor])
	case key.Matches(msg, keys.Back):
		a.exportPicking = false
	}
	return a, nil
}

func (a App) doExport(format string) tea.Cmd {
	return func() tea.Msg {
		rows, err := a.store.ExportRows()
		if err != nil {
			return errStatus("Export", err)
		}

		now := a.now()
		path := filepath.Join(a.exportDir, export.FileName(now, format))
		if format == "json" {
			err = export.ToJSON(rows, now, path)
		} else {
			err = export.ToCSV(rows, now, path)
		}
		if err != nil {
			return errStatus("Export", err)
		}
		return exportDoneMsg{path: path, count: len(rows)}
	}
}
