package tui

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sadopc/timekeep/internal/events"
	"github.com/sadopc/timekeep/internal/models"
)

// viewState represents the currently active view.
type viewState int

const (
	viewDashboard viewState = iota
	viewProjects
	viewEntries
	viewReports
	viewSettings
)

var viewNames = []string{"Dashboard", "Projects", "Entries", "Reports", "Settings"}

// --- Messages ---

type timerStartedMsg struct {
	entry *models.TimeEntry
}

type timerStoppedMsg struct {
	entry *models.TimeEntry
}

// startTaskMsg asks the app to start (or switch to) a task from any view.
type startTaskMsg struct {
	taskID int64
}

// entryEventMsg carries one store notification into the update loop.
type entryEventMsg struct {
	event events.Event
}

type statusMsg struct {
	text    string
	isError bool
}

type tickMsg time.Time

type exportDoneMsg struct {
	path  string
	count int
}

func errStatus(prefix string, err error) tea.Msg {
	return statusMsg{text: fmt.Sprintf("%s: %v", prefix, err), isError: true}
}

// --- Helpers ---

func formatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

func formatSeconds(secs int64) string {
	return formatDuration(time.Duration(secs) * time.Second)
}

// formatHM renders seconds as "7h 05m", ignoring the sign.
func formatHM(secs int64) string {
	if secs < 0 {
		secs = -secs
	}
	return fmt.Sprintf("%dh %02dm", secs/3600, (secs%3600)/60)
}

func formatDelta(secs int64) string {
	if secs < 0 {
		return "-" + formatHM(secs)
	}
	return "+" + formatHM(secs)
}

func formatHours(secs int64) string {
	return fmt.Sprintf("%.1fh", float64(secs)/3600)
}
