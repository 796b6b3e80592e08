package tui

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/sadopc/timekeep/internal/models"
)

type settingsModel struct {
	deps
	width  int
	height int

	hours []models.WorkingHour
	rules models.BreakRules

	formActive bool
	form       *huh.Form

	// Form values as pointers (survive value copies)
	targets [7]*string // indexed by weekday-1
	minGap  *string
	maxGap  *string
}

func newSettingsModel(d deps) settingsModel {
	s := settingsModel{deps: d}
	for i := range s.targets {
		v := ""
		s.targets[i] = &v
	}
	minGap, maxGap := "", ""
	s.minGap = &minGap
	s.maxGap = &maxGap
	return s
}

func (s *settingsModel) setSize(w, h int) {
	s.width = w
	s.height = h
}

type settingsDataMsg struct {
	hours []models.WorkingHour
	rules models.BreakRules
}

func (s settingsModel) refresh() tea.Cmd {
	return func() tea.Msg {
		hours, err := s.store.WorkingHours()
		if err != nil {
			return errStatus("Load working hours", err)
		}
		rules, err := s.store.BreakRules()
		if err != nil {
			return errStatus("Load break rules", err)
		}
		return settingsDataMsg{hours: hours, rules: rules}
	}
}

func (s settingsModel) update(msg tea.Msg) (settingsModel, tea.Cmd) {
	if s.formActive && s.form != nil {
		return s.updateForm(msg)
	}

	switch msg := msg.(type) {
	case settingsDataMsg:
		s.hours = msg.hours
		s.rules = msg.rules
		return s, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Enter), key.Matches(msg, keys.Edit):
			return s.showForm()
		}
	}
	return s, nil
}

// weekdayOrder lists weekdays (1 = Sunday) starting at the configured week start.
func (s settingsModel) weekdayOrder() []int {
	out := make([]int, 7)
	for i := range out {
		out[i] = (int(s.weekStart)+i)%7 + 1
	}
	return out
}

func (s settingsModel) targetMinutes(weekday int) int {
	for _, h := range s.hours {
		if h.Weekday == weekday {
			return h.MinutesTarget
		}
	}
	return 0
}

// parseTarget accepts plain minutes ("480") or a duration ("7h30m").
func parseTarget(v string) (int, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, nil
	}
	if n, err := strconv.Atoi(v); err == nil {
		if n < 0 {
			return 0, errors.New("must not be negative")
		}
		return n, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, errors.New("use minutes or a duration like 7h30m")
	}
	if d < 0 {
		return 0, errors.New("must not be negative")
	}
	return int(d / time.Minute), nil
}

func validateTarget(v string) error {
	_, err := parseTarget(v)
	return err
}

func formatTarget(minutes int) string {
	d := time.Duration(minutes) * time.Minute
	if d == 0 {
		return "0"
	}
	return strings.TrimSuffix(d.String(), "0s")
}

func (s settingsModel) showForm() (settingsModel, tea.Cmd) {
	var fields []huh.Field
	for _, wd := range s.weekdayOrder() {
		*s.targets[wd-1] = formatTarget(s.targetMinutes(wd))
		fields = append(fields, huh.NewInput().
			Title(time.Weekday(wd-1).String()).
			Value(s.targets[wd-1]).
			Validate(validateTarget))
	}
	*s.minGap = strconv.Itoa(s.rules.MinGapMinutes)
	*s.maxGap = strconv.Itoa(s.rules.MaxGapMinutes)

	s.form = huh.NewForm(
		huh.NewGroup(fields...).Title("Working hours"),
		huh.NewGroup(
			huh.NewInput().Title("Shortest break (min)").Value(s.minGap).Validate(validateTarget),
			huh.NewInput().Title("Longest break (min)").Value(s.maxGap).Validate(validateTarget),
		).Title("Breaks"),
	).WithShowHelp(true).WithShowErrors(true)

	s.formActive = true
	return s, s.form.Init()
}

func (s settingsModel) updateForm(msg tea.Msg) (settingsModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == "esc" {
			s.formActive = false
			s.form = nil
			return s, nil
		}
	}

	form, cmd := s.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		s.form = f
	}

	switch s.form.State {
	case huh.StateCompleted:
		s.formActive = false
		return s, s.save()
	case huh.StateAborted:
		s.formActive = false
		s.form = nil
		return s, nil
	}
	return s, cmd
}

// formValues reads the working hours and break rules out of the form.
func (s settingsModel) formValues() ([]models.WorkingHour, models.BreakRules, error) {
	hours := make([]models.WorkingHour, 0, 7)
	for wd := 1; wd <= 7; wd++ {
		m, err := parseTarget(*s.targets[wd-1])
		if err != nil {
			return nil, models.BreakRules{}, fmt.Errorf("%s: %w", time.Weekday(wd-1), err)
		}
		hours = append(hours, models.WorkingHour{Weekday: wd, MinutesTarget: m})
	}
	minGap, err := parseTarget(*s.minGap)
	if err != nil {
		return nil, models.BreakRules{}, fmt.Errorf("shortest break: %w", err)
	}
	maxGap, err := parseTarget(*s.maxGap)
	if err != nil {
		return nil, models.BreakRules{}, fmt.Errorf("longest break: %w", err)
	}
	if minGap > maxGap {
		return nil, models.BreakRules{}, errors.New("shortest break exceeds longest break")
	}
	return hours, models.BreakRules{MinGapMinutes: minGap, MaxGapMinutes: maxGap}, nil
}

func (s settingsModel) save() tea.Cmd {
	hours, rules, err := s.formValues()
	if err != nil {
		return func() tea.Msg { return errStatus("Settings", err) }
	}
	st := s.store
	return tea.Batch(
		func() tea.Msg {
			if err := st.SetWorkingHours(hours); err != nil {
				return errStatus("Save working hours", err)
			}
			if err := st.SetBreakRules(rules); err != nil {
				return errStatus("Save break rules", err)
			}
			return statusMsg{text: "Settings saved"}
		},
		s.refresh(),
	)
}

func (s settingsModel) view() string {
	w := s.width - 4

	if s.formActive && s.form != nil {
		title := titleStyle.Render("Settings")
		return panelStyle.Width(w).Render(
			lipgloss.JoinVertical(lipgloss.Left, title, "", s.form.View()),
		)
	}

	rows := []string{titleStyle.Render("Settings"), "", subtitleStyle.Render("  Working hours")}

	var week int64
	for _, wd := range s.weekdayOrder() {
		m := s.targetMinutes(wd)
		week += int64(m) * 60
		label := lipgloss.NewStyle().Width(14).Render(time.Weekday(wd - 1).String())
		value := mutedStyle.Render("off")
		if m > 0 {
			value = highlightStyle.Render(formatHM(int64(m) * 60))
		}
		rows = append(rows, fmt.Sprintf("    %s %s", label, value))
	}
	rows = append(rows, fmt.Sprintf("    %s %s",
		lipgloss.NewStyle().Width(14).Render("Week"), accentStyle.Render(formatHours(week))))

	rows = append(rows, "", subtitleStyle.Render("  Breaks"))
	rows = append(rows, fmt.Sprintf("    Gaps between %s and %s count as breaks",
		highlightStyle.Render(fmt.Sprintf("%d min", s.rules.MinGapMinutes)),
		highlightStyle.Render(fmt.Sprintf("%d min", s.rules.MaxGapMinutes))))

	rows = append(rows, "", mutedStyle.Render("Press enter to edit settings"))

	return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}
