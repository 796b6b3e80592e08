package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/NimbleMarkets/ntcharts/barchart"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sadopc/timekeep/internal/stats"
)

var reportPeriods = []stats.Period{stats.Today, stats.ThisWeek, stats.ThisMonth}

type reportsModel struct {
	deps
	width  int
	height int

	period int // index into reportPeriods
	offset int // periods back from the current one (0 = current)

	rng    stats.Range
	totals stats.Totals
	target int64
	daily  []stats.DayWorked

	chart barchart.Model
}

func newReportsModel(d deps) reportsModel {
	return reportsModel{
		deps:   d,
		period: 1,
		chart:  barchart.New(60, 12),
	}
}

func (r *reportsModel) setSize(w, h int) {
	r.width = w
	r.height = h
}

type reportsDataMsg struct {
	rng    stats.Range
	totals stats.Totals
	target int64
	daily  []stats.DayWorked
}

// anchor is an instant inside the period being viewed.
func (r reportsModel) anchor() time.Time {
	n := r.now()
	switch reportPeriods[r.period] {
	case stats.ThisWeek:
		return time.Date(n.Year(), n.Month(), n.Day()-7*r.offset, 12, 0, 0, 0, r.loc)
	case stats.ThisMonth:
		return time.Date(n.Year(), n.Month()-time.Month(r.offset), 1, 12, 0, 0, 0, r.loc)
	default:
		return time.Date(n.Year(), n.Month(), n.Day()-r.offset, 12, 0, 0, 0, r.loc)
	}
}

func (r reportsModel) refresh() tea.Cmd {
	rng := stats.PeriodRange(reportPeriods[r.period], r.anchor(), r.loc, r.weekStart)
	return func() tea.Msg {
		entries, err := r.store.ListEntriesInRange(rng.StartUTC, rng.EndUTC)
		if err != nil {
			return errStatus("Load report", err)
		}
		taskToProject, projectNames, err := r.store.ProjectIndex()
		if err != nil {
			return errStatus("Load report", err)
		}
		tagsByTask, err := r.store.TagsByTask()
		if err != nil {
			return errStatus("Load report", err)
		}
		hours, err := r.store.WorkingHours()
		if err != nil {
			return errStatus("Load report", err)
		}

		now := r.clock.Now()
		return reportsDataMsg{
			rng:    rng,
			totals: stats.Aggregate(entries, rng.StartUTC, rng.EndUTC, now, taskToProject, projectNames, tagsByTask),
			target: stats.TargetSecondsForPeriod(rng.StartLocal, rng.EndLocal, hours),
			daily:  stats.DailyWorked(entries, rng, now),
		}
	}
}

func (r reportsModel) update(msg tea.Msg) (reportsModel, tea.Cmd) {
	switch msg := msg.(type) {
	case reportsDataMsg:
		r.rng = msg.rng
		r.totals = msg.totals
		r.target = msg.target
		r.daily = msg.daily
		r.buildChart()
		return r, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Left):
			r.offset++
			return r, r.refresh()
		case key.Matches(msg, keys.Right):
			if r.offset > 0 {
				r.offset--
				return r, r.refresh()
			}
		case key.Matches(msg, keys.Enter):
			r.period = (r.period + 1) % len(reportPeriods)
			r.offset = 0
			return r, r.refresh()
		}
	}
	return r, nil
}

func (r *reportsModel) buildChart() {
	chartWidth := max(r.width-8, 20)
	chartHeight := 10
	if r.height > 34 {
		chartHeight = 14
	}

	r.chart = barchart.New(chartWidth, chartHeight)

	labelFormat := "Mon"
	if len(r.daily) > 7 {
		labelFormat = "02"
	}
	bars := make([]barchart.BarData, 0, len(r.daily))
	for _, d := range r.daily {
		style := accentStyle
		if d.Seconds == 0 {
			style = mutedStyle
		}
		bars = append(bars, barchart.BarData{
			Label: d.Date.Format(labelFormat),
			Values: []barchart.BarValue{{
				Name:  d.Date.Format("2006-01-02"),
				Value: float64(d.Seconds) / 3600.0,
				Style: style,
			}},
		})
	}

	r.chart.PushAll(bars)
	r.chart.Draw()
}

func (r reportsModel) view() string {
	w := r.width - 4

	var tabs []string
	for i, p := range reportPeriods {
		label := strings.ToUpper(p.String()[:1]) + p.String()[1:]
		if i == r.period {
			tabs = append(tabs, activeTabStyle.Render(label))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(label))
		}
	}
	periodTabs := lipgloss.JoinHorizontal(lipgloss.Bottom, tabs...)

	var dateLabel string
	if !r.rng.StartLocal.IsZero() {
		last := r.rng.EndLocal.AddDate(0, 0, -1)
		if last.Equal(r.rng.StartLocal) {
			dateLabel = r.rng.StartLocal.Format("Mon, Jan 02 2006")
		} else {
			dateLabel = r.rng.StartLocal.Format("Jan 02") + " to " + last.Format("Jan 02, 2006")
		}
	}

	header := lipgloss.JoinHorizontal(lipgloss.Bottom,
		titleStyle.Render("Reports"), "  ", periodTabs, "  ", mutedStyle.Render(dateLabel),
	)

	summary := r.renderSummary()
	var chartView string
	if len(r.daily) > 1 {
		chartView = r.chart.View()
	}
	totals := lipgloss.JoinHorizontal(lipgloss.Top,
		r.renderTotals("Projects", r.totals.ProjectTotals, (w-4)/2),
		r.renderTotals("Tags", r.totals.TagTotals, (w-4)/2),
	)

	nav := mutedStyle.Render("  ←/→: previous/next  enter: switch period")

	return panelStyle.Width(w).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			header, "", summary, "", chartView, "", totals, "", nav,
		),
	)
}

func (r reportsModel) renderSummary() string {
	worked := r.totals.WorkedSeconds
	line := fmt.Sprintf("  Worked %s", highlightStyle.Render(formatHM(worked)))
	if r.target > 0 {
		delta := worked - r.target
		style := overtimeStyle
		if delta < 0 {
			style = missingStyle
		}
		line += fmt.Sprintf("   Target %s   Delta %s", formatHM(r.target), style.Render(formatDelta(delta)))
	}
	return line
}

func (r reportsModel) renderTotals(title string, totals []stats.NamedSeconds, w int) string {
	rows := []string{subtitleStyle.Render("  " + title)}
	if len(totals) == 0 {
		rows = append(rows, mutedStyle.Render("  No data for this period"))
		return lipgloss.NewStyle().Width(w).Render(strings.Join(rows, "\n"))
	}

	nameWidth := max(w-14, 8)
	for _, t := range totals {
		name := t.Name
		if len(name) > nameWidth {
			name = name[:nameWidth-1] + "…"
		}
		rows = append(rows, fmt.Sprintf("  %-*s %9s", nameWidth, name, formatHM(t.Seconds)))
	}
	return lipgloss.NewStyle().Width(w).Render(strings.Join(rows, "\n"))
}
