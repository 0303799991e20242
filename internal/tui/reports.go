package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/NimbleMarkets/ntcharts/barchart"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/tempo/internal/dates"
	"github.com/sadopc/tempo/internal/state"
)

type reportMode int

const (
	reportDaily reportMode = iota
	reportWeekly
)

const (
	dailyBars  = 7
	weeklyBars = 8
)

type reportsModel struct {
	ws     *state.Workspace
	now    func() time.Time
	width  int
	height int

	mode   reportMode
	offset int // blocks of bars back from today (0 = current)

	chart barchart.Model
}

func newReportsModel(ws *state.Workspace, now func() time.Time) reportsModel {
	return reportsModel{
		ws:    ws,
		now:   now,
		chart: barchart.New(60, 12),
	}
}

func (r *reportsModel) setSize(w, h int) {
	r.width = w
	r.height = h
	r.buildChart()
}

// bucket is one bar: the days in [from, to).
type bucket struct {
	from, to dates.Day
	label    string
}

func (r reportsModel) buckets() []bucket {
	today := dates.Today(r.now)
	var out []bucket
	switch r.mode {
	case reportWeekly:
		wd := int(today.Weekday())
		if wd == 0 {
			wd = 7
		}
		monday := today.AddDays(1 - wd).AddDays(-7 * weeklyBars * r.offset)
		for i := weeklyBars - 1; i >= 0; i-- {
			from := monday.AddDays(-7 * i)
			out = append(out, bucket{from: from, to: from.AddDays(7), label: from.Time().Format("Jan 02")})
		}
	default:
		end := today.AddDays(-dailyBars * r.offset)
		for i := dailyBars - 1; i >= 0; i-- {
			d := end.AddDays(-i)
			out = append(out, bucket{from: d, to: d.AddDays(1), label: d.Time().Format("Mon 02")})
		}
	}
	return out
}

// completions counts completed logs per habit within [from, to).
func (r reportsModel) completions(from, to dates.Day) map[string]int {
	counts := map[string]int{}
	for _, l := range r.ws.Habits.AllLogs() {
		if l.Completed && !l.Date.Before(from) && l.Date.Before(to) {
			counts[l.HabitID]++
		}
	}
	return counts
}

func (r reportsModel) update(msg tea.Msg) (reportsModel, tea.Cmd) {
	switch msg := msg.(type) {
	case committedMsg, loadedMsg:
		r.buildChart()
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Left):
			r.offset++
		case key.Matches(msg, keys.Right):
			if r.offset > 0 {
				r.offset--
			}
		case key.Matches(msg, keys.Mode):
			if r.mode == reportDaily {
				r.mode = reportWeekly
			} else {
				r.mode = reportDaily
			}
			r.offset = 0
		default:
			return r, nil
		}
		r.buildChart()
	}
	return r, nil
}

func (r *reportsModel) buildChart() {
	chartWidth := max(r.width-8, 20)
	chartHeight := 12
	if r.height > 30 {
		chartHeight = 16
	}

	r.chart = barchart.New(chartWidth, chartHeight)

	var bars []barchart.BarData
	for _, b := range r.buckets() {
		total := 0
		for _, n := range r.completions(b.from, b.to) {
			total += n
		}
		style := lipgloss.NewStyle().Foreground(colorPrimary)
		if total == 0 {
			style = lipgloss.NewStyle().Foreground(colorSubtle)
		}
		bars = append(bars, barchart.BarData{
			Label:  b.label,
			Values: []barchart.BarValue{{Name: "completed", Value: float64(total), Style: style}},
		})
	}

	r.chart.PushAll(bars)
	r.chart.Draw()
}

func (r reportsModel) view() string {
	w := r.width - 4

	dailyTab := inactiveTabStyle.Render("Daily")
	weeklyTab := inactiveTabStyle.Render("Weekly")
	if r.mode == reportDaily {
		dailyTab = activeTabStyle.Render("Daily")
	} else {
		weeklyTab = activeTabStyle.Render("Weekly")
	}
	modeTabs := lipgloss.JoinHorizontal(lipgloss.Bottom, dailyTab, weeklyTab)

	bs := r.buckets()
	from, to := bs[0].from, bs[len(bs)-1].to
	dateLabel := mutedStyle.Render(fmt.Sprintf("%s to %s",
		from.Time().Format("Jan 02"), to.AddDays(-1).Time().Format("Jan 02, 2006")))

	header := lipgloss.JoinHorizontal(lipgloss.Bottom,
		titleStyle.Render("Reports"), "  ", modeTabs, "  ", dateLabel,
	)

	nav := mutedStyle.Render("  ←/→: navigate  m: daily/weekly")

	return panelStyle.Width(w).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			header, "", r.chart.View(), "", r.renderSummaryTable(w, from, to), "", nav,
		),
	)
}

func (r reportsModel) renderSummaryTable(w int, from, to dates.Day) string {
	habits := r.ws.Habits.Items()
	if len(habits) == 0 {
		return mutedStyle.Render("  No habits to report on")
	}
	days := from.DaysUntil(to)
	counts := r.completions(from, to)

	var rows []string
	rows = append(rows, mutedStyle.Render(fmt.Sprintf("  %-24s %10s %8s %8s", "Habit", "Completed", "Rate", "Streak")))
	rows = append(rows, mutedStyle.Render("  "+strings.Repeat("─", min(w-6, 54))))
	for _, h := range habits {
		n := counts[h.ID]
		rate := 0.0
		if days > 0 {
			rate = float64(n) / float64(days) * 100
		}
		rows = append(rows, fmt.Sprintf("  %-24s %10s %7.0f%% %8d",
			truncate(h.Name, 24), fmt.Sprintf("%d/%d", n, days), rate, r.ws.Habits.Streak(h.ID)))
	}
	return strings.Join(rows, "\n")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
