package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/tempo/internal/dates"
	"github.com/sadopc/tempo/internal/pomodoro"
	"github.com/sadopc/tempo/internal/state"
)

const dashboardTasks = 5

type dashboardModel struct {
	ws     *state.Workspace
	engine *pomodoro.Engine
	now    func() time.Time
	width  int
	height int

	xpBar progress.Model
}

func newDashboardModel(ws *state.Workspace, e *pomodoro.Engine, now func() time.Time) dashboardModel {
	return dashboardModel{
		ws:     ws,
		engine: e,
		now:    now,
		xpBar:  progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage()),
	}
}

func (d *dashboardModel) setSize(w, h int) {
	d.width = w
	d.height = h
	d.xpBar.Width = max(w/2-12, 10)
}

func (d dashboardModel) view() string {
	half := (d.width - 4) / 2
	left := lipgloss.JoinVertical(lipgloss.Left,
		d.renderProgress(half),
		d.renderTasks(half),
	)
	right := lipgloss.JoinVertical(lipgloss.Left,
		d.renderPomodoro(half),
		d.renderHabits(half),
		d.renderGoals(half),
	)
	return lipgloss.JoinHorizontal(lipgloss.Top, left, right)
}

func (d dashboardModel) renderProgress(w int) string {
	xp := d.ws.Progress.XP()
	level := d.ws.Progress.Level()
	into := xp % state.XPPerLevel
	title := titleStyle.Render(fmt.Sprintf("Level %d", level))
	bar := d.xpBar.ViewAs(float64(into) / float64(state.XPPerLevel))
	detail := mutedStyle.Render(fmt.Sprintf("%d XP  %d to next level", xp, state.XPPerLevel-into))

	account := mutedStyle.Render("Offline. Tasks and notes stay on this machine.")
	if s, ok := d.ws.Auth.Session(); ok {
		account = "Signed in as " + highlightStyle.Render(s.Email)
	}
	if d.ws.Loading() {
		account += warningStyle.Render("  syncing...")
	}
	return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, title, "", bar, detail, "", account))
}

func (d dashboardModel) renderTasks(w int) string {
	items := d.ws.Tasks.Items()
	open := 0
	var rows []string
	for _, t := range items {
		if t.Completed {
			continue
		}
		open++
		if open <= dashboardTasks {
			rows = append(rows, fmt.Sprintf("%s %s", checkbox(false), normalItemStyle.Render(t.Text)))
		}
	}
	if open > dashboardTasks {
		rows = append(rows, mutedStyle.Render(fmt.Sprintf("    and %d more", open-dashboardTasks)))
	}
	if open == 0 {
		rows = append(rows, mutedStyle.Render("Nothing open"))
	}
	title := titleStyle.Render("Tasks") + mutedStyle.Render(fmt.Sprintf("  %d open", open))
	return panelStyle.Width(w).Render(title + "\n\n" + strings.Join(rows, "\n"))
}

func (d dashboardModel) renderHabits(w int) string {
	habits := d.ws.Habits.Items()
	today := dates.Today(d.now)
	title := titleStyle.Render("Habits today") +
		mutedStyle.Render(fmt.Sprintf("  %d/%d", d.ws.Habits.CompletedOn(today), len(habits)))

	var rows []string
	for _, h := range habits {
		entry, logged := d.ws.Habits.LogFor(h.ID, today)
		rows = append(rows, fmt.Sprintf("%s %s", habitMark(h, entry, logged), h.Name))
	}
	if len(rows) == 0 {
		rows = append(rows, mutedStyle.Render("No habits"))
	}
	return panelStyle.Width(w).Render(title + "\n\n" + strings.Join(rows, "\n"))
}

func (d dashboardModel) renderGoals(w int) string {
	goals := d.ws.Goals.Items()
	done := 0
	for _, g := range goals {
		if g.Completed {
			done++
		}
	}
	title := titleStyle.Render(fmt.Sprintf("Goals %d", d.ws.Goals.Year()))
	line := mutedStyle.Render("No goals set")
	if len(goals) > 0 {
		line = successStyle.Render(fmt.Sprintf("%d of %d achieved", done, len(goals)))
	}
	return panelStyle.Width(w).Render(title + "\n\n" + line)
}

func (d dashboardModel) renderPomodoro(w int) string {
	st := d.engine.State()
	clock := timerPausedStyle
	indicator := warningStyle.Render("⏸  PAUSED")
	if st.Running {
		clock = timerRunningStyle
		indicator = successStyle.Render("●  RUNNING")
	}
	timeDisplay := clock.Width(w - 6).Render(formatPomodoroTime(st.Left))
	content := lipgloss.JoinVertical(lipgloss.Center,
		timeDisplay,
		highlightStyle.Render(st.Phase.String())+"  "+indicator,
		mutedStyle.Render(fmt.Sprintf("%d sessions today  %s focused", st.CompletedSessions, formatHours(st.TotalWork))),
	)
	if st.Running {
		return activePanelStyle.Width(w).Render(content)
	}
	return panelStyle.Width(w).Render(content)
}
