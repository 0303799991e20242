package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/tempo/internal/models"
	"github.com/sadopc/tempo/internal/pomodoro"
	"github.com/sadopc/tempo/internal/state"
)

type pomodoroModel struct {
	engine *pomodoro.Engine
	ws     *state.Workspace
	width  int
	height int

	// Link picker
	picking    bool
	pickCursor int

	// Amount prompt for count habits
	amountActive bool
	amount       textinput.Model
}

func newPomodoroModel(e *pomodoro.Engine, ws *state.Workspace) pomodoroModel {
	in := textinput.New()
	in.Placeholder = "1"
	in.CharLimit = 10
	in.Width = 10
	return pomodoroModel{engine: e, ws: ws, amount: in}
}

func (p *pomodoroModel) setSize(w, h int) {
	p.width = w
	p.height = h
}

func (p pomodoroModel) formActive() bool {
	return p.picking || p.amountActive
}

type linkOption struct {
	link  *pomodoro.Link
	label string
}

// options lists what a work session can be dedicated to: open tasks, then
// habits. The first option clears the link.
func (p pomodoroModel) options() []linkOption {
	opts := []linkOption{{label: "No focus"}}
	for _, t := range p.ws.Tasks.Items() {
		if t.Completed {
			continue
		}
		opts = append(opts, linkOption{
			link:  &pomodoro.Link{Kind: pomodoro.LinkTask, ID: t.ID, Label: t.Text},
			label: "Task: " + t.Text,
		})
	}
	for _, h := range p.ws.Habits.Items() {
		opts = append(opts, linkOption{
			link:  &pomodoro.Link{Kind: pomodoro.LinkHabit, ID: h.ID, HabitKind: h.Kind, Label: h.Name},
			label: "Habit: " + h.Name,
		})
	}
	return opts
}

func (p pomodoroModel) update(msg tea.Msg) (pomodoroModel, tea.Cmd) {
	km, ok := msg.(tea.KeyMsg)
	if !ok {
		return p, nil
	}
	if p.picking {
		return p.updatePicker(km)
	}
	if p.amountActive {
		return p.updateAmount(km)
	}

	st := p.engine.State()
	if st.Prompt {
		switch {
		case key.Matches(km, keys.Yes):
			if st.Link != nil && st.Link.Kind == pomodoro.LinkHabit && st.Link.HabitKind == models.HabitCount {
				p.amountActive = true
				p.amount.SetValue("1")
				return p, p.amount.Focus()
			}
			return p, commit("pomodoro", p.engine.Confirm(0))
		case key.Matches(km, keys.No):
			p.engine.Decline()
			return p, nil
		}
	}

	switch {
	case key.Matches(km, keys.Pause):
		if p.engine.Toggle() {
			return p, status("Pomodoro started", false)
		}
		return p, status("Pomodoro paused", false)
	case key.Matches(km, keys.Reset):
		p.engine.Reset()
	case key.Matches(km, keys.Skip):
		ev := p.engine.Skip()
		return p, status("Skipped to "+strings.ToLower(ev.To.String()), false)
	case key.Matches(km, keys.Link):
		p.picking = true
		p.pickCursor = 0
	}
	return p, nil
}

func (p pomodoroModel) updatePicker(km tea.KeyMsg) (pomodoroModel, tea.Cmd) {
	opts := p.options()
	switch {
	case key.Matches(km, keys.Up):
		if p.pickCursor > 0 {
			p.pickCursor--
		}
	case key.Matches(km, keys.Down):
		if p.pickCursor < len(opts)-1 {
			p.pickCursor++
		}
	case key.Matches(km, keys.Enter):
		p.picking = false
		p.engine.Select(opts[clampCursor(p.pickCursor, len(opts))].link)
	case key.Matches(km, keys.Back):
		p.picking = false
	}
	return p, nil
}

func (p pomodoroModel) updateAmount(km tea.KeyMsg) (pomodoroModel, tea.Cmd) {
	switch km.String() {
	case "esc":
		p.amountActive = false
		p.amount.Blur()
		return p, nil
	case "enter":
		v, err := parseAmount(p.amount.Value())
		if err != nil || v <= 0 {
			return p, status("Enter a positive amount", true)
		}
		p.amountActive = false
		p.amount.Blur()
		return p, commit("pomodoro", p.engine.Confirm(v))
	}
	var cmd tea.Cmd
	p.amount, cmd = p.amount.Update(km)
	return p, cmd
}

func (p pomodoroModel) view() string {
	w := p.width - 4
	st := p.engine.State()
	settings := p.engine.Settings()

	title := titleStyle.Render("Pomodoro Timer")

	clock := timerPausedStyle
	if st.Running {
		clock = timerRunningStyle
	}
	timeDisplay := clock.Width(w - 6).Render(formatPomodoroTime(st.Left))

	phaseStyle := accentStyle
	switch st.Phase {
	case pomodoro.Break:
		phaseStyle = successStyle
	case pomodoro.LongBreak:
		phaseStyle = highlightStyle
	}
	phaseLabel := phaseStyle.Bold(true).Render(st.Phase.String())
	if !st.Running {
		phaseLabel += mutedStyle.Render("  paused")
	}

	focus := mutedStyle.Render("No focus. Press f to pick a task or habit.")
	if st.Link != nil {
		focus = "Focus: " + highlightStyle.Render(st.Link.Label)
	}

	stats := mutedStyle.Render(fmt.Sprintf("%d sessions  %d breaks  %s focused",
		st.CompletedSessions, st.CompletedBreaks, formatHours(st.TotalWork)))

	rows := []string{title, "", timeDisplay, phaseLabel, "", renderCycle(settings.Cadence, st), "", focus, stats}

	switch {
	case p.picking:
		rows = append(rows, "", p.renderPicker())
	case p.amountActive:
		rows = append(rows, "", warningStyle.Render("How much did you log?"), p.amount.View())
	case st.Prompt && st.Link != nil:
		rows = append(rows, "", warningStyle.Bold(true).Render(fmt.Sprintf("Did you complete %q? (y/n)", st.Link.Label)))
	}

	controls := mutedStyle.Render("space: start/pause  r: reset  >: skip  f: focus")
	return panelStyle.Width(w).Render(
		lipgloss.JoinVertical(lipgloss.Center, lipgloss.JoinVertical(lipgloss.Center, rows...), "", controls),
	)
}

func (p pomodoroModel) renderPicker() string {
	opts := p.options()
	cursor := clampCursor(p.pickCursor, len(opts))
	rows := []string{titleStyle.Render("Focus on")}
	for i, o := range opts {
		prefix := "  "
		style := normalItemStyle
		if i == cursor {
			prefix = "> "
			style = selectedItemStyle
		}
		rows = append(rows, style.Render(prefix+o.label))
	}
	rows = append(rows, mutedStyle.Render("enter: select  esc: cancel"))
	return activePanelStyle.Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

// renderCycle shows the work sessions left before the next long break.
func renderCycle(cadence int, st pomodoro.State) string {
	done := cadence - st.UntilLongBreak
	var parts []string
	for i := 0; i < cadence; i++ {
		switch {
		case i < done:
			parts = append(parts, successStyle.Render("●"))
		case i == done && st.Phase == pomodoro.Work:
			parts = append(parts, accentStyle.Render("◐"))
		default:
			parts = append(parts, mutedStyle.Render("○"))
		}
	}
	counter := mutedStyle.Render(fmt.Sprintf("  %d until long break", st.UntilLongBreak))
	return strings.Join(parts, " ") + counter
}

func formatPomodoroTime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	m := int(d.Minutes())
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d", m, s)
}
