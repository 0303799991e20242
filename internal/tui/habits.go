package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/tempo/internal/dates"
	"github.com/sadopc/tempo/internal/models"
	"github.com/sadopc/tempo/internal/state"
)

type habitForm int

const (
	habitFormNew habitForm = iota
	habitFormLog
)

type habitsModel struct {
	ws     *state.Workspace
	now    func() time.Time
	width  int
	height int
	cursor int
	// back is how many days before today are shown.
	back int

	formActive bool
	formKind   habitForm
	form       *huh.Form

	// Form values as pointers (survive value copies)
	name   *string
	kind   *models.HabitKind
	target *string
	unit   *string
	value  *string
}

func newHabitsModel(ws *state.Workspace, now func() time.Time) habitsModel {
	name, target, unit, value := "", "", "", ""
	kind := models.HabitBoolean
	return habitsModel{
		ws:     ws,
		now:    now,
		name:   &name,
		kind:   &kind,
		target: &target,
		unit:   &unit,
		value:  &value,
	}
}

func (h *habitsModel) setSize(w, hh int) {
	h.width = w
	h.height = hh
}

func (h habitsModel) day() dates.Day {
	return dates.Today(h.now).AddDays(-h.back)
}

func (h habitsModel) update(msg tea.Msg) (habitsModel, tea.Cmd) {
	if h.formActive && h.form != nil {
		return h.updateForm(msg)
	}

	items := h.ws.Habits.Items()
	h.cursor = clampCursor(h.cursor, len(items))

	km, ok := msg.(tea.KeyMsg)
	if !ok {
		return h, nil
	}
	switch {
	case key.Matches(km, keys.Up):
		if h.cursor > 0 {
			h.cursor--
		}
	case key.Matches(km, keys.Down):
		if h.cursor < len(items)-1 {
			h.cursor++
		}
	case key.Matches(km, keys.Left):
		h.back++
	case key.Matches(km, keys.Right):
		if h.back > 0 {
			h.back--
		}
	case key.Matches(km, keys.New):
		return h.showNewForm()
	case len(items) == 0:
		return h, nil
	case key.Matches(km, keys.Toggle), key.Matches(km, keys.Enter):
		habit := items[h.cursor]
		if habit.Kind == models.HabitBoolean {
			return h, commit("habit", h.ws.Habits.Toggle(habit.ID, h.day()))
		}
		if h.back > 0 {
			return h, status("Increments only apply to today. Press v to log a value.", true)
		}
		return h, commit("habit", h.ws.Habits.Increment(habit.ID, 1))
	case key.Matches(km, keys.Log):
		return h.showLogForm(items[h.cursor])
	case key.Matches(km, keys.Delete):
		return h, commit("delete habit", h.ws.Habits.Delete(items[h.cursor].ID))
	}
	return h, nil
}

func (h habitsModel) showNewForm() (habitsModel, tea.Cmd) {
	*h.name, *h.target, *h.unit = "", "", ""
	*h.kind = models.HabitBoolean

	h.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Name").Value(h.name).Validate(required),
			huh.NewSelect[models.HabitKind]().Title("Kind").
				Options(
					huh.NewOption("Yes / no", models.HabitBoolean),
					huh.NewOption("Count", models.HabitCount),
				).Value(h.kind),
		).Title("New habit"),
		huh.NewGroup(
			huh.NewInput().Title("Daily target").Value(h.target).Validate(nonNegative),
			huh.NewInput().Title("Unit").Placeholder("glasses, pages, km").Value(h.unit),
		).Title("Target").WithHideFunc(func() bool { return *h.kind != models.HabitCount }),
	).WithShowHelp(false).WithShowErrors(true)

	h.formKind = habitFormNew
	h.formActive = true
	return h, h.form.Init()
}

func (h habitsModel) showLogForm(habit models.Habit) (habitsModel, tea.Cmd) {
	*h.value = ""
	if l, ok := h.ws.Habits.LogFor(habit.ID, h.day()); ok {
		*h.value = formatAmount(l.Value)
	}
	title := fmt.Sprintf("%s on %s", habit.Name, h.day())
	if habit.Unit != "" {
		title += " (" + habit.Unit + ")"
	}
	h.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title(title).Value(h.value).Validate(nonNegative),
		),
	).WithShowHelp(false).WithShowErrors(true)

	h.formKind = habitFormLog
	h.formActive = true
	return h, h.form.Init()
}

func (h habitsModel) updateForm(msg tea.Msg) (habitsModel, tea.Cmd) {
	form, cmd, res := stepForm(h.form, msg)
	h.form = form
	switch res {
	case formAborted:
		h.formActive = false
	case formDone:
		h.formActive = false
		h.form = nil
		return h, h.submit()
	}
	return h, cmd
}

func (h habitsModel) submit() tea.Cmd {
	switch h.formKind {
	case habitFormLog:
		items := h.ws.Habits.Items()
		if len(items) == 0 {
			return nil
		}
		v, _ := parseAmount(*h.value)
		return commit("habit", h.ws.Habits.Log(items[clampCursor(h.cursor, len(items))].ID, h.day(), v))
	default:
		target, _ := parseAmount(*h.target)
		return commit("add habit", h.ws.Habits.Create(models.Habit{
			Name:   *h.name,
			Kind:   *h.kind,
			Target: target,
			Unit:   *h.unit,
		}))
	}
}

func (h habitsModel) view() string {
	w := h.width - 4
	items := h.ws.Habits.Items()
	day := h.day()

	dayLabel := "Today"
	if h.back > 0 {
		dayLabel = day.Time().Format("Mon Jan 02, 2006")
	}
	title := titleStyle.Render("Habits")
	summary := mutedStyle.Render(fmt.Sprintf("%s  %d/%d done", dayLabel, h.ws.Habits.CompletedOn(day), len(items)))
	rows := []string{lipgloss.JoinHorizontal(lipgloss.Bottom, title, "  ", summary), ""}

	if h.formActive && h.form != nil {
		rows = append(rows, h.form.View(), "")
	}

	if h.ws.Auth.UserID() == "" {
		rows = append(rows, warningStyle.Render("  Sign in from Settings to track habits."), "")
	}
	if len(items) == 0 {
		rows = append(rows, mutedStyle.Render("  No habits yet. Press n to add one."))
	}

	cursor := clampCursor(h.cursor, len(items))
	for i, habit := range items {
		prefix := "  "
		style := normalItemStyle
		if i == cursor {
			prefix = "> "
			style = selectedItemStyle
		}
		entry, logged := h.ws.Habits.LogFor(habit.ID, day)
		streak := ""
		if n := h.ws.Habits.Streak(habit.ID); n > 0 {
			streak = accentStyle.Render(fmt.Sprintf("  %d day streak", n))
		}
		rows = append(rows, fmt.Sprintf("%s%s %s%s", prefix, habitMark(habit, entry, logged), style.Render(habit.Name), streak))
	}

	rows = append(rows, "", mutedStyle.Render("  ←/→: day  x: toggle/+1  v: log value  n: new  d: delete"))
	return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

// habitMark renders a day's log. Boolean habits distinguish an unlogged day
// from one explicitly marked not done.
func habitMark(h models.Habit, entry models.HabitLog, logged bool) string {
	if h.Kind == models.HabitCount {
		v := 0.0
		if logged {
			v = entry.Value
		}
		text := fmt.Sprintf("%s/%s", formatAmount(v), formatAmount(h.Target))
		if h.Unit != "" {
			text += " " + h.Unit
		}
		text = fmt.Sprintf("%-14s", text)
		if logged && entry.Completed {
			return successStyle.Render(text)
		}
		return mutedStyle.Render(text)
	}
	switch {
	case !logged:
		return mutedStyle.Render("[ ]")
	case entry.Completed:
		return successStyle.Render("[x]")
	}
	return warningStyle.Render("[-]")
}
