package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/tempo/internal/state"
)

type tasksModel struct {
	ws     *state.Workspace
	width  int
	height int
	cursor int

	formActive bool
	form       *huh.Form
	text       *string
}

func newTasksModel(ws *state.Workspace) tasksModel {
	text := ""
	return tasksModel{ws: ws, text: &text}
}

func (t *tasksModel) setSize(w, h int) {
	t.width = w
	t.height = h
}

func (t tasksModel) update(msg tea.Msg) (tasksModel, tea.Cmd) {
	if t.formActive && t.form != nil {
		return t.updateForm(msg)
	}

	items := t.ws.Tasks.Items()
	t.cursor = clampCursor(t.cursor, len(items))

	km, ok := msg.(tea.KeyMsg)
	if !ok {
		return t, nil
	}
	switch {
	case key.Matches(km, keys.Up):
		if t.cursor > 0 {
			t.cursor--
		}
	case key.Matches(km, keys.Down):
		if t.cursor < len(items)-1 {
			t.cursor++
		}
	case key.Matches(km, keys.New):
		*t.text = ""
		t.form = huh.NewForm(
			huh.NewGroup(
				huh.NewInput().Title("New task").Value(t.text).Validate(required),
			),
		).WithShowHelp(false)
		t.formActive = true
		return t, t.form.Init()
	case len(items) == 0:
		return t, nil
	case key.Matches(km, keys.Toggle), key.Matches(km, keys.Enter):
		return t, commit("task", t.ws.Tasks.Toggle(items[t.cursor].ID))
	case key.Matches(km, keys.Delete):
		return t, commit("delete task", t.ws.Tasks.Delete(items[t.cursor].ID))
	}
	return t, nil
}

func (t tasksModel) updateForm(msg tea.Msg) (tasksModel, tea.Cmd) {
	form, cmd, res := stepForm(t.form, msg)
	t.form = form
	switch res {
	case formDone:
		t.formActive = false
		t.form = nil
		t.cursor = 0
		return t, commit("add task", t.ws.Tasks.Add(*t.text))
	case formAborted:
		t.formActive = false
	}
	return t, cmd
}

func (t tasksModel) view() string {
	w := t.width - 4
	items := t.ws.Tasks.Items()

	done := 0
	for _, task := range items {
		if task.Completed {
			done++
		}
	}
	title := titleStyle.Render("Tasks")
	summary := mutedStyle.Render(fmt.Sprintf("%d of %d done", done, len(items)))

	rows := []string{lipgloss.JoinHorizontal(lipgloss.Bottom, title, "  ", summary), ""}

	if t.formActive && t.form != nil {
		rows = append(rows, t.form.View(), "")
	}

	if len(items) == 0 {
		rows = append(rows, mutedStyle.Render("  No tasks yet. Press n to add one."))
	}
	cursor := clampCursor(t.cursor, len(items))
	for i, task := range items {
		prefix := "  "
		style := normalItemStyle
		if i == cursor {
			prefix = "> "
			style = selectedItemStyle
		}
		text := task.Text
		if task.Completed {
			text = mutedStyle.Strikethrough(true).Render(text)
		} else {
			text = style.Render(text)
		}
		rows = append(rows, fmt.Sprintf("%s%s %s", prefix, checkbox(task.Completed), text))
	}

	rows = append(rows, "", mutedStyle.Render("  n: new  x: toggle  d: delete"))
	return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}
