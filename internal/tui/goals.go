package tui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/tempo/internal/state"
)

type goalsModel struct {
	ws     *state.Workspace
	width  int
	height int
	cursor int

	formActive bool
	form       *huh.Form
	// editID is empty while creating.
	editID      string
	title       *string
	description *string
}

func newGoalsModel(ws *state.Workspace) goalsModel {
	t, d := "", ""
	return goalsModel{ws: ws, title: &t, description: &d}
}

func (g *goalsModel) setSize(w, h int) {
	g.width = w
	g.height = h
}

type goalsLoadedMsg struct{ year int }

func (g goalsModel) loadYear(year int) tea.Cmd {
	ws := g.ws
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commitTimeout)
		defer cancel()
		ws.Goals.Load(ctx, year)
		return goalsLoadedMsg{year: year}
	}
}

func (g goalsModel) update(msg tea.Msg) (goalsModel, tea.Cmd) {
	if g.formActive && g.form != nil {
		return g.updateForm(msg)
	}

	items := g.ws.Goals.Items()
	g.cursor = clampCursor(g.cursor, len(items))

	switch msg := msg.(type) {
	case goalsLoadedMsg:
		g.cursor = 0
		return g, nil
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Up):
			if g.cursor > 0 {
				g.cursor--
			}
		case key.Matches(msg, keys.Down):
			if g.cursor < len(items)-1 {
				g.cursor++
			}
		case key.Matches(msg, keys.Left):
			return g, g.loadYear(g.ws.Goals.Year() - 1)
		case key.Matches(msg, keys.Right):
			return g, g.loadYear(g.ws.Goals.Year() + 1)
		case key.Matches(msg, keys.New):
			return g.showForm("", "", "")
		case len(items) == 0:
			return g, nil
		case key.Matches(msg, keys.Toggle):
			return g, commit("goal", g.ws.Goals.Toggle(items[g.cursor].ID))
		case key.Matches(msg, keys.Edit):
			goal := items[g.cursor]
			return g.showForm(goal.ID, goal.Title, goal.Description)
		case key.Matches(msg, keys.Delete):
			return g, commit("delete goal", g.ws.Goals.Delete(items[g.cursor].ID))
		}
	}
	return g, nil
}

func (g goalsModel) showForm(id, title, description string) (goalsModel, tea.Cmd) {
	*g.title, *g.description = title, description
	heading := fmt.Sprintf("New goal for %d", g.ws.Goals.Year())
	if id != "" {
		heading = "Edit goal"
	}
	g.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Title").Value(g.title).Validate(required),
			huh.NewText().Title("Description").Lines(4).Value(g.description),
		).Title(heading),
	).WithShowHelp(false).WithShowErrors(true)
	g.editID = id
	g.formActive = true
	return g, g.form.Init()
}

func (g goalsModel) updateForm(msg tea.Msg) (goalsModel, tea.Cmd) {
	form, cmd, res := stepForm(g.form, msg)
	g.form = form
	switch res {
	case formAborted:
		g.formActive = false
	case formDone:
		g.formActive = false
		g.form = nil
		if g.editID != "" {
			return g, commit("update goal", g.ws.Goals.Update(g.editID, *g.title, *g.description))
		}
		return g, commit("add goal", g.ws.Goals.Create(*g.title, *g.description))
	}
	return g, cmd
}

func (g goalsModel) view() string {
	w := g.width - 4
	items := g.ws.Goals.Items()
	cursor := clampCursor(g.cursor, len(items))

	done := 0
	for _, goal := range items {
		if goal.Completed {
			done++
		}
	}
	title := titleStyle.Render(fmt.Sprintf("Goals %d", g.ws.Goals.Year()))
	summary := mutedStyle.Render(fmt.Sprintf("%d of %d achieved", done, len(items)))
	rows := []string{lipgloss.JoinHorizontal(lipgloss.Bottom, title, "  ", summary), ""}

	if g.formActive && g.form != nil {
		rows = append(rows, g.form.View(), "")
	}
	if g.ws.Auth.UserID() == "" {
		rows = append(rows, warningStyle.Render("  Sign in from Settings to set goals."), "")
	}
	if len(items) == 0 {
		rows = append(rows, mutedStyle.Render("  No goals for this year."))
	}

	for i, goal := range items {
		prefix := "  "
		style := normalItemStyle
		if i == cursor {
			prefix = "> "
			style = selectedItemStyle
		}
		rows = append(rows, fmt.Sprintf("%s%s %s", prefix, checkbox(goal.Completed), style.Render(goal.Title)))
		if goal.Description != "" && i == cursor {
			rows = append(rows, mutedStyle.Render("      "+goal.Description))
		}
	}

	rows = append(rows, "", mutedStyle.Render("  ←/→: year  n: new  enter: edit  x: toggle  d: delete"))
	return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}
