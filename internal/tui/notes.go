package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/tempo/internal/state"
)

type notesModel struct {
	ws     *state.Workspace
	width  int
	height int
	cursor int

	// Create form
	formActive bool
	form       *huh.Form
	newTitle   *string
	newContent *string

	// Editor
	editing   bool
	editingID string
	onBody    bool
	title     textinput.Model
	body      textarea.Model
}

func newNotesModel(ws *state.Workspace) notesModel {
	t, c := "", ""
	title := textinput.New()
	title.Placeholder = "Title"
	title.CharLimit = 120
	body := textarea.New()
	body.Placeholder = "Write in markdown..."
	body.ShowLineNumbers = false
	body.CharLimit = 0
	return notesModel{
		ws:         ws,
		newTitle:   &t,
		newContent: &c,
		title:      title,
		body:       body,
	}
}

func (n *notesModel) setSize(w, h int) {
	n.width = w
	n.height = h
	n.title.Width = max(n.editorWidth()-4, 10)
	n.body.SetWidth(max(n.editorWidth()-4, 10))
	n.body.SetHeight(max(h-12, 3))
}

func (n notesModel) editorWidth() int {
	return (n.width - 4) / 2
}

func (n notesModel) update(msg tea.Msg) (notesModel, tea.Cmd) {
	if n.formActive && n.form != nil {
		return n.updateForm(msg)
	}
	if n.editing {
		return n.updateEditor(msg)
	}

	items := n.ws.Notes.Items()
	n.cursor = clampCursor(n.cursor, len(items))

	km, ok := msg.(tea.KeyMsg)
	if !ok {
		return n, nil
	}
	switch {
	case key.Matches(km, keys.Up):
		if n.cursor > 0 {
			n.cursor--
		}
	case key.Matches(km, keys.Down):
		if n.cursor < len(items)-1 {
			n.cursor++
		}
	case key.Matches(km, keys.New):
		*n.newTitle, *n.newContent = "", ""
		n.form = huh.NewForm(
			huh.NewGroup(
				huh.NewInput().Title("Title").Value(n.newTitle).Validate(required),
				huh.NewText().Title("Content").Lines(6).Value(n.newContent),
			).Title("New note"),
		).WithShowHelp(false).WithShowErrors(true)
		n.formActive = true
		return n, n.form.Init()
	case len(items) == 0:
		return n, nil
	case key.Matches(km, keys.Edit):
		note := items[n.cursor]
		n.editing = true
		n.editingID = note.ID
		n.onBody = true
		n.title.SetValue(note.Title)
		n.title.Blur()
		n.body.SetValue(note.Content)
		return n, n.body.Focus()
	case key.Matches(km, keys.Delete):
		return n, commit("delete note", n.ws.Notes.Delete(items[n.cursor].ID))
	}
	return n, nil
}

func (n notesModel) updateForm(msg tea.Msg) (notesModel, tea.Cmd) {
	form, cmd, res := stepForm(n.form, msg)
	n.form = form
	switch res {
	case formAborted:
		n.formActive = false
	case formDone:
		n.formActive = false
		n.form = nil
		n.cursor = 0
		return n, commit("add note", n.ws.Notes.Create(*n.newTitle, *n.newContent))
	}
	return n, cmd
}

// updateEditor hands every key to the focused field and schedules an
// autosave whenever the text changed.
func (n notesModel) updateEditor(msg tea.Msg) (notesModel, tea.Cmd) {
	if km, ok := msg.(tea.KeyMsg); ok {
		switch km.String() {
		case "esc":
			n.editing = false
			n.title.Blur()
			n.body.Blur()
			return n, nil
		case "tab":
			n.onBody = !n.onBody
			if n.onBody {
				n.title.Blur()
				return n, n.body.Focus()
			}
			n.body.Blur()
			return n, n.title.Focus()
		}
	}

	before := n.title.Value() + "\x00" + n.body.Value()
	var cmd tea.Cmd
	if n.onBody {
		n.body, cmd = n.body.Update(msg)
	} else {
		n.title, cmd = n.title.Update(msg)
	}
	if n.title.Value()+"\x00"+n.body.Value() == before {
		return n, cmd
	}
	if strings.TrimSpace(n.title.Value()) == "" {
		return n, tea.Batch(cmd, status("A note needs a title before it is saved.", true))
	}
	if !n.ws.Notes.Edit(n.editingID, n.title.Value(), n.body.Value()) {
		n.editing = false
		return n, tea.Batch(cmd, status("Note is gone. Reopen it to keep editing.", true))
	}
	return n, cmd
}

func (n notesModel) view() string {
	w := n.width - 4
	items := n.ws.Notes.Items()
	cursor := clampCursor(n.cursor, len(items))

	title := titleStyle.Render("Notes")
	saving := ""
	if p := n.ws.Notes.Pending(); p > 0 {
		saving = warningStyle.Render(fmt.Sprintf("  saving %d...", p))
	}
	header := lipgloss.JoinHorizontal(lipgloss.Bottom, title, saving)

	if n.formActive && n.form != nil {
		return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, header, "", n.form.View()))
	}

	var list []string
	if len(items) == 0 {
		list = append(list, mutedStyle.Render("No notes yet. Press n to add one."))
	}
	for i, note := range items {
		prefix := "  "
		style := normalItemStyle
		if i == cursor {
			prefix = "> "
			style = selectedItemStyle
		}
		list = append(list, fmt.Sprintf("%s%s %s", prefix, style.Render(note.Title), mutedStyle.Render(note.Date.String())))
	}

	half := n.editorWidth()
	left := lipgloss.NewStyle().Width(half).Render(lipgloss.JoinVertical(lipgloss.Left, list...))

	var right string
	switch {
	case n.editing:
		right = lipgloss.JoinVertical(lipgloss.Left, n.title.View(), "", n.body.View())
	case len(items) > 0:
		note := items[cursor]
		preview := renderMarkdown(note.Content, half-2)
		if preview == "" {
			preview = mutedStyle.Render("(empty)")
		}
		right = lipgloss.JoinVertical(lipgloss.Left, titleStyle.Render(note.Title), "", preview)
	}
	right = lipgloss.NewStyle().Width(half).Render(right)

	hint := "  n: new  enter: edit  d: delete"
	if n.editing {
		hint = "  tab: title/body  esc: done (changes save automatically)"
	}

	return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left,
		header, "",
		lipgloss.JoinHorizontal(lipgloss.Top, left, right),
		"", mutedStyle.Render(hint),
	))
}
