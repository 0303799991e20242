package tui

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/sadopc/tempo/internal/state"
)

// viewState represents the currently active view.
type viewState int

const (
	viewDashboard viewState = iota
	viewTasks
	viewHabits
	viewNotes
	viewGoals
	viewPomodoro
	viewReports
	viewSettings
)

var viewNames = []string{"Dashboard", "Tasks", "Habits", "Notes", "Goals", "Pomodoro", "Reports", "Settings"}

// viewKeys are the names the UI container remembers the active view by.
var viewKeys = []string{"dashboard", "tasks", "habits", "notes", "goals", "pomodoro", "reports", "settings"}

func viewFromKey(k string) viewState {
	for i, name := range viewKeys {
		if name == k {
			return viewState(i)
		}
	}
	return viewDashboard
}

// --- Messages ---

type statusMsg struct {
	text    string
	isError bool
}

type tickMsg time.Time

// committedMsg reports the remote half of an optimistic action.
type committedMsg struct {
	what string
	err  error
}

type loadedMsg struct{}

type exportDoneMsg struct {
	path string
}

// commitTimeout bounds the remote half of an action started from the UI.
const commitTimeout = 30 * time.Second

// commit runs c off the update loop. The local change is already visible.
func commit(what string, c state.Commit) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commitTimeout)
		defer cancel()
		return committedMsg{what: what, err: c(ctx)}
	}
}

func loadCmd(ws *state.Workspace) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commitTimeout)
		defer cancel()
		ws.Load(ctx)
		return loadedMsg{}
	}
}

func status(text string, isError bool) tea.Cmd {
	return func() tea.Msg { return statusMsg{text: text, isError: isError} }
}

// --- Helpers ---

func formatHours(d time.Duration) string {
	return fmt.Sprintf("%.1fh", d.Hours())
}

func clampCursor(cursor, n int) int {
	if cursor >= n {
		cursor = n - 1
	}
	return max(cursor, 0)
}

func checkbox(done bool) string {
	if done {
		return successStyle.Render("[x]")
	}
	return mutedStyle.Render("[ ]")
}

// --- Forms ---

type formResult int

const (
	formOpen formResult = iota
	formDone
	formAborted
)

// stepForm feeds msg to an embedded form. Esc aborts it.
func stepForm(f *huh.Form, msg tea.Msg) (*huh.Form, tea.Cmd, formResult) {
	if k, ok := msg.(tea.KeyMsg); ok && k.String() == "esc" {
		return nil, nil, formAborted
	}
	m, cmd := f.Update(msg)
	if next, ok := m.(*huh.Form); ok {
		f = next
	}
	switch f.State {
	case huh.StateCompleted:
		return f, nil, formDone
	case huh.StateAborted:
		return nil, nil, formAborted
	}
	return f, cmd, formOpen
}

func required(s string) error {
	if strings.TrimSpace(s) == "" {
		return errors.New("required")
	}
	return nil
}

func nonNegative(s string) error {
	v, err := parseAmount(s)
	if err != nil {
		return err
	}
	if v < 0 {
		return errors.New("must not be negative")
	}
	return nil
}

func parseAmount(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, errors.New("not a number")
	}
	return v, nil
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
