package tui

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/tempo/internal/export"
	"github.com/sadopc/tempo/internal/pomodoro"
	"github.com/sadopc/tempo/internal/state"
)

// Options wires the App to a running workspace.
type Options struct {
	Workspace *state.Workspace
	Engine    *pomodoro.Engine
	// ExportDir defaults to the home directory.
	ExportDir string
	Now       func() time.Time
}

// App is the root Bubble Tea model.
type App struct {
	ws        *state.Workspace
	engine    *pomodoro.Engine
	exportDir string
	now       func() time.Time
	width     int
	height    int

	activeView    viewState
	showHelp      bool
	exportPicking bool
	exportCursor  int

	dashboard dashboardModel
	tasks     tasksModel
	habits    habitsModel
	notes     notesModel
	goals     goalsModel
	pomodoro  pomodoroModel
	reports   reportsModel
	settings  settingsModel

	help    help.Model
	status  string
	isError bool
}

func NewApp(opts Options) App {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.ExportDir == "" {
		opts.ExportDir, _ = os.UserHomeDir()
	}
	h := help.New()
	h.ShowAll = false

	applyTheme(opts.Workspace.UI.Theme())
	setMarkdownDark(opts.Workspace.UI.Theme() == state.ThemeDark)

	ws, e, now := opts.Workspace, opts.Engine, opts.Now
	return App{
		ws:         ws,
		engine:     e,
		exportDir:  opts.ExportDir,
		now:        now,
		activeView: viewFromKey(ws.UI.View()),
		dashboard:  newDashboardModel(ws, e, now),
		tasks:      newTasksModel(ws),
		habits:     newHabitsModel(ws, now),
		notes:      newNotesModel(ws),
		goals:      newGoalsModel(ws),
		pomodoro:   newPomodoroModel(e, ws),
		reports:    newReportsModel(ws, now),
		settings:   newSettingsModel(ws, e, now),
		help:       h,
	}
}

func (a App) Init() tea.Cmd {
	return tea.Batch(
		loadCmd(a.ws),
		tickCmd(),
	)
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.help.Width = msg.Width
		contentHeight := a.height - 4 // header + footer
		a.dashboard.setSize(a.width, contentHeight)
		a.tasks.setSize(a.width, contentHeight)
		a.habits.setSize(a.width, contentHeight)
		a.notes.setSize(a.width, contentHeight)
		a.goals.setSize(a.width, contentHeight)
		a.pomodoro.setSize(a.width, contentHeight)
		a.reports.setSize(a.width, contentHeight)
		a.settings.setSize(a.width, contentHeight)
		return a, nil

	case tea.KeyMsg:
		if a.exportPicking {
			return a.updateExportPicker(msg)
		}

		// If a child view is capturing input (e.g. form), delegate first.
		if a.isFormActive() {
			return a.updateActiveView(msg)
		}

		switch {
		case key.Matches(msg, keys.Export):
			a.exportPicking = true
			a.exportCursor = 0
			return a, nil
		case key.Matches(msg, keys.Quit):
			return a, tea.Quit
		case key.Matches(msg, keys.Help):
			a.showHelp = !a.showHelp
			a.help.ShowAll = a.showHelp
			return a, nil
		case key.Matches(msg, keys.Theme):
			t := a.ws.UI.ToggleTheme()
			applyTheme(t)
			setMarkdownDark(t == state.ThemeDark)
			a.reports.buildChart()
			return a, status("Theme: "+string(t), false)
		case key.Matches(msg, keys.Tab):
			return a.switchTo((a.activeView + 1) % viewState(len(viewNames)))
		}
		for i, b := range []key.Binding{keys.Tab1, keys.Tab2, keys.Tab3, keys.Tab4, keys.Tab5, keys.Tab6, keys.Tab7, keys.Tab8} {
			if key.Matches(msg, b) {
				return a.switchTo(viewState(i))
			}
		}

	case tickMsg:
		cmd := a.tick()
		return a, tea.Batch(tickCmd(), cmd)

	case statusMsg:
		a.status = msg.text
		a.isError = msg.isError
		return a, nil

	case committedMsg:
		if msg.err != nil {
			a.status = fmt.Sprintf("Could not %s, change reverted: %v", msg.what, msg.err)
			a.isError = true
		}
		a.reports, _ = a.reports.update(msg)
		return a, nil

	case loadedMsg:
		a.reports, _ = a.reports.update(msg)
		return a, nil

	case authDoneMsg:
		if msg.err != nil {
			a.status = "Account: " + msg.err.Error()
			a.isError = true
			return a, nil
		}
		a.status = msg.text
		a.isError = false
		a.reports.buildChart()
		return a, nil

	case goalsLoadedMsg:
		a.goals, _ = a.goals.update(msg)
		return a, nil

	case exportDoneMsg:
		a.status = "Exported to " + msg.path
		a.isError = false
		a.exportPicking = false
		return a, nil
	}

	return a.updateActiveView(msg)
}

// tick advances the pomodoro engine. A finished phase with a linked item
// brings the Pomodoro view forward so the prompt can be answered.
func (a *App) tick() tea.Cmd {
	ev, ok := a.engine.Tick()
	if !ok {
		return nil
	}
	text := fmt.Sprintf("%s finished. Next: %s \a", ev.From, ev.To)
	if ev.Prompt {
		text = "Work session finished. Did you complete it? \a"
		if !a.isFormActive() {
			a.activeView = viewPomodoro
			a.ws.UI.SetView(viewKeys[viewPomodoro])
		}
	}
	return status(text, false)
}

func (a App) switchTo(v viewState) (tea.Model, tea.Cmd) {
	a.activeView = v
	a.ws.UI.SetView(viewKeys[v])
	if v == viewReports {
		a.reports.buildChart()
	}
	return a, nil
}

func (a App) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch a.activeView {
	case viewTasks:
		a.tasks, cmd = a.tasks.update(msg)
	case viewHabits:
		a.habits, cmd = a.habits.update(msg)
	case viewNotes:
		a.notes, cmd = a.notes.update(msg)
	case viewGoals:
		a.goals, cmd = a.goals.update(msg)
	case viewPomodoro:
		a.pomodoro, cmd = a.pomodoro.update(msg)
	case viewReports:
		a.reports, cmd = a.reports.update(msg)
	case viewSettings:
		a.settings, cmd = a.settings.update(msg)
	}
	return a, cmd
}

func (a App) isFormActive() bool {
	switch a.activeView {
	case viewTasks:
		return a.tasks.formActive
	case viewHabits:
		return a.habits.formActive
	case viewNotes:
		return a.notes.formActive || a.notes.editing
	case viewGoals:
		return a.goals.formActive
	case viewPomodoro:
		return a.pomodoro.formActive()
	case viewSettings:
		return a.settings.formActive
	}
	return false
}

func (a App) View() string {
	if a.width == 0 {
		return "Loading..."
	}

	header := a.renderHeader()
	footer := a.renderFooter()

	var content string
	switch a.activeView {
	case viewDashboard:
		content = a.dashboard.view()
	case viewTasks:
		content = a.tasks.view()
	case viewHabits:
		content = a.habits.view()
	case viewNotes:
		content = a.notes.view()
	case viewGoals:
		content = a.goals.view()
	case viewPomodoro:
		content = a.pomodoro.view()
	case viewReports:
		content = a.reports.view()
	case viewSettings:
		content = a.settings.view()
	}

	headerHeight := lipgloss.Height(header)
	footerHeight := lipgloss.Height(footer)
	contentHeight := max(a.height-headerHeight-footerHeight, 1)

	if a.exportPicking {
		content = a.renderExportPicker()
	}

	content = lipgloss.NewStyle().
		Width(a.width).
		Height(contentHeight).
		Render(content)

	return lipgloss.JoinVertical(lipgloss.Left, header, content, footer)
}

func (a App) renderHeader() string {
	var tabs []string
	for i, name := range viewNames {
		if viewState(i) == a.activeView {
			tabs = append(tabs, activeTabStyle.Render(name))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(name))
		}
	}

	tabRow := lipgloss.JoinHorizontal(lipgloss.Bottom, tabs...)

	title := lipgloss.NewStyle().Bold(true).Foreground(colorPrimary).Render("tempo")
	gap := max(a.width-lipgloss.Width(title)-lipgloss.Width(tabRow)-4, 1)
	spacer := lipgloss.NewStyle().Width(gap).Render("")

	return headerStyle.Render(
		lipgloss.JoinHorizontal(lipgloss.Bottom, title, spacer, tabRow),
	)
}

func (a App) renderFooter() string {
	helpView := a.help.View(keys)

	status := ""
	if a.status != "" {
		style := mutedStyle
		if a.isError {
			style = errorStyle
		}
		status = style.Render(" " + a.status)
	}

	// Pomodoro indicator in footer
	timerInfo := ""
	if st := a.engine.State(); st.Running {
		timerInfo = successStyle.Render(" ● " + formatPomodoroTime(st.Left))
	} else if st.Prompt {
		timerInfo = warningStyle.Render(" ? awaiting answer")
	}

	left := footerStyle.Render(helpView)
	right := timerInfo + status

	gap := max(a.width-lipgloss.Width(left)-lipgloss.Width(right)-2, 1)
	spacer := lipgloss.NewStyle().Width(gap).Render("")

	return lipgloss.JoinHorizontal(lipgloss.Bottom, left, spacer, right)
}

func (a App) renderExportPicker() string {
	title := titleStyle.Render("Export Format")
	formats := []string{"CSV (habit logs)", "JSON (everything)"}
	var rows []string
	rows = append(rows, title)
	rows = append(rows, "")
	for i, f := range formats {
		cursor := "  "
		style := normalItemStyle
		if i == a.exportCursor {
			cursor = "> "
			style = selectedItemStyle
		}
		rows = append(rows, style.Render(cursor+f))
	}
	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render("  enter: export  esc: cancel"))

	w := a.width - 4
	return activePanelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (a App) updateExportPicker(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Up):
		if a.exportCursor > 0 {
			a.exportCursor--
		}
	case key.Matches(msg, keys.Down):
		if a.exportCursor < 1 {
			a.exportCursor++
		}
	case key.Matches(msg, keys.Enter):
		a.exportPicking = false
		return a, a.doExport(a.exportCursor)
	case key.Matches(msg, keys.Back):
		a.exportPicking = false
	}
	return a, nil
}

func (a App) doExport(format int) tea.Cmd {
	snap := export.FromWorkspace(a.ws)
	dir := a.exportDir
	dateStr := a.now().Format("2006-01-02")
	return func() tea.Msg {
		var path string
		if format == 0 {
			path = filepath.Join(dir, fmt.Sprintf("tempo-export-%s.csv", dateStr))
			if err := export.ToCSV(snap.Habits, snap.Logs, path); err != nil {
				return statusMsg{text: fmt.Sprintf("CSV error: %v", err), isError: true}
			}
		} else {
			path = filepath.Join(dir, fmt.Sprintf("tempo-export-%s.json", dateStr))
			if err := export.ToJSON(snap, path); err != nil {
				return statusMsg{text: fmt.Sprintf("JSON error: %v", err), isError: true}
			}
		}
		return exportDoneMsg{path: path}
	}
}
