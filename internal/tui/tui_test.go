package tui

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sadopc/tempo/internal/dates"
	"github.com/sadopc/tempo/internal/mirror"
	"github.com/sadopc/tempo/internal/models"
	"github.com/sadopc/tempo/internal/pomodoro"
	"github.com/sadopc/tempo/internal/state"
)

// Wednesday.
var testNow = time.Date(2026, time.May, 6, 10, 0, 0, 0, time.Local)

func testClock() time.Time { return testNow }

func newTestWorkspace(t *testing.T) (*state.Workspace, *pomodoro.Engine) {
	t.Helper()
	m, err := mirror.Open(t.TempDir(), "test")
	if err != nil {
		t.Fatalf("open mirror: %v", err)
	}
	ws := state.New(state.Deps{Mirror: m, Now: testClock, NoteDelay: time.Hour})
	t.Cleanup(ws.Notes.Cancel)
	e := pomodoro.New(pomodoro.Options{Mirror: m, Tasks: ws.Tasks, Habits: ws.Habits, Now: testClock})
	return ws, e
}

func newTestApp(t *testing.T) (App, *state.Workspace, *pomodoro.Engine) {
	t.Helper()
	ws, e := newTestWorkspace(t)
	app := NewApp(Options{Workspace: ws, Engine: e, ExportDir: t.TempDir(), Now: testClock})
	m, _ := app.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	t.Cleanup(func() { applyTheme(state.ThemeDark) })
	return m.(App), ws, e
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(t *testing.T, a App, msg tea.KeyMsg) (App, tea.Cmd) {
	t.Helper()
	m, cmd := a.Update(msg)
	return m.(App), cmd
}

// run executes a command that is expected to report a commit.
func run(t *testing.T, cmd tea.Cmd) committedMsg {
	t.Helper()
	if cmd == nil {
		t.Fatal("expected a command")
	}
	raw := cmd()
	msg, ok := raw.(committedMsg)
	if !ok {
		t.Fatalf("expected committedMsg, got %T", raw)
	}
	return msg
}

func addTask(t *testing.T, ws *state.Workspace, text string) models.Task {
	t.Helper()
	if err := ws.Tasks.Add(text)(context.Background()); err != nil {
		t.Fatal(err)
	}
	return ws.Tasks.Items()[0]
}

// ============================================================
// Formatting helpers
// ============================================================

func TestFormatHours(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "0.0h"},
		{time.Hour, "1.0h"},
		{90 * time.Minute, "1.5h"},
		{2 * time.Hour, "2.0h"},
	}
	for _, tt := range tests {
		if got := formatHours(tt.d); got != tt.want {
			t.Errorf("formatHours(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestFormatPomodoroTime(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "00:00"},
		{-time.Second, "00:00"},
		{25 * time.Minute, "25:00"},
		{4*time.Minute + 59*time.Second, "04:59"},
		{90 * time.Minute, "90:00"},
	}
	for _, tt := range tests {
		if got := formatPomodoroTime(tt.d); got != tt.want {
			t.Errorf("formatPomodoroTime(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{"", 0, false},
		{" 2.5 ", 2.5, false},
		{"8", 8, false},
		{"-1", -1, false},
		{"lots", 0, true},
	}
	for _, tt := range tests {
		got, err := parseAmount(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("parseAmount(%q) = %v, %v", tt.in, got, err)
		}
	}
	if nonNegative("-1") == nil || nonNegative("x") == nil || nonNegative("0") != nil {
		t.Error("nonNegative accepted or rejected the wrong values")
	}
	if required("  ") == nil || required("a") != nil {
		t.Error("required accepted or rejected the wrong values")
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("Meditate", 24); got != "Meditate" {
		t.Errorf("short name changed: %q", got)
	}
	if got := truncate("Drink eight glasses of water", 10); got != "Drink eig…" {
		t.Errorf("truncate = %q", got)
	}
}

// ============================================================
// View state
// ============================================================

func TestViewNames(t *testing.T) {
	if len(viewNames) != 8 || len(viewKeys) != len(viewNames) {
		t.Fatalf("expected 8 views, got %d names and %d keys", len(viewNames), len(viewKeys))
	}
	for i, k := range viewKeys {
		if viewFromKey(k) != viewState(i) {
			t.Errorf("viewFromKey(%q) = %d, want %d", k, viewFromKey(k), i)
		}
		if strings.ToLower(viewNames[i]) != k {
			t.Errorf("view %d: name %q does not match key %q", i, viewNames[i], k)
		}
	}
	if viewFromKey("projects") != viewDashboard {
		t.Error("unknown keys should fall back to the dashboard")
	}
}

// ============================================================
// Settings conversions
// ============================================================

func TestMinToDur(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"25", 25 * time.Minute},
		{" 5 ", 5 * time.Minute},
		{"0.5", 30 * time.Second},
		{"0", 0},
	}
	for _, tt := range tests {
		got, err := minToDur(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("minToDur(%q) = %v, %v", tt.in, got, err)
		}
	}
	if _, err := minToDur("abc"); err == nil {
		t.Error("expected error for non-numeric input")
	}
}

func TestDurToMin(t *testing.T) {
	if got := durToMin(25 * time.Minute); got != "25" {
		t.Errorf("durToMin(25m) = %q", got)
	}
	if got := durToMin(90 * time.Second); got != "1.5" {
		t.Errorf("durToMin(90s) = %q", got)
	}
}

func TestSettingsValidators(t *testing.T) {
	if validMinutes("0") == nil || validMinutes("x") == nil || validMinutes("1") != nil {
		t.Error("validMinutes")
	}
	if validCadence("0") == nil || validCadence("1.5") == nil || validCadence("4") != nil {
		t.Error("validCadence")
	}
	if got := formatMinutes(25 * time.Minute); got != "25 min" {
		t.Errorf("formatMinutes = %q", got)
	}
	if got := formatMinutes(90 * time.Second); got != "1m30s" {
		t.Errorf("formatMinutes = %q", got)
	}
}

func TestSettingsSave(t *testing.T) {
	ws, e := newTestWorkspace(t)
	s := newSettingsModel(ws, e, testClock)

	*s.pomodoroWork, *s.pomodoroBreak, *s.pomodoroLongBreak, *s.pomodoroCount = "50", "10", "20", "2"
	*s.autoAdvance = true
	msg := s.saveSettings()().(statusMsg)
	if msg.isError {
		t.Fatalf("save failed: %s", msg.text)
	}
	want := pomodoro.Settings{Work: 50 * time.Minute, Break: 10 * time.Minute, LongBreak: 20 * time.Minute, Cadence: 2, AutoAdvance: true}
	if got := e.Settings(); got != want {
		t.Errorf("settings = %+v, want %+v", got, want)
	}

	*s.pomodoroCount = "0"
	if msg := s.saveSettings()().(statusMsg); !msg.isError {
		t.Error("invalid cadence was accepted")
	}
	if e.Settings() != want {
		t.Error("invalid settings were applied")
	}
}

// ============================================================
// Habit marks
// ============================================================

func TestHabitMark(t *testing.T) {
	boolean := models.Habit{Kind: models.HabitBoolean}
	if got := habitMark(boolean, models.HabitLog{}, false); !strings.Contains(got, "[ ]") {
		t.Errorf("unlogged = %q", got)
	}
	if got := habitMark(boolean, models.HabitLog{Value: 1, Completed: true}, true); !strings.Contains(got, "[x]") {
		t.Errorf("completed = %q", got)
	}
	if got := habitMark(boolean, models.HabitLog{}, true); !strings.Contains(got, "[-]") {
		t.Errorf("marked not done = %q", got)
	}

	count := models.Habit{Kind: models.HabitCount, Target: 8, Unit: "glasses"}
	if got := habitMark(count, models.HabitLog{Value: 2.5}, true); !strings.Contains(got, "2.5/8 glasses") {
		t.Errorf("count = %q", got)
	}
	if got := habitMark(count, models.HabitLog{}, false); !strings.Contains(got, "0/8") {
		t.Errorf("unlogged count = %q", got)
	}
}

// ============================================================
// App model
// ============================================================

func TestNewApp(t *testing.T) {
	app, _, _ := newTestApp(t)

	if app.activeView != viewDashboard {
		t.Fatal("default view should be dashboard")
	}
	if app.showHelp || app.exportPicking || app.isFormActive() {
		t.Fatal("app should start without overlays or forms")
	}
}

func TestAppRestoresView(t *testing.T) {
	ws, e := newTestWorkspace(t)
	ws.UI.SetView("notes")
	app := NewApp(Options{Workspace: ws, Engine: e, Now: testClock})
	if app.activeView != viewNotes {
		t.Fatalf("activeView = %d, want notes", app.activeView)
	}
}

func TestAppTabSwitchPersists(t *testing.T) {
	app, ws, _ := newTestApp(t)

	app, _ = press(t, app, runes("3"))
	if app.activeView != viewHabits || ws.UI.View() != "habits" {
		t.Fatalf("activeView=%d saved=%q", app.activeView, ws.UI.View())
	}
	app, _ = press(t, app, tea.KeyMsg{Type: tea.KeyTab})
	if app.activeView != viewNotes {
		t.Fatalf("tab moved to %d", app.activeView)
	}
	app.activeView = viewSettings
	app, _ = press(t, app, tea.KeyMsg{Type: tea.KeyTab})
	if app.activeView != viewDashboard {
		t.Fatal("tab should wrap to the dashboard")
	}
}

func TestAppViewStates(t *testing.T) {
	app, ws, _ := newTestApp(t)
	addTask(t, ws, "write report")
	if err := ws.Notes.Create("Ideas", "# heading\n\n- one")(context.Background()); err != nil {
		t.Fatal(err)
	}

	for i := range viewNames {
		app.activeView = viewState(i)
		if output := app.View(); output == "" {
			t.Fatalf("view %d rendered empty", i)
		}
	}
}

func TestAppLoadingState(t *testing.T) {
	ws, e := newTestWorkspace(t)
	app := NewApp(Options{Workspace: ws, Engine: e})
	if output := app.View(); output != "Loading..." {
		t.Fatalf("expected 'Loading...', got %q", output)
	}
}

func TestAppRenderHeaderContainsAllTabs(t *testing.T) {
	app, _, _ := newTestApp(t)
	header := app.renderHeader()
	for _, name := range viewNames {
		if !strings.Contains(header, name) {
			t.Fatalf("header missing tab %q", name)
		}
	}
}

func TestAppCommitErrorShowsStatus(t *testing.T) {
	app, _, _ := newTestApp(t)

	m, _ := app.Update(committedMsg{what: "add task", err: errors.New("backend down")})
	app = m.(App)
	if !app.isError || !strings.Contains(app.status, "backend down") {
		t.Fatalf("status = %q (error=%v)", app.status, app.isError)
	}
	if !strings.Contains(app.renderFooter(), "backend down") {
		t.Fatal("footer should contain the status message")
	}

	m, _ = app.Update(committedMsg{what: "add task"})
	if m.(App).status != app.status {
		t.Fatal("a successful commit should not replace the status")
	}
}

func TestAppFormCapturesGlobalKeys(t *testing.T) {
	app, _, _ := newTestApp(t)
	app, _ = press(t, app, runes("2"))
	app, _ = press(t, app, runes("n"))
	if !app.isFormActive() {
		t.Fatal("n should open the new task form")
	}
	app, _ = press(t, app, runes("3"))
	if app.activeView != viewTasks {
		t.Fatal("typing into a form switched views")
	}
	app, _ = press(t, app, tea.KeyMsg{Type: tea.KeyEsc})
	if app.isFormActive() {
		t.Fatal("esc should close the form")
	}
}

func TestAppThemeToggle(t *testing.T) {
	app, ws, _ := newTestApp(t)
	press(t, app, runes("t"))
	if ws.UI.Theme() != state.ThemeLight {
		t.Fatalf("theme = %q", ws.UI.Theme())
	}
	if colorPrimary != lightPalette.primary {
		t.Fatal("styles were not rebuilt for the light theme")
	}
}

func TestAppExport(t *testing.T) {
	app, ws, _ := newTestApp(t)
	addTask(t, ws, "write report")

	for format, ext := range []string{".csv", ".json"} {
		msg, ok := app.doExport(format)().(exportDoneMsg)
		if !ok {
			t.Fatalf("format %d did not export", format)
		}
		if !strings.HasSuffix(msg.path, "tempo-export-2026-05-06"+ext) {
			t.Fatalf("path = %q", msg.path)
		}
		if _, err := os.Stat(msg.path); err != nil {
			t.Fatal(err)
		}
	}
}

// ============================================================
// Views
// ============================================================

func TestTasksToggleAndDelete(t *testing.T) {
	ws, _ := newTestWorkspace(t)
	task := addTask(t, ws, "write report")
	m := newTasksModel(ws)

	m, cmd := m.update(runes("x"))
	if msg := run(t, cmd); msg.err != nil {
		t.Fatal(msg.err)
	}
	if got, _ := ws.Tasks.Find(task.ID); !got.Completed {
		t.Fatal("x did not complete the task")
	}
	if ws.Progress.XP() != state.XPPerTask {
		t.Fatalf("xp = %d", ws.Progress.XP())
	}

	_, cmd = m.update(runes("d"))
	run(t, cmd)
	if len(ws.Tasks.Items()) != 0 {
		t.Fatal("d did not delete the task")
	}
}

func TestTasksKeysOnEmptyList(t *testing.T) {
	ws, _ := newTestWorkspace(t)
	m := newTasksModel(ws)
	for _, k := range []string{"x", "d", "j", "k"} {
		var cmd tea.Cmd
		m, cmd = m.update(runes(k))
		if cmd != nil {
			t.Fatalf("%q on an empty list returned a command", k)
		}
	}
}

func TestHabitsViewOffline(t *testing.T) {
	ws, _ := newTestWorkspace(t)
	m := newHabitsModel(ws, testClock)
	m.setSize(120, 40)
	if !strings.Contains(m.view(), "Sign in") {
		t.Fatal("offline habits view should ask to sign in")
	}

	m, _ = m.update(runes("h"))
	if m.day() != dates.New(2026, time.May, 5) {
		t.Fatalf("day = %v", m.day())
	}
	m, _ = m.update(runes("l"))
	m, _ = m.update(runes("l"))
	if m.day() != dates.New(2026, time.May, 6) {
		t.Fatal("navigated past today")
	}
}

func TestNotesEditorAutosaves(t *testing.T) {
	ws, _ := newTestWorkspace(t)
	if err := ws.Notes.Create("Ideas", "")(context.Background()); err != nil {
		t.Fatal(err)
	}
	m := newNotesModel(ws)
	m.setSize(120, 40)

	m, _ = m.update(tea.KeyMsg{Type: tea.KeyEnter})
	if !m.editing {
		t.Fatal("enter should open the editor")
	}
	m, _ = m.update(runes("a"))
	if got := ws.Notes.Items()[0].Content; got != "a" {
		t.Fatalf("content = %q", got)
	}
	if ws.Notes.Pending() != 1 {
		t.Fatalf("pending = %d", ws.Notes.Pending())
	}
	m, _ = m.update(tea.KeyMsg{Type: tea.KeyEsc})
	if m.editing {
		t.Fatal("esc should close the editor")
	}
}

func TestNotesEditorKeepsBlankTitleOpen(t *testing.T) {
	ws, _ := newTestWorkspace(t)
	if err := ws.Notes.Create("Ab", "")(context.Background()); err != nil {
		t.Fatal(err)
	}
	m := newNotesModel(ws)
	m.setSize(120, 40)

	m, _ = m.update(tea.KeyMsg{Type: tea.KeyEnter})
	m, _ = m.update(tea.KeyMsg{Type: tea.KeyTab})
	m, _ = m.update(tea.KeyMsg{Type: tea.KeyBackspace})
	m, _ = m.update(tea.KeyMsg{Type: tea.KeyBackspace})
	if !m.editing {
		t.Fatal("clearing the title closed the editor")
	}
	if got := ws.Notes.Items()[0].Title; got != "A" {
		t.Fatalf("stored title = %q, want the last non-blank one", got)
	}
	m, _ = m.update(runes("Z"))
	if got := ws.Notes.Items()[0].Title; got != "Z" {
		t.Errorf("title = %q after typing again", got)
	}
}

func TestGoalsYearNavigation(t *testing.T) {
	ws, _ := newTestWorkspace(t)
	m := newGoalsModel(ws)

	_, cmd := m.update(runes("h"))
	msg, ok := cmd().(goalsLoadedMsg)
	if !ok || msg.year != 2025 || ws.Goals.Year() != 2025 {
		t.Fatalf("msg=%+v year=%d", msg, ws.Goals.Year())
	}
}

func TestReportsBuckets(t *testing.T) {
	ws, _ := newTestWorkspace(t)
	r := newReportsModel(ws, testClock)

	daily := r.buckets()
	if len(daily) != dailyBars || daily[len(daily)-1].from != dates.New(2026, time.May, 6) {
		t.Fatalf("daily buckets = %+v", daily)
	}
	if daily[0].from != dates.New(2026, time.April, 30) {
		t.Fatalf("first daily bucket = %v", daily[0].from)
	}

	r.mode = reportWeekly
	weekly := r.buckets()
	last := weekly[len(weekly)-1]
	if len(weekly) != weeklyBars || last.from != dates.New(2026, time.May, 4) || last.to != dates.New(2026, time.May, 11) {
		t.Fatalf("weekly buckets = %+v", weekly)
	}

	r.mode = reportDaily
	r.offset = 1
	if got := r.buckets()[dailyBars-1].from; got != dates.New(2026, time.April, 29) {
		t.Fatalf("previous block ends %v", got)
	}
}

func TestReportsCompletions(t *testing.T) {
	ws, _ := newTestWorkspace(t)
	r := newReportsModel(ws, testClock)
	if n := len(r.completions(dates.New(2026, time.May, 1), dates.New(2026, time.May, 8))); n != 0 {
		t.Fatalf("completions without logs = %d", n)
	}
}

// ============================================================
// Pomodoro view
// ============================================================

func TestPomodoroKeys(t *testing.T) {
	ws, e := newTestWorkspace(t)
	p := newPomodoroModel(e, ws)

	p, _ = p.update(tea.KeyMsg{Type: tea.KeySpace})
	if !e.Running() {
		t.Fatal("space should start the countdown")
	}
	p, _ = p.update(runes("r"))
	if e.Running() {
		t.Fatal("r should reset and stop")
	}
	p.update(runes(">"))
	if e.State().Phase != pomodoro.Break {
		t.Fatalf("phase = %v", e.State().Phase)
	}
}

func TestPomodoroLinkPicker(t *testing.T) {
	ws, e := newTestWorkspace(t)
	addTask(t, ws, "write report")
	p := newPomodoroModel(e, ws)

	p, _ = p.update(runes("f"))
	if !p.formActive() {
		t.Fatal("f should open the picker")
	}
	p, _ = p.update(runes("j"))
	p, _ = p.update(tea.KeyMsg{Type: tea.KeyEnter})
	link := e.State().Link
	if p.formActive() || link == nil || link.Label != "write report" {
		t.Fatalf("link = %+v", link)
	}
}

func TestPomodoroPromptCompletesTask(t *testing.T) {
	app, ws, e := newTestApp(t)
	task := addTask(t, ws, "write report")
	if err := e.SetSettings(pomodoro.Settings{Work: time.Second, Break: time.Second, LongBreak: time.Second, Cadence: 4}); err != nil {
		t.Fatal(err)
	}
	e.Select(&pomodoro.Link{Kind: pomodoro.LinkTask, ID: task.ID, Label: task.Text})
	e.Start()

	m, _ := app.Update(tickMsg(testNow))
	app = m.(App)
	if app.activeView != viewPomodoro || !e.State().Prompt {
		t.Fatalf("view=%d prompt=%v", app.activeView, e.State().Prompt)
	}

	_, cmd := press(t, app, runes("y"))
	if msg := run(t, cmd); msg.err != nil {
		t.Fatal(msg.err)
	}
	if got, _ := ws.Tasks.Find(task.ID); !got.Completed {
		t.Fatal("confirming did not complete the linked task")
	}
	if e.State().Prompt {
		t.Fatal("prompt still pending")
	}
}

func TestPomodoroDecline(t *testing.T) {
	ws, e := newTestWorkspace(t)
	task := addTask(t, ws, "write report")
	e.SetSettings(pomodoro.Settings{Work: time.Second, Break: time.Second, LongBreak: time.Second, Cadence: 4})
	e.Select(&pomodoro.Link{Kind: pomodoro.LinkTask, ID: task.ID})
	e.Start()
	e.Tick()

	p := newPomodoroModel(e, ws)
	p.update(runes("n"))
	if e.State().Prompt {
		t.Fatal("n should decline")
	}
	if got, _ := ws.Tasks.Find(task.ID); got.Completed {
		t.Fatal("declining completed the task")
	}
}

// ============================================================
// Key bindings and styles
// ============================================================

func TestKeyMapHelp(t *testing.T) {
	if len(keys.ShortHelp()) == 0 {
		t.Fatal("short help should have bindings")
	}
	for i, g := range keys.FullHelp() {
		if len(g) == 0 {
			t.Fatalf("full help group %d is empty", i)
		}
	}
}

func TestStylesRender(t *testing.T) {
	for _, theme := range []state.Theme{state.ThemeDark, state.ThemeLight} {
		applyTheme(theme)
		styles := []struct {
			name string
			fn   func() string
		}{
			{"activeTab", func() string { return activeTabStyle.Render("test") }},
			{"inactiveTab", func() string { return inactiveTabStyle.Render("test") }},
			{"panel", func() string { return panelStyle.Render("test") }},
			{"activePanel", func() string { return activePanelStyle.Render("test") }},
			{"timer", func() string { return timerStyle.Render("test") }},
			{"timerRunning", func() string { return timerRunningStyle.Render("test") }},
			{"timerPaused", func() string { return timerPausedStyle.Render("test") }},
			{"title", func() string { return titleStyle.Render("test") }},
			{"subtitle", func() string { return subtitleStyle.Render("test") }},
			{"accent", func() string { return accentStyle.Render("test") }},
			{"success", func() string { return successStyle.Render("test") }},
			{"warning", func() string { return warningStyle.Render("test") }},
			{"error", func() string { return errorStyle.Render("test") }},
			{"muted", func() string { return mutedStyle.Render("test") }},
			{"highlight", func() string { return highlightStyle.Render("test") }},
			{"header", func() string { return headerStyle.Render("test") }},
			{"footer", func() string { return footerStyle.Render("test") }},
			{"selectedItem", func() string { return selectedItemStyle.Render("test") }},
			{"normalItem", func() string { return normalItemStyle.Render("test") }},
		}
		for _, s := range styles {
			if s.fn() == "" {
				t.Fatalf("%s: style %q rendered empty", theme, s.name)
			}
		}
	}
	applyTheme(state.ThemeDark)
}

func TestRenderMarkdown(t *testing.T) {
	if renderMarkdown("", 40) != "" {
		t.Fatal("empty input should render empty")
	}
	if out := renderMarkdown("# Ideas\n\nsome text", 40); !strings.Contains(out, "some text") {
		t.Fatalf("render = %q", out)
	}
}
