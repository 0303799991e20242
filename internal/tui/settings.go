package tui

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/tempo/internal/pomodoro"
	"github.com/sadopc/tempo/internal/state"
)

type settingsForm int

const (
	settingsFormPomodoro settingsForm = iota
	settingsFormAccount
)

type settingsModel struct {
	ws     *state.Workspace
	engine *pomodoro.Engine
	now    func() time.Time
	width  int
	height int

	formActive bool
	formKind   settingsForm
	form       *huh.Form

	// Form values as pointers (survive value copies)
	pomodoroWork      *string
	pomodoroBreak     *string
	pomodoroLongBreak *string
	pomodoroCount     *string
	autoAdvance       *bool
	signUp            *bool
	email             *string
	password          *string
}

func newSettingsModel(ws *state.Workspace, e *pomodoro.Engine, now func() time.Time) settingsModel {
	pw, pb, plb, pc := "", "", "", ""
	email, password := "", ""
	auto, signUp := false, false
	return settingsModel{
		ws:                ws,
		engine:            e,
		now:               now,
		pomodoroWork:      &pw,
		pomodoroBreak:     &pb,
		pomodoroLongBreak: &plb,
		pomodoroCount:     &pc,
		autoAdvance:       &auto,
		signUp:            &signUp,
		email:             &email,
		password:          &password,
	}
}

func (s *settingsModel) setSize(w, h int) {
	s.width = w
	s.height = h
}

// authDoneMsg reports a finished sign in, sign up or sign out.
type authDoneMsg struct {
	text string
	err  error
}

func (s settingsModel) update(msg tea.Msg) (settingsModel, tea.Cmd) {
	if s.formActive && s.form != nil {
		return s.updateForm(msg)
	}

	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(msg, keys.Enter), key.Matches(msg, keys.Edit):
			return s.showPomodoroForm()
		case key.Matches(msg, keys.Login):
			if _, ok := s.ws.Auth.Session(); ok {
				return s, s.logout()
			}
			return s.showAccountForm()
		}
	}
	return s, nil
}

func (s settingsModel) showPomodoroForm() (settingsModel, tea.Cmd) {
	cur := s.engine.Settings()
	*s.pomodoroWork = durToMin(cur.Work)
	*s.pomodoroBreak = durToMin(cur.Break)
	*s.pomodoroLongBreak = durToMin(cur.LongBreak)
	*s.pomodoroCount = strconv.Itoa(cur.Cadence)
	*s.autoAdvance = cur.AutoAdvance

	s.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Pomodoro work (min)").Value(s.pomodoroWork).Validate(validMinutes),
			huh.NewInput().Title("Pomodoro break (min)").Value(s.pomodoroBreak).Validate(validMinutes),
			huh.NewInput().Title("Long break (min)").Value(s.pomodoroLongBreak).Validate(validMinutes),
			huh.NewInput().Title("Pomodoros before long break").Value(s.pomodoroCount).Validate(validCadence),
			huh.NewConfirm().Title("Start the next phase automatically?").Value(s.autoAdvance),
		).Title("Pomodoro"),
	).WithShowHelp(true).WithShowErrors(true)

	s.formKind = settingsFormPomodoro
	s.formActive = true
	return s, s.form.Init()
}

func (s settingsModel) showAccountForm() (settingsModel, tea.Cmd) {
	*s.signUp = false
	*s.password = ""

	s.form = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[bool]().Title("Account").
				Options(
					huh.NewOption("Sign in", false),
					huh.NewOption("Create account", true),
				).Value(s.signUp),
			huh.NewInput().Title("Email").Value(s.email).Validate(required),
			huh.NewInput().Title("Password").EchoMode(huh.EchoModePassword).Value(s.password).Validate(required),
		).Title("Account"),
	).WithShowHelp(true).WithShowErrors(true)

	s.formKind = settingsFormAccount
	s.formActive = true
	return s, s.form.Init()
}

func (s settingsModel) updateForm(msg tea.Msg) (settingsModel, tea.Cmd) {
	form, cmd, res := stepForm(s.form, msg)
	s.form = form
	switch res {
	case formAborted:
		s.formActive = false
	case formDone:
		s.formActive = false
		s.form = nil
		if s.formKind == settingsFormAccount {
			return s, s.authenticate(*s.signUp, *s.email, *s.password)
		}
		return s, s.saveSettings()
	}
	return s, cmd
}

func (s settingsModel) saveSettings() tea.Cmd {
	work, err1 := minToDur(*s.pomodoroWork)
	brk, err2 := minToDur(*s.pomodoroBreak)
	long, err3 := minToDur(*s.pomodoroLongBreak)
	cadence, err4 := strconv.Atoi(strings.TrimSpace(*s.pomodoroCount))
	if err := errors.Join(err1, err2, err3, err4); err != nil {
		return status("Settings not saved: "+err.Error(), true)
	}
	err := s.engine.SetSettings(pomodoro.Settings{
		Work:        work,
		Break:       brk,
		LongBreak:   long,
		Cadence:     cadence,
		AutoAdvance: *s.autoAdvance,
	})
	if err != nil {
		return status("Settings not saved: "+err.Error(), true)
	}
	return status("Settings saved", false)
}

func (s settingsModel) authenticate(signUp bool, email, password string) tea.Cmd {
	ws := s.ws
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commitTimeout)
		defer cancel()
		var err error
		if signUp {
			err = ws.Auth.SignUp(ctx, email, password)
		} else {
			err = ws.Auth.Login(ctx, email, password)
		}
		if err != nil {
			return authDoneMsg{err: err}
		}
		ws.Load(ctx)
		return authDoneMsg{text: "Signed in as " + strings.TrimSpace(email)}
	}
}

func (s settingsModel) logout() tea.Cmd {
	ws := s.ws
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commitTimeout)
		defer cancel()
		if err := ws.Logout(ctx); err != nil {
			return authDoneMsg{err: err}
		}
		return authDoneMsg{text: "Signed out"}
	}
}

func (s settingsModel) view() string {
	w := s.width - 4
	title := titleStyle.Render("Settings")

	if s.formActive && s.form != nil {
		return panelStyle.Width(w).Render(
			lipgloss.JoinVertical(lipgloss.Left, title, "", s.form.View()),
		)
	}

	cur := s.engine.Settings()
	rows := []string{title, ""}
	row := func(label, value string) {
		l := lipgloss.NewStyle().Width(28).Render(label)
		rows = append(rows, fmt.Sprintf("  %s %s", l, highlightStyle.Render(value)))
	}
	row("Pomodoro work", formatMinutes(cur.Work))
	row("Pomodoro break", formatMinutes(cur.Break))
	row("Long break", formatMinutes(cur.LongBreak))
	row("Pomodoros before long break", strconv.Itoa(cur.Cadence))
	row("Auto-advance", strconv.FormatBool(cur.AutoAdvance))
	row("Theme", string(s.ws.UI.Theme()))

	rows = append(rows, "")
	if sess, ok := s.ws.Auth.Session(); ok {
		row("Account", sess.Email)
		row("Session expires", sess.ExpiresAt.In(s.now().Location()).Format("Jan 02, 2006 15:04"))
	} else {
		row("Account", "offline")
	}
	row("Level", fmt.Sprintf("%d (%d XP)", s.ws.Progress.Level(), s.ws.Progress.XP()))

	rows = append(rows, "", mutedStyle.Render("  enter: edit pomodoro  a: sign in/out  t: theme"))
	return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func validMinutes(s string) error {
	d, err := minToDur(s)
	if err != nil {
		return err
	}
	if d < time.Second {
		return errors.New("must be at least one second")
	}
	return nil
}

func validCadence(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return errors.New("must be a whole number, at least 1")
	}
	return nil
}

func durToMin(d time.Duration) string {
	return strconv.FormatFloat(d.Minutes(), 'f', -1, 64)
}

func minToDur(s string) (time.Duration, error) {
	mins, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("%q is not a number of minutes", s)
	}
	return time.Duration(mins * float64(time.Minute)).Round(time.Second), nil
}

func formatMinutes(d time.Duration) string {
	if d%time.Minute == 0 {
		return fmt.Sprintf("%d min", int(d.Minutes()))
	}
	return d.String()
}
