package state

import (
	"sync"

	"github.com/charmbracelet/log"

	"github.com/sadopc/tempo/internal/mirror"
)

type Theme string

const (
	ThemeDark  Theme = "dark"
	ThemeLight Theme = "light"
)

type uiState struct {
	View  string `json:"view"`
	Theme Theme  `json:"theme"`
}

// UI remembers the active view and theme between runs.
type UI struct {
	mu  sync.Mutex
	s   uiState
	m   *mirror.Mirror
	log *log.Logger
}

func NewUI(m *mirror.Mirror, logger *log.Logger) *UI {
	u := &UI{s: uiState{Theme: ThemeDark}, m: m, log: logger}
	var saved uiState
	if m.Read(mirror.KeyUI, &saved) {
		u.s.View = saved.View
		if saved.Theme == ThemeLight || saved.Theme == ThemeDark {
			u.s.Theme = saved.Theme
		}
	}
	return u
}

func (u *UI) View() string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.s.View
}

func (u *UI) SetView(v string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.s.View == v {
		return
	}
	u.s.View = v
	u.persistLocked()
}

func (u *UI) Theme() Theme {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.s.Theme
}

// SetTheme ignores unknown themes.
func (u *UI) SetTheme(t Theme) {
	if t != ThemeDark && t != ThemeLight {
		return
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	u.s.Theme = t
	u.persistLocked()
}

func (u *UI) ToggleTheme() Theme {
	next := ThemeLight
	if u.Theme() == ThemeLight {
		next = ThemeDark
	}
	u.SetTheme(next)
	return next
}

func (u *UI) persistLocked() {
	if err := u.m.Write(mirror.KeyUI, u.s); err != nil {
		u.log.Warn("mirror write failed", "key", mirror.KeyUI, "err", err)
	}
}
