package pomodoro

import (
	"time"

	"github.com/sadopc/tempo/internal/mirror"
)

// saved is the mirrored form of the settings and counters.
type saved struct {
	WorkSeconds       int   `json:"workSeconds"`
	BreakSeconds      int   `json:"breakSeconds"`
	LongBreakSeconds  int   `json:"longBreakSeconds"`
	Cadence           int   `json:"sessionsUntilLongBreak"`
	AutoAdvance       bool  `json:"autoAdvance"`
	UntilLongBreak    int   `json:"untilLongBreak"`
	CompletedSessions int   `json:"completedSessions"`
	CompletedBreaks   int   `json:"completedBreaks"`
	TotalWorkSeconds  int64 `json:"totalWorkSeconds"`
}

func (e *Engine) restore() {
	var s saved
	if !e.m.Read(mirror.KeyPomodoro, &s) {
		return
	}
	settings := Settings{
		Work:        time.Duration(s.WorkSeconds) * time.Second,
		Break:       time.Duration(s.BreakSeconds) * time.Second,
		LongBreak:   time.Duration(s.LongBreakSeconds) * time.Second,
		Cadence:     s.Cadence,
		AutoAdvance: s.AutoAdvance,
	}
	if settings.Validate() != nil {
		e.log.Warn("ignoring invalid saved pomodoro settings")
		return
	}
	e.settings = settings
	e.untilLong = s.UntilLongBreak
	if e.untilLong < 1 || e.untilLong > settings.Cadence {
		e.untilLong = settings.Cadence
	}
	e.sessions = max(s.CompletedSessions, 0)
	e.breaks = max(s.CompletedBreaks, 0)
	e.workSecs = max(s.TotalWorkSeconds, 0)
}

func (e *Engine) persistLocked() {
	s := saved{
		WorkSeconds:       int(e.settings.Work / time.Second),
		BreakSeconds:      int(e.settings.Break / time.Second),
		LongBreakSeconds:  int(e.settings.LongBreak / time.Second),
		Cadence:           e.settings.Cadence,
		AutoAdvance:       e.settings.AutoAdvance,
		UntilLongBreak:    e.untilLong,
		CompletedSessions: e.sessions,
		CompletedBreaks:   e.breaks,
		TotalWorkSeconds:  e.workSecs,
	}
	if err := e.m.Write(mirror.KeyPomodoro, s); err != nil {
		e.log.Warn("mirror write failed", "key", mirror.KeyPomodoro, "err", err)
	}
}
