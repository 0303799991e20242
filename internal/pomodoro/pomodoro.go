// Package pomodoro is the countdown engine behind the Pomodoro view. It is
// driven by one Tick per second and never reads the wall clock itself.
package pomodoro

import (
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/sadopc/tempo/internal/dates"
	"github.com/sadopc/tempo/internal/logger"
	"github.com/sadopc/tempo/internal/mirror"
	"github.com/sadopc/tempo/internal/models"
	"github.com/sadopc/tempo/internal/state"
)

type Phase string

const (
	Work      Phase = "work"
	Break     Phase = "break"
	LongBreak Phase = "long_break"
)

func (p Phase) String() string {
	switch p {
	case Work:
		return "WORK"
	case Break:
		return "SHORT BREAK"
	case LongBreak:
		return "LONG BREAK"
	}
	return string(p)
}

const DefaultCadence = 4

var ErrInvalidSettings = errors.New("durations must be at least one second and the cadence at least one")

type Settings struct {
	Work      time.Duration
	Break     time.Duration
	LongBreak time.Duration
	// Cadence is the number of work phases per long break.
	Cadence     int
	AutoAdvance bool
}

func DefaultSettings() Settings {
	return Settings{
		Work:      25 * time.Minute,
		Break:     5 * time.Minute,
		LongBreak: 15 * time.Minute,
		Cadence:   DefaultCadence,
	}
}

func (s Settings) Validate() error {
	if s.Work < time.Second || s.Break < time.Second || s.LongBreak < time.Second || s.Cadence < 1 {
		return ErrInvalidSettings
	}
	return nil
}

// Duration returns the configured length of p.
func (s Settings) Duration(p Phase) time.Duration {
	switch p {
	case Break:
		return s.Break
	case LongBreak:
		return s.LongBreak
	}
	return s.Work
}

type LinkKind string

const (
	LinkTask  LinkKind = "task"
	LinkHabit LinkKind = "habit"
)

// Link is the task or habit a work session is dedicated to.
type Link struct {
	Kind      LinkKind
	ID        string
	HabitKind models.HabitKind
	Label     string
}

// Event describes a finished phase.
type Event struct {
	From Phase
	To   Phase
	// Prompt is set when a linked item awaits Confirm or Decline.
	Prompt  bool
	Skipped bool
}

// State is a snapshot of the engine.
type State struct {
	Phase             Phase
	Left              time.Duration
	Running           bool
	UntilLongBreak    int
	CompletedSessions int
	CompletedBreaks   int
	TotalWork         time.Duration
	Prompt            bool
	Link              *Link
}

// TaskCompleter marks tasks done.
type TaskCompleter interface {
	Complete(id string) state.Commit
}

// HabitLogger records habit progress.
type HabitLogger interface {
	Toggle(habitID string, day dates.Day) state.Commit
	Increment(habitID string, amount float64) state.Commit
}

type Options struct {
	Mirror *mirror.Mirror
	Logger *log.Logger
	Tasks  TaskCompleter
	Habits HabitLogger
	Now    func() time.Time
}

type Engine struct {
	mu sync.Mutex

	settings  Settings
	phase     Phase
	left      int
	running   bool
	untilLong int
	sessions  int
	breaks    int
	workSecs  int64
	link      *Link
	prompt    bool

	m      *mirror.Mirror
	log    *log.Logger
	tasks  TaskCompleter
	habits HabitLogger
	now    func() time.Time
}

// New restores settings and counters from the mirror and starts paused at
// the beginning of a work phase.
func New(opts Options) *Engine {
	if opts.Logger == nil {
		opts.Logger = logger.Discard()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	e := &Engine{
		settings: DefaultSettings(),
		phase:    Work,
		m:        opts.Mirror,
		log:      opts.Logger,
		tasks:    opts.Tasks,
		habits:   opts.Habits,
		now:      opts.Now,
	}
	e.untilLong = e.settings.Cadence
	e.restore()
	e.left = e.fullLocked()
	return e
}

func (e *Engine) fullLocked() int {
	return int(e.settings.Duration(e.phase) / time.Second)
}

func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := State{
		Phase:             e.phase,
		Left:              time.Duration(e.left) * time.Second,
		Running:           e.running,
		UntilLongBreak:    e.untilLong,
		CompletedSessions: e.sessions,
		CompletedBreaks:   e.breaks,
		TotalWork:         time.Duration(e.workSecs) * time.Second,
		Prompt:            e.prompt,
	}
	if e.link != nil {
		l := *e.link
		s.Link = &l
	}
	return s
}

func (e *Engine) Settings() Settings {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.settings
}

// SetSettings replaces the settings. A paused engine restarts the current
// phase at its new length.
func (e *Engine) SetSettings(s Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.settings = s
	if e.untilLong > s.Cadence {
		e.untilLong = s.Cadence
	}
	if !e.running {
		e.left = e.fullLocked()
	}
	e.persistLocked()
	return nil
}

// Toggle starts or pauses the countdown without touching the time left.
func (e *Engine) Toggle() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		e.running = false
		e.persistLocked()
		return false
	}
	if e.left <= 0 {
		e.left = e.fullLocked()
	}
	e.running = true
	return true
}

func (e *Engine) Start() {
	if !e.Running() {
		e.Toggle()
	}
}

func (e *Engine) Pause() {
	if e.Running() {
		e.Toggle()
	}
}

func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// Reset stops the countdown and restores the current phase's full length.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.running = false
	e.left = e.fullLocked()
	e.persistLocked()
}

// Tick advances a running countdown by one second. It reports an Event when
// the tick finished the phase.
func (e *Engine) Tick() (Event, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.running || e.left <= 0 {
		return Event{}, false
	}
	e.left--
	if e.phase == Work {
		e.workSecs++
	}
	if e.left > 0 {
		return Event{}, false
	}
	return e.completeLocked(false), true
}

// Skip finishes the current phase now. Counters are left alone and no prompt
// is raised.
func (e *Engine) Skip() Event {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.completeLocked(true)
}

func (e *Engine) completeLocked(skipped bool) Event {
	ev := Event{From: e.phase, Skipped: skipped}
	if e.phase == Work {
		if !skipped {
			e.sessions++
			if e.link != nil {
				e.prompt = true
				ev.Prompt = true
			}
		}
		if e.untilLong <= 1 {
			e.phase = LongBreak
			e.untilLong = e.settings.Cadence
		} else {
			e.phase = Break
			e.untilLong--
		}
	} else {
		if !skipped {
			e.breaks++
		}
		e.phase = Work
	}
	ev.To = e.phase
	e.left = e.fullLocked()
	e.running = e.running && e.settings.AutoAdvance && !e.prompt
	e.persistLocked()
	if !skipped {
		e.log.Info("pomodoro phase finished", "from", ev.From, "to", ev.To)
	}
	return ev
}

// Select dedicates the following work sessions to l. A nil link clears it.
func (e *Engine) Select(l *Link) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if l == nil {
		e.link = nil
		e.prompt = false
		return
	}
	cp := *l
	e.link = &cp
}

// Confirm resolves the prompt by completing the linked item. Count habits
// add increment to today's value.
func (e *Engine) Confirm(increment float64) state.Commit {
	e.mu.Lock()
	if !e.prompt || e.link == nil {
		e.mu.Unlock()
		return state.Noop
	}
	link := *e.link
	e.resolveLocked()
	e.mu.Unlock()

	switch {
	case link.Kind == LinkTask && e.tasks != nil:
		return e.tasks.Complete(link.ID)
	case link.Kind == LinkHabit && e.habits != nil && link.HabitKind == models.HabitCount:
		return e.habits.Increment(link.ID, increment)
	case link.Kind == LinkHabit && e.habits != nil:
		return e.habits.Toggle(link.ID, dates.Today(e.now))
	}
	return state.Noop
}

// Decline resolves the prompt without touching the linked item.
func (e *Engine) Decline() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.prompt {
		e.resolveLocked()
	}
}

func (e *Engine) resolveLocked() {
	e.prompt = false
	if e.settings.AutoAdvance {
		e.running = true
	}
}
