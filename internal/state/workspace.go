package state

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/sadopc/tempo/internal/auth"
	"github.com/sadopc/tempo/internal/logger"
	"github.com/sadopc/tempo/internal/mirror"
	"github.com/sadopc/tempo/internal/remote"
)

// Deps configures a Workspace.
type Deps struct {
	// Backend is the remote store. Nil runs the workspace offline.
	Backend remote.Backend
	Mirror  *mirror.Mirror
	Tokens  auth.TokenStore
	Logger  *log.Logger
	Now     func() time.Time
	// NoteDelay overrides AutosaveDelay.
	NoteDelay time.Duration
	AfterFunc AfterFunc
}

// Workspace is the set of containers for one running session.
type Workspace struct {
	Auth     *Auth
	Tasks    *Tasks
	Notes    *Notes
	Habits   *Habits
	Goals    *Goals
	UI       *UI
	Progress *Progress

	log *log.Logger
}

func New(d Deps) *Workspace {
	if d.Logger == nil {
		d.Logger = logger.Discard()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	var (
		docs     remote.Documents
		accounts remote.Accounts
	)
	if d.Backend != nil {
		docs = d.Backend
		accounts = d.Backend
	}
	a := NewAuth(accounts, d.Tokens, d.Logger, d.Now)
	e := env{
		mirror: d.Mirror,
		docs:   docs,
		userID: a.UserID,
		log:    d.Logger,
		now:    d.Now,
	}
	progress := NewProgress(d.Mirror, d.Logger)
	return &Workspace{
		Auth:     a,
		Tasks:    newTasks(e, progress),
		Notes:    newNotes(e, d.NoteDelay, d.AfterFunc),
		Habits:   newHabits(e),
		Goals:    newGoals(e),
		UI:       NewUI(d.Mirror, d.Logger),
		Progress: progress,
		log:      d.Logger,
	}
}

// Start resumes a saved session, if any, and loads every container. It
// reports whether a session is active.
func (w *Workspace) Start(ctx context.Context) bool {
	ok, err := w.Auth.Restore(ctx)
	if err != nil {
		w.log.Warn("could not resume session, working offline", "err", err)
	}
	w.Load(ctx)
	return ok
}

// Load refreshes every container for the current user.
func (w *Workspace) Load(ctx context.Context) {
	w.Tasks.Load(ctx)
	w.Notes.Load(ctx)
	w.Habits.Load(ctx)
	w.Goals.Load(ctx, w.Goals.Year())
}

// Loading reports whether any container is loading.
func (w *Workspace) Loading() bool {
	return w.Tasks.Loading() || w.Notes.Loading() || w.Habits.Loading() || w.Goals.Loading()
}

// Logout saves pending note edits, ends the session and drops the in-memory
// lists. The mirror keeps the last known state.
func (w *Workspace) Logout(ctx context.Context) error {
	w.Notes.Flush(ctx)
	err := w.Auth.Logout(ctx)
	w.Tasks.Reset()
	w.Notes.Reset()
	w.Habits.Reset()
	w.Goals.Reset()
	return err
}

// Close saves pending note edits.
func (w *Workspace) Close(ctx context.Context) {
	w.Notes.Flush(ctx)
}
