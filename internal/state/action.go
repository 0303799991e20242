package state

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
)

// ErrNoSession reports an operation that needs a signed-in user.
var ErrNoSession = errors.New("not signed in")

// Commit runs the remote half of an optimistic action. The local half has
// already been applied when a Commit is returned. Running it more than once
// returns the first result.
type Commit func(ctx context.Context) error

// Noop is the Commit of an action that was rejected before any change.
var Noop Commit = func(context.Context) error { return nil }

// Action describes one optimistic mutation.
type Action struct {
	Name string
	// Apply performs the local change and returns its undo. ok=false means
	// the input was rejected and nothing changed.
	Apply func() (undo func(), ok bool)
	// Remote performs the remote write. It may return a minted id. A nil
	// Remote makes the action local-only.
	Remote func(ctx context.Context) (id string, err error)
	// Reconcile receives a minted id.
	Reconcile func(id string)
	// OnSuccess runs after the remote write succeeds, or at once for
	// local-only actions.
	OnSuccess func()
	// OnConflict runs after a failed remote write has been undone.
	OnConflict func(err error)
}

// Begin applies a locally and returns the Commit that finishes it.
func Begin(logger *log.Logger, a Action) Commit {
	undo, ok := a.Apply()
	if !ok {
		return Noop
	}
	var (
		once   sync.Once
		result error
	)
	return func(ctx context.Context) error {
		once.Do(func() {
			result = finish(ctx, logger, a, undo)
		})
		return result
	}
}

func finish(ctx context.Context, logger *log.Logger, a Action, undo func()) error {
	if a.Remote == nil {
		if a.OnSuccess != nil {
			a.OnSuccess()
		}
		return nil
	}
	id, err := a.Remote(ctx)
	if err != nil {
		if undo != nil {
			undo()
		}
		logger.Error("remote write failed, change reverted", "action", a.Name, "err", err)
		if a.OnConflict != nil {
			a.OnConflict(err)
		}
		return fmt.Errorf("%s: %w", a.Name, err)
	}
	if id != "" && a.Reconcile != nil {
		a.Reconcile(id)
	}
	if a.OnSuccess != nil {
		a.OnSuccess()
	}
	return nil
}

// undoAll chains undos in reverse order.
func undoAll(undos ...func()) func() {
	return func() {
		for i := len(undos) - 1; i >= 0; i-- {
			if undos[i] != nil {
				undos[i]()
			}
		}
	}
}
