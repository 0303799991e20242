package state

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"github.com/sadopc/tempo/internal/mirror"
	"github.com/sadopc/tempo/internal/remote"
)

// env is what every container shares.
type env struct {
	mirror *mirror.Mirror
	docs   remote.Documents
	userID func() string
	log    *log.Logger
	now    func() time.Time
}

// remoteUser returns the user to sync for, or "" when the container must
// stay local.
func (e env) remoteUser() string {
	if e.docs == nil {
		return ""
	}
	return e.userID()
}

type loadFlag struct {
	v atomic.Bool
}

// Loading reports whether a Load is in progress.
func (f *loadFlag) Loading() bool { return f.v.Load() }

// load replaces l with the remote list when signed in, and with the mirror
// when signed out or when the fetch fails.
func load[T Entity[T]](ctx context.Context, e env, flag *loadFlag, l *List[T], name string, fetch func(ctx context.Context, userID string) ([]T, error)) {
	flag.v.Store(true)
	defer flag.v.Store(false)

	uid := e.remoteUser()
	if uid == "" {
		l.LoadMirror()
		return
	}
	items, err := fetch(ctx, uid)
	if err != nil {
		e.log.Warn("remote fetch failed, using local copy", "collection", name, "err", err)
		l.LoadMirror()
		return
	}
	l.Replace(items)
}
