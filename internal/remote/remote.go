// Package remote defines the remote collaborator the state containers mirror
// to: a per-collection document store and an account service. Concrete
// backends live in internal/store (SQLite) and the sub-packages of remote.
package remote

import (
	"context"
	"errors"
	"time"

	"github.com/sadopc/tempo/internal/models"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrExists             = errors.New("already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidCollection  = errors.New("invalid collection")
)

type Collection string

const (
	Notes     Collection = "notes"
	Tasks     Collection = "tasks"
	Habits    Collection = "habits"
	HabitLogs Collection = "habit_logs"
	Goals     Collection = "goals"
)

// Collections lists every logical collection.
var Collections = []Collection{Notes, Tasks, Habits, HabitLogs, Goals}

func (c Collection) Valid() bool {
	for _, known := range Collections {
		if c == known {
			return true
		}
	}
	return false
}

// Document is one record in a collection. Fields holds everything except the
// identifying columns.
type Document struct {
	ID        string         `json:"id"`
	UserID    string         `json:"userId"`
	Year      int            `json:"year,omitempty"`
	Fields    map[string]any `json:"fields"`
	CreatedAt time.Time      `json:"createdAt"`
}

// Filter selects documents owned by UserID, optionally limited to one Year.
type Filter struct {
	UserID string
	Year   int
}

// Matches reports whether d passes the filter.
func (f Filter) Matches(d Document) bool {
	if d.UserID != f.UserID {
		return false
	}
	return f.Year == 0 || d.Year == f.Year
}

// Documents is the document-store half of the remote collaborator.
type Documents interface {
	// Create stores doc and returns it with its minted ID and CreatedAt.
	Create(ctx context.Context, c Collection, doc Document) (Document, error)
	// List returns the matching documents, newest first.
	List(ctx context.Context, c Collection, f Filter) ([]Document, error)
	// Update merges fields into the document. Unknown ids and documents owned
	// by another user report ErrNotFound.
	Update(ctx context.Context, c Collection, userID, id string, fields map[string]any) error
	Delete(ctx context.Context, c Collection, userID, id string) error
}

// Accounts is the session-oriented account service.
type Accounts interface {
	SignUp(ctx context.Context, email, password string) (models.Session, error)
	Login(ctx context.Context, email, password string) (models.Session, error)
	// Session resolves a token issued by SignUp or Login.
	Session(ctx context.Context, token string) (models.Session, error)
	Logout(ctx context.Context, token string) error
}

// Backend is a complete remote collaborator.
type Backend interface {
	Documents
	Accounts
	Close() error
}

// Compose joins independently constructed halves into a Backend.
func Compose(docs Documents, accounts Accounts, closers ...func() error) Backend {
	return &composite{Documents: docs, Accounts: accounts, closers: closers}
}

type composite struct {
	Documents
	Accounts
	closers []func() error
}

func (c *composite) Close() error {
	var errs []error
	for _, fn := range c.closers {
		if fn == nil {
			continue
		}
		if err := fn(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
