package state

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/sadopc/tempo/internal/auth"
	"github.com/sadopc/tempo/internal/models"
	"github.com/sadopc/tempo/internal/remote"
)

var (
	ErrOffline            = errors.New("no remote backend configured")
	ErrMissingCredentials = errors.New("email and password are required")
)

// Auth holds the current session. Its presence decides whether containers
// talk to the remote store.
type Auth struct {
	accounts remote.Accounts
	tokens   auth.TokenStore
	log      *log.Logger
	now      func() time.Time

	mu   sync.RWMutex
	sess models.Session
}

func NewAuth(accounts remote.Accounts, tokens auth.TokenStore, logger *log.Logger, now func() time.Time) *Auth {
	return &Auth{accounts: accounts, tokens: tokens, log: logger, now: now}
}

// Session returns the current session if one is active and unexpired.
func (a *Auth) Session() (models.Session, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if !a.sess.Valid(a.now()) {
		return models.Session{}, false
	}
	return a.sess, true
}

// UserID is empty when signed out.
func (a *Auth) UserID() string {
	s, ok := a.Session()
	if !ok {
		return ""
	}
	return s.UserID
}

func (a *Auth) SignUp(ctx context.Context, email, password string) error {
	return a.authenticate(ctx, email, password, true)
}

func (a *Auth) Login(ctx context.Context, email, password string) error {
	return a.authenticate(ctx, email, password, false)
}

func (a *Auth) authenticate(ctx context.Context, email, password string, signUp bool) error {
	if strings.TrimSpace(email) == "" || password == "" {
		return ErrMissingCredentials
	}
	if a.accounts == nil {
		return ErrOffline
	}
	var (
		sess models.Session
		err  error
	)
	if signUp {
		sess, err = a.accounts.SignUp(ctx, email, password)
	} else {
		sess, err = a.accounts.Login(ctx, email, password)
	}
	if err != nil {
		return err
	}
	a.set(sess)
	if a.tokens != nil {
		if err := a.tokens.Save(sess.Token); err != nil {
			a.log.Warn("could not save session token", "err", err)
		}
	}
	a.log.Info("signed in", "user", sess.UserID)
	return nil
}

// Restore resumes the session saved by an earlier run. It reports false
// without error when there is nothing to resume or the saved token is no
// longer accepted.
func (a *Auth) Restore(ctx context.Context) (bool, error) {
	if a.accounts == nil || a.tokens == nil {
		return false, nil
	}
	token, err := a.tokens.Load()
	if errors.Is(err, auth.ErrNoToken) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load session token: %w", err)
	}
	sess, err := a.accounts.Session(ctx, token)
	if errors.Is(err, remote.ErrUnauthorized) {
		a.log.Info("saved session rejected, clearing it")
		if cerr := a.tokens.Clear(); cerr != nil {
			a.log.Warn("could not clear session token", "err", cerr)
		}
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("resume session: %w", err)
	}
	a.set(sess)
	return true, nil
}

// Logout ends the session. The remote call is best-effort; the local
// session and saved token are always cleared.
func (a *Auth) Logout(ctx context.Context) error {
	sess, ok := a.Session()
	var errs []error
	if ok && a.accounts != nil {
		if err := a.accounts.Logout(ctx, sess.Token); err != nil {
			a.log.Warn("remote logout failed", "err", err)
		}
	}
	if a.tokens != nil {
		if err := a.tokens.Clear(); err != nil {
			errs = append(errs, err)
		}
	}
	a.set(models.Session{})
	return errors.Join(errs...)
}

func (a *Auth) set(s models.Session) {
	a.mu.Lock()
	a.sess = s
	a.mu.Unlock()
}
