package auth

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"

	"github.com/sadopc/tempo/internal/mirror"
)

const (
	keyringService = "tempo"
	keyringUser    = "session"
)

var (
	// ErrNoToken is returned when no session token has been saved.
	ErrNoToken = errors.New("no saved session")
	// ErrKeyringUnavailable is returned when the OS keyring cannot be used.
	ErrKeyringUnavailable = errors.New("OS keyring is not available")
)

// TokenStore persists the current session token between runs.
type TokenStore interface {
	Load() (string, error)
	Save(token string) error
	Clear() error
}

// KeyringTokens keeps the token in the OS keyring.
type KeyringTokens struct{}

func (KeyringTokens) Load() (string, error) {
	token, err := keyring.Get(keyringService, keyringUser)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrNoToken
		}
		return "", fmt.Errorf("%w: %v", ErrKeyringUnavailable, err)
	}
	return token, nil
}

func (KeyringTokens) Save(token string) error {
	if token == "" {
		return errors.New("session token cannot be empty")
	}
	if err := keyring.Set(keyringService, keyringUser, token); err != nil {
		return fmt.Errorf("%w: %v", ErrKeyringUnavailable, err)
	}
	return nil
}

func (KeyringTokens) Clear() error {
	err := keyring.Delete(keyringService, keyringUser)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("%w: %v", ErrKeyringUnavailable, err)
	}
	return nil
}

// MirrorTokens keeps the token in the local mirror under mirror.KeySession.
type MirrorTokens struct {
	M *mirror.Mirror
}

func (t MirrorTokens) Load() (string, error) {
	var token string
	if !t.M.Read(mirror.KeySession, &token) || token == "" {
		return "", ErrNoToken
	}
	return token, nil
}

func (t MirrorTokens) Save(token string) error {
	if token == "" {
		return errors.New("session token cannot be empty")
	}
	return t.M.Write(mirror.KeySession, token)
}

func (t MirrorTokens) Clear() error {
	return t.M.Remove(mirror.KeySession)
}

// FallbackTokens prefers the keyring and falls back to the mirror when the
// keyring is unavailable.
type FallbackTokens struct {
	Primary  TokenStore
	Fallback TokenStore
}

// NewTokenStore returns the keyring-backed store with m as fallback.
func NewTokenStore(m *mirror.Mirror) *FallbackTokens {
	return &FallbackTokens{Primary: KeyringTokens{}, Fallback: MirrorTokens{M: m}}
}

func (f *FallbackTokens) Load() (string, error) {
	token, err := f.Primary.Load()
	if err == nil {
		return token, nil
	}
	if errors.Is(err, ErrNoToken) || errors.Is(err, ErrKeyringUnavailable) {
		return f.Fallback.Load()
	}
	return "", err
}

func (f *FallbackTokens) Save(token string) error {
	if err := f.Primary.Save(token); err != nil {
		if !errors.Is(err, ErrKeyringUnavailable) {
			return err
		}
		return f.Fallback.Save(token)
	}
	// Drop any token an earlier fallback left in the mirror.
	return f.Fallback.Clear()
}

func (f *FallbackTokens) Clear() error {
	err := f.Primary.Clear()
	if errors.Is(err, ErrKeyringUnavailable) {
		err = nil
	}
	return errors.Join(err, f.Fallback.Clear())
}
