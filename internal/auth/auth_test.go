package auth

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/zalando/go-keyring"
	"golang.org/x/crypto/bcrypt"

	"github.com/sadopc/tempo/internal/mirror"
	"github.com/sadopc/tempo/internal/remote"
)

type memCredentials struct {
	mu      sync.Mutex
	creds   map[string]Credential
	revoked map[string]time.Time
}

func newMemCredentials() *memCredentials {
	return &memCredentials{creds: map[string]Credential{}, revoked: map[string]time.Time{}}
}

func (m *memCredentials) PutCredential(_ context.Context, c Credential) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.creds[c.Email]; ok {
		return remote.ErrExists
	}
	m.creds[c.Email] = c
	return nil
}

func (m *memCredentials) GetCredential(_ context.Context, email string) (Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.creds[email]
	if !ok {
		return Credential{}, remote.ErrNotFound
	}
	return c, nil
}

func (m *memCredentials) RevokeToken(_ context.Context, id string, until time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revoked[id] = until
	return nil
}

func (m *memCredentials) TokenRevoked(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.revoked[id]
	return ok, nil
}

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func newTestService(t *testing.T, opts ...Option) (*Service, *memCredentials) {
	t.Helper()
	store := newMemCredentials()
	opts = append([]Option{WithHashCost(bcrypt.MinCost)}, opts...)
	svc, err := New(store, testSecret, opts...)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, store
}

// ============================================================
// Service
// ============================================================

func TestNewRejectsShortSecret(t *testing.T) {
	if _, err := New(newMemCredentials(), []byte("short")); !errors.Is(err, ErrShortSecret) {
		t.Fatalf("expected ErrShortSecret, got %v", err)
	}
}

func TestSignUpIssuesSession(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	sess, err := svc.SignUp(ctx, "  Ada@Example.com ", "correct horse")
	if err != nil {
		t.Fatal(err)
	}
	if sess.Token == "" || sess.UserID == "" {
		t.Fatalf("incomplete session: %+v", sess)
	}
	if sess.Email != "ada@example.com" {
		t.Fatalf("email not normalised: %q", sess.Email)
	}
	cred, err := store.GetCredential(ctx, "ada@example.com")
	if err != nil {
		t.Fatal(err)
	}
	if cred.PasswordHash == "correct horse" || !strings.HasPrefix(cred.PasswordHash, "$2") {
		t.Fatalf("password not hashed: %q", cred.PasswordHash)
	}

	got, err := svc.Session(ctx, sess.Token)
	if err != nil {
		t.Fatal(err)
	}
	if got.UserID != sess.UserID || got.Email != sess.Email {
		t.Fatalf("session mismatch: %+v vs %+v", got, sess)
	}
}

func TestSignUpValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.SignUp(ctx, "not-an-email", "longenough"); !errors.Is(err, ErrInvalidEmail) {
		t.Fatalf("expected ErrInvalidEmail, got %v", err)
	}
	if _, err := svc.SignUp(ctx, "a@b.io", "short"); !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("expected ErrWeakPassword, got %v", err)
	}
}

func TestSignUpDuplicate(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	if _, err := svc.SignUp(ctx, "a@b.io", "password1"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.SignUp(ctx, "A@B.io", "password2"); !errors.Is(err, remote.ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}
}

func TestLogin(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	signed, _ := svc.SignUp(ctx, "a@b.io", "password1")

	sess, err := svc.Login(ctx, "A@b.io", "password1")
	if err != nil {
		t.Fatal(err)
	}
	if sess.UserID != signed.UserID {
		t.Fatalf("login resolved another user: %s vs %s", sess.UserID, signed.UserID)
	}
	if _, err := svc.Login(ctx, "a@b.io", "wrong-password"); !errors.Is(err, remote.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.Login(ctx, "nobody@b.io", "password1"); !errors.Is(err, remote.ErrInvalidCredentials) {
		t.Fatalf("unknown email should report ErrInvalidCredentials, got %v", err)
	}
}

func TestLogoutRevokes(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	sess, _ := svc.SignUp(ctx, "a@b.io", "password1")

	if err := svc.Logout(ctx, sess.Token); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Session(ctx, sess.Token); !errors.Is(err, remote.ErrUnauthorized) {
		t.Fatalf("revoked token should be unauthorized, got %v", err)
	}
}

func TestSessionExpiry(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	svc, _ := newTestService(t, WithClock(clock), WithTTL(time.Hour))
	ctx := context.Background()

	sess, err := svc.SignUp(ctx, "a@b.io", "password1")
	if err != nil {
		t.Fatal(err)
	}
	if !sess.ExpiresAt.Equal(now.Add(time.Hour)) {
		t.Fatalf("unexpected expiry %v", sess.ExpiresAt)
	}
	now = now.Add(2 * time.Hour)
	if _, err := svc.Session(ctx, sess.Token); !errors.Is(err, remote.ErrUnauthorized) {
		t.Fatalf("expired token should be unauthorized, got %v", err)
	}
}

func TestSessionRejectsForeignToken(t *testing.T) {
	svc, _ := newTestService(t)
	other, _ := New(newMemCredentials(), []byte("ffffffffffffffffffffffffffffffff"), WithHashCost(bcrypt.MinCost))
	ctx := context.Background()
	sess, _ := other.SignUp(ctx, "a@b.io", "password1")

	if _, err := svc.Session(ctx, sess.Token); !errors.Is(err, remote.ErrUnauthorized) {
		t.Fatalf("token signed with another secret should be unauthorized, got %v", err)
	}
	if _, err := svc.Session(ctx, "garbage"); !errors.Is(err, remote.ErrUnauthorized) {
		t.Fatalf("garbage should be unauthorized, got %v", err)
	}
}

// ============================================================
// Token stores
// ============================================================

func newTestMirror(t *testing.T) *mirror.Mirror {
	t.Helper()
	m, err := mirror.Open(t.TempDir(), "test")
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func TestKeyringTokens(t *testing.T) {
	keyring.MockInit()
	var ts KeyringTokens

	if _, err := ts.Load(); !errors.Is(err, ErrNoToken) {
		t.Fatalf("expected ErrNoToken, got %v", err)
	}
	if err := ts.Save("tok"); err != nil {
		t.Fatal(err)
	}
	got, err := ts.Load()
	if err != nil || got != "tok" {
		t.Fatalf("load = %q, %v", got, err)
	}
	if err := ts.Clear(); err != nil {
		t.Fatal(err)
	}
	if err := ts.Clear(); err != nil {
		t.Fatalf("clearing twice should succeed: %v", err)
	}
	if err := ts.Save(""); err == nil {
		t.Fatal("empty token should be rejected")
	}
}

func TestMirrorTokens(t *testing.T) {
	ts := MirrorTokens{M: newTestMirror(t)}
	if _, err := ts.Load(); !errors.Is(err, ErrNoToken) {
		t.Fatalf("expected ErrNoToken, got %v", err)
	}
	ts.Save("tok")
	if got, _ := ts.Load(); got != "tok" {
		t.Fatalf("expected tok, got %q", got)
	}
	ts.Clear()
	if _, err := ts.Load(); !errors.Is(err, ErrNoToken) {
		t.Fatal("expected token cleared")
	}
}

func TestFallbackTokensUsesMirrorWhenKeyringBroken(t *testing.T) {
	keyring.MockInitWithError(errors.New("no dbus"))
	t.Cleanup(keyring.MockInit)
	m := newTestMirror(t)
	ts := NewTokenStore(m)

	if err := ts.Save("tok"); err != nil {
		t.Fatal(err)
	}
	if !m.Has(mirror.KeySession) {
		t.Fatal("token should land in the mirror")
	}
	got, err := ts.Load()
	if err != nil || got != "tok" {
		t.Fatalf("load = %q, %v", got, err)
	}
}

func TestFallbackTokensPrefersKeyring(t *testing.T) {
	keyring.MockInit()
	m := newTestMirror(t)
	m.Write(mirror.KeySession, "stale")
	ts := NewTokenStore(m)

	if err := ts.Save("fresh"); err != nil {
		t.Fatal(err)
	}
	if m.Has(mirror.KeySession) {
		t.Fatal("stale mirror token should be cleared")
	}
	if got, _ := ts.Load(); got != "fresh" {
		t.Fatalf("expected keyring token, got %q", got)
	}
	if err := ts.Clear(); err != nil {
		t.Fatal(err)
	}
	if _, err := ts.Load(); !errors.Is(err, ErrNoToken) {
		t.Fatalf("expected ErrNoToken after clear, got %v", err)
	}
}
