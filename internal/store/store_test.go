package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sadopc/tempo/internal/auth"
	"github.com/sadopc/tempo/internal/remote"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewMemory()
	if err != nil {
		t.Fatalf("new memory store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createDoc is a test helper that creates a document with the given fields.
func createDoc(t *testing.T, s *Store, c remote.Collection, userID string, year int, fields map[string]any) remote.Document {
	t.Helper()
	d, err := s.Create(context.Background(), c, remote.Document{UserID: userID, Year: year, Fields: fields})
	if err != nil {
		t.Fatalf("create document: %v", err)
	}
	return d
}

// ============================================================
// Store initialization
// ============================================================

func TestNewMemory(t *testing.T) {
	s, err := NewMemory()
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	var version int
	s.db.QueryRow("PRAGMA user_version").Scan(&version)
	if version != 1 {
		t.Fatalf("expected user_version 1, got %d", version)
	}
}

func TestNewWithPath(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/sub/tempo.db"
	s, err := New(path)
	if err != nil {
		t.Fatal(err)
	}
	createDoc(t, s, remote.Tasks, "u1", 0, map[string]any{"text": "persist"})
	s.Close()

	// Reopen: data survives and migrations do not run again.
	s2, err := New(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s2.Close()
	docs, err := s2.List(context.Background(), remote.Tasks, remote.Filter{UserID: "u1"})
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 1 || docs[0].Fields["text"] != "persist" {
		t.Fatalf("expected persisted document, got %+v", docs)
	}
}

func TestDefaultDBPath(t *testing.T) {
	path, err := DefaultDBPath()
	if err != nil {
		t.Fatal(err)
	}
	if path == "" {
		t.Fatal("empty path")
	}
}

func TestPragmasConfigured(t *testing.T) {
	s := newTestStore(t)

	var fk int
	s.db.QueryRow("PRAGMA foreign_keys").Scan(&fk)
	if fk != 1 {
		t.Fatalf("expected foreign_keys=1, got %d", fk)
	}
}

func TestMigrationIdempotent(t *testing.T) {
	s := newTestStore(t)
	if err := s.migrate(); err != nil {
		t.Fatalf("second migration failed: %v", err)
	}
}

// ============================================================
// Documents
// ============================================================

func TestCreateMintsIDAndTimestamp(t *testing.T) {
	s := newTestStore(t)
	fixed := time.Date(2026, 5, 4, 9, 30, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	d := createDoc(t, s, remote.Tasks, "u1", 0, map[string]any{"text": "write tests"})
	if d.ID == "" {
		t.Fatal("expected minted ID")
	}
	if !d.CreatedAt.Equal(fixed) {
		t.Fatalf("expected createdAt %v, got %v", fixed, d.CreatedAt)
	}

	docs, _ := s.List(context.Background(), remote.Tasks, remote.Filter{UserID: "u1"})
	if len(docs) != 1 || docs[0].ID != d.ID || !docs[0].CreatedAt.Equal(fixed) {
		t.Fatalf("unexpected list: %+v", docs)
	}
}

func TestListNewestFirst(t *testing.T) {
	s := newTestStore(t)
	a := createDoc(t, s, remote.Notes, "u1", 0, map[string]any{"title": "a"})
	b := createDoc(t, s, remote.Notes, "u1", 0, map[string]any{"title": "b"})
	c := createDoc(t, s, remote.Notes, "u1", 0, map[string]any{"title": "c"})

	docs, err := s.List(context.Background(), remote.Notes, remote.Filter{UserID: "u1"})
	if err != nil {
		t.Fatal(err)
	}
	want := []string{c.ID, b.ID, a.ID}
	if len(docs) != len(want) {
		t.Fatalf("expected %d docs, got %d", len(want), len(docs))
	}
	for i, id := range want {
		if docs[i].ID != id {
			t.Fatalf("position %d: expected %s, got %s", i, id, docs[i].ID)
		}
	}
}

func TestListScopesByUserCollectionAndYear(t *testing.T) {
	s := newTestStore(t)
	createDoc(t, s, remote.Goals, "u1", 2025, map[string]any{"title": "old"})
	createDoc(t, s, remote.Goals, "u1", 2026, map[string]any{"title": "new"})
	createDoc(t, s, remote.Goals, "u2", 2026, map[string]any{"title": "theirs"})
	createDoc(t, s, remote.Tasks, "u1", 0, map[string]any{"text": "task"})
	ctx := context.Background()

	all, _ := s.List(ctx, remote.Goals, remote.Filter{UserID: "u1"})
	if len(all) != 2 {
		t.Fatalf("expected 2 goals for u1, got %d", len(all))
	}
	y, _ := s.List(ctx, remote.Goals, remote.Filter{UserID: "u1", Year: 2026})
	if len(y) != 1 || y[0].Fields["title"] != "new" {
		t.Fatalf("expected only 2026 goal, got %+v", y)
	}
	none, _ := s.List(ctx, remote.Goals, remote.Filter{UserID: "nobody"})
	if len(none) != 0 {
		t.Fatalf("expected no goals, got %d", len(none))
	}
}

func TestUpdateMergesFields(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	d := createDoc(t, s, remote.HabitLogs, "u1", 0, map[string]any{
		"habitId": "h1", "date": "2026-05-04", "value": 5, "completed": false,
	})

	if err := s.Update(ctx, remote.HabitLogs, "u1", d.ID, map[string]any{"value": 8, "completed": true}); err != nil {
		t.Fatal(err)
	}
	docs, _ := s.List(ctx, remote.HabitLogs, remote.Filter{UserID: "u1"})
	got := docs[0].Fields
	if got["value"] != float64(8) || got["completed"] != true {
		t.Fatalf("patch not applied: %+v", got)
	}
	if got["habitId"] != "h1" || got["date"] != "2026-05-04" {
		t.Fatalf("untouched fields lost: %+v", got)
	}
}

func TestUpdateYearMovesDocument(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	d := createDoc(t, s, remote.Goals, "u1", 2025, map[string]any{"title": "t", "year": 2025})

	if err := s.Update(ctx, remote.Goals, "u1", d.ID, map[string]any{"year": 2026}); err != nil {
		t.Fatal(err)
	}
	docs, _ := s.List(ctx, remote.Goals, remote.Filter{UserID: "u1", Year: 2026})
	if len(docs) != 1 {
		t.Fatalf("expected goal moved to 2026, got %d", len(docs))
	}
}

func TestUpdateDeleteNotFound(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	d := createDoc(t, s, remote.Tasks, "u1", 0, map[string]any{"text": "mine"})

	if err := s.Update(ctx, remote.Tasks, "u1", "missing", map[string]any{"text": "x"}); !errors.Is(err, remote.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := s.Update(ctx, remote.Tasks, "u2", d.ID, map[string]any{"text": "x"}); !errors.Is(err, remote.ErrNotFound) {
		t.Fatalf("foreign owner should see ErrNotFound, got %v", err)
	}
	if err := s.Delete(ctx, remote.Tasks, "u2", d.ID); !errors.Is(err, remote.ErrNotFound) {
		t.Fatalf("foreign delete should see ErrNotFound, got %v", err)
	}
	if err := s.Delete(ctx, remote.Notes, "u1", d.ID); !errors.Is(err, remote.ErrNotFound) {
		t.Fatalf("wrong collection should see ErrNotFound, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	d := createDoc(t, s, remote.Tasks, "u1", 0, map[string]any{"text": "bye"})

	if err := s.Delete(ctx, remote.Tasks, "u1", d.ID); err != nil {
		t.Fatal(err)
	}
	docs, _ := s.List(ctx, remote.Tasks, remote.Filter{UserID: "u1"})
	if len(docs) != 0 {
		t.Fatalf("expected deleted, got %d", len(docs))
	}
	if err := s.Delete(ctx, remote.Tasks, "u1", d.ID); !errors.Is(err, remote.ErrNotFound) {
		t.Fatalf("second delete should be ErrNotFound, got %v", err)
	}
}

func TestInvalidCollection(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	bad := remote.Collection("projects")

	if _, err := s.Create(ctx, bad, remote.Document{UserID: "u1"}); !errors.Is(err, remote.ErrInvalidCollection) {
		t.Fatalf("create: expected ErrInvalidCollection, got %v", err)
	}
	if _, err := s.List(ctx, bad, remote.Filter{UserID: "u1"}); !errors.Is(err, remote.ErrInvalidCollection) {
		t.Fatalf("list: expected ErrInvalidCollection, got %v", err)
	}
}

// ============================================================
// Credentials
// ============================================================

func TestCredentials(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	c := auth.Credential{UserID: "u1", Email: "a@b.io", PasswordHash: "hash", CreatedAt: time.Now()}

	if err := s.PutCredential(ctx, c); err != nil {
		t.Fatal(err)
	}
	got, err := s.GetCredential(ctx, "a@b.io")
	if err != nil {
		t.Fatal(err)
	}
	if got.UserID != "u1" || got.PasswordHash != "hash" {
		t.Fatalf("unexpected credential: %+v", got)
	}
	c.UserID = "u2"
	if err := s.PutCredential(ctx, c); !errors.Is(err, remote.ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}
	if _, err := s.GetCredential(ctx, "x@b.io"); !errors.Is(err, remote.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRevokedTokens(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	if revoked, _ := s.TokenRevoked(ctx, "jti-1"); revoked {
		t.Fatal("token should not start revoked")
	}
	if err := s.RevokeToken(ctx, "jti-1", now.Add(time.Hour)); err != nil {
		t.Fatal(err)
	}
	if revoked, _ := s.TokenRevoked(ctx, "jti-1"); !revoked {
		t.Fatal("expected token revoked")
	}

	// A later revocation prunes entries that have expired.
	now = now.Add(2 * time.Hour)
	if err := s.RevokeToken(ctx, "jti-2", now.Add(time.Hour)); err != nil {
		t.Fatal(err)
	}
	if revoked, _ := s.TokenRevoked(ctx, "jti-1"); revoked {
		t.Fatal("expired revocation should be pruned")
	}
}

func TestServiceOverStore(t *testing.T) {
	s := newTestStore(t)
	secret, err := s.SigningSecret()
	if err != nil {
		t.Fatal(err)
	}
	svc, err := auth.New(s, secret, auth.WithHashCost(4))
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	sess, err := svc.SignUp(ctx, "a@b.io", "password1")
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.Logout(ctx, sess.Token); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Session(ctx, sess.Token); !errors.Is(err, remote.ErrUnauthorized) {
		t.Fatalf("expected unauthorized after logout, got %v", err)
	}
}

// ============================================================
// Settings
// ============================================================

func TestSetAndGetSetting(t *testing.T) {
	s := newTestStore(t)
	if err := s.SetSetting("theme", "light"); err != nil {
		t.Fatal(err)
	}
	v, err := s.GetSetting("theme")
	if err != nil {
		t.Fatal(err)
	}
	if v != "light" {
		t.Fatalf("expected light, got %s", v)
	}
	s.SetSetting("theme", "dark")
	v, _ = s.GetSetting("theme")
	if v != "dark" {
		t.Fatalf("expected dark after overwrite, got %s", v)
	}
}

func TestGetSettingMissing(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.GetSetting("nonexistent"); err == nil {
		t.Fatal("expected error for missing setting")
	}
}

func TestSigningSecretStable(t *testing.T) {
	s := newTestStore(t)
	first, err := s.SigningSecret()
	if err != nil {
		t.Fatal(err)
	}
	if len(first) < 32 {
		t.Fatalf("secret too short: %d", len(first))
	}
	second, _ := s.SigningSecret()
	if string(first) != string(second) {
		t.Fatal("secret should be generated once")
	}
}
