package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sadopc/tempo/internal/auth"
	"github.com/sadopc/tempo/internal/remote"
)

var _ auth.CredentialStore = (*Store)(nil)

func (s *Store) PutCredential(ctx context.Context, c auth.Credential) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO credentials (email, user_id, password_hash, created_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(email) DO NOTHING`,
		c.Email, c.UserID, c.PasswordHash, c.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("insert credential: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return remote.ErrExists
	}
	return nil
}

func (s *Store) GetCredential(ctx context.Context, email string) (auth.Credential, error) {
	var c auth.Credential
	var createdAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT email, user_id, password_hash, created_at FROM credentials WHERE email = ?`, email,
	).Scan(&c.Email, &c.UserID, &c.PasswordHash, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return auth.Credential{}, remote.ErrNotFound
	}
	if err != nil {
		return auth.Credential{}, fmt.Errorf("get credential: %w", err)
	}
	c.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return c, nil
}

// RevokeToken records tokenID as revoked and prunes entries whose tokens have
// expired anyway.
func (s *Store) RevokeToken(ctx context.Context, tokenID string, until time.Time) error {
	now := s.now().UTC().Format(time.RFC3339)
	if _, err := s.db.ExecContext(ctx, `DELETE FROM revoked_tokens WHERE expires_at < ?`, now); err != nil {
		return fmt.Errorf("prune revoked tokens: %w", err)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO revoked_tokens (token_id, expires_at) VALUES (?, ?)
		 ON CONFLICT(token_id) DO UPDATE SET expires_at = excluded.expires_at`,
		tokenID, until.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

func (s *Store) TokenRevoked(ctx context.Context, tokenID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM revoked_tokens WHERE token_id = ?`, tokenID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check revoked token: %w", err)
	}
	return true, nil
}
