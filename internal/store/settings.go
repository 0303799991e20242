package store

import (
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
)

const signingSecretKey = "signing_secret"

func (s *Store) GetSetting(key string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err != nil {
		return "", fmt.Errorf("get setting %q: %w", key, err)
	}
	return value, nil
}

func (s *Store) SetSetting(key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	return err
}

// SigningSecret returns the session signing secret, generating and storing a
// random one on first use.
func (s *Store) SigningSecret() ([]byte, error) {
	value, err := s.GetSetting(signingSecretKey)
	if err == nil {
		return []byte(value), nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("generate signing secret: %w", err)
	}
	value = hex.EncodeToString(buf)
	if err := s.SetSetting(signingSecretKey, value); err != nil {
		return nil, fmt.Errorf("store signing secret: %w", err)
	}
	return []byte(value), nil
}
