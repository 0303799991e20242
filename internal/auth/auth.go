// Package auth implements the account service on top of a credential store:
// bcrypt password hashes and HS256 session tokens with server-side revocation.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/sadopc/tempo/internal/models"
	"github.com/sadopc/tempo/internal/remote"
)

const (
	DefaultSessionTTL = 30 * 24 * time.Hour
	MinPasswordLength = 8
	issuer            = "tempo"
)

var (
	ErrInvalidEmail = errors.New("invalid email address")
	ErrWeakPassword = fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	ErrShortSecret  = errors.New("signing secret must be at least 16 bytes")
)

// Credential is a stored account.
type Credential struct {
	UserID       string    `json:"userId"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"passwordHash"`
	CreatedAt    time.Time `json:"createdAt"`
}

// CredentialStore persists accounts and revoked session ids.
type CredentialStore interface {
	// PutCredential stores a new account; a taken email reports remote.ErrExists.
	PutCredential(ctx context.Context, c Credential) error
	// GetCredential reports remote.ErrNotFound for unknown emails.
	GetCredential(ctx context.Context, email string) (Credential, error)
	RevokeToken(ctx context.Context, tokenID string, until time.Time) error
	TokenRevoked(ctx context.Context, tokenID string) (bool, error)
}

// Service implements remote.Accounts.
type Service struct {
	store    CredentialStore
	secret   []byte
	ttl      time.Duration
	hashCost int
	now      func() time.Time
}

type Option func(*Service)

func WithTTL(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.ttl = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithHashCost overrides the bcrypt cost; tests use bcrypt.MinCost.
func WithHashCost(cost int) Option {
	return func(s *Service) { s.hashCost = cost }
}

func New(store CredentialStore, secret []byte, opts ...Option) (*Service, error) {
	if len(secret) < 16 {
		return nil, ErrShortSecret
	}
	s := &Service{
		store:    store,
		secret:   secret,
		ttl:      DefaultSessionTTL,
		hashCost: bcrypt.DefaultCost,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

var _ remote.Accounts = (*Service)(nil)

// NormalizeEmail trims and lower-cases an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *Service) SignUp(ctx context.Context, email, password string) (models.Session, error) {
	email = NormalizeEmail(email)
	if _, err := mail.ParseAddress(email); err != nil || !strings.Contains(email, "@") {
		return models.Session{}, ErrInvalidEmail
	}
	if len(password) < MinPasswordLength {
		return models.Session{}, ErrWeakPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return models.Session{}, fmt.Errorf("hash password: %w", err)
	}
	cred := Credential{
		UserID:       uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    s.now().UTC(),
	}
	if err := s.store.PutCredential(ctx, cred); err != nil {
		return models.Session{}, fmt.Errorf("sign up: %w", err)
	}
	return s.issue(cred)
}

func (s *Service) Login(ctx context.Context, email, password string) (models.Session, error) {
	cred, err := s.store.GetCredential(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, remote.ErrNotFound) {
			return models.Session{}, remote.ErrInvalidCredentials
		}
		return models.Session{}, fmt.Errorf("login: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(password)); err != nil {
		return models.Session{}, remote.ErrInvalidCredentials
	}
	return s.issue(cred)
}

func (s *Service) Session(ctx context.Context, token string) (models.Session, error) {
	claims, err := s.parse(token)
	if err != nil {
		return models.Session{}, err
	}
	if !s.now().Before(claims.ExpiresAt.Time) {
		return models.Session{}, fmt.Errorf("%w: session expired", remote.ErrUnauthorized)
	}
	revoked, err := s.store.TokenRevoked(ctx, claims.ID)
	if err != nil {
		return models.Session{}, fmt.Errorf("check revocation: %w", err)
	}
	if revoked {
		return models.Session{}, fmt.Errorf("%w: session revoked", remote.ErrUnauthorized)
	}
	return models.Session{
		Token:     token,
		UserID:    claims.Subject,
		Email:     claims.Email,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

func (s *Service) Logout(ctx context.Context, token string) error {
	claims, err := s.parse(token)
	if err != nil {
		return err
	}
	if err := s.store.RevokeToken(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

type sessionClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

func (s *Service) issue(cred Credential) (models.Session, error) {
	now := s.now()
	exp := now.Add(s.ttl)
	claims := sessionClaims{
		Email: cred.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   cred.UserID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return models.Session{}, fmt.Errorf("sign session: %w", err)
	}
	return models.Session{
		Token:     signed,
		UserID:    cred.UserID,
		Email:     cred.Email,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// parse verifies the signature and shape of token. Expiry is checked by the
// caller against the injected clock.
func (s *Service) parse(token string) (*sessionClaims, error) {
	claims := &sessionClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithoutClaimsValidation())
	if err != nil || !parsed.Valid {
		return nil, fmt.Errorf("%w: invalid session token", remote.ErrUnauthorized)
	}
	if claims.Issuer != issuer || claims.Subject == "" || claims.ID == "" || claims.ExpiresAt == nil {
		return nil, fmt.Errorf("%w: malformed session token", remote.ErrUnauthorized)
	}
	return claims, nil
}
