package cli

import (
	"context"
	"fmt"

	"github.com/sadopc/tempo/internal/auth"
	"github.com/sadopc/tempo/internal/config"
	"github.com/sadopc/tempo/internal/remote"
	"github.com/sadopc/tempo/internal/remote/azdocs"
	"github.com/sadopc/tempo/internal/remote/httpdocs"
	"github.com/sadopc/tempo/internal/remote/redisdocs"
	"github.com/sadopc/tempo/internal/store"
)

// credentialBackend is a document store that also keeps account records.
type credentialBackend interface {
	remote.Documents
	auth.CredentialStore
	Close() error
}

// OpenBackend connects the backend named by cfg.Backend.Kind.
func OpenBackend(ctx context.Context, cfg config.Config) (remote.Backend, error) {
	switch cfg.Backend.Kind {
	case config.BackendSQLite:
		st, err := store.New(cfg.Backend.SQLitePath)
		if err != nil {
			return nil, err
		}
		secret := []byte(cfg.Auth.Secret)
		if len(secret) == 0 {
			if secret, err = st.SigningSecret(); err != nil {
				st.Close()
				return nil, err
			}
		}
		return withAccounts(cfg, st, secret)
	case config.BackendRedis:
		st, err := redisdocs.Open(ctx, cfg.Backend.RedisURL)
		if err != nil {
			return nil, err
		}
		return withAccounts(cfg, st, []byte(cfg.Auth.Secret))
	case config.BackendAzure:
		st, err := azdocs.Open(ctx, cfg.Backend.AzureConnectionString)
		if err != nil {
			return nil, err
		}
		return withAccounts(cfg, st, []byte(cfg.Auth.Secret))
	case config.BackendHTTP:
		c, err := httpdocs.New(cfg.Backend.HTTPURL, nil)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
	return nil, fmt.Errorf("unknown backend kind %q", cfg.Backend.Kind)
}

func withAccounts(cfg config.Config, st credentialBackend, secret []byte) (remote.Backend, error) {
	ttl, err := cfg.SessionTTL()
	if err != nil {
		st.Close()
		return nil, err
	}
	svc, err := auth.New(st, secret, auth.WithTTL(ttl))
	if err != nil {
		st.Close()
		return nil, err
	}
	return remote.Compose(st, svc, st.Close), nil
}
