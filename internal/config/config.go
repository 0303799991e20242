package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendAzure  = "azure"
	BackendHTTP   = "http"

	// EnvPath overrides the config file location.
	EnvPath = "TEMPO_CONFIG"

	defaultServerAddress = "127.0.0.1:7878"
	defaultSessionTTL    = 30 * 24 * time.Hour
)

type Config struct {
	Backend BackendConfig `toml:"backend"`
	Auth    AuthConfig    `toml:"auth"`
	Mirror  MirrorConfig  `toml:"mirror"`
	Server  ServerConfig  `toml:"server"`
	Logging LoggingConfig `toml:"logging"`
}

type BackendConfig struct {
	Kind                  string `toml:"kind"`
	SQLitePath            string `toml:"sqlite_path"`
	RedisURL              string `toml:"redis_url"`
	AzureConnectionString string `toml:"azure_connection_string"`
	HTTPURL               string `toml:"http_url"`
}

type AuthConfig struct {
	// Secret signs session tokens. Empty uses a secret generated and kept
	// by the SQLite backend.
	Secret     string `toml:"secret"`
	SessionTTL string `toml:"session_ttl"`
}

type MirrorConfig struct {
	Dir       string `toml:"dir"`
	Namespace string `toml:"namespace"`
}

type ServerConfig struct {
	Address string `toml:"address"`
}

type LoggingConfig struct {
	Level string `toml:"level"`
	Debug bool   `toml:"debug"`
	Dir   string `toml:"dir"`
}

func Default() Config {
	return Config{
		Backend: BackendConfig{Kind: BackendSQLite},
		Mirror:  MirrorConfig{Namespace: "tempo"},
		Server:  ServerConfig{Address: defaultServerAddress},
		Logging: LoggingConfig{Level: "warn"},
	}
}

// Dir returns ~/.config/tempo.
func Dir() (string, error) {
	cfg, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cfg, "tempo"), nil
}

// Path returns the config file location, honouring TEMPO_CONFIG.
func Path() (string, error) {
	if p := strings.TrimSpace(os.Getenv(EnvPath)); p != "" {
		return p, nil
	}
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Load reads path over the defaults. A missing or empty file yields the
// defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if err := readTOML(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := cfg.resolve(filepath.Dir(path)); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func readTOML(path string, out any) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return errors.New("path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil
	}
	return toml.Unmarshal(data, out)
}

// resolve fills directory defaults relative to base and expands "~/".
func (c *Config) resolve(base string) error {
	var err error
	expand := func(p, def string) string {
		p = strings.TrimSpace(p)
		if p == "" {
			return def
		}
		if rest, ok := strings.CutPrefix(p, "~/"); ok {
			home, herr := os.UserHomeDir()
			if herr != nil {
				err = herr
				return p
			}
			return filepath.Join(home, rest)
		}
		return p
	}
	c.Backend.SQLitePath = expand(c.Backend.SQLitePath, filepath.Join(base, "tempo.db"))
	c.Mirror.Dir = expand(c.Mirror.Dir, filepath.Join(base, "mirror"))
	c.Logging.Dir = expand(c.Logging.Dir, filepath.Join(base, "logs"))
	c.Backend.Kind = strings.ToLower(strings.TrimSpace(c.Backend.Kind))
	return err
}

func (c Config) Validate() error {
	switch c.Backend.Kind {
	case BackendSQLite:
	case BackendRedis:
		if c.Backend.RedisURL == "" {
			return errors.New("backend.redis_url is required for the redis backend")
		}
	case BackendAzure:
		if c.Backend.AzureConnectionString == "" {
			return errors.New("backend.azure_connection_string is required for the azure backend")
		}
	case BackendHTTP:
		if c.Backend.HTTPURL == "" {
			return errors.New("backend.http_url is required for the http backend")
		}
	default:
		return fmt.Errorf("unknown backend kind %q", c.Backend.Kind)
	}
	if c.Backend.Kind != BackendSQLite && c.Backend.Kind != BackendHTTP && len(c.Auth.Secret) < 16 {
		return errors.New("auth.secret of at least 16 characters is required for this backend")
	}
	if _, err := c.SessionTTL(); err != nil {
		return err
	}
	return nil
}

// SessionTTL parses auth.session_ttl, defaulting to 30 days.
func (c Config) SessionTTL() (time.Duration, error) {
	raw := strings.TrimSpace(c.Auth.SessionTTL)
	if raw == "" {
		return defaultSessionTTL, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid auth.session_ttl %q", raw)
	}
	return d, nil
}

func (c Config) ServerAddress() string {
	addr := strings.TrimSpace(c.Server.Address)
	if addr == "" {
		return defaultServerAddress
	}
	return addr
}

// Encode renders c as TOML.
func (c Config) Encode() ([]byte, error) {
	return toml.Marshal(c)
}
