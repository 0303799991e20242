// Package cli holds the kong commands of the tempo binary.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/fatih/color"

	"github.com/sadopc/tempo/internal/auth"
	"github.com/sadopc/tempo/internal/config"
	"github.com/sadopc/tempo/internal/logger"
	"github.com/sadopc/tempo/internal/mirror"
	"github.com/sadopc/tempo/internal/remote"
	"github.com/sadopc/tempo/internal/state"
)

// Context is shared by every command. Everything it opens is opened lazily
// and released by Close.
type Context struct {
	Ctx        context.Context
	ConfigPath string
	Debug      bool
	Out        io.Writer
	Now        func() time.Time

	// LogStderr mirrors the log file to stderr.
	LogStderr bool

	// Backend overrides the configured backend.
	Backend remote.Backend

	// Tokens overrides the keyring-backed token store.
	Tokens auth.TokenStore

	// Prompt asks for a secret missing from the command line.
	Prompt func(title string) (string, error)

	cfg         *config.Config
	mirror      *mirror.Mirror
	ws          *state.Workspace
	ownsBackend bool
}

func (c *Context) defaults() {
	if c.Ctx == nil {
		c.Ctx = context.Background()
	}
	if c.Out == nil {
		c.Out = color.Output
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	if c.Prompt == nil {
		c.Prompt = promptSecret
	}
}

// Config loads the config file and starts the file logger.
func (c *Context) Config() (config.Config, error) {
	c.defaults()
	if c.cfg != nil {
		return *c.cfg, nil
	}
	path := c.ConfigPath
	if path == "" {
		p, err := config.Path()
		if err != nil {
			return config.Config{}, err
		}
		path = p
	}
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, err
	}
	if _, err := logger.Init(logger.Config{
		Debug:  c.Debug || cfg.Logging.Debug,
		Level:  cfg.Logging.Level,
		Dir:    cfg.Logging.Dir,
		Stderr: c.LogStderr,
	}); err != nil {
		return config.Config{}, fmt.Errorf("init logger: %w", err)
	}
	c.cfg = &cfg
	return cfg, nil
}

func (c *Context) Mirror() (*mirror.Mirror, error) {
	if c.mirror != nil {
		return c.mirror, nil
	}
	cfg, err := c.Config()
	if err != nil {
		return nil, err
	}
	m, err := mirror.Open(cfg.Mirror.Dir, cfg.Mirror.Namespace)
	if err != nil {
		return nil, err
	}
	c.mirror = m
	return m, nil
}

// Workspace opens the backend, resumes the saved session and loads every
// list. An unreachable backend leaves the workspace offline.
func (c *Context) Workspace() (*state.Workspace, error) {
	if c.ws != nil {
		return c.ws, nil
	}
	cfg, err := c.Config()
	if err != nil {
		return nil, err
	}
	m, err := c.Mirror()
	if err != nil {
		return nil, err
	}
	if c.Backend == nil {
		b, err := OpenBackend(c.Ctx, cfg)
		if err != nil {
			logger.Get().Warn("backend unavailable, working offline", "backend", cfg.Backend.Kind, "err", err)
		} else {
			c.Backend = b
			c.ownsBackend = true
		}
	}
	tokens := c.Tokens
	if tokens == nil {
		tokens = auth.NewTokenStore(m)
	}
	c.ws = state.New(state.Deps{
		Backend: c.Backend,
		Mirror:  m,
		Tokens:  tokens,
		Logger:  logger.Get(),
		Now:     c.Now,
	})
	c.ws.Start(c.Ctx)
	return c.ws, nil
}

// Close saves pending note edits and releases the backend.
func (c *Context) Close() error {
	if c.ws != nil {
		c.ws.Close(c.Ctx)
	}
	if c.ownsBackend && c.Backend != nil {
		return c.Backend.Close()
	}
	return nil
}

// signedIn returns the workspace of an active session.
func (c *Context) signedIn() (*state.Workspace, error) {
	ws, err := c.Workspace()
	if err != nil {
		return nil, err
	}
	if ws.Auth.UserID() == "" {
		return nil, errors.New("not signed in, run `tempo login` first")
	}
	return ws, nil
}

func promptSecret(title string) (string, error) {
	var v string
	err := huh.NewInput().
		Title(title).
		EchoMode(huh.EchoModePassword).
		Value(&v).
		Run()
	return v, err
}

// resolve finds the item an argument refers to: a 1-based position in the
// listing or a unique id prefix.
func resolve[T any](items []T, id func(T) string, arg string) (T, error) {
	var zero T
	arg = strings.TrimSpace(arg)
	if n, err := strconv.Atoi(arg); err == nil && n >= 1 && n <= len(items) {
		return items[n-1], nil
	}
	var found []T
	for _, it := range items {
		if id(it) == arg {
			return it, nil
		}
		if arg != "" && strings.HasPrefix(id(it), arg) {
			found = append(found, it)
		}
	}
	switch len(found) {
	case 0:
		return zero, fmt.Errorf("no item matches %q", arg)
	case 1:
		return found[0], nil
	}
	return zero, fmt.Errorf("%q matches %d items, use more of the id", arg, len(found))
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
