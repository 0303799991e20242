package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sadopc/tempo/internal/config"
	"github.com/sadopc/tempo/internal/logger"
	"github.com/sadopc/tempo/internal/server"
)

const shutdownTimeout = 10 * time.Second

type ServeCmd struct {
	Addr string `help:"Listen address. Defaults to server.address from the config."`
}

func (c *ServeCmd) Run(ctx *Context) error {
	ctx.LogStderr = true
	cfg, err := ctx.Config()
	if err != nil {
		return err
	}
	if cfg.Backend.Kind == config.BackendHTTP && ctx.Backend == nil {
		return errors.New("serve needs a storage backend, not the http client")
	}
	b := ctx.Backend
	if b == nil {
		if b, err = OpenBackend(ctx.Ctx, cfg); err != nil {
			return err
		}
		defer b.Close()
	}
	addr := c.Addr
	if addr == "" {
		addr = cfg.ServerAddress()
	}

	sigCtx, stop := signal.NotifyContext(ctx.Ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := logger.Get()
	srv := server.New(b, b, log)
	errc := make(chan error, 1)
	go func() { errc <- srv.Start(addr) }()

	select {
	case err := <-errc:
		return err
	case <-sigCtx.Done():
	}
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errc
}
