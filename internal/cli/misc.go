package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/sadopc/tempo/internal/config"
	"github.com/sadopc/tempo/internal/dates"
	"github.com/sadopc/tempo/internal/export"
	"github.com/sadopc/tempo/internal/state"
)

type XPCmd struct{}

func (c *XPCmd) Run(ctx *Context) error {
	ws, err := ctx.Workspace()
	if err != nil {
		return err
	}
	xp := ws.Progress.XP()
	into := xp % state.XPPerLevel
	fmt.Fprintf(ctx.Out, "%s  %d XP, %d/%d to the next level\n",
		bold.Sprintf("Level %d", ws.Progress.Level()), xp, into, state.XPPerLevel)
	return nil
}

type ExportCmd struct {
	Format string `help:"csv (habit logs) or json (everything)." enum:"csv,json" default:"json"`
	Output string `short:"o" help:"Output file. Defaults to tempo-export-DATE.FORMAT in the current directory." type:"path"`
}

func (c *ExportCmd) Run(ctx *Context) error {
	ws, err := ctx.Workspace()
	if err != nil {
		return err
	}
	path := c.Output
	if path == "" {
		path = filepath.Join(".", fmt.Sprintf("tempo-export-%s.%s", dates.Today(ctx.Now), c.Format))
	}
	snap := export.FromWorkspace(ws)
	switch strings.ToLower(c.Format) {
	case "csv":
		err = export.ToCSV(snap.Habits, snap.Logs, path)
	default:
		err = export.ToJSON(snap, path)
	}
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	fmt.Fprintf(ctx.Out, "Exported to %s\n", path)
	return nil
}

type ConfigCmd struct{}

func (c *ConfigCmd) Run(ctx *Context) error {
	cfg, err := ctx.Config()
	if err != nil {
		return err
	}
	path := ctx.ConfigPath
	if path == "" {
		if path, err = config.Path(); err != nil {
			return err
		}
	}
	if cfg.Auth.Secret != "" {
		cfg.Auth.Secret = "********"
	}
	data, err := cfg.Encode()
	if err != nil {
		return err
	}
	fmt.Fprintln(ctx.Out, faint.Sprintf("# %s", path))
	fmt.Fprint(ctx.Out, string(data))
	return nil
}
