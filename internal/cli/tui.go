package cli

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sadopc/tempo/internal/logger"
	"github.com/sadopc/tempo/internal/pomodoro"
	"github.com/sadopc/tempo/internal/tui"
)

type TuiCmd struct {
	ExportDir string `help:"Directory exports are written to." type:"path"`
}

func (c *TuiCmd) Run(ctx *Context) error {
	ws, err := ctx.Workspace()
	if err != nil {
		return err
	}
	m, err := ctx.Mirror()
	if err != nil {
		return err
	}
	engine := pomodoro.New(pomodoro.Options{
		Mirror: m,
		Logger: logger.Get(),
		Tasks:  ws.Tasks,
		Habits: ws.Habits,
		Now:    ctx.Now,
	})
	app := tui.NewApp(tui.Options{
		Workspace: ws,
		Engine:    engine,
		ExportDir: c.ExportDir,
		Now:       ctx.Now,
	})
	p := tea.NewProgram(app, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run tui: %w", err)
	}
	return nil
}
