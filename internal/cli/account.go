package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fatih/color"
)

// Credentials are shared by signup and login.
type Credentials struct {
	Email    string `arg:"" help:"Account email."`
	Password string `help:"Account password. Prompted for when empty." env:"TEMPO_PASSWORD"`
}

func (c *Credentials) password(ctx *Context) (string, error) {
	if c.Password != "" {
		return c.Password, nil
	}
	pw, err := ctx.Prompt("Password for " + c.Email)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(pw) == "" {
		return "", errors.New("password is required")
	}
	return pw, nil
}

type SignupCmd struct {
	Credentials
}

func (c *SignupCmd) Run(ctx *Context) error {
	ws, err := ctx.Workspace()
	if err != nil {
		return err
	}
	pw, err := c.password(ctx)
	if err != nil {
		return err
	}
	if err := ws.Auth.SignUp(ctx.Ctx, c.Email, pw); err != nil {
		return err
	}
	ws.Load(ctx.Ctx)
	fmt.Fprintf(ctx.Out, "Created account %s\n", color.New(color.Bold).Sprint(c.Email))
	return nil
}

type LoginCmd struct {
	Credentials
}

func (c *LoginCmd) Run(ctx *Context) error {
	ws, err := ctx.Workspace()
	if err != nil {
		return err
	}
	pw, err := c.password(ctx)
	if err != nil {
		return err
	}
	if err := ws.Auth.Login(ctx.Ctx, c.Email, pw); err != nil {
		return err
	}
	ws.Load(ctx.Ctx)
	fmt.Fprintf(ctx.Out, "Signed in as %s\n", color.New(color.Bold).Sprint(c.Email))
	return nil
}

type LogoutCmd struct{}

func (c *LogoutCmd) Run(ctx *Context) error {
	ws, err := ctx.Workspace()
	if err != nil {
		return err
	}
	if ws.Auth.UserID() == "" {
		fmt.Fprintln(ctx.Out, "Not signed in")
		return nil
	}
	if err := ws.Logout(ctx.Ctx); err != nil {
		return err
	}
	fmt.Fprintln(ctx.Out, "Signed out")
	return nil
}

type WhoamiCmd struct{}

func (c *WhoamiCmd) Run(ctx *Context) error {
	ws, err := ctx.Workspace()
	if err != nil {
		return err
	}
	s, ok := ws.Auth.Session()
	if !ok {
		fmt.Fprintln(ctx.Out, "Not signed in")
		return nil
	}
	fmt.Fprintf(ctx.Out, "%s (session expires %s)\n", s.Email, s.ExpiresAt.Local().Format("2006-01-02 15:04"))
	return nil
}
