package main

import (
	"context"
	"fmt"
	"os"

	"github.com/alecthomas/kong"

	"github.com/sadopc/tempo/internal/cli"
)

var version = "dev"

func main() {
	var CLI cli.CLI
	ctx := kong.Parse(&CLI, cli.Options(version)...)

	appCtx := &cli.Context{
		Ctx:        context.Background(),
		ConfigPath: CLI.Config,
		Debug:      CLI.Debug,
	}
	err := ctx.Run(appCtx)
	if cerr := appCtx.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
