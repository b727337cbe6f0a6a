package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/urfave/cli/v3"

	"github.com/allisson/credvault/internal/app"
	"github.com/allisson/credvault/internal/config"
)

func getCommands(version string) []*cli.Command {
	cmds := []*cli.Command{}
	cmds = append(cmds, getSystemCommands(version)...)
	cmds = append(cmds, getVaultCommands()...)
	return cmds
}

// formatFlag is shared by every command that prints a report.
func formatFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Value:   "text",
		Usage:   "Output format: 'text' or 'json'",
	}
}

// withContainer loads and validates the configuration, then runs fn with a container
// that is shut down afterwards.
func withContainer(ctx context.Context, fn func(container *app.Container) error) error {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	container := app.NewContainer(cfg)
	defer func() {
		if err := container.Shutdown(context.WithoutCancel(ctx)); err != nil {
			container.Logger().Error("failed to shutdown container", slog.Any("error", err))
		}
	}()

	return fn(container)
}
