package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/allisson/credvault/cmd/app/commands"
	"github.com/allisson/credvault/internal/app"
)

func getVaultCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "purge-user",
			Usage: "Erase every secret, share and access log of a deleted user",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "user-id",
					Aliases:  []string{"u"},
					Required: true,
					Usage:    "User ID (UUID)",
				},
				formatFlag(),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return withContainer(ctx, func(container *app.Container) error {
					purgeUseCase, err := container.PurgeUseCase()
					if err != nil {
						return err
					}

					return commands.RunPurgeUser(
						ctx,
						purgeUseCase,
						container.Logger(),
						commands.DefaultIO().Writer,
						cmd.String("user-id"),
						cmd.String("format"),
					)
				})
			},
		},
		{
			Name:  "verify-access-logs",
			Usage: "Verify the signatures of every access log row",
			Flags: []cli.Flag{
				&cli.IntFlag{
					Name:    "batch-size",
					Aliases: []string{"b"},
					Value:   500,
					Usage:   "Rows read per query",
				},
				formatFlag(),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return withContainer(ctx, func(container *app.Container) error {
					auditLogger, err := container.AuditLogger(ctx)
					if err != nil {
						return err
					}

					return commands.RunVerifyAccessLogs(
						ctx,
						auditLogger,
						container.Logger(),
						commands.DefaultIO().Writer,
						int(cmd.Int("batch-size")),
						cmd.String("format"),
					)
				})
			},
		},
		{
			Name:  "clean-outbox",
			Usage: "Delete dispatched outbox events older than the given number of days",
			Flags: []cli.Flag{
				&cli.IntFlag{
					Name:     "days",
					Aliases:  []string{"d"},
					Required: true,
					Usage:    "Delete dispatched events older than this many days",
				},
				formatFlag(),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return withContainer(ctx, func(container *app.Container) error {
					outboxUseCase, err := container.OutboxUseCase()
					if err != nil {
						return err
					}

					return commands.RunCleanOutbox(
						ctx,
						outboxUseCase,
						container.Logger(),
						commands.DefaultIO().Writer,
						int(cmd.Int("days")),
						cmd.String("format"),
					)
				})
			},
		},
	}
}
