// Package main provides the Helix API server: workflow management,
// manual execution, webhook ingestion and provider synchronization.
package main

import (
	"context"
	"os"

	cli "github.com/urfave/cli/v3"

	"github.com/helixcrm/helix/pkg/cmd"
	"github.com/helixcrm/helix/pkg/config"
	"github.com/helixcrm/helix/pkg/log"
	"github.com/helixcrm/helix/pkg/otelhelper"
)

const defaultPort = 9091

func main() {
	command := &cli.Command{
		Name:                  "helix-api",
		Usage:                 "Create and manage automation workflows and provider sync",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus transport (gochannel, kafka)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "config",
				Usage:   "Path to the helix.yaml configuration file",
				Value:   "./helix.yaml",
				Sources: cli.EnvVars("HELIX_CONFIG"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			logger := log.WithModule("api")
			logger.InfoContext(ctx, "Initializing Helix API")

			persistence := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			defer func() {
				if err := persistence.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			eventBus := cmd.NewEventBus(command.String("event-bus"), "helix-api", logger)
			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			cfg := config.LoadOrDefault(command.String("config"))

			gateway, err := cmd.NewGateway(logger, cfg.Providers)
			if err != nil {
				return err
			}

			tracer, err := otelhelper.NewTracer(ctx, "helix-api")
			if err != nil {
				return err
			}

			gateway.SetTracer(tracer)

			api := NewAPI(logger, persistence, eventBus, gateway)

			if err := api.Start(ctx, command.Int("port")); err != nil {
				logger.ErrorContext(ctx, "Failed to start API server", "error", err)
			}

			return nil
		},
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		panic(err)
	}
}
