// Package main provides the Helix worker: it executes workflows for
// bus events and runs the schedule and queue trigger sources.
package main

import (
	"context"
	"os"

	"github.com/google/uuid"
	cli "github.com/urfave/cli/v3"

	"github.com/helixcrm/helix/pkg/cmd"
	"github.com/helixcrm/helix/pkg/config"
	"github.com/helixcrm/helix/pkg/log"
	"github.com/helixcrm/helix/pkg/workflow"
)

func main() {
	command := &cli.Command{
		Name:                  "helix-worker",
		EnableShellCompletion: true,
		Usage:                 "Start workers to execute workflows",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "worker-id",
				Aliases: []string{"id"},
				Usage:   "Custom worker ID (auto-generated if not provided)",
				Value:   "",
				Sources: cli.EnvVars("WORKER_ID"),
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

			workerID := command.String("worker-id")
			if workerID == "" {
				workerID = "worker-" + uuid.New().String()[:8]
			}

			logger := log.WithModule("worker").With("worker_id", workerID)
			logger.InfoContext(ctx, "Initializing Helix Worker")

			persistence := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			defer func() {
				if err := persistence.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			eventBus := cmd.NewEventBus(command.String("event-bus"), "helix-worker", logger)
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

			reg := cmd.NewRegistry(logger, persistence.RecordRepository(), eventBus, gateway)

			validator := workflow.NewValidator(reg)
			repository := workflow.NewRepository(persistence, validator)
			engine := workflow.NewEngine(repository, reg, persistence.ExecutionRepository(), eventBus, logger)
			dispatcher := workflow.NewDispatcher(repository, engine, logger)

			worker := NewWorkerManager(
				workerID,
				eventBus,
				logger,
				repository,
				engine,
				dispatcher,
				cfg,
			)

			if err := worker.Start(ctx); err != nil {
				logger.ErrorContext(ctx, "Failed to start worker", "error", err)
			}

			return nil
		},
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		panic(err)
	}
}
