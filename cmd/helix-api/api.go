package main

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/gofiber/fiber/v3"

	"github.com/helixcrm/helix/pkg/cmd"
	"github.com/helixcrm/helix/pkg/eventbus"
	"github.com/helixcrm/helix/pkg/persistence"
	"github.com/helixcrm/helix/pkg/providers"
	"github.com/helixcrm/helix/pkg/web"
	"github.com/helixcrm/helix/pkg/workflow"
)

type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	eventBus    eventbus.EventBus
	gateway     *providers.Gateway
}

func NewAPI(
	logger *slog.Logger,
	persistence persistence.Persistence,
	eventBus eventbus.EventBus,
	gateway *providers.Gateway,
) *API {
	return &API{
		logger:      logger,
		persistence: persistence,
		eventBus:    eventBus,
		gateway:     gateway,
	}
}

func (a *API) App() *fiber.App {
	reg := cmd.NewRegistry(a.logger, a.persistence.RecordRepository(), a.eventBus, a.gateway)

	validator := workflow.NewValidator(reg)
	repository := workflow.NewRepository(a.persistence, validator)
	engine := workflow.NewEngine(repository, reg, a.persistence.ExecutionRepository(), a.eventBus, a.logger)
	dispatcher := workflow.NewDispatcher(repository, engine, a.logger)

	handlers := web.NewAPIHandlers(
		repository,
		engine,
		dispatcher,
		a.persistence.ExecutionRepository(),
		a.gateway,
		reg,
	)

	return web.NewApp(handlers)
}

func (a *API) Start(ctx context.Context, port int) error {
	a.logger.InfoContext(ctx, "Starting API server", "port", port)

	return a.App().Listen(":" + strconv.Itoa(port))
}
