package web

import (
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
)

// NewApp wires the handlers into a fiber application. The same routing
// is shared by the API binary and the handler tests.
func NewApp(handlers *APIHandlers) *fiber.App {
	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Helix API")
	})

	w := app.Group("/workflows")
	w.Get("/", handlers.GetWorkflows)
	w.Post("/", handlers.CreateWorkflow)
	w.Get("/:id", handlers.GetWorkflow)
	w.Patch("/:id", handlers.UpdateWorkflow)
	w.Delete("/:id", handlers.DeleteWorkflow)
	w.Post("/:id/execute", handlers.ExecuteWorkflow)
	w.Get("/:id/executions", handlers.GetWorkflowExecutions)

	app.Get("/executions/:id", handlers.GetExecution)

	app.Post("/webhooks/*", handlers.IngestWebhook)
	app.Post("/events", handlers.IngestEvent)

	sync := app.Group("/sync")
	sync.Post("/calendar/:providerId", handlers.SyncCalendar)
	sync.Post("/email/:providerId", handlers.SyncEmail)

	calendar := app.Group("/calendar/:providerId")
	calendar.Post("/events", handlers.CreateCalendarEvent)
	calendar.Put("/events/:eventId", handlers.UpdateCalendarEvent)
	calendar.Delete("/events/:eventId", handlers.DeleteCalendarEvent)

	email := app.Group("/email/:providerId")
	email.Post("/send", handlers.SendEmail)
	email.Put("/messages/:messageId/read", handlers.MarkRead)

	app.Get("/health", handlers.HealthCheck)

	return app
}
