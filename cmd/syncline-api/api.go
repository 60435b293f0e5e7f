// Package main provides the Syncline API server implementation.
package main

import (
	"log/slog"
	"strconv"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"

	"github.com/syncline/syncline/pkg/connector"
	"github.com/syncline/syncline/pkg/credentials"
	"github.com/syncline/syncline/pkg/engine"
	"github.com/syncline/syncline/pkg/eventbus"
	"github.com/syncline/syncline/pkg/persistence"
	"github.com/syncline/syncline/pkg/services"
	"github.com/syncline/syncline/pkg/web"
)

type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	registry    *connector.Registry
	resolver    credentials.Resolver
	eventBus    eventbus.EventBus
}

func NewAPI(
	logger *slog.Logger,
	persistence persistence.Persistence,
	registry *connector.Registry,
	resolver credentials.Resolver,
	eventBus eventbus.EventBus,
) *API {
	return &API{
		logger:      logger,
		persistence: persistence,
		registry:    registry,
		resolver:    resolver,
		eventBus:    eventBus,
	}
}

func (a *API) App() *fiber.App {
	eng := engine.New(a.registry, a.resolver, a.logger)

	workflowService := services.NewWorkflow(a.persistence, a.eventBus, a.logger)
	executionService := services.NewExecution(a.persistence, eng, a.eventBus, a.logger)

	handlers := web.NewAPIHandlers(workflowService, executionService, a.registry)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Syncline API")
	})

	w := app.Group("/workflows")
	w.Get("/", handlers.GetWorkflows)
	w.Post("/", handlers.CreateWorkflow)
	w.Get("/:id", handlers.GetWorkflow)
	w.Put("/:id", handlers.UpdateWorkflow)
	w.Delete("/:id", handlers.DeleteWorkflow)
	w.Post("/:id/execute", handlers.ExecuteWorkflow)
	w.Get("/:id/executions", handlers.GetWorkflowExecutions)

	app.Get("/executions/:id", handlers.GetExecution)
	app.Get("/connectors", handlers.GetConnectors)
	app.Get("/connectors/:service_type", handlers.GetConnector)

	app.Get("/health", handlers.HealthCheck)

	return app
}

func (a *API) Start(port int) error {
	app := a.App()

	err := app.Listen(":" + strconv.Itoa(port))

	return err
}
