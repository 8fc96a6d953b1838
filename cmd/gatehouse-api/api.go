// Package main provides the Gatehouse API server implementation.
package main

import (
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"

	"github.com/gatehouse-id/gatehouse/pkg/engine"
	"github.com/gatehouse-id/gatehouse/pkg/eventbus"
	"github.com/gatehouse-id/gatehouse/pkg/flow"
	"github.com/gatehouse-id/gatehouse/pkg/persistence"
	"github.com/gatehouse-id/gatehouse/pkg/registry"
	"github.com/gatehouse-id/gatehouse/pkg/web"
)

type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	registry    *registry.Registry
	eventBus    eventbus.EventBus
	flows       *flow.Manager
	executor    *engine.Executor
	validate    *validator.Validate
}

func NewAPI(
	logger *slog.Logger,
	persistence persistence.Persistence,
	registry *registry.Registry,
	eventBus eventbus.EventBus,
	flows *flow.Manager,
	executor *engine.Executor,
) *API {
	return &API{
		logger:      logger,
		persistence: persistence,
		registry:    registry,
		eventBus:    eventBus,
		flows:       flows,
		executor:    executor,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	handlers := web.NewAPIHandlers(a.flows, a.executor, a.registry, a.persistence, a.validate)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Gatehouse API")
	})

	app.Get("/node-types", handlers.ListNodeTypes)
	app.Post("/node-types/:type/validate-config", handlers.ValidateNodeConfig)

	f := app.Group("/flows")
	f.Get("/", handlers.ListFlows)
	f.Post("/", handlers.CreateFlow)
	f.Get("/:id", handlers.GetFlow)
	f.Patch("/:id", handlers.UpdateFlow)
	f.Delete("/:id", handlers.DeleteFlow)
	f.Post("/:id/publish", handlers.PublishFlow)
	f.Get("/:id/versions", handlers.ListVersions)

	app.Post("/deployments", handlers.Deploy)
	app.Get("/deployments/:realmId/:flowType", handlers.GetDeployment)

	auth := app.Group("/auth")
	auth.Post("/:realmId/:flowType/start", handlers.StartLogin)
	auth.Post("/sessions/:id/submit", handlers.SubmitLogin)
	auth.Get("/sessions/:id", handlers.GetSession)
	auth.Post("/actions/complete", handlers.ResumeLogin)

	app.Get("/health", handlers.HealthCheck)

	return app
}

func (a *API) Start(port int) error {
	app := a.App()

	return app.Listen(":" + strconv.Itoa(port))
}
