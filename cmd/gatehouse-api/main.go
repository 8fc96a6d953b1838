package main

import (
	"context"
	"os"
	"time"

	cli "github.com/urfave/cli/v3"

	"github.com/gatehouse-id/gatehouse/pkg/cmd"
	"github.com/gatehouse-id/gatehouse/pkg/credentials"
	"github.com/gatehouse-id/gatehouse/pkg/engine"
	"github.com/gatehouse-id/gatehouse/pkg/flow"
	"github.com/gatehouse-id/gatehouse/pkg/log"
	"github.com/gatehouse-id/gatehouse/pkg/otelhelper"
	"github.com/gatehouse-id/gatehouse/pkg/protocol"
	"github.com/gatehouse-id/gatehouse/pkg/sessionlock"
	"github.com/gatehouse-id/gatehouse/pkg/token"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultPort      = 9030
	defaultSweepSpec = "@every 5m"
	sweepRetention   = time.Hour
)

func main() {
	logger := log.WithModule("api")

	command := &cli.Command{
		Name:                  "gatehouse-api",
		Usage:                 "Manage and execute authentication flows",
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
				Name:    "database-url",
				Usage:   "Database connection URL for persistence",
				Sources: cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus provider (gochannel, kafka)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS"),
			},
			&cli.StringFlag{
				Name:    "redis-url",
				Usage:   "Redis URL for distributed session locking (optional)",
				Sources: cli.EnvVars("REDIS_URL"),
			},
			&cli.StringFlag{
				Name:     "jwt-secret",
				Usage:    "HMAC secret for access token signing",
				Required: true,
				Sources:  cli.EnvVars("JWT_SECRET"),
			},
			&cli.StringFlag{
				Name:    "jwt-issuer",
				Usage:   "Issuer claim for access tokens",
				Value:   "gatehouse",
				Sources: cli.EnvVars("JWT_ISSUER"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
			&cli.StringFlag{
				Name:    "log-format",
				Usage:   "Log format (text, json)",
				Value:   "text",
				Sources: cli.EnvVars("LOG_FORMAT"),
			},
			&cli.BoolFlag{
				Name:    "tracing",
				Usage:   "Enable OTLP trace export",
				Sources: cli.EnvVars("TRACING_ENABLED"),
			},
		},
		Action: run,
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		logger.Error("Fatal error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, command *cli.Command) error {
	log.Setup(command.String("log-level"), command.String("log-format"))

	logger := log.WithModule("api")
	logger.InfoContext(ctx, "Initializing Gatehouse API")

	store := cmd.NewPersistence(ctx, logger, command.String("database-url"))
	defer func() {
		err := store.Close(ctx)
		if err != nil {
			logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
		}
	}()

	eventBus := cmd.NewEventBus(command.String("event-bus"), logger)
	defer func() {
		err := eventBus.Close()
		if err != nil {
			logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
		}
	}()

	credentialStore := credentials.NewStore()
	deps := protocol.Dependencies{
		Credentials: credentialStore,
		OTPSender:   credentials.NewLogOTPSender(logger),
	}

	registry := cmd.NewRegistry(logger, deps)

	issuer, err := token.NewJWTIssuer(
		[]byte(command.String("jwt-secret")),
		command.String("jwt-issuer"),
		0,
	)
	if err != nil {
		return err
	}

	var locker sessionlock.Locker
	if redisURL := command.String("redis-url"); redisURL != "" {
		locker, err = sessionlock.NewRedisLocker(redisURL, logger)
		if err != nil {
			return err
		}
	} else {
		locker = sessionlock.NewMemoryLocker()
	}

	defer func() {
		err := locker.Close()
		if err != nil {
			logger.ErrorContext(ctx, "Failed to close session locker", "error", err)
		}
	}()

	var tracer trace.Tracer
	if command.Bool("tracing") {
		tracer, err = otelhelper.NewTracer(ctx, "gatehouse-api")
		if err != nil {
			return err
		}
	}

	flows := flow.NewManager(store, registry, eventBus, logger)
	executor := engine.NewExecutor(store, registry, eventBus, issuer, locker, tracer, logger)

	sweeper, err := startSweeper(logger, store, defaultSweepSpec, sweepRetention)
	if err != nil {
		return err
	}
	defer sweeper.Stop()

	api := NewAPI(logger, store, registry, eventBus, flows, executor)

	return api.Start(command.Int("port"))
}
