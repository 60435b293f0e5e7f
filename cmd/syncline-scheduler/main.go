// Package main provides the scheduler daemon that runs active workflows on
// their cron schedules.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	cli "github.com/urfave/cli/v3"

	"github.com/syncline/syncline/pkg/cmd"
	"github.com/syncline/syncline/pkg/engine"
	"github.com/syncline/syncline/pkg/log"
	"github.com/syncline/syncline/pkg/scheduler"
	"github.com/syncline/syncline/pkg/services"
)

const defaultReloadInterval = time.Minute

func main() {
	logger := log.WithModule("scheduler")

	command := &cli.Command{
		Name:                  "syncline-scheduler",
		Usage:                 "Run active workflows on their cron schedules",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus type (kafka, gochannel)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "redis-url",
				Usage:   "Redis URL for the shared credential cache (optional)",
				Sources: cli.EnvVars("REDIS_URL"),
			},
			&cli.DurationFlag{
				Name:    "reload-interval",
				Usage:   "How often stored workflows are re-read for schedule changes",
				Value:   defaultReloadInterval,
				Sources: cli.EnvVars("RELOAD_INTERVAL"),
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

			logger.InfoContext(ctx, "Initializing Syncline Scheduler")

			cmd.SetupTracing(ctx, "syncline-scheduler", logger)

			persistence := cmd.NewPersistence(command.String("database-url"))

			defer func() {
				if err := persistence.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			eventBus := cmd.NewEventBus(command.String("event-bus"), "scheduler", logger)
			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			registry := cmd.NewConnectorRegistry(logger)
			resolver := cmd.NewCredentialResolver(command.String("redis-url"), logger)
			eng := engine.New(registry, resolver, logger)

			executionService := services.NewExecution(persistence, eng, eventBus, logger)

			s := scheduler.New(persistence.WorkflowRepository(), executionService, logger)

			runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := s.Start(runCtx); err != nil {
				return err
			}

			ticker := time.NewTicker(command.Duration("reload-interval"))
			defer ticker.Stop()

			for {
				select {
				case <-ticker.C:
					if err := s.Reload(runCtx); err != nil {
						logger.ErrorContext(runCtx, "Failed to reload schedules", "error", err)
					}
				case <-runCtx.Done():
					logger.Info("Shutting down scheduler")

					shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
					defer cancel()

					return s.Stop(shutdownCtx)
				}
			}
		},
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}
