// Package main provides the one-shot workflow runner. It loads a workflow
// by ID, runs it to completion and reports the result on the exit code.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	cli "github.com/urfave/cli/v3"

	"github.com/syncline/syncline/pkg/cmd"
	"github.com/syncline/syncline/pkg/engine"
	"github.com/syncline/syncline/pkg/log"
	"github.com/syncline/syncline/pkg/models"
	"github.com/syncline/syncline/pkg/services"
)

func main() {
	logger := log.WithModule("runner")

	command := &cli.Command{
		Name:                  "syncline-runner",
		Usage:                 "Run a single sync workflow to completion",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "workflow-id",
				Aliases:  []string{"w"},
				Usage:    "ID of the workflow to run",
				Required: true,
				Sources:  cli.EnvVars("WORKFLOW_ID"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:  "variables",
				Usage: "Initial variables as a JSON object",
			},
			&cli.StringFlag{
				Name:    "triggered-by",
				Usage:   "Recorded trigger origin of the run",
				Value:   "cli",
				Sources: cli.EnvVars("TRIGGERED_BY"),
			},
			&cli.StringFlag{
				Name:    "redis-url",
				Usage:   "Redis URL for the shared credential cache (optional)",
				Sources: cli.EnvVars("REDIS_URL"),
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

			var initialVariables map[string]any

			if raw := command.String("variables"); raw != "" {
				if err := json.Unmarshal([]byte(raw), &initialVariables); err != nil {
					return cli.Exit(fmt.Sprintf("invalid --variables JSON: %v", err), 2)
				}
			}

			cmd.SetupTracing(ctx, "syncline-runner", logger)

			persistence := cmd.NewPersistence(command.String("database-url"))

			defer func() {
				if err := persistence.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			registry := cmd.NewConnectorRegistry(logger)
			resolver := cmd.NewCredentialResolver(command.String("redis-url"), logger)
			eng := engine.New(registry, resolver, logger)

			executionService := services.NewExecution(persistence, eng, nil, logger)

			execution, err := executionService.Execute(
				ctx,
				command.String("workflow-id"),
				command.String("triggered-by"),
				initialVariables,
			)
			if err != nil {
				return cli.Exit(fmt.Sprintf("run failed: %v", err), 1)
			}

			logger.InfoContext(ctx, "Run finished",
				"execution_id", execution.ID,
				"status", execution.Status,
				"completed_stages", execution.CompletedStages,
				"failed_stages", execution.FailedStages,
				"skipped_stages", execution.SkippedStages,
				"duration_seconds", execution.ExecutionTimeSeconds)

			if execution.Status != models.ExecutionStatusCompleted {
				return cli.Exit("workflow run did not complete: "+execution.ErrorMessage, 1)
			}

			return nil
		},
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		os.Exit(1)
	}
}
