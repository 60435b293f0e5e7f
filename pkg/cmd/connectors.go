// Package cmd provides common initialization functions for command-line
// applications.
package cmd

import (
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/syncline/syncline/pkg/connector"
	"github.com/syncline/syncline/pkg/connector/infiplex"
	"github.com/syncline/syncline/pkg/connector/shipstation"
	"github.com/syncline/syncline/pkg/credentials"
)

// NewConnectorRegistry creates a registry with the built-in connectors.
func NewConnectorRegistry(logger *slog.Logger) *connector.Registry {
	registry := connector.NewRegistry(logger)
	registry.Register(shipstation.NewFactory())
	registry.Register(infiplex.NewFactory())

	return registry
}

// NewCredentialResolver builds the production credential resolver.
// Integration defaults come from the environment; when a Redis URL is given
// they are cached there so concurrent runs share lookups.
func NewCredentialResolver(redisURL string, logger *slog.Logger) credentials.Resolver {
	var source credentials.IntegrationSource = credentials.EnvSource{}

	if redisURL != "" {
		opts, err := redis.ParseURL(redisURL)
		if err != nil {
			panic(fmt.Errorf("invalid redis URL: %w", err))
		}

		source = credentials.NewRedisCache(source, redis.NewClient(opts), logger)
	}

	return credentials.NewConfigResolver(source, logger)
}
