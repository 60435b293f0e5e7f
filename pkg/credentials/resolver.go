// Package credentials resolves the credential set a stage's connector call
// should use. Resolution order: the stage's credentials_key into the
// workflow's credentials_config, then integration default credentials for
// the bound connector's service type.
package credentials

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/syncline/syncline/pkg/models"
)

// ErrUnknownCredentialsKey indicates a stage references a credentials_key
// absent from the workflow's credentials_config.
var ErrUnknownCredentialsKey = errors.New("unknown credentials key")

// Resolver yields the credential map for one stage call. Implementations
// must be safe for concurrent use; one resolver is shared across runs.
type Resolver interface {
	Resolve(ctx context.Context, workflow *models.Workflow, stage *models.Stage) (map[string]any, error)
}

// IntegrationSource supplies default credentials for a service type, e.g.
// from the integration configuration store.
type IntegrationSource interface {
	DefaultCredentials(ctx context.Context, serviceType string) (map[string]any, error)
}

// ConfigResolver resolves per-stage credentials from workflow configuration
// with integration defaults as fallback.
type ConfigResolver struct {
	integrations IntegrationSource
	logger       *slog.Logger
}

func NewConfigResolver(integrations IntegrationSource, logger *slog.Logger) *ConfigResolver {
	return &ConfigResolver{
		integrations: integrations,
		logger:       logger.With("module", "credential_resolver"),
	}
}

func (r *ConfigResolver) Resolve(ctx context.Context, workflow *models.Workflow, stage *models.Stage) (map[string]any, error) {
	if stage.CredentialsKey != "" {
		set, ok := workflow.CredentialsConfig[stage.CredentialsKey]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownCredentialsKey, stage.CredentialsKey)
		}

		return set, nil
	}

	binding, ok := bindingFor(workflow, stage.Connector)
	if !ok {
		return nil, nil
	}

	if static := binding.Credentials(); len(static) > 0 {
		return static, nil
	}

	if r.integrations == nil {
		return nil, nil
	}

	serviceType := binding.ServiceType()

	defaults, err := r.integrations.DefaultCredentials(ctx, serviceType)
	if err != nil {
		return nil, fmt.Errorf("integration defaults for %s: %w", serviceType, err)
	}

	if defaults == nil {
		r.logger.Debug("No default credentials for service type", "service_type", serviceType)
	}

	return defaults, nil
}

// Static is a fixed-map resolver for tests and single-tenant deployments.
type Static map[string]any

func (s Static) Resolve(context.Context, *models.Workflow, *models.Stage) (map[string]any, error) {
	return s, nil
}

func bindingFor(workflow *models.Workflow, connectorName string) (models.ConnectorBinding, bool) {
	switch connectorName {
	case models.ConnectorSource:
		return workflow.Source, workflow.Source != nil
	case models.ConnectorTarget:
		return workflow.Target, workflow.Target != nil
	default:
		return nil, false
	}
}
