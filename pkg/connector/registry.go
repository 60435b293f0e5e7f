package connector

import (
	"fmt"
	"log/slog"
)

// Factory creates connector instances for one service type.
type Factory interface {
	// ID returns the service_type this factory builds connectors for.
	ID() string

	// Name returns the human-readable service name.
	Name() string

	// Description returns a short description of the service.
	Description() string

	// Create builds a connector from static binding configuration.
	// Credentials here are construction-time defaults; stages may inject
	// different credentials per call.
	Create(credentials map[string]any, baseURL string, config map[string]any) (Connector, error)
}

// Registry maps service types to connector factories. It is populated once
// at process start and read concurrently by workflow runs afterwards.
type Registry struct {
	logger    *slog.Logger
	factories map[string]Factory
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		logger:    logger,
		factories: make(map[string]Factory),
	}
}

func (r *Registry) Register(factory Factory) {
	r.factories[factory.ID()] = factory
	r.logger.Debug("Registered connector factory", "service_type", factory.ID())
}

// Create builds a connector for the given service type.
func (r *Registry) Create(serviceType string, credentials map[string]any, baseURL string, config map[string]any) (Connector, error) {
	factory, ok := r.factories[serviceType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrServiceTypeNotRegistered, serviceType)
	}

	return factory.Create(credentials, baseURL, config)
}

// Factory returns the factory for a service type.
func (r *Registry) Factory(serviceType string) (Factory, bool) {
	factory, ok := r.factories[serviceType]

	return factory, ok
}

// ServiceTypes returns the registered service types.
func (r *Registry) ServiceTypes() []string {
	types := make([]string, 0, len(r.factories))
	for serviceType := range r.factories {
		types = append(types, serviceType)
	}

	return types
}
