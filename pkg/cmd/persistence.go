package cmd

import (
	"strings"

	"github.com/syncline/syncline/pkg/persistence"
	"github.com/syncline/syncline/pkg/persistence/file"
)

var supportedPersistenceProviders = []string{"file"}

// NewPersistence creates a persistence backend from a database URL. Only
// file persistence is implemented; URLs without a recognized scheme are
// treated as file paths.
func NewPersistence(databaseURL string) persistence.Persistence {
	provider := parsePersistenceProvider(databaseURL)

	switch provider {
	default:
		return file.NewPersistence(databaseURL)
	}
}

func parsePersistenceProvider(databaseURL string) string {
	parts := strings.Split(databaseURL, "://")

	provider := parts[0]
	for _, supported := range supportedPersistenceProviders {
		if provider == supported {
			return provider
		}
	}

	return "file"
}
