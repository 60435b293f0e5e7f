package credentials

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// EnvSource supplies integration default credentials from the environment.
// Credentials for a service type are read from
// SYNCLINE_<SERVICE_TYPE>_CREDENTIALS as a JSON object.
type EnvSource struct{}

func (EnvSource) DefaultCredentials(_ context.Context, serviceType string) (map[string]any, error) {
	name := "SYNCLINE_" + strings.ToUpper(serviceType) + "_CREDENTIALS"

	raw := os.Getenv(name)
	if raw == "" {
		return nil, nil
	}

	var set map[string]any
	if err := json.Unmarshal([]byte(raw), &set); err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}

	return set, nil
}
