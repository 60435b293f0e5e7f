package credentials_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/syncline/syncline/pkg/credentials"
)

func TestEnvSource(t *testing.T) {
	t.Setenv("SYNCLINE_SHIPSTATION_CREDENTIALS", `{"api_key":"key","api_secret":"secret"}`)

	source := credentials.EnvSource{}

	set, err := source.DefaultCredentials(context.Background(), "shipstation")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"api_key": "key", "api_secret": "secret"}, set)

	set, err = source.DefaultCredentials(context.Background(), "infiplex")
	require.NoError(t, err)
	assert.Nil(t, set)
}

func TestEnvSource_MalformedJSON(t *testing.T) {
	t.Setenv("SYNCLINE_INFIPLEX_CREDENTIALS", "{not json")

	_, err := credentials.EnvSource{}.DefaultCredentials(context.Background(), "infiplex")
	assert.Error(t, err)
}
