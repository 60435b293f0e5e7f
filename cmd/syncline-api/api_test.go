package main

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/syncline/syncline/pkg/cmd"
	"github.com/syncline/syncline/pkg/credentials"
	"github.com/syncline/syncline/pkg/persistence/file"
)

func testAPI(t *testing.T) *API {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	p := file.NewPersistence(t.TempDir())
	t.Cleanup(func() {
		_ = p.Close(t.Context())
	})

	bus := cmd.NewEventBus("gochannel", "api-test", logger)
	t.Cleanup(func() {
		_ = bus.Close()
	})

	return NewAPI(logger, p, cmd.NewConnectorRegistry(logger), credentials.Static{}, bus)
}

func TestAPIRoot(t *testing.T) {
	app := testAPI(t).App()

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "Syncline API", string(body))
}

func TestAPIHealth(t *testing.T) {
	app := testAPI(t).App()

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAPICreateWorkflow(t *testing.T) {
	app := testAPI(t).App()

	payload, err := json.Marshal(map[string]any{
		"name":   "created via api",
		"source": map[string]any{"service_type": "shipstation"},
		"target": map[string]any{"service_type": "infiplex"},
		"stages": []any{
			map[string]any{
				"id":         "announce",
				"type":       "log",
				"parameters": map[string]any{"message": "hello"},
			},
		},
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/workflows/", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
}
