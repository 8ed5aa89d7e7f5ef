package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealthHandler_Healthy(t *testing.T) {
	handler := NewHealthHandler(setupTestLogger(), pingerFunc(func(ctx context.Context) error {
		return nil
	}), "1.2.3")

	w := httptest.NewRecorder()
	handler.Health(w, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var resp HealthResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "boardsync", resp.Service)
	assert.Equal(t, "1.2.3", resp.Version)
}

func TestHealthHandler_DegradedWhenStorageUnreachable(t *testing.T) {
	handler := NewHealthHandler(setupTestLogger(), pingerFunc(func(ctx context.Context) error {
		return errors.New("database is locked")
	}), "dev")

	w := httptest.NewRecorder()
	handler.Health(w, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

	require.Equal(t, http.StatusServiceUnavailable, w.Code)

	var resp HealthResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "degraded", resp.Status)
	assert.Equal(t, "boardsync", resp.Service)
}
