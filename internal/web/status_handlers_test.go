package web

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jadhav-onkar/Industrial-AI/internal/health"
	"github.com/jadhav-onkar/Industrial-AI/internal/logger"
	"github.com/jadhav-onkar/Industrial-AI/internal/service"
	"github.com/jadhav-onkar/Industrial-AI/internal/state"
)

type staticChecker struct {
	status health.Status
}

func (c staticChecker) Name() string { return "static" }

func (c staticChecker) Check(ctx context.Context) health.Check {
	return health.Check{Name: "static", Status: c.status}
}

func TestHealth_WithoutManager(t *testing.T) {
	server, _, _ := setupTestServer(t)

	w := doRequest(t, server, http.MethodGet, "/api/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", decodeJSON(t, w)["status"])
}

func TestHealth_ProbesOpenStatusProtected(t *testing.T) {
	server, _, _ := setupTestServer(t)

	for _, path := range []string{"/api/health", "/api/health/live", "/api/health/ready"} {
		w := doRequest(t, server, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusOK, w.Code, path)
	}
	w := doRequest(t, server, http.MethodGet, "/api/status", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHealth_ReportsChecks(t *testing.T) {
	server, store, _ := setupTestServer(t)
	h := health.NewManager(logger.NewNopLogger(), nil)
	h.RegisterChecker(health.NewDatabaseChecker(store))
	h.RegisterChecker(staticChecker{status: health.StatusDegraded})
	server.SetHealthDependencies(h, nil)

	w := doRequest(t, server, http.MethodGet, "/api/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeJSON(t, w)
	assert.Equal(t, "degraded", body["status"])
	assert.Contains(t, body["checks"], "database")

	w = doRequest(t, server, http.MethodGet, "/api/health/ready", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decodeJSON(t, w)["ready"])
}

func TestHealth_Unhealthy(t *testing.T) {
	server, _, _ := setupTestServer(t)
	h := health.NewManager(logger.NewNopLogger(), nil)
	h.RegisterChecker(staticChecker{status: health.StatusUnhealthy})
	server.SetHealthDependencies(h, nil)

	w := doRequest(t, server, http.MethodGet, "/api/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = doRequest(t, server, http.MethodGet, "/api/health/ready", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, false, decodeJSON(t, w)["ready"])

	w = doRequest(t, server, http.MethodGet, "/api/health/live", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestStatus(t *testing.T) {
	server, _, _ := setupTestServer(t)
	server.SetVersion("1.2.3")
	svc := service.NewManager(logger.NewNopLogger())
	server.SetHealthDependencies(nil, svc)
	session := registerAndLogin(t, server, "alice")

	w := doRequest(t, server, http.MethodGet, "/api/status", nil, session)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeJSON(t, w)
	assert.Equal(t, "1.2.3", body["version"])
	assert.Equal(t, float64(2), body["schema_version"])
	assert.Len(t, body["streams"], 1)
}

func TestServer_StartStop(t *testing.T) {
	cfg := testConfig(t)
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = 0

	// Start installs the routes itself
	server := NewServer(cfg, logger.NewNopLogger())
	server.SetDependencies(state.NewTestManager(t), &fakeProcessor{})

	require.NoError(t, server.Start(context.Background()))
	assert.True(t, server.GetStatus().IsRunning())
	assert.NotEqual(t, "127.0.0.1:0", server.Addr())
	require.NoError(t, server.Stop(context.Background()))
	assert.Equal(t, service.StatusStopped, server.GetStatus().GetStatus())
}
