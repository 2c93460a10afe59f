package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Farcas-Consult/rams-sub000/config"
)

func testServer(cfg *config.Config) *Server {
	return New(cfg, ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {}))
}

func TestNewEchoRegistersRoutes(t *testing.T) {
	s := testServer(&config.Config{AppName: "rams", Version: "test", StartupMaxAttempts: 1})
	e := s.newEcho()

	routes := map[string]bool{}
	for _, r := range e.Routes() {
		routes[r.Method+" "+r.Path] = true
	}

	assert.NotNil(t, s.notifier)

	for _, want := range []string{
		"GET /metrics",
		"GET /api/v1/health",
		"GET /api/v1/health/live",
		"GET /api/v1/health/ready",
		"POST /api/v1/reads",
		"POST /api/v1/tag-bindings",
		"GET /api/v1/tag-bindings/:epc",
		"DELETE /api/v1/tag-bindings/:epc",
		"GET /api/v1/assets/:id/tag-bindings",
		"DELETE /api/v1/assets/:id/tag-bindings",
		"GET /api/v1/live-view",
		"POST /api/v1/assets",
		"GET /api/v1/assets/:id",
		"PATCH /api/v1/assets/:id",
		"POST /api/v1/assets/:id/decommission",
		"POST /api/v1/assets/:id/recommission",
		"GET /api/v1/undiscovered-assets",
		"POST /api/v1/undiscovered-assets",
		"POST /api/v1/undiscovered-assets/import",
		"POST /api/v1/undiscovered-assets/:id/promote",
	} {
		assert.True(t, routes[want], "missing route %s", want)
	}
}

func TestReadinessBeforeStartup(t *testing.T) {
	s := testServer(&config.Config{AppName: "rams", Version: "test", StartupMaxAttempts: 1})
	e := s.newEcho()

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health/live", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestOptionalDependenciesFollowConfig(t *testing.T) {
	s := testServer(&config.Config{StartupMaxAttempts: 1})
	_, kafka := s.startup.Dependency(DependencyKafka)
	_, redis := s.startup.Dependency(DependencyRedis)
	assert.False(t, kafka)
	assert.False(t, redis)

	s = testServer(&config.Config{StartupMaxAttempts: 1, KafkaEnabled: true, RedisEnabled: true})
	dep, ok := s.startup.Dependency(DependencyHTTP)
	require.True(t, ok)
	assert.Equal(t, []string{DependencyDatabase, DependencyMigrations, DependencyKafka, DependencyRedis}, dep.DependsOn())
}
