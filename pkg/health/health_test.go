package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, c *Checker, path string) (int, Response) {
	t.Helper()
	e := echo.New()
	c.RegisterRoutes(e)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return rec.Code, resp
}

func ok(context.Context) error   { return nil }
func down(context.Context) error { return errors.New("connection refused") }

func TestReadinessBeforeStartup(t *testing.T) {
	c := NewChecker("test")
	code, resp := serve(t, c, "/api/v1/health/ready")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, StatusUnhealthy, resp.Status)
}

func TestHealthStatuses(t *testing.T) {
	tests := []struct {
		name     string
		database PingFunc
		redis    PingFunc
		code     int
		status   Status
	}{
		{name: "all healthy", database: ok, redis: ok, code: http.StatusOK, status: StatusHealthy},
		{name: "optional down", database: ok, redis: down, code: http.StatusOK, status: StatusDegraded},
		{name: "required down", database: down, redis: ok, code: http.StatusServiceUnavailable, status: StatusUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewChecker("test")
			c.AddCheck("database", tt.database)
			c.AddOptionalCheck("redis", tt.redis)
			c.SetReady(true)

			code, resp := serve(t, c, "/api/v1/health/ready")
			assert.Equal(t, tt.code, code)
			assert.Equal(t, tt.status, resp.Status)
			assert.Len(t, resp.Checks, 2)
		})
	}
}

func TestLiveness(t *testing.T) {
	code, resp := serve(t, NewChecker("1.2.3"), "/api/v1/health/live")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "1.2.3", resp.Version)
}
