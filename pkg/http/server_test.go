package http

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

	"github.com/y2kjoh23-ux/btc-compass-26/pkg/logger"
)

type pingHandler struct{}

func (pingHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/api/ping", func(c echo.Context) error { return SuccessResponse(c, "pong") })
}

type denyAll struct{}

func (denyAll) Allow(string) bool { return false }

func TestHealthzReportsFailingChecks(t *testing.T) {
	s := NewServer(logger.Nop(), nil,
		WithMetricsPath(""),
		WithHealthCheck("clickhouse", func(context.Context) error { return errors.New("down") }),
		WithHealthCheck("redis", func(context.Context) error { return nil }),
	)

	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var body struct {
		Data map[string]string `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "down", body.Data["clickhouse"])
	assert.Equal(t, "ok", body.Data["redis"])
}

func TestRateLimiterGuardsHandlerRoutesOnly(t *testing.T) {
	s := NewServer(logger.Nop(), pingHandler{}, WithMetricsPath(""), WithRateLimiter(denyAll{}))

	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/ping", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	rec = httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
