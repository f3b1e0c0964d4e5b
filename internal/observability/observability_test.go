package observability

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spec-kit/login-service/internal/config"
)

func TestNewLoggerLevels(t *testing.T) {
	logger, err := NewLogger(config.LoggerConfig{Level: "DEBUG"}, config.AppConfig{Name: "login-service", Env: "development"})
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))

	logger, err = NewLogger(config.LoggerConfig{Level: "nonsense"}, config.AppConfig{Env: "production"})
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zapcore.DebugLevel))
	assert.True(t, logger.Core().Enabled(zapcore.InfoLevel))
}

func TestMetricsAreNilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordRequest("/", "GET", 200, time.Millisecond)
		m.RecordError("/", "GET", "INTERNAL_ERROR")
		m.RecordLogin("success")
		m.RecordLockout()
	})
}

func TestMetricsCounters(t *testing.T) {
	m := NewMetrics()
	m.RecordLogin("failure")
	m.RecordLogin("failure")
	m.RecordLockout()
	m.RecordError("/api/auth/login", "POST", "ACCOUNT_LOCKED")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.loginAttempts.WithLabelValues("failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.lockouts))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.errorCount.WithLabelValues("POST", "/api/auth/login", "ACCOUNT_LOCKED")))
}

func TestRequestLogger(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	metrics := NewMetrics()

	app := fiber.New()
	app.Use(RequestLogger(zap.New(core), metrics))
	app.Get("/health", func(c *fiber.Ctx) error { return c.SendString("ok") })

	resp, err := app.Test(httptest.NewRequest("GET", "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	entries := logs.FilterMessage("request").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "GET", fields["method"])
	assert.Equal(t, "/health", fields["path"])
	assert.EqualValues(t, 200, fields["status"])

	body := `
# HELP http_requests_total HTTP requests by method, route and status.
# TYPE http_requests_total counter
http_requests_total{method="GET",path="/health",status="200"} 1
`
	require.NoError(t, testutil.GatherAndCompare(metrics.Registry(), strings.NewReader(body), "http_requests_total"))
}
