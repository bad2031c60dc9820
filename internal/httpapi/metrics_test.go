package httpapi

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsRecordsRequestDuration(t *testing.T) {
	before := testutil.CollectAndCount(requestDuration)

	app := fiber.New()
	app.Use(Metrics())
	app.Get("/probe", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	_, err := app.Test(httptest.NewRequest("GET", "/probe", nil))
	require.NoError(t, err)

	after := testutil.CollectAndCount(requestDuration)
	assert.Greater(t, after, before)
}

func TestMetricsHandlerExposesPrometheusFormat(t *testing.T) {
	app := fiber.New()
	app.Get("/metrics", func(c *fiber.Ctx) error { return MetricsHandler()(c) })

	resp, err := app.Test(httptest.NewRequest("GET", "/metrics", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
