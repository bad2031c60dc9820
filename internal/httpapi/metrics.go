package httpapi

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var requestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "assessment_http_request_duration_seconds",
	Help:    "Duration of HTTP requests by route and status.",
	Buckets: prometheus.DefBuckets,
}, []string{"route", "method", "status"})

func init() {
	prometheus.MustRegister(requestDuration)
}

// Metrics times every request and records it against route/method/status.
func Metrics() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		status := c.Response().StatusCode()
		requestDuration.WithLabelValues(c.Route().Path, c.Method(), strconv.Itoa(status)).Observe(time.Since(start).Seconds())
		return err
	}
}

// MetricsHandler exposes the Prometheus registry over Fiber via the
// stdlib promhttp handler, bridged through fiber's adaptor middleware.
func MetricsHandler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
