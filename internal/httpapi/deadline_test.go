package httpapi

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func deadlineApp(t *testing.T, defaultDeadline time.Duration) (*fiber.App, *time.Duration) {
	t.Helper()
	app := fiber.New()
	var observed time.Duration
	app.Use(Deadline(defaultDeadline))
	app.Get("/", func(c *fiber.Ctx) error {
		deadline, ok := c.UserContext().Deadline()
		require.True(t, ok)
		observed = time.Until(deadline)
		return nil
	})
	return app, &observed
}

func TestDeadlineUsesDefaultWithoutOverride(t *testing.T) {
	app, observed := deadlineApp(t, 5*time.Second)
	_, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	assert.InDelta(t, 5*time.Second, *observed, float64(500*time.Millisecond))
}

func TestDeadlineHonorsSmallerOverride(t *testing.T) {
	app, observed := deadlineApp(t, 5*time.Second)
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Deadline-Ms", "1000")
	_, err := app.Test(req)
	require.NoError(t, err)
	assert.InDelta(t, time.Second, *observed, float64(200*time.Millisecond))
}

func TestDeadlineRejectsOverrideBeyondTwiceDefault(t *testing.T) {
	app, observed := deadlineApp(t, 5*time.Second)
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Deadline-Ms", "50000")
	_, err := app.Test(req)
	require.NoError(t, err)
	assert.InDelta(t, 5*time.Second, *observed, float64(500*time.Millisecond))
}

func TestDeadlineIgnoresUnparsableOverride(t *testing.T) {
	app, observed := deadlineApp(t, 5*time.Second)
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Deadline-Ms", "not-a-number")
	_, err := app.Test(req)
	require.NoError(t, err)
	assert.InDelta(t, 5*time.Second, *observed, float64(500*time.Millisecond))
}
