package httpapi

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noble-platform/adaptive-assessment-core/internal/apperr"
)

func appWithHandler(handler fiber.Handler) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	app.Get("/", handler)
	return app
}

func doGet(t *testing.T, app *fiber.App) (int, string) {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestErrorHandlerMapsKnownKinds(t *testing.T) {
	cases := []struct {
		kind   apperr.Kind
		status int
	}{
		{apperr.Validation, fiber.StatusBadRequest},
		{apperr.NotFound, fiber.StatusNotFound},
		{apperr.Conflict, fiber.StatusConflict},
		{apperr.Expired, fiber.StatusGone},
		{apperr.ScorerUnavailable, fiber.StatusServiceUnavailable},
		{apperr.Internal, fiber.StatusInternalServerError},
	}
	for _, tc := range cases {
		app := appWithHandler(func(c *fiber.Ctx) error {
			return apperr.New(tc.kind, "boom")
		})
		status, body := doGet(t, app)
		assert.Equal(t, tc.status, status, tc.kind)
		assert.Contains(t, body, "boom")
	}
}

func TestErrorHandlerMapsMissingUserIDToUnauthorized(t *testing.T) {
	app := appWithHandler(func(c *fiber.Ctx) error {
		return apperr.New(apperr.Authz, "X-User-Id header required")
	})
	status, _ := doGet(t, app)
	assert.Equal(t, fiber.StatusUnauthorized, status)
}

func TestErrorHandlerMapsOtherAuthzToForbidden(t *testing.T) {
	app := appWithHandler(func(c *fiber.Ctx) error {
		return apperr.New(apperr.Authz, "role not permitted for this operation")
	})
	status, _ := doGet(t, app)
	assert.Equal(t, fiber.StatusForbidden, status)
}

func TestErrorHandlerFallsBackToFiberError(t *testing.T) {
	app := appWithHandler(func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusTeapot, "short and stout")
	})
	status, body := doGet(t, app)
	assert.Equal(t, fiber.StatusTeapot, status)
	assert.Contains(t, body, "short and stout")
}

func TestErrorHandlerFallsBackToInternalForUnknownError(t *testing.T) {
	app := appWithHandler(func(c *fiber.Ctx) error {
		return errors.New("unmapped failure")
	})
	status, body := doGet(t, app)
	assert.Equal(t, fiber.StatusInternalServerError, status)
	assert.Contains(t, body, "internal error")
}
