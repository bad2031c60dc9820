// Package httpapi is the thin Fiber HTTP surface over the Assessment
// Engine and Recommendation Engine, generalizing the teacher's
// per-handler getUserID helper and inline error JSON into one identity
// extractor and one centralized error handler.
package httpapi

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/noble-platform/adaptive-assessment-core/internal/apperr"
)

// Identity is the trusted caller identity set by the portal BFF
// upstream of this service (spec.md §6: "the core trusts X-User-Id and
// X-User-Role headers set by the BFF").
type Identity struct {
	UserID uuid.UUID
	Email  string
	Role   string
}

// identity extracts and validates the caller's identity headers,
// generalizing the teacher's getUserID (internal/handlers/handlers.go)
// from user id alone to the full id/email/role triple every handler
// needs.
func identity(c *fiber.Ctx) (Identity, error) {
	userIDStr := c.Get("X-User-Id")
	if userIDStr == "" {
		return Identity{}, apperr.New(apperr.Authz, "X-User-Id header required")
	}
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return Identity{}, apperr.Wrap(apperr.Validation, "invalid X-User-Id format", err)
	}
	role := c.Get("X-User-Role")
	if role == "" {
		return Identity{}, apperr.New(apperr.Authz, "X-User-Role header required")
	}
	return Identity{UserID: userID, Email: c.Get("X-User-Email"), Role: role}, nil
}

// requireRole fails a request with AUTHZ unless the caller's role
// matches one of allowed.
func requireRole(id Identity, allowed ...string) error {
	for _, r := range allowed {
		if id.Role == r {
			return nil
		}
	}
	return apperr.New(apperr.Authz, "role not permitted for this operation")
}
