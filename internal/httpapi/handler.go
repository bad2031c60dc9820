package httpapi

import (
	"github.com/noble-platform/adaptive-assessment-core/internal/assessment"
	"github.com/noble-platform/adaptive-assessment-core/internal/store"
)

// Handler holds every dependency the route handlers need, following
// the teacher's Handler{progressService} shape generalized to the
// engine/store this service actually wraps.
type Handler struct {
	Engine *assessment.Engine
	DB     *store.DB
}

func NewHandler(engine *assessment.Engine, db *store.DB) *Handler {
	return &Handler{Engine: engine, DB: db}
}
