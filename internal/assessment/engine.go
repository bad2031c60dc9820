// Package assessment is the state machine of spec.md §4.3: it starts
// sessions, consumes answers, selects next items, decides termination,
// and finalizes results. It is a tagged-variant engine over
// models.AssessmentType (Placement/Speaking/Writing), replacing dynamic
// string dispatch with an exhaustive switch per the REDESIGN FLAG.
// State transition methods mirror the teacher's service-method shape
// (AwardXP, CompleteLesson, SubmitChallenge): validate, transact,
// mutate, conditionally record a side-effect row, commit, return a DTO.
package assessment

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/noble-platform/adaptive-assessment-core/internal/irt"
	"github.com/noble-platform/adaptive-assessment-core/internal/models"
	"github.com/noble-platform/adaptive-assessment-core/internal/recommend"
	"github.com/noble-platform/adaptive-assessment-core/internal/scorer"
)

// Store is the slice of internal/store.DB the engine depends on,
// narrowed to an interface so tests can fake it without a database.
type Store interface {
	CreateSession(ctx context.Context, assignedID uuid.UUID, snapshot models.TemplateSnapshot, startingAbility float64, ttl time.Duration, now time.Time) (*models.Session, error)
	LoadSession(ctx context.Context, sessionID uuid.UUID) (*models.Session, error)
	LatestSessionForAssignment(ctx context.Context, assignedID uuid.UUID) (*models.Session, error)
	AppendResponse(ctx context.Context, sessionID uuid.UUID, expectedIndex int, resp models.Response) (*models.Response, error)
	ResponsesForSession(ctx context.Context, sessionID uuid.UUID) ([]models.Response, error)
	UpdateSessionProgress(ctx context.Context, sessionID uuid.UUID, theta, se float64, status models.SessionStatus) error
	FinalizeSession(ctx context.Context, sessionID uuid.UUID, result models.Result, recs []models.RecommendedItem, now time.Time) (*models.Result, error)
	ResultForSession(ctx context.Context, sessionID uuid.UUID) (*models.Result, error)
	RecommendationsForResult(ctx context.Context, resultID uuid.UUID) ([]models.RecommendedItem, error)
	CancelSession(ctx context.Context, sessionID uuid.UUID) error

	AssignedAssessmentByID(ctx context.Context, assignedID uuid.UUID) (*models.AssignedAssessment, error)
	MarkAssignmentInProgress(ctx context.Context, assignedID uuid.UUID) error
	TemplateByID(ctx context.Context, templateID uuid.UUID) (*models.AssessmentTemplate, error)
	ActiveConfigForTemplate(ctx context.Context, templateID uuid.UUID) (*models.AssessmentConfig, error)
	ActiveItemsForTemplate(ctx context.Context, pathwayID uuid.UUID) ([]models.Item, error)
	ItemByID(ctx context.Context, itemID uuid.UUID) (*models.Item, error)
	TemplateItemsForTemplate(ctx context.Context, templateID uuid.UUID) ([]models.TemplateItem, error)

	RecordAudit(ctx context.Context, entry models.AuditLog) error
}

// Engine wires the Session Store, IRT kernel, scorer adapters, and
// recommendation engine into the operations spec.md §4.3 names.
type Engine struct {
	Store            Store
	Quadrature       irt.Quadrature
	SessionTTL       time.Duration
	ProfRange        map[models.CEFR][2]float64
	RecommendConfig  recommend.Config
	NewSpeakingScorer func(config models.AssessmentConfig) scorer.Scorer
	NewWritingScorer  func(config models.AssessmentConfig) scorer.Scorer
	NewCatalog        func(ctx context.Context, pathwayID uuid.UUID) recommend.Catalog

	resumeGroup singleflight.Group
}

// Question is the next-item payload returned to the caller; for
// non-adaptive templates it is the next TemplateItem in order.
type Question struct {
	ItemID     uuid.UUID `json:"itemId"`
	Content    string    `json:"content"`
	ItemType   string    `json:"itemType"`
	SkillAreas []string  `json:"skillAreas"`
}

// Progress summarizes a session's position for the caller.
type Progress struct {
	QuestionsAnswered int     `json:"questionsAnswered"`
	CurrentAbility    float64 `json:"currentAbility"`
	StandardError     float64 `json:"standardError"`
}

// StartResult is what start(assignedId) returns: a fresh or resumed
// session with its next question. Question is nil when no item is
// available; the session is still returned IN_PROGRESS.
type StartResult struct {
	Session  models.Session
	Question *Question
	Progress Progress
	Resumed  bool
}

// AnswerResult is what answer(...) returns: either the next question to
// present, or a terminal signal carrying the finalized result.
type AnswerResult struct {
	Session      models.Session
	NextQuestion *Question
	Done         bool
	Result       *models.Result
	Recommendations []models.RecommendedItem
}

// CompleteResult is what complete(sessionId) returns.
type CompleteResult struct {
	Result          models.Result
	Recommendations []models.RecommendedItem
}
