// Package scorer generalizes the teacher's intelligence.Client adapter
// into the scorer variants spec.md §4.5 names: PlacementScorer delegates
// to the IRT kernel, SpeakingScorer and WritingScorer call out to an
// external ASR/LLM scoring service over HTTP.
package scorer

import (
	"context"

	"github.com/noble-platform/adaptive-assessment-core/internal/models"
)

// Scorer produces a Result from a completed session's responses. The
// engine calls exactly one variant per session, chosen by
// models.AssessmentType.
type Scorer interface {
	Score(ctx context.Context, session models.Session, responses []models.Response, config models.AssessmentConfig, rubric models.Rubric) (models.Result, error)
}
