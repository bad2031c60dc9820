package scorer

import (
	"context"

	"github.com/google/uuid"

	"github.com/noble-platform/adaptive-assessment-core/internal/apperr"
	"github.com/noble-platform/adaptive-assessment-core/internal/irt"
	"github.com/noble-platform/adaptive-assessment-core/internal/models"
)

// PlacementScorer finalizes an adaptive session by slicing its
// responses per skill and running EAP on each slice, per DESIGN.md's
// Open Question decision to defer true MIRT. The overall score is
// the EAP over every response regardless of skill.
type PlacementScorer struct {
	Items     map[uuid.UUID]models.Item
	Quad      irt.Quadrature
	ProfRange map[models.CEFR][2]float64
}

// NewPlacementScorer builds a scorer over one session's item bank
// snapshot. items must contain every item referenced by responses.
func NewPlacementScorer(items map[uuid.UUID]models.Item, quadratureSize int, profRange map[models.CEFR][2]float64) *PlacementScorer {
	return &PlacementScorer{
		Items:     items,
		Quad:      irt.NewQuadrature(quadratureSize),
		ProfRange: profRange,
	}
}

func (s *PlacementScorer) Score(ctx context.Context, session models.Session, responses []models.Response, config models.AssessmentConfig, rubric models.Rubric) (models.Result, error) {
	overall, err := s.estimate(responses, nil)
	if err != nil {
		return models.Result{}, err
	}

	bySkill := map[string][]models.Response{}
	for _, r := range responses {
		item, ok := s.Items[r.ItemID]
		if !ok {
			return models.Result{}, apperr.New(apperr.Internal, "response references unknown item")
		}
		for _, skill := range item.SkillAreas {
			bySkill[skill] = append(bySkill[skill], r)
		}
	}

	skillScores := make(map[string]models.SkillScore, len(bySkill))
	for skill, rs := range bySkill {
		est, err := s.estimate(rs, nil)
		if err != nil {
			return models.Result{}, err
		}
		skillScores[skill] = models.SkillScore{
			Theta:       est.Theta,
			CEFRMapping: irt.Band(est.Theta, s.ProfRange),
		}
	}

	return models.Result{
		SessionID:         session.ID,
		ProficiencyLevel:  irt.Band(overall.Theta, s.ProfRange),
		SkillScores:       skillScores,
		OverallScore:      overall.Theta,
		ResultType:        models.ResultPlacement,
		InformationMetric: 1.0 / (overall.StandardError * overall.StandardError),
	}, nil
}

func (s *PlacementScorer) estimate(responses []models.Response, startingAbility *float64) (irt.EAPResult, error) {
	start := 0.0
	if startingAbility != nil {
		start = *startingAbility
	}
	answered := make([]irt.Answered, 0, len(responses))
	for _, r := range responses {
		item, ok := s.Items[r.ItemID]
		if !ok {
			return irt.EAPResult{}, apperr.New(apperr.Internal, "response references unknown item")
		}
		answered = append(answered, irt.Answered{Params: item.IRTParams, IsCorrect: r.IsCorrect})
	}
	return irt.EstimateEAP(s.Quad, answered, start), nil
}
