package irt

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/noble-platform/adaptive-assessment-core/internal/models"
)

func TestCheckTerminationFixedMinMax(t *testing.T) {
	// A session with min_questions = max_questions = N always terminates
	// at exactly N answers regardless of SE (spec.md §8 boundary behavior).
	params := models.AdaptiveParams{
		MinQuestions:      10,
		MaxQuestions:      10,
		StoppingCriterion: models.StoppingCriterion{StandardError: 0.01},
	}

	for n := 0; n < 10; n++ {
		reason := CheckTermination(n, 5.0, params, 50)
		assert.Equal(t, NotTerminal, reason, "should not terminate before reaching N")
	}
	assert.Equal(t, ReasonMaxQuestions, CheckTermination(10, 5.0, params, 50))
}

func TestCheckTerminationByStandardError(t *testing.T) {
	params := models.AdaptiveParams{
		MinQuestions:      5,
		MaxQuestions:      25,
		StoppingCriterion: models.StoppingCriterion{StandardError: 0.3},
	}

	assert.Equal(t, NotTerminal, CheckTermination(5, 0.5, params, 10), "SE above target keeps going")
	assert.Equal(t, ReasonStandardErr, CheckTermination(5, 0.3, params, 10))
	assert.Equal(t, NotTerminal, CheckTermination(4, 0.1, params, 10), "below min_questions never stops on SE alone")
}

func TestCheckTerminationBankExhaustion(t *testing.T) {
	params := models.AdaptiveParams{
		MinQuestions:      5,
		MaxQuestions:      25,
		StoppingCriterion: models.StoppingCriterion{StandardError: 0.1},
	}
	assert.Equal(t, ReasonBankExhausted, CheckTermination(3, 1.0, params, 0))
}

func TestFilterEligibleRespectsSkillMax(t *testing.T) {
	bank := []models.Item{
		{ID: uuid.New(), SkillAreas: []string{"grammar"}, Active: true},
		{ID: uuid.New(), SkillAreas: []string{"grammar"}, Active: true},
		{ID: uuid.New(), SkillAreas: []string{"vocabulary"}, Active: true},
	}
	rules := []models.SkillAreaRule{{Skill: "grammar", Min: 0, Max: 1}}
	skillCounts := map[string]int{"grammar": 1}

	candidates := FilterEligible(bank, map[uuid.UUID]bool{}, skillCounts, rules)
	for _, c := range candidates {
		for _, s := range c.Item.SkillAreas {
			assert.NotEqual(t, "grammar", s, "grammar bucket already at max, should be excluded")
		}
	}
	assert.Len(t, candidates, 1)
}

func TestFilterEligibleExcludesAnswered(t *testing.T) {
	answeredID := uuid.New()
	bank := []models.Item{
		{ID: answeredID, SkillAreas: []string{"grammar"}, Active: true},
		{ID: uuid.New(), SkillAreas: []string{"grammar"}, Active: true},
	}
	candidates := FilterEligible(bank, map[uuid.UUID]bool{answeredID: true}, map[string]int{}, nil)
	assert.Len(t, candidates, 1)
	assert.NotEqual(t, answeredID, candidates[0].Item.ID)
}

func TestSelectNextTieBreakByItemID(t *testing.T) {
	idLow := uuid.MustParse("00000000-0000-0000-0000-000000000001")
	idHigh := uuid.MustParse("00000000-0000-0000-0000-000000000002")
	candidates := []Candidate{
		{Item: models.Item{ID: idHigh, IRTParams: rasch(0)}},
		{Item: models.Item{ID: idLow, IRTParams: rasch(0)}},
	}
	picked, ok := SelectNext(0, candidates, 1, nil)
	assert.True(t, ok)
	assert.Equal(t, idLow, picked.ID, "identical info/b ties broken by lexicographic item id")
}

func TestSelectNextEmptyCandidates(t *testing.T) {
	_, ok := SelectNext(0, nil, 1, nil)
	assert.False(t, ok)
}
