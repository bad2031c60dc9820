package irt

import (
	"sort"

	"github.com/google/uuid"
	"github.com/noble-platform/adaptive-assessment-core/internal/models"
)

// Candidate is one unanswered, still-eligible item considered for
// selection, along with the skill deficit that drove it into the pool.
type Candidate struct {
	Item          models.Item
	SkillDeficit  int // larger means the skill needs more coverage
}

// SelectNext picks the candidate that maximizes Fisher information at
// theta, breaking ties by (1) largest skill deficit, (2) smallest
// |b - theta|, (3) lexicographic item id, for reproducibility (spec.md
// §4.1 "Item selection"). topK > 1 enables randomesque selection among
// the top-K most informative candidates, picked via rng.
func SelectNext(theta float64, candidates []Candidate, topK int, rng func(n int) int) (models.Item, bool) {
	if len(candidates) == 0 {
		return models.Item{}, false
	}

	type scored struct {
		candidate Candidate
		info      float64
	}
	scoredList := make([]scored, len(candidates))
	for i, c := range candidates {
		scoredList[i] = scored{candidate: c, info: Information(theta, c.Item.IRTParams)}
	}

	sort.SliceStable(scoredList, func(i, j int) bool {
		a, b := scoredList[i], scoredList[j]
		if a.info != b.info {
			return a.info > b.info
		}
		if a.candidate.SkillDeficit != b.candidate.SkillDeficit {
			return a.candidate.SkillDeficit > b.candidate.SkillDeficit
		}
		da := absf(a.candidate.Item.IRTParams.B - theta)
		db := absf(b.candidate.Item.IRTParams.B - theta)
		if da != db {
			return da < db
		}
		return a.candidate.Item.ID.String() < b.candidate.Item.ID.String()
	})

	k := topK
	if k < 1 {
		k = 1
	}
	if k > len(scoredList) {
		k = len(scoredList)
	}
	idx := 0
	if k > 1 && rng != nil {
		idx = rng(k)
		if idx < 0 || idx >= k {
			idx = 0
		}
	}
	return scoredList[idx].candidate.Item, true
}

func absf(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// SkillCounts tallies how many answered items belong to each skill area.
func SkillCounts(answeredItems []models.Item) map[string]int {
	counts := make(map[string]int)
	for _, it := range answeredItems {
		for _, skill := range it.SkillAreas {
			counts[skill]++
		}
	}
	return counts
}

// FilterEligible removes already-answered items and items whose skill
// bucket has already reached its configured max, per spec.md §4.1
// "Exposure and content controls".
func FilterEligible(bank []models.Item, answered map[uuid.UUID]bool, skillCounts map[string]int, rules []models.SkillAreaRule) []Candidate {
	maxBySkill := make(map[string]int)
	for _, r := range rules {
		if r.Max > 0 {
			maxBySkill[r.Skill] = r.Max
		}
	}

	minBySkill := make(map[string]int)
	for _, r := range rules {
		minBySkill[r.Skill] = r.Min
	}

	out := make([]Candidate, 0, len(bank))
	for _, item := range bank {
		if !item.Active || answered[item.ID] {
			continue
		}
		skipped := false
		deficit := 0
		for _, skill := range item.SkillAreas {
			if max, ok := maxBySkill[skill]; ok && skillCounts[skill] >= max {
				skipped = true
				break
			}
			if min := minBySkill[skill]; min > skillCounts[skill] {
				deficit += min - skillCounts[skill]
			}
		}
		if skipped {
			continue
		}
		out = append(out, Candidate{Item: item, SkillDeficit: deficit})
	}
	return out
}

// TerminationReason names why a session stopped collecting responses.
type TerminationReason string

const (
	NotTerminal        TerminationReason = ""
	ReasonMaxQuestions TerminationReason = "MAX_QUESTIONS"
	ReasonStandardErr  TerminationReason = "STANDARD_ERROR"
	ReasonBankExhausted TerminationReason = "BANK_EXHAUSTED"
)

// CheckTermination evaluates spec.md §4.1's three termination criteria
// in order. candidatesRemaining is the count of still-eligible,
// unanswered items after the current response was scored.
func CheckTermination(questionsAnswered int, se float64, params models.AdaptiveParams, candidatesRemaining int) TerminationReason {
	if questionsAnswered >= params.MaxQuestions {
		return ReasonMaxQuestions
	}
	if questionsAnswered >= params.MinQuestions && se <= params.StoppingCriterion.StandardError {
		return ReasonStandardErr
	}
	if candidatesRemaining == 0 {
		return ReasonBankExhausted
	}
	return NotTerminal
}
