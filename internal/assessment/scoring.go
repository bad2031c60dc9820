package assessment

import (
	"encoding/json"

	"github.com/noble-platform/adaptive-assessment-core/internal/models"
)

// itemContent is the shape expected in Item.Content for objective item
// types (multiple-choice, cloze); an item's content is author-supplied
// JSON, decoded here rather than carried as a separate typed column.
type itemContent struct {
	CorrectAnswer string `json:"correct_answer"`
}

// validateResponse scores one submitted answer against its item. Item
// does not carry a dedicated answer-key column (spec.md §3); the key is
// embedded in Content for objective item types. Free-response item
// types (itemType == "open") are never auto-scored here; isCorrect
// defaults false and downstream rawScore is left to the scorer
// adapter, matching the teacher's own acknowledged validateSubmission
// simplification for unscored submission types.
func validateResponse(item models.Item, responseData models.JSONB) (isCorrect bool, rawScore float64) {
	if item.ItemType != "mcq" && item.ItemType != "cloze" {
		return false, 0
	}
	var content itemContent
	if err := json.Unmarshal([]byte(item.Content), &content); err != nil {
		return false, 0
	}
	submitted, _ := responseData["answer"].(string)
	if submitted != "" && submitted == content.CorrectAnswer {
		return true, 1
	}
	return false, 0
}
