package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigSchemaGenerates(t *testing.T) {
	schema, err := ConfigSchema()
	require.NoError(t, err)
	assert.Equal(t, "AssessmentConfig", schema.Title)
}

func TestValidateConfigAcceptsWellFormedDocument(t *testing.T) {
	doc := []byte(`{
		"template_id": "11111111-1111-1111-1111-111111111111",
		"adaptive_params": {
			"starting_ability": 0,
			"min_questions": 5,
			"max_questions": 20,
			"stopping_criterion": {"standard_error": 0.3},
			"skill_areas": [],
			"proficiency_range": {},
			"top_k_selection": 1
		},
		"speaking_params": {"criteria_weights": {}, "timeout_seconds": 30},
		"writing_params": {"criteria_weights": {}, "timeout_seconds": 60, "one_by_one": false},
		"active": true
	}`)
	assert.NoError(t, ValidateConfig(doc))
}

func TestValidateConfigRejectsMalformedJSON(t *testing.T) {
	err := ValidateConfig([]byte(`not json`))
	assert.Error(t, err)
}
