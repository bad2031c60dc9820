package config

import (
	"encoding/json"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/noble-platform/adaptive-assessment-core/internal/models"
)

// ConfigSchema generates the JSON Schema for models.AssessmentConfig,
// used at the admin authoring edge to validate adaptive_params /
// speaking_params / writing_params JSONB blobs before they are
// persisted, per the REDESIGN FLAG replacing unvalidated JSON blob
// columns with a structured schema validated at the edge.
func ConfigSchema() (*jsonschema.Schema, error) {
	schema, err := jsonschema.For[models.AssessmentConfig](nil)
	if err != nil {
		return nil, fmt.Errorf("failed to generate assessment config schema: %w", err)
	}
	schema.Title = "AssessmentConfig"
	schema.Description = "Tunables for one assessment template: adaptive, speaking, and writing parameters."
	return schema, nil
}

// ValidateConfig decodes raw JSON bytes and checks the document against
// the AssessmentConfig schema, returning a descriptive error if either
// step fails.
func ValidateConfig(data []byte) error {
	schema, err := ConfigSchema()
	if err != nil {
		return err
	}
	resolved, err := schema.Resolve(nil)
	if err != nil {
		return fmt.Errorf("failed to resolve assessment config schema: %w", err)
	}

	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	if err := resolved.Validate(doc); err != nil {
		return fmt.Errorf("assessment config failed schema validation: %w", err)
	}
	return nil
}
