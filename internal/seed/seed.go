// Package seed bootstraps a demo Item Bank and Content Catalog from
// YAML fixtures, replacing the teacher's hardcoded Go-literal level
// tables (internal/services/seed.go) with data loaded at startup.
package seed

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/noble-platform/adaptive-assessment-core/internal/models"
	"github.com/noble-platform/adaptive-assessment-core/internal/store"
)

// itemFixture mirrors models.Item with plain fields yaml.v3 can decode
// without a uuid.UUID custom unmarshaler; callers generate a fresh ID.
type itemFixture struct {
	Content    string            `yaml:"content"`
	ItemType   string            `yaml:"item_type"`
	SkillAreas []string          `yaml:"skill_areas"`
	TargetCEFR models.CEFR       `yaml:"target_cefr"`
	IRTParams  models.IRTParams  `yaml:"irt_params"`
}

type courseFixture struct {
	Title           string            `yaml:"title"`
	TargetCEFR      models.CEFR       `yaml:"target_cefr"`
	PrimarySkill    string            `yaml:"primary_skill"`
	SecondarySkills []string          `yaml:"secondary_skills"`
	DifficultyOrder int               `yaml:"difficulty_order"`
	Lessons         []lessonFixture   `yaml:"lessons"`
}

type lessonFixture struct {
	Title        string   `yaml:"title"`
	TargetSkills []string `yaml:"target_skills"`
	Order        int      `yaml:"order"`
}

// Fixture is the top-level shape of a seed YAML file: one pathway's
// item bank and course catalog.
type Fixture struct {
	PathwayID string          `yaml:"pathway_id"`
	Items     []itemFixture   `yaml:"items"`
	Courses   []courseFixture `yaml:"courses"`
}

// Load parses a seed YAML file from disk without touching the database,
// so callers can validate fixtures independently of a live connection.
func Load(path string) (*Fixture, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed fixture %s: %w", path, err)
	}
	var f Fixture
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("failed to parse seed fixture %s: %w", path, err)
	}
	return &f, nil
}

// Apply inserts a fixture's items and courses/lessons via the store's
// authoring methods. It inserts every row unconditionally and does not
// check for existing ones, so applying the same fixture twice inserts
// duplicates.
// Apply is meant for demo/dev bootstrap, not production migrations.
func Apply(ctx context.Context, db *store.DB, f *Fixture) error {
	pathwayID, err := uuid.Parse(f.PathwayID)
	if err != nil {
		return fmt.Errorf("invalid pathway_id: %w", err)
	}

	for _, it := range f.Items {
		item := models.Item{
			Content:    it.Content,
			ItemType:   it.ItemType,
			SkillAreas: it.SkillAreas,
			TargetCEFR: it.TargetCEFR,
			IRTParams:  it.IRTParams,
		}
		if _, err := db.CreateItem(ctx, item); err != nil {
			return fmt.Errorf("failed to seed item %q: %w", it.Content, err)
		}
	}

	for _, c := range f.Courses {
		course := models.Course{
			PathwayID:       pathwayID,
			Title:           c.Title,
			TargetCEFR:      c.TargetCEFR,
			PrimarySkill:    c.PrimarySkill,
			SecondarySkills: c.SecondarySkills,
			Prerequisites:   map[string]models.CEFR{},
			DifficultyOrder: c.DifficultyOrder,
		}
		created, err := db.CreateCourse(ctx, course)
		if err != nil {
			return fmt.Errorf("failed to seed course %q: %w", c.Title, err)
		}
		for _, l := range c.Lessons {
			lesson := models.Lesson{
				CourseID:     created.ID,
				Title:        l.Title,
				TargetSkills: l.TargetSkills,
				Order:        l.Order,
			}
			if _, err := db.CreateLesson(ctx, lesson); err != nil {
				return fmt.Errorf("failed to seed lesson %q: %w", l.Title, err)
			}
		}
	}
	return nil
}
