// Package recommend implements the recommendation engine of spec.md
// §4.4: it turns a finalized Result's skill-score vector into a ranked
// learning plan over the course/lesson catalog. The ranking loop
// structurally mirrors the teacher's buildProgressResponse layered
// enrichment (compute a base record, then decorate it with related
// catalog lookups).
package recommend

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/noble-platform/adaptive-assessment-core/internal/models"
)

// Config tunes how many courses/lessons the engine emits per weak
// skill (spec.md §6 "recommendation_courses_per_skill").
type Config struct {
	CoursesPerSkill int
	LessonsPerCourse int
}

// Catalog is the read-only view of courses/lessons the engine ranks
// against; internal/store.DB is wrapped by StoreCatalog to satisfy it.
type Catalog interface {
	CoursesByPrimarySkill(skill string) []models.Course
	LessonsForCourse(courseID uuid.UUID) []models.Lesson
}

// skillGap is one skill's measured distance from its target band
// midpoint, positive meaning room to grow.
type skillGap struct {
	skill string
	gap   float64
}

// Plan computes the ordered RecommendedItem list for a finalized
// Result, per spec.md §4.4 steps 1-6. profRange provides the CEFR band
// boundaries used to locate the target band's midpoint.
func Plan(result models.Result, catalog Catalog, cfg Config, profRange map[models.CEFR][2]float64) []models.RecommendedItem {
	target := result.ProficiencyLevel.Next()
	gaps := computeGaps(result.SkillScores, target, profRange)

	sort.SliceStable(gaps, func(i, j int) bool {
		if gaps[i].gap != gaps[j].gap {
			return gaps[i].gap > gaps[j].gap
		}
		return gaps[i].skill < gaps[j].skill
	})

	out := make([]models.RecommendedItem, 0)
	priority := 1
	for _, g := range gaps {
		if g.gap <= 0 {
			continue // strength, not a gap
		}
		courses := eligibleCourses(catalog.CoursesByPrimarySkill(g.skill), result.ProficiencyLevel, result.SkillScores)
		sort.SliceStable(courses, func(i, j int) bool { return courses[i].DifficultyOrder < courses[j].DifficultyOrder })

		taken := 0
		for _, course := range courses {
			if taken >= cfg.CoursesPerSkill {
				break
			}
			out = append(out, models.RecommendedItem{
				ID:            uuid.New(),
				ContentID:     course.ID,
				ContentType:   "course",
				TargetSkill:   g.skill,
				SkillGapSize:  g.gap,
				Rationale:     rationale(g.skill, g.gap, target),
				PriorityOrder: priority,
				Source:        models.SourceAuto,
			})
			priority++
			taken++

			lessons := catalog.LessonsForCourse(course.ID)
			lessonsTaken := 0
			for _, lesson := range lessons {
				if lessonsTaken >= cfg.LessonsPerCourse {
					break
				}
				if !containsSkill(lesson.TargetSkills, g.skill) {
					continue
				}
				out = append(out, models.RecommendedItem{
					ID:            uuid.New(),
					ContentID:     lesson.ID,
					ContentType:   "lesson",
					TargetSkill:   g.skill,
					SkillGapSize:  g.gap,
					Rationale:     rationale(g.skill, g.gap, target),
					PriorityOrder: priority,
					Source:        models.SourceAuto,
				})
				priority++
				lessonsTaken++
			}
		}
	}
	return out
}

// computeGaps measures each skill's distance from a single target
// band's midpoint — the overall Result CEFR one band above current,
// applied uniformly across every skill rather than each skill's own
// band — per spec.md §4.4 step 1-2 and §8 scenario 6.
func computeGaps(scores map[string]models.SkillScore, target models.CEFR, profRange map[models.CEFR][2]float64) []skillGap {
	bounds, ok := profRange[target]
	if !ok {
		return nil
	}
	midpoint := (bounds[0] + bounds[1]) / 2

	out := make([]skillGap, 0, len(scores))
	for skill, score := range scores {
		out = append(out, skillGap{skill: skill, gap: midpoint - score.Theta})
	}
	return out
}

// eligibleCourses keeps courses targeting the student's current band or
// one above, with every prerequisite skill band satisfied, per spec.md
// §4.4 step 3's candidate-pool filter.
func eligibleCourses(courses []models.Course, currentBand models.CEFR, scores map[string]models.SkillScore) []models.Course {
	out := make([]models.Course, 0, len(courses))
	for _, course := range courses {
		if course.TargetCEFR != currentBand && course.TargetCEFR != currentBand.Next() {
			continue
		}
		if !prerequisitesSatisfied(course.Prerequisites, scores) {
			continue
		}
		out = append(out, course)
	}
	return out
}

func prerequisitesSatisfied(prereqs map[string]models.CEFR, scores map[string]models.SkillScore) bool {
	for skill, required := range prereqs {
		score, ok := scores[skill]
		if !ok || score.CEFRMapping.Index() < required.Index() {
			return false
		}
	}
	return true
}

func containsSkill(skills []string, target string) bool {
	for _, s := range skills {
		if s == target {
			return true
		}
	}
	return false
}

func rationale(skill string, gap float64, target models.CEFR) string {
	return fmt.Sprintf("targets %s to close a %.2f theta gap toward %s", skill, gap, target)
}

// ValidateOverride checks an admin-supplied manual override row against
// the catalog, returning false if contentId does not exist or is
// inactive (spec.md §4.4 "Manual override").
func ValidateOverride(row models.ManualOverrideRow, courseLookup func(uuid.UUID) (*models.Course, error), lessonLookup func(uuid.UUID) (*models.Lesson, error)) bool {
	switch row.ContentType {
	case "course":
		c, err := courseLookup(row.ContentID)
		return err == nil && c != nil && c.Active
	case "lesson":
		l, err := lessonLookup(row.ContentID)
		return err == nil && l != nil && l.Active
	default:
		return false
	}
}

// ToRecommendedItems converts validated override rows to
// RecommendedItem rows ready for persistence, keeping the input order
// and copying each row's Priority into PriorityOrder.
func ToRecommendedItems(resultID uuid.UUID, rows []models.ManualOverrideRow) []models.RecommendedItem {
	out := make([]models.RecommendedItem, 0, len(rows))
	for _, row := range rows {
		out = append(out, models.RecommendedItem{
			ID:            uuid.New(),
			ResultID:      resultID,
			ContentID:     row.ContentID,
			ContentType:   row.ContentType,
			TargetSkill:   row.TargetSkill,
			PriorityOrder: row.Priority,
			Source:        models.SourceManual,
		})
	}
	return out
}
