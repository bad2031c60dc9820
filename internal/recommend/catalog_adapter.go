package recommend

import (
	"context"
	"log"

	"github.com/google/uuid"

	"github.com/noble-platform/adaptive-assessment-core/internal/models"
)

// CourseLister and LessonLister are the two store.DB methods the
// catalog adapter below needs; satisfied by internal/store.DB.
type CourseLister interface {
	CoursesForPathway(ctx context.Context, pathwayID uuid.UUID) ([]models.Course, error)
}

type LessonLister interface {
	LessonsForCourse(ctx context.Context, courseID uuid.UUID) ([]models.Lesson, error)
}

// StoreCatalog adapts internal/store.DB (context + error returning
// queries) to the simple Catalog interface Plan expects, scoped to one
// pathway for the lifetime of a single Plan call.
type StoreCatalog struct {
	ctx       context.Context
	courses   CourseLister
	lessons   LessonLister
	pathwayID uuid.UUID
}

func NewStoreCatalog(ctx context.Context, courses CourseLister, lessons LessonLister, pathwayID uuid.UUID) *StoreCatalog {
	return &StoreCatalog{ctx: ctx, courses: courses, lessons: lessons, pathwayID: pathwayID}
}

func (c *StoreCatalog) CoursesByPrimarySkill(skill string) []models.Course {
	all, err := c.courses.CoursesForPathway(c.ctx, c.pathwayID)
	if err != nil {
		log.Printf("recommend: failed to load courses for pathway %s: %v", c.pathwayID, err)
		return nil
	}
	out := make([]models.Course, 0)
	for _, course := range all {
		if course.PrimarySkill == skill {
			out = append(out, course)
		}
	}
	return out
}

func (c *StoreCatalog) LessonsForCourse(courseID uuid.UUID) []models.Lesson {
	lessons, err := c.lessons.LessonsForCourse(c.ctx, courseID)
	if err != nil {
		log.Printf("recommend: failed to load lessons for course %s: %v", courseID, err)
		return nil
	}
	return lessons
}
