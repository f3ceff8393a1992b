// Package catalog supplies course summaries, lesson sequences and per-course content.
package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/treppan-learn/backend/internal/models"
)

// ErrNotFound is returned when a course id is not in the catalog.
var ErrNotFound = errors.New("course not found")

// Provider is a read-only source of catalog data. Implementations return copies; callers may
// mutate what they get back without affecting the catalog.
type Provider interface {
	// ListCourses returns every course summary in catalog order.
	ListCourses(ctx context.Context) ([]models.CourseSummary, error)

	// GetCourse returns one course summary.
	GetCourse(ctx context.Context, courseID string) (*models.CourseSummary, error)

	// GetLessons returns the ordered lesson sequence of a course.
	GetLessons(ctx context.Context, courseID string) ([]models.Lesson, error)

	// GetContent returns the content-tab material of a course.
	GetContent(ctx context.Context, courseID string) (*models.CourseContent, error)
}

// ResolveLessons returns the lessons of courseID, substituting defaultCourseID when courseID is
// unknown or empty. The returned id is the course actually resolved.
func ResolveLessons(ctx context.Context, p Provider, courseID, defaultCourseID string) (string, []models.Lesson, error) {
	if courseID != "" {
		lessons, err := p.GetLessons(ctx, courseID)
		if err == nil {
			return courseID, lessons, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return "", nil, err
		}
	}
	lessons, err := p.GetLessons(ctx, defaultCourseID)
	if err != nil {
		return "", nil, fmt.Errorf("default course %q: %w", defaultCourseID, err)
	}
	return defaultCourseID, lessons, nil
}

// ResolveCourse is ResolveLessons for the course summary.
func ResolveCourse(ctx context.Context, p Provider, courseID, defaultCourseID string) (*models.CourseSummary, error) {
	if courseID != "" {
		c, err := p.GetCourse(ctx, courseID)
		if err == nil {
			return c, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
	}
	c, err := p.GetCourse(ctx, defaultCourseID)
	if err != nil {
		return nil, fmt.Errorf("default course %q: %w", defaultCourseID, err)
	}
	return c, nil
}

func cloneSlice[T any](in []T) []T {
	out := make([]T, len(in))
	copy(out, in)
	return out
}

func copySummary(in models.CourseSummary) models.CourseSummary {
	out := in
	out.Skills = cloneSlice(in.Skills)
	return out
}

func copyContent(in models.CourseContent) models.CourseContent {
	out := in
	out.Outcomes = cloneSlice(in.Outcomes)
	out.Resources = cloneSlice(in.Resources)
	out.Discussion = cloneSlice(in.Discussion)
	out.Classmates = cloneSlice(in.Classmates)
	return out
}
