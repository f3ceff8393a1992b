package analytics

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/treppan-learn/backend/internal/models"
)

// Repository handles lesson_stats persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a lesson stats repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// RecordLessonEvent increments the start or completion counter of the event's lesson.
func (r *Repository) RecordLessonEvent(ctx context.Context, ev models.LessonEvent) error {
	var starts, completions int
	switch ev.Type {
	case models.LessonEventStarted:
		starts = 1
	case models.LessonEventCompleted:
		completions = 1
	default:
		return fmt.Errorf("unknown lesson event type %q", ev.Type)
	}
	const q = `INSERT INTO lesson_stats (course_id, lesson_id, starts, completions, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (course_id, lesson_id) DO UPDATE SET
			starts = lesson_stats.starts + EXCLUDED.starts,
			completions = lesson_stats.completions + EXCLUDED.completions,
			updated_at = NOW()`
	_, err := r.pool.Exec(ctx, q, ev.CourseID, ev.LessonID, starts, completions)
	return err
}

// ListByCourse returns the lesson stats rows of a course.
func (r *Repository) ListByCourse(ctx context.Context, courseID string) ([]models.LessonStats, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT course_id, lesson_id, starts, completions, updated_at FROM lesson_stats WHERE course_id = $1`,
		courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.LessonStats
	for rows.Next() {
		var s models.LessonStats
		if err := rows.Scan(&s.CourseID, &s.LessonID, &s.Starts, &s.Completions, &s.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, s)
	}
	return list, rows.Err()
}
