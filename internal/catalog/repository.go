package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/treppan-learn/backend/internal/models"
)

// Repository is a Provider backed by the catalog tables in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a catalog repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const courseColumns = `c.id, c.title, c.instructor, c.duration_label, c.student_count, c.level, c.description,
	COALESCE(ARRAY(SELECT s.skill FROM course_skills s WHERE s.course_id = c.id ORDER BY s.position), '{}')`

func scanCourse(row pgx.Row) (*models.CourseSummary, error) {
	var c models.CourseSummary
	var level string
	if err := row.Scan(&c.ID, &c.Title, &c.Instructor, &c.DurationLabel, &c.StudentCount, &level, &c.Description, &c.Skills); err != nil {
		return nil, err
	}
	c.Level = models.Level(level)
	return &c, nil
}

// ListCourses implements Provider.
func (r *Repository) ListCourses(ctx context.Context) ([]models.CourseSummary, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+courseColumns+` FROM courses c ORDER BY c.position, c.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := make([]models.CourseSummary, 0)
	for rows.Next() {
		c, err := scanCourse(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *c)
	}
	return list, rows.Err()
}

// GetCourse implements Provider.
func (r *Repository) GetCourse(ctx context.Context, courseID string) (*models.CourseSummary, error) {
	c, err := scanCourse(r.pool.QueryRow(ctx, `SELECT `+courseColumns+` FROM courses c WHERE c.id = $1`, courseID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return c, nil
}

// GetLessons implements Provider. A course with no lessons is reported as found with an empty
// sequence; the playback session rejects it.
func (r *Repository) GetLessons(ctx context.Context, courseID string) ([]models.Lesson, error) {
	if err := r.ensureCourse(ctx, courseID); err != nil {
		return nil, err
	}
	rows, err := r.pool.Query(ctx,
		`SELECT id, title, duration_label, completed FROM lessons WHERE course_id = $1 ORDER BY position`, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := make([]models.Lesson, 0)
	for rows.Next() {
		var l models.Lesson
		if err := rows.Scan(&l.ID, &l.Title, &l.DurationLabel, &l.Completed); err != nil {
			return nil, err
		}
		list = append(list, l)
	}
	return list, rows.Err()
}

// GetContent implements Provider. Discussion and classmates are not stored and come back empty.
func (r *Repository) GetContent(ctx context.Context, courseID string) (*models.CourseContent, error) {
	content := &models.CourseContent{
		CourseID:   courseID,
		Outcomes:   []string{},
		Resources:  []models.Resource{},
		Discussion: []models.DiscussionPost{},
		Classmates: []models.Classmate{},
	}
	err := r.pool.QueryRow(ctx, `SELECT overview FROM courses WHERE id = $1`, courseID).Scan(&content.Overview)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	rows, err := r.pool.Query(ctx,
		`SELECT id, title, kind, size_label, s3_key FROM course_resources WHERE course_id = $1 ORDER BY position`, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var res models.Resource
		if err := rows.Scan(&res.ID, &res.Title, &res.Kind, &res.Size, &res.S3Key); err != nil {
			return nil, err
		}
		content.Resources = append(content.Resources, res)
	}
	return content, rows.Err()
}

func (r *Repository) ensureCourse(ctx context.Context, courseID string) error {
	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM courses WHERE id = $1)`, courseID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}
	return nil
}

// Upsert writes a course with its lessons, skills and resources, replacing previous children.
func (r *Repository) Upsert(ctx context.Context, position int, c Course) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	const upsertCourse = `INSERT INTO courses (id, title, instructor, duration_label, student_count, level, description, overview, position)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET title = EXCLUDED.title, instructor = EXCLUDED.instructor,
			duration_label = EXCLUDED.duration_label, student_count = EXCLUDED.student_count, level = EXCLUDED.level,
			description = EXCLUDED.description, overview = EXCLUDED.overview, position = EXCLUDED.position, updated_at = NOW()`
	s := c.Summary
	if _, err := tx.Exec(ctx, upsertCourse, s.ID, s.Title, s.Instructor, s.DurationLabel, s.StudentCount, string(s.Level), s.Description, c.Content.Overview, position); err != nil {
		return fmt.Errorf("upsert course %s: %w", s.ID, err)
	}
	for _, table := range []string{"course_skills", "lessons", "course_resources"} {
		if _, err := tx.Exec(ctx, `DELETE FROM `+table+` WHERE course_id = $1`, s.ID); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	for i, skill := range s.Skills {
		if _, err := tx.Exec(ctx, `INSERT INTO course_skills (course_id, position, skill) VALUES ($1, $2, $3)`, s.ID, i, skill); err != nil {
			return fmt.Errorf("insert skill: %w", err)
		}
	}
	for i, l := range c.Lessons {
		if _, err := tx.Exec(ctx, `INSERT INTO lessons (course_id, id, position, title, duration_label, completed) VALUES ($1, $2, $3, $4, $5, $6)`,
			s.ID, l.ID, i, l.Title, l.DurationLabel, l.Completed); err != nil {
			return fmt.Errorf("insert lesson %s: %w", l.ID, err)
		}
	}
	for i, res := range c.Content.Resources {
		if _, err := tx.Exec(ctx, `INSERT INTO course_resources (course_id, id, position, title, kind, size_label, s3_key) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			s.ID, res.ID, i, res.Title, res.Kind, res.Size, res.S3Key); err != nil {
			return fmt.Errorf("insert resource %s: %w", res.ID, err)
		}
	}
	return tx.Commit(ctx)
}
