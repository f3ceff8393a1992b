package sessionlog

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/treppan-learn/backend/internal/models"
)

// Repository handles viewer_sessions.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a session log repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// LogOpen inserts a row when a viewer opens a playback session.
func (r *Repository) LogOpen(ctx context.Context, sessionID uuid.UUID, courseID string, openedAt time.Time) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO viewer_sessions (session_id, course_id, opened_at) VALUES ($1, $2, $3)
		 ON CONFLICT (session_id) DO NOTHING`,
		sessionID, courseID, openedAt)
	return err
}

// LogClose closes the open row for a session and records its watch time.
func (r *Repository) LogClose(ctx context.Context, sessionID uuid.UUID, closedAt time.Time) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE viewer_sessions SET closed_at = $2,
		   watch_seconds = GREATEST(0, EXTRACT(EPOCH FROM ($2 - opened_at))::BIGINT)
		 WHERE session_id = $1 AND closed_at IS NULL`,
		sessionID, closedAt)
	return err
}

// WatchTimeAggregates holds closed-session totals for a course.
type WatchTimeAggregates struct {
	TotalWatchSeconds int64
	Sessions          int
}

// GetWatchTimeAggregates returns total watch time and closed session count for a course.
func (r *Repository) GetWatchTimeAggregates(ctx context.Context, courseID string) (*WatchTimeAggregates, error) {
	const q = `SELECT COALESCE(SUM(watch_seconds), 0), COUNT(*) FROM viewer_sessions WHERE course_id = $1 AND closed_at IS NOT NULL`
	var agg WatchTimeAggregates
	err := r.pool.QueryRow(ctx, q, courseID).Scan(&agg.TotalWatchSeconds, &agg.Sessions)
	if err != nil {
		return nil, err
	}
	return &agg, nil
}

// ListByCourse returns the most recent viewer sessions of a course.
func (r *Repository) ListByCourse(ctx context.Context, courseID string, limit int) ([]models.ViewerSessionLog, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx,
		`SELECT id, session_id, course_id, opened_at, closed_at, watch_seconds, created_at
		 FROM viewer_sessions WHERE course_id = $1 ORDER BY opened_at DESC LIMIT $2`,
		courseID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []models.ViewerSessionLog{}
	for rows.Next() {
		var row models.ViewerSessionLog
		if err := rows.Scan(&row.ID, &row.SessionID, &row.CourseID, &row.OpenedAt, &row.ClosedAt, &row.WatchSeconds, &row.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, row)
	}
	return list, rows.Err()
}
