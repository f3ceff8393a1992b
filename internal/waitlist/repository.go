package waitlist

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/treppan-learn/backend/internal/models"
)

// ErrNotFound is returned for unknown waitlist entries.
var ErrNotFound = errors.New("waitlist entry not found")

// Repository handles waitlist_entries persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a waitlist repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Upsert inserts an entry (unique per email). Returns created=false when the email was already listed.
func (r *Repository) Upsert(ctx context.Context, e *models.WaitlistEntry) (bool, error) {
	const q = `INSERT INTO waitlist_entries (id, email, full_name, source)
		VALUES (gen_random_uuid(), $1, $2, $3)
		ON CONFLICT (email) DO UPDATE SET
			full_name = COALESCE(NULLIF(EXCLUDED.full_name, ''), waitlist_entries.full_name),
			updated_at = NOW()
		RETURNING id, confirmed_at, created_at, updated_at, (xmax = 0)`
	var created bool
	err := r.pool.QueryRow(ctx, q, e.Email, e.FullName, e.Source).
		Scan(&e.ID, &e.ConfirmedAt, &e.CreatedAt, &e.UpdatedAt, &created)
	return created, err
}

// GetByID returns an entry by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.WaitlistEntry, error) {
	const q = `SELECT id, email, full_name, source, confirmed_at, created_at, updated_at FROM waitlist_entries WHERE id = $1`
	var e models.WaitlistEntry
	err := r.pool.QueryRow(ctx, q, id).Scan(&e.ID, &e.Email, &e.FullName, &e.Source, &e.ConfirmedAt, &e.CreatedAt, &e.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// MarkConfirmationSent records that the confirmation email went out.
func (r *Repository) MarkConfirmationSent(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `UPDATE waitlist_entries SET confirmed_at = NOW(), updated_at = NOW() WHERE id = $1 AND confirmed_at IS NULL`, id)
	return err
}
