package registrations

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/FatPandaC8/Vexpo/internal/models"
	"github.com/FatPandaC8/Vexpo/internal/store"
)

// Repository handles registration persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a registrations repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a registration; a repeat for the same expo and user
// violates registrations_expo_id_user_id_key.
func (r *Repository) Create(ctx context.Context, reg *models.Registration) error {
	const q = `INSERT INTO registrations (expo_id, user_id) VALUES ($1, $2) RETURNING id, registered_at`
	err := r.pool.QueryRow(ctx, q, reg.ExpoID, reg.UserID).Scan(&reg.ID, &reg.RegisteredAt)
	return store.Translate(err)
}

// Delete removes the user's registration for an expo.
func (r *Repository) Delete(ctx context.Context, expoID, userID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM registrations WHERE expo_id = $1 AND user_id = $2`, expoID, userID)
	if err != nil {
		return store.Translate(err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// ListByUser returns a user's registrations, newest first.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Registration, error) {
	return r.list(ctx, `SELECT id, expo_id, user_id, registered_at FROM registrations WHERE user_id = $1 ORDER BY registered_at DESC`, userID)
}

// ListByExpo returns an expo's registrations, newest first.
func (r *Repository) ListByExpo(ctx context.Context, expoID uuid.UUID) ([]models.Registration, error) {
	return r.list(ctx, `SELECT id, expo_id, user_id, registered_at FROM registrations WHERE expo_id = $1 ORDER BY registered_at DESC`, expoID)
}

func (r *Repository) list(ctx context.Context, q string, arg uuid.UUID) ([]models.Registration, error) {
	rows, err := r.pool.Query(ctx, q, arg)
	if err != nil {
		return nil, store.Translate(err)
	}
	list, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Registration, error) {
		var reg models.Registration
		err := row.Scan(&reg.ID, &reg.ExpoID, &reg.UserID, &reg.RegisteredAt)
		return reg, err
	})
	if err != nil {
		return nil, store.Translate(err)
	}
	return list, nil
}
