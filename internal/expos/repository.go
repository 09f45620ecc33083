package expos

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/FatPandaC8/Vexpo/internal/models"
	"github.com/FatPandaC8/Vexpo/internal/store"
)

// Repository handles expo persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an expo repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const expoColumns = `id, organizer_id, name, type, start_date, end_date, description, website, created_at, updated_at`

func scanExpo(row pgx.Row) (*models.Expo, error) {
	var e models.Expo
	err := row.Scan(&e.ID, &e.OrganizerID, &e.Name, &e.Type, &e.StartDate, &e.EndDate,
		&e.Description, &e.Website, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, store.Translate(err)
	}
	return &e, nil
}

// Create inserts an expo.
func (r *Repository) Create(ctx context.Context, e *models.Expo) error {
	const q = `INSERT INTO expos (organizer_id, name, type, start_date, end_date, description, website)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id, created_at, updated_at`
	err := r.pool.QueryRow(ctx, q, e.OrganizerID, e.Name, e.Type, e.StartDate, e.EndDate, e.Description, e.Website).
		Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
	return store.Translate(err)
}

// GetByID returns an expo by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Expo, error) {
	return scanExpo(r.pool.QueryRow(ctx, `SELECT `+expoColumns+` FROM expos WHERE id = $1`, id))
}

// List returns expos matching f, newest first, with the total match count.
func (r *Repository) List(ctx context.Context, f models.ExpoFilter, limit, offset int) ([]models.Expo, int, error) {
	where := ` WHERE 1=1`
	var args []any
	if f.Type != "" {
		args = append(args, f.Type)
		where += fmt.Sprintf(` AND lower(type) = lower($%d)`, len(args))
	}
	if f.OrganizerID != nil {
		args = append(args, *f.OrganizerID)
		where += fmt.Sprintf(` AND organizer_id = $%d`, len(args))
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM expos`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	q := `SELECT ` + expoColumns + ` FROM expos` + where +
		fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	rows, err := r.pool.Query(ctx, q, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	list := []models.Expo{}
	for rows.Next() {
		e, err := scanExpo(rows)
		if err != nil {
			return nil, 0, err
		}
		list = append(list, *e)
	}
	return list, total, rows.Err()
}

// Update saves the mutable fields of e. The organizer never changes.
func (r *Repository) Update(ctx context.Context, e *models.Expo) error {
	const q = `UPDATE expos SET name = $2, type = $3, start_date = $4, end_date = $5,
		description = $6, website = $7, updated_at = NOW()
		WHERE id = $1 RETURNING organizer_id, created_at, updated_at`
	err := r.pool.QueryRow(ctx, q, e.ID, e.Name, e.Type, e.StartDate, e.EndDate, e.Description, e.Website).
		Scan(&e.OrganizerID, &e.CreatedAt, &e.UpdatedAt)
	return store.Translate(err)
}

// Delete removes an expo; booths and registrations cascade.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM expos WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}
