package booths

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/FatPandaC8/Vexpo/internal/models"
	"github.com/FatPandaC8/Vexpo/internal/store"
)

// Repository handles booth persistence. Placement uniqueness is enforced by
// booths_exhibitor_id_expo_id_key and booths_expo_id_map_row_map_col_key.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a booth repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const boothColumns = `id, expo_id, exhibitor_id, company_id, name, description, model_path, status, map_row, map_col, created_at, updated_at`

func scanBooth(row pgx.Row) (*models.Booth, error) {
	var b models.Booth
	var status string
	err := row.Scan(&b.ID, &b.ExpoID, &b.ExhibitorID, &b.CompanyID, &b.Name, &b.Description,
		&b.ModelPath, &status, &b.MapRow, &b.MapCol, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, store.Translate(err)
	}
	b.Status = models.BoothStatus(status)
	return &b, nil
}

func collect(rows pgx.Rows) ([]models.Booth, error) {
	defer rows.Close()
	list := []models.Booth{}
	for rows.Next() {
		b, err := scanBooth(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *b)
	}
	return list, rows.Err()
}

// Create inserts a booth in a single statement; constraint violations come
// back as *store.UniqueViolation.
func (r *Repository) Create(ctx context.Context, b *models.Booth) error {
	const q = `INSERT INTO booths (expo_id, exhibitor_id, company_id, name, description, model_path, status, map_row, map_col)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id, created_at, updated_at`
	err := r.pool.QueryRow(ctx, q, b.ExpoID, b.ExhibitorID, b.CompanyID, b.Name, b.Description,
		b.ModelPath, string(b.Status), b.MapRow, b.MapCol).Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)
	return store.Translate(err)
}

// GetByID returns a booth by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Booth, error) {
	return scanBooth(r.pool.QueryRow(ctx, `SELECT `+boothColumns+` FROM booths WHERE id = $1`, id))
}

// GetByCell returns the booth occupying (row, col) in the expo.
func (r *Repository) GetByCell(ctx context.Context, expoID uuid.UUID, row, col int) (*models.Booth, error) {
	const q = `SELECT ` + boothColumns + ` FROM booths WHERE expo_id = $1 AND map_row = $2 AND map_col = $3`
	return scanBooth(r.pool.QueryRow(ctx, q, expoID, row, col))
}

// ListByExpo returns the expo's booths in grid order; an empty status means all.
func (r *Repository) ListByExpo(ctx context.Context, expoID uuid.UUID, status models.BoothStatus) ([]models.Booth, error) {
	const q = `SELECT ` + boothColumns + ` FROM booths
		WHERE expo_id = $1 AND ($2::text = '' OR status = $2::text) ORDER BY map_row, map_col`
	rows, err := r.pool.Query(ctx, q, expoID, string(status))
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

// ListByExhibitor returns the exhibitor's booths, newest first.
func (r *Repository) ListByExhibitor(ctx context.Context, exhibitorID uuid.UUID) ([]models.Booth, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+boothColumns+` FROM booths WHERE exhibitor_id = $1 ORDER BY created_at DESC`, exhibitorID)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

// List returns a page of booths, newest first, with the total count.
func (r *Repository) List(ctx context.Context, limit, offset int) ([]models.Booth, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM booths`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, `SELECT `+boothColumns+` FROM booths ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	list, err := collect(rows)
	return list, total, err
}

// Update saves every mutable column of b. Expo and exhibitor never change.
func (r *Repository) Update(ctx context.Context, b *models.Booth) error {
	const q = `UPDATE booths SET company_id = $2, name = $3, description = $4, model_path = $5,
		status = $6, map_row = $7, map_col = $8, updated_at = NOW()
		WHERE id = $1 RETURNING expo_id, exhibitor_id, created_at, updated_at`
	err := r.pool.QueryRow(ctx, q, b.ID, b.CompanyID, b.Name, b.Description, b.ModelPath,
		string(b.Status), b.MapRow, b.MapCol).Scan(&b.ExpoID, &b.ExhibitorID, &b.CreatedAt, &b.UpdatedAt)
	return store.Translate(err)
}

// Delete removes a booth.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM booths WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// ModelPathsByExpo returns the non-empty model keys of an expo's booths.
func (r *Repository) ModelPathsByExpo(ctx context.Context, expoID uuid.UUID) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT model_path FROM booths WHERE expo_id = $1 AND model_path <> '' ORDER BY model_path`, expoID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}
