package companies

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/FatPandaC8/Vexpo/internal/models"
	"github.com/FatPandaC8/Vexpo/internal/store"
)

// Repository handles company persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a company repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const companyColumns = `id, exhibitor_id, name, industry, country, city, email, website, description, created_at, updated_at`

func scanCompany(row pgx.Row) (*models.Company, error) {
	var c models.Company
	err := row.Scan(&c.ID, &c.ExhibitorID, &c.Name, &c.Industry, &c.Country, &c.City,
		&c.Email, &c.Website, &c.Description, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, store.Translate(err)
	}
	return &c, nil
}

// Create inserts a company; a second company for the same exhibitor
// violates companies_exhibitor_id_key.
func (r *Repository) Create(ctx context.Context, c *models.Company) error {
	const q = `INSERT INTO companies (exhibitor_id, name, industry, country, city, email, website, description)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id, created_at, updated_at`
	err := r.pool.QueryRow(ctx, q, c.ExhibitorID, c.Name, c.Industry, c.Country, c.City, c.Email, c.Website, c.Description).
		Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	return store.Translate(err)
}

// GetByID returns a company by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Company, error) {
	return scanCompany(r.pool.QueryRow(ctx, `SELECT `+companyColumns+` FROM companies WHERE id = $1`, id))
}

// GetByExhibitor returns the exhibitor's company.
func (r *Repository) GetByExhibitor(ctx context.Context, exhibitorID uuid.UUID) (*models.Company, error) {
	return scanCompany(r.pool.QueryRow(ctx, `SELECT `+companyColumns+` FROM companies WHERE exhibitor_id = $1`, exhibitorID))
}

// List returns a page of companies, newest first, with the total count.
func (r *Repository) List(ctx context.Context, limit, offset int) ([]models.Company, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM companies`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, `SELECT `+companyColumns+` FROM companies ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	list := []models.Company{}
	for rows.Next() {
		c, err := scanCompany(rows)
		if err != nil {
			return nil, 0, err
		}
		list = append(list, *c)
	}
	return list, total, rows.Err()
}

// Update saves the profile fields of c.
func (r *Repository) Update(ctx context.Context, c *models.Company) error {
	const q = `UPDATE companies SET name = $2, industry = $3, country = $4, city = $5, email = $6,
		website = $7, description = $8, updated_at = NOW()
		WHERE id = $1 RETURNING exhibitor_id, created_at, updated_at`
	err := r.pool.QueryRow(ctx, q, c.ID, c.Name, c.Industry, c.Country, c.City, c.Email, c.Website, c.Description).
		Scan(&c.ExhibitorID, &c.CreatedAt, &c.UpdatedAt)
	return store.Translate(err)
}

// Delete removes a company; booths keep existing with company_id set to NULL.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM companies WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}
