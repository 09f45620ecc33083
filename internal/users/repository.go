package users

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/FatPandaC8/Vexpo/internal/models"
	"github.com/FatPandaC8/Vexpo/internal/store"
)

// Repository handles user and role-assignment persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a users repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const userColumns = `u.id, u.email, u.password_hash, u.name, u.picture, u.created_at, u.updated_at,
	COALESCE(array_agg(r.name ORDER BY r.id) FILTER (WHERE r.name IS NOT NULL), '{}')`

const userFrom = ` FROM users u
	LEFT JOIN user_roles ur ON ur.user_id = u.id
	LEFT JOIN roles r ON r.id = ur.role_id`

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	var roles []string
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.Picture, &u.CreatedAt, &u.UpdatedAt, &roles); err != nil {
		return nil, store.Translate(err)
	}
	for _, r := range roles {
		u.Roles = append(u.Roles, models.RoleName(r))
	}
	return &u, nil
}

// Create inserts u and its initial roles in one transaction.
func (r *Repository) Create(ctx context.Context, u *models.User, roles ...models.RoleName) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		const q = `INSERT INTO users (email, password_hash, name, picture)
			VALUES ($1, $2, $3, $4) RETURNING id, created_at, updated_at`
		if err := tx.QueryRow(ctx, q, u.Email, u.PasswordHash, u.Name, u.Picture).
			Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return store.Translate(err)
		}
		u.Roles = nil
		for _, role := range roles {
			if _, err := assignRole(ctx, tx, u.ID, role); err != nil {
				return err
			}
			u.Roles = append(u.Roles, role)
		}
		return nil
	})
}

// GetByID returns a user with roles.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	q := `SELECT ` + userColumns + userFrom + ` WHERE u.id = $1 GROUP BY u.id`
	return scanUser(r.pool.QueryRow(ctx, q, id))
}

// GetByEmail returns a user with roles.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	q := `SELECT ` + userColumns + userFrom + ` WHERE lower(u.email) = lower($1) GROUP BY u.id`
	return scanUser(r.pool.QueryRow(ctx, q, email))
}

// List returns one page of users, newest first, and the total count.
func (r *Repository) List(ctx context.Context, limit, offset int) ([]models.User, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&total); err != nil {
		return nil, 0, err
	}
	q := `SELECT ` + userColumns + userFrom + ` GROUP BY u.id ORDER BY u.created_at DESC LIMIT $1 OFFSET $2`
	rows, err := r.pool.Query(ctx, q, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	list := []models.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		list = append(list, *u)
	}
	return list, total, rows.Err()
}

// Update saves email, name, picture and password hash.
func (r *Repository) Update(ctx context.Context, u *models.User) error {
	const q = `UPDATE users SET email = $2, name = $3, picture = $4, password_hash = $5, updated_at = NOW()
		WHERE id = $1 RETURNING updated_at`
	err := r.pool.QueryRow(ctx, q, u.ID, u.Email, u.Name, u.Picture, u.PasswordHash).Scan(&u.UpdatedAt)
	return store.Translate(err)
}

// Delete removes a user; dependent rows go with it through ON DELETE CASCADE.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// AssignRole adds role to the user. An existing assignment is returned as is.
func (r *Repository) AssignRole(ctx context.Context, userID uuid.UUID, role models.RoleName) (*models.UserRole, error) {
	return assignRole(ctx, r.pool, userID, role)
}

// SetRole replaces every assignment of the user with role.
func (r *Repository) SetRole(ctx context.Context, userID uuid.UUID, role models.RoleName) (*models.UserRole, error) {
	var ur *models.UserRole
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM user_roles WHERE user_id = $1`, userID); err != nil {
			return err
		}
		var err error
		ur, err = assignRole(ctx, tx, userID, role)
		return err
	})
	return ur, err
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func assignRole(ctx context.Context, q querier, userID uuid.UUID, role models.RoleName) (*models.UserRole, error) {
	const insert = `INSERT INTO user_roles (user_id, role_id)
		SELECT $1, r.id FROM roles r WHERE r.name = $2
		ON CONFLICT ON CONSTRAINT user_roles_user_id_role_id_key DO NOTHING`
	const sel = `SELECT ur.id, ur.user_id, r.name, ur.created_at FROM user_roles ur
		JOIN roles r ON r.id = ur.role_id WHERE ur.user_id = $1 AND r.name = $2`

	if _, err := q.Exec(ctx, insert, userID, string(role)); err != nil {
		return nil, store.Translate(err)
	}
	var ur models.UserRole
	var name string
	if err := q.QueryRow(ctx, sel, userID, string(role)).Scan(&ur.ID, &ur.UserID, &name, &ur.CreatedAt); err != nil {
		return nil, store.Translate(err)
	}
	ur.Role = models.RoleName(name)
	return &ur, nil
}
