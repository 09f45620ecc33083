package store

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Unique constraint names, shared between the schema and the memory store.
const (
	UsersEmailKey        = "users_email_key"
	UserRolesKey         = "user_roles_user_id_role_id_key"
	CompaniesExhibitor   = "companies_exhibitor_id_key"
	BoothsExhibitorExpo  = "booths_exhibitor_id_expo_id_key"
	BoothsExpoCell       = "booths_expo_id_map_row_map_col_key"
	RegistrationsExpoKey = "registrations_expo_id_user_id_key"
)

// PostgreSQL error codes.
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
)

var (
	// ErrNotFound is returned when a row does not exist.
	ErrNotFound = errors.New("store: not found")
	// ErrReferenceMissing is returned when a referenced row does not exist.
	ErrReferenceMissing = errors.New("store: referenced row missing")
)

// UniqueViolation reports a rejected write on a named unique constraint.
type UniqueViolation struct {
	Constraint string
}

func (e *UniqueViolation) Error() string {
	return fmt.Sprintf("store: unique violation on %s", e.Constraint)
}

// IsUniqueViolation reports whether err is a unique violation on constraint.
// An empty constraint matches any unique violation.
func IsUniqueViolation(err error, constraint string) bool {
	var uv *UniqueViolation
	if !errors.As(err, &uv) {
		return false
	}
	return constraint == "" || uv.Constraint == constraint
}

// Translate maps driver errors onto store errors. Other errors pass through.
func Translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeUniqueViolation:
			return &UniqueViolation{Constraint: pgErr.ConstraintName}
		case codeForeignKeyViolation:
			return fmt.Errorf("%w: %s", ErrReferenceMissing, pgErr.ConstraintName)
		}
	}
	return err
}
