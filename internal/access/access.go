// Package access decides whether a caller may reach a route family.
//
// Decisions are coarse: they look only at the caller's roles. Ownership of a
// particular expo or booth is checked by the owning service.
package access

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/FatPandaC8/Vexpo/internal/models"
	"github.com/FatPandaC8/Vexpo/pkg/apperror"
)

// Principal is the authenticated caller, as read from a verified token.
type Principal struct {
	UserID    uuid.UUID
	Email     string
	Roles     []models.RoleName
	TokenID   string
	ExpiresAt time.Time
	Temp      bool
}

// Has reports whether the principal holds role (case-insensitive).
func (p *Principal) Has(role models.RoleName) bool {
	if p == nil {
		return false
	}
	want := strings.ToLower(string(role))
	for _, r := range p.Roles {
		if strings.ToLower(string(r)) == want {
			return true
		}
	}
	return false
}

// IsAdmin reports whether the principal holds the admin role.
func (p *Principal) IsAdmin() bool { return p.Has(models.RoleAdmin) }

// Requirement is what a route demands of its caller.
// The zero value is Public.
type Requirement struct {
	roles []models.RoleName
	any   bool
}

// Public lets every caller through, authenticated or not.
var Public = Requirement{}

// Roles requires the caller to hold at least one of roles. It panics on an
// empty list so that a mistyped route table fails at start-up.
func Roles(roles ...models.RoleName) Requirement {
	if len(roles) == 0 {
		panic("access: Roles requires at least one role")
	}
	norm := make([]models.RoleName, 0, len(roles))
	for _, r := range roles {
		norm = append(norm, models.RoleName(strings.ToLower(string(r))))
	}
	return Requirement{roles: norm}
}

// Authenticated requires a valid token and nothing else.
func Authenticated() Requirement {
	return Requirement{any: true}
}

// IsPublic reports whether the requirement admits anonymous callers.
func (r Requirement) IsPublic() bool {
	return !r.any && len(r.roles) == 0
}

// RoleNames returns the roles the requirement accepts.
func (r Requirement) RoleNames() []models.RoleName {
	return append([]models.RoleName(nil), r.roles...)
}

// Decide returns nil when p satisfies req. A nil principal on a protected
// route yields an Unauthorized error; a principal lacking every required
// role yields Forbidden. Admins satisfy every requirement.
func Decide(req Requirement, p *Principal) error {
	if req.IsPublic() {
		return nil
	}
	if p == nil || p.Temp {
		return apperror.Unauthorized("authentication required")
	}
	if req.any || p.IsAdmin() {
		return nil
	}
	for _, r := range req.roles {
		if p.Has(r) {
			return nil
		}
	}
	return apperror.Forbidden("insufficient permissions")
}
