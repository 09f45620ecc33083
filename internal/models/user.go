package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// RoleName is one of the platform roles.
type RoleName string

const (
	RoleVisitor   RoleName = "visitor"
	RoleExhibitor RoleName = "exhibitor"
	RoleOrganizer RoleName = "organizer"
	RoleAdmin     RoleName = "admin"
)

// AllRoles lists every role in the closed set, in seed order.
var AllRoles = []RoleName{RoleAdmin, RoleOrganizer, RoleExhibitor, RoleVisitor}

// ParseRole normalizes s and reports whether it names a known role.
func ParseRole(s string) (RoleName, bool) {
	r := RoleName(strings.ToLower(strings.TrimSpace(s)))
	switch r {
	case RoleVisitor, RoleExhibitor, RoleOrganizer, RoleAdmin:
		return r, true
	}
	return "", false
}

// Role is a row of the static roles table.
type Role struct {
	ID   int16    `json:"id"`
	Name RoleName `json:"name"`
}

// UserRole is the (user, role) assignment.
type UserRole struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Role      RoleName  `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// User represents a platform user. PasswordHash is nil for accounts created
// through the identity provider.
type User struct {
	ID           uuid.UUID  `json:"id"`
	Email        string     `json:"email"`
	PasswordHash *string    `json:"-"`
	Name         string     `json:"name"`
	Picture      *string    `json:"picture,omitempty"`
	Roles        []RoleName `json:"roles"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// HasPassword reports whether the account can log in with a password.
func (u *User) HasPassword() bool {
	return u.PasswordHash != nil && *u.PasswordHash != ""
}

// HasRole reports whether the user holds role.
func (u *User) HasRole(role RoleName) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// RoleStrings returns the role names as plain strings (for token claims).
func (u *User) RoleStrings() []string {
	out := make([]string, 0, len(u.Roles))
	for _, r := range u.Roles {
		out = append(out, string(r))
	}
	return out
}

// UserPublic is User without sensitive fields for API responses.
type UserPublic struct {
	ID        uuid.UUID  `json:"id"`
	Email     string     `json:"email"`
	Name      string     `json:"name"`
	Roles     []RoleName `json:"roles"`
	CreatedAt time.Time  `json:"created_at"`
}

// ToPublic converts User to UserPublic.
func (u *User) ToPublic() UserPublic {
	roles := u.Roles
	if roles == nil {
		roles = []RoleName{}
	}
	return UserPublic{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Roles:     roles,
		CreatedAt: u.CreatedAt,
	}
}
