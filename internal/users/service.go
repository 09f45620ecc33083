package users

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/FatPandaC8/Vexpo/internal/models"
	"github.com/FatPandaC8/Vexpo/internal/store"
	"github.com/FatPandaC8/Vexpo/pkg/apperror"
	"github.com/FatPandaC8/Vexpo/pkg/pagination"
)

// Store persists users and their role assignments.
type Store interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	List(ctx context.Context, limit, offset int) ([]models.User, int, error)
	Update(ctx context.Context, u *models.User) error
	Delete(ctx context.Context, id uuid.UUID) error
	AssignRole(ctx context.Context, userID uuid.UUID, role models.RoleName) (*models.UserRole, error)
	SetRole(ctx context.Context, userID uuid.UUID, role models.RoleName) (*models.UserRole, error)
}

// Service manages role assignments and admin user operations.
type Service struct {
	store  Store
	logger *zap.Logger
}

// NewService creates a users service.
func NewService(s Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: s, logger: logger}
}

func parseRole(raw string) (models.RoleName, error) {
	role, ok := models.ParseRole(raw)
	if !ok {
		return "", apperror.BadRequest("Invalid role: " + raw)
	}
	return role, nil
}

func notFound(err error) error {
	if errors.Is(err, store.ErrNotFound) || errors.Is(err, store.ErrReferenceMissing) {
		return apperror.NotFound("User not found")
	}
	return err
}

// AssignRole adds a role to the user. Assigning a held role returns the
// existing assignment.
func (s *Service) AssignRole(ctx context.Context, userID uuid.UUID, roleName string) (*models.UserRole, error) {
	role, err := parseRole(roleName)
	if err != nil {
		return nil, err
	}
	ur, err := s.store.AssignRole(ctx, userID, role)
	if err != nil {
		return nil, notFound(err)
	}
	return ur, nil
}

// SetRole replaces all of the user's roles with one.
func (s *Service) SetRole(ctx context.Context, userID uuid.UUID, roleName string) (*models.UserRole, error) {
	role, err := parseRole(roleName)
	if err != nil {
		return nil, err
	}
	ur, err := s.store.SetRole(ctx, userID, role)
	if err != nil {
		return nil, notFound(err)
	}
	s.logger.Info("user role set", zap.String("user_id", userID.String()), zap.String("role", string(role)))
	return ur, nil
}

// RolesOf returns the role names held by the user.
func (s *Service) RolesOf(ctx context.Context, userID uuid.UUID) ([]models.RoleName, error) {
	u, err := s.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return u.Roles, nil
}

// GetByID returns a user.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	u, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	return u, nil
}

// Profile is the caller's own account view.
type Profile struct {
	ID    uuid.UUID         `json:"id"`
	Name  string            `json:"name"`
	Email string            `json:"email"`
	Roles []models.RoleName `json:"roles"`
}

// Profile returns the account view for /me.
func (s *Service) Profile(ctx context.Context, id uuid.UUID) (*Profile, error) {
	u, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	p := u.ToPublic()
	return &Profile{ID: p.ID, Name: p.Name, Email: p.Email, Roles: p.Roles}, nil
}

// PublicInfo is what anyone may see about a user.
type PublicInfo struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
}

// PublicInfo returns the public card of a non-admin user.
func (s *Service) PublicInfo(ctx context.Context, id uuid.UUID) (*PublicInfo, error) {
	u, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u.HasRole(models.RoleAdmin) {
		return nil, apperror.BadRequest("Cannot view admin user")
	}
	return &PublicInfo{ID: u.ID, Name: u.Name, Email: u.Email}, nil
}

// ListPaginated returns a page of users with roles.
func (s *Service) ListPaginated(ctx context.Context, p pagination.Params) (pagination.Page[models.UserPublic], error) {
	list, total, err := s.store.List(ctx, p.Limit, p.Offset())
	if err != nil {
		return pagination.Page[models.UserPublic]{}, err
	}
	out := make([]models.UserPublic, 0, len(list))
	for i := range list {
		out = append(out, list[i].ToPublic())
	}
	return pagination.New(out, total, p), nil
}

// UpdateInput is an admin edit of a user; nil fields are left unchanged.
type UpdateInput struct {
	Name  *string `json:"name" binding:"omitempty,min=1,max=255"`
	Email *string `json:"email" binding:"omitempty,email"`
	Role  *string `json:"role" binding:"omitempty,expo_role"`
}

// UpdateUser applies an admin edit. A role change replaces every role.
func (s *Service) UpdateUser(ctx context.Context, id uuid.UUID, in UpdateInput) (*models.User, error) {
	if in.Role != nil {
		if _, err := parseRole(*in.Role); err != nil {
			return nil, err
		}
	}
	u, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Name != nil {
		u.Name = strings.TrimSpace(*in.Name)
	}
	if in.Email != nil {
		u.Email = strings.ToLower(strings.TrimSpace(*in.Email))
	}
	if in.Name != nil || in.Email != nil {
		if err := s.store.Update(ctx, u); err != nil {
			if store.IsUniqueViolation(err, store.UsersEmailKey) {
				return nil, apperror.Conflict("Email already registered")
			}
			return nil, notFound(err)
		}
	}
	if in.Role != nil {
		if _, err := s.SetRole(ctx, id, *in.Role); err != nil {
			return nil, err
		}
	}
	return s.GetByID(ctx, id)
}

// DeleteUser removes a user. Admins cannot delete themselves.
func (s *Service) DeleteUser(ctx context.Context, actorID, id uuid.UUID) error {
	if actorID == id {
		return apperror.BadRequest("You cannot delete yourself")
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return notFound(err)
	}
	s.logger.Info("user deleted", zap.String("user_id", id.String()), zap.String("by", actorID.String()))
	return nil
}
