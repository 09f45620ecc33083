package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/FatPandaC8/Vexpo/internal/access"
	"github.com/FatPandaC8/Vexpo/internal/models"
	"github.com/FatPandaC8/Vexpo/internal/store"
	"github.com/FatPandaC8/Vexpo/pkg/apperror"
	"github.com/FatPandaC8/Vexpo/pkg/utils"
)

// UserStore is the slice of user persistence the issuer needs.
type UserStore interface {
	Create(ctx context.Context, u *models.User, roles ...models.RoleName) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	AssignRole(ctx context.Context, userID uuid.UUID, role models.RoleName) (*models.UserRole, error)
}

// Identity is what the identity provider asserts about a user.
type Identity struct {
	Email   string
	Name    string
	Picture string
}

// Session is a minted token plus the user it belongs to.
type Session struct {
	Token     string            `json:"token"`
	User      models.UserPublic `json:"user"`
	IsNewUser bool              `json:"is_new_user"`
	Temp      bool              `json:"temp,omitempty"`
}

// Service issues and revokes tokens.
type Service struct {
	users  UserStore
	jwt    *JWTService
	hasher utils.Hasher
	logger *zap.Logger
}

// NewService creates an auth service.
func NewService(users UserStore, jwt *JWTService, hasher utils.Hasher, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{users: users, jwt: jwt, hasher: hasher, logger: logger}
}

// selfServiceRoles are the roles a user may pick without an admin.
var selfServiceRoles = map[models.RoleName]bool{
	models.RoleVisitor:   true,
	models.RoleExhibitor: true,
	models.RoleOrganizer: true,
}

func selfServiceRole(raw string) (models.RoleName, error) {
	role, ok := models.ParseRole(raw)
	if !ok {
		return "", apperror.BadRequest("Invalid role: " + raw)
	}
	if !selfServiceRoles[role] {
		return "", apperror.BadRequest("Role must be one of visitor, exhibitor, organizer")
	}
	return role, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates a password account with one self-service role.
func (s *Service) Register(ctx context.Context, name, email, password, role string) (*Session, error) {
	r, err := selfServiceRole(role)
	if err != nil {
		return nil, err
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}
	u := &models.User{Email: normalizeEmail(email), Name: strings.TrimSpace(name), PasswordHash: &hash}
	if err := s.users.Create(ctx, u, r); err != nil {
		if store.IsUniqueViolation(err, store.UsersEmailKey) {
			return nil, apperror.Conflict("Email already registered")
		}
		return nil, err
	}
	s.logger.Info("user registered", zap.String("user_id", u.ID.String()), zap.String("role", string(r)))
	return s.session(u, false)
}

// Login verifies a password and returns a full token.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	u, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperror.NotFound("User not found")
	}
	if err != nil {
		return nil, err
	}
	if !u.HasPassword() || !s.hasher.Check(password, *u.PasswordHash) {
		return nil, apperror.Unauthorized("Invalid credentials")
	}
	return s.session(u, false)
}

// OAuthLogin signs in an identity-provider user. Unknown emails get a
// password-less account and a temp token for role selection.
func (s *Service) OAuthLogin(ctx context.Context, id Identity) (*Session, error) {
	email := normalizeEmail(id.Email)
	if email == "" {
		return nil, apperror.BadRequest("Identity has no email")
	}
	u, err := s.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if len(u.Roles) == 0 {
			return s.tempSession(u)
		}
		return s.session(u, false)
	case !errors.Is(err, store.ErrNotFound):
		return nil, err
	}

	u = &models.User{Email: email, Name: id.Name}
	if id.Picture != "" {
		pic := id.Picture
		u.Picture = &pic
	}
	if err := s.users.Create(ctx, u); err != nil {
		if store.IsUniqueViolation(err, store.UsersEmailKey) {
			// Lost a race with a concurrent first login for the same email.
			return s.OAuthLogin(ctx, id)
		}
		return nil, err
	}
	s.logger.Info("oauth user created", zap.String("user_id", u.ID.String()))
	return s.tempSession(u)
}

// CompleteOAuthRegistration assigns the chosen role and returns a full token.
func (s *Service) CompleteOAuthRegistration(ctx context.Context, userID uuid.UUID, role string) (*Session, error) {
	r, err := selfServiceRole(role)
	if err != nil {
		return nil, err
	}
	if _, err := s.users.AssignRole(ctx, userID, r); err != nil {
		if errors.Is(err, store.ErrReferenceMissing) {
			return nil, apperror.NotFound("User not found")
		}
		return nil, err
	}
	u, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperror.NotFound("User not found")
	}
	if err != nil {
		return nil, err
	}
	return s.session(u, false)
}

// Logout revokes the caller's token when a deny-list is configured.
func (s *Service) Logout(ctx context.Context, p *access.Principal) error {
	if err := s.jwt.Revoke(ctx, p); err != nil {
		return apperror.Unavailable("Could not revoke token")
	}
	return nil
}

func (s *Service) session(u *models.User, isNew bool) (*Session, error) {
	token, err := s.jwt.Generate(u.ID, u.Email, u.Roles)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, User: u.ToPublic(), IsNewUser: isNew}, nil
}

func (s *Service) tempSession(u *models.User) (*Session, error) {
	token, err := s.jwt.GenerateTemp(u.ID, u.Email)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, User: u.ToPublic(), IsNewUser: true, Temp: true}, nil
}
