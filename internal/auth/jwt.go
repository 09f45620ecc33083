package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/FatPandaC8/Vexpo/internal/access"
	"github.com/FatPandaC8/Vexpo/internal/models"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrRevokedToken = errors.New("token revoked")
	ErrTempToken    = errors.New("registration incomplete")
	ErrNotTempToken = errors.New("not a registration token")
)

// Claims are the signed token payload. Subject carries the user id.
// A full token carries Roles; a temp token carries Temp and no roles.
type Claims struct {
	Email string   `json:"email"`
	Roles []string `json:"roles,omitempty"`
	Temp  bool     `json:"temp,omitempty"`
	jwt.RegisteredClaims
}

// Revoker keeps a deny-list of token ids.
type Revoker interface {
	Revoke(ctx context.Context, tokenID string, until time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// JWTService handles token generation and validation.
type JWTService struct {
	secret     []byte
	expire     time.Duration
	tempExpire time.Duration
	revoker    Revoker
	now        func() time.Time
}

// NewJWTService creates a JWT service. revoker may be nil, in which case
// tokens stay valid until they expire.
func NewJWTService(secret string, expire, tempExpire time.Duration, revoker Revoker) *JWTService {
	return &JWTService{
		secret:     []byte(secret),
		expire:     expire,
		tempExpire: tempExpire,
		revoker:    revoker,
		now:        time.Now,
	}
}

// Generate creates a full token for the user with the given roles.
func (s *JWTService) Generate(userID uuid.UUID, email string, roles []models.RoleName) (string, error) {
	names := make([]string, 0, len(roles))
	for _, r := range roles {
		names = append(names, strings.ToLower(string(r)))
	}
	return s.sign(Claims{Email: email, Roles: names}, userID, s.expire)
}

// GenerateTemp creates a short-lived token that only allows completing
// registration after an identity-provider login.
func (s *JWTService) GenerateTemp(userID uuid.UUID, email string) (string, error) {
	return s.sign(Claims{Email: email, Temp: true}, userID, s.tempExpire)
}

func (s *JWTService) sign(claims Claims, userID uuid.UUID, ttl time.Duration) (string, error) {
	now := s.now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		Subject:   userID.String(),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		IssuedAt:  jwt.NewNumericDate(now),
		ID:        uuid.New().String(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Validate parses and validates a JWT, returning claims or error.
func (s *JWTService) Validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now), jwt.WithExpirationRequired())
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if _, err := uuid.Parse(claims.Subject); err != nil {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Authenticate verifies a full token and returns its principal.
func (s *JWTService) Authenticate(ctx context.Context, raw string) (*access.Principal, error) {
	claims, err := s.verify(ctx, raw)
	if err != nil {
		return nil, err
	}
	if claims.Temp {
		return nil, ErrTempToken
	}
	return principalFrom(claims), nil
}

// AuthenticateTemp verifies a temp token and returns its principal.
func (s *JWTService) AuthenticateTemp(ctx context.Context, raw string) (*access.Principal, error) {
	claims, err := s.verify(ctx, raw)
	if err != nil {
		return nil, err
	}
	if !claims.Temp {
		return nil, ErrNotTempToken
	}
	return principalFrom(claims), nil
}

func (s *JWTService) verify(ctx context.Context, raw string) (*Claims, error) {
	claims, err := s.Validate(raw)
	if err != nil {
		return nil, err
	}
	if s.revoker != nil && claims.ID != "" {
		revoked, err := s.revoker.IsRevoked(ctx, claims.ID)
		if err != nil {
			return nil, err
		}
		if revoked {
			return nil, ErrRevokedToken
		}
	}
	return claims, nil
}

// Revoke puts the principal's token on the deny-list until it expires.
// It is a no-op when no revoker is configured.
func (s *JWTService) Revoke(ctx context.Context, p *access.Principal) error {
	if s.revoker == nil || p == nil || p.TokenID == "" {
		return nil
	}
	return s.revoker.Revoke(ctx, p.TokenID, p.ExpiresAt)
}

// Revocable reports whether logout can invalidate tokens server-side.
func (s *JWTService) Revocable() bool { return s.revoker != nil }

func principalFrom(c *Claims) *access.Principal {
	p := &access.Principal{
		UserID:  uuid.MustParse(c.Subject),
		Email:   c.Email,
		TokenID: c.ID,
		Temp:    c.Temp,
	}
	if c.ExpiresAt != nil {
		p.ExpiresAt = c.ExpiresAt.Time
	}
	for _, r := range c.Roles {
		p.Roles = append(p.Roles, models.RoleName(strings.ToLower(r)))
	}
	return p
}
