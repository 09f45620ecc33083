package registrations

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/FatPandaC8/Vexpo/internal/access"
	"github.com/FatPandaC8/Vexpo/internal/models"
	"github.com/FatPandaC8/Vexpo/internal/store"
	"github.com/FatPandaC8/Vexpo/pkg/apperror"
)

// Store persists registrations.
type Store interface {
	Create(ctx context.Context, reg *models.Registration) error
	Delete(ctx context.Context, expoID, userID uuid.UUID) error
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Registration, error)
	ListByExpo(ctx context.Context, expoID uuid.UUID) ([]models.Registration, error)
}

// ExpoReader loads expos for existence and ownership checks.
type ExpoReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Expo, error)
}

// Service manages visitor attendance.
type Service struct {
	store  Store
	expos  ExpoReader
	logger *zap.Logger
}

// NewService creates a registrations service.
func NewService(s Store, expos ExpoReader, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: s, expos: expos, logger: logger}
}

func (s *Service) expo(ctx context.Context, id uuid.UUID) (*models.Expo, error) {
	e, err := s.expos.GetByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperror.NotFound("Expo not found")
	}
	return e, err
}

// Register records userID's attendance of expoID.
func (s *Service) Register(ctx context.Context, expoID, userID uuid.UUID) (*models.Registration, error) {
	if _, err := s.expo(ctx, expoID); err != nil {
		return nil, err
	}
	reg := &models.Registration{ExpoID: expoID, UserID: userID}
	err := s.store.Create(ctx, reg)
	switch {
	case err == nil:
	case store.IsUniqueViolation(err, store.RegistrationsExpoKey):
		return nil, apperror.Conflict("You are already registered for this expo")
	case errors.Is(err, store.ErrReferenceMissing):
		return nil, apperror.NotFound("Expo not found")
	default:
		s.logger.Error("create registration failed",
			zap.String("expo_id", expoID.String()), zap.String("user_id", userID.String()), zap.Error(err))
		return nil, err
	}
	return reg, nil
}

// Unregister cancels userID's registration for expoID.
func (s *Service) Unregister(ctx context.Context, expoID, userID uuid.UUID) error {
	err := s.store.Delete(ctx, expoID, userID)
	if errors.Is(err, store.ErrNotFound) {
		return apperror.NotFound("Registration not found")
	}
	return err
}

// ListMine returns the user's registrations.
func (s *Service) ListMine(ctx context.Context, userID uuid.UUID) ([]models.Registration, error) {
	return s.store.ListByUser(ctx, userID)
}

// ListByExpoAs returns the attendees of an expo to its organizer or an admin.
func (s *Service) ListByExpoAs(ctx context.Context, expoID uuid.UUID, p *access.Principal) ([]models.Registration, error) {
	e, err := s.expo(ctx, expoID)
	if err != nil {
		return nil, err
	}
	if !p.IsAdmin() && !e.OwnedBy(p.UserID) {
		return nil, apperror.Forbidden("You can only view registrations of your own expos")
	}
	return s.store.ListByExpo(ctx, expoID)
}
