package expos

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/FatPandaC8/Vexpo/internal/models"
	"github.com/FatPandaC8/Vexpo/internal/store"
	"github.com/FatPandaC8/Vexpo/pkg/apperror"
	"github.com/FatPandaC8/Vexpo/pkg/pagination"
	"github.com/FatPandaC8/Vexpo/pkg/storage"
)

// Store persists expos.
type Store interface {
	Create(ctx context.Context, e *models.Expo) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Expo, error)
	List(ctx context.Context, f models.ExpoFilter, limit, offset int) ([]models.Expo, int, error)
	Update(ctx context.Context, e *models.Expo) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// ModelIndex lists the stored 3-D model keys of an expo's booths.
type ModelIndex interface {
	ModelPathsByExpo(ctx context.Context, expoID uuid.UUID) ([]string, error)
}

// Cleaner schedules removal of stored model objects.
type Cleaner interface {
	EnqueueModelCleanup(ctx context.Context, keys ...string) error
}

// Notifier fans floor events out to connected clients.
type Notifier interface {
	PublishExpoEvent(expoID uuid.UUID, event string, payload any, public bool)
}

// Service enforces expo ownership.
type Service struct {
	store    Store
	models   ModelIndex
	cleaner  Cleaner
	notifier Notifier
	logger   *zap.Logger
}

// NewService creates an expo service. index, cleaner and notifier may be nil.
func NewService(s Store, index ModelIndex, cleaner Cleaner, notifier Notifier, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: s, models: index, cleaner: cleaner, notifier: notifier, logger: logger}
}

// Input is the full set of expo fields.
type Input struct {
	Name        string  `json:"name" binding:"required,max=255"`
	Type        string  `json:"type" binding:"max=100"`
	StartDate   string  `json:"start_date" binding:"required,datetime=2006-01-02"`
	EndDate     string  `json:"end_date" binding:"required,datetime=2006-01-02"`
	Description string  `json:"description"`
	Website     *string `json:"website" binding:"omitempty,url"`
}

// Patch is a partial expo update; nil fields are left unchanged.
type Patch struct {
	Name        *string `json:"name" binding:"omitempty,min=1,max=255"`
	Type        *string `json:"type" binding:"omitempty,max=100"`
	StartDate   *string `json:"start_date" binding:"omitempty,datetime=2006-01-02"`
	EndDate     *string `json:"end_date" binding:"omitempty,datetime=2006-01-02"`
	Description *string `json:"description"`
	Website     *string `json:"website" binding:"omitempty,url"`
}

func parseDate(field, s string) (time.Time, error) {
	t, err := time.Parse(models.DateLayout, s)
	if err != nil {
		return time.Time{}, apperror.BadRequest("invalid " + field)
	}
	return t, nil
}

func checkRange(e *models.Expo) error {
	if e.EndDate.Before(e.StartDate) {
		return apperror.BadRequest("end_date must not be before start_date")
	}
	return nil
}

func expoNotFound(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return apperror.NotFound("Expo not found")
	}
	return err
}

// Create inserts an expo owned by organizerID.
func (s *Service) Create(ctx context.Context, organizerID uuid.UUID, in Input) (*models.Expo, error) {
	start, err := parseDate("start_date", in.StartDate)
	if err != nil {
		return nil, err
	}
	end, err := parseDate("end_date", in.EndDate)
	if err != nil {
		return nil, err
	}
	e := &models.Expo{
		OrganizerID: organizerID,
		Name:        strings.TrimSpace(in.Name),
		Type:        strings.TrimSpace(in.Type),
		StartDate:   start,
		EndDate:     end,
		Description: in.Description,
		Website:     in.Website,
	}
	if err := checkRange(e); err != nil {
		return nil, err
	}
	if err := s.store.Create(ctx, e); err != nil {
		if errors.Is(err, store.ErrReferenceMissing) {
			return nil, apperror.NotFound("Organizer not found")
		}
		return nil, err
	}
	s.logger.Info("expo created", zap.String("expo_id", e.ID.String()), zap.String("organizer_id", organizerID.String()))
	return e, nil
}

// GetByID returns an expo.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*models.Expo, error) {
	e, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, expoNotFound(err)
	}
	return e, nil
}

// AssertOwner returns the expo when organizerID owns it; NotFound or
// Forbidden otherwise.
func (s *Service) AssertOwner(ctx context.Context, expoID, organizerID uuid.UUID, action string) (*models.Expo, error) {
	e, err := s.GetByID(ctx, expoID)
	if err != nil {
		return nil, err
	}
	if !e.OwnedBy(organizerID) {
		return nil, apperror.Forbidden("You can only " + action + " your own expos")
	}
	return e, nil
}

// List returns a page of expos, optionally filtered by type.
func (s *Service) List(ctx context.Context, typ string, p pagination.Params) (pagination.Page[models.Expo], error) {
	list, total, err := s.store.List(ctx, models.ExpoFilter{Type: strings.TrimSpace(typ)}, p.Limit, p.Offset())
	if err != nil {
		return pagination.Page[models.Expo]{}, err
	}
	return pagination.New(list, total, p), nil
}

// ListByOrganizer returns a page of the organizer's expos.
func (s *Service) ListByOrganizer(ctx context.Context, organizerID uuid.UUID, p pagination.Params) (pagination.Page[models.Expo], error) {
	list, total, err := s.store.List(ctx, models.ExpoFilter{OrganizerID: &organizerID}, p.Limit, p.Offset())
	if err != nil {
		return pagination.Page[models.Expo]{}, err
	}
	return pagination.New(list, total, p), nil
}

// UpdateByOrganizer applies patch when organizerID owns the expo.
func (s *Service) UpdateByOrganizer(ctx context.Context, expoID, organizerID uuid.UUID, patch Patch) (*models.Expo, error) {
	e, err := s.AssertOwner(ctx, expoID, organizerID, "update")
	if err != nil {
		return nil, err
	}
	return s.update(ctx, e, patch)
}

// UpdateAsAdmin applies patch without an ownership check.
func (s *Service) UpdateAsAdmin(ctx context.Context, expoID uuid.UUID, patch Patch) (*models.Expo, error) {
	e, err := s.GetByID(ctx, expoID)
	if err != nil {
		return nil, err
	}
	return s.update(ctx, e, patch)
}

func (s *Service) update(ctx context.Context, e *models.Expo, patch Patch) (*models.Expo, error) {
	if patch.Name != nil {
		e.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Type != nil {
		e.Type = strings.TrimSpace(*patch.Type)
	}
	if patch.Description != nil {
		e.Description = *patch.Description
	}
	if patch.Website != nil {
		e.Website = patch.Website
	}
	if patch.StartDate != nil {
		t, err := parseDate("start_date", *patch.StartDate)
		if err != nil {
			return nil, err
		}
		e.StartDate = t
	}
	if patch.EndDate != nil {
		t, err := parseDate("end_date", *patch.EndDate)
		if err != nil {
			return nil, err
		}
		e.EndDate = t
	}
	if err := checkRange(e); err != nil {
		return nil, err
	}
	if err := s.store.Update(ctx, e); err != nil {
		return nil, expoNotFound(err)
	}
	return e, nil
}

// DeleteByOrganizer deletes the expo when organizerID owns it.
func (s *Service) DeleteByOrganizer(ctx context.Context, expoID, organizerID uuid.UUID) error {
	if _, err := s.AssertOwner(ctx, expoID, organizerID, "delete"); err != nil {
		return err
	}
	return s.delete(ctx, expoID)
}

// DeleteAsAdmin deletes the expo without an ownership check.
func (s *Service) DeleteAsAdmin(ctx context.Context, expoID uuid.UUID) error {
	return s.delete(ctx, expoID)
}

func (s *Service) delete(ctx context.Context, expoID uuid.UUID) error {
	var keys []string
	if s.models != nil {
		paths, err := s.models.ModelPathsByExpo(ctx, expoID)
		if err != nil {
			return err
		}
		prefix := storage.ExpoModelPrefix(expoID.String())
		for _, key := range paths {
			if !storage.UnderPrefix(prefix, key) {
				s.logger.Warn("skipping cleanup of foreign model key",
					zap.String("expo_id", expoID.String()), zap.String("key", key))
				continue
			}
			keys = append(keys, key)
		}
	}
	if err := s.store.Delete(ctx, expoID); err != nil {
		return expoNotFound(err)
	}
	if s.cleaner != nil && len(keys) > 0 {
		if err := s.cleaner.EnqueueModelCleanup(ctx, keys...); err != nil {
			s.logger.Warn("enqueue model cleanup failed", zap.String("expo_id", expoID.String()), zap.Error(err))
		}
	}
	if s.notifier != nil {
		s.notifier.PublishExpoEvent(expoID, "expo_deleted", map[string]any{"expo_id": expoID}, true)
	}
	s.logger.Info("expo deleted", zap.String("expo_id", expoID.String()))
	return nil
}
