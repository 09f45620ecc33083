package companies

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/FatPandaC8/Vexpo/internal/access"
	"github.com/FatPandaC8/Vexpo/internal/models"
	"github.com/FatPandaC8/Vexpo/internal/store"
	"github.com/FatPandaC8/Vexpo/pkg/apperror"
	"github.com/FatPandaC8/Vexpo/pkg/pagination"
)

// Store persists companies.
type Store interface {
	Create(ctx context.Context, c *models.Company) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Company, error)
	GetByExhibitor(ctx context.Context, exhibitorID uuid.UUID) (*models.Company, error)
	List(ctx context.Context, limit, offset int) ([]models.Company, int, error)
	Update(ctx context.Context, c *models.Company) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// Service manages exhibitor company profiles.
type Service struct {
	store  Store
	logger *zap.Logger
}

// NewService creates a company service.
func NewService(s Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: s, logger: logger}
}

// Input is the body of POST /companies.
type Input struct {
	Name        string `json:"name" binding:"required,max=255"`
	Industry    string `json:"industry" binding:"max=255"`
	Country     string `json:"country" binding:"max=100"`
	City        string `json:"city" binding:"max=100"`
	Email       string `json:"email" binding:"omitempty,email"`
	Website     string `json:"website" binding:"omitempty,url"`
	Description string `json:"description"`
}

// Patch is a partial company update.
type Patch struct {
	Name        *string `json:"name" binding:"omitempty,min=1,max=255"`
	Industry    *string `json:"industry" binding:"omitempty,max=255"`
	Country     *string `json:"country" binding:"omitempty,max=100"`
	City        *string `json:"city" binding:"omitempty,max=100"`
	Email       *string `json:"email" binding:"omitempty,email"`
	Website     *string `json:"website" binding:"omitempty,url"`
	Description *string `json:"description"`
}

func companyNotFound(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return apperror.NotFound("Company not found")
	}
	return err
}

// Register creates the exhibitor's single company.
func (s *Service) Register(ctx context.Context, exhibitorID uuid.UUID, in Input) (*models.Company, error) {
	c := &models.Company{
		ExhibitorID: exhibitorID,
		Name:        in.Name,
		Industry:    in.Industry,
		Country:     in.Country,
		City:        in.City,
		Email:       in.Email,
		Website:     in.Website,
		Description: in.Description,
	}
	if err := s.store.Create(ctx, c); err != nil {
		if store.IsUniqueViolation(err, store.CompaniesExhibitor) {
			return nil, apperror.Conflict("You already have a registered company")
		}
		if errors.Is(err, store.ErrReferenceMissing) {
			return nil, apperror.NotFound("User not found")
		}
		return nil, err
	}
	s.logger.Info("company registered", zap.String("company_id", c.ID.String()), zap.String("exhibitor_id", exhibitorID.String()))
	return c, nil
}

// GetByID returns a company.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*models.Company, error) {
	c, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, companyNotFound(err)
	}
	return c, nil
}

// GetByExhibitor returns the exhibitor's company.
func (s *Service) GetByExhibitor(ctx context.Context, exhibitorID uuid.UUID) (*models.Company, error) {
	c, err := s.store.GetByExhibitor(ctx, exhibitorID)
	if err != nil {
		return nil, companyNotFound(err)
	}
	return c, nil
}

// ListPaginated returns a page of companies.
func (s *Service) ListPaginated(ctx context.Context, p pagination.Params) (pagination.Page[models.Company], error) {
	list, total, err := s.store.List(ctx, p.Limit, p.Offset())
	if err != nil {
		return pagination.Page[models.Company]{}, err
	}
	return pagination.New(list, total, p), nil
}

// Update applies patch when the caller owns the company or is an admin.
func (s *Service) Update(ctx context.Context, id uuid.UUID, caller *access.Principal, patch Patch) (*models.Company, error) {
	c, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.ExhibitorID != caller.UserID && !caller.IsAdmin() {
		return nil, apperror.Forbidden("You can only update your own company")
	}
	apply := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	apply(&c.Name, patch.Name)
	apply(&c.Industry, patch.Industry)
	apply(&c.Country, patch.Country)
	apply(&c.City, patch.City)
	apply(&c.Email, patch.Email)
	apply(&c.Website, patch.Website)
	apply(&c.Description, patch.Description)
	if err := s.store.Update(ctx, c); err != nil {
		return nil, companyNotFound(err)
	}
	return c, nil
}

// Delete removes a company. Route access restricts this to admins.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return companyNotFound(err)
	}
	s.logger.Info("company deleted", zap.String("company_id", id.String()))
	return nil
}
