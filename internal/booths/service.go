package booths

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/FatPandaC8/Vexpo/internal/access"
	"github.com/FatPandaC8/Vexpo/internal/models"
	"github.com/FatPandaC8/Vexpo/internal/store"
	"github.com/FatPandaC8/Vexpo/pkg/apperror"
	"github.com/FatPandaC8/Vexpo/pkg/pagination"
)

// Floor events published to an expo room.
const (
	EventBoothCreated       = "booth_created"
	EventBoothUpdated       = "booth_updated"
	EventBoothStatusChanged = "booth_status_changed"
	EventBoothDeleted       = "booth_deleted"
)

// Store persists booths. Create and Update must reject placement conflicts
// with *store.UniqueViolation naming the violated constraint.
type Store interface {
	Create(ctx context.Context, b *models.Booth) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Booth, error)
	GetByCell(ctx context.Context, expoID uuid.UUID, row, col int) (*models.Booth, error)
	ListByExpo(ctx context.Context, expoID uuid.UUID, status models.BoothStatus) ([]models.Booth, error)
	ListByExhibitor(ctx context.Context, exhibitorID uuid.UUID) ([]models.Booth, error)
	List(ctx context.Context, limit, offset int) ([]models.Booth, int, error)
	Update(ctx context.Context, b *models.Booth) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// ExpoReader loads expos for ownership checks.
type ExpoReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Expo, error)
}

// CompanyReader loads companies for booth references.
type CompanyReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Company, error)
	GetByExhibitor(ctx context.Context, exhibitorID uuid.UUID) (*models.Company, error)
}

// Cleaner schedules removal of stored model objects.
type Cleaner interface {
	EnqueueModelCleanup(ctx context.Context, keys ...string) error
}

// Notifier fans floor events out to connected clients. Events that are not
// public reach only organizers and admins.
type Notifier interface {
	PublishExpoEvent(expoID uuid.UUID, event string, payload any, public bool)
}

// Deps wires a Service. Storage, Cleaner and Notifier may be nil.
type Deps struct {
	Store     Store
	Expos     ExpoReader
	Companies CompanyReader
	Grid      models.FloorMap
	Storage   ModelStorage
	Cleaner   Cleaner
	Notifier  Notifier
	Logger    *zap.Logger
}

// Service owns the booth lifecycle and placement rules.
type Service struct {
	store     Store
	expos     ExpoReader
	companies CompanyReader
	grid      models.FloorMap
	storage   ModelStorage
	cleaner   Cleaner
	notifier  Notifier
	logger    *zap.Logger
}

// NewService creates a booth service.
func NewService(d Deps) *Service {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	return &Service{
		store:     d.Store,
		expos:     d.Expos,
		companies: d.Companies,
		grid:      d.Grid,
		storage:   d.Storage,
		cleaner:   d.Cleaner,
		notifier:  d.Notifier,
		logger:    d.Logger,
	}
}

// Content is the exhibitor-supplied booth body on creation. It has no
// status: new booths always start pending. A model is attached after
// creation, once the booth has a key prefix of its own.
type Content struct {
	Name        string     `json:"name" binding:"required,max=255"`
	Description string     `json:"description"`
	CompanyID   *uuid.UUID `json:"company_id"`
	MapRow      *int       `json:"map_row" binding:"required,min=0"`
	MapCol      *int       `json:"map_col" binding:"required,min=0"`
}

// ContentPatch is the set of fields an exhibitor may change. ModelPath must
// be empty or a key issued for the same booth.
type ContentPatch struct {
	Name        *string    `json:"name" binding:"omitempty,min=1,max=255"`
	Description *string    `json:"description"`
	ModelPath   *string    `json:"model_path"`
	CompanyID   *uuid.UUID `json:"company_id"`
	MapRow      *int       `json:"map_row" binding:"omitempty,min=0"`
	MapCol      *int       `json:"map_col" binding:"omitempty,min=0"`
}

// Patch is a privileged update: content plus status.
type Patch struct {
	ContentPatch
	Status *string `json:"status" binding:"omitempty,booth_status"`
}

func boothNotFound(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return apperror.NotFound("Booth not found")
	}
	return err
}

func expoNotFound(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return apperror.NotFound("Expo not found")
	}
	return err
}

func (s *Service) checkCell(row, col int) error {
	if !s.grid.Contains(row, col) {
		return apperror.BadRequest(fmt.Sprintf(
			"Map position (row %d, col %d) is outside the floor map (%d rows, %d cols)", row, col, s.grid.Rows, s.grid.Cols))
	}
	return nil
}

// placementError turns a rejected insert or update into the caller-facing outcome.
func (s *Service) placementError(ctx context.Context, err error, b *models.Booth) error {
	switch {
	case store.IsUniqueViolation(err, store.BoothsExhibitorExpo):
		return apperror.Conflict("You already have a booth for this expo")
	case store.IsUniqueViolation(err, store.BoothsExpoCell):
		occupant, lookupErr := s.store.GetByCell(ctx, b.ExpoID, b.MapRow, b.MapCol)
		if lookupErr != nil {
			return apperror.Conflict(fmt.Sprintf("Map position (row %d, col %d) is already occupied", b.MapRow, b.MapCol))
		}
		return apperror.Conflict(fmt.Sprintf("Map position (row %d, col %d) is already occupied by booth %q",
			b.MapRow, b.MapCol, occupant.Name))
	case errors.Is(err, store.ErrReferenceMissing):
		return apperror.NotFound("Referenced expo or company not found")
	}
	return boothNotFound(err)
}

// resolveCompany validates an explicit company reference, or defaults to
// the exhibitor's own company when there is one.
func (s *Service) resolveCompany(ctx context.Context, exhibitorID uuid.UUID, companyID *uuid.UUID) (*uuid.UUID, error) {
	if companyID == nil {
		c, err := s.companies.GetByExhibitor(ctx, exhibitorID)
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return &c.ID, nil
	}
	c, err := s.companies.GetByID(ctx, *companyID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperror.NotFound("Company not found")
	}
	if err != nil {
		return nil, err
	}
	if c.ExhibitorID != exhibitorID {
		return nil, apperror.Forbidden("You can only link your own company")
	}
	return &c.ID, nil
}

// CreateBooth books a cell for the exhibitor. The new booth is always pending.
func (s *Service) CreateBooth(ctx context.Context, expoID, exhibitorID uuid.UUID, in Content) (*models.Booth, error) {
	if in.MapRow == nil || in.MapCol == nil {
		return nil, apperror.BadRequest("map_row and map_col are required")
	}
	if err := s.checkCell(*in.MapRow, *in.MapCol); err != nil {
		return nil, err
	}
	if _, err := s.expos.GetByID(ctx, expoID); err != nil {
		return nil, expoNotFound(err)
	}
	companyID, err := s.resolveCompany(ctx, exhibitorID, in.CompanyID)
	if err != nil {
		return nil, err
	}
	b := &models.Booth{
		ExpoID:      expoID,
		ExhibitorID: exhibitorID,
		CompanyID:   companyID,
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		Status:      models.BoothPending,
		MapRow:      *in.MapRow,
		MapCol:      *in.MapCol,
	}
	if err := s.store.Create(ctx, b); err != nil {
		return nil, s.placementError(ctx, err, b)
	}
	s.logger.Info("booth created",
		zap.String("booth_id", b.ID.String()),
		zap.String("expo_id", expoID.String()),
		zap.String("exhibitor_id", exhibitorID.String()),
		zap.Int("map_row", b.MapRow), zap.Int("map_col", b.MapCol))
	s.publish(b, EventBoothCreated, false)
	return b, nil
}

// GetByID returns a booth.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*models.Booth, error) {
	b, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, boothNotFound(err)
	}
	return b, nil
}

func (s *Service) applyContent(ctx context.Context, b *models.Booth, p ContentPatch) error {
	if p.Name != nil {
		b.Name = strings.TrimSpace(*p.Name)
	}
	if p.Description != nil {
		b.Description = *p.Description
	}
	if p.ModelPath != nil {
		key := strings.TrimSpace(*p.ModelPath)
		if key != "" && !ownsModelKey(b, key) {
			return apperror.BadRequest("model_path must be a model key issued for this booth")
		}
		b.ModelPath = key
	}
	if p.CompanyID != nil {
		id, err := s.resolveCompany(ctx, b.ExhibitorID, p.CompanyID)
		if err != nil {
			return err
		}
		b.CompanyID = id
	}
	if p.MapRow != nil {
		b.MapRow = *p.MapRow
	}
	if p.MapCol != nil {
		b.MapCol = *p.MapCol
	}
	return s.checkCell(b.MapRow, b.MapCol)
}

// save persists b and schedules removal of a replaced model object.
func (s *Service) save(ctx context.Context, b *models.Booth, before models.Booth) error {
	if err := s.store.Update(ctx, b); err != nil {
		return s.placementError(ctx, err, b)
	}
	if before.ModelPath != "" && before.ModelPath != b.ModelPath {
		s.cleanup(ctx, b, before.ModelPath)
	}
	event := EventBoothUpdated
	if before.Status != b.Status {
		event = EventBoothStatusChanged
	}
	public := b.Status == models.BoothApproved || before.Status == models.BoothApproved
	s.publish(b, event, public)
	return nil
}

// UpdateByExhibitor changes content fields of the exhibitor's own booth.
// ContentPatch carries no status, so the approval state is untouched.
func (s *Service) UpdateByExhibitor(ctx context.Context, boothID, exhibitorID uuid.UUID, patch ContentPatch) (*models.Booth, error) {
	b, err := s.GetByID(ctx, boothID)
	if err != nil {
		return nil, err
	}
	if b.ExhibitorID != exhibitorID {
		return nil, apperror.Forbidden("You can only update your own booths")
	}
	before := *b
	if err := s.applyContent(ctx, b, patch); err != nil {
		return nil, err
	}
	if err := s.save(ctx, b, before); err != nil {
		return nil, err
	}
	return b, nil
}

// UpdatePrivileged changes any field, including status and placement.
func (s *Service) UpdatePrivileged(ctx context.Context, boothID uuid.UUID, patch Patch) (*models.Booth, error) {
	b, err := s.GetByID(ctx, boothID)
	if err != nil {
		return nil, err
	}
	return s.updatePrivileged(ctx, b, patch)
}

func (s *Service) updatePrivileged(ctx context.Context, b *models.Booth, patch Patch) (*models.Booth, error) {
	before := *b
	if err := s.applyContent(ctx, b, patch.ContentPatch); err != nil {
		return nil, err
	}
	if patch.Status != nil {
		st, ok := models.ParseBoothStatus(*patch.Status)
		if !ok {
			return nil, apperror.BadRequest("Invalid status: " + *patch.Status)
		}
		b.Status = st
	}
	if err := s.save(ctx, b, before); err != nil {
		return nil, err
	}
	return b, nil
}

// assertExpoOwner loads the booth's expo and checks organizerID owns it.
func (s *Service) assertExpoOwner(ctx context.Context, b *models.Booth, organizerID uuid.UUID, msg string) error {
	expo, err := s.expos.GetByID(ctx, b.ExpoID)
	if err != nil {
		return expoNotFound(err)
	}
	if !expo.OwnedBy(organizerID) {
		return apperror.Forbidden(msg)
	}
	return nil
}

// UpdateByOrganizer is UpdatePrivileged for the organizer owning the booth's expo.
func (s *Service) UpdateByOrganizer(ctx context.Context, boothID, organizerID uuid.UUID, patch Patch) (*models.Booth, error) {
	b, err := s.GetByID(ctx, boothID)
	if err != nil {
		return nil, err
	}
	if err := s.assertExpoOwner(ctx, b, organizerID, "You can only update booths in your own expos"); err != nil {
		return nil, err
	}
	return s.updatePrivileged(ctx, b, patch)
}

// UpdateStatus sets the approval state on behalf of the expo's organizer.
func (s *Service) UpdateStatus(ctx context.Context, boothID, organizerID uuid.UUID, status models.BoothStatus) (*models.Booth, error) {
	b, err := s.GetByID(ctx, boothID)
	if err != nil {
		return nil, err
	}
	if err := s.assertExpoOwner(ctx, b, organizerID, "You can only approve booths for your own expos"); err != nil {
		return nil, err
	}
	return s.setStatus(ctx, b, status)
}

// UpdateStatusAsAdmin sets the approval state without an ownership check.
func (s *Service) UpdateStatusAsAdmin(ctx context.Context, boothID uuid.UUID, status models.BoothStatus) (*models.Booth, error) {
	b, err := s.GetByID(ctx, boothID)
	if err != nil {
		return nil, err
	}
	return s.setStatus(ctx, b, status)
}

func (s *Service) setStatus(ctx context.Context, b *models.Booth, status models.BoothStatus) (*models.Booth, error) {
	if _, ok := models.ParseBoothStatus(string(status)); !ok {
		return nil, apperror.BadRequest("Invalid status: " + string(status))
	}
	before := *b
	b.Status = status
	if err := s.save(ctx, b, before); err != nil {
		return nil, err
	}
	s.logger.Info("booth status changed",
		zap.String("booth_id", b.ID.String()),
		zap.String("from", string(before.Status)), zap.String("to", string(status)))
	return b, nil
}

// Delete removes a booth. Non-privileged callers must own it.
func (s *Service) Delete(ctx context.Context, boothID, callerID uuid.UUID, privileged bool) error {
	b, err := s.GetByID(ctx, boothID)
	if err != nil {
		return err
	}
	if !privileged && b.ExhibitorID != callerID {
		return apperror.Forbidden("You can only delete your own booths")
	}
	return s.remove(ctx, b)
}

func (s *Service) remove(ctx context.Context, b *models.Booth) error {
	if err := s.store.Delete(ctx, b.ID); err != nil {
		return boothNotFound(err)
	}
	if b.ModelPath != "" {
		s.cleanup(ctx, b, b.ModelPath)
	}
	s.publish(b, EventBoothDeleted, b.Status == models.BoothApproved)
	s.logger.Info("booth deleted", zap.String("booth_id", b.ID.String()))
	return nil
}

// UpdateAs routes an update by the caller's roles. Admins and expo-owning
// organizers get a privileged update; everyone else is treated as the
// booth's exhibitor and only the content half of patch is applied.
func (s *Service) UpdateAs(ctx context.Context, boothID uuid.UUID, p *access.Principal, patch Patch) (*models.Booth, error) {
	if p.IsAdmin() {
		return s.UpdatePrivileged(ctx, boothID, patch)
	}
	if p.Has(models.RoleOrganizer) {
		b, err := s.UpdateByOrganizer(ctx, boothID, p.UserID, patch)
		if !errors.Is(err, apperror.ErrForbidden) || !p.Has(models.RoleExhibitor) {
			return b, err
		}
	}
	return s.UpdateByExhibitor(ctx, boothID, p.UserID, patch.ContentPatch)
}

// DeleteAs routes a delete by the caller's roles.
func (s *Service) DeleteAs(ctx context.Context, boothID uuid.UUID, p *access.Principal) error {
	if p.IsAdmin() {
		return s.Delete(ctx, boothID, p.UserID, true)
	}
	if p.Has(models.RoleOrganizer) {
		b, err := s.GetByID(ctx, boothID)
		if err != nil {
			return err
		}
		err = s.assertExpoOwner(ctx, b, p.UserID, "You can only delete booths in your own expos")
		if err == nil {
			return s.remove(ctx, b)
		}
		if !errors.Is(err, apperror.ErrForbidden) || !p.Has(models.RoleExhibitor) {
			return err
		}
	}
	return s.Delete(ctx, boothID, p.UserID, false)
}

// SetStatusAs routes a status change by the caller's roles.
func (s *Service) SetStatusAs(ctx context.Context, boothID uuid.UUID, p *access.Principal, status models.BoothStatus) (*models.Booth, error) {
	if p.IsAdmin() {
		return s.UpdateStatusAsAdmin(ctx, boothID, status)
	}
	return s.UpdateStatus(ctx, boothID, p.UserID, status)
}

// ListByExpo returns an expo's booths; approvedOnly hides pending and rejected ones.
func (s *Service) ListByExpo(ctx context.Context, expoID uuid.UUID, approvedOnly bool) ([]models.Booth, error) {
	if _, err := s.expos.GetByID(ctx, expoID); err != nil {
		return nil, expoNotFound(err)
	}
	var status models.BoothStatus
	if approvedOnly {
		status = models.BoothApproved
	}
	return s.store.ListByExpo(ctx, expoID, status)
}

// ListAllByExpoAs returns every booth of an expo to its organizer or an admin.
func (s *Service) ListAllByExpoAs(ctx context.Context, expoID uuid.UUID, p *access.Principal) ([]models.Booth, error) {
	expo, err := s.expos.GetByID(ctx, expoID)
	if err != nil {
		return nil, expoNotFound(err)
	}
	if !p.IsAdmin() && !expo.OwnedBy(p.UserID) {
		return nil, apperror.Forbidden("You can only view booths of your own expos")
	}
	return s.store.ListByExpo(ctx, expoID, "")
}

// ListPaginated returns a page of all booths.
func (s *Service) ListPaginated(ctx context.Context, p pagination.Params) (pagination.Page[models.Booth], error) {
	list, total, err := s.store.List(ctx, p.Limit, p.Offset())
	if err != nil {
		return pagination.Page[models.Booth]{}, err
	}
	return pagination.New(list, total, p), nil
}

// ListByExhibitor returns the exhibitor's booths across expos.
func (s *Service) ListByExhibitor(ctx context.Context, exhibitorID uuid.UUID) ([]models.Booth, error) {
	return s.store.ListByExhibitor(ctx, exhibitorID)
}

func (s *Service) publish(b *models.Booth, event string, public bool) {
	if s.notifier == nil {
		return
	}
	s.notifier.PublishExpoEvent(b.ExpoID, event, b, public)
}

// cleanup schedules deletion of b's model objects. Keys outside b's own
// prefix are never deleted on its behalf.
func (s *Service) cleanup(ctx context.Context, b *models.Booth, keys ...string) {
	if s.cleaner == nil {
		return
	}
	var owned []string
	for _, key := range keys {
		if !ownsModelKey(b, key) {
			s.logger.Warn("skipping cleanup of foreign model key",
				zap.String("booth_id", b.ID.String()), zap.String("key", key))
			continue
		}
		owned = append(owned, key)
	}
	if len(owned) == 0 {
		return
	}
	keys = owned
	if err := s.cleaner.EnqueueModelCleanup(ctx, keys...); err != nil {
		s.logger.Warn("enqueue model cleanup failed", zap.Strings("keys", keys), zap.Error(err))
	}
}
