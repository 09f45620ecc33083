package booths

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/FatPandaC8/Vexpo/internal/access"
	"github.com/FatPandaC8/Vexpo/internal/models"
	"github.com/FatPandaC8/Vexpo/pkg/apperror"
	"github.com/FatPandaC8/Vexpo/pkg/storage"
)

// ModelStorage stores 3-D booth model objects.
type ModelStorage interface {
	PresignModelUpload(ctx context.Context, key, contentType string) (string, time.Time, error)
	UploadModel(ctx context.Context, key, contentType string, body io.Reader, size int64) error
}

// UploadURL is a pre-signed direct upload target for a booth model.
type UploadURL struct {
	UploadURL   string    `json:"upload_url"`
	Key         string    `json:"key"`
	ContentType string    `json:"content_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// authorizeModel loads the booth and checks the caller may replace its model:
// the booth's exhibitor, the expo's organizer, or an admin.
func (s *Service) authorizeModel(ctx context.Context, boothID uuid.UUID, p *access.Principal) (*models.Booth, error) {
	if s.storage == nil {
		return nil, apperror.Unavailable("model storage is not configured")
	}
	b, err := s.GetByID(ctx, boothID)
	if err != nil {
		return nil, err
	}
	if p.IsAdmin() || b.ExhibitorID == p.UserID {
		return b, nil
	}
	if p.Has(models.RoleOrganizer) {
		if err := s.assertExpoOwner(ctx, b, p.UserID, "You can only update booths in your own expos"); err == nil {
			return b, nil
		} else if !errors.Is(err, apperror.ErrForbidden) {
			return nil, err
		}
	}
	return nil, apperror.Forbidden("You can only update your own booths")
}

func modelKey(b *models.Booth, filename string) (string, string, error) {
	ct, ok := storage.ModelContentType(filename)
	if !ok {
		return "", "", apperror.BadRequest("Only .glb and .gltf model files are allowed")
	}
	return storage.ModelKey(b.ExpoID.String(), b.ID.String(), uuid.NewString(), filename), ct, nil
}

func ownsModelKey(b *models.Booth, key string) bool {
	return storage.UnderPrefix(storage.ModelPrefix(b.ExpoID.String(), b.ID.String()), key)
}

// PresignModelUpload returns a pre-signed PUT URL the client uploads the model
// to directly. The booth's model_path is set once the client patches it with Key.
func (s *Service) PresignModelUpload(ctx context.Context, boothID uuid.UUID, p *access.Principal, filename string) (*UploadURL, error) {
	b, err := s.authorizeModel(ctx, boothID, p)
	if err != nil {
		return nil, err
	}
	key, ct, err := modelKey(b, filename)
	if err != nil {
		return nil, err
	}
	url, expiresAt, err := s.storage.PresignModelUpload(ctx, key, ct)
	if err != nil {
		s.logger.Error("presign model upload failed", zap.String("booth_id", boothID.String()), zap.Error(err))
		return nil, apperror.Unavailable("model storage is unavailable")
	}
	return &UploadURL{UploadURL: url, Key: key, ContentType: ct, ExpiresAt: expiresAt}, nil
}

// UploadModel streams a model file to storage and points the booth at it.
// The previously stored object, if any, is scheduled for clean-up.
func (s *Service) UploadModel(ctx context.Context, boothID uuid.UUID, p *access.Principal, filename string, body io.Reader, size int64) (*models.Booth, error) {
	if size > storage.MaxModelFileSize {
		return nil, apperror.BadRequest("Model file exceeds the 50MB limit")
	}
	b, err := s.authorizeModel(ctx, boothID, p)
	if err != nil {
		return nil, err
	}
	key, ct, err := modelKey(b, filename)
	if err != nil {
		return nil, err
	}
	if err := s.storage.UploadModel(ctx, key, ct, body, size); err != nil {
		s.logger.Error("model upload failed", zap.String("booth_id", boothID.String()), zap.Error(err))
		return nil, apperror.Unavailable("model storage is unavailable")
	}
	before := *b
	b.ModelPath = key
	if err := s.save(ctx, b, before); err != nil {
		s.cleanup(ctx, b, key)
		return nil, err
	}
	return b, nil
}
