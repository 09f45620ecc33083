package companies

import (
	"context"
	"errors"
	"testing"

	"github.com/FatPandaC8/Vexpo/internal/access"
	"github.com/FatPandaC8/Vexpo/internal/models"
	"github.com/FatPandaC8/Vexpo/internal/store/memory"
	"github.com/FatPandaC8/Vexpo/pkg/apperror"
)

func TestCompanyLifecycle(t *testing.T) {
	db := memory.New()
	svc := NewService(db.Companies(), nil)
	ctx := context.Background()

	owner := &models.User{Email: "ex@x.com"}
	other := &models.User{Email: "other@x.com"}
	for _, u := range []*models.User{owner, other} {
		if err := db.Users().Create(ctx, u, models.RoleExhibitor); err != nil {
			t.Fatal(err)
		}
	}

	c, err := svc.Register(ctx, owner.ID, Input{Name: "Acme", Industry: "Robotics"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Register(ctx, owner.ID, Input{Name: "Acme 2"}); !errors.Is(err, apperror.ErrConflict) {
		t.Fatalf("second company: got %v", err)
	}

	name := "Acme Corp"
	otherP := &access.Principal{UserID: other.ID, Roles: []models.RoleName{models.RoleExhibitor}}
	if _, err := svc.Update(ctx, c.ID, otherP, Patch{Name: &name}); !errors.Is(err, apperror.ErrForbidden) {
		t.Fatalf("foreign update: got %v", err)
	}
	ownerP := &access.Principal{UserID: owner.ID, Roles: []models.RoleName{models.RoleExhibitor}}
	got, err := svc.Update(ctx, c.ID, ownerP, Patch{Name: &name})
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "Acme Corp" || got.Industry != "Robotics" {
		t.Fatalf("updated = %+v", got)
	}
	adminP := &access.Principal{UserID: other.ID, Roles: []models.RoleName{models.RoleAdmin}}
	if _, err := svc.Update(ctx, c.ID, adminP, Patch{Name: &name}); err != nil {
		t.Fatalf("admin update: %v", err)
	}

	mine, err := svc.GetByExhibitor(ctx, owner.ID)
	if err != nil || mine.ID != c.ID {
		t.Fatalf("GetByExhibitor = %v, %v", mine, err)
	}
	if err := svc.Delete(ctx, c.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.GetByID(ctx, c.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("after delete: got %v", err)
	}
}
