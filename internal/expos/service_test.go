package expos

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/FatPandaC8/Vexpo/internal/models"
	"github.com/FatPandaC8/Vexpo/internal/store/memory"
	"github.com/FatPandaC8/Vexpo/pkg/apperror"
	"github.com/FatPandaC8/Vexpo/pkg/pagination"
)

type recordingCleaner struct {
	mu   sync.Mutex
	keys []string
}

func (r *recordingCleaner) EnqueueModelCleanup(_ context.Context, keys ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keys = append(r.keys, keys...)
	return nil
}

type recordingNotifier struct {
	events []string
}

func (r *recordingNotifier) PublishExpoEvent(_ uuid.UUID, event string, _ any, _ bool) {
	r.events = append(r.events, event)
}

type fixture struct {
	db       *memory.DB
	svc      *Service
	cleaner  *recordingCleaner
	notifier *recordingNotifier
	owner    *models.User
	other    *models.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := memory.New()
	f := &fixture{db: db, cleaner: &recordingCleaner{}, notifier: &recordingNotifier{}}
	f.svc = NewService(db.Expos(), db.Booths(), f.cleaner, f.notifier, nil)
	f.owner = &models.User{Email: "owner@x.com"}
	f.other = &models.User{Email: "other@x.com"}
	for _, u := range []*models.User{f.owner, f.other} {
		if err := db.Users().Create(context.Background(), u, models.RoleOrganizer); err != nil {
			t.Fatal(err)
		}
	}
	return f
}

func (f *fixture) create(t *testing.T) *models.Expo {
	t.Helper()
	e, err := f.svc.Create(context.Background(), f.owner.ID, Input{
		Name: "Tech Expo", Type: "technology", StartDate: "2026-03-01", EndDate: "2026-03-03",
	})
	if err != nil {
		t.Fatal(err)
	}
	return e
}

func TestCreateStampsOrganizer(t *testing.T) {
	f := newFixture(t)
	e := f.create(t)
	if e.OrganizerID != f.owner.ID {
		t.Fatalf("organizer = %s", e.OrganizerID)
	}
	_, err := f.svc.Create(context.Background(), f.owner.ID, Input{Name: "Bad", StartDate: "2026-03-05", EndDate: "2026-03-01"})
	if !errors.Is(err, apperror.ErrBadRequest) {
		t.Fatalf("reversed dates: got %v", err)
	}
}

func TestOwnership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e := f.create(t)
	name := "Renamed"

	if _, err := f.svc.UpdateByOrganizer(ctx, e.ID, f.other.ID, Patch{Name: &name}); !errors.Is(err, apperror.ErrForbidden) {
		t.Fatalf("foreign update: got %v", err)
	}
	if err := f.svc.DeleteByOrganizer(ctx, e.ID, f.other.ID); !errors.Is(err, apperror.ErrForbidden) {
		t.Fatalf("foreign delete: got %v", err)
	}
	if _, err := f.svc.UpdateByOrganizer(ctx, uuid.New(), f.owner.ID, Patch{Name: &name}); !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("missing expo: got %v", err)
	}

	got, err := f.svc.UpdateByOrganizer(ctx, e.ID, f.owner.ID, Patch{Name: &name})
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "Renamed" || got.OrganizerID != f.owner.ID {
		t.Fatalf("updated = %+v", got)
	}

	admin := "Admin edit"
	if _, err := f.svc.UpdateAsAdmin(ctx, e.ID, Patch{Name: &admin}); err != nil {
		t.Fatal(err)
	}
}

func TestPatchRejectsReversedRange(t *testing.T) {
	f := newFixture(t)
	e := f.create(t)
	end := "2026-02-01"
	if _, err := f.svc.UpdateByOrganizer(context.Background(), e.ID, f.owner.ID, Patch{EndDate: &end}); !errors.Is(err, apperror.ErrBadRequest) {
		t.Fatalf("got %v", err)
	}
}

func TestDeleteCascadesAndCleansModels(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e := f.create(t)
	ex := &models.User{Email: "ex@x.com"}
	if err := f.db.Users().Create(ctx, ex, models.RoleExhibitor); err != nil {
		t.Fatal(err)
	}
	own := "booths/" + e.ID.String() + "/b1/m.glb"
	b := &models.Booth{ExpoID: e.ID, ExhibitorID: ex.ID, ModelPath: own, Status: models.BoothPending}
	if err := f.db.Booths().Create(ctx, b); err != nil {
		t.Fatal(err)
	}
	ex2 := &models.User{Email: "ex2@x.com"}
	if err := f.db.Users().Create(ctx, ex2, models.RoleExhibitor); err != nil {
		t.Fatal(err)
	}
	foreign := &models.Booth{ExpoID: e.ID, ExhibitorID: ex2.ID, ModelPath: "booths/other-expo/b2/m.glb", Status: models.BoothPending, MapCol: 1}
	if err := f.db.Booths().Create(ctx, foreign); err != nil {
		t.Fatal(err)
	}

	if err := f.svc.DeleteAsAdmin(ctx, e.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := f.db.Booths().GetByID(ctx, b.ID); err == nil {
		t.Fatal("booth should be deleted with its expo")
	}
	if len(f.cleaner.keys) != 1 || f.cleaner.keys[0] != own {
		t.Fatalf("cleanup keys = %v", f.cleaner.keys)
	}
	if len(f.notifier.events) != 1 || f.notifier.events[0] != "expo_deleted" {
		t.Fatalf("events = %v", f.notifier.events)
	}
	if err := f.svc.DeleteAsAdmin(ctx, e.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("second delete: got %v", err)
	}
}

func TestListFilters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.create(t)
	if _, err := f.svc.Create(ctx, f.other.ID, Input{Name: "Food", Type: "food", StartDate: "2026-04-01", EndDate: "2026-04-01"}); err != nil {
		t.Fatal(err)
	}
	p := pagination.Params{Page: 1, Limit: 10}

	all, err := f.svc.List(ctx, "", p)
	if err != nil {
		t.Fatal(err)
	}
	if all.Meta.Total != 2 {
		t.Fatalf("total = %d", all.Meta.Total)
	}
	food, _ := f.svc.List(ctx, "Food", p)
	if food.Meta.Total != 1 || food.Items[0].Name != "Food" {
		t.Fatalf("food = %+v", food)
	}
	mine, _ := f.svc.ListByOrganizer(ctx, f.owner.ID, p)
	if mine.Meta.Total != 1 || mine.Items[0].OrganizerID != f.owner.ID {
		t.Fatalf("mine = %+v", mine)
	}
}
