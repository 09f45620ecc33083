package booths

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/FatPandaC8/Vexpo/internal/access"
	"github.com/FatPandaC8/Vexpo/internal/models"
	"github.com/FatPandaC8/Vexpo/internal/store/memory"
	"github.com/FatPandaC8/Vexpo/pkg/apperror"
	"github.com/FatPandaC8/Vexpo/pkg/pagination"
)

type event struct {
	name   string
	public bool
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []event
}

func (r *recordingNotifier) PublishExpoEvent(_ uuid.UUID, name string, _ any, public bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event{name: name, public: public})
}

func (r *recordingNotifier) last() event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.events[len(r.events)-1]
}

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

type fakeStorage struct {
	uploaded map[string]int64
}

func (f *fakeStorage) PresignModelUpload(_ context.Context, key, _ string) (string, time.Time, error) {
	return "https://upload.test/" + key, time.Now().Add(time.Minute), nil
}

func (f *fakeStorage) UploadModel(_ context.Context, key, _ string, body io.Reader, _ int64) error {
	n, err := io.Copy(io.Discard, body)
	if err != nil {
		return err
	}
	f.uploaded[key] = n
	return nil
}

type fixture struct {
	db        *memory.DB
	svc       *Service
	notifier  *recordingNotifier
	cleaner   *recordingCleaner
	storage   *fakeStorage
	organizer *models.User
	stranger  *models.User
	alice     *models.User
	bob       *models.User
	admin     *models.User
	expo      *models.Expo
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	db := memory.New()
	f := &fixture{
		db:       db,
		notifier: &recordingNotifier{},
		cleaner:  &recordingCleaner{},
		storage:  &fakeStorage{uploaded: map[string]int64{}},
	}
	f.svc = NewService(Deps{
		Store:     db.Booths(),
		Expos:     db.Expos(),
		Companies: db.Companies(),
		Grid:      models.FloorMap{Rows: 5, Cols: 6},
		Storage:   f.storage,
		Cleaner:   f.cleaner,
		Notifier:  f.notifier,
	})
	users := []struct {
		u    **models.User
		mail string
		role models.RoleName
	}{
		{&f.organizer, "org@x.com", models.RoleOrganizer},
		{&f.stranger, "org2@x.com", models.RoleOrganizer},
		{&f.alice, "alice@x.com", models.RoleExhibitor},
		{&f.bob, "bob@x.com", models.RoleExhibitor},
		{&f.admin, "admin@x.com", models.RoleAdmin},
	}
	for _, x := range users {
		*x.u = &models.User{Email: x.mail}
		if err := db.Users().Create(ctx, *x.u, x.role); err != nil {
			t.Fatal(err)
		}
	}
	f.expo = &models.Expo{OrganizerID: f.organizer.ID, Name: "Tech", StartDate: time.Now(), EndDate: time.Now()}
	if err := db.Expos().Create(ctx, f.expo); err != nil {
		t.Fatal(err)
	}
	return f
}

func principal(u *models.User) *access.Principal {
	return &access.Principal{UserID: u.ID, Email: u.Email, Roles: u.Roles}
}

func cell(row, col int) (*int, *int) { return &row, &col }

func content(name string, row, col int) Content {
	r, c := cell(row, col)
	return Content{Name: name, MapRow: r, MapCol: c}
}

func (f *fixture) create(t *testing.T, u *models.User, name string, row, col int) *models.Booth {
	t.Helper()
	b, err := f.svc.CreateBooth(context.Background(), f.expo.ID, u.ID, content(name, row, col))
	if err != nil {
		t.Fatalf("create %s: %v", name, err)
	}
	return b
}

func TestCreateBoothStartsPending(t *testing.T) {
	f := newFixture(t)
	b := f.create(t, f.alice, "Alpha", 0, 0)
	if b.Status != models.BoothPending {
		t.Fatalf("status = %s", b.Status)
	}
	if got := f.notifier.last(); got.name != EventBoothCreated || got.public {
		t.Fatalf("event = %+v", got)
	}
}

func TestCreateBoothErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.create(t, f.alice, "Alpha", 1, 1)

	cases := []struct {
		name    string
		expoID  uuid.UUID
		user    *models.User
		in      Content
		kind    error
		message string
	}{
		{"unknown expo", uuid.New(), f.bob, content("B", 0, 0), apperror.ErrNotFound, "Expo not found"},
		{"second booth", f.expo.ID, f.alice, content("A2", 2, 2), apperror.ErrConflict, "You already have a booth for this expo"},
		{"occupied cell", f.expo.ID, f.bob, content("Beta", 1, 1), apperror.ErrConflict, `occupied by booth "Alpha"`},
		{"row off grid", f.expo.ID, f.bob, content("Beta", 5, 0), apperror.ErrBadRequest, "outside the floor map"},
		{"col off grid", f.expo.ID, f.bob, content("Beta", 0, 6), apperror.ErrBadRequest, "outside the floor map"},
		{"missing cell", f.expo.ID, f.bob, Content{Name: "Beta"}, apperror.ErrBadRequest, "required"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.CreateBooth(ctx, tc.expoID, tc.user.ID, tc.in)
			if !errors.Is(err, tc.kind) {
				t.Fatalf("err = %v, want kind %v", err, tc.kind)
			}
			if !strings.Contains(apperror.Message(err), tc.message) {
				t.Fatalf("message = %q, want %q", apperror.Message(err), tc.message)
			}
		})
	}
}

func TestConcurrentCreateSameExhibitor(t *testing.T) {
	f := newFixture(t)
	var wg sync.WaitGroup
	var ok, conflict atomic.Int32
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(col int) {
			defer wg.Done()
			_, err := f.svc.CreateBooth(context.Background(), f.expo.ID, f.alice.ID, content("A", 0, col))
			switch {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, apperror.ErrConflict):
				conflict.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()
	if ok.Load() != 1 || conflict.Load() != 4 {
		t.Fatalf("ok=%d conflict=%d", ok.Load(), conflict.Load())
	}
}

func TestConcurrentCreateSameCell(t *testing.T) {
	f := newFixture(t)
	var wg sync.WaitGroup
	var ok atomic.Int32
	for _, u := range []*models.User{f.alice, f.bob} {
		wg.Add(1)
		go func(u *models.User) {
			defer wg.Done()
			if _, err := f.svc.CreateBooth(context.Background(), f.expo.ID, u.ID, content(u.Email, 3, 3)); err == nil {
				ok.Add(1)
			} else if !errors.Is(err, apperror.ErrConflict) {
				t.Errorf("unexpected error: %v", err)
			}
		}(u)
	}
	wg.Wait()
	if ok.Load() != 1 {
		t.Fatalf("successes = %d, want 1", ok.Load())
	}
	list, _ := f.svc.ListByExpo(context.Background(), f.expo.ID, false)
	if len(list) != 1 {
		t.Fatalf("booths = %d", len(list))
	}
}

func TestCompanyReference(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	own := &models.Company{ExhibitorID: f.alice.ID, Name: "Acme"}
	foreign := &models.Company{ExhibitorID: f.bob.ID, Name: "Bobco"}
	for _, c := range []*models.Company{own, foreign} {
		if err := f.db.Companies().Create(ctx, c); err != nil {
			t.Fatal(err)
		}
	}
	b := f.create(t, f.alice, "Alpha", 0, 0)
	if b.CompanyID == nil || *b.CompanyID != own.ID {
		t.Fatalf("company defaulted to %v", b.CompanyID)
	}
	in := content("Beta", 0, 1)
	in.CompanyID = &own.ID
	if _, err := f.svc.CreateBooth(ctx, f.expo.ID, f.bob.ID, in); !errors.Is(err, apperror.ErrForbidden) {
		t.Fatalf("foreign company: got %v", err)
	}
}

func TestExhibitorCannotChangeStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.create(t, f.alice, "Alpha", 0, 0)

	name := "Alpha 2"
	approved := string(models.BoothApproved)
	patch := Patch{ContentPatch: ContentPatch{Name: &name}, Status: &approved}
	got, err := f.svc.UpdateAs(ctx, b.ID, principal(f.alice), patch)
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "Alpha 2" || got.Status != models.BoothPending {
		t.Fatalf("got %+v", got)
	}

	if _, err := f.svc.UpdateByExhibitor(ctx, b.ID, f.bob.ID, ContentPatch{Name: &name}); !errors.Is(err, apperror.ErrForbidden) {
		t.Fatalf("foreign exhibitor: got %v", err)
	}
	if _, err := f.svc.UpdateByExhibitor(ctx, uuid.New(), f.alice.ID, ContentPatch{Name: &name}); !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("unknown booth: got %v", err)
	}
}

func TestMoveIntoOccupiedCell(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.create(t, f.alice, "Alpha", 0, 0)
	b := f.create(t, f.bob, "Beta", 0, 1)

	r, c := cell(0, 0)
	_, err := f.svc.UpdateByExhibitor(ctx, b.ID, f.bob.ID, ContentPatch{MapRow: r, MapCol: c})
	if !errors.Is(err, apperror.ErrConflict) {
		t.Fatalf("move: got %v", err)
	}
	cur, _ := f.svc.GetByID(ctx, b.ID)
	if cur.MapRow != 0 || cur.MapCol != 1 {
		t.Fatalf("booth moved to (%d,%d)", cur.MapRow, cur.MapCol)
	}

	r, c = cell(4, 5)
	moved, err := f.svc.UpdatePrivileged(ctx, b.ID, Patch{ContentPatch: ContentPatch{MapRow: r, MapCol: c}})
	if err != nil || moved.MapRow != 4 || moved.MapCol != 5 {
		t.Fatalf("privileged move = %+v, %v", moved, err)
	}
}

func TestApprovalGate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.create(t, f.alice, "Alpha", 0, 0)

	public, _ := f.svc.ListByExpo(ctx, f.expo.ID, true)
	if len(public) != 0 {
		t.Fatalf("pending booth listed publicly")
	}
	if _, err := f.svc.UpdateStatus(ctx, b.ID, f.stranger.ID, models.BoothApproved); !errors.Is(err, apperror.ErrForbidden) {
		t.Fatalf("foreign organizer: got %v", err)
	}
	got, err := f.svc.UpdateStatus(ctx, b.ID, f.organizer.ID, models.BoothApproved)
	if err != nil || got.Status != models.BoothApproved {
		t.Fatalf("approve = %+v, %v", got, err)
	}
	if ev := f.notifier.last(); ev.name != EventBoothStatusChanged || !ev.public {
		t.Fatalf("event = %+v", ev)
	}
	public, _ = f.svc.ListByExpo(ctx, f.expo.ID, true)
	if len(public) != 1 || public[0].ID != b.ID {
		t.Fatalf("public = %+v", public)
	}
	if _, err := f.svc.UpdateStatus(ctx, b.ID, f.organizer.ID, "archived"); !errors.Is(err, apperror.ErrBadRequest) {
		t.Fatalf("invalid status: got %v", err)
	}
}

func TestAdminOverride(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.create(t, f.alice, "Alpha", 0, 0)
	admin := principal(f.admin)

	got, err := f.svc.SetStatusAs(ctx, b.ID, admin, models.BoothRejected)
	if err != nil || got.Status != models.BoothRejected {
		t.Fatalf("admin status = %+v, %v", got, err)
	}
	approved := string(models.BoothApproved)
	if got, err = f.svc.UpdateAs(ctx, b.ID, admin, Patch{Status: &approved}); err != nil || got.Status != models.BoothApproved {
		t.Fatalf("admin update = %+v, %v", got, err)
	}
	if _, err := f.svc.ListAllByExpoAs(ctx, f.expo.ID, admin); err != nil {
		t.Fatal(err)
	}
	if err := f.svc.DeleteAs(ctx, b.ID, admin); err != nil {
		t.Fatal(err)
	}
	if ev := f.notifier.last(); ev.name != EventBoothDeleted || !ev.public {
		t.Fatalf("event = %+v", ev)
	}
}

func TestOrganizerRouting(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.create(t, f.alice, "Alpha", 0, 0)

	approved := string(models.BoothApproved)
	if _, err := f.svc.UpdateAs(ctx, b.ID, principal(f.stranger), Patch{Status: &approved}); !errors.Is(err, apperror.ErrForbidden) {
		t.Fatalf("foreign organizer update: got %v", err)
	}
	if _, err := f.svc.ListAllByExpoAs(ctx, f.expo.ID, principal(f.stranger)); !errors.Is(err, apperror.ErrForbidden) {
		t.Fatalf("foreign organizer list: got %v", err)
	}
	all, err := f.svc.ListAllByExpoAs(ctx, f.expo.ID, principal(f.organizer))
	if err != nil || len(all) != 1 {
		t.Fatalf("owner list = %v, %v", all, err)
	}
	if err := f.svc.DeleteAs(ctx, b.ID, principal(f.stranger)); !errors.Is(err, apperror.ErrForbidden) {
		t.Fatalf("foreign organizer delete: got %v", err)
	}
	if err := f.svc.DeleteAs(ctx, b.ID, principal(f.organizer)); err != nil {
		t.Fatal(err)
	}
}

func TestDeleteOwnership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.create(t, f.alice, "Alpha", 0, 0)
	if err := f.svc.Delete(ctx, b.ID, f.bob.ID, false); !errors.Is(err, apperror.ErrForbidden) {
		t.Fatalf("foreign delete: got %v", err)
	}
	if err := f.svc.Delete(ctx, b.ID, f.alice.ID, false); err != nil {
		t.Fatal(err)
	}
	if err := f.svc.Delete(ctx, b.ID, f.alice.ID, false); !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("second delete: got %v", err)
	}
	if ev := f.notifier.last(); ev.name != EventBoothDeleted || ev.public {
		t.Fatalf("pending delete event = %+v", ev)
	}
}

func TestModelUpload(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.create(t, f.alice, "Alpha", 0, 0)

	if _, err := f.svc.PresignModelUpload(ctx, b.ID, principal(f.alice), "stand.obj"); !errors.Is(err, apperror.ErrBadRequest) {
		t.Fatalf("bad extension: got %v", err)
	}
	if _, err := f.svc.PresignModelUpload(ctx, b.ID, principal(f.bob), "stand.glb"); !errors.Is(err, apperror.ErrForbidden) {
		t.Fatalf("foreign presign: got %v", err)
	}
	url, err := f.svc.PresignModelUpload(ctx, b.ID, principal(f.alice), "stand.glb")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(url.Key, "booths/"+f.expo.ID.String()+"/"+b.ID.String()+"/") || url.ContentType != "model/gltf-binary" {
		t.Fatalf("upload url = %+v", url)
	}

	first, err := f.svc.UploadModel(ctx, b.ID, principal(f.alice), "stand.gltf", strings.NewReader("{}"), 2)
	if err != nil {
		t.Fatal(err)
	}
	if f.storage.uploaded[first.ModelPath] != 2 {
		t.Fatalf("uploaded = %v", f.storage.uploaded)
	}
	second, err := f.svc.UploadModel(ctx, b.ID, principal(f.organizer), "stand.glb", strings.NewReader("glb"), 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(f.cleaner.keys) != 1 || f.cleaner.keys[0] != first.ModelPath {
		t.Fatalf("cleanup = %v", f.cleaner.keys)
	}
	if err := f.svc.Delete(ctx, b.ID, f.alice.ID, false); err != nil {
		t.Fatal(err)
	}
	if len(f.cleaner.keys) != 2 || f.cleaner.keys[1] != second.ModelPath {
		t.Fatalf("cleanup after delete = %v", f.cleaner.keys)
	}
}

func TestModelPathStaysWithinBooth(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	mine := f.create(t, f.alice, "Alpha", 0, 0)
	theirs := f.create(t, f.bob, "Beta", 0, 1)
	theirs, err := f.svc.UploadModel(ctx, theirs.ID, principal(f.bob), "stand.glb", strings.NewReader("glb"), 3)
	if err != nil {
		t.Fatal(err)
	}
	bobKey := theirs.ModelPath

	for _, key := range []string{bobKey, "booths/" + f.expo.ID.String() + "/" + mine.ID.String() + "/../" + theirs.ID.String() + "/x.glb"} {
		if _, err := f.svc.UpdateByExhibitor(ctx, mine.ID, f.alice.ID, ContentPatch{ModelPath: &key}); !errors.Is(err, apperror.ErrBadRequest) {
			t.Fatalf("foreign key %q: got %v", key, err)
		}
	}

	url, err := f.svc.PresignModelUpload(ctx, mine.ID, principal(f.alice), "stand.glb")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.UpdateByExhibitor(ctx, mine.ID, f.alice.ID, ContentPatch{ModelPath: &url.Key}); err != nil {
		t.Fatal(err)
	}
	empty := ""
	if _, err := f.svc.UpdateByExhibitor(ctx, mine.ID, f.alice.ID, ContentPatch{ModelPath: &empty}); err != nil {
		t.Fatal(err)
	}
	if len(f.cleaner.keys) != 1 || f.cleaner.keys[0] != url.Key {
		t.Fatalf("cleanup = %v", f.cleaner.keys)
	}

	// A foreign key already stored on a booth is never scheduled for deletion.
	stored, err := f.db.Booths().GetByID(ctx, mine.ID)
	if err != nil {
		t.Fatal(err)
	}
	stored.ModelPath = bobKey
	if err := f.db.Booths().Update(ctx, stored); err != nil {
		t.Fatal(err)
	}
	if err := f.svc.Delete(ctx, mine.ID, f.alice.ID, false); err != nil {
		t.Fatal(err)
	}
	for _, key := range f.cleaner.keys {
		if key == bobKey {
			t.Fatalf("cleanup reached another booth's model: %v", f.cleaner.keys)
		}
	}
}

func TestModelUploadWithoutStorage(t *testing.T) {
	f := newFixture(t)
	b := f.create(t, f.alice, "Alpha", 0, 0)
	svc := NewService(Deps{Store: f.db.Booths(), Expos: f.db.Expos(), Companies: f.db.Companies(), Grid: models.FloorMap{Rows: 5, Cols: 6}})
	if _, err := svc.PresignModelUpload(context.Background(), b.ID, principal(f.alice), "a.glb"); !errors.Is(err, apperror.ErrUnavailable) {
		t.Fatalf("got %v", err)
	}
}

func TestListings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.create(t, f.alice, "Alpha", 2, 0)
	f.create(t, f.bob, "Beta", 0, 3)

	all, err := f.svc.ListByExpo(ctx, f.expo.ID, false)
	if err != nil || len(all) != 2 || all[0].Name != "Beta" {
		t.Fatalf("grid order = %+v, %v", all, err)
	}
	page, err := f.svc.ListPaginated(ctx, pagination.Params{Page: 1, Limit: 1})
	if err != nil {
		t.Fatal(err)
	}
	if page.Meta.Total != 2 || page.Meta.TotalPages != 2 || len(page.Items) != 1 {
		t.Fatalf("page = %+v", page)
	}
	mine, _ := f.svc.ListByExhibitor(ctx, f.alice.ID)
	if len(mine) != 1 || mine[0].Name != "Alpha" {
		t.Fatalf("mine = %+v", mine)
	}
	if _, err := f.svc.ListByExpo(ctx, uuid.New(), true); !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("unknown expo: got %v", err)
	}
}
