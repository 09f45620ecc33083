package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"github.com/FatPandaC8/Vexpo/internal/auth"
	"github.com/FatPandaC8/Vexpo/internal/models"
	"github.com/FatPandaC8/Vexpo/internal/realtime"
	"github.com/FatPandaC8/Vexpo/internal/store/memory"
	"github.com/FatPandaC8/Vexpo/pkg/pagination"
	"github.com/FatPandaC8/Vexpo/pkg/utils"
	"github.com/FatPandaC8/Vexpo/pkg/validator"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

type app struct {
	t      *testing.T
	db     *memory.DB
	router *gin.Engine
	hasher utils.Hasher
}

func newApp(t *testing.T) *app {
	t.Helper()
	gin.SetMode(gin.TestMode)
	if err := validator.Register(); err != nil {
		t.Fatal(err)
	}
	db := memory.New()
	o := Options{
		JWT:         auth.NewJWTService("test-secret", time.Hour, 10*time.Minute, nil),
		Hasher:      utils.Hasher{Cost: bcrypt.MinCost},
		Hub:         realtime.NewHub(nil, nil, nil),
		Grid:        models.FloorMap{Rows: 5, Cols: 6},
		Limits:      pagination.DefaultLimits,
		CORSOrigins: "*",
		FrontendURL: "http://front",
	}
	st := Stores{
		Users:         db.Users(),
		Expos:         db.Expos(),
		Booths:        db.Booths(),
		Companies:     db.Companies(),
		Registrations: db.Registrations(),
	}
	return &app{t: t, db: db, router: NewRouter(NewServices(st, o), o), hasher: o.Hasher}
}

func (a *app) do(method, path, token string, body any) (int, envelope) {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			a.t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	var env envelope
	if w.Body.Len() > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
			a.t.Fatalf("%s %s: bad body %q", method, path, w.Body.String())
		}
	}
	return w.Code, env
}

func (a *app) expect(want int, method, path, token string, body any) envelope {
	a.t.Helper()
	code, env := a.do(method, path, token, body)
	if code != want {
		a.t.Fatalf("%s %s: status %d, want %d (error %q)", method, path, code, want, env.Error)
	}
	return env
}

func decode[T any](t *testing.T, env envelope) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(env.Data, &v); err != nil {
		t.Fatalf("decode %s: %v", env.Data, err)
	}
	return v
}

func (a *app) register(name, email, role string) string {
	a.t.Helper()
	env := a.expect(http.StatusCreated, http.MethodPost, "/auth/register", "", map[string]string{
		"name": name, "email": email, "password": "secret123", "role": role,
	})
	return decode[auth.Session](a.t, env).Token
}

func (a *app) admin() string {
	a.t.Helper()
	hash, err := a.hasher.Hash("admin-pass")
	if err != nil {
		a.t.Fatal(err)
	}
	u := &models.User{Email: "admin@x.com", Name: "Admin", PasswordHash: &hash}
	if err := a.db.Users().Create(context.Background(), u, models.RoleAdmin); err != nil {
		a.t.Fatal(err)
	}
	env := a.expect(http.StatusOK, http.MethodPost, "/auth/login", "", map[string]string{
		"email": "admin@x.com", "password": "admin-pass",
	})
	return decode[auth.Session](a.t, env).Token
}

func (a *app) createExpo(token string) models.Expo {
	a.t.Helper()
	env := a.expect(http.StatusCreated, http.MethodPost, "/expos", token, map[string]string{
		"name": "Tech Expo", "type": "technology", "start_date": "2026-11-01", "end_date": "2026-11-03",
	})
	return decode[models.Expo](a.t, env)
}

func booth(name string, row, col int) map[string]any {
	return map[string]any{"name": name, "map_row": row, "map_col": col}
}

func TestHealth(t *testing.T) {
	a := newApp(t)
	a.expect(http.StatusOK, http.MethodGet, "/health", "", nil)
	a.expect(http.StatusNotFound, http.MethodGet, "/nope", "", nil)
}

func TestHugePageReturnsEmptyListing(t *testing.T) {
	a := newApp(t)
	for _, path := range []string{"/booths", "/expos", "/companies"} {
		env := a.expect(http.StatusOK, http.MethodGet, path+"?page=9223372036854775807&limit=100", "", nil)
		page := decode[pagination.Page[json.RawMessage]](t, env)
		if len(page.Items) != 0 || page.Meta.Page < 1 {
			t.Fatalf("%s: page = %+v", path, page.Meta)
		}
	}
}

func TestRegistrationToBoothScenario(t *testing.T) {
	a := newApp(t)
	org := a.register("Olga", "org@x.com", "organizer")
	alice := a.register("Alice", "alice@x.com", "exhibitor")
	expo := a.createExpo(org)

	env := a.expect(http.StatusCreated, http.MethodPost, "/expos/"+expo.ID.String()+"/booths", alice, booth("Alpha", 0, 0))
	b := decode[models.Booth](t, env)
	if b.Status != models.BoothPending {
		t.Fatalf("status = %s", b.Status)
	}

	env = a.expect(http.StatusOK, http.MethodGet, "/me/booths", alice, nil)
	if mine := decode[[]models.Booth](t, env); len(mine) != 1 || mine[0].ID != b.ID {
		t.Fatalf("mine = %+v", mine)
	}
	env = a.expect(http.StatusOK, http.MethodGet, "/me", alice, nil)
	if !strings.Contains(string(env.Data), `"exhibitor"`) {
		t.Fatalf("profile = %s", env.Data)
	}
}

func TestBoothConflictScenarios(t *testing.T) {
	a := newApp(t)
	org := a.register("Olga", "org@x.com", "organizer")
	alice := a.register("Alice", "alice@x.com", "exhibitor")
	bob := a.register("Bob", "bob@x.com", "exhibitor")
	expo := a.createExpo(org)
	path := "/expos/" + expo.ID.String() + "/booths"

	a.expect(http.StatusCreated, http.MethodPost, path, alice, booth("Alpha", 1, 1))

	env := a.expect(http.StatusConflict, http.MethodPost, path, alice, booth("Alpha 2", 2, 2))
	if env.Error != "You already have a booth for this expo" {
		t.Fatalf("error = %q", env.Error)
	}
	env = a.expect(http.StatusConflict, http.MethodPost, path, bob, booth("Beta", 1, 1))
	if !strings.Contains(env.Error, `"Alpha"`) {
		t.Fatalf("error = %q", env.Error)
	}
	a.expect(http.StatusBadRequest, http.MethodPost, path, bob, booth("Beta", 9, 9))
	a.expect(http.StatusCreated, http.MethodPost, path, bob, booth("Beta", 1, 2))
}

func TestApprovalScenario(t *testing.T) {
	a := newApp(t)
	org := a.register("Olga", "org@x.com", "organizer")
	other := a.register("Otto", "org2@x.com", "organizer")
	alice := a.register("Alice", "alice@x.com", "exhibitor")
	expo := a.createExpo(org)

	b := decode[models.Booth](t, a.expect(http.StatusCreated, http.MethodPost,
		"/expos/"+expo.ID.String()+"/booths", alice, booth("Alpha", 0, 0)))
	boothPath := "/booths/" + b.ID.String()
	publicPath := "/expos/" + expo.ID.String() + "/booths"

	if list := decode[[]models.Booth](t, a.expect(http.StatusOK, http.MethodGet, publicPath, "", nil)); len(list) != 0 {
		t.Fatalf("pending booth is public: %+v", list)
	}

	// The exhibitor's status key is dropped; the name change applies.
	env := a.expect(http.StatusOK, http.MethodPatch, boothPath, alice, map[string]string{"name": "Alpha Prime", "status": "approved"})
	if got := decode[models.Booth](t, env); got.Status != models.BoothPending || got.Name != "Alpha Prime" {
		t.Fatalf("after exhibitor patch = %+v", got)
	}

	a.expect(http.StatusForbidden, http.MethodPatch, boothPath+"/status", alice, map[string]string{"status": "approved"})
	a.expect(http.StatusForbidden, http.MethodPatch, boothPath+"/status", other, map[string]string{"status": "approved"})
	a.expect(http.StatusBadRequest, http.MethodPatch, boothPath+"/status", org, map[string]string{"status": "archived"})
	env = a.expect(http.StatusOK, http.MethodPatch, boothPath+"/status", org, map[string]string{"status": "approved"})
	if got := decode[models.Booth](t, env); got.Status != models.BoothApproved {
		t.Fatalf("status = %s", got.Status)
	}

	if list := decode[[]models.Booth](t, a.expect(http.StatusOK, http.MethodGet, publicPath, "", nil)); len(list) != 1 {
		t.Fatalf("approved booth missing: %+v", list)
	}
	a.expect(http.StatusForbidden, http.MethodGet, publicPath+"/all", other, nil)
	a.expect(http.StatusOK, http.MethodGet, publicPath+"/all", org, nil)
}

func TestAccessGates(t *testing.T) {
	a := newApp(t)
	visitor := a.register("Vera", "v@x.com", "visitor")
	org := a.register("Olga", "org@x.com", "organizer")
	expo := a.createExpo(org)

	a.expect(http.StatusUnauthorized, http.MethodPost, "/expos", "", nil)
	a.expect(http.StatusUnauthorized, http.MethodPost, "/expos", "garbage", nil)
	a.expect(http.StatusForbidden, http.MethodPost, "/expos", visitor, nil)
	a.expect(http.StatusForbidden, http.MethodGet, "/admin/users", org, nil)
	a.expect(http.StatusBadRequest, http.MethodPost, "/auth/register", "", map[string]string{
		"name": "Eve", "email": "eve@x.com", "password": "secret123", "role": "admin",
	})
	a.expect(http.StatusConflict, http.MethodPost, "/auth/register", "", map[string]string{
		"name": "Vera", "email": "V@x.com", "password": "secret123", "role": "visitor",
	})

	regPath := "/expos/" + expo.ID.String() + "/registration"
	a.expect(http.StatusCreated, http.MethodPost, regPath, visitor, nil)
	a.expect(http.StatusConflict, http.MethodPost, regPath, visitor, nil)
	a.expect(http.StatusOK, http.MethodGet, "/expos/"+expo.ID.String()+"/registrations", org, nil)
	if list := decode[[]models.Registration](t, a.expect(http.StatusOK, http.MethodGet, "/me/registrations", visitor, nil)); len(list) != 1 {
		t.Fatalf("registrations = %+v", list)
	}
}

func TestAdminOverride(t *testing.T) {
	a := newApp(t)
	admin := a.admin()
	org := a.register("Olga", "org@x.com", "organizer")
	alice := a.register("Alice", "alice@x.com", "exhibitor")
	expo := a.createExpo(org)
	b := decode[models.Booth](t, a.expect(http.StatusCreated, http.MethodPost,
		"/expos/"+expo.ID.String()+"/booths", alice, booth("Alpha", 0, 0)))

	env := a.expect(http.StatusOK, http.MethodPatch, "/admin/booths/"+b.ID.String(), admin, map[string]string{"status": "rejected"})
	if got := decode[models.Booth](t, env); got.Status != models.BoothRejected {
		t.Fatalf("status = %s", got.Status)
	}
	a.expect(http.StatusOK, http.MethodPatch, "/booths/"+b.ID.String()+"/status", admin, map[string]string{"status": "approved"})

	page := decode[pagination.Page[models.UserPublic]](t, a.expect(http.StatusOK, http.MethodGet, "/admin/users?limit=2", admin, nil))
	if page.Meta.Total != 3 || page.Meta.TotalPages != 2 || len(page.Items) != 2 {
		t.Fatalf("users page = %+v", page.Meta)
	}

	a.expect(http.StatusNoContent, http.MethodDelete, "/expos/"+expo.ID.String(), admin, nil)
	a.expect(http.StatusNotFound, http.MethodGet, "/booths/"+b.ID.String(), "", nil)
}

func TestLogoutWithoutRevokerStillSucceeds(t *testing.T) {
	a := newApp(t)
	tok := a.register("Vera", "v@x.com", "visitor")
	a.expect(http.StatusOK, http.MethodPost, "/auth/logout", tok, nil)
}

func TestRouteTableHasNoDuplicates(t *testing.T) {
	a := newApp(t)
	seen := map[string]bool{}
	for _, r := range a.router.Routes() {
		key := r.Method + " " + r.Path
		if seen[key] {
			t.Fatalf("duplicate route %s", key)
		}
		seen[key] = true
	}
	for _, want := range []string{"GET /ws", "POST /auth/oauth/complete", "PATCH /booths/:id/status"} {
		if !seen[want] {
			t.Fatalf("missing route %s", want)
		}
	}
}
