package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

type fakeProvider struct{ identity Identity }

func (f fakeProvider) AuthCodeURL(state string) string {
	return "https://accounts.example.com/auth?state=" + state
}

func (f fakeProvider) Exchange(_ context.Context, code string) (Identity, error) {
	return f.identity, nil
}

func TestGoogleFlowRedirects(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc, jwtSvc, _ := newTestService(t)
	h := NewHandler(svc, fakeProvider{identity: Identity{Email: "new@x.com", Name: "New"}}, "http://front", nil)
	r := gin.New()
	r.GET("/auth/google", h.GoogleLogin)
	r.GET("/auth/google/callback", h.GoogleCallback)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/auth/google", nil))
	if w.Code != http.StatusTemporaryRedirect {
		t.Fatalf("login status = %d", w.Code)
	}
	loc, _ := url.Parse(w.Header().Get("Location"))
	state := loc.Query().Get("state")
	cookies := w.Result().Cookies()
	if state == "" || len(cookies) == 0 {
		t.Fatal("expected state in redirect and cookie")
	}

	// A callback whose state does not match the cookie is rejected.
	bad := httptest.NewRequest(http.MethodGet, "/auth/google/callback?code=c&state=forged", nil)
	bad.AddCookie(cookies[0])
	w = httptest.NewRecorder()
	r.ServeHTTP(w, bad)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("forged state status = %d", w.Code)
	}

	good := httptest.NewRequest(http.MethodGet, "/auth/google/callback?code=c&state="+state, nil)
	good.AddCookie(cookies[0])
	w = httptest.NewRecorder()
	r.ServeHTTP(w, good)
	if w.Code != http.StatusTemporaryRedirect {
		t.Fatalf("callback status = %d body=%s", w.Code, w.Body.String())
	}
	dest := w.Header().Get("Location")
	if !strings.HasPrefix(dest, "http://front/auth/select-role?token=") {
		t.Fatalf("redirect = %q", dest)
	}
	u, _ := url.Parse(dest)
	if _, err := jwtSvc.AuthenticateTemp(context.Background(), u.Query().Get("token")); err != nil {
		t.Fatalf("redirect token is not a temp token: %v", err)
	}
}

func TestGoogleNotConfigured(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc, _, _ := newTestService(t)
	h := NewHandler(svc, nil, "http://front", nil)
	r := gin.New()
	r.GET("/auth/google", h.GoogleLogin)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/auth/google", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", w.Code)
	}
}
