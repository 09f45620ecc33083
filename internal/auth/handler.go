package auth

import (
	"crypto/rand"
	"encoding/base64"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/FatPandaC8/Vexpo/internal/middleware"
	"github.com/FatPandaC8/Vexpo/pkg/response"
)

const stateCookie = "oauth_state"

// RegisterRequest is the body for POST /auth/register.
type RegisterRequest struct {
	Name     string `json:"name" binding:"required,max=255"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	Role     string `json:"role" binding:"required,expo_role"`
}

// LoginRequest is the body for POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// CompleteRequest is the body for POST /auth/oauth/complete.
type CompleteRequest struct {
	Role string `json:"role" binding:"required,expo_role"`
}

// Handler handles auth HTTP endpoints.
type Handler struct {
	svc         *Service
	provider    IdentityProvider
	frontendURL string
	logger      *zap.Logger
}

// NewHandler creates an auth handler. provider may be nil when Google
// sign-in is not configured.
func NewHandler(svc *Service, provider IdentityProvider, frontendURL string, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, provider: provider, frontendURL: frontendURL, logger: logger}
}

// Register handles POST /auth/register.
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if !response.BindJSON(c, &req) {
		return
	}
	sess, err := h.svc.Register(c.Request.Context(), req.Name, req.Email, req.Password, req.Role)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, sess)
}

// Login handles POST /auth/login.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if !response.BindJSON(c, &req) {
		return
	}
	sess, err := h.svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, sess)
}

// CompleteOAuth handles POST /auth/oauth/complete (temp token).
func (h *Handler) CompleteOAuth(c *gin.Context) {
	var req CompleteRequest
	if !response.BindJSON(c, &req) {
		return
	}
	sess, err := h.svc.CompleteOAuthRegistration(c.Request.Context(), middleware.Principal(c).UserID, req.Role)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, sess)
}

// Logout handles POST /auth/logout.
func (h *Handler) Logout(c *gin.Context) {
	if err := h.svc.Logout(c.Request.Context(), middleware.Principal(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"message": "Logged out"})
}

// GoogleLogin handles GET /auth/google.
func (h *Handler) GoogleLogin(c *gin.Context) {
	if h.provider == nil {
		c.JSON(http.StatusServiceUnavailable, response.Body{Success: false, Error: "google sign-in is not configured"})
		return
	}
	state, err := randomState()
	if err != nil {
		response.Internal(c, "failed to start sign-in")
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(stateCookie, state, 600, "/auth/google", "", c.Request.TLS != nil, true)
	c.Redirect(http.StatusTemporaryRedirect, h.provider.AuthCodeURL(state))
}

// GoogleCallback handles GET /auth/google/callback.
func (h *Handler) GoogleCallback(c *gin.Context) {
	if h.provider == nil {
		c.JSON(http.StatusServiceUnavailable, response.Body{Success: false, Error: "google sign-in is not configured"})
		return
	}
	state, err := c.Cookie(stateCookie)
	if err != nil || state == "" || state != c.Query("state") {
		response.BadRequest(c, "invalid oauth state")
		return
	}
	c.SetCookie(stateCookie, "", -1, "/auth/google", "", c.Request.TLS != nil, true)

	code := c.Query("code")
	if code == "" {
		response.BadRequest(c, "missing code")
		return
	}
	identity, err := h.provider.Exchange(c.Request.Context(), code)
	if err != nil {
		h.logger.Warn("google exchange failed", zap.Error(err))
		response.Unauthorized(c, "google sign-in failed")
		return
	}
	sess, err := h.svc.OAuthLogin(c.Request.Context(), identity)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Redirect(http.StatusTemporaryRedirect, h.redirectURL(sess))
}

func (h *Handler) redirectURL(sess *Session) string {
	path := "/auth/success"
	if sess.Temp {
		path = "/auth/select-role"
	}
	return h.frontendURL + path + "?token=" + url.QueryEscape(sess.Token)
}

func randomState() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
