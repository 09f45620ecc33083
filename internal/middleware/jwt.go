package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/FatPandaC8/Vexpo/internal/access"
	"github.com/FatPandaC8/Vexpo/pkg/response"
)

const (
	// ContextPrincipal is the key for the authenticated *access.Principal.
	ContextPrincipal = "principal"
	// ContextUserID is the key for the caller's user id string, read by Logger.
	ContextUserID = "user_id"
)

// Verifier turns a raw bearer token into a principal.
type Verifier interface {
	Authenticate(ctx context.Context, raw string) (*access.Principal, error)
	AuthenticateTemp(ctx context.Context, raw string) (*access.Principal, error)
}

func bearer(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func authenticate(verify func(context.Context, string) (*access.Principal, error), optional bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := bearer(c)
		if !ok {
			if optional && c.GetHeader("Authorization") == "" {
				c.Next()
				return
			}
			response.Unauthorized(c, "missing or invalid authorization header")
			c.Abort()
			return
		}
		p, err := verify(c.Request.Context(), raw)
		if err != nil {
			response.Unauthorized(c, "invalid or expired token")
			c.Abort()
			return
		}
		SetPrincipal(c, p)
		c.Next()
	}
}

// Authenticate requires a valid full token.
func Authenticate(v Verifier) gin.HandlerFunc {
	return authenticate(v.Authenticate, false)
}

// AuthenticateOptional attaches a principal when a token is present and
// rejects only malformed or invalid tokens.
func AuthenticateOptional(v Verifier) gin.HandlerFunc {
	return authenticate(v.Authenticate, true)
}

// AuthenticateTemp requires a valid registration-completion token.
func AuthenticateTemp(v Verifier) gin.HandlerFunc {
	return authenticate(v.AuthenticateTemp, false)
}

// SetPrincipal stores p in the request context.
func SetPrincipal(c *gin.Context, p *access.Principal) {
	c.Set(ContextPrincipal, p)
	c.Set(ContextUserID, p.UserID.String())
}

// Principal returns the authenticated caller, or nil.
func Principal(c *gin.Context) *access.Principal {
	v, ok := c.Get(ContextPrincipal)
	if !ok {
		return nil
	}
	p, _ := v.(*access.Principal)
	return p
}
