package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/FatPandaC8/Vexpo/internal/access"
	"github.com/FatPandaC8/Vexpo/pkg/response"
)

// Require evaluates req against the caller attached by Authenticate.
func Require(req access.Requirement) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := access.Decide(req, Principal(c)); err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}
		c.Next()
	}
}
