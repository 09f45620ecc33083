package response

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/FatPandaC8/Vexpo/pkg/validator"
)

// ParamUUID parses a path parameter as a UUID, writing 400 on failure.
func ParamUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		BadRequest(c, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

// BindJSON decodes and validates the body into obj, writing 400 on failure.
func BindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		BadRequest(c, "invalid request: "+validator.FormatValidationError(err))
		return false
	}
	return true
}
