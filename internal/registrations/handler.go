package registrations

import (
	"github.com/gin-gonic/gin"

	"github.com/FatPandaC8/Vexpo/internal/middleware"
	"github.com/FatPandaC8/Vexpo/pkg/response"
)

// Handler handles registration HTTP endpoints.
type Handler struct {
	svc *Service
}

// NewHandler creates a registrations handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Register handles POST /expos/:id/registration.
func (h *Handler) Register(c *gin.Context) {
	expoID, ok := response.ParamUUID(c, "id")
	if !ok {
		return
	}
	reg, err := h.svc.Register(c.Request.Context(), expoID, middleware.Principal(c).UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, reg)
}

// Unregister handles DELETE /expos/:id/registration.
func (h *Handler) Unregister(c *gin.Context) {
	expoID, ok := response.ParamUUID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Unregister(c.Request.Context(), expoID, middleware.Principal(c).UserID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Mine handles GET /me/registrations.
func (h *Handler) Mine(c *gin.Context) {
	list, err := h.svc.ListMine(c.Request.Context(), middleware.Principal(c).UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, list)
}

// ListByExpo handles GET /expos/:id/registrations.
func (h *Handler) ListByExpo(c *gin.Context) {
	expoID, ok := response.ParamUUID(c, "id")
	if !ok {
		return
	}
	list, err := h.svc.ListByExpoAs(c.Request.Context(), expoID, middleware.Principal(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, list)
}
