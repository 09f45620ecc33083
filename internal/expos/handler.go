package expos

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/FatPandaC8/Vexpo/internal/middleware"
	"github.com/FatPandaC8/Vexpo/internal/models"
	"github.com/FatPandaC8/Vexpo/pkg/pagination"
	"github.com/FatPandaC8/Vexpo/pkg/response"
)

// Handler handles expo HTTP endpoints.
type Handler struct {
	svc    *Service
	limits pagination.Limits
	logger *zap.Logger
}

// NewHandler creates an expo handler.
func NewHandler(svc *Service, limits pagination.Limits, logger *zap.Logger) *Handler {
	return &Handler{svc: svc, limits: limits, logger: logger}
}

// Create handles POST /expos.
func (h *Handler) Create(c *gin.Context) {
	var req Input
	if !response.BindJSON(c, &req) {
		return
	}
	e, err := h.svc.Create(c.Request.Context(), middleware.Principal(c).UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, e)
}

// GetByID handles GET /expos/:id.
func (h *Handler) GetByID(c *gin.Context) {
	id, ok := response.ParamUUID(c, "id")
	if !ok {
		return
	}
	e, err := h.svc.GetByID(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, e)
}

// List handles GET /expos and GET /admin/expos. Query ?type= filters by category.
func (h *Handler) List(c *gin.Context) {
	page, err := h.svc.List(c.Request.Context(), c.Query("type"), pagination.FromQuery(c, h.limits))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, page)
}

// Mine handles GET /me/expos.
func (h *Handler) Mine(c *gin.Context) {
	page, err := h.svc.ListByOrganizer(c.Request.Context(), middleware.Principal(c).UserID, pagination.FromQuery(c, h.limits))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, page)
}

// Update handles PATCH /expos/:id. Admins bypass the ownership check.
func (h *Handler) Update(c *gin.Context) {
	id, ok := response.ParamUUID(c, "id")
	if !ok {
		return
	}
	var req Patch
	if !response.BindJSON(c, &req) {
		return
	}
	p := middleware.Principal(c)
	var (
		e   *models.Expo
		err error
	)
	if p.IsAdmin() {
		e, err = h.svc.UpdateAsAdmin(c.Request.Context(), id, req)
	} else {
		e, err = h.svc.UpdateByOrganizer(c.Request.Context(), id, p.UserID, req)
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, e)
}

// Delete handles DELETE /expos/:id. Admins bypass the ownership check.
func (h *Handler) Delete(c *gin.Context) {
	id, ok := response.ParamUUID(c, "id")
	if !ok {
		return
	}
	p := middleware.Principal(c)
	var err error
	if p.IsAdmin() {
		err = h.svc.DeleteAsAdmin(c.Request.Context(), id)
	} else {
		err = h.svc.DeleteByOrganizer(c.Request.Context(), id, p.UserID)
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
