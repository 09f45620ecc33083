package companies

import (
	"github.com/gin-gonic/gin"

	"github.com/FatPandaC8/Vexpo/internal/middleware"
	"github.com/FatPandaC8/Vexpo/pkg/pagination"
	"github.com/FatPandaC8/Vexpo/pkg/response"
)

// Handler handles company HTTP endpoints.
type Handler struct {
	svc    *Service
	limits pagination.Limits
}

// NewHandler creates a company handler.
func NewHandler(svc *Service, limits pagination.Limits) *Handler {
	return &Handler{svc: svc, limits: limits}
}

// Register handles POST /companies.
func (h *Handler) Register(c *gin.Context) {
	var req Input
	if !response.BindJSON(c, &req) {
		return
	}
	company, err := h.svc.Register(c.Request.Context(), middleware.Principal(c).UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, company)
}

// GetByID handles GET /companies/:id.
func (h *Handler) GetByID(c *gin.Context) {
	id, ok := response.ParamUUID(c, "id")
	if !ok {
		return
	}
	company, err := h.svc.GetByID(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, company)
}

// Mine handles GET /me/company.
func (h *Handler) Mine(c *gin.Context) {
	company, err := h.svc.GetByExhibitor(c.Request.Context(), middleware.Principal(c).UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, company)
}

// List handles GET /companies.
func (h *Handler) List(c *gin.Context) {
	page, err := h.svc.ListPaginated(c.Request.Context(), pagination.FromQuery(c, h.limits))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, page)
}

// Update handles PATCH /companies/:id.
func (h *Handler) Update(c *gin.Context) {
	id, ok := response.ParamUUID(c, "id")
	if !ok {
		return
	}
	var req Patch
	if !response.BindJSON(c, &req) {
		return
	}
	company, err := h.svc.Update(c.Request.Context(), id, middleware.Principal(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, company)
}

// Delete handles DELETE /companies/:id.
func (h *Handler) Delete(c *gin.Context) {
	id, ok := response.ParamUUID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
