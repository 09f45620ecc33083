package users

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/FatPandaC8/Vexpo/internal/middleware"
	"github.com/FatPandaC8/Vexpo/pkg/pagination"
	"github.com/FatPandaC8/Vexpo/pkg/response"
)

// Handler serves account and admin user endpoints.
type Handler struct {
	svc    *Service
	limits pagination.Limits
	logger *zap.Logger
}

// NewHandler creates a users handler.
func NewHandler(svc *Service, limits pagination.Limits, logger *zap.Logger) *Handler {
	return &Handler{svc: svc, limits: limits, logger: logger}
}

// Me handles GET /me.
func (h *Handler) Me(c *gin.Context) {
	p, err := h.svc.Profile(c.Request.Context(), middleware.Principal(c).UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, p)
}

// Public handles GET /users/:id/public.
func (h *Handler) Public(c *gin.Context) {
	id, ok := response.ParamUUID(c, "id")
	if !ok {
		return
	}
	info, err := h.svc.PublicInfo(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, info)
}

// List handles GET /admin/users.
func (h *Handler) List(c *gin.Context) {
	page, err := h.svc.ListPaginated(c.Request.Context(), pagination.FromQuery(c, h.limits))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, page)
}

// Get handles GET /admin/users/:id.
func (h *Handler) Get(c *gin.Context) {
	id, ok := response.ParamUUID(c, "id")
	if !ok {
		return
	}
	u, err := h.svc.GetByID(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, u.ToPublic())
}

// Update handles PATCH /admin/users/:id.
func (h *Handler) Update(c *gin.Context) {
	id, ok := response.ParamUUID(c, "id")
	if !ok {
		return
	}
	var req UpdateInput
	if !response.BindJSON(c, &req) {
		return
	}
	u, err := h.svc.UpdateUser(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, u.ToPublic())
}

// AssignRoleRequest is the body for POST /admin/users/:id/roles.
type AssignRoleRequest struct {
	Role string `json:"role" binding:"required,expo_role"`
}

// AssignRole handles POST /admin/users/:id/roles.
func (h *Handler) AssignRole(c *gin.Context) {
	id, ok := response.ParamUUID(c, "id")
	if !ok {
		return
	}
	var req AssignRoleRequest
	if !response.BindJSON(c, &req) {
		return
	}
	ur, err := h.svc.AssignRole(c.Request.Context(), id, req.Role)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, ur)
}

// Delete handles DELETE /admin/users/:id.
func (h *Handler) Delete(c *gin.Context) {
	id, ok := response.ParamUUID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.DeleteUser(c.Request.Context(), middleware.Principal(c).UserID, id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
