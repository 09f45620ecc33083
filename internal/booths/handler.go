package booths

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/FatPandaC8/Vexpo/internal/middleware"
	"github.com/FatPandaC8/Vexpo/internal/models"
	"github.com/FatPandaC8/Vexpo/pkg/pagination"
	"github.com/FatPandaC8/Vexpo/pkg/response"
	"github.com/FatPandaC8/Vexpo/pkg/storage"
)

// StatusRequest is the body for PATCH /booths/:id/status.
type StatusRequest struct {
	Status string `json:"status" binding:"required,booth_status"`
}

// UploadURLRequest is the body for POST /booths/:id/model/upload-url.
type UploadURLRequest struct {
	Filename string `json:"filename" binding:"required"`
}

// Handler handles booth HTTP endpoints.
type Handler struct {
	svc    *Service
	limits pagination.Limits
	logger *zap.Logger
}

// NewHandler creates a booth handler.
func NewHandler(svc *Service, limits pagination.Limits, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, limits: limits, logger: logger}
}

// Create handles POST /expos/:id/booths.
func (h *Handler) Create(c *gin.Context) {
	expoID, ok := response.ParamUUID(c, "id")
	if !ok {
		return
	}
	var req Content
	if !response.BindJSON(c, &req) {
		return
	}
	b, err := h.svc.CreateBooth(c.Request.Context(), expoID, middleware.Principal(c).UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, b)
}

// ListApproved handles GET /expos/:id/booths.
func (h *Handler) ListApproved(c *gin.Context) {
	expoID, ok := response.ParamUUID(c, "id")
	if !ok {
		return
	}
	list, err := h.svc.ListByExpo(c.Request.Context(), expoID, true)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, list)
}

// ListAll handles GET /expos/:id/booths/all.
func (h *Handler) ListAll(c *gin.Context) {
	expoID, ok := response.ParamUUID(c, "id")
	if !ok {
		return
	}
	list, err := h.svc.ListAllByExpoAs(c.Request.Context(), expoID, middleware.Principal(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, list)
}

// List handles GET /booths and GET /admin/booths.
func (h *Handler) List(c *gin.Context) {
	page, err := h.svc.ListPaginated(c.Request.Context(), pagination.FromQuery(c, h.limits))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, page)
}

// Mine handles GET /me/booths.
func (h *Handler) Mine(c *gin.Context) {
	list, err := h.svc.ListByExhibitor(c.Request.Context(), middleware.Principal(c).UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, list)
}

// GetByID handles GET /booths/:id.
func (h *Handler) GetByID(c *gin.Context) {
	id, ok := response.ParamUUID(c, "id")
	if !ok {
		return
	}
	b, err := h.svc.GetByID(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, b)
}

// Update handles PATCH /booths/:id and PATCH /admin/booths/:id. Callers that
// hold neither organizer nor admin are decoded into ContentPatch, so a status
// key in their payload never reaches the service.
func (h *Handler) Update(c *gin.Context) {
	id, ok := response.ParamUUID(c, "id")
	if !ok {
		return
	}
	p := middleware.Principal(c)
	var patch Patch
	if p.IsAdmin() || p.Has(models.RoleOrganizer) {
		if !response.BindJSON(c, &patch) {
			return
		}
	} else if !response.BindJSON(c, &patch.ContentPatch) {
		return
	}
	b, err := h.svc.UpdateAs(c.Request.Context(), id, p, patch)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, b)
}

// SetStatus handles PATCH /booths/:id/status.
func (h *Handler) SetStatus(c *gin.Context) {
	id, ok := response.ParamUUID(c, "id")
	if !ok {
		return
	}
	var req StatusRequest
	if !response.BindJSON(c, &req) {
		return
	}
	status, _ := models.ParseBoothStatus(req.Status)
	b, err := h.svc.SetStatusAs(c.Request.Context(), id, middleware.Principal(c), status)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, b)
}

// Delete handles DELETE /booths/:id and DELETE /admin/booths/:id.
func (h *Handler) Delete(c *gin.Context) {
	id, ok := response.ParamUUID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.DeleteAs(c.Request.Context(), id, middleware.Principal(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ModelUploadURL handles POST /booths/:id/model/upload-url.
func (h *Handler) ModelUploadURL(c *gin.Context) {
	id, ok := response.ParamUUID(c, "id")
	if !ok {
		return
	}
	var req UploadURLRequest
	if !response.BindJSON(c, &req) {
		return
	}
	out, err := h.svc.PresignModelUpload(c.Request.Context(), id, middleware.Principal(c), req.Filename)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, out)
}

// UploadModel handles POST /booths/:id/model (multipart field "file").
func (h *Handler) UploadModel(c *gin.Context) {
	id, ok := response.ParamUUID(c, "id")
	if !ok {
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, storage.MaxModelFileSize+1<<20)
	fh, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, "file is required")
		return
	}
	f, err := fh.Open()
	if err != nil {
		response.BadRequest(c, "failed to read file")
		return
	}
	defer f.Close()
	b, err := h.svc.UploadModel(c.Request.Context(), id, middleware.Principal(c), fh.Filename, f, fh.Size)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, b)
}
