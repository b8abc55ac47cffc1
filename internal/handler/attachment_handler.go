package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/todoapp/shared-todo-api/internal/middleware"
	"github.com/todoapp/shared-todo-api/internal/service"
	appErrors "github.com/todoapp/shared-todo-api/pkg/errors"
	"github.com/todoapp/shared-todo-api/pkg/response"
)

// AttachmentHandler exposes task attachment endpoints plus the public signed
// download endpoint.
type AttachmentHandler struct {
	service *service.AttachmentService
	logger  *zap.Logger
}

// NewAttachmentHandler creates a new handler.
func NewAttachmentHandler(svc *service.AttachmentService, logger *zap.Logger) *AttachmentHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttachmentHandler{service: svc, logger: logger}
}

// Upload godoc
// @Summary Attach a file to a task
// @Tags Attachments
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param id path int true "Task ID"
// @Param file formData file true "File to attach"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /tasks/{id}/attachments [post]
func (h *AttachmentHandler) Upload(c *gin.Context) {
	principal, taskID, ok := pathID(c, "id")
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "file field required"))
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read upload"))
		return
	}
	defer file.Close()

	attachment, err := h.service.Upload(
		c.Request.Context(),
		principal.UserID,
		taskID,
		fileHeader.Filename,
		fileHeader.Header.Get("Content-Type"),
		fileHeader.Size,
		file,
	)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, attachment)
}

// List godoc
// @Summary List attachments on a task
// @Tags Attachments
// @Produce json
// @Security BearerAuth
// @Param id path int true "Task ID"
// @Success 200 {object} response.Envelope
// @Router /tasks/{id}/attachments [get]
func (h *AttachmentHandler) List(c *gin.Context) {
	principal, taskID, ok := pathID(c, "id")
	if !ok {
		return
	}

	attachments, err := h.service.List(c.Request.Context(), principal.UserID, taskID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, attachments, nil)
}

// Delete godoc
// @Summary Delete an attachment (uploader or board owner)
// @Tags Attachments
// @Security BearerAuth
// @Param id path int true "Attachment ID"
// @Success 204
// @Failure 403 {object} response.Envelope
// @Router /attachments/{id} [delete]
func (h *AttachmentHandler) Delete(c *gin.Context) {
	principal, attachmentID, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), principal.UserID, attachmentID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// DownloadURL godoc
// @Summary Mint a signed download link
// @Tags Attachments
// @Produce json
// @Security BearerAuth
// @Param id path int true "Attachment ID"
// @Success 200 {object} response.Envelope
// @Router /attachments/{id}/download-url [get]
func (h *AttachmentHandler) DownloadURL(c *gin.Context) {
	principal, attachmentID, ok := pathID(c, "id")
	if !ok {
		return
	}

	download, err := h.service.DownloadURL(c.Request.Context(), principal.UserID, attachmentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, download, nil)
}

// PublicDownload godoc
// @Summary Download a file via a signed link
// @Description No session required; the HMAC signature in the token gates access.
// @Tags Attachments
// @Produce octet-stream
// @Param token path string true "Signed download token"
// @Success 200 {file} byte
// @Failure 401 {object} response.Envelope
// @Router /public/attachments/{token} [get]
func (h *AttachmentHandler) PublicDownload(c *gin.Context) {
	attachment, file, err := h.service.ResolveDownload(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close()

	fields := []zap.Field{
		zap.Int64("attachment_id", attachment.ID),
		zap.String("file_name", attachment.FileName),
	}
	if principal, ok := middleware.CurrentPrincipal(c); ok {
		fields = append(fields, zap.Int64("user_id", principal.UserID))
	}
	h.logger.Info("attachment downloaded", fields...)

	c.Header("Content-Disposition", `attachment; filename="`+attachment.FileName+`"`)
	c.DataFromReader(http.StatusOK, attachment.SizeBytes, attachment.ContentType, file, nil)
}
