package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/todoapp/shared-todo-api/internal/models"
	"github.com/todoapp/shared-todo-api/internal/service"
	appErrors "github.com/todoapp/shared-todo-api/pkg/errors"
	"github.com/todoapp/shared-todo-api/pkg/response"
)

// BoardHandler exposes board CRUD and export endpoints.
type BoardHandler struct {
	boards *service.BoardService
	export *service.ExportService
}

// NewBoardHandler creates a new handler.
func NewBoardHandler(boards *service.BoardService, export *service.ExportService) *BoardHandler {
	return &BoardHandler{boards: boards, export: export}
}

// List godoc
// @Summary List boards the user belongs to
// @Tags Boards
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /boards [get]
func (h *BoardHandler) List(c *gin.Context) {
	principal := principalFromContext(c)
	if principal == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	filter := models.BoardFilter{
		Page:     queryInt(c, "page", 1),
		PageSize: queryInt(c, "page_size", 20),
	}
	boards, pagination, err := h.boards.List(c.Request.Context(), principal.UserID, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, boards, pagination)
}

// Create godoc
// @Summary Create a board
// @Tags Boards
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body models.CreateBoardRequest true "Board payload"
// @Success 201 {object} response.Envelope
// @Router /boards [post]
func (h *BoardHandler) Create(c *gin.Context) {
	principal := principalFromContext(c)
	if principal == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.CreateBoardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid board payload"))
		return
	}

	board, err := h.boards.Create(c.Request.Context(), principal.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, board)
}

// Get godoc
// @Summary Fetch a board
// @Tags Boards
// @Produce json
// @Security BearerAuth
// @Param id path int true "Board ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /boards/{id} [get]
func (h *BoardHandler) Get(c *gin.Context) {
	principal, boardID, ok := h.principalAndID(c)
	if !ok {
		return
	}

	board, err := h.boards.Get(c.Request.Context(), principal.UserID, boardID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, board, nil)
}

// Rename godoc
// @Summary Rename a board (owner only)
// @Tags Boards
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Board ID"
// @Param payload body models.UpdateBoardRequest true "New title"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /boards/{id} [put]
func (h *BoardHandler) Rename(c *gin.Context) {
	principal, boardID, ok := h.principalAndID(c)
	if !ok {
		return
	}

	var req models.UpdateBoardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid board payload"))
		return
	}

	board, err := h.boards.Rename(c.Request.Context(), principal.UserID, boardID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, board, nil)
}

// Delete godoc
// @Summary Delete a board (owner only)
// @Tags Boards
// @Security BearerAuth
// @Param id path int true "Board ID"
// @Success 204
// @Failure 403 {object} response.Envelope
// @Router /boards/{id} [delete]
func (h *BoardHandler) Delete(c *gin.Context) {
	principal, boardID, ok := h.principalAndID(c)
	if !ok {
		return
	}

	if err := h.boards.Delete(c.Request.Context(), principal.UserID, boardID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Members godoc
// @Summary List board members
// @Tags Boards
// @Produce json
// @Security BearerAuth
// @Param id path int true "Board ID"
// @Success 200 {object} response.Envelope
// @Router /boards/{id}/members [get]
func (h *BoardHandler) Members(c *gin.Context) {
	principal, boardID, ok := h.principalAndID(c)
	if !ok {
		return
	}

	members, err := h.boards.Members(c.Request.Context(), principal.UserID, boardID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, members, nil)
}

// Export godoc
// @Summary Export board tasks as CSV or PDF
// @Tags Boards
// @Produce octet-stream
// @Security BearerAuth
// @Param id path int true "Board ID"
// @Param format query string true "csv or pdf"
// @Success 200 {file} byte
// @Router /boards/{id}/export [get]
func (h *BoardHandler) Export(c *gin.Context) {
	principal, boardID, ok := h.principalAndID(c)
	if !ok {
		return
	}

	result, err := h.export.Export(c.Request.Context(), principal.UserID, boardID, c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+result.FileName+`"`)
	c.Data(http.StatusOK, result.ContentType, result.Data)
}

func (h *BoardHandler) principalAndID(c *gin.Context) (*models.Principal, int64, bool) {
	principal := principalFromContext(c)
	if principal == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return nil, 0, false
	}
	boardID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid board id"))
		return nil, 0, false
	}
	return principal, boardID, true
}

func queryInt(c *gin.Context, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 1 {
		return fallback
	}
	return value
}
