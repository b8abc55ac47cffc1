package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/todoapp/shared-todo-api/internal/models"
	"github.com/todoapp/shared-todo-api/internal/service"
	appErrors "github.com/todoapp/shared-todo-api/pkg/errors"
	"github.com/todoapp/shared-todo-api/pkg/response"
)

// InvitationHandler exposes board invitation endpoints.
type InvitationHandler struct {
	service *service.InvitationService
}

// NewInvitationHandler creates a new handler.
func NewInvitationHandler(svc *service.InvitationService) *InvitationHandler {
	return &InvitationHandler{service: svc}
}

// Create godoc
// @Summary Invite a user to a board by user code (owner only)
// @Tags Invitations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body models.CreateInvitationRequest true "Invitation payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /invitations [post]
func (h *InvitationHandler) Create(c *gin.Context) {
	principal := principalFromContext(c)
	if principal == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.CreateInvitationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid invitation payload"))
		return
	}

	invitation, err := h.service.Invite(c.Request.Context(), principal.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, invitation)
}

// ListMine godoc
// @Summary List invitations addressed to the current user
// @Tags Invitations
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /invitations [get]
func (h *InvitationHandler) ListMine(c *gin.Context) {
	principal := principalFromContext(c)
	if principal == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	invitations, err := h.service.ListMine(c.Request.Context(), principal.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, invitations, nil)
}

// Respond godoc
// @Summary Accept or decline an invitation
// @Tags Invitations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Invitation ID"
// @Param payload body models.RespondInvitationRequest true "ACCEPT or DECLINE"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /invitations/{id} [post]
func (h *InvitationHandler) Respond(c *gin.Context) {
	principal, invitationID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req models.RespondInvitationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid response payload"))
		return
	}

	invitation, err := h.service.Respond(c.Request.Context(), principal.UserID, invitationID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, invitation, nil)
}
