package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/todoapp/shared-todo-api/internal/models"
	appErrors "github.com/todoapp/shared-todo-api/pkg/errors"
)

type invitationRepository interface {
	FindByID(ctx context.Context, id int64) (*models.Invitation, error)
	ListForInvitee(ctx context.Context, inviteeID int64) ([]models.Invitation, error)
	ExistsPending(ctx context.Context, boardID, inviteeID int64) (bool, error)
	Create(ctx context.Context, invitation *models.Invitation) error
	UpdateStatus(ctx context.Context, id int64, status models.InvitationStatus, updatedAt time.Time) error
}

type invitationBoardStore interface {
	FindByID(ctx context.Context, id int64) (*models.Board, error)
	IsMember(ctx context.Context, boardID, userID int64) (bool, error)
	AddMember(ctx context.Context, boardID, userID int64) error
}

type userCodeLookup interface {
	FindByUserCode(ctx context.Context, code string) (*models.User, error)
}

// InvitationService handles board invitations. The board owner invites by
// user code; the invitee accepts or declines. Invitations expire after a
// configured TTL and an expired one can no longer be accepted.
type InvitationService struct {
	invitations invitationRepository
	boards      invitationBoardStore
	users       userCodeLookup
	ttl         time.Duration
	validator   *validator.Validate
	logger      *zap.Logger
	now         func() time.Time
}

// NewInvitationService creates a new invitation service.
func NewInvitationService(invitations invitationRepository, boards invitationBoardStore, users userCodeLookup, ttl time.Duration, validate *validator.Validate, logger *zap.Logger) *InvitationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InvitationService{
		invitations: invitations,
		boards:      boards,
		users:       users,
		ttl:         ttl,
		validator:   validate,
		logger:      logger,
		now:         time.Now,
	}
}

// WithClock overrides the time source. Test hook.
func (s *InvitationService) WithClock(now func() time.Time) {
	s.now = now
}

// Invite creates a pending invitation from the board owner to the holder of
// the given user code.
func (s *InvitationService) Invite(ctx context.Context, inviterID int64, req models.CreateInvitationRequest) (*models.Invitation, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid invitation payload")
	}

	board, err := s.boards.FindByID(ctx, req.BoardID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "board not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load board")
	}
	if board.OwnerID != inviterID {
		return nil, appErrors.Clone(appErrors.ErrNotBoardOwner, "")
	}

	invitee, err := s.users.FindByUserCode(ctx, req.UserCode)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no user with that code")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to look up user code")
	}
	if invitee.ID == inviterID {
		return nil, appErrors.Clone(appErrors.ErrCannotInviteSelf, "")
	}

	member, err := s.boards.IsMember(ctx, req.BoardID, invitee.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check membership")
	}
	if member {
		return nil, appErrors.Clone(appErrors.ErrAlreadyMember, "")
	}

	pending, err := s.invitations.ExistsPending(ctx, req.BoardID, invitee.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check pending invitations")
	}
	if pending {
		return nil, appErrors.Clone(appErrors.ErrAlreadyInvited, "")
	}

	invitation := &models.Invitation{
		BoardID:   req.BoardID,
		InviterID: inviterID,
		InviteeID: invitee.ID,
		Status:    models.InvitationPending,
		ExpiresAt: s.now().UTC().Add(s.ttl),
	}
	if err := s.invitations.Create(ctx, invitation); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create invitation")
	}

	s.logger.Info("invitation created",
		zap.Int64("board_id", req.BoardID),
		zap.Int64("inviter_id", inviterID),
		zap.Int64("invitee_id", invitee.ID),
	)
	return invitation, nil
}

// ListMine returns the invitations addressed to the calling user.
func (s *InvitationService) ListMine(ctx context.Context, inviteeID int64) ([]models.Invitation, error) {
	invitations, err := s.invitations.ListForInvitee(ctx, inviteeID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list invitations")
	}
	return invitations, nil
}

// Respond accepts or declines a pending invitation. Accepting enrolls the
// invitee as a board member.
func (s *InvitationService) Respond(ctx context.Context, userID, invitationID int64, req models.RespondInvitationRequest) (*models.Invitation, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid response payload")
	}

	invitation, err := s.invitations.FindByID(ctx, invitationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "invitation not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load invitation")
	}
	if invitation.InviteeID != userID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invitation addressed to another user")
	}
	if invitation.Status != models.InvitationPending {
		return nil, appErrors.Clone(appErrors.ErrConflict, "invitation already answered")
	}

	now := s.now().UTC()
	if now.After(invitation.ExpiresAt) {
		return nil, appErrors.Clone(appErrors.ErrInvitationExpired, "")
	}

	status := models.InvitationDeclined
	if req.Action == "ACCEPT" {
		status = models.InvitationAccepted
		if err := s.boards.AddMember(ctx, invitation.BoardID, userID); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enroll member")
		}
	}

	if err := s.invitations.UpdateStatus(ctx, invitationID, status, now); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update invitation")
	}
	invitation.Status = status
	invitation.UpdatedAt = now
	return invitation, nil
}
