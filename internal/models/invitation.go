package models

import "time"

// InvitationStatus enumerates invitation outcomes.
type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "PENDING"
	InvitationAccepted InvitationStatus = "ACCEPTED"
	InvitationDeclined InvitationStatus = "DECLINED"
)

// Invitation asks a user (looked up by user code) to join a board.
type Invitation struct {
	ID        int64            `db:"id" json:"id"`
	BoardID   int64            `db:"board_id" json:"board_id"`
	InviterID int64            `db:"inviter_id" json:"inviter_id"`
	InviteeID int64            `db:"invitee_id" json:"invitee_id"`
	Status    InvitationStatus `db:"status" json:"status"`
	ExpiresAt time.Time        `db:"expires_at" json:"expires_at"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt time.Time        `db:"updated_at" json:"updated_at"`
}

// CreateInvitationRequest invites a user to a board by their user code.
type CreateInvitationRequest struct {
	BoardID  int64  `json:"board_id" validate:"required"`
	UserCode string `json:"user_code" validate:"required,len=10"`
}

// RespondInvitationRequest accepts or declines a pending invitation.
type RespondInvitationRequest struct {
	Action string `json:"action" validate:"required,oneof=ACCEPT DECLINE"`
}
