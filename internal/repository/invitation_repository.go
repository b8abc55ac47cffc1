package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/todoapp/shared-todo-api/internal/models"
)

const invitationColumns = `id, board_id, inviter_id, invitee_id, status, expires_at, created_at, updated_at`

// InvitationRepository provides database access for board invitations.
type InvitationRepository struct {
	db *sqlx.DB
}

// NewInvitationRepository creates a new instance of InvitationRepository.
func NewInvitationRepository(db *sqlx.DB) *InvitationRepository {
	return &InvitationRepository{db: db}
}

// FindByID returns an invitation by identifier.
func (r *InvitationRepository) FindByID(ctx context.Context, id int64) (*models.Invitation, error) {
	query := `SELECT ` + invitationColumns + ` FROM invitations WHERE id = $1 LIMIT 1`
	var invitation models.Invitation
	if err := r.db.GetContext(ctx, &invitation, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find invitation by id: %w", err)
	}
	return &invitation, nil
}

// ListForInvitee returns pending invitations addressed to the user.
func (r *InvitationRepository) ListForInvitee(ctx context.Context, inviteeID int64) ([]models.Invitation, error) {
	query := `SELECT ` + invitationColumns + ` FROM invitations
		WHERE invitee_id = $1 AND status = $2
		ORDER BY created_at DESC`
	invitations := []models.Invitation{}
	if err := r.db.SelectContext(ctx, &invitations, query, inviteeID, models.InvitationPending); err != nil {
		return nil, fmt.Errorf("list invitations: %w", err)
	}
	return invitations, nil
}

// ExistsPending reports whether the invitee already has an open invitation
// for the board.
func (r *InvitationRepository) ExistsPending(ctx context.Context, boardID, inviteeID int64) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM invitations WHERE board_id = $1 AND invitee_id = $2 AND status = $3)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, boardID, inviteeID, models.InvitationPending); err != nil {
		return false, fmt.Errorf("check pending invitation: %w", err)
	}
	return exists, nil
}

// Create inserts an invitation and fills in the generated id.
func (r *InvitationRepository) Create(ctx context.Context, invitation *models.Invitation) error {
	const query = `INSERT INTO invitations (board_id, inviter_id, invitee_id, status, expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6) RETURNING id`
	now := time.Now().UTC()
	invitation.CreatedAt = now
	invitation.UpdatedAt = now
	if err := r.db.QueryRowContext(ctx, query,
		invitation.BoardID, invitation.InviterID, invitation.InviteeID,
		invitation.Status, invitation.ExpiresAt, now,
	).Scan(&invitation.ID); err != nil {
		return fmt.Errorf("create invitation: %w", err)
	}
	return nil
}

// UpdateStatus records acceptance or decline.
func (r *InvitationRepository) UpdateStatus(ctx context.Context, id int64, status models.InvitationStatus, updatedAt time.Time) error {
	const query = `UPDATE invitations SET status = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, updatedAt); err != nil {
		return fmt.Errorf("update invitation status: %w", err)
	}
	return nil
}
