package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/todoapp/shared-todo-api/internal/models"
)

// BoardRepository provides database access for boards and memberships.
type BoardRepository struct {
	db *sqlx.DB
}

// NewBoardRepository creates a new instance of BoardRepository.
func NewBoardRepository(db *sqlx.DB) *BoardRepository {
	return &BoardRepository{db: db}
}

// FindByID returns a board by identifier.
func (r *BoardRepository) FindByID(ctx context.Context, id int64) (*models.Board, error) {
	const query = `SELECT id, title, owner_id, created_at, updated_at FROM boards WHERE id = $1 LIMIT 1`
	var board models.Board
	if err := r.db.GetContext(ctx, &board, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find board by id: %w", err)
	}
	return &board, nil
}

// ListForUser returns boards the user owns or has joined, newest first.
func (r *BoardRepository) ListForUser(ctx context.Context, userID int64, filter models.BoardFilter) ([]models.Board, int, error) {
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}

	const listQuery = `SELECT b.id, b.title, b.owner_id, b.created_at, b.updated_at
		FROM boards b
		JOIN board_members m ON m.board_id = b.id
		WHERE m.user_id = $1
		ORDER BY b.created_at DESC LIMIT $2 OFFSET $3`
	boards := []models.Board{}
	if err := r.db.SelectContext(ctx, &boards, listQuery, userID, size, (page-1)*size); err != nil {
		return nil, 0, fmt.Errorf("list boards: %w", err)
	}

	const countQuery = `SELECT COUNT(*) FROM board_members WHERE user_id = $1`
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, userID); err != nil {
		return nil, 0, fmt.Errorf("count boards: %w", err)
	}
	return boards, total, nil
}

// Create inserts a board and enrolls the owner as its first member.
func (r *BoardRepository) Create(ctx context.Context, board *models.Board) error {
	now := time.Now().UTC()
	board.CreatedAt = now
	board.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create board: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const insertBoard = `INSERT INTO boards (title, owner_id, created_at, updated_at) VALUES ($1, $2, $3, $3) RETURNING id`
	if err := tx.QueryRowContext(ctx, insertBoard, board.Title, board.OwnerID, now).Scan(&board.ID); err != nil {
		return fmt.Errorf("create board: %w", err)
	}

	const insertMember = `INSERT INTO board_members (board_id, user_id, joined_at) VALUES ($1, $2, $3)`
	if _, err := tx.ExecContext(ctx, insertMember, board.ID, board.OwnerID, now); err != nil {
		return fmt.Errorf("enroll board owner: %w", err)
	}

	return tx.Commit()
}

// UpdateTitle renames the board.
func (r *BoardRepository) UpdateTitle(ctx context.Context, id int64, title string, updatedAt time.Time) error {
	const query = `UPDATE boards SET title = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, title, updatedAt); err != nil {
		return fmt.Errorf("update board title: %w", err)
	}
	return nil
}

// Delete removes the board; tasks and memberships cascade in the schema.
func (r *BoardRepository) Delete(ctx context.Context, id int64) error {
	const query = `DELETE FROM boards WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete board: %w", err)
	}
	return nil
}

// IsMember reports whether the user has joined the board.
func (r *BoardRepository) IsMember(ctx context.Context, boardID, userID int64) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM board_members WHERE board_id = $1 AND user_id = $2)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, boardID, userID); err != nil {
		return false, fmt.Errorf("check board membership: %w", err)
	}
	return exists, nil
}

// AddMember enrolls a user on the board.
func (r *BoardRepository) AddMember(ctx context.Context, boardID, userID int64) error {
	const query = `INSERT INTO board_members (board_id, user_id, joined_at) VALUES ($1, $2, $3)`
	if _, err := r.db.ExecContext(ctx, query, boardID, userID, time.Now().UTC()); err != nil {
		return fmt.Errorf("add board member: %w", err)
	}
	return nil
}

// ListMembers returns the members of a board with their nicknames.
func (r *BoardRepository) ListMembers(ctx context.Context, boardID int64) ([]models.BoardMember, error) {
	const query = `SELECT m.id, m.board_id, m.user_id, u.nickname, m.joined_at
		FROM board_members m
		JOIN users u ON u.id = m.user_id
		WHERE m.board_id = $1
		ORDER BY m.joined_at ASC`
	members := []models.BoardMember{}
	if err := r.db.SelectContext(ctx, &members, query, boardID); err != nil {
		return nil, fmt.Errorf("list board members: %w", err)
	}
	return members, nil
}
