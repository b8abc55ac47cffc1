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

type boardRepository interface {
	FindByID(ctx context.Context, id int64) (*models.Board, error)
	ListForUser(ctx context.Context, userID int64, filter models.BoardFilter) ([]models.Board, int, error)
	Create(ctx context.Context, board *models.Board) error
	UpdateTitle(ctx context.Context, id int64, title string, updatedAt time.Time) error
	Delete(ctx context.Context, id int64) error
	IsMember(ctx context.Context, boardID, userID int64) (bool, error)
	AddMember(ctx context.Context, boardID, userID int64) error
	ListMembers(ctx context.Context, boardID int64) ([]models.BoardMember, error)
}

// BoardService handles board workflows. Boards are visible to their members
// only; rename and delete are restricted to the owner.
type BoardService struct {
	boards    boardRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewBoardService creates a new board service.
func NewBoardService(boards boardRepository, validate *validator.Validate, logger *zap.Logger) *BoardService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BoardService{boards: boards, validator: validate, logger: logger}
}

// List returns the boards the user is a member of, paginated.
func (s *BoardService) List(ctx context.Context, userID int64, filter models.BoardFilter) ([]models.Board, *models.Pagination, error) {
	boards, total, err := s.boards.ListForUser(ctx, userID, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list boards")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return boards, pagination, nil
}

// Create makes a new board and enrolls the creator as its owner and first
// member.
func (s *BoardService) Create(ctx context.Context, ownerID int64, req models.CreateBoardRequest) (*models.Board, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid board payload")
	}

	board := &models.Board{Title: req.Title, OwnerID: ownerID}
	if err := s.boards.Create(ctx, board); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create board")
	}
	return board, nil
}

// Get returns a board the user is a member of.
func (s *BoardService) Get(ctx context.Context, userID, boardID int64) (*models.Board, error) {
	board, err := s.requireMember(ctx, userID, boardID)
	if err != nil {
		return nil, err
	}
	return board, nil
}

// Rename changes a board title. Owner only.
func (s *BoardService) Rename(ctx context.Context, userID, boardID int64, req models.UpdateBoardRequest) (*models.Board, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid board payload")
	}

	board, err := s.requireOwner(ctx, userID, boardID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if err := s.boards.UpdateTitle(ctx, boardID, req.Title, now); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to rename board")
	}
	board.Title = req.Title
	board.UpdatedAt = now
	return board, nil
}

// Delete removes a board and everything on it. Owner only.
func (s *BoardService) Delete(ctx context.Context, userID, boardID int64) error {
	if _, err := s.requireOwner(ctx, userID, boardID); err != nil {
		return err
	}
	if err := s.boards.Delete(ctx, boardID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete board")
	}
	s.logger.Info("board deleted", zap.Int64("board_id", boardID), zap.Int64("owner_id", userID))
	return nil
}

// Members lists board members with their nicknames. Member only.
func (s *BoardService) Members(ctx context.Context, userID, boardID int64) ([]models.BoardMember, error) {
	if _, err := s.requireMember(ctx, userID, boardID); err != nil {
		return nil, err
	}
	members, err := s.boards.ListMembers(ctx, boardID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list members")
	}
	return members, nil
}

func (s *BoardService) requireMember(ctx context.Context, userID, boardID int64) (*models.Board, error) {
	board, err := s.fetch(ctx, boardID)
	if err != nil {
		return nil, err
	}
	member, err := s.boards.IsMember(ctx, boardID, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check membership")
	}
	if !member {
		return nil, appErrors.Clone(appErrors.ErrNotBoardMember, "")
	}
	return board, nil
}

func (s *BoardService) requireOwner(ctx context.Context, userID, boardID int64) (*models.Board, error) {
	board, err := s.fetch(ctx, boardID)
	if err != nil {
		return nil, err
	}
	if board.OwnerID != userID {
		return nil, appErrors.Clone(appErrors.ErrNotBoardOwner, "")
	}
	return board, nil
}

func (s *BoardService) fetch(ctx context.Context, boardID int64) (*models.Board, error) {
	board, err := s.boards.FindByID(ctx, boardID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "board not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load board")
	}
	return board, nil
}
