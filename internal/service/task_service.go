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

type taskRepository interface {
	FindByID(ctx context.Context, id int64) (*models.Task, error)
	ListByBoard(ctx context.Context, boardID int64) ([]models.Task, error)
	Create(ctx context.Context, task *models.Task) error
	Update(ctx context.Context, task *models.Task) error
	Delete(ctx context.Context, id int64) error
}

type boardMembership interface {
	FindByID(ctx context.Context, id int64) (*models.Board, error)
	IsMember(ctx context.Context, boardID, userID int64) (bool, error)
}

// TaskService handles tasks on shared boards. Any board member may create,
// edit, complete, or delete any task on the board.
type TaskService struct {
	tasks     taskRepository
	boards    boardMembership
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTaskService creates a new task service.
func NewTaskService(tasks taskRepository, boards boardMembership, validate *validator.Validate, logger *zap.Logger) *TaskService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TaskService{tasks: tasks, boards: boards, validator: validate, logger: logger}
}

// List returns all tasks on a board the user is a member of.
func (s *TaskService) List(ctx context.Context, userID, boardID int64) ([]models.Task, error) {
	if err := s.requireBoardMember(ctx, userID, boardID); err != nil {
		return nil, err
	}
	tasks, err := s.tasks.ListByBoard(ctx, boardID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list tasks")
	}
	return tasks, nil
}

// Create adds a task to a board with status PENDING.
func (s *TaskService) Create(ctx context.Context, userID, boardID int64, req models.CreateTaskRequest) (*models.Task, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid task payload")
	}
	if err := s.requireBoardMember(ctx, userID, boardID); err != nil {
		return nil, err
	}

	task := &models.Task{
		BoardID:  boardID,
		AuthorID: userID,
		Content:  req.Content,
		Status:   models.TaskStatusPending,
		DueDate:  req.DueDate,
	}
	if err := s.tasks.Create(ctx, task); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create task")
	}
	return task, nil
}

// Update applies a partial update to a task.
func (s *TaskService) Update(ctx context.Context, userID, taskID int64, req models.UpdateTaskRequest) (*models.Task, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid task payload")
	}

	task, err := s.fetch(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if err := s.requireBoardMember(ctx, userID, task.BoardID); err != nil {
		return nil, err
	}

	if req.Content != nil {
		task.Content = *req.Content
	}
	if req.Status != nil {
		task.Status = *req.Status
	}
	if req.DueDate != nil {
		task.DueDate = req.DueDate
	}
	task.UpdatedAt = time.Now().UTC()

	if err := s.tasks.Update(ctx, task); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update task")
	}
	return task, nil
}

// Delete removes a task from its board.
func (s *TaskService) Delete(ctx context.Context, userID, taskID int64) error {
	task, err := s.fetch(ctx, taskID)
	if err != nil {
		return err
	}
	if err := s.requireBoardMember(ctx, userID, task.BoardID); err != nil {
		return err
	}
	if err := s.tasks.Delete(ctx, taskID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete task")
	}
	return nil
}

func (s *TaskService) fetch(ctx context.Context, taskID int64) (*models.Task, error) {
	task, err := s.tasks.FindByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "task not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load task")
	}
	return task, nil
}

func (s *TaskService) requireBoardMember(ctx context.Context, userID, boardID int64) error {
	if _, err := s.boards.FindByID(ctx, boardID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "board not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load board")
	}
	member, err := s.boards.IsMember(ctx, boardID, userID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check membership")
	}
	if !member {
		return appErrors.Clone(appErrors.ErrNotBoardMember, "")
	}
	return nil
}
