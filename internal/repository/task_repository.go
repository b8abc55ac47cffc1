package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/todoapp/shared-todo-api/internal/models"
)

const taskColumns = `id, board_id, author_id, content, status, due_date, created_at, updated_at`

// TaskRepository provides database access for tasks.
type TaskRepository struct {
	db *sqlx.DB
}

// NewTaskRepository creates a new instance of TaskRepository.
func NewTaskRepository(db *sqlx.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// FindByID returns a task by identifier.
func (r *TaskRepository) FindByID(ctx context.Context, id int64) (*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1 LIMIT 1`
	var task models.Task
	if err := r.db.GetContext(ctx, &task, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find task by id: %w", err)
	}
	return &task, nil
}

// ListByBoard returns the board's tasks, oldest first.
func (r *TaskRepository) ListByBoard(ctx context.Context, boardID int64) ([]models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE board_id = $1 ORDER BY created_at ASC`
	tasks := []models.Task{}
	if err := r.db.SelectContext(ctx, &tasks, query, boardID); err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

// Create inserts a task and fills in the generated id.
func (r *TaskRepository) Create(ctx context.Context, task *models.Task) error {
	const query = `INSERT INTO tasks (board_id, author_id, content, status, due_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6) RETURNING id`
	now := time.Now().UTC()
	task.CreatedAt = now
	task.UpdatedAt = now
	if err := r.db.QueryRowContext(ctx, query,
		task.BoardID, task.AuthorID, task.Content, task.Status, task.DueDate, now,
	).Scan(&task.ID); err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

// Update persists content, status and due date changes.
func (r *TaskRepository) Update(ctx context.Context, task *models.Task) error {
	const query = `UPDATE tasks SET content = $2, status = $3, due_date = $4, updated_at = $5 WHERE id = $1`
	task.UpdatedAt = time.Now().UTC()
	if _, err := r.db.ExecContext(ctx, query, task.ID, task.Content, task.Status, task.DueDate, task.UpdatedAt); err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	return nil
}

// Delete removes a task.
func (r *TaskRepository) Delete(ctx context.Context, id int64) error {
	const query = `DELETE FROM tasks WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return nil
}
