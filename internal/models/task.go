package models

import "time"

// TaskStatus enumerates a task's completion state.
type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "PENDING"
	TaskStatusCompleted TaskStatus = "COMPLETED"
)

// Task is a todo item on a board.
type Task struct {
	ID        int64      `db:"id" json:"id"`
	BoardID   int64      `db:"board_id" json:"board_id"`
	AuthorID  int64      `db:"author_id" json:"author_id"`
	Content   string     `db:"content" json:"content"`
	Status    TaskStatus `db:"status" json:"status"`
	DueDate   *time.Time `db:"due_date" json:"due_date,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
}

// CreateTaskRequest is the payload for adding a task to a board.
type CreateTaskRequest struct {
	Content string     `json:"content" validate:"required,max=500"`
	DueDate *time.Time `json:"due_date"`
}

// UpdateTaskRequest carries partial task updates; nil fields are untouched.
type UpdateTaskRequest struct {
	Content *string     `json:"content" validate:"omitempty,max=500"`
	Status  *TaskStatus `json:"status" validate:"omitempty,oneof=PENDING COMPLETED"`
	DueDate *time.Time  `json:"due_date"`
}
