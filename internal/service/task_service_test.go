package service

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/todoapp/shared-todo-api/internal/models"
	appErrors "github.com/todoapp/shared-todo-api/pkg/errors"
)

type memTaskStore struct {
	mu     sync.Mutex
	tasks  map[int64]*models.Task
	nextID int64
}

func newMemTaskStore() *memTaskStore {
	return &memTaskStore{tasks: make(map[int64]*models.Task), nextID: 1}
}

func (m *memTaskStore) FindByID(ctx context.Context, id int64) (*models.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	task, ok := m.tasks[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *task
	return &copied, nil
}

func (m *memTaskStore) ListByBoard(ctx context.Context, boardID int64) ([]models.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Task
	for _, task := range m.tasks {
		if task.BoardID == boardID {
			out = append(out, *task)
		}
	}
	return out, nil
}

func (m *memTaskStore) Create(ctx context.Context, task *models.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	task.ID = m.nextID
	m.nextID++
	task.CreatedAt = time.Now().UTC()
	task.UpdatedAt = task.CreatedAt
	copied := *task
	m.tasks[task.ID] = &copied
	return nil
}

func (m *memTaskStore) Update(ctx context.Context, task *models.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *task
	m.tasks[task.ID] = &copied
	return nil
}

func (m *memTaskStore) Delete(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tasks, id)
	return nil
}

func newTaskFixture(t *testing.T) (*TaskService, *memTaskStore, *memBoardStore, *models.Board) {
	t.Helper()
	boards := newMemBoardStore()
	tasks := newMemTaskStore()
	boardSvc := NewBoardService(boards, nil, nil)
	board, err := boardSvc.Create(context.Background(), 1, models.CreateBoardRequest{Title: "shared"})
	require.NoError(t, err)
	require.NoError(t, boards.AddMember(context.Background(), board.ID, 2))
	return NewTaskService(tasks, boards, nil, nil), tasks, boards, board
}

func TestCreateTaskDefaultsToPending(t *testing.T) {
	svc, _, _, board := newTaskFixture(t)

	due := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	task, err := svc.Create(context.Background(), 1, board.ID, models.CreateTaskRequest{
		Content: "buy milk",
		DueDate: &due,
	})
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusPending, task.Status)
	assert.Equal(t, int64(1), task.AuthorID)
	require.NotNil(t, task.DueDate)
	assert.True(t, task.DueDate.Equal(due))
}

func TestAnyMemberMayEditAnyTask(t *testing.T) {
	svc, _, _, board := newTaskFixture(t)

	task, err := svc.Create(context.Background(), 1, board.ID, models.CreateTaskRequest{Content: "draft"})
	require.NoError(t, err)

	// User 2 did not author the task but shares the board.
	done := models.TaskStatusCompleted
	updated, err := svc.Update(context.Background(), 2, task.ID, models.UpdateTaskRequest{Status: &done})
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusCompleted, updated.Status)
	assert.Equal(t, "draft", updated.Content, "untouched fields survive a partial update")

	require.NoError(t, svc.Delete(context.Background(), 2, task.ID))
	_, err = svc.Update(context.Background(), 1, task.ID, models.UpdateTaskRequest{Status: &done})
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestTaskAccessRequiresMembership(t *testing.T) {
	svc, _, _, board := newTaskFixture(t)

	_, err := svc.Create(context.Background(), 9, board.ID, models.CreateTaskRequest{Content: "intruder"})
	assert.Equal(t, appErrors.ErrNotBoardMember.Code, appErrors.FromError(err).Code)

	_, err = svc.List(context.Background(), 9, board.ID)
	assert.Equal(t, appErrors.ErrNotBoardMember.Code, appErrors.FromError(err).Code)

	_, err = svc.List(context.Background(), 1, 404)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
