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

type memBoardStore struct {
	mu      sync.Mutex
	boards  map[int64]*models.Board
	members map[int64]map[int64]struct{}
	nextID  int64
}

func newMemBoardStore() *memBoardStore {
	return &memBoardStore{
		boards:  make(map[int64]*models.Board),
		members: make(map[int64]map[int64]struct{}),
		nextID:  1,
	}
}

func (m *memBoardStore) FindByID(ctx context.Context, id int64) (*models.Board, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	board, ok := m.boards[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *board
	return &copied, nil
}

func (m *memBoardStore) ListForUser(ctx context.Context, userID int64, filter models.BoardFilter) ([]models.Board, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Board
	for id, board := range m.boards {
		if _, ok := m.members[id][userID]; ok {
			out = append(out, *board)
		}
	}
	return out, len(out), nil
}

func (m *memBoardStore) Create(ctx context.Context, board *models.Board) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	board.ID = m.nextID
	m.nextID++
	board.CreatedAt = time.Now().UTC()
	board.UpdatedAt = board.CreatedAt
	copied := *board
	m.boards[board.ID] = &copied
	m.members[board.ID] = map[int64]struct{}{board.OwnerID: {}}
	return nil
}

func (m *memBoardStore) UpdateTitle(ctx context.Context, id int64, title string, updatedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if board, ok := m.boards[id]; ok {
		board.Title = title
		board.UpdatedAt = updatedAt
	}
	return nil
}

func (m *memBoardStore) Delete(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.boards, id)
	delete(m.members, id)
	return nil
}

func (m *memBoardStore) IsMember(ctx context.Context, boardID, userID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.members[boardID][userID]
	return ok, nil
}

func (m *memBoardStore) AddMember(ctx context.Context, boardID, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.members[boardID] == nil {
		m.members[boardID] = make(map[int64]struct{})
	}
	m.members[boardID][userID] = struct{}{}
	return nil
}

func (m *memBoardStore) ListMembers(ctx context.Context, boardID int64) ([]models.BoardMember, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.BoardMember
	for userID := range m.members[boardID] {
		out = append(out, models.BoardMember{BoardID: boardID, UserID: userID})
	}
	return out, nil
}

func TestCreateBoardEnrollsOwner(t *testing.T) {
	store := newMemBoardStore()
	svc := NewBoardService(store, nil, nil)

	board, err := svc.Create(context.Background(), 7, models.CreateBoardRequest{Title: "groceries"})
	require.NoError(t, err)
	require.NotZero(t, board.ID)
	assert.Equal(t, int64(7), board.OwnerID)

	member, err := store.IsMember(context.Background(), board.ID, 7)
	require.NoError(t, err)
	assert.True(t, member)
}

func TestBoardVisibilityIsMemberScoped(t *testing.T) {
	store := newMemBoardStore()
	svc := NewBoardService(store, nil, nil)

	board, err := svc.Create(context.Background(), 1, models.CreateBoardRequest{Title: "team"})
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), 2, board.ID)
	assert.Equal(t, appErrors.ErrNotBoardMember.Code, appErrors.FromError(err).Code)

	require.NoError(t, store.AddMember(context.Background(), board.ID, 2))
	got, err := svc.Get(context.Background(), 2, board.ID)
	require.NoError(t, err)
	assert.Equal(t, "team", got.Title)
}

func TestRenameRequiresOwner(t *testing.T) {
	store := newMemBoardStore()
	svc := NewBoardService(store, nil, nil)

	board, err := svc.Create(context.Background(), 1, models.CreateBoardRequest{Title: "before"})
	require.NoError(t, err)
	require.NoError(t, store.AddMember(context.Background(), board.ID, 2))

	_, err = svc.Rename(context.Background(), 2, board.ID, models.UpdateBoardRequest{Title: "after"})
	assert.Equal(t, appErrors.ErrNotBoardOwner.Code, appErrors.FromError(err).Code)

	renamed, err := svc.Rename(context.Background(), 1, board.ID, models.UpdateBoardRequest{Title: "after"})
	require.NoError(t, err)
	assert.Equal(t, "after", renamed.Title)
}

func TestDeleteUnknownBoard(t *testing.T) {
	store := newMemBoardStore()
	svc := NewBoardService(store, nil, nil)

	err := svc.Delete(context.Background(), 1, 99)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
