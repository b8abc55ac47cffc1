package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/todoapp/shared-todo-api/internal/models"
)

func TestCreateBoardEnrollsOwner(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewBoardRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO boards").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(3))
	mock.ExpectExec("INSERT INTO board_members").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	board := &models.Board{Title: "groceries", OwnerID: 1}
	err := repo.Create(context.Background(), board)
	require.NoError(t, err)
	assert.Equal(t, int64(3), board.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIsMember(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewBoardRepository(db)

	rows := sqlmock.NewRows([]string{"exists"}).AddRow(true)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS (SELECT 1 FROM board_members WHERE board_id = $1 AND user_id = $2)")).
		WithArgs(int64(3), int64(1)).
		WillReturnRows(rows)

	ok, err := repo.IsMember(context.Background(), 3, 1)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestListForUser(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewBoardRepository(db)

	now := time.Now()
	listRows := sqlmock.NewRows([]string{"id", "title", "owner_id", "created_at", "updated_at"}).
		AddRow(3, "groceries", 1, now, now)
	mock.ExpectQuery("SELECT b.id, b.title, b.owner_id").
		WithArgs(int64(1), 20, 0).
		WillReturnRows(listRows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM board_members WHERE user_id = $1")).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	boards, total, err := repo.ListForUser(context.Background(), 1, models.BoardFilter{})
	require.NoError(t, err)
	assert.Len(t, boards, 1)
	assert.Equal(t, 1, total)
}
