package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/todoapp/shared-todo-api/internal/models"
	appErrors "github.com/todoapp/shared-todo-api/pkg/errors"
	"github.com/todoapp/shared-todo-api/pkg/export"
)

type exportTaskStore interface {
	ListByBoard(ctx context.Context, boardID int64) ([]models.Task, error)
}

// ExportResult is a rendered export ready to stream to the client.
type ExportResult struct {
	Data        []byte
	ContentType string
	FileName    string
}

// ExportService renders a board's task list as CSV or PDF.
type ExportService struct {
	tasks  exportTaskStore
	boards boardMembership
	csv    *export.CSVExporter
	pdf    *export.PDFExporter
	logger *zap.Logger
}

// NewExportService creates a new export service.
func NewExportService(tasks exportTaskStore, boards boardMembership, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		tasks:  tasks,
		boards: boards,
		csv:    export.NewCSVExporter(),
		pdf:    export.NewPDFExporter(),
		logger: logger,
	}
}

// Export renders the board's tasks in the requested format. Member only.
func (s *ExportService) Export(ctx context.Context, userID, boardID int64, format string) (*ExportResult, error) {
	board, err := s.boards.FindByID(ctx, boardID)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "board not found")
	}
	member, err := s.boards.IsMember(ctx, boardID, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check membership")
	}
	if !member {
		return nil, appErrors.Clone(appErrors.ErrNotBoardMember, "")
	}

	tasks, err := s.tasks.ListByBoard(ctx, boardID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list tasks")
	}

	dataset := buildTaskDataset(tasks)
	stamp := time.Now().UTC().Format("20060102")

	switch strings.ToLower(format) {
	case "csv":
		data, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return &ExportResult{
			Data:        data,
			ContentType: "text/csv",
			FileName:    fmt.Sprintf("board_%d_tasks_%s.csv", boardID, stamp),
		}, nil
	case "pdf":
		data, err := s.pdf.Render(dataset, board.Title)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return &ExportResult{
			Data:        data,
			ContentType: "application/pdf",
			FileName:    fmt.Sprintf("board_%d_tasks_%s.pdf", boardID, stamp),
		}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
}

func buildTaskDataset(tasks []models.Task) export.Dataset {
	rows := make([][]string, 0, len(tasks))
	for _, t := range tasks {
		due := ""
		if t.DueDate != nil {
			due = t.DueDate.UTC().Format("2006-01-02")
		}
		rows = append(rows, []string{
			strconv.FormatInt(t.ID, 10),
			t.Content,
			string(t.Status),
			due,
			t.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return export.Dataset{
		Headers: []string{"ID", "Content", "Status", "Due Date", "Created At"},
		Rows:    rows,
	}
}
