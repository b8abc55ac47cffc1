package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/todoapp/shared-todo-api/internal/models"
)

const attachmentColumns = `id, task_id, uploader_id, file_name, content_type, size_bytes, storage_path, created_at`

// AttachmentRepository provides database access for attachment metadata.
type AttachmentRepository struct {
	db *sqlx.DB
}

// NewAttachmentRepository creates a new instance of AttachmentRepository.
func NewAttachmentRepository(db *sqlx.DB) *AttachmentRepository {
	return &AttachmentRepository{db: db}
}

// FindByID returns an attachment by identifier.
func (r *AttachmentRepository) FindByID(ctx context.Context, id int64) (*models.Attachment, error) {
	query := `SELECT ` + attachmentColumns + ` FROM attachments WHERE id = $1 LIMIT 1`
	var attachment models.Attachment
	if err := r.db.GetContext(ctx, &attachment, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find attachment by id: %w", err)
	}
	return &attachment, nil
}

// ListByTask returns a task's attachments, newest first.
func (r *AttachmentRepository) ListByTask(ctx context.Context, taskID int64) ([]models.Attachment, error) {
	query := `SELECT ` + attachmentColumns + ` FROM attachments WHERE task_id = $1 ORDER BY created_at DESC`
	attachments := []models.Attachment{}
	if err := r.db.SelectContext(ctx, &attachments, query, taskID); err != nil {
		return nil, fmt.Errorf("list attachments: %w", err)
	}
	return attachments, nil
}

// Create inserts attachment metadata and fills in the generated id.
func (r *AttachmentRepository) Create(ctx context.Context, attachment *models.Attachment) error {
	const query = `INSERT INTO attachments (task_id, uploader_id, file_name, content_type, size_bytes, storage_path, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`
	attachment.CreatedAt = time.Now().UTC()
	if err := r.db.QueryRowContext(ctx, query,
		attachment.TaskID, attachment.UploaderID, attachment.FileName,
		attachment.ContentType, attachment.SizeBytes, attachment.StoragePath,
		attachment.CreatedAt,
	).Scan(&attachment.ID); err != nil {
		return fmt.Errorf("create attachment: %w", err)
	}
	return nil
}

// Delete removes attachment metadata.
func (r *AttachmentRepository) Delete(ctx context.Context, id int64) error {
	const query = `DELETE FROM attachments WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete attachment: %w", err)
	}
	return nil
}
