package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/todoapp/shared-todo-api/internal/models"
	"github.com/todoapp/shared-todo-api/pkg/config"
	appErrors "github.com/todoapp/shared-todo-api/pkg/errors"
	"github.com/todoapp/shared-todo-api/pkg/jobs"
	"github.com/todoapp/shared-todo-api/pkg/storage"
)

// CleanupJobType labels queued deletions of attachment files whose first
// removal attempt failed.
const CleanupJobType = "attachment_file_cleanup"

type attachmentRepository interface {
	FindByID(ctx context.Context, id int64) (*models.Attachment, error)
	ListByTask(ctx context.Context, taskID int64) ([]models.Attachment, error)
	Create(ctx context.Context, attachment *models.Attachment) error
	Delete(ctx context.Context, id int64) error
}

type taskLookup interface {
	FindByID(ctx context.Context, id int64) (*models.Task, error)
}

type attachmentBoardStore interface {
	FindByID(ctx context.Context, id int64) (*models.Board, error)
	IsMember(ctx context.Context, boardID, userID int64) (bool, error)
}

// AttachmentService stores files attached to tasks. Uploads are capped by
// size and MIME allow-list; downloads go through short-lived signed URLs so
// the file endpoint itself needs no session.
type AttachmentService struct {
	attachments attachmentRepository
	tasks       taskLookup
	boards      attachmentBoardStore
	files       *storage.LocalStorage
	signer      *storage.SignedURLSigner
	cleanup     *jobs.Queue
	cfg         config.AttachmentsConfig
	logger      *zap.Logger
}

// NewAttachmentService creates a new attachment service. The cleanup queue
// retries file deletions that fail inline; it may be nil.
func NewAttachmentService(attachments attachmentRepository, tasks taskLookup, boards attachmentBoardStore, files *storage.LocalStorage, signer *storage.SignedURLSigner, cleanup *jobs.Queue, cfg config.AttachmentsConfig, logger *zap.Logger) *AttachmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttachmentService{
		attachments: attachments,
		tasks:       tasks,
		boards:      boards,
		files:       files,
		signer:      signer,
		cleanup:     cleanup,
		cfg:         cfg,
		logger:      logger,
	}
}

// Upload stores a file against a task. The stored name is randomized; the
// original file name survives only as metadata.
func (s *AttachmentService) Upload(ctx context.Context, userID, taskID int64, fileName, contentType string, size int64, r io.Reader) (*models.Attachment, error) {
	if size > s.cfg.MaxFileSizeBytes {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("file exceeds %d bytes", s.cfg.MaxFileSizeBytes))
	}
	if !s.mimeAllowed(contentType) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "file type not allowed")
	}

	task, err := s.fetchTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if err := s.requireBoardMember(ctx, userID, task.BoardID); err != nil {
		return nil, err
	}

	storedName := uuid.NewString() + strings.ToLower(filepath.Ext(fileName))
	relPath, err := s.files.SaveStream(storedName, io.LimitReader(r, s.cfg.MaxFileSizeBytes))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store file")
	}

	attachment := &models.Attachment{
		TaskID:      taskID,
		UploaderID:  userID,
		FileName:    fileName,
		ContentType: contentType,
		SizeBytes:   size,
		StoragePath: relPath,
	}
	if err := s.attachments.Create(ctx, attachment); err != nil {
		// The row failed; do not leave the file orphaned.
		if rmErr := s.files.Delete(relPath); rmErr != nil {
			s.scheduleCleanup(relPath, rmErr)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record attachment")
	}

	s.logger.Info("attachment uploaded",
		zap.Int64("task_id", taskID),
		zap.Int64("uploader_id", userID),
		zap.Int64("size_bytes", size),
	)
	return attachment, nil
}

// List returns the attachments on a task visible to the calling member.
func (s *AttachmentService) List(ctx context.Context, userID, taskID int64) ([]models.Attachment, error) {
	task, err := s.fetchTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if err := s.requireBoardMember(ctx, userID, task.BoardID); err != nil {
		return nil, err
	}
	attachments, err := s.attachments.ListByTask(ctx, taskID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list attachments")
	}
	return attachments, nil
}

// Delete removes an attachment. Allowed for the uploader and the board
// owner.
func (s *AttachmentService) Delete(ctx context.Context, userID, attachmentID int64) error {
	attachment, err := s.fetchAttachment(ctx, attachmentID)
	if err != nil {
		return err
	}
	task, err := s.fetchTask(ctx, attachment.TaskID)
	if err != nil {
		return err
	}
	board, err := s.boards.FindByID(ctx, task.BoardID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load board")
	}
	if attachment.UploaderID != userID && board.OwnerID != userID {
		return appErrors.Clone(appErrors.ErrForbidden, "only the uploader or board owner may delete")
	}

	if err := s.attachments.Delete(ctx, attachmentID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete attachment")
	}
	if err := s.files.Delete(attachment.StoragePath); err != nil && !os.IsNotExist(err) {
		s.scheduleCleanup(attachment.StoragePath, err)
	}
	return nil
}

func (s *AttachmentService) scheduleCleanup(relPath string, cause error) {
	if s.cleanup == nil {
		s.logger.Warn("attachment file left behind", zap.String("path", relPath), zap.Error(cause))
		return
	}
	if err := s.cleanup.Enqueue(jobs.Job{Type: CleanupJobType, Payload: relPath}); err != nil {
		s.logger.Warn("attachment file left behind", zap.String("path", relPath), zap.Error(err))
	}
}

// DownloadURL mints a signed, time-limited download link for a board member.
func (s *AttachmentService) DownloadURL(ctx context.Context, userID, attachmentID int64) (*models.AttachmentDownload, error) {
	attachment, err := s.fetchAttachment(ctx, attachmentID)
	if err != nil {
		return nil, err
	}
	task, err := s.fetchTask(ctx, attachment.TaskID)
	if err != nil {
		return nil, err
	}
	if err := s.requireBoardMember(ctx, userID, task.BoardID); err != nil {
		return nil, err
	}

	token, expiresAt, err := s.signer.Generate(strconv.FormatInt(attachmentID, 10), attachment.StoragePath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download url")
	}
	return &models.AttachmentDownload{
		URL:       "/api/v1/public/attachments/" + token,
		ExpiresAt: expiresAt,
	}, nil
}

// ResolveDownload validates a signed token and opens the underlying file.
// The caller owns the returned file handle. No session is required; the
// signature gates access.
func (s *AttachmentService) ResolveDownload(ctx context.Context, tok string) (*models.Attachment, *os.File, error) {
	id, relPath, _, err := s.signer.Parse(tok)
	if err != nil {
		return nil, nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired download link")
	}
	attachmentID, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return nil, nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired download link")
	}

	attachment, err := s.fetchAttachment(ctx, attachmentID)
	if err != nil {
		return nil, nil, err
	}
	if attachment.StoragePath != relPath {
		return nil, nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired download link")
	}

	file, err := s.files.Open(attachment.StoragePath)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open file")
	}
	return attachment, file, nil
}

func (s *AttachmentService) mimeAllowed(contentType string) bool {
	if len(s.cfg.AllowedMIMEs) == 0 {
		return true
	}
	for _, allowed := range s.cfg.AllowedMIMEs {
		if strings.EqualFold(allowed, contentType) {
			return true
		}
	}
	return false
}

func (s *AttachmentService) fetchAttachment(ctx context.Context, id int64) (*models.Attachment, error) {
	attachment, err := s.attachments.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "attachment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attachment")
	}
	return attachment, nil
}

func (s *AttachmentService) fetchTask(ctx context.Context, id int64) (*models.Task, error) {
	task, err := s.tasks.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "task not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load task")
	}
	return task, nil
}

func (s *AttachmentService) requireBoardMember(ctx context.Context, userID, boardID int64) error {
	member, err := s.boards.IsMember(ctx, boardID, userID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check membership")
	}
	if !member {
		return appErrors.Clone(appErrors.ErrNotBoardMember, "")
	}
	return nil
}
