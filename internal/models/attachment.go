package models

import "time"

// Attachment records a file uploaded against a task. The bytes live on the
// file store; this row carries metadata and the storage path.
type Attachment struct {
	ID          int64     `db:"id" json:"id"`
	TaskID      int64     `db:"task_id" json:"task_id"`
	UploaderID  int64     `db:"uploader_id" json:"uploader_id"`
	FileName    string    `db:"file_name" json:"file_name"`
	ContentType string    `db:"content_type" json:"content_type"`
	SizeBytes   int64     `db:"size_bytes" json:"size_bytes"`
	StoragePath string    `db:"storage_path" json:"-"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// AttachmentDownload is the signed download descriptor returned to clients.
type AttachmentDownload struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}
