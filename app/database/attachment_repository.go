package database

import (
	"database/sql"
	"fmt"
)

// AttachmentRepo handles database operations for media-library attachments
type AttachmentRepo struct {
	db *DB
}

// NewAttachmentRepo creates a new attachment repository
func NewAttachmentRepo(db *DB) *AttachmentRepo {
	return &AttachmentRepo{db: db}
}

// GetAttachment retrieves an attachment by its ID
func (r *AttachmentRepo) GetAttachment(attachmentID int64) (*Attachment, error) {
	var attachment Attachment
	err := r.db.QueryRow(`
		SELECT id, url, file_path, mime_type, alt_text, caption, created_at
		FROM attachments
		WHERE id = ?
	`, attachmentID).Scan(
		&attachment.ID, &attachment.URL, &attachment.FilePath, &attachment.MimeType,
		&attachment.AltText, &attachment.Caption, &attachment.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get attachment: %w", err)
	}

	return &attachment, nil
}

// GetAttachmentByURL reverse-looks-up an attachment by its public URL
func (r *AttachmentRepo) GetAttachmentByURL(url string) (*Attachment, error) {
	var attachment Attachment
	err := r.db.QueryRow(`
		SELECT id, url, file_path, mime_type, alt_text, caption, created_at
		FROM attachments
		WHERE url = ?
	`, url).Scan(
		&attachment.ID, &attachment.URL, &attachment.FilePath, &attachment.MimeType,
		&attachment.AltText, &attachment.Caption, &attachment.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get attachment by URL: %w", err)
	}

	return &attachment, nil
}

// UpsertAttachment inserts or updates a media-library entry
func (r *AttachmentRepo) UpsertAttachment(attachment Attachment) error {
	_, err := r.db.Exec(`
		INSERT INTO attachments (id, url, file_path, mime_type, alt_text, caption)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			url = excluded.url,
			file_path = excluded.file_path,
			mime_type = excluded.mime_type,
			alt_text = excluded.alt_text,
			caption = excluded.caption
	`, attachment.ID, attachment.URL, attachment.FilePath, attachment.MimeType,
		attachment.AltText, attachment.Caption)

	if err != nil {
		return fmt.Errorf("failed to upsert attachment: %w", err)
	}

	return nil
}
