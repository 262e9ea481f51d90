package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/claims-workflow/internal/application/port"
	"github.com/garyjia/claims-workflow/internal/domain/entity"
	"github.com/garyjia/claims-workflow/internal/infrastructure/persistence/sqlite"
)

const attachmentColumns = `id, owner_kind, owner_id, file_name, file_path, file_size,
	mime_type, page_count, uploaded_by, created_at`

// AttachmentRepository implements port.AttachmentRepository
type AttachmentRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewAttachmentRepository creates a new attachment repository
func NewAttachmentRepository(db *sqlite.DB, logger *zap.Logger) port.AttachmentRepository {
	return &AttachmentRepository{
		db:     db,
		logger: logger,
	}
}

// Create creates a new attachment record
func (r *AttachmentRepository) Create(ctx context.Context, att *entity.Attachment) error {
	query := `INSERT INTO attachments (` + attachmentColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.Executor(ctx).ExecContext(ctx, query,
		att.ID,
		att.OwnerKind,
		att.OwnerID,
		att.FileName,
		att.FilePath,
		att.FileSize,
		att.MimeType,
		att.PageCount,
		att.UploadedBy,
		utc(att.CreatedAt),
	)
	if err != nil {
		r.logger.Error("Failed to create attachment", zap.String("owner_id", att.OwnerID), zap.Error(err))
		return fmt.Errorf("failed to create attachment: %w", err)
	}
	return nil
}

// GetByID retrieves an attachment by ID
func (r *AttachmentRepository) GetByID(ctx context.Context, id string) (*entity.Attachment, error) {
	query := `SELECT ` + attachmentColumns + ` FROM attachments WHERE id = ?`

	att, err := scanAttachment(r.db.Executor(ctx).QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get attachment by ID", zap.String("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get attachment: %w", err)
	}
	return &att, nil
}

// ListByOwner returns the attachments of a claim or payment, oldest first
func (r *AttachmentRepository) ListByOwner(ctx context.Context, kind entity.OwnerKind, ownerID string) ([]entity.Attachment, error) {
	query := `SELECT ` + attachmentColumns + ` FROM attachments
		WHERE owner_kind = ? AND owner_id = ?
		ORDER BY created_at ASC, id ASC`

	rows, err := r.db.Executor(ctx).QueryContext(ctx, query, kind, ownerID)
	if err != nil {
		r.logger.Error("Failed to list attachments", zap.String("owner_id", ownerID), zap.Error(err))
		return nil, fmt.Errorf("failed to list attachments: %w", err)
	}
	defer rows.Close()

	var atts []entity.Attachment
	for rows.Next() {
		att, err := scanAttachment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan attachment: %w", err)
		}
		atts = append(atts, att)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate attachments: %w", err)
	}
	return atts, nil
}

func scanAttachment(row rowScanner) (entity.Attachment, error) {
	var att entity.Attachment
	err := row.Scan(
		&att.ID,
		&att.OwnerKind,
		&att.OwnerID,
		&att.FileName,
		&att.FilePath,
		&att.FileSize,
		&att.MimeType,
		&att.PageCount,
		&att.UploadedBy,
		&att.CreatedAt,
	)
	return att, err
}

var _ port.AttachmentRepository = (*AttachmentRepository)(nil)
