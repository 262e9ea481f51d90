package workflow

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/garyjia/claims-workflow/internal/application/port"
	"github.com/garyjia/claims-workflow/internal/domain/entity"
	"github.com/garyjia/claims-workflow/internal/domain/failure"
	"github.com/garyjia/claims-workflow/internal/domain/validation"
)

// DefaultMaxUploadSize bounds a single uploaded file
const DefaultMaxUploadSize int64 = 10 << 20

var acceptedMimeTypes = []string{entity.MimePDF, entity.MimePNG, entity.MimeJPEG}

// intake checks uploaded files and writes them to storage ahead of the
// transaction that records them.
type intake struct {
	storage   port.FileStorage
	inspector port.DocumentInspector
	maxSize   int64
	logger    Logger
}

// prepare validates and stores one upload. The returned attachment is not yet persisted.
func (i *intake) prepare(ctx context.Context, field string, kind entity.OwnerKind, ownerID, uploaderID string, up entity.Upload, now time.Time) (*entity.Attachment, error) {
	var problems validation.Problems

	if len(up.Content) == 0 {
		problems.Add(field, "is empty")
		return nil, problems.Err()
	}
	if i.maxSize > 0 && int64(len(up.Content)) > i.maxSize {
		problems.Add(field, fmt.Sprintf("exceeds the %d byte limit", i.maxSize))
		return nil, problems.Err()
	}

	mime := mimetype.Detect(up.Content)
	mimeType := ""
	for _, accepted := range acceptedMimeTypes {
		if mime.Is(accepted) {
			mimeType = accepted
			break
		}
	}
	if mimeType == "" {
		problems.Add(field, fmt.Sprintf("has unsupported type %s (accepted: PDF, PNG, JPEG)", mime.String()))
		return nil, problems.Err()
	}

	att := &entity.Attachment{
		ID:         uuid.NewString(),
		OwnerKind:  kind,
		OwnerID:    ownerID,
		FileName:   cleanFileName(up.FileName, mime.Extension()),
		FileSize:   int64(len(up.Content)),
		MimeType:   mimeType,
		UploadedBy: uploaderID,
		CreatedAt:  now,
	}

	if mimeType == entity.MimePDF && i.inspector != nil {
		info, err := i.inspector.Inspect(ctx, up.Content)
		if err != nil {
			problems.Add(field, "is not a readable PDF document")
			return nil, problems.Err()
		}
		att.PageCount = info.PageCount
	}

	att.FilePath = path.Join(string(kind), ownerID, att.ID+mime.Extension())
	if err := i.storage.Save(ctx, att.FilePath, up.Content); err != nil {
		return nil, failure.Transport(err, "store %s", att.FileName)
	}

	return att, nil
}

// prepareAll stores every upload or none of them
func (i *intake) prepareAll(ctx context.Context, kind entity.OwnerKind, ownerID, uploaderID string, uploads []entity.Upload, now time.Time) ([]*entity.Attachment, error) {
	var problems validation.Problems
	stored := make([]*entity.Attachment, 0, len(uploads))

	for idx, up := range uploads {
		field := fmt.Sprintf("attachments[%d]", idx)
		att, err := i.prepare(ctx, field, kind, ownerID, uploaderID, up, now)
		if err != nil {
			if other := problems.Merge(err); other != nil {
				i.discard(ctx, stored...)
				return nil, other
			}
			continue
		}
		stored = append(stored, att)
	}

	if err := problems.Err(); err != nil {
		i.discard(ctx, stored...)
		return nil, err
	}
	return stored, nil
}

// discard removes stored files whose records were never committed
func (i *intake) discard(ctx context.Context, atts ...*entity.Attachment) {
	ctx = context.WithoutCancel(ctx)
	for _, att := range atts {
		if att == nil {
			continue
		}
		if err := i.storage.Delete(ctx, att.FilePath); err != nil && i.logger != nil {
			i.logger.Error("Failed to remove orphaned file", "path", att.FilePath, "error", err)
		}
	}
}

func cleanFileName(name, ext string) string {
	name = strings.TrimSpace(filepath.Base(strings.ReplaceAll(name, "\\", "/")))
	if name == "" || name == "." || name == "/" {
		return "attachment" + ext
	}
	if runes := []rune(name); len(runes) > validation.MaxDescLength {
		name = string(runes[:validation.MaxDescLength])
	}
	return name
}
