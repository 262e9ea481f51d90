package document

import (
	"context"
	"errors"
	"fmt"

	"github.com/gen2brain/go-fitz"
	"go.uber.org/zap"

	"github.com/garyjia/claims-workflow/internal/application/port"
)

// ErrNoPages is returned for a PDF that opens but has no pages
var ErrNoPages = errors.New("document has no pages")

// PDFInspector opens PDFs with MuPDF to confirm they are readable
type PDFInspector struct {
	maxPages int
	logger   *zap.Logger
}

// NewPDFInspector creates an inspector. maxPages <= 0 means no page limit.
func NewPDFInspector(maxPages int, logger *zap.Logger) *PDFInspector {
	return &PDFInspector{
		maxPages: maxPages,
		logger:   logger,
	}
}

// Inspect opens the document from memory and counts its pages
func (p *PDFInspector) Inspect(ctx context.Context, content []byte) (*port.DocumentInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(content) == 0 {
		return nil, fmt.Errorf("failed to open PDF: empty content")
	}

	doc, err := fitz.NewFromMemory(content)
	if err != nil {
		p.logger.Debug("PDF rejected", zap.Int("size", len(content)), zap.Error(err))
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer doc.Close()

	pageCount := doc.NumPage()
	if pageCount <= 0 {
		return nil, ErrNoPages
	}
	if p.maxPages > 0 && pageCount > p.maxPages {
		return nil, fmt.Errorf("document has %d pages, limit is %d", pageCount, p.maxPages)
	}

	p.logger.Debug("PDF inspected", zap.Int("page_count", pageCount))
	return &port.DocumentInfo{PageCount: pageCount}, nil
}

var _ port.DocumentInspector = (*PDFInspector)(nil)
