package port

import (
	"context"

	"github.com/garyjia/claims-workflow/internal/domain/entity"
)

// Notifier delivers a text message to a user of the chat platform
type Notifier interface {
	SendText(ctx context.Context, openID string, text string) error
}

// AdviceRequest is the context an advisor sees for one claim
type AdviceRequest struct {
	Claim       *entity.Claim
	ClaimType   *entity.ClaimType
	Submitter   *entity.User
	Reviews     []entity.Review
	Attachments []entity.Attachment
}

// Advice is a non-binding recommendation for an HR reviewer
type Advice struct {
	Recommendation entity.Decision `json:"recommendation"`
	Confidence     float64         `json:"confidence"`
	Reasoning      string          `json:"reasoning"`
	Model          string          `json:"model"`
}

// Advisor produces review recommendations
type Advisor interface {
	Advise(ctx context.Context, req *AdviceRequest) (*Advice, error)
}

// DocumentInfo describes an inspected document
type DocumentInfo struct {
	PageCount int
}

// DocumentInspector verifies that a PDF is readable
type DocumentInspector interface {
	Inspect(ctx context.Context, content []byte) (*DocumentInfo, error)
}

// PaymentReporter renders payment records as a spreadsheet
type PaymentReporter interface {
	Render(ctx context.Context, records []*entity.PaymentRecord) ([]byte, error)
}
