package workflow

import (
	"context"

	"github.com/garyjia/claims-workflow/internal/application/session"
	"github.com/garyjia/claims-workflow/internal/domain/entity"
	"github.com/garyjia/claims-workflow/internal/domain/gate"
	domainwf "github.com/garyjia/claims-workflow/internal/domain/workflow"
)

// ClaimEngine validates and executes claim lifecycle transitions.
// Every operation is checked against the role gate for the given session.
type ClaimEngine interface {
	// Submit creates a pending claim owned by the caller
	Submit(ctx context.Context, sess session.Session, in SubmitClaimInput) (*entity.Claim, error)

	// Resubmit amends a needs_info claim and returns it to pending
	Resubmit(ctx context.Context, sess session.Session, claimID string, in ResubmitInput) (*entity.Claim, error)

	// Review records an HR decision on a pending claim and applies it
	Review(ctx context.Context, sess session.Session, in ReviewInput) (*ReviewOutcome, error)

	// Pay records the single payment of an approved claim and marks it paid
	Pay(ctx context.Context, sess session.Session, in PaymentInput) (*PaymentOutcome, error)

	// GetClaim returns a claim with its resolved status and related records
	GetClaim(ctx context.Context, sess session.Session, claimID string) (*ClaimView, error)

	// ListClaims lists claims visible to the caller. Employees only see their own.
	ListClaims(ctx context.Context, sess session.Session, filter entity.ClaimFilter) ([]*ClaimSummary, error)

	// AttachToClaim stores a supporting document on a pending or needs_info claim
	AttachToClaim(ctx context.Context, sess session.Session, claimID string, upload entity.Upload) (*entity.Attachment, error)

	// OpenAttachment returns attachment metadata and file content
	OpenAttachment(ctx context.Context, sess session.Session, attachmentID string) (*entity.Attachment, []byte, error)

	// History returns the committed transitions of a claim, oldest first
	History(ctx context.Context, sess session.Session, claimID string) ([]*entity.ClaimTransition, error)

	// ListReviews returns every review of a claim, oldest first
	ListReviews(ctx context.Context, sess session.Session, claimID string) ([]entity.Review, error)

	// ListPayments returns all payments with their claim details
	ListPayments(ctx context.Context, sess session.Session) ([]*entity.PaymentRecord, error)

	// PaymentMethods returns the known payment methods
	PaymentMethods(ctx context.Context) ([]*entity.PaymentMethod, error)

	// ClaimTypes returns the claim type catalog
	ClaimTypes(ctx context.Context) ([]*entity.ClaimType, error)
}

// SubmitClaimInput is the content of a new claim
type SubmitClaimInput struct {
	ClaimTypeID      string
	Desc1            string
	Desc2            string
	Description      string
	TransactionDate  string
	TransactionTotal string
	Attachments      []entity.Upload
}

// ResubmitInput amends a claim. Empty fields keep their current value.
type ResubmitInput struct {
	ClaimTypeID      string
	Desc1            string
	Desc2            string
	Description      string
	TransactionDate  string
	TransactionTotal string
	Attachments      []entity.Upload
}

// ReviewInput is an HR decision on a claim
type ReviewInput struct {
	ClaimID  string
	Decision string
	Note     string
}

// ReviewOutcome is the stored review and the claim it moved
type ReviewOutcome struct {
	Review *entity.Review `json:"review"`
	Claim  *entity.Claim  `json:"claim"`
	Status domainwf.State `json:"status"`
}

// PaymentInput is a payment against an approved claim
type PaymentInput struct {
	ClaimID         string
	ReviewID        string
	PaymentMethodID string
	Bank            string
	Note            string
	Proof           *entity.Upload
}

// PaymentOutcome is the stored payment and the claim it settled
type PaymentOutcome struct {
	Payment *entity.Payment    `json:"payment"`
	Proof   *entity.Attachment `json:"proof,omitempty"`
	Claim   *entity.Claim      `json:"claim"`
	Status  domainwf.State     `json:"status"`
}

// ClaimView is a claim with everything a reviewer or payer needs to act on it
type ClaimView struct {
	Claim               *entity.Claim     `json:"claim"`
	ClaimType           *entity.ClaimType `json:"claim_type,omitempty"`
	Status              domainwf.State    `json:"status"`
	Reviews             []entity.Review   `json:"reviews"`
	AuthoritativeReview *entity.Review    `json:"authoritative_review,omitempty"`
	Payment             *entity.Payment   `json:"payment,omitempty"`
	Permitted           []gate.Transition `json:"permitted_transitions"`
}

// ClaimSummary is a claim with its resolved status
type ClaimSummary struct {
	*entity.Claim
	Status    domainwf.State    `json:"status"`
	ClaimType *entity.ClaimType `json:"claim_type,omitempty"`
}
