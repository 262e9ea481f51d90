package port

import (
	"context"

	"github.com/garyjia/claims-workflow/internal/domain/entity"
)

// Repositories return (nil, nil) when a record does not exist.

// ClaimRepository defines persistence operations for Claim
type ClaimRepository interface {
	Create(ctx context.Context, claim *entity.Claim) error
	GetByID(ctx context.Context, id string) (*entity.Claim, error)

	// List returns claims newest first. Only SubmitterID of the filter is applied.
	List(ctx context.Context, filter entity.ClaimFilter) ([]*entity.Claim, error)

	// UpdateStatus sets status to next only while the stored status equals
	// expected. It reports false when another writer changed it first.
	UpdateStatus(ctx context.Context, id, expected, next string) (bool, error)

	// Resubmit replaces the editable fields, status and submitted_at of claim
	// under the same compare-and-set rule as UpdateStatus.
	Resubmit(ctx context.Context, claim *entity.Claim, expected string) (bool, error)
}

// ReviewRepository defines persistence operations for Review
type ReviewRepository interface {
	Create(ctx context.Context, review *entity.Review) error
	GetByID(ctx context.Context, id string) (*entity.Review, error)
	ListByClaim(ctx context.Context, claimID string) ([]entity.Review, error)
	ListByClaims(ctx context.Context, claimIDs []string) (map[string][]entity.Review, error)
}

// PaymentRepository defines persistence operations for Payment
type PaymentRepository interface {
	// Create fails with a duplicate-payment conflict when the claim already has a payment
	Create(ctx context.Context, payment *entity.Payment) error
	GetByID(ctx context.Context, id string) (*entity.Payment, error)
	GetByClaimID(ctx context.Context, claimID string) (*entity.Payment, error)
	List(ctx context.Context) ([]*entity.PaymentRecord, error)
}

// AttachmentRepository defines persistence operations for Attachment
type AttachmentRepository interface {
	Create(ctx context.Context, att *entity.Attachment) error
	GetByID(ctx context.Context, id string) (*entity.Attachment, error)
	ListByOwner(ctx context.Context, kind entity.OwnerKind, ownerID string) ([]entity.Attachment, error)
}

// UserRepository defines the user directory
type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	GetByID(ctx context.Context, id string) (*entity.User, error)
}

// PaymentMethodRepository defines lookups over the known payment methods
type PaymentMethodRepository interface {
	GetByID(ctx context.Context, id string) (*entity.PaymentMethod, error)
	List(ctx context.Context) ([]*entity.PaymentMethod, error)
}

// ClaimTypeRepository defines lookups over the claim type catalog
type ClaimTypeRepository interface {
	GetByID(ctx context.Context, id string) (*entity.ClaimType, error)
	List(ctx context.Context) ([]*entity.ClaimType, error)
}

// TransitionRepository defines persistence operations for claim transition history
type TransitionRepository interface {
	Create(ctx context.Context, transition *entity.ClaimTransition) error
	ListByClaim(ctx context.Context, claimID string) ([]*entity.ClaimTransition, error)
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
