package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the calendar-date layout used for transaction dates
const DateLayout = "2006-01-02"

// Claim represents an employee's reimbursement request
type Claim struct {
	ID               string          `json:"id"`
	SubmitterID      string          `json:"user_id"`
	ClaimTypeID      string          `json:"claim_type_id"`
	Desc1            string          `json:"desc1"`
	Desc2            string          `json:"desc2,omitempty"`
	Description      string          `json:"description,omitempty"`
	TransactionDate  time.Time       `json:"transaction_date"`
	TransactionTotal decimal.Decimal `json:"transaction_total"`
	// Status is the raw stored status; read it through the status resolver
	Status      string       `json:"status_id"`
	SubmittedAt time.Time    `json:"submitted_at"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// IsOwnedBy reports whether userID submitted the claim
func (c *Claim) IsOwnedBy(userID string) bool {
	return c.SubmitterID != "" && c.SubmitterID == userID
}

// ClaimFilter narrows claim listings; empty fields match everything
type ClaimFilter struct {
	SubmitterID string
	Status      string
	Limit       int
	Offset      int
}

// ClaimType is a catalog entry a claim is filed under
type ClaimType struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
