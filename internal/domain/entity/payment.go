package entity

import "time"

// Payment is a Finance-issued disbursement against an approved claim.
// A claim has at most one payment.
type Payment struct {
	ID                string    `json:"id"`
	ClaimID           string    `json:"claim_id"`
	ReviewID          string    `json:"review_id"`
	PaymentMethodID   string    `json:"payment_method_id"`
	PayerID           string    `json:"user_id"`
	Bank              string    `json:"bank,omitempty"`
	Note              string    `json:"note,omitempty"`
	ProofAttachmentID string    `json:"proof_attachment_id,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

// PaymentMethod is one entry of the known set of disbursement methods
type PaymentMethod struct {
	ID        string    `json:"id"`
	Method    string    `json:"method"`
	CreatedAt time.Time `json:"created_at"`
}

// PaymentRecord joins a payment with the claim fields a finance report needs
type PaymentRecord struct {
	Payment
	SubmitterID      string `json:"submitter_id"`
	TransactionTotal string `json:"transaction_total"`
	Method           string `json:"method"`
}
