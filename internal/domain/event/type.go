package event

// Type identifies the type of domain event
type Type string

const (
	TypeClaimSubmitted     Type = "claim.submitted"
	TypeClaimResubmitted   Type = "claim.resubmitted"
	TypeClaimReviewed      Type = "claim.reviewed"
	TypeClaimPaid          Type = "claim.paid"
	TypeStatusChanged      Type = "claim.status_changed"
	TypeAttachmentUploaded Type = "attachment.uploaded"
)

// String returns the string representation of the event type
func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the defined constants
func (t Type) IsValid() bool {
	switch t {
	case TypeClaimSubmitted,
		TypeClaimResubmitted,
		TypeClaimReviewed,
		TypeClaimPaid,
		TypeStatusChanged,
		TypeAttachmentUploaded:
		return true
	default:
		return false
	}
}
