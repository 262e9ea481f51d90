package entity

import "time"

// Decision is an HR reviewer's verdict on a claim
type Decision string

const (
	DecisionApprove   Decision = "approve"
	DecisionReject    Decision = "reject"
	DecisionNeedsInfo Decision = "needs_info"
)

var validDecisions = map[Decision]bool{
	DecisionApprove:   true,
	DecisionReject:    true,
	DecisionNeedsInfo: true,
}

// IsValid returns true if the decision is one of the known set
func (d Decision) IsValid() bool {
	return validDecisions[d]
}

// String returns the string representation of the decision
func (d Decision) String() string {
	return string(d)
}

// Review is an HR decision record against a claim. Reviews are append-only.
type Review struct {
	ID         string    `json:"id"`
	ClaimID    string    `json:"claim_id"`
	ReviewerID string    `json:"user_id"`
	Decision   Decision  `json:"decision"`
	Note       string    `json:"description,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// IsNewerThan orders reviews by creation time, breaking ties by id
func (r *Review) IsNewerThan(other *Review) bool {
	if other == nil {
		return true
	}
	if r.CreatedAt.Equal(other.CreatedAt) {
		return r.ID > other.ID
	}
	return r.CreatedAt.After(other.CreatedAt)
}
