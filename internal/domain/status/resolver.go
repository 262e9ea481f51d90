// Package status maps the heterogeneous status values found in stored and
// imported claim data onto canonical lifecycle states.
package status

import (
	"strings"

	"github.com/garyjia/claims-workflow/internal/domain/entity"
	"github.com/garyjia/claims-workflow/internal/domain/workflow"
)

// aliases maps normalized raw values to canonical states.
// Keys are lower-case with '-' and ' ' folded to '_'.
var aliases = map[string]workflow.State{
	"pending":         workflow.StatePending,
	"submitted":       workflow.StatePending,
	"menunggu":        workflow.StatePending,
	"menunggu_review": workflow.StatePending,

	"approved":        workflow.StateApproved,
	"status_approved": workflow.StateApproved,
	"diterima":        workflow.StateApproved,
	"disetujui":       workflow.StateApproved,

	"rejected":        workflow.StateRejected,
	"status_rejected": workflow.StateRejected,
	"ditolak":         workflow.StateRejected,

	// The review form's "status-pending" option means "needs additional info"
	"needs_info":        workflow.StateNeedsInfo,
	"needsinfo":         workflow.StateNeedsInfo,
	"status_pending":    workflow.StateNeedsInfo,
	"status_needs_info": workflow.StateNeedsInfo,
	"butuh_info":        workflow.StateNeedsInfo,

	"paid":        workflow.StatePaid,
	"status_paid": workflow.StatePaid,
	"dibayar":     workflow.StatePaid,
	"lunas":       workflow.StatePaid,
}

var normalizer = strings.NewReplacer("-", "_", " ", "_")

// Lookup returns the canonical state for a raw value and whether it was recognized
func Lookup(raw string) (workflow.State, bool) {
	key := normalizer.Replace(strings.ToLower(strings.TrimSpace(raw)))
	if key == "" {
		return workflow.StatePending, false
	}
	state, ok := aliases[key]
	if !ok {
		return workflow.StatePending, false
	}
	return state, true
}

// Normalize maps a raw status to a canonical state. Empty and unrecognized
// values resolve to pending.
func Normalize(raw string) workflow.State {
	state, _ := Lookup(raw)
	return state
}

// FromDecision maps a review decision to the state it puts a claim in
func FromDecision(d entity.Decision) (workflow.State, bool) {
	switch d {
	case entity.DecisionApprove:
		return workflow.StateApproved, true
	case entity.DecisionReject:
		return workflow.StateRejected, true
	case entity.DecisionNeedsInfo:
		return workflow.StateNeedsInfo, true
	default:
		return "", false
	}
}

// TriggerFor returns the trigger a review decision fires
func TriggerFor(d entity.Decision) (workflow.Trigger, bool) {
	switch d {
	case entity.DecisionApprove:
		return workflow.TriggerApprove, true
	case entity.DecisionReject:
		return workflow.TriggerReject, true
	case entity.DecisionNeedsInfo:
		return workflow.TriggerRequestInfo, true
	default:
		return "", false
	}
}

// Resolve returns the canonical state of a claim from its raw status and the
// decision of its authoritative review (nil when there is none).
// A paid status is terminal and always wins; otherwise the review decision
// wins over the raw status.
func Resolve(raw string, decision *entity.Decision) workflow.State {
	state, _ := Lookup(raw)
	if state == workflow.StatePaid {
		return state
	}
	if decision != nil {
		if fromReview, ok := FromDecision(*decision); ok {
			return fromReview
		}
	}
	return state
}

// AuthoritativeReview returns the most recent review that is not older than
// the claim's latest submission, or nil. Older reviews are history only.
func AuthoritativeReview(claim *entity.Claim, reviews []entity.Review) *entity.Review {
	var latest *entity.Review
	for i := range reviews {
		r := &reviews[i]
		if r.ClaimID != "" && r.ClaimID != claim.ID {
			continue
		}
		if !claim.SubmittedAt.IsZero() && r.CreatedAt.Before(claim.SubmittedAt) {
			continue
		}
		if r.IsNewerThan(latest) {
			latest = r
		}
	}
	return latest
}

// ResolveClaim resolves a claim's canonical state from its stored status and reviews
func ResolveClaim(claim *entity.Claim, reviews []entity.Review) workflow.State {
	if review := AuthoritativeReview(claim, reviews); review != nil {
		decision := review.Decision
		return Resolve(claim.Status, &decision)
	}
	return Resolve(claim.Status, nil)
}
