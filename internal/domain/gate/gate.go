// Package gate decides which lifecycle transitions an actor role may invoke
// against a claim in a given state.
package gate

import (
	"github.com/garyjia/claims-workflow/internal/domain/entity"
	"github.com/garyjia/claims-workflow/internal/domain/failure"
	"github.com/garyjia/claims-workflow/internal/domain/workflow"
)

// Transition is a role-level action on the claim lifecycle
type Transition string

const (
	TransitionSubmit   Transition = "submit"
	TransitionReview   Transition = "review"
	TransitionPay      Transition = "pay"
	TransitionResubmit Transition = "resubmit"
)

// String returns the string representation of the transition
func (t Transition) String() string {
	return string(t)
}

// Facts describes the claim a transition targets. Zero value for submit.
type Facts struct {
	State      workflow.State
	HasPayment bool
	IsOwner    bool
}

type rule struct {
	role          entity.Role
	requiredState workflow.State
}

var rules = map[Transition]rule{
	TransitionSubmit:   {role: entity.RoleEmployee},
	TransitionReview:   {role: entity.RoleHR, requiredState: workflow.StatePending},
	TransitionPay:      {role: entity.RoleFinance, requiredState: workflow.StateApproved},
	TransitionResubmit: {role: entity.RoleEmployee, requiredState: workflow.StateNeedsInfo},
}

// claimTransitions are the transitions that act on an existing claim, in display order
var claimTransitions = []Transition{TransitionReview, TransitionPay, TransitionResubmit}

// CheckRole checks only the role column of the table, for callers that must
// reject a wrong role before the claim is loaded.
func CheckRole(role entity.Role, t Transition) error {
	r, ok := rules[t]
	if !ok {
		return failure.Denied(failure.ReasonWrongRole, "unknown transition %q", t)
	}
	if role != r.role {
		return failure.Denied(failure.ReasonWrongRole, "role %q may not %s claims", role, t)
	}
	return nil
}

// Authorize returns nil when role may invoke t on a claim described by facts,
// or a *failure.Error naming why not.
func Authorize(role entity.Role, t Transition, facts Facts) error {
	if err := CheckRole(role, t); err != nil {
		return err
	}
	r := rules[t]

	switch t {
	case TransitionSubmit:
		return nil
	case TransitionPay:
		if facts.State == workflow.StatePaid {
			return failure.Conflict(failure.ReasonAlreadyPaid, "claim is already paid")
		}
		if facts.HasPayment {
			return failure.Conflict(failure.ReasonDuplicatePayment, "claim already has a payment")
		}
	case TransitionResubmit:
		if !facts.IsOwner {
			return failure.Denied(failure.ReasonNotOwner, "only the submitter may resubmit a claim")
		}
	}

	if facts.State != r.requiredState {
		return failure.Denied(failure.ReasonWrongState, "cannot %s a claim in state %q (requires %q)", t, facts.State, r.requiredState)
	}
	return nil
}

// Allowed is the boolean form of Authorize
func Allowed(role entity.Role, t Transition, facts Facts) bool {
	return Authorize(role, t, facts) == nil
}

// Permitted lists the claim transitions role may invoke given facts
func Permitted(role entity.Role, facts Facts) []Transition {
	permitted := make([]Transition, 0, len(claimTransitions))
	for _, t := range claimTransitions {
		if Allowed(role, t, facts) {
			permitted = append(permitted, t)
		}
	}
	return permitted
}
