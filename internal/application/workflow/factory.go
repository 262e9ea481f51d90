package workflow

import (
	"context"
	"errors"

	"github.com/garyjia/claims-workflow/internal/domain/failure"
	domainwf "github.com/garyjia/claims-workflow/internal/domain/workflow"
)

// BuildClaimStateMachine creates a state machine for one claim.
// hasPayment feeds the guard on pay so a claim is paid at most once.
func BuildClaimStateMachine(initialState domainwf.State, hasPayment bool) domainwf.StateMachine {
	builder := domainwf.NewBuilder()

	builder.Configure(domainwf.StatePending).
		Permit(domainwf.TriggerApprove, domainwf.StateApproved).
		Permit(domainwf.TriggerReject, domainwf.StateRejected).
		Permit(domainwf.TriggerRequestInfo, domainwf.StateNeedsInfo)

	builder.Configure(domainwf.StateNeedsInfo).
		Permit(domainwf.TriggerResubmit, domainwf.StatePending)

	builder.Configure(domainwf.StateApproved).
		PermitIf(domainwf.TriggerPay, domainwf.StatePaid, func(ctx context.Context) bool {
			return !hasPayment
		})

	// REJECTED and PAID are terminal states - no outgoing transitions

	return builder.Build(initialState)
}

// fire runs trigger on machine and classifies a refusal
func fire(ctx context.Context, machine domainwf.StateMachine, trigger domainwf.Trigger) error {
	from := machine.State()
	err := machine.Fire(ctx, trigger)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domainwf.ErrGuardFailed):
		return failure.Conflict(failure.ReasonDuplicatePayment, "claim already has a payment")
	default:
		return failure.Denied(failure.ReasonWrongState, "cannot %s a claim in state %q", trigger, from)
	}
}
