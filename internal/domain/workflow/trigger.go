package workflow

// Trigger represents an event that can cause a state transition
type Trigger string

const (
	TriggerApprove     Trigger = "approve"
	TriggerReject      Trigger = "reject"
	TriggerRequestInfo Trigger = "request_info"
	TriggerResubmit    Trigger = "resubmit"
	TriggerPay         Trigger = "pay"
)

// String returns the string representation of the trigger
func (t Trigger) String() string {
	return string(t)
}
