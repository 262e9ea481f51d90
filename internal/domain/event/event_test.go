package event

import (
	"testing"
	"time"
)

func TestType_IsValid(t *testing.T) {
	tests := []struct {
		name      string
		eventType Type
		want      bool
	}{
		{
			name:      "valid - claim submitted",
			eventType: TypeClaimSubmitted,
			want:      true,
		},
		{
			name:      "valid - status changed",
			eventType: TypeStatusChanged,
			want:      true,
		},
		{
			name:      "valid - claim paid",
			eventType: TypeClaimPaid,
			want:      true,
		},
		{
			name:      "invalid - unknown type",
			eventType: Type("instance.created"),
			want:      false,
		},
		{
			name:      "invalid - empty string",
			eventType: Type(""),
			want:      false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.eventType.IsValid(); got != tt.want {
				t.Errorf("Type.IsValid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewEvent(t *testing.T) {
	evt := NewEvent(TypeStatusChanged, "claim-1", "user-1", map[string]interface{}{
		KeyFromState: "pending",
		KeyToState:   "approved",
	})

	if evt.ID == "" {
		t.Error("Event ID should not be empty")
	}
	if evt.ClaimID != "claim-1" {
		t.Errorf("Event ClaimID = %v, want %v", evt.ClaimID, "claim-1")
	}
	if evt.ActorID != "user-1" {
		t.Errorf("Event ActorID = %v, want %v", evt.ActorID, "user-1")
	}
	if evt.GetPayloadString(KeyToState) != "approved" {
		t.Errorf("Event Payload[to_state] = %v, want approved", evt.Payload[KeyToState])
	}
	if evt.CorrelationID == "" || evt.CorrelationID == evt.ID {
		t.Error("Event CorrelationID should be set and distinct from ID")
	}
	if time.Since(evt.Timestamp) > time.Second {
		t.Error("Event Timestamp should be recent")
	}
}

func TestNewEvent_NilPayload(t *testing.T) {
	evt := NewEvent(TypeClaimSubmitted, "claim-1", "user-1", nil)
	if evt.Payload == nil {
		t.Fatal("Payload should be initialized")
	}
	if got := evt.GetPayloadString("missing"); got != "" {
		t.Errorf("GetPayloadString(missing) = %q, want empty", got)
	}
}

func TestEvent_WithPayload(t *testing.T) {
	original := NewEvent(TypeClaimReviewed, "claim-1", "hr-1", map[string]interface{}{
		KeyReviewID: "review-1",
	})

	modified := original.WithPayload(KeyNote, "missing receipt")

	if _, exists := original.Payload[KeyNote]; exists {
		t.Error("Original event should not be modified")
	}
	if modified.GetPayloadString(KeyReviewID) != "review-1" {
		t.Error("Modified event should retain original payload")
	}
	if modified.GetPayloadString(KeyNote) != "missing receipt" {
		t.Error("Modified event should have new payload")
	}
	if modified.ID != original.ID || modified.CorrelationID != original.CorrelationID {
		t.Error("Modified event should keep identity fields")
	}
}

func TestEvent_GetPayloadBool(t *testing.T) {
	evt := NewEvent(TypeClaimPaid, "claim-1", "fin-1", map[string]interface{}{
		"has_proof": true,
		"string":    "yes",
	})

	if !evt.GetPayloadBool("has_proof") {
		t.Error("GetPayloadBool(has_proof) = false, want true")
	}
	if evt.GetPayloadBool("string") {
		t.Error("GetPayloadBool(string) = true, want false")
	}
}

func TestEvent_CorrelationChain(t *testing.T) {
	first := NewEvent(TypeClaimReviewed, "claim-1", "hr-1", nil)
	second := NewEventWithCorrelation(TypeStatusChanged, "claim-1", "hr-1", nil, first.CorrelationID)

	if second.CorrelationID != first.CorrelationID {
		t.Error("second event should share the correlation ID")
	}
	if second.ID == first.ID {
		t.Error("events should have unique IDs even with same correlation ID")
	}
}
