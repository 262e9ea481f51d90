package entity

import "time"

// ClaimTransition records one committed lifecycle transition of a claim
type ClaimTransition struct {
	ID        int64     `json:"id"`
	ClaimID   string    `json:"claim_id"`
	ActorID   string    `json:"actor_id"`
	Trigger   string    `json:"trigger"`
	FromState string    `json:"from_state"`
	ToState   string    `json:"to_state"`
	Timestamp time.Time `json:"timestamp"`
}
