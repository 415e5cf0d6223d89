package models

import "time"

// Broadcast delivery states.
const (
	BroadcastPending    = "pending"
	BroadcastProcessing = "processing"
	BroadcastCompleted  = "completed"
)

// Broadcast audience targets.
const (
	TargetAll      = "all"
	TargetReseller = "reseller"
	TargetCustomer = "customer"
)

// Broadcast is an admin announcement delivered to users by the broadcast
// worker, one message at a time with rate-limit pacing.
type Broadcast struct {
	ID          string    `json:"id"`
	Message     string    `json:"message"`
	Target      string    `json:"target"`
	ImageURL    string    `json:"imageUrl,omitempty"`
	Status      string    `json:"status"`
	SentCount   int       `json:"sent_count"`
	TotalTarget int       `json:"total_target"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
