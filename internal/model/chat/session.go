package chat

import "time"

// State is the lifecycle position of a conversation session.
type State string

const (
	StateUninitialized      State = "uninitialized"
	StateAwaitingInput      State = "awaiting_input"
	StateGeneratingResponse State = "generating_response"
)

// Snapshot captures the externally visible view of the session.
type Snapshot struct {
	ID        string    `json:"id"`
	State     State     `json:"state"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"createdAt"`
}
