package events

import "context"

// Event types
const (
	EventEscrowCreated       = "escrow_created"
	EventEscrowStatusChanged = "escrow_status_changed"
	EventPaymentVerified     = "payment_verified"
)

// StreamEscrow is the pubsub channel carrying escrow lifecycle events.
const StreamEscrow = "events:escrow"

type Event struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload"`
}

type Publisher interface {
	Publish(ctx context.Context, stream string, event Event) error
}

type Subscriber interface {
	Subscribe(ctx context.Context, stream string, handler func(Event)) error
}
