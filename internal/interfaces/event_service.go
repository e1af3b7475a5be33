package interfaces

import "context"

// EventType represents different event types in the system
type EventType string

const (
	// EventReasoningStep fires once per state machine transition that
	// records a reasoning step
	EventReasoningStep EventType = "reasoning_step"

	// EventIngestCompleted fires after a document has been chunked and
	// upserted into the vector index
	EventIngestCompleted EventType = "ingest_completed"
)

// ProgressEvent is the payload attached to EventReasoningStep. Delivery is
// one-way and fire-and-forget; it must never block node execution.
type ProgressEvent struct {
	RunID    string
	Label    string
	Detail   string
	Metadata map[string]interface{}
}

// Event represents a system event
type Event struct {
	Type    EventType
	Payload interface{}
}

// EventHandler is a function that handles events
type EventHandler func(ctx context.Context, event Event) error

// EventService manages the pub/sub event bus
type EventService interface {
	// Subscribe to an event type
	Subscribe(eventType EventType, handler EventHandler) error

	// Publish an event to all subscribers asynchronously
	Publish(ctx context.Context, event Event) error

	// PublishSync publishes an event and waits for all handlers to complete
	PublishSync(ctx context.Context, event Event) error

	// Close shuts down the event service
	Close() error
}
