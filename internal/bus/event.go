package bus

import "time"

// Event is a cache-domain event: a chats merge landing, events being
// stored, the circuit breaker tripping. ID is assigned on publish and lets
// observers correlate log lines with events.
type Event struct {
	ID        string
	Kind      string
	Timestamp time.Time
	Payload   any
}
