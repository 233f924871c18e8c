package domain

// Event is the marker interface for all domain events published on the bus.
type Event interface {
	// Type returns the event type string used for subscription routing.
	Type() string
}
