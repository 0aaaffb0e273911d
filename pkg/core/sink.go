package core

// Sink accepts events from a producer. Push must not block.
type Sink interface {
	Push(e Event)
}

// Source hands pending events to a consumer. Drain must not block and
// returns events in the order they were pushed.
type Source interface {
	Drain() []Event
}
