package domain

// EventBuffer collects domain events raised by an aggregate's own methods.
// It is per-instance, in-memory, and never persisted: if the aggregate is
// discarded before Drain, its events are discarded with it. That is the
// rollback story — the unit of work only drains after a successful commit.
type EventBuffer struct {
	events []DomainEvent
}

// raise appends an event. Only the aggregate's own mutators call it.
func (b *EventBuffer) raise(e DomainEvent) {
	b.events = append(b.events, e)
}

// Events returns the buffered events in append order without clearing.
// Reading is idempotent and side-effect-free.
func (b *EventBuffer) Events() []DomainEvent {
	out := make([]DomainEvent, len(b.events))
	copy(out, b.events)
	return out
}

// Drain returns the buffered events in append order and clears the buffer.
// It is the only way to flush the buffer.
func (b *EventBuffer) Drain() []DomainEvent {
	out := b.events
	b.events = nil
	return out
}
