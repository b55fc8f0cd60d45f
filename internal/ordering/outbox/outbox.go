// Package outbox implements the transactional-outbox half of event
// propagation: integration events are persisted as rows in the same store
// transaction as the aggregate, and a relay publishes them to the broker
// with retry, marking rows only after broker acknowledgment. This closes
// the dual-write gap that the direct publish path leaves open.
package outbox

import "time"

// Row is one outbound integration event awaiting publication.
type Row struct {
	ID        string
	Topic     string
	Payload   []byte
	Attempts  int
	LastError string
	CreatedAt time.Time
}
