// Package eventlog is the append-only, per-aggregate versioned event
// store. It is the single correctness-critical write path: optimistic
// concurrency is enforced by a unique (aggregate_id, version) index, never
// by application-level locking.
package eventlog

import "time"

// AggregateType discriminates which replay rules an event belongs to.
type AggregateType string

const (
	AggregateProduct AggregateType = "product"
	AggregateOrder   AggregateType = "order"
	AggregateUser    AggregateType = "user"
)

// Event is the stored envelope. Payload is the typed, per-eventType data;
// Extra carries forward-compatible fields the current binary doesn't know
// about, so replay never has to fail or drop data it can't interpret.
type Event struct {
	ID            string
	AggregateType AggregateType
	AggregateID   string
	Version       int
	EventType     string
	Payload       []byte // JSON-encoded typed payload
	Extra         map[string]any
	CreatedAt     time.Time
}

// NewEvent describes an event about to be appended; Version is assigned by
// the log itself (expectedVersion+1 .. expectedVersion+len(events)).
type NewEvent struct {
	EventType string
	Payload   []byte
	Extra     map[string]any
}
