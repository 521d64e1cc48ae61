package journal

import (
	"context"
	"errors"
	"time"
)

// Store errors.
var (
	// ErrStoreClosed indicates an operation on a closed journal.
	ErrStoreClosed = errors.New("journal store closed")

	// ErrNotFound indicates no record exists for the requested event.
	ErrNotFound = errors.New("dispatch record not found")
)

// NodeStatus describes the outcome of one node within a dispatch cycle.
type NodeStatus string

// Node outcome constants.
const (
	StatusExecuted          NodeStatus = "executed"
	StatusFailed            NodeStatus = "failed"
	StatusSkippedPredicate  NodeStatus = "skipped_predicate"
	StatusSkippedResolution NodeStatus = "skipped_resolution"
	StatusCancelled         NodeStatus = "cancelled"
)

// NodeRecord is the journaled outcome of one node for one event.
type NodeRecord struct {
	NodeID     string     `json:"node_id"`
	Plugin     string     `json:"plugin,omitempty"`
	Status     NodeStatus `json:"status"`
	Error      string     `json:"error,omitempty"`
	DurationMs float64    `json:"duration_ms"`
}

// DispatchRecord is the journaled outcome of one full dispatch cycle.
type DispatchRecord struct {
	EventID   string       `json:"event_id"`
	Seq       uint64       `json:"seq"`
	EventType string       `json:"event_type"`
	Adapter   string       `json:"adapter"`
	Blocked   bool         `json:"blocked"`
	StartedAt time.Time    `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	Nodes     []NodeRecord `json:"nodes,omitempty"`
}

// Recorder persists dispatch outcomes. Implementations must be safe for
// concurrent use; the dispatcher writes one record per completed cycle.
type Recorder interface {
	// Record persists one dispatch record.
	Record(ctx context.Context, rec *DispatchRecord) error

	// Load retrieves the record for an event ID.
	Load(ctx context.Context, eventID string) (*DispatchRecord, error)

	// List retrieves the most recent records, newest first.
	List(ctx context.Context, limit int) ([]*DispatchRecord, error)

	// Failures retrieves the most recent records containing at least one
	// failed node, newest first.
	Failures(ctx context.Context, limit int) ([]*DispatchRecord, error)

	// Close releases underlying resources.
	Close() error
}
