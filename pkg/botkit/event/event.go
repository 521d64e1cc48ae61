package event

import (
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Category is the coarse discriminator for normalized events.
// Adapters map their wire-level event kinds onto one of these; new
// categories may be introduced by adapters without changes to the core.
type Category string

// Standard event categories.
const (
	CategoryMessage Category = "message"
	CategoryNotice  Category = "notice"
	CategoryRequest Category = "request"
	CategoryMeta    Category = "meta"
)

// seqCounter assigns process-monotonic sequence numbers to events.
var seqCounter atomic.Uint64

// Event is the core interface for all normalized events in the system.
// Events are immutable once created - any modification creates a new event.
type Event interface {
	// Identity
	ID() string   // Unique event identifier
	Seq() uint64  // Process-monotonic sequence number for ordering/tracing
	Type() string // Fine-grained event type (e.g., "message.group")

	// Origin
	Category() Category // Coarse discriminator (message/notice/request/meta)
	Adapter() string    // Name of the adapter that produced the event

	// Metadata
	Timestamp() time.Time // When the event occurred

	// Payload
	Data() any // Opaque payload; handlers downcast via accessor contracts
}

// Metadata contains common event metadata fields.
type Metadata struct {
	EventID   string    `json:"id"`
	Sequence  uint64    `json:"seq"`
	EventType string    `json:"type"`
	Kind      Category  `json:"category"`
	Source    string    `json:"adapter"`
	Timestamp time.Time `json:"timestamp"`
}

// BaseEvent provides a generic event implementation.
// T is the payload type for type-safe access.
type BaseEvent[T any] struct {
	Meta    Metadata `json:"metadata"`
	Payload T        `json:"payload"`
}

// ID returns the unique event identifier.
func (e *BaseEvent[T]) ID() string {
	return e.Meta.EventID
}

// Seq returns the process-monotonic sequence number.
func (e *BaseEvent[T]) Seq() uint64 {
	return e.Meta.Sequence
}

// Type returns the fine-grained event type.
func (e *BaseEvent[T]) Type() string {
	return e.Meta.EventType
}

// Category returns the coarse event category.
func (e *BaseEvent[T]) Category() Category {
	return e.Meta.Kind
}

// Adapter returns the name of the adapter that produced the event.
func (e *BaseEvent[T]) Adapter() string {
	return e.Meta.Source
}

// Timestamp returns when the event occurred.
func (e *BaseEvent[T]) Timestamp() time.Time {
	return e.Meta.Timestamp
}

// Data returns the event payload.
func (e *BaseEvent[T]) Data() any {
	return e.Payload
}

// TypedData returns the strongly-typed payload.
func (e *BaseEvent[T]) TypedData() T {
	return e.Payload
}

// Option configures event creation.
type Option func(*eventConfig)

type eventConfig struct {
	id        string
	timestamp time.Time
}

// WithID sets a specific event ID (default: auto-generated UUID).
func WithID(id string) Option {
	return func(cfg *eventConfig) {
		cfg.id = id
	}
}

// WithTimestamp sets a specific timestamp (default: time.Now()).
func WithTimestamp(t time.Time) Option {
	return func(cfg *eventConfig) {
		cfg.timestamp = t
	}
}

// New creates a new event with the given type, category, adapter, and payload.
// The sequence number is assigned from a process-wide monotonic counter.
func New[T any](
	eventType string,
	category Category,
	adapter string,
	payload T,
	opts ...Option,
) *BaseEvent[T] {
	cfg := &eventConfig{
		id:        uuid.New().String(),
		timestamp: time.Now(),
	}

	for _, opt := range opts {
		opt(cfg)
	}

	return &BaseEvent[T]{
		Meta: Metadata{
			EventID:   cfg.id,
			Sequence:  seqCounter.Add(1),
			EventType: eventType,
			Kind:      category,
			Source:    adapter,
			Timestamp: cfg.timestamp,
		},
		Payload: payload,
	}
}

// NewAny creates a new event with an untyped (any) payload.
// This is a convenience function when you don't need type-safe payload access.
func NewAny(
	eventType string,
	category Category,
	adapter string,
	payload any,
	opts ...Option,
) *BaseEvent[any] {
	return New(eventType, category, adapter, payload, opts...)
}
