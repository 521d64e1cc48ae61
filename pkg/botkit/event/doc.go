// Package event defines the normalized event model shared by adapters,
// predicates, and handlers.
//
// Events are immutable value objects. An adapter converts whatever its
// protocol delivers into an Event, the dispatcher owns the event for the
// duration of one dispatch cycle, and handlers only ever read it. Payloads
// are opaque to the core: BaseEvent carries a typed payload that handlers
// access through TypedData or downcast from Data.
//
// Every event gets a UUID identity and a process-monotonic sequence number.
// The sequence number gives a total order over intake, which the dispatcher
// and journal use for tracing; it carries no cross-process meaning.
package event
