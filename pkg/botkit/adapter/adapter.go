package adapter

import (
	"context"

	"github.com/randalmurphal/botkit/pkg/botkit/dispatch"
	"github.com/randalmurphal/botkit/pkg/botkit/event"
)

// Sink receives normalized events from adapter receive loops.
// *dispatch.Dispatcher satisfies it.
type Sink interface {
	Submit(ctx context.Context, evt event.Event) (*dispatch.Completion, error)
}

// Adapter is the contract a protocol connector implements. The core is
// agnostic to transport details behind it: an adapter produces normalized
// events and accepts outbound sends.
//
// Start runs the receive loop and blocks until ctx is cancelled or the
// loop dies. Returning before ctx is cancelled, with or without an error,
// counts as an unexpected exit and triggers the supervisor's retry policy.
type Adapter interface {
	// Name identifies the adapter. Events it produces carry this name.
	Name() string

	// Start runs the receive loop, forwarding normalized events to sink.
	Start(ctx context.Context, sink Sink) error

	// Stop releases the adapter's resources. Called once during shutdown,
	// after the Start context is cancelled.
	Stop(ctx context.Context) error

	// Send delivers an outbound payload to a target on this adapter's
	// protocol.
	Send(ctx context.Context, target string, payload any) error
}
