// Package adapter defines the protocol-connector contract and the
// supervisor that runs connectors.
//
// An Adapter is a thin I/O shim: it turns wire-level input into normalized
// events, pushes them into a Sink (the dispatcher), and accepts outbound
// Send calls. The Supervisor runs each adapter's receive loop on its own
// goroutine, restarts loops that die under a bounded retry/backoff policy,
// and tracks per-adapter health. A failing adapter is marked failed and
// reported; it never takes down the other adapters or the dispatcher.
package adapter
