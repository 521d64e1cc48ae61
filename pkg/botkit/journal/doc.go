// Package journal persists dispatch outcomes for inspection and debugging.
//
// The dispatcher writes one DispatchRecord per completed cycle, containing
// the per-node outcomes (executed, failed, skipped, cancelled) and timing.
// Two Recorder implementations are provided:
//
//   - SQLiteRecorder: durable single-process store (WAL mode)
//   - MemoryRecorder: in-memory store for testing and development
//
// Journaling is optional; a nil Recorder on the dispatcher disables it.
package journal
