// Package dispatch is the event bus at the center of botkit.
//
// A Dispatcher receives normalized events on a buffered intake queue and
// runs one dispatch cycle per event on a worker pool. Each cycle:
//
//  1. Captures the registry snapshot active at cycle start. A hot reload
//     landing mid-cycle never mixes old and new nodes.
//  2. Evaluates each node's rule-and-permission predicate against the
//     event. Predicates may resolve dependencies through the event's
//     resolution context and share its memoization.
//  3. Executes matching nodes tier by tier in ascending priority order.
//     Within a tier nodes run concurrently by default (sequentially with
//     WithSequentialTiers); across tiers execution is strictly ordered.
//  4. Stops after any tier in which a blocking node ran.
//  5. Tears down the event's resolution context in reverse resolution
//     order, then signals the completion returned by Submit.
//
// Failures are isolated per node: a predicate error, dependency resolution
// failure, handler error, or handler panic skips or fails only that node.
// Teardown runs even when the cycle was force-cancelled during Stop.
//
// WaitFor registers an event waiter: it blocks until a matching event
// arrives, claims it, and the claimed event skips the pipeline. Waiters
// support a timeout and an inspected-event budget, which makes multi-step
// conversational handlers possible.
package dispatch
