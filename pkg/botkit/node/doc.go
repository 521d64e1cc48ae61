// Package node defines the handler descriptor the dispatcher executes.
//
// Plugin authors build nodes with New plus options and hand them to the
// registry inside a plugin. A node never runs on its own: the dispatcher
// evaluates its predicate against each event, resolves its declared
// dependencies, and invokes the handler in priority order.
package node
