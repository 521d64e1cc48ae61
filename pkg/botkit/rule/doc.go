// Package rule provides composable boolean predicates over events.
//
// A node's effective predicate is rule.And(rule, permission): the rule side
// combines conjunctively, the permission side disjunctively, both with
// short-circuit evaluation. Predicates receive the event's resolution
// context, so a check like "sender is an operator" can declare the same
// sender-profile dependency a handler uses and pay for it only once.
package rule
