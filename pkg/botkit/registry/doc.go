// Package registry owns the mutable set of loaded plugins and publishes
// immutable snapshots of their nodes.
//
// Hot reload never edits a published snapshot: every successful Load,
// Reload, or Unload validates the full candidate node set (manifest fields,
// duplicate ids, acyclic dependency declarations), rebuilds the ordered
// snapshot, and swaps it in with a single atomic pointer store. A dispatch
// cycle that captured the previous snapshot finishes against it untouched.
package registry
