package registry

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/randalmurphal/botkit/pkg/botkit/node"
)

// Plugin is the unit of loading: a named, versioned group of nodes that is
// loaded, unloaded, and reloaded together.
type Plugin struct {
	// Name uniquely identifies the plugin within the registry.
	Name string `validate:"required,plugin_name"`

	// Version is informational, carried into logs and the journal.
	Version string `validate:"omitempty,semver"`

	// Nodes are the handlers this plugin contributes.
	Nodes []*node.Node `validate:"required,min=1"`
}

// Registry owns the authoritative node set and publishes immutable
// Snapshots. All mutation is all-or-nothing: a load or reload that fails
// validation leaves the previous snapshot active.
type Registry struct {
	mu      sync.Mutex
	plugins map[string]*pluginEntry
	seq     uint64
	version uint64
	snap    atomic.Pointer[Snapshot]
}

type pluginEntry struct {
	plugin  Plugin
	entries []seqNode
}

// New creates an empty registry publishing an empty snapshot.
func New() *Registry {
	r := &Registry{plugins: make(map[string]*pluginEntry)}
	r.snap.Store(emptySnapshot)
	return r
}

// Snapshot returns the currently active snapshot. The returned value is
// immutable and safe to hold across a reload; it is never nil.
func (r *Registry) Snapshot() *Snapshot {
	return r.snap.Load()
}

// Plugins returns the names of all loaded plugins.
func (r *Registry) Plugins() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.plugins))
	for name := range r.plugins {
		names = append(names, name)
	}
	return names
}

// Load validates and registers a plugin's nodes, then publishes a new
// snapshot. Loading a name that is already loaded fails; use Reload.
func (r *Registry) Load(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.plugins[p.Name]; ok {
		return &ValidationError{Plugin: p.Name, Err: ErrPluginExists}
	}
	return r.install(p)
}

// Reload atomically replaces a loaded plugin with a new definition. The
// swap is all-or-nothing: if validation fails, the previous node set stays
// active. In-flight dispatch cycles keep the snapshot they captured.
func (r *Registry) Reload(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	old, ok := r.plugins[p.Name]
	if !ok {
		return &ValidationError{Plugin: p.Name, Err: ErrPluginNotFound}
	}

	delete(r.plugins, p.Name)
	if err := r.install(p); err != nil {
		r.plugins[p.Name] = old
		return err
	}
	return nil
}

// Unload removes a plugin's nodes and publishes a new snapshot.
func (r *Registry) Unload(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.plugins[name]; !ok {
		return &ValidationError{Plugin: name, Err: ErrPluginNotFound}
	}
	delete(r.plugins, name)
	r.publish()
	return nil
}

// install validates p against the current state and publishes. Caller holds
// the mutex and has already removed any previous entry for p.Name.
func (r *Registry) install(p Plugin) error {
	if err := validateManifest(p); err != nil {
		return &ValidationError{Plugin: p.Name, Err: err}
	}

	seen := make(map[string]struct{})
	for _, other := range r.plugins {
		for _, e := range other.entries {
			seen[e.n.ID()] = struct{}{}
		}
	}

	entries := make([]seqNode, 0, len(p.Nodes))
	seq := r.seq
	for _, n := range p.Nodes {
		if n == nil {
			return &ValidationError{Plugin: p.Name, Err: fmt.Errorf("nil node")}
		}
		if err := n.Validate(); err != nil {
			return &ValidationError{Plugin: p.Name, Err: err}
		}
		if _, dup := seen[n.ID()]; dup {
			return &ValidationError{
				Plugin: p.Name,
				Err:    fmt.Errorf("%w: %s", ErrDuplicateNode, n.ID()),
			}
		}
		seen[n.ID()] = struct{}{}
		seq++
		entries = append(entries, seqNode{n: n.WithOwner(p.Name), seq: seq})
	}

	r.seq = seq
	r.plugins[p.Name] = &pluginEntry{plugin: p, entries: entries}
	r.publish()
	return nil
}

// publish rebuilds the snapshot from all loaded plugins and swaps it in.
// The swap is a single atomic pointer store; concurrent readers see either
// the old snapshot or the new one, never a partial set.
func (r *Registry) publish() {
	all := make([]seqNode, 0)
	for _, entry := range r.plugins {
		all = append(all, entry.entries...)
	}
	r.version++
	r.snap.Store(buildSnapshot(r.version, all))
}
