package journal

import (
	"context"
	"sort"
	"sync"
)

// MemoryRecorder is an in-memory dispatch journal.
// Useful for testing and development. Records are lost on restart.
type MemoryRecorder struct {
	mu     sync.RWMutex
	byID   map[string]*DispatchRecord
	order  []string // event IDs in insertion order
	closed bool
}

// NewMemoryRecorder creates a new in-memory dispatch journal.
func NewMemoryRecorder() *MemoryRecorder {
	return &MemoryRecorder{
		byID: make(map[string]*DispatchRecord),
	}
}

// Record implements Recorder.
func (m *MemoryRecorder) Record(_ context.Context, rec *DispatchRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}

	cp := *rec
	cp.Nodes = append([]NodeRecord(nil), rec.Nodes...)
	if _, exists := m.byID[rec.EventID]; !exists {
		m.order = append(m.order, rec.EventID)
	}
	m.byID[rec.EventID] = &cp
	return nil
}

// Load implements Recorder.
func (m *MemoryRecorder) Load(_ context.Context, eventID string) (*DispatchRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}
	rec, ok := m.byID[eventID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *rec
	cp.Nodes = append([]NodeRecord(nil), rec.Nodes...)
	return &cp, nil
}

// List implements Recorder.
func (m *MemoryRecorder) List(_ context.Context, limit int) ([]*DispatchRecord, error) {
	return m.collect(limit, func(*DispatchRecord) bool { return true })
}

// Failures implements Recorder.
func (m *MemoryRecorder) Failures(_ context.Context, limit int) ([]*DispatchRecord, error) {
	return m.collect(limit, func(rec *DispatchRecord) bool {
		for _, n := range rec.Nodes {
			if n.Status == StatusFailed {
				return true
			}
		}
		return false
	})
}

// Close implements Recorder.
func (m *MemoryRecorder) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *MemoryRecorder) collect(limit int, keep func(*DispatchRecord) bool) ([]*DispatchRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}
	if limit <= 0 {
		limit = 100
	}

	var recs []*DispatchRecord
	for _, id := range m.order {
		rec := m.byID[id]
		if keep(rec) {
			cp := *rec
			cp.Nodes = append([]NodeRecord(nil), rec.Nodes...)
			recs = append(recs, &cp)
		}
	}

	// Newest first, matching the SQLite recorder.
	sort.SliceStable(recs, func(i, j int) bool { return recs[i].Seq > recs[j].Seq })
	if len(recs) > limit {
		recs = recs[:limit]
	}
	return recs, nil
}
