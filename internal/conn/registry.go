package conn

import "sort"

type record struct {
	refs    int
	status  Status
	lastErr string
}

// Registry holds per-resource reference counts, status and last error.
// It performs no I/O and no locking; the Manager serializes all access.
type Registry struct {
	entries map[ResourceID]*record
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[ResourceID]*record)}
}

// Get returns the entry for id, or an idle zero entry when absent.
func (r *Registry) Get(id ResourceID) Entry {
	rec, ok := r.entries[id]
	if !ok {
		return Entry{ID: id, Status: StatusIdle, Timer: TimerNone}
	}
	return rec.entry(id)
}

// Has reports whether id has an entry.
func (r *Registry) Has(id ResourceID) bool {
	_, ok := r.entries[id]
	return ok
}

// Increment adds a reference, creating an idle entry if needed, and returns
// the new count.
func (r *Registry) Increment(id ResourceID) int {
	rec, ok := r.entries[id]
	if !ok {
		rec = &record{status: StatusIdle}
		r.entries[id] = rec
	}
	rec.refs++
	return rec.refs
}

// Decrement removes a reference and returns the new count. The count is
// floored at zero; underflow reports whether the decrement was clamped.
func (r *Registry) Decrement(id ResourceID) (refs int, underflow bool) {
	rec, ok := r.entries[id]
	if !ok || rec.refs == 0 {
		return 0, true
	}
	rec.refs--
	return rec.refs, false
}

// SetStatus overwrites the status and error of id. The error is cleared
// when the status becomes connected.
func (r *Registry) SetStatus(id ResourceID, status Status, err error) {
	rec, ok := r.entries[id]
	if !ok {
		rec = &record{}
		r.entries[id] = rec
	}
	rec.status = status
	switch {
	case status == StatusConnected:
		rec.lastErr = ""
	case err != nil:
		rec.lastErr = err.Error()
	}
}

// Remove deletes the entry for id. It refuses while references remain.
func (r *Registry) Remove(id ResourceID) bool {
	rec, ok := r.entries[id]
	if !ok {
		return true
	}
	if rec.refs > 0 {
		return false
	}
	delete(r.entries, id)
	return true
}

// Clear drops every entry regardless of references and returns what was
// dropped. Only used at shutdown.
func (r *Registry) Clear() []Entry {
	out := r.Snapshot()
	r.entries = make(map[ResourceID]*record)
	return out
}

// Len returns the number of tracked resources.
func (r *Registry) Len() int {
	return len(r.entries)
}

// Snapshot returns a copy of all entries sorted by id.
func (r *Registry) Snapshot() []Entry {
	out := make([]Entry, 0, len(r.entries))
	for id, rec := range r.entries {
		out = append(out, rec.entry(id))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (rec *record) entry(id ResourceID) Entry {
	return Entry{
		ID:        id,
		Refs:      rec.refs,
		Status:    rec.status,
		LastError: rec.lastErr,
		Timer:     TimerNone,
	}
}
