package tracking

import (
	"sync"
	"time"
)

// OverrideState is the optimistic completion state pinned for a
// (habit, day) pair immediately after a local toggle.
type OverrideState string

const (
	// OverrideDone pins a day as done until a later toggle supersedes it.
	OverrideDone OverrideState = "done"
	// OverrideUndone pins a day as having no record. Undone entries expire
	// after a short TTL so future loads fall back to the store once its
	// read-your-writes has caught up.
	OverrideUndone OverrideState = "undone"
)

type overrideKey struct {
	habitID string
	day     Day
}

type overrideEntry struct {
	state     OverrideState
	expiresAt time.Time // zero for entries that never expire
}

// OverrideLedger is a process-wide, time-bounded cache that corrects for
// stale reads of the log store right after a local mutation. A background
// refetch that lands between a toggle and the store becoming
// read-consistent must neither resurrect a day the user just undid nor
// drop a day the user just marked.
//
// The ledger is best effort, not a lock: an entry that has expired no
// longer masks the store, which bounds the acceptable staleness window by
// the undone TTL. It is constructed once per process and injected into the
// coordinator and loader rather than accessed as a global.
type OverrideLedger struct {
	mu        sync.Mutex
	entries   map[overrideKey]overrideEntry
	undoneTTL time.Duration

	now func() time.Time // overridable in tests
}

// DefaultUndoneTTL is how long an "undone" override masks the store.
const DefaultUndoneTTL = 5 * time.Second

// NewOverrideLedger creates an empty ledger. A zero or negative undoneTTL
// falls back to DefaultUndoneTTL.
func NewOverrideLedger(undoneTTL time.Duration) *OverrideLedger {
	if undoneTTL <= 0 {
		undoneTTL = DefaultUndoneTTL
	}
	return &OverrideLedger{
		entries:   make(map[overrideKey]overrideEntry),
		undoneTTL: undoneTTL,
		now:       time.Now,
	}
}

// Set unconditionally overwrites the override for (habitID, day).
func (l *OverrideLedger) Set(habitID string, day Day, state OverrideState) {
	e := overrideEntry{state: state}
	if state == OverrideUndone {
		e.expiresAt = l.now().Add(l.undoneTTL)
	}
	l.mu.Lock()
	l.entries[overrideKey{habitID, day}] = e
	l.mu.Unlock()
}

// Get returns the live override for (habitID, day), if any. Expired
// entries are deleted on the way out.
func (l *OverrideLedger) Get(habitID string, day Day) (OverrideState, bool) {
	key := overrideKey{habitID, day}
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.entries[key]
	if !ok {
		return "", false
	}
	if !e.expiresAt.IsZero() && !l.now().Before(e.expiresAt) {
		delete(l.entries, key)
		return "", false
	}
	return e.state, true
}

// Delete removes the override for (habitID, day) if present.
func (l *OverrideLedger) Delete(habitID string, day Day) {
	l.mu.Lock()
	delete(l.entries, overrideKey{habitID, day})
	l.mu.Unlock()
}

// Restore puts the ledger entry for (habitID, day) back to a previously
// observed value: present with the given state, or absent. Used by the
// coordinator's rollback path.
func (l *OverrideLedger) Restore(habitID string, day Day, state OverrideState, present bool) {
	if !present {
		l.Delete(habitID, day)
		return
	}
	l.Set(habitID, day, state)
}

// Sweep drops expired entries and returns how many were removed. Get
// already expires lazily; Sweep exists so the background task runner can
// keep the map from accumulating entries nobody reads again.
func (l *OverrideLedger) Sweep() int {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()
	removed := 0
	for k, e := range l.entries {
		if !e.expiresAt.IsZero() && !now.Before(e.expiresAt) {
			delete(l.entries, k)
			removed++
		}
	}
	return removed
}

// Len returns the number of live and expired-but-unswept entries.
func (l *OverrideLedger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Apply returns a copy of the window with live overrides for habitID
// applied: "done" forces the day's status to done, "undone" forces it back
// to no-record, and absent leaves the store's value alone.
func (l *OverrideLedger) Apply(w Window, habitID string) Window {
	out := w.Clone()
	for i := range out {
		state, ok := l.Get(habitID, out[i].Day)
		if !ok {
			continue
		}
		switch state {
		case OverrideDone:
			s := StatusDone
			out[i].Status = &s
		case OverrideUndone:
			out[i].Status = nil
		}
	}
	return out
}
