package tracking

import (
	"testing"
	"time"
)

// ledgerAt returns a ledger whose clock is controlled by the test.
func ledgerAt(undoneTTL time.Duration) (*OverrideLedger, *time.Time) {
	l := NewOverrideLedger(undoneTTL)
	now := time.Date(2025, 1, 7, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	return l, &now
}

func TestOverrideLedger_DonePersistsUntilSuperseded(t *testing.T) {
	l, now := ledgerAt(5 * time.Second)
	l.Set("h1", "2025-01-07", OverrideDone)

	*now = now.Add(24 * time.Hour)
	if s, ok := l.Get("h1", "2025-01-07"); !ok || s != OverrideDone {
		t.Errorf("done override gone after a day: %q,%v", s, ok)
	}

	l.Set("h1", "2025-01-07", OverrideUndone)
	if s, _ := l.Get("h1", "2025-01-07"); s != OverrideUndone {
		t.Errorf("supersede failed, got %q", s)
	}
}

func TestOverrideLedger_UndoneExpires(t *testing.T) {
	l, now := ledgerAt(5 * time.Second)
	l.Set("h1", "2025-01-07", OverrideUndone)

	*now = now.Add(4 * time.Second)
	if _, ok := l.Get("h1", "2025-01-07"); !ok {
		t.Fatal("undone override expired early")
	}

	*now = now.Add(2 * time.Second)
	if _, ok := l.Get("h1", "2025-01-07"); ok {
		t.Fatal("undone override survived past TTL")
	}
}

func TestOverrideLedger_Sweep(t *testing.T) {
	l, now := ledgerAt(5 * time.Second)
	l.Set("h1", "2025-01-07", OverrideUndone)
	l.Set("h2", "2025-01-07", OverrideUndone)
	l.Set("h3", "2025-01-07", OverrideDone)

	*now = now.Add(10 * time.Second)
	if removed := l.Sweep(); removed != 2 {
		t.Errorf("Sweep removed %d, want 2", removed)
	}
	if l.Len() != 1 {
		t.Errorf("Len = %d, want 1", l.Len())
	}
}

func TestOverrideLedger_KeysAreScopedPerHabitAndDay(t *testing.T) {
	l, _ := ledgerAt(5 * time.Second)
	l.Set("h1", "2025-01-07", OverrideDone)

	if _, ok := l.Get("h2", "2025-01-07"); ok {
		t.Error("override leaked across habits")
	}
	if _, ok := l.Get("h1", "2025-01-06"); ok {
		t.Error("override leaked across days")
	}
}

func TestOverrideLedger_Apply(t *testing.T) {
	l, _ := ledgerAt(5 * time.Second)
	// Store says: today done, yesterday done.
	w := windowFrom("2025-01-07", "", "", "", "", "", StatusDone, StatusDone)

	// User just undid today; a stale refetch must not resurrect it.
	l.Set("h1", "2025-01-07", OverrideUndone)
	// And just marked a day the store doesn't know about yet.
	l.Set("h1", "2025-01-03", OverrideDone)

	got := l.Apply(w, "h1")
	if _, ok := got.StatusOn("2025-01-07"); ok {
		t.Error("undone override did not mask store's done")
	}
	if !got.DoneOn("2025-01-03") {
		t.Error("done override did not apply")
	}
	if !got.DoneOn("2025-01-06") {
		t.Error("unrelated day was altered")
	}
	// Other habits are untouched.
	other := l.Apply(w, "h2")
	if !other.Equal(w) {
		t.Error("overrides applied to the wrong habit")
	}
}

func TestOverrideLedger_Restore(t *testing.T) {
	l, _ := ledgerAt(5 * time.Second)
	l.Set("h1", "2025-01-07", OverrideDone)

	prev, had := l.Get("h1", "2025-01-07")
	l.Set("h1", "2025-01-07", OverrideUndone)
	l.Restore("h1", "2025-01-07", prev, had)
	if s, _ := l.Get("h1", "2025-01-07"); s != OverrideDone {
		t.Errorf("restore to prior state failed, got %q", s)
	}

	prev, had = l.Get("h1", "2025-01-06")
	l.Set("h1", "2025-01-06", OverrideDone)
	l.Restore("h1", "2025-01-06", prev, had)
	if _, ok := l.Get("h1", "2025-01-06"); ok {
		t.Error("restore to absent state failed")
	}
}

func TestNewOverrideLedger_DefaultTTL(t *testing.T) {
	l := NewOverrideLedger(0)
	if l.undoneTTL != DefaultUndoneTTL {
		t.Errorf("ttl = %v, want %v", l.undoneTTL, DefaultUndoneTTL)
	}
}
