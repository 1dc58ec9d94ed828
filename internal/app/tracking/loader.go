package tracking

import "context"

// Querier is the read side of the log store: all records for one habit
// within an inclusive day range, in any order. Implementations must not be
// assumed to return one row per day; absence means no record.
type Querier interface {
	QueryRange(ctx context.Context, userID, habitID string, from, to Day) ([]LogRecord, error)
}

// Loader fetches the last n days of log records for a habit, materializes
// the dense window the metrics engine consumes, and applies the override
// ledger so just-toggled days reflect local truth rather than a stale
// store read.
type Loader struct {
	q      Querier
	ledger *OverrideLedger
}

// NewLoader wires a loader to the log store and the override ledger.
func NewLoader(q Querier, ledger *OverrideLedger) *Loader {
	return &Loader{q: q, ledger: ledger}
}

// Load returns the n-day window ending at today for one habit, overrides
// applied.
func (l *Loader) Load(ctx context.Context, userID, habitID string, today Day, n int) (Window, error) {
	from := today.AddDays(-(n - 1))
	records, err := l.q.QueryRange(ctx, userID, habitID, from, today)
	if err != nil {
		return nil, err
	}
	w := BuildWindow(records, today, n)
	return l.ledger.Apply(w, habitID), nil
}

// LoadWithStat loads the 30-day window alongside the requested one and
// recomputes the authoritative stat and streak from it. Every explicit
// reload goes through here, which is what bounds the drift of the
// incremental per-toggle stat updates.
func (l *Loader) LoadWithStat(ctx context.Context, userID, habitID string, today Day, n int) (Window, ThirtyDayStat, StreakState, error) {
	span := n
	if span < WindowDays {
		span = WindowDays
	}
	full, err := l.Load(ctx, userID, habitID, today, span)
	if err != nil {
		return nil, ThirtyDayStat{}, StreakState{}, err
	}

	stat := StatFromWindow(full[len(full)-WindowDays:])
	streak := CurrentStreak(full, today)

	w := full
	if n < span {
		w = full[span-n:]
	}
	return w, stat, streak, nil
}
