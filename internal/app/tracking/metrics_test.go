package tracking

import "testing"

// windowFrom builds a window ending at today from a list of statuses,
// oldest first; "" means no record.
func windowFrom(today Day, statuses ...string) Window {
	n := len(statuses)
	w := make(Window, 0, n)
	start := today.AddDays(-(n - 1))
	for i, s := range statuses {
		e := Entry{Day: start.AddDays(i)}
		if s != "" {
			status := s
			e.Status = &status
		}
		w = append(w, e)
	}
	return w
}

func TestNextThirtyDayStat_MarkIncrements(t *testing.T) {
	prev := ThirtyDayStat{DoneDays: 10, CompletionRatePct: 33}
	got := NextThirtyDayStat(prev, false, true)
	if got.DoneDays != 11 {
		t.Errorf("done_days = %d, want 11", got.DoneDays)
	}
	if got.CompletionRatePct != 37 { // round(1100/30)
		t.Errorf("completion_rate_pct = %d, want 37", got.CompletionRatePct)
	}
}

func TestNextThirtyDayStat_NoChangeWhenStateUnchanged(t *testing.T) {
	prev := ThirtyDayStat{DoneDays: 10, CompletionRatePct: 33}
	if got := NextThirtyDayStat(prev, true, true); got != prev {
		t.Errorf("marking already-done day changed stat: %+v", got)
	}
	prev = ThirtyDayStat{DoneDays: 0, CompletionRatePct: 0}
	if got := NextThirtyDayStat(prev, false, false); got != prev {
		t.Errorf("undoing not-done day changed stat: %+v", got)
	}
}

func TestNextThirtyDayStat_UndoFloorsAtZero(t *testing.T) {
	got := NextThirtyDayStat(ThirtyDayStat{DoneDays: 0}, true, false)
	if got.DoneDays != 0 || got.CompletionRatePct != 0 {
		t.Errorf("got %+v, want zero stat", got)
	}
	// Negative garbage in cached state is clamped, not propagated.
	got = NextThirtyDayStat(ThirtyDayStat{DoneDays: -3}, false, true)
	if got.DoneDays != 1 {
		t.Errorf("done_days = %d, want 1", got.DoneDays)
	}
}

func TestNextThirtyDayStat_PctClamped(t *testing.T) {
	got := NextThirtyDayStat(ThirtyDayStat{DoneDays: 30}, false, true)
	if got.CompletionRatePct > 100 {
		t.Errorf("pct %d exceeds 100", got.CompletionRatePct)
	}
}

func TestStatFromWindow(t *testing.T) {
	w := windowFrom("2025-01-07",
		StatusDone, StatusDone, "", StatusMissed, StatusDone, StatusSkipped, StatusDone)
	got := StatFromWindow(w)
	if got.DoneDays != 4 {
		t.Errorf("done_days = %d, want 4", got.DoneDays)
	}
	if got.CompletionRatePct != 13 { // round(400/30)
		t.Errorf("pct = %d, want 13", got.CompletionRatePct)
	}

	if got := StatFromWindow(nil); got.DoneDays != 0 || got.CompletionRatePct != 0 {
		t.Errorf("empty window stat = %+v, want zeros", got)
	}
}

func TestCurrentStreak_AllDoneSevenDays(t *testing.T) {
	w := windowFrom("2025-01-07",
		StatusDone, StatusDone, StatusDone, StatusDone, StatusDone, StatusDone, StatusDone)
	if got := CurrentStreak(w, "2025-01-07"); got.Current != 7 {
		t.Errorf("streak = %d, want 7", got.Current)
	}
}

func TestCurrentStreak_AnchorsOnYesterdayWhenTodayNotDone(t *testing.T) {
	// Today not done, yesterday and the two days before done.
	w := windowFrom("2025-01-07",
		"", "", "", StatusDone, StatusDone, StatusDone, "")
	if got := CurrentStreak(w, "2025-01-07"); got.Current != 3 {
		t.Errorf("streak = %d, want 3", got.Current)
	}
}

func TestCurrentStreak_GapResets(t *testing.T) {
	// [done done null done done done null], today (last) just marked done:
	// the walk covers today back through the three done days and stops at
	// the null on day -4.
	w := windowFrom("2025-01-07",
		StatusDone, StatusDone, "", StatusDone, StatusDone, StatusDone, "")
	marked := w.WithStatus("2025-01-07", ptr(StatusDone))
	if got := CurrentStreak(marked, "2025-01-07"); got.Current != 4 {
		t.Errorf("streak = %d, want 4", got.Current)
	}
}

func TestCurrentStreak_StopsAtWindowEdge(t *testing.T) {
	// Every covered day is done; the walk must not assume done beyond the
	// oldest covered day.
	w := windowFrom("2025-01-07", StatusDone, StatusDone, StatusDone)
	if got := CurrentStreak(w, "2025-01-07"); got.Current != 3 {
		t.Errorf("streak = %d, want 3", got.Current)
	}
}

func TestCurrentStreak_ZeroWhenNeitherAnchorDone(t *testing.T) {
	w := windowFrom("2025-01-07",
		StatusDone, StatusDone, StatusDone, StatusDone, StatusDone, "", "")
	if got := CurrentStreak(w, "2025-01-07"); got.Current != 0 {
		t.Errorf("streak = %d, want 0", got.Current)
	}
}

func TestCurrentStreak_EmptyAndAllNilWindows(t *testing.T) {
	if got := CurrentStreak(Window{}, "2025-01-07"); got.Current != 0 {
		t.Errorf("empty window streak = %d, want 0", got.Current)
	}
	w := windowFrom("2025-01-07", "", "", "", "", "", "", "")
	if got := CurrentStreak(w, "2025-01-07"); got.Current != 0 {
		t.Errorf("all-nil window streak = %d, want 0", got.Current)
	}
}

func TestCurrentStreak_FutureOnlyEntriesDoNotPanic(t *testing.T) {
	// A window that somehow only covers future days: today and yesterday
	// are unknown, so the streak is zero.
	w := windowFrom("2025-01-20", StatusDone, StatusDone, StatusDone)
	if got := CurrentStreak(w, "2025-01-07"); got.Current != 0 {
		t.Errorf("streak = %d, want 0", got.Current)
	}
}

func ptr(s string) *string { return &s }
