package tracking

import "math"

// WindowDays is the trailing window the completion stat is computed over.
const WindowDays = 30

// ThirtyDayStat is the derived completion stat over the trailing 30-day
// window ending today (inclusive).
type ThirtyDayStat struct {
	DoneDays          int `json:"done_days" bson:"done_days"`
	CompletionRatePct int `json:"completion_rate_pct" bson:"completion_rate_pct"`
}

// StreakState is the derived current-streak value for a habit.
type StreakState struct {
	Current int `json:"streak_current" bson:"streak_current"`
}

// NextThirtyDayStat incrementally updates a 30-day stat after toggling
// today's completion. The count only moves when the toggle actually changes
// today's state: marking an already-done day or undoing a not-done day is
// a no-op. This is O(1) by design; it trades exactness for responsiveness,
// and callers bound the resulting drift by recomputing from the store on
// every window reload (see StatFromWindow).
func NextThirtyDayStat(prev ThirtyDayStat, wasDone, marking bool) ThirtyDayStat {
	done := prev.DoneDays
	if done < 0 {
		done = 0
	}
	if marking && !wasDone {
		done++
	}
	if !marking && wasDone {
		done--
		if done < 0 {
			done = 0
		}
	}
	return ThirtyDayStat{
		DoneDays:          done,
		CompletionRatePct: completionPct(done),
	}
}

// StatFromWindow recomputes the authoritative 30-day stat from a freshly
// loaded window. The window may be shorter than 30 days (a young habit);
// missing days count as not done either way.
func StatFromWindow(w Window) ThirtyDayStat {
	done := 0
	for _, e := range w {
		if e.Status != nil && *e.Status == StatusDone {
			done++
		}
	}
	if done > WindowDays {
		done = WindowDays
	}
	return ThirtyDayStat{
		DoneDays:          done,
		CompletionRatePct: completionPct(done),
	}
}

// completionPct converts a done-day count to a rounded percentage of the
// 30-day window, clamped to [0,100].
func completionPct(done int) int {
	pct := int(math.Round(float64(done) / float64(WindowDays) * 100))
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}

// CurrentStreak computes the current streak from a recent window: the run
// of consecutive done days ending at today if today is done, else ending
// at yesterday if yesterday is done, else zero. The walk stops at the
// first gap or at the edge of the window; days the window does not cover
// are never assumed done.
func CurrentStreak(w Window, today Day) StreakState {
	if len(w) == 0 {
		return StreakState{}
	}

	doneSet := make(map[Day]struct{}, len(w))
	for _, e := range w {
		if e.Status != nil && *e.Status == StatusDone {
			doneSet[e.Day] = struct{}{}
		}
	}

	cursor := today
	if _, ok := doneSet[cursor]; !ok {
		cursor = cursor.AddDays(-1)
	}

	count := 0
	for i := 0; i < len(w); i++ {
		if _, ok := doneSet[cursor]; !ok {
			break
		}
		count++
		cursor = cursor.AddDays(-1)
	}
	return StreakState{Current: count}
}
