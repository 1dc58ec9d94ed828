package tracking

// Log statuses. A day with no record has no status at all; "missed" is an
// explicit record, distinct from absence, even if a client chooses to render
// the two alike.
const (
	StatusDone    = "done"
	StatusSkipped = "skipped"
	StatusMissed  = "missed"
)

// ValidStatus reports whether s is a storable log status.
func ValidStatus(s string) bool {
	switch s {
	case StatusDone, StatusSkipped, StatusMissed:
		return true
	}
	return false
}

// LogRecord is one day's completion record as reported by the log store.
type LogRecord struct {
	Day    Day
	Status string
	Note   string
}

// Entry is one slot of a Window. Status is nil when the store holds no
// record for the day.
type Entry struct {
	Day    Day     `json:"date"`
	Status *string `json:"status"`
}

// Window is a dense, oldest-first run of consecutive calendar days ending
// at "today". It is an ephemeral projection, never persisted.
type Window []Entry

// BuildWindow materializes a dense n-day window ending at today from
// whatever records the store returned. Days without a record get a nil
// status; records outside the window, or with an invalid day or status,
// are dropped rather than propagated as errors.
func BuildWindow(records []LogRecord, today Day, n int) Window {
	if n <= 0 {
		return Window{}
	}
	byDay := make(map[Day]string, len(records))
	for _, rec := range records {
		if !rec.Day.Valid() || !ValidStatus(rec.Status) {
			continue
		}
		byDay[rec.Day] = rec.Status
	}

	w := make(Window, 0, n)
	start := today.AddDays(-(n - 1))
	for i := 0; i < n; i++ {
		day := start.AddDays(i)
		e := Entry{Day: day}
		if s, ok := byDay[day]; ok {
			status := s
			e.Status = &status
		}
		w = append(w, e)
	}
	return w
}

// Covers reports whether day falls inside the window's span.
func (w Window) Covers(day Day) bool {
	for _, e := range w {
		if e.Day == day {
			return true
		}
	}
	return false
}

// StatusOn returns the status recorded for day, if the window covers it
// and a record exists.
func (w Window) StatusOn(day Day) (string, bool) {
	for _, e := range w {
		if e.Day == day {
			if e.Status == nil {
				return "", false
			}
			return *e.Status, true
		}
	}
	return "", false
}

// DoneOn reports whether day is marked done in the window. Days the window
// does not cover are not done.
func (w Window) DoneOn(day Day) bool {
	s, ok := w.StatusOn(day)
	return ok && s == StatusDone
}

// Clone returns a deep copy of the window. Snapshots taken before an
// optimistic mutation must not alias the published slice.
func (w Window) Clone() Window {
	out := make(Window, len(w))
	for i, e := range w {
		out[i] = Entry{Day: e.Day}
		if e.Status != nil {
			s := *e.Status
			out[i].Status = &s
		}
	}
	return out
}

// WithStatus returns a copy of the window with day's status replaced.
// A nil status clears the slot back to "no record". Days outside the
// window are ignored.
func (w Window) WithStatus(day Day, status *string) Window {
	out := w.Clone()
	for i := range out {
		if out[i].Day == day {
			if status == nil {
				out[i].Status = nil
			} else {
				s := *status
				out[i].Status = &s
			}
		}
	}
	return out
}

// Equal reports whether two windows are identical, including the
// record-vs-no-record distinction.
func (w Window) Equal(other Window) bool {
	if len(w) != len(other) {
		return false
	}
	for i := range w {
		if w[i].Day != other[i].Day {
			return false
		}
		a, b := w[i].Status, other[i].Status
		if (a == nil) != (b == nil) {
			return false
		}
		if a != nil && *a != *b {
			return false
		}
	}
	return true
}
