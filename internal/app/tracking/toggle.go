package tracking

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrNotAuthenticated is returned when a toggle arrives without a user
// identity. Nothing has been published at that point, so no rollback is
// needed.
var ErrNotAuthenticated = errors.New("tracking: not authenticated")

// ErrPersist wraps a log store failure that triggered a rollback.
type ErrPersist struct{ Err error }

func (e *ErrPersist) Error() string { return "tracking: persist failed: " + e.Err.Error() }
func (e *ErrPersist) Unwrap() error { return e.Err }

// LogWriter is the durable side of the log store: every write is an upsert
// or delete keyed uniquely on (user, habit, day).
type LogWriter interface {
	Upsert(ctx context.Context, userID, habitID string, day Day, status string) error
	Delete(ctx context.Context, userID, habitID string, day Day) error
}

// LogEvent is the side-channel notification emitted when a toggle is
// optimistically applied, before persistence completes.
type LogEvent struct {
	OpID   string  `json:"op_id"`
	Day    Day     `json:"date"`
	Status *string `json:"status"`
}

// Accessors are the caller-supplied getters and setters the coordinator
// reads snapshots from and publishes derived state to. The coordinator is
// agnostic to where this state lives; StateCache is the in-process
// implementation the API handlers use.
type Accessors struct {
	GetWindow func(habitID string) (Window, bool)
	SetWindow func(habitID string, w Window)
	GetStat   func(habitID string) (ThirtyDayStat, bool)
	SetStat   func(habitID string, s ThirtyDayStat)
	SetStreak func(habitID string, s StreakState)

	// OnLog is notified at projection time, success or not. Optional.
	OnLog func(habitID string, ev LogEvent)
}

// ToggleRequest describes a single mark or undo of one (habit, day).
type ToggleRequest struct {
	UserID  string
	HabitID string
	Day     Day
	Marking bool

	// HabitActive gates marking: paused habits reject mark but still
	// allow undo.
	HabitActive bool
}

// Coordinator executes mark/undo transitions: snapshot, idempotency guard,
// optimistic projection, override ledger update, durable write, and
// all-or-nothing rollback when the write fails.
type Coordinator struct {
	acc    Accessors
	writer LogWriter
	ledger *OverrideLedger
	logger *zap.Logger
}

// NewCoordinator wires a coordinator to its collaborators.
func NewCoordinator(acc Accessors, writer LogWriter, ledger *OverrideLedger, logger *zap.Logger) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{acc: acc, writer: writer, ledger: ledger, logger: logger}
}

// Toggle applies one state transition for (habit, day). It returns
// (false, nil) for guard rejections: a same-state toggle or marking a
// paused habit is a no-op, not an error. On a persistence failure the
// published window, stat, and streak are restored exactly as snapshotted
// and the failure is returned wrapped in *ErrPersist.
//
// The optimistic projection (window, stat, streak, observer notification)
// is published synchronously before the durable write begins. Once the
// write has been issued the operation is not cancellable.
func (c *Coordinator) Toggle(ctx context.Context, req ToggleRequest) (bool, error) {
	if req.UserID == "" {
		return false, ErrNotAuthenticated
	}
	if !req.Day.Valid() {
		return false, errors.New("tracking: invalid day")
	}
	if req.Marking && !req.HabitActive {
		// Paused habits reject mark, not undo.
		return false, nil
	}

	// 1. Snapshot. Everything downstream, including rollback, derives
	// from these values and nothing else.
	prevWindow, _ := c.acc.GetWindow(req.HabitID)
	prevWindow = prevWindow.Clone()
	prevStat, _ := c.acc.GetStat(req.HabitID)
	prevStreak := CurrentStreak(prevWindow, req.Day)
	wasDone := prevWindow.DoneOn(req.Day)

	// 2. Idempotency guard against the fresh snapshot, so a rapid
	// double-submit of the same toggle collapses to one transition.
	if req.Marking == wasDone {
		return false, nil
	}

	// 3. Optimistic projection, published before any I/O.
	var nextStatus *string
	if req.Marking {
		s := StatusDone
		nextStatus = &s
	}
	nextWindow := prevWindow.WithStatus(req.Day, nextStatus)
	// A day outside the cached window cannot be snapshot-checked, so the
	// incremental stat would drift on repeated toggles of the same old
	// day. Leave the stat to the next authoritative reload instead.
	nextStat := prevStat
	if prevWindow.Covers(req.Day) {
		nextStat = NextThirtyDayStat(prevStat, wasDone, req.Marking)
	}
	nextStreak := CurrentStreak(nextWindow, req.Day)

	c.acc.SetWindow(req.HabitID, nextWindow)
	c.acc.SetStat(req.HabitID, nextStat)
	c.acc.SetStreak(req.HabitID, nextStreak)
	if c.acc.OnLog != nil {
		c.acc.OnLog(req.HabitID, LogEvent{
			OpID:   uuid.NewString(),
			Day:    req.Day,
			Status: nextStatus,
		})
	}

	// 4. Override ledger, so a concurrent refetch cannot clobber the
	// optimistic state before the store is read-consistent. The prior
	// entry is remembered for rollback.
	prevOverride, hadOverride := c.ledger.Get(req.HabitID, req.Day)
	if req.Marking {
		c.ledger.Set(req.HabitID, req.Day, OverrideDone)
	} else {
		c.ledger.Set(req.HabitID, req.Day, OverrideUndone)
	}

	// 5. Durable write.
	var err error
	if req.Marking {
		err = c.writer.Upsert(ctx, req.UserID, req.HabitID, req.Day, StatusDone)
	} else {
		err = c.writer.Delete(ctx, req.UserID, req.HabitID, req.Day)
	}
	if err == nil {
		return true, nil
	}

	// 6. Rollback, all-or-nothing across the three published values.
	c.logger.Warn("toggle persist failed, rolling back",
		zap.String("habit_id", req.HabitID),
		zap.String("day", string(req.Day)),
		zap.Bool("marking", req.Marking),
		zap.Error(err))

	c.acc.SetWindow(req.HabitID, prevWindow)
	c.acc.SetStat(req.HabitID, prevStat)
	c.acc.SetStreak(req.HabitID, prevStreak)
	c.ledger.Restore(req.HabitID, req.Day, prevOverride, hadOverride)

	return false, &ErrPersist{Err: err}
}
