// Package logapi provides the habit log API: optimistic toggles, recent
// windows with derived metrics, notes, and CSV export.
//
// Endpoints (mounted at /api/logs):
//   - POST /api/logs/toggle     - Mark or undo a habit for a day
//   - GET  /api/logs/recent     - Dense recent window with stat and streak
//   - POST /api/logs/note       - Attach a note to an existing log
//   - GET  /api/logs/export.csv - Export logs as CSV
package logapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/dalemusser/stratahabit/internal/app/store/habitlogs"
	habitstore "github.com/dalemusser/stratahabit/internal/app/store/habits"
	"github.com/dalemusser/stratahabit/internal/app/system/auth"
	"github.com/dalemusser/stratahabit/internal/app/system/htmlsanitize"
	"github.com/dalemusser/stratahabit/internal/app/system/jsonutil"
	"github.com/dalemusser/stratahabit/internal/app/tracking"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Window sizes accepted by the recent endpoint.
const (
	DefaultRecentDays = 30
	MaxRecentDays     = 90
	MaxNoteLength     = 2000
)

// Handler handles habit log API requests.
type Handler struct {
	logs   *habitlogs.Store
	habits *habitstore.Store
	cache  *tracking.StateCache
	ledger *tracking.OverrideLedger
	loader *tracking.Loader
	logger *zap.Logger
}

// NewHandler creates a new log API handler.
func NewHandler(logs *habitlogs.Store, habits *habitstore.Store, cache *tracking.StateCache, ledger *tracking.OverrideLedger, logger *zap.Logger) *Handler {
	return &Handler{
		logs:   logs,
		habits: habits,
		cache:  cache,
		ledger: ledger,
		loader: tracking.NewLoader(logs, ledger),
		logger: logger,
	}
}

// habitKey scopes cache entries to the owning user.
func habitKey(userID, habitID string) string {
	return userID + ":" + habitID
}

// toggleResponse is what both guard rejections and applied toggles return:
// the published state after the operation, so the client can reconcile.
type toggleResponse struct {
	Applied bool                  `json:"applied"`
	Done    bool                  `json:"done"`
	Stat    tracking.ThirtyDayStat `json:"stat"`
	Streak  tracking.StreakState  `json:"streak"`
}

// ToggleHandler handles POST /api/logs/toggle.
//
// Request body:
//
//	{
//	    "habit_id": "...",
//	    "date": "2025-01-07",  // optional, defaults to today in the user's zone
//	    "done": true
//	}
//
// The optimistic projection is published before the durable write; on a
// store failure the previous state is restored and 502 is returned.
func (h *Handler) ToggleHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.CurrentUser(r)
	if !ok {
		jsonutil.Unauthorized(w, "sign in required")
		return
	}

	var in struct {
		HabitID string `json:"habit_id"`
		Date    string `json:"date"`
		Done    bool   `json:"done"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		jsonutil.BadRequest(w, "invalid JSON payload")
		return
	}

	habitOID, err := primitive.ObjectIDFromHex(in.HabitID)
	if err != nil {
		jsonutil.BadRequest(w, "invalid habit_id")
		return
	}
	habit, err := h.habits.GetByID(r.Context(), user.UserID(), habitOID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			jsonutil.NotFound(w, "habit not found")
			return
		}
		h.logger.Error("habit lookup failed", zap.String("habit_id", in.HabitID), zap.Error(err))
		jsonutil.InternalError(w, "habit lookup failed")
		return
	}

	today := tracking.Today(user.Location())
	day := today
	if in.Date != "" {
		day = tracking.Day(in.Date)
	}
	if !day.Valid() {
		jsonutil.BadRequest(w, "invalid date, want YYYY-MM-DD")
		return
	}
	if day.After(today) {
		jsonutil.BadRequest(w, "cannot log a future day")
		return
	}

	key := habitKey(user.ID, in.HabitID)
	if err := h.primeState(r, user.ID, in.HabitID, today); err != nil {
		h.logger.Error("window preload failed", zap.String("habit_id", in.HabitID), zap.Error(err))
		jsonutil.InternalError(w, "failed to load habit state")
		return
	}

	coord := tracking.NewCoordinator(h.cache.Accessors(key, h.logEvent), h.logs, h.ledger, h.logger)
	applied, err := coord.Toggle(r.Context(), tracking.ToggleRequest{
		UserID:      user.ID,
		HabitID:     in.HabitID,
		Day:         day,
		Marking:     in.Done,
		HabitActive: habit.IsActive,
	})
	if err != nil {
		var pe *tracking.ErrPersist
		if errors.As(err, &pe) {
			jsonutil.Error(w, http.StatusBadGateway, "failed to save log, change was rolled back")
			return
		}
		jsonutil.BadRequest(w, err.Error())
		return
	}

	jsonutil.OK(w, h.publishedState(key, day, applied))
}

// primeState makes sure the cache holds an authoritative window for the
// habit so the coordinator snapshots real state rather than an empty one.
func (h *Handler) primeState(r *http.Request, userID, habitID string, today tracking.Day) error {
	key := habitKey(userID, habitID)
	if _, ok := h.cache.Window(key); ok {
		return nil
	}
	w, stat, streak, err := h.loader.LoadWithStat(r.Context(), userID, habitID, today, tracking.WindowDays)
	if err != nil {
		return err
	}
	h.cache.SetWindow(key, w)
	h.cache.SetStat(key, stat)
	h.cache.SetStreak(key, streak)
	return nil
}

// publishedState reads the post-toggle state back out of the cache.
func (h *Handler) publishedState(key string, day tracking.Day, applied bool) toggleResponse {
	resp := toggleResponse{Applied: applied}
	if w, ok := h.cache.Window(key); ok {
		resp.Done = w.DoneOn(day)
	}
	if s, ok := h.cache.Stat(key); ok {
		resp.Stat = s
	}
	if s, ok := h.cache.Streak(key); ok {
		resp.Streak = s
	}
	return resp
}

// logEvent receives projection-time notifications from the coordinator.
func (h *Handler) logEvent(habitID string, ev tracking.LogEvent) {
	h.logger.Debug("log projected",
		zap.String("habit_id", habitID),
		zap.String("op_id", ev.OpID),
		zap.String("day", string(ev.Day)))
}

// recentResponse carries a dense oldest-first window plus the
// authoritative stat and streak recomputed from the store.
type recentResponse struct {
	HabitID string                 `json:"habit_id"`
	Days    tracking.Window        `json:"days"`
	Stat    tracking.ThirtyDayStat `json:"stat"`
	Streak  tracking.StreakState   `json:"streak"`
}

// RecentHandler handles GET /api/logs/recent?habit_id=...&days=N.
//
// The window is dense: one entry per calendar day, oldest first, null
// status for days without a record. Stat and streak are recomputed from
// the store on every call, which is what bounds the drift of the
// incremental per-toggle updates.
func (h *Handler) RecentHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.CurrentUser(r)
	if !ok {
		jsonutil.Unauthorized(w, "sign in required")
		return
	}

	habitID := r.URL.Query().Get("habit_id")
	habitOID, err := primitive.ObjectIDFromHex(habitID)
	if err != nil {
		jsonutil.BadRequest(w, "invalid habit_id")
		return
	}
	if _, err := h.habits.GetByID(r.Context(), user.UserID(), habitOID); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			jsonutil.NotFound(w, "habit not found")
			return
		}
		h.logger.Error("habit lookup failed", zap.String("habit_id", habitID), zap.Error(err))
		jsonutil.InternalError(w, "habit lookup failed")
		return
	}

	days := DefaultRecentDays
	if raw := r.URL.Query().Get("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > MaxRecentDays {
			jsonutil.BadRequest(w, "days must be between 1 and "+strconv.Itoa(MaxRecentDays))
			return
		}
		days = n
	}

	today := tracking.Today(user.Location())
	win, stat, streak, err := h.loader.LoadWithStat(r.Context(), user.ID, habitID, today, days)
	if err != nil {
		h.logger.Error("recent window load failed",
			zap.String("habit_id", habitID),
			zap.Int("days", days),
			zap.Error(err))
		jsonutil.InternalError(w, "failed to load logs")
		return
	}

	// Publish the authoritative reload so the next toggle snapshots
	// fresh state. The cached window is always the 30-day one.
	key := habitKey(user.ID, habitID)
	if days >= tracking.WindowDays {
		h.cache.SetWindow(key, win[len(win)-tracking.WindowDays:])
	} else {
		full, _, _, ferr := h.loader.LoadWithStat(r.Context(), user.ID, habitID, today, tracking.WindowDays)
		if ferr == nil {
			h.cache.SetWindow(key, full)
		}
	}
	h.cache.SetStat(key, stat)
	h.cache.SetStreak(key, streak)

	jsonutil.OK(w, recentResponse{
		HabitID: habitID,
		Days:    win,
		Stat:    stat,
		Streak:  streak,
	})
}

// NoteHandler handles POST /api/logs/note.
//
// Request body:
//
//	{
//	    "habit_id": "...",
//	    "date": "2025-01-07",
//	    "note": "felt great"   // empty clears the note
//	}
//
// Notes attach to existing logs only; they never create a completion.
func (h *Handler) NoteHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.CurrentUser(r)
	if !ok {
		jsonutil.Unauthorized(w, "sign in required")
		return
	}

	var in struct {
		HabitID string `json:"habit_id"`
		Date    string `json:"date"`
		Note    string `json:"note"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		jsonutil.BadRequest(w, "invalid JSON payload")
		return
	}

	habitOID, err := primitive.ObjectIDFromHex(in.HabitID)
	if err != nil {
		jsonutil.BadRequest(w, "invalid habit_id")
		return
	}
	if _, err := h.habits.GetByID(r.Context(), user.UserID(), habitOID); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			jsonutil.NotFound(w, "habit not found")
			return
		}
		h.logger.Error("habit lookup failed", zap.String("habit_id", in.HabitID), zap.Error(err))
		jsonutil.InternalError(w, "habit lookup failed")
		return
	}

	day := tracking.Day(in.Date)
	if !day.Valid() {
		jsonutil.BadRequest(w, "invalid date, want YYYY-MM-DD")
		return
	}

	note := htmlsanitize.Plain(in.Note)
	if len(note) > MaxNoteLength {
		jsonutil.BadRequest(w, "note too long")
		return
	}

	if err := h.logs.SetNote(r.Context(), user.ID, in.HabitID, day, note); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			jsonutil.NotFound(w, "no log for that day")
			return
		}
		h.logger.Error("note update failed",
			zap.String("habit_id", in.HabitID),
			zap.String("day", string(day)),
			zap.Error(err))
		jsonutil.InternalError(w, "failed to save note")
		return
	}

	jsonutil.OK(w, map[string]string{"status": "saved"})
}
