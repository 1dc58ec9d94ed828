// Package habits provides the habit management API: per-user CRUD,
// pause/resume, and the dashboard list that bundles each habit with its
// recent completion state.
//
// Endpoints (mounted at /api/habits):
//   - GET    /api/habits            - List habits with today's state and streak
//   - POST   /api/habits            - Create a habit
//   - GET    /api/habits/{id}       - Fetch one habit
//   - PUT    /api/habits/{id}       - Update a habit
//   - DELETE /api/habits/{id}       - Delete a habit and its logs
//   - POST   /api/habits/{id}/pause  - Stop accepting new completions
//   - POST   /api/habits/{id}/resume - Accept completions again
package habits

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dalemusser/stratahabit/internal/app/store/habitlogs"
	habitstore "github.com/dalemusser/stratahabit/internal/app/store/habits"
	"github.com/dalemusser/stratahabit/internal/app/system/auth"
	"github.com/dalemusser/stratahabit/internal/app/system/htmlsanitize"
	"github.com/dalemusser/stratahabit/internal/app/system/jsonutil"
	"github.com/dalemusser/stratahabit/internal/app/system/txn"
	"github.com/dalemusser/stratahabit/internal/app/tracking"
	"github.com/dalemusser/stratahabit/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Field limits.
const (
	MaxTitleLength       = 200
	MaxDescriptionLength = 2000
)

// Handler handles habit management requests.
type Handler struct {
	db     *mongo.Database
	habits *habitstore.Store
	logs   *habitlogs.Store
	cache  *tracking.StateCache
	ledger *tracking.OverrideLedger
	logger *zap.Logger
}

// NewHandler creates a new habits handler. The database handle is used for
// the transactional habit+logs cascade delete.
func NewHandler(db *mongo.Database, habits *habitstore.Store, logs *habitlogs.Store, cache *tracking.StateCache, ledger *tracking.OverrideLedger, logger *zap.Logger) *Handler {
	return &Handler{
		db:     db,
		habits: habits,
		logs:   logs,
		cache:  cache,
		ledger: ledger,
		logger: logger,
	}
}

// habitView is one habit in the dashboard list, bundled with its derived
// completion state for the current day.
type habitView struct {
	models.Habit
	DoneToday bool                   `json:"done_today"`
	Stat      tracking.ThirtyDayStat `json:"stat"`
	Streak    tracking.StreakState   `json:"streak"`
}

// ListHandler handles GET /api/habits?active=true&category_id=...
//
// One bulk log query serves every habit in the list; the per-habit
// windows, stats, and streaks are derived in process and the override
// ledger is applied so a just-toggled habit never shows stale state.
func (h *Handler) ListHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.CurrentUser(r)
	if !ok {
		jsonutil.Unauthorized(w, "sign in required")
		return
	}

	opts := habitstore.ListOptions{}
	if r.URL.Query().Get("active") == "true" {
		opts.ActiveOnly = true
	}
	if raw := r.URL.Query().Get("category_id"); raw != "" {
		catID, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			jsonutil.BadRequest(w, "invalid category_id")
			return
		}
		opts.CategoryID = &catID
	}

	list, err := h.habits.ListByUser(r.Context(), user.UserID(), opts)
	if err != nil {
		h.logger.Error("habit list failed", zap.Error(err))
		jsonutil.InternalError(w, "failed to load habits")
		return
	}

	today := tracking.Today(user.Location())
	from := today.AddDays(-(tracking.WindowDays - 1))
	ids := make([]string, 0, len(list))
	for _, hb := range list {
		ids = append(ids, hb.ID.Hex())
	}
	grouped, err := h.logs.QueryRangeAll(r.Context(), user.ID, ids, from, today)
	if err != nil {
		h.logger.Error("bulk log query failed", zap.Error(err))
		jsonutil.InternalError(w, "failed to load logs")
		return
	}

	views := make([]habitView, 0, len(list))
	for _, hb := range list {
		id := hb.ID.Hex()
		win := tracking.BuildWindow(grouped[id], today, tracking.WindowDays)
		win = h.ledger.Apply(win, id)

		views = append(views, habitView{
			Habit:     hb,
			DoneToday: win.DoneOn(today),
			Stat:      tracking.StatFromWindow(win),
			Streak:    tracking.CurrentStreak(win, today),
		})
	}

	jsonutil.OK(w, map[string]any{"habits": views})
}

type habitInput struct {
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Icon        string       `json:"icon"`
	CategoryID  *string      `json:"category_id"`
	Goal        *models.Goal `json:"goal"`
}

func (in *habitInput) sanitize() {
	in.Title = htmlsanitize.Plain(in.Title)
	in.Description = htmlsanitize.Inline(in.Description)
	in.Icon = htmlsanitize.Plain(in.Icon)
}

func (in *habitInput) validate() string {
	if in.Title == "" {
		return "title is required"
	}
	if len(in.Title) > MaxTitleLength {
		return "title too long"
	}
	if len(in.Description) > MaxDescriptionLength {
		return "description too long"
	}
	if in.Goal != nil {
		if !models.IsValidFrequency(in.Goal.Frequency) {
			return "invalid goal frequency"
		}
		if !models.IsValidGoalPeriod(in.Goal.Period) {
			return "invalid goal period"
		}
		if in.Goal.TargetAmount <= 0 {
			return "goal target must be positive"
		}
	}
	return ""
}

// CreateHandler handles POST /api/habits.
func (h *Handler) CreateHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.CurrentUser(r)
	if !ok {
		jsonutil.Unauthorized(w, "sign in required")
		return
	}

	var in habitInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		jsonutil.BadRequest(w, "invalid JSON payload")
		return
	}
	in.sanitize()
	if msg := in.validate(); msg != "" {
		jsonutil.BadRequest(w, msg)
		return
	}

	input := habitstore.CreateInput{
		UserID:      user.UserID(),
		Title:       in.Title,
		Description: in.Description,
		Icon:        in.Icon,
		Goal:        in.Goal,
	}
	if in.CategoryID != nil && *in.CategoryID != "" {
		catID, err := primitive.ObjectIDFromHex(*in.CategoryID)
		if err != nil {
			jsonutil.BadRequest(w, "invalid category_id")
			return
		}
		input.CategoryID = &catID
	}

	habit, err := h.habits.Create(r.Context(), input)
	if err != nil {
		h.logger.Error("habit create failed", zap.String("title", in.Title), zap.Error(err))
		jsonutil.InternalError(w, "failed to create habit")
		return
	}

	h.logger.Info("habit created",
		zap.String("habit_id", habit.ID.Hex()),
		zap.String("user_id", user.ID))
	jsonutil.Created(w, habit)
}

// resolveHabit parses {id} and loads the habit scoped to the current user.
// It writes the error response itself and returns nil when the request
// cannot proceed.
func (h *Handler) resolveHabit(w http.ResponseWriter, r *http.Request) (*models.Habit, *auth.SessionUser) {
	user, ok := auth.CurrentUser(r)
	if !ok {
		jsonutil.Unauthorized(w, "sign in required")
		return nil, nil
	}
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		jsonutil.BadRequest(w, "invalid habit id")
		return nil, nil
	}
	habit, err := h.habits.GetByID(r.Context(), user.UserID(), id)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			jsonutil.NotFound(w, "habit not found")
			return nil, nil
		}
		h.logger.Error("habit lookup failed", zap.String("habit_id", id.Hex()), zap.Error(err))
		jsonutil.InternalError(w, "habit lookup failed")
		return nil, nil
	}
	return habit, user
}

// GetHandler handles GET /api/habits/{id}.
func (h *Handler) GetHandler(w http.ResponseWriter, r *http.Request) {
	habit, _ := h.resolveHabit(w, r)
	if habit == nil {
		return
	}
	jsonutil.OK(w, habit)
}

// UpdateHandler handles PUT /api/habits/{id}.
func (h *Handler) UpdateHandler(w http.ResponseWriter, r *http.Request) {
	habit, user := h.resolveHabit(w, r)
	if habit == nil {
		return
	}

	var in habitInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		jsonutil.BadRequest(w, "invalid JSON payload")
		return
	}
	in.sanitize()
	if msg := in.validate(); msg != "" {
		jsonutil.BadRequest(w, msg)
		return
	}

	upd := habitstore.UpdateInput{
		Title:       &in.Title,
		Description: &in.Description,
		Icon:        &in.Icon,
		Goal:        in.Goal,
	}
	if in.CategoryID != nil {
		if *in.CategoryID == "" {
			upd.ClearCategory = true
		} else {
			catID, err := primitive.ObjectIDFromHex(*in.CategoryID)
			if err != nil {
				jsonutil.BadRequest(w, "invalid category_id")
				return
			}
			upd.CategoryID = &catID
		}
	}

	if err := h.habits.Update(r.Context(), user.UserID(), habit.ID, upd); err != nil {
		h.logger.Error("habit update failed", zap.String("habit_id", habit.ID.Hex()), zap.Error(err))
		jsonutil.InternalError(w, "failed to update habit")
		return
	}

	updated, err := h.habits.GetByID(r.Context(), user.UserID(), habit.ID)
	if err != nil {
		jsonutil.InternalError(w, "failed to reload habit")
		return
	}
	jsonutil.OK(w, updated)
}

// DeleteHandler handles DELETE /api/habits/{id}. The habit's logs and any
// published in-process state go with it.
func (h *Handler) DeleteHandler(w http.ResponseWriter, r *http.Request) {
	habit, user := h.resolveHabit(w, r)
	if habit == nil {
		return
	}

	// The habit and its logs go together. On standalone MongoDB txn.Run
	// falls back to sequential deletes, which can orphan logs if the
	// second delete fails; those orphans are invisible to every query.
	var deleted int64
	err := txn.Run(r.Context(), h.db, h.logger, func(ctx context.Context) error {
		if err := h.habits.Delete(ctx, user.UserID(), habit.ID); err != nil {
			return err
		}
		n, err := h.logs.DeleteByHabit(ctx, user.UserID(), habit.ID)
		deleted = n
		return err
	})
	if err != nil {
		h.logger.Error("habit delete failed", zap.String("habit_id", habit.ID.Hex()), zap.Error(err))
		jsonutil.InternalError(w, "failed to delete habit")
		return
	}

	h.cache.Drop(user.ID + ":" + habit.ID.Hex())

	h.logger.Info("habit deleted",
		zap.String("habit_id", habit.ID.Hex()),
		zap.String("user_id", user.ID),
		zap.Int64("logs_deleted", deleted))
	jsonutil.NoContent(w)
}

// PauseHandler handles POST /api/habits/{id}/pause.
func (h *Handler) PauseHandler(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, false)
}

// ResumeHandler handles POST /api/habits/{id}/resume.
func (h *Handler) ResumeHandler(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, true)
}

func (h *Handler) setActive(w http.ResponseWriter, r *http.Request, active bool) {
	habit, user := h.resolveHabit(w, r)
	if habit == nil {
		return
	}
	if err := h.habits.SetActive(r.Context(), user.UserID(), habit.ID, active); err != nil {
		h.logger.Error("habit pause/resume failed",
			zap.String("habit_id", habit.ID.Hex()),
			zap.Bool("active", active),
			zap.Error(err))
		jsonutil.InternalError(w, "failed to update habit")
		return
	}
	jsonutil.OK(w, map[string]bool{"is_active": active})
}
