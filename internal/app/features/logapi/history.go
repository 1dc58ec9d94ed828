package logapi

import (
	"net/http"
	"strconv"

	habitstore "github.com/dalemusser/stratahabit/internal/app/store/habits"
	"github.com/dalemusser/stratahabit/internal/app/system/auth"
	"github.com/dalemusser/stratahabit/internal/app/system/jsonutil"
	"go.uber.org/zap"
)

// Page size bounds for the history listing.
const (
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 200
)

// historyEntry is one stored log row in the history listing.
type historyEntry struct {
	Day        string `json:"day"`
	HabitID    string `json:"habit_id"`
	HabitTitle string `json:"habit_title"`
	Status     string `json:"status"`
	Note       string `json:"note,omitempty"`
}

type historyResponse struct {
	Entries []historyEntry `json:"entries"`
	Page    int64          `json:"page"`
	Limit   int64          `json:"limit"`
	Total   int64          `json:"total"`
}

// HistoryHandler handles GET /api/logs/history?page=N&limit=M.
//
// Returns the user's stored log rows newest day first. Undone days have
// no row; the history reflects exactly what is stored.
func (h *Handler) HistoryHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.CurrentUser(r)
	if !ok {
		jsonutil.Unauthorized(w, "sign in required")
		return
	}

	page := int64(1)
	if raw := r.URL.Query().Get("page"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n < 1 {
			jsonutil.BadRequest(w, "page must be a positive integer")
			return
		}
		page = n
	}

	limit := int64(DefaultHistoryLimit)
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n < 1 || n > MaxHistoryLimit {
			jsonutil.BadRequest(w, "limit must be between 1 and 200")
			return
		}
		limit = n
	}

	logs, err := h.logs.ListByUserPaged(r.Context(), user.UserID(), limit, page)
	if err != nil {
		h.logger.Error("history query failed", zap.Error(err))
		jsonutil.InternalError(w, "failed to load history")
		return
	}

	total, err := h.logs.CountByUser(r.Context(), user.UserID())
	if err != nil {
		h.logger.Error("history count failed", zap.Error(err))
		jsonutil.InternalError(w, "failed to load history")
		return
	}

	// Resolve habit titles for display.
	habitsList, err := h.habits.ListByUser(r.Context(), user.UserID(), habitstore.ListOptions{})
	if err != nil {
		h.logger.Error("habit list for history failed", zap.Error(err))
		jsonutil.InternalError(w, "failed to load habits")
		return
	}
	titles := make(map[string]string, len(habitsList))
	for _, hb := range habitsList {
		titles[hb.ID.Hex()] = hb.Title
	}

	entries := make([]historyEntry, 0, len(logs))
	for _, l := range logs {
		hex := l.HabitID.Hex()
		title := titles[hex]
		if title == "" {
			title = hex
		}
		entries = append(entries, historyEntry{
			Day:        l.Day,
			HabitID:    hex,
			HabitTitle: title,
			Status:     l.Status,
			Note:       l.Note,
		})
	}

	jsonutil.OK(w, historyResponse{
		Entries: entries,
		Page:    page,
		Limit:   limit,
		Total:   total,
	})
}
