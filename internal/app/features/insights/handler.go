// Package insights provides aggregate views over a user's habit logs,
// computed server-side with Mongo aggregation pipelines.
package insights

import (
	"net/http"
	"strconv"

	"github.com/dalemusser/stratahabit/internal/app/store/habitlogs"
	"github.com/dalemusser/stratahabit/internal/app/system/auth"
	"github.com/dalemusser/stratahabit/internal/app/system/jsonutil"
	"github.com/dalemusser/stratahabit/internal/app/tracking"
	"go.uber.org/zap"
)

// Week spans for the weekday breakdown.
const (
	DefaultWeeks = 12
	MaxWeeks     = 52
)

// Handler handles insight requests.
type Handler struct {
	logs   *habitlogs.Store
	logger *zap.Logger
}

// NewHandler creates a new insights handler.
func NewHandler(logs *habitlogs.Store, logger *zap.Logger) *Handler {
	return &Handler{logs: logs, logger: logger}
}

// weekdayNames is indexed by ISO weekday number, Monday = 1.
var weekdayNames = [8]string{"", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}

type weekdayEntry struct {
	Weekday string `json:"weekday"`
	Done    int    `json:"done"`
}

type weekdayResponse struct {
	From     tracking.Day   `json:"from"`
	To       tracking.Day   `json:"to"`
	Weekdays []weekdayEntry `json:"weekdays"`
	Total    int            `json:"total"`
	BestDay  string         `json:"best_day,omitempty"`
}

// WeekdayHandler handles GET /api/insights/weekdays?weeks=12. It reports
// how many completions landed on each weekday over the trailing span,
// across all of the user's habits.
func (h *Handler) WeekdayHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.CurrentUser(r)
	if !ok {
		jsonutil.Unauthorized(w, "sign in required")
		return
	}

	weeks := DefaultWeeks
	if raw := r.URL.Query().Get("weeks"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > MaxWeeks {
			jsonutil.BadRequest(w, "weeks must be between 1 and 52")
			return
		}
		weeks = n
	}

	today := tracking.Today(user.Location())
	from := today.AddDays(-(weeks*7 - 1))

	counts, err := h.logs.WeekdayDoneCounts(r.Context(), user.UserID(), from, today)
	if err != nil {
		h.logger.Error("weekday aggregation failed", zap.Error(err))
		jsonutil.InternalError(w, "failed to compute insights")
		return
	}

	resp := weekdayResponse{From: from, To: today, Weekdays: make([]weekdayEntry, 0, 7)}
	best := 0
	for iso := 1; iso <= 7; iso++ {
		done := counts[iso]
		resp.Weekdays = append(resp.Weekdays, weekdayEntry{Weekday: weekdayNames[iso], Done: done})
		resp.Total += done
		if done > best {
			best = done
			resp.BestDay = weekdayNames[iso]
		}
	}
	jsonutil.OK(w, resp)
}
