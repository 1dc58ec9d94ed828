package logapi

import (
	"net/http"

	"github.com/dalemusser/stratahabit/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes returns a router with the habit log API endpoints.
//
// When mounted at /api/logs:
//   - POST /api/logs/toggle     - Mark or undo a habit for a day
//   - GET  /api/logs/recent     - Dense recent window with stat and streak
//   - POST /api/logs/note       - Attach a note to an existing log
//   - GET  /api/logs/history    - Paged listing of stored log rows
//   - GET  /api/logs/export.csv - Export logs as CSV
//
// All endpoints require a signed-in session.
func Routes(h *Handler, sessionMgr *auth.SessionManager) http.Handler {
	r := chi.NewRouter()
	r.Use(sessionMgr.RequireSignedIn)

	r.Post("/toggle", h.ToggleHandler)
	r.Get("/recent", h.RecentHandler)
	r.Post("/note", h.NoteHandler)
	r.Get("/history", h.HistoryHandler)
	r.Get("/export.csv", h.ExportHandler)

	return r
}
