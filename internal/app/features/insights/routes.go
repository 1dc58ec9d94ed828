package insights

import (
	"net/http"

	"github.com/dalemusser/stratahabit/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes returns a router with the insight endpoints.
func Routes(h *Handler, sessionMgr *auth.SessionManager) http.Handler {
	r := chi.NewRouter()
	r.Use(sessionMgr.RequireSignedIn)

	r.Get("/weekdays", h.WeekdayHandler)

	return r
}
