package habits

import (
	"net/http"

	"github.com/dalemusser/stratahabit/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes returns a router with the habit management endpoints.
//
// All endpoints require a signed-in session; every lookup is scoped to
// the session's user.
func Routes(h *Handler, sessionMgr *auth.SessionManager) http.Handler {
	r := chi.NewRouter()
	r.Use(sessionMgr.RequireSignedIn)

	r.Get("/", h.ListHandler)
	r.Post("/", h.CreateHandler)
	r.Get("/{id}", h.GetHandler)
	r.Put("/{id}", h.UpdateHandler)
	r.Delete("/{id}", h.DeleteHandler)
	r.Post("/{id}/pause", h.PauseHandler)
	r.Post("/{id}/resume", h.ResumeHandler)

	return r
}
