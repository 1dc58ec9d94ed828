package categories

import (
	"net/http"

	"github.com/dalemusser/stratahabit/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes returns a router with the category management endpoints.
func Routes(h *Handler, sessionMgr *auth.SessionManager) http.Handler {
	r := chi.NewRouter()
	r.Use(sessionMgr.RequireSignedIn)

	r.Get("/", h.ListHandler)
	r.Post("/", h.CreateHandler)
	r.Put("/{id}", h.UpdateHandler)
	r.Delete("/{id}", h.DeleteHandler)

	return r
}
