// internal/app/features/logout/logout.go
package logout

import (
	"net/http"

	"github.com/dalemusser/stratahabit/internal/app/store/sessions"
	"github.com/dalemusser/stratahabit/internal/app/system/auth"
	"github.com/dalemusser/stratahabit/internal/app/system/jsonutil"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Handler provides logout handlers.
type Handler struct {
	sessionMgr    *auth.SessionManager
	sessionsStore *sessions.Store
	logger        *zap.Logger
}

// NewHandler creates a new logout Handler.
func NewHandler(
	sessionMgr *auth.SessionManager,
	sessionsStore *sessions.Store,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		sessionMgr:    sessionMgr,
		sessionsStore: sessionsStore,
		logger:        logger,
	}
}

// Routes returns a chi.Router with logout routes mounted.
func Routes(h *Handler, sessionMgr *auth.SessionManager) http.Handler {
	r := chi.NewRouter()
	r.Use(sessionMgr.RequireAuth)
	r.Post("/", h.handleLogout)
	return r
}

// handleLogout terminates the session.
func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if user, ok := auth.CurrentUser(r); ok {
		// Close session in MongoDB tracking (preserves for audit, records duration)
		if token := user.SessionToken(); token != "" {
			if err := h.sessionsStore.Close(r.Context(), token, sessions.EndReasonLogout); err != nil {
				h.logger.Warn("failed to close session in store", zap.Error(err))
			}
		}
		h.logger.Info("user signed out", zap.String("user_id", user.ID))
	}

	h.sessionMgr.DestroySession(w, r)

	jsonutil.OK(w, map[string]bool{"signed_out": true})
}
