// internal/app/features/profile/profile.go
package profile

// Terminology: User Identifiers
//   - UserID / userID / user_id: The MongoDB ObjectID (_id) that uniquely identifies a user record
//   - LoginID / loginID / login_id: The human-readable string users type to log in

import (
	"net/http"
	"strings"
	"time"

	errorsfeature "github.com/dalemusser/stratahabit/internal/app/features/errors"
	"github.com/dalemusser/stratahabit/internal/app/store/sessions"
	userstore "github.com/dalemusser/stratahabit/internal/app/store/users"
	"github.com/dalemusser/stratahabit/internal/app/system/auth"
	"github.com/dalemusser/stratahabit/internal/app/system/authutil"
	"github.com/dalemusser/stratahabit/internal/app/system/jsonutil"
	"github.com/dalemusser/stratahabit/internal/app/system/timezones"
	"github.com/dalemusser/stratahabit/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler provides profile handlers.
type Handler struct {
	userStore     *userstore.Store
	sessionsStore *sessions.Store
	errLog        *errorsfeature.ErrorLogger
	logger        *zap.Logger
}

// NewHandler creates a new profile Handler.
func NewHandler(db *mongo.Database, sessionsStore *sessions.Store, errLog *errorsfeature.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		userStore:     userstore.New(db),
		sessionsStore: sessionsStore,
		errLog:        errLog,
		logger:        logger,
	}
}

// profileView is the GET /api/profile response body.
type profileView struct {
	FullName        string `json:"full_name"`
	Email           string `json:"email,omitempty"`
	AuthMethod      string `json:"auth_method"`
	CanSetPassword  bool   `json:"can_set_password"`
	PasswordRules   string `json:"password_rules,omitempty"`
	Timezone        string `json:"timezone"`
	ThemePreference string `json:"theme_preference"`
}

// Routes returns a chi.Router with profile routes mounted.
func Routes(h *Handler, sessionMgr *auth.SessionManager) http.Handler {
	r := chi.NewRouter()
	r.Use(sessionMgr.RequireSignedIn)

	r.Get("/", h.showProfile)
	r.Post("/password", h.handleChangePassword)
	r.Put("/timezone", h.handleUpdateTimezone)
	r.Get("/timezones", h.listTimezones)
	r.Put("/preferences", h.handleUpdatePreferences)

	r.Get("/sessions", h.listSessions)
	r.Post("/sessions/{id}/revoke", h.revokeSession)
	r.Post("/sessions/revoke-all", h.revokeAllSessions)

	return r
}

// showProfile returns the current user's profile.
func (h *Handler) showProfile(w http.ResponseWriter, r *http.Request) {
	sessionUser, ok := auth.CurrentUser(r)
	if !ok {
		jsonutil.Unauthorized(w, "sign in required")
		return
	}

	user, err := h.userStore.GetByID(r.Context(), sessionUser.UserID())
	if err != nil {
		h.errLog.Log(r, "failed to get user", err)
		jsonutil.InternalError(w, "failed to load profile")
		return
	}

	jsonutil.OK(w, buildProfileView(user))
}

// handleChangePassword processes a password change.
func (h *Handler) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	sessionUser, ok := auth.CurrentUser(r)
	if !ok {
		jsonutil.Unauthorized(w, "sign in required")
		return
	}

	var in struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
		ConfirmPassword string `json:"confirm_password"`
	}
	if err := jsonutil.Decode(r, &in); err != nil {
		jsonutil.BadRequest(w, "invalid JSON payload")
		return
	}

	user, err := h.userStore.GetByID(r.Context(), sessionUser.UserID())
	if err != nil {
		h.errLog.Log(r, "failed to get user", err)
		jsonutil.InternalError(w, "failed to load profile")
		return
	}

	// Only password-auth users carry a local credential.
	if user.AuthMethod != "password" {
		jsonutil.BadRequest(w, "password change is only available for password authentication")
		return
	}

	if user.PasswordHash != nil && !authutil.CheckPassword(in.CurrentPassword, *user.PasswordHash) {
		jsonutil.BadRequest(w, "current password is incorrect")
		return
	}
	if err := authutil.ValidatePassword(in.NewPassword); err != nil {
		jsonutil.BadRequest(w, err.Error())
		return
	}
	if in.NewPassword != in.ConfirmPassword {
		jsonutil.BadRequest(w, "new passwords do not match")
		return
	}
	if user.PasswordHash != nil && authutil.CheckPassword(in.NewPassword, *user.PasswordHash) {
		jsonutil.BadRequest(w, "new password cannot be the same as your current password")
		return
	}

	hash, err := authutil.HashPassword(in.NewPassword)
	if err != nil {
		h.errLog.Log(r, "failed to hash password", err)
		jsonutil.InternalError(w, "failed to update password")
		return
	}
	if err := h.userStore.UpdatePassword(r.Context(), sessionUser.UserID(), hash); err != nil {
		h.errLog.Log(r, "failed to update password", err)
		jsonutil.InternalError(w, "failed to update password")
		return
	}

	h.logger.Info("password changed", zap.String("user_id", sessionUser.ID))
	jsonutil.OK(w, map[string]bool{"changed": true})
}

// handleUpdateTimezone sets the IANA zone the user's calendar days are
// computed in. The zone must resolve locally before it is stored.
func (h *Handler) handleUpdateTimezone(w http.ResponseWriter, r *http.Request) {
	sessionUser, ok := auth.CurrentUser(r)
	if !ok {
		jsonutil.Unauthorized(w, "sign in required")
		return
	}

	var in struct {
		Timezone string `json:"timezone"`
	}
	if err := jsonutil.Decode(r, &in); err != nil {
		jsonutil.BadRequest(w, "invalid JSON payload")
		return
	}

	tz := strings.TrimSpace(in.Timezone)
	if tz != "" {
		if _, err := time.LoadLocation(tz); err != nil {
			jsonutil.BadRequest(w, "unknown timezone")
			return
		}
	}

	if err := h.userStore.UpdateTimezone(r.Context(), sessionUser.UserID(), tz); err != nil {
		h.errLog.Log(r, "failed to update timezone", err)
		jsonutil.InternalError(w, "failed to save timezone")
		return
	}

	h.logger.Info("timezone updated",
		zap.String("user_id", sessionUser.ID),
		zap.String("timezone", tz))
	jsonutil.OK(w, map[string]string{"timezone": tz})
}

// timezoneGroup is one region's worth of picker entries.
type timezoneGroup struct {
	Region string         `json:"region"`
	Zones  []timezoneZone `json:"zones"`
}

type timezoneZone struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// listTimezones returns the curated timezone list grouped by region,
// for populating the profile timezone picker.
func (h *Handler) listTimezones(w http.ResponseWriter, r *http.Request) {
	groups, err := timezones.Groups()
	if err != nil {
		h.errLog.Log(r, "failed to load timezone list", err)
		jsonutil.InternalError(w, "failed to load timezones")
		return
	}

	out := make([]timezoneGroup, 0, len(groups))
	for _, g := range groups {
		zones := make([]timezoneZone, 0, len(g.Zones))
		for _, z := range g.Zones {
			zones = append(zones, timezoneZone{ID: z.ID, Label: z.Label})
		}
		out = append(out, timezoneGroup{Region: g.Region, Zones: zones})
	}

	jsonutil.OK(w, map[string]any{"timezones": out})
}

// handleUpdatePreferences processes the preferences update.
func (h *Handler) handleUpdatePreferences(w http.ResponseWriter, r *http.Request) {
	sessionUser, ok := auth.CurrentUser(r)
	if !ok {
		jsonutil.Unauthorized(w, "sign in required")
		return
	}

	var in struct {
		ThemePreference string `json:"theme_preference"`
	}
	if err := jsonutil.Decode(r, &in); err != nil {
		jsonutil.BadRequest(w, "invalid JSON payload")
		return
	}

	theme := strings.TrimSpace(in.ThemePreference)
	switch theme {
	case "light", "dark", "system":
	default:
		theme = "system"
	}

	if err := h.userStore.UpdateThemePreference(r.Context(), sessionUser.UserID(), theme); err != nil {
		h.errLog.Log(r, "failed to update theme preference", err)
		jsonutil.InternalError(w, "failed to save preferences")
		return
	}

	// Theme cookie lets the client apply the theme before its next profile
	// fetch; the database stays the source of truth. HttpOnly is false so
	// page scripts can read it.
	http.SetCookie(w, &http.Cookie{
		Name:     "theme_pref",
		Value:    theme,
		Path:     "/",
		MaxAge:   365 * 24 * 60 * 60,
		HttpOnly: false,
		SameSite: http.SameSiteLaxMode,
	})

	jsonutil.OK(w, map[string]string{"theme_preference": theme})
}

// buildProfileView maps a user record to its API representation.
func buildProfileView(user *models.User) profileView {
	theme := user.ThemePreference
	if theme == "" {
		theme = "system"
	}

	email := ""
	if user.Email != nil {
		email = *user.Email
	}

	v := profileView{
		FullName:        user.FullName,
		Email:           email,
		AuthMethod:      user.AuthMethod,
		CanSetPassword:  user.AuthMethod == "password",
		Timezone:        user.Timezone,
		ThemePreference: theme,
	}
	if v.CanSetPassword {
		v.PasswordRules = authutil.PasswordRules()
	}
	return v
}

// sessionRow represents a session in the list.
type sessionRow struct {
	ID           string    `json:"id"`
	IPAddress    string    `json:"ip_address"`
	Device       string    `json:"device"`
	LastActivity time.Time `json:"last_activity"`
	IsCurrent    bool      `json:"is_current"`
}

// listSessions returns the user's active sessions.
func (h *Handler) listSessions(w http.ResponseWriter, r *http.Request) {
	sessionUser, ok := auth.CurrentUser(r)
	if !ok {
		jsonutil.Unauthorized(w, "sign in required")
		return
	}

	sessionsList, err := h.sessionsStore.ListByUser(r.Context(), sessionUser.UserID())
	if err != nil {
		h.errLog.Log(r, "failed to list sessions", err)
		jsonutil.InternalError(w, "failed to list sessions")
		return
	}

	currentToken := sessionUser.SessionToken()
	rows := make([]sessionRow, 0, len(sessionsList))
	for _, s := range sessionsList {
		rows = append(rows, sessionRow{
			ID:           s.ID.Hex(),
			IPAddress:    s.IPAddress,
			Device:       parseDevice(s.UserAgent),
			LastActivity: s.LastActivity,
			IsCurrent:    s.Token == currentToken,
		})
	}
	jsonutil.OK(w, map[string]any{"sessions": rows})
}

// revokeSession revokes a specific session.
func (h *Handler) revokeSession(w http.ResponseWriter, r *http.Request) {
	sessionUser, ok := auth.CurrentUser(r)
	if !ok {
		jsonutil.Unauthorized(w, "sign in required")
		return
	}

	objID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		jsonutil.NotFound(w, "session not found")
		return
	}

	session, err := h.sessionsStore.GetByID(r.Context(), objID)
	if err != nil {
		jsonutil.NotFound(w, "session not found")
		return
	}
	if session.UserID != sessionUser.UserID() {
		jsonutil.Forbidden(w, "access denied")
		return
	}

	// The current session ends through logout, not revocation.
	if session.Token == sessionUser.SessionToken() {
		jsonutil.BadRequest(w, "use logout to end the current session")
		return
	}

	if err := h.sessionsStore.DeleteByID(r.Context(), objID); err != nil {
		h.errLog.Log(r, "failed to revoke session", err)
		jsonutil.InternalError(w, "failed to revoke session")
		return
	}

	jsonutil.OK(w, map[string]bool{"revoked": true})
}

// revokeAllSessions revokes all sessions except the current one.
func (h *Handler) revokeAllSessions(w http.ResponseWriter, r *http.Request) {
	sessionUser, ok := auth.CurrentUser(r)
	if !ok {
		jsonutil.Unauthorized(w, "sign in required")
		return
	}

	currentToken := sessionUser.SessionToken()
	if err := h.sessionsStore.DeleteByUserExcept(r.Context(), sessionUser.UserID(), currentToken); err != nil {
		h.errLog.Log(r, "failed to revoke all sessions", err)
		jsonutil.InternalError(w, "failed to revoke sessions")
		return
	}

	jsonutil.OK(w, map[string]bool{"revoked": true})
}

// parseDevice extracts a simple device description from the user agent string.
func parseDevice(userAgent string) string {
	if userAgent == "" {
		return "Unknown Device"
	}

	ua := strings.ToLower(userAgent)

	if strings.Contains(ua, "iphone") {
		return "iPhone"
	}
	if strings.Contains(ua, "ipad") {
		return "iPad"
	}
	if strings.Contains(ua, "android") {
		if strings.Contains(ua, "mobile") {
			return "Android Phone"
		}
		return "Android Tablet"
	}

	if strings.Contains(ua, "windows") {
		if strings.Contains(ua, "edge") {
			return "Windows (Edge)"
		}
		if strings.Contains(ua, "chrome") {
			return "Windows (Chrome)"
		}
		if strings.Contains(ua, "firefox") {
			return "Windows (Firefox)"
		}
		return "Windows"
	}

	if strings.Contains(ua, "macintosh") || strings.Contains(ua, "mac os") {
		if strings.Contains(ua, "safari") && !strings.Contains(ua, "chrome") {
			return "Mac (Safari)"
		}
		if strings.Contains(ua, "chrome") {
			return "Mac (Chrome)"
		}
		if strings.Contains(ua, "firefox") {
			return "Mac (Firefox)"
		}
		return "Mac"
	}

	if strings.Contains(ua, "linux") {
		if strings.Contains(ua, "chrome") {
			return "Linux (Chrome)"
		}
		if strings.Contains(ua, "firefox") {
			return "Linux (Firefox)"
		}
		return "Linux"
	}

	return "Unknown Device"
}
