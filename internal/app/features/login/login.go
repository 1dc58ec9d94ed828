// internal/app/features/login/login.go
package login

// Terminology: User Identifiers
//   - UserID / userID / user_id: The MongoDB ObjectID (_id) that uniquely identifies a user record
//   - LoginID / loginID / login_id: The human-readable string users type to log in

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	errorsfeature "github.com/dalemusser/stratahabit/internal/app/features/errors"
	"github.com/dalemusser/stratahabit/internal/app/store/ratelimit"
	"github.com/dalemusser/stratahabit/internal/app/store/sessions"
	userstore "github.com/dalemusser/stratahabit/internal/app/store/users"
	"github.com/dalemusser/stratahabit/internal/app/system/auth"
	"github.com/dalemusser/stratahabit/internal/app/system/authutil"
	"github.com/dalemusser/stratahabit/internal/app/system/htmlsanitize"
	"github.com/dalemusser/stratahabit/internal/app/system/jsonutil"
	"github.com/dalemusser/stratahabit/internal/app/system/network"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler provides login and registration handlers.
type Handler struct {
	userStore      *userstore.Store
	sessionsStore  *sessions.Store
	rateLimitStore *ratelimit.Store // nil if rate limiting disabled
	sessionMgr     *auth.SessionManager
	errLog         *errorsfeature.ErrorLogger
	logger         *zap.Logger
}

// NewHandler creates a new login Handler.
// rateLimitStore can be nil to disable rate limiting.
func NewHandler(
	db *mongo.Database,
	sessionMgr *auth.SessionManager,
	errLog *errorsfeature.ErrorLogger,
	sessionsStore *sessions.Store,
	rateLimitStore *ratelimit.Store,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		userStore:      userstore.New(db),
		sessionsStore:  sessionsStore,
		rateLimitStore: rateLimitStore,
		sessionMgr:     sessionMgr,
		errLog:         errLog,
		logger:         logger,
	}
}

// Routes returns a chi.Router with login routes mounted.
//
// When mounted at /api/auth:
//   - POST /api/auth/login    - Password login
//   - POST /api/auth/register - Create a password account
//   - GET  /api/auth/me       - Current session user
func Routes(h *Handler) http.Handler {
	r := chi.NewRouter()

	r.Post("/login", h.handleLogin)
	r.Post("/register", h.handleRegister)
	r.Get("/me", h.handleMe)

	return r
}

// meResponse describes the signed-in user to the client.
type meResponse struct {
	UserID          string `json:"user_id"`
	Name            string `json:"name"`
	LoginID         string `json:"login_id"`
	Role            string `json:"role"`
	Timezone        string `json:"timezone,omitempty"`
	ThemePreference string `json:"theme_preference,omitempty"`
}

// handleMe returns the current session user, 401 when signed out.
func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.CurrentUser(r)
	if !ok {
		jsonutil.Unauthorized(w, "not signed in")
		return
	}
	jsonutil.OK(w, meResponse{
		UserID:          user.ID,
		Name:            user.Name,
		LoginID:         user.LoginID,
		Role:            user.Role,
		Timezone:        user.Timezone,
		ThemePreference: user.ThemePreference,
	})
}

// lockoutMessage formats the retry hint for a locked-out login.
func lockoutMessage(lockedUntil *time.Time) string {
	msg := "too many failed login attempts, try again later"
	if lockedUntil == nil {
		return msg
	}
	remaining := time.Until(*lockedUntil)
	if remaining > time.Minute {
		return fmt.Sprintf("too many failed login attempts, try again in %d minute(s)", int(remaining.Minutes())+1)
	}
	return fmt.Sprintf("too many failed login attempts, try again in %d second(s)", int(remaining.Seconds())+1)
}

// handleLogin processes a password login.
func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in struct {
		LoginID  string `json:"login_id"`
		Password string `json:"password"`
	}
	if err := jsonutil.Decode(r, &in); err != nil {
		jsonutil.BadRequest(w, "invalid JSON payload")
		return
	}
	loginID := strings.TrimSpace(strings.ToLower(in.LoginID))
	if loginID == "" || in.Password == "" {
		jsonutil.BadRequest(w, "login_id and password are required")
		return
	}

	if h.rateLimitStore != nil {
		allowed, _, lockedUntil := h.rateLimitStore.CheckAllowed(r.Context(), loginID)
		if !allowed {
			h.logger.Warn("login rate limited",
				zap.String("login_id", loginID),
				zap.String("ip", network.GetClientIP(r)))
			jsonutil.Error(w, http.StatusTooManyRequests, lockoutMessage(lockedUntil))
			return
		}
	}

	user, err := h.userStore.GetByLoginID(r.Context(), loginID)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			// Record the miss so unknown IDs cannot be probed for free.
			if h.rateLimitStore != nil {
				h.rateLimitStore.RecordFailure(r.Context(), loginID)
			}
			jsonutil.Unauthorized(w, "invalid credentials")
			return
		}
		h.errLog.Log(r, "database error during login lookup", err)
		jsonutil.Error(w, http.StatusServiceUnavailable, "service temporarily unavailable")
		return
	}

	if user.Status != "active" {
		if h.rateLimitStore != nil {
			h.rateLimitStore.RecordFailure(r.Context(), loginID)
		}
		jsonutil.Forbidden(w, "account is disabled")
		return
	}

	if user.AuthMethod != "password" {
		jsonutil.BadRequest(w, "this account does not use password login")
		return
	}

	if user.PasswordHash == nil || !authutil.CheckPassword(in.Password, *user.PasswordHash) {
		if h.rateLimitStore != nil {
			lockedOut, lockedUntil := h.rateLimitStore.RecordFailure(r.Context(), loginID)
			if lockedOut {
				h.logger.Warn("login locked out",
					zap.String("login_id", loginID),
					zap.String("ip", network.GetClientIP(r)))
				jsonutil.Error(w, http.StatusTooManyRequests, lockoutMessage(lockedUntil))
				return
			}
		}
		jsonutil.Unauthorized(w, "invalid credentials")
		return
	}

	if h.rateLimitStore != nil {
		h.rateLimitStore.ClearOnSuccess(r.Context(), loginID)
	}

	if err := h.createTrackedSession(w, r, user.ID, user.Role); err != nil {
		h.errLog.Log(r, "failed to create session", err)
		jsonutil.InternalError(w, "failed to sign in")
		return
	}

	h.logger.Info("user signed in",
		zap.String("user_id", user.ID.Hex()),
		zap.String("login_id", loginID))
	jsonutil.OK(w, meResponse{
		UserID:          user.ID.Hex(),
		Name:            user.FullName,
		LoginID:         loginID,
		Role:            user.Role,
		Timezone:        user.Timezone,
		ThemePreference: user.ThemePreference,
	})
}

// handleRegister creates a member account with password auth and signs it in.
func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var in struct {
		FullName string `json:"full_name"`
		LoginID  string `json:"login_id"`
		Password string `json:"password"`
		Timezone string `json:"timezone"`
	}
	if err := jsonutil.Decode(r, &in); err != nil {
		jsonutil.BadRequest(w, "invalid JSON payload")
		return
	}

	fullName := htmlsanitize.Plain(in.FullName)
	loginID := strings.TrimSpace(strings.ToLower(in.LoginID))
	if fullName == "" || loginID == "" {
		jsonutil.BadRequest(w, "full_name and login_id are required")
		return
	}
	if err := authutil.ValidatePassword(in.Password); err != nil {
		jsonutil.BadRequest(w, err.Error())
		return
	}
	tz := strings.TrimSpace(in.Timezone)
	if tz != "" {
		if _, err := time.LoadLocation(tz); err != nil {
			jsonutil.BadRequest(w, "unknown timezone")
			return
		}
	}

	exists, err := h.userStore.ExistsByLoginID(r.Context(), loginID)
	if err != nil {
		h.errLog.Log(r, "database error during registration lookup", err)
		jsonutil.Error(w, http.StatusServiceUnavailable, "service temporarily unavailable")
		return
	}
	if exists {
		jsonutil.Error(w, http.StatusConflict, "that login ID is already taken")
		return
	}

	hash, err := authutil.HashPassword(in.Password)
	if err != nil {
		h.errLog.Log(r, "failed to hash password", err)
		jsonutil.InternalError(w, "failed to create account")
		return
	}

	user, err := h.userStore.CreateFromInput(r.Context(), userstore.CreateInput{
		FullName:     fullName,
		LoginID:      loginID,
		Role:         "member",
		AuthMethod:   "password",
		PasswordHash: &hash,
		Timezone:     tz,
	})
	if err != nil {
		if errors.Is(err, userstore.ErrDuplicateLoginID) {
			jsonutil.Error(w, http.StatusConflict, "that login ID is already taken")
			return
		}
		h.errLog.Log(r, "failed to create user", err)
		jsonutil.InternalError(w, "failed to create account")
		return
	}

	if err := h.createTrackedSession(w, r, user.ID, user.Role); err != nil {
		h.errLog.Log(r, "failed to create session", err)
		jsonutil.InternalError(w, "account created, sign in to continue")
		return
	}

	h.logger.Info("user registered",
		zap.String("user_id", user.ID.Hex()),
		zap.String("login_id", loginID))
	jsonutil.Created(w, meResponse{
		UserID:   user.ID.Hex(),
		Name:     user.FullName,
		LoginID:  loginID,
		Role:     user.Role,
		Timezone: user.Timezone,
	})
}

// createTrackedSession creates a session in both the cookie and MongoDB for tracking.
func (h *Handler) createTrackedSession(w http.ResponseWriter, r *http.Request, userID primitive.ObjectID, role string) error {
	// Generate token first so we can use it for both cookie and MongoDB tracking
	token, err := auth.GenerateSessionToken()
	if err != nil {
		return err
	}

	if err := h.sessionMgr.CreateSession(w, r, userID, role, token); err != nil {
		return err
	}

	now := time.Now()
	session := sessions.Session{
		Token:        token,
		UserID:       userID,
		IPAddress:    network.GetClientIP(r),
		UserAgent:    r.UserAgent(),
		LoginAt:      now,
		LastActivity: now,
		ExpiresAt:    now.Add(24 * 30 * time.Hour), // 30 days
	}

	// Best effort - don't fail login if tracking fails
	if err := h.sessionsStore.Create(r.Context(), session); err != nil {
		h.logger.Warn("failed to track session", zap.Error(err))
	}

	return nil
}
