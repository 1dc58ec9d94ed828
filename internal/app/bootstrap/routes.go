// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"
	"strings"
	"time"

	authgooglefeature "github.com/dalemusser/stratahabit/internal/app/features/authgoogle"
	categoriesfeature "github.com/dalemusser/stratahabit/internal/app/features/categories"
	errorsfeature "github.com/dalemusser/stratahabit/internal/app/features/errors"
	habitsfeature "github.com/dalemusser/stratahabit/internal/app/features/habits"
	healthfeature "github.com/dalemusser/stratahabit/internal/app/features/health"
	insightsfeature "github.com/dalemusser/stratahabit/internal/app/features/insights"
	logapifeature "github.com/dalemusser/stratahabit/internal/app/features/logapi"
	loginfeature "github.com/dalemusser/stratahabit/internal/app/features/login"
	logoutfeature "github.com/dalemusser/stratahabit/internal/app/features/logout"
	profilefeature "github.com/dalemusser/stratahabit/internal/app/features/profile"
	categorystore "github.com/dalemusser/stratahabit/internal/app/store/categories"
	"github.com/dalemusser/stratahabit/internal/app/store/habitlogs"
	habitstore "github.com/dalemusser/stratahabit/internal/app/store/habits"
	"github.com/dalemusser/stratahabit/internal/app/store/oauthstate"
	"github.com/dalemusser/stratahabit/internal/app/store/ratelimit"
	"github.com/dalemusser/stratahabit/internal/app/store/sessions"
	userstore "github.com/dalemusser/stratahabit/internal/app/store/users"
	"github.com/dalemusser/stratahabit/internal/app/system/auth"
	"github.com/dalemusser/waffle/config"
	"github.com/dalemusser/waffle/middleware"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/csrf"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// any Startup hooks have completed. At this point you have access to:
//   - coreCfg: WAFFLE core configuration (ports, env, timeouts, etc.)
//   - appCfg: app-specific configuration defined in AppConfig
//   - deps: any DB or backend clients bundled in DBDeps
//   - logger: the fully configured zap.Logger for this app
//
// The app is a JSON API with cookie sessions:
//   - /api/auth       - login, register, current user
//   - /api/habits     - habit CRUD with 30-day stats and streaks
//   - /api/categories - category CRUD
//   - /api/logs       - day toggles, recent window, notes, CSV export
//   - /api/insights   - weekday completion breakdown
//   - /api/profile    - password, timezone, theme, session management
//   - /auth/google    - browser OAuth flow (redirects, not JSON)
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	// Create the session manager using app config.
	// Secure cookies are enabled in production mode.
	secure := coreCfg.Env == "prod"
	sessionMgr, err := auth.NewSessionManager(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain, appCfg.SessionMaxAge, secure, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}

	// Set up the UserFetcher so LoadSessionUser fetches fresh user data on each request.
	// This ensures role changes, disabled accounts, and profile updates take effect immediately.
	sessionMgr.SetUserFetcher(userstore.NewFetcher(deps.MongoDatabase, logger))

	// Create error logger for handlers.
	errLog := errorsfeature.NewErrorLogger(logger)

	// Stores shared across features.
	sessionsStore := sessions.New(deps.MongoDatabase)
	habits := habitstore.New(deps.MongoDatabase)
	logs := habitlogs.New(deps.MongoDatabase)
	categories := categorystore.New(deps.MongoDatabase)
	categoryCache := categorystore.NewCache(categories, 0)

	r := chi.NewRouter()

	// ─────────────────────────────────────────────────────────────────────────────
	// Global Middleware (applies to ALL routes)
	// ─────────────────────────────────────────────────────────────────────────────

	// Request timeout middleware: prevents requests from hanging indefinitely.
	r.Use(chimw.Timeout(30 * time.Second))

	// CORS middleware: must be early in the chain to handle preflight requests.
	r.Use(middleware.CORSFromConfig(coreCfg))

	// Security headers middleware: adds X-Frame-Options, X-Content-Type-Options, etc.
	r.Use(middleware.SecurityHeadersFromConfig(coreCfg))

	// Session middleware: loads SessionUser into context if logged in.
	r.Use(sessionMgr.LoadSessionUser)

	// CSRF protection with a path-based exemption for /api/* routes.
	// The API is called with fetch() and a SameSite=Lax session cookie;
	// CSRF tokens still guard any remaining form-style endpoints.
	// Cookie name is "stratahabit_csrf" to avoid collisions with other
	// services on the same domain.
	csrfOpts := []csrf.Option{
		csrf.Secure(secure),
		csrf.Path("/"),
		csrf.CookieName("stratahabit_csrf"),
		csrf.FieldName("csrf_token"),
		csrf.SameSite(csrf.SameSiteLaxMode),
		csrf.ErrorHandler(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			logger.Warn("CSRF validation failed",
				zap.String("path", req.URL.Path),
				zap.String("method", req.Method),
				zap.String("reason", csrf.FailureReason(req).Error()),
			)
			http.Error(w, "CSRF token invalid or missing", http.StatusForbidden)
		})),
	}
	// In dev mode, trust localhost origins for CSRF validation.
	trustedOrigins := []string{
		"localhost:8080",
		"localhost:3000",
		"127.0.0.1:8080",
		"127.0.0.1:3000",
	}
	if !secure {
		csrfOpts = append(csrfOpts, csrf.TrustedOrigins(trustedOrigins))
	}
	if appCfg.SessionDomain != "" {
		csrfOpts = append(csrfOpts, csrf.Domain(appCfg.SessionDomain))
	}
	csrfProtect := csrf.Protect([]byte(appCfg.CSRFKey), csrfOpts...)

	csrfMiddleware := func(next http.Handler) http.Handler {
		csrfHandler := csrfProtect(next)
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if strings.HasPrefix(req.URL.Path, "/api/") {
				next.ServeHTTP(w, req)
				return
			}
			csrfHandler.ServeHTTP(w, req)
		})
	}
	r.Use(csrfMiddleware)

	// ─────────────────────────────────────────────────────────────────────────────
	// Routes
	// ─────────────────────────────────────────────────────────────────────────────

	// Health check endpoints for load balancers and orchestrators
	healthHandler := healthfeature.NewHandler(deps.MongoClient, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))
	healthfeature.MountRootEndpoints(r, healthHandler)

	// Rate limiting for login attempts (nil if disabled)
	var rateLimitStore *ratelimit.Store
	if appCfg.RateLimitEnabled {
		rateLimitStore = ratelimit.New(
			deps.MongoDatabase,
			appCfg.RateLimitLoginAttempts,
			appCfg.RateLimitLoginWindow,
			appCfg.RateLimitLoginLockout,
		)
	}

	// Authentication
	loginHandler := loginfeature.NewHandler(
		deps.MongoDatabase,
		sessionMgr,
		errLog,
		sessionsStore,
		rateLimitStore,
		logger,
	)
	r.Mount("/api/auth", loginfeature.Routes(loginHandler))

	logoutHandler := logoutfeature.NewHandler(sessionMgr, sessionsStore, logger)
	r.Mount("/logout", logoutfeature.Routes(logoutHandler, sessionMgr))

	// Google OAuth (only mount if configured)
	googleEnabled := appCfg.GoogleClientID != "" && appCfg.GoogleClientSecret != ""
	if googleEnabled {
		oauthStateStore := oauthstate.New(deps.MongoDatabase)
		googleHandler := authgooglefeature.NewHandler(
			deps.MongoDatabase,
			sessionMgr,
			errLog,
			sessionsStore,
			oauthStateStore,
			appCfg.GoogleClientID,
			appCfg.GoogleClientSecret,
			appCfg.BaseURL,
			logger,
		)
		r.Mount("/auth/google", authgooglefeature.Routes(googleHandler))
		logger.Info("Google OAuth enabled", zap.String("redirect_url", appCfg.BaseURL+"/auth/google/callback"))
	}

	// User profile and session management
	profileHandler := profilefeature.NewHandler(deps.MongoDatabase, sessionsStore, errLog, logger)
	r.Mount("/api/profile", profilefeature.Routes(profileHandler, sessionMgr))

	// Habit CRUD with per-habit 30-day stats and streaks
	habitsHandler := habitsfeature.NewHandler(deps.MongoDatabase, habits, logs, deps.StateCache, deps.OverrideLedger, logger)
	r.Mount("/api/habits", habitsfeature.Routes(habitsHandler, sessionMgr))

	// Category CRUD
	categoriesHandler := categoriesfeature.NewHandler(categories, categoryCache, habits, logger)
	r.Mount("/api/categories", categoriesfeature.Routes(categoriesHandler, sessionMgr))

	// Day toggles, recent windows, notes, and CSV export
	logapiHandler := logapifeature.NewHandler(logs, habits, deps.StateCache, deps.OverrideLedger, logger)
	r.Mount("/api/logs", logapifeature.Routes(logapiHandler, sessionMgr))

	// Weekday completion insights
	insightsHandler := insightsfeature.NewHandler(logs, logger)
	r.Mount("/api/insights", insightsfeature.Routes(insightsHandler, sessionMgr))

	// 404 catch-all for unmatched routes
	errorsHandler := errorsfeature.NewHandler()
	r.NotFound(errorsHandler.NotFound)

	return r, nil
}
