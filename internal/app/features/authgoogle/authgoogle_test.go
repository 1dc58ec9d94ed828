package authgoogle

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	errorsfeature "github.com/dalemusser/stratahabit/internal/app/features/errors"
	"github.com/dalemusser/stratahabit/internal/app/store/oauthstate"
	"github.com/dalemusser/stratahabit/internal/app/store/sessions"
	userstore "github.com/dalemusser/stratahabit/internal/app/store/users"
	"github.com/dalemusser/stratahabit/internal/app/system/auth"
	"github.com/dalemusser/stratahabit/internal/testutil"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

func newTestHandler(t *testing.T) (*Handler, *mongo.Database, *oauthstate.Store) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()

	sessionsStore := sessions.New(db)
	oauthStateStore := oauthstate.New(db)

	sessionMgr, err := auth.NewSessionManager(
		"test-session-key-for-testing-1234567890",
		"test-session",
		"",
		24*time.Hour,
		false,
		logger,
	)
	if err != nil {
		t.Fatalf("failed to create session manager: %v", err)
	}

	handler := NewHandler(
		db,
		sessionMgr,
		errorsfeature.NewErrorLogger(logger),
		sessionsStore,
		oauthStateStore,
		"test-client-id",
		"test-client-secret",
		"http://localhost:8080",
		logger,
	)

	return handler, db, oauthStateStore
}

func TestNewHandler(t *testing.T) {
	h, _, _ := newTestHandler(t)
	if h == nil {
		t.Fatal("NewHandler() returned nil")
	}
}

func TestRoutes(t *testing.T) {
	h, _, _ := newTestHandler(t)
	router := Routes(h)
	if router == nil {
		t.Fatal("Routes() returned nil")
	}
}

func TestStartAuth_RedirectsToGoogle(t *testing.T) {
	h, _, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/auth/google", nil)
	rec := httptest.NewRecorder()

	h.startAuth(rec, req)

	if rec.Code != http.StatusTemporaryRedirect && rec.Code != http.StatusSeeOther {
		t.Errorf("status = %d, want redirect (307 or 303)", rec.Code)
	}

	location := rec.Header().Get("Location")
	if location == "" {
		t.Error("Location header should be set")
	}

	if rec.Code == http.StatusTemporaryRedirect {
		if !strings.Contains(location, "accounts.google.com") && !strings.Contains(location, "oauth") {
			t.Errorf("Location = %q, should contain Google OAuth URL", location)
		}
		if !strings.Contains(location, "state=") {
			t.Errorf("Location = %q, should carry a state parameter", location)
		}
	}
}

func TestCallback_InvalidState(t *testing.T) {
	h, _, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/auth/google/callback?state=invalid-state&code=test-code", nil)
	rec := httptest.NewRecorder()

	h.handleCallback(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusSeeOther)
	}

	location := rec.Header().Get("Location")
	if !strings.Contains(location, "invalid_state") {
		t.Errorf("Location = %q, want to contain 'invalid_state'", location)
	}
}

func TestCallback_OAuthError(t *testing.T) {
	h, _, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/auth/google/callback?error=access_denied", nil)
	rec := httptest.NewRecorder()

	h.handleCallback(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusSeeOther)
	}

	location := rec.Header().Get("Location")
	if !strings.Contains(location, "access_denied") {
		t.Errorf("Location = %q, want to contain 'access_denied'", location)
	}
}

func TestCallback_NoCode(t *testing.T) {
	h, _, oauthStore := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	state := "test-valid-state-token"
	if err := oauthStore.Create(ctx, state); err != nil {
		t.Fatalf("failed to create state: %v", err)
	}

	// Valid state but no code: token exchange fails and the flow bails out.
	req := httptest.NewRequest(http.MethodGet, "/auth/google/callback?state="+state, nil)
	rec := httptest.NewRecorder()

	h.handleCallback(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusSeeOther)
	}
}

func TestProvisionUser(t *testing.T) {
	h, db, _ := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	info := &GoogleUserInfo{
		ID:            "google-sub-1",
		Email:         "NewPerson@example.com",
		VerifiedEmail: true,
		Name:          "New Person",
	}

	user, err := h.provisionUser(ctx, info)
	if err != nil {
		t.Fatalf("provisionUser() error: %v", err)
	}
	if user.AuthMethod != "google" {
		t.Errorf("AuthMethod = %q, want %q", user.AuthMethod, "google")
	}
	if user.Role != "member" {
		t.Errorf("Role = %q, want %q", user.Role, "member")
	}
	if user.FullName != "New Person" {
		t.Errorf("FullName = %q, want %q", user.FullName, "New Person")
	}

	// The account is reachable by email on the next sign-in.
	stored, err := userstore.New(db).GetByEmail(ctx, info.Email)
	if err != nil {
		t.Fatalf("GetByEmail() error: %v", err)
	}
	if stored.ID != user.ID {
		t.Errorf("stored.ID = %v, want %v", stored.ID, user.ID)
	}
}

func TestProvisionUser_FallsBackToEmailForName(t *testing.T) {
	h, _, _ := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	info := &GoogleUserInfo{
		Email:         "noname@example.com",
		VerifiedEmail: true,
	}

	user, err := h.provisionUser(ctx, info)
	if err != nil {
		t.Fatalf("provisionUser() error: %v", err)
	}
	if user.FullName != "noname@example.com" {
		t.Errorf("FullName = %q, want the email address", user.FullName)
	}
}

func TestGenerateState(t *testing.T) {
	state1, err := generateState()
	if err != nil {
		t.Fatalf("generateState() error: %v", err)
	}

	state2, err := generateState()
	if err != nil {
		t.Fatalf("generateState() error: %v", err)
	}

	if state1 == state2 {
		t.Error("generateState() should produce unique values")
	}

	// base64 URL encoding of 32 bytes
	if len(state1) != 44 {
		t.Errorf("len(state) = %d, want 44", len(state1))
	}
}
