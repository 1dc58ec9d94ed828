package categories

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	categorystore "github.com/dalemusser/stratahabit/internal/app/store/categories"
	"github.com/dalemusser/stratahabit/internal/app/store/habits"
	"github.com/dalemusser/stratahabit/internal/domain/models"
	"github.com/dalemusser/stratahabit/internal/testutil"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type fixture struct {
	h      *Handler
	store  *categorystore.Store
	habits *habits.Store
	user   testutil.TestUser
	uid    primitive.ObjectID
}

func setup(t *testing.T) *fixture {
	t.Helper()
	db := testutil.SetupTestDB(t)
	store := categorystore.New(db)
	habitStore := habits.New(db)
	h := NewHandler(store, categorystore.NewCache(store, 0), habitStore, zap.NewNop())

	user := testutil.TestUser{
		ID:    primitive.NewObjectID().Hex(),
		Name:  "Category Tester",
		Email: "categories@test.com",
		Role:  "member",
	}
	uid, _ := primitive.ObjectIDFromHex(user.ID)
	return &fixture{h: h, store: store, habits: habitStore, user: user, uid: uid}
}

func (f *fixture) do(t *testing.T, fn http.HandlerFunc, method, target string, body map[string]any, id string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	req = testutil.WithUser(req, f.user)
	if id != "" {
		rctx := chi.NewRouteContext()
		rctx.URLParams.Add("id", id)
		req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	}
	rec := httptest.NewRecorder()
	fn(rec, req)
	return rec
}

func TestCreateHandler(t *testing.T) {
	f := setup(t)

	rec := f.do(t, f.h.CreateHandler, http.MethodPost, "/", map[string]any{"name": "Fitness", "color": "#ff8800"}, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("CreateHandler() status = %d: %s", rec.Code, rec.Body.String())
	}
	var cat models.Category
	if err := json.NewDecoder(rec.Body).Decode(&cat); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if cat.Name != "Fitness" || cat.Color != "#ff8800" {
		t.Errorf("created = %q/%q", cat.Name, cat.Color)
	}
}

func TestCreateHandler_DuplicateName(t *testing.T) {
	f := setup(t)

	if rec := f.do(t, f.h.CreateHandler, http.MethodPost, "/", map[string]any{"name": "Health"}, ""); rec.Code != http.StatusCreated {
		t.Fatalf("first create status = %d", rec.Code)
	}
	rec := f.do(t, f.h.CreateHandler, http.MethodPost, "/", map[string]any{"name": "HEALTH"}, "")
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate create status = %d, want %d", rec.Code, http.StatusConflict)
	}
}

func TestCreateHandler_Validation(t *testing.T) {
	f := setup(t)

	tests := []struct {
		name string
		body map[string]any
	}{
		{"empty name", map[string]any{"name": "  "}},
		{"bad color", map[string]any{"name": "x", "color": "red"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, f.h.CreateHandler, http.MethodPost, "/", tt.body, "")
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
			}
		})
	}
}

func TestListHandler_WithCounts(t *testing.T) {
	f := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	cat, err := f.store.Create(ctx, f.uid, "Mind", "")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	for _, title := range []string{"Read", "Meditate"} {
		if _, err := f.habits.Create(ctx, habits.CreateInput{UserID: f.uid, Title: title, CategoryID: &cat.ID}); err != nil {
			t.Fatalf("habit Create() error = %v", err)
		}
	}
	if _, err := f.habits.Create(ctx, habits.CreateInput{UserID: f.uid, Title: "Uncategorized"}); err != nil {
		t.Fatalf("habit Create() error = %v", err)
	}

	rec := f.do(t, f.h.ListHandler, http.MethodGet, "/", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("ListHandler() status = %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Categories []categoryView `json:"categories"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Categories) != 1 {
		t.Fatalf("len(categories) = %d, want 1", len(resp.Categories))
	}
	if resp.Categories[0].HabitCount != 2 {
		t.Errorf("HabitCount = %d, want 2", resp.Categories[0].HabitCount)
	}
}

func TestUpdateHandler(t *testing.T) {
	f := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	cat, err := f.store.Create(ctx, f.uid, "Werk", "")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	rec := f.do(t, f.h.UpdateHandler, http.MethodPut, "/"+cat.ID.Hex(), map[string]any{"name": "Work", "color": "#123456"}, cat.ID.Hex())
	if rec.Code != http.StatusOK {
		t.Fatalf("UpdateHandler() status = %d: %s", rec.Code, rec.Body.String())
	}
	var updated models.Category
	if err := json.NewDecoder(rec.Body).Decode(&updated); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if updated.Name != "Work" || updated.Color != "#123456" {
		t.Errorf("updated = %q/%q", updated.Name, updated.Color)
	}
}

func TestDeleteHandler_DetachesHabits(t *testing.T) {
	f := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	cat, err := f.store.Create(ctx, f.uid, "Doomed", "")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	habit, err := f.habits.Create(ctx, habits.CreateInput{UserID: f.uid, Title: "Survivor", CategoryID: &cat.ID})
	if err != nil {
		t.Fatalf("habit Create() error = %v", err)
	}

	rec := f.do(t, f.h.DeleteHandler, http.MethodDelete, "/"+cat.ID.Hex(), nil, cat.ID.Hex())
	if rec.Code != http.StatusNoContent {
		t.Fatalf("DeleteHandler() status = %d: %s", rec.Code, rec.Body.String())
	}

	if _, err := f.store.GetByID(ctx, f.uid, cat.ID); err == nil {
		t.Error("category should be gone")
	}
	got, err := f.habits.GetByID(ctx, f.uid, habit.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.CategoryID != nil {
		t.Error("habit should be detached from the deleted category")
	}
}

func TestHandlers_UnknownCategory(t *testing.T) {
	f := setup(t)
	id := primitive.NewObjectID().Hex()

	rec := f.do(t, f.h.UpdateHandler, http.MethodPut, "/"+id, map[string]any{"name": "x"}, id)
	if rec.Code != http.StatusNotFound {
		t.Errorf("UpdateHandler() status = %d, want %d", rec.Code, http.StatusNotFound)
	}
	rec = f.do(t, f.h.DeleteHandler, http.MethodDelete, "/"+id, nil, id)
	if rec.Code != http.StatusNotFound {
		t.Errorf("DeleteHandler() status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}
