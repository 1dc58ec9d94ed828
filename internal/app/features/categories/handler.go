// Package categories provides the category management API. Categories
// group a user's habits; names are unique per user and deleting a
// category detaches its habits instead of deleting them.
package categories

import (
	"encoding/json"
	"errors"
	"net/http"

	categorystore "github.com/dalemusser/stratahabit/internal/app/store/categories"
	"github.com/dalemusser/stratahabit/internal/app/store/habits"
	"github.com/dalemusser/stratahabit/internal/app/system/auth"
	"github.com/dalemusser/stratahabit/internal/app/system/htmlsanitize"
	"github.com/dalemusser/stratahabit/internal/app/system/jsonutil"
	"github.com/dalemusser/stratahabit/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// MaxNameLength caps category names.
const MaxNameLength = 100

// Handler handles category management requests.
type Handler struct {
	categories *categorystore.Store
	cache      *categorystore.Cache
	habits     *habits.Store
	logger     *zap.Logger
}

// NewHandler creates a new categories handler.
func NewHandler(categories *categorystore.Store, cache *categorystore.Cache, habits *habits.Store, logger *zap.Logger) *Handler {
	return &Handler{
		categories: categories,
		cache:      cache,
		habits:     habits,
		logger:     logger,
	}
}

// categoryView is one category in the list response, with the number of
// habits currently attached to it.
type categoryView struct {
	models.Category
	HabitCount int `json:"habit_count"`
}

// ListHandler handles GET /api/categories. Reads go through the
// TTL cache; the habit counts are live.
func (h *Handler) ListHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.CurrentUser(r)
	if !ok {
		jsonutil.Unauthorized(w, "sign in required")
		return
	}

	list, err := h.cache.ListByUser(r.Context(), user.UserID())
	if err != nil {
		h.logger.Error("category list failed", zap.Error(err))
		jsonutil.InternalError(w, "failed to load categories")
		return
	}

	counts, err := h.habits.CountByCategory(r.Context(), user.UserID())
	if err != nil {
		h.logger.Error("category count failed", zap.Error(err))
		jsonutil.InternalError(w, "failed to load categories")
		return
	}

	views := make([]categoryView, 0, len(list))
	for _, c := range list {
		views = append(views, categoryView{
			Category:   c,
			HabitCount: counts[c.ID.Hex()],
		})
	}
	jsonutil.OK(w, map[string]any{"categories": views})
}

type categoryInput struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

func (in *categoryInput) sanitizeAndValidate() string {
	in.Name = htmlsanitize.Plain(in.Name)
	if in.Name == "" {
		return "name is required"
	}
	if len(in.Name) > MaxNameLength {
		return "name too long"
	}
	if in.Color != "" && !models.IsValidColor(in.Color) {
		return "color must be a #rrggbb hex value"
	}
	return ""
}

// CreateHandler handles POST /api/categories.
func (h *Handler) CreateHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.CurrentUser(r)
	if !ok {
		jsonutil.Unauthorized(w, "sign in required")
		return
	}

	var in categoryInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		jsonutil.BadRequest(w, "invalid JSON payload")
		return
	}
	if msg := in.sanitizeAndValidate(); msg != "" {
		jsonutil.BadRequest(w, msg)
		return
	}

	cat, err := h.categories.Create(r.Context(), user.UserID(), in.Name, in.Color)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			jsonutil.Error(w, http.StatusConflict, "a category with that name already exists")
			return
		}
		h.logger.Error("category create failed", zap.String("name", in.Name), zap.Error(err))
		jsonutil.InternalError(w, "failed to create category")
		return
	}

	h.cache.Invalidate(user.UserID())
	jsonutil.Created(w, cat)
}

func (h *Handler) resolve(w http.ResponseWriter, r *http.Request) (*models.Category, *auth.SessionUser) {
	user, ok := auth.CurrentUser(r)
	if !ok {
		jsonutil.Unauthorized(w, "sign in required")
		return nil, nil
	}
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		jsonutil.BadRequest(w, "invalid category id")
		return nil, nil
	}
	cat, err := h.categories.GetByID(r.Context(), user.UserID(), id)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			jsonutil.NotFound(w, "category not found")
			return nil, nil
		}
		h.logger.Error("category lookup failed", zap.String("category_id", id.Hex()), zap.Error(err))
		jsonutil.InternalError(w, "category lookup failed")
		return nil, nil
	}
	return cat, user
}

// UpdateHandler handles PUT /api/categories/{id}.
func (h *Handler) UpdateHandler(w http.ResponseWriter, r *http.Request) {
	cat, user := h.resolve(w, r)
	if cat == nil {
		return
	}

	var in categoryInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		jsonutil.BadRequest(w, "invalid JSON payload")
		return
	}
	if msg := in.sanitizeAndValidate(); msg != "" {
		jsonutil.BadRequest(w, msg)
		return
	}

	upd := categorystore.UpdateInput{Name: &in.Name}
	if in.Color != "" {
		upd.Color = &in.Color
	}
	if err := h.categories.Update(r.Context(), user.UserID(), cat.ID, upd); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			jsonutil.Error(w, http.StatusConflict, "a category with that name already exists")
			return
		}
		h.logger.Error("category update failed", zap.String("category_id", cat.ID.Hex()), zap.Error(err))
		jsonutil.InternalError(w, "failed to update category")
		return
	}

	h.cache.Invalidate(user.UserID())
	updated, err := h.categories.GetByID(r.Context(), user.UserID(), cat.ID)
	if err != nil {
		jsonutil.InternalError(w, "failed to reload category")
		return
	}
	jsonutil.OK(w, updated)
}

// DeleteHandler handles DELETE /api/categories/{id}. Habits in the
// category survive and become uncategorized.
func (h *Handler) DeleteHandler(w http.ResponseWriter, r *http.Request) {
	cat, user := h.resolve(w, r)
	if cat == nil {
		return
	}

	detached, err := h.habits.DetachCategory(r.Context(), user.UserID(), cat.ID)
	if err != nil {
		h.logger.Error("category detach failed", zap.String("category_id", cat.ID.Hex()), zap.Error(err))
		jsonutil.InternalError(w, "failed to delete category")
		return
	}
	if err := h.categories.Delete(r.Context(), user.UserID(), cat.ID); err != nil {
		h.logger.Error("category delete failed", zap.String("category_id", cat.ID.Hex()), zap.Error(err))
		jsonutil.InternalError(w, "failed to delete category")
		return
	}

	h.cache.Invalidate(user.UserID())
	h.logger.Info("category deleted",
		zap.String("category_id", cat.ID.Hex()),
		zap.String("user_id", user.ID),
		zap.Int64("habits_detached", detached))
	jsonutil.NoContent(w)
}
