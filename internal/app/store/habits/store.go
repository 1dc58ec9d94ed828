// internal/app/store/habits/store.go
package habits

import (
	"context"
	"time"

	"github.com/dalemusser/stratahabit/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CollectionName is the MongoDB collection for habits.
const CollectionName = "habits"

// Store provides access to the habits collection. All queries are scoped
// to a single owning user; there is no cross-user read path.
type Store struct {
	c *mongo.Collection
}

// New creates a new habit store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection(CollectionName)}
}

// EnsureIndexes creates necessary indexes for efficient querying.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "is_active", Value: 1}},
			Options: options.Index().SetName("idx_habit_user_active"),
		},
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "category_id", Value: 1}},
			Options: options.Index().SetName("idx_habit_user_category"),
		},
	}
	_, err := s.c.Indexes().CreateMany(ctx, indexes)
	return err
}

// CreateInput contains the input for creating a habit.
type CreateInput struct {
	UserID      primitive.ObjectID
	Title       string
	Description string
	Icon        string
	CategoryID  *primitive.ObjectID
	Goal        *models.Goal // nil applies the default goal
}

// Create creates a new habit. New habits start active.
func (s *Store) Create(ctx context.Context, input CreateInput) (*models.Habit, error) {
	now := time.Now().UTC()
	goal := models.DefaultGoal()
	if input.Goal != nil {
		goal = *input.Goal
	}
	habit := models.Habit{
		ID:          primitive.NewObjectID(),
		UserID:      input.UserID,
		Title:       input.Title,
		Description: input.Description,
		Icon:        input.Icon,
		IsActive:    true,
		CategoryID:  input.CategoryID,
		Goal:        goal,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if _, err := s.c.InsertOne(ctx, habit); err != nil {
		return nil, err
	}
	return &habit, nil
}

// GetByID retrieves a habit owned by the given user. Returns
// mongo.ErrNoDocuments when the habit does not exist or belongs to
// someone else; callers cannot tell the difference.
func (s *Store) GetByID(ctx context.Context, userID, id primitive.ObjectID) (*models.Habit, error) {
	var habit models.Habit
	if err := s.c.FindOne(ctx, bson.M{"_id": id, "user_id": userID}).Decode(&habit); err != nil {
		return nil, err
	}
	return &habit, nil
}

// ListOptions contains options for listing habits.
type ListOptions struct {
	ActiveOnly bool
	CategoryID *primitive.ObjectID
}

// ListByUser returns the user's habits, ordered by creation time.
func (s *Store) ListByUser(ctx context.Context, userID primitive.ObjectID, opts ListOptions) ([]models.Habit, error) {
	filter := bson.M{"user_id": userID}
	if opts.ActiveOnly {
		filter["is_active"] = true
	}
	if opts.CategoryID != nil {
		filter["category_id"] = *opts.CategoryID
	}

	findOpts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cur, err := s.c.Find(ctx, filter, findOpts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var habits []models.Habit
	if err := cur.All(ctx, &habits); err != nil {
		return nil, err
	}
	return habits, nil
}

// UpdateInput contains the input for updating a habit. Nil fields are
// left unchanged. ClearCategory detaches the habit from its category.
type UpdateInput struct {
	Title         *string
	Description   *string
	Icon          *string
	CategoryID    *primitive.ObjectID
	ClearCategory bool
	Goal          *models.Goal
}

// Update updates a habit owned by the given user.
func (s *Store) Update(ctx context.Context, userID, id primitive.ObjectID, input UpdateInput) error {
	set := bson.M{"updated_at": time.Now().UTC()}
	unset := bson.M{}

	if input.Title != nil {
		set["title"] = *input.Title
	}
	if input.Description != nil {
		set["description"] = *input.Description
	}
	if input.Icon != nil {
		set["icon"] = *input.Icon
	}
	if input.ClearCategory {
		unset["category_id"] = ""
	} else if input.CategoryID != nil {
		set["category_id"] = *input.CategoryID
	}
	if input.Goal != nil {
		set["goal"] = *input.Goal
	}

	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}

	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id, "user_id": userID}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// SetActive pauses or resumes a habit. Paused habits stay visible and
// keep their history; they only stop accepting new completions.
func (s *Store) SetActive(ctx context.Context, userID, id primitive.ObjectID, active bool) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "user_id": userID},
		bson.M{"$set": bson.M{"is_active": active, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// Delete removes a habit owned by the given user. Log cleanup is the
// caller's job.
func (s *Store) Delete(ctx context.Context, userID, id primitive.ObjectID) error {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id, "user_id": userID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// DetachCategory clears category_id on every habit of the user that
// references the category. Called when the category is deleted.
func (s *Store) DetachCategory(ctx context.Context, userID, categoryID primitive.ObjectID) (int64, error) {
	res, err := s.c.UpdateMany(ctx,
		bson.M{"user_id": userID, "category_id": categoryID},
		bson.M{
			"$unset": bson.M{"category_id": ""},
			"$set":   bson.M{"updated_at": time.Now().UTC()},
		},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// CountByCategory returns the number of habits per category for a user,
// keyed by category hex ID. Habits without a category are omitted.
func (s *Store) CountByCategory(ctx context.Context, userID primitive.ObjectID) (map[string]int, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"user_id":     userID,
			"category_id": bson.M{"$ne": nil},
		}}},
		{{Key: "$group", Value: bson.M{
			"_id":   "$category_id",
			"count": bson.M{"$sum": 1},
		}}},
	}

	cur, err := s.c.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var rows []struct {
		CategoryID primitive.ObjectID `bson:"_id"`
		Count      int                `bson:"count"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}

	counts := make(map[string]int, len(rows))
	for _, r := range rows {
		counts[r.CategoryID.Hex()] = r.Count
	}
	return counts, nil
}
