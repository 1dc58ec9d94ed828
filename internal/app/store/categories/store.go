// internal/app/store/categories/store.go
package categories

import (
	"context"
	"time"

	"github.com/dalemusser/stratahabit/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CollectionName is the MongoDB collection for habit categories.
const CollectionName = "categories"

// Store provides access to the categories collection. Category names are
// unique per user on the case-folded form.
type Store struct {
	c *mongo.Collection
}

// New creates a new category store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection(CollectionName)}
}

// EnsureIndexes creates necessary indexes for efficient querying.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "user_id", Value: 1},
				{Key: "name_ci", Value: 1},
			},
			Options: options.Index().SetUnique(true).SetName("idx_category_user_name_ci"),
		},
	}
	_, err := s.c.Indexes().CreateMany(ctx, indexes)
	return err
}

// Create creates a new category. Returns a duplicate-key error when the
// user already has a category with the same folded name.
func (s *Store) Create(ctx context.Context, userID primitive.ObjectID, name, color string) (*models.Category, error) {
	now := time.Now().UTC()
	if color == "" {
		color = models.DefaultCategoryColor
	}
	cat := models.Category{
		ID:        primitive.NewObjectID(),
		UserID:    userID,
		Name:      name,
		NameCI:    text.Fold(name),
		Color:     color,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if _, err := s.c.InsertOne(ctx, cat); err != nil {
		return nil, err
	}
	return &cat, nil
}

// GetByID retrieves a category owned by the given user.
func (s *Store) GetByID(ctx context.Context, userID, id primitive.ObjectID) (*models.Category, error) {
	var cat models.Category
	if err := s.c.FindOne(ctx, bson.M{"_id": id, "user_id": userID}).Decode(&cat); err != nil {
		return nil, err
	}
	return &cat, nil
}

// ListByUser returns the user's categories ordered by folded name.
func (s *Store) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Category, error) {
	opts := options.Find().SetSort(bson.D{{Key: "name_ci", Value: 1}})
	cur, err := s.c.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var cats []models.Category
	if err := cur.All(ctx, &cats); err != nil {
		return nil, err
	}
	return cats, nil
}

// UpdateInput contains the input for updating a category. Nil fields are
// left unchanged.
type UpdateInput struct {
	Name  *string
	Color *string
}

// Update updates a category owned by the given user.
func (s *Store) Update(ctx context.Context, userID, id primitive.ObjectID, input UpdateInput) error {
	set := bson.M{"updated_at": time.Now().UTC()}

	if input.Name != nil {
		set["name"] = *input.Name
		set["name_ci"] = text.Fold(*input.Name)
	}
	if input.Color != nil {
		set["color"] = *input.Color
	}

	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id, "user_id": userID}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// Delete removes a category owned by the given user. Detaching habits is
// the caller's job.
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

// ExistsByName checks whether the user already has a category whose
// folded name matches.
func (s *Store) ExistsByName(ctx context.Context, userID primitive.ObjectID, name string) (bool, error) {
	count, err := s.c.CountDocuments(ctx, bson.M{"user_id": userID, "name_ci": text.Fold(name)})
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
