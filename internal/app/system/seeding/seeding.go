// internal/app/system/seeding/seeding.go
package seeding

// Terminology: User Identifiers
//   - UserID / userID / user_id: The MongoDB ObjectID (_id) that uniquely identifies a user record
//   - LoginID / loginID / login_id: The human-readable string users type to log in

import (
	"context"
	"strings"
	"time"

	"github.com/dalemusser/stratahabit/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// SeedAdmin ensures an admin user exists for the given email.
// If a user already exists with this login_id, they are promoted to admin.
// If no user exists, a new admin account is created with Google auth, so
// the seeded admin signs in via OAuth with that email.
func SeedAdmin(ctx context.Context, db *mongo.Database, email string, name string, logger *zap.Logger) error {
	coll := db.Collection("users")

	email = strings.ToLower(strings.TrimSpace(email))
	if name == "" {
		name = "Admin"
	}

	var existing models.User
	err := coll.FindOne(ctx, bson.M{"login_id": email}).Decode(&existing)

	if err == nil {
		if existing.Role == "admin" {
			logger.Debug("admin user already configured", zap.String("login_id", email))
			return nil
		}

		_, err = coll.UpdateByID(ctx, existing.ID, bson.M{
			"$set": bson.M{
				"role":       "admin",
				"updated_at": time.Now().UTC(),
			},
		})
		if err != nil {
			return err
		}
		logger.Info("promoted existing user to admin",
			zap.String("login_id", email),
			zap.String("user_id", existing.ID.Hex()),
			zap.String("previous_role", existing.Role))
		return nil
	}

	if err != mongo.ErrNoDocuments {
		return err
	}

	now := time.Now().UTC()
	admin := models.User{
		ID:         primitive.NewObjectID(),
		FullName:   name,
		FullNameCI: text.Fold(name),
		Email:      &email,
		LoginID:    &email,
		LoginIDCI:  ptrString(text.Fold(email)),
		AuthMethod: "google",
		Role:       "admin",
		Status:     "active",
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if _, err := coll.InsertOne(ctx, admin); err != nil {
		return err
	}

	logger.Info("created admin user",
		zap.String("login_id", email),
		zap.String("user_id", admin.ID.Hex()))
	return nil
}

func ptrString(s string) *string {
	return &s
}
