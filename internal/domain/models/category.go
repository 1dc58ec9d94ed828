// internal/domain/models/category.go
package models

import (
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DefaultCategoryColor is used when a category is created without a color.
const DefaultCategoryColor = "#e5e7eb"

var hexColorRe = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// Category groups a user's habits. Names are unique per user
// (case-insensitively); deleting a category detaches its habits rather
// than deleting them.
type Category struct {
	ID     primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID primitive.ObjectID `bson:"user_id" json:"-"`
	Name   string             `bson:"name" json:"name"`
	NameCI string             `bson:"name_ci" json:"name_ci"` // folded for unique matching
	Color  string             `bson:"color" json:"color"`     // hex, e.g. "#e5e7eb"

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// IsValidColor checks if a color is a #rrggbb hex string.
func IsValidColor(c string) bool {
	return hexColorRe.MatchString(c)
}
