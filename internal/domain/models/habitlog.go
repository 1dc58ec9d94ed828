// internal/domain/models/habitlog.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// HabitLog is one day's completion record for one habit. The store
// enforces at most one document per (user_id, habit_id, day); every write
// is an upsert keyed on that triple, and undo deletes the document so "no
// record ever existed" semantics hold for exports and audits.
type HabitLog struct {
	ID      primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID  primitive.ObjectID `bson:"user_id" json:"-"`
	HabitID primitive.ObjectID `bson:"habit_id" json:"habit_id"`

	// Day is the user's local calendar day as "YYYY-MM-DD"; it has no
	// time-of-day component and is never reinterpreted in another zone.
	Day    string `bson:"day" json:"date"`
	Status string `bson:"status" json:"status"`         // done, skipped, missed
	Note   string `bson:"note,omitempty" json:"note,omitempty"` // sanitized free text

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
