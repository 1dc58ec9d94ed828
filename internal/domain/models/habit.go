// internal/domain/models/habit.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Goal frequencies and periods.
const (
	FrequencyDaily  = "daily"
	FrequencyWeekly = "weekly"

	GoalPeriodWeekly  = "weekly"
	GoalPeriodMonthly = "monthly"
)

// Goal is a habit's target specification: how often the habit recurs and
// how much of it counts as meeting the goal over the period.
type Goal struct {
	Frequency    string `bson:"frequency" json:"frequency"`                         // daily, weekly
	Period       string `bson:"period" json:"period"`                               // weekly, monthly
	TargetAmount int    `bson:"target_amount" json:"target_amount"`                 // e.g. 20 (days per month)
	AmountUnit   string `bson:"amount_unit,omitempty" json:"amount_unit,omitempty"` // e.g. "days", "sessions"
}

// Habit is a user-defined recurring task tracked daily. Habits are owned
// by exactly one user and never shared.
type Habit struct {
	ID          primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	UserID      primitive.ObjectID  `bson:"user_id" json:"-"`
	Title       string              `bson:"title" json:"title"`
	Description string              `bson:"description,omitempty" json:"description,omitempty"`
	Icon        string              `bson:"icon,omitempty" json:"icon,omitempty"` // single glyph, e.g. an emoji
	IsActive    bool                `bson:"is_active" json:"is_active"`           // paused habits reject mark, not undo
	CategoryID  *primitive.ObjectID `bson:"category_id,omitempty" json:"category_id,omitempty"`
	Goal        Goal                `bson:"goal" json:"goal"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// DefaultGoal is applied when a habit is created without one.
func DefaultGoal() Goal {
	return Goal{
		Frequency:    FrequencyDaily,
		Period:       GoalPeriodMonthly,
		TargetAmount: 20,
		AmountUnit:   "days",
	}
}

// IsValidFrequency checks if a goal frequency is valid.
func IsValidFrequency(f string) bool {
	return f == FrequencyDaily || f == FrequencyWeekly
}

// IsValidGoalPeriod checks if a goal period is valid.
func IsValidGoalPeriod(p string) bool {
	return p == GoalPeriodWeekly || p == GoalPeriodMonthly
}
