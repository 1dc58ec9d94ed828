// internal/domain/models/user.go
package models

// Terminology: User Identifiers
//   - UserID / userID / user_id: The MongoDB ObjectID (_id) that uniquely identifies a user record
//   - LoginID / loginID / login_id: The human-readable string users type to log in

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User represents users of the application.
//
// Auth fields:
//   - LoginID: What the user types to identify themselves (stored lowercase)
//   - LoginIDCI: Case/diacritic-insensitive version for matching (folded)
//   - Email: Contact email (optional, stored lowercase)
//   - AuthMethod: google, password
type User struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	FullName   string             `bson:"full_name" json:"full_name"`
	FullNameCI string             `bson:"full_name_ci" json:"full_name_ci"` // lowercase, diacritics-stripped

	// Authentication fields
	LoginID    *string `bson:"login_id" json:"login_id"`       // User identifier (lowercase)
	LoginIDCI  *string `bson:"login_id_ci" json:"login_id_ci"` // Folded for case/diacritic-insensitive matching
	Email      *string `bson:"email" json:"email"`             // Contact email (lowercase, optional)
	AuthMethod string  `bson:"auth_method" json:"auth_method"` // google, password

	// Password auth fields
	PasswordHash *string `bson:"password_hash,omitempty" json:"-"` // bcrypt hash (never in JSON)

	// Role and status
	Role   string `bson:"role" json:"role"`                         // admin, member
	Status string `bson:"status,omitempty" json:"status,omitempty"` // active, disabled

	// User preferences
	// Timezone is the IANA zone ID the user's "local calendar day" is
	// computed in for every log operation. Empty means UTC.
	Timezone        string `bson:"timezone,omitempty" json:"timezone,omitempty"`
	ThemePreference string `bson:"theme_preference,omitempty" json:"theme_preference,omitempty"` // light, dark, system (empty = system)

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// User roles
const (
	RoleAdmin  = "admin"
	RoleMember = "member"
)

// AllRoles returns all valid user roles.
func AllRoles() []string {
	return []string{
		RoleAdmin,
		RoleMember,
	}
}

// IsValidRole checks if a role is valid.
func IsValidRole(role string) bool {
	for _, r := range AllRoles() {
		if r == role {
			return true
		}
	}
	return false
}

// Location resolves the user's timezone preference to a *time.Location,
// falling back to UTC when unset or unknown.
func (u *User) Location() *time.Location {
	if u.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(u.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
