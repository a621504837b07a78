// internal/domain/models/user.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User represents admins, team leaders, and members.
//
// NOTE:
//   - Teams lists every team the user belongs to, as member or as leader.
//     It is rewritten whenever team membership changes.
//   - Users are soft-deleted by clearing IsActive.
type User struct {
	ID           primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	FullName     string               `bson:"full_name" json:"full_name"`
	FullNameCI   string               `bson:"full_name_ci" json:"-"` // lowercase, diacritics-stripped
	Email        string               `bson:"email" json:"email"`
	PasswordHash string               `bson:"password_hash,omitempty" json:"-"`
	Role         string               `bson:"role" json:"role"` // admin | team_leader | member
	Teams        []primitive.ObjectID `bson:"teams" json:"teams"`
	IsActive     bool                 `bson:"is_active" json:"is_active"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
