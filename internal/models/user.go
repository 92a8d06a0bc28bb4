package models

import (
	"time"

	"github.com/google/uuid"
)

// User represents an authenticated account (patient, doctor or admin).
type User struct {
	BaseModel
	UserName     string               `gorm:"uniqueIndex" json:"user_name"`
	FirstName    string               `json:"first_name"`
	LastName     string               `json:"last_name"`
	Email        string               `json:"email"`
	PasswordHash string               `json:"-"`
	IsActive     bool                 `json:"is_active"`
	Roles        []Role               `gorm:"many2many:user_roles" json:"roles,omitempty"`
	Folders      []PrescriptionFolder `json:"folders,omitempty"`
}

// Role is a named permission group attached to users.
type Role struct {
	BaseModel
	Name string `gorm:"uniqueIndex" json:"name"`
}

// RefreshToken is an opaque, revocable token paired with an access token.
type RefreshToken struct {
	BaseModel
	UserID    uuid.UUID  `gorm:"type:uuid;index" json:"user_id"`
	Token     string     `gorm:"uniqueIndex" json:"-"`
	ExpiresAt time.Time  `json:"expires_at"`
	RevokedAt *time.Time `json:"revoked_at"`
}

// Usable reports whether the token can still be exchanged.
func (t *RefreshToken) Usable(now time.Time) bool {
	return t.RevokedAt == nil && t.ExpiresAt.After(now)
}
