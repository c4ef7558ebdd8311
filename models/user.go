package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Role is the account-level permission tier. It is the only authorization
// signal besides post authorship; there are no per-post ACLs.
type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
	RoleAdmin   Role = "admin"
)

// Privileged reports whether the role may act on content it does not own.
func (r Role) Privileged() bool {
	return r == RoleTeacher || r == RoleAdmin
}

// Valid reports whether r is one of the known role values.
func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleTeacher, RoleAdmin:
		return true
	}
	return false
}

// User represents an account. Passwords are stored as bcrypt hashes only.
type User struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`
	Username     string    `gorm:"size:64;uniqueIndex;not null" json:"username"`
	Email        string    `gorm:"size:255" json:"email"`
	PasswordHash string    `gorm:"size:255" json:"-"`
	Role         Role      `gorm:"size:16;not null;default:'student'" json:"role"`
	Provider     string    `gorm:"size:32" json:"provider"`
	ProviderID   string    `gorm:"size:255" json:"provider_id"`
	AvatarURL    string    `gorm:"size:512" json:"avatar_url"`
	Bio          string    `gorm:"size:255" json:"bio"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Posts        []Post    `gorm:"foreignKey:AuthorID" json:"-"`
	Comments     []Comment `gorm:"foreignKey:AuthorID" json:"-"`
}

// BeforeCreate assigns the id and defaults the role for new accounts.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.Role == "" {
		u.Role = RoleStudent
	}
	now := time.Now()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	return nil
}

// BeforeUpdate refreshes the UpdatedAt timestamp.
func (u *User) BeforeUpdate(tx *gorm.DB) error {
	u.UpdatedAt = time.Now()
	return nil
}
