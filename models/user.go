package models

import (
	"time"

	"gorm.io/gorm"
)

// Roles a user can hold. Anything else (including the empty string)
// is treated as RoleUser for authorization checks.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User represents a site account. Passwords are stored as bcrypt hashes only.
type User struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	FullName      string    `gorm:"size:128;not null" json:"full_name"`
	Email         string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	PasswordHash  string    `gorm:"size:255" json:"-"`
	PhotoURL      string    `gorm:"size:512" json:"photo_url"`
	Role          string    `gorm:"size:16;default:'user'" json:"role"`
	EmailVerified bool      `gorm:"default:false" json:"email_verified"`
	Provider      string    `gorm:"size:32" json:"provider"`
	ProviderID    string    `gorm:"size:255" json:"provider_id"`
	RegisterIP    string    `gorm:"size:45" json:"-"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	Comments      []Comment `json:"-"`
	Posts         []Post    `gorm:"foreignKey:AuthorID" json:"-"`
}

// IsAdmin reports whether the stored role grants administrator rights.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// BeforeCreate hook ensures timestamps and a usable role are set even when not provided.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	now := time.Now()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	if u.Role == "" {
		u.Role = RoleUser
	}
	return nil
}

// BeforeUpdate ensures the UpdatedAt timestamp is refreshed.
func (u *User) BeforeUpdate(tx *gorm.DB) error {
	u.UpdatedAt = time.Now()
	return nil
}
