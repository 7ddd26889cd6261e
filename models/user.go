package models

import (
	"time"

	"gorm.io/gorm"
)

// User roles and registration states.
const (
	RoleStudent = "student"
	RoleAdmin   = "admin"

	RegistrationPending  = "pending"
	RegistrationApproved = "approved"
)

// User represents a platform user. Passwords are stored as bcrypt hashes only.
type User struct {
	ID                 uint           `gorm:"primaryKey" json:"id"`
	Username           string         `gorm:"size:64;not null;uniqueIndex" json:"username"`
	Email              string         `gorm:"size:255" json:"email"`
	PasswordHash       string         `gorm:"size:255" json:"-"`
	Role               string         `gorm:"size:16;default:'student'" json:"role"`
	RegistrationStatus string         `gorm:"size:16;default:'approved'" json:"registration_status"`
	Provider           string         `gorm:"size:32" json:"provider"`
	ProviderID         string         `gorm:"size:255" json:"provider_id"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"-"`
}

// BeforeCreate hook ensures timestamps are set even when not provided.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	now := time.Now()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	return nil
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
