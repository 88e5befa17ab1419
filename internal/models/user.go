package models

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleClient   Role = "client"
	RoleProvider Role = "provider"
	RoleAdmin    Role = "admin"
)

// internal/models/user.go
type User struct {
	ID    uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name  string    `gorm:"not null" json:"name"`
	Email string    `gorm:"uniqueIndex;not null" json:"email"`
	Phone string    `gorm:"type:varchar(30)" json:"phone"`

	Password string `gorm:"not null" json:"-"`
	Role     Role   `gorm:"type:varchar(20);not null;index" json:"role"`

	// Region the user operates in, free text from the signup form.
	State string `gorm:"type:varchar(80)" json:"state"`

	ProfileImageURL string `gorm:"type:text" json:"profile_image_url"`
	IsActive        bool   `gorm:"default:true" json:"is_active"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// HAS ONE provider_profile (provider_profiles.user_id -> users.id)
	ProviderProfile *ProviderProfile `gorm:"foreignKey:UserID;references:ID" json:"provider_profile,omitempty"`
}
