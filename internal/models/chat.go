// internal/models/chat.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// Conversation represents a chat conversation between two users. Besides
// client<->provider negotiation threads, disputes open threads between
// each party and the admin.
type Conversation struct {
	ID uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`

	ClientID   uuid.UUID `gorm:"type:uuid;index" json:"client_id"`
	ProviderID uuid.UUID `gorm:"type:uuid;index" json:"provider_id"`

	LastMessageAt time.Time `json:"last_message_at"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`

	Client   *User     `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	Provider *User     `gorm:"foreignKey:ProviderID" json:"provider,omitempty"`
	Messages []Message `gorm:"foreignKey:ConversationID" json:"messages,omitempty"`
}

type ConversationMemberRead struct {
	ID                uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ConversationID    uuid.UUID `gorm:"type:uuid;index" json:"conversation_id"`
	UserID            uuid.UUID `gorm:"type:uuid;index" json:"user_id"`
	LastReadMessageID uuid.UUID `gorm:"type:uuid" json:"last_read_message_id"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Message represents a message in a conversation
type Message struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	ConversationID uuid.UUID  `gorm:"type:uuid;index" json:"conversation_id"`
	SenderID       uuid.UUID  `gorm:"type:uuid;index" json:"sender_id"`
	Type           string     `gorm:"default:'text'" json:"type"` // text, system
	Text           string     `json:"text"`
	IsRead         bool       `gorm:"default:false" json:"is_read"`
	ReadAt         *time.Time `json:"read_at"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`

	// Preloaded relation
	Sender *User `gorm:"foreignKey:SenderID" json:"sender,omitempty"`
}
