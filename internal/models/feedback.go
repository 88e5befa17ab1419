// internal/models/feedback.go
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type FeedbackType string

const (
	FeedbackPositive FeedbackType = "positive"
	FeedbackNeutral  FeedbackType = "neutral"
	FeedbackNegative FeedbackType = "negative"
)

// Feedback is the client's one-time rating of a provider for a finalized
// contract. Immutable once created.
type Feedback struct {
	ID         uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ContractID uuid.UUID `gorm:"type:uuid;index;unique" json:"contract_id"`
	ClientID   uuid.UUID `gorm:"type:uuid;index" json:"client_id"`
	ProviderID uuid.UUID `gorm:"type:uuid;index" json:"provider_id"`

	Type    FeedbackType `gorm:"type:varchar(10);not null" json:"type"`
	Comment string       `gorm:"type:text" json:"comment"`

	CreatedAt time.Time `json:"created_at"`

	// Relations
	Contract *Contract `gorm:"foreignKey:ContractID" json:"contract,omitempty"`
	Client   *User     `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	Provider *User     `gorm:"foreignKey:ProviderID" json:"provider,omitempty"`
}

func (f *Feedback) BeforeCreate(tx *gorm.DB) (err error) {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	return
}
