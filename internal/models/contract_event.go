// internal/models/contract_event.go
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// ContractEvent is an append-only audit row written for every applied
// transition. The contract row itself only keeps the latest stance per
// party, so this is the place to look when reconstructing what happened.
type ContractEvent struct {
	ID         uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ContractID uuid.UUID `gorm:"type:uuid;index" json:"contract_id"`

	// Nil for system-applied transitions.
	ActorID *uuid.UUID `gorm:"type:uuid;index" json:"actor_id,omitempty"`

	Action     string         `gorm:"type:varchar(30)" json:"action"`
	FromStatus ContractStatus `gorm:"type:varchar(30)" json:"from_status"`
	ToStatus   ContractStatus `gorm:"type:varchar(30)" json:"to_status"`
	Payload    datatypes.JSON `json:"payload,omitempty"`

	CreatedAt time.Time `json:"created_at"`

	Contract *Contract `gorm:"foreignKey:ContractID" json:"contract,omitempty"`
}
