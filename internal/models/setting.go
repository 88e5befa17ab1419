// internal/models/setting.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// SettingsRowID is the fixed primary key of the single settings row.
var SettingsRowID = uuid.MustParse("00000000-0000-0000-0000-000000000001")

// Setting holds platform-wide knobs the admin can change at runtime.
// There is exactly one row.
type Setting struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	// USD -> VEF conversion used for display at deposit time.
	ExchangeRate float64 `gorm:"default:1" json:"exchange_rate"`

	UpdatedAt time.Time `json:"updated_at"`
}
