// internal/models/contract.go
package models

import (
	"time"

	"github.com/google/uuid"
)

type ContractStatus string

const (
	ContractPending            ContractStatus = "pending"             // waiting for provider offer
	ContractOffered            ContractStatus = "offered"             // provider sent a rate, waiting for deposit
	ContractActive             ContractStatus = "active"              // funds held in escrow
	ContractFinalized          ContractStatus = "finalized"           // both parties finalized
	ContractCancelled          ContractStatus = "cancelled"           // cancelled (pre-deposit or mutual)
	ContractDisputed           ContractStatus = "disputed"            // waiting for admin ruling
	ContractFinalizedByDispute ContractStatus = "finalized_by_dispute"
)

// IsTerminal reports whether no further party action can change the contract.
func (s ContractStatus) IsTerminal() bool {
	return s == ContractFinalized || s == ContractCancelled || s == ContractFinalizedByDispute
}

// ClientAction is the client's most recent recorded stance on a contract.
// Only the latest action is kept, not a log.
type ClientAction string

const (
	ClientNone          ClientAction = "none"
	ClientAcceptOffer   ClientAction = "accept_offer"
	ClientFinalize      ClientAction = "finalize"
	ClientCancel        ClientAction = "cancel"
	ClientDispute       ClientAction = "dispute"
	ClientCancelDispute ClientAction = "cancel_dispute"
)

// ProviderAction is the provider's most recent recorded stance.
type ProviderAction string

const (
	ProviderNone      ProviderAction = "none"
	ProviderMakeOffer ProviderAction = "make_offer"
	ProviderFinalize  ProviderAction = "finalize"
	ProviderCancel    ProviderAction = "cancel"
	ProviderDispute   ProviderAction = "dispute"
	// ProviderDisputeFromFinalize marks a dispute raised while the provider
	// had already signalled finalize, so withdrawing the dispute can restore
	// that stance instead of resetting it.
	ProviderDisputeFromFinalize ProviderAction = "dispute_from_finalize"
)

type DisputeResolution string

const (
	ResolutionToClient   DisputeResolution = "toClient"
	ResolutionToProvider DisputeResolution = "toProvider"
)

// Contract is the escrow engagement between a client and a provider.
// It is never deleted; terminal statuses are kept as history.
type Contract struct {
	ID         uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ClientID   uuid.UUID `gorm:"type:uuid;index" json:"client_id"`
	ProviderID uuid.UUID `gorm:"type:uuid;index" json:"provider_id"`

	// Copied from the provider listing at creation time, immutable after.
	ServiceTitle string `json:"service_title"`

	// USD. Mutable exactly once, by the provider's offer.
	ServiceRate float64 `json:"service_rate"`

	Status          ContractStatus `gorm:"type:varchar(30);index;default:pending" json:"status"`
	ClientDeposited bool           `gorm:"default:false" json:"client_deposited"`

	ClientAction   ClientAction   `gorm:"type:varchar(20);default:none" json:"client_action"`
	ProviderAction ProviderAction `gorm:"type:varchar(30);default:none" json:"provider_action"`

	// Fraction deducted from the provider payout at settlement. Fixed at creation.
	CommissionRate float64 `json:"commission_rate"`

	// Set exactly when status is finalized_by_dispute.
	DisputeResolution *DisputeResolution `gorm:"type:varchar(15)" json:"dispute_resolution,omitempty"`

	// Optimistic lock counter. Every update must match the version it read.
	Version int `gorm:"default:0" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Client   *User `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	Provider *User `gorm:"foreignKey:ProviderID" json:"provider,omitempty"`
}

// PartyOf reports which side of the contract the user is on, if any.
func (c *Contract) PartyOf(userID uuid.UUID) (isClient, isParty bool) {
	switch userID {
	case c.ClientID:
		return true, true
	case c.ProviderID:
		return false, true
	}
	return false, false
}
