package contract

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/servly/marketplace_be/internal/models"
)

// PartyAction is an action a contract party can submit once the contract
// exists. Offers and deposits have their own entry points.
type PartyAction string

const (
	ActionFinalize      PartyAction = "finalize"
	ActionCancel        PartyAction = "cancel"
	ActionDispute       PartyAction = "dispute"
	ActionCancelDispute PartyAction = "cancel_dispute"
)

// Outcome is the interpreted result of an applied transition, so dashboards
// render from it instead of re-deriving meaning from raw fields.
type Outcome string

const (
	OutcomeOfferMade        Outcome = "offer_made"
	OutcomeDeposited        Outcome = "deposited"
	OutcomeWaiting          Outcome = "waiting_counterparty"
	OutcomeFinalized        Outcome = "finalized"
	OutcomeCancelled        Outcome = "cancelled"
	OutcomeDisputed         Outcome = "disputed"
	OutcomeDisputeWithdrawn Outcome = "dispute_withdrawn"
	OutcomeResolved         Outcome = "resolved"
)

// Decision is the computed result of a transition: the full next contract
// value plus how to read it. Nothing is persisted here.
type Decision struct {
	Next    models.Contract
	Outcome Outcome
	Message string
}

// Terminal reports whether the decision settled or cancelled the contract,
// which is what triggers conversation cleanup.
func (d Decision) Terminal() bool {
	return d.Next.Status.IsTerminal()
}

// Offer computes the provider's offer transition: pending -> offered.
// The rate is mutable exactly here and nowhere else.
func Offer(c models.Contract, providerID uuid.UUID, newRate float64) (Decision, error) {
	if providerID != c.ProviderID {
		return Decision{}, fmt.Errorf("offer by %s: %w", providerID, ErrUnauthorized)
	}
	if c.Status != models.ContractPending {
		return Decision{}, fmt.Errorf("offer on %s contract: %w", c.Status, ErrInvalidState)
	}
	if newRate <= 0 {
		return Decision{}, fmt.Errorf("offer of %.2f: %w", newRate, ErrInvalidAmount)
	}

	c.ServiceRate = newRate
	c.Status = models.ContractOffered
	c.ProviderAction = models.ProviderMakeOffer
	c.UpdatedAt = time.Now()

	return Decision{
		Next:    c,
		Outcome: OutcomeOfferMade,
		Message: fmt.Sprintf("Offer of $%.2f sent, waiting for the client to deposit.", newRate),
	}, nil
}

// Deposit computes the client's accept-offer transition: offered -> active.
// This is the point where funds are conceptually placed in escrow.
func Deposit(c models.Contract, clientID uuid.UUID) (Decision, error) {
	if clientID != c.ClientID {
		return Decision{}, fmt.Errorf("deposit by %s: %w", clientID, ErrUnauthorized)
	}
	if c.ClientDeposited {
		return Decision{}, fmt.Errorf("deposit: %w", ErrDuplicateAction)
	}
	if c.Status != models.ContractOffered {
		return Decision{}, fmt.Errorf("deposit on %s contract: %w", c.Status, ErrInvalidState)
	}

	c.ClientDeposited = true
	c.Status = models.ContractActive
	c.ClientAction = models.ClientAcceptOffer
	c.UpdatedAt = time.Now()

	return Decision{
		Next:    c,
		Outcome: OutcomeDeposited,
		Message: "Funds deposited, the contract is now active.",
	}, nil
}

// Apply computes the transition for a party action on an existing contract.
// The actor must be one of the two parties; the admin goes through Resolve.
func Apply(c models.Contract, actorID uuid.UUID, action PartyAction) (Decision, error) {
	isClient, isParty := c.PartyOf(actorID)
	if !isParty {
		return Decision{}, fmt.Errorf("action %s by %s: %w", action, actorID, ErrUnauthorized)
	}

	switch action {
	case ActionCancel, ActionFinalize:
		// Unilateral withdrawal is allowed while no funds are at risk.
		if action == ActionCancel && (c.Status == models.ContractPending || c.Status == models.ContractOffered) {
			return cancelBeforeDeposit(c, isClient), nil
		}
		return bilateral(c, isClient, action)
	case ActionDispute:
		return openDispute(c, isClient)
	case ActionCancelDispute:
		return withdrawDispute(c, isClient)
	default:
		return Decision{}, fmt.Errorf("action %q: %w", action, ErrInvalidState)
	}
}

func cancelBeforeDeposit(c models.Contract, isClient bool) Decision {
	c.Status = models.ContractCancelled
	if isClient {
		c.ClientAction = models.ClientCancel
	} else {
		c.ProviderAction = models.ProviderCancel
	}
	c.UpdatedAt = time.Now()
	return Decision{
		Next:    c,
		Outcome: OutcomeCancelled,
		Message: "The contract has been cancelled.",
	}
}

// bilateral handles finalize/cancel on an active contract. This is the
// rendezvous: one party's action only settles the contract if it meets the
// other party's matching stance, and a mismatch escalates to a dispute
// instead of letting either side win.
func bilateral(c models.Contract, isClient bool, action PartyAction) (Decision, error) {
	if c.Status != models.ContractActive {
		return Decision{}, fmt.Errorf("%s on %s contract: %w", action, c.Status, ErrInvalidState)
	}

	mine := string(c.ProviderAction)
	other := string(c.ClientAction)
	if isClient {
		mine, other = other, mine
	}
	if mine == string(action) {
		return Decision{}, fmt.Errorf("%s: %w", action, ErrDuplicateAction)
	}

	if isClient {
		c.ClientAction = models.ClientAction(action)
	} else {
		c.ProviderAction = models.ProviderAction(action)
	}
	c.UpdatedAt = time.Now()

	next, outcome := rendezvous(action, other)
	c.Status = next

	var msg string
	switch outcome {
	case OutcomeFinalized:
		msg = "Contract finalized by both parties."
	case OutcomeCancelled:
		msg = "Contract cancelled by both parties."
	case OutcomeDisputed:
		msg = "The parties disagree; the contract is now disputed."
	default:
		msg = fmt.Sprintf("Your %s has been recorded, waiting for the other party.", action)
	}

	return Decision{Next: c, Outcome: outcome, Message: msg}, nil
}

// rendezvous resolves one party's freshly submitted finalize/cancel against
// the other party's last recorded action.
func rendezvous(submitted PartyAction, other string) (models.ContractStatus, Outcome) {
	switch {
	case submitted == ActionFinalize && other == string(ActionFinalize):
		return models.ContractFinalized, OutcomeFinalized
	case submitted == ActionCancel && other == string(ActionCancel):
		return models.ContractCancelled, OutcomeCancelled
	case other == string(ActionFinalize) || other == string(ActionCancel):
		// Conflicting intents: neither side may override the other.
		return models.ContractDisputed, OutcomeDisputed
	default:
		return models.ContractActive, OutcomeWaiting
	}
}

func openDispute(c models.Contract, isClient bool) (Decision, error) {
	if c.Status != models.ContractActive || !c.ClientDeposited {
		return Decision{}, fmt.Errorf("dispute on %s contract: %w", c.Status, ErrInvalidState)
	}

	if isClient {
		c.ClientAction = models.ClientDispute
	} else if c.ProviderAction == models.ProviderFinalize {
		// Keep the provider's finalize stance recoverable.
		c.ProviderAction = models.ProviderDisputeFromFinalize
	} else {
		c.ProviderAction = models.ProviderDispute
	}
	c.Status = models.ContractDisputed
	c.UpdatedAt = time.Now()

	return Decision{
		Next:    c,
		Outcome: OutcomeDisputed,
		Message: "The contract is now disputed and will be reviewed by an administrator.",
	}, nil
}

// withdrawDispute reverts disputed -> active. Only the party whose recorded
// action is a dispute variant may do it; the counterparty cannot close a
// dispute they did not open.
func withdrawDispute(c models.Contract, isClient bool) (Decision, error) {
	if c.Status != models.ContractDisputed {
		return Decision{}, fmt.Errorf("cancel_dispute on %s contract: %w", c.Status, ErrInvalidState)
	}

	switch {
	case isClient && c.ClientAction == models.ClientDispute:
		// Back to the neutral post-deposit stance.
		c.ClientAction = models.ClientAcceptOffer
	case !isClient && c.ProviderAction == models.ProviderDisputeFromFinalize:
		c.ProviderAction = models.ProviderFinalize
	case !isClient && c.ProviderAction == models.ProviderDispute:
		c.ProviderAction = models.ProviderNone
	default:
		return Decision{}, fmt.Errorf("cancel_dispute by non-initiator: %w", ErrUnauthorized)
	}

	c.Status = models.ContractActive
	c.UpdatedAt = time.Now()

	return Decision{
		Next:    c,
		Outcome: OutcomeDisputeWithdrawn,
		Message: "Dispute withdrawn, the contract is active again.",
	}, nil
}

// Resolve computes the admin ruling on a disputed contract. It is terminal
// and requires no consent from either party. A second ruling is rejected by
// the status check, so funds cannot be released twice.
func Resolve(c models.Contract, resolution models.DisputeResolution) (Decision, error) {
	if c.Status != models.ContractDisputed {
		return Decision{}, fmt.Errorf("resolve on %s contract: %w", c.Status, ErrInvalidState)
	}
	if resolution != models.ResolutionToClient && resolution != models.ResolutionToProvider {
		return Decision{}, fmt.Errorf("resolve with %q: %w", resolution, ErrInvalidState)
	}

	c.Status = models.ContractFinalizedByDispute
	r := resolution
	c.DisputeResolution = &r
	c.UpdatedAt = time.Now()

	var msg string
	if resolution == models.ResolutionToClient {
		msg = fmt.Sprintf("Dispute resolved: $%.2f returned to the client.", c.ServiceRate)
	} else {
		msg = fmt.Sprintf("Dispute resolved: $%.2f released to the provider, minus commission.", c.ServiceRate*(1-c.CommissionRate))
	}

	return Decision{Next: c, Outcome: OutcomeResolved, Message: msg}, nil
}
