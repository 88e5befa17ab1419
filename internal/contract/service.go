package contract

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/servly/marketplace_be/internal/models"
)

// PlatformCommissionRate is the provider-side commission fixed on every
// contract at creation.
const PlatformCommissionRate = 0.10

// Store is the persistence the service needs. Update must be
// compare-and-swap on the contract version: a write against a stale read
// returns ErrConflictingWrite and changes nothing.
type Store interface {
	Create(ctx context.Context, c *models.Contract) error
	Get(ctx context.Context, id uuid.UUID) (models.Contract, error)
	Update(ctx context.Context, c *models.Contract) error
	ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Contract, error)
	ListAll(ctx context.Context) ([]models.Contract, error)
	ListByStatus(ctx context.Context, statuses ...models.ContractStatus) ([]models.Contract, error)
	HasOpenContract(ctx context.Context, clientID, providerID uuid.UUID) (bool, error)
	LatestBetween(ctx context.Context, userA, userB uuid.UUID) (models.Contract, error)
	AppendEvent(ctx context.Context, ev *models.ContractEvent) error
}

// Notifier receives side effects after a transition is durably committed.
// Implementations must not block the transition; failures are logged and
// swallowed because the persisted contract is the source of truth.
type Notifier interface {
	// ConversationShouldClear wipes the chat thread between the two parties.
	ConversationShouldClear(ctx context.Context, partyA, partyB uuid.UUID) error
	// AdminConversationsShouldClear wipes each party's thread with the admin
	// once a dispute stops being mediated.
	AdminConversationsShouldClear(ctx context.Context, partyA, partyB uuid.UUID) error
	// ContractChanged pushes the updated contract to both parties.
	ContractChanged(c models.Contract, outcome Outcome)
}

type Service struct {
	store  Store
	notify Notifier
}

func NewService(store Store, notify Notifier) *Service {
	return &Service{store: store, notify: notify}
}

// Create opens a new pending contract from a client's service request.
// At most one non-final contract may exist per client/provider pair.
func (s *Service) Create(ctx context.Context, clientID, providerID uuid.UUID, serviceTitle string, serviceRate float64) (models.Contract, error) {
	if serviceRate <= 0 {
		return models.Contract{}, fmt.Errorf("create with rate %.2f: %w", serviceRate, ErrInvalidAmount)
	}
	if clientID == providerID {
		return models.Contract{}, fmt.Errorf("create: client and provider are the same user: %w", ErrUnauthorized)
	}

	open, err := s.store.HasOpenContract(ctx, clientID, providerID)
	if err != nil {
		return models.Contract{}, fmt.Errorf("contract: check open contracts: %w", err)
	}
	if open {
		return models.Contract{}, ErrOpenContractExists
	}

	c := models.Contract{
		ID:             uuid.New(),
		ClientID:       clientID,
		ProviderID:     providerID,
		ServiceTitle:   serviceTitle,
		ServiceRate:    serviceRate,
		Status:         models.ContractPending,
		ClientAction:   models.ClientNone,
		ProviderAction: models.ProviderNone,
		CommissionRate: PlatformCommissionRate,
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}
	if err := s.store.Create(ctx, &c); err != nil {
		return models.Contract{}, fmt.Errorf("contract: create: %w", err)
	}

	s.recordEvent(ctx, c, &clientID, "create", models.ContractPending)
	s.notify.ContractChanged(c, OutcomeWaiting)
	return c, nil
}

// MakeOffer applies the provider's offer with the negotiated rate.
func (s *Service) MakeOffer(ctx context.Context, contractID, providerID uuid.UUID, newRate float64) (Decision, error) {
	return s.transition(ctx, contractID, &providerID, "make_offer", func(c models.Contract) (Decision, error) {
		return Offer(c, providerID, newRate)
	})
}

// DepositFunds applies the client's accept-offer/deposit.
func (s *Service) DepositFunds(ctx context.Context, contractID, clientID uuid.UUID) (Decision, error) {
	return s.transition(ctx, contractID, &clientID, "deposit", func(c models.Contract) (Decision, error) {
		return Deposit(c, clientID)
	})
}

// SubmitAction applies a party's finalize/cancel/dispute/cancel_dispute.
func (s *Service) SubmitAction(ctx context.Context, contractID, actorID uuid.UUID, action PartyAction) (Decision, error) {
	return s.transition(ctx, contractID, &actorID, string(action), func(c models.Contract) (Decision, error) {
		return Apply(c, actorID, action)
	})
}

// ResolveDispute applies the dispute authority's terminal ruling. The
// caller must have verified the actor holds the admin role.
func (s *Service) ResolveDispute(ctx context.Context, contractID, adminID uuid.UUID, resolution models.DisputeResolution) (Decision, error) {
	return s.transition(ctx, contractID, &adminID, "resolve_dispute", func(c models.Contract) (Decision, error) {
		return Resolve(c, resolution)
	})
}

// transition runs the read -> decide -> CAS-write -> dispatch pipeline
// shared by every mutating operation. The decision only becomes the
// reported result after the write is acknowledged; a stale write surfaces
// as ErrConflictingWrite with the contract untouched.
func (s *Service) transition(ctx context.Context, contractID uuid.UUID, actorID *uuid.UUID, action string, decide func(models.Contract) (Decision, error)) (Decision, error) {
	current, err := s.store.Get(ctx, contractID)
	if err != nil {
		return Decision{}, err
	}

	d, err := decide(current)
	if err != nil {
		return Decision{}, err
	}

	if err := s.store.Update(ctx, &d.Next); err != nil {
		return Decision{}, err
	}

	s.recordEvent(ctx, d.Next, actorID, action, current.Status)
	s.dispatch(ctx, d)
	return d, nil
}

func (s *Service) dispatch(ctx context.Context, d Decision) {
	c := d.Next
	s.notify.ContractChanged(c, d.Outcome)

	if d.Terminal() {
		if err := s.notify.ConversationShouldClear(ctx, c.ClientID, c.ProviderID); err != nil {
			log.Printf("contract %s: conversation cleanup failed: %v", c.ID, err)
		}
	}
	// Leaving mediation, one way or the other: drop the admin threads too.
	if d.Outcome == OutcomeDisputeWithdrawn || d.Outcome == OutcomeResolved {
		if err := s.notify.AdminConversationsShouldClear(ctx, c.ClientID, c.ProviderID); err != nil {
			log.Printf("contract %s: admin conversation cleanup failed: %v", c.ID, err)
		}
	}
}

func (s *Service) recordEvent(ctx context.Context, c models.Contract, actorID *uuid.UUID, action string, from models.ContractStatus) {
	payload, _ := json.Marshal(map[string]any{
		"service_rate":     c.ServiceRate,
		"client_action":    c.ClientAction,
		"provider_action":  c.ProviderAction,
		"client_deposited": c.ClientDeposited,
	})
	ev := models.ContractEvent{
		ContractID: c.ID,
		ActorID:    actorID,
		Action:     action,
		FromStatus: from,
		ToStatus:   c.Status,
		Payload:    payload,
	}
	// The audit trail is best effort; the contract row is authoritative.
	if err := s.store.AppendEvent(ctx, &ev); err != nil {
		log.Printf("contract %s: append event failed: %v", c.ID, err)
	}
}

// Get returns a single contract, restricted to its parties and the admin.
func (s *Service) Get(ctx context.Context, contractID, userID uuid.UUID, role models.Role) (models.Contract, error) {
	c, err := s.store.Get(ctx, contractID)
	if err != nil {
		return models.Contract{}, err
	}
	if _, isParty := c.PartyOf(userID); !isParty && role != models.RoleAdmin {
		return models.Contract{}, fmt.Errorf("get %s: %w", contractID, ErrUnauthorized)
	}
	return c, nil
}

// ForUser returns the contracts visible to a user: their own, or every
// contract for the admin.
func (s *Service) ForUser(ctx context.Context, userID uuid.UUID, role models.Role) ([]models.Contract, error) {
	if role == models.RoleAdmin {
		return s.store.ListAll(ctx)
	}
	return s.store.ListForUser(ctx, userID)
}

// Disputed returns every contract currently or previously under dispute,
// for the admin review queue.
func (s *Service) Disputed(ctx context.Context) ([]models.Contract, error) {
	return s.store.ListByStatus(ctx, models.ContractDisputed, models.ContractFinalizedByDispute)
}

// LatestBetween returns the most recent contract between two users, in
// either direction. Used by the chat screen to anchor the thread.
func (s *Service) LatestBetween(ctx context.Context, userA, userB uuid.UUID) (models.Contract, error) {
	return s.store.LatestBetween(ctx, userA, userB)
}
