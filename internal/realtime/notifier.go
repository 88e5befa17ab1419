// internal/realtime/notifier.go
package realtime

import (
	"context"
	"encoding/json"
	"log"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/servly/marketplace_be/internal/chat"
	"github.com/servly/marketplace_be/internal/contract"
	"github.com/servly/marketplace_be/internal/models"
)

// ContractNotifier wires the contract service's side effects to the rest of
// the system: websocket pushes to both parties, a Redis publish for other
// instances, and conversation cleanup through the chat package.
type ContractNotifier struct {
	Hub     *Hub
	RDB     *redis.Client
	Cleaner *chat.Cleaner
}

func NewContractNotifier(hub *Hub, rdb *redis.Client, cleaner *chat.Cleaner) *ContractNotifier {
	return &ContractNotifier{Hub: hub, RDB: rdb, Cleaner: cleaner}
}

var _ contract.Notifier = (*ContractNotifier)(nil)

func (n *ContractNotifier) ContractChanged(c models.Contract, outcome contract.Outcome) {
	event := map[string]interface{}{
		"type":     "contract_update",
		"outcome":  outcome,
		"contract": c,
	}
	n.Hub.SendToParties(c.ClientID, c.ProviderID, event)

	payload, _ := json.Marshal(event)
	for _, userID := range []uuid.UUID{c.ClientID, c.ProviderID} {
		if err := n.RDB.Publish(context.Background(), "notifications:"+userID.String(), payload).Err(); err != nil {
			log.Printf("redis publish for %s failed: %v", userID, err)
		}
	}
}

func (n *ContractNotifier) ConversationShouldClear(ctx context.Context, partyA, partyB uuid.UUID) error {
	return n.Cleaner.ClearBetween(ctx, partyA, partyB)
}

func (n *ContractNotifier) AdminConversationsShouldClear(ctx context.Context, partyA, partyB uuid.UUID) error {
	return n.Cleaner.ClearAdminThreads(ctx, partyA, partyB)
}
