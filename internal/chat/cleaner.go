// Package chat owns conversation upkeep around the contract lifecycle:
// wiping threads when a contract settles and screening message text for
// contact details shared outside the platform.
package chat

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/servly/marketplace_be/internal/models"
)

// Cleaner deletes conversations once a contract reaches a terminal state,
// so stale negotiation threads don't outlive the engagement.
type Cleaner struct {
	DB *gorm.DB
}

func NewCleaner(db *gorm.DB) *Cleaner {
	return &Cleaner{DB: db}
}

// ClearBetween removes every conversation (and its messages) between the
// two users, in either direction.
func (cl *Cleaner) ClearBetween(ctx context.Context, userA, userB uuid.UUID) error {
	var convs []models.Conversation
	err := cl.DB.WithContext(ctx).
		Where("(client_id = ? AND provider_id = ?) OR (client_id = ? AND provider_id = ?)",
			userA, userB, userB, userA).
		Find(&convs).Error
	if err != nil {
		return fmt.Errorf("chat: find conversations: %w", err)
	}
	if len(convs) == 0 {
		return nil
	}

	ids := make([]uuid.UUID, 0, len(convs))
	for _, c := range convs {
		ids = append(ids, c.ID)
	}

	return cl.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("conversation_id IN ?", ids).Delete(&models.Message{}).Error; err != nil {
			return fmt.Errorf("chat: delete messages: %w", err)
		}
		if err := tx.Where("conversation_id IN ?", ids).Delete(&models.ConversationMemberRead{}).Error; err != nil {
			return fmt.Errorf("chat: delete read markers: %w", err)
		}
		if err := tx.Where("id IN ?", ids).Delete(&models.Conversation{}).Error; err != nil {
			return fmt.Errorf("chat: delete conversations: %w", err)
		}
		return nil
	})
}

// ClearAdminThreads removes each party's mediation thread with every admin
// account, used when a dispute is withdrawn or resolved.
func (cl *Cleaner) ClearAdminThreads(ctx context.Context, partyA, partyB uuid.UUID) error {
	var admins []models.User
	if err := cl.DB.WithContext(ctx).Where("role = ?", models.RoleAdmin).Find(&admins).Error; err != nil {
		return fmt.Errorf("chat: find admins: %w", err)
	}

	for _, admin := range admins {
		for _, party := range []uuid.UUID{partyA, partyB} {
			if err := cl.ClearBetween(ctx, party, admin.ID); err != nil {
				return err
			}
		}
	}
	return nil
}
