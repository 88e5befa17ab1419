package contract

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/servly/marketplace_be/internal/models"
)

// GormStore persists contracts in Postgres through GORM. Updates use an
// optimistic version check so a transition computed against a stale read
// never overwrites a newer write.
type GormStore struct {
	DB *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{DB: db}
}

func (s *GormStore) Create(ctx context.Context, c *models.Contract) error {
	return s.DB.WithContext(ctx).Create(c).Error
}

func (s *GormStore) Get(ctx context.Context, id uuid.UUID) (models.Contract, error) {
	var c models.Contract
	err := s.DB.WithContext(ctx).First(&c, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Contract{}, ErrNotFound
	}
	if err != nil {
		return models.Contract{}, fmt.Errorf("contract: get %s: %w", id, err)
	}
	return c, nil
}

// Update writes the contract back, guarded by the version it was read at.
// Zero rows affected means somebody else won the race (or the row is gone)
// and the caller must re-read.
func (s *GormStore) Update(ctx context.Context, c *models.Contract) error {
	res := s.DB.WithContext(ctx).Model(&models.Contract{}).
		Where("id = ? AND version = ?", c.ID, c.Version).
		Updates(map[string]any{
			"service_rate":       c.ServiceRate,
			"status":             c.Status,
			"client_deposited":   c.ClientDeposited,
			"client_action":      c.ClientAction,
			"provider_action":    c.ProviderAction,
			"dispute_resolution": c.DisputeResolution,
			"version":            gorm.Expr("version + 1"),
			"updated_at":         time.Now(),
		})
	if res.Error != nil {
		return fmt.Errorf("contract: update %s: %w", c.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		var exists int64
		s.DB.WithContext(ctx).Model(&models.Contract{}).Where("id = ?", c.ID).Count(&exists)
		if exists == 0 {
			return ErrNotFound
		}
		return ErrConflictingWrite
	}
	c.Version++
	return nil
}

func (s *GormStore) ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Contract, error) {
	var out []models.Contract
	err := s.DB.WithContext(ctx).
		Where("client_id = ? OR provider_id = ?", userID, userID).
		Order("created_at DESC").
		Find(&out).Error
	return out, err
}

func (s *GormStore) ListAll(ctx context.Context) ([]models.Contract, error) {
	var out []models.Contract
	err := s.DB.WithContext(ctx).Order("created_at DESC").Find(&out).Error
	return out, err
}

func (s *GormStore) ListByStatus(ctx context.Context, statuses ...models.ContractStatus) ([]models.Contract, error) {
	var out []models.Contract
	err := s.DB.WithContext(ctx).
		Where("status IN ?", statuses).
		Order("updated_at DESC").
		Find(&out).Error
	return out, err
}

// HasOpenContract reports whether a pending/offered/active contract already
// links the pair. Backs the one-open-contract-per-pair rule.
func (s *GormStore) HasOpenContract(ctx context.Context, clientID, providerID uuid.UUID) (bool, error) {
	var n int64
	err := s.DB.WithContext(ctx).Model(&models.Contract{}).
		Where("client_id = ? AND provider_id = ?", clientID, providerID).
		Where("status IN ?", []models.ContractStatus{
			models.ContractPending, models.ContractOffered, models.ContractActive,
		}).
		Count(&n).Error
	return n > 0, err
}

func (s *GormStore) LatestBetween(ctx context.Context, userA, userB uuid.UUID) (models.Contract, error) {
	var c models.Contract
	err := s.DB.WithContext(ctx).
		Where("(client_id = ? AND provider_id = ?) OR (client_id = ? AND provider_id = ?)",
			userA, userB, userB, userA).
		Order("created_at DESC").
		First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Contract{}, ErrNotFound
	}
	if err != nil {
		return models.Contract{}, fmt.Errorf("contract: latest between %s and %s: %w", userA, userB, err)
	}
	return c, nil
}

func (s *GormStore) AppendEvent(ctx context.Context, ev *models.ContractEvent) error {
	return s.DB.WithContext(ctx).Create(ev).Error
}
