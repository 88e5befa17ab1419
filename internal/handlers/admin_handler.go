package handlers

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/servly/marketplace_be/internal/contract"
	"github.com/servly/marketplace_be/internal/escrow"
	"github.com/servly/marketplace_be/internal/models"
)

// AdminHandler serves the admin dashboard. Every route is behind
// RequireRoles("admin").
type AdminHandler struct {
	DB      *gorm.DB
	Service *contract.Service
	Store   contract.Store
}

func NewAdminHandler(db *gorm.DB, svc *contract.Service, store contract.Store) *AdminHandler {
	return &AdminHandler{DB: db, Service: svc, Store: store}
}

// Treasury reports the platform's money view, recomputed from the
// contract rows.
func (h *AdminHandler) Treasury(c *fiber.Ctx) error {
	contracts, err := h.Store.ListAll(c.Context())
	if err != nil {
		log.Println("Error listing contracts:", err)
		return c.Status(500).JSON(fiber.Map{"success": false, "message": "Failed to fetch contracts"})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"held_funds":        escrow.HeldFunds(contracts),
			"total_commissions": escrow.TotalCommissions(contracts),
			"contract_count":    len(contracts),
		},
	})
}

// Disputes is the admin review queue: contracts under or settled by dispute.
func (h *AdminHandler) Disputes(c *fiber.Ctx) error {
	contracts, err := h.Service.Disputed(c.Context())
	if err != nil {
		log.Println("Error listing disputes:", err)
		return c.Status(500).JSON(fiber.Map{"success": false, "message": "Failed to fetch disputes"})
	}

	return c.JSON(fiber.Map{"success": true, "data": contracts})
}

// GetExchangeRate returns the USD -> VEF display rate.
func (h *AdminHandler) GetExchangeRate(c *fiber.Ctx) error {
	var setting models.Setting
	if err := h.DB.First(&setting, "id = ?", models.SettingsRowID).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"success": false, "message": "Settings row missing"})
	}

	return c.JSON(fiber.Map{"success": true, "data": setting})
}

type ExchangeRateReq struct {
	ExchangeRate float64 `json:"exchange_rate"`
}

// SetExchangeRate updates the USD -> VEF display rate.
func (h *AdminHandler) SetExchangeRate(c *fiber.Ctx) error {
	var req ExchangeRateReq
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"success": false, "message": "Invalid body"})
	}
	if req.ExchangeRate <= 0 {
		return c.Status(422).JSON(fiber.Map{"success": false, "message": "Exchange rate must be positive"})
	}

	if err := h.DB.Model(&models.Setting{}).
		Where("id = ?", models.SettingsRowID).
		Update("exchange_rate", req.ExchangeRate).Error; err != nil {
		log.Println("Error updating exchange rate:", err)
		return c.Status(500).JSON(fiber.Map{"success": false, "message": "Failed to update exchange rate"})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Exchange rate updated",
		"data":    fiber.Map{"exchange_rate": req.ExchangeRate},
	})
}

// Users lists every account for the admin panel.
func (h *AdminHandler) Users(c *fiber.Ctx) error {
	var users []models.User
	if err := h.DB.
		Preload("ProviderProfile").
		Order("created_at DESC").
		Find(&users).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"success": false, "message": "Failed to fetch users"})
	}

	return c.JSON(fiber.Map{"success": true, "data": users})
}

type SetActiveReq struct {
	IsActive bool `json:"is_active"`
}

// SetUserActive toggles an account on or off.
func (h *AdminHandler) SetUserActive(c *fiber.Ctx) error {
	var req SetActiveReq
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"success": false, "message": "Invalid body"})
	}

	res := h.DB.Model(&models.User{}).
		Where("id = ?", c.Params("id")).
		Update("is_active", req.IsActive)
	if res.Error != nil {
		return c.Status(500).JSON(fiber.Map{"success": false, "message": "Failed to update user"})
	}
	if res.RowsAffected == 0 {
		return c.Status(404).JSON(fiber.Map{"success": false, "message": "User not found"})
	}

	return c.JSON(fiber.Map{"success": true, "message": "User updated"})
}
