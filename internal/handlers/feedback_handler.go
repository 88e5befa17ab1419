package handlers

import (
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/servly/marketplace_be/internal/models"
)

type FeedbackHandler struct {
	DB *gorm.DB
}

func NewFeedbackHandler(db *gorm.DB) *FeedbackHandler {
	return &FeedbackHandler{DB: db}
}

type CreateFeedbackReq struct {
	Type    string `json:"type"`
	Comment string `json:"comment"`
}

// Create records the client's one-time rating for a finalized contract and
// refreshes the provider's denormalized star rating.
func (h *FeedbackHandler) Create(c *fiber.Ctx) error {
	userID, err := getUserUUID(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"success": false, "message": "Unauthorized"})
	}

	contractID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"success": false, "message": "Invalid contract ID"})
	}

	var req CreateFeedbackReq
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"success": false, "message": "Invalid body"})
	}

	fbType := models.FeedbackType(strings.ToLower(strings.TrimSpace(req.Type)))
	switch fbType {
	case models.FeedbackPositive, models.FeedbackNeutral, models.FeedbackNegative:
	default:
		return c.Status(400).JSON(fiber.Map{"success": false, "message": "type must be positive, neutral or negative"})
	}

	var contract models.Contract
	if err := h.DB.First(&contract, "id = ?", contractID).Error; err != nil {
		return c.Status(404).JSON(fiber.Map{"success": false, "message": "Contract not found"})
	}

	if contract.ClientID != userID {
		return c.Status(403).JSON(fiber.Map{"success": false, "message": "Only the contract's client can leave feedback"})
	}
	if contract.Status != models.ContractFinalized && contract.Status != models.ContractFinalizedByDispute {
		return c.Status(409).JSON(fiber.Map{"success": false, "message": "Feedback is only allowed on finalized contracts"})
	}

	var existing int64
	h.DB.Model(&models.Feedback{}).Where("contract_id = ?", contractID).Count(&existing)
	if existing > 0 {
		return c.Status(409).JSON(fiber.Map{"success": false, "message": "Feedback already submitted for this contract"})
	}

	fb := models.Feedback{
		ContractID: contractID,
		ClientID:   contract.ClientID,
		ProviderID: contract.ProviderID,
		Type:       fbType,
		Comment:    strings.TrimSpace(req.Comment),
	}

	err = h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&fb).Error; err != nil {
			return err
		}

		// Recompute the provider's average from all their feedback rows.
		var avg float64
		row := tx.Model(&models.Feedback{}).
			Select("COALESCE(AVG(CASE type WHEN 'positive' THEN 5 WHEN 'neutral' THEN 3 ELSE 1 END), 0)").
			Where("provider_id = ?", contract.ProviderID).
			Row()
		if err := row.Scan(&avg); err != nil {
			return err
		}

		return tx.Model(&models.ProviderProfile{}).
			Where("user_id = ?", contract.ProviderID).
			Update("star_rating", avg).Error
	})
	if err != nil {
		log.Println("Error creating feedback:", err)
		return c.Status(500).JSON(fiber.Map{"success": false, "message": "Failed to save feedback"})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "Feedback saved",
		"data":    fb,
	})
}

// ForProvider lists a provider's feedback for their public page.
func (h *FeedbackHandler) ForProvider(c *fiber.Ctx) error {
	providerID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"success": false, "message": "Invalid provider ID"})
	}

	var rows []models.Feedback
	if err := h.DB.
		Preload("Client").
		Where("provider_id = ?", providerID).
		Order("created_at DESC").
		Find(&rows).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"success": false, "message": "Failed to fetch feedback"})
	}

	return c.JSON(fiber.Map{"success": true, "data": rows})
}
