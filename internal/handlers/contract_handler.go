package handlers

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/servly/marketplace_be/internal/contract"
	"github.com/servly/marketplace_be/internal/escrow"
	"github.com/servly/marketplace_be/internal/models"
)

type ContractHandler struct {
	DB      *gorm.DB
	Service *contract.Service
}

func NewContractHandler(db *gorm.DB, svc *contract.Service) *ContractHandler {
	return &ContractHandler{DB: db, Service: svc}
}

func roleOf(c *fiber.Ctx) models.Role {
	if r, ok := c.Locals("role").(string); ok {
		return models.Role(r)
	}
	return ""
}

// contractError maps the service's sentinel errors onto HTTP responses.
func contractError(c *fiber.Ctx, err error) error {
	var status int
	switch {
	case errors.Is(err, contract.ErrNotFound):
		status = fiber.StatusNotFound
	case errors.Is(err, contract.ErrUnauthorized):
		status = fiber.StatusForbidden
	case errors.Is(err, contract.ErrInvalidAmount):
		status = fiber.StatusUnprocessableEntity
	case errors.Is(err, contract.ErrInvalidState),
		errors.Is(err, contract.ErrDuplicateAction),
		errors.Is(err, contract.ErrOpenContractExists),
		errors.Is(err, contract.ErrConflictingWrite):
		status = fiber.StatusConflict
	default:
		log.Println("contract error:", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Internal server error",
		})
	}
	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"message": err.Error(),
	})
}

func decisionResponse(c *fiber.Ctx, d contract.Decision) error {
	return c.JSON(fiber.Map{
		"success": true,
		"message": d.Message,
		"data": fiber.Map{
			"contract":   d.Next,
			"outcome":    d.Outcome,
			"settlement": escrow.SettlementFor(d.Next),
		},
	})
}

type CreateContractReq struct {
	ProviderID   string  `json:"provider_id"`
	ServiceTitle string  `json:"service_title"`
	ServiceRate  float64 `json:"service_rate"`
}

// Create opens a pending contract: the client requests a provider's service.
func (h *ContractHandler) Create(c *fiber.Ctx) error {
	clientID, err := getUserUUID(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"success": false, "message": "Unauthorized"})
	}

	var req CreateContractReq
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"success": false, "message": "Invalid body"})
	}

	providerID, err := uuid.Parse(req.ProviderID)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"success": false, "message": "Invalid provider ID"})
	}

	title := req.ServiceTitle
	rate := req.ServiceRate
	if title == "" || rate <= 0 {
		// Fall back to the provider's advertised service.
		var profile models.ProviderProfile
		if err := h.DB.First(&profile, "user_id = ?", providerID).Error; err != nil {
			return c.Status(404).JSON(fiber.Map{"success": false, "message": "Provider not found"})
		}
		if title == "" {
			title = profile.ServiceTitle
		}
		if rate <= 0 {
			rate = profile.Rate
		}
	}

	created, err := h.Service.Create(c.Context(), clientID, providerID, title, rate)
	if err != nil {
		return contractError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "Service requested, waiting for the provider's offer.",
		"data":    created,
	})
}

// List returns the caller's contracts; admins see every contract.
func (h *ContractHandler) List(c *fiber.Ctx) error {
	userID, err := getUserUUID(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"success": false, "message": "Unauthorized"})
	}

	contracts, err := h.Service.ForUser(c.Context(), userID, roleOf(c))
	if err != nil {
		return contractError(c, err)
	}

	return c.JSON(fiber.Map{"success": true, "data": contracts})
}

// Get returns one contract with its settlement view.
func (h *ContractHandler) Get(c *fiber.Ctx) error {
	userID, err := getUserUUID(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"success": false, "message": "Unauthorized"})
	}

	contractID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"success": false, "message": "Invalid contract ID"})
	}

	found, err := h.Service.Get(c.Context(), contractID, userID, roleOf(c))
	if err != nil {
		return contractError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"contract":   found,
			"settlement": escrow.SettlementFor(found),
		},
	})
}

// LatestWith returns the newest contract between the caller and another user,
// used by the chat screen to anchor the thread.
func (h *ContractHandler) LatestWith(c *fiber.Ctx) error {
	userID, err := getUserUUID(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"success": false, "message": "Unauthorized"})
	}

	peerID, err := uuid.Parse(c.Params("userId"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"success": false, "message": "Invalid user ID"})
	}

	found, err := h.Service.LatestBetween(c.Context(), userID, peerID)
	if err != nil {
		if errors.Is(err, contract.ErrNotFound) {
			return c.JSON(fiber.Map{"success": true, "data": nil})
		}
		return contractError(c, err)
	}

	return c.JSON(fiber.Map{"success": true, "data": found})
}

type OfferReq struct {
	Rate float64 `json:"rate"`
}

// MakeOffer records the provider's offer with the negotiated rate.
func (h *ContractHandler) MakeOffer(c *fiber.Ctx) error {
	providerID, err := getUserUUID(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"success": false, "message": "Unauthorized"})
	}

	contractID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"success": false, "message": "Invalid contract ID"})
	}

	var req OfferReq
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"success": false, "message": "Invalid body"})
	}

	d, err := h.Service.MakeOffer(c.Context(), contractID, providerID, req.Rate)
	if err != nil {
		return contractError(c, err)
	}
	return decisionResponse(c, d)
}

// Deposit accepts the offer and places the funds in escrow. The response
// carries the full charge in USD and VEF so the client sees what they pay.
func (h *ContractHandler) Deposit(c *fiber.Ctx) error {
	clientID, err := getUserUUID(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"success": false, "message": "Unauthorized"})
	}

	contractID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"success": false, "message": "Invalid contract ID"})
	}

	d, err := h.Service.DepositFunds(c.Context(), contractID, clientID)
	if err != nil {
		return contractError(c, err)
	}

	charge := escrow.ClientCharge(d.Next.ServiceRate)

	var setting models.Setting
	exchangeRate := 1.0
	if err := h.DB.First(&setting, "id = ?", models.SettingsRowID).Error; err == nil {
		exchangeRate = setting.ExchangeRate
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": d.Message,
		"data": fiber.Map{
			"contract":      d.Next,
			"outcome":       d.Outcome,
			"charge_usd":    charge,
			"charge_vef":    charge * exchangeRate,
			"surcharge_usd": escrow.ClientSurcharge(d.Next.ServiceRate),
			"exchange_rate": exchangeRate,
		},
	})
}

type ActionReq struct {
	Action string `json:"action"`
}

// SubmitAction records a party's finalize/cancel/dispute/cancel_dispute.
func (h *ContractHandler) SubmitAction(c *fiber.Ctx) error {
	actorID, err := getUserUUID(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"success": false, "message": "Unauthorized"})
	}

	contractID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"success": false, "message": "Invalid contract ID"})
	}

	var req ActionReq
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"success": false, "message": "Invalid body"})
	}

	action := contract.PartyAction(req.Action)
	switch action {
	case contract.ActionFinalize, contract.ActionCancel, contract.ActionDispute, contract.ActionCancelDispute:
	default:
		return c.Status(400).JSON(fiber.Map{"success": false, "message": "Unknown action"})
	}

	d, err := h.Service.SubmitAction(c.Context(), contractID, actorID, action)
	if err != nil {
		return contractError(c, err)
	}
	return decisionResponse(c, d)
}

type ResolveReq struct {
	Resolution string `json:"resolution"`
}

// Resolve applies the admin's terminal ruling on a disputed contract.
// Routes behind RequireRoles("admin").
func (h *ContractHandler) Resolve(c *fiber.Ctx) error {
	adminID, err := getUserUUID(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"success": false, "message": "Unauthorized"})
	}

	contractID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"success": false, "message": "Invalid contract ID"})
	}

	var req ResolveReq
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"success": false, "message": "Invalid body"})
	}

	resolution := models.DisputeResolution(req.Resolution)
	if resolution != models.ResolutionToClient && resolution != models.ResolutionToProvider {
		return c.Status(400).JSON(fiber.Map{"success": false, "message": "resolution must be toClient or toProvider"})
	}

	d, err := h.Service.ResolveDispute(c.Context(), contractID, adminID, resolution)
	if err != nil {
		return contractError(c, err)
	}
	return decisionResponse(c, d)
}
