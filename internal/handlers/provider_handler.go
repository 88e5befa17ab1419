package handlers

import (
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/servly/marketplace_be/internal/models"
)

type ProviderHandler struct {
	DB *gorm.DB
}

func NewProviderHandler(db *gorm.DB) *ProviderHandler {
	return &ProviderHandler{DB: db}
}

// Categories returns the fixed service catalog for the listing filter.
func (h *ProviderHandler) Categories(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"success": true, "data": models.ServiceCategories})
}

type ProviderOut struct {
	UserID             string  `json:"user_id"`
	Name               string  `json:"name"`
	State              string  `json:"state"`
	ProfileImageURL    string  `json:"profile_image_url"`
	Category           string  `json:"category"`
	ServiceTitle       string  `json:"service_title"`
	ServiceDescription string  `json:"service_description"`
	ServiceImageURL    string  `json:"service_image_url"`
	Rate               float64 `json:"rate"`
	StarRating         float64 `json:"star_rating"`
}

func providerOut(u models.User) ProviderOut {
	out := ProviderOut{
		UserID:          u.ID.String(),
		Name:            u.Name,
		State:           u.State,
		ProfileImageURL: u.ProfileImageURL,
	}
	if p := u.ProviderProfile; p != nil {
		out.Category = p.Category
		out.ServiceTitle = p.ServiceTitle
		out.ServiceDescription = p.ServiceDescription
		out.ServiceImageURL = p.ServiceImageURL
		out.Rate = p.Rate
		out.StarRating = p.StarRating
	}
	return out
}

// List is the public provider listing, optionally filtered by category
// and state.
func (h *ProviderHandler) List(c *fiber.Ctx) error {
	category := strings.TrimSpace(c.Query("category"))
	state := strings.TrimSpace(c.Query("state"))

	q := h.DB.
		Model(&models.User{}).
		Preload("ProviderProfile").
		Joins("JOIN provider_profiles ON provider_profiles.user_id = users.id").
		Where("users.role = ? AND users.is_active = true", models.RoleProvider)

	if category != "" {
		q = q.Where("provider_profiles.category = ?", category)
	}
	if state != "" {
		q = q.Where("users.state = ?", state)
	}

	var users []models.User
	if err := q.Order("provider_profiles.star_rating DESC").Find(&users).Error; err != nil {
		log.Println("Error fetching providers:", err)
		return c.Status(500).JSON(fiber.Map{"success": false, "message": "Failed to fetch providers"})
	}

	out := make([]ProviderOut, 0, len(users))
	for _, u := range users {
		out = append(out, providerOut(u))
	}

	return c.JSON(fiber.Map{"success": true, "data": out})
}

// Get is the public provider detail page.
func (h *ProviderHandler) Get(c *fiber.Ctx) error {
	userID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"success": false, "message": "Invalid provider ID"})
	}

	var u models.User
	if err := h.DB.
		Preload("ProviderProfile").
		First(&u, "id = ? AND role = ?", userID, models.RoleProvider).Error; err != nil {
		return c.Status(404).JSON(fiber.Map{"success": false, "message": "Provider not found"})
	}

	return c.JSON(fiber.Map{"success": true, "data": providerOut(u)})
}

type UpdateProfileReq struct {
	Category           *string  `json:"category"`
	ServiceTitle       *string  `json:"service_title"`
	ServiceDescription *string  `json:"service_description"`
	ServiceImageURL    *string  `json:"service_image_url"`
	Rate               *float64 `json:"rate"`
}

// UpdateProfile lets a provider edit their own listing. Routes behind
// RequireRoles("provider").
func (h *ProviderHandler) UpdateProfile(c *fiber.Ctx) error {
	userID, err := getUserUUID(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"success": false, "message": "Unauthorized"})
	}

	var req UpdateProfileReq
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"success": false, "message": "Invalid body"})
	}

	updates := map[string]interface{}{}
	if req.Category != nil {
		updates["category"] = strings.TrimSpace(*req.Category)
	}
	if req.ServiceTitle != nil {
		updates["service_title"] = strings.TrimSpace(*req.ServiceTitle)
	}
	if req.ServiceDescription != nil {
		updates["service_description"] = strings.TrimSpace(*req.ServiceDescription)
	}
	if req.ServiceImageURL != nil {
		updates["service_image_url"] = strings.TrimSpace(*req.ServiceImageURL)
	}
	if req.Rate != nil {
		if *req.Rate <= 0 {
			return c.Status(422).JSON(fiber.Map{"success": false, "message": "Rate must be a positive amount"})
		}
		updates["rate"] = *req.Rate
	}
	if len(updates) == 0 {
		return c.Status(400).JSON(fiber.Map{"success": false, "message": "Nothing to update"})
	}

	res := h.DB.Model(&models.ProviderProfile{}).
		Where("user_id = ?", userID).
		Updates(updates)
	if res.Error != nil {
		log.Println("Error updating provider profile:", res.Error)
		return c.Status(500).JSON(fiber.Map{"success": false, "message": "Failed to update profile"})
	}
	if res.RowsAffected == 0 {
		return c.Status(404).JSON(fiber.Map{"success": false, "message": "Profile not found"})
	}

	var profile models.ProviderProfile
	if err := h.DB.First(&profile, "user_id = ?", userID).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"success": false, "message": "Failed to reload profile"})
	}

	return c.JSON(fiber.Map{"success": true, "message": "Profile updated", "data": profile})
}
