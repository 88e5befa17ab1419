package main

import (
	"context"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"
	"github.com/joho/godotenv"
	"gorm.io/gorm"

	"github.com/servly/marketplace_be/internal/chat"
	"github.com/servly/marketplace_be/internal/config"
	"github.com/servly/marketplace_be/internal/contract"
	"github.com/servly/marketplace_be/internal/db"
	"github.com/servly/marketplace_be/internal/handlers"
	"github.com/servly/marketplace_be/internal/middleware"
	"github.com/servly/marketplace_be/internal/models"
	"github.com/servly/marketplace_be/internal/realtime"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	gdb, err := db.Connect(cfg.DBDSN)
	if err != nil {
		log.Fatal(err)
	}

	rdb := realtime.NewRedis()
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		log.Fatal("Redis not reachable:", err)
	}

	hub := realtime.NewHub()
	go hub.Run()

	if err := gdb.AutoMigrate(
		&models.User{},
		&models.ProviderProfile{},
		&models.Contract{},
		&models.ContractEvent{},
		&models.Feedback{},
		&models.Conversation{},
		&models.Message{},
		&models.ConversationMemberRead{},
		&models.Setting{},
	); err != nil {
		log.Fatal(err)
	}
	seedSettings(gdb)

	cleaner := chat.NewCleaner(gdb)
	notifier := realtime.NewContractNotifier(hub, rdb, cleaner)
	store := contract.NewGormStore(gdb)
	contractSvc := contract.NewService(store, notifier)

	authH := &handlers.AuthHandler{
		DB:        gdb,
		JWTSecret: cfg.JWTSecret,
		Expires:   cfg.JWTExpiresMin,
	}
	googleH := &handlers.GoogleOAuthHandler{
		DB:              gdb,
		JWTSecret:       cfg.JWTSecret,
		Expires:         cfg.JWTExpiresMin,
		GoogleClientID:  cfg.GoogleClientID,
		GoogleSecret:    cfg.GoogleSecret,
		GoogleRedirect:  cfg.GoogleRedirect,
		FrontendBaseURL: cfg.FrontendBaseURL,
	}
	providerH := handlers.NewProviderHandler(gdb)
	contractH := handlers.NewContractHandler(gdb, contractSvc)
	feedbackH := handlers.NewFeedbackHandler(gdb)
	adminH := handlers.NewAdminHandler(gdb, contractSvc, store)
	chatH := handlers.NewChatHandler(gdb, hub, rdb)

	app := fiber.New()

	app.Use(cors.New(cors.Config{
		AllowOrigins:     "http://127.0.0.1:3000, http://localhost:3000",
		AllowMethods:     "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		ExposeHeaders:    "Content-Length",
		AllowCredentials: true,
	}))

	app.Options("/*", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})

	api := app.Group("/api")

	// public
	api.Post("/auth/register", authH.Register)
	api.Post("/auth/login", authH.Login)
	api.Post("/auth/logout", authH.Logout)
	api.Get("/auth/google/start", googleH.GoogleStart)
	api.Get("/auth/google/callback", googleH.GoogleCallback)
	api.Get("/categories", providerH.Categories)
	api.Get("/providers", providerH.List)
	api.Get("/providers/:id", providerH.Get)
	api.Get("/providers/:id/feedback", feedbackH.ForProvider)

	// protected (JWT)
	protected := api.Group("/",
		middleware.JWTFromCookie(cfg.JWTSecret),
		middleware.AttachJWTLocals(),
	)

	protected.Get("/me", func(c *fiber.Ctx) error {
		uid := c.Locals("userId")

		var user models.User
		if err := gdb.Preload("ProviderProfile").First(&user, "id = ?", uid).Error; err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"message": "User not found",
			})
		}

		return c.JSON(fiber.Map{
			"success": true,
			"data":    user,
		})
	})

	// contracts
	protected.Post("/contracts",
		middleware.RequireRoles("client"),
		contractH.Create,
	)
	protected.Get("/contracts", contractH.List)
	protected.Get("/contracts/with/:userId", contractH.LatestWith)
	protected.Get("/contracts/:id", contractH.Get)
	protected.Post("/contracts/:id/offer",
		middleware.RequireRoles("provider"),
		contractH.MakeOffer,
	)
	protected.Post("/contracts/:id/deposit",
		middleware.RequireRoles("client"),
		contractH.Deposit,
	)
	protected.Post("/contracts/:id/actions", contractH.SubmitAction)
	protected.Post("/contracts/:id/resolve",
		middleware.RequireRoles("admin"),
		contractH.Resolve,
	)

	// feedback
	protected.Post("/contracts/:id/feedback",
		middleware.RequireRoles("client"),
		feedbackH.Create,
	)

	// provider self-service
	protected.Put("/provider/profile",
		middleware.RequireRoles("provider"),
		providerH.UpdateProfile,
	)

	// chat
	chatGroup := protected.Group("/chat")
	chatGroup.Post("/conversations", chatH.CreateOrGetConversation)
	chatGroup.Get("/conversations", chatH.GetConversations)
	chatGroup.Get("/unread", chatH.GetUnreadTotal)
	chatGroup.Get("/conversations/:id/messages", chatH.GetMessages)
	chatGroup.Post("/conversations/:id/messages", chatH.SendMessage)
	chatGroup.Patch("/conversations/:id/read", chatH.MarkAsRead)

	// admin
	admin := protected.Group("/admin", middleware.RequireRoles("admin"))
	admin.Get("/treasury", adminH.Treasury)
	admin.Get("/disputes", adminH.Disputes)
	admin.Get("/exchange-rate", adminH.GetExchangeRate)
	admin.Put("/exchange-rate", adminH.SetExchangeRate)
	admin.Get("/users", adminH.Users)
	admin.Patch("/users/:id/active", adminH.SetUserActive)

	// WebSocket endpoint (auth via query param, no JWT middleware)
	app.Get("/ws/chat", websocket.New(chatH.WebSocketHandler))

	log.Fatal(app.Listen(":" + cfg.AppPort))
}

// seedSettings makes sure the single settings row exists.
func seedSettings(gdb *gorm.DB) {
	setting := models.Setting{ID: models.SettingsRowID, ExchangeRate: 1}
	if err := gdb.Where("id = ?", models.SettingsRowID).FirstOrCreate(&setting).Error; err != nil {
		log.Fatal("seed settings:", err)
	}
}
