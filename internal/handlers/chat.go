package handlers

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/servly/marketplace_be/internal/chat"
	"github.com/servly/marketplace_be/internal/models"
	"github.com/servly/marketplace_be/internal/realtime"
)

type ChatHandler struct {
	DB  *gorm.DB
	Hub *realtime.Hub
	RDB *redis.Client
}

func NewChatHandler(db *gorm.DB, hub *realtime.Hub, rdb *redis.Client) *ChatHandler {
	return &ChatHandler{DB: db, Hub: hub, RDB: rdb}
}

// CreateOrGetConversation creates a new conversation or returns existing one
func (h *ChatHandler) CreateOrGetConversation(c *fiber.Ctx) error {
	userUUID, err := getUserUUID(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{
			"success": false,
			"message": "Unauthorized",
		})
	}

	var req struct {
		PeerID string `json:"peer_id"`
	}
	if err := c.BodyParser(&req); err != nil || req.PeerID == "" {
		return c.Status(400).JSON(fiber.Map{
			"success": false,
			"message": "peer_id required",
		})
	}

	peerUUID, err := uuid.Parse(req.PeerID)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{
			"success": false,
			"message": "Invalid peer ID",
		})
	}
	if peerUUID == userUUID {
		return c.Status(400).JSON(fiber.Map{
			"success": false,
			"message": "Cannot open a conversation with yourself",
		})
	}

	var me, peer models.User
	if err := h.DB.First(&me, "id = ?", userUUID).Error; err != nil {
		return c.Status(404).JSON(fiber.Map{
			"success": false,
			"message": "User not found",
		})
	}
	if err := h.DB.First(&peer, "id = ?", peerUUID).Error; err != nil {
		return c.Status(404).JSON(fiber.Map{
			"success": false,
			"message": "Peer not found",
		})
	}

	// The provider side of the pair holds the provider_id column. When a
	// provider messages a client (or an admin thread is opened) the roles
	// decide which column each user lands in.
	clientID, providerID := userUUID, peerUUID
	if me.Role == models.RoleProvider && peer.Role != models.RoleProvider {
		clientID, providerID = peerUUID, userUUID
	}

	var conv models.Conversation
	err = h.DB.
		Where("(client_id = ? AND provider_id = ?) OR (client_id = ? AND provider_id = ?)",
			clientID, providerID, providerID, clientID).
		Order("updated_at DESC").
		First(&conv).Error

	created := false
	if err == gorm.ErrRecordNotFound {
		conv = models.Conversation{
			ClientID:      clientID,
			ProviderID:    providerID,
			LastMessageAt: time.Now(),
		}
		if err := h.DB.Create(&conv).Error; err != nil {
			log.Println("Error creating conversation:", err)
			return c.Status(500).JSON(fiber.Map{
				"success": false,
				"message": "Failed to create conversation",
			})
		}
		created = true
	} else if err != nil {
		log.Println("Error fetching conversation:", err)
		return c.Status(500).JSON(fiber.Map{
			"success": false,
			"message": "Failed to fetch conversation",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"created": created,
		"data":    conv,
	})
}

type UserMini struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Role            string `json:"role"`
	ProviderProfile *struct {
		ServiceTitle    string `json:"service_title,omitempty"`
		ServiceImageURL string `json:"service_image_url,omitempty"`
	} `json:"provider_profile,omitempty"`
}

func userMiniOf(u *models.User) *UserMini {
	if u == nil {
		return nil
	}
	m := &UserMini{
		ID:   u.ID.String(),
		Name: u.Name,
		Role: string(u.Role),
	}
	if u.ProviderProfile != nil {
		m.ProviderProfile = &struct {
			ServiceTitle    string `json:"service_title,omitempty"`
			ServiceImageURL string `json:"service_image_url,omitempty"`
		}{
			ServiceTitle:    u.ProviderProfile.ServiceTitle,
			ServiceImageURL: u.ProviderProfile.ServiceImageURL,
		}
	}
	return m
}

type MessageMini struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	SenderID       string    `json:"sender_id"`
	Type           string    `json:"type"`
	Text           string    `json:"text"`
	IsRead         bool      `json:"is_read"`
	CreatedAt      time.Time `json:"created_at"`
}

type ConversationOut struct {
	ID          string    `json:"id"`
	ClientID    string    `json:"client_id"`
	ProviderID  string    `json:"provider_id"`
	UpdatedAt   time.Time `json:"updated_at"`
	UnreadCount int64     `json:"unread_count"`

	Client      *UserMini    `json:"client,omitempty"`
	Provider    *UserMini    `json:"provider,omitempty"`
	LastMessage *MessageMini `json:"last_message,omitempty"`
}

// GetConversations returns user's conversations
func (h *ChatHandler) GetConversations(c *fiber.Ctx) error {
	userUUID, err := getUserUUID(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"success": false, "message": "Unauthorized"})
	}

	var convs []models.Conversation
	if err := h.DB.
		Preload("Client").
		Preload("Client.ProviderProfile").
		Preload("Provider").
		Preload("Provider.ProviderProfile").
		Where("client_id = ? OR provider_id = ?", userUUID, userUUID).
		Order("last_message_at DESC").
		Find(&convs).Error; err != nil {

		log.Println("Error fetching conversations:", err)
		return c.Status(500).JSON(fiber.Map{"success": false, "message": "Failed to fetch conversations"})
	}

	out := make([]ConversationOut, 0, len(convs))

	for _, conv := range convs {
		// unread_count
		var unreadCount int64
		h.DB.Model(&models.Message{}).
			Where("conversation_id = ? AND sender_id != ? AND is_read = false", conv.ID, userUUID).
			Count(&unreadCount)

		// last_message
		var last models.Message
		var lastPtr *MessageMini = nil
		if err := h.DB.
			Where("conversation_id = ?", conv.ID).
			Order("created_at DESC").
			Limit(1).
			First(&last).Error; err == nil {

			lastPtr = &MessageMini{
				ID:             last.ID.String(),
				ConversationID: last.ConversationID.String(),
				SenderID:       last.SenderID.String(),
				Type:           last.Type,
				Text:           last.Text,
				IsRead:         last.IsRead,
				CreatedAt:      last.CreatedAt,
			}
		}

		out = append(out, ConversationOut{
			ID:          conv.ID.String(),
			ClientID:    conv.ClientID.String(),
			ProviderID:  conv.ProviderID.String(),
			UpdatedAt:   conv.LastMessageAt,
			UnreadCount: unreadCount,
			Client:      userMiniOf(conv.Client),
			Provider:    userMiniOf(conv.Provider),
			LastMessage: lastPtr,
		})
	}

	return c.JSON(fiber.Map{"success": true, "data": out})
}

// GetUnreadTotal returns the total count of unread messages across all conversations
func (h *ChatHandler) GetUnreadTotal(c *fiber.Ctx) error {
	userUUID, err := getUserUUID(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"success": false, "message": "Unauthorized"})
	}

	var count int64
	err = h.DB.Model(&models.Message{}).
		Joins("JOIN conversations ON messages.conversation_id = conversations.id").
		Where("(conversations.client_id = ? OR conversations.provider_id = ?) AND messages.sender_id != ? AND messages.is_read = false", userUUID, userUUID, userUUID).
		Count(&count).Error

	if err != nil {
		return c.Status(500).JSON(fiber.Map{"success": false, "message": "Failed to count unread messages"})
	}

	return c.JSON(fiber.Map{"success": true, "data": count})
}

type MessageResponse struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	SenderID       string    `json:"sender_id"`
	Type           string    `json:"type"`
	Text           string    `json:"text"`
	IsRead         bool      `json:"is_read"`
	CreatedAt      time.Time `json:"created_at"`
}

// conversationFor loads the conversation and checks the user is a member.
func (h *ChatHandler) conversationFor(c *fiber.Ctx, userUUID uuid.UUID) (*models.Conversation, error) {
	convUUID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return nil, c.Status(400).JSON(fiber.Map{
			"success": false,
			"message": "Invalid conversation ID",
		})
	}

	var conv models.Conversation
	if err := h.DB.First(&conv, "id = ?", convUUID).Error; err != nil {
		return nil, c.Status(404).JSON(fiber.Map{
			"success": false,
			"message": "Conversation not found",
		})
	}

	if conv.ClientID != userUUID && conv.ProviderID != userUUID {
		return nil, c.Status(403).JSON(fiber.Map{
			"success": false,
			"message": "Access denied",
		})
	}
	return &conv, nil
}

// GetMessages returns messages for a conversation
func (h *ChatHandler) GetMessages(c *fiber.Ctx) error {
	userUUID, err := getUserUUID(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{
			"success": false,
			"message": "Unauthorized",
		})
	}

	conv, ferr := h.conversationFor(c, userUUID)
	if conv == nil {
		return ferr
	}

	var messages []models.Message
	err = h.DB.
		Where("conversation_id = ?", conv.ID).
		Order("created_at ASC").
		Find(&messages).Error

	if err != nil {
		log.Println("Error fetching messages:", err)
		return c.Status(500).JSON(fiber.Map{
			"success": false,
			"message": "Failed to fetch messages",
		})
	}

	// Mark messages as read
	if err := h.DB.Model(&models.Message{}).
		Where("conversation_id = ? AND sender_id != ? AND is_read = false",
			conv.ID, userUUID).
		Updates(map[string]interface{}{
			"is_read": true,
			"read_at": time.Now(),
		}).Error; err != nil {
		log.Println("Error marking messages as read:", err)
		// Don't fail the request, just log it
	}

	var responses []MessageResponse
	for _, msg := range messages {
		responses = append(responses, MessageResponse{
			ID:             msg.ID.String(),
			ConversationID: msg.ConversationID.String(),
			SenderID:       msg.SenderID.String(),
			Type:           msg.Type,
			Text:           msg.Text,
			IsRead:         msg.IsRead,
			CreatedAt:      msg.CreatedAt,
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    responses,
	})
}

// MarkAsRead marks messages as read
func (h *ChatHandler) MarkAsRead(c *fiber.Ctx) error {
	userUUID, err := getUserUUID(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{
			"success": false,
			"message": "Unauthorized",
		})
	}

	conv, ferr := h.conversationFor(c, userUUID)
	if conv == nil {
		return ferr
	}

	var req struct {
		LastReadMessageID string `json:"last_read_message_id"`
	}
	c.BodyParser(&req)

	if err := h.DB.Model(&models.Message{}).
		Where("conversation_id = ? AND sender_id != ? AND is_read = false",
			conv.ID, userUUID).
		Updates(map[string]interface{}{
			"is_read": true,
			"read_at": time.Now(),
		}).Error; err != nil {
		log.Println("Error marking messages as read:", err)
		return c.Status(500).JSON(fiber.Map{
			"success": false,
			"message": "Failed to mark messages as read",
		})
	}

	if lastID, err := uuid.Parse(req.LastReadMessageID); err == nil {
		marker := models.ConversationMemberRead{
			ConversationID:    conv.ID,
			UserID:            userUUID,
			LastReadMessageID: lastID,
		}
		_ = h.DB.Where("conversation_id = ? AND user_id = ?", conv.ID, userUUID).
			Assign(map[string]interface{}{"last_read_message_id": lastID}).
			FirstOrCreate(&marker).Error
	}

	return c.JSON(fiber.Map{"success": true})
}

// SendMessage sends a message in a conversation
func (h *ChatHandler) SendMessage(c *fiber.Ctx) error {
	userUUID, err := getUserUUID(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{
			"success": false,
			"message": "Unauthorized",
		})
	}

	conv, ferr := h.conversationFor(c, userUUID)
	if conv == nil {
		return ferr
	}

	var req struct {
		Text string `json:"text"`
	}
	if err := c.BodyParser(&req); err != nil || req.Text == "" {
		return c.Status(400).JSON(fiber.Map{
			"success": false,
			"message": "Text is required",
		})
	}

	// Contact details are hidden until the parties have an escrow in place.
	text, redacted := chat.RedactContacts(req.Text)

	msg := models.Message{
		ConversationID: conv.ID,
		SenderID:       userUUID,
		Text:           text,
		IsRead:         false,
	}

	if err := h.DB.Create(&msg).Error; err != nil {
		log.Println("Error creating message:", err)
		return c.Status(500).JSON(fiber.Map{
			"success": false,
			"message": "Failed to send message",
		})
	}

	_ = h.DB.Model(&models.Conversation{}).
		Where("id = ?", conv.ID).
		Update("last_message_at", msg.CreatedAt).Error

	msgResp := MessageResponse{
		ID:             msg.ID.String(),
		ConversationID: msg.ConversationID.String(),
		SenderID:       msg.SenderID.String(),
		Type:           msg.Type,
		Text:           msg.Text,
		IsRead:         msg.IsRead,
		CreatedAt:      msg.CreatedAt,
	}

	// Broadcast via WebSocket to both users
	h.Hub.SendToParties(conv.ClientID, conv.ProviderID, fiber.Map{
		"type":    "new_message",
		"message": msgResp,
	})

	// Push notification for the recipient via Redis
	recipientID := conv.ClientID
	if userUUID == conv.ClientID {
		recipientID = conv.ProviderID
	}

	notif := map[string]interface{}{
		"type":            "chat_message",
		"conversation_id": conv.ID.String(),
		"sender_id":       userUUID.String(),
		"text":            msg.Text,
	}
	payload, _ := json.Marshal(notif)
	h.RDB.Publish(context.Background(), "notifications:"+recipientID.String(), payload)

	return c.JSON(fiber.Map{
		"success":  true,
		"redacted": redacted,
		"data":     msgResp,
	})
}

// WebSocketHandler handles WebSocket connections
func (h *ChatHandler) WebSocketHandler(c *websocket.Conn) {
	userID := c.Query("user_id")
	if userID == "" {
		log.Println("WebSocket: user_id parameter missing")
		c.Close()
		return
	}

	userUUID, err := uuid.Parse(userID)
	if err != nil {
		log.Println("WebSocket: invalid user_id:", userID, "error:", err)
		c.Close()
		return
	}

	log.Printf("WebSocket: user %s connected\n", userID)

	client := &realtime.Client{
		ID:     uuid.New().String(),
		UserID: userUUID,
		Conn:   &realtime.WebSocketConn{Conn: c},
		Send:   make(chan []byte, 256),
	}

	h.Hub.RegisterClient(client)
	defer func() {
		h.Hub.UnregisterClient(client)
		log.Printf("WebSocket: user %s disconnected\n", userID)
	}()

	// Send messages from hub to client
	go func() {
		for msg := range client.Send {
			if err := c.WriteMessage(websocket.TextMessage, msg); err != nil {
				log.Println("WebSocket write error:", err)
				return
			}
		}
	}()

	// Read messages from client (keep connection alive)
	for {
		var payload map[string]interface{}
		if err := c.ReadJSON(&payload); err != nil {
			log.Printf("WebSocket read error for user %s: %v\n", userID, err)
			break
		}

		// Handle ping/pong
		if msgType, ok := payload["type"].(string); ok && msgType == "pong" {
			continue
		}
	}
}
