package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"sponup-backend/internal/middleware"
	"sponup-backend/internal/models"
	"sponup-backend/internal/services"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Hub keeps the live connections of this replica
type Hub interface {
	Register(userID string, conn *websocket.Conn)
	Unregister(userID string, conn *websocket.Conn)
	SendToUser(userID string, message services.WSMessage) error
}

// Snapshotter sends a user every list they subscribe to
type Snapshotter interface {
	Snapshot(ctx context.Context, userID string, role models.Role)
}

// WebSocketHandler handles WebSocket connections
type WebSocketHandler struct {
	hub    Hub
	tokens middleware.TokenValidator
	feed   Snapshotter
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(hub Hub, tokens middleware.TokenValidator, feed Snapshotter) *WebSocketHandler {
	return &WebSocketHandler{
		hub:    hub,
		tokens: tokens,
		feed:   feed,
	}
}

// HandleWebSocket handles GET /ws?token=
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		respondError(w, "token required", http.StatusUnauthorized)
		return
	}

	claims, err := h.tokens.ValidateJWT(token)
	if err != nil {
		respondError(w, "invalid token", http.StatusUnauthorized)
		return
	}
	userID, role := claims.UserID, claims.Role

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}
	defer conn.Close()

	h.hub.Register(userID, conn)
	defer h.hub.Unregister(userID, conn)

	log.Info().Str("user_id", userID).Str("role", string(role)).Msg("WebSocket connection established")

	ctx := r.Context()
	h.feed.Snapshot(ctx, userID, role)

	for {
		_, messageBytes, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().Err(err).Str("user_id", userID).Msg("WebSocket error")
			}
			break
		}

		var msg services.WSMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			log.Error().Err(err).Str("user_id", userID).Msg("Failed to parse WebSocket message")
			h.sendError(userID, "Invalid message format")
			continue
		}

		h.handleMessage(ctx, userID, role, msg)
	}

	log.Info().Str("user_id", userID).Msg("WebSocket connection closed")
}

// handleMessage processes incoming WebSocket messages
func (h *WebSocketHandler) handleMessage(ctx context.Context, userID string, role models.Role, msg services.WSMessage) {
	switch msg.Type {
	case "refresh":
		h.feed.Snapshot(ctx, userID, role)
	case "ping":
		if err := h.hub.SendToUser(userID, services.WSMessage{Type: "pong"}); err != nil {
			log.Error().Err(err).Str("user_id", userID).Msg("Failed to send pong")
		}
	default:
		h.sendError(userID, "Unknown message type")
	}
}

// sendError sends an error message to a user
func (h *WebSocketHandler) sendError(userID, message string) {
	msg := services.WSMessage{
		Type:    services.MessageError,
		Message: message,
	}
	if err := h.hub.SendToUser(userID, msg); err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to send error message")
	}
}
