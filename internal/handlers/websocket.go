package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/thereayou/sneakyspeak/internal/database"
	"github.com/thereayou/sneakyspeak/internal/middleware"
	ws "github.com/thereayou/sneakyspeak/internal/websocket"
)

// WebSocketHandler upgrades authenticated requests into chat connections.
type WebSocketHandler struct {
	hub      *ws.Hub
	db       *database.Database
	handler  ws.EnvelopeHandler
	upgrader websocket.Upgrader
}

func NewWebSocketHandler(hub *ws.Hub, db *database.Database, handler ws.EnvelopeHandler) *WebSocketHandler {
	return &WebSocketHandler{
		hub:     hub,
		db:      db,
		handler: handler,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// TODO: restrict origin once the frontend host is fixed
				return true
			},
		},
	}
}

func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	userID, exists := c.Get(middleware.UserIDKey)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	user, err := h.db.GetUser(userID.(uint64))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	client := ws.NewClient(h.hub, conn, user.ID, user.Username)

	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump(h.handler)
}
