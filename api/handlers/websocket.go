package handlers

import (
	"log"

	"github.com/gin-gonic/gin"

	"github.com/nikhathmuzawar/pickplace-app/internal/ws"
)

// WebSocketHandler routes the relay sockets.
type WebSocketHandler struct {
	wsHandler *ws.Handler
}

// NewWebSocketHandler creates a new WebSocketHandler.
func NewWebSocketHandler(wsHandler *ws.Handler) *WebSocketHandler {
	return &WebSocketHandler{
		wsHandler: wsHandler,
	}
}

// Ingest handles WS /ws, the raw frame and telemetry feed.
func (h *WebSocketHandler) Ingest(c *gin.Context) {
	if err := h.wsHandler.HandleIngest(c.Writer, c.Request); err != nil {
		// The upgrader has already written the HTTP error
		log.Printf("Ingest upgrade failed: %v", err)
	}
}

// Device handles WS /ws/device.
func (h *WebSocketHandler) Device(c *gin.Context) {
	if err := h.wsHandler.HandleDevice(c.Writer, c.Request); err != nil {
		log.Printf("Device upgrade failed: %v", err)
	}
}

// Client handles WS /ws/client/:id. The path id is informational; the
// registry assigns the session id.
func (h *WebSocketHandler) Client(c *gin.Context) {
	if err := h.wsHandler.HandleClient(c.Writer, c.Request); err != nil {
		log.Printf("Client %s upgrade failed: %v", c.Param("id"), err)
	}
}

// RegisterRoutes registers the WebSocket routes on the root router.
func (h *WebSocketHandler) RegisterRoutes(r gin.IRoutes) {
	r.GET("/ws", h.Ingest)
	r.GET("/ws/device", h.Device)
	r.GET("/ws/client/:id", h.Client)
}
