package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/quocanhngo/pricewatch/internal/model"
	"github.com/quocanhngo/pricewatch/internal/ws"
	"github.com/quocanhngo/pricewatch/pkg/auth"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // native wallet clients send no Origin
	},
}

// WSHandler streams triggered alerts to connected clients
type WSHandler struct {
	hub        *ws.Hub
	jwtManager *auth.JWTManager
	log        *zap.Logger
}

func NewWSHandler(hub *ws.Hub, jwtManager *auth.JWTManager, log *zap.Logger) *WSHandler {
	return &WSHandler{hub: hub, jwtManager: jwtManager, log: log}
}

// HandleWebSocket upgrades HTTP to WebSocket.
// Client connects with: ws://host/ws?token=<jwt_token>
func (h *WSHandler) HandleWebSocket(c *gin.Context) {
	// browsers cannot set an Authorization header on WebSocket requests
	tokenString := c.Query("token")
	if tokenString == "" {
		c.JSON(http.StatusUnauthorized, model.ErrorResponse{Error: "Token required"})
		return
	}

	claims, err := h.jwtManager.ValidateToken(tokenString)
	if err != nil {
		c.JSON(http.StatusUnauthorized, model.ErrorResponse{Error: "Invalid token"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := ws.NewClient(h.hub, conn, claims.UserID)
	if !h.hub.Register(client) {
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
		conn.Close()
		return
	}

	h.log.Debug("websocket connected", zap.String("user_id", claims.UserID))

	go client.WritePump()
	go client.ReadPump(h.log)
}
