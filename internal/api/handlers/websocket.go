package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/playarena/backend/internal/ws"
)

// HandleWebSocket exposes the matchmaking and battle stream at /ws.
func HandleWebSocket(gateway *ws.Gateway) gin.HandlerFunc {
	return gateway.HandleConnection
}
