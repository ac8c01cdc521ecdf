package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"alerting-service/internal/logging"
	"alerting-service/internal/ws"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// WebSocketHandler upgrades a dashboard connection and registers it with the
// hub for live alert pushes. The connection stays open until the client
// disconnects.
func WebSocketHandler(hub *ws.Hub, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		orgID := c.Query("organization_id")
		if orgID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "organization_id is required"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Errorf("WebSocket upgrade failed: %v", err)
			return
		}
		if !hub.AddConnection(orgID, conn) {
			conn.Close()
			return
		}

		go func() {
			defer func() {
				hub.RemoveConnection(orgID, conn)
				conn.Close()
			}()
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()
	}
}
