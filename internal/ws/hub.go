// Package ws pushes created alerts to connected dashboard clients. It is a
// live variant of the polling query surface, scoped by organization — it is
// not a notification delivery channel.
package ws

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"

	"alerting-service/internal/logging"
	"alerting-service/internal/models"
)

const maxConnectionsPerOrg = 10

// Hub manages websocket connections keyed by organization.
type Hub struct {
	mu          sync.Mutex
	connections map[string]map[*websocket.Conn]bool
	logger      *logging.Logger
}

func NewHub(logger *logging.Logger) *Hub {
	return &Hub{
		connections: make(map[string]map[*websocket.Conn]bool),
		logger:      logger,
	}
}

// AddConnection registers a dashboard connection for an organization.
// Returns false when the per-organization cap is reached.
func (h *Hub) AddConnection(organizationID string, conn *websocket.Conn) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, exists := h.connections[organizationID]; !exists {
		h.connections[organizationID] = make(map[*websocket.Conn]bool)
	}
	if len(h.connections[organizationID]) >= maxConnectionsPerOrg {
		h.logger.Warnf("Max websocket connections reached for org %s", organizationID)
		return false
	}
	h.connections[organizationID][conn] = true
	h.logger.Infof("Added websocket connection for org %s (total: %d)", organizationID, len(h.connections[organizationID]))
	return true
}

// RemoveConnection unregisters a connection.
func (h *Hub) RemoveConnection(organizationID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conns, exists := h.connections[organizationID]; exists {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(h.connections, organizationID)
		}
	}
}

// BroadcastAlert sends the alert to every connection of its organization.
// Connections that fail to write are evicted.
func (h *Hub) BroadcastAlert(alert models.Alert) {
	payload, err := json.Marshal(alert)
	if err != nil {
		h.logger.Errorf("Failed to marshal alert %s for broadcast: %v", alert.ID, err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	conns, exists := h.connections[alert.OrganizationID]
	if !exists {
		return
	}
	for conn := range conns {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			h.logger.Errorf("Failed to push alert to org %s connection: %v", alert.OrganizationID, err)
			delete(conns, conn)
		}
	}
	if len(conns) == 0 {
		delete(h.connections, alert.OrganizationID)
	}
}
