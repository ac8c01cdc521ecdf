package models

import (
	"time"

	"github.com/google/uuid"
)

// NotificationType maps to the UI toast/badge styles.
type NotificationType string

const (
	NotificationInfo    NotificationType = "info"
	NotificationWarning NotificationType = "warning"
	NotificationError   NotificationType = "error"
	NotificationSuccess NotificationType = "success"
)

// Notification is a UI-facing record, usually projected from an Alert.
// At most one Notification references any given Alert.
type Notification struct {
	ID             uuid.UUID        `json:"id"`
	Title          string           `json:"title"`
	Message        string           `json:"message"`
	Type           NotificationType `json:"type"`
	Read           bool             `json:"read"`
	DriverID       string           `json:"driver_id,omitempty"`
	ActionURL      string           `json:"action_url,omitempty"`
	OrganizationID string           `json:"organization_id"`
	AlertID        *uuid.UUID       `json:"alert_id,omitempty"`
	Metadata       AlertMetadata    `json:"metadata"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}
