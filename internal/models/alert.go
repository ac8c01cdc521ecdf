package models

import (
	"time"

	"github.com/google/uuid"
)

// AlertType categorizes an alert by the subsystem that raised it.
type AlertType string

const (
	AlertTypeHealth          AlertType = "HEALTH"
	AlertTypeAttendance      AlertType = "ATTENDANCE"
	AlertTypeAlcoholDetected AlertType = "ALCOHOL_DETECTION"
	AlertTypeObjectDetected  AlertType = "OBJECT_DETECTION"
	AlertTypeSafety          AlertType = "SAFETY"
	AlertTypeSystem          AlertType = "SYSTEM"
)

// Severity levels, ordered from least to most urgent.
type Severity string

const (
	SeverityInfo     Severity = "INFO"
	SeverityWarning  Severity = "WARNING"
	SeverityError    Severity = "ERROR"
	SeverityCritical Severity = "CRITICAL"
)

// Alert is a persisted record of a detected condition. Immutable after
// creation except for IsRead, Metadata and UpdatedAt.
type Alert struct {
	ID       uuid.UUID `json:"id"`
	Title    string    `json:"title"`
	Message  string    `json:"message"`
	Type     AlertType `json:"type"`
	Severity Severity  `json:"severity"`
	// Parameter is the exact deduplication key for threshold-driven alerts
	// (empty for detection and system alerts).
	Parameter      string        `json:"parameter,omitempty"`
	IsRead         bool          `json:"is_read"`
	TargetRole     string        `json:"target_role,omitempty"`
	OrganizationID string        `json:"organization_id"`
	Metadata       AlertMetadata `json:"metadata"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}
