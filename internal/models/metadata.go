package models

// MetadataKind discriminates the metadata payload variants.
type MetadataKind string

const (
	MetadataHealth    MetadataKind = "health"
	MetadataDetection MetadataKind = "detection"
	MetadataOpaque    MetadataKind = "opaque"
)

// HealthMetadata is attached to threshold-driven HEALTH alerts.
type HealthMetadata struct {
	DriverID         string      `json:"driver_id"`
	DriverName       string      `json:"driver_name"`
	Parameter        string      `json:"parameter"`
	Value            MetricValue `json:"value"`
	Threshold        string      `json:"threshold"`
	Unit             string      `json:"unit,omitempty"`
	SendNotification bool        `json:"send_notification"`
}

// DetectionMetadata is attached to alcohol/drowsiness detection alerts.
type DetectionMetadata struct {
	DriverID   string `json:"driver_id"`
	DriverName string `json:"driver_name"`
	Detail     string `json:"detail,omitempty"`
}

// AlertMetadata is a tagged union of the known per-alert-type payloads with an
// opaque fallback for callers that create alerts directly.
type AlertMetadata struct {
	Kind      MetadataKind           `json:"kind"`
	Health    *HealthMetadata        `json:"health,omitempty"`
	Detection *DetectionMetadata     `json:"detection,omitempty"`
	Extra     map[string]interface{} `json:"extra,omitempty"`
}

// NewHealthMetadata builds the metadata for a threshold-driven alert.
func NewHealthMetadata(h HealthMetadata) AlertMetadata {
	return AlertMetadata{Kind: MetadataHealth, Health: &h}
}

// NewDetectionMetadata builds the metadata for a detection alert.
func NewDetectionMetadata(d DetectionMetadata) AlertMetadata {
	return AlertMetadata{Kind: MetadataDetection, Detection: &d}
}

// WantsNotification reports whether a notification should be projected from an
// alert carrying this metadata. Only health alerts can opt out.
func (m AlertMetadata) WantsNotification() bool {
	if m.Health != nil {
		return m.Health.SendNotification
	}
	return true
}

// DriverID returns the driver the metadata refers to, if any.
func (m AlertMetadata) DriverID() string {
	switch {
	case m.Health != nil:
		return m.Health.DriverID
	case m.Detection != nil:
		return m.Detection.DriverID
	}
	return ""
}
