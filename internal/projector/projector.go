// Package projector derives UI notifications from persisted alerts. The
// projection is idempotent: an alert is projected at most once, guarded both
// by an existence check and by the store's unique index on alert_id.
package projector

import (
	"context"

	"github.com/google/uuid"

	"alerting-service/internal/logging"
	"alerting-service/internal/metrics"
	"alerting-service/internal/models"
)

// NotificationStore is the slice of the persistent store the projector needs.
type NotificationStore interface {
	CreateNotification(ctx context.Context, n models.Notification) (models.Notification, error)
	NotificationExistsForAlert(ctx context.Context, alertID uuid.UUID) (bool, error)
}

// DuplicateChecker reports lost creation races; the db package satisfies it.
type DuplicateChecker func(err error) bool

type Projector struct {
	store       NotificationStore
	logger      *logging.Logger
	isDuplicate DuplicateChecker
}

// New constructs a projector. isDuplicate may be nil when the store cannot
// race (tests, single-writer fakes).
func New(store NotificationStore, logger *logging.Logger, isDuplicate DuplicateChecker) *Projector {
	if isDuplicate == nil {
		isDuplicate = func(error) bool { return false }
	}
	return &Projector{store: store, logger: logger, isDuplicate: isDuplicate}
}

// ProjectFromAlert creates the notification for an alert, or returns nil when
// one already exists or the alert's metadata opted out of notification.
func (p *Projector) ProjectFromAlert(ctx context.Context, alert models.Alert) (*models.Notification, error) {
	exists, err := p.store.NotificationExistsForAlert(ctx, alert.ID)
	if err != nil {
		metrics.StoreErrors.WithLabelValues("notification_exists").Inc()
		return nil, err
	}
	if exists {
		return nil, nil
	}
	if !alert.Metadata.WantsNotification() {
		return nil, nil
	}

	alertID := alert.ID
	n := models.Notification{
		Title:          alert.Title,
		Message:        alert.Message,
		Type:           typeForSeverity(alert.Severity),
		DriverID:       alert.Metadata.DriverID(),
		ActionURL:      actionURLForType(alert.Type),
		OrganizationID: alert.OrganizationID,
		AlertID:        &alertID,
		Metadata:       alert.Metadata,
	}

	created, err := p.store.CreateNotification(ctx, n)
	if err != nil {
		// A concurrent projector won the race on the alert_id index; the
		// outcome the caller asked for already holds.
		if p.isDuplicate(err) {
			return nil, nil
		}
		metrics.StoreErrors.WithLabelValues("create_notification").Inc()
		return nil, err
	}
	metrics.NotificationsProjected.Inc()
	p.logger.Infof("Projected notification %s from alert %s", created.ID, alert.ID)
	return &created, nil
}

// SyncFromAlerts projects every alert in the list and returns how many
// notifications were created. Re-running over an already-synced list creates
// zero. A failing alert is logged and skipped so one bad record does not
// block the batch.
func (p *Projector) SyncFromAlerts(ctx context.Context, alerts []models.Alert) (int, error) {
	created := 0
	for _, alert := range alerts {
		n, err := p.ProjectFromAlert(ctx, alert)
		if err != nil {
			p.logger.Errorf("Failed to project alert %s: %v", alert.ID, err)
			continue
		}
		if n != nil {
			created++
		}
	}
	return created, nil
}

func typeForSeverity(s models.Severity) models.NotificationType {
	switch s {
	case models.SeverityCritical, models.SeverityError:
		return models.NotificationError
	case models.SeverityWarning:
		return models.NotificationWarning
	case models.SeverityInfo:
		return models.NotificationInfo
	default:
		return models.NotificationSuccess
	}
}

func actionURLForType(t models.AlertType) string {
	switch t {
	case models.AlertTypeHealth:
		return "/health"
	case models.AlertTypeAttendance:
		return "/attendance"
	case models.AlertTypeAlcoholDetected, models.AlertTypeSafety:
		return "/monitoring"
	default:
		return "/alerts"
	}
}
