package projector

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alerting-service/internal/logging"
	"alerting-service/internal/models"
)

type fakeNotificationStore struct {
	notifications []models.Notification
}

func (f *fakeNotificationStore) CreateNotification(_ context.Context, n models.Notification) (models.Notification, error) {
	n.ID = uuid.New()
	n.CreatedAt = time.Now().UTC()
	n.UpdatedAt = n.CreatedAt
	f.notifications = append(f.notifications, n)
	return n, nil
}

func (f *fakeNotificationStore) NotificationExistsForAlert(_ context.Context, alertID uuid.UUID) (bool, error) {
	for _, n := range f.notifications {
		if n.AlertID != nil && *n.AlertID == alertID {
			return true, nil
		}
	}
	return false, nil
}

func healthAlert(severity models.Severity, sendNotification bool) models.Alert {
	return models.Alert{
		ID:             uuid.New(),
		Title:          "Critical Health Alert: oxygenSaturation",
		Message:        "Driver Alex Carter oxygen saturation of 88% is below safe levels",
		Type:           models.AlertTypeHealth,
		Severity:       severity,
		Parameter:      "oxygenSaturation",
		OrganizationID: "org1",
		Metadata: models.NewHealthMetadata(models.HealthMetadata{
			DriverID:         "d1",
			DriverName:       "Alex Carter",
			Parameter:        "oxygenSaturation",
			Value:            models.Num(88),
			Threshold:        "oxygenSaturation",
			SendNotification: sendNotification,
		}),
	}
}

func TestProjectFromAlertIdempotent(t *testing.T) {
	store := &fakeNotificationStore{}
	p := New(store, logging.NewNop(), nil)
	alert := healthAlert(models.SeverityCritical, true)

	first, err := p.ProjectFromAlert(context.Background(), alert)
	require.NoError(t, err)
	require.NotNil(t, first)
	require.NotNil(t, first.AlertID)
	assert.Equal(t, alert.ID, *first.AlertID)

	second, err := p.ProjectFromAlert(context.Background(), alert)
	require.NoError(t, err)
	assert.Nil(t, second)
	assert.Len(t, store.notifications, 1)
}

func TestProjectFromAlertHonorsOptOut(t *testing.T) {
	store := &fakeNotificationStore{}
	p := New(store, logging.NewNop(), nil)

	n, err := p.ProjectFromAlert(context.Background(), healthAlert(models.SeverityCritical, false))
	require.NoError(t, err)
	assert.Nil(t, n)
	assert.Empty(t, store.notifications)
}

func TestProjectFromAlertSeverityMapping(t *testing.T) {
	cases := []struct {
		severity models.Severity
		want     models.NotificationType
	}{
		{models.SeverityCritical, models.NotificationError},
		{models.SeverityError, models.NotificationError},
		{models.SeverityWarning, models.NotificationWarning},
		{models.SeverityInfo, models.NotificationInfo},
		{models.Severity("UNKNOWN"), models.NotificationSuccess},
	}
	for _, tc := range cases {
		store := &fakeNotificationStore{}
		p := New(store, logging.NewNop(), nil)
		n, err := p.ProjectFromAlert(context.Background(), healthAlert(tc.severity, true))
		require.NoError(t, err)
		require.NotNil(t, n, "severity %s", tc.severity)
		assert.Equal(t, tc.want, n.Type, "severity %s", tc.severity)
	}
}

func TestProjectFromAlertActionURLs(t *testing.T) {
	cases := []struct {
		typ  models.AlertType
		want string
	}{
		{models.AlertTypeHealth, "/health"},
		{models.AlertTypeAttendance, "/attendance"},
		{models.AlertTypeAlcoholDetected, "/monitoring"},
		{models.AlertTypeSafety, "/monitoring"},
		{models.AlertTypeSystem, "/alerts"},
	}
	for _, tc := range cases {
		store := &fakeNotificationStore{}
		p := New(store, logging.NewNop(), nil)
		alert := healthAlert(models.SeverityWarning, true)
		alert.Type = tc.typ
		n, err := p.ProjectFromAlert(context.Background(), alert)
		require.NoError(t, err)
		require.NotNil(t, n)
		assert.Equal(t, tc.want, n.ActionURL, "type %s", tc.typ)
	}
}

func TestSyncFromAlertsMonotonic(t *testing.T) {
	store := &fakeNotificationStore{}
	p := New(store, logging.NewNop(), nil)

	alerts := []models.Alert{
		healthAlert(models.SeverityCritical, true),
		healthAlert(models.SeverityWarning, true),
		healthAlert(models.SeverityWarning, false), // opted out
	}

	created, err := p.SyncFromAlerts(context.Background(), alerts)
	require.NoError(t, err)
	assert.Equal(t, 2, created)

	// Re-running over the already-synced list creates nothing new.
	created, err = p.SyncFromAlerts(context.Background(), alerts)
	require.NoError(t, err)
	assert.Equal(t, 0, created)
	assert.Len(t, store.notifications, 2)
}
