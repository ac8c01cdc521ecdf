package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"alerting-service/internal/db"
	"alerting-service/internal/logging"
	"alerting-service/internal/models"
	"alerting-service/internal/projector"
)

// AlertStore and NotificationStore are the store surfaces the handlers need;
// *db.DB satisfies both.
type AlertStore interface {
	QueryAlerts(ctx context.Context, f db.AlertFilters) ([]models.Alert, int, error)
	UpdateAlert(ctx context.Context, id uuid.UUID, patch db.AlertPatch) (models.Alert, error)
	DeleteAlert(ctx context.Context, id uuid.UUID) (bool, error)
	MarkAllAlertsRead(ctx context.Context, organizationID string) (int64, error)
	PurgeAlerts(ctx context.Context, daysToKeep int) (int64, error)
}

type NotificationStore interface {
	CreateNotification(ctx context.Context, n models.Notification) (models.Notification, error)
	QueryNotifications(ctx context.Context, f db.NotificationFilters) ([]models.Notification, int, error)
	UpdateNotification(ctx context.Context, id uuid.UUID, patch db.NotificationPatch) (models.Notification, error)
	DeleteNotification(ctx context.Context, id uuid.UUID) (bool, error)
	MarkAllNotificationsRead(ctx context.Context, organizationID string) (int64, error)
	PurgeNotifications(ctx context.Context, daysToKeep int) (int64, error)
}

type Handler struct {
	alerts        AlertStore
	notifications NotificationStore
	projector     *projector.Projector
	logger        *logging.Logger
	// retentionDays is the purge default when a request omits days_to_keep.
	retentionDays int
}

func NewHandler(alerts AlertStore, notifications NotificationStore, proj *projector.Projector, logger *logging.Logger, retentionDays int) *Handler {
	if retentionDays <= 0 {
		retentionDays = 30
	}
	return &Handler{alerts: alerts, notifications: notifications, projector: proj, logger: logger, retentionDays: retentionDays}
}

type listResponse struct {
	Items interface{} `json:"items"`
	Total int         `json:"total"`
}

func (h *Handler) GetAlerts(c *gin.Context) {
	orgID := c.Query("organization_id")
	if orgID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "organization_id is required"})
		return
	}

	f := db.AlertFilters{
		OrganizationID: orgID,
		Type:           models.AlertType(c.Query("type")),
		Severity:       models.Severity(c.Query("severity")),
		Limit:          limitQuery(c),
		Offset:         intQuery(c, "offset", 0),
	}
	if after := c.Query("created_after"); after != "" {
		t, err := time.Parse(time.RFC3339, after)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "created_after must be RFC3339"})
			return
		}
		f.CreatedAfter = &t
	}

	alerts, total, err := h.alerts.QueryAlerts(c.Request.Context(), f)
	if err != nil {
		h.logger.Errorf("Failed to query alerts: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to query alerts"})
		return
	}
	if alerts == nil {
		alerts = []models.Alert{}
	}
	c.JSON(http.StatusOK, listResponse{Items: alerts, Total: total})
}

func (h *Handler) MarkAlertRead(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid alert id"})
		return
	}

	read := true
	alert, err := h.alerts.UpdateAlert(c.Request.Context(), id, db.AlertPatch{IsRead: &read})
	if errors.Is(err, db.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Alert not found"})
		return
	}
	if err != nil {
		h.logger.Errorf("Failed to mark alert %s read: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update alert"})
		return
	}
	c.JSON(http.StatusOK, alert)
}

func (h *Handler) DeleteAlert(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid alert id"})
		return
	}

	deleted, err := h.alerts.DeleteAlert(c.Request.Context(), id)
	if err != nil {
		h.logger.Errorf("Failed to delete alert %s: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete alert"})
		return
	}
	if !deleted {
		c.JSON(http.StatusNotFound, gin.H{"error": "Alert not found"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) MarkAllAlertsRead(c *gin.Context) {
	orgID := c.Query("organization_id")
	if orgID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "organization_id is required"})
		return
	}

	updated, err := h.alerts.MarkAllAlertsRead(c.Request.Context(), orgID)
	if err != nil {
		h.logger.Errorf("Failed to mark alerts read for org %s: %v", orgID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to mark alerts read"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": updated})
}

type purgeRequest struct {
	DaysToKeep int `json:"days_to_keep"`
}

// parsePurge reads days_to_keep, falling back to the configured retention.
// An empty body means "use the default".
func (h *Handler) parsePurge(c *gin.Context) (int, bool) {
	var req purgeRequest
	if c.Request.Body != nil && c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "days_to_keep must be a positive integer"})
			return 0, false
		}
	}
	if req.DaysToKeep < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "days_to_keep must be a positive integer"})
		return 0, false
	}
	if req.DaysToKeep == 0 {
		req.DaysToKeep = h.retentionDays
	}
	return req.DaysToKeep, true
}

func (h *Handler) PurgeAlerts(c *gin.Context) {
	days, ok := h.parsePurge(c)
	if !ok {
		return
	}

	removed, err := h.alerts.PurgeAlerts(c.Request.Context(), days)
	if err != nil {
		h.logger.Errorf("Failed to purge alerts: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to purge alerts"})
		return
	}
	h.logger.Infof("Purged %d alerts older than %d days", removed, days)
	c.JSON(http.StatusOK, gin.H{"removed": removed})
}

func (h *Handler) GetNotifications(c *gin.Context) {
	orgID := c.Query("organization_id")
	if orgID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "organization_id is required"})
		return
	}

	f := db.NotificationFilters{
		OrganizationID: orgID,
		Type:           models.NotificationType(c.Query("type")),
		Limit:          limitQuery(c),
		Offset:         intQuery(c, "offset", 0),
	}
	if readStr := c.Query("read"); readStr != "" {
		read, err := strconv.ParseBool(readStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "read must be true or false"})
			return
		}
		f.Read = &read
	}
	if after := c.Query("created_after"); after != "" {
		t, err := time.Parse(time.RFC3339, after)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "created_after must be RFC3339"})
			return
		}
		f.CreatedAfter = &t
	}

	notifications, total, err := h.notifications.QueryNotifications(c.Request.Context(), f)
	if err != nil {
		h.logger.Errorf("Failed to query notifications: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to query notifications"})
		return
	}
	if notifications == nil {
		notifications = []models.Notification{}
	}
	c.JSON(http.StatusOK, listResponse{Items: notifications, Total: total})
}

type createNotificationRequest struct {
	Title          string                  `json:"title" binding:"required"`
	Message        string                  `json:"message" binding:"required"`
	Type           models.NotificationType `json:"type"`
	DriverID       string                  `json:"driver_id"`
	ActionURL      string                  `json:"action_url"`
	OrganizationID string                  `json:"organization_id" binding:"required"`
}

// CreateNotification lets collaborators create a notification directly,
// without an alert back-link.
func (h *Handler) CreateNotification(c *gin.Context) {
	var req createNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if req.Type == "" {
		req.Type = models.NotificationInfo
	}

	n := models.Notification{
		Title:          req.Title,
		Message:        req.Message,
		Type:           req.Type,
		DriverID:       req.DriverID,
		ActionURL:      req.ActionURL,
		OrganizationID: req.OrganizationID,
		Metadata:       models.AlertMetadata{Kind: models.MetadataOpaque},
	}
	created, err := h.notifications.CreateNotification(c.Request.Context(), n)
	if err != nil {
		h.logger.Errorf("Failed to create notification: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create notification"})
		return
	}
	h.logger.Infof("Created notification %s for org %s", created.ID, created.OrganizationID)
	c.JSON(http.StatusCreated, created)
}

func (h *Handler) MarkNotificationRead(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid notification id"})
		return
	}

	read := true
	n, err := h.notifications.UpdateNotification(c.Request.Context(), id, db.NotificationPatch{Read: &read})
	if errors.Is(err, db.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Notification not found"})
		return
	}
	if err != nil {
		h.logger.Errorf("Failed to mark notification %s read: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update notification"})
		return
	}
	c.JSON(http.StatusOK, n)
}

func (h *Handler) DeleteNotification(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid notification id"})
		return
	}

	deleted, err := h.notifications.DeleteNotification(c.Request.Context(), id)
	if err != nil {
		h.logger.Errorf("Failed to delete notification %s: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete notification"})
		return
	}
	if !deleted {
		c.JSON(http.StatusNotFound, gin.H{"error": "Notification not found"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) MarkAllNotificationsRead(c *gin.Context) {
	orgID := c.Query("organization_id")
	if orgID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "organization_id is required"})
		return
	}

	updated, err := h.notifications.MarkAllNotificationsRead(c.Request.Context(), orgID)
	if err != nil {
		h.logger.Errorf("Failed to mark notifications read for org %s: %v", orgID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to mark notifications read"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": updated})
}

func (h *Handler) PurgeNotifications(c *gin.Context) {
	days, ok := h.parsePurge(c)
	if !ok {
		return
	}

	removed, err := h.notifications.PurgeNotifications(c.Request.Context(), days)
	if err != nil {
		h.logger.Errorf("Failed to purge notifications: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to purge notifications"})
		return
	}
	h.logger.Infof("Purged %d notifications older than %d days", removed, days)
	c.JSON(http.StatusOK, gin.H{"removed": removed})
}

type syncRequest struct {
	OrganizationID string `json:"organization_id" binding:"required"`
	SinceHours     int    `json:"since_hours"`
}

// SyncNotifications projects notifications from the organization's recent
// alerts. Safe to call repeatedly: already-projected alerts are skipped.
func (h *Handler) SyncNotifications(c *gin.Context) {
	var req syncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "organization_id is required"})
		return
	}
	if req.SinceHours <= 0 {
		req.SinceHours = 24
	}

	since := time.Now().Add(-time.Duration(req.SinceHours) * time.Hour)
	alerts, _, err := h.alerts.QueryAlerts(c.Request.Context(), db.AlertFilters{
		OrganizationID: req.OrganizationID,
		CreatedAfter:   &since,
		Limit:          500,
	})
	if err != nil {
		h.logger.Errorf("Failed to load alerts for sync: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load alerts"})
		return
	}

	created, err := h.projector.SyncFromAlerts(c.Request.Context(), alerts)
	if err != nil {
		h.logger.Errorf("Failed to sync notifications for org %s: %v", req.OrganizationID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to sync notifications"})
		return
	}
	h.logger.Infof("Synced %d notifications from %d alerts for org %s", created, len(alerts), req.OrganizationID)
	c.JSON(http.StatusOK, gin.H{"created": created})
}

const defaultPageSize = 50

func intQuery(c *gin.Context, key string, fallback int) int {
	if v, err := strconv.Atoi(c.Query(key)); err == nil && v >= 0 {
		return v
	}
	return fallback
}

// limitQuery parses the page size. An absent, malformed or explicit-zero
// limit all select the default page size; an empty page is never returned.
func limitQuery(c *gin.Context) int {
	if v := intQuery(c, "limit", defaultPageSize); v > 0 {
		return v
	}
	return defaultPageSize
}
