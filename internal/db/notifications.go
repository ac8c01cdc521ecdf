package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"alerting-service/internal/models"
)

const notificationColumns = `id, title, message, type, is_read, driver_id, action_url, organization_id, alert_id, metadata, created_at, updated_at`

// NotificationFilters narrows QueryNotifications. Zero values mean "no filter".
type NotificationFilters struct {
	OrganizationID string
	Type           models.NotificationType
	Read           *bool
	CreatedAfter   *time.Time
	Limit          int
	Offset         int
}

// NotificationPatch carries the mutable notification fields.
type NotificationPatch struct {
	Read *bool
}

// CreateNotification assigns id and timestamps and inserts the notification.
// The partial unique index on alert_id rejects a second notification for the
// same alert; callers can detect that with IsUniqueViolation.
func (d *DB) CreateNotification(ctx context.Context, n models.Notification) (models.Notification, error) {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	now := time.Now().UTC()
	n.CreatedAt = now
	n.UpdatedAt = now

	meta, err := json.Marshal(n.Metadata)
	if err != nil {
		return models.Notification{}, fmt.Errorf("failed to marshal notification metadata: %w", err)
	}

	query := `
	INSERT INTO notifications (` + notificationColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err = d.Pool.Exec(ctx, query,
		n.ID, n.Title, n.Message, n.Type, n.Read, n.DriverID,
		n.ActionURL, n.OrganizationID, n.AlertID, meta, n.CreatedAt, n.UpdatedAt,
	)
	if err != nil {
		return models.Notification{}, fmt.Errorf("failed to insert notification: %w", err)
	}
	return n, nil
}

// QueryNotifications applies the filters, counts the filtered set, then
// returns the requested page sorted by recency descending.
func (d *DB) QueryNotifications(ctx context.Context, f NotificationFilters) ([]models.Notification, int, error) {
	where := " WHERE 1=1"
	args := []interface{}{}
	if f.OrganizationID != "" {
		args = append(args, f.OrganizationID)
		where += fmt.Sprintf(" AND organization_id = $%d", len(args))
	}
	if f.Type != "" {
		args = append(args, f.Type)
		where += fmt.Sprintf(" AND type = $%d", len(args))
	}
	if f.Read != nil {
		args = append(args, *f.Read)
		where += fmt.Sprintf(" AND is_read = $%d", len(args))
	}
	if f.CreatedAfter != nil {
		args = append(args, *f.CreatedAfter)
		where += fmt.Sprintf(" AND created_at > $%d", len(args))
	}

	var total int
	if err := d.Pool.QueryRow(ctx, "SELECT COUNT(*) FROM notifications"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count notifications: %w", err)
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit, f.Offset)
	query := fmt.Sprintf("SELECT %s FROM notifications%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d",
		notificationColumns, where, len(args)-1, len(args))

	rows, err := d.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query notifications: %w", err)
	}
	defer rows.Close()

	var notifications []models.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, 0, err
		}
		notifications = append(notifications, n)
	}
	return notifications, total, rows.Err()
}

// UpdateNotification merges the patch and bumps updated_at.
// Returns ErrNotFound when no row matches.
func (d *DB) UpdateNotification(ctx context.Context, id uuid.UUID, patch NotificationPatch) (models.Notification, error) {
	set := "updated_at = NOW()"
	args := []interface{}{}
	if patch.Read != nil {
		args = append(args, *patch.Read)
		set += fmt.Sprintf(", is_read = $%d", len(args))
	}
	args = append(args, id)

	query := fmt.Sprintf("UPDATE notifications SET %s WHERE id = $%d RETURNING %s", set, len(args), notificationColumns)
	n, err := scanNotification(d.Pool.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Notification{}, ErrNotFound
	}
	if err != nil {
		return models.Notification{}, fmt.Errorf("failed to update notification: %w", err)
	}
	return n, nil
}

// DeleteNotification removes the notification and reports whether a row existed.
func (d *DB) DeleteNotification(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := d.Pool.Exec(ctx, "DELETE FROM notifications WHERE id = $1", id)
	if err != nil {
		return false, fmt.Errorf("failed to delete notification: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// MarkAllNotificationsRead flags every unread notification in the organization
// as read and returns how many were updated.
func (d *DB) MarkAllNotificationsRead(ctx context.Context, organizationID string) (int64, error) {
	tag, err := d.Pool.Exec(ctx,
		"UPDATE notifications SET is_read = TRUE, updated_at = NOW() WHERE organization_id = $1 AND is_read = FALSE",
		organizationID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return tag.RowsAffected(), nil
}

// PurgeNotifications drops notifications older than daysToKeep and returns the
// removed count.
func (d *DB) PurgeNotifications(ctx context.Context, daysToKeep int) (int64, error) {
	tag, err := d.Pool.Exec(ctx,
		"DELETE FROM notifications WHERE created_at < NOW() - ($1 * INTERVAL '1 day')", daysToKeep)
	if err != nil {
		return 0, fmt.Errorf("failed to purge notifications: %w", err)
	}
	return tag.RowsAffected(), nil
}

// NotificationExistsForAlert reports whether any notification already
// references the alert.
func (d *DB) NotificationExistsForAlert(ctx context.Context, alertID uuid.UUID) (bool, error) {
	var exists bool
	err := d.Pool.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM notifications WHERE alert_id = $1)", alertID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check notification for alert %s: %w", alertID, err)
	}
	return exists, nil
}

func scanNotification(row pgx.Row) (models.Notification, error) {
	var n models.Notification
	var meta []byte
	var alertID pgtype.UUID
	err := row.Scan(
		&n.ID, &n.Title, &n.Message, &n.Type, &n.Read, &n.DriverID,
		&n.ActionURL, &n.OrganizationID, &alertID, &meta, &n.CreatedAt, &n.UpdatedAt,
	)
	if err != nil {
		return models.Notification{}, err
	}
	if alertID.Valid {
		id := uuid.UUID(alertID.Bytes)
		n.AlertID = &id
	}
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &n.Metadata); err != nil {
			return models.Notification{}, fmt.Errorf("failed to unmarshal notification metadata: %w", err)
		}
	}
	return n, nil
}
