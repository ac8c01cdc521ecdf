package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"alerting-service/internal/models"
)

const alertColumns = `id, title, message, type, severity, parameter, is_read, target_role, organization_id, metadata, created_at, updated_at`

// AlertFilters narrows QueryAlerts. Zero values mean "no filter".
type AlertFilters struct {
	OrganizationID string
	Type           models.AlertType
	Severity       models.Severity
	CreatedAfter   *time.Time
	Limit          int
	Offset         int
}

// AlertPatch carries the mutable alert fields for partial updates.
type AlertPatch struct {
	IsRead   *bool
	Metadata *models.AlertMetadata
}

// CreateAlert assigns id and timestamps and inserts the alert.
func (d *DB) CreateAlert(ctx context.Context, a models.Alert) (models.Alert, error) {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	now := time.Now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now

	meta, err := json.Marshal(a.Metadata)
	if err != nil {
		return models.Alert{}, fmt.Errorf("failed to marshal alert metadata: %w", err)
	}

	query := `
	INSERT INTO alerts (` + alertColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err = d.Pool.Exec(ctx, query,
		a.ID, a.Title, a.Message, a.Type, a.Severity, a.Parameter,
		a.IsRead, a.TargetRole, a.OrganizationID, meta, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return models.Alert{}, fmt.Errorf("failed to insert alert: %w", err)
	}
	return a, nil
}

// QueryAlerts applies the filters, counts the filtered set, then returns the
// requested page sorted by recency descending.
func (d *DB) QueryAlerts(ctx context.Context, f AlertFilters) ([]models.Alert, int, error) {
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
	if f.Severity != "" {
		args = append(args, f.Severity)
		where += fmt.Sprintf(" AND severity = $%d", len(args))
	}
	if f.CreatedAfter != nil {
		args = append(args, *f.CreatedAfter)
		where += fmt.Sprintf(" AND created_at > $%d", len(args))
	}

	var total int
	if err := d.Pool.QueryRow(ctx, "SELECT COUNT(*) FROM alerts"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count alerts: %w", err)
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit, f.Offset)
	query := fmt.Sprintf("SELECT %s FROM alerts%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d",
		alertColumns, where, len(args)-1, len(args))

	rows, err := d.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query alerts: %w", err)
	}
	defer rows.Close()

	var alerts []models.Alert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, 0, err
		}
		alerts = append(alerts, a)
	}
	return alerts, total, rows.Err()
}

// GetAlert fetches a single alert by id. Returns ErrNotFound when missing.
func (d *DB) GetAlert(ctx context.Context, id uuid.UUID) (models.Alert, error) {
	row := d.Pool.QueryRow(ctx, "SELECT "+alertColumns+" FROM alerts WHERE id = $1", id)
	a, err := scanAlert(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Alert{}, ErrNotFound
	}
	return a, err
}

// UpdateAlert merges the patch into the alert and bumps updated_at.
// Returns ErrNotFound when no row matches.
func (d *DB) UpdateAlert(ctx context.Context, id uuid.UUID, patch AlertPatch) (models.Alert, error) {
	set := "updated_at = NOW()"
	args := []interface{}{}
	if patch.IsRead != nil {
		args = append(args, *patch.IsRead)
		set += fmt.Sprintf(", is_read = $%d", len(args))
	}
	if patch.Metadata != nil {
		meta, err := json.Marshal(*patch.Metadata)
		if err != nil {
			return models.Alert{}, fmt.Errorf("failed to marshal alert metadata: %w", err)
		}
		args = append(args, meta)
		set += fmt.Sprintf(", metadata = $%d", len(args))
	}
	args = append(args, id)

	query := fmt.Sprintf("UPDATE alerts SET %s WHERE id = $%d RETURNING %s", set, len(args), alertColumns)
	a, err := scanAlert(d.Pool.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Alert{}, ErrNotFound
	}
	if err != nil {
		return models.Alert{}, fmt.Errorf("failed to update alert: %w", err)
	}
	return a, nil
}

// DeleteAlert removes the alert and reports whether a row existed.
func (d *DB) DeleteAlert(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := d.Pool.Exec(ctx, "DELETE FROM alerts WHERE id = $1", id)
	if err != nil {
		return false, fmt.Errorf("failed to delete alert: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// MarkAllAlertsRead flags every unread alert in the organization as read and
// returns how many were updated.
func (d *DB) MarkAllAlertsRead(ctx context.Context, organizationID string) (int64, error) {
	tag, err := d.Pool.Exec(ctx,
		"UPDATE alerts SET is_read = TRUE, updated_at = NOW() WHERE organization_id = $1 AND is_read = FALSE",
		organizationID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark alerts read: %w", err)
	}
	return tag.RowsAffected(), nil
}

// PurgeAlerts drops alerts older than daysToKeep and returns the removed count.
func (d *DB) PurgeAlerts(ctx context.Context, daysToKeep int) (int64, error) {
	tag, err := d.Pool.Exec(ctx,
		"DELETE FROM alerts WHERE created_at < NOW() - ($1 * INTERVAL '1 day')", daysToKeep)
	if err != nil {
		return 0, fmt.Errorf("failed to purge alerts: %w", err)
	}
	return tag.RowsAffected(), nil
}

// FindRecentAlertByParameter returns the newest alert matching the exact
// deduplication key (organization, type, parameter) created at or after
// since, or nil when none exists.
func (d *DB) FindRecentAlertByParameter(ctx context.Context, organizationID string, typ models.AlertType, parameter string, since time.Time) (*models.Alert, error) {
	query := `
	SELECT ` + alertColumns + `
	FROM alerts
	WHERE organization_id = $1 AND type = $2 AND parameter = $3 AND created_at >= $4
	ORDER BY created_at DESC
	LIMIT 1`

	a, err := scanAlert(d.Pool.QueryRow(ctx, query, organizationID, typ, parameter, since))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find recent alert: %w", err)
	}
	return &a, nil
}

func scanAlert(row pgx.Row) (models.Alert, error) {
	var a models.Alert
	var meta []byte
	err := row.Scan(
		&a.ID, &a.Title, &a.Message, &a.Type, &a.Severity, &a.Parameter,
		&a.IsRead, &a.TargetRole, &a.OrganizationID, &meta, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return models.Alert{}, err
	}
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &a.Metadata); err != nil {
			return models.Alert{}, fmt.Errorf("failed to unmarshal alert metadata: %w", err)
		}
	}
	return a, nil
}
