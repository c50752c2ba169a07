package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"alert-notification-service/internal/models"
)

// LoadAlertsForDispatch returns the alerts with the given ids owned by the
// user, joined with competitor metadata. An empty slice means none matched;
// ids belonging to other users are silently excluded.
func (d *DB) LoadAlertsForDispatch(ctx context.Context, userID int64, alertIDs []int64) ([]models.Alert, error) {
	query := `
	SELECT a.id, a.user_id, a.competitor_id, a.severity, a.alert_type, a.title,
	       a.description, a.created_at, a.is_read, a.is_archived, a.source_data,
	       c.name, c.domain, c.threat_level
	FROM alerts a
	LEFT JOIN competitors c ON c.id = a.competitor_id
	WHERE a.user_id = $1 AND a.id = ANY($2)
	ORDER BY a.created_at DESC`

	rows, err := d.Pool.Query(ctx, query, userID, alertIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load alerts for dispatch: %w", err)
	}
	defer rows.Close()

	var alerts []models.Alert
	for rows.Next() {
		var a models.Alert
		var sourceData []byte
		var compName, compDomain, compThreat *string
		err := rows.Scan(
			&a.ID,
			&a.UserID,
			&a.CompetitorID,
			&a.Severity,
			&a.AlertType,
			&a.Title,
			&a.Description,
			&a.CreatedAt,
			&a.IsRead,
			&a.IsArchived,
			&sourceData,
			&compName,
			&compDomain,
			&compThreat,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		if len(sourceData) > 0 {
			if err := json.Unmarshal(sourceData, &a.SourceData); err != nil {
				return nil, fmt.Errorf("failed to decode source_data for alert %d: %w", a.ID, err)
			}
		}
		if a.CompetitorID != nil && compName != nil {
			a.Competitor = &models.Competitor{
				ID:   *a.CompetitorID,
				Name: *compName,
			}
			if compDomain != nil {
				a.Competitor.Domain = *compDomain
			}
			if compThreat != nil {
				a.Competitor.ThreatLevel = *compThreat
			}
		}
		alerts = append(alerts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read alerts: %w", err)
	}

	return alerts, nil
}

// RecordDelivery merges delivery metadata into source_data on every matched
// alert and refreshes updated_at. The JSONB concatenation preserves keys the
// metadata does not name. Scoping matches LoadAlertsForDispatch, so a caller
// can never mutate another user's rows.
func (d *DB) RecordDelivery(ctx context.Context, userID int64, alertIDs []int64, channels []string, ts time.Time) error {
	meta, err := json.Marshal(models.DeliveryMetadata{
		LastNotified:         ts,
		NotificationChannels: channels,
	})
	if err != nil {
		return fmt.Errorf("failed to encode delivery metadata: %w", err)
	}

	query := `
	UPDATE alerts
	SET source_data = COALESCE(source_data, '{}'::jsonb) || $3::jsonb,
	    updated_at = NOW()
	WHERE user_id = $1 AND id = ANY($2)`

	if _, err := d.Pool.Exec(ctx, query, userID, alertIDs, string(meta)); err != nil {
		return fmt.Errorf("failed to record delivery: %w", err)
	}
	return nil
}

// GetAlertsByUserID fetches alerts for a user with pagination.
func (d *DB) GetAlertsByUserID(ctx context.Context, userID int64, limit, offset int) ([]models.Alert, int, error) {
	var total int
	if err := d.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM alerts WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count alerts: %w", err)
	}

	query := `
	SELECT a.id, a.user_id, a.competitor_id, a.severity, a.alert_type, a.title,
	       a.description, a.created_at, a.is_read, a.is_archived, a.source_data,
	       c.name, c.domain, c.threat_level
	FROM alerts a
	LEFT JOIN competitors c ON c.id = a.competitor_id
	WHERE a.user_id = $1
	ORDER BY a.created_at DESC
	LIMIT $2 OFFSET $3`

	rows, err := d.Pool.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get alerts: %w", err)
	}
	defer rows.Close()

	var alerts []models.Alert
	for rows.Next() {
		var a models.Alert
		var sourceData []byte
		var compName, compDomain, compThreat *string
		err := rows.Scan(
			&a.ID, &a.UserID, &a.CompetitorID, &a.Severity, &a.AlertType,
			&a.Title, &a.Description, &a.CreatedAt, &a.IsRead, &a.IsArchived,
			&sourceData, &compName, &compDomain, &compThreat,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan alert: %w", err)
		}
		if len(sourceData) > 0 {
			if err := json.Unmarshal(sourceData, &a.SourceData); err != nil {
				return nil, 0, fmt.Errorf("failed to decode source_data for alert %d: %w", a.ID, err)
			}
		}
		if a.CompetitorID != nil && compName != nil {
			a.Competitor = &models.Competitor{ID: *a.CompetitorID, Name: *compName}
			if compDomain != nil {
				a.Competitor.Domain = *compDomain
			}
			if compThreat != nil {
				a.Competitor.ThreatLevel = *compThreat
			}
		}
		alerts = append(alerts, a)
	}

	return alerts, total, nil
}

// CreateAlert inserts an alert row detected by the upstream pipeline.
func (d *DB) CreateAlert(ctx context.Context, a models.Alert) error {
	sourceData := []byte("{}")
	if a.SourceData != nil {
		b, err := json.Marshal(a.SourceData)
		if err != nil {
			return fmt.Errorf("failed to encode source_data: %w", err)
		}
		sourceData = b
	}

	query := `
	INSERT INTO alerts (user_id, competitor_id, severity, alert_type, title, description, source_data, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb, NOW(), NOW())`

	_, err := d.Pool.Exec(ctx, query,
		a.UserID,
		a.CompetitorID,
		a.Severity,
		a.AlertType,
		a.Title,
		a.Description,
		string(sourceData),
	)
	if err != nil {
		return fmt.Errorf("failed to insert alert: %w", err)
	}
	return nil
}
