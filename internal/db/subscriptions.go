package db

import (
	"context"
	"fmt"

	"alert-notification-service/internal/models"
)

// ActiveSubscriptions returns the user's push subscriptions that are still
// candidates for a send.
func (d *DB) ActiveSubscriptions(ctx context.Context, userID int64) ([]models.PushSubscription, error) {
	query := `
	SELECT id, user_id, endpoint, expiration_time, p256dh, auth, is_active, last_used_at
	FROM push_subscriptions
	WHERE user_id = $1 AND is_active = TRUE`

	rows, err := d.Pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get push subscriptions for user %d: %w", userID, err)
	}
	defer rows.Close()

	var subs []models.PushSubscription
	for rows.Next() {
		var s models.PushSubscription
		err := rows.Scan(
			&s.ID,
			&s.UserID,
			&s.Endpoint,
			&s.ExpirationTime,
			&s.P256dh,
			&s.Auth,
			&s.IsActive,
			&s.LastUsedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan push subscription: %w", err)
		}
		subs = append(subs, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read push subscriptions: %w", err)
	}

	return subs, nil
}

// DeactivateSubscription marks a subscription inactive so future dispatches
// skip it. Setting is_active twice is harmless.
func (d *DB) DeactivateSubscription(ctx context.Context, subscriptionID int64) error {
	query := `UPDATE push_subscriptions SET is_active = FALSE, updated_at = NOW() WHERE id = $1`
	if _, err := d.Pool.Exec(ctx, query, subscriptionID); err != nil {
		return fmt.Errorf("failed to deactivate push subscription %d: %w", subscriptionID, err)
	}
	return nil
}

// TouchSubscription records a successful send on the subscription.
func (d *DB) TouchSubscription(ctx context.Context, subscriptionID int64) error {
	query := `UPDATE push_subscriptions SET last_used_at = NOW() WHERE id = $1`
	if _, err := d.Pool.Exec(ctx, query, subscriptionID); err != nil {
		return fmt.Errorf("failed to update last_used_at for push subscription %d: %w", subscriptionID, err)
	}
	return nil
}
