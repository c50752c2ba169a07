package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"alert-notification-service/internal/models"
)

// ErrUserNotFound is returned when a bearer token resolves to no user.
var ErrUserNotFound = errors.New("user not found")

// GetUserByToken resolves an API bearer token to the owning user with the
// contact details the channel senders need.
func (d *DB) GetUserByToken(ctx context.Context, token string) (models.User, error) {
	query := `
	SELECT u.id, COALESCE(u.email, ''), COALESCE(u.phone, '')
	FROM users u
	JOIN api_tokens t ON t.user_id = u.id
	WHERE t.token = $1 AND (t.expires_at IS NULL OR t.expires_at > NOW())`

	var u models.User
	err := d.Pool.QueryRow(ctx, query, token).Scan(&u.ID, &u.Email, &u.Phone)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, ErrUserNotFound
		}
		return models.User{}, fmt.Errorf("failed to resolve user by token: %w", err)
	}
	return u, nil
}
