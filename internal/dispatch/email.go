package dispatch

import (
	"context"
	"errors"

	"alert-notification-service/internal/models"
	"alert-notification-service/internal/render"
)

// sendEmail dispatches the rendered content to the user's email address from
// the fixed sender identity. Preconditions are checked before any network
// call is made.
func (d *Dispatcher) sendEmail(ctx context.Context, user models.User, content render.Content) error {
	client, ok := d.registry.Email()
	if !ok {
		return errors.New("email service not configured")
	}
	if user.Email == "" {
		return errors.New("User email address not available")
	}

	messageID, err := client.Send(ctx, d.emailFrom, user.Email, content.Subject, content.HTML, content.Text)
	if err != nil {
		return err
	}

	d.logger.Debugf("Email accepted for user %d (message id %s)", user.ID, messageID)
	return nil
}
