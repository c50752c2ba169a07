package dispatch

import (
	"context"
	"errors"

	"alert-notification-service/internal/models"
	"alert-notification-service/internal/render"
)

// sendSMS sends a single message to the user's phone number from the
// configured originating number. Wording branches on critical presence the
// same way push wording does, independent of the requested template.
func (d *Dispatcher) sendSMS(_ context.Context, user models.User, alerts []models.Alert) error {
	client, from, ok := d.registry.SMS()
	if !ok {
		return errors.New("SMS service not configured")
	}
	if from == "" {
		return errors.New("SMS sender number not configured")
	}
	if user.Phone == "" {
		return errors.New("User phone number not available")
	}

	return client.Send(user.Phone, from, render.SMSWording(alerts))
}
