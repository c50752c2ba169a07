package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"alert-notification-service/internal/models"
	"alert-notification-service/internal/render"
)

// pushPayload is the JSON document delivered to the service worker.
type pushPayload struct {
	Title              string  `json:"title"`
	Body               string  `json:"body"`
	AlertIDs           []int64 `json:"alertIds"`
	CriticalCount      int     `json:"criticalCount"`
	TotalCount         int     `json:"totalCount"`
	URL                string  `json:"url"`
	RequireInteraction bool    `json:"requireInteraction"`
	Vibrate            []int   `json:"vibrate"`
}

// sendPush fans the payload out to every active subscription independently.
// The channel succeeds when at least one subscription succeeded; it fails
// only when every attempt failed. A 404/410 from the provider means the
// endpoint is gone, so the subscription is deactivated for future dispatches.
func (d *Dispatcher) sendPush(ctx context.Context, user models.User, alerts []models.Alert) error {
	client, ok := d.registry.Push()
	if !ok {
		return errors.New("push notifications not configured")
	}

	subs, err := d.subs.ActiveSubscriptions(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("failed to load push subscriptions: %w", err)
	}
	if len(subs) == 0 {
		return errors.New("no active push subscriptions")
	}

	urgent := models.CriticalCount(alerts) > 0
	payload, err := json.Marshal(buildPushPayload(alerts, d.dashboardURL))
	if err != nil {
		return fmt.Errorf("failed to encode push payload: %w", err)
	}

	var (
		mu        sync.Mutex
		delivered int
		failures  []string
	)
	g := new(errgroup.Group)
	g.SetLimit(d.pushConcurrency)
	for _, sub := range subs {
		sub := sub
		// Every subscription is attempted; earlier failures never
		// short-circuit later sends.
		g.Go(func() error {
			status, err := client.Send(ctx, sub, payload, urgent)
			if err != nil {
				mu.Lock()
				failures = append(failures, fmt.Sprintf("subscription %d: %v", sub.ID, err))
				mu.Unlock()
				return nil
			}
			if status == http.StatusNotFound || status == http.StatusGone {
				if derr := d.subs.DeactivateSubscription(ctx, sub.ID); derr != nil {
					d.logger.Errorf("Failed to deactivate stale push subscription %d: %v", sub.ID, derr)
				} else {
					d.logger.Infof("Deactivated stale push subscription %d (status %d)", sub.ID, status)
				}
				mu.Lock()
				failures = append(failures, fmt.Sprintf("subscription %d: endpoint gone (status %d)", sub.ID, status))
				mu.Unlock()
				return nil
			}
			if status >= http.StatusBadRequest {
				mu.Lock()
				failures = append(failures, fmt.Sprintf("subscription %d: status %d", sub.ID, status))
				mu.Unlock()
				return nil
			}
			if terr := d.subs.TouchSubscription(ctx, sub.ID); terr != nil {
				d.logger.Errorf("Failed to update last_used_at for push subscription %d: %v", sub.ID, terr)
			}
			mu.Lock()
			delivered++
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	if delivered == 0 {
		return fmt.Errorf("all %d subscription(s) failed: %s", len(subs), strings.Join(failures, "; "))
	}
	return nil
}

func buildPushPayload(alerts []models.Alert, dashboardURL string) pushPayload {
	title, body := render.PushWording(alerts)
	critical := models.CriticalCount(alerts)

	ids := make([]int64, 0, len(alerts))
	for _, a := range alerts {
		ids = append(ids, a.ID)
	}

	vibrate := []int{200}
	if critical > 0 {
		vibrate = []int{200, 100, 200, 100, 200}
	}

	return pushPayload{
		Title:              title,
		Body:               body,
		AlertIDs:           ids,
		CriticalCount:      critical,
		TotalCount:         len(alerts),
		URL:                dashboardURL,
		RequireInteraction: critical > 0,
		Vibrate:            vibrate,
	}
}
