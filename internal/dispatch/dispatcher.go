package dispatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"alert-notification-service/internal/config"
	"alert-notification-service/internal/models"
	"alert-notification-service/internal/providers"
	"alert-notification-service/internal/render"
)

// channelOrder fixes the order result lists are assembled in, regardless of
// completion order.
var channelOrder = []string{models.ChannelEmail, models.ChannelPush, models.ChannelSMS}

var channelLabels = map[string]string{
	models.ChannelEmail: "Email",
	models.ChannelPush:  "Push",
	models.ChannelSMS:   "SMS",
}

// SubscriptionStore is the push-subscription persistence the push sender
// needs: candidate reads plus the two bookkeeping writes.
type SubscriptionStore interface {
	ActiveSubscriptions(ctx context.Context, userID int64) ([]models.PushSubscription, error)
	DeactivateSubscription(ctx context.Context, subscriptionID int64) error
	TouchSubscription(ctx context.Context, subscriptionID int64) error
}

// Dispatcher coordinates one delivery: providers, rendering, the requested
// channel senders, and aggregation of their outcomes.
type Dispatcher struct {
	registry *providers.Registry
	renderer *render.Renderer
	subs     SubscriptionStore
	logger   *logrus.Logger

	emailFrom       string
	dashboardURL    string
	channelTimeout  time.Duration
	pushConcurrency int
}

func New(registry *providers.Registry, renderer *render.Renderer, subs SubscriptionStore, logger *logrus.Logger, cfg config.Config) *Dispatcher {
	return &Dispatcher{
		registry:        registry,
		renderer:        renderer,
		subs:            subs,
		logger:          logger,
		emailFrom:       cfg.Email.From,
		dashboardURL:    cfg.Dashboard.URL,
		channelTimeout:  time.Duration(cfg.Dispatch.ChannelTimeoutSeconds) * time.Second,
		pushConcurrency: cfg.Dispatch.PushConcurrency,
	}
}

// Dispatch delivers the alert batch over the requested channels and
// aggregates per-channel outcomes. Senders run concurrently; a slow or
// failing channel never delays or fails the others. No error escapes: every
// requested channel surfaces exactly one disposition in the result.
func (d *Dispatcher) Dispatch(ctx context.Context, user models.User, alerts []models.Alert, channels []string, template, priority string) models.DeliveryResult {
	d.registry.EnsureInitialized()

	// Rendered once; the HTML/text pair is only consumed by email, push and
	// SMS compute their own wording from the batch.
	content := d.renderer.Render(alerts, template, priority)

	requested := make(map[string]bool, len(channels))
	for _, ch := range channels {
		requested[ch] = true
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		outcomes = make(map[string]error, len(requested))
	)
	for _, ch := range channelOrder {
		if !requested[ch] {
			continue
		}
		wg.Add(1)
		go func(ch string) {
			defer wg.Done()
			err := d.sendChannel(ctx, ch, user, alerts, content)
			mu.Lock()
			outcomes[ch] = err
			mu.Unlock()
		}(ch)
	}
	wg.Wait()

	result := models.DeliveryResult{
		Delivered: []string{},
		Errors:    []string{},
	}
	for _, ch := range channelOrder {
		if !requested[ch] {
			continue
		}
		if err := outcomes[ch]; err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s delivery failed: %v", channelLabels[ch], err))
			d.logger.Warnf("%s delivery failed for user %d: %v", channelLabels[ch], user.ID, err)
		} else {
			result.Delivered = append(result.Delivered, ch)
			d.logger.Infof("%s delivered for user %d (%d alerts)", channelLabels[ch], user.ID, len(alerts))
		}
	}
	result.Success = len(result.Delivered) > 0

	return result
}

// sendChannel runs one channel sender under a per-channel timeout and
// converts panics into ordinary channel failures.
func (d *Dispatcher) sendChannel(ctx context.Context, channel string, user models.User, alerts []models.Alert, content render.Content) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("unexpected failure: %v", p)
		}
	}()

	cctx, cancel := context.WithTimeout(ctx, d.channelTimeout)
	defer cancel()

	switch channel {
	case models.ChannelEmail:
		return d.sendEmail(cctx, user, content)
	case models.ChannelPush:
		return d.sendPush(cctx, user, alerts)
	case models.ChannelSMS:
		return d.sendSMS(cctx, user, alerts)
	default:
		return fmt.Errorf("unknown channel %q", channel)
	}
}
