package providers

import (
	"context"
	"fmt"
	"strings"
	"sync"

	webpush "github.com/SherClockHolmes/webpush-go"
	"github.com/resend/resend-go/v2"
	"github.com/sirupsen/logrus"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"alert-notification-service/internal/config"
	"alert-notification-service/internal/models"
)

const minVAPIDPrivateKeyLength = 32

// EmailClient sends one rendered email and returns the provider message id.
type EmailClient interface {
	Send(ctx context.Context, from, to, subject, html, text string) (string, error)
}

// PushClient delivers an encrypted payload to a single subscription endpoint
// and reports the provider's HTTP status code.
type PushClient interface {
	Send(ctx context.Context, sub models.PushSubscription, payload []byte, urgent bool) (int, error)
}

// SMSClient sends a single text message.
type SMSClient interface {
	Send(to, from, body string) error
}

// Registry holds at most one instance of each outbound provider client for
// the lifetime of the process. Construction is lazy and mutex-guarded so
// concurrent first dispatches cannot double-construct a client. A provider
// whose credentials are absent, or whose setup fails, simply stays
// unconfigured; the corresponding channel sender fails fast.
type Registry struct {
	cfg    config.Config
	logger *logrus.Logger

	mu    sync.Mutex
	email EmailClient
	push  PushClient
	sms   SMSClient

	emailAttempted bool
	pushAttempted  bool
	smsAttempted   bool

	// Constructors are fields so tests can count invocations.
	newEmail func(cfg config.Config) (EmailClient, error)
	newPush  func(cfg config.Config) (PushClient, error)
	newSMS   func(cfg config.Config) (SMSClient, error)
}

func NewRegistry(cfg config.Config, logger *logrus.Logger) *Registry {
	return &Registry{
		cfg:      cfg,
		logger:   logger,
		newEmail: newResendClient,
		newPush:  newWebPushClient,
		newSMS:   newTwilioClient,
	}
}

// NewRegistryWithConstructors substitutes provider constructors, letting
// callers inject fake clients. A nil constructor keeps the default.
func NewRegistryWithConstructors(cfg config.Config, logger *logrus.Logger,
	newEmail func(config.Config) (EmailClient, error),
	newPush func(config.Config) (PushClient, error),
	newSMS func(config.Config) (SMSClient, error),
) *Registry {
	r := NewRegistry(cfg, logger)
	if newEmail != nil {
		r.newEmail = newEmail
	}
	if newPush != nil {
		r.newPush = newPush
	}
	if newSMS != nil {
		r.newSMS = newSMS
	}
	return r
}

// EnsureInitialized lazily constructs each provider whose credentials are
// present. Idempotent and cheap on repeat calls; it never fails the request.
func (r *Registry) EnsureInitialized() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.emailAttempted && r.cfg.Email.APIKey != "" {
		r.emailAttempted = true
		client, err := r.newEmail(r.cfg)
		if err != nil {
			r.logger.Errorf("Email provider setup failed, channel disabled: %v", err)
		} else {
			r.email = client
			r.logger.Infof("Email provider initialized")
		}
	}

	if !r.pushAttempted && r.cfg.Push.VAPIDPublicKey != "" && r.cfg.Push.VAPIDPrivateKey != "" {
		r.pushAttempted = true
		if err := validateVAPIDPrivateKey(r.cfg.Push.VAPIDPrivateKey); err != nil {
			r.logger.Errorf("Push signing setup failed, channel disabled: %v", err)
		} else if client, err := r.newPush(r.cfg); err != nil {
			r.logger.Errorf("Push provider setup failed, channel disabled: %v", err)
		} else {
			r.push = client
			r.logger.Infof("Push provider initialized")
		}
	}

	if !r.smsAttempted && r.cfg.SMS.AccountSID != "" && r.cfg.SMS.AuthToken != "" {
		r.smsAttempted = true
		client, err := r.newSMS(r.cfg)
		if err != nil {
			r.logger.Errorf("SMS provider setup failed, channel disabled: %v", err)
		} else {
			r.sms = client
			r.logger.Infof("SMS provider initialized")
		}
	}
}

// Email returns the email client, if configured.
func (r *Registry) Email() (EmailClient, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.email, r.email != nil
}

// Push returns the push client, if signing is configured.
func (r *Registry) Push() (PushClient, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.push, r.push != nil
}

// SMS returns the SMS client and the configured sender number. The second
// return is empty when no originating number is configured, which the SMS
// sender treats as a precondition failure.
func (r *Registry) SMS() (SMSClient, string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sms, r.cfg.SMS.FromNumber, r.sms != nil
}

func validateVAPIDPrivateKey(key string) error {
	if len(key) < minVAPIDPrivateKeyLength {
		return fmt.Errorf("VAPID private key too short (%d chars)", len(key))
	}
	if strings.Contains(strings.ToLower(key), "placeholder") || strings.HasPrefix(key, "your-") {
		return fmt.Errorf("VAPID private key looks like a placeholder")
	}
	return nil
}

// resendClient wraps the Resend SDK.
type resendClient struct {
	client *resend.Client
}

func newResendClient(cfg config.Config) (EmailClient, error) {
	return &resendClient{client: resend.NewClient(cfg.Email.APIKey)}, nil
}

func (c *resendClient) Send(ctx context.Context, from, to, subject, html, text string) (string, error) {
	sent, err := c.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    from,
		To:      []string{to},
		Subject: subject,
		Html:    html,
		Text:    text,
	})
	if err != nil {
		return "", err
	}
	// The API can report a failure in the response body without a transport
	// error; an empty id means nothing was accepted.
	if sent == nil || sent.Id == "" {
		return "", fmt.Errorf("provider accepted no message")
	}
	return sent.Id, nil
}

// webPushClient signs and sends Web Push messages with the configured VAPID
// key pair.
type webPushClient struct {
	publicKey  string
	privateKey string
	subscriber string
}

func newWebPushClient(cfg config.Config) (PushClient, error) {
	return &webPushClient{
		publicKey:  cfg.Push.VAPIDPublicKey,
		privateKey: cfg.Push.VAPIDPrivateKey,
		subscriber: cfg.Push.Subject,
	}, nil
}

func (c *webPushClient) Send(ctx context.Context, sub models.PushSubscription, payload []byte, urgent bool) (int, error) {
	urgency := webpush.UrgencyNormal
	if urgent {
		urgency = webpush.UrgencyHigh
	}
	resp, err := webpush.SendNotificationWithContext(ctx, payload, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256dh,
			Auth:   sub.Auth,
		},
	}, &webpush.Options{
		Subscriber:      c.subscriber,
		VAPIDPublicKey:  c.publicKey,
		VAPIDPrivateKey: c.privateKey,
		TTL:             60,
		Urgency:         urgency,
	})
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	return resp.StatusCode, nil
}

// twilioClient wraps the Twilio REST SDK.
type twilioClient struct {
	client *twilio.RestClient
}

func newTwilioClient(cfg config.Config) (SMSClient, error) {
	return &twilioClient{
		client: twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: cfg.SMS.AccountSID,
			Password: cfg.SMS.AuthToken,
		}),
	}, nil
}

func (c *twilioClient) Send(to, from, body string) error {
	params := &twilioApi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(from)
	params.SetBody(body)
	if _, err := c.client.Api.CreateMessage(params); err != nil {
		return fmt.Errorf("failed to send SMS to %s: %w", to, err)
	}
	return nil
}
