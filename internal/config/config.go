package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration loaded from environment.
type Config struct {
	DB struct {
		DSN string
	}
	API struct {
		Port               string
		BasePath           string
		RateLimitPerMinute int
	}
	Logging struct {
		Dir   string
		Level string
	}
	Dashboard struct {
		URL string
	}
	Email struct {
		APIKey string
		From   string
	}
	Push struct {
		VAPIDPublicKey  string
		VAPIDPrivateKey string
		Subject         string
	}
	SMS struct {
		AccountSID string
		AuthToken  string
		FromNumber string
	}
	Kafka struct {
		Broker  string
		Topic   string
		GroupID string
	}
	Dispatch struct {
		ChannelTimeoutSeconds int
		PushConcurrency       int
	}
}

// Load reads environment variables, applies defaults, and returns a Config.
// Provider credentials are optional: a missing credential disables that
// channel, it never fails startup.
func Load() (Config, error) {
	// Load .env if present
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("failed to load .env file: %w", err)
	}

	var cfg Config

	cfg.DB.DSN = os.Getenv("DB_DSN")

	cfg.API.Port = os.Getenv("API_PORT")
	cfg.API.BasePath = os.Getenv("API_BASE_PATH")
	if n, err := strconv.Atoi(os.Getenv("RATE_LIMIT_PER_MINUTE")); err == nil {
		cfg.API.RateLimitPerMinute = n
	}

	cfg.Logging.Dir = os.Getenv("LOG_DIR")
	cfg.Logging.Level = os.Getenv("LOG_LEVEL")

	cfg.Dashboard.URL = os.Getenv("DASHBOARD_URL")

	cfg.Email.APIKey = os.Getenv("RESEND_API_KEY")
	cfg.Email.From = os.Getenv("EMAIL_FROM")

	cfg.Push.VAPIDPublicKey = os.Getenv("VAPID_PUBLIC_KEY")
	cfg.Push.VAPIDPrivateKey = os.Getenv("VAPID_PRIVATE_KEY")
	cfg.Push.Subject = os.Getenv("VAPID_SUBJECT")

	cfg.SMS.AccountSID = os.Getenv("TWILIO_ACCOUNT_SID")
	cfg.SMS.AuthToken = os.Getenv("TWILIO_AUTH_TOKEN")
	cfg.SMS.FromNumber = os.Getenv("TWILIO_PHONE_NUMBER")

	cfg.Kafka.Broker = os.Getenv("KAFKA_BROKER")
	cfg.Kafka.Topic = os.Getenv("KAFKA_TOPIC")
	cfg.Kafka.GroupID = os.Getenv("KAFKA_GROUP_ID")

	if n, err := strconv.Atoi(os.Getenv("CHANNEL_TIMEOUT_SECONDS")); err == nil {
		cfg.Dispatch.ChannelTimeoutSeconds = n
	}
	if n, err := strconv.Atoi(os.Getenv("PUSH_CONCURRENCY")); err == nil {
		cfg.Dispatch.PushConcurrency = n
	}

	// Validate required settings
	missing := []string{}
	if cfg.DB.DSN == "" {
		missing = append(missing, "DB_DSN")
	}
	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required configurations: %v", missing)
	}

	// Apply defaults
	if cfg.API.Port == "" {
		cfg.API.Port = ":8080"
	}
	if cfg.API.BasePath == "" {
		cfg.API.BasePath = "/api/v0"
	}
	if cfg.API.RateLimitPerMinute == 0 {
		cfg.API.RateLimitPerMinute = 60
	}
	if cfg.Logging.Dir == "" {
		cfg.Logging.Dir = "logs"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Dashboard.URL == "" {
		cfg.Dashboard.URL = "http://localhost:3000/dashboard"
	}
	if cfg.Email.From == "" {
		cfg.Email.From = "Competitor Alerts <alerts@notifications.local>"
	}
	if cfg.Kafka.Topic == "" {
		cfg.Kafka.Topic = "alert_detected"
	}
	if cfg.Kafka.GroupID == "" {
		cfg.Kafka.GroupID = "alert-notification-service"
	}
	if cfg.Dispatch.ChannelTimeoutSeconds == 0 {
		cfg.Dispatch.ChannelTimeoutSeconds = 8
	}
	if cfg.Dispatch.PushConcurrency == 0 {
		cfg.Dispatch.PushConcurrency = 8
	}

	return cfg, nil
}
