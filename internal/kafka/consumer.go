package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"io"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"alert-notification-service/internal/config"
	"alert-notification-service/internal/models"
)

// AlertCreator stores alerts detected by the upstream pipeline.
type AlertCreator interface {
	CreateAlert(ctx context.Context, a models.Alert) error
}

// detectedAlert is the event shape the detection pipeline publishes.
type detectedAlert struct {
	UserID       int64          `json:"user_id"`
	CompetitorID *int64         `json:"competitor_id"`
	Severity     string         `json:"severity"`
	AlertType    string         `json:"alert_type"`
	Title        string         `json:"title"`
	Description  string         `json:"description"`
	SourceData   map[string]any `json:"source_data"`
}

// Consumer ingests detected-alert events into the alert store. It is not
// part of the dispatch path; deliveries are still triggered per HTTP request.
type Consumer struct {
	reader *kafka.Reader
	store  AlertCreator
	logger *logrus.Logger
}

func NewConsumer(cfg config.Config, store AlertCreator, logger *logrus.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers: []string{cfg.Kafka.Broker},
		Topic:   cfg.Kafka.Topic,
		GroupID: cfg.Kafka.GroupID,
	})
	return &Consumer{reader: reader, store: store, logger: logger}
}

// Start consumes until the context is cancelled or the reader is closed.
func (c *Consumer) Start(ctx context.Context) {
	c.logger.Infof("Kafka consumer started")
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
				c.logger.Infof("Kafka consumer stopped")
				return
			}
			c.logger.Errorf("Read message failed: %v", err)
			continue
		}

		var event detectedAlert
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			c.logger.Errorf("Unmarshal message failed: %v", err)
			continue
		}
		if event.UserID < 1 || event.Title == "" || event.Severity == "" {
			c.logger.Errorf("Invalid message: missing user_id, title, or severity")
			continue
		}

		alert := models.Alert{
			UserID:       event.UserID,
			CompetitorID: event.CompetitorID,
			Severity:     event.Severity,
			AlertType:    event.AlertType,
			Title:        event.Title,
			Description:  event.Description,
			SourceData:   event.SourceData,
		}
		if err := c.store.CreateAlert(ctx, alert); err != nil {
			c.logger.Errorf("CreateAlert failed for user %d: %v", event.UserID, err)
			continue
		}
		c.logger.Infof("Ingested alert %q for user %d", event.Title, event.UserID)
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
