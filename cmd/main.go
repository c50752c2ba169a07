package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"alert-notification-service/internal/api"
	"alert-notification-service/internal/config"
	"alert-notification-service/internal/db"
	"alert-notification-service/internal/dispatch"
	"alert-notification-service/internal/kafka"
	"alert-notification-service/internal/logging"
	"alert-notification-service/internal/providers"
	"alert-notification-service/internal/realtime"
	"alert-notification-service/internal/render"
)

func main() {
	// Load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Logging.Dir, cfg.Logging.Level)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}

	// Connect to database
	dbConn, err := db.New(cfg.DB.DSN)
	if err != nil {
		logger.Errorf("Failed to connect to database: %v", err)
		log.Fatalf("Database connection failed: %v", err)
	}
	defer dbConn.Close()

	// Delivery pipeline
	registry := providers.NewRegistry(cfg, logger)
	renderer := render.New(cfg.Dashboard.URL)
	dispatcher := dispatch.New(registry, renderer, dbConn, logger, cfg)
	hub := realtime.NewHub(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Optional alert ingest from the detection pipeline
	if cfg.Kafka.Broker != "" {
		consumer := kafka.NewConsumer(cfg, dbConn, logger)
		defer consumer.Close()
		go consumer.Start(ctx)
	}

	// Start API server
	handler := api.NewHandler(dbConn, dispatcher, hub, logger)
	router := api.NewRouter(handler, dbConn, logger, cfg)
	go func() {
		logger.Infof("Starting API server on %s", cfg.API.Port)
		if err := router.Run(cfg.API.Port); err != nil {
			logger.Errorf("API server failed: %v", err)
		}
	}()

	// Graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c
	logger.Infof("Shutting down...")
	cancel()
	logger.Infof("Service stopped")
}
