package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"alerting-service/internal/api"
	"alerting-service/internal/config"
	"alerting-service/internal/db"
	"alerting-service/internal/engine"
	"alerting-service/internal/kafka"
	"alerting-service/internal/logging"
	"alerting-service/internal/projector"
	"alerting-service/internal/thresholds"
	"alerting-service/internal/tracker"
	"alerting-service/internal/ws"
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

	// Connect to database and make sure the schema exists
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dbConn, err := db.New(ctx, cfg.DB.DSN)
	if err != nil {
		logger.Errorf("Failed to connect to database: %v", err)
		log.Fatalf("Database connection failed: %v", err)
	}
	defer dbConn.Close()

	if err := dbConn.EnsureSchema(ctx); err != nil {
		logger.Errorf("Failed to ensure schema: %v", err)
		log.Fatalf("Schema setup failed: %v", err)
	}

	// Wire the alerting engine
	hub := ws.NewHub(logger)
	eng := engine.New(dbConn, thresholds.Default(), tracker.New(), logger, hub, engine.Options{
		QueueSize:    cfg.Engine.QueueSize,
		MaxWorkers:   cfg.Engine.MaxWorkers,
		DedupWindow:  time.Duration(cfg.Engine.DedupWindowMin) * time.Minute,
		StoreTimeout: time.Duration(cfg.Engine.StoreTimeoutSec) * time.Second,
	})
	var wg sync.WaitGroup
	eng.Start(&wg)

	// Kafka consumer feeds the engine; optional in environments without a broker
	var consumer *kafka.Consumer
	if cfg.Kafka.Broker != "" {
		consumer = kafka.NewConsumer(kafka.Config{
			Broker:  cfg.Kafka.Broker,
			Topic:   cfg.Kafka.Topic,
			GroupID: cfg.Kafka.GroupID,
		}, eng, logger)
		go consumer.Start(ctx)
	} else {
		logger.Warnf("KAFKA_BROKER not set, snapshot ingestion disabled")
	}

	// Start API server
	proj := projector.New(dbConn, logger, db.IsUniqueViolation)
	handler := api.NewHandler(dbConn, dbConn, proj, logger, cfg.Engine.RetentionDaysKeep)
	router := api.NewRouter(handler, hub, logger, cfg)
	go func() {
		logger.Infof("Starting API server on %s", cfg.API.Port)
		if err := router.Run(cfg.API.Port); err != nil {
			logger.Errorf("API server failed: %v", err)
		}
	}()

	// Handle graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c
	logger.Infof("Shutting down...")
	cancel()
	if consumer != nil {
		if err := consumer.Close(); err != nil {
			logger.Errorf("Kafka close failed: %v", err)
		}
	}
	eng.Stop()
	wg.Wait()
	logger.Infof("Service stopped")
}
