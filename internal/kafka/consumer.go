package kafka

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"

	"alerting-service/internal/engine"
	"alerting-service/internal/logging"
	"alerting-service/internal/models"
)

// Config for the snapshot consumer.
type Config struct {
	Broker  string
	Topic   string
	GroupID string
}

// message is the envelope published by the health-data pipeline. A plain
// snapshot carries no event field; detection events name the event and skip
// the metrics map.
type message struct {
	Event string `json:"event,omitempty"`
	models.MetricSnapshot
}

const (
	eventAlcoholDetected    = "alcohol_detected"
	eventDrowsinessDetected = "drowsiness_detected"
)

// Consumer reads metric snapshots and detection events and feeds the engine.
type Consumer struct {
	reader *kafka.Reader
	engine *engine.Engine
	logger *logging.Logger
}

func NewConsumer(cfg Config, eng *engine.Engine, logger *logging.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  []string{cfg.Broker},
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	return &Consumer{reader: reader, engine: eng, logger: logger}
}

// Start consumes until the context is cancelled. Malformed and invalid
// messages are logged and skipped.
func (c *Consumer) Start(ctx context.Context) {
	c.logger.Infof("Kafka consumer started on topic %s", c.reader.Config().Topic)
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Errorf("Read message failed: %v", err)
			continue
		}

		var m message
		if err := json.Unmarshal(msg.Value, &m); err != nil {
			c.logger.Errorf("Unmarshal message failed: %v", err)
			continue
		}

		switch m.Event {
		case eventAlcoholDetected, eventDrowsinessDetected:
			c.handleDetection(ctx, m)
		default:
			if err := m.MetricSnapshot.Validate(); err != nil {
				c.logger.Errorf("Invalid snapshot message: %v", err)
				continue
			}
			c.engine.Enqueue(m.MetricSnapshot)
		}
	}
}

func (c *Consumer) handleDetection(ctx context.Context, m message) {
	if m.DriverID == "" || m.OrganizationID == "" {
		c.logger.Errorf("Invalid %s event: missing driver_id or organization_id", m.Event)
		return
	}
	p := engine.DetectionParams{
		DriverID:       m.DriverID,
		DriverName:     m.DriverName,
		OrganizationID: m.OrganizationID,
	}

	var err error
	if m.Event == eventAlcoholDetected {
		_, err = c.engine.CreateAlcoholAlert(ctx, p)
	} else {
		_, err = c.engine.CreateDrowsinessAlert(ctx, p)
	}
	if err != nil {
		c.logger.Errorf("Failed to create %s alert for driver %s: %v", m.Event, m.DriverID, err)
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
