// Package ingest consumes diagnostic readings from RabbitMQ and
// persists them, giving devices a reporting path that bypasses the web
// UI.
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	amqp "github.com/rabbitmq/amqp091-go"
	"gorm.io/gorm"

	"procodus.dev/device-monitor/internal/store"
	"procodus.dev/device-monitor/pkg/metrics"
	"procodus.dev/device-monitor/pkg/mq"
)

// Reading is the JSON message devices publish to the diagnostics
// queue. Timestamp is optional; a zero value means "now".
type Reading struct {
	Timestamp   time.Time `json:"timestamp"`
	DeviceID    uint      `json:"device_id"`
	CPUUsage    float64   `json:"cpu_usage"`
	MemoryUsage float64   `json:"memory_usage"`
}

// Consumer consumes diagnostic readings from RabbitMQ and persists
// them through the diagnostics repository.
type Consumer struct {
	logger      *slog.Logger
	devices     *store.DeviceRepository
	diagnostics *store.DiagnosticRepository
	mqClient    mq.ClientInterface
	metrics     *metrics.IngestMetrics // Optional
	queueName   string
	done        chan struct{}
}

// ConsumerConfig holds the configuration for the Consumer.
type ConsumerConfig struct {
	Logger      *slog.Logger
	DB          *gorm.DB
	Metrics     *metrics.IngestMetrics
	RabbitMQURL string
	QueueName   string

	// MQClient overrides the RabbitMQ connection; used by tests.
	MQClient mq.ClientInterface
}

// NewConsumer creates a new Consumer instance.
func NewConsumer(cfg *ConsumerConfig) (*Consumer, error) {
	if cfg == nil {
		return nil, errors.New("consumer config cannot be nil")
	}

	if cfg.Logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	if cfg.DB == nil {
		return nil, errors.New("database cannot be nil")
	}

	if cfg.QueueName == "" {
		return nil, errors.New("queue name cannot be empty")
	}

	mqClient := cfg.MQClient
	if mqClient == nil {
		if cfg.RabbitMQURL == "" {
			return nil, errors.New("rabbitmq URL cannot be empty")
		}
		mqClient = mq.New(cfg.QueueName, cfg.RabbitMQURL, cfg.Logger)
	}

	return &Consumer{
		logger:      cfg.Logger,
		devices:     store.NewDeviceRepository(cfg.DB),
		diagnostics: store.NewDiagnosticRepository(cfg.DB),
		mqClient:    mqClient,
		metrics:     cfg.Metrics,
		queueName:   cfg.QueueName,
		done:        make(chan struct{}),
	}, nil
}

// Start begins consuming messages from RabbitMQ.
func (c *Consumer) Start(ctx context.Context) error {
	c.logger.Info("starting ingest consumer", "queue", c.queueName)

	// Give the MQ client time to finish its initial connect.
	time.Sleep(2 * time.Second)

	deliveries, err := c.mqClient.Consume()
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	c.logger.Info("ingest consumer started, waiting for messages")

	go c.processMessages(ctx, deliveries)

	return nil
}

// Done is closed once message processing has stopped.
func (c *Consumer) Done() <-chan struct{} {
	return c.done
}

// Close shuts down the MQ connection.
func (c *Consumer) Close() error {
	return c.mqClient.Close()
}

// processMessages drains the deliveries channel until it closes or the
// context is canceled.
func (c *Consumer) processMessages(ctx context.Context, deliveries <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			c.logger.Info("context canceled, stopping message processing")
			close(c.done)
			return

		case delivery, ok := <-deliveries:
			if !ok {
				c.logger.Warn("deliveries channel closed")
				close(c.done)
				return
			}

			c.handleDelivery(ctx, delivery)
		}
	}
}

// handleDelivery processes a single message. Malformed messages and
// readings for unknown devices are acked and dropped so they are not
// redelivered forever; store failures are nacked for redelivery.
func (c *Consumer) handleDelivery(ctx context.Context, delivery amqp.Delivery) {
	var timer *prometheus.Timer
	if c.metrics != nil {
		timer = prometheus.NewTimer(c.metrics.ProcessingDuration.WithLabelValues(c.queueName))
		defer timer.ObserveDuration()
	}

	var reading Reading
	if err := json.Unmarshal(delivery.Body, &reading); err != nil {
		c.logger.Error("failed to unmarshal reading", "error", err)
		c.recordError("unmarshal")
		c.ack(delivery)
		return
	}

	if reading.DeviceID == 0 {
		c.logger.Warn("reading without device id, dropping")
		c.recordError("missing_device_id")
		c.ack(delivery)
		return
	}

	if _, err := c.devices.GetByID(ctx, reading.DeviceID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.logger.Warn("reading for unknown device, dropping", "device_id", reading.DeviceID)
			c.recordError("unknown_device")
			c.ack(delivery)
			return
		}
		c.logger.Error("device lookup failed", "device_id", reading.DeviceID, "error", err)
		c.recordError("lookup_failed")
		c.nack(delivery)
		return
	}

	diag := &store.DeviceDiagnostic{
		DeviceID:    reading.DeviceID,
		CPUUsage:    reading.CPUUsage,
		MemoryUsage: reading.MemoryUsage,
		Timestamp:   reading.Timestamp,
	}
	if err := c.diagnostics.Create(ctx, diag); err != nil {
		c.logger.Error("failed to save reading", "device_id", reading.DeviceID, "error", err)
		c.recordError("store_failed")
		c.nack(delivery)
		return
	}

	c.logger.Info("reading stored",
		"device_id", reading.DeviceID,
		"diagnostic_id", diag.ID,
		"cpu_usage", reading.CPUUsage,
		"memory_usage", reading.MemoryUsage,
	)

	if c.metrics != nil {
		c.metrics.ReadingsStored.Inc()
		c.metrics.MessagesTotal.WithLabelValues(c.queueName, "success").Inc()
	}

	c.ack(delivery)
}

func (c *Consumer) recordError(errorType string) {
	if c.metrics != nil {
		c.metrics.ConsumerErrors.WithLabelValues(c.queueName, errorType).Inc()
		c.metrics.MessagesTotal.WithLabelValues(c.queueName, "error").Inc()
	}
}

func (c *Consumer) ack(delivery amqp.Delivery) {
	if err := delivery.Ack(false); err != nil {
		c.logger.Error("failed to ack message", "error", err)
	}
}

func (c *Consumer) nack(delivery amqp.Delivery) {
	if err := delivery.Nack(false, true); err != nil {
		c.logger.Error("failed to nack message", "error", err)
	}
}
