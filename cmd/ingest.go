package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"procodus.dev/device-monitor/internal/ingest"
	"procodus.dev/device-monitor/internal/store"
	"procodus.dev/device-monitor/pkg/metrics"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Run the diagnostics ingest consumer",
	Long: `Run the ingest consumer that:
- Consumes diagnostic readings from RabbitMQ
- Validates readings against registered devices
- Stores accepted readings in the database`,
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)

	// Ingest-specific flags
	ingestCmd.Flags().String("rabbitmq-url", "amqp://localhost:5672", "RabbitMQ URL")
	ingestCmd.Flags().String("queue-name", "device-diagnostics", "RabbitMQ queue name for diagnostic readings")

	// Bind flags to viper
	_ = viper.BindPFlag("mq.url", ingestCmd.Flags().Lookup("rabbitmq-url"))
	_ = viper.BindPFlag("mq.queue_name", ingestCmd.Flags().Lookup("queue-name"))
}

func runIngest(_ *cobra.Command, _ []string) error {
	logger := GetLogger()
	logger.Info("starting ingest service")

	db, err := store.NewDB(GetDBConfig(logger))
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		return err
	}
	defer func() {
		if err := store.CloseDB(db, logger); err != nil {
			logger.Error("failed to close database", "error", err)
		}
	}()

	// Create consumer configuration from viper
	config := &ingest.ConsumerConfig{
		Logger:      logger,
		DB:          db,
		Metrics:     metrics.NewIngestMetrics("device_monitor"),
		RabbitMQURL: viper.GetString("mq.url"),
		QueueName:   viper.GetString("mq.queue_name"),
	}

	consumer, err := ingest.NewConsumer(config)
	if err != nil {
		logger.Error("failed to create ingest consumer", "error", err)
		return err
	}

	logger.Info("ingest consumer configuration",
		"rabbitmq_url", config.RabbitMQURL,
		"queue_name", config.QueueName,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := consumer.Start(ctx); err != nil {
		logger.Error("failed to start ingest consumer", "error", err)
		return err
	}

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case <-consumer.Done():
		logger.Info("consumer stopped on its own")
	}

	if err := consumer.Close(); err != nil {
		logger.Error("failed to close ingest consumer", "error", err)
		return err
	}

	logger.Info("ingest service stopped")
	return nil
}
