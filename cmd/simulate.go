package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"procodus.dev/device-monitor/internal/simulator"
	"procodus.dev/device-monitor/internal/store"
	"procodus.dev/device-monitor/pkg/metrics"
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Publish synthetic diagnostic readings",
	Long: `Run the reading simulator that:
- Generates synthetic CPU and memory readings for existing devices
- Publishes readings to the diagnostics RabbitMQ queue
- Supports multiple concurrent publishing workers`,
	RunE: runSimulate,
}

func init() {
	rootCmd.AddCommand(simulateCmd)

	// Simulator-specific flags
	simulateCmd.Flags().String("rabbitmq-url", "amqp://localhost:5672", "RabbitMQ URL")
	simulateCmd.Flags().String("queue-name", "device-diagnostics", "RabbitMQ queue name for diagnostic readings")
	simulateCmd.Flags().Int("worker-count", 3, "Number of concurrent publishing workers")
	simulateCmd.Flags().Duration("interval", 5*time.Second, "Interval between published readings")

	// Bind flags to viper
	_ = viper.BindPFlag("mq.url", simulateCmd.Flags().Lookup("rabbitmq-url"))
	_ = viper.BindPFlag("mq.queue_name", simulateCmd.Flags().Lookup("queue-name"))
	_ = viper.BindPFlag("simulator.worker_count", simulateCmd.Flags().Lookup("worker-count"))
	_ = viper.BindPFlag("simulator.interval", simulateCmd.Flags().Lookup("interval"))
}

func runSimulate(_ *cobra.Command, _ []string) error {
	logger := GetLogger()
	logger.Info("starting simulator service")

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

	// Create simulator configuration from viper
	config := &simulator.ServerConfig{
		Logger:      logger,
		DB:          db,
		RabbitMQURL: viper.GetString("mq.url"),
		QueueName:   viper.GetString("mq.queue_name"),
		Interval:    viper.GetDuration("simulator.interval"),
		WorkerCount: viper.GetInt("simulator.worker_count"),
		MQMetrics:   metrics.NewMQMetrics("device_monitor"),
	}

	srv, err := simulator.NewServer(config)
	if err != nil {
		logger.Error("failed to create simulator", "error", err)
		return err
	}

	logger.Info("simulator configuration",
		"rabbitmq_url", config.RabbitMQURL,
		"queue_name", config.QueueName,
		"worker_count", config.WorkerCount,
		"interval", config.Interval,
	)

	if err := srv.Run(context.Background()); err != nil {
		logger.Error("simulator error", "error", err)
		return err
	}

	logger.Info("simulator stopped")
	return nil
}
