package simulator

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"gorm.io/gorm"

	"procodus.dev/device-monitor/internal/store"
	"procodus.dev/device-monitor/pkg/metrics"
	"procodus.dev/device-monitor/pkg/mq"
)

// ServerConfig holds the configuration for the simulator server.
type ServerConfig struct {
	// Logger is the structured logger
	Logger *slog.Logger
	// DB is used to discover the devices to simulate readings for
	DB *gorm.DB
	// RabbitMQURL is the connection string for RabbitMQ
	RabbitMQURL string
	// QueueName is the queue diagnostic readings are published to
	QueueName string
	// Interval is the time between published readings per worker
	Interval time.Duration
	// WorkerCount is the number of concurrent publishing workers
	WorkerCount int
	// MQMetrics is the optional Prometheus metrics collector for MQ operations
	MQMetrics *metrics.MQMetrics
}

var (
	errInvalidWorkerCount = errors.New("worker count must be greater than 0")
	errInvalidInterval    = errors.New("interval must be greater than 0")
	errLoggerRequired     = errors.New("logger is required")
	errDatabaseRequired   = errors.New("database is required")
)

// Server manages the simulation workers.
type Server struct {
	logger  *slog.Logger
	config  *ServerConfig
	devices *store.DeviceRepository
	workers []*Worker
	clients []*mq.Client
	wg      sync.WaitGroup
}

// NewServer creates a new simulator server with the given configuration.
func NewServer(cfg *ServerConfig) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("server config cannot be nil")
	}

	if cfg.Logger == nil {
		return nil, errLoggerRequired
	}

	if cfg.DB == nil {
		return nil, errDatabaseRequired
	}

	if cfg.WorkerCount <= 0 {
		return nil, errInvalidWorkerCount
	}

	if cfg.Interval <= 0 {
		return nil, errInvalidInterval
	}

	return &Server{
		logger:  cfg.Logger,
		config:  cfg,
		devices: store.NewDeviceRepository(cfg.DB),
	}, nil
}

// Run starts all workers and blocks until a shutdown signal arrives.
func (s *Server) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	deviceIDs, err := s.devices.AllIDs(ctx)
	if err != nil {
		return err
	}
	if len(deviceIDs) == 0 {
		return errors.New("no devices to simulate; seed the database first")
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	// Each worker gets its own MQ client, so a slow confirm on one
	// connection does not stall the others.
	for i := 0; i < s.config.WorkerCount; i++ {
		client := mq.New(s.config.QueueName, s.config.RabbitMQURL, s.logger.With(
			slog.String("component", "mq-client"),
			slog.Int("worker_id", i),
		))
		if s.config.MQMetrics != nil {
			client.SetMetrics(s.config.MQMetrics)
		}

		worker, err := NewWorker(client, deviceIDs)
		if err != nil {
			return err
		}

		s.clients = append(s.clients, client)
		s.workers = append(s.workers, worker)

		s.wg.Add(1)
		go s.runWorker(ctx, i, worker)
	}

	s.logger.Info("simulator started",
		"worker_count", s.config.WorkerCount,
		"device_count", len(deviceIDs),
		"interval", s.config.Interval,
	)

	select {
	case sig := <-sigChan:
		s.logger.Info("received shutdown signal", "signal", sig.String())
		cancel()
	case <-ctx.Done():
		s.logger.Info("context canceled, shutting down")
	}

	s.logger.Info("waiting for workers to shut down")
	s.wg.Wait()

	s.logger.Info("closing MQ clients")
	s.closeClients()

	s.logger.Info("simulator stopped")
	return nil
}

// runWorker publishes readings at the configured interval until the
// context is canceled.
func (s *Server) runWorker(ctx context.Context, id int, worker *Worker) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	workerLogger := s.logger.With(slog.Int("worker_id", id))
	workerLogger.Info("worker started")

	for {
		select {
		case <-ctx.Done():
			workerLogger.Info("worker shutting down")
			return

		case tick := <-ticker.C:
			if err := worker.PublishReading(ctx, tick); err != nil {
				workerLogger.Error("failed to publish reading", "error", err)
				continue
			}

			workerLogger.Debug("reading published")
		}
	}
}

// closeClients closes all MQ clients gracefully.
func (s *Server) closeClients() {
	var wg sync.WaitGroup
	for i, client := range s.clients {
		wg.Add(1)
		go func(id int, c *mq.Client) {
			defer wg.Done()

			if err := c.Close(); err != nil {
				s.logger.Error("failed to close MQ client", "worker_id", id, "error", err)
				return
			}

			s.logger.Info("MQ client closed", "worker_id", id)
		}(i, client)
	}
	wg.Wait()
}
