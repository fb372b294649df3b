package main

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"procodus.dev/device-monitor/internal/server"
	"procodus.dev/device-monitor/internal/store"
	"procodus.dev/device-monitor/pkg/metrics"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Run the web server",
	Long: `Run the web server that:
- Serves the device monitoring UI (registration, login, devices, diagnostics)
- Issues and verifies session tokens for authenticated pages
- Persists users, devices and diagnostics to the configured database
- Exposes health and Prometheus metrics endpoints`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(serverCmd)

	// Server-specific flags
	serverCmd.Flags().Int("http-port", 8080, "HTTP server port")
	serverCmd.Flags().Bool("secure-cookies", false, "Mark session cookies Secure (requires HTTPS)")
	serverCmd.Flags().String("db-driver", store.DriverSQLite, "Database driver (postgres or sqlite)")
	serverCmd.Flags().String("db-host", "localhost", "Database host")
	serverCmd.Flags().Int("db-port", 5432, "Database port")
	serverCmd.Flags().String("db-user", "postgres", "Database user")
	serverCmd.Flags().String("db-password", "", "Database password")
	serverCmd.Flags().String("db-name", "device_monitor", "Database name")
	serverCmd.Flags().String("db-path", "device_monitor.db", "SQLite database path")

	// Bind flags to viper
	_ = viper.BindPFlag("http.port", serverCmd.Flags().Lookup("http-port"))
	_ = viper.BindPFlag("http.secure-cookies", serverCmd.Flags().Lookup("secure-cookies"))
	_ = viper.BindPFlag("db.driver", serverCmd.Flags().Lookup("db-driver"))
	_ = viper.BindPFlag("db.host", serverCmd.Flags().Lookup("db-host"))
	_ = viper.BindPFlag("db.port", serverCmd.Flags().Lookup("db-port"))
	_ = viper.BindPFlag("db.user", serverCmd.Flags().Lookup("db-user"))
	_ = viper.BindPFlag("db.password", serverCmd.Flags().Lookup("db-password"))
	_ = viper.BindPFlag("db.name", serverCmd.Flags().Lookup("db-name"))
	_ = viper.BindPFlag("db.path", serverCmd.Flags().Lookup("db-path"))
}

func runServer(_ *cobra.Command, _ []string) error {
	logger := GetLogger()
	logger.Info("starting web server service")

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

	tokens, err := GetTokenManager()
	if err != nil {
		logger.Error("failed to create token manager", "error", err)
		return err
	}

	// Create server configuration from viper
	config := &server.ServerConfig{
		Logger:        logger,
		DB:            db,
		TokenManager:  tokens,
		Metrics:       metrics.NewServerMetrics("device_monitor"),
		HTTPPort:      viper.GetInt("http.port"),
		SecureCookies: viper.GetBool("http.secure-cookies"),
	}

	// Create and run server
	srv, err := server.NewServer(config)
	if err != nil {
		logger.Error("failed to create web server", "error", err)
		return err
	}

	logger.Info("web server configuration",
		"http_port", config.HTTPPort,
		"db_driver", viper.GetString("db.driver"),
		"secure_cookies", config.SecureCookies,
	)

	if err := srv.Run(context.Background()); err != nil {
		logger.Error("web server error", "error", err)
		return err
	}

	logger.Info("web server stopped")
	return nil
}
