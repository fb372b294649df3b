package main

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/spf13/viper"

	"procodus.dev/device-monitor/internal/auth"
	"procodus.dev/device-monitor/internal/store"
	"procodus.dev/device-monitor/pkg/logger"
)

// InitConfig initializes Viper configuration. It supports reading from
// config files (config.yaml) and environment variables.
func InitConfig(cfgFile string) error {
	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		// Search for config in current directory and /etc/device-monitor/
		viper.AddConfigPath(".")
		viper.AddConfigPath("/etc/device-monitor/")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// Environment variables
	viper.SetEnvPrefix("DEVICE_MONITOR")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	// Defaults mirror the development setup: local sqlite file, a dev
	// signing secret and 30 minute tokens.
	viper.SetDefault("db.driver", store.DriverSQLite)
	viper.SetDefault("db.path", "device_monitor.db")
	viper.SetDefault("db.sslmode", "disable")
	viper.SetDefault("auth.token-secret", "jwt-secret-key")
	viper.SetDefault("auth.token-ttl", auth.DefaultTokenTTL)

	// Read config file if it exists
	if err := viper.ReadInConfig(); err != nil {
		var configNotFoundErr viper.ConfigFileNotFoundError
		if errors.As(err, &configNotFoundErr) {
			// Config file not found; rely on env vars and defaults
			return nil
		}
		return err
	}

	return nil
}

// GetLogger creates a slog.Logger based on configuration.
func GetLogger() *slog.Logger {
	return logger.NewWithLevel(logger.ParseLevel(viper.GetString("log.level")))
}

// GetDBConfig assembles the database configuration from viper.
func GetDBConfig(log *slog.Logger) *store.DBConfig {
	return &store.DBConfig{
		Logger:   log,
		Driver:   viper.GetString("db.driver"),
		Host:     viper.GetString("db.host"),
		Port:     viper.GetInt("db.port"),
		User:     viper.GetString("db.user"),
		Password: viper.GetString("db.password"),
		DBName:   viper.GetString("db.name"),
		SSLMode:  viper.GetString("db.sslmode"),
		Path:     viper.GetString("db.path"),
	}
}

// GetTokenManager builds the process-wide token manager from the
// configured signing secret and TTL.
func GetTokenManager() (*auth.TokenManager, error) {
	ttl := viper.GetDuration("auth.token-ttl")
	if ttl <= 0 {
		ttl = auth.DefaultTokenTTL
	}
	return auth.NewTokenManager(viper.GetString("auth.token-secret"), ttl)
}
