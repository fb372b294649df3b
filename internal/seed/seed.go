// Package seed populates the database with demo users, devices and
// diagnostic readings.
package seed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"gorm.io/gorm"

	"procodus.dev/device-monitor/internal/auth"
	"procodus.dev/device-monitor/internal/store"
	"procodus.dev/device-monitor/pkg/generator"
)

// Options controls how much demo data is generated.
type Options struct {
	// Password is assigned to every generated user so the demo
	// accounts can actually be logged into.
	Password          string
	Users             int
	DevicesPerUser    int
	ReadingsPerDevice int
}

// DefaultOptions returns a small but useful demo data set.
func DefaultOptions() Options {
	return Options{
		Password:          "Monitor1!",
		Users:             3,
		DevicesPerUser:    8,
		ReadingsPerDevice: 12,
	}
}

var deviceTypes = []string{"thermostat", "camera", "gateway", "sensor", "relay"}

var statuses = []string{store.StatusOnline, store.StatusOffline, store.StatusError}

// Run generates opts worth of demo data. Usernames collide with
// retries rather than failures, so Run is safe to repeat.
func Run(ctx context.Context, db *gorm.DB, logger *slog.Logger, opts Options) error {
	users := store.NewUserRepository(db)
	devices := store.NewDeviceRepository(db)
	diagnostics := store.NewDiagnosticRepository(db)

	hash, err := auth.HashPassword(opts.Password)
	if err != nil {
		return fmt.Errorf("failed to hash seed password: %w", err)
	}

	for range opts.Users {
		user := &store.User{
			Username:     gofakeit.Username(),
			PasswordHash: hash,
		}
		if err := users.Create(ctx, user); err != nil {
			if errors.Is(err, store.ErrDuplicateUsername) {
				continue
			}
			return fmt.Errorf("failed to seed user: %w", err)
		}

		logger.Info("seeded user", "user_id", user.ID, "username", user.Username)

		for range opts.DevicesPerUser {
			device := &store.Device{
				Name:       gofakeit.AppName(),
				DeviceType: deviceTypes[gofakeit.Number(0, len(deviceTypes)-1)],
				Status:     statuses[gofakeit.Number(0, len(statuses)-1)],
				Location:   gofakeit.City(),
				UserID:     user.ID,
			}
			if err := devices.Create(ctx, device); err != nil {
				return fmt.Errorf("failed to seed device: %w", err)
			}

			gen := generator.NewLoadGenerator(device.ID)
			for i := range opts.ReadingsPerDevice {
				sample := gen.Generate(time.Now().Add(-time.Duration(opts.ReadingsPerDevice-i) * time.Hour))
				diag := &store.DeviceDiagnostic{
					DeviceID:    device.ID,
					CPUUsage:    sample.CPUUsage,
					MemoryUsage: sample.MemoryUsage,
					Timestamp:   sample.Timestamp,
				}
				if err := diagnostics.Create(ctx, diag); err != nil {
					return fmt.Errorf("failed to seed diagnostic: %w", err)
				}
			}
		}
	}

	logger.Info("seeding completed",
		"users", opts.Users,
		"devices_per_user", opts.DevicesPerUser,
		"readings_per_device", opts.ReadingsPerDevice,
	)
	return nil
}
