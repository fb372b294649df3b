package main

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"procodus.dev/device-monitor/internal/seed"
	"procodus.dev/device-monitor/internal/store"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Populate the database with demo data",
	Long: `Populate the database with generated demo data:
- Creates demo user accounts sharing a known password
- Creates devices for each user
- Creates diagnostic readings for each device`,
	RunE: runSeed,
}

func init() {
	rootCmd.AddCommand(seedCmd)

	defaults := seed.DefaultOptions()

	// Seed-specific flags
	seedCmd.Flags().String("password", defaults.Password, "Password assigned to generated users")
	seedCmd.Flags().Int("users", defaults.Users, "Number of users to create")
	seedCmd.Flags().Int("devices-per-user", defaults.DevicesPerUser, "Number of devices per user")
	seedCmd.Flags().Int("readings-per-device", defaults.ReadingsPerDevice, "Number of diagnostic readings per device")

	// Bind flags to viper
	_ = viper.BindPFlag("seed.password", seedCmd.Flags().Lookup("password"))
	_ = viper.BindPFlag("seed.users", seedCmd.Flags().Lookup("users"))
	_ = viper.BindPFlag("seed.devices_per_user", seedCmd.Flags().Lookup("devices-per-user"))
	_ = viper.BindPFlag("seed.readings_per_device", seedCmd.Flags().Lookup("readings-per-device"))
}

func runSeed(_ *cobra.Command, _ []string) error {
	logger := GetLogger()
	logger.Info("starting database seed")

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

	opts := seed.Options{
		Password:          viper.GetString("seed.password"),
		Users:             viper.GetInt("seed.users"),
		DevicesPerUser:    viper.GetInt("seed.devices_per_user"),
		ReadingsPerDevice: viper.GetInt("seed.readings_per_device"),
	}

	logger.Info("seed configuration",
		"users", opts.Users,
		"devices_per_user", opts.DevicesPerUser,
		"readings_per_device", opts.ReadingsPerDevice,
	)

	if err := seed.Run(context.Background(), db, logger, opts); err != nil {
		logger.Error("seed failed", "error", err)
		return err
	}

	logger.Info("seed complete")
	return nil
}
