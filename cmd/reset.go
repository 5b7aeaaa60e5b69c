package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"rfid-door-lock/internal/config"
	"rfid-door-lock/internal/eeprom"
	"rfid-door-lock/internal/logging"
	"rfid-door-lock/internal/store"
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Factory-reset the stored master credential",
	Long: `Clear the master credential presence flag so the next start enters
enrollment mode again. This is the only supported way to replace the master
card. The controller must not be running.`,
	RunE: runResetCommand,
}

var resetConfirmed bool

func init() {
	resetCmd.Flags().BoolVar(&resetConfirmed, "yes", false, "Confirm clearing the stored credential")

	rootCmd.AddCommand(resetCmd)
}

func runResetCommand(cmd *cobra.Command, args []string) error {
	logger := logging.Initialize(logLevel)

	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if !resetConfirmed {
		return fmt.Errorf("refusing to clear the master credential without --yes")
	}

	region, err := eeprom.OpenFileRegion(cfg.StoragePath, store.RegionSize)
	if err != nil {
		return fmt.Errorf("failed to open credential storage: %w", err)
	}

	credStore, err := store.New(region)
	if err != nil {
		return fmt.Errorf("failed to create credential store: %w", err)
	}

	_, present, err := credStore.Load()
	if err != nil {
		return fmt.Errorf("failed to read credential state: %w", err)
	}
	if !present {
		logger.Info("No master credential stored, nothing to reset")
		return nil
	}

	if err := credStore.Clear(); err != nil {
		return fmt.Errorf("failed to clear master credential: %w", err)
	}

	logger.WithField("storage_path", cfg.StoragePath).Info("Master credential cleared, next start will enroll")
	return nil
}
