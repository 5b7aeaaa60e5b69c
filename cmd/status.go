package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"rfid-door-lock/internal/auditlog"
	"rfid-door-lock/internal/config"
	"rfid-door-lock/internal/eeprom"
	"rfid-door-lock/internal/store"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show credential and audit log state",
	Long: `Print whether a master credential is enrolled and summarize the
local scan audit log. The credential bytes themselves are never printed.`,
	RunE: runStatusCommand,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatusCommand(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	region, err := eeprom.OpenFileRegion(cfg.StoragePath, store.RegionSize)
	if err != nil {
		return fmt.Errorf("failed to open credential storage: %w", err)
	}

	credStore, err := store.New(region)
	if err != nil {
		return fmt.Errorf("failed to create credential store: %w", err)
	}

	id, present, err := credStore.Load()
	if err != nil {
		return fmt.Errorf("failed to read credential state: %w", err)
	}

	fmt.Printf("Storage:    %s\n", cfg.StoragePath)
	if present {
		fmt.Printf("Credential: enrolled (%d bytes)\n", len(id))
	} else {
		fmt.Println("Credential: not enrolled")
	}

	audit, err := auditlog.Open(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to open scan audit log: %w", err)
	}
	defer audit.Close()

	counters, err := audit.Count()
	if err != nil {
		return fmt.Errorf("failed to read scan counters: %w", err)
	}

	fmt.Printf("Scans:      %d total, %d granted, %d denied\n", counters.Total, counters.Granted, counters.Denied)
	return nil
}
