package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"rfid-door-lock/internal/api"
	"rfid-door-lock/internal/auditlog"
	"rfid-door-lock/internal/config"
	"rfid-door-lock/internal/controller"
	"rfid-door-lock/internal/eeprom"
	"rfid-door-lock/internal/feedback"
	"rfid-door-lock/internal/hardware"
	"rfid-door-lock/internal/hardware/serialreader"
	"rfid-door-lock/internal/hardware/simulator"
	"rfid-door-lock/internal/logging"
	"rfid-door-lock/internal/store"
)

const apiShutdownTimeout = 5 * time.Second

var (
	configFile string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "rfid-door-lock",
	Short: "RFID door lock controller - single-credential access control",
	Long: `A door lock controller for RFID card readers. On first start the
device waits for a card and enrolls it as the master credential; afterwards
only that card unlocks the door. Feedback is given through a two-line
display, indicator LEDs and a buzzer, and every scan is recorded in a local
audit log exposed over a small status API.`,
	Run: func(cmd *cobra.Command, args []string) {
		runController()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// runController wires the full door unit and runs it until interrupted.
func runController() {
	logger := logging.Initialize(logLevel)

	cfg, err := config.Load(configFile)
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}

	if err := logging.SetupFileLogging(logger, cfg.LogFile); err != nil {
		logger.WithError(err).Fatal("Failed to set up file logging")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	region, err := eeprom.OpenFileRegion(cfg.StoragePath, store.RegionSize)
	if err != nil {
		logger.WithError(err).Fatal("Failed to open credential storage")
	}

	credStore, err := store.New(region)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create credential store")
	}

	audit, err := auditlog.Open(cfg.DatabasePath)
	if err != nil {
		logger.WithError(err).Fatal("Failed to open scan audit log")
	}
	defer audit.Close()

	rig, err := buildRig(cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to set up peripherals")
	}
	defer rig.Reader.Close()

	presenter := feedback.New(rig.Display, rig.Lights, rig.Buzzer, logging.NewComponentLogger(logger, "feedback"))

	opts := []controller.Option{controller.WithAuditSink(audit)}

	var server *api.Server
	if cfg.APIEnabled {
		server = api.NewServer(api.Config{
			Port:        cfg.APIPort,
			AuthEnabled: cfg.APIAuthEnabled,
			JWTSecret:   cfg.APIJWTSecret,
		}, audit, logging.NewComponentLogger(logger, "api"))
		opts = append(opts, controller.WithScanCallback(server.BroadcastScan))
	}

	ctrl := controller.New(
		controller.Timing{
			PollInterval:       time.Duration(cfg.PollInterval) * time.Millisecond,
			EnrollPollInterval: time.Duration(cfg.EnrollPollInterval) * time.Millisecond,
			PostScanDelay:      time.Duration(cfg.PostScanDelay) * time.Millisecond,
			UnlockDuration:     time.Duration(cfg.UnlockDuration) * time.Millisecond,
		},
		controller.Angles{Locked: cfg.LockedAngle, Unlocked: cfg.UnlockedAngle},
		credStore,
		rig,
		presenter,
		logging.NewComponentLogger(logger, "controller"),
		opts...,
	)

	if server != nil {
		server.SetStatsProvider(ctrl)
		if err := server.Start(ctx); err != nil {
			logger.WithError(err).Fatal("Failed to start status API")
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), apiShutdownTimeout)
			defer cancel()
			server.Stop(shutdownCtx)
		}()
	}

	logger.Info("Door lock controller starting")

	if err := ctrl.Run(ctx); err != nil && ctx.Err() == nil {
		logger.WithError(err).Fatal("Controller failed")
	}

	logger.Info("Door lock controller shut down")
}

// buildRig assembles the peripheral set for the configured reader. The
// simulator rig provides every peripheral in software; with the serial
// reader, the simulator still backs the display, lights, buzzer and lock
// until dedicated drivers for those peripherals land.
func buildRig(cfg *config.Config, logger *logrus.Logger) (hardware.Rig, error) {
	sim := simulator.New(logging.NewReaderLogger(logger, "simulator"))
	rig := sim.Peripherals()

	switch cfg.Reader {
	case "simulator":
		return rig, nil
	case "serial":
		settings, err := serialreader.ParseSettings(cfg.ReaderSettings)
		if err != nil {
			return hardware.Rig{}, fmt.Errorf("invalid serial reader settings: %w", err)
		}
		reader, err := serialreader.Open(settings, logging.NewReaderLogger(logger, "serial"))
		if err != nil {
			return hardware.Rig{}, fmt.Errorf("failed to open serial reader: %w", err)
		}
		rig.Reader = reader
		return rig, nil
	default:
		return hardware.Rig{}, fmt.Errorf("unknown reader: %s", cfg.Reader)
	}
}
