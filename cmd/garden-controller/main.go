package main

import (
	"context"
	"database/sql"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/groveworks/garden-controller/db"
	"github.com/groveworks/garden-controller/internal/alerts"
	"github.com/groveworks/garden-controller/internal/config"
	"github.com/groveworks/garden-controller/internal/controlloop"
	"github.com/groveworks/garden-controller/internal/gpio"
	"github.com/groveworks/garden-controller/internal/logging"
	"github.com/groveworks/garden-controller/internal/metrics"
	"github.com/groveworks/garden-controller/internal/model"
	"github.com/groveworks/garden-controller/internal/notifications"
	"github.com/groveworks/garden-controller/internal/registry"
	"github.com/groveworks/garden-controller/internal/store"
	"github.com/groveworks/garden-controller/internal/transport"
	"github.com/groveworks/garden-controller/system/shutdown"
	"github.com/groveworks/garden-controller/system/startup"
)

const firmwareVersion = "1.0.0"

type ntfySender struct{}

func (ntfySender) Send(title, message string) error {
	return notifications.Send(title, message)
}

func main() {
	cfg := config.Load()
	logging.Init(cfg.LogLevel, cfg.LogFile)

	log.Info().
		Str("device_id", cfg.DeviceID).
		Str("broker", cfg.Broker).
		Int("zones", len(cfg.Zones)).
		Str("firmware", firmwareVersion).
		Msg("Starting garden controller")

	if cfg.InstallServices {
		if err := startup.WriteBootScript(&cfg); err != nil {
			log.Fatal().Err(err).Msg("Failed to write boot script")
		}
		if err := startup.InstallBootService(&cfg); err != nil {
			log.Fatal().Err(err).Msg("Failed to install boot service unit")
		}
		if err := startup.InstallControllerService(&cfg); err != nil {
			log.Fatal().Err(err).Msg("Failed to install controller service unit")
		}
		log.Info().Msg("Service units installed")
		return
	}

	zones := cfg.HydrateZones()
	pins := make([]model.GPIOPin, 0, len(zones))
	for _, z := range zones {
		pins = append(pins, z.Pump)
	}
	shutdown.Register(pins, cfg.SafeMode)

	gpio.SetSafeMode(cfg.SafeMode)
	if cfg.SafeMode {
		log.Warn().Msg("SAFE MODE ENABLED — relay writes are disabled system-wide")
	}

	metrics.Init(&cfg)
	notifications.Init(cfg.NtfyTopic)

	reg := registry.New(zones)
	st := store.New(zones)

	// Drive every pump to a known-off state so the runtime flags mirror the
	// hardware from the first tick. Nothing is restored across restarts.
	for _, z := range zones {
		if err := st.SetActuation(z.Name, false, time.Time{}); err != nil {
			log.Fatal().Err(err).Str("zone", z.Name).Msg("Failed to initialize pump state")
		}
	}

	var history *sql.DB
	if cfg.HistoryFile != "" {
		var err error
		history, err = db.Open(cfg.HistoryFile)
		if err != nil {
			log.Warn().Err(err).Msg("History database unavailable, continuing without local history")
			history = nil
		} else {
			defer history.Close()
		}
	}

	var monitor *alerts.Monitor
	if cfg.NtfyTopic != "" {
		monitor = alerts.NewMonitor(ntfySender{})
	}

	clientID := fmt.Sprintf("%s_%04x", cfg.DeviceID, rand.Intn(0x10000))
	session := transport.NewMQTTSession(cfg.Broker, clientID, cfg.CommandTopic)

	loop := controlloop.New(controlloop.Config{
		DeviceID:        cfg.DeviceID,
		FirmwareVersion: firmwareVersion,
		TelemetryTopic:  cfg.TelemetryTopic,
		PublishInterval: time.Duration(cfg.PublishIntervalSeconds) * time.Second,
		TickInterval:    time.Duration(cfg.TickIntervalMillis) * time.Millisecond,
	}, reg, st, session, monitor, history)

	session.OnConnected = loop.NotifyConnected

	if err := session.Connect(); err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to broker")
	}
	defer session.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loop.Run(ctx)

	// Force every pump off on the way out; a valve left open floods the bed.
	for _, z := range zones {
		if err := st.SetActuation(z.Name, false, time.Time{}); err != nil {
			log.Error().Err(err).Str("zone", z.Name).Msg("Failed to stop pump during shutdown")
		}
	}
	log.Info().Msg("Garden controller stopped")
}
