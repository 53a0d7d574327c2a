package controlloop

import (
	"context"
	"database/sql"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/groveworks/garden-controller/db"
	"github.com/groveworks/garden-controller/internal/alerts"
	"github.com/groveworks/garden-controller/internal/calibration"
	"github.com/groveworks/garden-controller/internal/dispatch"
	"github.com/groveworks/garden-controller/internal/gpio"
	"github.com/groveworks/garden-controller/internal/metrics"
	"github.com/groveworks/garden-controller/internal/registry"
	"github.com/groveworks/garden-controller/internal/scheduler"
	"github.com/groveworks/garden-controller/internal/store"
	"github.com/groveworks/garden-controller/internal/telemetry"
	"github.com/groveworks/garden-controller/internal/transport"
)

type Config struct {
	DeviceID        string
	FirmwareVersion string
	TelemetryTopic  string
	PublishInterval time.Duration
	TickInterval    time.Duration
}

// Loop is the single-threaded scheduler that owns the registry, the runtime
// store, and the pump hardware. One goroutine runs it; nothing else touches
// zone state, so no locks are needed. No branch ever sleeps for a
// caller-supplied duration: timed watering lives as a deadline reconciled
// every tick.
type Loop struct {
	cfg        Config
	registry   *registry.Registry
	store      *store.Store
	dispatcher *dispatch.Dispatcher
	reconciler *scheduler.Reconciler
	session    transport.Session
	monitor    *alerts.Monitor // nil disables alerting
	history    *sql.DB         // nil disables local history

	connected   chan struct{}
	lastPublish time.Time
}

func New(cfg Config, reg *registry.Registry, st *store.Store, session transport.Session, monitor *alerts.Monitor, history *sql.DB) *Loop {
	return &Loop{
		cfg:        cfg,
		registry:   reg,
		store:      st,
		dispatcher: dispatch.New(reg, st),
		reconciler: scheduler.New(reg, st),
		session:    session,
		monitor:    monitor,
		history:    history,
		connected:  make(chan struct{}, 1),
	}
}

// NotifyConnected requests an immediate sense-and-publish cycle. Safe to call
// from the transport's connection goroutine; the actual work happens on the
// loop goroutine.
func (l *Loop) NotifyConnected() {
	select {
	case l.connected <- struct{}{}:
	default:
	}
}

// Run drives the loop until the context is cancelled. Every wakeup
// reconciles deadlines, so a timed command expires even when no further
// traffic arrives.
func (l *Loop) Run(ctx context.Context) {
	log.Info().
		Str("device_id", l.cfg.DeviceID).
		Dur("publish_interval", l.cfg.PublishInterval).
		Dur("tick_interval", l.cfg.TickInterval).
		Msg("Starting control loop")

	ticker := time.NewTicker(l.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Control loop stopping")
			return

		case msg, ok := <-l.session.Messages():
			if !ok {
				log.Warn().Msg("Transport message channel closed")
				return
			}
			now := time.Now()
			l.HandleCommand(msg.Payload, now)
			l.reconciler.Tick(now)

		case <-l.connected:
			now := time.Now()
			l.reconciler.Tick(now)
			l.Sample(now)
			l.PublishTelemetry(now)
			l.lastPublish = now

		case now := <-ticker.C:
			l.Step(now)
		}
	}
}

// Step runs one scheduled iteration: reconcile deadlines first, then sense
// and publish if the publish interval has elapsed.
func (l *Loop) Step(now time.Time) {
	l.reconciler.Tick(now)

	if now.Sub(l.lastPublish) >= l.cfg.PublishInterval {
		l.Sample(now)
		l.PublishTelemetry(now)
		l.lastPublish = now
	}
}

// HandleCommand decodes and applies one inbound command, then publishes a
// fresh snapshot whatever the outcome, so every command produces an
// observable state update for subscribers.
func (l *Loop) HandleCommand(payload []byte, now time.Time) {
	cmd := dispatch.Decode(payload)
	res := l.dispatcher.Dispatch(cmd, now)

	log.Info().
		Str("action", string(cmd.Action)).
		Str("zone", cmd.Zone).
		Dur("duration", cmd.Duration).
		Str("outcome", string(res.Outcome)).
		Str("reason", res.Reason).
		Msg("Command dispatched")

	metrics.Count("command.received", 1, "action:"+string(cmd.Action), "outcome:"+string(res.Outcome))

	if l.history != nil {
		if err := db.RecordCommand(l.history, string(cmd.Action), cmd.Zone, int(cmd.Duration/time.Second), string(res.Outcome), res.Reason, now); err != nil {
			log.Error().Err(err).Msg("Failed to record command in history")
		}
	}

	l.Sample(now)
	l.PublishTelemetry(now)
	l.lastPublish = now
}

// Sample reads every zone's soil sensor, calibrates it, and records the
// observation. A failed read keeps the zone's previous reading; the next
// cycle retries.
func (l *Loop) Sample(now time.Time) {
	for _, z := range l.registry.All() {
		raw, err := gpio.ReadSoilRaw(z.SensorChannel)
		if err != nil {
			log.Warn().Err(err).Str("zone", z.Name).Msg("Soil sensor read failed, keeping last reading")
			continue
		}

		pct := calibration.Percentage(raw, z.CalibrationDry, z.CalibrationWet)
		if err := l.store.UpdateReading(z.Name, raw, pct); err != nil {
			log.Error().Err(err).Str("zone", z.Name).Msg("Failed to update zone reading")
			continue
		}

		log.Debug().
			Str("zone", z.Name).
			Int("raw", raw).
			Int("percent", pct).
			Msg("Soil moisture sampled")

		metrics.Gauge("zone.moisture_percent", float64(pct), "zone:"+z.Name)
		metrics.Gauge("zone.moisture_raw", float64(raw), "zone:"+z.Name)

		state, err := l.store.Get(z.Name)
		if err == nil {
			pumpOn := 0.0
			if state.PumpOn {
				pumpOn = 1.0
			}
			metrics.Gauge("zone.pump_on", pumpOn, "zone:"+z.Name)

			if l.history != nil {
				if err := db.RecordReading(l.history, l.cfg.DeviceID, z.Name, raw, pct, state.PumpOn, now); err != nil {
					log.Error().Err(err).Str("zone", z.Name).Msg("Failed to record reading in history")
				}
			}
		}

		if l.monitor != nil {
			l.monitor.Observe(z, pct)
		}
	}
}

// PublishTelemetry composes and publishes a snapshot of all zones. A failed
// publish corrupts nothing: the snapshot is recomputed fresh next time, never
// queued.
func (l *Loop) PublishTelemetry(now time.Time) {
	snap := telemetry.Compose(l.registry, l.store, l.cfg.DeviceID, l.cfg.FirmwareVersion, now)

	payload, err := telemetry.Encode(snap)
	if err != nil {
		log.Error().Err(err).Msg("Failed to encode telemetry snapshot")
		return
	}

	if err := l.session.Publish(l.cfg.TelemetryTopic, payload); err != nil {
		log.Error().Err(err).Str("topic", l.cfg.TelemetryTopic).Msg("Telemetry publish failed")
		return
	}

	log.Debug().
		Str("topic", l.cfg.TelemetryTopic).
		Int("zones", len(snap.Zones)).
		Msg("Telemetry published")
}
