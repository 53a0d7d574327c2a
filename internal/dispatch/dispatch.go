package dispatch

import (
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/groveworks/garden-controller/internal/model"
	"github.com/groveworks/garden-controller/internal/registry"
	"github.com/groveworks/garden-controller/internal/store"
)

type Outcome string

const (
	Applied Outcome = "applied"
	Ignored Outcome = "ignored"
)

type Result struct {
	Outcome Outcome
	Reason  string
}

// Dispatcher applies validated commands to the actuator store. It never
// blocks: timed watering becomes a deadline on the zone state, which the
// scheduler reconciles on every loop tick.
type Dispatcher struct {
	registry *registry.Registry
	store    *store.Store
}

func New(reg *registry.Registry, st *store.Store) *Dispatcher {
	return &Dispatcher{registry: reg, store: st}
}

// Dispatch applies a command. Whatever the outcome, the caller publishes
// telemetry afterward so every command produces an observable update.
func (d *Dispatcher) Dispatch(cmd model.Command, now time.Time) Result {
	switch cmd.Action {
	case model.ActionOn:
		return d.setZone(cmd, now, true)

	case model.ActionOff:
		return d.setZone(cmd, now, false)

	case model.ActionAllOn, model.ActionAllOff:
		// Bulk actions never honor a duration; that matches the narrower
		// single-zone semantics callers already rely on.
		on := cmd.Action == model.ActionAllOn
		for _, z := range d.registry.All() {
			if err := d.store.SetActuation(z.Name, on, time.Time{}); err != nil {
				log.Error().Err(err).Str("zone", z.Name).Msg("Failed to actuate zone in bulk command")
			}
		}
		log.Info().Bool("on", on).Msg("Bulk pump command applied")
		return Result{Outcome: Applied}

	case model.ActionStatus:
		// No mutation; the caller's post-dispatch publish is the response.
		return Result{Outcome: Applied}

	default:
		return Result{Outcome: Ignored, Reason: "unknown action"}
	}
}

func (d *Dispatcher) setZone(cmd model.Command, now time.Time, on bool) Result {
	zone, err := d.registry.Resolve(cmd.Zone)
	if err != nil {
		if errors.Is(err, registry.ErrUnknownZone) {
			log.Warn().Str("zone", cmd.Zone).Msg("Command references unknown zone")
			return Result{Outcome: Ignored, Reason: "unknown zone"}
		}
		return Result{Outcome: Ignored, Reason: err.Error()}
	}

	var deadline time.Time
	if on && cmd.Timed {
		deadline = now.Add(cmd.Duration)
	}

	if err := d.store.SetActuation(zone.Name, on, deadline); err != nil {
		log.Error().Err(err).Str("zone", zone.Name).Msg("Failed to actuate zone")
		return Result{Outcome: Ignored, Reason: err.Error()}
	}

	return Result{Outcome: Applied}
}
