package scheduler

import (
	"time"

	"github.com/rs/zerolog/log"

	"github.com/groveworks/garden-controller/internal/registry"
	"github.com/groveworks/garden-controller/internal/store"
)

// Reconciler force-stops zones whose scheduled off time has passed. It is the
// non-blocking replacement for sleeping out a watering duration inline: the
// control loop calls Tick on every iteration, so a timed command expires
// within one tick of its deadline without ever stalling sensing, telemetry,
// or the other zones.
type Reconciler struct {
	registry *registry.Registry
	store    *store.Store
}

func New(reg *registry.Registry, st *store.Store) *Reconciler {
	return &Reconciler{registry: reg, store: st}
}

// Tick turns off every zone that is on with an elapsed deadline. Returns the
// names of the zones it stopped.
func (r *Reconciler) Tick(now time.Time) []string {
	var expired []string

	for _, z := range r.registry.All() {
		st, err := r.store.Get(z.Name)
		if err != nil {
			// Store is initialized 1:1 with the registry; this is a bug, not
			// a runtime condition.
			log.Error().Err(err).Str("zone", z.Name).Msg("Zone missing from runtime store")
			continue
		}

		if !st.PumpOn || st.OffDeadline.IsZero() || st.OffDeadline.After(now) {
			continue
		}

		if err := r.store.SetActuation(z.Name, false, time.Time{}); err != nil {
			log.Error().Err(err).Str("zone", z.Name).Msg("Failed to stop expired zone")
			continue
		}

		log.Info().
			Str("zone", z.Name).
			Time("deadline", st.OffDeadline).
			Msg("Watering duration elapsed, pump stopped")

		expired = append(expired, z.Name)
	}

	return expired
}
