package telemetry

import (
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/groveworks/garden-controller/internal/model"
	"github.com/groveworks/garden-controller/internal/registry"
	"github.com/groveworks/garden-controller/internal/store"
)

// Compose assembles a snapshot of every zone in registry order. Pure read
// over the runtime store; never mutates it.
func Compose(reg *registry.Registry, st *store.Store, deviceID, firmwareVersion string, now time.Time) model.Snapshot {
	zones := reg.All()
	snap := model.Snapshot{
		DeviceID:        deviceID,
		Timestamp:       now,
		FirmwareVersion: firmwareVersion,
		Zones:           make([]model.ZoneStatus, 0, len(zones)),
	}

	for _, z := range zones {
		state, err := st.Get(z.Name)
		if err != nil {
			// Store is seeded 1:1 with the registry at startup, so this is
			// an invariant violation rather than a runtime condition.
			log.Error().Err(err).Str("zone", z.Name).Msg("Zone missing from runtime store")
			continue
		}

		status := "OFF"
		if state.PumpOn {
			status = "ON"
		}

		snap.Zones = append(snap.Zones, model.ZoneStatus{
			Name:            z.Name,
			SoilMoisture:    state.RawMoisture,
			MoisturePercent: state.MoisturePercent,
			PumpStatus:      status,
		})
	}

	return snap
}

// Encode serializes a snapshot for publishing.
func Encode(snap model.Snapshot) ([]byte, error) {
	return json.Marshal(snap)
}
