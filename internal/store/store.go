package store

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/groveworks/garden-controller/internal/gpio"
	"github.com/groveworks/garden-controller/internal/model"
	"github.com/groveworks/garden-controller/internal/registry"
)

// Store owns the runtime state of every zone and is the single writer of pump
// hardware state. No other component drives a relay directly, so the PumpOn
// flag always mirrors the last commanded relay level.
type Store struct {
	states map[string]*model.ZoneState
	pumps  map[string]model.GPIOPin
}

// New initializes runtime state for every registered zone: pump off, no
// deadline. Zone state is not persisted; a restart resets everything.
func New(zones []model.Zone) *Store {
	s := &Store{
		states: make(map[string]*model.ZoneState, len(zones)),
		pumps:  make(map[string]model.GPIOPin, len(zones)),
	}
	for _, z := range zones {
		s.states[z.Name] = &model.ZoneState{}
		s.pumps[z.Name] = z.Pump
	}
	return s
}

// SetActuation drives the zone's pump relay and records the commanded state.
// Turning on with a non-zero deadline schedules an auto-off; a zero deadline
// means the pump stays on until an explicit off. Turning off always clears
// any pending deadline. The relay write is synchronous and fast; there is no
// timed wait here.
func (s *Store) SetActuation(zone string, on bool, deadline time.Time) error {
	st, ok := s.states[zone]
	if !ok {
		return fmt.Errorf("%w: %q", registry.ErrUnknownZone, zone)
	}

	pin := s.pumps[zone]
	if on {
		gpio.Activate(pin)
		st.PumpOn = true
		st.OffDeadline = deadline
	} else {
		gpio.Deactivate(pin)
		st.PumpOn = false
		st.OffDeadline = time.Time{}
	}

	log.Info().
		Str("zone", zone).
		Bool("pump_on", on).
		Time("off_deadline", deadline).
		Msg("Pump actuation set")

	return nil
}

// Get returns a copy of the zone's runtime state.
func (s *Store) Get(zone string) (model.ZoneState, error) {
	st, ok := s.states[zone]
	if !ok {
		return model.ZoneState{}, fmt.Errorf("%w: %q", registry.ErrUnknownZone, zone)
	}
	return *st, nil
}

// UpdateReading records the latest sensor observation for a zone.
func (s *Store) UpdateReading(zone string, raw, percent int) error {
	st, ok := s.states[zone]
	if !ok {
		return fmt.Errorf("%w: %q", registry.ErrUnknownZone, zone)
	}
	st.RawMoisture = raw
	st.MoisturePercent = percent
	return nil
}
