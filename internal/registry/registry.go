package registry

import (
	"errors"
	"fmt"

	"github.com/groveworks/garden-controller/internal/model"
)

// ErrUnknownZone is returned when a lookup names a zone that was never
// configured. Callers must treat it as a recoverable condition, never a
// reason to stop the control loop.
var ErrUnknownZone = errors.New("unknown zone")

// Registry holds the configured zones in registration order. Built once at
// startup; read-only afterward.
type Registry struct {
	zones  []model.Zone
	byName map[string]int
}

// New builds a registry from the configured zones. Zone names must already be
// unique; config validation enforces that before we get here.
func New(zones []model.Zone) *Registry {
	r := &Registry{
		zones:  make([]model.Zone, len(zones)),
		byName: make(map[string]int, len(zones)),
	}
	copy(r.zones, zones)
	for i, z := range r.zones {
		r.byName[z.Name] = i
	}
	return r
}

// Resolve looks up a zone by exact, case-sensitive name.
func (r *Registry) Resolve(name string) (*model.Zone, error) {
	i, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownZone, name)
	}
	return &r.zones[i], nil
}

// All returns the zones in registration order.
func (r *Registry) All() []model.Zone {
	return r.zones
}
