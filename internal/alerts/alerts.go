package alerts

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/groveworks/garden-controller/internal/model"
)

// Sender pushes a notification somewhere a human will see it.
type Sender interface {
	Send(title, message string) error
}

// Monitor watches calibrated moisture readings and fires a notification when
// a zone drops below its critical threshold. Alerts are edge-triggered: one
// notification per excursion, re-armed only after the reading recovers above
// the zone's warning threshold. Keeps a flapping sensor from paging every
// publish interval.
type Monitor struct {
	sender Sender
	fired  map[string]bool
}

func NewMonitor(sender Sender) *Monitor {
	return &Monitor{
		sender: sender,
		fired:  make(map[string]bool),
	}
}

// Observe feeds one calibrated reading through the alert state machine.
func (m *Monitor) Observe(zone model.Zone, percent int) {
	if zone.AlertCriticalPct <= 0 {
		return
	}

	if m.fired[zone.Name] {
		if percent >= zone.AlertWarningPct {
			m.fired[zone.Name] = false
			log.Info().Str("zone", zone.Name).Int("percent", percent).Msg("Moisture recovered, alert re-armed")
		}
		return
	}

	if percent < zone.AlertCriticalPct {
		m.fired[zone.Name] = true

		message := fmt.Sprintf("%s soil moisture critically low at %d%% (threshold %d%%)",
			zone.Name, percent, zone.AlertCriticalPct)
		if err := m.sender.Send("Garden moisture alert", message); err != nil {
			log.Error().Err(err).Str("zone", zone.Name).Msg("Failed to send moisture alert")
		}
	}
}
