package model

import "time"

// Action is the decoded command verb. Decoding happens exactly once, at the
// transport boundary; everything downstream switches on this closed set.
type Action string

const (
	ActionUnknown Action = "unknown"
	ActionOn      Action = "water_on"
	ActionOff     Action = "water_off"
	ActionAllOn   Action = "all_on"
	ActionAllOff  Action = "all_off"
	ActionStatus  Action = "status"
)

type GPIOPin struct {
	Number     int
	ActiveHigh bool
}

// Zone describes one irrigation area. Built once from config at startup and
// never mutated afterward.
type Zone struct {
	Name           string
	SensorChannel  int
	Pump           GPIOPin
	CalibrationDry int // raw reading mapped to 0%
	CalibrationWet int // raw reading mapped to 100%

	// Alerting thresholds in percent. A zero critical threshold disables
	// alerting for the zone.
	AlertCriticalPct int
	AlertWarningPct  int
}

// ZoneState is the mutable runtime state for one zone. Owned by the actuator
// store; only the control loop goroutine touches it.
type ZoneState struct {
	PumpOn          bool
	OffDeadline     time.Time // zero means no scheduled auto-off
	RawMoisture     int
	MoisturePercent int
}

// Command is a decoded inbound command envelope.
type Command struct {
	Action   Action
	Zone     string
	Duration time.Duration
	Timed    bool // true when the command carried an auto-off duration
}

// ZoneStatus is the per-zone entry of an outbound telemetry payload.
type ZoneStatus struct {
	Name            string `json:"name"`
	SoilMoisture    int    `json:"soilMoisture"`
	MoisturePercent int    `json:"moisturePercent"`
	PumpStatus      string `json:"pumpStatus"`
}

// Snapshot is a read-only view of the whole device, composed on demand.
type Snapshot struct {
	DeviceID        string       `json:"deviceId"`
	Timestamp       time.Time    `json:"timestamp"`
	FirmwareVersion string       `json:"firmwareVersion"`
	Zones           []ZoneStatus `json:"zones"`
}
