package config

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"github.com/groveworks/garden-controller/internal/model"
)

type ZoneConfig struct {
	Name             string `json:"name"`
	SensorChannel    int    `json:"sensor_channel"`
	PumpPin          int    `json:"pump_pin"`
	CalibrationDry   int    `json:"calibration_dry"`
	CalibrationWet   int    `json:"calibration_wet"`
	AlertCriticalPct int    `json:"alert_critical_pct"`
	AlertWarningPct  int    `json:"alert_warning_pct"`
}

type Config struct {
	ConfigFile      string
	LogLevel        zerolog.Level
	LogFile         string
	InstallServices bool

	DeviceID string `json:"device_id"`

	// MQTT
	Broker         string `json:"broker"`
	TelemetryTopic string `json:"telemetry_topic"`
	CommandTopic   string `json:"command_topic"`

	PublishIntervalSeconds int `json:"publish_interval_seconds"`
	TickIntervalMillis     int `json:"tick_interval_millis"`

	RelayActiveHigh bool `json:"relay_active_high"`
	SafeMode        bool `json:"safe_mode"`

	// History database path; empty disables local history.
	HistoryFile string `json:"history_file"`

	// Notifications
	NtfyTopic string `json:"ntfy_topic"`

	// Datadog
	EnableDatadog bool     `json:"enable_datadog"`
	DDAgentAddr   string   `json:"dd_agent_addr"`
	DDNamespace   string   `json:"dd_namespace"`
	DDTags        []string `json:"dd_tags"`

	// Service install paths
	BootScriptPath        string `json:"boot_script_path"`
	BootServicePath       string `json:"boot_service_path"`
	ControllerServicePath string `json:"controller_service_path"`
	ServiceUser           string `json:"service_user"`
	ServiceWorkDir        string `json:"service_workdir"`
	ServiceBinPath        string `json:"service_bin_path"`

	Zones []ZoneConfig `json:"zones"`
}

func Load() Config {
	var cfg Config
	var logLevel string

	flag.StringVar(&cfg.ConfigFile, "config-file", "config.json", "Path to controller config file")
	flag.StringVar(&cfg.LogFile, "log-file", "", "Path to log file (empty logs to stderr)")
	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.BoolVar(&cfg.InstallServices, "install-services", false, "Write boot script and systemd units, then exit")
	flag.Parse()

	cfg.LogLevel = parseLogLevel(logLevel)

	file, err := os.Open(cfg.ConfigFile)
	if err != nil {
		panic("Failed to load config file: " + err.Error())
	}
	defer file.Close()

	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		panic("Failed to parse config file: " + err.Error())
	}

	cfg.applyDefaults()
	cfg.validate()
	return cfg
}

func (cfg *Config) applyDefaults() {
	if cfg.PublishIntervalSeconds == 0 {
		cfg.PublishIntervalSeconds = 60
	}
	if cfg.TickIntervalMillis == 0 {
		cfg.TickIntervalMillis = 1000
	}
	if cfg.TelemetryTopic == "" {
		cfg.TelemetryTopic = "garden/telemetry"
	}
	if cfg.CommandTopic == "" {
		cfg.CommandTopic = "garden/commands"
	}
}

func parseLogLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func (cfg *Config) validate() {
	var problems []string

	if cfg.DeviceID == "" {
		problems = append(problems, "device_id is required")
	}
	if cfg.Broker == "" {
		problems = append(problems, "broker is required")
	}
	if len(cfg.Zones) == 0 {
		problems = append(problems, "at least one zone must be configured")
	}

	seenNames := map[string]bool{}
	usedPins := map[int]string{}
	usedChannels := map[int]string{}

	for _, z := range cfg.Zones {
		if z.Name == "" {
			problems = append(problems, "zone with empty name")
			continue
		}
		if seenNames[z.Name] {
			problems = append(problems, fmt.Sprintf("duplicate zone name %q", z.Name))
		}
		seenNames[z.Name] = true

		if other, exists := usedPins[z.PumpPin]; exists {
			problems = append(problems, fmt.Sprintf("zones %q and %q both use pump pin %d", z.Name, other, z.PumpPin))
		} else {
			usedPins[z.PumpPin] = z.Name
		}

		if other, exists := usedChannels[z.SensorChannel]; exists {
			problems = append(problems, fmt.Sprintf("zones %q and %q both use sensor channel %d", z.Name, other, z.SensorChannel))
		} else {
			usedChannels[z.SensorChannel] = z.Name
		}

		if z.AlertCriticalPct > 0 && z.AlertWarningPct < z.AlertCriticalPct {
			problems = append(problems, fmt.Sprintf("zone %q alert_warning_pct must be >= alert_critical_pct", z.Name))
		}
	}

	if len(problems) > 0 {
		panic("Invalid config: " + strings.Join(problems, "; "))
	}
}

// HydrateZones converts the configured zones into their runtime descriptors.
func (cfg *Config) HydrateZones() []model.Zone {
	zones := make([]model.Zone, 0, len(cfg.Zones))
	for _, z := range cfg.Zones {
		zones = append(zones, model.Zone{
			Name:             z.Name,
			SensorChannel:    z.SensorChannel,
			Pump:             model.GPIOPin{Number: z.PumpPin, ActiveHigh: cfg.RelayActiveHigh},
			CalibrationDry:   z.CalibrationDry,
			CalibrationWet:   z.CalibrationWet,
			AlertCriticalPct: z.AlertCriticalPct,
			AlertWarningPct:  z.AlertWarningPct,
		})
	}
	return zones
}
