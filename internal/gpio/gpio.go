package gpio

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/groveworks/garden-controller/internal/model"
	"github.com/groveworks/garden-controller/internal/pinctrl"
	"github.com/groveworks/garden-controller/system/shutdown"
)

var safeMode bool

// SetSafeMode disables all relay writes system-wide. Sensor reads still work.
func SetSafeMode(enabled bool) {
	safeMode = enabled
}

// Activate drives a relay pin to its active level. Declared as a var so tests
// can swap it out and assert on actuation without hardware.
var Activate = func(pin model.GPIOPin) {
	if safeMode {
		return
	}

	drive := "dl"
	if pin.ActiveHigh {
		drive = "dh"
	}
	if err := pinctrl.SetPin(pin.Number, "op", "pn", drive); err != nil {
		shutdown.ShutdownWithError(err, fmt.Sprintf("Failed to activate pin %d", pin.Number))
	}
}

// Deactivate drives a relay pin to its inactive level.
var Deactivate = func(pin model.GPIOPin) {
	if safeMode {
		return
	}

	drive := "dh"
	if pin.ActiveHigh {
		drive = "dl"
	}
	if err := pinctrl.SetPin(pin.Number, "op", "pn", drive); err != nil {
		shutdown.ShutdownWithError(err, fmt.Sprintf("Failed to deactivate pin %d", pin.Number))
	}
}

// CurrentlyActive reports whether a relay pin is at its active level.
var CurrentlyActive = func(pin model.GPIOPin) bool {
	level, err := pinctrl.ReadLevel(pin.Number)
	if err != nil {
		shutdown.ShutdownWithError(err, fmt.Sprintf("Failed to read pin level for pin %d", pin.Number))
	}
	return pin.ActiveHigh == level
}

// adcBasePath is the sysfs directory of the ADC the soil probes hang off
// (an MCP3008 or similar exposed through the kernel IIO subsystem).
var adcBasePath = "/sys/bus/iio/devices/iio:device0"

// ReadSoilRaw reads the raw ADC value for a soil moisture channel. A failed
// read is not fatal: the caller keeps the zone's last reading and retries on
// the next sensing cycle.
var ReadSoilRaw = func(channel int) (int, error) {
	file := filepath.Join(adcBasePath, fmt.Sprintf("in_voltage%d_raw", channel))
	data, err := os.ReadFile(file)
	if err != nil {
		return 0, fmt.Errorf("failed to read ADC channel %d: %w", channel, err)
	}

	raw, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("malformed ADC reading on channel %d: %w", channel, err)
	}
	return raw, nil
}
