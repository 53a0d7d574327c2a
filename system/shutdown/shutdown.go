package shutdown

import (
	"os"

	"github.com/rs/zerolog/log"

	"github.com/groveworks/garden-controller/internal/model"
	"github.com/groveworks/garden-controller/internal/pinctrl"
)

var (
	pumpPins []model.GPIOPin
	safeMode bool
)

// Register records the pump pins to force off on shutdown. Called once from
// main after config load, before any relay is driven.
func Register(pins []model.GPIOPin, safe bool) {
	pumpPins = pins
	safeMode = safe
}

// Shutdown forces every registered pump relay to its inactive level and exits.
// A stuck-open valve floods the garden, so this runs even on error paths.
func Shutdown(code int) {
	if !safeMode {
		for _, pin := range pumpPins {
			drive := "dh"
			if pin.ActiveHigh {
				drive = "dl"
			}
			if err := pinctrl.SetPin(pin.Number, "op", "pn", drive); err != nil {
				log.Error().Err(err).Int("pin", pin.Number).Msg("Failed to drive pump pin to safe state")
				continue
			}
			log.Info().Int("pin", pin.Number).Msg("Pump relay forced off")
		}
	}
	os.Exit(code)
}

func ShutdownWithError(err error, msg string) {
	log.Error().Err(err).Msg(msg)
	Shutdown(1)
}
