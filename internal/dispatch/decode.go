package dispatch

import (
	"encoding/json"
	"math"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/groveworks/garden-controller/internal/model"
)

// commandWire is the JSON shape of an inbound command:
//
//	{"action": "WATER_ON", "zone": "Vegetables", "duration": 30}
//
// zone is required for WATER_ON/WATER_OFF and ignored otherwise; duration is
// optional auto-off seconds, honored only for WATER_ON.
type commandWire struct {
	Action   string `json:"action"`
	Zone     string `json:"zone"`
	Duration *int   `json:"duration"`
}

// Decode classifies a raw command payload. Anything malformed or
// unrecognized comes back as ActionUnknown; the dispatcher ignores those
// rather than letting a bad message near the pumps.
func Decode(payload []byte) model.Command {
	var wire commandWire
	if err := json.Unmarshal(payload, &wire); err != nil {
		log.Warn().Err(err).Msg("Failed to decode command payload")
		return model.Command{Action: model.ActionUnknown}
	}

	cmd := model.Command{Zone: wire.Zone}

	switch wire.Action {
	case "WATER_ON":
		cmd.Action = model.ActionOn
	case "WATER_OFF":
		cmd.Action = model.ActionOff
	case "ALL_ON":
		cmd.Action = model.ActionAllOn
	case "ALL_OFF":
		cmd.Action = model.ActionAllOff
	case "STATUS":
		cmd.Action = model.ActionStatus
	default:
		log.Warn().Str("action", wire.Action).Msg("Unrecognized command action")
		return model.Command{Action: model.ActionUnknown}
	}

	if wire.Duration != nil {
		d := *wire.Duration
		// Seconds-to-Duration conversion overflows int64 past this point.
		if d < 0 || int64(d) > math.MaxInt64/int64(time.Second) {
			log.Warn().Int("duration", d).Msg("Command duration out of range")
			return model.Command{Action: model.ActionUnknown}
		}
		cmd.Duration = time.Duration(d) * time.Second
		cmd.Timed = true
	}

	return cmd
}
