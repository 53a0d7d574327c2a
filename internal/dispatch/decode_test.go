package dispatch

import (
	"testing"
	"time"

	"github.com/groveworks/garden-controller/internal/model"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    model.Command
	}{
		{
			name:    "water on with zone and duration",
			payload: `{"action":"WATER_ON","zone":"Vegetables","duration":30}`,
			want:    model.Command{Action: model.ActionOn, Zone: "Vegetables", Duration: 30 * time.Second, Timed: true},
		},
		{
			name:    "water on without duration",
			payload: `{"action":"WATER_ON","zone":"Herbs"}`,
			want:    model.Command{Action: model.ActionOn, Zone: "Herbs"},
		},
		{
			name:    "water off",
			payload: `{"action":"WATER_OFF","zone":"Flowers"}`,
			want:    model.Command{Action: model.ActionOff, Zone: "Flowers"},
		},
		{
			name:    "all on",
			payload: `{"action":"ALL_ON"}`,
			want:    model.Command{Action: model.ActionAllOn},
		},
		{
			name:    "all off",
			payload: `{"action":"ALL_OFF"}`,
			want:    model.Command{Action: model.ActionAllOff},
		},
		{
			name:    "status request",
			payload: `{"action":"STATUS"}`,
			want:    model.Command{Action: model.ActionStatus},
		},
		{
			name:    "zero duration is still a timed command",
			payload: `{"action":"WATER_ON","zone":"Herbs","duration":0}`,
			want:    model.Command{Action: model.ActionOn, Zone: "Herbs", Duration: 0, Timed: true},
		},
		{
			name:    "unrecognized action",
			payload: `{"action":"FERTILIZE","zone":"Herbs"}`,
			want:    model.Command{Action: model.ActionUnknown},
		},
		{
			name:    "missing action",
			payload: `{"zone":"Herbs"}`,
			want:    model.Command{Action: model.ActionUnknown},
		},
		{
			name:    "negative duration",
			payload: `{"action":"WATER_ON","zone":"Herbs","duration":-5}`,
			want:    model.Command{Action: model.ActionUnknown},
		},
		{
			// Seconds value whose Duration conversion would overflow into a
			// negative deadline.
			name:    "oversized duration",
			payload: `{"action":"WATER_ON","zone":"Herbs","duration":9999999999}`,
			want:    model.Command{Action: model.ActionUnknown},
		},
		{
			name:    "malformed json",
			payload: `{"action":`,
			want:    model.Command{Action: model.ActionUnknown},
		},
		{
			name:    "empty payload",
			payload: ``,
			want:    model.Command{Action: model.ActionUnknown},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Decode([]byte(tt.payload))
			if got != tt.want {
				t.Errorf("Decode(%s) = %+v; want %+v", tt.payload, got, tt.want)
			}
		})
	}
}
