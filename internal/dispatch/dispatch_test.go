package dispatch

import (
	"testing"
	"time"

	"github.com/groveworks/garden-controller/internal/gpio"
	"github.com/groveworks/garden-controller/internal/model"
	"github.com/groveworks/garden-controller/internal/registry"
	"github.com/groveworks/garden-controller/internal/store"
)

func silenceRelays(t *testing.T) {
	t.Helper()
	origActivate := gpio.Activate
	origDeactivate := gpio.Deactivate
	gpio.Activate = func(model.GPIOPin) {}
	gpio.Deactivate = func(model.GPIOPin) {}
	t.Cleanup(func() {
		gpio.Activate = origActivate
		gpio.Deactivate = origDeactivate
	})
}

func setup(t *testing.T) (*store.Store, *Dispatcher) {
	t.Helper()
	silenceRelays(t)
	zones := []model.Zone{
		{Name: "Vegetables", Pump: model.GPIOPin{Number: 5, ActiveHigh: true}},
		{Name: "Flowers", Pump: model.GPIOPin{Number: 18, ActiveHigh: true}},
		{Name: "Herbs", Pump: model.GPIOPin{Number: 19, ActiveHigh: true}},
	}
	reg := registry.New(zones)
	st := store.New(zones)
	return st, New(reg, st)
}

func TestDispatchOnWithDuration(t *testing.T) {
	st, d := setup(t)
	now := time.Now()

	res := d.Dispatch(model.Command{Action: model.ActionOn, Zone: "Vegetables", Duration: 5 * time.Second, Timed: true}, now)
	if res.Outcome != Applied {
		t.Fatalf("outcome = %v; want Applied", res.Outcome)
	}

	s, _ := st.Get("Vegetables")
	if !s.PumpOn {
		t.Error("pump not on after timed ON")
	}
	if !s.OffDeadline.Equal(now.Add(5 * time.Second)) {
		t.Errorf("deadline = %v; want now+5s", s.OffDeadline)
	}
}

func TestDispatchOnWithoutDurationStaysOn(t *testing.T) {
	st, d := setup(t)

	d.Dispatch(model.Command{Action: model.ActionOn, Zone: "Flowers"}, time.Now())

	s, _ := st.Get("Flowers")
	if !s.PumpOn {
		t.Error("pump not on")
	}
	if !s.OffDeadline.IsZero() {
		t.Errorf("untimed ON set a deadline: %v", s.OffDeadline)
	}
}

func TestDispatchOff(t *testing.T) {
	st, d := setup(t)
	now := time.Now()

	d.Dispatch(model.Command{Action: model.ActionOn, Zone: "Herbs", Duration: time.Minute, Timed: true}, now)
	res := d.Dispatch(model.Command{Action: model.ActionOff, Zone: "Herbs"}, now)
	if res.Outcome != Applied {
		t.Fatalf("outcome = %v; want Applied", res.Outcome)
	}

	s, _ := st.Get("Herbs")
	if s.PumpOn || !s.OffDeadline.IsZero() {
		t.Errorf("state after OFF = %+v; want off with no deadline", s)
	}
}

func TestDispatchUnknownZone(t *testing.T) {
	st, d := setup(t)

	res := d.Dispatch(model.Command{Action: model.ActionOn, Zone: "Cactus"}, time.Now())
	if res.Outcome != Ignored || res.Reason != "unknown zone" {
		t.Errorf("result = %+v; want Ignored(unknown zone)", res)
	}

	for _, name := range []string{"Vegetables", "Flowers", "Herbs"} {
		if s, _ := st.Get(name); s.PumpOn {
			t.Errorf("zone %s mutated by command for unknown zone", name)
		}
	}
}

func TestDispatchUnknownAction(t *testing.T) {
	st, d := setup(t)

	res := d.Dispatch(model.Command{Action: model.ActionUnknown}, time.Now())
	if res.Outcome != Ignored {
		t.Errorf("outcome = %v; want Ignored", res.Outcome)
	}

	for _, name := range []string{"Vegetables", "Flowers", "Herbs"} {
		if s, _ := st.Get(name); s.PumpOn {
			t.Errorf("zone %s mutated by unknown action", name)
		}
	}
}

func TestDispatchAllOnIgnoresDuration(t *testing.T) {
	st, d := setup(t)

	res := d.Dispatch(model.Command{Action: model.ActionAllOn, Duration: 10 * time.Second, Timed: true}, time.Now())
	if res.Outcome != Applied {
		t.Fatalf("outcome = %v; want Applied", res.Outcome)
	}

	for _, name := range []string{"Vegetables", "Flowers", "Herbs"} {
		s, _ := st.Get(name)
		if !s.PumpOn {
			t.Errorf("zone %s not on after ALL_ON", name)
		}
		if !s.OffDeadline.IsZero() {
			t.Errorf("ALL_ON honored a duration for zone %s", name)
		}
	}
}

func TestDispatchAllOffClearsEverything(t *testing.T) {
	st, d := setup(t)
	now := time.Now()

	d.Dispatch(model.Command{Action: model.ActionOn, Zone: "Vegetables", Duration: time.Minute, Timed: true}, now)
	d.Dispatch(model.Command{Action: model.ActionOn, Zone: "Flowers"}, now)

	res := d.Dispatch(model.Command{Action: model.ActionAllOff}, now)
	if res.Outcome != Applied {
		t.Fatalf("outcome = %v; want Applied", res.Outcome)
	}

	for _, name := range []string{"Vegetables", "Flowers", "Herbs"} {
		s, _ := st.Get(name)
		if s.PumpOn {
			t.Errorf("zone %s still on after ALL_OFF", name)
		}
		if !s.OffDeadline.IsZero() {
			t.Errorf("zone %s kept a deadline after ALL_OFF", name)
		}
	}
}

func TestDispatchStatusMutatesNothing(t *testing.T) {
	st, d := setup(t)
	now := time.Now()

	d.Dispatch(model.Command{Action: model.ActionOn, Zone: "Vegetables", Duration: time.Minute, Timed: true}, now)
	res := d.Dispatch(model.Command{Action: model.ActionStatus}, now)
	if res.Outcome != Applied {
		t.Fatalf("outcome = %v; want Applied", res.Outcome)
	}

	s, _ := st.Get("Vegetables")
	if !s.PumpOn || s.OffDeadline.IsZero() {
		t.Errorf("STATUS mutated zone state: %+v", s)
	}
}
