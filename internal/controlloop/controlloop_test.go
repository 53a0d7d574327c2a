package controlloop

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/groveworks/garden-controller/internal/gpio"
	"github.com/groveworks/garden-controller/internal/model"
	"github.com/groveworks/garden-controller/internal/registry"
	"github.com/groveworks/garden-controller/internal/store"
	"github.com/groveworks/garden-controller/internal/transport"
)

type fakeSession struct {
	mu        sync.Mutex
	published []transport.Message
	inbound   chan transport.Message
	notify    chan struct{}
}

func newFakeSession() *fakeSession {
	return &fakeSession{
		inbound: make(chan transport.Message, 4),
		notify:  make(chan struct{}, 16),
	}
}

func (f *fakeSession) Connect() error { return nil }

func (f *fakeSession) Publish(topic string, payload []byte) error {
	f.mu.Lock()
	f.published = append(f.published, transport.Message{Topic: topic, Payload: payload})
	f.mu.Unlock()
	select {
	case f.notify <- struct{}{}:
	default:
	}
	return nil
}

func (f *fakeSession) Messages() <-chan transport.Message { return f.inbound }
func (f *fakeSession) Close()                             {}

func (f *fakeSession) publishCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.published)
}

func (f *fakeSession) lastPublished(t *testing.T) model.Snapshot {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.published) == 0 {
		t.Fatal("nothing published")
	}
	var snap model.Snapshot
	if err := json.Unmarshal(f.published[len(f.published)-1].Payload, &snap); err != nil {
		t.Fatalf("published payload is not a snapshot: %v", err)
	}
	return snap
}

func fakeHardware(t *testing.T, readings map[int]int) {
	t.Helper()
	origActivate := gpio.Activate
	origDeactivate := gpio.Deactivate
	origRead := gpio.ReadSoilRaw
	gpio.Activate = func(model.GPIOPin) {}
	gpio.Deactivate = func(model.GPIOPin) {}
	gpio.ReadSoilRaw = func(channel int) (int, error) { return readings[channel], nil }
	t.Cleanup(func() {
		gpio.Activate = origActivate
		gpio.Deactivate = origDeactivate
		gpio.ReadSoilRaw = origRead
	})
}

func newTestLoop(t *testing.T, session transport.Session) (*Loop, *store.Store) {
	t.Helper()
	zones := []model.Zone{
		{Name: "A", SensorChannel: 0, Pump: model.GPIOPin{Number: 5}, CalibrationDry: 2000, CalibrationWet: 1000},
		{Name: "B", SensorChannel: 1, Pump: model.GPIOPin{Number: 18}, CalibrationDry: 1800, CalibrationWet: 900},
	}
	reg := registry.New(zones)
	st := store.New(zones)

	loop := New(Config{
		DeviceID:        "garden_sensor_01",
		FirmwareVersion: "1.0.0",
		TelemetryTopic:  "garden/telemetry",
		PublishInterval: 60 * time.Second,
		TickInterval:    time.Second,
	}, reg, st, session, nil, nil)

	return loop, st
}

func TestTimedCommandExpiresViaTicks(t *testing.T) {
	fakeHardware(t, map[int]int{0: 1500, 1: 1350})
	session := newFakeSession()
	loop, st := newTestLoop(t, session)
	t0 := time.Now()

	loop.HandleCommand([]byte(`{"action":"WATER_ON","zone":"A","duration":2}`), t0)

	s, _ := st.Get("A")
	if !s.PumpOn {
		t.Fatal("zone A not on after WATER_ON")
	}

	snap := session.lastPublished(t)
	if snap.Zones[0].PumpStatus != "ON" {
		t.Errorf("published status for A = %s; want ON", snap.Zones[0].PumpStatus)
	}
	if snap.Zones[0].MoisturePercent != 50 || snap.Zones[1].MoisturePercent != 50 {
		t.Errorf("published percentages = %d, %d; want 50, 50",
			snap.Zones[0].MoisturePercent, snap.Zones[1].MoisturePercent)
	}

	loop.Step(t0.Add(1 * time.Second))
	if s, _ := st.Get("A"); !s.PumpOn {
		t.Fatal("zone A turned off before its deadline")
	}

	loop.Step(t0.Add(2 * time.Second))
	if s, _ := st.Get("A"); s.PumpOn {
		t.Fatal("zone A still on after its deadline")
	}
}

func TestIgnoredCommandStillPublishes(t *testing.T) {
	fakeHardware(t, map[int]int{0: 1500, 1: 1350})
	session := newFakeSession()
	loop, st := newTestLoop(t, session)

	loop.HandleCommand([]byte(`{"action":"WATER_ON","zone":"Cactus"}`), time.Now())

	if session.publishCount() != 1 {
		t.Errorf("publish count = %d; want 1 (ignored commands still publish)", session.publishCount())
	}
	for _, name := range []string{"A", "B"} {
		if s, _ := st.Get(name); s.PumpOn {
			t.Errorf("zone %s mutated by ignored command", name)
		}
	}
}

func TestMalformedCommandStillPublishes(t *testing.T) {
	fakeHardware(t, map[int]int{0: 1500, 1: 1350})
	session := newFakeSession()
	loop, _ := newTestLoop(t, session)

	loop.HandleCommand([]byte(`not json at all`), time.Now())

	if session.publishCount() != 1 {
		t.Errorf("publish count = %d; want 1", session.publishCount())
	}
}

func TestStepPublishesOnInterval(t *testing.T) {
	fakeHardware(t, map[int]int{0: 1500, 1: 1350})
	session := newFakeSession()
	loop, _ := newTestLoop(t, session)
	t0 := time.Now()

	loop.Step(t0)
	if session.publishCount() != 1 {
		t.Fatalf("publish count after first step = %d; want 1", session.publishCount())
	}

	// Inside the publish interval: ticks reconcile but do not publish.
	loop.Step(t0.Add(1 * time.Second))
	loop.Step(t0.Add(30 * time.Second))
	if session.publishCount() != 1 {
		t.Errorf("publish count = %d; want still 1", session.publishCount())
	}

	loop.Step(t0.Add(61 * time.Second))
	if session.publishCount() != 2 {
		t.Errorf("publish count = %d; want 2 after interval elapsed", session.publishCount())
	}
}

func TestRunPublishesOnConnectAndHandlesCommands(t *testing.T) {
	fakeHardware(t, map[int]int{0: 1500, 1: 1350})
	session := newFakeSession()
	loop, st := newTestLoop(t, session)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		loop.Run(ctx)
		close(done)
	}()

	// Simulates the transport's on-connect hook: an immediate snapshot.
	loop.NotifyConnected()
	waitForPublish(t, session, 1)

	session.inbound <- transport.Message{Topic: "garden/commands", Payload: []byte(`{"action":"WATER_ON","zone":"B"}`)}
	waitForPublish(t, session, 2)

	if s, _ := st.Get("B"); !s.PumpOn {
		t.Error("zone B not on after command delivered through the session")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not stop on context cancellation")
	}
}

func waitForPublish(t *testing.T, session *fakeSession, want int) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for session.publishCount() < want {
		select {
		case <-session.notify:
		case <-deadline:
			t.Fatalf("timed out waiting for %d publishes (have %d)", want, session.publishCount())
		}
	}
}
