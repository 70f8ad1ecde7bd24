package mqtt

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/nugget/leapctl/internal/bridgemodel"
	"github.com/nugget/leapctl/internal/config"
	"github.com/nugget/leapctl/internal/events"
)

// fakeBridge implements Bridge without a live LEAP session, recording
// every command it receives for assertions.
type fakeBridge struct {
	devices []*bridgemodel.Device
	scenes  []*bridgemodel.Scene

	setValueCalls []struct {
		deviceID string
		level    int
	}
	raised, lowered, stopped []string
	activatedScenes          []string
}

func (f *fakeBridge) GetDevices() []*bridgemodel.Device { return f.devices }
func (f *fakeBridge) GetScenes() []*bridgemodel.Scene    { return f.scenes }

func (f *fakeBridge) SetValue(ctx context.Context, deviceID string, level int, fadeTime *time.Duration) error {
	f.setValueCalls = append(f.setValueCalls, struct {
		deviceID string
		level    int
	}{deviceID, level})
	return nil
}

func (f *fakeBridge) SetFan(ctx context.Context, deviceID string, speed bridgemodel.FanSpeed) error {
	return nil
}

func (f *fakeBridge) RaiseCover(ctx context.Context, deviceID string) error {
	f.raised = append(f.raised, deviceID)
	return nil
}

func (f *fakeBridge) LowerCover(ctx context.Context, deviceID string) error {
	f.lowered = append(f.lowered, deviceID)
	return nil
}

func (f *fakeBridge) StopCover(ctx context.Context, deviceID string) error {
	f.stopped = append(f.stopped, deviceID)
	return nil
}

func (f *fakeBridge) ActivateScene(ctx context.Context, sceneID string) error {
	f.activatedScenes = append(f.activatedScenes, sceneID)
	return nil
}

func (f *fakeBridge) AddSubscriber(deviceID string, cb events.DeviceCallback) {}

func testConfig() config.MQTTConfig {
	return config.MQTTConfig{
		Broker:          "mqtt://localhost:1883",
		DeviceName:      "living-room-bridge",
		DiscoveryPrefix: "homeassistant",
	}
}

func TestPublisher_TopicPaths(t *testing.T) {
	p := New(testConfig(), "test-id", &fakeBridge{}, nil)

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"baseTopic", p.baseTopic(), "leapctl/living-room-bridge"},
		{"availabilityTopic", p.availabilityTopic(), "leapctl/living-room-bridge/availability"},
		{"stateTopic", p.stateTopic("dev1"), "leapctl/living-room-bridge/dev1/state"},
		{"commandTopic", p.commandTopic("dev1"), "leapctl/living-room-bridge/dev1/set"},
		{"brightnessCommandTopic", p.brightnessCommandTopic("dev1"), "leapctl/living-room-bridge/dev1/brightness/set"},
		{"sceneCommandTopic", p.sceneCommandTopic("scene1"), "leapctl/living-room-bridge/scene/scene1/set"},
		{"discoveryTopic light", p.discoveryTopic("light", "dev1"), "homeassistant/light/living-room-bridge/dev1/config"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}

func TestPublisher_RouteCommand_OnOff(t *testing.T) {
	fb := &fakeBridge{}
	p := New(testConfig(), "test-id", fb, slog.Default())

	p.routeCommand(context.Background(), "leapctl/living-room-bridge/dev1/set", []byte("ON"))
	p.routeCommand(context.Background(), "leapctl/living-room-bridge/dev2/set", []byte("off"))

	if len(fb.setValueCalls) != 2 {
		t.Fatalf("got %d SetValue calls, want 2", len(fb.setValueCalls))
	}
	if fb.setValueCalls[0].deviceID != "dev1" || fb.setValueCalls[0].level != 100 {
		t.Errorf("call 0 = %+v, want dev1/100", fb.setValueCalls[0])
	}
	if fb.setValueCalls[1].deviceID != "dev2" || fb.setValueCalls[1].level != 0 {
		t.Errorf("call 1 = %+v, want dev2/0", fb.setValueCalls[1])
	}
}

func TestPublisher_RouteCommand_Brightness(t *testing.T) {
	fb := &fakeBridge{}
	p := New(testConfig(), "test-id", fb, slog.Default())

	p.routeCommand(context.Background(), "leapctl/living-room-bridge/dev1/brightness/set", []byte("42"))

	if len(fb.setValueCalls) != 1 || fb.setValueCalls[0].level != 42 {
		t.Fatalf("got %+v, want one call with level 42", fb.setValueCalls)
	}
}

func TestPublisher_RouteCommand_BrightnessNonInteger(t *testing.T) {
	fb := &fakeBridge{}
	p := New(testConfig(), "test-id", fb, slog.Default())

	p.routeCommand(context.Background(), "leapctl/living-room-bridge/dev1/brightness/set", []byte("bright"))

	if len(fb.setValueCalls) != 0 {
		t.Fatalf("non-integer brightness should not call SetValue, got %+v", fb.setValueCalls)
	}
}

func TestPublisher_RouteCommand_Cover(t *testing.T) {
	fb := &fakeBridge{}
	p := New(testConfig(), "test-id", fb, slog.Default())

	p.routeCommand(context.Background(), "leapctl/living-room-bridge/shade1/set", []byte("OPEN"))
	p.routeCommand(context.Background(), "leapctl/living-room-bridge/shade1/set", []byte("CLOSE"))
	p.routeCommand(context.Background(), "leapctl/living-room-bridge/shade1/set", []byte("STOP"))

	if len(fb.raised) != 1 || fb.raised[0] != "shade1" {
		t.Errorf("raised = %v, want [shade1]", fb.raised)
	}
	if len(fb.lowered) != 1 || fb.lowered[0] != "shade1" {
		t.Errorf("lowered = %v, want [shade1]", fb.lowered)
	}
	if len(fb.stopped) != 1 || fb.stopped[0] != "shade1" {
		t.Errorf("stopped = %v, want [shade1]", fb.stopped)
	}
}

func TestPublisher_RouteCommand_Scene(t *testing.T) {
	fb := &fakeBridge{}
	p := New(testConfig(), "test-id", fb, slog.Default())

	p.routeCommand(context.Background(), "leapctl/living-room-bridge/scene/scene1/set", []byte("ACTIVATE"))

	if len(fb.activatedScenes) != 1 || fb.activatedScenes[0] != "scene1" {
		t.Errorf("activatedScenes = %v, want [scene1]", fb.activatedScenes)
	}
}

func TestPublisher_RouteCommand_IgnoresForeignTopics(t *testing.T) {
	fb := &fakeBridge{}
	p := New(testConfig(), "test-id", fb, slog.Default())

	p.routeCommand(context.Background(), "some/other/topic/set", []byte("ON"))

	if len(fb.setValueCalls) != 0 {
		t.Errorf("foreign topic should not be routed, got %+v", fb.setValueCalls)
	}
}

func TestPublisher_DeviceInfo(t *testing.T) {
	p := New(testConfig(), "instance-abc", &fakeBridge{}, nil)

	if p.device.Name != "living-room-bridge" {
		t.Errorf("device.Name = %q, want %q", p.device.Name, "living-room-bridge")
	}
	if len(p.device.Identifiers) != 1 || p.device.Identifiers[0] != "instance-abc" {
		t.Errorf("device.Identifiers = %v, want [instance-abc]", p.device.Identifiers)
	}
}
