package lutronleap

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/nugget/leapctl/internal/bridgemodel"
	"github.com/nugget/leapctl/internal/leap"
)

func TestEncodeFadeTime(t *testing.T) {
	cases := map[time.Duration]string{
		4 * time.Second:                       "00:00:04",
		3661 * time.Second:                    "01:01:01",
		0:                                     "00:00:00",
		-5 * time.Second:                      "00:00:00",
		2*time.Hour + 3*time.Minute + 9*time.Second: "02:03:09",
	}
	for d, want := range cases {
		if got := encodeFadeTime(d); got != want {
			t.Errorf("encodeFadeTime(%v) = %q, want %q", d, got, want)
		}
	}
}

func TestGoToDimmedLevel_JSONShape(t *testing.T) {
	body := goToDimmedLevel(50, "00:00:04")
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	cmd := decoded["Command"].(map[string]any)
	if cmd["CommandType"] != "GoToDimmedLevel" {
		t.Fatalf("unexpected CommandType: %v", cmd["CommandType"])
	}
	params := cmd["DimmedLevelParameters"].(map[string]any)
	if params["Level"].(float64) != 50 || params["FadeTime"] != "00:00:04" {
		t.Fatalf("unexpected params: %v", params)
	}
}

func newTestBridge() *SmartBridge {
	return New(Options{})
}

func TestSmartBridge_SetValue_NoZoneIsNoOp(t *testing.T) {
	sb := newTestBridge()
	sb.model.PutDevice(&bridgemodel.Device{ID: "5", Type: "Pico2Button"})

	if err := sb.SetValue(context.Background(), "5", 50, nil); err != nil {
		t.Fatalf("expected no-op nil error, got %v", err)
	}
}

func TestSmartBridge_SetValue_UnknownDevice(t *testing.T) {
	sb := newTestBridge()
	if err := sb.SetValue(context.Background(), "nope", 50, nil); err == nil {
		t.Fatal("expected error for unknown device")
	}
}

func TestSmartBridge_SetValue_RequiresConnection(t *testing.T) {
	sb := newTestBridge()
	sb.model.PutDevice(&bridgemodel.Device{ID: "2", Type: "WallDimmer", ZoneID: "9"})

	err := sb.SetValue(context.Background(), "2", 50, nil)
	if !errors.Is(err, leap.ErrDisconnected) {
		t.Fatalf("expected ErrDisconnected, got %v", err)
	}
}

func TestSmartBridge_IsOn(t *testing.T) {
	sb := newTestBridge()
	off := bridgemodel.FanOff
	high := bridgemodel.FanHigh

	sb.model.PutDevice(&bridgemodel.Device{ID: "1", CurrentLevel: 0})
	sb.model.PutDevice(&bridgemodel.Device{ID: "2", CurrentLevel: 50})
	sb.model.PutDevice(&bridgemodel.Device{ID: "3", CurrentLevel: 0, FanSpeed: &off})
	sb.model.PutDevice(&bridgemodel.Device{ID: "4", CurrentLevel: 0, FanSpeed: &high})

	if sb.IsOn("1") {
		t.Error("device 1 should be off")
	}
	if !sb.IsOn("2") {
		t.Error("device 2 should be on")
	}
	if sb.IsOn("3") {
		t.Error("device 3 with FanOff should be off")
	}
	if !sb.IsOn("4") {
		t.Error("device 4 with FanHigh should be on")
	}
	if sb.IsOn("missing") {
		t.Error("unknown device should report off")
	}
}

func TestSmartBridge_TapButton_RejectsMismatchedKeypad(t *testing.T) {
	sb := newTestBridge()
	sb.model.PutButton(&bridgemodel.Button{ID: "10", ParentDeviceID: "1", ButtonGroupID: "100"})

	err := sb.TapButton(context.Background(), "999", "100", "10")
	if err == nil {
		t.Fatal("expected error for mismatched keypad")
	}
}

func TestSmartBridge_TapButton_RejectsUnknownButton(t *testing.T) {
	sb := newTestBridge()
	sb.model.PutButton(&bridgemodel.Button{ID: "10", ParentDeviceID: "1", ButtonGroupID: "100"})

	err := sb.TapButton(context.Background(), "1", "100", "nope")
	if err == nil {
		t.Fatal("expected error for unknown button")
	}
}

func TestSmartBridge_ActivateScene_UnknownScene(t *testing.T) {
	sb := newTestBridge()
	if err := sb.ActivateScene(context.Background(), "7"); err == nil {
		t.Fatal("expected error for unknown scene")
	}
}
