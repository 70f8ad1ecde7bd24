package web

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/nugget/leapctl/internal/bridgemodel"
	"github.com/nugget/leapctl/internal/events"
	"github.com/nugget/leapctl/internal/history"
)

type fakeBridge struct {
	devices []*bridgemodel.Device
	scenes  []*bridgemodel.Scene
}

func (f *fakeBridge) GetDevices() []*bridgemodel.Device { return f.devices }
func (f *fakeBridge) GetScenes() []*bridgemodel.Scene   { return f.scenes }
func (f *fakeBridge) AddSubscriber(string, events.DeviceCallback) {}

func testBridge() *fakeBridge {
	return &fakeBridge{
		devices: []*bridgemodel.Device{
			{ID: "1", Name: "Kitchen_Lights", Domain: bridgemodel.DomainLight, CurrentLevel: 50},
		},
		scenes: []*bridgemodel.Scene{{ID: "s1", Name: "Movie Night"}},
	}
}

func TestHandleDashboard_ListsDevicesAndScenes(t *testing.T) {
	s := New(testBridge(), nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	s.Routes().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, "Kitchen_Lights") {
		t.Error("dashboard body missing device name")
	}
	if !strings.Contains(body, "Movie Night") {
		t.Error("dashboard body missing scene name")
	}
}

func TestHandleDeviceDetail_UnknownDevice404s(t *testing.T) {
	s := New(testBridge(), nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/devices/nope", nil)
	w := httptest.NewRecorder()
	s.Routes().ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestHandleDeviceDetail_KnownDeviceWithHistory(t *testing.T) {
	hs := &fakeHistory{events: []history.Event{{DeviceID: "1", Level: 50}}}
	s := New(testBridge(), hs, nil)

	req := httptest.NewRequest(http.MethodGet, "/devices/1", nil)
	w := httptest.NewRecorder()
	s.Routes().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Kitchen_Lights") {
		t.Error("device detail body missing device name")
	}
}

type fakeHistory struct {
	events []history.Event
}

func (f *fakeHistory) ForDevice(deviceID string, limit int) ([]history.Event, error) {
	return f.events, nil
}
