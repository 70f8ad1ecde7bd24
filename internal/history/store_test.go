package history

import (
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "history-test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_RecordAndForDevice(t *testing.T) {
	s := openTestStore(t)

	base := time.Now().Add(-time.Hour)
	for i, level := range []int{0, 50, 100} {
		if err := s.Record(Event{
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			DeviceID:  "dev1",
			Domain:    "light",
			Level:     level,
		}); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}

	events, err := s.ForDevice("dev1", 10)
	if err != nil {
		t.Fatalf("ForDevice() error = %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("got %d events, want 3", len(events))
	}
	// Newest first.
	if events[0].Level != 100 {
		t.Errorf("events[0].Level = %d, want 100", events[0].Level)
	}
}

func TestStore_ForDevice_UnknownDeviceIsEmpty(t *testing.T) {
	s := openTestStore(t)

	events, err := s.ForDevice("nope", 10)
	if err != nil {
		t.Fatalf("ForDevice() error = %v", err)
	}
	if len(events) != 0 {
		t.Errorf("got %d events, want 0", len(events))
	}
}

func TestStore_Prune(t *testing.T) {
	s := openTestStore(t)

	old := time.Now().Add(-48 * time.Hour)
	recent := time.Now()

	s.Record(Event{Timestamp: old, DeviceID: "dev1", Domain: "light", Level: 0})
	s.Record(Event{Timestamp: recent, DeviceID: "dev1", Domain: "light", Level: 100})

	n, err := s.Prune(24 * time.Hour)
	if err != nil {
		t.Fatalf("Prune() error = %v", err)
	}
	if n != 1 {
		t.Errorf("pruned %d rows, want 1", n)
	}

	events, _ := s.ForDevice("dev1", 10)
	if len(events) != 1 {
		t.Fatalf("got %d events after prune, want 1", len(events))
	}
	if events[0].Level != 100 {
		t.Errorf("remaining event Level = %d, want 100", events[0].Level)
	}
}

func TestStore_RecordWithFanAndTilt(t *testing.T) {
	s := openTestStore(t)

	if err := s.Record(Event{
		Timestamp: time.Now(),
		DeviceID:  "fan1",
		Domain:    "fan",
		Level:     100,
		FanSpeed:  "High",
		Tilt:      0,
	}); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	events, err := s.ForDevice("fan1", 1)
	if err != nil {
		t.Fatalf("ForDevice() error = %v", err)
	}
	if len(events) != 1 || events[0].FanSpeed != "High" {
		t.Fatalf("got %+v, want FanSpeed=High", events)
	}
}
