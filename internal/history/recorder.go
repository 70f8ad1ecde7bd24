package history

import (
	"context"
	"log/slog"
	"time"

	"github.com/nugget/leapctl/internal/bridgemodel"
	"github.com/nugget/leapctl/internal/events"
)

// Bridge is the subset of *lutronleap.SmartBridge the recorder needs.
type Bridge interface {
	GetDevices() []*bridgemodel.Device
	AddSubscriber(deviceID string, cb events.DeviceCallback)
}

// Recorder subscribes to every device on a bridge and writes a
// history event each time one reports a state change.
type Recorder struct {
	store  *Store
	logger *slog.Logger
}

// NewRecorder creates a Recorder backed by store.
func NewRecorder(store *Store, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{store: store, logger: logger}
}

// Attach registers a callback for every device currently known to
// bridge. Devices discovered after Attach is called (there are none,
// since bootstrap runs before any caller can reach the bridge) are
// not picked up automatically; callers needing that should call
// Attach again after a reconnect.
func (r *Recorder) Attach(bridge Bridge) {
	for _, d := range bridge.GetDevices() {
		bridge.AddSubscriber(d.ID, r.onDeviceUpdate)
	}
}

func (r *Recorder) onDeviceUpdate(d *bridgemodel.Device) {
	e := Event{
		Timestamp: time.Now(),
		DeviceID:  d.ID,
		Domain:    string(d.Domain),
		Level:     d.CurrentLevel,
	}
	if d.FanSpeed != nil {
		e.FanSpeed = string(*d.FanSpeed)
	}
	if d.Tilt != nil {
		e.Tilt = *d.Tilt
	}

	if err := r.store.Record(e); err != nil {
		r.logger.Warn("history record failed", "device_id", d.ID, "error", err)
	}
}

// RunPruneLoop periodically prunes events older than retain. It
// blocks until ctx is cancelled.
func (r *Recorder) RunPruneLoop(ctx context.Context, retain, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := r.store.Prune(retain)
			if err != nil {
				r.logger.Warn("history prune failed", "error", err)
				continue
			}
			if n > 0 {
				r.logger.Debug("history pruned", "rows", n)
			}
		}
	}
}
