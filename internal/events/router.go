package events

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/nugget/leapctl/internal/bridgemodel"
	"github.com/nugget/leapctl/internal/leap"
)

// DeviceCallback receives the updated device after a zone or LED
// status change affecting it.
type DeviceCallback func(*bridgemodel.Device)

// ButtonCallback receives the raw EventType string ("Press"/"Release")
// for a button press/release event.
type ButtonCallback func(eventType string)

// OccupancyCallback receives the updated occupancy group after a
// status change.
type OccupancyCallback func(*bridgemodel.OccupancyGroup)

// Router owns the subscriber tables and dispatches inbound LEAP
// payloads into bridgemodel mutations plus subscriber callbacks. One
// Router is created per SmartBridge and survives reconnects; only the
// handlers it registers on each new leap.Protocol need renewing.
type Router struct {
	logger *slog.Logger
	model  *bridgemodel.Model

	mu            sync.Mutex
	deviceSubs    map[string]DeviceCallback
	buttonSubs    map[string]ButtonCallback
	occupancySubs map[string]OccupancyCallback

	warnedNullOccupancyBody sync.Once
}

// NewRouter builds a Router over model. logger defaults to
// slog.Default() when nil.
func NewRouter(model *bridgemodel.Model, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		logger:        logger,
		model:         model,
		deviceSubs:    make(map[string]DeviceCallback),
		buttonSubs:    make(map[string]ButtonCallback),
		occupancySubs: make(map[string]OccupancyCallback),
	}
}

// AddSubscriber registers cb for device id, replacing any prior
// registration for the same id.
func (r *Router) AddSubscriber(deviceID string, cb DeviceCallback) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deviceSubs[deviceID] = cb
}

// AddButtonSubscriber registers cb for button id, replacing any prior
// registration for the same id.
func (r *Router) AddButtonSubscriber(buttonID string, cb ButtonCallback) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.buttonSubs[buttonID] = cb
}

// AddOccupancySubscriber registers cb for occupancy group id,
// replacing any prior registration for the same id.
func (r *Router) AddOccupancySubscriber(groupID string, cb OccupancyCallback) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.occupancySubs[groupID] = cb
}

func (r *Router) deviceSubscriber(id string) (DeviceCallback, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cb, ok := r.deviceSubs[id]
	return cb, ok
}

func (r *Router) buttonSubscriber(id string) (ButtonCallback, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cb, ok := r.buttonSubs[id]
	return cb, ok
}

func (r *Router) occupancySubscriber(id string) (OccupancyCallback, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cb, ok := r.occupancySubs[id]
	return cb, ok
}

// RegisterUnsolicited attaches this router's unsolicited dispatch to a
// freshly-connected protocol. The session supervisor's OnConnect hook
// calls this once per connection, before bootstrap starts issuing
// requests, so an early unsolicited frame is never missed.
func (r *Router) RegisterUnsolicited(p *leap.Protocol) {
	p.SubscribeUnsolicited(r.HandleUnsolicited)
}

// HandleUnsolicited dispatches an untagged frame on its
// MessageBodyType alone; CommuniqueType is not consulted.
func (r *Router) HandleUnsolicited(resp leap.Response) {
	switch resp.Header.MessageBodyType {
	case "OneZoneStatus":
		r.handleZoneStatusBody(resp.Body)
	case "OneLEDStatus":
		r.handleLEDStatusBody(resp.Body)
	default:
		r.logger.Debug("leap unhandled unsolicited frame", "communique_type", resp.CommuniqueType, "message_body_type", resp.Header.MessageBodyType)
	}
}

// HandleZoneStatus is a leap.SubscriptionFunc for a single-zone read
// issued during bootstrap (Caseta step 8): the response is fed through
// the same handling as an unsolicited OneZoneStatus frame.
func (r *Router) HandleZoneStatus(resp leap.Response) {
	r.handleZoneStatusBody(resp.Body)
}

func (r *Router) handleZoneStatusBody(body json.RawMessage) {
	if len(body) == 0 || string(body) == "null" {
		return
	}
	var payload zoneStatusPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		r.logger.Error("leap decode zone status", "error", err)
		return
	}
	r.applyZoneStatus(payload.ZoneStatus.Zone.Href, payload.ZoneStatus.Level, payload.ZoneStatus.FanSpeed, payload.ZoneStatus.Tilt)
}

// HandleZoneStatusBulk is a leap.SubscriptionFunc for the RA3 bulk
// /zone/status subscription: every entry routes through the same
// single-zone handler (§9: both the untagged and tagged zone-status
// paths must be handled, never assume exclusivity).
func (r *Router) HandleZoneStatusBulk(resp leap.Response) {
	if len(resp.Body) == 0 || string(resp.Body) == "null" {
		return
	}
	var payload zoneStatusesPayload
	if err := json.Unmarshal(resp.Body, &payload); err != nil {
		r.logger.Error("leap decode bulk zone status", "error", err)
		return
	}
	for _, zs := range payload.ZoneStatuses {
		r.applyZoneStatus(zs.Zone.Href, zs.Level, zs.FanSpeed, zs.Tilt)
	}
}

func (r *Router) applyZoneStatus(zoneHref string, level int, fanSpeedStr *string, tilt *int) {
	zoneID, err := leap.IDFromHref(zoneHref)
	if err != nil {
		r.logger.Error("leap zone status with unparsable href", "href", zoneHref, "error", err)
		return
	}

	var fanSpeed *bridgemodel.FanSpeed
	if fanSpeedStr != nil {
		fs := bridgemodel.FanSpeed(*fanSpeedStr)
		fanSpeed = &fs
	}

	d, ok := r.model.UpdateZoneStatus(zoneID, level, fanSpeed, tilt)
	if !ok {
		r.logger.Warn("leap zone status for unknown zone", "zone_id", zoneID)
		return
	}
	if cb, ok := r.deviceSubscriber(d.ID); ok {
		cb(d)
	}
}

func (r *Router) handleLEDStatusBody(body json.RawMessage) {
	var payload ledStatusPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		r.logger.Error("leap decode LED status", "error", err)
		return
	}
	r.applyLEDStatus(payload.LEDStatus.LED.Href, payload.LEDStatus.State)
}

// HandleLEDStatus is a leap.SubscriptionFunc for a per-LED
// /led/{id}/status subscription (RA3 branch).
func (r *Router) HandleLEDStatus(resp leap.Response) {
	r.handleLEDStatusBody(resp.Body)
}

func (r *Router) applyLEDStatus(ledHref, state string) {
	ledID, err := leap.IDFromHref(ledHref)
	if err != nil {
		r.logger.Error("leap LED status with unparsable href", "href", ledHref, "error", err)
		return
	}
	parentDeviceID, ok := r.model.UpdateLEDStatus(ledID, state == "On")
	if !ok {
		r.logger.Warn("leap LED status for unknown LED", "led_id", ledID)
		return
	}
	if cb, ok := r.deviceSubscriber(parentDeviceID); ok {
		if d, ok := r.model.GetDeviceByID(parentDeviceID); ok {
			cb(d)
		}
	}
}

// HandleButtonStatusEvent is a leap.SubscriptionFunc for
// /button/{id}/status/event, per the S2 scenario in §8.
func (r *Router) HandleButtonStatusEvent(resp leap.Response) {
	var payload buttonStatusEventPayload
	if err := json.Unmarshal(resp.Body, &payload); err != nil {
		r.logger.Error("leap decode button status event", "error", err)
		return
	}

	buttonID, err := leap.IDFromHref(payload.ButtonStatus.Button.Href)
	if err != nil {
		r.logger.Error("leap button event with unparsable href", "href", payload.ButtonStatus.Button.Href, "error", err)
		return
	}
	eventType := payload.ButtonStatus.ButtonEvent.EventType

	var state bridgemodel.ButtonState
	switch eventType {
	case "Press":
		state = bridgemodel.ButtonPressed
	default:
		state = bridgemodel.ButtonReleased
	}

	parentDeviceID, _, ok := r.model.UpdateButtonState(buttonID, state)
	if !ok {
		r.logger.Warn("leap button event for unknown button", "button_id", buttonID)
		return
	}

	if cb, ok := r.buttonSubscriber(buttonID); ok {
		cb(eventType)
	}
	if parentDeviceID != "" {
		if cb, ok := r.deviceSubscriber(parentDeviceID); ok {
			if d, ok := r.model.GetDeviceByID(parentDeviceID); ok {
				cb(d)
			}
		}
	}
}

// HandleOccupancyGroupStatus is a leap.SubscriptionFunc for
// /occupancygroup/status, per the S3 scenario. It is also called
// directly with the subscribe response's own body during bootstrap
// (§4.4 Caseta step 6), since that response must be processed as if
// it were an unsolicited status event.
func (r *Router) HandleOccupancyGroupStatus(resp leap.Response) {
	if len(resp.Body) == 0 || string(resp.Body) == "null" {
		r.warnedNullOccupancyBody.Do(func() {
			r.logger.Info("leap occupancy group status body was null, treating as no groups")
		})
		return
	}

	var payload occupancyGroupStatusesPayload
	if err := json.Unmarshal(resp.Body, &payload); err != nil {
		r.logger.Error("leap decode occupancy group status", "error", err)
		return
	}

	for _, entry := range payload.OccupancyGroupStatuses {
		groupID, err := leap.IDFromHref(entry.OccupancyGroup.Href)
		if err != nil {
			r.logger.Error("leap occupancy status with unparsable href", "href", entry.OccupancyGroup.Href, "error", err)
			continue
		}
		g, ok := r.model.UpdateOccupancyStatus(groupID, bridgemodel.OccupancyStatus(entry.OccupancyStatus))
		if !ok {
			r.logger.Warn("leap occupancy status for unknown group", "group_id", groupID)
			continue
		}
		if cb, ok := r.occupancySubscriber(groupID); ok {
			cb(g)
		}
	}
}

// HandleAreaStatus is a leap.SubscriptionFunc for the RA3 bulk
// /area/status subscription. Entries lacking OccupancyStatus are
// ignored per §4.5.
func (r *Router) HandleAreaStatus(resp leap.Response) {
	if len(resp.Body) == 0 || string(resp.Body) == "null" {
		return
	}
	var payload areaStatusesPayload
	if err := json.Unmarshal(resp.Body, &payload); err != nil {
		r.logger.Error("leap decode area status", "error", err)
		return
	}

	for _, entry := range payload.AreaStatuses {
		if entry.OccupancyStatus == nil {
			continue
		}
		areaID, err := leap.IDFromHref(entry.Area.Href)
		if err != nil {
			r.logger.Error("leap area status with unparsable href", "href", entry.Area.Href, "error", err)
			continue
		}
		// RA3 keys occupancy groups by area id directly (one implicit
		// group per area), with the "/status" suffix already stripped
		// by IDFromHref.
		g, ok := r.model.UpdateOccupancyStatus(areaID, bridgemodel.OccupancyStatus(*entry.OccupancyStatus))
		if !ok {
			r.logger.Warn("leap area status for unknown occupancy group", "area_id", areaID)
			continue
		}
		if cb, ok := r.occupancySubscriber(areaID); ok {
			cb(g)
		}
	}
}
