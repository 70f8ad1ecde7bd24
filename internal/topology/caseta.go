package topology

import (
	"fmt"
	"strings"

	"context"

	"github.com/nugget/leapctl/internal/bridgemodel"
	"github.com/nugget/leapctl/internal/leap"
)

// loadCaseta runs the 8-step Caseta bootstrap sequence from §4.4.
// Each step awaits the previous one.
func (l *Loader) loadCaseta(ctx context.Context, p *leap.Protocol) error {
	if err := l.casetaLoadDevices(ctx, p); err != nil {
		return fmt.Errorf("topology: caseta load devices: %w", err)
	}
	if err := l.casetaLoadButtons(ctx, p); err != nil {
		return fmt.Errorf("topology: caseta load buttons: %w", err)
	}
	l.casetaProbeLIPDeviceList(ctx, p) // best-effort, error swallowed

	if err := l.casetaLoadScenes(ctx, p); err != nil {
		return fmt.Errorf("topology: caseta load scenes: %w", err)
	}
	if err := l.casetaLoadOccupancyGroups(ctx, p); err != nil {
		return fmt.Errorf("topology: caseta load occupancy groups: %w", err)
	}
	if err := l.casetaSubscribeOccupancyGroupStatus(ctx, p); err != nil {
		return fmt.Errorf("topology: caseta subscribe occupancy group status: %w", err)
	}
	if err := l.casetaSubscribeButtonEvents(ctx, p); err != nil {
		return fmt.Errorf("topology: caseta subscribe button events: %w", err)
	}
	if err := l.casetaReadZoneStatuses(ctx, p); err != nil {
		return fmt.Errorf("topology: caseta read zone statuses: %w", err)
	}
	return nil
}

func (l *Loader) casetaLoadDevices(ctx context.Context, p *leap.Protocol) error {
	rctx, cancel := l.requestCtx(ctx)
	defer cancel()

	resp, err := p.Request(rctx, "ReadRequest", "/device", nil)
	if err != nil {
		return err
	}
	var body deviceListBody
	if err := unmarshalBody(resp, &body); err != nil {
		return err
	}

	for _, e := range body.Devices {
		id, err := leap.IDFromHref(e.Href)
		if err != nil {
			l.logger.Error("leap device with unparsable href", "href", e.Href, "error", err)
			continue
		}

		name := e.Name
		if len(e.FullyQualifiedName) > 0 {
			name = strings.Join(e.FullyQualifiedName, "_")
		}

		var areaID, zoneID, parentDeviceID string
		if e.Area != nil {
			areaID, _ = leap.IDFromHref(e.Area.Href)
		}
		if len(e.LocalZones) > 0 {
			zoneID, _ = leap.IDFromHref(e.LocalZones[0].Href)
		}
		if e.ParentDevice != nil {
			parentDeviceID, _ = leap.IDFromHref(e.ParentDevice.Href)
		}

		var buttonGroupIDs []string
		for _, bg := range e.ButtonGroups {
			if gid, err := leap.IDFromHref(bg.Href); err == nil {
				buttonGroupIDs = append(buttonGroupIDs, gid)
			}
		}
		var occupancySensorIDs []string
		for _, os := range e.OccupancySensors {
			if sid, err := leap.IDFromHref(os.Href); err == nil {
				occupancySensorIDs = append(occupancySensorIDs, sid)
			}
		}

		l.model.PutDevice(&bridgemodel.Device{
			ID:                 id,
			Name:               name,
			Type:               e.DeviceType,
			Domain:             bridgemodel.DomainForType(e.DeviceType),
			Model:              e.ModelNumber,
			Serial:             e.SerialNumber.String(),
			AreaID:             areaID,
			ZoneID:             zoneID,
			ParentDeviceID:     parentDeviceID,
			ButtonGroupIDs:     buttonGroupIDs,
			OccupancySensorIDs: occupancySensorIDs,
			CurrentLevel:       bridgemodel.LevelUnknown,
		})
	}
	return nil
}

func (l *Loader) casetaLoadButtons(ctx context.Context, p *leap.Protocol) error {
	rctx, cancel := l.requestCtx(ctx)
	defer cancel()

	resp, err := p.Request(rctx, "ReadRequest", "/button", nil)
	if err != nil {
		return err
	}
	var body buttonListBody
	if err := unmarshalBody(resp, &body); err != nil {
		return err
	}

	for _, e := range body.Buttons {
		id, err := leap.IDFromHref(e.Href)
		if err != nil {
			l.logger.Error("leap button with unparsable href", "href", e.Href, "error", err)
			continue
		}

		var groupID string
		if e.Group != nil {
			groupID, _ = leap.IDFromHref(e.Group.Href)
		}
		deviceID := l.model.DeviceIDForButtonGroup(groupID)

		var modelNumber string
		if d, ok := l.model.GetDeviceByID(deviceID); ok {
			modelNumber = d.Model
		}

		engraving := ""
		if e.Engraving != nil {
			engraving = e.Engraving.Text
		}
		name := defaultButtonName(engraving, modelNumber, e.ButtonNumber, e.Name)

		l.model.PutButton(&bridgemodel.Button{
			ID:             id,
			ParentDeviceID: deviceID,
			ButtonGroupID:  groupID,
			ButtonNumber:   e.ButtonNumber,
			Name:           name,
			CurrentState:   bridgemodel.ButtonReleased,
		})
	}
	return nil
}

// casetaProbeLIPDeviceList reads /server/2/id as a best-effort LIP
// device list; some bridge models return an error here, which is
// swallowed per §4.4 step 3.
func (l *Loader) casetaProbeLIPDeviceList(ctx context.Context, p *leap.Protocol) {
	rctx, cancel := l.requestCtx(ctx)
	defer cancel()

	if _, err := p.Request(rctx, "ReadRequest", "/server/2/id", nil); err != nil {
		l.logger.Debug("leap LIP device list probe failed, ignoring", "error", err)
	}
}

func (l *Loader) casetaLoadScenes(ctx context.Context, p *leap.Protocol) error {
	rctx, cancel := l.requestCtx(ctx)
	defer cancel()

	resp, err := p.Request(rctx, "ReadRequest", "/virtualbutton", nil)
	if err != nil {
		return err
	}
	var body virtualButtonListBody
	if err := unmarshalBody(resp, &body); err != nil {
		return err
	}

	for _, e := range body.VirtualButtons {
		if e.Name == "" || !e.IsProgrammed {
			continue
		}
		id, err := leap.IDFromHref(e.Href)
		if err != nil {
			l.logger.Error("leap virtual button with unparsable href", "href", e.Href, "error", err)
			continue
		}
		l.model.PutScene(&bridgemodel.Scene{ID: id, Name: e.Name})
	}
	return nil
}

func (l *Loader) casetaLoadOccupancyGroups(ctx context.Context, p *leap.Protocol) error {
	rctx, cancel := l.requestCtx(ctx)
	defer cancel()

	resp, err := p.Request(rctx, "ReadRequest", "/occupancygroup", nil)
	if err != nil {
		return err
	}
	var body occupancyGroupListBody
	if err := unmarshalBody(resp, &body); err != nil {
		return err
	}

	for _, e := range body.OccupancyGroups {
		if len(e.OccupancySensors) == 0 || len(e.AssociatedAreas) != 1 {
			continue
		}
		id, err := leap.IDFromHref(e.Href)
		if err != nil {
			l.logger.Error("leap occupancy group with unparsable href", "href", e.Href, "error", err)
			continue
		}
		areaID, err := leap.IDFromHref(e.AssociatedAreas[0].Area.Href)
		if err != nil {
			l.logger.Error("leap occupancy group area with unparsable href", "href", e.AssociatedAreas[0].Area.Href, "error", err)
			continue
		}

		var sensorIDs []string
		for _, s := range e.OccupancySensors {
			if sid, err := leap.IDFromHref(s.Href); err == nil {
				sensorIDs = append(sensorIDs, sid)
			}
		}

		l.model.PutOccupancyGroup(&bridgemodel.OccupancyGroup{
			ID:        id,
			AreaID:    areaID,
			SensorIDs: sensorIDs,
			Status:    bridgemodel.OccupancyUnknown,
			Name:      l.areaName(areaID) + " Occupancy",
		})
	}
	return nil
}

func (l *Loader) casetaSubscribeOccupancyGroupStatus(ctx context.Context, p *leap.Protocol) error {
	rctx, cancel := l.requestCtx(ctx)
	defer cancel()

	resp, _, err := p.Subscribe(rctx, "/occupancygroup/status", l.router.HandleOccupancyGroupStatus, nil, "")
	if err != nil {
		return err
	}
	// Process the subscribe response's own body as if it were an
	// unsolicited status event, per §4.4 step 6.
	l.router.HandleOccupancyGroupStatus(resp)
	return nil
}

func (l *Loader) casetaSubscribeButtonEvents(ctx context.Context, p *leap.Protocol) error {
	for _, id := range l.allButtonIDs() {
		rctx, cancel := l.requestCtx(ctx)
		url := fmt.Sprintf("/button/%s/status/event", id)
		_, _, err := p.Subscribe(rctx, url, l.router.HandleButtonStatusEvent, nil, "")
		cancel()
		if err != nil {
			l.logger.Error("leap subscribe button status failed", "button_id", id, "error", err)
		}
	}
	return nil
}

func (l *Loader) casetaReadZoneStatuses(ctx context.Context, p *leap.Protocol) error {
	for _, d := range l.model.GetDevices() {
		if d.ZoneID == "" {
			continue
		}
		rctx, cancel := l.requestCtx(ctx)
		url := fmt.Sprintf("/zone/%s/status", d.ZoneID)
		resp, err := p.Request(rctx, "ReadRequest", url, nil)
		cancel()
		if err != nil {
			l.logger.Error("leap read zone status failed", "zone_id", d.ZoneID, "error", err)
			continue
		}
		l.router.HandleZoneStatus(resp)
	}
	return nil
}

// allButtonIDs returns every known button id by walking each device's
// button groups, since bridgemodel only exposes buttons scoped to a
// group rather than a bulk accessor.
func (l *Loader) allButtonIDs() []string {
	var ids []string
	seen := make(map[string]bool)
	for _, d := range l.model.GetDevices() {
		for _, gid := range d.ButtonGroupIDs {
			for _, b := range l.model.GetButtonsByGroup(gid) {
				if !seen[b.ID] {
					seen[b.ID] = true
					ids = append(ids, b.ID)
				}
			}
		}
	}
	return ids
}
