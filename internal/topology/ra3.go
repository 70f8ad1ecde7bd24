package topology

import (
	"context"
	"fmt"

	"github.com/nugget/leapctl/internal/bridgemodel"
	"github.com/nugget/leapctl/internal/leap"
)

// ra3OccupancySensorTypes lists device types that RA3 reports via the
// plain device tree (IsThisDevice:false) rather than a Caseta-style
// occupancygroup. Any such device becomes a sensor under its area's
// synthesized occupancy group.
var ra3OccupancySensorTypes = map[string]bool{
	"RPSCeilingMountedOccupancySensor": true,
	"RPSWallMountedOccupancySensor":    true,
}

// loadRA3 runs the 5-step RadioRA3/HomeWorks QSX bootstrap sequence
// from §4.4. RA3 has no button-group or occupancygroup endpoints the
// way Caseta does; control stations, button groups and LEDs are
// discovered per-area via associatedcontrolstation/buttongroup walks.
func (l *Loader) loadRA3(ctx context.Context, p *leap.Protocol) error {
	if err := l.ra3LoadProcessor(ctx, p); err != nil {
		return fmt.Errorf("topology: ra3 load processor: %w", err)
	}
	for _, areaID := range l.model.AreaIDs() {
		if err := l.ra3LoadAreaControlStations(ctx, p, areaID); err != nil {
			return fmt.Errorf("topology: ra3 load control stations for area %s: %w", areaID, err)
		}
		if err := l.ra3LoadAreaZones(ctx, p, areaID); err != nil {
			return fmt.Errorf("topology: ra3 load zones for area %s: %w", areaID, err)
		}
	}
	if err := l.ra3SubscribeZoneStatusBulk(ctx, p); err != nil {
		return fmt.Errorf("topology: ra3 subscribe zone status: %w", err)
	}
	if err := l.ra3LoadOccupancySensors(ctx, p); err != nil {
		return fmt.Errorf("topology: ra3 load occupancy sensors: %w", err)
	}
	if err := l.ra3SubscribeAreaStatus(ctx, p); err != nil {
		return fmt.Errorf("topology: ra3 subscribe area status: %w", err)
	}
	return nil
}

// ra3LoadProcessor registers the bridge's own processor device, found
// with IsThisDevice:true, as device id "1" per §4.4 step 1.
func (l *Loader) ra3LoadProcessor(ctx context.Context, p *leap.Protocol) error {
	rctx, cancel := l.requestCtx(ctx)
	defer cancel()

	resp, err := p.Request(rctx, "ReadRequest", "/device?where=IsThisDevice:true", nil)
	if err != nil {
		return err
	}
	var body deviceListBody
	if err := unmarshalBody(resp, &body); err != nil {
		return err
	}

	for _, e := range body.Devices {
		if _, err := leap.IDFromHref(e.Href); err != nil {
			l.logger.Error("leap processor device with unparsable href", "href", e.Href, "error", err)
			continue
		}
		l.model.PutDevice(&bridgemodel.Device{
			ID:           "1",
			Name:         e.Name,
			Type:         e.DeviceType,
			Domain:       bridgemodel.DomainForType(e.DeviceType),
			Model:        e.ModelNumber,
			Serial:       e.SerialNumber.String(),
			CurrentLevel: bridgemodel.LevelUnknown,
		})
	}
	return nil
}

// ra3LoadAreaControlStations discovers the keypads ganged into a
// control station for one area, then expands each keypad's button
// groups to populate buttons, LEDs, and their cross-indexes, and
// subscribes to each button's and LED's status individually (RA3 has
// no bulk button/LED subscription the way Caseta's occupancygroup
// status does).
func (l *Loader) ra3LoadAreaControlStations(ctx context.Context, p *leap.Protocol, areaID string) error {
	rctx, cancel := l.requestCtx(ctx)
	url := fmt.Sprintf("/area/%s/associatedcontrolstation", areaID)
	resp, err := p.Request(rctx, "ReadRequest", url, nil)
	cancel()
	if err != nil {
		l.logger.Error("leap read associatedcontrolstation failed", "area_id", areaID, "error", err)
		return nil
	}
	var body associatedControlStationBody
	if err := unmarshalBody(resp, &body); err != nil {
		return err
	}

	for _, cs := range body.ControlStations {
		for _, g := range cs.AssociatedGangedDevices {
			deviceID, err := leap.IDFromHref(g.Device.Href)
			if err != nil {
				l.logger.Error("leap ganged device with unparsable href", "href", g.Device.Href, "error", err)
				continue
			}
			if err := l.ra3LoadKeypadDevice(ctx, p, deviceID, areaID); err != nil {
				l.logger.Error("leap load keypad device failed", "device_id", deviceID, "error", err)
				continue
			}
			if err := l.ra3LoadButtonGroups(ctx, p, deviceID); err != nil {
				l.logger.Error("leap load button groups failed", "device_id", deviceID, "error", err)
			}
		}
	}
	return nil
}

func (l *Loader) ra3LoadKeypadDevice(ctx context.Context, p *leap.Protocol, deviceID, areaID string) error {
	rctx, cancel := l.requestCtx(ctx)
	defer cancel()

	url := fmt.Sprintf("/device/%s", deviceID)
	resp, err := p.Request(rctx, "ReadRequest", url, nil)
	if err != nil {
		return err
	}
	var body struct {
		Device deviceEntry `json:"Device"`
	}
	if err := unmarshalBody(resp, &body); err != nil {
		return err
	}
	e := body.Device

	name := e.Name
	if len(e.FullyQualifiedName) > 0 {
		name = joinUnderscore(e.FullyQualifiedName)
	}

	l.model.PutDevice(&bridgemodel.Device{
		ID:           deviceID,
		Name:         name,
		Type:         e.DeviceType,
		Domain:       bridgemodel.DomainForType(e.DeviceType),
		Model:        e.ModelNumber,
		Serial:       e.SerialNumber.String(),
		AreaID:       areaID,
		CurrentLevel: bridgemodel.LevelUnknown,
	})
	return nil
}

func (l *Loader) ra3LoadButtonGroups(ctx context.Context, p *leap.Protocol, deviceID string) error {
	rctx, cancel := l.requestCtx(ctx)
	defer cancel()

	url := fmt.Sprintf("/device/%s/buttongroup/expanded", deviceID)
	resp, err := p.Request(rctx, "ReadRequest", url, nil)
	if err != nil {
		return err
	}
	var body expandedButtonGroupBody
	if err := unmarshalBody(resp, &body); err != nil {
		return err
	}

	var modelNumber string
	if d, ok := l.model.GetDeviceByID(deviceID); ok {
		modelNumber = d.Model
	}

	for _, g := range body.ButtonGroups {
		groupID, err := leap.IDFromHref(g.Href)
		if err != nil {
			l.logger.Error("leap button group with unparsable href", "href", g.Href, "error", err)
			continue
		}
		l.model.BindButtonGroup(groupID, deviceID)

		for _, b := range g.Buttons {
			buttonID, err := leap.IDFromHref(b.Href)
			if err != nil {
				l.logger.Error("leap button with unparsable href", "href", b.Href, "error", err)
				continue
			}

			engraving := ""
			if b.Engraving != nil {
				engraving = b.Engraving.Text
			}
			name := defaultButtonName(engraving, modelNumber, b.ButtonNumber, b.Name)

			var ledID string
			if b.AssociatedLED != nil {
				if id, err := leap.IDFromHref(b.AssociatedLED.Href); err == nil {
					ledID = id
				}
			}

			l.model.PutButton(&bridgemodel.Button{
				ID:             buttonID,
				ParentDeviceID: deviceID,
				ButtonGroupID:  groupID,
				ButtonNumber:   b.ButtonNumber,
				Name:           name,
				CurrentState:   bridgemodel.ButtonReleased,
				LEDID:          ledID,
			})

			bctx, bcancel := l.requestCtx(ctx)
			burl := fmt.Sprintf("/button/%s/status/event", buttonID)
			_, _, err = p.Subscribe(bctx, burl, l.router.HandleButtonStatusEvent, nil, "")
			bcancel()
			if err != nil {
				l.logger.Error("leap subscribe button status failed", "button_id", buttonID, "error", err)
			}

			if ledID != "" {
				l.model.PutLED(&bridgemodel.LED{
					ID:             ledID,
					ParentDeviceID: deviceID,
					ParentButtonID: buttonID,
					CurrentState:   bridgemodel.LEDUnknown,
				})

				lctx, lcancel := l.requestCtx(ctx)
				lurl := fmt.Sprintf("/led/%s/status", ledID)
				_, _, err = p.Subscribe(lctx, lurl, l.router.HandleLEDStatus, nil, "")
				lcancel()
				if err != nil {
					l.logger.Error("leap subscribe led status failed", "led_id", ledID, "error", err)
				}
			}
		}
	}
	return nil
}

// ra3LoadAreaZones creates a zone-backed device entry for each zone
// associated with an area, so the bridgemodel's zone-to-device
// cross-index covers RA3 loads the same way it covers Caseta ones.
func (l *Loader) ra3LoadAreaZones(ctx context.Context, p *leap.Protocol, areaID string) error {
	rctx, cancel := l.requestCtx(ctx)
	url := fmt.Sprintf("/area/%s/associatedzone", areaID)
	resp, err := p.Request(rctx, "ReadRequest", url, nil)
	cancel()
	if err != nil {
		l.logger.Error("leap read associatedzone failed", "area_id", areaID, "error", err)
		return nil
	}
	var body associatedZoneBody
	if err := unmarshalBody(resp, &body); err != nil {
		return err
	}

	for _, az := range body.AssociatedZones {
		zoneID, err := leap.IDFromHref(az.Zone.Href)
		if err != nil {
			l.logger.Error("leap associated zone with unparsable href", "href", az.Zone.Href, "error", err)
			continue
		}
		l.model.PutDevice(&bridgemodel.Device{
			ID:           zoneID,
			Name:         l.areaName(areaID),
			Type:         "RA3Zone",
			Domain:       bridgemodel.DomainLight,
			AreaID:       areaID,
			ZoneID:       zoneID,
			CurrentLevel: bridgemodel.LevelUnknown,
		})
	}
	return nil
}

func (l *Loader) ra3SubscribeZoneStatusBulk(ctx context.Context, p *leap.Protocol) error {
	rctx, cancel := l.requestCtx(ctx)
	defer cancel()

	_, _, err := p.Subscribe(rctx, "/zone/status", l.router.HandleZoneStatusBulk, nil, "")
	return err
}

// ra3LoadOccupancySensors reads the plain device tree for
// IsThisDevice:false and registers any occupancy sensor found as a
// member of a synthesized per-area occupancy group, since RA3 has no
// Caseta-style /occupancygroup endpoint.
func (l *Loader) ra3LoadOccupancySensors(ctx context.Context, p *leap.Protocol) error {
	rctx, cancel := l.requestCtx(ctx)
	defer cancel()

	resp, err := p.Request(rctx, "ReadRequest", "/device?where=IsThisDevice:false", nil)
	if err != nil {
		return err
	}
	var body deviceListBody
	if err := unmarshalBody(resp, &body); err != nil {
		return err
	}

	for _, e := range body.Devices {
		if !ra3OccupancySensorTypes[e.DeviceType] {
			continue
		}
		if e.Area == nil {
			continue
		}
		sensorID, err := leap.IDFromHref(e.Href)
		if err != nil {
			l.logger.Error("leap occupancy sensor with unparsable href", "href", e.Href, "error", err)
			continue
		}
		areaID, err := leap.IDFromHref(e.Area.Href)
		if err != nil {
			continue
		}

		group, ok := l.model.GetOccupancyGroupByID(areaID)
		if !ok {
			group = &bridgemodel.OccupancyGroup{
				ID:     areaID,
				Name:   l.areaName(areaID) + " Occupancy",
				AreaID: areaID,
				Status: bridgemodel.OccupancyUnknown,
			}
		}
		group.SensorIDs = append(group.SensorIDs, sensorID)
		l.model.PutOccupancyGroup(group)
	}
	return nil
}

func (l *Loader) ra3SubscribeAreaStatus(ctx context.Context, p *leap.Protocol) error {
	rctx, cancel := l.requestCtx(ctx)
	defer cancel()

	_, _, err := p.Subscribe(rctx, "/area/status", l.router.HandleAreaStatus, nil, "")
	return err
}

func joinUnderscore(parts []string) string {
	out := ""
	for i, s := range parts {
		if i > 0 {
			out += "_"
		}
		out += s
	}
	return out
}
