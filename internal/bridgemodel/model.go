package bridgemodel

import "sync"

// Model is the bridge's topology, shared across the session. Callers
// read it only through the accessor methods on this type. Writers are
// the topology loader during bootstrap, the event router on the
// protocol's read-loop goroutine, and the façade's optimistic cover
// level update (SetDeviceLevel). The mutex
// exists because Go has no single-owner-goroutine guarantee the way a
// cooperative event loop does; it protects exactly the tables named in
// the concurrency model, nothing more.
type Model struct {
	mu sync.RWMutex

	areas           map[string]*Area
	devices         map[string]*Device
	buttons         map[string]*Button
	leds            map[string]*LED
	scenes          map[string]*Scene
	occupancyGroups map[string]*OccupancyGroup

	// zoneToDevice resolves a zone id to the device that owns it, used
	// by the event router's OneZoneStatus handler.
	zoneToDevice map[string]string
	// buttonGroupToDevice resolves a button-group id to its parent
	// device, built while loading devices (Caseta branch) or button
	// groups (RA3 branch).
	buttonGroupToDevice map[string]string
	// ledToButton resolves an LED id to the button it indicates.
	ledToButton map[string]string
}

// New returns an empty Model. Reset clears it again at the start of
// each bootstrap before the loader re-populates it; cross-indexes are rebuilt from scratch on every
// login per spec, so a fresh Model is also the right shape to hold
// across a reconnect between logins.
func New() *Model {
	return &Model{
		areas:               make(map[string]*Area),
		devices:             make(map[string]*Device),
		buttons:             make(map[string]*Button),
		leds:                make(map[string]*LED),
		scenes:              make(map[string]*Scene),
		occupancyGroups:     make(map[string]*OccupancyGroup),
		zoneToDevice:        make(map[string]string),
		buttonGroupToDevice: make(map[string]string),
		ledToButton:         make(map[string]string),
	}
}

// Reset clears all tables and cross-indexes. The topology loader calls
// this at the start of every bootstrap so stale entries from a prior
// connection never survive a reconnect.
func (m *Model) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.areas = make(map[string]*Area)
	m.devices = make(map[string]*Device)
	m.buttons = make(map[string]*Button)
	m.leds = make(map[string]*LED)
	m.scenes = make(map[string]*Scene)
	m.occupancyGroups = make(map[string]*OccupancyGroup)
	m.zoneToDevice = make(map[string]string)
	m.buttonGroupToDevice = make(map[string]string)
	m.ledToButton = make(map[string]string)
}

// --- population (topology loader) ---

func (m *Model) PutArea(a *Area) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.areas[a.ID] = a
}

func (m *Model) PutDevice(d *Device) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.devices[d.ID] = d
	if d.ZoneID != "" {
		m.zoneToDevice[d.ZoneID] = d.ID
	}
	for _, bg := range d.ButtonGroupIDs {
		m.buttonGroupToDevice[bg] = d.ID
	}
}

func (m *Model) PutButton(b *Button) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.buttons[b.ID] = b
	if b.LEDID != "" {
		m.ledToButton[b.LEDID] = b.ID
	}
}

func (m *Model) PutLED(l *LED) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.leds[l.ID] = l
}

func (m *Model) PutScene(s *Scene) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scenes[s.ID] = s
}

func (m *Model) PutOccupancyGroup(g *OccupancyGroup) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.occupancyGroups[g.ID] = g
}

// DeviceIDForButtonGroup resolves a button-group id to its parent
// device id, as built by PutDevice (Caseta) or the RA3 button-group
// walk (topology.loadRA3). Returns "" if unknown.
func (m *Model) DeviceIDForButtonGroup(groupID string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.buttonGroupToDevice[groupID]
}

// BindButtonGroup records that groupID belongs to deviceID, for the
// RA3 branch where button groups are discovered independently of
// device population.
func (m *Model) BindButtonGroup(groupID, deviceID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.buttonGroupToDevice[groupID] = deviceID
}

// --- accessors ---

func (m *Model) GetDevices() []*Device {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Device, 0, len(m.devices))
	for _, d := range m.devices {
		out = append(out, d)
	}
	return out
}

func (m *Model) GetDevicesByDomain(domain Domain) []*Device {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*Device
	for _, d := range m.devices {
		if d.Domain == domain {
			out = append(out, d)
		}
	}
	return out
}

func (m *Model) GetDevicesByType(deviceType string) []*Device {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*Device
	for _, d := range m.devices {
		if d.Type == deviceType {
			out = append(out, d)
		}
	}
	return out
}

func (m *Model) GetDevicesByTypes(deviceTypes []string) []*Device {
	wanted := make(map[string]bool, len(deviceTypes))
	for _, t := range deviceTypes {
		wanted[t] = true
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*Device
	for _, d := range m.devices {
		if wanted[d.Type] {
			out = append(out, d)
		}
	}
	return out
}

func (m *Model) GetDeviceByID(id string) (*Device, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.devices[id]
	return d, ok
}

func (m *Model) GetDeviceByZoneID(zoneID string) (*Device, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.zoneToDevice[zoneID]
	if !ok {
		return nil, false
	}
	d, ok := m.devices[id]
	return d, ok
}

func (m *Model) GetButtonByID(id string) (*Button, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.buttons[id]
	return b, ok
}

// GetButtonsByGroup returns every button belonging to groupID, the
// check tap_button uses to guard against a typo'd button id.
func (m *Model) GetButtonsByGroup(groupID string) []*Button {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*Button
	for _, b := range m.buttons {
		if b.ButtonGroupID == groupID {
			out = append(out, b)
		}
	}
	return out
}

func (m *Model) GetLEDByID(id string) (*LED, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	l, ok := m.leds[id]
	return l, ok
}

// ButtonIDForLED resolves an LED id to the button id it indicates.
func (m *Model) ButtonIDForLED(ledID string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.ledToButton[ledID]
	return id, ok
}

func (m *Model) GetScenes() []*Scene {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Scene, 0, len(m.scenes))
	for _, s := range m.scenes {
		out = append(out, s)
	}
	return out
}

func (m *Model) GetSceneByID(id string) (*Scene, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.scenes[id]
	return s, ok
}

func (m *Model) GetAreaByID(id string) (*Area, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.areas[id]
	return a, ok
}

// AreaIDs returns every known area id, used by the RA3 bootstrap
// branch to walk areas one at a time.
func (m *Model) AreaIDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.areas))
	for id := range m.areas {
		out = append(out, id)
	}
	return out
}

func (m *Model) GetOccupancyGroupByID(id string) (*OccupancyGroup, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	g, ok := m.occupancyGroups[id]
	return g, ok
}

func (m *Model) GetOccupancyGroups() []*OccupancyGroup {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*OccupancyGroup, 0, len(m.occupancyGroups))
	for _, g := range m.occupancyGroups {
		out = append(out, g)
	}
	return out
}

// --- mutation (event router) ---

// UpdateZoneStatus applies a OneZoneStatus payload to the device that
// owns zoneID. level < 0 leaves CurrentLevel untouched (matches the
// "Level >= 0" guard in spec §4.5); fanSpeed and tilt are always
// overwritten, including with nil, since the bridge sends them
// authoritatively whenever it sends a zone status at all.
func (m *Model) UpdateZoneStatus(zoneID string, level int, fanSpeed *FanSpeed, tilt *int) (*Device, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.zoneToDevice[zoneID]
	if !ok {
		return nil, false
	}
	d, ok := m.devices[id]
	if !ok {
		return nil, false
	}
	if level >= 0 {
		d.CurrentLevel = level
	}
	d.FanSpeed = fanSpeed
	d.Tilt = tilt
	return d, true
}

// SetDeviceLevel directly sets a device's cached level, used by the
// façade's optimistic raise/lower cover update.
func (m *Model) SetDeviceLevel(deviceID string, level int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d, ok := m.devices[deviceID]; ok {
		d.CurrentLevel = level
	}
}

// UpdateLEDStatus sets an LED's cached state and returns its parent
// keypad device id for subscriber dispatch.
func (m *Model) UpdateLEDStatus(ledID string, on bool) (parentDeviceID string, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.leds[ledID]
	if !ok {
		return "", false
	}
	if on {
		l.CurrentState = LEDOn
	} else {
		l.CurrentState = LEDOff
	}
	return l.ParentDeviceID, true
}

// UpdateButtonState sets a button's press state and returns its
// parent device id and button-group id for keypad-level dispatch.
func (m *Model) UpdateButtonState(buttonID string, state ButtonState) (parentDeviceID, groupID string, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.buttons[buttonID]
	if !ok {
		return "", "", false
	}
	b.CurrentState = state
	return b.ParentDeviceID, b.ButtonGroupID, true
}

// UpdateOccupancyStatus sets a group's status.
func (m *Model) UpdateOccupancyStatus(groupID string, status OccupancyStatus) (*OccupancyGroup, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.occupancyGroups[groupID]
	if !ok {
		return nil, false
	}
	g.Status = status
	return g, true
}
