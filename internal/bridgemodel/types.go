package bridgemodel

// Domain classifies a device for GetDevicesByDomain, grounded on the
// _LEAP_DEVICE_TYPES table: which LEAP device Type strings map to
// which broad category of consumer-facing behaviour.
type Domain string

const (
	DomainLight  Domain = "light"
	DomainSwitch Domain = "switch"
	DomainFan    Domain = "fan"
	DomainCover  Domain = "cover"
	DomainSensor Domain = "sensor"
	DomainKeypad Domain = "keypad"
)

// domainByType maps a LEAP device Type string to the domain it belongs
// to. Unlisted types classify as "" (no domain).
var domainByType = map[string]Domain{
	"WallDimmer":                                  DomainLight,
	"PlugInDimmer":                                DomainLight,
	"InLineDimmer":                                DomainLight,
	"SunnataDimmer":                               DomainLight,
	"Ketra":                                       DomainLight,
	"WallSwitch":                                  DomainSwitch,
	"PlugInSwitch":                                DomainSwitch,
	"InLineSwitch":                                DomainSwitch,
	"SunnataSwitch":                               DomainSwitch,
	"CasetaFanSpeedController":                    DomainFan,
	"MaestroFanSpeedController":                   DomainFan,
	"SerenaHoneycombShade":                        DomainCover,
	"SerenaRollerShade":                           DomainCover,
	"TriathlonHoneycombShade":                     DomainCover,
	"TriathlonRollerShade":                        DomainCover,
	"QsWirelessShade":                             DomainCover,
	"QsWirelessHorizontalSheerBlind":              DomainCover,
	"RPSCeilingMountedOccupancySensor":            DomainSensor,
	"RPSWallMountedOccupancySensor":               DomainSensor,
	"Pico2Button":                                 DomainKeypad,
	"Pico2ButtonRaiseLower":                       DomainKeypad,
	"Pico3Button":                                 DomainKeypad,
	"Pico3ButtonRaiseLower":                       DomainKeypad,
	"Pico4Button":                                 DomainKeypad,
	"Pico4ButtonZone":                             DomainKeypad,
	"Pico4ButtonScene":                            DomainKeypad,
	"Pico4Button2Group":                           DomainKeypad,
	"FourGroupRemote":                             DomainKeypad,
	"SunnataKeypad":                               DomainKeypad,
	"SunnataHybridKeypad":                         DomainKeypad,
	"HomeownerKeypad":                             DomainKeypad,
	"GrafikEyeKeypad":                             DomainKeypad,
	"SeeTouchKeypad":                              DomainKeypad,
	"SeeTouchTabletopKeypad":                      DomainKeypad,
	"SeeTouchHybridKeypad":                        DomainKeypad,
	"HybridSeeTouchKeypad":                        DomainKeypad,
	"International2ButtonKeypad_2Group":           DomainKeypad,
	"International3ButtonRaiseLowerKeypad_4Group": DomainKeypad,
	"International4ButtonKeypad_2Group":           DomainKeypad,
	"International4ButtonRaiseLowerKeypad_3Group": DomainKeypad,
	"International6ButtonKeypad_3Group":           DomainKeypad,
	"International7ButtonKeypad_4Group":           DomainKeypad,
	"International8ButtonKeypad_2Group":           DomainKeypad,
}

// DomainForType returns the domain classification for a LEAP device
// Type string, or "" if the type is not recognised.
func DomainForType(deviceType string) Domain {
	return domainByType[deviceType]
}

// FanSpeed enumerates the LEAP fan speed vocabulary.
type FanSpeed string

const (
	FanOff        FanSpeed = "Off"
	FanLow        FanSpeed = "Low"
	FanMedium     FanSpeed = "Medium"
	FanMediumHigh FanSpeed = "MediumHigh"
	FanHigh       FanSpeed = "High"
)

// OccupancyStatus enumerates the status vocabulary for occupancy
// groups and RA3 area occupancy.
type OccupancyStatus string

const (
	OccupancyOccupied   OccupancyStatus = "Occupied"
	OccupancyUnoccupied OccupancyStatus = "Unoccupied"
	OccupancyUnknown    OccupancyStatus = "Unknown"
)

// ButtonState is the press state of a button.
type ButtonState string

const (
	ButtonPressed  ButtonState = "Press"
	ButtonReleased ButtonState = "Release"
)

// LEDState mirrors the LEAP on/off/unknown encoding used for LED
// current state: -1 unknown, 0 off, 100 on.
type LEDState int

const (
	LEDUnknown LEDState = -1
	LEDOff     LEDState = 0
	LEDOn      LEDState = 100
)

// LevelUnknown is the sentinel current-level value for a device whose
// level has not yet been reported by the bridge.
const LevelUnknown = -1

// Area is a named grouping of devices, optionally nested under a
// parent area. Populated at login and immutable for the session.
type Area struct {
	ID       string
	Name     string
	ParentID string // "" if this is a root area
}

// Device is any logical endpoint on the bridge: a load, a keypad, a
// sensor, the bridge processor itself, or (on RA3) an LED sub-device.
type Device struct {
	ID         string
	Name       string // fully qualified, path segments joined with "_"
	Type       string // raw LEAP Type string
	Domain     Domain
	Model      string
	Serial     string
	AreaID     string
	ZoneID     string // "" if this device drives no load
	ButtonGroupIDs   []string
	OccupancySensorIDs []string
	ParentDeviceID string // "" unless this is an LED sub-device

	CurrentLevel int // LevelUnknown, or 0-100
	FanSpeed     *FanSpeed
	Tilt         *int // nil, or 0-100
}

// Button is a single physical or virtual button on a keypad.
type Button struct {
	ID             string
	ParentDeviceID string
	ButtonGroupID  string
	ButtonNumber   int
	Name           string // engraved text, special-button default, or raw Name
	CurrentState   ButtonState
	LEDID          string // "" if this button has no associated LED
}

// LED is an indicator light associated with a button on a keypad.
type LED struct {
	ID             string
	ParentDeviceID string
	ParentButtonID string
	CurrentState   LEDState
}

// Scene is a bridge-programmed virtual button action.
type Scene struct {
	ID   string
	Name string
}

// OccupancyGroup aggregates one or more occupancy sensors into a
// single reported status, usually scoped to one area.
type OccupancyGroup struct {
	ID        string
	Name      string
	AreaID    string
	SensorIDs []string
	Status    OccupancyStatus
}
