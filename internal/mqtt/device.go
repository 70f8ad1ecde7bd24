package mqtt

import "github.com/nugget/leapctl/internal/buildinfo"

// DeviceInfo holds the Home Assistant device registry fields shared
// across every entity published by this bridge instance. Every
// discovery payload references the same device block so HA groups
// them under a single device page representing the Lutron bridge.
type DeviceInfo struct {
	Identifiers  []string `json:"identifiers"`
	Name         string   `json:"name"`
	Manufacturer string   `json:"manufacturer"`
	Model        string   `json:"model"`
	SWVersion    string   `json:"sw_version"`
}

// LightConfig is the JSON payload for an HA MQTT light discovery
// message, covering both on/off and dimmable fixtures.
type LightConfig struct {
	Name              string     `json:"name"`
	ObjectID          string     `json:"object_id,omitempty"`
	HasEntityName     bool       `json:"has_entity_name,omitempty"`
	UniqueID          string     `json:"unique_id"`
	StateTopic        string     `json:"state_topic"`
	CommandTopic      string     `json:"command_topic"`
	BrightnessStateTopic   string `json:"brightness_state_topic,omitempty"`
	BrightnessCommandTopic string `json:"brightness_command_topic,omitempty"`
	BrightnessScale   int        `json:"brightness_scale,omitempty"`
	AvailabilityTopic string     `json:"availability_topic"`
	Device            DeviceInfo `json:"device"`
	PayloadOn         string     `json:"payload_on"`
	PayloadOff        string     `json:"payload_off"`
}

// CoverConfig is the JSON payload for an HA MQTT cover (shade)
// discovery message.
type CoverConfig struct {
	Name              string     `json:"name"`
	ObjectID          string     `json:"object_id,omitempty"`
	HasEntityName     bool       `json:"has_entity_name,omitempty"`
	UniqueID          string     `json:"unique_id"`
	CommandTopic      string     `json:"command_topic"`
	PositionTopic     string     `json:"position_topic,omitempty"`
	SetPositionTopic  string     `json:"set_position_topic,omitempty"`
	AvailabilityTopic string     `json:"availability_topic"`
	Device            DeviceInfo `json:"device"`
	PayloadOpen       string     `json:"payload_open"`
	PayloadClose      string     `json:"payload_close"`
	PayloadStop       string     `json:"payload_stop"`
}

// SceneConfig is the JSON payload for an HA MQTT scene discovery
// message, activated by a single command with no state.
type SceneConfig struct {
	Name              string     `json:"name"`
	ObjectID          string     `json:"object_id,omitempty"`
	HasEntityName     bool       `json:"has_entity_name,omitempty"`
	UniqueID          string     `json:"unique_id"`
	CommandTopic      string     `json:"command_topic"`
	AvailabilityTopic string     `json:"availability_topic"`
	Device            DeviceInfo `json:"device"`
	PayloadOn         string     `json:"payload_on"`
}

// NewDeviceInfo creates a DeviceInfo from the persistent instance ID
// and the human-readable device name. The instance ID is used as the
// primary HA device identifier (stable across renames); the device
// name appears in the HA UI.
func NewDeviceInfo(instanceID, deviceName string) DeviceInfo {
	return DeviceInfo{
		Identifiers:  []string{instanceID},
		Name:         deviceName,
		Manufacturer: "Lutron",
		Model:        "LEAP Bridge",
		SWVersion:    buildinfo.Version,
	}
}
