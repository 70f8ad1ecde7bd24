package lutronleap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nugget/leapctl/internal/bridgemodel"
	"github.com/nugget/leapctl/internal/events"
	"github.com/nugget/leapctl/internal/leap"
	"github.com/nugget/leapctl/internal/session"
	"github.com/nugget/leapctl/internal/topology"
)

// SmartBridge is the public entry point: one instance per physical
// bridge, owning the session, the topology model, and event routing
// across reconnects.
type SmartBridge struct {
	supervisor     *session.Supervisor
	model          *bridgemodel.Model
	router         *events.Router
	loader         *topology.Loader
	logger         *slog.Logger
	requestTimeout time.Duration
}

// Options configures a SmartBridge. Connector is required; everything
// else defaults the way session.Supervisor defaults it.
type Options struct {
	Connector      session.Connector
	Logger         *slog.Logger
	ConnectTimeout time.Duration
	RequestTimeout time.Duration
	PingInterval   time.Duration
	ReconnectDelay time.Duration
}

// New builds a SmartBridge. Call Connect to establish the session.
func New(opts Options) *SmartBridge {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	requestTimeout := opts.RequestTimeout
	if requestTimeout <= 0 {
		requestTimeout = session.DefaultRequestTimeout
	}

	model := bridgemodel.New()
	router := events.NewRouter(model, logger)
	loader := topology.NewLoader(model, router, logger, requestTimeout)

	sb := &SmartBridge{
		model:          model,
		router:         router,
		loader:         loader,
		logger:         logger,
		requestTimeout: requestTimeout,
	}

	sb.supervisor = session.NewSupervisor(session.Options{
		Connector:      opts.Connector,
		Logger:         logger,
		OnConnect:      sb.onConnect,
		ConnectTimeout: opts.ConnectTimeout,
		RequestTimeout: requestTimeout,
		PingInterval:   opts.PingInterval,
		ReconnectDelay: opts.ReconnectDelay,
	})
	return sb
}

// onConnect is the supervisor's OnConnectFunc: register unsolicited
// routing before anything else, then run the bootstrap sequence.
func (sb *SmartBridge) onConnect(ctx context.Context, p *leap.Protocol) error {
	sb.router.RegisterUnsolicited(p)
	return sb.loader.Load(ctx, p)
}

// Connect starts the session and blocks until the first login
// completes or fails.
func (sb *SmartBridge) Connect(ctx context.Context) error {
	return sb.supervisor.Connect(ctx)
}

// Close tears down the session and stops reconnecting.
func (sb *SmartBridge) Close() error {
	return sb.supervisor.Close()
}

// IsConnected reports whether a live protocol is currently available.
func (sb *SmartBridge) IsConnected() bool {
	return sb.supervisor.IsConnected()
}

func (sb *SmartBridge) protocol() (*leap.Protocol, error) {
	p, ok := sb.supervisor.Protocol()
	if !ok {
		return nil, leap.ErrDisconnected
	}
	return p, nil
}

// do issues one request with the façade's fixed request timeout and
// converts a non-2xx status into a *leap.ResponseError.
func (sb *SmartBridge) do(ctx context.Context, communiqueType, url string, body any) (leap.Response, error) {
	p, err := sb.protocol()
	if err != nil {
		return leap.Response{}, err
	}
	rctx, cancel := context.WithTimeout(ctx, sb.requestTimeout)
	defer cancel()

	resp, err := p.Request(rctx, communiqueType, url, body)
	if err != nil {
		if rctx.Err() != nil {
			return resp, leap.ErrTimedOut
		}
		return resp, err
	}
	if resp.Header.StatusCode != nil && !resp.Header.StatusCode.IsSuccessful() {
		return resp, &leap.ResponseError{Response: resp}
	}
	return resp, nil
}

// --- §4.6 imperative operations ---

// SetValue sets a device's level. If fadeTime is non-nil and the
// device is dimmable, the fade is encoded into the command; Ketra
// spectrum-tune lamps use GoToSpectrumTuningLevel instead of
// GoToDimmedLevel/GoToLevel. Devices with no zone (e.g. a button) are
// a no-op.
func (sb *SmartBridge) SetValue(ctx context.Context, deviceID string, level int, fadeTime *time.Duration) error {
	d, ok := sb.model.GetDeviceByID(deviceID)
	if !ok {
		return fmt.Errorf("lutronleap: unknown device %q", deviceID)
	}
	if d.ZoneID == "" {
		return nil
	}
	url := fmt.Sprintf("/zone/%s/commandprocessor", d.ZoneID)

	var body commandRequest
	switch {
	case d.Type == "Ketra":
		fade := ""
		if fadeTime != nil {
			fade = encodeFadeTime(*fadeTime)
		}
		body = goToSpectrumTuningLevel(level, fade)
	case fadeTime != nil && d.Domain == bridgemodel.DomainLight:
		body = goToDimmedLevel(level, encodeFadeTime(*fadeTime))
	default:
		body = goToLevel(level)
	}

	_, err := sb.do(ctx, "CreateRequest", url, body)
	return err
}

// SetFan sets a fan-capable device's speed.
func (sb *SmartBridge) SetFan(ctx context.Context, deviceID string, speed bridgemodel.FanSpeed) error {
	d, ok := sb.model.GetDeviceByID(deviceID)
	if !ok {
		return fmt.Errorf("lutronleap: unknown device %q", deviceID)
	}
	if d.ZoneID == "" {
		return nil
	}
	url := fmt.Sprintf("/zone/%s/commandprocessor", d.ZoneID)
	_, err := sb.do(ctx, "CreateRequest", url, goToFanSpeed(string(speed)))
	return err
}

// SetTilt sets a tiltable cover's tilt angle (0-100).
func (sb *SmartBridge) SetTilt(ctx context.Context, deviceID string, tilt int) error {
	d, ok := sb.model.GetDeviceByID(deviceID)
	if !ok {
		return fmt.Errorf("lutronleap: unknown device %q", deviceID)
	}
	if d.ZoneID == "" {
		return nil
	}
	url := fmt.Sprintf("/zone/%s/commandprocessor", d.ZoneID)
	_, err := sb.do(ctx, "CreateRequest", url, goToTilt(tilt))
	return err
}

// RaiseCover raises a shade and optimistically sets its cached level
// to 100, per §4.6's raise/lower optimism rule.
func (sb *SmartBridge) RaiseCover(ctx context.Context, deviceID string) error {
	if err := sb.coverCommand(ctx, deviceID, "Raise"); err != nil {
		return err
	}
	sb.model.SetDeviceLevel(deviceID, 100)
	return nil
}

// LowerCover lowers a shade and optimistically sets its cached level
// to 0.
func (sb *SmartBridge) LowerCover(ctx context.Context, deviceID string) error {
	if err := sb.coverCommand(ctx, deviceID, "Lower"); err != nil {
		return err
	}
	sb.model.SetDeviceLevel(deviceID, 0)
	return nil
}

// StopCover stops a shade in motion. No optimistic level update: the
// resting position is unknown until the bridge reports it.
func (sb *SmartBridge) StopCover(ctx context.Context, deviceID string) error {
	return sb.coverCommand(ctx, deviceID, "Stop")
}

func (sb *SmartBridge) coverCommand(ctx context.Context, deviceID, commandType string) error {
	d, ok := sb.model.GetDeviceByID(deviceID)
	if !ok {
		return fmt.Errorf("lutronleap: unknown device %q", deviceID)
	}
	if d.ZoneID == "" {
		return fmt.Errorf("lutronleap: device %q has no zone", deviceID)
	}
	url := fmt.Sprintf("/zone/%s/commandprocessor", d.ZoneID)
	_, err := sb.do(ctx, "CreateRequest", url, simpleCommand(commandType))
	return err
}

// ActivateScene presses and releases a virtual button representing a
// programmed scene.
func (sb *SmartBridge) ActivateScene(ctx context.Context, sceneID string) error {
	if _, ok := sb.model.GetSceneByID(sceneID); !ok {
		return fmt.Errorf("lutronleap: unknown scene %q", sceneID)
	}
	url := fmt.Sprintf("/virtualbutton/%s/commandprocessor", sceneID)
	_, err := sb.do(ctx, "CreateRequest", url, simpleCommand("PressAndRelease"))
	return err
}

// TapButton presses and releases a keypad button, after verifying the
// button actually belongs to the given keypad and group — this guards
// against a caller passing a typo'd or mismatched id triple.
func (sb *SmartBridge) TapButton(ctx context.Context, keypadID, groupID, buttonID string) error {
	var found bool
	for _, b := range sb.model.GetButtonsByGroup(groupID) {
		if b.ID == buttonID && b.ParentDeviceID == keypadID {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("lutronleap: button %q not found under keypad %q group %q", buttonID, keypadID, groupID)
	}

	url := fmt.Sprintf("/button/%s/commandprocessor", buttonID)
	_, err := sb.do(ctx, "CreateRequest", url, simpleCommand("PressAndRelease"))
	return err
}

// SetLEDValue sets an indicator LED's on/off state directly.
func (sb *SmartBridge) SetLEDValue(ctx context.Context, ledID string, on bool) error {
	state := "Off"
	if on {
		state = "On"
	}
	url := fmt.Sprintf("/led/%s/status", ledID)
	body := ledStatusUpdate{LEDStatus: ledStatusState{State: state}}
	_, err := sb.do(ctx, "UpdateRequest", url, body)
	return err
}

// TurnLEDOn is SetLEDValue(ledID, true).
func (sb *SmartBridge) TurnLEDOn(ctx context.Context, ledID string) error {
	return sb.SetLEDValue(ctx, ledID, true)
}

// TurnLEDOff is SetLEDValue(ledID, false).
func (sb *SmartBridge) TurnLEDOff(ctx context.Context, ledID string) error {
	return sb.SetLEDValue(ctx, ledID, false)
}

// IsOn reports whether a device is on: level greater than zero, or a
// non-Off fan speed, per §4.6.
func (sb *SmartBridge) IsOn(deviceID string) bool {
	d, ok := sb.model.GetDeviceByID(deviceID)
	if !ok {
		return false
	}
	if d.CurrentLevel > 0 {
		return true
	}
	return d.FanSpeed != nil && *d.FanSpeed != bridgemodel.FanOff
}

// --- §6.3 accessors ---

func (sb *SmartBridge) GetDevices() []*bridgemodel.Device { return sb.model.GetDevices() }

func (sb *SmartBridge) GetDevicesByDomain(domain bridgemodel.Domain) []*bridgemodel.Device {
	return sb.model.GetDevicesByDomain(domain)
}

func (sb *SmartBridge) GetDevicesByType(deviceType string) []*bridgemodel.Device {
	return sb.model.GetDevicesByType(deviceType)
}

func (sb *SmartBridge) GetDevicesByTypes(deviceTypes []string) []*bridgemodel.Device {
	return sb.model.GetDevicesByTypes(deviceTypes)
}

func (sb *SmartBridge) GetDeviceByID(id string) (*bridgemodel.Device, bool) {
	return sb.model.GetDeviceByID(id)
}

func (sb *SmartBridge) GetDeviceByZoneID(zoneID string) (*bridgemodel.Device, bool) {
	return sb.model.GetDeviceByZoneID(zoneID)
}

func (sb *SmartBridge) GetScenes() []*bridgemodel.Scene { return sb.model.GetScenes() }

func (sb *SmartBridge) GetSceneByID(id string) (*bridgemodel.Scene, bool) {
	return sb.model.GetSceneByID(id)
}

// --- subscriptions ---

func (sb *SmartBridge) AddSubscriber(deviceID string, cb events.DeviceCallback) {
	sb.router.AddSubscriber(deviceID, cb)
}

func (sb *SmartBridge) AddButtonSubscriber(buttonID string, cb events.ButtonCallback) {
	sb.router.AddButtonSubscriber(buttonID, cb)
}

func (sb *SmartBridge) AddOccupancySubscriber(groupID string, cb events.OccupancyCallback) {
	sb.router.AddOccupancySubscriber(groupID, cb)
}
