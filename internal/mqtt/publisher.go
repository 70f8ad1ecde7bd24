package mqtt

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/eclipse/paho.golang/autopaho"
	"github.com/eclipse/paho.golang/paho"
	"github.com/nugget/leapctl/internal/bridgemodel"
	"github.com/nugget/leapctl/internal/config"
	"github.com/nugget/leapctl/internal/events"
	"github.com/nugget/leapctl/internal/lutronleap"
)

// Bridge is the subset of *lutronleap.SmartBridge the publisher needs.
// Defined as an interface so tests can supply a fake rather than a
// live LEAP session.
type Bridge interface {
	GetDevices() []*bridgemodel.Device
	GetScenes() []*bridgemodel.Scene
	SetValue(ctx context.Context, deviceID string, level int, fadeTime *time.Duration) error
	SetFan(ctx context.Context, deviceID string, speed bridgemodel.FanSpeed) error
	RaiseCover(ctx context.Context, deviceID string) error
	LowerCover(ctx context.Context, deviceID string) error
	StopCover(ctx context.Context, deviceID string) error
	ActivateScene(ctx context.Context, sceneID string) error
	AddSubscriber(deviceID string, cb events.DeviceCallback)
}

var _ Bridge = (*lutronleap.SmartBridge)(nil)

// Publisher manages the MQTT connection, publishes HA discovery
// config messages for every light/cover device and scene found on the
// bridge, relays HA command topics back into the bridge, and
// republishes device state whenever the bridge reports a change.
type Publisher struct {
	cfg         config.MQTTConfig
	instanceID  string
	device      DeviceInfo
	bridge      Bridge
	logger      *slog.Logger
	cm          *autopaho.ConnectionManager
	rateLimiter *messageRateLimiter
}

// New creates a Publisher but does not connect. Call [Publisher.Start]
// to begin the connection, discovery, and command-relay loop.
func New(cfg config.MQTTConfig, instanceID string, bridge Bridge, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		cfg:        cfg,
		instanceID: instanceID,
		device:     NewDeviceInfo(instanceID, cfg.DeviceName),
		bridge:     bridge,
		logger:     logger,
	}
}

// Start connects to the MQTT broker. It blocks until ctx is
// cancelled. On every (re-)connect it publishes discovery configs for
// all known devices and scenes, a birth message, and subscribes to
// every entity's command topic.
func (p *Publisher) Start(ctx context.Context) error {
	brokerURL, err := url.Parse(p.cfg.Broker)
	if err != nil {
		return fmt.Errorf("parse mqtt broker URL: %w", err)
	}

	availTopic := p.availabilityTopic()

	pahoCfg := autopaho.ClientConfig{
		ServerUrls:      []*url.URL{brokerURL},
		KeepAlive:       30,
		ConnectUsername: p.cfg.Username,
		ConnectPassword: []byte(p.cfg.Password),
		WillMessage: &paho.WillMessage{
			Topic:   availTopic,
			Payload: []byte("offline"),
			QoS:     1,
			Retain:  true,
		},
		OnConnectionUp: func(cm *autopaho.ConnectionManager, _ *paho.Connack) {
			p.logger.Info("mqtt connected to broker", "broker", p.cfg.Broker)
			publishCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			p.publishDiscovery(publishCtx, cm)
			p.publishAvailability(publishCtx, cm, "online")
			p.subscribeCommands(publishCtx, cm)
		},
		OnConnectError: func(err error) {
			p.logger.Warn("mqtt connection error", "error", err)
		},
		ClientConfig: paho.ClientConfig{
			ClientID: "leapctl-" + p.instanceID[:8],
		},
	}

	if brokerURL.Scheme == "mqtts" || brokerURL.Scheme == "ssl" {
		pahoCfg.TlsCfg = &tls.Config{
			MinVersion: tls.VersionTLS12,
		}
	}

	cm, err := autopaho.NewConnection(ctx, pahoCfg)
	if err != nil {
		return fmt.Errorf("mqtt connect: %w", err)
	}
	p.cm = cm

	p.rateLimiter = newMessageRateLimiter(100, time.Second, p.logger)
	go p.rateLimiter.start(ctx)

	cm.AddOnPublishReceived(func(pr autopaho.PublishReceived) (bool, error) {
		if !p.rateLimiter.allow() {
			return true, nil
		}
		func() {
			defer func() {
				if r := recover(); r != nil {
					p.logger.Error("mqtt command handler panicked",
						"topic", pr.Packet.Topic, "panic", r)
				}
			}()
			p.routeCommand(ctx, pr.Packet.Topic, pr.Packet.Payload)
		}()
		return true, nil
	})

	p.subscribeDeviceState(ctx)

	connCtx, connCancel := context.WithTimeout(ctx, 30*time.Second)
	defer connCancel()
	if err := cm.AwaitConnection(connCtx); err != nil {
		p.logger.Warn("mqtt initial connection timed out, will retry in background", "error", err)
	}

	<-ctx.Done()
	return nil
}

// Stop gracefully disconnects by publishing an "offline" availability
// message before closing the MQTT connection.
func (p *Publisher) Stop(ctx context.Context) error {
	if p.cm == nil {
		return nil
	}
	p.publishAvailability(ctx, p.cm, "offline")
	return p.cm.Disconnect(ctx)
}

// --- Topic helpers ---

func (p *Publisher) baseTopic() string {
	return "leapctl/" + p.cfg.DeviceName
}

func (p *Publisher) availabilityTopic() string {
	return p.baseTopic() + "/availability"
}

func (p *Publisher) stateTopic(deviceID string) string {
	return p.baseTopic() + "/" + deviceID + "/state"
}

func (p *Publisher) brightnessStateTopic(deviceID string) string {
	return p.baseTopic() + "/" + deviceID + "/brightness"
}

func (p *Publisher) commandTopic(deviceID string) string {
	return p.baseTopic() + "/" + deviceID + "/set"
}

func (p *Publisher) brightnessCommandTopic(deviceID string) string {
	return p.baseTopic() + "/" + deviceID + "/brightness/set"
}

func (p *Publisher) positionCommandTopic(deviceID string) string {
	return p.baseTopic() + "/" + deviceID + "/set_position"
}

func (p *Publisher) sceneCommandTopic(sceneID string) string {
	return p.baseTopic() + "/scene/" + sceneID + "/set"
}

func (p *Publisher) discoveryTopic(component, objectID string) string {
	return p.cfg.DiscoveryPrefix + "/" + component + "/" + p.cfg.DeviceName + "/" + objectID + "/config"
}

// --- Discovery ---

func (p *Publisher) publishDiscovery(ctx context.Context, cm *autopaho.ConnectionManager) {
	avail := p.availabilityTopic()

	for _, d := range p.bridge.GetDevices() {
		switch d.Domain {
		case bridgemodel.DomainLight:
			if d.ZoneID == "" {
				continue
			}
			cfg := LightConfig{
				Name:                   d.Name,
				ObjectID:               d.ID,
				HasEntityName:          true,
				UniqueID:               p.instanceID + "_" + d.ID,
				StateTopic:             p.stateTopic(d.ID),
				CommandTopic:           p.commandTopic(d.ID),
				BrightnessStateTopic:   p.brightnessStateTopic(d.ID),
				BrightnessCommandTopic: p.brightnessCommandTopic(d.ID),
				BrightnessScale:        100,
				AvailabilityTopic:      avail,
				Device:                 p.device,
				PayloadOn:              "ON",
				PayloadOff:             "OFF",
			}
			p.publishEntityDiscovery(ctx, cm, "light", d.ID, cfg)
		case bridgemodel.DomainCover:
			cfg := CoverConfig{
				Name:              d.Name,
				ObjectID:          d.ID,
				HasEntityName:     true,
				UniqueID:          p.instanceID + "_" + d.ID,
				CommandTopic:      p.commandTopic(d.ID),
				SetPositionTopic:  p.positionCommandTopic(d.ID),
				AvailabilityTopic: avail,
				Device:            p.device,
				PayloadOpen:       "OPEN",
				PayloadClose:      "CLOSE",
				PayloadStop:       "STOP",
			}
			p.publishEntityDiscovery(ctx, cm, "cover", d.ID, cfg)
		}
	}

	for _, s := range p.bridge.GetScenes() {
		cfg := SceneConfig{
			Name:              s.Name,
			ObjectID:          s.ID,
			HasEntityName:     true,
			UniqueID:          p.instanceID + "_scene_" + s.ID,
			CommandTopic:      p.sceneCommandTopic(s.ID),
			AvailabilityTopic: avail,
			Device:            p.device,
			PayloadOn:         "ACTIVATE",
		}
		p.publishEntityDiscovery(ctx, cm, "scene", s.ID, cfg)
	}
}

func (p *Publisher) publishEntityDiscovery(ctx context.Context, cm *autopaho.ConnectionManager, component, objectID string, cfg any) {
	payload, err := json.Marshal(cfg)
	if err != nil {
		p.logger.Error("mqtt marshal discovery payload", "object_id", objectID, "error", err)
		return
	}

	topic := p.discoveryTopic(component, objectID)
	if _, err := cm.Publish(ctx, &paho.Publish{
		Topic:   topic,
		Payload: payload,
		QoS:     1,
		Retain:  true,
	}); err != nil {
		p.logger.Warn("mqtt discovery publish failed", "object_id", objectID, "topic", topic, "error", err)
	} else {
		p.logger.Debug("mqtt discovery published", "object_id", objectID, "topic", topic)
	}
}

func (p *Publisher) publishAvailability(ctx context.Context, cm *autopaho.ConnectionManager, status string) {
	if _, err := cm.Publish(ctx, &paho.Publish{
		Topic:   p.availabilityTopic(),
		Payload: []byte(status),
		QoS:     1,
		Retain:  true,
	}); err != nil {
		p.logger.Warn("mqtt availability publish failed", "status", status, "error", err)
	} else {
		p.logger.Info("mqtt availability published", "status", status)
	}
}

// --- State republishing ---

// subscribeDeviceState registers a callback with the bridge for every
// known device so that LEAP-side state changes (from a physical
// keypad press, another controller, or our own commands) republish
// to MQTT immediately rather than waiting for a poll.
func (p *Publisher) subscribeDeviceState(ctx context.Context) {
	for _, d := range p.bridge.GetDevices() {
		p.bridge.AddSubscriber(d.ID, func(upd *bridgemodel.Device) {
			p.publishDeviceState(ctx, upd)
		})
	}
}

func (p *Publisher) publishDeviceState(ctx context.Context, d *bridgemodel.Device) {
	if p.cm == nil {
		return
	}

	state := "OFF"
	if d.CurrentLevel > 0 {
		state = "ON"
	}
	if _, err := p.cm.Publish(ctx, &paho.Publish{
		Topic:   p.stateTopic(d.ID),
		Payload: []byte(state),
		QoS:     0,
		Retain:  true,
	}); err != nil {
		p.logger.Debug("mqtt state publish failed", "device_id", d.ID, "error", err)
	}

	if d.Domain == bridgemodel.DomainLight && d.CurrentLevel >= 0 {
		if _, err := p.cm.Publish(ctx, &paho.Publish{
			Topic:   p.brightnessStateTopic(d.ID),
			Payload: []byte(strconv.Itoa(d.CurrentLevel)),
			QoS:     0,
			Retain:  true,
		}); err != nil {
			p.logger.Debug("mqtt brightness publish failed", "device_id", d.ID, "error", err)
		}
	}
}

// --- Command routing ---

// subscribeCommands sends a wildcard SUBSCRIBE covering every entity's
// command topic. Called on every (re-)connect because autopaho does
// not automatically resubscribe after reconnection.
func (p *Publisher) subscribeCommands(ctx context.Context, cm *autopaho.ConnectionManager) {
	filter := p.baseTopic() + "/#"

	if _, err := cm.Subscribe(ctx, &paho.Subscribe{
		Subscriptions: []paho.SubscribeOptions{{Topic: filter, QoS: 0}},
	}); err != nil {
		p.logger.Error("mqtt subscribe failed", "error", err, "filter", filter)
	} else {
		p.logger.Info("mqtt subscribed to command topics", "filter", filter)
	}
}

// routeCommand dispatches an inbound MQTT message on a leapctl command
// topic to the corresponding SmartBridge operation. Topics that don't
// match a known command suffix fall through to defaultMessageHandler
// for debug logging.
func (p *Publisher) routeCommand(ctx context.Context, topic string, payload []byte) {
	base := p.baseTopic()
	if !strings.HasPrefix(topic, base+"/") {
		return
	}
	rest := strings.TrimPrefix(topic, base+"/")

	switch {
	case strings.HasPrefix(rest, "scene/") && strings.HasSuffix(rest, "/set"):
		sceneID := strings.TrimSuffix(strings.TrimPrefix(rest, "scene/"), "/set")
		if err := p.bridge.ActivateScene(ctx, sceneID); err != nil {
			p.logger.Warn("mqtt activate scene failed", "scene_id", sceneID, "error", err)
		}
	case strings.HasSuffix(rest, "/brightness/set"):
		deviceID := strings.TrimSuffix(rest, "/brightness/set")
		level, err := strconv.Atoi(strings.TrimSpace(string(payload)))
		if err != nil {
			p.logger.Warn("mqtt brightness command not an integer", "device_id", deviceID, "payload", string(payload))
			return
		}
		if err := p.bridge.SetValue(ctx, deviceID, level, nil); err != nil {
			p.logger.Warn("mqtt set brightness failed", "device_id", deviceID, "error", err)
		}
	case strings.HasSuffix(rest, "/set_position"):
		deviceID := strings.TrimSuffix(rest, "/set_position")
		p.logger.Debug("mqtt cover position commands are not individually addressable on LEAP; ignoring", "device_id", deviceID)
	case strings.HasSuffix(rest, "/set"):
		deviceID := strings.TrimSuffix(rest, "/set")
		p.routeSimpleCommand(ctx, deviceID, strings.ToUpper(strings.TrimSpace(string(payload))))
	default:
		defaultMessageHandler(p.logger)(topic, payload)
	}
}

func (p *Publisher) routeSimpleCommand(ctx context.Context, deviceID, payload string) {
	switch payload {
	case "ON":
		if err := p.bridge.SetValue(ctx, deviceID, 100, nil); err != nil {
			p.logger.Warn("mqtt turn on failed", "device_id", deviceID, "error", err)
		}
	case "OFF":
		if err := p.bridge.SetValue(ctx, deviceID, 0, nil); err != nil {
			p.logger.Warn("mqtt turn off failed", "device_id", deviceID, "error", err)
		}
	case "OPEN":
		if err := p.bridge.RaiseCover(ctx, deviceID); err != nil {
			p.logger.Warn("mqtt open cover failed", "device_id", deviceID, "error", err)
		}
	case "CLOSE":
		if err := p.bridge.LowerCover(ctx, deviceID); err != nil {
			p.logger.Warn("mqtt close cover failed", "device_id", deviceID, "error", err)
		}
	case "STOP":
		if err := p.bridge.StopCover(ctx, deviceID); err != nil {
			p.logger.Warn("mqtt stop cover failed", "device_id", deviceID, "error", err)
		}
	default:
		p.logger.Warn("mqtt unrecognized command payload", "device_id", deviceID, "payload", payload)
	}
}
