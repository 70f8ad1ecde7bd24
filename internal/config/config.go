// Package config handles leapctl configuration loading.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultSearchPaths returns the config file search order.
// An explicit path (from -config flag) is checked first.
// Then: ./config.yaml, ~/.config/leapctl/config.yaml,
// /config/config.yaml (container convention), /etc/leapctl/config.yaml.
func DefaultSearchPaths() []string {
	paths := []string{"config.yaml"}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "leapctl", "config.yaml"))
	}

	paths = append(paths, "/config/config.yaml") // Container convention
	paths = append(paths, "/etc/leapctl/config.yaml")
	return paths
}

// searchPathsFunc is a var so tests can override the search order
// without touching real config files on the developer/deploy machine.
var searchPathsFunc = DefaultSearchPaths

// FindConfig locates a config file. If explicit is non-empty, it must exist.
// Otherwise, searches searchPathsFunc() and returns the first that exists.
// Returns the path found, or an error if nothing was found.
func FindConfig(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	paths := searchPathsFunc()
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", fmt.Errorf("no config file found (searched: %v)", paths)
}

// Config holds all leapctl configuration: one bridge connection plus
// session tuning.
type Config struct {
	Bridge   BridgeConfig   `yaml:"bridge"`
	Session  SessionConfig  `yaml:"session"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	Web      WebConfig      `yaml:"web"`
	LogLevel string         `yaml:"log_level"`
}

// WebConfig configures the optional local dashboard. Addr is left
// empty by default, which disables the dashboard entirely.
type WebConfig struct {
	Addr string `yaml:"addr"`
}

// Enabled reports whether the dashboard HTTP server should be started.
func (w WebConfig) Enabled() bool {
	return w.Addr != ""
}

// MQTTConfig configures the optional Home Assistant MQTT discovery
// bridge. Broker is left empty by default, which disables the bridge
// entirely; set it to enable publishing discovered devices as HA
// entities.
type MQTTConfig struct {
	Broker             string `yaml:"broker"`
	Username           string `yaml:"username"`
	Password           string `yaml:"password"`
	DeviceName         string `yaml:"device_name"`
	DiscoveryPrefix    string `yaml:"discovery_prefix"`
	PublishIntervalSec int    `yaml:"publish_interval_sec"`
}

// Enabled reports whether the MQTT bridge should be started.
func (m MQTTConfig) Enabled() bool {
	return m.Broker != ""
}

// BridgeConfig holds the connection settings for one Lutron bridge.
type BridgeConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
	CAFile   string `yaml:"ca_file"`
}

// SessionConfig holds the session supervisor's tuning knobs. All
// durations are specified in seconds in YAML and default to the
// spec's fixed values when zero.
type SessionConfig struct {
	ConnectTimeoutSec int `yaml:"connect_timeout_sec"`
	RequestTimeoutSec int `yaml:"request_timeout_sec"`
	PingIntervalSec   int `yaml:"ping_interval_sec"`
	ReconnectDelaySec int `yaml:"reconnect_delay_sec"`
}

// ConnectTimeout returns the configured connect timeout as a Duration.
func (s SessionConfig) ConnectTimeout() time.Duration {
	return time.Duration(s.ConnectTimeoutSec) * time.Second
}

// RequestTimeout returns the configured request timeout as a Duration.
func (s SessionConfig) RequestTimeout() time.Duration {
	return time.Duration(s.RequestTimeoutSec) * time.Second
}

// PingInterval returns the configured ping interval as a Duration.
func (s SessionConfig) PingInterval() time.Duration {
	return time.Duration(s.PingIntervalSec) * time.Second
}

// ReconnectDelay returns the configured reconnect delay as a Duration.
func (s SessionConfig) ReconnectDelay() time.Duration {
	return time.Duration(s.ReconnectDelaySec) * time.Second
}

// Load reads configuration from a YAML file, expands environment
// variables, applies defaults for any unset fields, and validates
// the result. After Load returns successfully, all fields are usable
// without additional nil/empty checks.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables (e.g., ${HOME}, ${LEAPCTL_CA_FILE}).
	// This is a convenience for container deployments; the recommended
	// approach is to put values directly in the config file.
	expanded := os.ExpandEnv(string(data))

	cfg := &Config{}
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// applyDefaults fills in zero-value fields with the spec's fixed
// session timings. Called automatically by Load. After this, callers
// can read any field without checking for zero values.
func (c *Config) applyDefaults() {
	if c.Bridge.Port == 0 {
		c.Bridge.Port = 8081
	}
	if c.Session.ConnectTimeoutSec == 0 {
		c.Session.ConnectTimeoutSec = 5
	}
	if c.Session.RequestTimeoutSec == 0 {
		c.Session.RequestTimeoutSec = 5
	}
	if c.Session.PingIntervalSec == 0 {
		c.Session.PingIntervalSec = 60
	}
	if c.Session.ReconnectDelaySec == 0 {
		c.Session.ReconnectDelaySec = 2
	}
	if c.MQTT.DeviceName == "" {
		c.MQTT.DeviceName = "leapctl"
	}
	if c.MQTT.DiscoveryPrefix == "" {
		c.MQTT.DiscoveryPrefix = "homeassistant"
	}
	if c.MQTT.PublishIntervalSec == 0 {
		c.MQTT.PublishIntervalSec = 60
	}
}

// Validate checks that the configuration is internally consistent.
// It runs after applyDefaults, so it can assume defaults are populated.
// Returns an error describing the first problem found, or nil.
func (c *Config) Validate() error {
	if c.Bridge.Host == "" {
		return fmt.Errorf("bridge.host is required")
	}
	if c.Bridge.Port < 1 || c.Bridge.Port > 65535 {
		return fmt.Errorf("bridge.port %d out of range (1-65535)", c.Bridge.Port)
	}
	if c.Bridge.CertFile == "" || c.Bridge.KeyFile == "" || c.Bridge.CAFile == "" {
		return fmt.Errorf("bridge.cert_file, bridge.key_file, and bridge.ca_file are all required")
	}
	if c.LogLevel != "" {
		if _, err := ParseLogLevel(c.LogLevel); err != nil {
			return err
		}
	}
	return nil
}

// Default returns a default configuration pointed at a bridge reachable
// at 192.168.1.1 with certificates in the current directory. It exists
// for tests and quick local experimentation; real deployments should
// supply a config file.
func Default() *Config {
	cfg := &Config{
		Bridge: BridgeConfig{
			Host:     "192.168.1.1",
			CertFile: "caseta.crt",
			KeyFile:  "caseta.key",
			CAFile:   "caseta-bridge.crt",
		},
	}
	cfg.applyDefaults()
	return cfg
}
