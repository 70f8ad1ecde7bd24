package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFindConfig_Explicit(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.yaml")
	os.WriteFile(path, []byte("bridge:\n  host: 192.168.1.1\n"), 0600)

	got, err := FindConfig(path)
	if err != nil {
		t.Fatalf("FindConfig(%q) error: %v", path, err)
	}
	if got != path {
		t.Errorf("FindConfig(%q) = %q, want %q", path, got, path)
	}
}

func TestFindConfig_ExplicitMissing(t *testing.T) {
	_, err := FindConfig("/nonexistent/config.yaml")
	if err == nil {
		t.Fatal("FindConfig with missing explicit path should error")
	}
}

func TestFindConfig_SearchPath(t *testing.T) {
	dir := t.TempDir()
	orig := searchPathsFunc
	searchPathsFunc = func() []string {
		return []string{filepath.Join(dir, "config.yaml")}
	}
	defer func() { searchPathsFunc = orig }()

	_, err := FindConfig("")
	if err == nil {
		t.Fatal("FindConfig(\"\") with no config files should error")
	}
}

func TestFindConfig_CWD(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	os.WriteFile(path, []byte("bridge:\n  host: 192.168.1.1\n"), 0600)

	orig, _ := os.Getwd()
	os.Chdir(dir)
	defer os.Chdir(orig)

	got, err := FindConfig("")
	if err != nil {
		t.Fatalf("FindConfig(\"\") error: %v", err)
	}
	if got != "config.yaml" {
		t.Errorf("FindConfig(\"\") = %q, want %q", got, "config.yaml")
	}
}

func validConfigYAML() string {
	return "bridge:\n" +
		"  host: 192.168.1.1\n" +
		"  cert_file: caseta.crt\n" +
		"  key_file: caseta.key\n" +
		"  ca_file: caseta-bridge.crt\n"
}

func TestLoad_ExpandsEnvVars(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	os.WriteFile(path, []byte("bridge:\n  host: ${LEAPCTL_TEST_HOST}\n  cert_file: a\n  key_file: b\n  ca_file: c\n"), 0600)
	os.Setenv("LEAPCTL_TEST_HOST", "10.0.0.5")
	defer os.Unsetenv("LEAPCTL_TEST_HOST")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Bridge.Host != "10.0.0.5" {
		t.Errorf("host = %q, want %q", cfg.Bridge.Host, "10.0.0.5")
	}
}

func TestLoad_AppliesSessionDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	os.WriteFile(path, []byte(validConfigYAML()), 0600)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Session.ConnectTimeoutSec != 5 {
		t.Errorf("connect_timeout_sec = %d, want 5", cfg.Session.ConnectTimeoutSec)
	}
	if cfg.Session.RequestTimeoutSec != 5 {
		t.Errorf("request_timeout_sec = %d, want 5", cfg.Session.RequestTimeoutSec)
	}
	if cfg.Session.PingIntervalSec != 60 {
		t.Errorf("ping_interval_sec = %d, want 60", cfg.Session.PingIntervalSec)
	}
	if cfg.Session.ReconnectDelaySec != 2 {
		t.Errorf("reconnect_delay_sec = %d, want 2", cfg.Session.ReconnectDelaySec)
	}
	if cfg.Bridge.Port != 8081 {
		t.Errorf("bridge.port = %d, want 8081", cfg.Bridge.Port)
	}
}

func TestLoad_CustomSessionTimings(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	os.WriteFile(path, []byte(validConfigYAML()+"session:\n  ping_interval_sec: 30\n"), 0600)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Session.PingInterval().Seconds() != 30 {
		t.Errorf("PingInterval() = %v, want 30s", cfg.Session.PingInterval())
	}
}

func TestLoad_AppliesMQTTDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	os.WriteFile(path, []byte(validConfigYAML()), 0600)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.MQTT.Enabled() {
		t.Error("MQTT should be disabled when broker is unset")
	}
	if cfg.MQTT.DeviceName != "leapctl" {
		t.Errorf("mqtt.device_name = %q, want %q", cfg.MQTT.DeviceName, "leapctl")
	}
	if cfg.MQTT.DiscoveryPrefix != "homeassistant" {
		t.Errorf("mqtt.discovery_prefix = %q, want %q", cfg.MQTT.DiscoveryPrefix, "homeassistant")
	}
}

func TestWebConfig_EnabledRequiresAddr(t *testing.T) {
	var w WebConfig
	if w.Enabled() {
		t.Error("WebConfig with empty addr should be disabled")
	}
	w.Addr = ":8080"
	if !w.Enabled() {
		t.Error("WebConfig with addr set should be enabled")
	}
}

func TestValidate_MissingHost(t *testing.T) {
	cfg := Default()
	cfg.Bridge.Host = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing bridge.host")
	}
}

func TestValidate_PortOutOfRange(t *testing.T) {
	cfg := Default()
	cfg.Bridge.Port = 70000
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for out-of-range port")
	}
}

func TestValidate_MissingCertificates(t *testing.T) {
	cfg := Default()
	cfg.Bridge.CertFile = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing cert_file")
	}
}

func TestValidate_BadLogLevel(t *testing.T) {
	cfg := Default()
	cfg.LogLevel = "not-a-level"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for invalid log level")
	}
}

func TestValidate_DefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default() should validate cleanly, got: %v", err)
	}
}
