package session

import (
	"errors"
	"path/filepath"
	"testing"
)

func TestNewTLSConnector_MissingCertFile(t *testing.T) {
	dir := t.TempDir()
	_, err := NewTLSConnector("bridge.local", 8081,
		filepath.Join(dir, "missing-cert.pem"),
		filepath.Join(dir, "missing-key.pem"),
		filepath.Join(dir, "missing-ca.pem"),
	)
	if err == nil {
		t.Fatal("expected error for missing certificate files")
	}
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected *ConfigError, got %T: %v", err, err)
	}
}

func TestNewTLSConnector_EmptyHost(t *testing.T) {
	_, err := NewTLSConnector("", 8081, "cert.pem", "key.pem", "ca.pem")
	if err == nil {
		t.Fatal("expected error for empty host")
	}
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected *ConfigError, got %T: %v", err, err)
	}
}
