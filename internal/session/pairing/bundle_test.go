package pairing

import (
	"testing"
)

func TestDecodeP12_RejectsGarbage(t *testing.T) {
	_, err := DecodeP12([]byte("not a pkcs12 bundle"), "")
	if err == nil {
		t.Fatal("DecodeP12 with garbage input should error")
	}
}

func TestDecodeP12_RejectsEmpty(t *testing.T) {
	_, err := DecodeP12(nil, "")
	if err == nil {
		t.Fatal("DecodeP12 with empty input should error")
	}
}

func TestLoadP12_MissingFile(t *testing.T) {
	_, err := LoadP12("/nonexistent/bundle.p12", "")
	if err == nil {
		t.Fatal("LoadP12 with missing file should error")
	}
}
