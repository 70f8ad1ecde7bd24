package pairing

import (
	"crypto/ecdsa"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"

	"software.sslmate.com/src/go-pkcs12"
)

// Bundle holds the PEM-encoded materials extracted from a LAP pairing
// export: the client certificate and private key the bridge issued to
// this caller, plus the bridge's own CA certificate.
type Bundle struct {
	CertPEM []byte
	KeyPEM  []byte
	CAPEM   []byte
}

// LoadP12 decodes a PKCS#12 bundle (the .p12 file a Caseta or RA3
// bridge hands back at the end of app-assisted pairing) into PEM
// materials suitable for session.NewTLSConnector. password is usually
// empty; Lutron's own export tooling does not set one.
func LoadP12(path, password string) (*Bundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("pairing: read %s: %w", path, err)
	}
	return DecodeP12(data, password)
}

// DecodeP12 decodes raw PKCS#12 bytes into a Bundle.
func DecodeP12(data []byte, password string) (*Bundle, error) {
	key, cert, caCerts, err := pkcs12.DecodeChain(data, password)
	if err != nil {
		return nil, fmt.Errorf("pairing: decode PKCS#12 bundle: %w", err)
	}
	if cert == nil {
		return nil, fmt.Errorf("pairing: bundle contains no client certificate")
	}
	if len(caCerts) == 0 {
		return nil, fmt.Errorf("pairing: bundle contains no CA certificate")
	}

	keyPEM, err := encodePrivateKeyPEM(key)
	if err != nil {
		return nil, fmt.Errorf("pairing: encode private key: %w", err)
	}

	b := &Bundle{
		CertPEM: encodeCertPEM(cert),
		KeyPEM:  keyPEM,
	}
	for _, ca := range caCerts {
		b.CAPEM = append(b.CAPEM, encodeCertPEM(ca)...)
	}
	return b, nil
}

// WriteFiles writes the bundle's three PEM materials to separate
// files, the layout session.NewTLSConnector and the rest of leapctl's
// configuration expect.
func (b *Bundle) WriteFiles(certFile, keyFile, caFile string) error {
	if err := os.WriteFile(certFile, b.CertPEM, 0600); err != nil {
		return fmt.Errorf("pairing: write %s: %w", certFile, err)
	}
	if err := os.WriteFile(keyFile, b.KeyPEM, 0600); err != nil {
		return fmt.Errorf("pairing: write %s: %w", keyFile, err)
	}
	if err := os.WriteFile(caFile, b.CAPEM, 0600); err != nil {
		return fmt.Errorf("pairing: write %s: %w", caFile, err)
	}
	return nil
}

func encodeCertPEM(cert *x509.Certificate) []byte {
	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: cert.Raw})
}

func encodePrivateKeyPEM(key any) ([]byte, error) {
	switch k := key.(type) {
	case *rsa.PrivateKey:
		return pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(k)}), nil
	case *ecdsa.PrivateKey:
		der, err := x509.MarshalECPrivateKey(k)
		if err != nil {
			return nil, err
		}
		return pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: der}), nil
	default:
		der, err := x509.MarshalPKCS8PrivateKey(key)
		if err != nil {
			return nil, fmt.Errorf("unsupported private key type %T: %w", key, err)
		}
		return pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}), nil
	}
}
