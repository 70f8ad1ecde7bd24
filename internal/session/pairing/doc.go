// Package pairing decodes the PKCS#12 certificate bundle produced by
// the Lutron app's LAP pairing flow into the PEM materials
// session.NewTLSConnector expects. Pairing itself — discovering the
// bridge, prompting the physical button press, downloading the
// bundle — is an external collaborator; this package only handles the
// bundle once it is already on disk.
package pairing
