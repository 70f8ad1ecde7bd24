// Package lutronleap is the public façade over a LEAP bridge session:
// imperative control operations, topology accessors, and subscriber
// registration, composed from internal/session, internal/bridgemodel,
// internal/events, and internal/topology.
package lutronleap
