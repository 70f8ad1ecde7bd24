// Package session owns the lifecycle of one LEAP connection at a
// time: establishing the mutually-authenticated TLS stream, wrapping
// it in a leap.Protocol, running the bootstrap hook to repopulate the
// bridge model, pinging for liveness, and reconnecting with a fixed
// delay on any failure. Callers interact through Supervisor; nothing
// outside this package touches a net.Conn or tls.Conn directly.
package session
