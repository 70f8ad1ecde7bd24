// Package leap implements the wire-level LEAP protocol: a CRLF-framed
// JSON-per-line stream with per-request tag multiplexing. It owns one
// bidirectional stream for its lifetime and routes inbound frames to
// pending request waiters, tagged subscriptions, or unsolicited
// handlers. It has no knowledge of bridge topology or device
// semantics — those live in the bridgemodel, topology, and lutronleap
// packages built on top of it.
package leap
