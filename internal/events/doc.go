// Package events translates inbound LEAP payloads into bridgemodel
// mutations and per-entity subscriber callbacks. Once bootstrap has
// finished it is the only code that mutates a bridgemodel.Model apart
// from the façade's optimistic cover level update; everything else in
// the module only reads the model through its accessor methods, per §5
// of the protocol design.
package events
