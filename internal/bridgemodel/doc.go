// Package bridgemodel holds the in-memory representation of a Lutron
// bridge's topology: areas, devices, buttons, LEDs, scenes, and
// occupancy groups, plus the cross-indexes that let the event router
// and façade resolve one entity from another. Model data is built by
// the topology loader during bootstrap and mutated afterward by the
// event router and by the façade's optimistic cover level update;
// every other caller sees it through read-only accessor methods.
package bridgemodel
