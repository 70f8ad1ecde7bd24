// Package topology runs the bootstrap sequence that populates a
// bridgemodel.Model on every successful connection: probing the
// bridge family (Caseta vs. RadioRA3/HomeWorks QSX) and then issuing
// that family's ordered sequence of reads and subscribes, per §4.4.
package topology
