// Package durations provides instruction duration lookup for the scheduling
// passes.
//
// A Table maps (instruction name, wires, parameters) to a length in ticks
// ("dt"). Lookups fall back from the most specific key to the name alone.
//
// Dynamic-circuit backends report measurement lengths that are short of what
// the controller needs between a readout and the next block, so Table.Update
// patches them by default:
//   - measure entries are extended by MeasurePatchCycles
//   - reset entries follow the measure entry on the same key, or are
//     extended by MeasurePatchCycles when no such entry exists
//
// Only "dt" entries can be patched. Entries in seconds are converted with the
// table's tick length at lookup time.
package durations
