// Package engine runs the scheduling pipeline for a circuit document and
// records each run in the store.
//
// A run is:
//  1. Build the operation graph and duration table from the document
//  2. Schedule it (passes.Scheduler)
//  3. Pad it with the configured policy (passes.Padder), unless the policy
//     is PolicyNone
//  4. Fingerprint the input graph, the padded graph and the schedule
//  5. Stamp it with a run id and a seq from the logical clock and write it,
//     with its source document, to the store
//
// # Logical Clock
//
// Runs are ordered by seq from Clock.Next(), never by wall time. An engine
// opened over an existing store continues numbering after the highest
// recorded seq.
//
// # Replay
//
// Replay re-parses the recorded source, rebuilds the policy from the
// recorded options and runs the pipeline again without recording. The run is
// reproducible when all three fingerprints match.
package engine
