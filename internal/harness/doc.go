// Package harness runs scheduling scenarios as executable contract tests.
//
// A scenario names a circuit document, a padding policy and assertions on
// the padded result. The harness runs it through the engine against a fresh
// in-memory store and checks every assertion.
//
// # Scenario Format
//
//	name: ghz4_delay
//	description: "Delay padding of a GHZ ladder"
//	circuit: ../circuits/ghz4.yaml
//	policy:
//	  name: delay
//	assertions:
//	  - type: wire_sequence
//	    qubit: 3
//	    ops: ["delay[950]", "cx@2,3", "barrier@0,1,2,3"]
//	  - type: slot
//	    label: cx@1,2
//	    block: 0
//	    start: 750
//	  - type: replay
//
// The circuit path is relative to the scenario file. A scenario that sets
// expect_error instead passes when the run fails with that error code.
//
// # Assertion Types
//
//   - wire_sequence: the labels on one qubit of the padded graph, in order
//   - slot: the (block, start) of the nth node with a label
//   - block_count: the number of execution blocks of the root graph
//   - node_count: the number of padded nodes with a kind and/or label
//   - stored: the run is in the store with the result's fingerprints
//   - replay: replaying the stored run reproduces every fingerprint
//
// Labels are the compact timeline labels of render.Label.
//
// # Deterministic Testing
//
// Run ids come from testutil.SequentialIDs seeded with the scenario name and
// seqs from testutil.RunClock, so golden snapshots are byte-stable. Golden
// files live in testdata/golden; regenerate them with
//
//	go test ./internal/harness -update
package harness
