// Package store provides SQLite-backed history of scheduling runs.
//
// Every run records:
//   - Identity: run id, logical seq, circuit name
//   - Fingerprints: input graph, padded graph and schedule hashes
//   - Configuration: policy name and its canonical JSON options
//   - Source: the input circuit document, so a run can be replayed
//   - Slots: the (block, start) of every node of the padded output
//
// # Ordering
//
// All ordering uses seq INTEGER (logical clock), never timestamps. Listing
// queries order by seq, then id COLLATE BINARY, so results are identical
// across machines and replays.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
