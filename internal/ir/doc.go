// Package ir provides the operation graph types shared by every blocksched
// package.
//
// A Graph is an arena of Nodes addressed by NodeID. Nodes are appended in
// program order, so insertion order is always a valid topological order.
// Per-wire instruction sequences are maintained on every append, which gives
// constant-time predecessor/successor queries along a wire.
//
// ir imports nothing internal. All other internal packages import ir.
//
// Key design constraints:
//   - Node identity is the pair (graph, NodeID); see NodeRef
//   - Times are int64 ticks of the graph's time unit, never floats
//   - Operation kinds form a closed set (Kind); unknown kinds are rejected
//   - Graphs are never mutated by scheduling or padding passes; padding
//     builds a new Graph
package ir
