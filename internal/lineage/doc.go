// Package lineage assembles per-trace causal graphs from span events.
//
// A Chain is an edge list plus a node list rather than a pointer-linked
// tree. Parent/child relationships are resolved by id at query time, so a
// child span may arrive before its parent: the ParentChild edge is recorded
// immediately and simply references a node that does not exist yet.
//
// Invariants:
//   - One chain per trace id, created on the first span of the trace
//   - A span without a parent is listed in Roots exactly once
//   - A span with a parent yields exactly one ParentChild edge
//   - The final chain does not depend on span arrival order
//
// Chains returned by the Builder are snapshots; mutating them does not
// affect the builder.
//
// Example Usage:
//
//	b := lineage.NewBuilder()
//	b.ProcessSpan(span)
//	chain, ok := b.GetChain("trace-1")
//	fmt.Println(chain.TotalDurationMs(), chain.Children(chain.Roots[0]))
package lineage
