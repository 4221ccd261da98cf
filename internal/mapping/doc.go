// Package mapping translates telemetry into the identifier and type
// vocabulary of the downstream graph store.
//
// The EntityMapper assigns each span id a node id exactly once and returns
// that same id on every later call, so re-ingesting a span is idempotent.
// Node types come from an ordered list of operation-name patterns; the
// first match wins and unmatched operations become "context" nodes.
//
// Edges are only mapped when both endpoints have been mapped already. An
// edge with a missing endpoint is reported in MappingResult.Errors rather
// than dropped, so callers should map a chain's nodes before its edges
// (MapLineageChain does this).
//
// EventToTelemetry goes the other way: it turns a graph event into a span
// so telemetry consumers can watch graph activity.
//
// Example Usage:
//
//	m := mapping.NewEntityMapper(mapping.DefaultConfig())
//	entity, err := m.MapSpan(span)
//	result := m.MapLineageChain(chain)
//	for _, e := range result.Errors {
//	    log.Println(e)
//	}
package mapping
