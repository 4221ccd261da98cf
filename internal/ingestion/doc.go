// Package ingestion is the entry point of the engine: it routes telemetry
// events to the lineage, temporal and mapping stages and keeps
// pipeline-wide statistics.
//
// Routing:
//   - Spans go to the lineage builder and the entity mapper
//   - Metrics go to the temporal builder
//   - Logs are counted and acknowledged only
//
// Each stage can be switched off through Config. Ingest never fails the
// caller: validation and mapping problems are returned in the
// ProcessingResult, and a batch always yields one result per event.
//
// Pipeline also implements telemetry.Consumer, so anything that accepts a
// generic telemetry sink can be handed a pipeline.
//
// Example Usage:
//
//	p := ingestion.New(ingestion.DefaultConfig()).WithLogger(logger)
//	go p.Run(ctx, nil)
//	result := p.Ingest(span)
//	chain, _ := p.GetLineageChain(span.TraceID)
package ingestion
