package ingestion

import (
	"sync/atomic"

	"github.com/LLM-Dev-Ops/memory-graph-sub000/internal/telemetry"
)

// Stats are pipeline-wide counters. They only ever grow until ResetStats.
type Stats struct {
	telemetry.ConsumptionStats
	EntitiesMapped     uint64 `json:"entities_mapped"`
	LineageChainsBuilt uint64 `json:"lineage_chains_built"`
	MappingErrors      uint64 `json:"mapping_errors"`
}

type statsCounters struct {
	consumed      telemetry.Counters
	entities      atomic.Uint64
	chains        atomic.Uint64
	mappingErrors atomic.Uint64
}

func (s *statsCounters) snapshot() Stats {
	return Stats{
		ConsumptionStats:   s.consumed.Snapshot(),
		EntitiesMapped:     s.entities.Load(),
		LineageChainsBuilt: s.chains.Load(),
		MappingErrors:      s.mappingErrors.Load(),
	}
}

func (s *statsCounters) reset() {
	s.consumed.Reset()
	s.entities.Store(0)
	s.chains.Store(0)
	s.mappingErrors.Store(0)
}
