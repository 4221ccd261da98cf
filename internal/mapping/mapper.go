package mapping

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/LLM-Dev-Ops/memory-graph-sub000/internal/lineage"
	"github.com/LLM-Dev-Ops/memory-graph-sub000/internal/shared/id"
	"github.com/LLM-Dev-Ops/memory-graph-sub000/internal/telemetry"
	"go.uber.org/zap"
)

var (
	// ErrMissingSpanID is returned when a span carries no id to key the cache
	ErrMissingSpanID = errors.New("span has no span_id")
	// ErrUnmappedEndpoint is returned for an edge whose endpoint was never mapped
	ErrUnmappedEndpoint = errors.New("edge endpoint not mapped")
)

// MappedEntity is a span expressed in the graph store's vocabulary
type MappedEntity struct {
	NodeID        id.NodeID         `json:"node_id"`
	NodeType      lineage.NodeType  `json:"node_type"`
	SessionID     id.SessionID      `json:"session_id,omitempty"`
	SourceSpanID  string            `json:"source_span_id"`
	SourceTraceID string            `json:"source_trace_id"`
	Timestamp     time.Time         `json:"timestamp"`
	Metadata      map[string]string `json:"metadata"`
}

// MappedEdge is a lineage edge between two mapped entities
type MappedEdge struct {
	From              id.NodeID        `json:"from"`
	To                id.NodeID        `json:"to"`
	EdgeType          string           `json:"edge_type"`
	SourceLineageType lineage.EdgeType `json:"source_lineage_type"`
}

// MappingResult collects the entities and edges produced by one mapping
// call. Failures are recorded in Errors and never abort the call.
type MappingResult struct {
	Entities []MappedEntity `json:"entities"`
	Edges    []MappedEdge   `json:"edges"`
	Errors   []string       `json:"errors"`
}

// HasErrors reports whether any part of the mapping failed
func (r *MappingResult) HasErrors() bool {
	return len(r.Errors) > 0
}

func newResult() MappingResult {
	return MappingResult{
		Entities: []MappedEntity{},
		Edges:    []MappedEdge{},
		Errors:   []string{},
	}
}

// graphEdgeTypes translates lineage edge types to graph store relation names
var graphEdgeTypes = map[lineage.EdgeType]string{
	lineage.EdgeParentChild: "invokes",
	lineage.EdgeFollows:     "follows",
	lineage.EdgeCausedBy:    "caused_by",
	lineage.EdgeDataFlow:    "references",
}

// GraphEdgeType returns the graph relation name for a lineage edge type
func GraphEdgeType(t lineage.EdgeType) string {
	if name, ok := graphEdgeTypes[t]; ok {
		return name
	}
	return string(t)
}

// EntityMapper converts spans and lineage chains into graph entities. The
// span id to node id mapping is cached; the first id assigned to a span id
// is the one every later call returns.
type EntityMapper struct {
	cfg    Config
	cache  sync.Map // span id -> id.NodeID
	logger *zap.Logger
}

// NewEntityMapper creates a mapper with the given configuration
func NewEntityMapper(cfg Config) *EntityMapper {
	return &EntityMapper{
		cfg:    cfg,
		logger: zap.NewNop(),
	}
}

// WithLogger sets the mapper's logger
func (m *EntityMapper) WithLogger(logger *zap.Logger) *EntityMapper {
	if logger != nil {
		m.logger = logger
	}
	return m
}

// Config returns the mapper configuration
func (m *EntityMapper) Config() Config {
	return m.cfg
}

// nodeIDFor returns the cached node id for spanID, assigning one if needed
func (m *EntityMapper) nodeIDFor(traceID, spanID string) id.NodeID {
	if v, ok := m.cache.Load(spanID); ok {
		return v.(id.NodeID)
	}

	var candidate id.NodeID
	if m.cfg.DeterministicIDs {
		candidate = id.DeterministicNodeID(traceID, spanID)
	} else {
		candidate = id.NewNodeID()
	}
	actual, _ := m.cache.LoadOrStore(spanID, candidate)
	return actual.(id.NodeID)
}

func (m *EntityMapper) entity(spanID, traceID, operation string, at time.Time, attrs map[string]string) MappedEntity {
	e := MappedEntity{
		NodeID:        m.nodeIDFor(traceID, spanID),
		NodeType:      lineage.MatchNodeType(operation, m.cfg.OperationPatterns, lineage.NodeTypeContext),
		SourceSpanID:  spanID,
		SourceTraceID: traceID,
		Timestamp:     at,
		Metadata:      m.metadata(spanID, traceID, operation, attrs),
	}
	if m.cfg.TraceToSession && traceID != "" {
		e.SessionID = id.SessionForTrace(traceID)
	}
	return e
}

func (m *EntityMapper) metadata(spanID, traceID, operation string, attrs map[string]string) map[string]string {
	md := make(map[string]string, len(m.cfg.MetadataKeys)+3)
	for _, key := range m.cfg.MetadataKeys {
		if v, ok := attrs[key]; ok {
			md[key] = v
		}
	}
	md["span_id"] = spanID
	md["trace_id"] = traceID
	md["operation"] = operation
	return md
}

// MapSpan converts one span into a graph entity
func (m *EntityMapper) MapSpan(span *telemetry.Span) (*MappedEntity, error) {
	if span == nil || span.SpanID == "" {
		return nil, ErrMissingSpanID
	}
	e := m.entity(span.SpanID, span.TraceID, span.OperationName, span.StartTime, span.Attributes)
	return &e, nil
}

// MapSpanWithParent maps a span and, when edges are enabled and the span
// has a parent, the ParentChild edge leading to it. The parent must have
// been mapped already.
func (m *EntityMapper) MapSpanWithParent(span *telemetry.Span) MappingResult {
	result := newResult()

	entity, err := m.MapSpan(span)
	if err != nil {
		result.Errors = append(result.Errors, err.Error())
		return result
	}
	result.Entities = append(result.Entities, *entity)

	if m.cfg.CreateLineageEdges && span.HasParent() {
		edge, err := m.MapEdge(lineage.Edge{
			From:     span.ParentSpanID,
			To:       span.SpanID,
			EdgeType: lineage.EdgeParentChild,
		})
		if err != nil {
			result.Errors = append(result.Errors, err.Error())
		} else {
			result.Edges = append(result.Edges, *edge)
		}
	}
	return result
}

// MapEdge converts a lineage edge whose endpoints have both been mapped
func (m *EntityMapper) MapEdge(e lineage.Edge) (*MappedEdge, error) {
	from, ok := m.GetNodeID(e.From)
	if !ok {
		return nil, fmt.Errorf("%w: %s (edge %s -> %s)", ErrUnmappedEndpoint, e.From, e.From, e.To)
	}
	to, ok := m.GetNodeID(e.To)
	if !ok {
		return nil, fmt.Errorf("%w: %s (edge %s -> %s)", ErrUnmappedEndpoint, e.To, e.From, e.To)
	}
	return &MappedEdge{
		From:              from,
		To:                to,
		EdgeType:          GraphEdgeType(e.EdgeType),
		SourceLineageType: e.EdgeType,
	}, nil
}

// MapLineageChain maps every node of the chain and then, when enabled, its
// edges. Each node's MappedGraphNodeID in chain is filled in as it is mapped.
func (m *EntityMapper) MapLineageChain(chain *lineage.Chain) MappingResult {
	result := newResult()
	if chain == nil {
		return result
	}

	for i := range chain.Nodes {
		node := &chain.Nodes[i]
		if node.ID == "" {
			result.Errors = append(result.Errors, ErrMissingSpanID.Error())
			continue
		}
		e := m.entity(node.ID, chain.TraceID, node.Operation, node.StartTime, node.Attributes)
		node.MappedGraphNodeID = e.NodeID.String()
		result.Entities = append(result.Entities, e)
	}

	if m.cfg.CreateLineageEdges {
		for _, edge := range chain.Edges {
			mapped, err := m.MapEdge(edge)
			if err != nil {
				result.Errors = append(result.Errors, err.Error())
				continue
			}
			result.Edges = append(result.Edges, *mapped)
		}
	}

	if result.HasErrors() {
		m.logger.Debug("lineage chain mapped with errors",
			zap.String("trace_id", chain.TraceID),
			zap.Int("errors", len(result.Errors)),
		)
	}
	return result
}

// GetNodeID returns the node id assigned to spanID, if any
func (m *EntityMapper) GetNodeID(spanID string) (id.NodeID, bool) {
	v, ok := m.cache.Load(spanID)
	if !ok {
		return "", false
	}
	return v.(id.NodeID), true
}

// ClearCache forgets every assigned node id
func (m *EntityMapper) ClearCache() {
	m.cache.Clear()
}

// CacheSize returns the number of cached span ids
func (m *EntityMapper) CacheSize() int {
	n := 0
	m.cache.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
