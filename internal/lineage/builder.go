package lineage

import (
	"sort"
	"strconv"
	"sync"

	"github.com/LLM-Dev-Ops/memory-graph-sub000/internal/telemetry"
	"go.uber.org/zap"
)

// trackedChain is a chain plus the indexes that keep it duplicate-free.
// Each trace gets its own lock so unrelated traces never contend.
type trackedChain struct {
	mu        sync.Mutex
	chain     Chain
	nodeIndex map[string]int
	edgeSet   map[Edge]struct{}
	rootSet   map[string]struct{}
}

func newTrackedChain(traceID string) *trackedChain {
	return &trackedChain{
		chain: Chain{
			TraceID:  traceID,
			Nodes:    []Node{},
			Edges:    []Edge{},
			Roots:    []string{},
			Metadata: map[string]string{},
		},
		nodeIndex: make(map[string]int),
		edgeSet:   make(map[Edge]struct{}),
		rootSet:   make(map[string]struct{}),
	}
}

func (tc *trackedChain) addEdge(e Edge) bool {
	if _, exists := tc.edgeSet[e]; exists {
		return false
	}
	tc.edgeSet[e] = struct{}{}
	tc.chain.Edges = append(tc.chain.Edges, e)
	return true
}

func (tc *trackedChain) snapshot() *Chain {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	return tc.chain.Clone()
}

// Builder assembles lineage chains from span events
type Builder struct {
	mu     sync.RWMutex
	chains map[string]*trackedChain
	logger *zap.Logger
}

// NewBuilder creates an empty lineage builder
func NewBuilder() *Builder {
	return &Builder{
		chains: make(map[string]*trackedChain),
		logger: zap.NewNop(),
	}
}

// WithLogger sets the builder's logger
func (b *Builder) WithLogger(logger *zap.Logger) *Builder {
	if logger != nil {
		b.logger = logger
	}
	return b
}

// getOrCreate returns the chain for traceID, creating it if needed. The
// second return value reports whether the chain was created by this call.
func (b *Builder) getOrCreate(traceID string) (*trackedChain, bool) {
	b.mu.RLock()
	tc, ok := b.chains[traceID]
	b.mu.RUnlock()
	if ok {
		return tc, false
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if tc, ok := b.chains[traceID]; ok {
		return tc, false
	}
	tc = newTrackedChain(traceID)
	b.chains[traceID] = tc
	return tc, true
}

// ProcessSpan adds a span to its trace's chain. It reports whether a new
// chain was created for the trace.
func (b *Builder) ProcessSpan(span *telemetry.Span) bool {
	tc, created := b.getOrCreate(span.TraceID)
	node := nodeFromSpan(span)

	tc.mu.Lock()
	defer tc.mu.Unlock()

	if idx, seen := tc.nodeIndex[node.ID]; seen {
		// Re-ingested span: keep the graph node id assigned earlier
		node.MappedGraphNodeID = tc.chain.Nodes[idx].MappedGraphNodeID
		tc.chain.Nodes[idx] = node
	} else {
		tc.nodeIndex[node.ID] = len(tc.chain.Nodes)
		tc.chain.Nodes = append(tc.chain.Nodes, node)
	}

	if span.HasParent() {
		tc.addEdge(Edge{From: span.ParentSpanID, To: span.SpanID, EdgeType: EdgeParentChild})
	} else if _, isRoot := tc.rootSet[span.SpanID]; !isRoot {
		tc.rootSet[span.SpanID] = struct{}{}
		tc.chain.Roots = append(tc.chain.Roots, span.SpanID)
	}
	tc.chain.Metadata["span_count"] = strconv.Itoa(len(tc.chain.Nodes))

	if created {
		b.logger.Debug("lineage chain created",
			zap.String("trace_id", span.TraceID),
			zap.String("span_id", span.SpanID),
		)
	}
	return created
}

// AddEdge records a caller-supplied relationship between two spans of the
// same trace. Duplicate edges are ignored; it reports whether the edge was new.
func (b *Builder) AddEdge(traceID, from, to string, edgeType EdgeType) bool {
	if from == "" || to == "" || from == to {
		return false
	}
	tc, _ := b.getOrCreate(traceID)

	tc.mu.Lock()
	defer tc.mu.Unlock()
	return tc.addEdge(Edge{From: from, To: to, EdgeType: edgeType})
}

// SetMappedNodeID records the graph node id assigned to a span
func (b *Builder) SetMappedNodeID(traceID, spanID, nodeID string) bool {
	b.mu.RLock()
	tc, ok := b.chains[traceID]
	b.mu.RUnlock()
	if !ok {
		return false
	}

	tc.mu.Lock()
	defer tc.mu.Unlock()
	idx, ok := tc.nodeIndex[spanID]
	if !ok {
		return false
	}
	tc.chain.Nodes[idx].MappedGraphNodeID = nodeID
	return true
}

// GetChain returns a snapshot of the chain for traceID
func (b *Builder) GetChain(traceID string) (*Chain, bool) {
	b.mu.RLock()
	tc, ok := b.chains[traceID]
	b.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return tc.snapshot(), true
}

// GetAllChains returns snapshots of every chain, ordered by trace id
func (b *Builder) GetAllChains() []*Chain {
	b.mu.RLock()
	tracked := make([]*trackedChain, 0, len(b.chains))
	for _, tc := range b.chains {
		tracked = append(tracked, tc)
	}
	b.mu.RUnlock()

	chains := make([]*Chain, 0, len(tracked))
	for _, tc := range tracked {
		chains = append(chains, tc.snapshot())
	}
	sort.Slice(chains, func(i, j int) bool {
		return chains[i].TraceID < chains[j].TraceID
	})
	return chains
}

// RemoveChain deletes the chain for traceID and returns its final state
func (b *Builder) RemoveChain(traceID string) (*Chain, bool) {
	b.mu.Lock()
	tc, ok := b.chains[traceID]
	if ok {
		delete(b.chains, traceID)
	}
	b.mu.Unlock()

	if !ok {
		return nil, false
	}
	return tc.snapshot(), true
}

// Clear drops all chains
func (b *Builder) Clear() {
	b.mu.Lock()
	b.chains = make(map[string]*trackedChain)
	b.mu.Unlock()
}

// ChainCount returns the number of chains held
func (b *Builder) ChainCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.chains)
}
