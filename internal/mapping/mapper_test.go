package mapping

import (
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/LLM-Dev-Ops/memory-graph-sub000/internal/lineage"
	"github.com/LLM-Dev-Ops/memory-graph-sub000/internal/shared/id"
	"github.com/LLM-Dev-Ops/memory-graph-sub000/internal/telemetry"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func span(spanID, traceID, parent, op string) *telemetry.Span {
	return &telemetry.Span{
		SpanID:        spanID,
		TraceID:       traceID,
		ParentSpanID:  parent,
		OperationName: op,
		StartTime:     base,
		EndTime:       base.Add(time.Second),
		Status:        telemetry.StatusOk,
	}
}

func TestMapSpanIdempotent(t *testing.T) {
	m := NewEntityMapper(DefaultConfig())

	first, err := m.MapSpan(span("s1", "t1", "", "llm.generate"))
	require.NoError(t, err)
	second, err := m.MapSpan(span("s1", "t1", "", "llm.generate"))
	require.NoError(t, err)

	assert.Equal(t, first.NodeID, second.NodeID)
	assert.True(t, strings.HasPrefix(first.NodeID.String(), "node_"))
	assert.Equal(t, 1, m.CacheSize())

	cached, ok := m.GetNodeID("s1")
	require.True(t, ok)
	assert.Equal(t, first.NodeID, cached)
}

func TestMapSpanConcurrentFirstSeenWins(t *testing.T) {
	m := NewEntityMapper(DefaultConfig())

	var wg sync.WaitGroup
	ids := make([]id.NodeID, 32)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			e, err := m.MapSpan(span("shared", "t", "", "op"))
			if err == nil {
				ids[i] = e.NodeID
			}
		}(i)
	}
	wg.Wait()

	for _, got := range ids {
		assert.Equal(t, ids[0], got)
	}
}

func TestMapSpanMissingID(t *testing.T) {
	m := NewEntityMapper(DefaultConfig())

	_, err := m.MapSpan(span("", "t", "", "op"))
	assert.ErrorIs(t, err, ErrMissingSpanID)

	_, err = m.MapSpan(nil)
	assert.ErrorIs(t, err, ErrMissingSpanID)
}

func TestNodeTypeRules(t *testing.T) {
	m := NewEntityMapper(DefaultConfig())

	tests := []struct {
		operation string
		want      lineage.NodeType
	}{
		{"llm.generate", lineage.NodeTypePrompt},
		{"text_generation", lineage.NodeTypePrompt},
		{"chat.completion", lineage.NodeTypeResponse},
		{"Response.Stream", lineage.NodeTypeResponse},
		{"tool.search", lineage.NodeTypeTool},
		{"call_function", lineage.NodeTypeTool},
		{"agent.plan", lineage.NodeTypeAgent},
		{"db.query", lineage.NodeTypeContext},
	}

	for i, tt := range tests {
		t.Run(tt.operation, func(t *testing.T) {
			e, err := m.MapSpan(span(fmt.Sprintf("s%d", i), "t", "", tt.operation))
			require.NoError(t, err)
			assert.Equal(t, tt.want, e.NodeType)
		})
	}
}

func TestSessionDerivation(t *testing.T) {
	on := NewEntityMapper(DefaultConfig())
	e, _ := on.MapSpan(span("s", "trace-9", "", "op"))
	assert.Equal(t, id.SessionID("session:trace-9"), e.SessionID)

	cfg := DefaultConfig()
	cfg.TraceToSession = false
	off := NewEntityMapper(cfg)
	e, _ = off.MapSpan(span("s", "trace-9", "", "op"))
	assert.Empty(t, e.SessionID)
}

func TestMetadataAllowList(t *testing.T) {
	m := NewEntityMapper(DefaultConfig())
	s := span("s", "t", "", "llm.generate")
	s.Attributes = map[string]string{
		"model":       "gpt",
		"temperature": "0.2",
		"secret":      "do-not-copy",
	}

	e, err := m.MapSpan(s)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"model":       "gpt",
		"temperature": "0.2",
		"span_id":     "s",
		"trace_id":    "t",
		"operation":   "llm.generate",
	}, e.Metadata)
}

func TestDeterministicIDs(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DeterministicIDs = true

	a := NewEntityMapper(cfg)
	b := NewEntityMapper(cfg)
	ea, _ := a.MapSpan(span("s", "t", "", "op"))
	eb, _ := b.MapSpan(span("s", "t", "", "op"))

	assert.Equal(t, ea.NodeID, eb.NodeID)
	assert.Equal(t, id.DeterministicNodeID("t", "s"), ea.NodeID)
}

func TestMapSpanWithParent(t *testing.T) {
	m := NewEntityMapper(DefaultConfig())

	orphan := m.MapSpanWithParent(span("child", "t", "parent", "tool.call"))
	assert.True(t, orphan.HasErrors())
	assert.Len(t, orphan.Entities, 1, "the span itself is still mapped")
	assert.Contains(t, orphan.Errors[0], "parent")

	m.MapSpanWithParent(span("p2", "t", "", "agent.run"))
	linked := m.MapSpanWithParent(span("c2", "t", "p2", "tool.call"))
	require.False(t, linked.HasErrors())
	require.Len(t, linked.Edges, 1)
	assert.Equal(t, "invokes", linked.Edges[0].EdgeType)
	assert.Equal(t, lineage.EdgeParentChild, linked.Edges[0].SourceLineageType)
}

func TestMapSpanWithParentEdgesDisabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CreateLineageEdges = false
	m := NewEntityMapper(cfg)

	result := m.MapSpanWithParent(span("child", "t", "parent", "op"))
	assert.False(t, result.HasErrors())
	assert.Empty(t, result.Edges)
}

func TestMapLineageChain(t *testing.T) {
	b := lineage.NewBuilder()
	b.ProcessSpan(span("c", "t", "p", "tool.call"))
	b.ProcessSpan(span("p", "t", "", "llm.generate"))
	b.AddEdge("t", "p", "c", lineage.EdgeDataFlow)
	chain, _ := b.GetChain("t")

	m := NewEntityMapper(DefaultConfig())
	result := m.MapLineageChain(chain)

	assert.Empty(t, result.Errors)
	assert.Len(t, result.Entities, 2)
	require.Len(t, result.Edges, 2)

	types := []string{result.Edges[0].EdgeType, result.Edges[1].EdgeType}
	assert.ElementsMatch(t, []string{"invokes", "references"}, types)

	for _, n := range chain.Nodes {
		nodeID, ok := m.GetNodeID(n.ID)
		require.True(t, ok)
		assert.Equal(t, nodeID.String(), n.MappedGraphNodeID)
	}
}

func TestMapLineageChainUnmappedEndpoint(t *testing.T) {
	// child arrived, parent has not
	b := lineage.NewBuilder()
	b.ProcessSpan(span("c", "t", "missing", "tool.call"))
	chain, _ := b.GetChain("t")

	m := NewEntityMapper(DefaultConfig())
	result := m.MapLineageChain(chain)

	assert.Len(t, result.Entities, 1)
	assert.Empty(t, result.Edges)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], ErrUnmappedEndpoint.Error())
	assert.Contains(t, result.Errors[0], "missing")
}

func TestMapEdgeWrapsSentinel(t *testing.T) {
	m := NewEntityMapper(DefaultConfig())
	m.MapSpan(span("a", "t", "", "op"))

	_, err := m.MapEdge(lineage.Edge{From: "a", To: "b", EdgeType: lineage.EdgeFollows})
	assert.ErrorIs(t, err, ErrUnmappedEndpoint)

	m.MapSpan(span("b", "t", "", "op"))
	edge, err := m.MapEdge(lineage.Edge{From: "a", To: "b", EdgeType: lineage.EdgeFollows})
	require.NoError(t, err)
	assert.Equal(t, "follows", edge.EdgeType)
}

func TestClearCache(t *testing.T) {
	m := NewEntityMapper(DefaultConfig())
	first, _ := m.MapSpan(span("s", "t", "", "op"))

	m.ClearCache()
	assert.Equal(t, 0, m.CacheSize())
	_, ok := m.GetNodeID("s")
	assert.False(t, ok)

	second, _ := m.MapSpan(span("s", "t", "", "op"))
	assert.NotEqual(t, first.NodeID, second.NodeID)
}

func TestGraphEdgeType(t *testing.T) {
	assert.Equal(t, "invokes", GraphEdgeType(lineage.EdgeParentChild))
	assert.Equal(t, "caused_by", GraphEdgeType(lineage.EdgeCausedBy))
	assert.Equal(t, "custom", GraphEdgeType(lineage.EdgeType("custom")))
}

func TestEventToTelemetry(t *testing.T) {
	ev := GraphEvent{
		Kind:      EventPromptSubmitted,
		NodeID:    "node_1",
		SessionID: "session:trace-7",
		Timestamp: base,
		Content:   "hello",
		Metadata:  map[string]string{"model": "m"},
	}

	out := EventToTelemetry(ev)
	require.NotNil(t, out)
	s, ok := out.(*telemetry.Span)
	require.True(t, ok)

	assert.Equal(t, "trace-7", s.TraceID)
	assert.Equal(t, "graph.prompt_submitted", s.OperationName)
	assert.Equal(t, base, s.StartTime)
	assert.Equal(t, "node_1", s.Attributes["graph.node_id"])
	assert.Equal(t, "m", s.Attributes["model"])
	_, err := uuid.Parse(s.SpanID)
	assert.NoError(t, err)
	assert.NoError(t, s.Validate())
}

func TestEventToTelemetrySessionDerivation(t *testing.T) {
	a := EventToTelemetry(GraphEvent{Kind: EventEntityCreated, SessionID: "sess_abc", Timestamp: base}).(*telemetry.Span)
	b := EventToTelemetry(GraphEvent{Kind: EventResponseGenerated, SessionID: "sess_abc", Timestamp: base}).(*telemetry.Span)
	assert.Equal(t, a.TraceID, b.TraceID)
	assert.NotEqual(t, a.SpanID, b.SpanID)

	anon := EventToTelemetry(GraphEvent{Kind: EventEntityCreated}).(*telemetry.Span)
	assert.NotEmpty(t, anon.TraceID)
	assert.False(t, anon.StartTime.IsZero())
}

func TestEventToTelemetryUnsupported(t *testing.T) {
	assert.Nil(t, EventToTelemetry(GraphEvent{Kind: "query_executed"}))
	assert.Nil(t, EventToTelemetry(GraphEvent{}))
}
