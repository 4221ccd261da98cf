package lineage

import (
	"time"

	"github.com/LLM-Dev-Ops/memory-graph-sub000/internal/telemetry"
)

// EdgeType classifies a relationship between two spans
type EdgeType string

const (
	EdgeParentChild EdgeType = "parent_child"
	EdgeFollows     EdgeType = "follows"
	EdgeCausedBy    EdgeType = "caused_by"
	EdgeDataFlow    EdgeType = "data_flow"
)

// Node is one span within a lineage chain
type Node struct {
	ID                string               `json:"id"`
	Operation         string               `json:"operation"`
	StartTime         time.Time            `json:"start_time"`
	EndTime           time.Time            `json:"end_time"`
	DurationMs        int64                `json:"duration_ms"`
	Status            telemetry.SpanStatus `json:"status"`
	Attributes        map[string]string    `json:"attributes,omitempty"`
	MappedGraphNodeID string               `json:"mapped_graph_node_id,omitempty"`
}

// Edge is a directed relationship between two node ids. Either endpoint may
// reference a span that has not arrived yet.
type Edge struct {
	From     string   `json:"from"`
	To       string   `json:"to"`
	EdgeType EdgeType `json:"edge_type"`
}

// Chain is the causal graph of one trace
type Chain struct {
	TraceID  string            `json:"trace_id"`
	Nodes    []Node            `json:"nodes"`
	Edges    []Edge            `json:"edges"`
	Roots    []string          `json:"roots"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Node returns the node with the given id
func (c *Chain) Node(id string) (Node, bool) {
	for _, n := range c.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// Children returns the ids of nodes reached from nodeID over ParentChild edges
func (c *Chain) Children(nodeID string) []string {
	var children []string
	for _, e := range c.Edges {
		if e.EdgeType == EdgeParentChild && e.From == nodeID {
			children = append(children, e.To)
		}
	}
	return children
}

// Descendants returns every node id reachable from nodeID over ParentChild
// edges in depth-first order. A visited set stops traversal on cyclic data.
func (c *Chain) Descendants(nodeID string) []string {
	adjacency := make(map[string][]string)
	for _, e := range c.Edges {
		if e.EdgeType == EdgeParentChild {
			adjacency[e.From] = append(adjacency[e.From], e.To)
		}
	}

	visited := make(map[string]bool)
	var out []string
	stack := []string{nodeID}
	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[current] {
			continue
		}
		visited[current] = true
		if current != nodeID {
			out = append(out, current)
		}

		next := adjacency[current]
		for i := len(next) - 1; i >= 0; i-- {
			if !visited[next[i]] {
				stack = append(stack, next[i])
			}
		}
	}
	return out
}

// TotalDurationMs is the span of wall time covered by the chain: latest end
// minus earliest start, clamped to >= 0.
func (c *Chain) TotalDurationMs() int64 {
	if len(c.Nodes) == 0 {
		return 0
	}

	minStart := c.Nodes[0].StartTime
	maxEnd := c.Nodes[0].EndTime
	for _, n := range c.Nodes[1:] {
		if n.StartTime.Before(minStart) {
			minStart = n.StartTime
		}
		if n.EndTime.After(maxEnd) {
			maxEnd = n.EndTime
		}
	}

	d := maxEnd.Sub(minStart).Milliseconds()
	if d < 0 {
		return 0
	}
	return d
}

// CountByStatus groups nodes by span status
func (c *Chain) CountByStatus() map[telemetry.SpanStatus]int {
	counts := make(map[telemetry.SpanStatus]int)
	for _, n := range c.Nodes {
		counts[n.Status]++
	}
	return counts
}

// Clone returns a deep copy of the chain
func (c *Chain) Clone() *Chain {
	out := &Chain{
		TraceID:  c.TraceID,
		Nodes:    make([]Node, len(c.Nodes)),
		Edges:    make([]Edge, len(c.Edges)),
		Roots:    make([]string, len(c.Roots)),
		Metadata: copyAttrs(c.Metadata),
	}
	for i, n := range c.Nodes {
		n.Attributes = copyAttrs(n.Attributes)
		out.Nodes[i] = n
	}
	copy(out.Edges, c.Edges)
	copy(out.Roots, c.Roots)
	return out
}

func nodeFromSpan(span *telemetry.Span) Node {
	status := span.Status
	if status == "" {
		status = telemetry.StatusUnset
	}
	return Node{
		ID:         span.SpanID,
		Operation:  span.OperationName,
		StartTime:  span.StartTime,
		EndTime:    span.EndTime,
		DurationMs: span.DurationMs(),
		Status:     status,
		Attributes: copyAttrs(span.Attributes),
	}
}

func copyAttrs(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
