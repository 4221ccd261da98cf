package mapping

import (
	"time"

	"github.com/LLM-Dev-Ops/memory-graph-sub000/internal/shared/id"
	"github.com/LLM-Dev-Ops/memory-graph-sub000/internal/telemetry"
	"github.com/google/uuid"
)

// GraphEventKind names an activity reported by the graph store
type GraphEventKind string

const (
	EventEntityCreated     GraphEventKind = "entity_created"
	EventPromptSubmitted   GraphEventKind = "prompt_submitted"
	EventResponseGenerated GraphEventKind = "response_generated"
)

// GraphEvent is an activity notification emitted by the graph store
type GraphEvent struct {
	Kind      GraphEventKind    `json:"kind"`
	NodeID    string            `json:"node_id"`
	SessionID id.SessionID      `json:"session_id,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
	Content   string            `json:"content,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// traceNamespace seeds the name-based uuids used for sessions that did not
// originate from a trace
var traceNamespace = uuid.MustParse("6f1c2a9e-3b4d-5e6f-8a7b-9c0d1e2f3a4b")

// EventToTelemetry synthesizes a span describing a graph event so telemetry
// consumers can observe graph activity. The conversion is lossy; kinds other
// than entity_created, prompt_submitted and response_generated yield nil.
func EventToTelemetry(ev GraphEvent) telemetry.Event {
	switch ev.Kind {
	case EventEntityCreated, EventPromptSubmitted, EventResponseGenerated:
	default:
		return nil
	}

	at := ev.Timestamp
	if at.IsZero() {
		at = time.Now().UTC()
	}

	attrs := make(map[string]string, len(ev.Metadata)+4)
	for k, v := range ev.Metadata {
		attrs[k] = v
	}
	attrs["graph.event_kind"] = string(ev.Kind)
	if ev.NodeID != "" {
		attrs["graph.node_id"] = ev.NodeID
	}
	if ev.SessionID != "" {
		attrs["graph.session_id"] = ev.SessionID.String()
	}
	if ev.Content != "" {
		attrs["content"] = ev.Content
	}

	return &telemetry.Span{
		SpanID:        uuid.NewString(),
		TraceID:       traceIDForSession(ev.SessionID),
		OperationName: "graph." + string(ev.Kind),
		StartTime:     at,
		EndTime:       at,
		Attributes:    attrs,
		Status:        telemetry.StatusOk,
	}
}

// traceIDForSession inverts the trace-to-session derivation when possible.
// Other sessions get a stable name-based uuid; no session gets a random one.
func traceIDForSession(sessionID id.SessionID) string {
	if trace, ok := sessionID.TraceID(); ok {
		return trace
	}
	if sessionID != "" {
		return uuid.NewSHA1(traceNamespace, []byte(sessionID)).String()
	}
	return uuid.NewString()
}
