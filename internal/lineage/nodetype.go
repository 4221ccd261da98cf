package lineage

import "strings"

// NodeType is the coarse kind of graph node an operation maps to
type NodeType string

const (
	NodeTypePrompt   NodeType = "prompt"
	NodeTypeResponse NodeType = "response"
	NodeTypeTool     NodeType = "tool_invocation"
	NodeTypeAgent    NodeType = "agent"
	NodeTypeContext  NodeType = "context"
)

// TypeRule maps an operation-name substring to a node type
type TypeRule struct {
	Pattern  string   `json:"pattern" yaml:"pattern" toml:"pattern"`
	NodeType NodeType `json:"node_type" yaml:"node_type" toml:"node_type"`
}

// DefaultRules is the rule table used by InferNodeType. Order matters: the
// first matching rule wins.
var DefaultRules = []TypeRule{
	{Pattern: "prompt", NodeType: NodeTypePrompt},
	{Pattern: "generate", NodeType: NodeTypePrompt},
	{Pattern: "response", NodeType: NodeTypeResponse},
	{Pattern: "completion", NodeType: NodeTypeResponse},
	{Pattern: "tool", NodeType: NodeTypeTool},
	{Pattern: "function", NodeType: NodeTypeTool},
}

// InferNodeType maps an operation name to a node type using DefaultRules.
func InferNodeType(operation string) NodeType {
	return MatchNodeType(operation, DefaultRules, NodeTypeContext)
}

// MatchNodeType returns the node type of the first rule whose pattern is a
// case-insensitive substring of operation, or fallback.
func MatchNodeType(operation string, rules []TypeRule, fallback NodeType) NodeType {
	op := strings.ToLower(operation)
	for _, r := range rules {
		if r.Pattern == "" {
			continue
		}
		if strings.Contains(op, strings.ToLower(r.Pattern)) {
			return r.NodeType
		}
	}
	return fallback
}
