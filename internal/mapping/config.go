package mapping

import "github.com/LLM-Dev-Ops/memory-graph-sub000/internal/lineage"

// Config controls how spans become graph entities
type Config struct {
	// OperationPatterns is ordered; the first matching pattern wins
	OperationPatterns []lineage.TypeRule `json:"operation_patterns" yaml:"operation_patterns" toml:"operation_patterns"`
	// MetadataKeys is the allow-list of span attributes copied to entities
	MetadataKeys       []string `json:"metadata_keys" yaml:"metadata_keys" toml:"metadata_keys"`
	CreateLineageEdges bool     `json:"create_lineage_edges" yaml:"create_lineage_edges" toml:"create_lineage_edges"`
	TraceToSession     bool     `json:"trace_to_session" yaml:"trace_to_session" toml:"trace_to_session"`
	DeterministicIDs   bool     `json:"deterministic_ids" yaml:"deterministic_ids" toml:"deterministic_ids"`
}

// DefaultOperationPatterns recognizes generation, completion, tool and agent operations
func DefaultOperationPatterns() []lineage.TypeRule {
	return []lineage.TypeRule{
		{Pattern: "generate", NodeType: lineage.NodeTypePrompt},
		{Pattern: "generation", NodeType: lineage.NodeTypePrompt},
		{Pattern: "completion", NodeType: lineage.NodeTypeResponse},
		{Pattern: "response", NodeType: lineage.NodeTypeResponse},
		{Pattern: "tool", NodeType: lineage.NodeTypeTool},
		{Pattern: "function", NodeType: lineage.NodeTypeTool},
		{Pattern: "agent", NodeType: lineage.NodeTypeAgent},
	}
}

// DefaultMetadataKeys is the default attribute allow-list
func DefaultMetadataKeys() []string {
	return []string{"model", "temperature", "max_tokens", "user_id"}
}

// DefaultConfig returns the default mapping configuration
func DefaultConfig() Config {
	return Config{
		OperationPatterns:  DefaultOperationPatterns(),
		MetadataKeys:       DefaultMetadataKeys(),
		CreateLineageEdges: true,
		TraceToSession:     true,
	}
}
