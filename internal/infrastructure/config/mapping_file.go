package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/LLM-Dev-Ops/memory-graph-sub000/internal/lineage"
	"github.com/LLM-Dev-Ops/memory-graph-sub000/internal/mapping"
	"github.com/bytedance/sonic"
	"github.com/goccy/go-yaml"
	"github.com/pelletier/go-toml/v2"
)

// ErrUnsupportedFormat is returned for mapping files with an unknown extension
var ErrUnsupportedFormat = errors.New("unsupported mapping file format")

// MappingFile is the on-disk form of the mapping rules. Empty sections keep
// the defaults.
type MappingFile struct {
	OperationPatterns []lineage.TypeRule `json:"operation_patterns" yaml:"operation_patterns" toml:"operation_patterns"`
	MetadataKeys      []string           `json:"metadata_keys" yaml:"metadata_keys" toml:"metadata_keys"`
}

// Apply overlays the file's non-empty sections onto cfg
func (f *MappingFile) Apply(cfg *mapping.Config) {
	if len(f.OperationPatterns) > 0 {
		cfg.OperationPatterns = f.OperationPatterns
	}
	if len(f.MetadataKeys) > 0 {
		cfg.MetadataKeys = f.MetadataKeys
	}
}

// LoadMappingFile reads mapping rules from a .yaml, .yml, .toml or .json file
func LoadMappingFile(path string) (*MappingFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read mapping file: %w", err)
	}
	return ParseMappingFile(filepath.Ext(path), data)
}

// ParseMappingFile decodes mapping rules in the format named by ext
func ParseMappingFile(ext string, data []byte) (*MappingFile, error) {
	var file MappingFile

	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		err := yaml.Unmarshal(data, &file)
		if err != nil {
			return nil, fmt.Errorf("failed to parse yaml mapping file: %w", err)
		}
	case ".toml":
		err := toml.Unmarshal(data, &file)
		if err != nil {
			return nil, fmt.Errorf("failed to parse toml mapping file: %w", err)
		}
	case ".json":
		err := sonic.Unmarshal(data, &file)
		if err != nil {
			return nil, fmt.Errorf("failed to parse json mapping file: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}

	for i, rule := range file.OperationPatterns {
		if rule.Pattern == "" || rule.NodeType == "" {
			return nil, fmt.Errorf("operation pattern %d: pattern and node_type are required", i)
		}
	}
	return &file, nil
}
