// Package id provides centralized ID generation for the engine.
//
// Generated IDs are ULIDs:
//   - Lexicographic sortability: ids minted later sort later
//   - Prefixed types: node_*, sess_*, req_* read well in logs
//   - Type safety: separate types prevent mixing node and request ids
//
// Deterministic IDs hash their inputs into the same ULID encoding so two
// processes mapping the same span agree on the node id without coordination.
package id

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// NodeID identifies a graph entity derived from telemetry
type NodeID string

// SessionID identifies a session derived from a trace: the trace id behind
// SessionPrefix
type SessionID string

// RequestID identifies an API request
type RequestID string

const (
	NodePrefix    = "node"
	RequestPrefix = "req"
)

// SessionPrefix is prepended to a trace id to form its session id
const SessionPrefix = "session:"

// Generator generates ULIDs with optional prefixes
type Generator struct {
	entropy   io.Reader
	entropyMu sync.Mutex // Protects entropy reader
}

var (
	defaultGenerator *Generator
	once             sync.Once
)

// Default returns the process-wide generator
func Default() *Generator {
	once.Do(func() {
		defaultGenerator = NewGenerator()
	})
	return defaultGenerator
}

// NewGenerator creates a new ULID generator
func NewGenerator() *Generator {
	return &Generator{
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
}

// NewGeneratorWithEntropy creates a generator with custom entropy source
// Useful for testing with deterministic entropy
func NewGeneratorWithEntropy(entropy io.Reader) *Generator {
	return &Generator{
		entropy: entropy,
	}
}

// Generate creates a new ULID
func (g *Generator) Generate() ulid.ULID {
	g.entropyMu.Lock()
	defer g.entropyMu.Unlock()

	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy)
}

// GenerateString creates a new ULID as a string
func (g *Generator) GenerateString() string {
	return g.Generate().String()
}

// GenerateWithPrefix creates a prefixed ULID string
func (g *Generator) GenerateWithPrefix(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, g.GenerateString())
}

// NewNodeID generates a new random node ID
func NewNodeID() NodeID {
	return NodeID(Default().GenerateWithPrefix(NodePrefix))
}

// NewRequestID generates a new request ID
func NewRequestID() RequestID {
	return RequestID(Default().GenerateWithPrefix(RequestPrefix))
}

// DeterministicNodeID derives a node ID from the given fields. Field order
// matters: ("t", "s") and ("s", "t") yield different ids.
func DeterministicNodeID(fields ...string) NodeID {
	return NodeID(fmt.Sprintf("%s_%s", NodePrefix, Deterministic(fields...).String()))
}

// Deterministic hashes fields joined by '|' into a ULID-shaped value
func Deterministic(fields ...string) ulid.ULID {
	sum := sha256.Sum256([]byte(strings.Join(fields, "|")))
	var out ulid.ULID
	copy(out[:], sum[:len(out)])
	return out
}

// SessionForTrace derives the session id of a trace
func SessionForTrace(traceID string) SessionID {
	return SessionID(SessionPrefix + traceID)
}

// TraceID inverts SessionForTrace. ok is false for sessions that did not
// come from a trace.
func (id SessionID) TraceID() (string, bool) {
	trace, ok := strings.CutPrefix(string(id), SessionPrefix)
	return trace, ok && trace != ""
}

func (id NodeID) String() string    { return string(id) }
func (id SessionID) String() string { return string(id) }
func (id RequestID) String() string { return string(id) }

// IsValid checks if an ID string is a valid ULID, with or without a prefix
func IsValid(id string) bool {
	_, err := Parse(id)
	return err == nil
}

// Parse parses a ULID string, stripping a "prefix_" if present
func Parse(id string) (ulid.ULID, error) {
	if i := strings.LastIndexByte(id, '_'); i >= 0 {
		id = id[i+1:]
	}
	return ulid.Parse(id)
}
