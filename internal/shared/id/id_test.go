package id

import (
	"strings"
	"sync"
	"testing"
)

func TestGenerate(t *testing.T) {
	gen := NewGenerator()

	id1 := gen.Generate()
	id2 := gen.Generate()

	if id1.String() == id2.String() {
		t.Error("Generated IDs should be unique")
	}
}

func TestGenerateWithPrefix(t *testing.T) {
	gen := NewGenerator()

	for _, prefix := range []string{NodePrefix, RequestPrefix} {
		id := gen.GenerateWithPrefix(prefix)

		if !strings.HasPrefix(id, prefix+"_") {
			t.Errorf("ID should start with '%s_', got: %s", prefix, id)
		}

		parts := strings.Split(id, "_")
		if len(parts) != 2 {
			t.Errorf("Prefixed ID should have format 'prefix_ulid', got: %s", id)
		}

		if !IsValid(id) {
			t.Errorf("Prefixed ID should be valid: %s", id)
		}
	}
}

func TestTypedIDGeneration(t *testing.T) {
	nodeID := NewNodeID()
	reqID := NewRequestID()

	if !strings.HasPrefix(nodeID.String(), "node_") {
		t.Errorf("NodeID should start with 'node_', got: %s", nodeID)
	}

	if !strings.HasPrefix(reqID.String(), "req_") {
		t.Errorf("RequestID should start with 'req_', got: %s", reqID)
	}
}

func TestDeterministicNodeID(t *testing.T) {
	a := DeterministicNodeID("trace-1", "span-1")
	b := DeterministicNodeID("trace-1", "span-1")
	c := DeterministicNodeID("span-1", "trace-1")

	if a != b {
		t.Errorf("Same fields should give the same id: %s != %s", a, b)
	}
	if a == c {
		t.Errorf("Field order should matter, both gave %s", a)
	}
	if !strings.HasPrefix(a.String(), "node_") || !IsValid(a.String()) {
		t.Errorf("Deterministic id should be a valid prefixed ULID, got: %s", a)
	}
}

func TestIsValid(t *testing.T) {
	gen := NewGenerator()

	if !IsValid(gen.GenerateString()) {
		t.Error("Generated ULID should be valid")
	}

	for _, id := range []string{"", "invalid", "node_", "1234567890", "zzzzzzzzzzzzzzzzzzzzzzzzzzz"} {
		if IsValid(id) {
			t.Errorf("ID should be invalid: %s", id)
		}
	}
}

func TestParseStripsPrefix(t *testing.T) {
	raw := NewGenerator().Generate()

	parsed, err := Parse(RequestPrefix + "_" + raw.String())
	if err != nil {
		t.Fatalf("Failed to parse prefixed id: %v", err)
	}
	if parsed != raw {
		t.Errorf("Parsed %s, want %s", parsed, raw)
	}
}

func TestSessionForTrace(t *testing.T) {
	s := SessionForTrace("trace-7")
	if s != "session:trace-7" {
		t.Errorf("Unexpected session id: %s", s)
	}

	trace, ok := s.TraceID()
	if !ok || trace != "trace-7" {
		t.Errorf("TraceID() = %q, %v; want trace-7, true", trace, ok)
	}

	for _, foreign := range []SessionID{"sess_abc", "session:", ""} {
		if _, ok := foreign.TraceID(); ok {
			t.Errorf("Session %q should not map back to a trace", foreign)
		}
	}
}

func TestConcurrentGeneration(t *testing.T) {
	gen := NewGenerator()

	const goroutines = 50
	const idsPerGoroutine = 100

	var wg sync.WaitGroup
	idChan := make(chan string, goroutines*idsPerGoroutine)

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < idsPerGoroutine; j++ {
				idChan <- gen.GenerateString()
			}
		}()
	}

	wg.Wait()
	close(idChan)

	seen := make(map[string]bool)
	for id := range idChan {
		if seen[id] {
			t.Errorf("Duplicate ID found in concurrent generation: %s", id)
		}
		seen[id] = true
	}

	if len(seen) != goroutines*idsPerGoroutine {
		t.Errorf("Expected %d unique IDs, got %d", goroutines*idsPerGoroutine, len(seen))
	}
}

func TestMonotonicWithinMillisecond(t *testing.T) {
	gen := NewGenerator()

	prev := gen.GenerateString()
	for i := 0; i < 100; i++ {
		next := gen.GenerateString()
		if next <= prev {
			t.Errorf("IDs should be strictly increasing: %s should be > %s", next, prev)
		}
		prev = next
	}
}

func BenchmarkGenerateWithPrefix(b *testing.B) {
	gen := NewGenerator()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = gen.GenerateWithPrefix(NodePrefix)
	}
}

func BenchmarkDeterministicNodeID(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_ = DeterministicNodeID("trace", "span")
	}
}
