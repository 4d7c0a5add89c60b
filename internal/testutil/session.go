package testutil

// FixedSessionGenerator generates the same session id every time.
//
// This enables deterministic test execution and golden trace comparison.
// The same scenario with the same FixedSessionGenerator records
// byte-identical traces.
//
// Unlike engine.FixedGenerator which returns ids in sequence, this generator
// always returns the same id.
//
// Thread-safety: FixedSessionGenerator is stateless and safe for concurrent
// use.
type FixedSessionGenerator struct {
	id string
}

// NewFixedSessionGenerator creates a new fixed session id generator.
//
// The id is typically set in the scenario YAML:
//
//	session: "session-0001"
//
// If id is empty, Generate() returns "test-session".
func NewFixedSessionGenerator(id string) *FixedSessionGenerator {
	if id == "" {
		id = "test-session"
	}
	return &FixedSessionGenerator{id: id}
}

// Generate returns the fixed session id.
//
// Implements engine.SessionIDGenerator.
func (g *FixedSessionGenerator) Generate() string {
	return g.id
}
