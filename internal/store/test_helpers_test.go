package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/scenecast/internal/engine"
	"github.com/roach88/scenecast/internal/ir"
)

// createTestStore creates a new store in a temp directory for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func f(v float64) *float64 { return &v }

// createTestComposition returns a two-scene composition with typed props.
func createTestComposition() *ir.Composition {
	return &ir.Composition{
		ID:     "demo",
		FPS:    10,
		Width:  1280,
		Height: 720,
		Scenes: []ir.Scene{
			{
				ID: "intro", Start: 0, End: f(2),
				Cues: []ir.Cue{{ID: "hello", Start: 0, End: f(1)}},
				Components: []ir.Component{{
					ID: "title", Type: "TitleCard", Visible: true, Start: 0.5, End: f(1.5),
					Props: ir.Map{"text": ir.String("Hi <there>"), "size": ir.Number(3)},
				}},
			},
			{ID: "outro", Start: 2, End: f(3)},
		},
	}
}

// createTestSession writes a session for comp and returns it.
func createTestSession(t *testing.T, s *Store, id string, comp *ir.Composition) Session {
	t.Helper()
	sess, err := NewSession(id, comp, "main", engine.TimelineOptions{FPS: comp.FPS, Mode: engine.ModeBounded})
	if err != nil {
		t.Fatalf("NewSession() failed: %v", err)
	}
	if err := s.WriteSession(t.Context(), sess); err != nil {
		t.Fatalf("WriteSession() failed: %v", err)
	}
	return sess
}
