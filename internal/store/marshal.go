package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/scenecast/internal/ir"
)

// marshalComposition converts a resolved composition to canonical JSON TEXT
// for storage. Uses RFC 8785 canonical JSON so equal compositions store
// byte-identical text.
func marshalComposition(c *ir.Composition) (string, error) {
	data, err := ir.MarshalCanonical(c)
	if err != nil {
		return "", fmt.Errorf("marshal composition: %w", err)
	}
	return string(data), nil
}

// unmarshalComposition parses stored JSON TEXT back into a composition.
// Property bags decode through ir.Map.UnmarshalJSON into typed values.
func unmarshalComposition(data string) (*ir.Composition, error) {
	var c ir.Composition
	if err := json.Unmarshal([]byte(data), &c); err != nil {
		return nil, fmt.Errorf("unmarshal composition: %w", err)
	}
	return &c, nil
}
