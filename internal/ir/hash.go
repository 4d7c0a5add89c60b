package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainComposition = "scenecast/composition/v1"
	DomainTrace       = "scenecast/trace/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte (0x00) separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// CompositionHash computes the content hash of a resolved composition.
// Two resolutions of the same markup produce the same hash, which is how
// idempotent re-resolution is checked and how trace sessions are tied to
// the composition they played.
func CompositionHash(c *Composition) (string, error) {
	unhashed := *c
	unhashed.Hash = ""
	canonical, err := MarshalCanonical(&unhashed)
	if err != nil {
		return "", fmt.Errorf("CompositionHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainComposition, canonical), nil
}

// TraceHash computes the content hash of any trace snapshot. Replays of the
// same scenario must produce the same hash.
func TraceHash(v any) (string, error) {
	canonical, err := MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("TraceHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainTrace, canonical), nil
}
