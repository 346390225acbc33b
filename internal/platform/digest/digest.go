package digest

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/gowebpki/jcs"
)

// Canonical returns the RFC 8785 (JCS) canonical form of JSON input.
func Canonical(input []byte) ([]byte, error) {
	return jcs.Transform(input)
}

// Of marshals v, canonicalizes it and returns a sha256 hex digest, so that
// equal values produce equal keys regardless of field order.
func Of(v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("marshal digest input: %w", err)
	}
	canonical, err := Canonical(raw)
	if err != nil {
		return "", fmt.Errorf("canonicalize digest input: %w", err)
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}
