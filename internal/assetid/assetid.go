// File: internal/assetid/assetid.go

// Package assetid implements the content-addressing scheme shared by genes,
// capsules and evolution events. An asset id is the SHA-256 of an object's
// canonical JSON form, excluding the id field itself, so identical logical
// content always yields the same id regardless of field insertion order.
package assetid

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	jsoniter "github.com/json-iterator/go"
)

// Prefix marks every asset id produced by this scheme.
const Prefix = "sha256:"

// ConfigCompatibleWithStandardLibrary sorts map keys, which is what makes the
// re-marshaled form canonical.
var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Canonical serializes v with sorted keys and the asset_id field removed.
func Canonical(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal asset: %w", err)
	}

	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("failed to normalize asset: %w", err)
	}
	if m, ok := decoded.(map[string]any); ok {
		delete(m, "asset_id")
	}

	canonical, err := json.Marshal(decoded)
	if err != nil {
		return nil, fmt.Errorf("failed to canonicalize asset: %w", err)
	}
	return canonical, nil
}

// Compute returns the "sha256:"-prefixed content hash of v's canonical form.
func Compute(v any) (string, error) {
	canonical, err := Canonical(v)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(canonical)
	return Prefix + hex.EncodeToString(sum[:]), nil
}

// Hex strips the scheme prefix, leaving the bare hash. Useful for filenames.
func Hex(assetID string) string {
	if len(assetID) > len(Prefix) && assetID[:len(Prefix)] == Prefix {
		return assetID[len(Prefix):]
	}
	return assetID
}
