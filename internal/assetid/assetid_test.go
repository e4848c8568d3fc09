// File: internal/assetid/assetid_test.go
package assetid

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evomap/remedy-cli/api/schemas"
)

func TestComputeIsDeterministic(t *testing.T) {
	gene := schemas.Gene{
		Category:     schemas.CategoryRepair,
		SignalsMatch: []string{"TimeoutError", "ECONNRESET"},
		Summary:      "Retry with backoff.",
		Strategy:     []string{"retry_backoff"},
	}

	first, err := Compute(gene)
	require.NoError(t, err)
	second, err := Compute(gene)
	require.NoError(t, err)

	assert.Equal(t, first, second, "identical content must yield identical ids")
	assert.True(t, strings.HasPrefix(first, Prefix))
	assert.Len(t, first, len(Prefix)+64, "id should carry a full sha256 hex digest")
}

func TestComputeIgnoresKeyInsertionOrder(t *testing.T) {
	// Maps exercise the canonicalization directly: jsoniter marshals map keys
	// sorted, so these two spellings of the same object must collide.
	a := map[string]any{"summary": "x", "category": "repair", "score": 1.0}
	b := map[string]any{"score": 1.0, "category": "repair", "summary": "x"}

	idA, err := Compute(a)
	require.NoError(t, err)
	idB, err := Compute(b)
	require.NoError(t, err)
	assert.Equal(t, idA, idB)
}

func TestComputeExcludesAssetID(t *testing.T) {
	without := schemas.Gene{Category: schemas.CategoryRepair, SignalsMatch: []string{"A"}, Summary: "s"}
	with := without
	id, err := Compute(without)
	require.NoError(t, err)
	with.AssetID = id

	again, err := Compute(with)
	require.NoError(t, err)
	assert.Equal(t, id, again, "an embedded asset_id must not feed its own hash")
}

func TestComputeDiffersOnContent(t *testing.T) {
	a := schemas.Gene{Category: schemas.CategoryRepair, SignalsMatch: []string{"A"}, Summary: "s"}
	b := a
	b.Summary = "t"

	idA, err := Compute(a)
	require.NoError(t, err)
	idB, err := Compute(b)
	require.NoError(t, err)
	assert.NotEqual(t, idA, idB)
}

func TestHex(t *testing.T) {
	assert.Equal(t, "abc123", Hex("sha256:abc123"))
	assert.Equal(t, "abc123", Hex("abc123"))
}
