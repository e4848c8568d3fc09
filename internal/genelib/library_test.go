// File: internal/genelib/library_test.go
package genelib

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/evomap/remedy-cli/api/schemas"
	"github.com/evomap/remedy-cli/internal/assetid"
	"github.com/evomap/remedy-cli/internal/capture"
	"github.com/evomap/remedy-cli/internal/store"
)

// fakeHub is a scriptable HubClient for tests; no network involved.
type fakeHub struct {
	candidates []schemas.RemoteCandidate
	err        error
	published  [][]json.RawMessage
}

func (f *fakeHub) FetchCandidates(ctx context.Context, signals []string) ([]schemas.RemoteCandidate, error) {
	return f.candidates, f.err
}

func (f *fakeHub) PublishAssets(ctx context.Context, assets []json.RawMessage) error {
	f.published = append(f.published, assets)
	return f.err
}

func newTestStore(t *testing.T) *store.FileStore {
	t.Helper()
	st, err := store.Open(t.TempDir(), 24*time.Hour, zaptest.NewLogger(t))
	require.NoError(t, err)
	return st
}

func TestSeedBuiltinsIsIdempotent(t *testing.T) {
	st := newTestStore(t)
	lib := New(st, nil, zaptest.NewLogger(t))

	added, err := lib.SeedBuiltins()
	require.NoError(t, err)
	assert.Equal(t, len(builtinGenes()), added)

	again, err := lib.SeedBuiltins()
	require.NoError(t, err)
	assert.Zero(t, again, "seeding twice must not duplicate genes")

	count, err := st.CountGenes()
	require.NoError(t, err)
	assert.Equal(t, len(builtinGenes()), count)
}

func TestMatchScoreIsSignalFraction(t *testing.T) {
	st := newTestStore(t)
	lib := New(st, nil, zaptest.NewLogger(t))

	gene := schemas.Gene{
		Category:     schemas.CategoryRepair,
		SignalsMatch: []string{"A", "B", "C"},
		Summary:      "three-signal gene",
	}
	id, err := assetid.Compute(gene)
	require.NoError(t, err)
	gene.AssetID = id
	_, err = st.SaveGene(gene)
	require.NoError(t, err)

	result, err := lib.Match(context.Background(), []string{"A", "B"})
	require.NoError(t, err)
	require.True(t, result.Found)
	assert.InDelta(t, 2.0/3.0, result.Best.MatchScore, 1e-9)
	assert.Equal(t, []string{"A", "B"}, result.Best.MatchedSignals)
	assert.Equal(t, SourceLocal, result.Best.Source)
}

func TestMatchNotFoundOnEmptyCatalog(t *testing.T) {
	lib := New(newTestStore(t), nil, zaptest.NewLogger(t))

	result, err := lib.Match(context.Background(), []string{"NothingMatchesThis"})
	require.NoError(t, err)
	assert.False(t, result.Found)
	assert.Nil(t, result.Best)
	assert.Zero(t, result.TotalMatches)
}

func TestMatchMergesRemoteCandidates(t *testing.T) {
	st := newTestStore(t)
	hub := &fakeHub{candidates: []schemas.RemoteCandidate{
		{
			AssetID:      "sha256:remote1",
			Summary:      "remote capsule",
			SignalsMatch: []string{capture.SignalTimeout},
			QualityScore: 95,
		},
	}}
	lib := New(st, hub, zaptest.NewLogger(t))
	_, err := lib.SeedBuiltins()
	require.NoError(t, err)

	// Local transient-network gene scores 1/3 on a single timeout signal, so
	// the remote candidate at 0.95 must win.
	result, err := lib.Match(context.Background(), []string{capture.SignalTimeout})
	require.NoError(t, err)
	require.True(t, result.Found)
	assert.Equal(t, SourceRemote, result.Best.Source)
	assert.InDelta(t, 0.95, result.Best.MatchScore, 1e-9)
	assert.Equal(t, 2, result.TotalMatches)
	require.Len(t, result.Alternatives, 1)
	assert.Equal(t, SourceLocal, result.Alternatives[0].Source)
}

func TestMatchSwallowsRemoteErrors(t *testing.T) {
	st := newTestStore(t)
	hub := &fakeHub{err: errors.New("hub unreachable")}
	lib := New(st, hub, zaptest.NewLogger(t))
	_, err := lib.SeedBuiltins()
	require.NoError(t, err)

	result, err := lib.Match(context.Background(), []string{capture.SignalCommandNotFound})
	require.NoError(t, err, "remote failures must never propagate")
	require.True(t, result.Found)
	assert.Equal(t, SourceLocal, result.Best.Source)
}

func TestMatchCapsAlternatives(t *testing.T) {
	st := newTestStore(t)
	lib := New(st, nil, zaptest.NewLogger(t))

	for i := 0; i < 6; i++ {
		g := schemas.Gene{
			Category:     schemas.CategoryRepair,
			SignalsMatch: []string{"X"},
			Summary:      string(rune('a' + i)),
		}
		id, err := assetid.Compute(g)
		require.NoError(t, err)
		g.AssetID = id
		_, err = st.SaveGene(g)
		require.NoError(t, err)
	}

	result, err := lib.Match(context.Background(), []string{"X"})
	require.NoError(t, err)
	require.True(t, result.Found)
	assert.Equal(t, 6, result.TotalMatches)
	assert.Len(t, result.Alternatives, maxAlternatives)
}
