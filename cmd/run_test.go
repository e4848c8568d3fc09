// File: cmd/run_test.go
package cmd

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/evomap/remedy-cli/internal/config"
)

func testConfig(t *testing.T) config.Interface {
	t.Helper()
	cfg := config.NewDefaultConfig()
	cfg.SetStoreBaseDir(t.TempDir())
	return cfg
}

func TestBuildPipeline(t *testing.T) {
	p, err := buildPipeline(testConfig(t), zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.NotNil(t, p.store)
	assert.NotNil(t, p.capture)
	assert.NotNil(t, p.library)
	assert.NotNil(t, p.orch)

	// Seeding happens during construction.
	count, err := p.store.CountGenes()
	require.NoError(t, err)
	assert.Greater(t, count, 0)
}

func TestRunOnceOnCleanStore(t *testing.T) {
	err := runOnce(context.Background(), testConfig(t), zaptest.NewLogger(t))
	assert.NoError(t, err, "an empty failure window is not an error")
}

func TestRunStatsOutput(t *testing.T) {
	cfg := testConfig(t)

	var out bytes.Buffer
	require.NoError(t, runStats(cfg, zaptest.NewLogger(t), &out))

	text := out.String()
	assert.Contains(t, text, "success_streak:")
	assert.Contains(t, text, "recent_failures:")
	assert.Contains(t, text, "published_bundles: 0")
	assert.Contains(t, text, "local_genes:")
}

func TestRunSelfTest(t *testing.T) {
	cfg := testConfig(t)

	var out bytes.Buffer
	require.NoError(t, runSelfTest(context.Background(), cfg, zaptest.NewLogger(t), &out))

	text := out.String()
	assert.Contains(t, text, "captured:")
	assert.Contains(t, text, "CommandNotFound")
	assert.Contains(t, text, "match: sha256:", "the synthetic failure must match the install gene")
}
