// File: internal/fixengine/runner_test.go
package fixengine

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestExecRunner(t *testing.T) {
	r := NewExecRunner(5*time.Second, zaptest.NewLogger(t))
	ctx := context.Background()

	t.Run("captures combined output", func(t *testing.T) {
		out, err := r.Run(ctx, "echo hello", "")
		require.NoError(t, err)
		assert.Equal(t, "hello\n", out)
	})

	t.Run("runs in the given directory", func(t *testing.T) {
		dir := t.TempDir()
		out, err := r.Run(ctx, "pwd", dir)
		require.NoError(t, err)
		assert.Contains(t, out, filepath.Base(dir))
	})

	t.Run("reports failing commands with output", func(t *testing.T) {
		_, err := r.Run(ctx, "echo boom >&2; exit 3", "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "boom")
	})

	t.Run("enforces the timeout", func(t *testing.T) {
		short := NewExecRunner(50*time.Millisecond, zaptest.NewLogger(t))
		start := time.Now()
		_, err := short.Run(ctx, "sleep 5", "")
		require.Error(t, err)
		assert.Less(t, time.Since(start), 2*time.Second)
	})
}
