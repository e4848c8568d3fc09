// File: internal/validator/validator_test.go
package validator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/evomap/remedy-cli/api/schemas"
	"github.com/evomap/remedy-cli/internal/store"
)

type scriptedRunner struct {
	failing map[string]bool
	calls   []string
}

func (r *scriptedRunner) Run(ctx context.Context, command, dir string) (string, error) {
	r.calls = append(r.calls, command)
	if r.failing[command] {
		return "", errors.New("exit status 1")
	}
	return "", nil
}

func TestValidateFix(t *testing.T) {
	ctx := context.Background()

	t.Run("failed fixes are never valid", func(t *testing.T) {
		v := ValidateFix(ctx, schemas.FixResult{Success: false}, func(context.Context, schemas.FixResult) bool { return true })
		assert.False(t, v.Valid)
		assert.Equal(t, ReasonFixFailed, v.Reason)
	})

	t.Run("custom check is authoritative", func(t *testing.T) {
		v := ValidateFix(ctx, schemas.FixResult{Success: true}, func(context.Context, schemas.FixResult) bool { return false })
		assert.False(t, v.Valid)
		assert.Equal(t, ReasonRejected, v.Reason)

		v = ValidateFix(ctx, schemas.FixResult{Success: true}, func(context.Context, schemas.FixResult) bool { return true })
		assert.True(t, v.Valid)
		assert.Equal(t, ReasonValidated, v.Reason)
	})

	t.Run("default rejects results with recorded errors", func(t *testing.T) {
		v := ValidateFix(ctx, schemas.FixResult{Success: true, Error: "partial failure"}, nil)
		assert.False(t, v.Valid)
		assert.Equal(t, ReasonErrorPresent, v.Reason)
	})

	t.Run("default accepts clean successes", func(t *testing.T) {
		v := ValidateFix(ctx, schemas.FixResult{Success: true}, nil)
		assert.True(t, v.Valid)
		assert.Equal(t, ReasonValidated, v.Reason)
	})
}

func TestCommandValidation(t *testing.T) {
	ctx := context.Background()

	t.Run("nil for empty command lists", func(t *testing.T) {
		assert.Nil(t, CommandValidation(&scriptedRunner{}, nil, "", zaptest.NewLogger(t)))
	})

	t.Run("all commands must pass", func(t *testing.T) {
		runner := &scriptedRunner{}
		fn := CommandValidation(runner, []string{"jq --version", "  ", "true"}, "/tmp", zaptest.NewLogger(t))
		require.NotNil(t, fn)
		assert.True(t, fn(ctx, schemas.FixResult{}))
		assert.Equal(t, []string{"jq --version", "true"}, runner.calls, "blank commands are skipped")
	})

	t.Run("one failing command rejects", func(t *testing.T) {
		runner := &scriptedRunner{failing: map[string]bool{"false": true}}
		fn := CommandValidation(runner, []string{"true", "false"}, "", zaptest.NewLogger(t))
		assert.False(t, fn(ctx, schemas.FixResult{}))
	})
}

func TestStreakTracker(t *testing.T) {
	st, err := store.Open(t.TempDir(), 24*time.Hour, zaptest.NewLogger(t))
	require.NoError(t, err)
	tracker := NewStreakTracker(st, zaptest.NewLogger(t))

	initial, err := tracker.Current()
	require.NoError(t, err)
	assert.Zero(t, initial.Streak)

	// Streak law: n successes count up, any failure resets to zero.
	for i, want := range []int{1, 2, 3} {
		got, err := tracker.Update(true)
		require.NoError(t, err)
		assert.Equal(t, want, got, "after success %d", i+1)
	}

	got, err := tracker.Update(false)
	require.NoError(t, err)
	assert.Zero(t, got)

	got, err = tracker.Update(true)
	require.NoError(t, err)
	assert.Equal(t, 1, got)

	// State survives a fresh tracker over the same store.
	reopened := NewStreakTracker(st, zaptest.NewLogger(t))
	current, err := reopened.Current()
	require.NoError(t, err)
	assert.Equal(t, 1, current.Streak)
	assert.False(t, current.LastUpdate.IsZero())
}
