// File: internal/capture/tailer_test.go
package capture

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestNewTailerRequiresPath(t *testing.T) {
	c := newTestCapture(t)

	_, err := NewTailer(c, "", 30, zaptest.NewLogger(t))
	assert.Error(t, err)
}

func TestIngestFiltersNoise(t *testing.T) {
	c := newTestCapture(t)
	tailer, err := NewTailer(c, "/var/log/agent.log", 30, zaptest.NewLogger(t))
	require.NoError(t, err)

	tailer.ingest("INFO starting worker pool")              // no error marker
	tailer.ingest("Error: something vague went wrong")      // error marker, no signal
	tailer.ingest("Error: connect ECONNRESET 10.0.0.1:443") // classifiable

	events, err := c.RecentFailures(60)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Contains(t, events[0].Signals, SignalConnReset)
	assert.Equal(t, "log_tail", events[0].Context["source"])
}

func TestIngestDropsDuplicatesWithinWindow(t *testing.T) {
	c := newTestCapture(t)
	tailer, err := NewTailer(c, "/var/log/agent.log", 30, zaptest.NewLogger(t))
	require.NoError(t, err)

	line := "Error: connect ECONNRESET 10.0.0.1:443"
	tailer.ingest(line)
	tailer.ingest(line)

	events, err := c.RecentFailures(60)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestTailerRunCapturesAppendedLines(t *testing.T) {
	c := newTestCapture(t)
	path := filepath.Join(t.TempDir(), "agent.log")
	require.NoError(t, os.WriteFile(path, []byte("old Error: ETIMEDOUT history\n"), 0o644))

	tailer, err := NewTailer(c, path, 30, zaptest.NewLogger(t))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- tailer.Run(ctx) }()

	// Give the tailer time to seek to the end, then append a failure line.
	time.Sleep(200 * time.Millisecond)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString("Error: open /etc/remedy.yaml: permission denied\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	require.Eventually(t, func() bool {
		events, err := c.RecentFailures(60)
		return err == nil && len(events) == 1
	}, 5*time.Second, 50*time.Millisecond, "appended error line was not captured")

	events, err := c.RecentFailures(60)
	require.NoError(t, err)
	assert.Contains(t, events[0].Signals, SignalPermissionDenied,
		"only the appended line is captured, pre-existing history is skipped")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("tailer did not stop after cancellation")
	}
}
