// File: internal/capture/tailer.go
package capture

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/hpcloud/tail"
	"go.uber.org/zap"
)

// errorLineRegex gates which tailed lines are worth classifying at all.
// Lines that pass still go through the full signal rule set.
var errorLineRegex = regexp.MustCompile(`(?i)error|panic:|fatal|exception|denied|not found|ECONN|ENOENT|ETIMEDOUT`)

// Tailer follows an agent log file and feeds matching error lines into the
// capture pipeline. Duplicate hashes within the dedup window are dropped at
// ingest so a crash-looping tool does not flood the store.
type Tailer struct {
	capture     *Capture
	path        string
	dedupWindow int // minutes
	log         *zap.Logger
}

// NewTailer creates a Tailer for the given log file.
func NewTailer(capture *Capture, path string, dedupWindowMinutes int, logger *zap.Logger) (*Tailer, error) {
	if path == "" {
		return nil, fmt.Errorf("tail file path must not be empty")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tailer{
		capture:     capture,
		path:        path,
		dedupWindow: dedupWindowMinutes,
		log:         logger.Named("tailer"),
	}, nil
}

// Run tails the log file until the context is canceled. Only new lines are
// observed; history before startup is skipped.
func (t *Tailer) Run(ctx context.Context) error {
	tf, err := tail.TailFile(t.path, tail.Config{
		Follow:    true,
		ReOpen:    true,
		MustExist: false,
		Location:  &tail.SeekInfo{Offset: 0, Whence: 2},
		Logger:    tail.DiscardingLogger,
	})
	if err != nil {
		return fmt.Errorf("failed to tail log file %s: %w", t.path, err)
	}
	defer func() {
		tf.Stop()
		tf.Cleanup()
	}()

	t.log.Info("Following agent log for failures", zap.String("path", t.path))

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-tf.Lines:
			if !ok {
				return nil
			}
			if line.Err != nil {
				t.log.Warn("Tail read error", zap.Error(line.Err))
				continue
			}
			t.ingest(line.Text)
		}
	}
}

func (t *Tailer) ingest(text string) {
	if !errorLineRegex.MatchString(text) {
		return
	}

	signals, _ := extractSignals(text, "")
	if len(signals) == 1 && signals[0] == SignalUnknown {
		// An "error"-looking line with no classifiable signal is noise here;
		// direct Capture calls still record such events.
		return
	}

	hash := DedupHash(text, signals)
	if dup, err := t.capture.IsDuplicateError(hash, t.dedupWindow); err == nil && dup {
		t.log.Debug("Skipping duplicate tailed failure", zap.String("hash", hash))
		return
	}

	t.capture.Capture(Input{
		Message: text,
		Context: map[string]string{
			"source":   "log_tail",
			"log_file": t.path,
			"seen_at":  time.Now().UTC().Format(time.RFC3339),
		},
	})
}
