// File: internal/fixengine/runner.go
package fixengine

import (
	"context"
	"fmt"
	"os/exec"
	"time"

	"go.uber.org/zap"

	"github.com/evomap/remedy-cli/api/schemas"
)

// ExecRunner runs shell commands on the host with a per-command timeout.
type ExecRunner struct {
	timeout time.Duration
	log     *zap.Logger
}

var _ schemas.CommandRunner = (*ExecRunner)(nil)

// NewExecRunner creates a runner with the given per-command timeout.
func NewExecRunner(timeout time.Duration, logger *zap.Logger) *ExecRunner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExecRunner{
		timeout: timeout,
		log:     logger.Named("runner"),
	}
}

// Run executes command through the shell in dir and returns combined output.
func (r *ExecRunner) Run(ctx context.Context, command, dir string) (string, error) {
	cctx := ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		cctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	r.log.Debug("Executing repair command", zap.String("command", command), zap.String("dir", dir))

	cmd := exec.CommandContext(cctx, "sh", "-c", command)
	if dir != "" {
		cmd.Dir = dir
	}
	out, err := cmd.CombinedOutput()
	if err != nil {
		return string(out), fmt.Errorf("command failed: %w: %s", err, truncateOutput(string(out)))
	}
	return string(out), nil
}

func truncateOutput(s string) string {
	const max = 300
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
