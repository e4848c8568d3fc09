// File: api/schemas/interfaces.go
package schemas

import (
	"context"
	"encoding/json"
)

// HubClient is the contract for the remote marketplace. Both operations are
// best-effort from the pipeline's point of view: callers must treat any error
// as a degraded-but-normal condition, never as a cycle failure.
type HubClient interface {
	// FetchCandidates queries the hub for capsules repairing the given signals.
	FetchCandidates(ctx context.Context, signals []string) ([]RemoteCandidate, error)

	// PublishAssets submits a gene/capsule/event bundle to the hub.
	PublishAssets(ctx context.Context, assets []json.RawMessage) error
}

// CommandRunner abstracts shell command execution so repair strategies can be
// tested without touching the host.
type CommandRunner interface {
	// Run executes a shell command in dir (empty means the process cwd) and
	// returns its combined output. A non-zero exit is returned as an error.
	Run(ctx context.Context, command, dir string) (string, error)
}
