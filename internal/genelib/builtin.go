// File: internal/genelib/builtin.go
package genelib

import (
	"github.com/evomap/remedy-cli/api/schemas"
	"github.com/evomap/remedy-cli/internal/capture"
)

// Strategy kinds understood by the local fix engine. Genes declare one of
// these in their strategy list; anything else means no local strategy exists.
const (
	StrategyRetryBackoff = "retry_backoff"
	StrategyInstallTool  = "install_tool"
	StrategyFixPerms     = "fix_permissions"
	StrategyRepairJSON   = "repair_json"
	StrategyEnsurePath   = "ensure_path"
)

// builtinGenes returns the seed catalog without asset ids; ids are computed
// from content at seed time so identical genes always share an id.
func builtinGenes() []schemas.Gene {
	return []schemas.Gene{
		{
			Category:     schemas.CategoryRepair,
			SignalsMatch: []string{capture.SignalConnReset, capture.SignalTimeout, capture.SignalRateLimit},
			Summary:      "Retry the failing command with exponential backoff after a transient network error.",
			Strategy:     []string{StrategyRetryBackoff},
			Constraints:  map[string]any{"max_retries": 3, "side_effects": "reruns original command"},
		},
		{
			Category:     schemas.CategoryRepair,
			SignalsMatch: []string{capture.SignalCommandNotFound},
			Summary:      "Install a missing CLI tool via the first available package manager.",
			Strategy:     []string{StrategyInstallTool},
			Constraints:  map[string]any{"side_effects": "installs packages on host"},
		},
		{
			Category:     schemas.CategoryRepair,
			SignalsMatch: []string{capture.SignalPermissionDenied},
			Summary:      "Restore owner read/write/execute permissions on the denied path.",
			Strategy:     []string{StrategyFixPerms},
			Constraints:  map[string]any{"side_effects": "chmod on host path"},
		},
		{
			Category:     schemas.CategoryRepair,
			SignalsMatch: []string{capture.SignalJSONParse},
			Summary:      "Reparse malformed JSON after stripping trailing commas and normalizing quotes.",
			Strategy:     []string{StrategyRepairJSON},
			Constraints:  map[string]any{"side_effects": "none"},
		},
		{
			Category:     schemas.CategoryRepair,
			SignalsMatch: []string{capture.SignalFileNotFound},
			Summary:      "Create the missing file or directory referenced by the failure.",
			Strategy:     []string{StrategyEnsurePath},
			Constraints:  map[string]any{"side_effects": "creates paths on host"},
		},
	}
}
