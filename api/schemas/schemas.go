// File: api/schemas/schemas.go
package schemas

import "time"

// Severity classifies how urgent a captured failure is.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// GeneCategory describes the broad intent of a repair strategy.
type GeneCategory string

const (
	CategoryRepair   GeneCategory = "repair"
	CategoryOptimize GeneCategory = "optimize"
	CategoryInnovate GeneCategory = "innovate"
)

// Well-known context keys on a FailureEvent.
const (
	ContextTool    = "tool"
	ContextCommand = "command"
	ContextCwd     = "cwd"
	ContextPath    = "path"
	ContextRawJSON = "raw_json"
)

// FailureEvent is the structured form of one observed tool or command failure.
// Events are immutable once captured and are persisted one file per event.
type FailureEvent struct {
	Timestamp  time.Time         `json:"timestamp"`
	Signals    []string          `json:"signals"`
	Categories []string          `json:"categories"`
	ErrorText  string            `json:"error_text"`
	Context    map[string]string `json:"context,omitempty"`
	Severity   Severity          `json:"severity"`
	Hash       string            `json:"hash"`
}

// Gene is a content-addressed repair strategy descriptor. A Gene is never
// mutated after creation; changed content means a new Gene with a new AssetID.
type Gene struct {
	AssetID      string         `json:"asset_id,omitempty"`
	Category     GeneCategory   `json:"category"`
	SignalsMatch []string       `json:"signals_match"`
	Summary      string         `json:"summary"`
	Validation   []string       `json:"validation,omitempty"`
	Constraints  map[string]any `json:"constraints,omitempty"`
	Strategy     []string       `json:"strategy,omitempty"`
}

// StrategyKind returns the declared strategy kind of the gene, or "" when the
// gene carries none (typical for remotely sourced genes).
func (g Gene) StrategyKind() string {
	if len(g.Strategy) == 0 {
		return ""
	}
	return g.Strategy[0]
}

// FixResult is the ephemeral outcome of one strategy execution. It is never
// persisted on its own, only embedded in a published bundle.
type FixResult struct {
	Success    bool      `json:"success"`
	Method     string    `json:"method,omitempty"`
	Attempts   int       `json:"attempts"`
	DurationMS int64     `json:"duration_ms"`
	GeneID     string    `json:"gene_id"`
	Timestamp  time.Time `json:"timestamp"`
	Output     string    `json:"output,omitempty"`
	Error      string    `json:"error,omitempty"`
}

// BlastRadius estimates how much of the host a fix touched.
type BlastRadius struct {
	Files int `json:"files"`
	Lines int `json:"lines"`
}

// Outcome records the validated result of a fix.
type Outcome struct {
	Status string  `json:"status"`
	Score  float64 `json:"score"`
}

// Capsule is the content-addressed record of one validated fix outcome.
// It references exactly one Gene by asset id.
type Capsule struct {
	AssetID        string      `json:"asset_id,omitempty"`
	Trigger        []string    `json:"trigger"`
	Gene           string      `json:"gene"`
	Summary        string      `json:"summary"`
	Confidence     float64     `json:"confidence"`
	BlastRadius    BlastRadius `json:"blast_radius"`
	Outcome        Outcome     `json:"outcome"`
	EnvFingerprint string      `json:"env_fingerprint"`
	SuccessStreak  int         `json:"success_streak"`
}

// OriginalError ties a lineage record back to the failure that started the cycle.
type OriginalError struct {
	Signals []string `json:"signals"`
	Hash    string   `json:"hash"`
}

// EvolutionEvent is the audit record linking a Capsule to the Genes used and
// the originating failure.
type EvolutionEvent struct {
	AssetID        string        `json:"asset_id,omitempty"`
	Intent         string        `json:"intent"`
	CapsuleID      string        `json:"capsule_id"`
	GenesUsed      []string      `json:"genes_used"`
	Outcome        string        `json:"outcome"`
	MutationsTried int           `json:"mutations_tried"`
	TotalCycles    int           `json:"total_cycles"`
	OriginalError  OriginalError `json:"original_error"`
}

// StreakState is the persisted count of consecutive successful repair cycles.
type StreakState struct {
	Streak     int       `json:"streak"`
	LastUpdate time.Time `json:"last_update"`
}

// CycleSummary aggregates the counters of one orchestrator cycle.
type CycleSummary struct {
	Timestamp         time.Time `json:"timestamp"`
	ErrorsFound       int       `json:"errors_found"`
	GenesMatched      int       `json:"genes_matched"`
	FixesApplied      int       `json:"fixes_applied"`
	FixesSuccessful   int       `json:"fixes_successful"`
	CapsulesPublished int       `json:"capsules_published"`
	DurationMS        int64     `json:"duration_ms"`
}
