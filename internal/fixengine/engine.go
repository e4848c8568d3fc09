// File: internal/fixengine/engine.go

// Package fixengine executes repair strategies against captured failures.
// Dispatch is a closed set of Strategy implementations registered per gene;
// the engine itself never panics or returns an error to the orchestrator,
// every failure mode is folded into the FixResult.
package fixengine

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/evomap/remedy-cli/api/schemas"
	"github.com/evomap/remedy-cli/internal/config"
)

// ErrNoLocalStrategy is the FixResult error reported for genes with no
// registered local strategy (typically remotely sourced ones). Executing
// untrusted remote strategy content is out of the question.
const ErrNoLocalStrategy = "no_local_strategy"

// Engine dispatches genes to their registered strategies.
type Engine struct {
	byGene map[string]Strategy
	byKind map[string]Strategy
	log    *zap.Logger
}

// New creates an Engine with the built-in strategy set, configured from the
// engine section of the application config.
func New(runner schemas.CommandRunner, cfg config.EngineConfig, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}

	policy := Policy{
		Base:   cfg.BaseDelay,
		Max:    cfg.MaxDelay,
		Jitter: cfg.BaseDelay / 2,
	}

	e := &Engine{
		byGene: make(map[string]Strategy),
		byKind: make(map[string]Strategy),
		log:    logger.Named("fixengine"),
	}

	for _, s := range []Strategy{
		&RetryStrategy{Runner: runner, Policy: policy, MaxRetries: cfg.MaxRetries},
		&InstallToolStrategy{Runner: runner},
		&FixPermissionsStrategy{Runner: runner},
		&RepairJSONStrategy{},
		&EnsurePathStrategy{Runner: runner},
	} {
		e.byKind[s.Kind()] = s
	}
	return e
}

// RegisterCatalog binds every gene that declares a known strategy kind to the
// corresponding implementation. Genes with unknown or missing kinds stay
// unbound and will report no_local_strategy when applied.
func (e *Engine) RegisterCatalog(genes []schemas.Gene) {
	for _, g := range genes {
		if g.AssetID == "" {
			continue
		}
		if s, ok := e.byKind[g.StrategyKind()]; ok {
			e.byGene[g.AssetID] = s
		}
	}
}

// Apply executes the strategy registered for the gene. It always returns a
// complete FixResult and never propagates errors or panics.
func (e *Engine) Apply(ctx context.Context, gene schemas.Gene, event schemas.FailureEvent) schemas.FixResult {
	start := time.Now()
	result := schemas.FixResult{
		GeneID:    gene.AssetID,
		Timestamp: start.UTC(),
	}

	strategy, ok := e.byGene[gene.AssetID]
	if !ok {
		result.Error = ErrNoLocalStrategy
		result.DurationMS = time.Since(start).Milliseconds()
		e.log.Info("No local strategy for gene",
			zap.String("gene", gene.AssetID),
			zap.String("kind", gene.StrategyKind()),
		)
		return result
	}

	outcome, err := e.execute(ctx, strategy, event)
	result.Attempts = outcome.Attempts
	result.DurationMS = time.Since(start).Milliseconds()

	if err != nil {
		result.Error = err.Error()
		e.log.Warn("Fix strategy failed",
			zap.String("gene", gene.AssetID),
			zap.String("kind", strategy.Kind()),
			zap.Int("attempts", outcome.Attempts),
			zap.Error(err),
		)
		return result
	}

	result.Success = true
	result.Method = outcome.Method
	result.Output = outcome.Output
	e.log.Info("Fix strategy succeeded",
		zap.String("gene", gene.AssetID),
		zap.String("method", outcome.Method),
		zap.Int("attempts", outcome.Attempts),
		zap.Int64("duration_ms", result.DurationMS),
	)
	return result
}

// execute wraps a strategy call, converting panics into plain errors.
func (e *Engine) execute(ctx context.Context, s Strategy, event schemas.FailureEvent) (outcome Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("strategy %s panicked: %v", s.Kind(), r)
		}
	}()
	return s.Execute(ctx, event)
}
