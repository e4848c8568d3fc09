// File: internal/orchestrator/orchestrator.go

// Package orchestrator drives full remediation cycles: scan recent failures,
// dedup, match, fix, validate, update the streak, publish. Failures are
// processed strictly sequentially; repair strategies mutate shared host
// resources and must never run concurrently. Nothing in a cycle is allowed to
// crash the loop: every component error is folded into a logged negative
// outcome for that failure.
package orchestrator

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/evomap/remedy-cli/api/schemas"
	"github.com/evomap/remedy-cli/internal/capture"
	"github.com/evomap/remedy-cli/internal/config"
	"github.com/evomap/remedy-cli/internal/fixengine"
	"github.com/evomap/remedy-cli/internal/genelib"
	"github.com/evomap/remedy-cli/internal/publisher"
	"github.com/evomap/remedy-cli/internal/store"
	"github.com/evomap/remedy-cli/internal/validator"
)

// Orchestrator owns one full remediation pipeline.
type Orchestrator struct {
	capture   *capture.Capture
	library   *genelib.Library
	engine    *fixengine.Engine
	streak    *validator.StreakTracker
	publisher *publisher.Publisher
	store     *store.FileStore
	runner    schemas.CommandRunner
	cfg       config.Interface
	log       *zap.Logger

	cycleCount int
}

// New wires an Orchestrator from its collaborators.
func New(
	cap *capture.Capture,
	library *genelib.Library,
	engine *fixengine.Engine,
	streak *validator.StreakTracker,
	pub *publisher.Publisher,
	st *store.FileStore,
	runner schemas.CommandRunner,
	cfg config.Interface,
	logger *zap.Logger,
) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		capture:   cap,
		library:   library,
		engine:    engine,
		streak:    streak,
		publisher: pub,
		store:     st,
		runner:    runner,
		cfg:       cfg,
		log:       logger.Named("orchestrator"),
	}
}

// RunCycle executes one full pass over the recent failure window and persists
// a summary. The returned error covers infrastructure problems only (the
// store being unreadable); individual repair failures never surface here.
func (o *Orchestrator) RunCycle(ctx context.Context) (schemas.CycleSummary, error) {
	start := time.Now()
	o.cycleCount++
	summary := schemas.CycleSummary{Timestamp: start.UTC()}

	failures, err := o.capture.RecentFailures(o.cfg.Capture().LookbackMinutes)
	if err != nil {
		o.log.Error("Failed to scan recent failures", zap.Error(err))
		return summary, err
	}

	o.log.Info("Cycle started",
		zap.Int("cycle", o.cycleCount),
		zap.Int("recent_failures", len(failures)),
	)

	// In-cycle dedup: failures sharing a hash are processed once per cycle.
	seen := make(map[string]bool)
	for _, ev := range failures {
		if seen[ev.Hash] {
			continue
		}
		seen[ev.Hash] = true
		o.processFailure(ctx, ev, &summary)
	}

	summary.DurationMS = time.Since(start).Milliseconds()
	if err := o.store.SaveCycleSummary(summary); err != nil {
		o.log.Warn("Failed to persist cycle summary", zap.Error(err))
	}
	if err := o.store.Prune(time.Now()); err != nil {
		o.log.Warn("Store pruning failed", zap.Error(err))
	}

	o.log.Info("Cycle finished",
		zap.Int("errors_found", summary.ErrorsFound),
		zap.Int("genes_matched", summary.GenesMatched),
		zap.Int("fixes_applied", summary.FixesApplied),
		zap.Int("fixes_successful", summary.FixesSuccessful),
		zap.Int("capsules_published", summary.CapsulesPublished),
		zap.Int64("duration_ms", summary.DurationMS),
	)
	return summary, nil
}

// processFailure walks one failure through match, fix, validate, streak and
// publish. Every stage converts its errors into a terminal state for this
// failure; the cycle always moves on to the next one.
func (o *Orchestrator) processFailure(ctx context.Context, ev schemas.FailureEvent, summary *schemas.CycleSummary) {
	summary.ErrorsFound++
	log := o.log.With(zap.String("hash", ev.Hash), zap.Strings("signals", ev.Signals))

	match, err := o.library.Match(ctx, ev.Signals)
	if err != nil {
		log.Error("Gene matching failed", zap.Error(err))
		return
	}
	if !match.Found {
		log.Info("No gene matches this failure; recorded and skipped")
		return
	}
	summary.GenesMatched++
	gene := match.Best.Gene
	log = log.With(zap.String("gene", gene.AssetID))
	log.Debug("Gene matched",
		zap.Float64("score", match.Best.MatchScore),
		zap.String("source", match.Best.Source),
		zap.Int("total_matches", match.TotalMatches),
	)

	fix := o.engine.Apply(ctx, gene, ev)
	summary.FixesApplied++

	validation := validator.ValidateFix(ctx, fix, o.validationFor(gene, ev))
	success := fix.Success && validation.Valid

	newStreak, err := o.streak.Update(success)
	if err != nil {
		log.Warn("Failed to update success streak", zap.Error(err))
	}

	if !success {
		log.Info("Repair unsuccessful",
			zap.Bool("fix_success", fix.Success),
			zap.String("validation_reason", validation.Reason),
			zap.String("fix_error", fix.Error),
		)
		return
	}
	summary.FixesSuccessful++

	receipt, err := o.publisher.Publish(ctx, fix, ev, gene, newStreak, o.cycleCount)
	if err != nil {
		log.Error("Failed to build publish bundle", zap.Error(err))
		return
	}
	if receipt.Published {
		summary.CapsulesPublished++
	}
	log.Info("Repair completed",
		zap.String("method", fix.Method),
		zap.Int("streak", newStreak),
		zap.String("capsule", receipt.CapsuleID),
		zap.Bool("published", receipt.Published),
	)
}

// validationFor returns the gene's validation-command check when enabled,
// otherwise nil so the default validation rules apply.
func (o *Orchestrator) validationFor(gene schemas.Gene, ev schemas.FailureEvent) validator.Func {
	if !o.cfg.Engine().RunValidationCommands || len(gene.Validation) == 0 {
		return nil
	}
	return validator.CommandValidation(o.runner, gene.Validation, ev.Context[schemas.ContextCwd], o.log)
}

// RunLoop runs cycles at the given interval until the context is canceled.
// Cancellation stops the scheduling of new cycles; the in-flight cycle always
// finishes, since strategies alter host state and must not be abandoned
// half-applied.
func (o *Orchestrator) RunLoop(ctx context.Context, interval time.Duration) error {
	for {
		if ctx.Err() != nil {
			return nil
		}

		if _, err := o.RunCycle(context.WithoutCancel(ctx)); err != nil {
			o.log.Error("Cycle failed; will retry next interval", zap.Error(err))
		}

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			o.log.Info("Shutdown requested; remediation loop stopped")
			return nil
		case <-timer.C:
		}
	}
}
