// File: cmd/run.go
package cmd

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/evomap/remedy-cli/api/schemas"
	"github.com/evomap/remedy-cli/internal/capture"
	"github.com/evomap/remedy-cli/internal/config"
	"github.com/evomap/remedy-cli/internal/fixengine"
	"github.com/evomap/remedy-cli/internal/genelib"
	"github.com/evomap/remedy-cli/internal/hub"
	"github.com/evomap/remedy-cli/internal/orchestrator"
	"github.com/evomap/remedy-cli/internal/publisher"
	"github.com/evomap/remedy-cli/internal/store"
	"github.com/evomap/remedy-cli/internal/validator"
)

// pipeline bundles the wired collaborators so every CLI mode shares one
// construction path.
type pipeline struct {
	store   *store.FileStore
	capture *capture.Capture
	library *genelib.Library
	orch    *orchestrator.Orchestrator
}

// buildPipeline creates the store, seeds the gene catalog, and wires the full
// remediation pipeline from configuration.
func buildPipeline(cfg config.Interface, logger *zap.Logger) (*pipeline, error) {
	st, err := store.Open(cfg.Store().BaseDir, cfg.Store().Retention, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open local store: %w", err)
	}

	var hubClient schemas.HubClient
	if cfg.Hub().Enabled {
		hubClient = hub.NewClient(cfg.Hub(), logger)
	}

	cap := capture.New(st, logger)
	library := genelib.New(st, hubClient, logger)
	if _, err := library.SeedBuiltins(); err != nil {
		return nil, fmt.Errorf("failed to seed gene catalog: %w", err)
	}

	runner := fixengine.NewExecRunner(cfg.Engine().CommandTimeout, logger)
	engine := fixengine.New(runner, cfg.Engine(), logger)
	genes, err := library.Genes()
	if err != nil {
		return nil, fmt.Errorf("failed to load gene catalog: %w", err)
	}
	engine.RegisterCatalog(genes)

	streak := validator.NewStreakTracker(st, logger)
	pub := publisher.New(st, hubClient, cfg.Publish().DedupWindow, logger)
	orch := orchestrator.New(cap, library, engine, streak, pub, st, runner, cfg, logger)

	return &pipeline{
		store:   st,
		capture: cap,
		library: library,
		orch:    orch,
	}, nil
}

// runOnce executes a single remediation cycle. Individual repair failures do
// not affect the exit code; only an unusable pipeline does.
func runOnce(ctx context.Context, cfg config.Interface, logger *zap.Logger) error {
	p, err := buildPipeline(cfg, logger)
	if err != nil {
		return err
	}
	if _, err := p.orch.RunCycle(ctx); err != nil {
		return fmt.Errorf("remediation cycle failed: %w", err)
	}
	return nil
}

// runLoop runs cycles on the configured interval, alongside the optional
// log-tail capture source, until the context is canceled.
func runLoop(ctx context.Context, cfg config.Interface, logger *zap.Logger) error {
	p, err := buildPipeline(cfg, logger)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	if path := cfg.Capture().TailFile; path != "" {
		tailer, err := capture.NewTailer(p.capture, path, cfg.Capture().DedupWindowMinutes, logger)
		if err != nil {
			return err
		}
		g.Go(func() error { return tailer.Run(gctx) })
	}

	g.Go(func() error { return p.orch.RunLoop(gctx, cfg.Heal().Interval) })
	return g.Wait()
}

// runStats prints streak, recent-failure, bundle and gene counts.
func runStats(cfg config.Interface, logger *zap.Logger, out io.Writer) error {
	p, err := buildPipeline(cfg, logger)
	if err != nil {
		return err
	}

	streak, err := p.store.LoadStreak()
	if err != nil {
		return fmt.Errorf("failed to load streak state: %w", err)
	}
	failures, err := p.capture.RecentFailures(cfg.Capture().LookbackMinutes)
	if err != nil {
		return fmt.Errorf("failed to scan recent failures: %w", err)
	}
	bundles, err := p.store.CountBundles()
	if err != nil {
		return fmt.Errorf("failed to count published bundles: %w", err)
	}
	genes, err := p.store.CountGenes()
	if err != nil {
		return fmt.Errorf("failed to count genes: %w", err)
	}

	fmt.Fprintf(out, "success_streak:    %d\n", streak.Streak)
	fmt.Fprintf(out, "recent_failures:   %d (last %dm)\n", len(failures), cfg.Capture().LookbackMinutes)
	fmt.Fprintf(out, "published_bundles: %d\n", bundles)
	fmt.Fprintf(out, "local_genes:       %d\n", genes)
	return nil
}

// runSelfTest injects a synthetic failure and runs capture plus match only.
// No fix is applied; this is the smoke test for the classification and
// catalog paths.
func runSelfTest(ctx context.Context, cfg config.Interface, logger *zap.Logger, out io.Writer) error {
	p, err := buildPipeline(cfg, logger)
	if err != nil {
		return err
	}

	ev := p.capture.Capture(capture.Input{
		Message: "/bin/sh: jq: command not found",
		Context: map[string]string{
			schemas.ContextTool:    "selftest",
			schemas.ContextCommand: "jq --version",
		},
	})
	fmt.Fprintf(out, "captured: %s\n", capture.Describe(ev))

	match, err := p.library.Match(ctx, ev.Signals)
	if err != nil {
		return fmt.Errorf("gene matching failed: %w", err)
	}
	if !match.Found {
		fmt.Fprintln(out, "match: none")
		return nil
	}
	fmt.Fprintf(out, "match: %s (score %.2f, %d candidate(s))\n",
		match.Best.Gene.AssetID, match.Best.MatchScore, match.TotalMatches)
	return nil
}
