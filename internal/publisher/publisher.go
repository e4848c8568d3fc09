// File: internal/publisher/publisher.go

// Package publisher packages a validated fix into three content-addressed
// records (Gene, Capsule, EvolutionEvent), persists the bundle locally, and
// submits it to the remote hub on a best-effort basis. The local write always
// happens; remote publication failure is never fatal to a cycle.
package publisher

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"runtime"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/evomap/remedy-cli/api/schemas"
	"github.com/evomap/remedy-cli/internal/assetid"
	"github.com/evomap/remedy-cli/internal/store"
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// Skip reasons reported on a Receipt when the remote leg did not happen.
const (
	ReasonHubDisabled   = "hub_disabled"
	ReasonDuplicate     = "duplicate_within_window"
	ReasonPublishFailed = "remote_publish_failed"
)

// Receipt reports the ids of the three records built for a fix and whether
// the bundle reached the hub.
type Receipt struct {
	GeneID    string `json:"gene_id"`
	CapsuleID string `json:"capsule_id"`
	EventID   string `json:"event_id"`
	Published bool   `json:"published"`
	Reason    string `json:"reason,omitempty"`
}

// Publisher builds and distributes fix bundles.
type Publisher struct {
	store       *store.FileStore
	hub         schemas.HubClient // nil disables remote publication
	dedupWindow time.Duration
	log         *zap.Logger
}

// New creates a Publisher. hub may be nil for local-only operation.
func New(st *store.FileStore, hub schemas.HubClient, dedupWindow time.Duration, logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{
		store:       st,
		hub:         hub,
		dedupWindow: dedupWindow,
		log:         logger.Named("publisher"),
	}
}

// ShouldPublish reports whether a fix for the given error hash may be
// published remotely: false when a bundle for the same original error was
// already persisted within the dedup window.
func (p *Publisher) ShouldPublish(errorHash string) (bool, error) {
	bundles, err := p.store.RecentBundles(p.dedupWindow)
	if err != nil {
		return false, fmt.Errorf("failed to scan published bundles: %w", err)
	}
	for _, b := range bundles {
		if b.OriginalError.Hash == errorHash {
			return false, nil
		}
	}
	return true, nil
}

// Publish builds the gene/capsule/event bundle for a validated fix, persists
// it locally, and submits it to the hub unless deduplicated or disabled.
// Build order matters: each asset id is computed before the id is referenced
// by the next record, so no id is ever part of its own hash input.
func (p *Publisher) Publish(
	ctx context.Context,
	fix schemas.FixResult,
	original schemas.FailureEvent,
	matched schemas.Gene,
	streak int,
	totalCycles int,
) (Receipt, error) {
	var receipt Receipt

	// The remote-dedup decision must precede the local append, otherwise the
	// bundle written below would always suppress itself.
	allowed := true
	dedupReason := ""
	if p.hub == nil {
		allowed = false
		dedupReason = ReasonHubDisabled
	} else if ok, err := p.ShouldPublish(original.Hash); err != nil {
		p.log.Warn("Publish dedup scan failed; skipping remote publish", zap.Error(err))
		allowed = false
		dedupReason = ReasonPublishFailed
	} else if !ok {
		allowed = false
		dedupReason = ReasonDuplicate
	}

	gene := deriveGene(matched, original, fix)
	geneID, err := assetid.Compute(gene)
	if err != nil {
		return receipt, fmt.Errorf("failed to address gene: %w", err)
	}
	gene.AssetID = geneID

	capsule := buildCapsule(gene, original, fix, streak)
	capsuleID, err := assetid.Compute(capsule)
	if err != nil {
		return receipt, fmt.Errorf("failed to address capsule: %w", err)
	}
	capsule.AssetID = capsuleID

	event := buildEvent(gene, matched, capsule, original, fix, totalCycles)
	eventID, err := assetid.Compute(event)
	if err != nil {
		return receipt, fmt.Errorf("failed to address evolution event: %w", err)
	}
	event.AssetID = eventID

	receipt = Receipt{GeneID: geneID, CapsuleID: capsuleID, EventID: eventID}

	assets, err := marshalAssets(gene, capsule, event)
	if err != nil {
		return receipt, err
	}

	bundle := schemas.PublishedBundle{
		Timestamp:     time.Now().UTC(),
		Bundle:        assets,
		FixResult:     fix,
		OriginalError: original,
	}
	if err := p.store.AppendBundle(bundle); err != nil {
		return receipt, fmt.Errorf("failed to persist bundle locally: %w", err)
	}

	if !allowed {
		receipt.Reason = dedupReason
		p.log.Info("Bundle persisted locally, remote publish skipped",
			zap.String("capsule", capsuleID),
			zap.String("reason", dedupReason),
		)
		return receipt, nil
	}

	if err := p.hub.PublishAssets(ctx, assets); err != nil {
		receipt.Reason = ReasonPublishFailed + ": " + err.Error()
		p.log.Warn("Remote publish failed; bundle kept locally",
			zap.String("capsule", capsuleID),
			zap.Error(err),
		)
		return receipt, nil
	}

	receipt.Published = true
	p.log.Info("Bundle published to hub",
		zap.String("gene", geneID),
		zap.String("capsule", capsuleID),
		zap.String("event", eventID),
	)
	return receipt, nil
}

// deriveGene generalizes the applied strategy into a publishable gene keyed
// to the signals actually observed.
func deriveGene(matched schemas.Gene, original schemas.FailureEvent, fix schemas.FixResult) schemas.Gene {
	summary := matched.Summary
	if summary == "" {
		summary = "Automated repair via " + fix.Method
	}
	return schemas.Gene{
		Category:     schemas.CategoryRepair,
		SignalsMatch: original.Signals,
		Summary:      summary,
		Validation:   matched.Validation,
		Constraints:  matched.Constraints,
		Strategy:     matched.Strategy,
	}
}

func buildCapsule(gene schemas.Gene, original schemas.FailureEvent, fix schemas.FixResult, streak int) schemas.Capsule {
	return schemas.Capsule{
		Trigger:        original.Signals,
		Gene:           gene.AssetID,
		Summary:        fmt.Sprintf("Repaired %s via %s", original.Signals[0], fix.Method),
		Confidence:     confidence(fix),
		BlastRadius:    blastRadius(fix),
		Outcome:        schemas.Outcome{Status: "success", Score: 1.0},
		EnvFingerprint: EnvFingerprint(),
		SuccessStreak:  streak,
	}
}

func buildEvent(
	gene, matched schemas.Gene,
	capsule schemas.Capsule,
	original schemas.FailureEvent,
	fix schemas.FixResult,
	totalCycles int,
) schemas.EvolutionEvent {
	genesUsed := []string{gene.AssetID}
	if matched.AssetID != "" && matched.AssetID != gene.AssetID {
		genesUsed = append(genesUsed, matched.AssetID)
	}
	return schemas.EvolutionEvent{
		Intent:         "repair",
		CapsuleID:      capsule.AssetID,
		GenesUsed:      genesUsed,
		Outcome:        "success",
		MutationsTried: fix.Attempts,
		TotalCycles:    totalCycles,
		OriginalError: schemas.OriginalError{
			Signals: original.Signals,
			Hash:    original.Hash,
		},
	}
}

// confidence starts high for first-attempt fixes and decays with retries.
func confidence(fix schemas.FixResult) float64 {
	c := 0.9 - 0.1*float64(fix.Attempts-1)
	if c < 0.5 {
		c = 0.5
	}
	if c > 0.9 {
		c = 0.9
	}
	return c
}

// blastRadius credits one touched file to host-mutating methods.
func blastRadius(fix schemas.FixResult) schemas.BlastRadius {
	switch fix.Method {
	case "create_file", "create_file_shell", "create_dir", "create_dir_shell", "chmod", "sudo_chmod":
		return schemas.BlastRadius{Files: 1}
	default:
		return schemas.BlastRadius{}
	}
}

func marshalAssets(gene schemas.Gene, capsule schemas.Capsule, event schemas.EvolutionEvent) ([]json.RawMessage, error) {
	assets := make([]json.RawMessage, 0, 3)
	for _, asset := range []any{gene, capsule, event} {
		raw, err := jsonAPI.Marshal(asset)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal bundle asset: %w", err)
		}
		assets = append(assets, raw)
	}
	return assets, nil
}

// EnvFingerprint identifies the host environment as a short stable hash over
// OS, architecture and hostname.
func EnvFingerprint() string {
	host, _ := os.Hostname()
	sum := sha256.Sum256([]byte(runtime.GOOS + "|" + runtime.GOARCH + "|" + host))
	return hex.EncodeToString(sum[:])[:16]
}
