// File: internal/genelib/library.go

// Package genelib maintains the catalog of repair strategy descriptors and
// matches failure signals against it, merging local genes with best-effort
// candidates from the remote hub.
package genelib

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/evomap/remedy-cli/api/schemas"
	"github.com/evomap/remedy-cli/internal/assetid"
	"github.com/evomap/remedy-cli/internal/store"
)

// Candidate sources.
const (
	SourceLocal  = "local"
	SourceRemote = "remote"
)

// maxAlternatives bounds how many runner-up candidates a match reports.
const maxAlternatives = 3

// Candidate is one scored gene for a signal query.
type Candidate struct {
	Gene           schemas.Gene
	MatchScore     float64
	MatchedSignals []string
	Source         string
}

// MatchResult is the outcome of one catalog lookup. Found is false only when
// the merged candidate list is empty; this is reported, never retried.
type MatchResult struct {
	Found        bool
	Best         *Candidate
	Alternatives []Candidate
	TotalMatches int
}

// Library is the gene catalog.
type Library struct {
	store *store.FileStore
	hub   schemas.HubClient // nil disables remote matching
	log   *zap.Logger
}

// New creates a Library. hub may be nil to run local-only.
func New(st *store.FileStore, hub schemas.HubClient, logger *zap.Logger) *Library {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Library{
		store: st,
		hub:   hub,
		log:   logger.Named("genelib"),
	}
}

// SeedBuiltins writes the built-in catalog, skipping genes that already
// exist. Returns the number of genes added.
func (l *Library) SeedBuiltins() (int, error) {
	added := 0
	for _, g := range builtinGenes() {
		id, err := assetid.Compute(g)
		if err != nil {
			return added, fmt.Errorf("failed to address builtin gene: %w", err)
		}
		g.AssetID = id

		wrote, err := l.store.SaveGene(g)
		if err != nil {
			return added, fmt.Errorf("failed to seed builtin gene %s: %w", id, err)
		}
		if wrote {
			added++
		}
	}
	if added > 0 {
		l.log.Info("Seeded builtin gene catalog", zap.Int("added", added))
	}
	return added, nil
}

// Genes returns the full local catalog.
func (l *Library) Genes() ([]schemas.Gene, error) {
	return l.store.LoadGenes()
}

// Match scores every local gene against the signals, merges in remote
// candidates when a hub client is configured, and returns the best candidate
// plus up to three alternatives. Remote failures degrade to local-only
// matching and are never propagated.
func (l *Library) Match(ctx context.Context, signals []string) (MatchResult, error) {
	genes, err := l.store.LoadGenes()
	if err != nil {
		return MatchResult{}, fmt.Errorf("failed to load gene catalog: %w", err)
	}

	candidates := make([]Candidate, 0, len(genes))
	for _, g := range genes {
		matched := intersect(signals, g.SignalsMatch)
		if len(matched) == 0 || len(g.SignalsMatch) == 0 {
			continue
		}
		candidates = append(candidates, Candidate{
			Gene:           g,
			MatchScore:     float64(len(matched)) / float64(len(g.SignalsMatch)),
			MatchedSignals: matched,
			Source:         SourceLocal,
		})
	}

	candidates = append(candidates, l.remoteCandidates(ctx, signals)...)

	// Descending by score; stable so local candidates win ties.
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].MatchScore > candidates[j].MatchScore
	})

	result := MatchResult{TotalMatches: len(candidates)}
	if len(candidates) == 0 {
		return result, nil
	}

	result.Found = true
	result.Best = &candidates[0]
	if len(candidates) > 1 {
		rest := candidates[1:]
		if len(rest) > maxAlternatives {
			rest = rest[:maxAlternatives]
		}
		result.Alternatives = rest
	}
	return result, nil
}

// remoteCandidates fetches hub matches, mapping the hub's 0-100 quality
// metric into the local [0,1] score space. Any failure yields an empty list.
func (l *Library) remoteCandidates(ctx context.Context, signals []string) []Candidate {
	if l.hub == nil {
		return nil
	}

	remote, err := l.hub.FetchCandidates(ctx, signals)
	if err != nil {
		l.log.Warn("Remote gene lookup failed; continuing with local catalog", zap.Error(err))
		return nil
	}

	candidates := make([]Candidate, 0, len(remote))
	for _, rc := range remote {
		if rc.AssetID == "" {
			continue
		}
		score := rc.QualityScore / 100.0
		if score < 0 {
			score = 0
		}
		if score > 1 {
			score = 1
		}
		category := schemas.GeneCategory(rc.Category)
		if category == "" {
			category = schemas.CategoryRepair
		}
		candidates = append(candidates, Candidate{
			Gene: schemas.Gene{
				AssetID:      rc.AssetID,
				Category:     category,
				SignalsMatch: rc.SignalsMatch,
				Summary:      rc.Summary,
			},
			MatchScore:     score,
			MatchedSignals: intersect(signals, rc.SignalsMatch),
			Source:         SourceRemote,
		})
	}
	return candidates
}

func intersect(a, b []string) []string {
	inB := make(map[string]bool, len(b))
	for _, s := range b {
		inB[s] = true
	}
	var out []string
	for _, s := range a {
		if inB[s] {
			out = append(out, s)
			inB[s] = false
		}
	}
	return out
}
