// File: internal/store/store.go

// Package store implements the local on-disk store backing the remediation
// pipeline: one directory of failure events, one for the gene catalog, one for
// published bundles, one for cycle summaries, and a single streak state file.
// A single orchestrator instance per host is assumed; there are no concurrent
// writers.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/evomap/remedy-cli/api/schemas"
	"github.com/evomap/remedy-cli/internal/assetid"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// FileStore is the concrete filesystem-backed store.
type FileStore struct {
	baseDir   string
	retention time.Duration
	log       *zap.Logger
}

// Open creates the store layout under baseDir if needed and prunes expired
// records once.
func Open(baseDir string, retention time.Duration, logger *zap.Logger) (*FileStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &FileStore{
		baseDir:   baseDir,
		retention: retention,
		log:       logger.Named("store"),
	}

	for _, dir := range []string{s.failuresDir(), s.genesDir(), s.publishedDir(), s.cyclesDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create store directory %s: %w", dir, err)
		}
	}

	if err := s.Prune(time.Now()); err != nil {
		s.log.Warn("Initial store pruning failed", zap.Error(err))
	}
	return s, nil
}

// BaseDir returns the root of the store layout.
func (s *FileStore) BaseDir() string { return s.baseDir }

func (s *FileStore) failuresDir() string  { return filepath.Join(s.baseDir, "failures") }
func (s *FileStore) genesDir() string     { return filepath.Join(s.baseDir, "genes") }
func (s *FileStore) publishedDir() string { return filepath.Join(s.baseDir, "events", "published") }
func (s *FileStore) cyclesDir() string    { return filepath.Join(s.baseDir, "events", "cycles") }
func (s *FileStore) streakPath() string   { return filepath.Join(s.baseDir, "streak.json") }

// -- Failure events --

// SaveFailure persists one immutable failure event as its own file.
func (s *FileStore) SaveFailure(ev schemas.FailureEvent) error {
	name := fmt.Sprintf("%d_%s.json", ev.Timestamp.UnixNano(), ev.Hash)
	return s.writeJSON(filepath.Join(s.failuresDir(), name), ev)
}

// RecentFailures returns events within the lookback window, newest first.
func (s *FileStore) RecentFailures(window time.Duration) ([]schemas.FailureEvent, error) {
	entries, err := os.ReadDir(s.failuresDir())
	if err != nil {
		return nil, fmt.Errorf("failed to list failure events: %w", err)
	}

	cutoff := time.Now().Add(-window)
	var events []schemas.FailureEvent
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		ts, _, ok := parseFailureName(entry.Name())
		if !ok || ts.Before(cutoff) {
			continue
		}
		var ev schemas.FailureEvent
		if err := s.readJSON(filepath.Join(s.failuresDir(), entry.Name()), &ev); err != nil {
			s.log.Warn("Skipping unreadable failure event", zap.String("file", entry.Name()), zap.Error(err))
			continue
		}
		events = append(events, ev)
	}

	sort.Slice(events, func(i, j int) bool {
		return events[i].Timestamp.After(events[j].Timestamp)
	})
	return events, nil
}

// HasFailureHash reports whether an event with the given dedup hash exists
// within the window. Filenames encode timestamp and hash, so no file content
// needs to be read.
func (s *FileStore) HasFailureHash(hash string, window time.Duration) (bool, error) {
	entries, err := os.ReadDir(s.failuresDir())
	if err != nil {
		return false, fmt.Errorf("failed to list failure events: %w", err)
	}

	cutoff := time.Now().Add(-window)
	for _, entry := range entries {
		ts, h, ok := parseFailureName(entry.Name())
		if ok && h == hash && !ts.Before(cutoff) {
			return true, nil
		}
	}
	return false, nil
}

func parseFailureName(name string) (time.Time, string, bool) {
	trimmed := strings.TrimSuffix(name, ".json")
	parts := strings.SplitN(trimmed, "_", 2)
	if len(parts) != 2 {
		return time.Time{}, "", false
	}
	nanos, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return time.Time{}, "", false
	}
	return time.Unix(0, nanos), parts[1], true
}

// -- Gene catalog --

// SaveGene writes a gene to the catalog. Existing genes are left untouched,
// making catalog seeding idempotent. Returns true when the gene was added.
func (s *FileStore) SaveGene(g schemas.Gene) (bool, error) {
	if g.AssetID == "" {
		return false, fmt.Errorf("refusing to store gene without asset id")
	}
	path := filepath.Join(s.genesDir(), assetid.Hex(g.AssetID)+".json")
	if _, err := os.Stat(path); err == nil {
		return false, nil
	}
	if err := s.writeJSON(path, g); err != nil {
		return false, err
	}
	return true, nil
}

// LoadGenes reads the full local gene catalog.
func (s *FileStore) LoadGenes() ([]schemas.Gene, error) {
	entries, err := os.ReadDir(s.genesDir())
	if err != nil {
		return nil, fmt.Errorf("failed to list genes: %w", err)
	}

	var genes []schemas.Gene
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		var g schemas.Gene
		if err := s.readJSON(filepath.Join(s.genesDir(), entry.Name()), &g); err != nil {
			s.log.Warn("Skipping unreadable gene", zap.String("file", entry.Name()), zap.Error(err))
			continue
		}
		genes = append(genes, g)
	}
	return genes, nil
}

// CountGenes returns the size of the local catalog.
func (s *FileStore) CountGenes() (int, error) {
	return countJSONFiles(s.genesDir())
}

// -- Published bundles --

// AppendBundle writes one published bundle to the append-only event store.
func (s *FileStore) AppendBundle(b schemas.PublishedBundle) error {
	name := fmt.Sprintf("%d.json", b.Timestamp.UnixNano())
	return s.writeJSON(filepath.Join(s.publishedDir(), name), b)
}

// RecentBundles returns bundles persisted within the window, newest first.
func (s *FileStore) RecentBundles(window time.Duration) ([]schemas.PublishedBundle, error) {
	entries, err := os.ReadDir(s.publishedDir())
	if err != nil {
		return nil, fmt.Errorf("failed to list published bundles: %w", err)
	}

	cutoff := time.Now().Add(-window)
	var bundles []schemas.PublishedBundle
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		var b schemas.PublishedBundle
		if err := s.readJSON(filepath.Join(s.publishedDir(), entry.Name()), &b); err != nil {
			s.log.Warn("Skipping unreadable bundle", zap.String("file", entry.Name()), zap.Error(err))
			continue
		}
		if b.Timestamp.Before(cutoff) {
			continue
		}
		bundles = append(bundles, b)
	}

	sort.Slice(bundles, func(i, j int) bool {
		return bundles[i].Timestamp.After(bundles[j].Timestamp)
	})
	return bundles, nil
}

// CountBundles returns the number of locally persisted bundles.
func (s *FileStore) CountBundles() (int, error) {
	return countJSONFiles(s.publishedDir())
}

// -- Streak state --

// LoadStreak reads the streak state, initializing it to zero if absent.
func (s *FileStore) LoadStreak() (schemas.StreakState, error) {
	var st schemas.StreakState
	err := s.readJSON(s.streakPath(), &st)
	if err == nil {
		return st, nil
	}
	if !os.IsNotExist(err) {
		return st, fmt.Errorf("failed to read streak state: %w", err)
	}

	st = schemas.StreakState{Streak: 0, LastUpdate: time.Now().UTC()}
	if err := s.SaveStreak(st); err != nil {
		return st, err
	}
	return st, nil
}

// SaveStreak persists the streak state.
func (s *FileStore) SaveStreak(st schemas.StreakState) error {
	return s.writeJSON(s.streakPath(), st)
}

// -- Cycle summaries --

// SaveCycleSummary persists one orchestrator cycle summary.
func (s *FileStore) SaveCycleSummary(cs schemas.CycleSummary) error {
	name := fmt.Sprintf("%d.json", cs.Timestamp.UnixNano())
	return s.writeJSON(filepath.Join(s.cyclesDir(), name), cs)
}

// -- Retention --

// Prune evicts failure events, cycle summaries and published bundles older
// than the retention window. The window comfortably exceeds both the capture
// lookback and the publish dedup window, so pruning never affects reads the
// pipeline depends on.
func (s *FileStore) Prune(now time.Time) error {
	if s.retention <= 0 {
		return nil
	}
	cutoff := now.Add(-s.retention)

	var firstErr error
	for _, dir := range []string{s.failuresDir(), s.cyclesDir(), s.publishedDir()} {
		entries, err := os.ReadDir(dir)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		for _, entry := range entries {
			info, err := entry.Info()
			if err != nil || entry.IsDir() {
				continue
			}
			if info.ModTime().Before(cutoff) {
				if err := os.Remove(filepath.Join(dir, entry.Name())); err != nil && firstErr == nil {
					firstErr = err
				}
			}
		}
	}
	return firstErr
}

// -- Helpers --

func (s *FileStore) writeJSON(path string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func (s *FileStore) readJSON(path string, v any) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("failed to unmarshal %s: %w", filepath.Base(path), err)
	}
	return nil
}

func countJSONFiles(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("failed to list %s: %w", dir, err)
	}
	count := 0
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".json") {
			count++
		}
	}
	return count, nil
}
