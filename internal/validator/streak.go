// File: internal/validator/streak.go
package validator

import (
	"time"

	"go.uber.org/zap"

	"github.com/evomap/remedy-cli/api/schemas"
	"github.com/evomap/remedy-cli/internal/store"
)

// StreakTracker owns the persisted streak state. It is read and rewritten
// once per repair attempt; the orchestrator is its only caller.
type StreakTracker struct {
	store *store.FileStore
	log   *zap.Logger
}

// NewStreakTracker creates a tracker backed by the given store.
func NewStreakTracker(st *store.FileStore, logger *zap.Logger) *StreakTracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StreakTracker{
		store: st,
		log:   logger.Named("streak"),
	}
}

// Current returns the persisted streak state, initializing it if absent.
func (t *StreakTracker) Current() (schemas.StreakState, error) {
	return t.store.LoadStreak()
}

// Update increments the streak on success, resets it to zero otherwise, and
// persists the new state. Returns the new streak value.
func (t *StreakTracker) Update(success bool) (int, error) {
	st, err := t.store.LoadStreak()
	if err != nil {
		return 0, err
	}

	if success {
		st.Streak++
	} else {
		if st.Streak > 0 {
			t.log.Info("Success streak reset", zap.Int("was", st.Streak))
		}
		st.Streak = 0
	}
	st.LastUpdate = time.Now().UTC()

	if err := t.store.SaveStreak(st); err != nil {
		return st.Streak, err
	}
	return st.Streak, nil
}
