// File: internal/capture/capture.go

// Package capture turns raw errors plus invocation context into structured,
// deduplicatable failure events. Capture never fails the caller: malformed
// input degrades to an UnknownError classification.
package capture

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/evomap/remedy-cli/api/schemas"
	"github.com/evomap/remedy-cli/internal/store"
)

const (
	// maxStoredErrorText bounds error_text before persistence.
	maxStoredErrorText = 500
	// hashPrefixLen is how much of the error text feeds the dedup hash.
	hashPrefixLen = 200
	// longErrorThreshold promotes unusually large errors to high severity.
	longErrorThreshold = 1000
)

// Input is one raw failure: a message, an optional stack trace, and the
// invocation context it happened in.
type Input struct {
	Message string
	Stack   string
	Context map[string]string
}

// FromError builds an Input from a Go error.
func FromError(err error, context map[string]string) Input {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return Input{Message: msg, Context: context}
}

// Capture classifies failures and persists them to the local store.
type Capture struct {
	store *store.FileStore
	log   *zap.Logger
}

// New creates a Capture backed by the given store.
func New(st *store.FileStore, logger *zap.Logger) *Capture {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Capture{
		store: st,
		log:   logger.Named("capture"),
	}
}

// Capture classifies the input and persists the resulting event. It never
// returns an error: persistence problems are logged and the event is still
// returned to the caller.
func (c *Capture) Capture(in Input) schemas.FailureEvent {
	text := strings.TrimSpace(in.Message)
	if text == "" && in.Stack != "" {
		text = firstLine(in.Stack)
	}
	if text == "" {
		text = "(empty error)"
	}

	signals, categories := extractSignals(text, in.Stack)

	ev := schemas.FailureEvent{
		Timestamp:  time.Now().UTC(),
		Signals:    signals,
		Categories: categories,
		ErrorText:  truncate(text, maxStoredErrorText),
		Context:    in.Context,
		Severity:   classifySeverity(signals, text),
		Hash:       DedupHash(text, signals),
	}

	if err := c.store.SaveFailure(ev); err != nil {
		c.log.Warn("Failed to persist failure event", zap.String("hash", ev.Hash), zap.Error(err))
	}
	c.log.Debug("Captured failure",
		zap.Strings("signals", ev.Signals),
		zap.String("severity", string(ev.Severity)),
		zap.String("hash", ev.Hash),
	)
	return ev
}

// RecentFailures returns events captured within the last given minutes,
// newest first.
func (c *Capture) RecentFailures(minutes int) ([]schemas.FailureEvent, error) {
	return c.store.RecentFailures(time.Duration(minutes) * time.Minute)
}

// IsDuplicateError reports whether an event with the same hash was captured
// within the window.
func (c *Capture) IsDuplicateError(hash string, windowMinutes int) (bool, error) {
	return c.store.HasFailureHash(hash, time.Duration(windowMinutes)*time.Minute)
}

// DedupHash computes the 16-hex-char deduplication hash over the truncated
// error text and the joined signal list. Not a security boundary.
func DedupHash(text string, signals []string) string {
	input := truncate(text, hashPrefixLen) + "_" + strings.Join(signals, ",")
	sum := sha256.Sum256([]byte(input))
	return hex.EncodeToString(sum[:])[:16]
}

// classifySeverity applies the fixed precedence ladder and returns the first
// matching severity.
func classifySeverity(signals []string, text string) schemas.Severity {
	if hasSignal(signals, SignalPermissionDenied) || hasSignal(signals, SignalCommandNotFound) {
		return schemas.SeverityHigh
	}
	if hasSignal(signals, SignalRateLimit) || hasSignal(signals, SignalTimeout) || hasSignal(signals, SignalConnReset) {
		return schemas.SeverityMedium
	}
	if len(text) > longErrorThreshold {
		return schemas.SeverityHigh
	}
	return schemas.SeverityLow
}

func hasSignal(signals []string, want string) bool {
	for _, s := range signals {
		if s == want {
			return true
		}
	}
	return false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func firstLine(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return s[:idx]
	}
	return s
}

// Describe renders a short human-readable form, used by the smoke-test mode.
func Describe(ev schemas.FailureEvent) string {
	return fmt.Sprintf("[%s] %s (%s)", ev.Severity, strings.Join(ev.Signals, ","), ev.Hash)
}
