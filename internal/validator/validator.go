// File: internal/validator/validator.go

// Package validator decides whether a fix result counts as a genuine repair
// and maintains the persisted streak of consecutive successful cycles.
package validator

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/evomap/remedy-cli/api/schemas"
)

// Well-known validation reasons.
const (
	ReasonFixFailed    = "fix_failed"
	ReasonRejected     = "rejected_by_validator"
	ReasonErrorPresent = "error_present"
	ReasonValidated    = "validated"
)

// Validation is the verdict on one fix result.
type Validation struct {
	Valid  bool
	Reason string
}

// Func is a custom validation check; when supplied, its boolean result is
// authoritative over the default rules.
type Func func(ctx context.Context, res schemas.FixResult) bool

// ValidateFix applies the validation contract: a failed fix is never valid, a
// custom function (if any) decides otherwise, and the default accepts any
// successful result without a recorded error.
func ValidateFix(ctx context.Context, res schemas.FixResult, fn Func) Validation {
	if !res.Success {
		return Validation{Valid: false, Reason: ReasonFixFailed}
	}
	if fn != nil {
		if fn(ctx, res) {
			return Validation{Valid: true, Reason: ReasonValidated}
		}
		return Validation{Valid: false, Reason: ReasonRejected}
	}
	if res.Error != "" {
		return Validation{Valid: false, Reason: ReasonErrorPresent}
	}
	return Validation{Valid: true, Reason: ReasonValidated}
}

// CommandValidation builds a Func that runs a gene's validation commands
// through the injected runner; all of them must exit zero.
func CommandValidation(runner schemas.CommandRunner, commands []string, dir string, logger *zap.Logger) Func {
	if len(commands) == 0 {
		return nil
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	log := logger.Named("validator")

	return func(ctx context.Context, _ schemas.FixResult) bool {
		for _, command := range commands {
			if strings.TrimSpace(command) == "" {
				continue
			}
			if _, err := runner.Run(ctx, command, dir); err != nil {
				log.Warn("Validation command failed", zap.String("command", command), zap.Error(err))
				return false
			}
		}
		return true
	}
}
