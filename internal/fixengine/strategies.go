// File: internal/fixengine/strategies.go
package fixengine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	jsoniter "github.com/json-iterator/go"

	"github.com/evomap/remedy-cli/api/schemas"
	"github.com/evomap/remedy-cli/internal/genelib"
)

// Outcome is the method-specific result of a strategy run; the engine wraps
// it into a full FixResult.
type Outcome struct {
	Method   string
	Output   string
	Attempts int
}

// Strategy is one bounded, automated repair. Implementations are a closed
// set; genes reference them by kind.
type Strategy interface {
	Kind() string
	Execute(ctx context.Context, event schemas.FailureEvent) (Outcome, error)
}

// -- Retry with backoff --

// RetryStrategy re-invokes the original failing command with exponential
// backoff between attempts.
type RetryStrategy struct {
	Runner     schemas.CommandRunner
	Policy     Policy
	MaxRetries int
}

func (s *RetryStrategy) Kind() string { return genelib.StrategyRetryBackoff }

func (s *RetryStrategy) Execute(ctx context.Context, event schemas.FailureEvent) (Outcome, error) {
	command := event.Context[schemas.ContextCommand]
	if command == "" {
		return Outcome{}, fmt.Errorf("no original command recorded to retry")
	}
	dir := event.Context[schemas.ContextCwd]

	retries := s.MaxRetries
	if retries <= 0 {
		retries = 3
	}

	var lastErr error
	for attempt := 0; attempt < retries; attempt++ {
		if attempt > 0 {
			if err := sleep(ctx, s.Policy.Delay(attempt-1)); err != nil {
				return Outcome{Attempts: attempt}, err
			}
		}
		out, err := s.Runner.Run(ctx, command, dir)
		if err == nil {
			return Outcome{Method: "retry_backoff", Output: out, Attempts: attempt + 1}, nil
		}
		lastErr = err
	}
	return Outcome{Attempts: retries}, fmt.Errorf("command still failing after %d attempts: %w", retries, lastErr)
}

// -- Missing tool install --

var toolNameRegexes = []*regexp.Regexp{
	regexp.MustCompile(`([\w.+-]+): command not found`),
	regexp.MustCompile(`command not found: ([\w.+-]+)`),
	regexp.MustCompile(`sh: \d+: ([\w.+-]+): not found`),
	regexp.MustCompile(`executable file not found[^"]*"([\w.+-]+)"`),
}

// packageManagers is tried in order; the first successful install wins.
var packageManagers = []struct {
	name    string
	install string
}{
	{"apt-get", "apt-get install -y %s || sudo apt-get install -y %s"},
	{"brew", "brew install %s"},
	{"npm", "npm install -g %s"},
}

// InstallToolStrategy provisions a missing CLI tool, falling back through the
// known package managers.
type InstallToolStrategy struct {
	Runner schemas.CommandRunner
}

func (s *InstallToolStrategy) Kind() string { return genelib.StrategyInstallTool }

func (s *InstallToolStrategy) Execute(ctx context.Context, event schemas.FailureEvent) (Outcome, error) {
	tool := extractToolName(event)
	if tool == "" {
		return Outcome{}, fmt.Errorf("could not determine which tool is missing")
	}

	attempts := 0
	var lastErr error
	for _, pm := range packageManagers {
		attempts++
		command := strings.ReplaceAll(pm.install, "%s", tool)
		out, err := s.Runner.Run(ctx, command, "")
		if err == nil {
			return Outcome{Method: "install_" + pm.name, Output: out, Attempts: attempts}, nil
		}
		lastErr = err
	}
	return Outcome{Attempts: attempts}, fmt.Errorf("no package manager could install %q: %w", tool, lastErr)
}

func extractToolName(event schemas.FailureEvent) string {
	for _, re := range toolNameRegexes {
		if m := re.FindStringSubmatch(event.ErrorText); len(m) > 1 {
			return m[1]
		}
	}
	return event.Context[schemas.ContextTool]
}

// -- Permission fix --

var deniedPathRegexes = []*regexp.Regexp{
	regexp.MustCompile(`(?:open|stat|access|mkdir|remove|chmod) ([^\s:]+): permission denied`),
	regexp.MustCompile(`EACCES[^']*'([^']+)'`),
	regexp.MustCompile(`permission denied: ([^\s:]+)`),
}

// FixPermissionsStrategy restores owner rwx on the denied path, escalating
// once through sudo.
type FixPermissionsStrategy struct {
	Runner schemas.CommandRunner
}

func (s *FixPermissionsStrategy) Kind() string { return genelib.StrategyFixPerms }

func (s *FixPermissionsStrategy) Execute(ctx context.Context, event schemas.FailureEvent) (Outcome, error) {
	path := extractPath(event, deniedPathRegexes)
	if path == "" {
		return Outcome{}, fmt.Errorf("could not determine which path was denied")
	}

	out, err := s.Runner.Run(ctx, "chmod u+rwx "+shellQuote(path), "")
	if err == nil {
		return Outcome{Method: "chmod", Output: out, Attempts: 1}, nil
	}

	out, err = s.Runner.Run(ctx, "sudo chmod u+rwx "+shellQuote(path), "")
	if err == nil {
		return Outcome{Method: "sudo_chmod", Output: out, Attempts: 2}, nil
	}
	return Outcome{Attempts: 2}, fmt.Errorf("failed to fix permissions on %s: %w", path, err)
}

// -- Safe JSON repair --

var (
	jsonAPI          = jsoniter.ConfigCompatibleWithStandardLibrary
	trailingCommaRe  = regexp.MustCompile(`,\s*([}\]])`)
	singleQuoteKeyRe = regexp.MustCompile(`'([^']*)'\s*:`)
	singleQuoteValRe = regexp.MustCompile(`:\s*'([^']*)'`)
)

// RepairJSONStrategy attempts a strict parse of the failing payload, then one
// reparse after a small fixed set of textual repairs.
type RepairJSONStrategy struct{}

func (s *RepairJSONStrategy) Kind() string { return genelib.StrategyRepairJSON }

func (s *RepairJSONStrategy) Execute(ctx context.Context, event schemas.FailureEvent) (Outcome, error) {
	raw := event.Context[schemas.ContextRawJSON]
	if raw == "" {
		return Outcome{}, fmt.Errorf("no raw payload available to repair")
	}

	var parsed any
	if err := jsonAPI.UnmarshalFromString(raw, &parsed); err == nil {
		return Outcome{Method: "json_strict", Output: raw, Attempts: 1}, nil
	}

	repaired := trailingCommaRe.ReplaceAllString(raw, "$1")
	repaired = singleQuoteKeyRe.ReplaceAllString(repaired, `"$1":`)
	repaired = singleQuoteValRe.ReplaceAllString(repaired, `: "$1"`)

	if err := jsonAPI.UnmarshalFromString(repaired, &parsed); err != nil {
		return Outcome{Attempts: 2}, fmt.Errorf("payload unrecoverable after textual repairs: %w", err)
	}
	return Outcome{Method: "json_repair", Output: repaired, Attempts: 2}, nil
}

// -- Missing path creation --

var missingPathRegexes = []*regexp.Regexp{
	regexp.MustCompile(`(?:open|stat|read|mkdir) ([^\s:]+): no such file or directory`),
	regexp.MustCompile(`ENOENT[^']*'([^']+)'`),
	regexp.MustCompile(`no such file or directory: ([^\s:]+)`),
}

// EnsurePathStrategy creates the missing file or directory, falling back to
// shell commands if direct filesystem calls fail.
type EnsurePathStrategy struct {
	Runner schemas.CommandRunner
}

func (s *EnsurePathStrategy) Kind() string { return genelib.StrategyEnsurePath }

func (s *EnsurePathStrategy) Execute(ctx context.Context, event schemas.FailureEvent) (Outcome, error) {
	path := extractPath(event, missingPathRegexes)
	if path == "" {
		return Outcome{}, fmt.Errorf("could not determine which path is missing")
	}

	// A path with an extension is treated as a file, otherwise a directory.
	isFile := filepath.Ext(path) != ""

	if isFile {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err == nil {
			f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0o644)
			if err == nil {
				f.Close()
				return Outcome{Method: "create_file", Output: path, Attempts: 1}, nil
			}
		}
		out, err := s.Runner.Run(ctx, fmt.Sprintf("mkdir -p %s && touch %s", shellQuote(filepath.Dir(path)), shellQuote(path)), "")
		if err != nil {
			return Outcome{Attempts: 2}, fmt.Errorf("failed to create missing file %s: %w", path, err)
		}
		return Outcome{Method: "create_file_shell", Output: out, Attempts: 2}, nil
	}

	if err := os.MkdirAll(path, 0o755); err == nil {
		return Outcome{Method: "create_dir", Output: path, Attempts: 1}, nil
	}
	out, err := s.Runner.Run(ctx, "mkdir -p "+shellQuote(path), "")
	if err != nil {
		return Outcome{Attempts: 2}, fmt.Errorf("failed to create missing directory %s: %w", path, err)
	}
	return Outcome{Method: "create_dir_shell", Output: out, Attempts: 2}, nil
}

// -- Helpers --

func extractPath(event schemas.FailureEvent, regexes []*regexp.Regexp) string {
	for _, re := range regexes {
		if m := re.FindStringSubmatch(event.ErrorText); len(m) > 1 {
			return strings.Trim(m[1], `'"`)
		}
	}
	return event.Context[schemas.ContextPath]
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
