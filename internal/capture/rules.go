// File: internal/capture/rules.go
package capture

import "regexp"

// Signal names emitted by the classifier. These are the enumerable labels
// genes declare in their signals_match lists.
const (
	SignalCommandNotFound  = "CommandNotFound"
	SignalPermissionDenied = "PermissionDenied"
	SignalConnReset        = "ECONNRESET"
	SignalTimeout          = "TimeoutError"
	SignalRateLimit        = "RateLimitError"
	SignalFileNotFound     = "FileNotFound"
	SignalJSONParse        = "JSONParseError"
	SignalDiskFull         = "DiskFull"
	SignalPortInUse        = "PortInUse"
	SignalOutOfMemory      = "OutOfMemory"
	SignalUnknown          = "UnknownError"
)

// Categories grouping the signals above.
const (
	CategoryMissingTool = "missing_tool"
	CategoryPermissions = "permissions"
	CategoryNetwork     = "network"
	CategoryFilesystem  = "filesystem"
	CategoryData        = "data"
	CategoryResources   = "resources"
	CategoryUnknown     = "unknown"
)

type signalRule struct {
	re       *regexp.Regexp
	signal   string
	category string
}

// signalRules is evaluated in order against both the error message and the
// stack trace; a rule matches if either hits. Order matters only for the
// ordering of the emitted signal list, every rule is always evaluated.
var signalRules = []signalRule{
	{regexp.MustCompile(`(?i)command not found|not recognized as an internal or external command|executable file not found`), SignalCommandNotFound, CategoryMissingTool},
	{regexp.MustCompile(`(?i)permission denied|operation not permitted|EACCES|EPERM`), SignalPermissionDenied, CategoryPermissions},
	{regexp.MustCompile(`ECONNRESET|ECONNREFUSED|(?i)connection reset by peer|socket hang up`), SignalConnReset, CategoryNetwork},
	{regexp.MustCompile(`ETIMEDOUT|(?i)timed? ?out|deadline exceeded`), SignalTimeout, CategoryNetwork},
	{regexp.MustCompile(`(?i)rate limit|too many requests|status(?: code)? 429`), SignalRateLimit, CategoryNetwork},
	{regexp.MustCompile(`ENOENT|(?i)no such file or directory`), SignalFileNotFound, CategoryFilesystem},
	{regexp.MustCompile(`(?i)unexpected token .* in JSON|unexpected end of JSON input|invalid character .* looking for|JSON\.parse`), SignalJSONParse, CategoryData},
	{regexp.MustCompile(`ENOSPC|(?i)no space left on device`), SignalDiskFull, CategoryFilesystem},
	{regexp.MustCompile(`EADDRINUSE|(?i)address already in use`), SignalPortInUse, CategoryNetwork},
	{regexp.MustCompile(`(?i)out of memory|heap limit|cannot allocate memory`), SignalOutOfMemory, CategoryResources},
}

// extractSignals runs the rule list over message and stack and collects the
// distinct matching signals in order of first match.
func extractSignals(message, stack string) (signals, categories []string) {
	seenSignal := make(map[string]bool)
	seenCategory := make(map[string]bool)

	for _, rule := range signalRules {
		if !rule.re.MatchString(message) && !rule.re.MatchString(stack) {
			continue
		}
		if !seenSignal[rule.signal] {
			seenSignal[rule.signal] = true
			signals = append(signals, rule.signal)
		}
		if !seenCategory[rule.category] {
			seenCategory[rule.category] = true
			categories = append(categories, rule.category)
		}
	}

	if len(signals) == 0 {
		return []string{SignalUnknown}, []string{CategoryUnknown}
	}
	return signals, categories
}
