package checker

import (
	"context"
	"fmt"
	"regexp"

	"github.com/MEKXH/warden/internal/policy"
)

// destructivePatterns match shell commands that destroy data or disable
// safeguards. Compiled once at init time.
var destructivePatterns = []*regexp.Regexp{
	// rm with force/recursive targeting root or home
	regexp.MustCompile(`(?i)\brm\s+(-[a-z]*r[a-z]*\s+-[a-z]*f[a-z]*|-[a-z]*f[a-z]*\s+-[a-z]*r[a-z]*|-[a-z]*rf[a-z]*|-[a-z]*fr[a-z]*)\s+/\s*$`),
	regexp.MustCompile(`(?i)\brm\s+(-[a-z]*r[a-z]*\s+-[a-z]*f[a-z]*|-[a-z]*f[a-z]*\s+-[a-z]*r[a-z]*|-[a-z]*rf[a-z]*|-[a-z]*fr[a-z]*)\s+~`),
	// sudo variants of rm
	regexp.MustCompile(`(?i)\bsudo\s+rm\s+(-[a-z]*r[a-z]*\s+-[a-z]*f[a-z]*|-[a-z]*f[a-z]*\s+-[a-z]*r[a-z]*|-[a-z]*rf[a-z]*|-[a-z]*fr[a-z]*)\s+/\s*$`),
	// explicitly disabling root safeguards
	regexp.MustCompile(`(?i)--no-preserve-root`),
	// filesystem format commands
	regexp.MustCompile(`(?i)\bmkfs\b`),
	regexp.MustCompile(`(?i)\bdd\s+if=`),
	// fork bomb
	regexp.MustCompile(`:\(\)\s*\{.*\|.*&\s*\}\s*;`),
	// Windows dangerous commands
	regexp.MustCompile(`(?i)\bformat\s+[a-z]:`),
	regexp.MustCompile(`(?i)\bdel\s+/[a-z]\s+/[a-z]\s+/[a-z]`),
}

// blocklistConfig is the optional binding config for command_blocklist.
type blocklistConfig struct {
	// Patterns are additional regexes screened on top of the defaults.
	Patterns []string `json:"patterns"`
}

// commandBlocklist is the built-in in-process checker screening shell
// commands against destructive-command patterns. It denies on a match and
// allows otherwise; a command argument that is missing entirely is allowed
// (there is nothing to screen).
func commandBlocklist(_ context.Context, call policy.ToolCall, config any) (policy.CheckerResult, error) {
	command, ok := commandString(call.Args)
	if !ok {
		return policy.CheckerResult{Decision: policy.DecisionAllow}, nil
	}

	for _, pat := range destructivePatterns {
		if pat.MatchString(command) {
			return policy.CheckerResult{
				Decision: policy.DecisionDeny,
				Reason:   fmt.Sprintf("blocked dangerous command matching pattern: %s", pat.String()),
			}, nil
		}
	}

	for _, raw := range extraPatterns(config) {
		pat, err := regexp.Compile(raw)
		if err != nil {
			return policy.CheckerResult{}, fmt.Errorf("invalid blocklist pattern %q: %w", raw, err)
		}
		if pat.MatchString(command) {
			return policy.CheckerResult{
				Decision: policy.DecisionDeny,
				Reason:   fmt.Sprintf("blocked dangerous command matching pattern: %s", raw),
			}, nil
		}
	}

	return policy.CheckerResult{Decision: policy.DecisionAllow}, nil
}

func extraPatterns(config any) []string {
	switch c := config.(type) {
	case blocklistConfig:
		return c.Patterns
	case map[string]any:
		raw, _ := c["patterns"].([]any)
		patterns := make([]string, 0, len(raw))
		for _, v := range raw {
			if s, ok := v.(string); ok {
				patterns = append(patterns, s)
			}
		}
		return patterns
	}
	return nil
}

func commandString(args any) (string, bool) {
	m, ok := args.(map[string]any)
	if !ok {
		return "", false
	}
	s, ok := m["command"].(string)
	return s, ok && s != ""
}
