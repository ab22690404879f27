// Package policyfile reads declarative policy rule files. Each file is a
// TOML document of [[rule]] and [[checker]] tables; a directory of files is
// loaded with per-entry validation so one malformed rule never takes down
// the rest of the policy.
package policyfile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/MEKXH/warden/internal/policy"
)

// ruleFile is the TOML document shape.
type ruleFile struct {
	Rule    []ruleEntry    `toml:"rule"`
	Checker []checkerEntry `toml:"checker"`
}

type ruleEntry struct {
	Tool             string   `toml:"tool"`
	Pattern          string   `toml:"pattern"`
	Decision         string   `toml:"decision"`
	Priority         int      `toml:"priority"`
	Modes            []string `toml:"modes"`
	AllowRedirection bool     `toml:"allow_redirection"`
	DenyMessage      string   `toml:"deny_message"`
}

type checkerEntry struct {
	Tool     string     `toml:"tool"`
	Pattern  string     `toml:"pattern"`
	Priority int        `toml:"priority"`
	Run      checkerRun `toml:"run"`
}

type checkerRun struct {
	Type            string   `toml:"type"`
	Name            string   `toml:"name"`
	Config          any      `toml:"config"`
	RequiredContext []string `toml:"required_context"`
}

// LoadDir loads every *.toml file directly under dir, in lexical order so
// insertion-order tie-breaking is reproducible. A missing directory is an
// empty load; a directory that is world-writable is skipped entirely and
// contributes no rules, only an error. File priorities stay raw — the
// config assembler maps them into a trust tier.
func LoadDir(dir string) policy.Load {
	var load policy.Load

	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return load
		}
		load.Errors = append(load.Errors, fmt.Sprintf("%s: %v", dir, err))
		return load
	}
	if !info.IsDir() {
		load.Errors = append(load.Errors, fmt.Sprintf("%s: not a directory", dir))
		return load
	}
	if info.Mode().Perm()&0o002 != 0 {
		load.Errors = append(load.Errors, fmt.Sprintf("%s: world-writable policy directory skipped", dir))
		slog.Warn("skipping insecure policy directory", "dir", dir)
		return load
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		load.Errors = append(load.Errors, fmt.Sprintf("%s: %v", dir, err))
		return load
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".toml") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	for _, name := range names {
		loadFile(filepath.Join(dir, name), &load)
	}
	return load
}

func loadFile(path string, load *policy.Load) {
	data, err := os.ReadFile(path)
	if err != nil {
		load.Errors = append(load.Errors, fmt.Sprintf("%s: %v", path, err))
		return
	}

	var doc ruleFile
	if err := toml.Unmarshal(data, &doc); err != nil {
		load.Errors = append(load.Errors, fmt.Sprintf("%s: %v", path, err))
		return
	}

	for i, entry := range doc.Rule {
		rule, err := buildRule(entry)
		if err != nil {
			load.Errors = append(load.Errors, fmt.Sprintf("%s: rule %d: %v", path, i+1, err))
			continue
		}
		load.Rules = append(load.Rules, rule)
	}

	for i, entry := range doc.Checker {
		binding, err := buildChecker(entry)
		if err != nil {
			load.Errors = append(load.Errors, fmt.Sprintf("%s: checker %d: %v", path, i+1, err))
			continue
		}
		load.Checkers = append(load.Checkers, binding)
	}
}

func buildRule(entry ruleEntry) (policy.Rule, error) {
	if !policy.ValidDecision(entry.Decision) {
		return policy.Rule{}, fmt.Errorf("invalid decision %q", entry.Decision)
	}
	if err := validPriority(entry.Priority); err != nil {
		return policy.Rule{}, err
	}

	rule := policy.Rule{
		ToolName:         strings.TrimSpace(entry.Tool),
		Decision:         policy.Decision(strings.ToLower(strings.TrimSpace(entry.Decision))),
		Priority:         float64(entry.Priority),
		AllowRedirection: entry.AllowRedirection,
		DenyMessage:      entry.DenyMessage,
	}

	if entry.Pattern != "" {
		pattern, err := regexp.Compile(entry.Pattern)
		if err != nil {
			return policy.Rule{}, fmt.Errorf("invalid pattern: %v", err)
		}
		rule.ArgsPattern = pattern
	}

	for _, raw := range entry.Modes {
		mode, ok := policy.ParseApprovalMode(raw)
		if !ok {
			return policy.Rule{}, fmt.Errorf("invalid mode %q", raw)
		}
		rule.Modes = append(rule.Modes, mode)
	}
	return rule, nil
}

func buildChecker(entry checkerEntry) (policy.CheckerRule, error) {
	if err := validPriority(entry.Priority); err != nil {
		return policy.CheckerRule{}, err
	}

	checkerType := policy.CheckerType(strings.ToLower(strings.TrimSpace(entry.Run.Type)))
	switch checkerType {
	case policy.CheckerInProcess, policy.CheckerExternal:
	default:
		return policy.CheckerRule{}, fmt.Errorf("invalid checker type %q", entry.Run.Type)
	}
	if strings.TrimSpace(entry.Run.Name) == "" {
		return policy.CheckerRule{}, fmt.Errorf("checker name is required")
	}

	binding := policy.CheckerRule{
		ToolName: strings.TrimSpace(entry.Tool),
		Priority: float64(entry.Priority),
		Checker: policy.CheckerSpec{
			Type:            checkerType,
			Name:            strings.TrimSpace(entry.Run.Name),
			Config:          entry.Run.Config,
			RequiredContext: entry.Run.RequiredContext,
		},
	}

	if entry.Pattern != "" {
		pattern, err := regexp.Compile(entry.Pattern)
		if err != nil {
			return policy.CheckerRule{}, fmt.Errorf("invalid pattern: %v", err)
		}
		binding.ArgsPattern = pattern
	}
	return binding, nil
}

// validPriority bounds raw file priorities; the top value is reserved for
// the ask-user override synthesized at assembly time.
func validPriority(p int) error {
	if p < 0 || p >= policy.MaxFilePriority {
		return fmt.Errorf("priority %d out of range [0,%d)", p, policy.MaxFilePriority)
	}
	return nil
}
