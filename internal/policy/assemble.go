package policy

import (
	"fmt"
	"sort"
)

// The priority namespace is partitioned into trust tiers. Anything derived
// from user settings or user policy files outranks anything bundled with
// the binary, regardless of in-tier values, so local configuration can
// never be shadowed by shipped defaults.
//
//	[0,1)  engine default decision
//	[1,2)  bundled default policy files: 1 + p/1000, p in [0,999]
//	[2,3)  settings and user policy files: 2 + p/1000
const (
	defaultFileTierBase = 1.0
	userTierBase        = 2.0

	// MaxFilePriority is the largest raw priority a policy file may use.
	// 999 itself is reserved for the ask-user override so it always
	// outranks file-derived allows within its tier.
	MaxFilePriority = 999

	// yoloPresetPriority is the raw default-tier priority of the yolo
	// wildcard allow, deliberately one below the reserved maximum.
	yoloPresetPriority = 998
)

// Fixed settings-tier priorities, one per settings source.
const (
	PriorityMCPAllowedServer  = 2.1
	PriorityMCPTrustedServer  = 2.2
	PriorityToolsAllowed      = 2.3
	PriorityToolsExclude      = 2.4
	PriorityMCPExcludedServer = 2.9
)

// DefaultFilePriority maps a bundled policy file's raw priority into the
// default tier. Out-of-range values are clamped.
func DefaultFilePriority(p int) float64 {
	return defaultFileTierBase + float64(clampFilePriority(p))/1000
}

// UserFilePriority maps a user policy file's raw priority into the
// settings tier. Out-of-range values are clamped.
func UserFilePriority(p int) float64 {
	return userTierBase + float64(clampFilePriority(p))/1000
}

func clampFilePriority(p int) int {
	if p < 0 {
		return 0
	}
	if p > MaxFilePriority {
		return MaxFilePriority
	}
	return p
}

// Settings is the structured configuration the assembler consumes. Each
// field maps to synthesized rules at the fixed settings-tier priorities.
type Settings struct {
	ToolsAllowed []string
	ToolsExclude []string

	// MCPAllowed and MCPExcluded hold server names; trust maps server name
	// to whether its tools are pre-approved.
	MCPAllowed     []string
	MCPExcluded    []string
	MCPServerTrust map[string]bool

	ApprovalMode   ApprovalMode
	NonInteractive bool

	// AskUserOverride injects a match-all ask_user rule at the reserved
	// default-tier priority, outranking every file-derived allow
	// (including the yolo preset) while still yielding to settings rules.
	AskUserOverride bool
}

// Load is the outcome of reading one layer of declarative policy files:
// whatever parsed cleanly plus the errors collected on the way. Rule and
// checker priorities are raw file values; Assemble maps them into tiers.
type Load struct {
	Rules    []Rule
	Checkers []CheckerRule
	Errors   []string
}

// AssembleOptions carries the collaborators Assemble validates against.
type AssembleOptions struct {
	// KnownInProcessChecker reports whether an in-process checker name is
	// registered. Bindings naming unknown checkers are dropped with a
	// collected error. Nil accepts every name.
	KnownInProcessChecker func(name string) bool
}

// Assemble builds an engine config from layered sources: bundled default
// policy files, user policy files and structured settings. Invalid entries
// are dropped and reported; assembly itself never fails, so the engine
// always starts with whatever valid rules remain.
func Assemble(settings Settings, defaults Load, user Load, opts AssembleOptions) (EngineConfig, []string) {
	var errs []string
	errs = append(errs, defaults.Errors...)
	errs = append(errs, user.Errors...)

	var rules []Rule
	var checkers []CheckerRule

	addFileLayer := func(layer Load, mapPriority func(int) float64, origin string) {
		for _, r := range layer.Rules {
			if !ValidDecision(string(r.Decision)) {
				errs = append(errs, fmt.Sprintf("%s: rule for %q has invalid decision %q", origin, r.ToolName, r.Decision))
				continue
			}
			r.Priority = mapPriority(int(r.Priority))
			rules = append(rules, r)
		}
		for _, c := range layer.Checkers {
			if err := validateChecker(c.Checker, opts); err != nil {
				errs = append(errs, fmt.Sprintf("%s: checker binding for %q dropped: %v", origin, c.ToolName, err))
				continue
			}
			c.Priority = mapPriority(int(c.Priority))
			checkers = append(checkers, c)
		}
	}

	addFileLayer(defaults, DefaultFilePriority, "default policy")
	addFileLayer(user, UserFilePriority, "user policy")

	for _, name := range settings.ToolsAllowed {
		rules = append(rules, Rule{ToolName: name, Decision: DecisionAllow, Priority: PriorityToolsAllowed})
	}
	for _, name := range settings.ToolsExclude {
		rules = append(rules, Rule{ToolName: name, Decision: DecisionDeny, Priority: PriorityToolsExclude,
			DenyMessage: fmt.Sprintf("tool %q is excluded by settings", name)})
	}
	for _, server := range settings.MCPAllowed {
		rules = append(rules, Rule{ToolName: server + wildcardSuffix, Decision: DecisionAskUser, Priority: PriorityMCPAllowedServer})
	}
	for _, ts := range sortedTrustEntries(settings.MCPServerTrust) {
		if ts.trusted {
			rules = append(rules, Rule{ToolName: ts.server + wildcardSuffix, Decision: DecisionAllow, Priority: PriorityMCPTrustedServer})
		}
	}
	for _, server := range settings.MCPExcluded {
		rules = append(rules, Rule{ToolName: server + wildcardSuffix, Decision: DecisionDeny, Priority: PriorityMCPExcludedServer,
			DenyMessage: fmt.Sprintf("MCP server %q is excluded by settings", server)})
	}

	mode := settings.ApprovalMode
	if mode == "" {
		mode = ModeDefault
	}

	// The yolo preset is a default-tier wildcard allow scoped to yolo
	// mode, so switching modes at runtime enables and disables it without
	// touching the store. Any settings-tier deny still outranks it.
	rules = append(rules, Rule{
		Decision: DecisionAllow,
		Priority: DefaultFilePriority(yoloPresetPriority),
		Modes:    []ApprovalMode{ModeYolo},
	})

	if settings.AskUserOverride {
		rules = append(rules, Rule{
			Decision: DecisionAskUser,
			Priority: DefaultFilePriority(MaxFilePriority),
		})
	}

	return EngineConfig{
		Rules:           rules,
		Checkers:        checkers,
		DefaultDecision: DecisionAskUser,
		ApprovalMode:    mode,
		NonInteractive:  settings.NonInteractive,
	}, errs
}

func validateChecker(spec CheckerSpec, opts AssembleOptions) error {
	switch spec.Type {
	case CheckerInProcess:
		if opts.KnownInProcessChecker != nil && !opts.KnownInProcessChecker(spec.Name) {
			return fmt.Errorf("unknown in-process checker %q", spec.Name)
		}
	case CheckerExternal:
		if spec.Name == "" {
			return fmt.Errorf("external checker has no command")
		}
	default:
		return fmt.Errorf("invalid checker type %q", spec.Type)
	}
	return nil
}

type trustEntry struct {
	server  string
	trusted bool
}

// sortedTrustEntries iterates the trust map deterministically so assembly
// output is stable across runs.
func sortedTrustEntries(trust map[string]bool) []trustEntry {
	entries := make([]trustEntry, 0, len(trust))
	for server, trusted := range trust {
		entries = append(entries, trustEntry{server: server, trusted: trusted})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].server < entries[j].server })
	return entries
}
