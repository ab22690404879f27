package policy

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/MEKXH/warden/internal/shell"
	"github.com/MEKXH/warden/internal/stablejson"
)

// DefaultShellTool is the designated shell-execution tool when the engine
// config does not name one.
const DefaultShellTool = "run_shell_command"

// Analyzer splits compound shell commands and detects redirection. It must
// be idempotent and must never execute the command.
type Analyzer interface {
	Split(command string) []string
	HasRedirection(command string) bool
}

// CheckerRunner invokes one safety checker. An error (or a panic inside an
// implementation, which implementations must convert to an error) is
// treated as a deny by the engine.
type CheckerRunner interface {
	Run(ctx context.Context, call ToolCall, spec CheckerSpec) (CheckerResult, error)
}

// EngineConfig assembles everything one engine owns. It is built once per
// session by Assemble and handed to NewEngine.
type EngineConfig struct {
	Rules    []Rule
	Checkers []CheckerRule

	// DefaultDecision applies when no rule matches. Empty means ask_user.
	DefaultDecision Decision

	ApprovalMode   ApprovalMode
	NonInteractive bool

	// ShellTool names the shell-execution tool whose compound commands are
	// decomposed and re-evaluated. Empty means DefaultShellTool.
	ShellTool string

	Aliases  *AliasTable
	Analyzer Analyzer
	Runner   CheckerRunner
}

// Engine evaluates tool calls against its rule store. The store is owned
// exclusively by the engine; mutations and checks are serialized through an
// internal lock so a session can register and tear down rules at runtime.
type Engine struct {
	mu              sync.RWMutex
	store           *Store
	defaultDecision Decision
	mode            ApprovalMode
	nonInteractive  bool
	shellTool       string
	aliases         *AliasTable
	analyzer        Analyzer
	runner          CheckerRunner
}

type builtinAnalyzer struct{}

func (builtinAnalyzer) Split(command string) []string      { return shell.Split(command) }
func (builtinAnalyzer) HasRedirection(command string) bool { return shell.HasRedirection(command) }

// NewEngine creates an engine from an assembled config.
func NewEngine(cfg EngineConfig) *Engine {
	defaultDecision := cfg.DefaultDecision
	if defaultDecision == "" {
		defaultDecision = DecisionAskUser
	}
	mode := cfg.ApprovalMode
	if mode == "" {
		mode = ModeDefault
	}
	shellTool := cfg.ShellTool
	if shellTool == "" {
		shellTool = DefaultShellTool
	}
	aliases := cfg.Aliases
	if aliases == nil {
		aliases = NewAliasTable(nil)
	}
	analyzer := cfg.Analyzer
	if analyzer == nil {
		analyzer = builtinAnalyzer{}
	}

	return &Engine{
		store:           NewStore(cfg.Rules, cfg.Checkers),
		defaultDecision: defaultDecision,
		mode:            mode,
		nonInteractive:  cfg.NonInteractive,
		shellTool:       shellTool,
		aliases:         aliases,
		analyzer:        analyzer,
		runner:          cfg.Runner,
	}
}

// SetApprovalMode switches the engine's approval posture at runtime.
func (e *Engine) SetApprovalMode(mode ApprovalMode) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.mode = mode
}

// ApprovalMode returns the current approval posture.
func (e *Engine) ApprovalMode() ApprovalMode {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.mode
}

// AddRule registers a rule at runtime.
func (e *Engine) AddRule(rule Rule) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.store.AddRule(rule)
}

// AddChecker registers a safety-checker binding at runtime.
func (e *Engine) AddChecker(rule CheckerRule) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.store.AddChecker(rule)
}

// RemoveRulesForTool drops every rule named exactly for the given tool.
func (e *Engine) RemoveRulesForTool(name string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.store.RemoveRulesForTool(name)
}

// Rules returns a priority-ordered snapshot of the policy rules.
func (e *Engine) Rules() []Rule {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.store.Rules()
}

// Checkers returns a priority-ordered snapshot of the checker bindings.
func (e *Engine) Checkers() []CheckerRule {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.store.Checkers()
}

// snapshot is the immutable view one Check operates on, so slow checker
// invocations do not hold the engine lock.
type snapshot struct {
	rules           []Rule
	checkers        []CheckerRule
	defaultDecision Decision
	mode            ApprovalMode
	nonInteractive  bool
	shellTool       string
	aliases         *AliasTable
	analyzer        Analyzer
	runner          CheckerRunner
}

func (e *Engine) snapshot() snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return snapshot{
		rules:           e.store.Rules(),
		checkers:        e.store.Checkers(),
		defaultDecision: e.defaultDecision,
		mode:            e.mode,
		nonInteractive:  e.nonInteractive,
		shellTool:       e.shellTool,
		aliases:         e.aliases,
		analyzer:        e.analyzer,
		runner:          e.runner,
	}
}

// Check evaluates one tool call and returns a decision. It never fails:
// malformed input resolves to a safe decision and checker errors resolve to
// deny. serverName is the declared identity of the server hosting the tool,
// used to verify wildcard rules; it is empty for built-in tools.
func (e *Engine) Check(ctx context.Context, call ToolCall, serverName string) CheckResult {
	snap := e.snapshot()
	res := checkCall(ctx, snap, call, serverName, true)
	return res.CheckResult
}

// evalResult augments a CheckResult with whether the decision, when allow,
// authorizes output redirection.
type evalResult struct {
	CheckResult
	allowsRedirection bool
}

// checkCall runs the full decision pipeline for one call. expand gates the
// shell-compound decomposition so sub-commands are evaluated as atomic
// calls and never split again.
func checkCall(ctx context.Context, snap snapshot, call ToolCall, serverName string, expand bool) evalResult {
	res := resolveRules(snap, call, serverName)

	if expand && call.Name == snap.shellTool && res.Decision != DecisionDeny {
		res = expandCompound(ctx, snap, call, serverName, res)
	}

	// An allow approved for a command's read semantics must not implicitly
	// authorize writing files through redirection.
	if call.Name == snap.shellTool && res.Decision == DecisionAllow && !res.allowsRedirection {
		if command, ok := commandArg(call.Args); ok && snap.analyzer.HasRedirection(command) {
			res.Decision = DecisionAskUser
			res.Reason = "command redirects output; rule does not permit redirection"
		}
	}

	if snap.nonInteractive && res.Decision == DecisionAskUser {
		res.Decision = DecisionDeny
		if res.Reason == "" {
			res.Reason = "approval required but session is non-interactive"
		}
	}

	if res.Decision != DecisionDeny {
		res = runCheckers(ctx, snap, call, serverName, res)
	}
	return res
}

// resolveRules performs candidate selection and priority resolution: the
// highest-priority eligible rule decides, otherwise the default decision
// applies with no attached rule.
func resolveRules(snap snapshot, call ToolCall, serverName string) evalResult {
	serialized := ""
	serializedDone := false

	for i := range snap.rules {
		rule := &snap.rules[i]
		if !snap.aliases.matchesToolName(rule.ToolName, call.Name, serverName) {
			continue
		}
		if !rule.appliesInMode(snap.mode) {
			continue
		}
		if rule.ArgsPattern != nil {
			if !serializedDone {
				if call.Args != nil {
					serialized = stablejson.Serialize(call.Args)
				}
				serializedDone = true
			}
			if !rule.ArgsPattern.MatchString(serialized) {
				continue
			}
		}

		res := evalResult{
			CheckResult: CheckResult{
				Decision: rule.Decision,
				Rule:     rule,
			},
			allowsRedirection: rule.AllowRedirection,
		}
		if rule.Decision == DecisionDeny && rule.DenyMessage != "" {
			res.Reason = rule.DenyMessage
		}
		return res
	}

	return evalResult{CheckResult: CheckResult{Decision: snap.defaultDecision}}
}

// expandCompound decomposes a compound shell command and re-evaluates each
// sub-command as an atomic call. Any denied sub-command denies the whole
// command; a uniformly allowed decomposition upgrades an ask_user base
// decision to allow. When the command cannot be decomposed the engine fails
// safe: yolo mode keeps the rule-based result, every other mode asks.
func expandCompound(ctx context.Context, snap snapshot, call ToolCall, serverName string, base evalResult) evalResult {
	command, ok := commandArg(call.Args)
	if !ok {
		return failSafe(snap, base, "shell command argument is missing or not a string")
	}

	parts := snap.analyzer.Split(command)
	if len(parts) == 0 {
		return failSafe(snap, base, "shell command could not be parsed")
	}

	if len(parts) == 1 && parts[0] == strings.TrimSpace(command) {
		// Atomic command; nothing to corroborate.
		return base
	}

	allAllow := true
	allowRedirection := true
	for _, part := range parts {
		sub := checkCall(ctx, snap, ToolCall{Name: call.Name, Args: substituteCommand(call.Args, part)}, serverName, false)
		if sub.Decision == DecisionDeny {
			return sub
		}
		if sub.Decision != DecisionAllow {
			allAllow = false
		}
		allowRedirection = allowRedirection && sub.allowsRedirection
	}

	if allAllow && base.Decision == DecisionAskUser {
		return evalResult{
			CheckResult:       CheckResult{Decision: DecisionAllow, Rule: base.Rule},
			allowsRedirection: allowRedirection,
		}
	}
	return base
}

// failSafe resolves an undecomposable shell command: yolo keeps the
// rule-based result, everything else asks the user, keeping whichever rule
// matched for context.
func failSafe(snap snapshot, base evalResult, reason string) evalResult {
	if snap.mode == ModeYolo {
		return base
	}
	return evalResult{
		CheckResult: CheckResult{
			Decision: DecisionAskUser,
			Rule:     base.Rule,
			Reason:   reason,
		},
	}
}

// runCheckers invokes matching safety checkers in priority order, stopping
// at the first non-allow verdict. Checkers can only tighten a decision:
// deny is final, ask_user escalates an allow, and an invocation failure is
// a deny (fail closed).
func runCheckers(ctx context.Context, snap snapshot, call ToolCall, serverName string, res evalResult) evalResult {
	serialized := ""
	serializedDone := false

	for i := range snap.checkers {
		binding := &snap.checkers[i]
		if !snap.aliases.matchesToolName(binding.ToolName, call.Name, serverName) {
			continue
		}
		if binding.ArgsPattern != nil {
			if !serializedDone {
				if call.Args != nil {
					serialized = stablejson.Serialize(call.Args)
				}
				serializedDone = true
			}
			if !binding.ArgsPattern.MatchString(serialized) {
				continue
			}
		}

		verdict, err := invokeChecker(ctx, snap.runner, call, binding.Checker)
		if err != nil {
			slog.Warn("safety checker failed, denying", "checker", binding.Checker.Name, "tool", call.Name, "error", err)
			res.Decision = DecisionDeny
			res.Reason = fmt.Sprintf("safety checker %q failed: %v", binding.Checker.Name, err)
			return res
		}

		switch verdict.Decision {
		case DecisionAllow:
			continue
		case DecisionDeny:
			res.Decision = DecisionDeny
			res.Reason = checkerReason(binding.Checker.Name, verdict.Reason, "denied")
			return res
		default:
			res.Decision = DecisionAskUser
			res.Reason = checkerReason(binding.Checker.Name, verdict.Reason, "requires approval")
			if snap.nonInteractive {
				res.Decision = DecisionDeny
			}
			return res
		}
	}
	return res
}

func invokeChecker(ctx context.Context, runner CheckerRunner, call ToolCall, spec CheckerSpec) (CheckerResult, error) {
	if runner == nil {
		return CheckerResult{}, fmt.Errorf("no checker runner configured")
	}
	return runner.Run(ctx, call, spec)
}

func checkerReason(name, reason, fallback string) string {
	if reason != "" {
		return reason
	}
	return fmt.Sprintf("safety checker %q %s", name, fallback)
}

// commandArg extracts the shell command string from call arguments.
func commandArg(args any) (string, bool) {
	switch m := args.(type) {
	case map[string]any:
		s, ok := m["command"].(string)
		return s, ok && s != ""
	case map[string]string:
		s, ok := m["command"]
		return s, ok && s != ""
	}
	return "", false
}

// substituteCommand returns a copy of args with the command field replaced
// and every other field (working directory and the like) preserved.
func substituteCommand(args any, command string) any {
	switch m := args.(type) {
	case map[string]any:
		out := make(map[string]any, len(m))
		for k, v := range m {
			out[k] = v
		}
		out["command"] = command
		return out
	case map[string]string:
		out := make(map[string]string, len(m))
		for k, v := range m {
			out[k] = v
		}
		out["command"] = command
		return out
	}
	return map[string]any{"command": command}
}
