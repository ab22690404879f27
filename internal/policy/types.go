// Package policy is the authorization decision core: every tool call an
// agent wants to execute is evaluated against a priority-ordered rule set
// and optional safety checkers, producing allow, deny or ask_user.
package policy

import (
	"regexp"
	"strings"
)

// Decision is the outcome of an authorization check.
type Decision string

const (
	DecisionAllow   Decision = "allow"
	DecisionDeny    Decision = "deny"
	DecisionAskUser Decision = "ask_user"
)

// ValidDecision reports whether s names a known decision.
func ValidDecision(s string) bool {
	switch Decision(strings.ToLower(strings.TrimSpace(s))) {
	case DecisionAllow, DecisionDeny, DecisionAskUser:
		return true
	}
	return false
}

// ApprovalMode is the process-wide approval posture. Rules may scope
// themselves to a subset of modes.
type ApprovalMode string

const (
	ModeDefault  ApprovalMode = "default"
	ModeAutoEdit ApprovalMode = "auto_edit"
	ModePlan     ApprovalMode = "plan"
	ModeYolo     ApprovalMode = "yolo"
)

// ParseApprovalMode normalizes a mode string. Unknown values return
// ModeDefault and false.
func ParseApprovalMode(s string) (ApprovalMode, bool) {
	switch mode := ApprovalMode(strings.ToLower(strings.TrimSpace(s))); mode {
	case ModeDefault, ModeAutoEdit, ModePlan, ModeYolo:
		return mode, true
	}
	return ModeDefault, false
}

// ToolCall is one requested tool invocation. Args comes straight from the
// model and may contain cycles or values with no JSON representation; the
// engine never fails on them.
type ToolCall struct {
	Name string
	Args any
}

// Rule is one authorization rule. A zero ToolName matches every tool; the
// form "<server>__*" matches every tool hosted by <server>, verified
// against the call's declared server identity. Rules are immutable once
// added to a store.
type Rule struct {
	// ToolName is the exact tool name, a "<server>__*" wildcard, or empty
	// for a match-all rule.
	ToolName string

	// ArgsPattern, when set, must match the stable serialization of the
	// call arguments for the rule to apply.
	ArgsPattern *regexp.Regexp

	Decision Decision

	// Priority orders rules; higher wins. Ties keep insertion order.
	Priority float64

	// Modes limits the rule to specific approval modes. Nil applies in all.
	Modes []ApprovalMode

	// AllowRedirection lets an allow rule authorize shell output
	// redirection. Without it an allowed shell command containing
	// redirection is downgraded to ask_user.
	AllowRedirection bool

	// DenyMessage is surfaced to the caller when this rule denies.
	DenyMessage string
}

// appliesInMode reports whether the rule is eligible under mode.
func (r *Rule) appliesInMode(mode ApprovalMode) bool {
	if len(r.Modes) == 0 {
		return true
	}
	for _, m := range r.Modes {
		if m == mode {
			return true
		}
	}
	return false
}

// CheckerType distinguishes in-process from external safety checkers.
type CheckerType string

const (
	CheckerInProcess CheckerType = "in-process"
	CheckerExternal  CheckerType = "external"
)

// CheckerSpec identifies and configures one safety checker.
type CheckerSpec struct {
	Type CheckerType
	Name string
	// Config is passed through to the checker verbatim.
	Config any
	// RequiredContext lists invocation-context keys the checker needs.
	RequiredContext []string
}

// CheckerRule binds a safety checker to the calls it screens, with the same
// tool-name and args-pattern semantics as Rule.
type CheckerRule struct {
	ToolName    string
	ArgsPattern *regexp.Regexp
	Priority    float64
	Checker     CheckerSpec
}

// CheckResult is the engine's answer for one call.
type CheckResult struct {
	Decision Decision
	// Rule is the policy rule that determined the decision, when one did.
	Rule *Rule
	// Reason is a human-readable explanation (deny message or checker
	// verdict) for the caller to surface or log.
	Reason string
}

// CheckerResult is a safety checker's verdict.
type CheckerResult struct {
	Decision Decision
	Reason   string
}
