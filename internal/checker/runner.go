// Package checker runs safety checkers: pluggable probes a policy can bind
// to tool calls for a second opinion after rule matching. A checker is
// either an in-process function registered by name or an external program
// spoken to over stdin/stdout JSON. Checker failures are reported as
// errors; the policy engine treats them as deny.
package checker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/MEKXH/warden/internal/policy"
	"github.com/MEKXH/warden/internal/stablejson"
	"github.com/MEKXH/warden/internal/tools"
)

const defaultExternalTimeout = 30 * time.Second

// CheckFunc is an in-process safety checker. config comes verbatim from the
// checker binding.
type CheckFunc func(ctx context.Context, call policy.ToolCall, config any) (policy.CheckerResult, error)

// Runner dispatches checker invocations. It implements policy.CheckerRunner.
type Runner struct {
	mu        sync.RWMutex
	inProcess map[string]CheckFunc
	timeout   time.Duration
}

// NewRunner creates a runner with the built-in checkers registered and the
// given per-invocation timeout for external checkers (zero means 30s).
func NewRunner(externalTimeout time.Duration) *Runner {
	if externalTimeout <= 0 {
		externalTimeout = defaultExternalTimeout
	}
	r := &Runner{
		inProcess: make(map[string]CheckFunc),
		timeout:   externalTimeout,
	}
	r.inProcess["command_blocklist"] = commandBlocklist
	return r
}

// Register adds an in-process checker under name.
func (r *Runner) Register(name string, fn CheckFunc) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("checker name is required")
	}
	if fn == nil {
		return fmt.Errorf("checker %q has no function", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.inProcess[name]; exists {
		return fmt.Errorf("checker already registered: %s", name)
	}
	r.inProcess[name] = fn
	return nil
}

// Known reports whether an in-process checker name is registered. The
// config assembler uses it to drop bindings to unknown checkers.
func (r *Runner) Known(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.inProcess[name]
	return ok
}

// Run invokes one checker and returns its verdict. Any failure — unknown
// checker, subprocess error, malformed response — is returned as an error
// for the engine to fail closed on.
func (r *Runner) Run(ctx context.Context, call policy.ToolCall, spec policy.CheckerSpec) (policy.CheckerResult, error) {
	switch spec.Type {
	case policy.CheckerInProcess:
		r.mu.RLock()
		fn, ok := r.inProcess[spec.Name]
		r.mu.RUnlock()
		if !ok {
			return policy.CheckerResult{}, fmt.Errorf("unknown in-process checker %q", spec.Name)
		}
		return fn(ctx, call, spec.Config)
	case policy.CheckerExternal:
		return r.runExternal(ctx, call, spec)
	default:
		return policy.CheckerResult{}, fmt.Errorf("invalid checker type %q", spec.Type)
	}
}

// externalRequest is the JSON document written to an external checker's
// stdin. Args carries the stable serialization of the call arguments so
// cyclic values cannot break the encoding.
type externalRequest struct {
	Tool    string            `json:"tool"`
	Args    json.RawMessage   `json:"args,omitempty"`
	Config  any               `json:"config,omitempty"`
	Context map[string]string `json:"context,omitempty"`
}

type externalResponse struct {
	Decision string `json:"decision"`
	Reason   string `json:"reason,omitempty"`
}

func (r *Runner) runExternal(ctx context.Context, call policy.ToolCall, spec policy.CheckerSpec) (policy.CheckerResult, error) {
	req := externalRequest{
		Tool:    call.Name,
		Context: requiredContext(ctx, spec.RequiredContext),
		Config:  spec.Config,
	}
	if call.Args != nil {
		req.Args = json.RawMessage(stablejson.Serialize(call.Args))
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return policy.CheckerResult{}, fmt.Errorf("encode checker request: %w", err)
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cmd := exec.CommandContext(timeoutCtx, spec.Name)
	cmd.Stdin = bytes.NewReader(payload)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return policy.CheckerResult{}, fmt.Errorf("checker %q: %s: %w", spec.Name, msg, err)
		}
		return policy.CheckerResult{}, fmt.Errorf("checker %q: %w", spec.Name, err)
	}

	var resp externalResponse
	if err := json.Unmarshal(stdout.Bytes(), &resp); err != nil {
		return policy.CheckerResult{}, fmt.Errorf("checker %q returned malformed response: %w", spec.Name, err)
	}
	if !policy.ValidDecision(resp.Decision) {
		return policy.CheckerResult{}, fmt.Errorf("checker %q returned invalid decision %q", spec.Name, resp.Decision)
	}

	return policy.CheckerResult{
		Decision: policy.Decision(strings.ToLower(strings.TrimSpace(resp.Decision))),
		Reason:   resp.Reason,
	}, nil
}

// requiredContext copies the requested invocation-metadata keys into the
// checker payload. Unknown keys resolve to empty strings so a checker can
// tell "absent" from "not requested".
func requiredContext(ctx context.Context, keys []string) map[string]string {
	if len(keys) == 0 {
		return nil
	}
	meta := tools.InvocationFromContext(ctx)
	available := map[string]string{
		"session_id": meta.SessionID,
		"request_id": meta.RequestID,
		"workspace":  meta.Workspace,
	}
	out := make(map[string]string, len(keys))
	for _, key := range keys {
		out[key] = available[key]
	}
	return out
}
