package checker

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/MEKXH/warden/internal/policy"
	"github.com/MEKXH/warden/internal/tools"
)

func TestRunner_BuiltinRegistered(t *testing.T) {
	runner := NewRunner(0)
	if !runner.Known("command_blocklist") {
		t.Fatal("expected command_blocklist to be registered by default")
	}
	if runner.Known("nope") {
		t.Fatal("expected unknown name to report false")
	}
}

func TestRunner_Register(t *testing.T) {
	runner := NewRunner(0)

	fn := func(_ context.Context, _ policy.ToolCall, _ any) (policy.CheckerResult, error) {
		return policy.CheckerResult{Decision: policy.DecisionAllow}, nil
	}

	if err := runner.Register("custom", fn); err != nil {
		t.Fatalf("Register error: %v", err)
	}
	if !runner.Known("custom") {
		t.Fatal("expected custom checker to be known after Register")
	}
	if err := runner.Register("custom", fn); err == nil {
		t.Fatal("expected error registering duplicate name")
	}
	if err := runner.Register("", fn); err == nil {
		t.Fatal("expected error registering empty name")
	}
	if err := runner.Register("nilfn", nil); err == nil {
		t.Fatal("expected error registering nil function")
	}
}

func TestRunner_RunInProcess(t *testing.T) {
	runner := NewRunner(0)
	err := runner.Register("always_deny", func(_ context.Context, call policy.ToolCall, _ any) (policy.CheckerResult, error) {
		return policy.CheckerResult{
			Decision: policy.DecisionDeny,
			Reason:   "denied " + call.Name,
		}, nil
	})
	if err != nil {
		t.Fatalf("Register error: %v", err)
	}

	result, err := runner.Run(context.Background(), policy.ToolCall{Name: "write_file"}, policy.CheckerSpec{
		Type: policy.CheckerInProcess,
		Name: "always_deny",
	})
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if result.Decision != policy.DecisionDeny {
		t.Fatalf("expected deny, got %q", result.Decision)
	}
	if result.Reason != "denied write_file" {
		t.Fatalf("unexpected reason %q", result.Reason)
	}
}

func TestRunner_RunUnknownChecker(t *testing.T) {
	runner := NewRunner(0)
	_, err := runner.Run(context.Background(), policy.ToolCall{Name: "x"}, policy.CheckerSpec{
		Type: policy.CheckerInProcess,
		Name: "does_not_exist",
	})
	if err == nil {
		t.Fatal("expected error for unknown checker")
	}
}

func TestRunner_RunInvalidType(t *testing.T) {
	runner := NewRunner(0)
	_, err := runner.Run(context.Background(), policy.ToolCall{Name: "x"}, policy.CheckerSpec{
		Type: policy.CheckerType("weird"),
		Name: "whatever",
	})
	if err == nil {
		t.Fatal("expected error for invalid checker type")
	}
}

// writeCheckerScript drops an executable shell script into a temp dir and
// returns its path.
func writeCheckerScript(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("external checker scripts are not portable to windows")
	}
	path := filepath.Join(t.TempDir(), "checker.sh")
	script := "#!/bin/sh\n" + body + "\n"
	if err := os.WriteFile(path, []byte(script), 0755); err != nil {
		t.Fatalf("WriteFile script error: %v", err)
	}
	return path
}

func TestRunner_RunExternal(t *testing.T) {
	script := writeCheckerScript(t, `cat > /dev/null; echo '{"decision":"ask_user","reason":"needs review"}'`)

	runner := NewRunner(5 * time.Second)
	result, err := runner.Run(context.Background(), policy.ToolCall{
		Name: "run_shell_command",
		Args: map[string]any{"command": "ls"},
	}, policy.CheckerSpec{
		Type: policy.CheckerExternal,
		Name: script,
	})
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if result.Decision != policy.DecisionAskUser {
		t.Fatalf("expected ask_user, got %q", result.Decision)
	}
	if result.Reason != "needs review" {
		t.Fatalf("unexpected reason %q", result.Reason)
	}
}

func TestRunner_RunExternal_RequestPayload(t *testing.T) {
	out := filepath.Join(t.TempDir(), "request.json")
	script := writeCheckerScript(t, `cat > `+out+`; echo '{"decision":"allow"}'`)

	ctx := tools.WithInvocation(context.Background(), tools.InvocationContext{
		SessionID: "s-1",
		Workspace: "/repo",
	})

	runner := NewRunner(5 * time.Second)
	_, err := runner.Run(ctx, policy.ToolCall{
		Name: "run_shell_command",
		Args: map[string]any{"command": "make test"},
	}, policy.CheckerSpec{
		Type:            policy.CheckerExternal,
		Name:            script,
		RequiredContext: []string{"session_id", "workspace"},
	})
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}

	payload, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("ReadFile request error: %v", err)
	}
	for _, want := range []string{
		`"tool":"run_shell_command"`,
		`"command":"make test"`,
		`"session_id":"s-1"`,
		`"workspace":"/repo"`,
	} {
		if !strings.Contains(string(payload), want) {
			t.Fatalf("request payload missing %s: %s", want, payload)
		}
	}
}

func TestRunner_RunExternal_NonZeroExit(t *testing.T) {
	script := writeCheckerScript(t, `echo "boom" >&2; exit 3`)

	runner := NewRunner(5 * time.Second)
	_, err := runner.Run(context.Background(), policy.ToolCall{Name: "x"}, policy.CheckerSpec{
		Type: policy.CheckerExternal,
		Name: script,
	})
	if err == nil {
		t.Fatal("expected error for non-zero exit")
	}
	if !strings.Contains(err.Error(), "boom") {
		t.Fatalf("expected stderr in error, got %v", err)
	}
}

func TestRunner_RunExternal_MalformedResponse(t *testing.T) {
	script := writeCheckerScript(t, `cat > /dev/null; echo 'not json'`)

	runner := NewRunner(5 * time.Second)
	_, err := runner.Run(context.Background(), policy.ToolCall{Name: "x"}, policy.CheckerSpec{
		Type: policy.CheckerExternal,
		Name: script,
	})
	if err == nil {
		t.Fatal("expected error for malformed response")
	}
}

func TestRunner_RunExternal_InvalidDecision(t *testing.T) {
	script := writeCheckerScript(t, `cat > /dev/null; echo '{"decision":"maybe"}'`)

	runner := NewRunner(5 * time.Second)
	_, err := runner.Run(context.Background(), policy.ToolCall{Name: "x"}, policy.CheckerSpec{
		Type: policy.CheckerExternal,
		Name: script,
	})
	if err == nil {
		t.Fatal("expected error for invalid decision")
	}
}
