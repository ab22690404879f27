package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/MEKXH/warden/internal/policy"
)

func TestLoadFrom_CreatesDefaultConfigWhenMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Approval.Mode != string(policy.ModeDefault) {
		t.Fatalf("expected default approval mode, got %q", cfg.Approval.Mode)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected config file to be created: %v", err)
	}
}

func TestLoadFrom_RoundTripsSavedConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	cfg := DefaultConfig()
	cfg.Tools.Allowed = []string{"run_shell_command"}
	cfg.Tools.Exclude = []string{"dangerous-tool"}
	cfg.Approval.Mode = string(policy.ModeYolo)
	cfg.MCPServers = map[string]MCPServer{"corp": {Trust: true}}
	if err := SaveTo(cfg, path); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(loaded.Tools.Allowed) != 1 || loaded.Tools.Allowed[0] != "run_shell_command" {
		t.Fatalf("expected allowed tools to round-trip, got %v", loaded.Tools.Allowed)
	}
	if loaded.Approval.Mode != string(policy.ModeYolo) {
		t.Fatalf("expected yolo mode, got %q", loaded.Approval.Mode)
	}
	if !loaded.MCPServers["corp"].Trust {
		t.Fatalf("expected corp server trust to round-trip")
	}
}

func TestValidate_RejectsUnknownApprovalMode(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Approval.Mode = "cowboy"

	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected validation error for unknown mode")
	}
}

func TestValidate_FillsDefaults(t *testing.T) {
	cfg := &Config{}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Approval.Mode != string(policy.ModeDefault) {
		t.Fatalf("expected default mode fill, got %q", cfg.Approval.Mode)
	}
	if cfg.Tools.ShellTool != policy.DefaultShellTool {
		t.Fatalf("expected shell tool fill, got %q", cfg.Tools.ShellTool)
	}
	if cfg.Checkers.ExternalTimeout != 30 {
		t.Fatalf("expected timeout fill, got %d", cfg.Checkers.ExternalTimeout)
	}
	if cfg.Log.Level != "info" {
		t.Fatalf("expected log level fill, got %q", cfg.Log.Level)
	}
}

func TestValidate_RejectsBadLogLevel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Log.Level = "loud"

	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected validation error for bad log level")
	}
}

func TestSettings_ProjectsIntoPolicyShape(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Tools.Allowed = []string{"a"}
	cfg.Tools.Exclude = []string{"b"}
	cfg.MCP.Allowed = []string{"s1"}
	cfg.MCP.Excluded = []string{"s2"}
	cfg.MCPServers = map[string]MCPServer{"s1": {Trust: true}}
	cfg.Approval.Mode = string(policy.ModePlan)
	cfg.Approval.NonInteractive = true

	s := cfg.Settings()
	if s.ApprovalMode != policy.ModePlan {
		t.Fatalf("expected plan mode, got %q", s.ApprovalMode)
	}
	if !s.NonInteractive {
		t.Fatalf("expected non-interactive to carry over")
	}
	if !s.MCPServerTrust["s1"] {
		t.Fatalf("expected trust map to carry over")
	}
	if len(s.ToolsAllowed) != 1 || len(s.ToolsExclude) != 1 {
		t.Fatalf("expected tool lists to carry over, got %+v", s)
	}
}
