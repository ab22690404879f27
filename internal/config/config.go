package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/MEKXH/warden/internal/policy"
)

// Config root configuration
type Config struct {
	Tools      ToolsConfig          `mapstructure:"tools"`
	MCP        MCPConfig            `mapstructure:"mcp"`
	MCPServers map[string]MCPServer `mapstructure:"mcp_servers"`
	Approval   ApprovalConfig       `mapstructure:"approval"`
	Policy     PolicyConfig         `mapstructure:"policy"`
	Checkers   CheckersConfig       `mapstructure:"checkers"`
	Log        LogConfig            `mapstructure:"log"`
}

// ToolsConfig tool allow/deny lists from settings
type ToolsConfig struct {
	Allowed []string `mapstructure:"allowed"`
	Exclude []string `mapstructure:"exclude"`
	// ShellTool overrides the designated shell-execution tool name.
	ShellTool string `mapstructure:"shell_tool"`
}

// MCPConfig server-level allow/deny lists
type MCPConfig struct {
	Allowed  []string `mapstructure:"allowed"`
	Excluded []string `mapstructure:"excluded"`
}

// MCPServer per-server settings
type MCPServer struct {
	Trust bool `mapstructure:"trust"`
}

// ApprovalConfig approval posture settings
type ApprovalConfig struct {
	Mode           string `mapstructure:"mode"`
	NonInteractive bool   `mapstructure:"non_interactive"`
	// AskOverride forces every file-derived allow back to ask_user.
	AskOverride bool `mapstructure:"ask_override"`
}

// PolicyConfig policy file locations
type PolicyConfig struct {
	// DefaultDir holds bundled default policy files (default tier).
	DefaultDir string `mapstructure:"default_dir"`
	// Dirs holds user policy directories (settings tier).
	Dirs []string `mapstructure:"dirs"`
}

// CheckersConfig safety checker runner settings
type CheckersConfig struct {
	// ExternalTimeout bounds one external checker invocation, in seconds.
	ExternalTimeout int `mapstructure:"external_timeout"`
}

// LogConfig application logging settings
type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

// DefaultConfig returns config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Tools: ToolsConfig{
			Allowed:   []string{},
			Exclude:   []string{},
			ShellTool: policy.DefaultShellTool,
		},
		MCP: MCPConfig{
			Allowed:  []string{},
			Excluded: []string{},
		},
		MCPServers: map[string]MCPServer{},
		Approval: ApprovalConfig{
			Mode: string(policy.ModeDefault),
		},
		Policy: PolicyConfig{
			DefaultDir: filepath.Join(ConfigDir(), "policies", "default"),
			Dirs:       []string{filepath.Join(ConfigDir(), "policies")},
		},
		Checkers: CheckersConfig{
			ExternalTimeout: 30,
		},
		Log: LogConfig{
			Level: "info",
			File:  "",
		},
	}
}

// ConfigDir returns the warden config directory
func ConfigDir() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".warden")
}

// ConfigPath returns the config file path
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.json")
}

// Load loads config from file or returns defaults
func Load() (*Config, error) {
	return LoadFrom(ConfigPath())
}

// LoadFrom loads config from an explicit path, creating it with defaults
// when missing.
func LoadFrom(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := SaveTo(cfg, configPath); err != nil {
			return cfg, fmt.Errorf("failed to create default config: %w", err)
		}
		return cfg, nil
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("json")
	v.SetEnvPrefix("WARDEN")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return cfg, err
	}

	if err := v.Unmarshal(cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.MatchName = func(mapKey, fieldName string) bool {
			return normalizeKey(mapKey) == normalizeKey(fieldName)
		}
	}); err != nil {
		return cfg, err
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func normalizeKey(input string) string {
	input = strings.ReplaceAll(input, "_", "")
	input = strings.ReplaceAll(input, "-", "")
	return strings.ToLower(input)
}

// Save saves config to file
func Save(cfg *Config) error {
	return SaveTo(cfg, ConfigPath())
}

// SaveTo saves config to an explicit path
func SaveTo(cfg *Config, configPath string) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(configPath, data, 0600)
}

// Validate checks that the configuration values are within acceptable ranges.
func (c *Config) Validate() error {
	mode := strings.TrimSpace(c.Approval.Mode)
	if mode == "" {
		c.Approval.Mode = string(policy.ModeDefault)
	} else {
		parsed, ok := policy.ParseApprovalMode(mode)
		if !ok {
			return fmt.Errorf("approval.mode must be one of default, auto_edit, plan, yolo; got %q", mode)
		}
		c.Approval.Mode = string(parsed)
	}

	if strings.TrimSpace(c.Tools.ShellTool) == "" {
		c.Tools.ShellTool = policy.DefaultShellTool
	}

	if c.Checkers.ExternalTimeout < 0 {
		return fmt.Errorf("checkers.external_timeout must not be negative, got %d", c.Checkers.ExternalTimeout)
	}
	if c.Checkers.ExternalTimeout == 0 {
		c.Checkers.ExternalTimeout = 30
	}

	level := strings.ToLower(strings.TrimSpace(c.Log.Level))
	if level == "" {
		c.Log.Level = "info"
	} else {
		validLevels := map[string]bool{
			"debug": true,
			"info":  true,
			"warn":  true,
			"error": true,
		}
		if !validLevels[level] {
			return fmt.Errorf("log.level must be one of debug, info, warn, error; got %q", c.Log.Level)
		}
		c.Log.Level = level
	}

	return nil
}

// Settings projects the configuration into the shape the policy assembler
// consumes.
func (c *Config) Settings() policy.Settings {
	mode, _ := policy.ParseApprovalMode(c.Approval.Mode)

	trust := make(map[string]bool, len(c.MCPServers))
	for name, server := range c.MCPServers {
		trust[name] = server.Trust
	}

	return policy.Settings{
		ToolsAllowed:    c.Tools.Allowed,
		ToolsExclude:    c.Tools.Exclude,
		MCPAllowed:      c.MCP.Allowed,
		MCPExcluded:     c.MCP.Excluded,
		MCPServerTrust:  trust,
		ApprovalMode:    mode,
		NonInteractive:  c.Approval.NonInteractive,
		AskUserOverride: c.Approval.AskOverride,
	}
}
