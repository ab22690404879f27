package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/MEKXH/warden/internal/config"
	"github.com/spf13/cobra"
)

func NewInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize Warden configuration",
		RunE:  runInit,
	}
}

// defaultPolicyTOML is the bundled starter policy: read-only tools are
// pre-approved and every shell command passes the destructive-command
// blocklist before it can be allowed.
const defaultPolicyTOML = `# Bundled default policy. User policies in ~/.warden/policies override
# these because they load into a higher trust tier.

[[rule]]
tool = "read_file"
decision = "allow"
priority = 100

[[rule]]
tool = "list_dir"
decision = "allow"
priority = 100

[[rule]]
tool = "web_search"
decision = "allow"
priority = 100

[[checker]]
tool = "run_shell_command"
priority = 100

[checker.run]
type = "in-process"
name = "command_blocklist"
`

func runInit(cmd *cobra.Command, args []string) error {
	configPath := config.ConfigPath()

	if _, err := os.Stat(configPath); err == nil {
		fmt.Printf("Config already exists: %s\n", configPath)
		return nil
	}

	cfg := config.DefaultConfig()

	dirs := []string{
		config.ConfigDir(),
		cfg.Policy.DefaultDir,
		filepath.Join(config.ConfigDir(), "state"),
	}
	dirs = append(dirs, cfg.Policy.Dirs...)

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	if err := config.Save(cfg); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	defaultPolicyPath := filepath.Join(cfg.Policy.DefaultDir, "00-defaults.toml")
	if _, err := os.Stat(defaultPolicyPath); os.IsNotExist(err) {
		if err := os.WriteFile(defaultPolicyPath, []byte(defaultPolicyTOML), 0644); err != nil {
			return fmt.Errorf("failed to write default policy: %w", err)
		}
	}

	fmt.Printf("Initialized Warden at %s\n", config.ConfigDir())
	fmt.Printf("  Config: %s\n", configPath)
	fmt.Printf("  Default policies: %s\n", cfg.Policy.DefaultDir)
	fmt.Println("\nNext steps:")
	fmt.Println("  1. Drop policy files into ~/.warden/policies")
	fmt.Println("  2. Try: warden check run_shell_command -c 'git status'")
	return nil
}
