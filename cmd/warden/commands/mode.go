package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MEKXH/warden/internal/config"
	"github.com/MEKXH/warden/internal/policy"
)

func NewModeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mode",
		Short: "Manage the approval mode",
	}

	cmd.AddCommand(
		newModeShowCmd(),
		newModeSetCmd(),
	)

	return cmd
}

func newModeShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the current approval mode",
		RunE:  runModeShow,
	}
}

func newModeSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <default|auto_edit|plan|yolo>",
		Short: "Set the approval mode",
		Args:  cobra.ExactArgs(1),
		RunE:  runModeSet,
	}
}

func runModeShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	fmt.Printf("Approval mode: %s\n", cfg.Approval.Mode)
	if cfg.Approval.NonInteractive {
		fmt.Println("Non-interactive: ask_user outcomes are denied")
	}
	if cfg.Approval.AskOverride {
		fmt.Println("Ask override: file-derived allows are demoted to ask_user")
	}
	return nil
}

func runModeSet(cmd *cobra.Command, args []string) error {
	mode, ok := policy.ParseApprovalMode(args[0])
	if !ok {
		return fmt.Errorf("invalid approval mode %q", args[0])
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	cfg.Approval.Mode = string(mode)
	if err := config.Save(cfg); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Printf("Approval mode set to %s.\n", mode)
	if mode == policy.ModeYolo {
		fmt.Println("Warning: yolo mode pre-approves every tool call except explicit denies.")
	}
	return nil
}
