package commands

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/MEKXH/warden/internal/audit"
	"github.com/MEKXH/warden/internal/config"
	"github.com/MEKXH/warden/internal/policy"
	"github.com/MEKXH/warden/internal/tools"
)

// Exit codes of the check command, one per decision.
const (
	ExitAllow   = 0
	ExitAskUser = 1
	ExitDeny    = 2
)

// ExitError carries the process exit code for a completed decision. The
// command succeeded; the code encodes the verdict for scripting.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit code %d", e.Code)
}

func NewCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check <tool>",
		Short: "Decide whether a tool call is allowed",
		Long: `Check evaluates one tool call against the assembled policy and prints the
decision. The exit code encodes the verdict: 0 allow, 1 ask_user, 2 deny.`,
		Args: cobra.ExactArgs(1),
		RunE: runCheck,
	}

	cmd.Flags().String("args", "", "Tool arguments as a JSON object")
	cmd.Flags().StringP("command", "c", "", "Shorthand for --args '{\"command\": ...}'")
	cmd.Flags().String("server", "", "MCP server the tool belongs to")
	cmd.Flags().String("mode", "", "Approval mode override (default|auto_edit|plan|yolo)")
	cmd.Flags().Bool("non-interactive", false, "Treat ask_user outcomes as deny")
	cmd.Flags().String("session", "", "Session ID passed to checkers")
	cmd.Flags().String("workspace", "", "Workspace path passed to checkers (default: cwd)")
	cmd.Flags().Bool("quiet", false, "Suppress output, report via exit code only")

	return cmd
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if mode, _ := cmd.Flags().GetString("mode"); strings.TrimSpace(mode) != "" {
		parsed, ok := policy.ParseApprovalMode(mode)
		if !ok {
			return fmt.Errorf("invalid approval mode %q", mode)
		}
		cfg.Approval.Mode = string(parsed)
	}
	if nonInteractive, _ := cmd.Flags().GetBool("non-interactive"); nonInteractive {
		cfg.Approval.NonInteractive = true
	}

	call, err := buildCall(cmd, args[0])
	if err != nil {
		return err
	}

	sess, err := buildSession(cfg)
	if err != nil {
		return err
	}
	for _, loadErr := range sess.loadErrors {
		slog.Warn("policy load problem", "error", loadErr)
	}

	workspace, _ := cmd.Flags().GetString("workspace")
	if workspace == "" {
		workspace, _ = os.Getwd()
	}
	sessionID, _ := cmd.Flags().GetString("session")

	ctx := tools.WithInvocation(cmd.Context(), tools.InvocationContext{
		SessionID: sessionID,
		Workspace: workspace,
	})

	server, _ := cmd.Flags().GetString("server")
	result := sess.engine.Check(ctx, call, server)

	appendDecisionAudit(call, server, result)

	if quiet, _ := cmd.Flags().GetBool("quiet"); !quiet {
		printDecision(call, result)
	}

	switch result.Decision {
	case policy.DecisionAllow:
		return nil
	case policy.DecisionDeny:
		return &ExitError{Code: ExitDeny}
	default:
		return &ExitError{Code: ExitAskUser}
	}
}

func buildCall(cmd *cobra.Command, toolName string) (policy.ToolCall, error) {
	rawArgs, _ := cmd.Flags().GetString("args")
	command, _ := cmd.Flags().GetString("command")

	if rawArgs != "" && command != "" {
		return policy.ToolCall{}, fmt.Errorf("--args and --command are mutually exclusive")
	}

	call := policy.ToolCall{Name: toolName}
	switch {
	case command != "":
		call.Args = map[string]any{"command": command}
	case rawArgs != "":
		var parsed map[string]any
		if err := json.Unmarshal([]byte(rawArgs), &parsed); err != nil {
			return policy.ToolCall{}, fmt.Errorf("invalid --args JSON: %w", err)
		}
		call.Args = parsed
	}
	return call, nil
}

var (
	allowStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#2E8B57")) // SeaGreen
	denyStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#CD2B31")) // Red
	askStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#D4A72C")) // Amber
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

func decisionStyle(d policy.Decision) lipgloss.Style {
	switch d {
	case policy.DecisionAllow:
		return allowStyle
	case policy.DecisionDeny:
		return denyStyle
	default:
		return askStyle
	}
}

func printDecision(call policy.ToolCall, result policy.CheckResult) {
	fmt.Printf("%s %s\n", decisionStyle(result.Decision).Render(strings.ToUpper(string(result.Decision))), call.Name)
	if result.Rule != nil {
		ruleName := result.Rule.ToolName
		if ruleName == "" {
			ruleName = "*"
		}
		fmt.Printf("  %s %s (priority %.3f)\n", dimStyle.Render("rule:"), ruleName, result.Rule.Priority)
	}
	if result.Reason != "" {
		fmt.Printf("  %s %s\n", dimStyle.Render("reason:"), result.Reason)
	}
}

func appendDecisionAudit(call policy.ToolCall, server string, result policy.CheckResult) {
	writer := audit.NewWriter(config.ConfigDir())
	event := audit.Event{
		Time:     time.Now().UTC(),
		Tool:     call.Name,
		Server:   server,
		Decision: string(result.Decision),
		Reason:   result.Reason,
	}
	if result.Rule != nil {
		event.Rule = result.Rule.ToolName
	}
	if err := writer.Append(event); err != nil {
		slog.Warn("failed to append audit event", "error", err)
	}
}
