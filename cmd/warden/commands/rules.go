package commands

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/MEKXH/warden/internal/config"
	"github.com/MEKXH/warden/internal/policy"
)

func NewRulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Inspect assembled policy rules",
	}

	cmd.AddCommand(
		newRulesListCmd(),
		newRulesCheckersCmd(),
	)

	return cmd
}

func newRulesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all assembled rules in priority order",
		RunE:  runRulesList,
	}
}

func newRulesCheckersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "checkers",
		Short: "List all bound safety checkers",
		RunE:  runRulesCheckers,
	}
}

func runRulesList(cmd *cobra.Command, args []string) error {
	sess, err := loadSession()
	if err != nil {
		return err
	}
	printLoadErrors(sess.loadErrors)

	rules := sess.engine.Rules()
	if len(rules) == 0 {
		fmt.Println("No policy rules.")
		return nil
	}

	var (
		headerStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("#FAFAFA")).
				Background(lipgloss.Color("#8E4EC6")). // Purple
				Padding(0, 1).
				MarginBottom(1)

		// Column Widths
		wPriority = 10
		wTool     = 26
		wDecision = 10
		wModes    = 18
		wPattern  = 30

		colHeaderStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#8E4EC6")).
				Bold(true).
				MarginRight(1)

		priorityStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("245")).
				Width(wPriority).
				MarginRight(1)

		toolStyle = lipgloss.NewStyle().
				Width(wTool).
				MarginRight(1)

		decisionStyleBase = lipgloss.NewStyle().
					Width(wDecision).
					MarginRight(1)

		modesStyle = lipgloss.NewStyle().
				Width(wModes).
				MarginRight(1)

		patternStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("245")).
				Width(wPattern).
				MarginRight(1)
	)

	fmt.Println(headerStyle.Render("Policy Rules"))

	headers := lipgloss.JoinHorizontal(lipgloss.Top,
		colHeaderStyle.Width(wPriority).Render("PRIORITY"),
		colHeaderStyle.Width(wTool).Render("TOOL"),
		colHeaderStyle.Width(wDecision).Render("DECISION"),
		colHeaderStyle.Width(wModes).Render("MODES"),
		colHeaderStyle.Width(wPattern).Render("ARGS PATTERN"),
	)
	fmt.Printf("  %s\n", headers)

	sepStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginRight(1)
	separator := lipgloss.JoinHorizontal(lipgloss.Top,
		sepStyle.Render(strings.Repeat("─", wPriority)),
		sepStyle.Render(strings.Repeat("─", wTool)),
		sepStyle.Render(strings.Repeat("─", wDecision)),
		sepStyle.Render(strings.Repeat("─", wModes)),
		sepStyle.Render(strings.Repeat("─", wPattern)),
	)
	fmt.Printf("  %s\n", separator)

	for _, rule := range rules {
		tool := rule.ToolName
		if tool == "" {
			tool = "*"
		}
		pattern := "-"
		if rule.ArgsPattern != nil {
			pattern = rule.ArgsPattern.String()
		}
		modes := "all"
		if len(rule.Modes) > 0 {
			parts := make([]string, len(rule.Modes))
			for i, mode := range rule.Modes {
				parts[i] = string(mode)
			}
			modes = strings.Join(parts, ",")
		}

		row := lipgloss.JoinHorizontal(lipgloss.Top,
			priorityStyle.Render(fmt.Sprintf("%.3f", rule.Priority)),
			toolStyle.Render(truncate(tool, wTool)),
			decisionStyleBase.Foreground(decisionColor(rule.Decision)).Render(string(rule.Decision)),
			modesStyle.Render(truncate(modes, wModes)),
			patternStyle.Render(truncate(pattern, wPattern)),
		)
		fmt.Printf("  %s\n", row)
	}

	fmt.Println()

	return nil
}

func runRulesCheckers(cmd *cobra.Command, args []string) error {
	sess, err := loadSession()
	if err != nil {
		return err
	}
	printLoadErrors(sess.loadErrors)

	checkers := sess.engine.Checkers()
	if len(checkers) == 0 {
		fmt.Println("No safety checkers bound.")
		return nil
	}

	for _, binding := range checkers {
		tool := binding.ToolName
		if tool == "" {
			tool = "*"
		}
		fmt.Printf("%.3f  %s  %s:%s\n", binding.Priority, tool, binding.Checker.Type, binding.Checker.Name)
	}
	return nil
}

func decisionColor(d policy.Decision) lipgloss.Color {
	switch d {
	case policy.DecisionAllow:
		return lipgloss.Color("#2E8B57") // SeaGreen
	case policy.DecisionDeny:
		return lipgloss.Color("#CD2B31") // Red
	default:
		return lipgloss.Color("#D4A72C") // Amber
	}
}

func printLoadErrors(errs []string) {
	if len(errs) == 0 {
		return
	}
	warnStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#D4A72C"))
	for _, msg := range errs {
		fmt.Println(warnStyle.Render("warning: " + msg))
	}
	fmt.Println()
}

func loadSession() (*session, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return buildSession(cfg)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}
