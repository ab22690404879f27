package commands

import (
	"fmt"

	"github.com/cloudwego/eino/schema"

	"github.com/MEKXH/warden/internal/config"
	"github.com/MEKXH/warden/internal/tools"
)

// builtinDeclarations are the tool surface warden knows out of the box.
// MCP server tools are registered at runtime under "<server>__<tool>".
var builtinDeclarations = []tools.Declaration{
	{Info: &schema.ToolInfo{Name: "run_shell_command", Desc: "Execute a shell command"}},
	{Info: &schema.ToolInfo{Name: "read_file", Desc: "Read a file from the workspace"}},
	{Info: &schema.ToolInfo{Name: "write_file", Desc: "Write a file in the workspace"}},
	{Info: &schema.ToolInfo{Name: "edit_file", Desc: "Apply an edit to a file in the workspace"}},
	{Info: &schema.ToolInfo{Name: "list_dir", Desc: "List a directory"}},
	{Info: &schema.ToolInfo{Name: "web_fetch", Desc: "Fetch a URL"}},
	{Info: &schema.ToolInfo{Name: "web_search", Desc: "Search the web"}},
}

// legacyAliases map tool names older policy files may still use to their
// canonical registered names.
var legacyAliases = map[string]string{
	"shell":       "run_shell_command",
	"exec":        "run_shell_command",
	"fetch":       "web_fetch",
	"search":      "web_search",
	"create_file": "write_file",
}

func buildRegistry(cfg *config.Config) (*tools.Registry, error) {
	registry := tools.NewRegistry()
	for _, decl := range builtinDeclarations {
		if err := registry.Register(decl); err != nil {
			return nil, fmt.Errorf("register builtin tool: %w", err)
		}
	}
	for legacy, canonical := range legacyAliases {
		if err := registry.RegisterAlias(legacy, canonical); err != nil {
			return nil, fmt.Errorf("register alias %q: %w", legacy, err)
		}
	}
	if shellTool := cfg.Tools.ShellTool; shellTool != "" && shellTool != "run_shell_command" {
		decl := tools.Declaration{Info: &schema.ToolInfo{Name: shellTool, Desc: "Execute a shell command"}}
		if err := registry.Register(decl); err != nil {
			return nil, fmt.Errorf("register shell tool: %w", err)
		}
		if err := registry.RegisterAlias("run_shell_command", shellTool); err != nil {
			return nil, fmt.Errorf("register shell tool alias: %w", err)
		}
	}
	return registry, nil
}
