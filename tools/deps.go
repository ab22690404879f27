//go:build tools
// +build tools

package tools

import (
	_ "github.com/charmbracelet/lipgloss"
	_ "github.com/cloudwego/eino"
	_ "github.com/pelletier/go-toml/v2"
	_ "github.com/spf13/cobra"
	_ "github.com/spf13/viper"
)
