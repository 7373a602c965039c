package commands

import (
	"github.com/spf13/cobra"
)

// rootCmd is the base command when called without subcommands.
var rootCmd = &cobra.Command{
	Use:   "tidegate",
	Short: "Tidegate - A股择时决策引擎",
	Long: `Tidegate Unified CLI

择时决策引擎：三级择时漏斗、交割日历、盘面守卫、财务排雷。

Usage:
  go run ./cmd/tidegate [command]

Examples:
  go run ./cmd/tidegate start
  go run ./cmd/tidegate timing --date 2026-03-20
  go run ./cmd/tidegate scan`,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
