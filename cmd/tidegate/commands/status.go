package commands

import (
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "查询全局状态",
	Long: `打印全局状态：择时信号 + 交割日历 + 排雷汇总。

Example:
  go run ./cmd/tidegate status`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	global, err := a.aggregator.Global(ctx)
	if err != nil {
		return err
	}
	return printJSON(global)
}
