package commands

import (
	"github.com/spf13/cobra"
)

var riskCmd = &cobra.Command{
	Use:   "risk [code]",
	Short: "查询个股排雷标记",
	Long: `查询个股的财务排雷标记；不带参数时打印全部名单。

Example:
  go run ./cmd/tidegate risk 000004
  go run ./cmd/tidegate risk`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRisk,
}

func init() {
	rootCmd.AddCommand(riskCmd)
}

func runRisk(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	if len(args) == 1 {
		check, err := a.riskRepo.Check(ctx, args[0])
		if err != nil {
			return err
		}
		return printJSON(check)
	}

	records, err := a.riskRepo.List(ctx)
	if err != nil {
		return err
	}
	return printJSON(records)
}
