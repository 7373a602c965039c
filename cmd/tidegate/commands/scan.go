package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "运行财务排雷扫描",
	Long: `全市场两段式财务排雷：
  Pass 1 低营收筛查（按板块阈值）
  Pass 2 连续亏损深查 → is_extreme

Example:
  go run ./cmd/tidegate scan`,
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	fmt.Println("Running financial risk scan...")
	stats, err := a.scanner.Run(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Scan %s finished: %d/%d scanned, %d flagged (%d extreme), %d errors in %s\n",
		stats.ScanDate, stats.Scanned, stats.Total, stats.Flagged, stats.Extreme,
		stats.Errors, stats.Duration.Round(time.Second))
	return nil
}
