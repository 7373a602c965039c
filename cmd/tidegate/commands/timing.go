package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	timingDate string
	timingFrom string
	timingTo   string
)

var timingCmd = &cobra.Command{
	Use:   "timing",
	Short: "查询择时信号",
	Long: `评估择时漏斗并打印信号。

Example:
  go run ./cmd/tidegate timing
  go run ./cmd/tidegate timing --date 2026-03-20
  go run ./cmd/tidegate timing --from 2026-03-01 --to 2026-03-31`,
	RunE: runTiming,
}

func init() {
	rootCmd.AddCommand(timingCmd)
	timingCmd.Flags().StringVar(&timingDate, "date", "", "评估日期 (YYYY-MM-DD)，默认当前时刻")
	timingCmd.Flags().StringVar(&timingFrom, "from", "", "区间起始日期")
	timingCmd.Flags().StringVar(&timingTo, "to", "", "区间结束日期")
}

func runTiming(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	loc := a.cfg.Market.Location

	if timingFrom != "" || timingTo != "" {
		from, err := time.ParseInLocation("2006-01-02", timingFrom, loc)
		if err != nil {
			return fmt.Errorf("invalid --from: %w", err)
		}
		to, err := time.ParseInLocation("2006-01-02", timingTo, loc)
		if err != nil {
			return fmt.Errorf("invalid --to: %w", err)
		}
		signals, err := a.engine.EvaluateRange(ctx, from, to)
		if err != nil {
			return err
		}
		return printJSON(signals)
	}

	if timingDate != "" {
		d, err := time.ParseInLocation("2006-01-02", timingDate, loc)
		if err != nil {
			return fmt.Errorf("invalid --date: %w", err)
		}
		signal, err := a.engine.EvaluateDate(ctx, d)
		if err != nil {
			return err
		}
		return printJSON(signal)
	}

	signal, err := a.engine.Evaluate(ctx, time.Now().In(loc))
	if err != nil {
		return err
	}
	return printJSON(signal)
}

// printJSON pretty-prints a value to stdout.
func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
