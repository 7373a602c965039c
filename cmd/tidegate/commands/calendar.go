package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var calendarCmd = &cobra.Command{
	Use:   "calendar",
	Short: "查询交割日历",
	Long: `打印今天的交割日历视图。

Example:
  go run ./cmd/tidegate calendar
  go run ./cmd/tidegate calendar sync`,
	RunE: runCalendarToday,
}

var calendarSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "同步交易日历（当年 + 次年）",
	RunE:  runCalendarSync,
}

func init() {
	rootCmd.AddCommand(calendarCmd)
	calendarCmd.AddCommand(calendarSyncCmd)
}

func runCalendarToday(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	view, err := a.cal.Today(ctx, time.Now().In(a.cfg.Market.Location))
	if err != nil {
		return err
	}
	return printJSON(view)
}

func runCalendarSync(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	s, ok := a.registry.Get("calendar_sync")
	if !ok {
		return fmt.Errorf("calendar sync unavailable: EXCHANGE_CALENDAR_URL not set")
	}
	if err := s.Run(ctx); err != nil {
		return err
	}

	years, err := a.calRepo.SyncedYears(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Synced years: %v\n", years)
	return nil
}
