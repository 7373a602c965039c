package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/junzhu/tidegate/backend/internal/api"
	"github.com/junzhu/tidegate/backend/internal/api/handlers"
)

var startPort string

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "启动 API 服务 + 调度器",
	Long: `启动完整服务：REST API 服务器和定时任务调度器。

Endpoints:
  GET  /health                      - Health check
  GET  /api/timing[?date=]          - 择时信号
  GET  /api/timing/range            - 区间择时信号
  GET  /api/calendar/today          - 交割日历视图
  GET  /api/calendar/cycle          - 指定月份交割日
  GET  /api/risk                    - 排雷名单
  GET  /api/risk/{code}             - 个股排雷查询
  POST /api/scan                    - 触发排雷扫描
  GET  /api/status                  - 全局状态
  GET  /api/strategies              - 策略列表
  POST /api/strategies/{name}/run   - 手动触发策略

Example:
  go run ./cmd/tidegate start --port 8098`,
	RunE: runStart,
}

func init() {
	rootCmd.AddCommand(startCmd)
	startCmd.Flags().StringVar(&startPort, "port", "", "API 端口（默认取 PORT）")
}

func runStart(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	if startPort != "" {
		a.cfg.Port = startPort
	}

	router := api.NewRouter(api.Handlers{
		Timing:   handlers.NewTimingHandler(a.engine, a.cache, a.log, a.cfg.Market.Location),
		Calendar: handlers.NewCalendarHandler(a.cal, a.log, a.cfg.Market.Location),
		Risk:     handlers.NewRiskHandler(a.riskRepo, a.scanner, a.log),
		Status:   handlers.NewStatusHandler(a.aggregator, a.db, a.log),
		Strategy: handlers.NewStrategyHandler(a.registry, a.scheduler, a.log),
	}, a.log)
	server := api.New(a.cfg, a.log, router)

	a.scheduler.Start()
	defer a.scheduler.Stop()

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		a.log.WithField("signal", sig.String()).Info("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	return nil
}
