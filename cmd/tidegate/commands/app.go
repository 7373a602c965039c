package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/junzhu/tidegate/backend/internal/calendar"
	"github.com/junzhu/tidegate/backend/internal/external/exchange"
	"github.com/junzhu/tidegate/backend/internal/external/zhitu"
	"github.com/junzhu/tidegate/backend/internal/guard"
	"github.com/junzhu/tidegate/backend/internal/riskscan"
	"github.com/junzhu/tidegate/backend/internal/scheduler"
	"github.com/junzhu/tidegate/backend/internal/scheduler/jobs"
	"github.com/junzhu/tidegate/backend/internal/status"
	"github.com/junzhu/tidegate/backend/internal/store"
	"github.com/junzhu/tidegate/backend/internal/strategy"
	"github.com/junzhu/tidegate/backend/internal/timing"
	"github.com/junzhu/tidegate/backend/pkg/config"
	"github.com/junzhu/tidegate/backend/pkg/database"
	"github.com/junzhu/tidegate/backend/pkg/httputil"
	"github.com/junzhu/tidegate/backend/pkg/logger"
	"github.com/junzhu/tidegate/backend/pkg/redis"
)

// app wires the whole engine. Every command builds one and tears it down.
type app struct {
	cfg   *config.Config
	log   *logger.Logger
	db    *database.DB
	redis *redis.Client
	cache *redis.Cache

	calRepo   *store.CalendarRepository
	stockRepo *store.StockRepository
	riskRepo  *riskscan.Repository

	cal        *calendar.Calendar
	engine     *timing.Engine
	scanner    *riskscan.Scanner
	aggregator *status.Aggregator

	registry  *strategy.Registry
	scheduler *scheduler.Scheduler
}

// newApp loads config and wires every component.
func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	log := logger.New(cfg)
	loc := cfg.Market.Location

	db, err := database.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := db.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	redisClient, err := redis.New(cfg)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	cache := redis.NewCache(redisClient, "tidegate")
	limiter := redis.NewRateLimiter(redisClient, "tidegate")

	// Upstream clients. Zhitu calls share the redis quota gate.
	zhituHTTP := httputil.New(log, cfg.Zhitu.Timeout).
		WithRateLimiter(limiter, redis.ZhituRateLimit(cfg.Zhitu.RatePerMin))
	zhituClient := zhitu.NewClient(cfg.Zhitu, zhituHTTP, log)
	metricsSource := zhitu.NewMetricsSource(zhituClient)
	snapshots := zhitu.NewSnapshotBuilder(zhituClient, log, loc)

	// Repositories.
	calRepo := store.NewCalendarRepository(db.Pool, cache)
	stockRepo := store.NewStockRepository(db.Pool)
	riskRepo := riskscan.NewRepository(db.Pool)

	// Engine core.
	cal := calendar.New(calRepo)
	marketGuard := guard.New(snapshots, cfg.Market.GuardTimeout, log)
	engine := timing.New(calRepo, cal, marketGuard, log, loc)
	scanner := riskscan.New(metricsSource, stockRepo, riskRepo, log, riskscan.Config{
		Workers:      cfg.Scan.Workers,
		PacePerSec:   cfg.Scan.PacePerSec,
		HistoryYears: cfg.Scan.HistoryYears,
	})
	aggregator := status.New(engine, cal, riskRepo, log, loc)

	// Strategies and scheduler.
	registry := strategy.NewRegistry(log)
	jobLog := log.WithModule("jobs")
	toRegister := []strategy.Strategy{
		jobs.NewTimingJob(engine, cache, jobLog, loc),
		jobs.NewUniverseSyncJob(zhituClient, stockRepo, jobLog),
		jobs.NewRiskScanJob(scanner, jobLog),
	}
	if cfg.Exchange.CalendarURL != "" {
		exchangeHTTP := httputil.New(log, 30*time.Second)
		calSource := exchange.NewCalendarSource(cfg.Exchange.CalendarURL, exchangeHTTP, log, loc)
		toRegister = append(toRegister, jobs.NewCalendarSyncJob(calSource, calRepo, jobLog, loc))
	} else {
		log.Warn("EXCHANGE_CALENDAR_URL not set, calendar sync disabled")
	}
	for _, s := range toRegister {
		if err := registry.Register(s); err != nil {
			db.Close()
			redisClient.Close()
			return nil, err
		}
	}

	sched := scheduler.New(registry, log)
	if err := sched.Bind(); err != nil {
		db.Close()
		redisClient.Close()
		return nil, err
	}

	return &app{
		cfg:        cfg,
		log:        log,
		db:         db,
		redis:      redisClient,
		cache:      cache,
		calRepo:    calRepo,
		stockRepo:  stockRepo,
		riskRepo:   riskRepo,
		cal:        cal,
		engine:     engine,
		scanner:    scanner,
		aggregator: aggregator,
		registry:   registry,
		scheduler:  sched,
	}, nil
}

// close releases connections.
func (a *app) close() {
	a.db.Close()
	if err := a.redis.Close(); err != nil {
		a.log.WithError(err).Warn("Failed to close redis client")
	}
}
