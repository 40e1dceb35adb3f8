// API entrypoint: loads configuration, wires dependencies and serves HTTP
// plus the live notification stream.
package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/marcelojr/cineclube/internal/app/httpapi"
	"github.com/marcelojr/cineclube/internal/app/hub"
	"github.com/marcelojr/cineclube/internal/app/notify"
	"github.com/marcelojr/cineclube/internal/app/vote"
	"github.com/marcelojr/cineclube/internal/domain"
	"github.com/marcelojr/cineclube/internal/platform/auth"
	"github.com/marcelojr/cineclube/internal/platform/clock"
	"github.com/marcelojr/cineclube/internal/platform/config"
	"github.com/marcelojr/cineclube/internal/platform/health"
	"github.com/marcelojr/cineclube/internal/platform/ids"
	"github.com/marcelojr/cineclube/internal/platform/logger"
	"github.com/marcelojr/cineclube/internal/platform/migrations"
	"github.com/marcelojr/cineclube/internal/platform/ratelimit"
	postgresstorage "github.com/marcelojr/cineclube/internal/platform/storage/postgres"
	redisstorage "github.com/marcelojr/cineclube/internal/platform/storage/redis"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("invalid configuration", "err", err)
	}

	// One shared connection serves the whole process: pool reuse plus readiness checks.
	db, err := postgresstorage.Open(ctx, cfg.PostgresDSN())
	if err != nil {
		logger.Fatal("failed to connect to postgres", "err", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("failed to unwrap sql.DB", "err", err)
	}
	defer sqlDB.Close()

	if cfg.AutoMigrate {
		if err := migrations.Run(db); err != nil {
			logger.Fatal("auto migration failed", "err", err)
		}
	}

	// Redis carries the event queue, the live counters and the rate limiter.
	redisClient, err := redisstorage.NewClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		logger.Fatal("failed to connect to redis", "err", err)
	}
	defer redisClient.Close()

	windowRepo := postgresstorage.NewWindowRepository(db)
	participationRepo := postgresstorage.NewParticipationRepository(db)
	notificationRepo := postgresstorage.NewNotificationRepository(db)
	movieRepo := postgresstorage.NewMovieRepository(db)
	counter := redisstorage.NewCounter(redisClient, cfg.CounterKeyPrefix)
	queue := redisstorage.NewQueue(redisClient, cfg.QueueKeyPrefix)
	clockSystem := clock.NewSystemClock()
	idGen := ids.NewGenerator()
	guard := auth.NewGuard(cfg.AdminToken)

	var limiter domain.RateLimiter = ratelimit.NewNoop()
	if cfg.RateLimitEnabled {
		window := time.Duration(cfg.RateLimitWindowSeconds) * time.Second
		limiter = ratelimit.NewRedisLimiter(redisClient, cfg.RateLimitMaxVotes, window, cfg.RateLimitKeyPrefix)
	}

	schedule := vote.Schedule{
		CreationDays: cfg.CreationWeekdays,
		CycleStart:   cfg.CycleStart,
		CycleDays:    cfg.CycleDays,
	}

	voteService := vote.NewService(
		windowRepo,
		participationRepo,
		movieRepo,
		counter,
		limiter,
		guard,
		clockSystem,
		idGen,
		schedule,
		cfg.CandidateCount,
	)
	winnerCache := vote.NewWinnerCache(windowRepo, clockSystem, schedule)

	registry := hub.NewRegistry(cfg.StreamSendBuffer, logger.L())
	dispatcher := notify.NewDispatcher(notificationRepo, registry, clockSystem, idGen, logger.L())
	consumer := notify.NewConsumer(queue, dispatcher, logger.L())
	keepAlive := hub.NewKeepAlive(registry, cfg.KeepAlivePeriod, logger.L())

	go keepAlive.Run(ctx)
	go func() {
		// The consumer lives in this process because delivery needs the
		// in-memory connection registry.
		if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			logger.Error("event consumer stopped", "err", err)
		}
	}()

	mux := http.NewServeMux()
	checker := health.NewChecker(sqlDB, redisClient)

	api := httpapi.New(voteService, winnerCache, dispatcher, registry, logger.L(), cfg.StreamIdleTimeout)
	api.Register(mux)
	mux.HandleFunc("/readyz", checker.ReadyHandler())
	mux.Handle("/metrics", promhttp.Handler())

	logger.Info("api listening", "addr", cfg.HTTPAddress)
	if err := http.ListenAndServe(cfg.HTTPAddress, mux); err != nil {
		logger.Fatal("server error", "err", err)
	}
}
