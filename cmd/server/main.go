package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/iliyamo/showtime-booking/internal/booking"
	"github.com/iliyamo/showtime-booking/internal/config"
	"github.com/iliyamo/showtime-booking/internal/database"
	"github.com/iliyamo/showtime-booking/internal/handler"
	"github.com/iliyamo/showtime-booking/internal/lock"
	"github.com/iliyamo/showtime-booking/internal/logger"
	"github.com/iliyamo/showtime-booking/internal/metrics"
	"github.com/iliyamo/showtime-booking/internal/pricing"
	"github.com/iliyamo/showtime-booking/internal/queue"
	"github.com/iliyamo/showtime-booking/internal/registry"
	"github.com/iliyamo/showtime-booking/internal/repository"
	"github.com/iliyamo/showtime-booking/internal/router"
)

func main() {
	_ = godotenv.Load() // .env is optional; real deployments set the environment directly

	cfg := config.Load()
	logger.Set(logger.New(cfg.Env))
	defer func() { _ = logger.Sync() }()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		logger.Fatal("database connect failed", zap.Error(err))
	}
	defer db.Close()

	layoutRepo := repository.NewLayoutRepo(db)
	lockRepo := repository.NewSeatLockRepo(db)
	resRepo := repository.NewReservationRepo(db, lockRepo)

	reg := registry.New(layoutRepo)
	keys := lock.NewKeys()
	mx := metrics.New()

	mgr := lock.NewManager(lockRepo, reg, keys, cfg.HoldTTL).WithMetrics(mx)
	committer := booking.NewCommitter(resRepo, reg, keys, pricing.Default()).WithMetrics(mx)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sweeper := lock.NewSweeper(mgr, cfg.SweepInterval)
	go sweeper.Start(ctx)
	defer sweeper.Stop()

	publishEvents := cfg.AMQPURL != "" || os.Getenv("RABBITMQ_URL") != ""
	if publishEvents {
		go func() {
			if err := queue.StartReservationConsumer(); err != nil {
				logger.Error("reservation consumer stopped", zap.Error(err))
			}
		}()
	}

	rdb := config.NewRedisClient()
	if rdb == nil {
		logger.Warn("redis unavailable, rate limiting disabled")
	}

	e := echo.New()
	e.HideBanner = true
	router.Register(e, router.Deps{
		Seats:        handler.NewSeatHandler(mgr, pricing.Default()),
		Reservations: handler.NewReservationHandler(committer, resRepo, reg, publishEvents),
		JWTSecret:    cfg.JWTSecret,
		RateLimit:    config.LoadRateLimitConfig(),
		Redis:        rdb,
		Registry:     prometheus.DefaultGatherer,
	})

	go func() {
		addr := ":" + cfg.Port
		logger.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
		if err := e.Start(addr); err != nil {
			logger.Info("server stopped", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", zap.Error(err))
	}
}
