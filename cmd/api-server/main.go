package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/clinicore/consult-booking/internal/api"
	"github.com/clinicore/consult-booking/internal/booking"
	"github.com/clinicore/consult-booking/internal/config"
	"github.com/clinicore/consult-booking/internal/db"
	"github.com/clinicore/consult-booking/internal/logger"
	redisclient "github.com/clinicore/consult-booking/internal/redis"
	"github.com/clinicore/consult-booking/internal/scheduling"
	"github.com/clinicore/consult-booking/internal/timex"
)

const version = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	zlog, err := logger.New(cfg.Env)
	if err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	zlog.Info("api-server starting up",
		zap.String("env", cfg.Env),
		zap.String("http_port", cfg.HTTPPort))

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		zlog.Fatal("postgres connection error", zap.Error(err))
	}
	defer pgPool.Close()
	zlog.Info("connected to Postgres")

	migCtx, cancelMig := context.WithTimeout(rootCtx, 30*time.Second)
	err = db.Migrate(migCtx, pgPool, cfg.MigrationsDir)
	cancelMig()
	if err != nil {
		zlog.Fatal("migration error", zap.Error(err))
	}
	zlog.Info("migrations applied")

	rdb, err := redisclient.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		zlog.Fatal("redis connection error", zap.Error(err))
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			zlog.Warn("error closing redis", zap.Error(err))
		}
	}()
	zlog.Info("connected to Redis")

	clock := timex.SystemClock()
	locker := redisclient.NewRedisSlotLocker(rdb, cfg.LockTTL)

	schedRepo := scheduling.NewPgRepository(pgPool)
	bookingRepo := booking.NewPgRepository(pgPool)

	availabilitySvc := scheduling.NewAvailabilityService(schedRepo, clock, cfg.RecurrenceWeeks, zlog)
	slotSvc := scheduling.NewSlotService(schedRepo, zlog)
	bookingSvc := booking.NewService(bookingRepo, locker, clock, zlog)

	router := api.NewRouter(api.RouterConfig{
		Availability: availabilitySvc,
		Slots:        slotSvc,
		Booking:      bookingSvc,
		PgPool:       pgPool,
		Redis:        rdb,
		Logger:       zlog,
		Env:          cfg.Env,
		Version:      version,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		zlog.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal("http server error", zap.Error(err))
		}
	}()

	<-rootCtx.Done()
	zlog.Info("shutting down api-server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Error("http shutdown error", zap.Error(err))
	}
}
