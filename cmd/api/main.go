package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"polytechnic/internal/attendance"
	"polytechnic/internal/auth"
	"polytechnic/internal/config"
	"polytechnic/internal/httpapi"
	"polytechnic/internal/logging"
	"polytechnic/internal/observability"
	"polytechnic/internal/queue"
	"polytechnic/internal/rewardfine"
	"polytechnic/internal/schedule"
	"polytechnic/internal/store"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	log, err := logging.Init(cfg.LogLevel, cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Closer()

	if cfg.Env == "production" || cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	flush, err := observability.InitSentry(cfg.SentryDSN, cfg.Env, "polytechnic-backend")
	if err != nil {
		log.Sugar.Warnw("sentry init failed", "err", err)
	}
	defer flush()

	if err := runHTTP(cfg, log.Base); err != nil {
		log.Sugar.Fatalw("http server failed", "err", err)
	}
}

func runHTTP(cfg config.App, log *zap.Logger) error {
	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	if err := store.Migrate(db.Client); err != nil {
		return err
	}

	redisClient := store.NewRedis(cfg.RedisAddr)

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "polytechnic:recompute")
	}

	engine := rewardfine.NewEngine(rewardfine.NewRepository(db.Client), log)
	att := attendance.NewService(attendance.NewRepository(db.Client), engine, log)
	schedules := schedule.NewService(schedule.NewRepository(db.Client))
	rewards := rewardfine.NewRepository(db.Client)
	staff := auth.NewRepository(db.Client)

	h := httpapi.New(cfg, att, schedules, rewards, staff, q, db, redisClient, log)
	r := httpapi.Router(h)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("starting server", zap.String("port", cfg.HTTPPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server")

	// Give outstanding requests 10 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("server forced shutdown", zap.Error(err))
	}

	log.Info("server exited")
	return nil
}
