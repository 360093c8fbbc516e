package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"polytechnic/internal/config"
	"polytechnic/internal/logging"
	"polytechnic/internal/observability"
	"polytechnic/internal/queue"
	"polytechnic/internal/rewardfine"
	"polytechnic/internal/store"
)

// Worker consumes recompute jobs and reruns the reward/fine sweep.
func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	log, err := logging.Init(cfg.LogLevel, cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Closer()

	flush, err := observability.InitSentry(cfg.SentryDSN, cfg.Env, "polytechnic-worker")
	if err != nil {
		log.Sugar.Warnw("sentry init failed", "err", err)
	}
	defer flush()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Base.Info("shutdown signal received")
		cancel()
	}()

	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Sugar.Fatalw("db connect failed", "err", err)
	}
	defer db.Close()

	redisClient := store.NewRedis(cfg.RedisAddr)

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "polytechnic:recompute")
	}

	engine := rewardfine.NewEngine(rewardfine.NewRepository(db.Client), log.Base)

	messages, err := q.Consume(ctx)
	if err != nil {
		log.Sugar.Fatalw("queue consume init failed", "err", err)
	}

	log.Base.Info("worker started, waiting for recompute jobs")
	for msg := range messages {
		if msg.Type != queue.TypeRecompute {
			continue
		}

		job, err := msg.RecomputeJob()
		if err != nil {
			log.Sugar.Warnw("bad recompute payload", "err", err)
			continue
		}
		date, err := time.Parse("2006-01-02", job.Date)
		if err != nil {
			log.Sugar.Warnw("bad recompute date", "date", job.Date, "err", err)
			continue
		}

		log.Base.Info("running sweep",
			zap.String("month", rewardfine.MonthOf(date).Format("2006-01")),
			zap.Int("students", len(job.StudentIDs)))

		if err := engine.Recompute(ctx, date, job.StudentIDs); err != nil {
			log.Base.Error("sweep failed", zap.Error(err))
			observability.CaptureErr(err)
			continue
		}
		log.Base.Info("sweep finished")
	}

	log.Base.Info("worker stopped")
}
