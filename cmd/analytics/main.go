package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/veltaire/storefront/internal/analytics"
	"github.com/veltaire/storefront/internal/config"
	"github.com/veltaire/storefront/internal/events"
	kafkax "github.com/veltaire/storefront/internal/kafka"
	"github.com/veltaire/storefront/internal/redisx"
)

func mustAtoi(s, def string) int {
	if s == "" {
		s = def
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return 1
	}
	return i
}

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	var (
		logger *zap.Logger
		err    error
	)
	if cfg.Production() {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	svc := &analytics.Service{Redis: rdb, Log: logger}

	// Consumer
	group := getenv("ANALYTICS_GROUP", "analytics-svc")
	workers := mustAtoi(os.Getenv("ANALYTICS_WORKERS"), "4")
	cons := kafkax.NewConsumer(cfg.KafkaBrokers, group, events.TopicCartActivity, workers, logger)

	go func() {
		logger.Info("analytics consumer started",
			zap.String("group", group),
			zap.String("topic", events.TopicCartActivity),
			zap.Int("workers", workers))
		if err := cons.Start(ctx, svc.HandleCartActivity); err != nil {
			logger.Error("consumer exit", zap.Error(err))
			cancel()
		}
	}()

	// graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("shutting down consumer")
	cancel()
	time.Sleep(500 * time.Millisecond)
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
