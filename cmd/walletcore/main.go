package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/blocpay/walletcore/internal/wallet"
	"github.com/blocpay/walletcore/internal/wallet/config"
	"github.com/blocpay/walletcore/pkg/logger"
)

func main() {
	configPath := flag.String("config", "", "path to configuration file")
	flag.Parse()

	// Optional .env for local development
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewLogger(cfg.Logging.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	db, err := wallet.InitializeDatabase(cfg.Database)
	if err != nil {
		log.Fatal("failed to initialize database", zap.Error(err))
	}

	var redisClient redis.Cmdable
	if cfg.Cache.Backend == "redis" {
		redisClient = wallet.InitializeRedis(cfg.Redis)
	}

	module, err := wallet.NewModule(wallet.ModuleOptions{
		Config:   cfg,
		Logger:   log,
		Database: db,
		Redis:    redisClient,
	})
	if err != nil {
		log.Fatal("failed to create wallet module", zap.Error(err))
	}

	ctx := context.Background()
	if err := module.Start(ctx); err != nil {
		log.Fatal("failed to start wallet module", zap.Error(err))
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info("shutting down", zap.String("signal", sig.String()))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := module.Stop(shutdownCtx); err != nil {
		log.Error("shutdown error", zap.Error(err))
	}
}
