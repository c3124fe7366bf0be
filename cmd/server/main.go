package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/JOJOXU918/infinity-backend/internal/config"
	"github.com/JOJOXU918/infinity-backend/internal/logging"
	"github.com/JOJOXU918/infinity-backend/internal/server"
)

func main() {
	configPath := flag.String("config", "", "path to optional YAML config file")
	envFile := flag.String("env-file", ".env", "path to optional .env file")
	flag.Parse()

	if err := config.LoadDotEnv(*envFile); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load env file: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(os.Stdout, cfg.Log.Level, cfg.Log.Format)
	logger.Info("starting relay server", "addr", cfg.Addr(), "config", *configPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.New(cfg, logger).Run(ctx); err != nil {
		logger.Error("server failed", "error", err)
		stop()
		os.Exit(1)
	}
	logger.Info("relay server shut down")
}
