package main

import (
	"flag"
	"path/filepath"

	"outreach-server/internal/config"
	"outreach-server/pkg/logger"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

var version = "dev"

func main() {
	// Load .env if present; secrets flow in through ApplyEnvOverrides
	_ = godotenv.Load()

	configPath := flag.String("config", "", "path to JSON config file")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		panic(err)
	}

	// Initialize logger
	if err := logger.Init(cfg.Logging.Path, cfg.Logging.Level); err != nil {
		panic(err)
	}
	defer logger.Info("Server shutting down")

	// Setup and start server
	srv, sched, err := SetupServer(cfg)
	if err != nil {
		logger.Fatal("Failed to setup server", zap.Error(err))
	}

	if err := StartServer(srv, sched); err != nil {
		logger.Fatal("Server error", zap.Error(err))
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.DefaultConfig(), nil
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	return config.LoadConfig(abs)
}
