package main

import (
	"time"

	"github.com/xaenox/threadhub/internal/chat"
	"github.com/xaenox/threadhub/internal/llm"
	"github.com/xaenox/threadhub/internal/realtime"
	"github.com/xaenox/threadhub/internal/server"
	"github.com/xaenox/threadhub/internal/storage"
	"github.com/xaenox/threadhub/internal/summary"
	"github.com/xaenox/threadhub/pkg/config"
	"go.uber.org/zap"
)

func main() {
	// Initialize logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	// Load configuration
	cfg, err := config.LoadConfig("config.yaml")
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err), zap.String("path", "config.yaml"))
	}

	// Initialize storage
	var store storage.Storage
	if cfg.Database.UseInMemory {
		logger.Info("Using in-memory storage")
		store = storage.NewMemoryStorage()
	} else {
		logger.Info("Using PostgreSQL storage")
		dbConfig := storage.DatabaseConfig{
			Host:        cfg.Database.Host,
			Port:        cfg.Database.Port,
			User:        cfg.Database.User,
			Password:    cfg.Database.Password,
			DBName:      cfg.Database.DBName,
			SSLMode:     cfg.Database.SSLMode,
			UseInMemory: cfg.Database.UseInMemory,
		}
		store, err = storage.NewPostgresStorage(dbConfig)
		if err != nil {
			logger.Fatal("Failed to initialize storage", zap.Error(err))
		}
	}
	defer store.Close()

	// Initialize the gateway and the features built on it
	client := llm.NewClient(cfg.OpenAI.APIKey, cfg.OpenAI.Model, cfg.OpenAI.MaxTokens, logger)
	analyzer := llm.NewAnalyzer(client, cfg.OpenAI.HistorySize, logger)
	summarizer := llm.NewSummarizer(client, logger)

	cache := summary.NewCache(time.Duration(cfg.Summary.CacheTTLSeconds) * time.Second)
	hub := realtime.NewHub(logger)

	svc := chat.NewService(store, analyzer, summarizer, cache, hub, logger)

	srv := server.New(svc, hub, store, cfg.Auth.JWTSecret, logger)
	logger.Info("Starting server", zap.String("addr", cfg.Server.Addr))
	if err := srv.Start(cfg.Server.Addr); err != nil {
		logger.Fatal("Server error", zap.Error(err))
	}
}
