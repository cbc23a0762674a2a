package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/questline/dungeonmaster/internal/bot"
	"github.com/questline/dungeonmaster/internal/config"
	"github.com/questline/dungeonmaster/internal/game"
	"github.com/questline/dungeonmaster/internal/logger"
	"github.com/questline/dungeonmaster/internal/services"
	"github.com/questline/dungeonmaster/internal/storage"
)

func newLLMService(cfg *config.Config, log *slog.Logger) services.LLMService {
	return services.NewOpenAIService(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.ModelName, cfg.FallbackModel, log)
}

func main() {
	cfg := config.Load()
	log := logger.Setup(cfg)

	log.Info("Starting Dungeon Master bot",
		"environment", cfg.Environment,
		"model_name", cfg.ModelName,
		"storage", cfg.Storage)

	if cfg.TelegramBotToken == "" {
		log.Error("Telegram bot token is required (set DM_TELEGRAM_BOT_TOKEN)")
		os.Exit(1)
	}
	if cfg.OpenAIAPIKey == "" {
		log.Error("OpenAI API key is required (set DM_OPENAI_API_KEY)")
		os.Exit(1)
	}

	var store storage.Storage
	switch cfg.Storage {
	case config.StorageRedis:
		redisStore := storage.NewRedisStorage(cfg.RedisURL, log)
		connectCtx, connectCancel := context.WithTimeout(context.Background(), 2*time.Minute)
		if err := redisStore.WaitForConnection(connectCtx); err != nil {
			connectCancel()
			log.Error("Failed to connect to redis", "error", err, "url", cfg.RedisURL)
			os.Exit(1)
		}
		connectCancel()
		store = redisStore
		log.Info("Using redis storage", "url", cfg.RedisURL)
	case config.StorageFile:
		fileStore, err := storage.NewFileStorage(cfg.SavesDir, log)
		if err != nil {
			log.Error("Failed to open saves directory", "error", err, "dir", cfg.SavesDir)
			os.Exit(1)
		}
		store = fileStore
		log.Info("Using file storage", "dir", cfg.SavesDir)
	default:
		log.Error("Invalid storage backend", "storage", cfg.Storage, "supported", []string{config.StorageRedis, config.StorageFile})
		os.Exit(1)
	}

	llm := newLLMService(cfg, log)
	initCtx, initCancel := context.WithTimeout(context.Background(), 2*time.Minute)
	if err := llm.InitModel(initCtx, cfg.ModelName); err != nil {
		initCancel()
		log.Error("Failed to initialize LLM model", "error", err, "model", cfg.ModelName)
		os.Exit(1)
	}
	initCancel()

	api, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		log.Error("Failed to connect to Telegram", "error", err)
		os.Exit(1)
	}
	log.Info("Authorized with Telegram", "username", api.Self.UserName)

	engine := game.New(llm, store, nil, log)
	engine.SetFamilyFriendly(cfg.FamilyFriendly)
	engine.SetHistoryLimit(cfg.HistoryLimit)
	b := bot.New(api, engine, log)

	updateCfg := tgbotapi.NewUpdate(0)
	updateCfg.Timeout = 30
	updates := api.GetUpdatesChan(updateCfg)

	runCtx, runCancel := context.WithCancel(context.Background())
	go b.Run(runCtx, updates)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Bot is shutting down...")
	api.StopReceivingUpdates()
	runCancel()

	if err := store.Close(); err != nil {
		log.Error("Error closing storage connection", "error", err)
	}

	log.Info("Bot exited")
}
