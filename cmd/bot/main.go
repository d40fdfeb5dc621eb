package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
	"github.com/sashabaranov/go-openai"
	"github.com/spf13/afero"
	flag "github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/xaenox/voice-bot/internal/assistant"
	"github.com/xaenox/voice-bot/internal/bot"
	"github.com/xaenox/voice-bot/internal/janitor"
	"github.com/xaenox/voice-bot/internal/pipeline"
	"github.com/xaenox/voice-bot/internal/proxy"
	"github.com/xaenox/voice-bot/internal/speech"
	"github.com/xaenox/voice-bot/internal/storage"
	"github.com/xaenox/voice-bot/pkg/config"
)

func main() {
	configPath := flag.StringP("config", "c", "config.yaml", "Config file path")
	envFile := flag.StringP("env", "e", ".env", "Env file path")
	logLevel := flag.StringP("log-level", "l", "info", "Log level (debug, info, warn, error)")
	flag.Parse()

	// Initialize logger
	logger := newLogger(*logLevel)
	defer logger.Sync()

	if err := godotenv.Load(*envFile); err != nil && !os.IsNotExist(err) {
		logger.Warn("Failed to load env file", zap.Error(err), zap.String("path", *envFile))
	}

	// Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err), zap.String("path", *configPath))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpClient, err := proxy.NewHTTPClient(cfg.OpenAI.Proxy)
	if err != nil {
		logger.Fatal("Failed to create HTTP client", zap.Error(err))
	}

	// Initialize thread ledger
	var store storage.Storage
	if cfg.Database.UseInMemory {
		logger.Info("Using in-memory thread ledger")
		store = storage.NewMemoryStorage()
	} else {
		logger.Info("Using PostgreSQL thread ledger")
		store, err = storage.NewPostgresStorage(storage.DatabaseConfig{
			Host:     cfg.Database.Host,
			Port:     cfg.Database.Port,
			User:     cfg.Database.User,
			Password: cfg.Database.Password,
			DBName:   cfg.Database.DBName,
			SSLMode:  cfg.Database.SSLMode,
		}, logger)
		if err != nil {
			logger.Fatal("Failed to initialize storage", zap.Error(err))
		}
	}
	defer store.Close()

	// Initialize OpenAI clients
	aiConfig := openai.DefaultConfig(cfg.OpenAI.APIKey)
	aiConfig.HTTPClient = httpClient
	if cfg.OpenAI.BaseURL != "" {
		aiConfig.BaseURL = cfg.OpenAI.BaseURL
	}
	aiClient := openai.NewClientWithConfig(aiConfig)

	backend := assistant.NewOpenAIBackend(aiClient)
	assistantID, err := backend.EnsureAssistant(ctx, cfg.OpenAI.AssistantID, assistant.Persona{
		Name:         cfg.Assistant.Name,
		Instructions: cfg.Assistant.Instructions,
		Model:        cfg.Assistant.Model,
		Tools:        cfg.Assistant.Tools,
	})
	if err != nil {
		logger.Fatal("Failed to set up assistant", zap.Error(err))
	}
	logger.Info("Assistant ready", zap.String("assistant_id", assistantID))

	answerer, err := assistant.New(backend, assistantID, store, assistant.Options{
		RunTimeout:      cfg.Assistant.RunTimeout,
		PollInterval:    cfg.Assistant.PollInterval,
		MaxPollInterval: cfg.Assistant.MaxPollInterval,
		DeleteThreads:   cfg.Assistant.DeleteThreads,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to create assistant client", zap.Error(err))
	}

	// Initialize Telegram
	api, err := tgbotapi.NewBotAPIWithClient(cfg.Telegram.Token, tgbotapi.APIEndpoint, httpClient)
	if err != nil {
		logger.Fatal("Failed to create bot", zap.Error(err))
	}
	api.Debug = cfg.Telegram.Debug
	logger.Info("Authorized on Telegram", zap.String("username", api.Self.UserName))
	telegram := bot.NewTelegram(api, httpClient)

	// Initialize pipeline
	audio, err := pipeline.NewStore(afero.NewOsFs(), cfg.Storage.AudioDir)
	if err != nil {
		logger.Fatal("Failed to prepare audio dir", zap.Error(err), zap.String("dir", cfg.Storage.AudioDir))
	}

	relay, err := pipeline.New(pipeline.Stages{
		Source:      telegram,
		Transcriber: speech.NewTranscriber(aiClient, cfg.Speech.TranscriptionModel, cfg.Speech.Language, logger),
		Answerer:    answerer,
		Synthesizer: speech.NewSynthesizer(aiClient, cfg.Speech.TTSModel, cfg.Speech.Voice, cfg.Speech.Format, logger),
		Replier:     telegram,
	}, audio, pipeline.ReplyOptions{Text: cfg.Reply.Text, Voice: cfg.Reply.Voice}, logger)
	if err != nil {
		logger.Fatal("Failed to create pipeline", zap.Error(err))
	}

	sweeper := janitor.New(audio, store, answerer, cfg.Storage.StaleAfter, logger)
	go sweeper.Run(ctx, cfg.Janitor.Interval)

	b, err := bot.New(api, relay, bot.Options{
		PollTimeout:   cfg.Telegram.PollTimeout,
		MaxConcurrent: cfg.Bot.MaxConcurrent,
		HandleTimeout: cfg.Bot.HandleTimeout,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to create bot", zap.Error(err))
	}

	// Start the bot
	logger.Info("Bot started")
	start := time.Now()
	if err := b.Start(ctx); err != nil {
		logger.Fatal("Bot error", zap.Error(err))
	}
	logger.Info("Bot stopped", zap.Duration("uptime", time.Since(start)))
}

func newLogger(level string) *zap.Logger {
	cfg := zap.NewProductionConfig()
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}
