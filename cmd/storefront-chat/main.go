package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/storehouse-ng/storefront-chat/internal/alert"
	"github.com/storehouse-ng/storefront-chat/internal/catalog"
	"github.com/storehouse-ng/storefront-chat/internal/chat"
	"github.com/storehouse-ng/storefront-chat/internal/config"
	"github.com/storehouse-ng/storefront-chat/internal/convstate"
	"github.com/storehouse-ng/storefront-chat/internal/health"
	"github.com/storehouse-ng/storefront-chat/internal/language"
	"github.com/storehouse-ng/storefront-chat/internal/llm"
	"github.com/storehouse-ng/storefront-chat/internal/metrics"
	"github.com/storehouse-ng/storefront-chat/internal/responder"
	"github.com/storehouse-ng/storefront-chat/internal/server"
	"github.com/storehouse-ng/storefront-chat/internal/store"
)

func main() {
	// A missing .env is fine; the environment wins either way.
	_ = godotenv.Load()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	logger := zerolog.New(os.Stdout).With().Timestamp().Caller().Logger()

	if os.Getenv("ENVIRONMENT") == "development" {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	log.Logger = logger

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err == nil {
		zerolog.SetGlobalLevel(level)
	}

	logger.Info().
		Str("environment", cfg.Environment).
		Str("addr", cfg.HTTPListenAddr).
		Str("state_backend", cfg.StateBackend).
		Str("catalog_backend", cfg.CatalogBackend).
		Bool("llm_enabled", cfg.LLMEnabled()).
		Bool("slack_alerts", cfg.SlackAlertsEnabled()).
		Msg("starting storefront chat")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	m := metrics.New()
	checker := health.NewChecker(3*time.Second, logger)

	// Conversation state, plus the chat event log on sqlite.
	var (
		stateStore convstate.Store
		events     *store.Store
	)
	switch cfg.StateBackend {
	case config.StateBackendSQLite:
		events, err = store.New(cfg.StateSQLitePath, store.Config{
			StateTTL:       cfg.StateTTL,
			EventRetention: cfg.EventRetention,
		}, logger)
		if err != nil {
			logger.Fatal().Err(err).Str("path", cfg.StateSQLitePath).Msg("failed to open state database")
		}
		defer events.Close()
		stateStore = events
	default:
		mem := convstate.NewMemoryStore(convstate.MemoryConfig{
			Capacity: cfg.StateCapacity,
			TTL:      cfg.StateTTL,
		})
		m.ObserveStateCache(mem.CacheStats)
		stateStore = mem
	}
	checker.Register("state_store", health.Optional(stateStore.Ping))

	limiter := convstate.NewLimiter(stateStore, convstate.LimiterConfig{
		OffTopicThreshold: cfg.OffTopicThreshold,
		BlockTTL:          cfg.BlockTTL,
	}, logger)

	// Store catalog.
	var provider catalog.Provider
	switch cfg.CatalogBackend {
	case config.CatalogBackendFile:
		fp, err := catalog.LoadFileProvider(cfg.CatalogFixturesPath)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to load catalog fixtures")
		}
		logger.Info().Strs("stores", fp.Slugs()).Msg("file catalog loaded")
		provider = fp
	default:
		connectCtx, connectCancel := context.WithTimeout(ctx, 10*time.Second)
		client, db, err := catalog.ConnectMongo(connectCtx, cfg.MongoURI, cfg.MongoDatabase)
		connectCancel()
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to mongo")
		}
		defer disconnect(client, logger)
		provider = catalog.NewMongoProvider(db, logger)
	}
	loader := catalog.NewLoader(provider, cfg.CatalogTimeout, cfg.CatalogRetries, logger)
	checker.Register("catalog", health.Required(loader.Ping))

	// Language table and generator.
	langs, err := language.Load(cfg.LanguagesFile)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load language table")
	}

	llmProvider, err := llm.New(llm.Settings{
		Provider: cfg.LLMProvider,
		Model:    cfg.LLMModel,
		APIKey:   cfg.LLMAPIKey(),
		BaseURL:  cfg.OpenAIBaseURL,
	}, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure language model")
	}
	if llmProvider == nil {
		logger.Warn().Msg("no LLM API key configured, answering with static fallbacks")
		checker.Register("llm", health.Fixed(health.StatusDegraded))
	} else {
		checker.Register("llm", health.Fixed(health.StatusOK))
	}

	gen := responder.New(llmProvider, langs, responder.Config{
		Model:       cfg.LLMModel,
		MaxTokens:   cfg.LLMMaxTokens,
		Temperature: cfg.LLMTemperature,
		Timeout:     cfg.LLMTimeout,
	}, logger)

	// Alerts never block a reply.
	var notifier alert.Notifier = alert.NewLogNotifier(logger)
	if cfg.SlackAlertsEnabled() {
		notifier = alert.NewMultiNotifier(notifier, alert.NewSlackNotifier(cfg.SlackAlertWebhookURL, logger))
	}
	alerts := alert.NewAsyncNotifier(notifier, 10*time.Second, 16, logger)

	deps := chat.Deps{
		Limiter:   limiter,
		Stores:    loader,
		Responder: gen,
		Metrics:   m,
		Alerts:    alerts,
	}
	srvDeps := server.Deps{
		Sessions: limiter,
		Checker:  checker,
		Metrics:  m,
		Langs:    langs,
	}
	if events != nil {
		deps.Events = events
		srvDeps.Events = events
	}
	pipeline := chat.New(chat.Config{
		MaxMessagesPerSession: cfg.MaxMessagesPerSession,
		MaxMessagesPerMinute:  cfg.MaxMessagesPerMinute,
	}, deps, logger)
	srvDeps.Chat = pipeline

	srv := server.New(server.Config{
		ListenAddr: cfg.HTTPListenAddr,
		Auth: server.AuthConfig{
			Mode:      cfg.AdminAuthMode,
			APIKey:    cfg.AdminAPIKey,
			JWTSecret: cfg.AdminJWTSecret,
		},
		RateLimit: server.RateLimitConfig{
			RPS:   cfg.IPRateLimitRPS,
			Burst: cfg.IPRateLimitBurst,
		},
		CORSOrigins: cfg.CORSOrigins,
	}, srvDeps, logger)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		convstate.RunSweeper(ctx, stateStore, cfg.StateSweepInterval, m.AddSwept, logger)
	}()

	if events != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			events.RunRetentionLoop(ctx, time.Hour)
		}()
	}

	serverErr := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil {
			serverErr <- err
		}
	}()

	select {
	case sig := <-sigCh:
		logger.Info().Str("signal", sig.String()).Msg("received shutdown signal")
	case err := <-serverErr:
		logger.Error().Err(err).Msg("http server failed")
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		logger.Error().Err(err).Msg("http server shutdown error")
	}

	wg.Wait()
	alerts.Wait()
	logger.Info().Msg("storefront chat stopped")
}

func disconnect(client *mongo.Client, logger zerolog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Disconnect(ctx); err != nil {
		logger.Warn().Err(err).Msg("mongo disconnect failed")
	}
}
