package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"reflex.app/assistant/common/id"
	"reflex.app/assistant/common/llm"
	"reflex.app/assistant/common/logger"
	"reflex.app/assistant/common/otel"
	"reflex.app/assistant/core/config"
	"reflex.app/assistant/core/db"
	"reflex.app/assistant/internal/asana"
	"reflex.app/assistant/internal/gmail"
	"reflex.app/assistant/internal/hook"
	"reflex.app/assistant/internal/http/handler"
	"reflex.app/assistant/internal/http/handler/webhook"
	"reflex.app/assistant/internal/http/middleware"
	httprouter "reflex.app/assistant/internal/http/router"
	"reflex.app/assistant/internal/ingest"
	"reflex.app/assistant/internal/kb"
	"reflex.app/assistant/internal/normalize"
	"reflex.app/assistant/internal/queue"
	"reflex.app/assistant/internal/store"
	"reflex.app/assistant/internal/telemetry"
	"reflex.app/assistant/internal/verify"
)

func main() {
	fmt.Printf("%s\n", banner)
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		slog.ErrorContext(ctx, "failed to load config", "error", err)
		os.Exit(1)
	}

	// OTel must init before logger (logger uses OTel provider in production)
	otelTelemetry, err := otel.Setup(ctx, cfg.OTel)
	if err != nil {
		// Can't use slog yet — OTel failed before logger setup
		os.Stderr.WriteString("failed to initialize otel: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger.Setup(cfg)

	if otelTelemetry != nil {
		slog.InfoContext(ctx, "otel initialized", "endpoint", cfg.OTel.Endpoint)
	} else {
		slog.InfoContext(ctx, "otel disabled (no endpoint configured)")
	}

	slog.InfoContext(ctx, "assistant starting", "env", cfg.Env, "service", cfg.OTel.ServiceName)
	if err := id.Init(1); err != nil {
		slog.ErrorContext(ctx, "failed to initialize snowflake id generator", "error", err)
		os.Exit(1)
	}

	database, err := db.New(ctx, cfg.DB)
	if err != nil {
		slog.ErrorContext(ctx, "failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer database.Close()
	slog.InfoContext(ctx, "database connected")

	producer := queue.NewNoopProducer()
	if cfg.Queue.Enabled() {
		redisOpts, err := redis.ParseURL(cfg.Queue.RedisURL)
		if err != nil {
			slog.ErrorContext(ctx, "failed to parse redis url", "error", err)
			os.Exit(1)
		}

		redisClient := redis.NewClient(redisOpts)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			slog.ErrorContext(ctx, "failed to connect to redis", "error", err)
			os.Exit(1)
		}
		slog.InfoContext(ctx, "redis connected", "stream", cfg.Queue.Stream)

		producer = queue.NewRedisProducer(redisClient, cfg.Queue.Stream, slog.Default())
	} else {
		slog.InfoContext(ctx, "redis not configured, downstream publishing disabled")
	}
	defer producer.Close()

	stores := store.NewStores(database.Pool())

	var asanaClient asana.Client
	if cfg.Asana.Enabled() {
		asanaClient = asana.NewClient(cfg.Asana.APIBaseURL, cfg.Asana.AccessToken)
	}

	registry := hook.NewRegistry()
	hook.RegisterDefaults(registry, buildHandlerDeps(ctx, cfg, asanaClient))

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	tracker := telemetry.New(promRegistry)

	dispatcher := hook.NewDispatcher(registry, tracker, cfg.Webhook.HookTimeout)
	ingestService := ingest.NewService(stores.WebhookEvents(), dispatcher, producer, tracker)

	var gmailClient gmail.Client
	if cfg.Gmail.Enabled() {
		gmailClient = gmail.NewClient(cfg.Gmail.APIBaseURL, cfg.Gmail.AccessToken)
	}

	handlers := httprouter.Handlers{
		Slack: webhook.NewSlackHandler(
			verify.NewSlackVerifier(cfg.Slack.SigningSecret, cfg.Webhook.FailClosed),
			normalize.NewSlackNormalizer(cfg.Slack.BotUserIDs),
			ingestService,
		),
		Gmail: webhook.NewGmailHandler(
			verify.NewGmailVerifier(cfg.Gmail.ChannelToken),
			normalize.NewGmailNormalizer(gmailClient),
			ingestService,
		),
		Asana: webhook.NewAsanaHandler(
			verify.NewAsanaVerifier(cfg.Asana.WebhookSecret, cfg.Webhook.FailClosed),
			normalize.NewAsanaNormalizer(asanaClient),
			ingestService,
		),
		Admin:   handler.NewAdminHandler(registry, ingestService, cfg.AdminAPIKey),
		Metrics: promhttp.HandlerFor(promRegistry, promhttp.HandlerOpts{}),
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := setupRouter(cfg, handlers)
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.InfoContext(ctx, "http server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.ErrorContext(ctx, "http server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.InfoContext(ctx, "shutting down...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.ErrorContext(shutdownCtx, "http server shutdown error", "error", err)
	}

	if otelTelemetry != nil {
		if err := otelTelemetry.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "otel shutdown error", "error", err)
		}
	}

	slog.InfoContext(shutdownCtx, "shutdown complete")
}

// buildHandlerDeps wires the optional collaborators the default hooks
// use. Missing configuration degrades the hook, not the server.
func buildHandlerDeps(ctx context.Context, cfg config.Config, asanaClient asana.Client) hook.HandlerDeps {
	deps := hook.HandlerDeps{
		Asana:        asanaClient,
		AsanaProject: cfg.Asana.ProjectGID,
	}

	if cfg.LLM.Enabled() {
		client, err := llm.New(llm.Config{
			Provider:  cfg.LLM.Provider,
			APIKey:    cfg.LLM.APIKey,
			BaseURL:   cfg.LLM.BaseURL,
			Model:     cfg.LLM.Model,
			MaxTokens: cfg.LLM.MaxTokens,
		})
		if err != nil {
			slog.WarnContext(ctx, "llm disabled", "error", err)
		} else {
			deps.LLM = client
		}
	}

	if cfg.Typesense.Enabled() {
		retriever, err := kb.New(kb.Config{
			URL:        cfg.Typesense.URL,
			APIKey:     cfg.Typesense.APIKey,
			Collection: cfg.Typesense.Collection,
		})
		if err != nil {
			slog.WarnContext(ctx, "knowledge base disabled", "error", err)
		} else {
			deps.KB = retriever
		}
	}

	return deps
}

func setupRouter(cfg config.Config, handlers httprouter.Handlers) *gin.Engine {
	router := gin.New()

	// Order matters: OTel creates span → Recovery catches panics → Logger logs with trace context
	if cfg.OTel.Enabled() {
		router.Use(otelgin.Middleware(cfg.OTel.ServiceName))
	}
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())

	httprouter.SetupRoutes(router, handlers, httprouter.RouterConfig{
		IsProduction: cfg.IsProduction(),
		AdminAPIKey:  cfg.AdminAPIKey,
	})

	return router
}

const banner = `
██████╗ ███████╗███████╗██╗     ███████╗██╗  ██╗
██╔══██╗██╔════╝██╔════╝██║     ██╔════╝╚██╗██╔╝
██████╔╝█████╗  █████╗  ██║     █████╗   ╚███╔╝
██╔══██╗██╔══╝  ██╔══╝  ██║     ██╔══╝   ██╔██╗
██║  ██║███████╗██║     ███████╗███████╗██╔╝ ██╗
╚═╝  ╚═╝╚══════╝╚═╝     ╚══════╝╚══════╝╚═╝  ╚═╝
`
