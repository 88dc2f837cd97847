// cmd/assistant-server/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"email-assistant/internal/ai"
	"email-assistant/internal/campaigns"
	"email-assistant/internal/common/apollo"
	"email-assistant/internal/common/config"
	"email-assistant/internal/common/database"
	"email-assistant/internal/common/logger"
	"email-assistant/internal/common/observability"
	"email-assistant/internal/contacts"
	"email-assistant/internal/delivery"
	"email-assistant/internal/pipeline"
	"email-assistant/internal/server"
	"email-assistant/internal/session"
	"email-assistant/internal/stages/contentgen"
	"email-assistant/internal/stages/htmlcompile"
	"email-assistant/internal/stages/templateselect"
	"email-assistant/internal/templates"
)

func main() {
	zapLog := logger.New("info", "console")
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting email assistant server...")

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Generative model client ---
	gemini, err := ai.NewGeminiClient(ctx, cfg.AI, log)
	if err != nil {
		zapLog.Fatal("genai client failed", zap.Error(err))
	}
	zapLog.Info("GenAI client initialized")

	// --- Redis (sessions) ---
	redisClient, err := database.NewRedis(cfg.Database.Redis)
	if err != nil {
		zapLog.Fatal("redis client failed", zap.Error(err))
	}
	defer redisClient.Close()
	if err := redisClient.Ping(ctx); err != nil {
		zapLog.Fatal("redis ping failed", zap.Error(err))
	}
	zapLog.Info("Redis connected successfully")

	sessions := session.NewStore(redisClient.Client,
		time.Duration(cfg.Session.TTL)*time.Second, log)

	// --- Pipeline stages ---
	templateService := templates.NewService(cfg.Template.Dir, log)

	selector := templateselect.NewHandler(&templateselect.Config{
		Timeout:  cfg.Stages.Template.TimeoutDuration(),
		Keywords: templateselect.DefaultKeywordRules(),
	}, gemini, log)
	generator := contentgen.NewHandler(&contentgen.Config{
		Timeout: cfg.Stages.Content.TimeoutDuration(),
	}, gemini, gemini, log)
	compiler := htmlcompile.NewHandler(&htmlcompile.Config{
		Timeout: cfg.Stages.Compilation.TimeoutDuration(),
	}, templateService, log)

	orchestrator := pipeline.NewOrchestrator(selector, generator, compiler, templateService, log,
		pipeline.WithObservability(obs))

	// --- Contacts ---
	loader, err := contacts.NewLoader(log)
	if err != nil {
		zapLog.Fatal("contacts loader failed", zap.Error(err))
	}

	// --- Optional collaborators ---
	var opts []server.Option

	if cfg.Database.Postgres.Enabled {
		pg, err := database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			zapLog.Fatal("postgres client failed", zap.Error(err))
		}
		defer pg.Close()
		if err := pg.Ping(ctx); err != nil {
			zapLog.Fatal("postgres ping failed", zap.Error(err))
		}
		history := campaigns.NewStore(pg.DB, log)
		if err := history.EnsureSchema(ctx); err != nil {
			zapLog.Fatal("campaigns schema failed", zap.Error(err))
		}
		opts = append(opts, server.WithHistory(history))
		zapLog.Info("PostgreSQL connected successfully")
	}

	if cfg.Apollo.Enabled {
		opts = append(opts, server.WithEnricher(apollo.NewClient(cfg.Apollo.APIKey, cfg.Apollo.BaseURL)))
		zapLog.Info("Apollo enrichment enabled")
	}

	if cfg.Delivery.Enabled {
		sesClient, err := delivery.NewSESClient(ctx, cfg.Delivery.Region)
		if err != nil {
			zapLog.Fatal("ses client failed", zap.Error(err))
		}
		opts = append(opts, server.WithSender(delivery.NewService(sesClient, cfg.Delivery, log)))
		zapLog.Info("SES delivery enabled")
	}

	srv := server.New(orchestrator, sessions, loader, log, opts...)

	httpServer := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: srv.Handler(),
	}

	go func() {
		zapLog.Info("HTTP server listening", zap.String("addr", cfg.Server.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Fatal("http server failed", zap.Error(err))
		}
	}()

	// --- Graceful shutdown ---
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	zapLog.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(),
		time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("http shutdown failed", zap.Error(err))
	}
	zapLog.Info("Shutdown complete")
}
