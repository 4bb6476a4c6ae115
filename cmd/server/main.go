package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/claimgate/claimgate/internal/api"
	"github.com/claimgate/claimgate/internal/config"
	"github.com/claimgate/claimgate/internal/llm"
	"github.com/claimgate/claimgate/internal/store"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

func main() {
	logger, _ := zap.NewProduction()
	defer func() { _ = logger.Sync() }()

	if err := config.Load(); err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	dbURL := config.DatabaseURL()
	if dbURL == "" {
		logger.Fatal("DATABASE_URL is required")
	}

	ctx := context.Background()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		logger.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		logger.Fatal("failed to ping postgres", zap.Error(err))
	}
	logger.Info("connected to postgres")

	graph, err := store.NewGraphStore(ctx, config.Neo4jURI(), config.Neo4jUser(), config.Neo4jPassword(), config.Neo4jDatabase(), logger)
	if err != nil {
		logger.Fatal("failed to connect to neo4j", zap.Error(err))
	}
	defer func() { _ = graph.Close(context.Background()) }()
	logger.Info("connected to neo4j", zap.String("uri", config.Neo4jURI()))

	if err := graph.EnsureSchema(ctx); err != nil {
		logger.Fatal("failed to ensure graph constraints", zap.Error(err))
	}

	audit := store.NewEvidenceAuditStore(pool)
	if err := audit.EnsureSchema(ctx); err != nil {
		logger.Fatal("failed to ensure evidence audit schema", zap.Error(err))
	}

	chat, err := llm.NewClient(config.LLMProvider(), config.LLMAPIKey(), config.LLMBaseURL(), config.LLMModel())
	if err != nil {
		logger.Fatal("failed to initialize LLM client", zap.Error(err))
	}
	logger.Info("LLM client initialized",
		zap.String("provider", config.LLMProvider()),
		zap.String("model", config.LLMModel()))

	app := api.NewApp(pool, graph, chat, logger)

	// Start background services
	if config.ScanEnabled() {
		app.Scanner.Start()
	}

	addr := config.ServerAddr()
	srv := &http.Server{
		Addr:    addr,
		Handler: app.Router,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("server starting", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("shutting down server")

	// Stop background services
	if config.ScanEnabled() {
		app.Scanner.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
