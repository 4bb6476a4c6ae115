package api

import (
	"context"
	"encoding/json"
	"net/http"
	"runtime"
	"time"

	"github.com/claimgate/claimgate/internal/api/handlers"
	mw "github.com/claimgate/claimgate/internal/api/middleware"
	"github.com/claimgate/claimgate/internal/buildconfig"
	"github.com/claimgate/claimgate/internal/config"
	"github.com/claimgate/claimgate/internal/domain"
	"github.com/claimgate/claimgate/internal/llm"
	"github.com/claimgate/claimgate/internal/service"
	"github.com/claimgate/claimgate/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// App holds the router and background services for lifecycle management.
type App struct {
	Router  *chi.Mux
	Scanner *service.GapScanner

	startTime time.Time
	metrics   *mw.MetricsCollector
}

// NewApp wires stores, services, and handlers into a router. The store
// handles and the chat client are owned by the caller: they are opened
// before this and closed after the server drains.
func NewApp(db *pgxpool.Pool, graph *store.GraphStore, chat domain.ChatClient, logger *zap.Logger) *App {
	// Stores
	auditStore := store.NewEvidenceAuditStore(db)

	// Services
	trust := service.NewTrustScorer(config.FirstPartySources(), logger)
	trust.MinEvidenceQuality = config.MinEvidenceQuality()
	conflict := service.NewConflictDetector(graph, logger)
	ledger := service.NewLedgerService(graph, auditStore, logger)
	gate := service.NewPolicyGate(trust, conflict, ledger, config.AutoMergePredicates(), logger)
	gate.TrustThreshold = config.AutoTrustThreshold()
	agent := service.NewAgentService(gate, ledger, chat, nil, config.AllowedReadRels(), logger)
	scanner := service.NewGapScanner(ledger, gate, logger)
	scanner.SetInterval(config.ScanInterval())

	// Handlers
	claimHandler := handlers.NewClaimHandler(gate, ledger)
	graphHandler := handlers.NewGraphHandler(ledger)
	agentHandler := handlers.NewAgentHandler(agent, chat)

	r := chi.NewRouter()

	app := &App{
		Router:    r,
		Scanner:   scanner,
		startTime: time.Now(),
		metrics:   mw.NewMetricsCollector(),
	}

	// Global middleware (order matters)
	r.Use(mw.RequestID)                                                 // Generate/extract request ID first
	r.Use(middleware.RealIP)                                            // Extract real IP
	r.Use(app.metrics.Middleware)                                       // Collect metrics
	r.Use(mw.Logging(logger))                                           // Log all requests
	r.Use(middleware.Recoverer)                                         // Recover from panics
	r.Use(mw.RateLimit(config.RateLimitRPS(), config.RateLimitBurst())) // Rate limiting

	// Health (no auth)
	r.Get("/health", healthHandler(db, graph))

	// Metrics (no auth)
	r.Get("/metrics", app.metricsHandler())

	// Everything else sits behind the shared secret when one is set.
	r.Group(func(r chi.Router) {
		r.Use(mw.APIKeyAuth(config.GatewayAPIKey()))

		r.Post("/propose_claim", claimHandler.Propose)
		r.Post("/approve", claimHandler.Approve)
		r.Post("/reject", claimHandler.Reject)
		r.Post("/cypher", graphHandler.Cypher)
		r.Post("/neighbors", graphHandler.Neighbors)
		r.Get("/gaps", graphHandler.Gaps)
		r.Post("/query", agentHandler.Query)
		r.Post("/llm_chat", agentHandler.Chat)
	})

	return app
}

// healthHandler reports liveness plus per-store reachability. The
// response is always 200: a down store is a flag, not a dead process.
func healthHandler(db *pgxpool.Pool, graph *store.GraphStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		pgOK := db.Ping(ctx) == nil
		graphOK := graph.Ping(ctx) == nil

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"ok":       true,
			"neo4j":    graphOK,
			"postgres": pgOK,
			"version":  buildconfig.Version(),
		})
	}
}

func (app *App) metricsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var memStats runtime.MemStats
		runtime.ReadMemStats(&memStats)

		uptime := time.Since(app.startTime)
		snap := app.metrics.Snapshot()

		response := map[string]any{
			"uptime_seconds": uptime.Seconds(),
			"uptime_human":   uptime.Round(time.Second).String(),
			"request_count":  snap.Requests,
			"error_count":    snap.Errors,
			"inflight":       snap.Inflight,
			"goroutines":     runtime.NumGoroutine(),
			"memory": map[string]any{
				"alloc_mb":       float64(memStats.Alloc) / 1024 / 1024,
				"total_alloc_mb": float64(memStats.TotalAlloc) / 1024 / 1024,
				"sys_mb":         float64(memStats.Sys) / 1024 / 1024,
				"num_gc":         memStats.NumGC,
			},
			"go_version": runtime.Version(),
			"build":      buildconfig.VersionInfo(),
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(response)
	}
}

// Ensure stores and clients satisfy interfaces at compile time.
var (
	_ domain.GraphStore         = (*store.GraphStore)(nil)
	_ domain.EvidenceAuditStore = (*store.EvidenceAuditStore)(nil)
	_ domain.ChatClient         = (*llm.OpenAIClient)(nil)
	_ domain.ChatClient         = (*llm.AnthropicClient)(nil)
	_ domain.ChatClient         = (*llm.GeminiClient)(nil)
	_ domain.ChatClient         = (*llm.CerebrasClient)(nil)
	_ domain.ChatClient         = (*llm.MockClient)(nil)
)
