// Aranea - Conversational Penetration Testing Assistant Server
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/aranea-sec/aranea/internal/api"
	"github.com/aranea-sec/aranea/internal/capability"
	"github.com/aranea-sec/aranea/internal/config"
	"github.com/aranea-sec/aranea/internal/dispatch"
	"github.com/aranea-sec/aranea/internal/domain"
	"github.com/aranea-sec/aranea/internal/events"
	"github.com/aranea-sec/aranea/internal/exploit"
	"github.com/aranea-sec/aranea/internal/history"
	"github.com/aranea-sec/aranea/internal/identity"
	"github.com/aranea-sec/aranea/internal/middleware"
	"github.com/aranea-sec/aranea/internal/model"
	"github.com/aranea-sec/aranea/internal/offense"
	"github.com/aranea-sec/aranea/internal/recon"
	"github.com/aranea-sec/aranea/internal/store"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment())

	// Initialize dependencies.
	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	if err := repo.Ping(context.Background()); err != nil {
		slog.Error("Database health check failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database connected")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Capability registry. Each domain registers independently; failed
	// backing services mark their domain unavailable instead of aborting
	// startup.
	registry := capability.NewRegistry()

	recon.RegisterCapabilities(registry, recon.NewScanner(recon.ExecRunner{}), recon.NewShodan(cfg.ShodanAPIKey))
	slog.Info("Recon capabilities registered")

	msf := exploit.NewClient(cfg.MSFRPCURL, cfg.MSFRPCToken)
	exploit.RegisterCapabilities(registry, msf)
	if err := msf.Health(ctx); err != nil {
		slog.Warn("Metasploit RPC unreachable, exploitation tools disabled", "endpoint", cfg.MSFRPCURL, "error", err)
		registry.SetDomainAvailable(capability.DomainExploitation, false)
	} else {
		slog.Info("Metasploit RPC connected", "endpoint", cfg.MSFRPCURL)
	}

	var attacks *offense.Manager
	runner, err := offense.NewDockerRunner(cfg.FloodImage, cfg.AttackStopTimeoutSecs)
	if err != nil {
		slog.Warn("Docker unreachable, offense tools disabled", "error", err)
		attacks = offense.NewManager(nil)
		offense.RegisterCapabilities(registry, attacks)
		registry.SetDomainAvailable(capability.DomainOffense, false)
	} else {
		attacks = offense.NewManager(runner)
		offense.RegisterCapabilities(registry, attacks)
		slog.Info("Offense capabilities registered", "image", cfg.FloodImage)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		attacks.StopAll(stopCtx)
	}()

	registerReporting(registry)

	gemini, err := model.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		slog.Error("Failed to initialize model client", "error", err)
		os.Exit(1)
	}

	// Turn pipeline.
	hub := events.NewHub()
	engine := dispatch.NewEngine(gemini, registry, hub, repo)
	router := dispatch.NewRouter(ctx, engine)
	router.StartIdleReaper(ctx, time.Duration(cfg.SessionIdleTTLSecs)*time.Second, hub.CloseSession)

	baseHandler := api.NewHandler(repo, router, hub, cfg.FrontendURL, cfg.IsDevelopment())

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(middleware.CORS([]string{"*"}))
	r.Use(identity.Middleware(cfg.IsDevelopment()))

	r.Post("/api/generate", baseHandler.HandleGenerate)
	r.Get("/api/engagement/summary", baseHandler.HandleSummary)
	r.Get("/api/engagement/history", baseHandler.HandleHistory)
	r.Post("/api/engagement/report", baseHandler.HandleReport)
	r.Post("/api/engagement/reset", baseHandler.HandleReset)
	r.Post("/api/auth/signup", baseHandler.HandleSignup)
	r.Post("/api/auth/login", baseHandler.HandleLogin)

	// WebSocket endpoint.
	r.Get("/ws/events", baseHandler.HandleEvents)

	// Create server.
	// Note: the event socket needs long-lived writes (no WriteTimeout).
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	// Start server.
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal.
	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}
	if err := router.Shutdown(shutdownCtx); err != nil {
		slog.Error("Turn workers forced to shutdown", "error", err)
	}

	slog.Info("Server stopped successfully")
}

// registerReporting wires the report capabilities over the per-session
// history carried in the invocation context.
func registerReporting(registry *capability.Registry) {
	registry.Register(capability.Descriptor{
		Name:   "get_engagement_summary",
		Domain: capability.DomainReporting,
		Invoke: func(ctx context.Context, _ *domain.Args) (string, error) {
			ledger := history.FromContext(ctx)
			if ledger == nil {
				return "", errors.New("no engagement history available")
			}
			return history.RenderSummary(history.Summarize(ledger.All())), nil
		},
	})

	registry.Register(capability.Descriptor{
		Name:   "generate_pentest_report",
		Domain: capability.DomainReporting,
		Invoke: func(ctx context.Context, args *domain.Args) (string, error) {
			ledger := history.FromContext(ctx)
			if ledger == nil {
				return "", errors.New("no engagement history available")
			}
			return history.Report(ledger.All(), engagementInfoFromArgs(args), time.Now()), nil
		},
	})
}

func engagementInfoFromArgs(args *domain.Args) domain.EngagementInfo {
	// Metadata arrives either nested under engagement_info or as flat keys.
	if nested, ok := args.Get("engagement_info"); ok {
		if na, ok := nested.(*domain.Args); ok {
			args = na
		}
	}
	return domain.EngagementInfo{
		Client:         args.String("client"),
		Date:           args.String("date"),
		Tester:         args.String("tester"),
		EngagementType: args.String("engagement_type"),
	}
}
