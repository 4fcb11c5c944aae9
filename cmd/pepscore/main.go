// pepscore - Red-flag scoring for PEP asset declarations.
// Copyright (c) 2025 opensource.finance
// Licensed under the Apache License 2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/opensource-finance/pepscore/internal/api"
	"github.com/opensource-finance/pepscore/internal/bus"
	"github.com/opensource-finance/pepscore/internal/cache"
	"github.com/opensource-finance/pepscore/internal/config"
	"github.com/opensource-finance/pepscore/internal/currency"
	"github.com/opensource-finance/pepscore/internal/decision"
	"github.com/opensource-finance/pepscore/internal/domain"
	"github.com/opensource-finance/pepscore/internal/metrics"
	"github.com/opensource-finance/pepscore/internal/repository"
	"github.com/opensource-finance/pepscore/internal/scoring"
	"github.com/opensource-finance/pepscore/internal/telemetry"
	"github.com/opensource-finance/pepscore/internal/worker"
	"github.com/prometheus/client_golang/prometheus"
)

// Version information (set via ldflags)
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	if err := run(); err != nil {
		slog.Error("pepscore failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load(os.Getenv("PEPSCORE_CONFIG"))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	slog.SetDefault(newLogger(cfg.Logging))

	slog.Info("starting pepscore",
		"version", Version,
		"commit", Commit,
		"build_date", BuildDate,
	)
	slog.Info("configuration loaded",
		"mode", cfg.Mode,
		"tier", cfg.Tier,
		"repository", cfg.Repository.Driver,
		"cache", cfg.Cache.Type,
		"eventbus", cfg.EventBus.Type,
	)

	// Create context cancelled on shutdown signals
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Tracing
	shutdownTracing := telemetry.Setup(cfg.Tracing)
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			slog.Error("failed to flush traces", "error", err)
		}
	}()

	// Initialize Repository
	repo, err := repository.New(ctx, cfg.Repository)
	if err != nil {
		return fmt.Errorf("initialize repository: %w", err)
	}
	defer repo.Close()
	slog.Info("repository initialized", "driver", cfg.Repository.Driver)

	// Initialize Cache
	cacheImpl, err := cache.New(ctx, cfg.Cache)
	if err != nil {
		return fmt.Errorf("initialize cache: %w", err)
	}
	defer cacheImpl.Close()
	slog.Info("cache initialized", "type", cfg.Cache.Type)

	// Initialize EventBus
	busImpl, err := bus.New(ctx, cfg.EventBus)
	if err != nil {
		return fmt.Errorf("initialize event bus: %w", err)
	}
	defer busImpl.Close()
	slog.Info("event bus initialized", "type", cfg.EventBus.Type)

	// Stored rates first, built-in annual averages as fallback
	converter := currency.NewService(
		currency.Chain{repo, currency.NewStaticRates()},
		cacheImpl,
		cfg.Cache.RateTTL,
	)
	slog.Info("currency service initialized", "rate_ttl", cfg.Cache.RateTTL)

	// Rule registry
	registry := scoring.DefaultRegistry()
	if len(cfg.Scoring.DisabledRules) > 0 {
		disabled := make([]scoring.RuleID, len(cfg.Scoring.DisabledRules))
		for i, id := range cfg.Scoring.DisabledRules {
			disabled[i] = scoring.RuleID(id)
		}
		registry = registry.Without(disabled...)
	}
	slog.Info("rule registry initialized", "rules_count", registry.Len())

	// Metrics and decision processor
	m := metrics.New(prometheus.DefaultRegisterer)
	processor := decision.NewProcessor(cfg.Scoring.AlertThreshold)
	slog.Info("decision processor initialized", "threshold", processor.AlertThreshold)

	// Initialize Scoring Engine
	engine, err := scoring.NewEngine(registry,
		scoring.Deps{Store: repo, Scorings: repo, Converter: converter},
		cfg.Scoring,
		scoring.WithMetrics(m),
		scoring.WithReportHook(batchHook(busImpl, processor, m)),
	)
	if err != nil {
		return fmt.Errorf("initialize scoring engine: %w", err)
	}

	// Ops server
	var srv *api.Server
	if cfg.Metrics.Addr != "" {
		handler := api.NewHandler(Version, registry, map[string]api.Pinger{
			"repository": repo,
			"cache":      cacheImpl,
			"eventbus":   busImpl,
		})
		srv = api.NewServer(cfg.Metrics.Addr, handler, prometheus.DefaultGatherer)

		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("ops server failed", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				slog.Error("ops server forced to shutdown", "error", err)
			}
		}()
	}

	printBanner(cfg, registry, Version)

	switch cfg.Mode {
	case domain.ModeWorker:
		return runWorker(ctx, busImpl, engine, processor, m, srv)
	default:
		return runBatch(ctx, cfg.Scoring, engine, srv)
	}
}

// runBatch scores every declaration in the configured year range and returns.
func runBatch(ctx context.Context, cfg domain.ScoringConfig, engine *scoring.Engine, srv *api.Server) error {
	if srv != nil {
		srv.Handler().SetReady(true)
	}

	stats, err := engine.ScoreAll(ctx, domain.DeclarationFilter{
		YearFrom: cfg.YearFrom,
		YearTo:   cfg.YearTo,
	})
	if err != nil {
		return fmt.Errorf("batch run: %w", err)
	}

	slog.Info("batch complete",
		"run_id", stats.RunID,
		"declarations", stats.Declarations,
		"scored", stats.Scored,
		"failed", stats.Failed,
		"rule_failures", stats.RuleFailures,
		"duration_ms", stats.Duration.Milliseconds(),
	)
	for rule, n := range stats.RulesFired {
		slog.Debug("rule hits", "run_id", stats.RunID, "rule_id", rule, "count", n)
	}
	return nil
}

// runWorker scores declarations announced on the bus until ctx is cancelled.
func runWorker(ctx context.Context, b domain.EventBus, engine *scoring.Engine, processor *decision.Processor, m *metrics.Metrics, srv *api.Server) error {
	w := worker.NewWorker(b, engine, processor, m)
	if err := w.Start(); err != nil {
		return fmt.Errorf("start worker: %w", err)
	}
	if srv != nil {
		srv.Handler().SetReady(true)
	}
	slog.Info("pepscore is ready", "topic", domain.TopicDeclarationSubmitted)

	<-ctx.Done()
	slog.Info("shutting down...")

	if srv != nil {
		srv.Handler().SetReady(false)
	}
	if err := w.Stop(); err != nil {
		slog.Error("failed to stop worker", "error", err)
	}

	slog.Info("pepscore shutdown complete")
	return nil
}

// batchHook turns each batch report into an assessment, records it and
// publishes it on the bus.
func batchHook(b domain.EventBus, processor *decision.Processor, m *metrics.Metrics) scoring.ReportHook {
	return func(ctx context.Context, report *scoring.Report) {
		assessment := processor.Process(ctx, report)
		m.ObserveDeclaration(assessment.Status, time.Duration(report.TotalMs)*time.Millisecond)

		if decision.ShouldAlert(assessment) {
			slog.Warn("high risk declaration",
				"declaration_id", assessment.DeclarationID,
				"pep_id", assessment.PepID,
				"year", assessment.Year,
				"score", assessment.Score,
				"reasons", assessment.Reasons,
				"trace_id", assessment.Metadata.TraceID,
			)
		}

		if err := worker.Publish(ctx, b, assessment); err != nil {
			slog.Error("failed to publish assessment",
				"declaration_id", assessment.DeclarationID,
				"error", err,
			)
		}
	}
}

func newLogger(cfg domain.LoggingConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	if strings.EqualFold(cfg.Format, "text") {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

func printBanner(cfg *domain.Config, registry *scoring.Registry, version string) {
	fmt.Println()
	fmt.Println("  ╔═══════════════════════════════════════════╗")
	fmt.Println("  ║                 PEPSCORE                  ║")
	fmt.Println("  ║      Asset Declaration Red Flags          ║")
	fmt.Println("  ╚═══════════════════════════════════════════╝")
	fmt.Println()
	fmt.Printf("  Version:   %s\n", version)
	fmt.Printf("  Tier:      %s\n", cfg.Tier)
	fmt.Printf("  Mode:      %s\n", cfg.Mode)
	fmt.Printf("  Rules:     %d active\n", registry.Len())
	fmt.Printf("  Threshold: %.2f\n", cfg.Scoring.AlertThreshold)
	if cfg.Metrics.Addr != "" {
		fmt.Println()
		fmt.Printf("  Ops server: %s\n", cfg.Metrics.Addr)
		fmt.Println("    GET /health  - Health check")
		fmt.Println("    GET /ready   - Readiness probe")
		fmt.Println("    GET /rules   - Active rule set")
		fmt.Println("    GET /metrics - Prometheus metrics")
	}
	fmt.Println()
}
