package scoring

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/opensource-finance/pepscore/internal/domain"
	"github.com/opensource-finance/pepscore/internal/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// EngineVersion is reported in assessment metadata.
const EngineVersion = "1.0.0"

// Rule outcomes recorded in metrics.
const (
	OutcomeFired = "fired"
	OutcomeClear = "clear"
	OutcomeError = "error"
)

// Report is the result of scoring one declaration.
type Report struct {
	Declaration *domain.Declaration
	Pep         *domain.Pep

	// Results holds the fired and persisted rules ordered by rule id.
	Results  []domain.RuleResult
	Failures []domain.RuleFailure

	Evaluated int
	RulesMs   int64
	TotalMs   int64
	TraceID   string
}

// BatchStats summarises a ScoreAll run.
type BatchStats struct {
	RunID        string
	Declarations int
	Scored       int
	Failed       int
	RuleFailures int
	RulesFired   map[string]int
	Duration     time.Duration
}

// ReportHook receives every report produced by ScoreAll.
type ReportHook func(ctx context.Context, report *Report)

// Engine evaluates the registered rules against declarations.
type Engine struct {
	registry      *Registry
	deps          Deps
	cfg           domain.ScoringConfig
	metrics       *metrics.Metrics
	tracer        trace.Tracer
	hook          ReportHook
	retryInterval time.Duration
}

// Option configures an Engine.
type Option func(*Engine)

// WithMetrics records rule outcomes and retries.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithTracer overrides the global otel tracer.
func WithTracer(t trace.Tracer) Option {
	return func(e *Engine) { e.tracer = t }
}

// WithReportHook sets the callback ScoreAll invokes after each declaration.
func WithReportHook(h ReportHook) Option {
	return func(e *Engine) { e.hook = h }
}

// NewEngine creates a scoring engine.
func NewEngine(registry *Registry, deps Deps, cfg domain.ScoringConfig, opts ...Option) (*Engine, error) {
	if registry == nil {
		return nil, fmt.Errorf("rule registry is required")
	}
	if deps.Store == nil || deps.Scorings == nil || deps.Converter == nil {
		return nil, fmt.Errorf("store, scoring store and converter are required")
	}
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = 8
	}
	if cfg.BatchConcurrency <= 0 {
		cfg.BatchConcurrency = 1
	}
	if cfg.SaveRetries < 0 {
		cfg.SaveRetries = 0
	}

	e := &Engine{
		registry:      registry,
		deps:          deps,
		cfg:           cfg,
		tracer:        otel.Tracer("pepscore-scoring"),
		retryInterval: 100 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Registry returns the rules the engine evaluates.
func (e *Engine) Registry() *Registry { return e.registry }

// ScoreDeclaration evaluates every registered rule against the declaration and
// persists the non-zero results. Stored rows of rules that now calculate to
// zero are removed. A rule that fails is reported in
// Report.Failures; the other rules still run.
func (e *Engine) ScoreDeclaration(ctx context.Context, declarationID int64) (*Report, error) {
	start := time.Now()

	ctx, span := e.tracer.Start(ctx, "scoring.declaration",
		trace.WithAttributes(attribute.Int64("declaration_id", declarationID)),
	)
	defer span.End()

	decl, err := e.deps.Store.GetDeclaration(ctx, declarationID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("load declaration %d: %w", declarationID, err)
	}
	pep, err := e.deps.Store.GetPep(ctx, decl.PepID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("load pep %d: %w", decl.PepID, err)
	}

	in := NewInput(decl, pep, e.deps)
	rules := e.registry.All()

	rulesStart := time.Now()
	outcomes := make([]ruleOutcome, len(rules))
	var wg sync.WaitGroup

	// Limit concurrency with semaphore
	sem := make(chan struct{}, e.cfg.MaxWorkers)

	for i, rule := range rules {
		wg.Add(1)
		go func(idx int, r Rule) {
			defer wg.Done()

			sem <- struct{}{}        // Acquire
			defer func() { <-sem }() // Release

			outcomes[idx] = e.evaluate(ctx, r, in)
		}(i, rule)
	}

	wg.Wait()

	report := &Report{
		Declaration: decl,
		Pep:         pep,
		Evaluated:   len(rules),
		RulesMs:     time.Since(rulesStart).Milliseconds(),
		TraceID:     traceID(span),
	}
	for _, o := range outcomes {
		if o.err != nil {
			slog.Error("rule failed",
				"declaration_id", decl.ID,
				"rule_id", o.ruleID,
				"error", o.err,
			)
			report.Failures = append(report.Failures, domain.RuleFailure{
				RuleID: string(o.ruleID),
				Error:  o.err.Error(),
			})
			continue
		}
		if o.result != nil {
			report.Results = append(report.Results, *o.result)
		}
	}
	report.TotalMs = time.Since(start).Milliseconds()

	span.SetAttributes(
		attribute.Int("rules_fired", len(report.Results)),
		attribute.Int("rules_failed", len(report.Failures)),
	)
	if len(report.Failures) > 0 {
		span.SetStatus(codes.Error, "one or more rules failed")
	}

	slog.Debug("declaration scored",
		"declaration_id", decl.ID,
		"pep_id", pep.ID,
		"rules_fired", len(report.Results),
		"rules_failed", len(report.Failures),
		"total_ms", report.TotalMs,
	)

	return report, nil
}

type ruleOutcome struct {
	ruleID RuleID
	result *domain.RuleResult
	err    error
}

// evaluate runs one rule and persists a non-zero result.
func (e *Engine) evaluate(ctx context.Context, rule Rule, in *Input) ruleOutcome {
	start := time.Now()
	out := ruleOutcome{ruleID: rule.ID()}

	record := func(outcome string) {
		e.metrics.ObserveRule(string(rule.ID()), outcome, time.Since(start))
	}

	s, err := bind(rule, in, e.deps.Scorings)
	if err != nil {
		out.err = err
		record(OutcomeError)
		return out
	}

	weight, evidence, err := s.CalculateWithValidation(ctx)
	if err != nil {
		out.err = err
		record(OutcomeError)
		return out
	}
	if weight == 0 {
		if err := e.persist(ctx, s, s.ClearFromDB); err != nil {
			out.err = fmt.Errorf("rule %s: clear: %w", rule.ID(), err)
			record(OutcomeError)
			return out
		}
		record(OutcomeClear)
		return out
	}

	if err := e.persist(ctx, s, s.SaveToDB); err != nil {
		out.err = fmt.Errorf("rule %s: save: %w", rule.ID(), err)
		record(OutcomeError)
		return out
	}

	out.result = &domain.RuleResult{
		RuleID:    string(rule.ID()),
		Category:  rule.Category(),
		Weight:    weight,
		Evidence:  evidence,
		ProcessMs: time.Since(start).Milliseconds(),
	}
	record(OutcomeFired)
	return out
}

// persist runs write for the scoring, retrying transient storage errors with
// exponential backoff.
func (e *Engine) persist(ctx context.Context, s *Scoring, write func(context.Context) error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = e.retryInterval

	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(e.cfg.SaveRetries)), ctx)

	operation := func() error {
		err := write(ctx)
		if errors.Is(err, ErrNotCalculated) || errors.Is(err, ErrNotCleared) {
			return backoff.Permanent(err)
		}
		return err
	}

	notify := func(err error, wait time.Duration) {
		e.metrics.IncrementSaveRetry()
		slog.Warn("scoring write failed, retrying",
			"declaration_id", s.in.Declaration.ID,
			"rule_id", s.rule.ID(),
			"retry_in", wait,
			"error", err,
		)
	}

	return backoff.RetryNotify(operation, policy, notify)
}

// ScoreAll scores every declaration matching filter with bounded concurrency.
// A failing declaration is logged and counted; the run continues.
func (e *Engine) ScoreAll(ctx context.Context, filter domain.DeclarationFilter) (*BatchStats, error) {
	start := time.Now()
	stats := &BatchStats{
		RunID:      uuid.New().String(),
		RulesFired: make(map[string]int),
	}

	ids, err := e.deps.Store.ListDeclarationIDs(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list declarations: %w", err)
	}
	stats.Declarations = len(ids)

	slog.Info("batch scoring started",
		"run_id", stats.RunID,
		"declarations", len(ids),
		"rules", e.registry.Len(),
		"concurrency", e.cfg.BatchConcurrency,
	)

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.BatchConcurrency)

	for _, id := range ids {
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}

			report, err := e.ScoreDeclaration(gctx, id)
			if err != nil {
				slog.Error("declaration scoring failed",
					"run_id", stats.RunID,
					"declaration_id", id,
					"error", err,
				)
				mu.Lock()
				stats.Failed++
				mu.Unlock()
				return nil
			}

			mu.Lock()
			stats.Scored++
			stats.RuleFailures += len(report.Failures)
			for _, r := range report.Results {
				stats.RulesFired[r.RuleID]++
			}
			mu.Unlock()

			if e.hook != nil {
				e.hook(gctx, report)
			}
			return nil
		})
	}

	waitErr := g.Wait()
	stats.Duration = time.Since(start)

	slog.Info("batch scoring finished",
		"run_id", stats.RunID,
		"scored", stats.Scored,
		"failed", stats.Failed,
		"rule_failures", stats.RuleFailures,
		"duration_ms", stats.Duration.Milliseconds(),
	)

	if waitErr != nil {
		return stats, waitErr
	}
	return stats, nil
}

// traceID returns the span's trace id, or a fresh id when tracing is disabled.
func traceID(span trace.Span) string {
	if sc := span.SpanContext(); sc.HasTraceID() {
		return sc.TraceID().String()
	}
	return uuid.New().String()
}
