package scoring

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/opensource-finance/pepscore/internal/domain"
	"github.com/opensource-finance/pepscore/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

// flakyScorings fails the first n upserts.
type flakyScorings struct {
	domain.ScoringStore
	mu       sync.Mutex
	failures int
	attempts int
}

func (s *flakyScorings) UpsertScoring(ctx context.Context, sc *domain.PepScoring) error {
	s.mu.Lock()
	s.attempts++
	fail := s.attempts <= s.failures
	s.mu.Unlock()
	if fail {
		return errors.New("database is locked")
	}
	return s.ScoringStore.UpsertScoring(ctx, sc)
}

func newTestEngine(t *testing.T, f *fixture, registry *Registry, cfg domain.ScoringConfig, opts ...Option) *Engine {
	t.Helper()
	e, err := NewEngine(registry, f.deps, cfg, opts...)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	e.retryInterval = time.Millisecond
	return e
}

func seedSuspicious(f *fixture) {
	f.geography()
	f.pep(1)
	f.declaration(10, 1, 2018, nil)
	f.declaration(11, 1, 2019, ptr(int64(100)))
	f.property(11, domain.PropertyApartment, ptr(int64(200)), nil)
	f.money(10, domain.MoneyCash, 1000, "USD")
	f.money(11, domain.MoneyCash, 6000, "USD")
	f.income(11, domain.IncomeGift, 150000)
}

func TestNewEngine(t *testing.T) {
	f := newFixture(t)

	if _, err := NewEngine(nil, f.deps, domain.ScoringConfig{}); err == nil {
		t.Error("expected error without registry")
	}
	if _, err := NewEngine(DefaultRegistry(), Deps{Store: f.repo}, domain.ScoringConfig{}); err == nil {
		t.Error("expected error without scoring store and converter")
	}

	e, err := NewEngine(DefaultRegistry(), f.deps, domain.ScoringConfig{})
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	if e.cfg.MaxWorkers <= 0 || e.cfg.BatchConcurrency <= 0 {
		t.Errorf("expected positive defaults, got %+v", e.cfg)
	}
}

func TestScoreDeclaration(t *testing.T) {
	f := newFixture(t)
	seedSuspicious(f)

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	e := newTestEngine(t, f, DefaultRegistry(), domain.ScoringConfig{MaxWorkers: 4, SaveRetries: 1}, WithMetrics(m))

	report, err := e.ScoreDeclaration(f.ctx, 11)
	if err != nil {
		t.Fatalf("ScoreDeclaration failed: %v", err)
	}

	if report.Evaluated != 17 {
		t.Errorf("expected 17 rules evaluated, got %d", report.Evaluated)
	}
	if len(report.Failures) != 0 {
		t.Errorf("unexpected failures: %+v", report.Failures)
	}
	if report.TraceID == "" {
		t.Error("expected trace id")
	}

	fired := make(map[string]float64)
	for i, r := range report.Results {
		fired[r.RuleID] = r.Weight
		if i > 0 && report.Results[i-1].RuleID >= r.RuleID {
			t.Errorf("results not ordered: %s before %s", report.Results[i-1].RuleID, r.RuleID)
		}
	}
	for id, weight := range map[RuleID]float64{
		RuleGettingRicher:     0.6,
		RuleMultiplyingMoney:  0.3,
		RuleLiveNowhereCity:   0.7,
		RuleLiveNowhereRegion: 0.1,
		RuleCostlyPresents:    0.8,
	} {
		if fired[string(id)] != weight {
			t.Errorf("%s: expected weight %v, got %v", id, weight, fired[string(id)])
		}
	}
	// 150000 UAH of gifts covers the 5000 USD growth.
	if _, ok := fired[string(RuleMoneyFromNowhere)]; ok {
		t.Error("money from nowhere should not fire when income covers the growth")
	}

	rows, err := f.repo.ListScorings(f.ctx, 11)
	if err != nil {
		t.Fatalf("ListScorings failed: %v", err)
	}
	if len(rows) != len(report.Results) {
		t.Errorf("expected %d persisted rows, got %d", len(report.Results), len(rows))
	}

	if got := testutil.ToFloat64(m.RuleOutcome.WithLabelValues(string(RuleCostlyPresents), OutcomeFired)); got != 1 {
		t.Errorf("expected 1 fired outcome metric, got %v", got)
	}
	if got := testutil.ToFloat64(m.RuleOutcome.WithLabelValues(string(RuleSpouseNotDeclared), OutcomeClear)); got != 1 {
		t.Errorf("expected 1 clear outcome metric, got %v", got)
	}
}

func TestScoreDeclarationIdempotent(t *testing.T) {
	f := newFixture(t)
	seedSuspicious(f)
	e := newTestEngine(t, f, DefaultRegistry(), domain.ScoringConfig{})

	first, err := e.ScoreDeclaration(f.ctx, 11)
	if err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	second, err := e.ScoreDeclaration(f.ctx, 11)
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	if len(first.Results) != len(second.Results) {
		t.Errorf("expected same results, got %d and %d", len(first.Results), len(second.Results))
	}

	rows, _ := f.repo.ListScorings(f.ctx, 11)
	if len(rows) != len(first.Results) {
		t.Errorf("rerun should overwrite rows: expected %d, got %d", len(first.Results), len(rows))
	}
}

func TestScoreDeclarationRemovesStaleRows(t *testing.T) {
	f := newFixture(t)
	f.pep(1)
	f.declaration(10, 1, 2019, nil)

	rule := newStub("PEP05_gifts", 0.8, GiftsEvidence{PresentsPrice: 150000})
	registry, err := NewRegistry(rule)
	if err != nil {
		t.Fatalf("NewRegistry failed: %v", err)
	}
	e := newTestEngine(t, f, registry, domain.ScoringConfig{})

	if _, err := e.ScoreDeclaration(f.ctx, 10); err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	if rows, _ := f.repo.ListScorings(f.ctx, 10); len(rows) != 1 {
		t.Fatalf("expected 1 stored row after the first run, got %d", len(rows))
	}

	// The declaration was corrected and the rule no longer fires.
	rule.out, rule.evidence = 0, nil

	report, err := e.ScoreDeclaration(f.ctx, 10)
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	if len(report.Results) != 0 || len(report.Failures) != 0 {
		t.Fatalf("expected a clean report, got %+v", report)
	}
	rows, err := f.repo.ListScorings(f.ctx, 10)
	if err != nil {
		t.Fatalf("ListScorings failed: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("expected the stale row to be removed, got %+v", rows)
	}
}

func TestScoreDeclarationIsolatesFailures(t *testing.T) {
	f := newFixture(t)
	f.pep(1)
	f.declaration(10, 1, 2019, nil)

	broken := newStub("X01_broken", 0.5, "wrong evidence")
	failing := newStub("X02_failing", 0, nil)
	failing.err = errors.New("query failed")
	healthy := newStub("X03_healthy", 0.8, GiftsEvidence{PresentsPrice: 200000})

	registry, err := NewRegistry(broken, failing, healthy)
	if err != nil {
		t.Fatalf("NewRegistry failed: %v", err)
	}
	e := newTestEngine(t, f, registry, domain.ScoringConfig{})

	report, err := e.ScoreDeclaration(f.ctx, 10)
	if err != nil {
		t.Fatalf("ScoreDeclaration failed: %v", err)
	}
	if len(report.Failures) != 2 {
		t.Fatalf("expected 2 failures, got %+v", report.Failures)
	}
	if report.Failures[0].RuleID != "X01_broken" || report.Failures[1].RuleID != "X02_failing" {
		t.Errorf("unexpected failures: %+v", report.Failures)
	}
	if len(report.Results) != 1 || report.Results[0].RuleID != "X03_healthy" {
		t.Errorf("expected healthy rule to be scored, got %+v", report.Results)
	}
}

func TestScoreDeclarationRetriesSave(t *testing.T) {
	f := newFixture(t)
	f.pep(1)
	f.declaration(10, 1, 2019, nil)
	f.income(10, domain.IncomeGift, 150000)

	registry := DefaultRegistry()
	only, _ := registry.Get(RuleCostlyPresents)
	single, _ := NewRegistry(only)

	t.Run("RecoversFromTransientErrors", func(t *testing.T) {
		flaky := &flakyScorings{ScoringStore: f.repo, failures: 2}
		f.deps.Scorings = flaky
		m := metrics.New(prometheus.NewRegistry())
		e := newTestEngine(t, f, single, domain.ScoringConfig{SaveRetries: 3}, WithMetrics(m))

		report, err := e.ScoreDeclaration(f.ctx, 10)
		if err != nil {
			t.Fatalf("ScoreDeclaration failed: %v", err)
		}
		if len(report.Results) != 1 || len(report.Failures) != 0 {
			t.Fatalf("expected save to succeed after retries, got %+v", report)
		}
		if flaky.attempts != 3 {
			t.Errorf("expected 3 attempts, got %d", flaky.attempts)
		}
		if got := testutil.ToFloat64(m.SaveRetries); got != 2 {
			t.Errorf("expected 2 retries recorded, got %v", got)
		}
	})

	t.Run("GivesUp", func(t *testing.T) {
		flaky := &flakyScorings{ScoringStore: f.repo, failures: 10}
		f.deps.Scorings = flaky
		e := newTestEngine(t, f, single, domain.ScoringConfig{SaveRetries: 1})

		report, err := e.ScoreDeclaration(f.ctx, 10)
		if err != nil {
			t.Fatalf("ScoreDeclaration failed: %v", err)
		}
		if len(report.Failures) != 1 || len(report.Results) != 0 {
			t.Errorf("expected the save failure to be reported, got %+v", report)
		}
		if flaky.attempts != 2 {
			t.Errorf("expected 2 attempts, got %d", flaky.attempts)
		}
	})
}

func TestScoreDeclarationMissing(t *testing.T) {
	f := newFixture(t)
	e := newTestEngine(t, f, DefaultRegistry(), domain.ScoringConfig{})

	if _, err := e.ScoreDeclaration(f.ctx, 404); err == nil {
		t.Error("expected error for unknown declaration")
	}
}

func TestScoreAll(t *testing.T) {
	f := newFixture(t)
	seedSuspicious(f)
	f.pep(2)
	f.declaration(20, 2, 2019, nil)
	// Declaration whose PEP is missing from the registry.
	f.declaration(30, 99, 2019, nil)
	f.declaration(40, 2, 2012, nil)

	var hooked atomic.Int32
	e := newTestEngine(t, f, DefaultRegistry(), domain.ScoringConfig{BatchConcurrency: 2},
		WithReportHook(func(ctx context.Context, r *Report) { hooked.Add(1) }),
	)

	stats, err := e.ScoreAll(f.ctx, domain.DeclarationFilter{YearFrom: 2015})
	if err != nil {
		t.Fatalf("ScoreAll failed: %v", err)
	}

	if stats.RunID == "" {
		t.Error("expected run id")
	}
	if stats.Declarations != 4 {
		t.Errorf("expected 4 declarations in range, got %d", stats.Declarations)
	}
	if stats.Scored != 3 || stats.Failed != 1 {
		t.Errorf("expected 3 scored and 1 failed, got %d and %d", stats.Scored, stats.Failed)
	}
	if stats.RulesFired[string(RuleCostlyPresents)] != 1 {
		t.Errorf("expected gifts rule to fire once, got %d", stats.RulesFired[string(RuleCostlyPresents)])
	}
	if hooked.Load() != 3 {
		t.Errorf("expected hook for each scored declaration, got %d", hooked.Load())
	}
}

func TestScoreAllCancelled(t *testing.T) {
	f := newFixture(t)
	seedSuspicious(f)
	e := newTestEngine(t, f, DefaultRegistry(), domain.ScoringConfig{})

	ctx, cancel := context.WithCancel(f.ctx)
	cancel()

	if _, err := e.ScoreAll(ctx, domain.DeclarationFilter{}); err == nil {
		t.Error("expected error for cancelled context")
	}
}
