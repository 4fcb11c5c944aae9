package worker

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/opensource-finance/pepscore/internal/bus"
	"github.com/opensource-finance/pepscore/internal/cache"
	"github.com/opensource-finance/pepscore/internal/currency"
	"github.com/opensource-finance/pepscore/internal/decision"
	"github.com/opensource-finance/pepscore/internal/domain"
	"github.com/opensource-finance/pepscore/internal/repository"
	"github.com/opensource-finance/pepscore/internal/scoring"
)

func seedRegistry(t *testing.T, repo *repository.SQLRepository) {
	t.Helper()
	ctx := context.Background()
	city, otherCity := int64(100), int64(200)
	cash2018, cash2019, gift, salary := 1000.0, 6000.0, 150000.0, 900000.0

	steps := []error{
		repo.SaveRegion(ctx, &domain.RatuRegion{ID: 1, Name: "Kyivska"}),
		repo.SaveRegion(ctx, &domain.RatuRegion{ID: 2, Name: "Lvivska"}),
		repo.SaveCity(ctx, &domain.RatuCity{ID: 100, RegionID: 1, Name: "Kyiv"}),
		repo.SaveCity(ctx, &domain.RatuCity{ID: 200, RegionID: 2, Name: "Lviv"}),

		// PEP 1 lives where it owns nothing, got richer and received gifts
		repo.SavePep(ctx, &domain.Pep{ID: 1, FullName: "Suspicious Person"}),
		repo.SaveDeclaration(ctx, &domain.Declaration{ID: 10, PepID: 1, Year: 2018}),
		repo.SaveDeclaration(ctx, &domain.Declaration{ID: 11, PepID: 1, Year: 2019, CityOfResidenceID: &city}),
		repo.SaveProperty(ctx, &domain.Property{ID: 501, DeclarationID: 11, Type: domain.PropertyApartment, CityID: &otherCity}),
		repo.SaveMoney(ctx, &domain.Money{ID: 601, DeclarationID: 10, Type: domain.MoneyCash, Amount: &cash2018, Currency: "USD"}),
		repo.SaveMoney(ctx, &domain.Money{ID: 602, DeclarationID: 11, Type: domain.MoneyCash, Amount: &cash2019, Currency: "USD"}),
		repo.SaveIncome(ctx, &domain.Income{ID: 701, DeclarationID: 11, Type: domain.IncomeGift, Amount: &gift}),

		// PEP 2 declares a salary and nothing else
		repo.SavePep(ctx, &domain.Pep{ID: 2, FullName: "Ordinary Person"}),
		repo.SaveDeclaration(ctx, &domain.Declaration{ID: 20, PepID: 2, Year: 2019}),
		repo.SaveIncome(ctx, &domain.Income{ID: 702, DeclarationID: 20, Type: domain.IncomeSalary, Amount: &salary}),
	}
	for _, err := range steps {
		if err != nil {
			t.Fatalf("seed failed: %v", err)
		}
	}
}

func TestPipeline(t *testing.T) {
	ctx := context.Background()

	repo, err := repository.New(ctx, domain.RepositoryConfig{
		Driver:     "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "pipeline.db"),
	})
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}
	defer repo.Close()
	seedRegistry(t, repo)

	converter := currency.NewService(currency.Chain{repo, currency.NewStaticRates()}, cache.NewLRUCache(100), 0)
	engine, err := scoring.NewEngine(scoring.DefaultRegistry(),
		scoring.Deps{Store: repo, Scorings: repo, Converter: converter},
		domain.ScoringConfig{MaxWorkers: 4, SaveRetries: 1},
	)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}

	eventBus := bus.NewChannelBus(100)
	defer eventBus.Close()

	w := NewWorker(eventBus, engine, decision.NewProcessor(decision.DefaultAlertThreshold), nil)
	if err := w.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer w.Stop()

	completed := collect(t, eventBus, domain.TopicScoringCompleted)
	alerts := collect(t, eventBus, domain.TopicAlert)

	t.Run("SuspiciousDeclaration", func(t *testing.T) {
		if err := Submit(ctx, eventBus, 11, "pipeline-001"); err != nil {
			t.Fatalf("Submit failed: %v", err)
		}

		a := receive(t, completed)
		if a.DeclarationID != 11 || a.PepID != 1 || a.Year != 2019 {
			t.Errorf("unexpected assessment identity: %+v", a)
		}
		if a.Status != domain.RiskHigh {
			t.Errorf("expected HIGH, got %s (score %v, reasons %v)", a.Status, a.Score, a.Reasons)
		}
		if a.Metadata.RulesEvaluated != scoring.DefaultRegistry().Len() {
			t.Errorf("expected every rule evaluated, got %d", a.Metadata.RulesEvaluated)
		}

		alert := receive(t, alerts)
		if alert.DeclarationID != 11 {
			t.Errorf("expected alert for 11, got %d", alert.DeclarationID)
		}

		rows, err := repo.ListScorings(ctx, 11)
		if err != nil {
			t.Fatalf("ListScorings failed: %v", err)
		}
		if len(rows) != a.Metadata.RulesFired {
			t.Errorf("expected %d persisted scorings, got %d", a.Metadata.RulesFired, len(rows))
		}
	})

	t.Run("OrdinaryDeclaration", func(t *testing.T) {
		if err := Submit(ctx, eventBus, 20, ""); err != nil {
			t.Fatalf("Submit failed: %v", err)
		}

		a := receive(t, completed)
		if a.DeclarationID != 20 || a.Status != domain.RiskLow || a.Score != 0 {
			t.Errorf("expected clean LOW assessment, got %+v", a)
		}

		rows, _ := repo.ListScorings(ctx, 20)
		if len(rows) != 0 {
			t.Errorf("expected no persisted scorings, got %d", len(rows))
		}
	})
}
