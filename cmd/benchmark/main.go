// Benchmark tool for the pepscore rule engine.
//
// Usage:
//
//	go run ./cmd/benchmark -peps 2000 -suspicious 0.1
//
// This tool:
//  1. Seeds a SQLite registry with synthetic PEPs and multi-year declarations
//  2. Plants red flags in a fraction of final-year declarations
//  3. Scores every declaration in one batch run
//  4. Compares HIGH/LOW assessments with the planted labels and reports
//     throughput and per-rule hit counts
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sort"
	"sync/atomic"
	"time"

	"github.com/opensource-finance/pepscore/internal/currency"
	"github.com/opensource-finance/pepscore/internal/decision"
	"github.com/opensource-finance/pepscore/internal/domain"
	"github.com/opensource-finance/pepscore/internal/repository"
	"github.com/opensource-finance/pepscore/internal/scoring"
)

// Results tracks benchmark outcomes against planted labels.
type Results struct {
	TruePositives  int64 // Planted declaration assessed HIGH
	FalsePositives int64 // Clean declaration assessed HIGH
	TrueNegatives  int64 // Clean declaration assessed LOW
	FalseNegatives int64 // Planted declaration assessed LOW

	ScoringTimeMs int64
}

// seeder writes synthetic registry data.
type seeder struct {
	ctx     context.Context
	repo    domain.DeclarationWriter
	rng     *rand.Rand
	nextID  int64
	planted map[int64]bool
}

func (s *seeder) id() int64 {
	s.nextID++
	return s.nextID
}

func main() {
	peps := flag.Int("peps", 1000, "Number of synthetic PEPs")
	yearFrom := flag.Int("from", 2016, "First declaration year")
	yearTo := flag.Int("to", 2020, "Last declaration year")
	suspicious := flag.Float64("suspicious", 0.1, "Fraction of PEPs with planted red flags (0.0-1.0)")
	seed := flag.Uint64("seed", 42, "Random seed")
	dbPath := flag.String("db", "", "SQLite file (default: temporary file)")
	workers := flag.Int("workers", 8, "Parallel rules per declaration")
	concurrency := flag.Int("concurrency", 4, "Declarations scored at once")
	threshold := flag.Float64("threshold", decision.DefaultAlertThreshold, "Alert threshold")
	verbose := flag.Bool("verbose", false, "Log every rule failure")
	flag.Parse()

	if *peps <= 0 || *yearTo < *yearFrom || *yearTo-*yearFrom >= 100 || *suspicious < 0 || *suspicious > 1 {
		fmt.Println("Usage: benchmark [-peps 1000] [-from 2016] [-to 2020] [-suspicious 0.1]")
		fmt.Println("\nFlags:")
		flag.PrintDefaults()
		os.Exit(1)
	}

	level := slog.LevelError
	if *verbose {
		level = slog.LevelWarn
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	path := *dbPath
	if path == "" {
		dir, err := os.MkdirTemp("", "pepscore-bench")
		if err != nil {
			fmt.Printf("ERROR: %v\n", err)
			os.Exit(1)
		}
		defer os.RemoveAll(dir)
		path = filepath.Join(dir, "bench.db")
	}

	fmt.Println("╔═══════════════════════════════════════════════════════════════╗")
	fmt.Println("║          PEPSCORE BENCHMARK - Synthetic Declarations          ║")
	fmt.Println("╚═══════════════════════════════════════════════════════════════╝")
	fmt.Printf("\nDatabase:    %s\n", path)
	fmt.Printf("PEPs:        %d\n", *peps)
	fmt.Printf("Years:       %d-%d\n", *yearFrom, *yearTo)
	fmt.Printf("Suspicious:  %.2f\n", *suspicious)
	fmt.Printf("Workers:     %d x %d\n", *concurrency, *workers)
	fmt.Printf("Threshold:   %.2f\n", *threshold)
	fmt.Println()

	ctx := context.Background()
	repo, err := repository.New(ctx, domain.RepositoryConfig{Driver: "sqlite", SQLitePath: path})
	if err != nil {
		fmt.Printf("ERROR: Failed to open repository: %v\n", err)
		os.Exit(1)
	}
	defer repo.Close()

	// Seed registry
	fmt.Println("Seeding registry...")
	seedStart := time.Now()
	s := &seeder{
		ctx:     ctx,
		repo:    repo,
		rng:     rand.New(rand.NewPCG(*seed, *seed^0x9e3779b97f4a7c15)),
		planted: make(map[int64]bool),
	}
	if err := s.geography(); err != nil {
		fmt.Printf("ERROR: Failed to seed geography: %v\n", err)
		os.Exit(1)
	}
	declarations := 0
	for i := 1; i <= *peps; i++ {
		plant := s.rng.Float64() < *suspicious
		n, err := s.pep(int64(i), *yearFrom, *yearTo, plant)
		if err != nil {
			fmt.Printf("ERROR: Failed to seed PEP %d: %v\n", i, err)
			os.Exit(1)
		}
		declarations += n
	}
	fmt.Printf("✓ Seeded %d declarations (%d planted) in %v\n",
		declarations, len(s.planted), time.Since(seedStart).Round(time.Millisecond))

	// Score
	results := &Results{}
	processor := decision.NewProcessor(*threshold)
	engine, err := scoring.NewEngine(scoring.DefaultRegistry(),
		scoring.Deps{
			Store:     repo,
			Scorings:  repo,
			Converter: currency.NewService(currency.Chain{repo, currency.NewStaticRates()}, nil, 0),
		},
		domain.ScoringConfig{MaxWorkers: *workers, BatchConcurrency: *concurrency, SaveRetries: 1},
		scoring.WithReportHook(func(ctx context.Context, r *scoring.Report) {
			atomic.AddInt64(&results.ScoringTimeMs, r.TotalMs)
			high := decision.ShouldAlert(processor.Process(ctx, r))
			planted := s.planted[r.Declaration.ID]
			switch {
			case high && planted:
				atomic.AddInt64(&results.TruePositives, 1)
			case high && !planted:
				atomic.AddInt64(&results.FalsePositives, 1)
			case !high && !planted:
				atomic.AddInt64(&results.TrueNegatives, 1)
			default:
				atomic.AddInt64(&results.FalseNegatives, 1)
			}
		}),
	)
	if err != nil {
		fmt.Printf("ERROR: Failed to create engine: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("\nScoring %d declarations...\n", declarations)
	stats, err := engine.ScoreAll(ctx, domain.DeclarationFilter{YearFrom: *yearFrom, YearTo: *yearTo})
	if err != nil {
		fmt.Printf("ERROR: Batch failed: %v\n", err)
		os.Exit(1)
	}

	printResults(results, stats)
}

func (s *seeder) geography() error {
	regions := []domain.RatuRegion{{ID: 1, Name: "Kyivska"}, {ID: 2, Name: "Lvivska"}, {ID: 3, Name: "Odeska"}}
	for i := range regions {
		if err := s.repo.SaveRegion(s.ctx, &regions[i]); err != nil {
			return err
		}
	}
	cities := []domain.RatuCity{
		{ID: 100, RegionID: 1, Name: "Kyiv"},
		{ID: 200, RegionID: 2, Name: "Lviv"},
		{ID: 300, RegionID: 3, Name: "Odesa"},
	}
	for i := range cities {
		if err := s.repo.SaveCity(s.ctx, &cities[i]); err != nil {
			return err
		}
	}
	return nil
}

// pep seeds one person with a declaration per year. Clean declarations keep
// stable savings covered by salary; a planted final year adds a cash pile
// and an expensive gift.
func (s *seeder) pep(pepID int64, from, to int, plant bool) (int, error) {
	if err := s.repo.SavePep(s.ctx, &domain.Pep{ID: pepID, FullName: fmt.Sprintf("Person %d", pepID)}); err != nil {
		return 0, err
	}

	city := []int64{100, 200, 300}[s.rng.IntN(3)]
	salary := 400000 + float64(s.rng.IntN(400000))
	savings := 50000 + float64(s.rng.IntN(150000))
	flat := 1500000 + float64(s.rng.IntN(2000000))
	car := 200000 + float64(s.rng.IntN(300000))

	n := 0
	for year := from; year <= to; year++ {
		declID := pepID*100 + int64(year-from)
		if err := s.repo.SaveDeclaration(s.ctx, &domain.Declaration{
			ID:                declID,
			PepID:             pepID,
			Year:              year,
			CityOfResidenceID: &city,
			SpouseDeclared:    true,
		}); err != nil {
			return n, err
		}
		n++

		cash := savings
		if plant && year == to {
			cash = 3000000 + float64(s.rng.IntN(2000000))
			s.planted[declID] = true
			if err := s.income(declID, domain.IncomeGift, 150000+float64(s.rng.IntN(300000))); err != nil {
				return n, err
			}
		}

		if err := s.repo.SaveProperty(s.ctx, &domain.Property{
			ID: s.id(), DeclarationID: declID, Type: domain.PropertyApartment, CityID: &city, Valuation: &flat,
		}); err != nil {
			return n, err
		}
		if err := s.repo.SaveVehicle(s.ctx, &domain.Vehicle{
			ID: s.id(), DeclarationID: declID, Type: domain.VehicleCar,
			Brand: "Skoda", Model: "Octavia", ProductionYear: from - 5, Valuation: &car,
		}); err != nil {
			return n, err
		}
		if err := s.repo.SaveMoney(s.ctx, &domain.Money{
			ID: s.id(), DeclarationID: declID, Type: domain.MoneyCash, Amount: &cash, Currency: domain.NationalCurrency,
		}); err != nil {
			return n, err
		}
		if err := s.income(declID, domain.IncomeSalary, salary); err != nil {
			return n, err
		}
	}
	return n, nil
}

func (s *seeder) income(declID int64, typ domain.IncomeType, amount float64) error {
	return s.repo.SaveIncome(s.ctx, &domain.Income{ID: s.id(), DeclarationID: declID, Type: typ, Amount: &amount})
}

func printResults(r *Results, stats *scoring.BatchStats) {
	fmt.Println("\n╔═══════════════════════════════════════════════════════════════╗")
	fmt.Println("║                      BENCHMARK RESULTS                        ║")
	fmt.Println("╚═══════════════════════════════════════════════════════════════╝")

	fmt.Printf("\n📊 RUN STATISTICS\n")
	fmt.Printf("   Run ID:         %s\n", stats.RunID)
	fmt.Printf("   Declarations:   %d\n", stats.Declarations)
	fmt.Printf("   Scored:         %d\n", stats.Scored)
	fmt.Printf("   Failed:         %d\n", stats.Failed)
	fmt.Printf("   Rule failures:  %d\n", stats.RuleFailures)

	fmt.Printf("\n📈 CONFUSION MATRIX\n")
	fmt.Println("                        Assessed")
	fmt.Println("                    HIGH        LOW")
	fmt.Println("              ┌──────────┬──────────┐")
	fmt.Printf("   Planted  Y │ %8d │ %8d │  (TP, FN)\n", r.TruePositives, r.FalseNegatives)
	fmt.Println("              ├──────────┼──────────┤")
	fmt.Printf("            N │ %8d │ %8d │  (FP, TN)\n", r.FalsePositives, r.TrueNegatives)
	fmt.Println("              └──────────┴──────────┘")

	precision := float64(0)
	if r.TruePositives+r.FalsePositives > 0 {
		precision = float64(r.TruePositives) / float64(r.TruePositives+r.FalsePositives)
	}
	recall := float64(0)
	if r.TruePositives+r.FalseNegatives > 0 {
		recall = float64(r.TruePositives) / float64(r.TruePositives+r.FalseNegatives)
	}
	fmt.Printf("\n🎯 DETECTION\n")
	fmt.Printf("   Precision:  %.4f\n", precision)
	fmt.Printf("   Recall:     %.4f\n", recall)

	fmt.Printf("\n🔍 RULE HITS\n")
	ids := make([]string, 0, len(stats.RulesFired))
	for id := range stats.RulesFired {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	if len(ids) == 0 {
		fmt.Println("   (no rule fired)")
	}
	for _, id := range ids {
		fmt.Printf("   %-22s %8d\n", id, stats.RulesFired[id])
	}

	fmt.Printf("\n⏱️  PERFORMANCE\n")
	fmt.Printf("   Total Duration:   %v\n", stats.Duration.Round(time.Millisecond))
	if stats.Scored > 0 {
		avgMs := float64(r.ScoringTimeMs) / float64(stats.Scored)
		dps := float64(stats.Scored) / stats.Duration.Seconds()
		fmt.Printf("   Avg Latency:      %.2f ms\n", avgMs)
		fmt.Printf("   Throughput:       %.2f declarations/sec\n", dps)
	}
	fmt.Println()
}
