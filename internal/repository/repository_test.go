package repository

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/opensource-finance/pepscore/internal/domain"
)

func newTestRepo(t *testing.T) *SQLRepository {
	t.Helper()

	cfg := domain.RepositoryConfig{
		Driver:     "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "pepscore-test.db"),
	}

	repo, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func ptr[T any](v T) *T { return &v }

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestSQLiteRepository(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	t.Run("Ping", func(t *testing.T) {
		if err := repo.Ping(ctx); err != nil {
			t.Errorf("Ping failed: %v", err)
		}
	})

	t.Run("SaveAndGetDeclaration", func(t *testing.T) {
		if err := repo.SavePep(ctx, &domain.Pep{ID: 1, FullName: "Ivan Petrenko"}); err != nil {
			t.Fatalf("SavePep failed: %v", err)
		}
		decl := &domain.Declaration{ID: 10, PepID: 1, Year: 2019, CityOfResidenceID: ptr(int64(100)), SpouseDeclared: true}
		if err := repo.SaveDeclaration(ctx, decl); err != nil {
			t.Fatalf("SaveDeclaration failed: %v", err)
		}

		got, err := repo.GetDeclaration(ctx, 10)
		if err != nil {
			t.Fatalf("GetDeclaration failed: %v", err)
		}
		if got.PepID != 1 || got.Year != 2019 {
			t.Errorf("unexpected declaration: %+v", got)
		}
		if got.CityOfResidenceID == nil || *got.CityOfResidenceID != 100 {
			t.Errorf("expected city 100, got %v", got.CityOfResidenceID)
		}
		if !got.SpouseDeclared {
			t.Error("expected SpouseDeclared to round-trip")
		}

		pep, err := repo.GetPep(ctx, 1)
		if err != nil {
			t.Fatalf("GetPep failed: %v", err)
		}
		if pep.FullName != "Ivan Petrenko" {
			t.Errorf("expected full name, got %q", pep.FullName)
		}
	})

	t.Run("NullableResidence", func(t *testing.T) {
		if err := repo.SaveDeclaration(ctx, &domain.Declaration{ID: 11, PepID: 1, Year: 2020}); err != nil {
			t.Fatalf("SaveDeclaration failed: %v", err)
		}
		got, err := repo.GetDeclaration(ctx, 11)
		if err != nil {
			t.Fatalf("GetDeclaration failed: %v", err)
		}
		if got.CityOfResidenceID != nil {
			t.Errorf("expected nil city, got %d", *got.CityOfResidenceID)
		}
	})

	t.Run("DeclarationExists", func(t *testing.T) {
		ok, err := repo.DeclarationExists(ctx, 10)
		if err != nil || !ok {
			t.Errorf("expected declaration 10 to exist, got %v, %v", ok, err)
		}
		ok, err = repo.DeclarationExists(ctx, 999)
		if err != nil || ok {
			t.Errorf("expected declaration 999 to be missing, got %v, %v", ok, err)
		}
	})

	t.Run("ListDeclarations", func(t *testing.T) {
		if err := repo.SaveDeclaration(ctx, &domain.Declaration{ID: 9, PepID: 1, Year: 2018}); err != nil {
			t.Fatalf("SaveDeclaration failed: %v", err)
		}

		decls, err := repo.ListDeclarationsByPep(ctx, 1)
		if err != nil {
			t.Fatalf("ListDeclarationsByPep failed: %v", err)
		}
		if len(decls) != 3 {
			t.Fatalf("expected 3 declarations, got %d", len(decls))
		}
		if decls[0].Year != 2018 || decls[2].Year != 2020 {
			t.Errorf("expected ascending years, got %d..%d", decls[0].Year, decls[2].Year)
		}

		ids, err := repo.ListDeclarationIDs(ctx, domain.DeclarationFilter{YearFrom: 2019, YearTo: 2019})
		if err != nil {
			t.Fatalf("ListDeclarationIDs failed: %v", err)
		}
		if len(ids) != 1 || ids[0] != 10 {
			t.Errorf("expected [10], got %v", ids)
		}

		ids, err = repo.ListDeclarationIDs(ctx, domain.DeclarationFilter{PepID: 1, Limit: 2})
		if err != nil {
			t.Fatalf("ListDeclarationIDs failed: %v", err)
		}
		if len(ids) != 2 || ids[0] != 9 {
			t.Errorf("expected [9 10], got %v", ids)
		}
	})

	t.Run("NotFound", func(t *testing.T) {
		_, err := repo.GetDeclaration(ctx, 999)
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got: %v", err)
		}
		_, err = repo.GetCity(ctx, 999)
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got: %v", err)
		}
		_, err = repo.GetUSDRate(ctx, "EUR", 1990)
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got: %v", err)
		}
	})

	t.Run("RequiresPositiveID", func(t *testing.T) {
		err := repo.SaveProperty(ctx, &domain.Property{})
		if !errors.Is(err, ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got: %v", err)
		}
	})
}

func TestRelatedPersonsLinks(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	links := []*domain.RelatedPersonsLink{
		{ID: 1, FromPersonID: 1, ToPersonID: 2, Category: domain.RelationshipFamily, RelationshipType: "wife"},
		{ID: 2, FromPersonID: 3, ToPersonID: 1, Category: domain.RelationshipFamily, RelationshipType: "son"},
		{ID: 3, FromPersonID: 1, ToPersonID: 4, Category: domain.RelationshipBusiness, RelationshipType: "partner"},
		{ID: 4, FromPersonID: 5, ToPersonID: 6, Category: domain.RelationshipFamily, RelationshipType: "brother"},
	}
	for _, l := range links {
		if err := repo.SaveRelatedPersonsLink(ctx, l); err != nil {
			t.Fatalf("SaveRelatedPersonsLink failed: %v", err)
		}
	}

	t.Run("BothDirections", func(t *testing.T) {
		got, err := repo.ListRelatedPersonsLinks(ctx, 1, domain.RelationshipFamily)
		if err != nil {
			t.Fatalf("ListRelatedPersonsLinks failed: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("expected 2 family links, got %d", len(got))
		}
		if got[0].Other(1) != 2 || got[1].Other(1) != 3 {
			t.Errorf("unexpected link ends: %d, %d", got[0].Other(1), got[1].Other(1))
		}
	})

	t.Run("AnyCategory", func(t *testing.T) {
		got, err := repo.ListRelatedPersonsLinks(ctx, 1, "")
		if err != nil {
			t.Fatalf("ListRelatedPersonsLinks failed: %v", err)
		}
		if len(got) != 3 {
			t.Errorf("expected 3 links, got %d", len(got))
		}
	})

	t.Run("RejectsSelfLink", func(t *testing.T) {
		err := repo.SaveRelatedPersonsLink(ctx, &domain.RelatedPersonsLink{ID: 9, FromPersonID: 7, ToPersonID: 7})
		if !errors.Is(err, ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got: %v", err)
		}
	})
}

func TestRights(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	props := []*domain.Property{
		{ID: 1, DeclarationID: 10, Type: domain.PropertySummerHouse, CityID: ptr(int64(100))},
		{ID: 2, DeclarationID: 10, Type: domain.PropertyLand},
		{ID: 3, DeclarationID: 10, Type: domain.PropertyApartment, Valuation: ptr(50000.0)},
		{ID: 4, DeclarationID: 11, Type: domain.PropertyHouse},
	}
	for _, p := range props {
		if err := repo.SaveProperty(ctx, p); err != nil {
			t.Fatalf("SaveProperty failed: %v", err)
		}
	}
	rights := []*domain.PropertyRight{
		{ID: 1, PropertyID: 1, PepID: 1, AcquisitionDate: date(2016, time.January, 1)},
		{ID: 2, PropertyID: 2, PepID: 1, AcquisitionDate: date(2017, time.March, 5)},
		{ID: 3, PropertyID: 3, PepID: 2, AcquisitionDate: date(2018, time.June, 1)},
		{ID: 4, PropertyID: 4, PepID: 2, AcquisitionDate: date(2010, time.June, 1)},
	}
	for _, r := range rights {
		if err := repo.SavePropertyRight(ctx, r); err != nil {
			t.Fatalf("SavePropertyRight failed: %v", err)
		}
	}

	if err := repo.SaveVehicle(ctx, &domain.Vehicle{ID: 1, DeclarationID: 10, Type: domain.VehicleCar, Brand: "BMW", ProductionYear: 2018, IsLuxury: true}); err != nil {
		t.Fatalf("SaveVehicle failed: %v", err)
	}
	if err := repo.SaveVehicleRight(ctx, &domain.VehicleRight{ID: 1, VehicleID: 1, PepID: 2, AcquisitionDate: date(2019, time.May, 1)}); err != nil {
		t.Fatalf("SaveVehicleRight failed: %v", err)
	}

	from := time.Date(2015, time.January, 1, 0, 0, 0, 0, time.UTC)

	t.Run("RealEstateWithoutValue", func(t *testing.T) {
		got, err := repo.ListPropertyRights(ctx, domain.RightFilter{
			PepIDs:           []int64{1, 2},
			PropertyTypes:    domain.RealEstatePropertyTypes,
			ValuationMissing: true,
			AcquiredFrom:     from,
		})
		if err != nil {
			t.Fatalf("ListPropertyRights failed: %v", err)
		}
		if len(got) != 1 {
			t.Fatalf("expected 1 right, got %d", len(got))
		}
		if got[0].Property.ID != 1 || got[0].Property.DeclarationID != 10 {
			t.Errorf("unexpected record: %+v", got[0].Property)
		}
		if got[0].Property.CityID == nil || *got[0].Property.CityID != 100 {
			t.Error("expected property city to be joined")
		}
		if got[0].Right.AcquisitionDate == nil || got[0].Right.AcquisitionDate.Year() != 2016 {
			t.Errorf("expected acquisition in 2016, got %v", got[0].Right.AcquisitionDate)
		}
	})

	t.Run("LandOnly", func(t *testing.T) {
		got, err := repo.ListPropertyRights(ctx, domain.RightFilter{
			PepIDs:        []int64{1},
			PropertyTypes: []domain.PropertyType{domain.PropertyLand},
		})
		if err != nil {
			t.Fatalf("ListPropertyRights failed: %v", err)
		}
		if len(got) != 1 || got[0].Property.Type != domain.PropertyLand {
			t.Errorf("expected the land right, got %d records", len(got))
		}
	})

	t.Run("EmptyPepSet", func(t *testing.T) {
		got, err := repo.ListPropertyRights(ctx, domain.RightFilter{})
		if err != nil || got != nil {
			t.Errorf("expected nil result, got %v, %v", got, err)
		}
	})

	t.Run("VehicleRights", func(t *testing.T) {
		got, err := repo.ListVehicleRights(ctx, domain.RightFilter{
			PepIDs:           []int64{2},
			ValuationMissing: true,
			AcquiredFrom:     from,
		})
		if err != nil {
			t.Fatalf("ListVehicleRights failed: %v", err)
		}
		if len(got) != 1 {
			t.Fatalf("expected 1 vehicle right, got %d", len(got))
		}
		if !got[0].Vehicle.IsLuxury || got[0].Vehicle.Brand != "BMW" {
			t.Errorf("unexpected vehicle: %+v", got[0].Vehicle)
		}
	})

	t.Run("ListPropertiesByType", func(t *testing.T) {
		got, err := repo.ListProperties(ctx, []int64{10}, domain.ResidentialPropertyTypes)
		if err != nil {
			t.Fatalf("ListProperties failed: %v", err)
		}
		if len(got) != 2 {
			t.Errorf("expected 2 residential properties, got %d", len(got))
		}
	})
}

func TestAssets(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if err := repo.SaveMoney(ctx, &domain.Money{ID: 1, DeclarationID: 10, Type: domain.MoneyCash, Amount: ptr(1000.0), Currency: "USD"}); err != nil {
		t.Fatalf("SaveMoney failed: %v", err)
	}
	if err := repo.SaveMoney(ctx, &domain.Money{ID: 2, DeclarationID: 11, Type: domain.MoneyBankAccount, Currency: "EUR"}); err != nil {
		t.Fatalf("SaveMoney failed: %v", err)
	}
	if err := repo.SaveIncome(ctx, &domain.Income{ID: 1, DeclarationID: 10, Type: domain.IncomeGift, Amount: ptr(150000.0)}); err != nil {
		t.Fatalf("SaveIncome failed: %v", err)
	}
	if err := repo.SaveTransaction(ctx, &domain.Transaction{ID: 1, DeclarationID: 10, Type: "purchase", Amount: ptr(42.5), Date: date(2019, time.July, 1)}); err != nil {
		t.Fatalf("SaveTransaction failed: %v", err)
	}

	t.Run("Money", func(t *testing.T) {
		got, err := repo.ListMoney(ctx, []int64{10, 11})
		if err != nil {
			t.Fatalf("ListMoney failed: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("expected 2 holdings, got %d", len(got))
		}
		if got[0].Amount == nil || *got[0].Amount != 1000 {
			t.Errorf("expected amount 1000, got %v", got[0].Amount)
		}
		if got[1].Amount != nil {
			t.Errorf("expected nil amount, got %v", *got[1].Amount)
		}
	})

	t.Run("Incomes", func(t *testing.T) {
		got, err := repo.ListIncomes(ctx, []int64{10})
		if err != nil {
			t.Fatalf("ListIncomes failed: %v", err)
		}
		if len(got) != 1 || got[0].Type != domain.IncomeGift {
			t.Errorf("expected one gift income, got %+v", got)
		}
	})

	t.Run("Transactions", func(t *testing.T) {
		got, err := repo.ListTransactions(ctx, []int64{10})
		if err != nil {
			t.Fatalf("ListTransactions failed: %v", err)
		}
		if len(got) != 1 || got[0].Date == nil || got[0].Date.Month() != time.July {
			t.Errorf("unexpected transactions: %+v", got)
		}
	})

	t.Run("Geography", func(t *testing.T) {
		if err := repo.SaveRegion(ctx, &domain.RatuRegion{ID: 1, Name: "Kyivska"}); err != nil {
			t.Fatalf("SaveRegion failed: %v", err)
		}
		for _, c := range []*domain.RatuCity{{ID: 100, RegionID: 1, Name: "Kyiv"}, {ID: 101, RegionID: 1, Name: "Irpin"}} {
			if err := repo.SaveCity(ctx, c); err != nil {
				t.Fatalf("SaveCity failed: %v", err)
			}
		}

		cities, err := repo.ListCities(ctx, []int64{100, 101, 999})
		if err != nil {
			t.Fatalf("ListCities failed: %v", err)
		}
		if len(cities) != 2 {
			t.Errorf("expected 2 cities, got %d", len(cities))
		}
		region, err := repo.GetRegion(ctx, 1)
		if err != nil || region.Name != "Kyivska" {
			t.Errorf("GetRegion = %v, %v", region, err)
		}
	})

	t.Run("ExchangeRates", func(t *testing.T) {
		if err := repo.SaveExchangeRate(ctx, &domain.ExchangeRate{Currency: "uah", Year: 2019, RateToUSD: 0.037}); err != nil {
			t.Fatalf("SaveExchangeRate failed: %v", err)
		}
		if err := repo.SaveExchangeRate(ctx, &domain.ExchangeRate{Currency: "UAH", Year: 2019, RateToUSD: 0.04}); err != nil {
			t.Fatalf("SaveExchangeRate failed: %v", err)
		}
		rate, err := repo.GetUSDRate(ctx, "UAH", 2019)
		if err != nil {
			t.Fatalf("GetUSDRate failed: %v", err)
		}
		if rate != 0.04 {
			t.Errorf("expected replaced rate 0.04, got %v", rate)
		}
	})
}

func TestUpsertScoring(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	first := &domain.PepScoring{
		DeclarationID: 10, PepID: 1, RuleID: "PEP03_home",
		Score: 0.4, Data: []byte(`{"property_id":1}`),
		CalculatedAt: time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
	}
	if err := repo.UpsertScoring(ctx, first); err != nil {
		t.Fatalf("UpsertScoring failed: %v", err)
	}

	second := *first
	second.Data = []byte(`{"property_id":2}`)
	second.CalculatedAt = time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC)
	if err := repo.UpsertScoring(ctx, &second); err != nil {
		t.Fatalf("UpsertScoring failed: %v", err)
	}

	got, err := repo.ListScorings(ctx, 10)
	if err != nil {
		t.Fatalf("ListScorings failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected exactly one row, got %d", len(got))
	}
	if !strings.Contains(string(got[0].Data), `"property_id":2`) {
		t.Errorf("expected latest data, got %s", got[0].Data)
	}
	if got[0].CalculatedAt.Month() != time.February {
		t.Errorf("expected latest timestamp, got %v", got[0].CalculatedAt)
	}

	t.Run("RequiresRuleID", func(t *testing.T) {
		err := repo.UpsertScoring(ctx, &domain.PepScoring{DeclarationID: 10, PepID: 1})
		if !errors.Is(err, ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got: %v", err)
		}
	})
}

func TestDeleteScoring(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	for _, rule := range []string{"PEP03_home", "PEP05_gifts"} {
		err := repo.UpsertScoring(ctx, &domain.PepScoring{DeclarationID: 10, PepID: 1, RuleID: rule, Score: 0.4})
		if err != nil {
			t.Fatalf("UpsertScoring failed: %v", err)
		}
	}

	if err := repo.DeleteScoring(ctx, 10, 1, "PEP03_home"); err != nil {
		t.Fatalf("DeleteScoring failed: %v", err)
	}
	got, err := repo.ListScorings(ctx, 10)
	if err != nil {
		t.Fatalf("ListScorings failed: %v", err)
	}
	if len(got) != 1 || got[0].RuleID != "PEP05_gifts" {
		t.Fatalf("expected only PEP05_gifts to remain, got %+v", got)
	}

	t.Run("MissingRow", func(t *testing.T) {
		if err := repo.DeleteScoring(ctx, 10, 1, "PEP03_home"); err != nil {
			t.Errorf("expected no error for a missing row, got: %v", err)
		}
	})

	t.Run("RequiresRuleID", func(t *testing.T) {
		if err := repo.DeleteScoring(ctx, 10, 1, ""); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got: %v", err)
		}
	})
}

func TestInMemory(t *testing.T) {
	repo, err := New(context.Background(), domain.RepositoryConfig{Driver: "sqlite", SQLitePath: ":memory:"})
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}
	defer repo.Close()

	if err := repo.SavePep(context.Background(), &domain.Pep{ID: 1, FullName: "A"}); err != nil {
		t.Fatalf("SavePep failed: %v", err)
	}
	if _, err := repo.GetPep(context.Background(), 1); err != nil {
		t.Errorf("expected pep to be visible on the same connection: %v", err)
	}
}

func TestUnsupportedDriver(t *testing.T) {
	cfg := domain.RepositoryConfig{
		Driver: "mysql",
	}

	_, err := New(context.Background(), cfg)
	if err == nil {
		t.Error("expected error for unsupported driver")
	}
}

func TestBuilderPlaceholders(t *testing.T) {
	tests := []struct {
		driver   string
		expected string
	}{
		{"postgres", "SELECT id FROM declarations WHERE pep_id = $1 AND year >= $2"},
		{"sqlite", "SELECT id FROM declarations WHERE pep_id = ? AND year >= ?"},
	}

	for _, tt := range tests {
		repo := &SQLRepository{driver: tt.driver}
		sql, _, err := repo.builder().Select("id").From(tableDeclarations).
			Where("pep_id = ?", 1).Where("year >= ?", 2015).ToSql()
		if err != nil {
			t.Fatalf("ToSql failed: %v", err)
		}
		if sql != tt.expected {
			t.Errorf("%s: got %q, want %q", tt.driver, sql, tt.expected)
		}
	}
}

func TestPostgresDSN(t *testing.T) {
	dsn := postgresDSN(domain.RepositoryConfig{PostgresUser: "pep"})
	for _, want := range []string{"host=localhost", "port=5432", "dbname=pepscore", "sslmode=disable", "user=pep"} {
		if !strings.Contains(dsn, want) {
			t.Errorf("dsn %q missing %q", dsn, want)
		}
	}
}
