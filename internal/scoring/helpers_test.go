package scoring

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/opensource-finance/pepscore/internal/currency"
	"github.com/opensource-finance/pepscore/internal/domain"
	"github.com/opensource-finance/pepscore/internal/repository"
)

// fixture is a sqlite-backed registry the rules can be run against.
type fixture struct {
	t    *testing.T
	ctx  context.Context
	repo *repository.SQLRepository
	deps Deps
	id   int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	repo, err := repository.New(context.Background(), domain.RepositoryConfig{
		Driver:     "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "scoring-test.db"),
	})
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	return &fixture{
		t:    t,
		ctx:  context.Background(),
		repo: repo,
		deps: Deps{
			Store:     repo,
			Scorings:  repo,
			Converter: currency.NewService(currency.NewStaticRates(), nil, 0),
		},
		id: 1000,
	}
}

func (f *fixture) nextID() int64 {
	f.id++
	return f.id
}

func (f *fixture) check(err error) {
	f.t.Helper()
	if err != nil {
		f.t.Fatalf("fixture setup failed: %v", err)
	}
}

func (f *fixture) pep(id int64) {
	f.t.Helper()
	f.check(f.repo.SavePep(f.ctx, &domain.Pep{ID: id, FullName: "Person"}))
}

func (f *fixture) link(from, to int64, category, kind string) {
	f.t.Helper()
	f.check(f.repo.SaveRelatedPersonsLink(f.ctx, &domain.RelatedPersonsLink{
		ID:               f.nextID(),
		FromPersonID:     from,
		ToPersonID:       to,
		Category:         category,
		RelationshipType: kind,
	}))
}

func (f *fixture) declaration(id, pepID int64, year int, city *int64) *domain.Declaration {
	f.t.Helper()
	decl := &domain.Declaration{ID: id, PepID: pepID, Year: year, CityOfResidenceID: city}
	f.check(f.repo.SaveDeclaration(f.ctx, decl))
	return decl
}

func (f *fixture) property(declID int64, typ domain.PropertyType, city *int64, valuation *float64) int64 {
	f.t.Helper()
	id := f.nextID()
	f.check(f.repo.SaveProperty(f.ctx, &domain.Property{
		ID:            id,
		DeclarationID: declID,
		Type:          typ,
		CityID:        city,
		Valuation:     valuation,
	}))
	return id
}

func (f *fixture) propertyRight(propertyID, pepID int64, acquired *time.Time) {
	f.t.Helper()
	f.check(f.repo.SavePropertyRight(f.ctx, &domain.PropertyRight{
		ID:              f.nextID(),
		PropertyID:      propertyID,
		PepID:           pepID,
		AcquisitionDate: acquired,
	}))
}

func (f *fixture) vehicle(declID int64, v domain.Vehicle) int64 {
	f.t.Helper()
	v.ID = f.nextID()
	v.DeclarationID = declID
	f.check(f.repo.SaveVehicle(f.ctx, &v))
	return v.ID
}

func (f *fixture) vehicleRight(vehicleID, pepID int64, acquired *time.Time) {
	f.t.Helper()
	f.check(f.repo.SaveVehicleRight(f.ctx, &domain.VehicleRight{
		ID:              f.nextID(),
		VehicleID:       vehicleID,
		PepID:           pepID,
		AcquisitionDate: acquired,
	}))
}

func (f *fixture) money(declID int64, typ domain.MoneyType, amount float64, code string) {
	f.t.Helper()
	f.check(f.repo.SaveMoney(f.ctx, &domain.Money{
		ID:            f.nextID(),
		DeclarationID: declID,
		Type:          typ,
		Amount:        &amount,
		Currency:      code,
	}))
}

func (f *fixture) income(declID int64, typ domain.IncomeType, amount float64) {
	f.t.Helper()
	f.check(f.repo.SaveIncome(f.ctx, &domain.Income{
		ID:            f.nextID(),
		DeclarationID: declID,
		Type:          typ,
		Amount:        &amount,
	}))
}

func (f *fixture) expenditure(declID int64, amount float64) {
	f.t.Helper()
	f.check(f.repo.SaveTransaction(f.ctx, &domain.Transaction{
		ID:            f.nextID(),
		DeclarationID: declID,
		Type:          "purchase",
		Amount:        &amount,
	}))
}

func (f *fixture) geography() {
	f.t.Helper()
	f.check(f.repo.SaveRegion(f.ctx, &domain.RatuRegion{ID: 1, Name: "Kyivska"}))
	f.check(f.repo.SaveRegion(f.ctx, &domain.RatuRegion{ID: 2, Name: "Lvivska"}))
	f.check(f.repo.SaveCity(f.ctx, &domain.RatuCity{ID: 100, RegionID: 1, Name: "Kyiv"}))
	f.check(f.repo.SaveCity(f.ctx, &domain.RatuCity{ID: 101, RegionID: 1, Name: "Bila Tserkva"}))
	f.check(f.repo.SaveCity(f.ctx, &domain.RatuCity{ID: 200, RegionID: 2, Name: "Lviv"}))
}

// calculate runs one built-in rule with validation against declarationID.
func (f *fixture) calculate(id RuleID, declarationID int64) (float64, any) {
	f.t.Helper()
	weight, evidence, err := f.tryCalculate(id, declarationID)
	if err != nil {
		f.t.Fatalf("%s: %v", id, err)
	}
	return weight, evidence
}

func (f *fixture) tryCalculate(id RuleID, declarationID int64) (float64, any, error) {
	f.t.Helper()
	rule, ok := DefaultRegistry().Get(id)
	if !ok {
		f.t.Fatalf("rule %s is not registered", id)
	}
	decl, err := f.repo.GetDeclaration(f.ctx, declarationID)
	f.check(err)

	s, err := NewScoring(f.ctx, rule, f.deps, decl)
	f.check(err)
	return s.CalculateWithValidation(f.ctx)
}

func ptr[T any](v T) *T { return &v }

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}
