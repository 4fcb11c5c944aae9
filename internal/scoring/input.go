package scoring

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/opensource-finance/pepscore/internal/currency"
	"github.com/opensource-finance/pepscore/internal/domain"
	"github.com/shopspring/decimal"
)

// Input is the read-only state every rule of one declaration evaluates.
// Derived data is loaded once and shared between rules running in parallel.
type Input struct {
	Declaration *domain.Declaration
	Pep         *domain.Pep
	Store       domain.DeclarationStore
	Converter   currency.Converter

	familyOnce sync.Once
	family     []int64
	familyErr  error

	historyOnce sync.Once
	history     []YearSnapshot
	historyErr  error
}

// NewInput creates the rule input for decl declared by pep.
func NewInput(decl *domain.Declaration, pep *domain.Pep, deps Deps) *Input {
	return &Input{
		Declaration: decl,
		Pep:         pep,
		Store:       deps.Store,
		Converter:   deps.Converter,
	}
}

// FamilyIDs returns the PEP id plus every person linked to the PEP through a
// family relationship, in either direction, sorted.
func (in *Input) FamilyIDs(ctx context.Context) ([]int64, error) {
	in.familyOnce.Do(func() {
		links, err := in.Store.ListRelatedPersonsLinks(ctx, in.Pep.ID, domain.RelationshipFamily)
		if err != nil {
			in.familyErr = fmt.Errorf("list family links: %w", err)
			return
		}
		ids := []int64{in.Pep.ID}
		for _, l := range links {
			ids = append(ids, l.Other(in.Pep.ID))
		}
		slices.Sort(ids)
		in.family = slices.Compact(ids)
	})
	return in.family, in.familyErr
}

// YearSnapshot holds one declaration year's totals in USD.
type YearSnapshot struct {
	Year         int
	Money        decimal.Decimal
	Vehicles     decimal.Decimal
	Income       decimal.Decimal
	Expenditures decimal.Decimal
}

// Assets is the growth base: vehicle valuations plus money holdings.
func (s YearSnapshot) Assets() decimal.Decimal {
	return s.Vehicles.Add(s.Money)
}

// History returns one snapshot per distinct declaration year of the PEP up to
// and including the scored declaration's year, in ascending year order.
// Several declarations filed for the same year are summed.
func (in *Input) History(ctx context.Context) ([]YearSnapshot, error) {
	in.historyOnce.Do(func() {
		in.history, in.historyErr = in.loadHistory(ctx)
	})
	return in.history, in.historyErr
}

func (in *Input) loadHistory(ctx context.Context) ([]YearSnapshot, error) {
	decls, err := in.Store.ListDeclarationsByPep(ctx, in.Pep.ID)
	if err != nil {
		return nil, fmt.Errorf("list declarations: %w", err)
	}

	yearOf := make(map[int64]int)
	var ids []int64
	for _, d := range decls {
		if d.Year > in.Declaration.Year {
			continue
		}
		yearOf[d.ID] = d.Year
		ids = append(ids, d.ID)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	money, err := in.Store.ListMoney(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("list money: %w", err)
	}
	vehicles, err := in.Store.ListVehicles(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("list vehicles: %w", err)
	}
	incomes, err := in.Store.ListIncomes(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("list incomes: %w", err)
	}
	transactions, err := in.Store.ListTransactions(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}

	type yearTotals struct {
		money        amounts
		vehicles     amounts
		income       amounts
		expenditures amounts
	}
	totals := make(map[int]*yearTotals)
	at := func(declID int64) *yearTotals {
		y := yearOf[declID]
		t, ok := totals[y]
		if !ok {
			t = &yearTotals{money: amounts{}, vehicles: amounts{}, income: amounts{}, expenditures: amounts{}}
			totals[y] = t
		}
		return t
	}

	for _, id := range ids {
		at(id)
	}
	for _, m := range money {
		at(m.DeclarationID).money.add(m.Currency, m.Amount)
	}
	for _, v := range vehicles {
		at(v.DeclarationID).vehicles.add(domain.NationalCurrency, v.Valuation)
	}
	for _, i := range incomes {
		at(i.DeclarationID).income.add(domain.NationalCurrency, i.Amount)
	}
	for _, t := range transactions {
		at(t.DeclarationID).expenditures.add(domain.NationalCurrency, t.Amount)
	}

	years := make([]int, 0, len(totals))
	for y := range totals {
		years = append(years, y)
	}
	slices.Sort(years)

	history := make([]YearSnapshot, 0, len(years))
	for _, y := range years {
		t := totals[y]
		history = append(history, YearSnapshot{
			Year:         y,
			Money:        t.money.toUSD(ctx, in.Converter, y),
			Vehicles:     t.vehicles.toUSD(ctx, in.Converter, y),
			Income:       t.income.toUSD(ctx, in.Converter, y),
			Expenditures: t.expenditures.toUSD(ctx, in.Converter, y),
		})
	}
	return history, nil
}

// amounts accumulates values per currency so each currency is converted once.
type amounts map[string]decimal.Decimal

func (a amounts) add(code string, v *float64) {
	if !declared(v) {
		return
	}
	code = currency.Normalize(code)
	a[code] = a[code].Add(decimal.NewFromFloat(*v))
}

// toUSD converts every currency total and sums them. A currency that cannot
// be converted contributes zero.
func (a amounts) toUSD(ctx context.Context, conv currency.Converter, year int) decimal.Decimal {
	codes := make([]string, 0, len(a))
	for code := range a {
		codes = append(codes, code)
	}
	slices.Sort(codes)

	total := decimal.Zero
	for _, code := range codes {
		usd, err := conv.ToUSD(ctx, code, a[code], year)
		if err != nil {
			slog.Warn("currency conversion failed",
				"currency", code,
				"year", year,
				"error", err,
			)
			continue
		}
		total = total.Add(usd)
	}
	return total
}

// sumAmounts totals nullable national-currency amounts.
func sumAmounts(values ...*float64) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		if declared(v) {
			total = total.Add(decimal.NewFromFloat(*v))
		}
	}
	return total
}

// declared reports whether v is a usable amount. Missing and negative
// amounts (declared losses) are left out of every total.
func declared(v *float64) bool {
	return v != nil && *v >= 0
}

// usd rounds a USD total to cents for evidence.
func usd(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}
