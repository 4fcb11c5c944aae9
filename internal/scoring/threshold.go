package scoring

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/opensource-finance/pepscore/internal/domain"
	"github.com/shopspring/decimal"
)

// declaredCars returns the cars listed on the scored declaration.
func declaredCars(ctx context.Context, in *Input) ([]*domain.Vehicle, error) {
	vehicles, err := in.Store.ListVehicles(ctx, []int64{in.Declaration.ID})
	if err != nil {
		return nil, fmt.Errorf("list vehicles: %w", err)
	}
	var cars []*domain.Vehicle
	for _, v := range vehicles {
		if v.Type == domain.VehicleCar {
			cars = append(cars, v)
		}
	}
	return cars, nil
}

func declaredIncomes(ctx context.Context, in *Input) ([]*domain.Income, error) {
	incomes, err := in.Store.ListIncomes(ctx, []int64{in.Declaration.ID})
	if err != nil {
		return nil, fmt.Errorf("list incomes: %w", err)
	}
	return incomes, nil
}

type newCarsRule struct {
	ruleInfo
}

func (r *newCarsRule) Evidence() any { return NewCarEvidence{} }

func (r *newCarsRule) Calculate(ctx context.Context, in *Input) (float64, any, error) {
	cars, err := declaredCars(ctx, in)
	if err != nil {
		return 0, nil, err
	}
	for _, car := range cars {
		if car.ProductionYear > 0 && in.Declaration.Year-car.ProductionYear <= NewCarMaxAge {
			return r.weight, NewCarEvidence{
				VehicleID:      car.ID,
				ProductionYear: car.ProductionYear,
			}, nil
		}
	}
	return 0, nil, nil
}

type luxuryCarsRule struct {
	ruleInfo
}

func (r *luxuryCarsRule) Evidence() any { return LuxuryCarEvidence{} }

func (r *luxuryCarsRule) Calculate(ctx context.Context, in *Input) (float64, any, error) {
	cars, err := declaredCars(ctx, in)
	if err != nil {
		return 0, nil, err
	}
	for _, car := range cars {
		if car.IsLuxury {
			return r.weight, LuxuryCarEvidence{
				VehicleID: car.ID,
				Brand:     car.Brand,
				Model:     car.Model,
			}, nil
		}
	}
	return 0, nil, nil
}

type manyCarsRule struct {
	ruleInfo
	predicate *Predicate
}

func (r *manyCarsRule) Evidence() any { return CarsCountEvidence{} }

func (r *manyCarsRule) Calculate(ctx context.Context, in *Input) (float64, any, error) {
	cars, err := declaredCars(ctx, in)
	if err != nil {
		return 0, nil, err
	}
	matched, err := r.predicate.Eval(map[string]any{"cars": float64(len(cars))})
	if err != nil || !matched {
		return 0, nil, err
	}
	return r.weight, CarsCountEvidence{CarsCount: len(cars)}, nil
}

// costlyPresentsRule compares the nominal national-currency total of gifts
// received in the declaration year.
type costlyPresentsRule struct {
	ruleInfo
	predicate *Predicate
}

func (r *costlyPresentsRule) Evidence() any { return GiftsEvidence{} }

func (r *costlyPresentsRule) Calculate(ctx context.Context, in *Input) (float64, any, error) {
	incomes, err := declaredIncomes(ctx, in)
	if err != nil {
		return 0, nil, err
	}
	var gifts []*float64
	for _, i := range incomes {
		if i.Type == domain.IncomeGift {
			gifts = append(gifts, i.Amount)
		}
	}
	total := sumAmounts(gifts...).InexactFloat64()

	matched, err := r.predicate.Eval(map[string]any{"gifts": total})
	if err != nil || !matched {
		return 0, nil, err
	}
	return r.weight, GiftsEvidence{PresentsPrice: total}, nil
}

// bigExpendituresRule fires when the year's expenditures exceed income plus
// declared money, all in USD.
type bigExpendituresRule struct {
	ruleInfo
	predicate *Predicate
}

func (r *bigExpendituresRule) Evidence() any { return ExpendituresEvidence{} }

func (r *bigExpendituresRule) Calculate(ctx context.Context, in *Input) (float64, any, error) {
	ids := []int64{in.Declaration.ID}
	year := in.Declaration.Year

	transactions, err := in.Store.ListTransactions(ctx, ids)
	if err != nil {
		return 0, nil, fmt.Errorf("list transactions: %w", err)
	}
	incomes, err := declaredIncomes(ctx, in)
	if err != nil {
		return 0, nil, err
	}
	money, err := in.Store.ListMoney(ctx, ids)
	if err != nil {
		return 0, nil, fmt.Errorf("list money: %w", err)
	}

	spent, earned, held := amounts{}, amounts{}, amounts{}
	for _, t := range transactions {
		spent.add(domain.NationalCurrency, t.Amount)
	}
	for _, i := range incomes {
		earned.add(domain.NationalCurrency, i.Amount)
	}
	for _, m := range money {
		held.add(m.Currency, m.Amount)
	}

	ev := ExpendituresEvidence{
		Expenditures: usd(spent.toUSD(ctx, in.Converter, year)),
		Income:       usd(earned.toUSD(ctx, in.Converter, year)),
		Money:        usd(held.toUSD(ctx, in.Converter, year)),
	}
	matched, err := r.predicate.Eval(map[string]any{
		"expenditures": ev.Expenditures,
		"income":       ev.Income,
		"money":        ev.Money,
	})
	if err != nil || !matched {
		return 0, nil, err
	}
	return r.weight, ev, nil
}

// cashTotalRule compares declared cash in USD with the national-currency
// threshold converted at the declaration year's rate.
type cashTotalRule struct {
	ruleInfo
	predicate *Predicate
}

func (r *cashTotalRule) Evidence() any { return CashEvidence{} }

func (r *cashTotalRule) Calculate(ctx context.Context, in *Input) (float64, any, error) {
	year := in.Declaration.Year

	threshold, err := in.Converter.ToUSD(ctx, domain.NationalCurrency, decimal.NewFromFloat(CashThresholdUAH), year)
	if err != nil {
		slog.Warn("cash threshold unavailable",
			"declaration_id", in.Declaration.ID,
			"year", year,
			"error", err,
		)
		return 0, nil, nil
	}

	money, err := in.Store.ListMoney(ctx, []int64{in.Declaration.ID})
	if err != nil {
		return 0, nil, fmt.Errorf("list money: %w", err)
	}
	cash := amounts{}
	for _, m := range money {
		if m.Type == domain.MoneyCash {
			cash.add(m.Currency, m.Amount)
		}
	}

	ev := CashEvidence{
		CashUSD:      usd(cash.toUSD(ctx, in.Converter, year)),
		ThresholdUSD: usd(threshold),
	}
	matched, err := r.predicate.Eval(map[string]any{
		"cash":      ev.CashUSD,
		"threshold": ev.ThresholdUSD,
	})
	if err != nil || !matched {
		return 0, nil, err
	}
	return r.weight, ev, nil
}

// spouseLabels are relationship types that denote a spouse.
var spouseLabels = map[string]bool{
	"wife":    true,
	"husband": true,
	"spouse":  true,
	"дружина": true,
	"чоловік": true,
}

// spouseNotDeclaredRule fires when the registry links the PEP to a spouse but
// the declaration states there is none.
type spouseNotDeclaredRule struct {
	ruleInfo
}

func (r *spouseNotDeclaredRule) Evidence() any { return SpouseEvidence{} }

func (r *spouseNotDeclaredRule) Calculate(ctx context.Context, in *Input) (float64, any, error) {
	if in.Declaration.SpouseDeclared {
		return 0, nil, nil
	}

	links, err := in.Store.ListRelatedPersonsLinks(ctx, in.Pep.ID, domain.RelationshipFamily)
	if err != nil {
		return 0, nil, fmt.Errorf("list family links: %w", err)
	}
	for _, l := range links {
		label := strings.ToLower(strings.TrimSpace(l.RelationshipType))
		if spouseLabels[label] {
			return r.weight, SpouseEvidence{
				SpouseID:         l.Other(in.Pep.ID),
				RelationshipType: l.RelationshipType,
			}, nil
		}
	}
	return 0, nil, nil
}

// veryCreativeRule fires when creative and part-time work make up a large
// share of total income.
type veryCreativeRule struct {
	ruleInfo
	predicate *Predicate
}

func (r *veryCreativeRule) Evidence() any { return CreativeEvidence{} }

func (r *veryCreativeRule) Calculate(ctx context.Context, in *Input) (float64, any, error) {
	incomes, err := declaredIncomes(ctx, in)
	if err != nil {
		return 0, nil, err
	}

	var creative, total []*float64
	for _, i := range incomes {
		total = append(total, i.Amount)
		if i.Type == domain.IncomeCreative || i.Type == domain.IncomePartTime {
			creative = append(creative, i.Amount)
		}
	}
	creativeSum := sumAmounts(creative...)
	totalSum := sumAmounts(total...)

	matched, err := r.predicate.Eval(map[string]any{
		"creative": creativeSum.InexactFloat64(),
		"total":    totalSum.InexactFloat64(),
	})
	if err != nil || !matched {
		return 0, nil, err
	}
	return r.weight, CreativeEvidence{
		CreativeIncome: creativeSum.InexactFloat64(),
		TotalIncome:    totalSum.InexactFloat64(),
		Share:          creativeSum.Div(totalSum).Round(4).InexactFloat64(),
	}, nil
}
