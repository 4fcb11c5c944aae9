package scoring

import (
	"context"

	"github.com/shopspring/decimal"
)

var growthVars = []string{"prev", "curr", "income"}

// growthRule compares a yearly measure between adjacent declaration years and
// fires on the first pair, in ascending order, that matches its predicate.
type growthRule struct {
	ruleInfo
	measure   func(YearSnapshot) decimal.Decimal
	predicate *Predicate

	// withIncome reports the later year's income in the evidence.
	withIncome bool
}

func (r *growthRule) Evidence() any { return GrowthEvidence{} }

func (r *growthRule) Calculate(ctx context.Context, in *Input) (float64, any, error) {
	history, err := in.History(ctx)
	if err != nil {
		return 0, nil, err
	}
	if len(history) < 2 {
		return 0, nil, nil
	}

	for i := 1; i < len(history); i++ {
		prev, curr := history[i-1], history[i]
		income := usd(curr.Income)

		matched, err := r.predicate.Eval(map[string]any{
			"prev":   usd(r.measure(prev)),
			"curr":   usd(r.measure(curr)),
			"income": income,
		})
		if err != nil {
			return 0, nil, err
		}
		if !matched {
			continue
		}

		ev := GrowthEvidence{
			OldSum: usd(r.measure(prev)),
			NewSum: usd(r.measure(curr)),
			Year:   curr.Year,
		}
		if r.withIncome {
			ev.Income = &income
		}
		return r.weight, ev, nil
	}
	return 0, nil, nil
}
