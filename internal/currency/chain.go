package currency

import (
	"context"
	"errors"
)

// Chain is a RateSource that asks each source in turn and returns the
// first rate found.
type Chain []RateSource

// GetUSDRate implements RateSource. The error joins every source's failure.
func (c Chain) GetUSDRate(ctx context.Context, currency string, year int) (float64, error) {
	var errs []error
	for _, src := range c {
		rate, err := src.GetUSDRate(ctx, currency, year)
		if err == nil {
			return rate, nil
		}
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return 0, errors.New("no rate sources configured")
	}
	return 0, errors.Join(errs...)
}
