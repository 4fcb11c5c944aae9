// Package currency converts declared amounts to USD using per-year rates.
package currency

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/opensource-finance/pepscore/internal/domain"
	"github.com/shopspring/decimal"
)

// USD is the common currency every amount is normalised to.
const USD = "USD"

// ErrUnsupportedCurrency is returned when no rate exists for a currency and year.
var ErrUnsupportedCurrency = errors.New("unsupported currency")

// Converter turns an amount of currency in a given year into USD.
type Converter interface {
	ToUSD(ctx context.Context, currency string, amount decimal.Decimal, year int) (decimal.Decimal, error)
}

// RateSource looks up how many USD one unit of currency was worth in year.
type RateSource interface {
	GetUSDRate(ctx context.Context, currency string, year int) (float64, error)
}

// Service converts amounts with rates from a RateSource, memoised in a cache.
type Service struct {
	source RateSource
	cache  domain.Cache
	ttl    time.Duration
}

// NewService creates a converter. cache may be nil; ttl <= 0 caches rates without expiry.
func NewService(source RateSource, cache domain.Cache, ttl time.Duration) *Service {
	return &Service{
		source: source,
		cache:  cache,
		ttl:    ttl,
	}
}

// ToUSD converts amount to USD. USD amounts are returned unchanged.
func (s *Service) ToUSD(ctx context.Context, currency string, amount decimal.Decimal, year int) (decimal.Decimal, error) {
	code := Normalize(currency)
	if code == "" {
		return decimal.Zero, fmt.Errorf("%w: empty currency code", ErrUnsupportedCurrency)
	}
	if code == USD || amount.IsZero() {
		return amount, nil
	}

	rate, err := s.rate(ctx, code, year)
	if err != nil {
		return decimal.Zero, err
	}
	return amount.Mul(rate), nil
}

func (s *Service) rate(ctx context.Context, code string, year int) (decimal.Decimal, error) {
	key := "rate:" + code + ":" + strconv.Itoa(year)

	if s.cache != nil {
		if raw, err := s.cache.Get(ctx, key); err != nil {
			slog.Debug("rate cache read failed", "key", key, "error", err)
		} else if raw != nil {
			if rate, err := decimal.NewFromString(string(raw)); err == nil {
				return rate, nil
			}
		}
	}

	f, err := s.source.GetUSDRate(ctx, code, year)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s in %d: %w", ErrUnsupportedCurrency, code, year, err)
	}
	if f <= 0 {
		return decimal.Zero, fmt.Errorf("%w: %s in %d has non-positive rate", ErrUnsupportedCurrency, code, year)
	}
	rate := decimal.NewFromFloat(f)

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, []byte(rate.String()), s.ttl); err != nil {
			slog.Debug("rate cache write failed", "key", key, "error", err)
		}
	}
	return rate, nil
}

// Normalize upper-cases and trims a currency code.
func Normalize(currency string) string {
	return strings.ToUpper(strings.TrimSpace(currency))
}
