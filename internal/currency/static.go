package currency

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/shopspring/decimal"
)

// defaultRates maps "CODE/YEAR" to the annual average USD value of one unit.
var defaultRates = map[string]string{
	"UAH/2013": "0.1251",
	"UAH/2014": "0.0842",
	"UAH/2015": "0.0458",
	"UAH/2016": "0.0391",
	"UAH/2017": "0.0376",
	"UAH/2018": "0.0368",
	"UAH/2019": "0.0387",
	"UAH/2020": "0.0371",
	"UAH/2021": "0.0366",
	"UAH/2022": "0.0309",
	"UAH/2023": "0.0273",
	"UAH/2024": "0.0249",
	"EUR/2013": "1.3281",
	"EUR/2014": "1.3285",
	"EUR/2015": "1.1095",
	"EUR/2016": "1.1069",
	"EUR/2017": "1.1297",
	"EUR/2018": "1.1810",
	"EUR/2019": "1.1195",
	"EUR/2020": "1.1422",
	"EUR/2021": "1.1827",
	"EUR/2022": "1.0530",
	"EUR/2023": "1.0813",
	"EUR/2024": "1.0824",
}

// StaticRates is an in-memory RateSource with hardcoded annual rates.
// It is intended for development, testing, and benchmarks.
type StaticRates struct {
	mu    sync.RWMutex
	rates map[string]decimal.Decimal
	calls int
}

// NewStaticRates creates a source preloaded with the default UAH and EUR rates.
func NewStaticRates() *StaticRates {
	s := &StaticRates{rates: make(map[string]decimal.Decimal, len(defaultRates))}
	for k, v := range defaultRates {
		s.rates[k] = decimal.RequireFromString(v)
	}
	return s
}

// Set overrides the rate of currency in year.
func (s *StaticRates) Set(currency string, year int, rate decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rates[staticKey(currency, year)] = rate
}

// GetUSDRate implements RateSource.
func (s *StaticRates) GetUSDRate(_ context.Context, currency string, year int) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++

	key := staticKey(currency, year)
	rate, ok := s.rates[key]
	if !ok {
		return 0, fmt.Errorf("no static rate available for %s", key)
	}
	return rate.InexactFloat64(), nil
}

// Calls returns how many lookups reached the source.
func (s *StaticRates) Calls() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.calls
}

func staticKey(currency string, year int) string {
	return Normalize(currency) + "/" + strconv.Itoa(year)
}
