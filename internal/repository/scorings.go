package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/opensource-finance/pepscore/internal/domain"
)

var scoringKey = []string{"declaration_id", "pep_id", "rule_id"}

// UpsertScoring creates or replaces the result of one rule for one declaration.
func (r *SQLRepository) UpsertScoring(ctx context.Context, s *domain.PepScoring) error {
	if s.RuleID == "" {
		return fmt.Errorf("%w: rule id is required", ErrInvalidInput)
	}
	if s.DeclarationID <= 0 || s.PepID <= 0 {
		return fmt.Errorf("%w: scoring needs a declaration and a pep", ErrInvalidInput)
	}

	data := string(s.Data)
	if data == "" {
		data = "{}"
	}
	calculatedAt := s.CalculatedAt
	if calculatedAt.IsZero() {
		calculatedAt = time.Now()
	}

	return r.upsert(ctx, tablePepScorings, scoringKey,
		[]string{"declaration_id", "pep_id", "rule_id", "score", "data", "calculated_at"},
		s.DeclarationID, s.PepID, s.RuleID, s.Score, data, calculatedAt.UTC(),
	)
}

// DeleteScoring removes the stored result of one rule for one declaration.
// Deleting a row that does not exist is not an error.
func (r *SQLRepository) DeleteScoring(ctx context.Context, declarationID, pepID int64, ruleID string) error {
	if ruleID == "" {
		return fmt.Errorf("%w: rule id is required", ErrInvalidInput)
	}
	q := r.builder().Delete(tablePepScorings).Where(squirrel.Eq{
		"declaration_id": declarationID,
		"pep_id":         pepID,
		"rule_id":        ruleID,
	})
	if err := r.exec(ctx, q); err != nil {
		return fmt.Errorf("delete %s: %w", tablePepScorings, err)
	}
	return nil
}

// ListScorings returns the stored results of a declaration ordered by rule id.
func (r *SQLRepository) ListScorings(ctx context.Context, declarationID int64) ([]*domain.PepScoring, error) {
	q := r.builder().
		Select("declaration_id", "pep_id", "rule_id", "score", "data", "calculated_at").
		From(tablePepScorings).
		Where(squirrel.Eq{"declaration_id": declarationID}).
		OrderBy("rule_id")

	rows, err := r.query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var scorings []*domain.PepScoring
	for rows.Next() {
		var s domain.PepScoring
		var data string
		if err := rows.Scan(&s.DeclarationID, &s.PepID, &s.RuleID, &s.Score, &data, &s.CalculatedAt); err != nil {
			return nil, err
		}
		s.Data = []byte(data)
		s.CalculatedAt = s.CalculatedAt.UTC()
		scorings = append(scorings, &s)
	}
	return scorings, rows.Err()
}

// SaveExchangeRate creates or replaces the USD rate of a currency for a year.
func (r *SQLRepository) SaveExchangeRate(ctx context.Context, rate *domain.ExchangeRate) error {
	if rate.Currency == "" || rate.Year <= 0 {
		return fmt.Errorf("%w: exchange rate needs a currency and a year", ErrInvalidInput)
	}
	if rate.RateToUSD <= 0 {
		return fmt.Errorf("%w: exchange rate must be positive", ErrInvalidInput)
	}
	return r.upsert(ctx, tableExchangeRates, []string{"currency", "year"},
		[]string{"currency", "year", "rate_to_usd"},
		strings.ToUpper(rate.Currency), rate.Year, rate.RateToUSD,
	)
}

// GetUSDRate returns how many USD one unit of currency was worth in year.
// Returns ErrNotFound if no rate is stored for the pair.
func (r *SQLRepository) GetUSDRate(ctx context.Context, currency string, year int) (float64, error) {
	q := r.builder().Select("rate_to_usd").
		From(tableExchangeRates).
		Where(squirrel.Eq{"currency": strings.ToUpper(currency), "year": year})

	var rate float64
	if err := r.queryRow(ctx, q, &rate); err != nil {
		return 0, err
	}
	return rate, nil
}
