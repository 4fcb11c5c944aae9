// Package scoring evaluates PEP asset declarations against a fixed catalogue
// of suspicion rules and persists the weighted results.
package scoring

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/opensource-finance/pepscore/internal/currency"
	"github.com/opensource-finance/pepscore/internal/domain"
)

// Contract violations. These indicate a rule implementation bug and are
// always surfaced to the caller.
var (
	ErrMissingRuleID   = errors.New("rule id is missing")
	ErrInvalidWeight   = errors.New("weight is not a finite number")
	ErrInvalidEvidence = errors.New("evidence does not match the rule schema")
	ErrNotCalculated   = errors.New("scoring has no non-zero calculated result")
	ErrNotCleared      = errors.New("scoring has no zero calculated result")
	ErrDuplicateRule   = errors.New("rule id registered twice")
)

// RuleID identifies a rule. Values are persisted and must stay stable.
type RuleID string

// Rule categories used for assessment subtotals.
const (
	CategoryUndisclosedValue = "undisclosed_value"
	CategoryResidence        = "residence"
	CategoryAssetGrowth      = "asset_growth"
	CategoryThreshold        = "threshold"
)

// Rule is one suspicion heuristic.
//
// Calculate must be read-only and return (0, nil, nil) when its condition does
// not hold. A non-zero weight must come with evidence of the same type as
// Evidence() that satisfies its validate tags.
type Rule interface {
	ID() RuleID
	Category() string
	Weight() float64
	Evidence() any
	Calculate(ctx context.Context, in *Input) (float64, any, error)
}

// Deps are the collaborators a rule runs against.
type Deps struct {
	Store     domain.DeclarationStore
	Scorings  domain.ScoringStore
	Converter currency.Converter
}

var validate = validator.New()

// Scoring is a rule bound to one declaration.
type Scoring struct {
	rule Rule
	in   *Input
	sink domain.ScoringStore

	weight     float64
	evidence   any
	calculated bool
}

// NewScoring binds rule to decl, loading the declaring PEP from deps.Store.
func NewScoring(ctx context.Context, rule Rule, deps Deps, decl *domain.Declaration) (*Scoring, error) {
	if decl == nil {
		return nil, errors.New("declaration is required")
	}
	if rule == nil || rule.ID() == "" {
		return nil, ErrMissingRuleID
	}
	pep, err := deps.Store.GetPep(ctx, decl.PepID)
	if err != nil {
		return nil, fmt.Errorf("load pep %d: %w", decl.PepID, err)
	}
	return bind(rule, NewInput(decl, pep, deps), deps.Scorings)
}

func bind(rule Rule, in *Input, sink domain.ScoringStore) (*Scoring, error) {
	if rule == nil || rule.ID() == "" {
		return nil, ErrMissingRuleID
	}
	return &Scoring{rule: rule, in: in, sink: sink}, nil
}

// Rule returns the bound rule.
func (s *Scoring) Rule() Rule { return s.rule }

// Weight returns the last validated weight.
func (s *Scoring) Weight() float64 { return s.weight }

// Evidence returns the last validated evidence, nil when the weight is zero.
func (s *Scoring) Evidence() any { return s.evidence }

// CalculateWeight runs the rule without validating or storing its output.
func (s *Scoring) CalculateWeight(ctx context.Context) (float64, any, error) {
	return s.rule.Calculate(ctx, s.in)
}

// CalculateWithValidation runs the rule, checks the result against the rule
// contract and keeps it for SaveToDB.
func (s *Scoring) CalculateWithValidation(ctx context.Context) (float64, any, error) {
	weight, evidence, err := s.CalculateWeight(ctx)
	if err != nil {
		return 0, nil, fmt.Errorf("rule %s: %w", s.rule.ID(), err)
	}
	if math.IsNaN(weight) || math.IsInf(weight, 0) {
		return 0, nil, fmt.Errorf("rule %s: %w: %v", s.rule.ID(), ErrInvalidWeight, weight)
	}
	if weight == 0 {
		evidence = nil
	} else if err := validateEvidence(s.rule, evidence); err != nil {
		return 0, nil, fmt.Errorf("rule %s: %w", s.rule.ID(), err)
	}

	s.weight = weight
	s.evidence = evidence
	s.calculated = true
	return weight, evidence, nil
}

// SaveToDB upserts the validated result keyed by (declaration, pep, rule).
func (s *Scoring) SaveToDB(ctx context.Context) error {
	if !s.calculated || s.weight == 0 {
		return fmt.Errorf("rule %s: %w", s.rule.ID(), ErrNotCalculated)
	}
	if s.sink == nil {
		return errors.New("scoring store is not configured")
	}

	data, err := json.Marshal(s.evidence)
	if err != nil {
		return fmt.Errorf("rule %s: marshal evidence: %w", s.rule.ID(), err)
	}

	return s.sink.UpsertScoring(ctx, &domain.PepScoring{
		DeclarationID: s.in.Declaration.ID,
		PepID:         s.in.Pep.ID,
		RuleID:        string(s.rule.ID()),
		Score:         s.weight,
		Data:          data,
		CalculatedAt:  time.Now().UTC(),
	})
}

// ClearFromDB removes a stored result for a rule that calculated to zero,
// so a rerun leaves no row from an earlier firing.
func (s *Scoring) ClearFromDB(ctx context.Context) error {
	if !s.calculated || s.weight != 0 {
		return fmt.Errorf("rule %s: %w", s.rule.ID(), ErrNotCleared)
	}
	if s.sink == nil {
		return errors.New("scoring store is not configured")
	}
	return s.sink.DeleteScoring(ctx, s.in.Declaration.ID, s.in.Pep.ID, string(s.rule.ID()))
}

// validateEvidence checks that evidence has the rule's declared type and
// satisfies its struct constraints.
func validateEvidence(rule Rule, evidence any) error {
	if evidence == nil {
		return fmt.Errorf("%w: evidence is required for a non-zero weight", ErrInvalidEvidence)
	}
	want := reflect.TypeOf(rule.Evidence())
	got := reflect.TypeOf(evidence)
	if got != want {
		return fmt.Errorf("%w: got %v, want %v", ErrInvalidEvidence, got, want)
	}
	if err := validate.Struct(evidence); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidEvidence, err)
	}
	return nil
}
