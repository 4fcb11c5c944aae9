// Package decision aggregates the fired rules of a declaration into a risk
// assessment.
package decision

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/opensource-finance/pepscore/internal/domain"
	"github.com/opensource-finance/pepscore/internal/scoring"
	"github.com/shopspring/decimal"
)

// DefaultAlertThreshold is the total weight at which a declaration is HIGH risk.
const DefaultAlertThreshold = 1.0

// Processor turns a scoring report into a risk assessment.
type Processor struct {
	// Total score at or above which an assessment is HIGH
	AlertThreshold float64
}

// NewProcessor creates a processor. A non-positive threshold selects the default.
func NewProcessor(threshold float64) *Processor {
	if threshold <= 0 {
		threshold = DefaultAlertThreshold
	}
	return &Processor{AlertThreshold: threshold}
}

// Process sums the weights of the fired rules and classifies the declaration.
// Weights are added as decimals so a total that should equal the threshold
// is not lost to float rounding.
func (p *Processor) Process(ctx context.Context, report *scoring.Report) *domain.RiskAssessment {
	start := time.Now()

	total := decimal.Zero
	categories := make(map[string]decimal.Decimal)
	reasons := make([]string, 0, len(report.Results))

	for _, r := range report.Results {
		w := decimal.NewFromFloat(r.Weight)
		total = total.Add(w)
		categories[r.Category] = categories[r.Category].Add(w)
		reasons = append(reasons, r.RuleID)
	}

	assessment := &domain.RiskAssessment{
		ID:            uuid.New().String(),
		DeclarationID: report.Declaration.ID,
		PepID:         report.Pep.ID,
		Year:          report.Declaration.Year,
		Score:         total.InexactFloat64(),
		Threshold:     p.AlertThreshold,
		Reasons:       reasons,
		Failures:      report.Failures,
		Timestamp:     time.Now().UTC(),
	}

	if len(categories) > 0 {
		assessment.Categories = make(map[string]float64, len(categories))
		for c, v := range categories {
			assessment.Categories[c] = v.InexactFloat64()
		}
	}

	if total.GreaterThanOrEqual(decimal.NewFromFloat(p.AlertThreshold)) {
		assessment.Status = domain.RiskHigh
	} else {
		assessment.Status = domain.RiskLow
	}

	assessment.Metadata = domain.AssessmentMetadata{
		TraceID:        report.TraceID,
		RulesEvaluated: report.Evaluated,
		RulesFired:     len(report.Results),
		RulesMs:        report.RulesMs,
		TotalMs:        report.TotalMs + time.Since(start).Milliseconds(),
		EngineVersion:  scoring.EngineVersion,
	}

	return assessment
}

// ShouldAlert reports whether the assessment warrants an alert.
func ShouldAlert(a *domain.RiskAssessment) bool {
	return a.Status == domain.RiskHigh
}
