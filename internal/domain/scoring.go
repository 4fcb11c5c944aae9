package domain

import (
	"encoding/json"
	"time"
)

// PepScoring is the persisted result of one rule for one declaration.
// (DeclarationID, PepID, RuleID) is unique; rescoring overwrites the row.
type PepScoring struct {
	DeclarationID int64           `json:"declarationId"`
	PepID         int64           `json:"pepId"`
	RuleID        string          `json:"ruleId"`
	Score         float64         `json:"score"`
	Data          json.RawMessage `json:"data"`
	CalculatedAt  time.Time       `json:"calculatedAt"`
}

// RuleResult is the in-memory outcome of one rule evaluation.
type RuleResult struct {
	RuleID    string  `json:"ruleId"`
	Category  string  `json:"category"`
	Weight    float64 `json:"weight"`
	Evidence  any     `json:"evidence,omitempty"`
	ProcessMs int64   `json:"processMs"`
}

// RuleFailure records a rule that could not be evaluated or persisted.
type RuleFailure struct {
	RuleID string `json:"ruleId"`
	Error  string `json:"error"`
}

// Risk statuses of an assessment.
const (
	RiskHigh = "HIGH"
	RiskLow  = "LOW"
)

// RiskAssessment aggregates the fired rules of one declaration.
type RiskAssessment struct {
	ID            string             `json:"id"`
	DeclarationID int64              `json:"declarationId"`
	PepID         int64              `json:"pepId"`
	Year          int                `json:"year"`
	Status        string             `json:"status"`
	Score         float64            `json:"score"`
	Threshold     float64            `json:"threshold"`
	Categories    map[string]float64 `json:"categories,omitempty"`
	Reasons       []string           `json:"reasons,omitempty"`
	Failures      []RuleFailure      `json:"failures,omitempty"`
	Timestamp     time.Time          `json:"timestamp"`
	Metadata      AssessmentMetadata `json:"metadata"`
}

// AssessmentMetadata contains processing information.
type AssessmentMetadata struct {
	TraceID        string `json:"traceId"`
	RulesEvaluated int    `json:"rulesEvaluated"`
	RulesFired     int    `json:"rulesFired"`
	RulesMs        int64  `json:"rulesMs"`
	TotalMs        int64  `json:"totalMs"`
	EngineVersion  string `json:"engineVersion"`
}
