// Package worker scores declarations submitted over the event bus.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/opensource-finance/pepscore/internal/decision"
	"github.com/opensource-finance/pepscore/internal/domain"
	"github.com/opensource-finance/pepscore/internal/metrics"
	"github.com/opensource-finance/pepscore/internal/scoring"
)

// Scorer scores one declaration.
type Scorer interface {
	ScoreDeclaration(ctx context.Context, declarationID int64) (*scoring.Report, error)
}

// Worker consumes declaration.submitted messages, scores each declaration and
// publishes the resulting assessment.
type Worker struct {
	bus       domain.EventBus
	scorer    Scorer
	processor *decision.Processor
	metrics   *metrics.Metrics

	mu            sync.Mutex
	subscriptions []domain.Subscription
	ctx           context.Context
	cancel        context.CancelFunc
}

// NewWorker creates a worker. m may be nil.
func NewWorker(bus domain.EventBus, scorer Scorer, processor *decision.Processor, m *metrics.Metrics) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		bus:       bus,
		scorer:    scorer,
		processor: processor,
		metrics:   m,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// DeclarationMessage is the payload of a declaration.submitted message.
type DeclarationMessage struct {
	DeclarationID int64  `json:"declarationId"`
	TraceID       string `json:"traceId,omitempty"`
}

// Submit publishes a declaration for asynchronous scoring.
func Submit(ctx context.Context, bus domain.EventBus, declarationID int64, traceID string) error {
	payload, err := json.Marshal(DeclarationMessage{DeclarationID: declarationID, TraceID: traceID})
	if err != nil {
		return err
	}
	return bus.Publish(ctx, domain.TopicDeclarationSubmitted, payload)
}

// Publish announces an assessment on scoring.completed and, when it is HIGH,
// on alert as well.
func Publish(ctx context.Context, bus domain.EventBus, assessment *domain.RiskAssessment) error {
	payload, err := json.Marshal(assessment)
	if err != nil {
		return fmt.Errorf("marshal assessment: %w", err)
	}
	if err := bus.Publish(ctx, domain.TopicScoringCompleted, payload); err != nil {
		return fmt.Errorf("publish %s: %w", domain.TopicScoringCompleted, err)
	}
	if decision.ShouldAlert(assessment) {
		if err := bus.Publish(ctx, domain.TopicAlert, payload); err != nil {
			return fmt.Errorf("publish %s: %w", domain.TopicAlert, err)
		}
	}
	return nil
}

// Start subscribes to submitted declarations.
func (w *Worker) Start() error {
	sub, err := w.bus.Subscribe(w.ctx, domain.TopicDeclarationSubmitted, w.handleMessage)
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", domain.TopicDeclarationSubmitted, err)
	}

	w.mu.Lock()
	w.subscriptions = append(w.subscriptions, sub)
	w.mu.Unlock()

	slog.Info("worker started", "topic", domain.TopicDeclarationSubmitted)
	return nil
}

// handleMessage scores the submitted declaration and publishes the assessment.
func (w *Worker) handleMessage(ctx context.Context, msg *domain.Message) error {
	start := time.Now()

	var in DeclarationMessage
	if err := json.Unmarshal(msg.Payload, &in); err != nil {
		slog.Error("failed to parse declaration message",
			"message_id", msg.ID,
			"error", err,
		)
		return err
	}
	if in.DeclarationID <= 0 {
		return fmt.Errorf("message %s: declaration id is required", msg.ID)
	}

	slog.Debug("processing declaration",
		"declaration_id", in.DeclarationID,
		"trace_id", in.TraceID,
	)

	// 1. Score
	report, err := w.scorer.ScoreDeclaration(ctx, in.DeclarationID)
	if err != nil {
		slog.Error("declaration scoring failed",
			"declaration_id", in.DeclarationID,
			"error", err,
		)
		return err
	}
	if in.TraceID != "" {
		report.TraceID = in.TraceID
	}

	// 2. Decide
	assessment := w.processor.Process(ctx, report)
	w.metrics.ObserveDeclaration(assessment.Status, time.Since(start))

	// 3. Publish result and alert
	if err := Publish(ctx, w.bus, assessment); err != nil {
		slog.Error("failed to publish assessment",
			"declaration_id", in.DeclarationID,
			"error", err,
		)
	}

	slog.Info("declaration processed",
		"declaration_id", in.DeclarationID,
		"pep_id", assessment.PepID,
		"status", assessment.Status,
		"score", assessment.Score,
		"rules_fired", assessment.Metadata.RulesFired,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return nil
}

// Stop unsubscribes and cancels in-flight handlers.
func (w *Worker) Stop() error {
	w.cancel()

	w.mu.Lock()
	defer w.mu.Unlock()

	for _, sub := range w.subscriptions {
		if err := sub.Unsubscribe(); err != nil {
			slog.Error("failed to unsubscribe",
				"topic", sub.Topic(),
				"error", err,
			)
		}
	}
	w.subscriptions = nil

	slog.Info("worker stopped")
	return nil
}

// Stats returns worker statistics.
type Stats struct {
	SubscriptionCount int      `json:"subscriptionCount"`
	Topics            []string `json:"topics"`
}

// GetStats returns current worker statistics.
func (w *Worker) GetStats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()

	topics := make([]string, len(w.subscriptions))
	for i, sub := range w.subscriptions {
		topics[i] = sub.Topic()
	}
	return Stats{
		SubscriptionCount: len(w.subscriptions),
		Topics:            topics,
	}
}
