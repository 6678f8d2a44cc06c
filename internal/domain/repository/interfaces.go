package repository

import (
	"context"

	"LPRange/internal/domain/models"
)

// PriceOracle supplies the current price of the base token in paired-token units.
type PriceOracle interface {
	LatestPrice(ctx context.Context) (models.PriceQuote, error)
	Source() string
}

// EvaluationStore persists evaluations and lists recent ones.
type EvaluationStore interface {
	Save(ctx context.Context, ev *models.Evaluation) error
	Recent(ctx context.Context, pair string, limit int) ([]models.EvaluationSummary, error)
	Health(ctx context.Context) error
}

// EvaluationPublisher emits evaluation events to downstream consumers.
type EvaluationPublisher interface {
	Publish(ctx context.Context, ev *models.Evaluation) error
	Close() error
}

type Metrics interface {
	RecordEvaluation(ev *models.Evaluation)
	RecordError(kind string)
	RecordLastPrice(pair string, price float64)
	RecordLatency(op string, seconds float64)
}
