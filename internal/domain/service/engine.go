package service

import (
	"context"

	"LPRange/internal/domain/models"
)

// RangeProbabilityModel estimates the probability that price stays inside a range.
type RangeProbabilityModel interface {
	ProbabilityInRange(snapshot models.MarketSnapshot, rng models.PriceRange, horizon models.Horizon) (float64, error)
	ProbabilitiesForHorizons(ctx context.Context, snapshot models.MarketSnapshot, rng models.PriceRange, horizons models.HorizonSet) ([]models.InRangeProbability, error)
}

// DecisionEngine turns a prior and the evidence likelihood into a decision.
type DecisionEngine interface {
	ComputeDecision(prior, likelihood float64) (models.DecisionResult, error)
}
