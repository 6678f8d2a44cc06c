package models

import (
	"fmt"
	"time"
)

// Decision is the binary recommendation of the engine.
type Decision string

const (
	DecisionProvideLiquidity Decision = "PROVIDE_LIQUIDITY"
	DecisionDoNothing        Decision = "DO_NOTHING"
)

// ParseDecision converts a stored decision string back into a Decision.
func ParseDecision(s string) (Decision, error) {
	switch Decision(s) {
	case DecisionProvideLiquidity, DecisionDoNothing:
		return Decision(s), nil
	default:
		return "", fmt.Errorf("unknown decision %q", s)
	}
}

// DecisionResult is the posterior belief and the decision derived from it.
type DecisionResult struct {
	Posterior float64  `json:"posterior"`
	Decision  Decision `json:"decision"`
}

// PriceQuote is a price observation together with where it came from.
type PriceQuote struct {
	Price     float64   `json:"price"`
	Source    string    `json:"source"` // "uniswap_v3", "static", "manual"
	FetchedAt time.Time `json:"fetched_at"`
}

// Evaluation is the full snapshot output of one evaluation run.
type Evaluation struct {
	ID              string               `json:"id"`
	Pair            string               `json:"pair"`
	EvaluatedAt     time.Time            `json:"evaluated_at"`
	Quote           PriceQuote           `json:"quote"`
	Range           PriceRange           `json:"range"`
	Volatility      float64              `json:"volatility"`
	Prior           float64              `json:"prior"`
	EvidenceHorizon Horizon              `json:"evidence_horizon_days"`
	Likelihood      float64              `json:"likelihood"`
	Probabilities   []InRangeProbability `json:"probabilities"`
	Result          DecisionResult       `json:"result"`
}

// EvaluationSummary is a persisted evaluation without its per-horizon rows.
type EvaluationSummary struct {
	ID              string    `json:"id"`
	Pair            string    `json:"pair"`
	EvaluatedAt     time.Time `json:"evaluated_at"`
	Price           float64   `json:"price"`
	PriceSource     string    `json:"price_source"`
	Lower           float64   `json:"lower"`
	Upper           float64   `json:"upper"`
	Volatility      float64   `json:"volatility"`
	Prior           float64   `json:"prior"`
	EvidenceHorizon Horizon   `json:"evidence_horizon_days"`
	Likelihood      float64   `json:"likelihood"`
	Posterior       float64   `json:"posterior"`
	Decision        Decision  `json:"decision"`
}

// Summary flattens the evaluation for history listings.
func (e *Evaluation) Summary() EvaluationSummary {
	return EvaluationSummary{
		ID:              e.ID,
		Pair:            e.Pair,
		EvaluatedAt:     e.EvaluatedAt,
		Price:           e.Quote.Price,
		PriceSource:     e.Quote.Source,
		Lower:           e.Range.Lower,
		Upper:           e.Range.Upper,
		Volatility:      e.Volatility,
		Prior:           e.Prior,
		EvidenceHorizon: e.EvidenceHorizon,
		Likelihood:      e.Likelihood,
		Posterior:       e.Result.Posterior,
		Decision:        e.Result.Decision,
	}
}
