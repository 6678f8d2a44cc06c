package bayes

import (
	"fmt"
	"math"

	"LPRange/internal/domain/models"
	domsvc "LPRange/internal/domain/service"
)

// DecisionThreshold is the equal-posterior-odds cutoff of the core contract.
const DecisionThreshold = 0.5

// Posterior updates prior with likelihood L, using 1-L as the likelihood of the
// same evidence under the opposing "do nothing" hypothesis:
//
//	posterior = p·L / (p·L + (1−p)·(1−L))
func Posterior(prior, likelihood float64) (float64, error) {
	if !(prior > 0 && prior < 1) {
		return 0, fmt.Errorf("%w: prior %v must lie strictly between 0 and 1", models.ErrInvalidPrior, prior)
	}
	if !(likelihood >= 0 && likelihood <= 1) {
		return 0, fmt.Errorf("%w: likelihood %v must lie in [0, 1]", models.ErrInvalidLikelihood, likelihood)
	}
	favourable := prior * likelihood
	return favourable / (favourable + (1-prior)*(1-likelihood)), nil
}

// ComputeDecision applies Bayes' rule and the fixed 0.5 threshold.
func ComputeDecision(prior, likelihood float64) (models.DecisionResult, error) {
	return decide(prior, likelihood, DecisionThreshold)
}

func decide(prior, likelihood, threshold float64) (models.DecisionResult, error) {
	posterior, err := Posterior(prior, likelihood)
	if err != nil {
		return models.DecisionResult{}, err
	}
	d := models.DecisionDoNothing
	if posterior >= threshold {
		d = models.DecisionProvideLiquidity
	}
	return models.DecisionResult{Posterior: posterior, Decision: d}, nil
}

// Engine is a DecisionEngine whose threshold comes from configuration.
type Engine struct {
	threshold float64
}

// NewEngine returns an engine with the given threshold; values outside (0,1)
// fall back to DecisionThreshold.
func NewEngine(threshold float64) *Engine {
	if !(threshold > 0 && threshold < 1) || math.IsNaN(threshold) {
		threshold = DecisionThreshold
	}
	return &Engine{threshold: threshold}
}

// Threshold returns the posterior cutoff in use.
func (e *Engine) Threshold() float64 { return e.threshold }

func (e *Engine) ComputeDecision(prior, likelihood float64) (models.DecisionResult, error) {
	return decide(prior, likelihood, e.threshold)
}

var _ domsvc.DecisionEngine = (*Engine)(nil)
