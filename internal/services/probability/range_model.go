package probability

import (
	"context"
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"

	"LPRange/internal/domain/models"
	domsvc "LPRange/internal/domain/service"
)

// DaysPerYear converts a horizon in days into a year fraction.
const DaysPerYear = 365.0

// NormalCDF is the standard normal cumulative distribution function.
// Erfc keeps full relative precision deep in the lower tail.
func NormalCDF(x float64) float64 {
	return 0.5 * math.Erfc(-x/math.Sqrt2)
}

// ProbabilityInRange returns the probability that a zero-growth log-normal price
// starting at snapshot.Price ends within [rng.Lower, rng.Upper] after horizonDays.
//
// The log-space drift is -σ²T/2, so the expected (mean) forward price equals the
// current price.
func ProbabilityInRange(snapshot models.MarketSnapshot, rng models.PriceRange, horizonDays models.Horizon) (float64, error) {
	if err := snapshot.Validate(); err != nil {
		return 0, err
	}
	if err := rng.Validate(); err != nil {
		return 0, err
	}
	if err := horizonDays.Validate(); err != nil {
		return 0, err
	}

	t := float64(horizonDays) / DaysPerYear
	sigma := snapshot.Volatility
	mu := -0.5 * (sigma * sigma) * t
	std := sigma * math.Sqrt(t)

	if std == 0 {
		if rng.Contains(snapshot.Price) {
			return 1, nil
		}
		return 0, nil
	}

	zLower := (math.Log(rng.Lower/snapshot.Price) - mu) / std
	zUpper := (math.Log(rng.Upper/snapshot.Price) - mu) / std

	return clamp01(NormalCDF(zUpper) - NormalCDF(zLower)), nil
}

// ProbabilitiesForHorizons evaluates every horizon concurrently and returns the
// results in the order of horizons. The first error cancels the remaining work.
func ProbabilitiesForHorizons(ctx context.Context, snapshot models.MarketSnapshot, rng models.PriceRange, horizons models.HorizonSet) ([]models.InRangeProbability, error) {
	if err := horizons.Validate(); err != nil {
		return nil, err
	}

	out := make([]models.InRangeProbability, len(horizons))
	g, ctx := errgroup.WithContext(ctx)
	for i, h := range horizons {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			p, err := ProbabilityInRange(snapshot, rng, h)
			if err != nil {
				return fmt.Errorf("horizon %dd: %w", int(h), err)
			}
			out[i] = models.InRangeProbability{Horizon: h, Probability: p}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func clamp01(p float64) float64 {
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}

// GBMModel is the geometric Brownian motion RangeProbabilityModel.
type GBMModel struct{}

func NewGBMModel() *GBMModel { return &GBMModel{} }

func (GBMModel) ProbabilityInRange(snapshot models.MarketSnapshot, rng models.PriceRange, horizon models.Horizon) (float64, error) {
	return ProbabilityInRange(snapshot, rng, horizon)
}

func (GBMModel) ProbabilitiesForHorizons(ctx context.Context, snapshot models.MarketSnapshot, rng models.PriceRange, horizons models.HorizonSet) ([]models.InRangeProbability, error) {
	return ProbabilitiesForHorizons(ctx, snapshot, rng, horizons)
}

var _ domsvc.RangeProbabilityModel = (*GBMModel)(nil)
