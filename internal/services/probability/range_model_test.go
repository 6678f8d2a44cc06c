package probability

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"LPRange/internal/domain/models"
)

var ethUSDC = models.MarketSnapshot{Price: 3200, Volatility: 0.75}

func TestProbabilityInRange_ReferenceValues(t *testing.T) {
	rng := models.PriceRange{Lower: 2800, Upper: 3600}

	// Pinned against an independent erf-based evaluation of the same formula.
	cases := []struct {
		days models.Horizon
		want float64
	}{
		{14, 0.6076200107098556},
		{30, 0.4400638040235836},
		{60, 0.3181658311571901},
		{90, 0.2607461726740786},
		{180, 0.18294750385179903},
	}
	for _, tc := range cases {
		got, err := ProbabilityInRange(ethUSDC, rng, tc.days)
		require.NoError(t, err)
		assert.InDelta(t, tc.want, got, 1e-9, "horizon %d", tc.days)
	}
}

func TestProbabilityInRange_ZeroVolatility(t *testing.T) {
	rng := models.PriceRange{Lower: 2800, Upper: 3600}
	for _, h := range []models.Horizon{1, 14, 365, 3650} {
		inside, err := ProbabilityInRange(models.MarketSnapshot{Price: 3200}, rng, h)
		require.NoError(t, err)
		assert.Equal(t, 1.0, inside)

		onEdge, err := ProbabilityInRange(models.MarketSnapshot{Price: 2800}, rng, h)
		require.NoError(t, err)
		assert.Equal(t, 1.0, onEdge)

		below, err := ProbabilityInRange(models.MarketSnapshot{Price: 2500}, rng, h)
		require.NoError(t, err)
		assert.Equal(t, 0.0, below)

		above, err := ProbabilityInRange(models.MarketSnapshot{Price: 3601}, rng, h)
		require.NoError(t, err)
		assert.Equal(t, 0.0, above)
	}
}

func TestProbabilityInRange_BoundedAndTendsToOne(t *testing.T) {
	prev := 0.0
	for _, k := range []float64{1.01, 1.5, 3, 10, 100, 1e6} {
		rng := models.PriceRange{Lower: ethUSDC.Price / k, Upper: ethUSDC.Price * k}
		p, err := ProbabilityInRange(ethUSDC, rng, 180)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, p, 0.0)
		assert.LessOrEqual(t, p, 1.0)
		assert.GreaterOrEqual(t, p, prev)
		prev = p
	}
	assert.InDelta(t, 1.0, prev, 1e-12)

	p, err := ProbabilityInRange(ethUSDC, models.PriceRange{Lower: 1e-300, Upper: math.Inf(1)}, 30)
	require.NoError(t, err)
	assert.Equal(t, 1.0, p)
}

func TestProbabilityInRange_MonotoneInWidth(t *testing.T) {
	base := models.PriceRange{Lower: 3000, Upper: 3400}
	p0, err := ProbabilityInRange(ethUSDC, base, 30)
	require.NoError(t, err)

	for _, rng := range []models.PriceRange{
		{Lower: 2900, Upper: 3400},
		{Lower: 3000, Upper: 3500},
		{Lower: 2500, Upper: 4000},
	} {
		p, err := ProbabilityInRange(ethUSDC, rng, 30)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, p, p0, "range %+v", rng)
	}
}

func TestProbabilityInRange_RangeOutsidePrice(t *testing.T) {
	p, err := ProbabilityInRange(ethUSDC, models.PriceRange{Lower: 1e9, Upper: 2e9}, 14)
	require.NoError(t, err)
	assert.Equal(t, 0.0, p)
}

func TestProbabilityInRange_InvalidInputs(t *testing.T) {
	rng := models.PriceRange{Lower: 2800, Upper: 3600}
	cases := []struct {
		name     string
		snapshot models.MarketSnapshot
		rng      models.PriceRange
		days     models.Horizon
		want     error
	}{
		{"equal bounds", ethUSDC, models.PriceRange{Lower: 3000, Upper: 3000}, 14, models.ErrInvalidRange},
		{"inverted bounds", ethUSDC, models.PriceRange{Lower: 3600, Upper: 2800}, 14, models.ErrInvalidRange},
		{"zero lower", ethUSDC, models.PriceRange{Lower: 0, Upper: 3600}, 14, models.ErrInvalidRange},
		{"zero price", models.MarketSnapshot{Price: 0, Volatility: 0.5}, rng, 14, models.ErrInvalidRange},
		{"negative price", models.MarketSnapshot{Price: -1, Volatility: 0.5}, rng, 14, models.ErrInvalidRange},
		{"negative volatility", models.MarketSnapshot{Price: 3200, Volatility: -0.1}, rng, 14, models.ErrInvalidVolatility},
		{"nan volatility", models.MarketSnapshot{Price: 3200, Volatility: math.NaN()}, rng, 14, models.ErrInvalidVolatility},
		{"zero horizon", ethUSDC, rng, 0, models.ErrInvalidHorizon},
		{"negative horizon", ethUSDC, rng, -7, models.ErrInvalidHorizon},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p, err := ProbabilityInRange(tc.snapshot, tc.rng, tc.days)
			require.ErrorIs(t, err, tc.want)
			assert.Zero(t, p)
		})
	}
}

func TestNormalCDF(t *testing.T) {
	assert.Equal(t, 0.5, NormalCDF(0))
	assert.InDelta(t, 0.8413447460685429, NormalCDF(1), 1e-12)
	assert.InDelta(t, 0.02275013194817922, NormalCDF(-2), 1e-12)
	assert.InDelta(t, 7.619853024160593e-24, NormalCDF(-10), 1e-35)
	assert.Equal(t, 1.0, NormalCDF(math.Inf(1)))
	assert.Equal(t, 0.0, NormalCDF(math.Inf(-1)))
}

func TestProbabilitiesForHorizons_KeepsInputOrder(t *testing.T) {
	rng := models.PriceRange{Lower: 2800, Upper: 3600}
	horizons := models.HorizonSet{90, 14, 180, 30}

	got, err := ProbabilitiesForHorizons(context.Background(), ethUSDC, rng, horizons)
	require.NoError(t, err)
	require.Len(t, got, len(horizons))
	for i, h := range horizons {
		assert.Equal(t, h, got[i].Horizon)
		want, err := ProbabilityInRange(ethUSDC, rng, h)
		require.NoError(t, err)
		assert.Equal(t, want, got[i].Probability)
	}
}

func TestProbabilitiesForHorizons_Errors(t *testing.T) {
	rng := models.PriceRange{Lower: 2800, Upper: 3600}

	_, err := ProbabilitiesForHorizons(context.Background(), ethUSDC, rng, models.HorizonSet{14, 0})
	require.ErrorIs(t, err, models.ErrInvalidHorizon)

	_, err = ProbabilitiesForHorizons(context.Background(), ethUSDC, rng, models.HorizonSet{14, 14})
	require.ErrorIs(t, err, models.ErrInvalidHorizon)

	_, err = ProbabilitiesForHorizons(context.Background(), ethUSDC, models.PriceRange{Lower: 5, Upper: 1}, models.DefaultHorizons())
	require.ErrorIs(t, err, models.ErrInvalidRange)
}
