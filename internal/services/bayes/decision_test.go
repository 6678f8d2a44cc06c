package bayes

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"LPRange/internal/domain/models"
)

func TestComputeDecision_ReferenceScenario(t *testing.T) {
	res, err := ComputeDecision(0.40, 0.40)
	require.NoError(t, err)
	assert.InDelta(t, 0.16/0.52, res.Posterior, 1e-15)
	assert.InDelta(t, 0.3077, res.Posterior, 5e-5)
	assert.Equal(t, models.DecisionDoNothing, res.Decision)
}

func TestComputeDecision_FourteenDayEvidence(t *testing.T) {
	// likelihood of the (3200, 2800..3600, σ=0.75, 14d) position
	res, err := ComputeDecision(models.DefaultPrior, 0.6076200107098556)
	require.NoError(t, err)
	assert.InDelta(t, 0.5079627930595974, res.Posterior, 1e-12)
	assert.Equal(t, models.DecisionProvideLiquidity, res.Decision)
}

func TestComputeDecision_IndifferenceIsNoOp(t *testing.T) {
	for _, prior := range []float64{1e-9, 0.1, 0.3, 0.4, 0.5, 0.73, 0.999999} {
		res, err := ComputeDecision(prior, 0.5)
		require.NoError(t, err)
		assert.Equal(t, prior, res.Posterior, "prior %v", prior)
	}
}

func TestComputeDecision_StrictlyIncreasingInLikelihood(t *testing.T) {
	for _, prior := range []float64{0.05, 0.4, 0.9} {
		prev := -1.0
		for i := 0; i <= 100; i++ {
			res, err := ComputeDecision(prior, float64(i)/100)
			require.NoError(t, err)
			assert.Greater(t, res.Posterior, prev)
			prev = res.Posterior
		}
	}
}

func TestComputeDecision_Extremes(t *testing.T) {
	res, err := ComputeDecision(0.4, 0)
	require.NoError(t, err)
	assert.Equal(t, 0.0, res.Posterior)
	assert.Equal(t, models.DecisionDoNothing, res.Decision)

	res, err = ComputeDecision(0.4, 1)
	require.NoError(t, err)
	assert.Equal(t, 1.0, res.Posterior)
	assert.Equal(t, models.DecisionProvideLiquidity, res.Decision)
}

func TestComputeDecision_ThresholdIsInclusive(t *testing.T) {
	res, err := ComputeDecision(0.5, 0.5)
	require.NoError(t, err)
	assert.Equal(t, 0.5, res.Posterior)
	assert.Equal(t, models.DecisionProvideLiquidity, res.Decision)
}

func TestComputeDecision_InvalidInputs(t *testing.T) {
	cases := []struct {
		name              string
		prior, likelihood float64
		want              error
	}{
		{"prior zero", 0, 0.4, models.ErrInvalidPrior},
		{"prior one", 1, 0.4, models.ErrInvalidPrior},
		{"prior negative", -0.2, 0.4, models.ErrInvalidPrior},
		{"prior nan", math.NaN(), 0.4, models.ErrInvalidPrior},
		{"likelihood negative", 0.4, -0.01, models.ErrInvalidLikelihood},
		{"likelihood above one", 0.4, 1.01, models.ErrInvalidLikelihood},
		{"likelihood nan", 0.4, math.NaN(), models.ErrInvalidLikelihood},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := ComputeDecision(tc.prior, tc.likelihood)
			require.ErrorIs(t, err, tc.want)
			assert.Equal(t, models.DecisionResult{}, res)
		})
	}
}

func TestEngine_ConfiguredThreshold(t *testing.T) {
	strict := NewEngine(0.6)
	assert.Equal(t, 0.6, strict.Threshold())

	res, err := strict.ComputeDecision(models.DefaultPrior, 0.6076200107098556)
	require.NoError(t, err)
	assert.Equal(t, models.DecisionDoNothing, res.Decision)

	assert.Equal(t, DecisionThreshold, NewEngine(0).Threshold())
	assert.Equal(t, DecisionThreshold, NewEngine(1.5).Threshold())
	assert.Equal(t, DecisionThreshold, NewEngine(math.NaN()).Threshold())
}
