package main

import (
	"testing"

	"LPRange/pkg/config"
	xhttp "LPRange/pkg/http"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEvaluateFlagSet(t *testing.T, args ...string) (*pflag.FlagSet, evaluateFlags) {
	t.Helper()
	var f evaluateFlags
	fs := pflag.NewFlagSet("evaluate", pflag.ContinueOnError)
	fs.StringVar(&f.pair, "pair", "", "")
	fs.Float64Var(&f.lower, "lower", 0, "")
	fs.Float64Var(&f.upper, "upper", 0, "")
	fs.Float64Var(&f.volatility, "volatility", 0, "")
	fs.Float64Var(&f.price, "price", 0, "")
	fs.IntSliceVar(&f.horizons, "horizons", nil, "")
	fs.IntVar(&f.evidenceHorizon, "evidence-horizon", 0, "")
	fs.Float64Var(&f.prior, "prior", 0, "")
	require.NoError(t, fs.Parse(args))
	return fs, f
}

func TestBuildEvaluateRequest_UsesConfiguredPosition(t *testing.T) {
	cfg, err := config.Default()
	require.NoError(t, err)
	cfg.Position.Lower = 2800
	cfg.Position.Upper = 3600
	cfg.Position.Volatility = 0.75

	fs, f := newEvaluateFlagSet(t)
	req := buildEvaluateRequest(cfg, fs, f)

	assert.Equal(t, "ETH/USDC", req.Pair)
	assert.Equal(t, 2800.0, req.Lower)
	assert.Equal(t, 3600.0, req.Upper)
	require.NotNil(t, req.Volatility)
	assert.Equal(t, 0.75, *req.Volatility)
	assert.Nil(t, req.Prior)
	assert.Empty(t, req.Horizons)
}

func TestBuildEvaluateRequest_FlagsOverride(t *testing.T) {
	cfg, err := config.Default()
	require.NoError(t, err)
	cfg.Position.Lower = 1
	cfg.Position.Upper = 2
	cfg.Position.Volatility = 0.5

	fs, f := newEvaluateFlagSet(t,
		"--lower=2800", "--upper=3600", "--volatility=0",
		"--price=3200", "--horizons=14,30", "--evidence-horizon=30", "--prior=0.4", "--pair=WBTC/ETH")
	req := buildEvaluateRequest(cfg, fs, f)

	assert.Equal(t, "WBTC/ETH", req.Pair)
	assert.Equal(t, 2800.0, req.Lower)
	assert.Equal(t, 3600.0, req.Upper)
	require.NotNil(t, req.Volatility)
	assert.Equal(t, 0.0, *req.Volatility)
	assert.Equal(t, 3200.0, req.Price)
	assert.Equal(t, []int{14, 30}, req.Horizons)
	assert.Equal(t, 30, req.EvidenceHorizon)
	require.NotNil(t, req.Prior)
	assert.Equal(t, 0.4, *req.Prior)
}

func TestValidationError(t *testing.T) {
	err := validationError([]xhttp.ValidationError{
		{Message: "lower is required"},
		{Message: "volatility is required"},
	})
	assert.EqualError(t, err, "invalid request: lower is required; volatility is required")
	assert.EqualError(t, validationError(nil), "invalid request")
}
