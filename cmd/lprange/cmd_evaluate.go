package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"LPRange/internal/domain/models"
	"LPRange/internal/handler/api"
	"LPRange/internal/report"
	"LPRange/pkg/config"
	xhttp "LPRange/pkg/http"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

type evaluateFlags struct {
	pair            string
	lower           float64
	upper           float64
	volatility      float64
	price           float64
	horizons        []int
	evidenceHorizon int
	prior           float64
	json            bool
}

var evalFlags evaluateFlags

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Evaluate a liquidity range once and print the report",
	Long: `Evaluate computes in-range probabilities for every configured horizon and
the resulting decision. Flags override the position from the config file.

Examples:
  lprange evaluate --lower 2800 --upper 3600 --volatility 0.75 --price 3200
  lprange evaluate --config config/config.yaml --json`,
	RunE: runEvaluate,
}

func init() {
	rootCmd.AddCommand(evaluateCmd)

	f := evaluateCmd.Flags()
	f.StringVar(&evalFlags.pair, "pair", "", "pair label")
	f.Float64Var(&evalFlags.lower, "lower", 0, "lower range bound")
	f.Float64Var(&evalFlags.upper, "upper", 0, "upper range bound")
	f.Float64Var(&evalFlags.volatility, "volatility", 0, "annualized volatility as a fraction (0.75 = 75%)")
	f.Float64Var(&evalFlags.price, "price", 0, "current price; fetched from the oracle when omitted")
	f.IntSliceVar(&evalFlags.horizons, "horizons", nil, "horizons in days (comma separated)")
	f.IntVar(&evalFlags.evidenceHorizon, "evidence-horizon", 0, "horizon whose probability is used as evidence")
	f.Float64Var(&evalFlags.prior, "prior", 0, "prior belief that providing liquidity is favorable")
	f.BoolVar(&evalFlags.json, "json", false, "print JSON instead of the text report")
}

// buildEvaluateRequest merges the configured position with explicitly set flags.
func buildEvaluateRequest(cfg *config.Config, fs *pflag.FlagSet, f evaluateFlags) *models.EvaluateRequest {
	req := &models.EvaluateRequest{
		Pair:  cfg.Position.Pair,
		Lower: cfg.Position.Lower,
		Upper: cfg.Position.Upper,
	}
	if cfg.Position.Volatility > 0 {
		v := cfg.Position.Volatility
		req.Volatility = &v
	}
	if fs.Changed("pair") {
		req.Pair = f.pair
	}
	if fs.Changed("lower") {
		req.Lower = f.lower
	}
	if fs.Changed("upper") {
		req.Upper = f.upper
	}
	if fs.Changed("volatility") {
		v := f.volatility
		req.Volatility = &v
	}
	if fs.Changed("price") {
		req.Price = f.price
	}
	if fs.Changed("horizons") {
		req.Horizons = f.horizons
	}
	if fs.Changed("evidence-horizon") {
		req.EvidenceHorizon = f.evidenceHorizon
	}
	if fs.Changed("prior") {
		p := f.prior
		req.Prior = &p
	}
	return req
}

// validationError flattens request validation failures into one error.
func validationError(errs interface{}) error {
	list, ok := errs.([]xhttp.ValidationError)
	if !ok || len(list) == 0 {
		return errors.New("invalid request")
	}
	msgs := make([]string, 0, len(list))
	for _, e := range list {
		msgs = append(msgs, e.Message)
	}
	return fmt.Errorf("invalid request: %s", strings.Join(msgs, "; "))
}

func runEvaluate(cmd *cobra.Command, _ []string) error {
	cfg, app, cleanup, err := loadApp()
	if err != nil {
		return err
	}
	defer cleanup()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	req := buildEvaluateRequest(cfg, cmd.Flags(), evalFlags)
	if errs := xhttp.ValidateRequest(ctx, req); errs != nil {
		return validationError(errs)
	}

	ev, err := app.Evaluator().Evaluate(ctx, api.ToParams(req))
	if err != nil {
		return err
	}

	if evalFlags.json {
		return report.JSON(cmd.OutOrStdout(), ev)
	}
	return report.Text(cmd.OutOrStdout(), ev)
}
