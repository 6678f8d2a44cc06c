package report

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"text/tabwriter"

	"LPRange/internal/domain/models"

	"github.com/shopspring/decimal"
)

// CoreRules are printed under every text report.
var CoreRules = []string{
	"LPs are not traders.",
	"Doing nothing has positive expected value.",
	"Optimize for survival and regret minimization, not APR.",
}

// Label returns the console wording for a decision.
func Label(d models.Decision) string {
	if d == models.DecisionProvideLiquidity {
		return "LP ALLOWED"
	}
	return "DO NOTHING"
}

// Rationale explains a decision in one sentence.
func Rationale(d models.Decision) string {
	if d == models.DecisionProvideLiquidity {
		return "Probability-weighted stability justifies LP exposure."
	}
	return "Evidence insufficient to overcome inactivity bias."
}

func fixed(v float64, places int32) string {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return decimal.NewFromFloat(v).StringFixed(places)
}

// plain renders a bound without trailing zeros.
func plain(v float64) string {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return decimal.NewFromFloat(v).String()
}

// Text writes the human readable evaluation report.
func Text(w io.Writer, ev *models.Evaluation) error {
	ew := &errWriter{w: w}
	ew.printf("\nLP OPERATING SYSTEM - LIVE EVALUATION\n")
	ew.printf("-----------------------------------\n")
	ew.printf("Token Pair: %s\n", ev.Pair)
	ew.printf("Live Price: $%s (%s)\n", fixed(ev.Quote.Price, 2), ev.Quote.Source)
	ew.printf("Price Range: $%s → $%s\n", plain(ev.Range.Lower), plain(ev.Range.Upper))
	ew.printf("Volatility: %s%% annualized\n\n", fixed(ev.Volatility*100, 2))

	ew.printf("In-Range Probabilities:\n")
	for _, p := range ev.Probabilities {
		marker := ""
		if p.Horizon == ev.EvidenceHorizon {
			marker = " (evidence)"
		}
		ew.printf("%d days: %s%%%s\n", int(p.Horizon), fixed(p.Probability*100, 2), marker)
	}

	ew.printf("\nPrior (LP Justified): %s\n", fixed(ev.Prior, 3))
	ew.printf("Bayesian Posterior (LP Justified): %s\n", fixed(ev.Result.Posterior, 3))
	ew.printf("SYSTEM DECISION: %s\n", Label(ev.Result.Decision))
	ew.printf("Rationale: %s\n", Rationale(ev.Result.Decision))

	ew.printf("\nCORE RULES:\n")
	for _, r := range CoreRules {
		ew.printf("- %s\n", r)
	}
	ew.printf("\n")
	return ew.err
}

// Document is the machine readable report.
type Document struct {
	*models.Evaluation
	Label     string   `json:"label"`
	Rationale string   `json:"rationale"`
	CoreRules []string `json:"core_rules"`
}

// NewDocument wraps an evaluation with its presentation fields.
func NewDocument(ev *models.Evaluation) Document {
	return Document{
		Evaluation: ev,
		Label:      Label(ev.Result.Decision),
		Rationale:  Rationale(ev.Result.Decision),
		CoreRules:  CoreRules,
	}
}

// JSON writes the evaluation as indented JSON.
func JSON(w io.Writer, ev *models.Evaluation) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(NewDocument(ev))
}

// History writes stored evaluations as an aligned table.
func History(w io.Writer, rows []models.EvaluationSummary) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	ew := &errWriter{w: tw}
	ew.printf("EVALUATED AT\tPAIR\tPRICE\tRANGE\tEVIDENCE\tLIKELIHOOD\tPOSTERIOR\tDECISION\n")
	for _, r := range rows {
		ew.printf("%s\t%s\t%s\t%s-%s\t%dd\t%s\t%s\t%s\n",
			r.EvaluatedAt.UTC().Format("2006-01-02 15:04:05"),
			r.Pair,
			fixed(r.Price, 2),
			plain(r.Lower), plain(r.Upper),
			int(r.EvidenceHorizon),
			fixed(r.Likelihood, 4),
			fixed(r.Posterior, 3),
			r.Decision,
		)
	}
	if ew.err != nil {
		return ew.err
	}
	return tw.Flush()
}

type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) printf(format string, args ...interface{}) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, args...)
}
