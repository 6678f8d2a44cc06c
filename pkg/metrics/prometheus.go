package metrics

import (
	"strconv"

	"LPRange/internal/domain/models"
	"LPRange/internal/domain/repository"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	evaluations *prometheus.CounterVec
	posterior   *prometheus.GaugeVec
	inRange     *prometheus.GaugeVec
	errorsTotal *prometheus.CounterVec
	lastPrice   *prometheus.GaugeVec
	latency     *prometheus.HistogramVec
}

var _ repository.Metrics = (*Recorder)(nil)

// New creates a Prometheus metrics recorder registered on reg.
func New(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		evaluations: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lprange_evaluations_total",
				Help: "Total number of evaluations by decision",
			},
			[]string{"decision"},
		),
		posterior: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "lprange_posterior",
				Help: "Posterior of the latest evaluation for a pair",
			},
			[]string{"pair"},
		),
		inRange: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "lprange_in_range_probability",
				Help: "Latest in-range probability per pair and horizon in days",
			},
			[]string{"pair", "horizon"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lprange_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		lastPrice: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "lprange_last_price",
				Help: "Last observed price for a pair",
			},
			[]string{"pair"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "lprange_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordEvaluation records the outcome of one evaluation.
func (r *Recorder) RecordEvaluation(ev *models.Evaluation) {
	r.evaluations.WithLabelValues(string(ev.Result.Decision)).Inc()
	r.posterior.WithLabelValues(ev.Pair).Set(ev.Result.Posterior)
	for _, p := range ev.Probabilities {
		r.inRange.WithLabelValues(ev.Pair, strconv.Itoa(int(p.Horizon))).Set(p.Probability)
	}
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLastPrice records the last price for a pair.
func (r *Recorder) RecordLastPrice(pair string, price float64) {
	r.lastPrice.WithLabelValues(pair).Set(price)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
