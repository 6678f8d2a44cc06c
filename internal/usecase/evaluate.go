package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"LPRange/internal/domain/models"
	domrepo "LPRange/internal/domain/repository"
	domsvc "LPRange/internal/domain/service"
	applogger "LPRange/pkg/logger"

	"github.com/google/uuid"
)

// ManualSource marks prices supplied with the request.
const ManualSource = "manual"

// History limits applied by Recent.
const (
	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 500
)

var (
	ErrNoPriceSource   = errors.New("no price given and no oracle configured")
	ErrHistoryDisabled = errors.New("evaluation history is not enabled")
	ErrPriceFetch      = errors.New("price oracle failed")
)

// EvaluatorConfig holds the defaults applied when a request leaves a field empty.
type EvaluatorConfig struct {
	Pair            string
	Horizons        models.HorizonSet
	EvidenceHorizon models.Horizon // 0 = shortest horizon
	Prior           float64
	SinkTimeout     time.Duration
}

// EvaluateParams describes one evaluation. Zero values fall back to EvaluatorConfig.
type EvaluateParams struct {
	Pair            string
	Range           models.PriceRange
	Volatility      float64
	Price           float64
	Horizons        []int
	EvidenceHorizon int
	Prior           *float64
}

// Evaluator runs the probability model and decision engine for one position
// snapshot and hands the result to the optional sinks.
type Evaluator struct {
	cfg       EvaluatorConfig
	model     domsvc.RangeProbabilityModel
	engine    domsvc.DecisionEngine
	oracle    domrepo.PriceOracle
	store     domrepo.EvaluationStore
	publisher domrepo.EvaluationPublisher
	metrics   domrepo.Metrics
	l         *applogger.Logger
	now       func() time.Time
	newID     func() string
}

// EvaluatorOption configures Evaluator.
type EvaluatorOption func(*Evaluator)

func WithOracle(o domrepo.PriceOracle) EvaluatorOption {
	return func(e *Evaluator) { e.oracle = o }
}

func WithStore(s domrepo.EvaluationStore) EvaluatorOption {
	return func(e *Evaluator) { e.store = s }
}

func WithPublisher(p domrepo.EvaluationPublisher) EvaluatorOption {
	return func(e *Evaluator) { e.publisher = p }
}

func WithMetrics(m domrepo.Metrics) EvaluatorOption {
	return func(e *Evaluator) { e.metrics = m }
}

func WithLogger(l *applogger.Logger) EvaluatorOption {
	return func(e *Evaluator) { e.l = l }
}

func WithClock(now func() time.Time) EvaluatorOption {
	return func(e *Evaluator) { e.now = now }
}

func WithIDGenerator(f func() string) EvaluatorOption {
	return func(e *Evaluator) { e.newID = f }
}

func NewEvaluator(model domsvc.RangeProbabilityModel, engine domsvc.DecisionEngine, cfg EvaluatorConfig, opts ...EvaluatorOption) *Evaluator {
	if len(cfg.Horizons) == 0 {
		cfg.Horizons = models.DefaultHorizons()
	}
	if cfg.Prior == 0 {
		cfg.Prior = models.DefaultPrior
	}
	if cfg.SinkTimeout <= 0 {
		cfg.SinkTimeout = 5 * time.Second
	}
	e := &Evaluator{
		cfg:    cfg,
		model:  model,
		engine: engine,
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Config returns the defaults the evaluator applies.
func (e *Evaluator) Config() EvaluatorConfig { return e.cfg }

// Evaluate computes per-horizon in-range probabilities and the resulting decision.
// Persisting and publishing are best effort and never fail the evaluation.
func (e *Evaluator) Evaluate(ctx context.Context, p EvaluateParams) (*models.Evaluation, error) {
	start := time.Now()

	ev, err := e.evaluate(ctx, p)
	if err != nil {
		e.recordError(err)
		return nil, err
	}

	if e.metrics != nil {
		e.metrics.RecordEvaluation(ev)
		e.metrics.RecordLastPrice(ev.Pair, ev.Quote.Price)
		e.metrics.RecordLatency("evaluate", time.Since(start).Seconds())
	}
	if e.l != nil {
		e.l.Info("evaluation done",
			applogger.String("id", ev.ID),
			applogger.String("pair", ev.Pair),
			applogger.Float64("price", ev.Quote.Price),
			applogger.String("price_source", ev.Quote.Source),
			applogger.Int("evidence_horizon", int(ev.EvidenceHorizon)),
			applogger.Float64("likelihood", ev.Likelihood),
			applogger.Float64("posterior", ev.Result.Posterior),
			applogger.String("decision", string(ev.Result.Decision)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}

	e.sink(ctx, ev)
	return ev, nil
}

func (e *Evaluator) evaluate(ctx context.Context, p EvaluateParams) (*models.Evaluation, error) {
	if err := p.Range.Validate(); err != nil {
		return nil, err
	}
	if !p.Range.IsFinite() {
		return nil, fmt.Errorf("%w: range bounds %v..%v must be finite", models.ErrInvalidRange, p.Range.Lower, p.Range.Upper)
	}
	if p.Volatility < 0 || math.IsNaN(p.Volatility) || math.IsInf(p.Volatility, 0) {
		return nil, fmt.Errorf("%w: %v", models.ErrInvalidVolatility, p.Volatility)
	}

	horizons := e.cfg.Horizons
	if p.Horizons != nil {
		hs, err := models.NewHorizonSet(p.Horizons)
		if err != nil {
			return nil, err
		}
		horizons = hs
	}
	if err := horizons.Validate(); err != nil {
		return nil, err
	}

	evidence, err := e.evidenceHorizon(horizons, p.EvidenceHorizon)
	if err != nil {
		return nil, err
	}

	prior := e.cfg.Prior
	if p.Prior != nil {
		prior = *p.Prior
	}
	if !(prior > 0 && prior < 1) {
		return nil, fmt.Errorf("%w: %v", models.ErrInvalidPrior, prior)
	}

	pair := p.Pair
	if pair == "" {
		pair = e.cfg.Pair
	}

	quote, err := e.resolvePrice(ctx, p.Price)
	if err != nil {
		return nil, err
	}

	snapshot := models.MarketSnapshot{Price: quote.Price, Volatility: p.Volatility}
	if err := snapshot.Validate(); err != nil {
		return nil, err
	}
	probs, err := e.model.ProbabilitiesForHorizons(ctx, snapshot, p.Range, horizons)
	if err != nil {
		return nil, err
	}

	var likelihood float64
	for _, pr := range probs {
		if pr.Horizon == evidence {
			likelihood = pr.Probability
			break
		}
	}

	res, err := e.engine.ComputeDecision(prior, likelihood)
	if err != nil {
		return nil, err
	}

	return &models.Evaluation{
		ID:              e.newID(),
		Pair:            pair,
		EvaluatedAt:     e.now().UTC(),
		Quote:           quote,
		Range:           p.Range,
		Volatility:      p.Volatility,
		Prior:           prior,
		EvidenceHorizon: evidence,
		Likelihood:      likelihood,
		Probabilities:   probs,
		Result:          res,
	}, nil
}

// evidenceHorizon picks the horizon whose probability feeds the decision:
// an explicit request value, then the configured one if present in the set,
// then the shortest horizon.
func (e *Evaluator) evidenceHorizon(hs models.HorizonSet, requested int) (models.Horizon, error) {
	if requested != 0 {
		h := models.Horizon(requested)
		if !hs.Contains(h) {
			return 0, fmt.Errorf("%w: evidence horizon %dd is not one of %v", models.ErrInvalidHorizon, requested, hs.Days())
		}
		return h, nil
	}
	if e.cfg.EvidenceHorizon != 0 && hs.Contains(e.cfg.EvidenceHorizon) {
		return e.cfg.EvidenceHorizon, nil
	}
	return hs.Shortest(), nil
}

func (e *Evaluator) resolvePrice(ctx context.Context, price float64) (models.PriceQuote, error) {
	if price != 0 {
		return models.PriceQuote{Price: price, Source: ManualSource, FetchedAt: e.now().UTC()}, nil
	}
	if e.oracle == nil {
		return models.PriceQuote{}, ErrNoPriceSource
	}

	start := time.Now()
	q, err := e.oracle.LatestPrice(ctx)
	if err != nil {
		return models.PriceQuote{}, fmt.Errorf("%w (%s): %w", ErrPriceFetch, e.oracle.Source(), err)
	}
	if e.metrics != nil {
		e.metrics.RecordLatency("oracle", time.Since(start).Seconds())
	}
	return q, nil
}

func (e *Evaluator) sink(ctx context.Context, ev *models.Evaluation) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.cfg.SinkTimeout)
	defer cancel()

	if e.store != nil {
		start := time.Now()
		if err := e.store.Save(ctx, ev); err != nil {
			e.sinkFailed("store", ev, err)
		} else if e.metrics != nil {
			e.metrics.RecordLatency("store", time.Since(start).Seconds())
		}
	}
	if e.publisher != nil {
		if err := e.publisher.Publish(ctx, ev); err != nil {
			e.sinkFailed("publish", ev, err)
		}
	}
}

func (e *Evaluator) sinkFailed(kind string, ev *models.Evaluation, err error) {
	if e.metrics != nil {
		e.metrics.RecordError(kind)
	}
	if e.l != nil {
		e.l.Warn("evaluation "+kind+" failed",
			applogger.String("id", ev.ID),
			applogger.String("pair", ev.Pair),
			applogger.Error(err),
		)
	}
}

func (e *Evaluator) recordError(err error) {
	if e.metrics == nil {
		return
	}
	switch {
	case errors.Is(err, ErrPriceFetch):
		e.metrics.RecordError("oracle")
	case models.ErrorCode(err) != "":
		e.metrics.RecordError("validation")
	default:
		e.metrics.RecordError("evaluate")
	}
}

// Recent lists stored evaluations, newest first.
func (e *Evaluator) Recent(ctx context.Context, pair string, limit int) ([]models.EvaluationSummary, error) {
	if e.store == nil {
		return nil, ErrHistoryDisabled
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}
	out, err := e.store.Recent(ctx, pair, limit)
	if err != nil {
		e.recordError(err)
		return nil, fmt.Errorf("load history: %w", err)
	}
	return out, nil
}
