package repository

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strings"
	"time"

	"LPRange/internal/domain/models"
	domrepo "LPRange/internal/domain/repository"
	pkgch "LPRange/pkg/clickhouse"
	applogger "LPRange/pkg/logger"
)

// SchemaStatements returns the idempotent DDL for the evaluation tables.
func SchemaStatements(database string) []string {
	return []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.evaluations (
            id String,
            pair LowCardinality(String),
            evaluated_at DateTime64(3, 'UTC'),
            price Float64,
            price_source LowCardinality(String),
            lower Float64,
            upper Float64,
            volatility Float64,
            prior Float64,
            evidence_horizon UInt16,
            likelihood Float64,
            posterior Float64,
            decision LowCardinality(String)
        ) ENGINE = MergeTree
        ORDER BY (pair, evaluated_at)`, database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.evaluation_horizons (
            evaluation_id String,
            pair LowCardinality(String),
            evaluated_at DateTime64(3, 'UTC'),
            horizon_days UInt16,
            probability Float64
        ) ENGINE = MergeTree
        ORDER BY (pair, evaluated_at, horizon_days)`, database),
	}
}

// CHEvaluationStore implements EvaluationStore backed by ClickHouse.
type CHEvaluationStore struct {
	db       *sql.DB
	database string
	l        *applogger.Logger
}

var _ domrepo.EvaluationStore = (*CHEvaluationStore)(nil)

func NewCHEvaluationStore(ch *pkgch.Client, database string) *CHEvaluationStore {
	return &CHEvaluationStore{db: ch.DB(), database: database}
}

// SetLogger injects a structured logger.
func (s *CHEvaluationStore) SetLogger(l *applogger.Logger) { s.l = l }

// Save writes the evaluation row and one row per horizon.
func (s *CHEvaluationStore) Save(ctx context.Context, ev *models.Evaluation) error {
	if err := checkHorizons(ev); err != nil {
		return err
	}

	start := time.Now()
	q := fmt.Sprintf(`INSERT INTO %s.evaluations
        (id, pair, evaluated_at, price, price_source, lower, upper, volatility, prior, evidence_horizon, likelihood, posterior, decision)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, s.database)
	_, err := s.db.ExecContext(ctx, q,
		ev.ID,
		ev.Pair,
		ev.EvaluatedAt,
		ev.Quote.Price,
		ev.Quote.Source,
		ev.Range.Lower,
		ev.Range.Upper,
		ev.Volatility,
		ev.Prior,
		uint16(ev.EvidenceHorizon),
		ev.Likelihood,
		ev.Result.Posterior,
		string(ev.Result.Decision),
	)
	if err != nil {
		return fmt.Errorf("insert evaluation: %w", err)
	}

	if len(ev.Probabilities) > 0 {
		values := make([]string, 0, len(ev.Probabilities))
		args := make([]interface{}, 0, len(ev.Probabilities)*5)
		for _, p := range ev.Probabilities {
			values = append(values, "(?, ?, ?, ?, ?)")
			args = append(args, ev.ID, ev.Pair, ev.EvaluatedAt, uint16(p.Horizon), p.Probability)
		}
		q := fmt.Sprintf("INSERT INTO %s.evaluation_horizons (evaluation_id, pair, evaluated_at, horizon_days, probability) VALUES %s",
			s.database, strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			return fmt.Errorf("insert horizons: %w", err)
		}
	}

	if s.l != nil {
		s.l.Debug("clickhouse save_evaluation ok",
			applogger.String("id", ev.ID),
			applogger.String("pair", ev.Pair),
			applogger.Int("horizons", len(ev.Probabilities)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return nil
}

// checkHorizons rejects horizons that do not fit the UInt16 horizon columns.
func checkHorizons(ev *models.Evaluation) error {
	if ev.EvidenceHorizon > math.MaxUint16 {
		return fmt.Errorf("evidence horizon %d exceeds %d days", int(ev.EvidenceHorizon), math.MaxUint16)
	}
	for _, p := range ev.Probabilities {
		if p.Horizon > math.MaxUint16 {
			return fmt.Errorf("horizon %d exceeds %d days", int(p.Horizon), math.MaxUint16)
		}
	}
	return nil
}

// recentPrealloc bounds the slice capacity reserved before rows are read.
const recentPrealloc = 64

// Recent lists the newest evaluations first. An empty pair matches all pairs.
func (s *CHEvaluationStore) Recent(ctx context.Context, pair string, limit int) ([]models.EvaluationSummary, error) {
	var (
		where string
		args  []interface{}
	)
	if pair != "" {
		where = "WHERE pair = ?"
		args = append(args, pair)
	}
	args = append(args, limit)

	q := fmt.Sprintf(`SELECT id, pair, evaluated_at, price, price_source, lower, upper, volatility, prior, evidence_horizon, likelihood, posterior, decision
        FROM %s.evaluations
        %s
        ORDER BY evaluated_at DESC
        LIMIT ?`, s.database, where)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse recent_evaluations query error",
				applogger.String("pair", pair),
				applogger.Int("limit", limit),
				applogger.Error(err),
			)
		}
		return nil, fmt.Errorf("recent evaluations: %w", err)
	}
	defer rows.Close()

	out := make([]models.EvaluationSummary, 0, min(max(limit, 0), recentPrealloc))
	for rows.Next() {
		var (
			e        models.EvaluationSummary
			horizon  uint16
			decision string
		)
		if err := rows.Scan(&e.ID, &e.Pair, &e.EvaluatedAt, &e.Price, &e.PriceSource, &e.Lower, &e.Upper,
			&e.Volatility, &e.Prior, &horizon, &e.Likelihood, &e.Posterior, &decision); err != nil {
			return nil, fmt.Errorf("scan evaluation: %w", err)
		}
		e.EvidenceHorizon = models.Horizon(horizon)
		if e.Decision, err = models.ParseDecision(decision); err != nil {
			return nil, fmt.Errorf("scan evaluation %s: %w", e.ID, err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

func (s *CHEvaluationStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
