package di

import (
	"context"
	"fmt"
	"time"

	"LPRange/internal/domain/models"
	"LPRange/internal/domain/repository"
	domsvc "LPRange/internal/domain/service"
	"LPRange/internal/handler/api"
	internalrepo "LPRange/internal/repository"
	icache "LPRange/internal/service/cache"
	"LPRange/internal/service/pricefeed"
	"LPRange/internal/service/ratelimit"
	"LPRange/internal/service/uniswap"
	"LPRange/internal/services/bayes"
	"LPRange/internal/services/probability"
	"LPRange/internal/usecase"
	pkgch "LPRange/pkg/clickhouse"
	"LPRange/pkg/config"
	xhttp "LPRange/pkg/http"
	pkgkafka "LPRange/pkg/kafka"
	applogger "LPRange/pkg/logger"
	"LPRange/pkg/metrics"
	"LPRange/pkg/server"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Optional backends (ClickHouse, Kafka, oracle) are provided as nil when
// disabled. Providers returning interfaces return an untyped nil in that case.

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Logger.Level,
		Format: cfg.Logger.Format,
		Output: cfg.Logger.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With(applogger.String("env", cfg.Environment)), nil
}

// ProvideRegistry creates the Prometheus registry exposed on the metrics path.
func ProvideRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics(reg *prometheus.Registry) repository.Metrics {
	return metrics.New(reg)
}

// ProvideClickHouseClient connects to ClickHouse and ensures the schema exists.
func ProvideClickHouseClient(cfg *config.Config, l *applogger.Logger) (*pkgch.Client, func(), error) {
	if !cfg.ClickHouse.Enabled {
		return nil, func() {}, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := pkgch.NewClient(ctx,
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("clickhouse client: %w", err)
	}

	if err := client.InitSchema(ctx, internalrepo.SchemaStatements(cfg.ClickHouse.Database)); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	l.Info("clickhouse connected", applogger.String("database", cfg.ClickHouse.Database))

	return client, func() {
		if err := client.Close(); err != nil {
			l.Warn("clickhouse close error", applogger.Error(err))
		}
	}, nil
}

// ProvideEvaluationStore creates the ClickHouse evaluation store.
func ProvideEvaluationStore(ch *pkgch.Client, cfg *config.Config, l *applogger.Logger) repository.EvaluationStore {
	if ch == nil {
		return nil
	}
	store := internalrepo.NewCHEvaluationStore(ch, cfg.ClickHouse.Database)
	store.SetLogger(l)
	return store
}

// ProvideKafkaProducer creates a Kafka producer. The evaluation publisher owns
// and closes it.
func ProvideKafkaProducer(cfg *config.Config, reg *prometheus.Registry) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithMaxAttempts(cfg.Kafka.MaxAttempts),
		pkgkafka.WithWriteTimeout(cfg.Kafka.WriteTimeout),
		pkgkafka.WithRegisterer(reg),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideEvaluationPublisher creates the Kafka evaluation publisher; its cleanup
// closes the publisher and the producer behind it.
func ProvideEvaluationPublisher(producer *pkgkafka.Producer, cfg *config.Config, l *applogger.Logger) (repository.EvaluationPublisher, func()) {
	if producer == nil {
		return nil, func() {}
	}
	pub := internalrepo.NewKafkaPublisher(producer, cfg.Kafka.Topic)
	return pub, func() {
		if err := pub.Close(); err != nil {
			l.Warn("evaluation publisher close error", applogger.Error(err))
		}
	}
}

// ProvideRedisCache connects the shared quote cache when Redis is enabled.
func ProvideRedisCache(cfg *config.Config, l *applogger.Logger) (*icache.RedisCache, func()) {
	if !cfg.Redis.Enabled {
		return nil, func() {}
	}
	rc := icache.NewRedisCache(icache.RedisConfig{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		Prefix:   cfg.Redis.Prefix,
	})
	return rc, func() {
		if err := rc.Close(); err != nil {
			l.Warn("redis close error", applogger.Error(err))
		}
	}
}

// ProvideBytesCache picks Redis when available and an in-process cache otherwise.
func ProvideBytesCache(rc *icache.RedisCache) icache.BytesCache {
	if rc != nil {
		return rc
	}
	return icache.NewTTLCache()
}

// ProvidePriceOracle builds the configured price oracle. Without an oracle,
// every evaluation must carry an explicit price.
func ProvidePriceOracle(cfg *config.Config, c icache.BytesCache, l *applogger.Logger) (repository.PriceOracle, error) {
	var base repository.PriceOracle
	switch cfg.Oracle.Type {
	case "static":
		if cfg.Oracle.StaticPrice == 0 {
			l.Warn("static oracle has no price; requests must supply one")
			return nil, nil
		}
		o, err := pricefeed.NewStaticOracle(cfg.Oracle.StaticPrice)
		if err != nil {
			return nil, err
		}
		base = o
	default:
		endpoint := cfg.RPCEndpoint()
		if endpoint == "" || cfg.Oracle.PoolAddress == "" {
			l.Warn("uniswap oracle disabled: set oracle.rpc_url or INFURA_KEY and oracle.pool_address")
			return nil, nil
		}
		client := xhttp.NewClient(
			xhttp.WithTimeout(cfg.Oracle.Timeout),
			xhttp.WithRetries(cfg.Oracle.Retries),
		)
		o, err := uniswap.New(endpoint, cfg.Oracle.PoolAddress,
			uniswap.WithDecimals(cfg.Oracle.Token0Decimals, cfg.Oracle.Token1Decimals),
			uniswap.WithInvert(cfg.Oracle.Invert),
			uniswap.WithHTTPClient(client),
		)
		if err != nil {
			return nil, fmt.Errorf("uniswap oracle: %w", err)
		}
		o.SetLogger(l)
		base = o
	}

	if cfg.Oracle.CacheTTL <= 0 {
		return base, nil
	}
	cached := pricefeed.NewCachedOracle(base, c, cfg.Oracle.CacheTTL)
	cached.SetLogger(l)
	return cached, nil
}

// ProvideRangeModel returns the GBM in-range probability model.
func ProvideRangeModel() domsvc.RangeProbabilityModel {
	return probability.NewGBMModel()
}

// ProvideDecisionEngine returns the Bayesian engine with the configured threshold.
func ProvideDecisionEngine(cfg *config.Config) domsvc.DecisionEngine {
	return bayes.NewEngine(cfg.Engine.Threshold)
}

// ProvideEvaluator creates the evaluation use case.
func ProvideEvaluator(
	cfg *config.Config,
	model domsvc.RangeProbabilityModel,
	engine domsvc.DecisionEngine,
	oracle repository.PriceOracle,
	store repository.EvaluationStore,
	pub repository.EvaluationPublisher,
	m repository.Metrics,
	l *applogger.Logger,
) (*usecase.Evaluator, error) {
	horizons, err := models.NewHorizonSet(cfg.Engine.Horizons)
	if err != nil {
		return nil, err
	}
	return usecase.NewEvaluator(model, engine, usecase.EvaluatorConfig{
		Pair:            cfg.Position.Pair,
		Horizons:        horizons,
		EvidenceHorizon: models.Horizon(cfg.Engine.EvidenceHorizon),
		Prior:           cfg.Engine.Prior,
	},
		usecase.WithOracle(oracle),
		usecase.WithStore(store),
		usecase.WithPublisher(pub),
		usecase.WithMetrics(m),
		usecase.WithLogger(l),
	), nil
}

// ProvideHTTPHandler creates the API handler with rate limiting and health checks.
func ProvideHTTPHandler(
	cfg *config.Config,
	l *applogger.Logger,
	ev *usecase.Evaluator,
	ch *pkgch.Client,
	rc *icache.RedisCache,
) xhttp.Handler {
	h := api.NewEvaluateHandler(l, ev)
	if cfg.Server.RateLimit > 0 {
		h.SetRateLimiter(ratelimit.New(cfg.Server.RateLimit, cfg.Server.RateBurst))
	}
	if ch != nil {
		h.AddHealthCheck("clickhouse", ch.Health)
	}
	if rc != nil {
		h.AddHealthCheck("redis", rc.Ping)
	}
	return h
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	reg *prometheus.Registry,
	ev *usecase.Evaluator,
	h xhttp.Handler,
) *server.App {
	return server.New(cfg, l, reg, ev, h)
}
