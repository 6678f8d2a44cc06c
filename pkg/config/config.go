package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment" default:"development"`
	Logger      struct {
		Level  string `yaml:"level" default:"info"`
		Format string `yaml:"format" default:"console"`
		Output string `yaml:"output" default:"stderr"`
	} `yaml:"logger"`
	Engine struct {
		Horizons        []int   `yaml:"horizons" default:"[14,30,60,90,180]" validate:"dive,gt=0,lte=3650"`
		EvidenceHorizon int     `yaml:"evidence_horizon"` // 0 = shortest horizon
		Prior           float64 `yaml:"prior" default:"0.40"`
		Threshold       float64 `yaml:"threshold" default:"0.5"`
	} `yaml:"engine"`
	Position struct {
		Pair       string  `yaml:"pair" default:"ETH/USDC"`
		Lower      float64 `yaml:"lower"`
		Upper      float64 `yaml:"upper"`
		Volatility float64 `yaml:"volatility"`
	} `yaml:"position"`
	Oracle struct {
		Type           string        `yaml:"type" default:"uniswap"` // uniswap | static
		RPCURL         string        `yaml:"rpc_url"`
		InfuraKey      string        `yaml:"infura_key"`
		PoolAddress    string        `yaml:"pool_address" validate:"omitempty,eth_addr"`
		Token0Decimals int           `yaml:"token0_decimals" default:"6" validate:"gte=0,lte=36"`
		Token1Decimals int           `yaml:"token1_decimals" default:"18" validate:"gte=0,lte=36"`
		Invert         bool          `yaml:"invert" default:"true"`
		StaticPrice    float64       `yaml:"static_price"`
		Timeout        time.Duration `yaml:"timeout" default:"5s"`
		Retries        int           `yaml:"retries" default:"3"`
		CacheTTL       time.Duration `yaml:"cache_ttl" default:"15s"`
	} `yaml:"oracle"`
	Server struct {
		Port            int           `yaml:"port" default:"8080"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		RateLimit       float64       `yaml:"rate_limit" default:"5"` // requests per second per client
		RateBurst       int           `yaml:"rate_burst" default:"10"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	ClickHouse struct {
		Enabled          bool          `yaml:"enabled"`
		Host             string        `yaml:"host" default:"localhost"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"lprange"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"10s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"30s"`
	} `yaml:"clickhouse"`
	Kafka struct {
		Enabled      bool          `yaml:"enabled"`
		Brokers      []string      `yaml:"brokers"`
		Topic        string        `yaml:"topic" default:"lprange.evaluations"`
		RequiredAcks int           `yaml:"required_acks" default:"-1"`
		Compression  string        `yaml:"compression" default:"gzip"`
		MaxAttempts  int           `yaml:"max_attempts" default:"3"`
		WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
	} `yaml:"kafka"`
	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Addr     string `yaml:"addr" default:"localhost:6379"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Prefix   string `yaml:"prefix" default:"lprange"`
	} `yaml:"redis"`
}

// Default returns a configuration with every default applied and no file read.
func Default() (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	return &c, nil
}

// Load reads and parses a YAML configuration file. Missing keys keep their defaults.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Defaults first so that explicit zero values in the file (invert: false) win.
	c, err := Default()
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return c, nil
}

// LoadWithEnv loads config from YAML (or defaults when path is empty), reads an
// optional .env file and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	var (
		c   *Config
		err error
	)
	if path == "" {
		c, err = Default()
	} else {
		c, err = Load(path)
	}
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("INFURA_KEY"); v != "" {
		c.Oracle.InfuraKey = v
	}
	if v := os.Getenv("LPRANGE_RPC_URL"); v != "" {
		c.Oracle.RPCURL = v
	}
	if v := os.Getenv("LPRANGE_POOL"); v != "" {
		c.Oracle.PoolAddress = v
	}
	if v := os.Getenv("LPRANGE_PRIOR"); v != "" {
		p, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("LPRANGE_PRIOR: %w", err)
		}
		c.Engine.Prior = p
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

var validate = validator.New()

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if len(c.Engine.Horizons) == 0 {
		return fmt.Errorf("engine.horizons cannot be empty")
	}
	seen := map[int]bool{}
	for _, h := range c.Engine.Horizons {
		if h <= 0 {
			return fmt.Errorf("engine.horizons must be positive, got %d", h)
		}
		if seen[h] {
			return fmt.Errorf("engine.horizons contains %d twice", h)
		}
		seen[h] = true
	}
	if c.Engine.EvidenceHorizon != 0 && !seen[c.Engine.EvidenceHorizon] {
		return fmt.Errorf("engine.evidence_horizon %d is not one of engine.horizons", c.Engine.EvidenceHorizon)
	}
	if !(c.Engine.Prior > 0 && c.Engine.Prior < 1) {
		return fmt.Errorf("engine.prior must lie strictly between 0 and 1, got %v", c.Engine.Prior)
	}
	if !(c.Engine.Threshold > 0 && c.Engine.Threshold < 1) {
		return fmt.Errorf("engine.threshold must lie strictly between 0 and 1, got %v", c.Engine.Threshold)
	}
	switch c.Oracle.Type {
	case "uniswap", "static":
	default:
		return fmt.Errorf("oracle.type must be 'uniswap' or 'static', got '%s'", c.Oracle.Type)
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	return nil
}

// RPCEndpoint resolves the JSON-RPC URL, deriving an Infura mainnet URL from the key.
func (c *Config) RPCEndpoint() string {
	if c.Oracle.RPCURL != "" {
		return c.Oracle.RPCURL
	}
	if c.Oracle.InfuraKey != "" {
		return "https://mainnet.infura.io/v3/" + c.Oracle.InfuraKey
	}
	return ""
}
