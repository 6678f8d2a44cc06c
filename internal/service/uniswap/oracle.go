package uniswap

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"LPRange/internal/domain/models"
	"LPRange/internal/domain/repository"
	xhttp "LPRange/pkg/http"
	applogger "LPRange/pkg/logger"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// Source identifies quotes read from a Uniswap V3 pool.
const Source = "uniswap_v3"

// slot0() selector.
const slot0Selector = "0x3850c7bd"

var (
	ErrInvalidPoolAddress = errors.New("invalid pool address")
	ErrNoEndpoint         = errors.New("no rpc endpoint configured")
	ErrEmptyResult        = errors.New("empty slot0 result")
	ErrZeroPrice          = errors.New("pool sqrtPriceX96 is zero")
)

// two192 is 2^192, the square of the Q64.96 fixed-point scale.
var two192 = decimal.NewFromBigInt(new(big.Int).Lsh(big.NewInt(1), 192), 0)

var validate = validator.New()

// RPCError is a JSON-RPC error object returned by the node.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      int           `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type callMsg struct {
	To   string `json:"to"`
	Data string `json:"data"`
}

type rpcResponse struct {
	Result string    `json:"result"`
	Error  *RPCError `json:"error"`
}

// Oracle reads the spot price of a Uniswap V3 pool from slot0 over JSON-RPC.
type Oracle struct {
	endpoint string
	pool     string
	dec0     int
	dec1     int
	invert   bool
	client   *xhttp.Client
	now      func() time.Time
	l        *applogger.Logger
}

var _ repository.PriceOracle = (*Oracle)(nil)

// Option configures Oracle.
type Option func(*Oracle)

// WithDecimals sets token0 and token1 decimals.
func WithDecimals(token0, token1 int) Option {
	return func(o *Oracle) {
		o.dec0 = token0
		o.dec1 = token1
	}
}

// WithInvert quotes token0 in units of token1 instead of token1 in units of token0.
func WithInvert(invert bool) Option {
	return func(o *Oracle) {
		o.invert = invert
	}
}

// WithHTTPClient sets the HTTP client used for RPC calls.
func WithHTTPClient(c *xhttp.Client) Option {
	return func(o *Oracle) {
		o.client = c
	}
}

// WithClock overrides the quote timestamp source.
func WithClock(now func() time.Time) Option {
	return func(o *Oracle) {
		o.now = now
	}
}

// New creates a pool oracle. Defaults match a USDC(6)/WETH(18) pool quoted as USDC per ETH.
func New(endpoint, pool string, opts ...Option) (*Oracle, error) {
	if endpoint == "" {
		return nil, ErrNoEndpoint
	}
	if err := validate.Var(pool, "required,eth_addr"); err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPoolAddress, pool)
	}
	o := &Oracle{
		endpoint: endpoint,
		pool:     strings.ToLower(pool),
		dec0:     6,
		dec1:     18,
		invert:   true,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.client == nil {
		o.client = xhttp.NewClient(xhttp.WithTimeout(5*time.Second), xhttp.WithRetries(3))
	}
	return o, nil
}

// SetLogger injects a structured logger.
func (o *Oracle) SetLogger(l *applogger.Logger) { o.l = l }

func (o *Oracle) Source() string { return Source }

// CacheKey identifies the quote this oracle produces: pool, decimals and direction.
func (o *Oracle) CacheKey() string {
	return fmt.Sprintf("%s:%s:%d:%d:%t", Source, o.pool, o.dec0, o.dec1, o.invert)
}

// LatestPrice calls slot0 on the pool and converts sqrtPriceX96 to a human price.
func (o *Oracle) LatestPrice(ctx context.Context) (models.PriceQuote, error) {
	start := time.Now()
	req := rpcRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "eth_call",
		Params:  []interface{}{callMsg{To: o.pool, Data: slot0Selector}, "latest"},
	}

	var resp rpcResponse
	err := o.client.SendAndParseWithRetry(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodPost,
		URL:    o.endpoint,
		Body:   req,
	}, &resp)
	if err != nil {
		return models.PriceQuote{}, fmt.Errorf("slot0 call: %w", err)
	}
	if resp.Error != nil {
		return models.PriceQuote{}, resp.Error
	}

	sqrtPrice, err := decodeSqrtPrice(resp.Result)
	if err != nil {
		return models.PriceQuote{}, err
	}
	price := PriceFromSqrtX96(sqrtPrice, o.dec0, o.dec1, o.invert)

	if o.l != nil {
		o.l.Debug("uniswap slot0 ok",
			applogger.String("pool", o.pool),
			applogger.String("sqrt_price_x96", sqrtPrice.String()),
			applogger.String("price", price.String()),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}

	return models.PriceQuote{
		Price:     price.InexactFloat64(),
		Source:    Source,
		FetchedAt: o.now().UTC(),
	}, nil
}

// decodeSqrtPrice extracts the first ABI word of a slot0 result.
func decodeSqrtPrice(result string) (*big.Int, error) {
	hex := strings.TrimPrefix(strings.TrimPrefix(result, "0x"), "0X")
	if len(hex) < 64 {
		return nil, fmt.Errorf("%w: %d hex chars", ErrEmptyResult, len(hex))
	}
	v, ok := new(big.Int).SetString(hex[:64], 16)
	if !ok {
		return nil, fmt.Errorf("decode sqrtPriceX96: invalid hex %q", hex[:64])
	}
	if v.Sign() == 0 {
		return nil, ErrZeroPrice
	}
	return v, nil
}

// PriceFromSqrtX96 converts a pool sqrtPriceX96 into the price of token0 in
// token1 units, adjusted for decimals, or the reciprocal when invert is set.
func PriceFromSqrtX96(sqrtPriceX96 *big.Int, dec0, dec1 int, invert bool) decimal.Decimal {
	sq := decimal.NewFromBigInt(sqrtPriceX96, 0)
	squared := sq.Mul(sq)
	if invert {
		// 2^192 · 10^(d1-d0) / sq²
		return two192.Mul(decimal.New(1, int32(dec1-dec0))).DivRound(squared, 40)
	}
	// sq² · 10^(d0-d1) / 2^192
	return squared.Mul(decimal.New(1, int32(dec0-dec1))).DivRound(two192, 40)
}
