package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"LPRange/internal/domain/models"
	"LPRange/internal/service/ratelimit"
	"LPRange/internal/services/bayes"
	"LPRange/internal/services/probability"
	"LPRange/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubEvaluator struct {
	last    usecase.EvaluateParams
	err     error
	history []models.EvaluationSummary
	pair    string
	limit   int
}

func (s *stubEvaluator) Evaluate(_ context.Context, p usecase.EvaluateParams) (*models.Evaluation, error) {
	s.last = p
	if s.err != nil {
		return nil, s.err
	}
	return &models.Evaluation{
		ID:              "id-1",
		Pair:            p.Pair,
		Quote:           models.PriceQuote{Price: p.Price, Source: usecase.ManualSource},
		Range:           p.Range,
		EvidenceHorizon: 14,
		Result:          models.DecisionResult{Posterior: 0.3, Decision: models.DecisionDoNothing},
	}, nil
}

func (s *stubEvaluator) Recent(_ context.Context, pair string, limit int) ([]models.EvaluationSummary, error) {
	s.pair, s.limit = pair, limit
	if s.err != nil {
		return nil, s.err
	}
	return s.history, nil
}

type envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func serve(t *testing.T, h *EvaluateHandler, method, target, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	e := echo.New()
	h.RegisterRoutes(e)

	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec, env
}

func errorCodes(t *testing.T, raw json.RawMessage) []string {
	t.Helper()
	var items []struct {
		Code string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(raw, &items))
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.Code)
	}
	return out
}

func TestEvaluatePost_EndToEnd(t *testing.T) {
	uc := usecase.NewEvaluator(probability.NewGBMModel(), bayes.NewEngine(0.5), usecase.EvaluatorConfig{Pair: "ETH/USDC"})
	h := NewEvaluateHandler(nil, uc)

	rec, env := serve(t, h, http.MethodPost, "/api/evaluate",
		`{"lower":2800,"upper":3600,"volatility":0.75,"price":3200}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "no-store", rec.Header().Get(echo.HeaderCacheControl))

	var doc struct {
		Pair          string `json:"pair"`
		Label         string `json:"label"`
		Probabilities []struct {
			Horizon     int     `json:"horizon_days"`
			Probability float64 `json:"probability"`
		} `json:"probabilities"`
		Result models.DecisionResult `json:"result"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &doc))
	assert.Equal(t, "ETH/USDC", doc.Pair)
	require.Len(t, doc.Probabilities, 5)
	assert.Equal(t, 14, doc.Probabilities[0].Horizon)
	assert.InDelta(t, 0.6076200107098556, doc.Probabilities[0].Probability, 1e-9)
	assert.InDelta(t, 0.5079627930595974, doc.Result.Posterior, 1e-9)
	assert.Equal(t, models.DecisionProvideLiquidity, doc.Result.Decision)
	assert.Equal(t, "LP ALLOWED", doc.Label)
}

func TestEvaluatePost_ValidationErrors(t *testing.T) {
	cases := []struct {
		name string
		body string
		code string
	}{
		{"missing volatility", `{"lower":2800,"upper":3600}`, "ERR_REQUIRED"},
		{"upper below lower", `{"lower":3600,"upper":2800,"volatility":0.5}`, "ERR_GTFIELD"},
		{"volatility above one", `{"lower":2800,"upper":3600,"volatility":1.5}`, "ERR_LTE"},
		{"prior at one", `{"lower":2800,"upper":3600,"volatility":0.5,"prior":1}`, "ERR_LT"},
		{"duplicate horizons", `{"lower":2800,"upper":3600,"volatility":0.5,"horizons":[14,14]}`, "ERR_UNIQUE"},
		{"malformed json", `{"lower":`, "ERR_BAD_REQUEST"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			uc := &stubEvaluator{}
			rec, env := serve(t, NewEvaluateHandler(nil, uc), http.MethodPost, "/api/evaluate", tc.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, errorCodes(t, env.Data), tc.code)
		})
	}
}

func TestEvaluatePost_ZeroVolatilityAllowed(t *testing.T) {
	uc := &stubEvaluator{}
	rec, _ := serve(t, NewEvaluateHandler(nil, uc), http.MethodPost, "/api/evaluate",
		`{"lower":2800,"upper":3600,"volatility":0,"price":3200}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0.0, uc.last.Volatility)
}

func TestEvaluateGet_BindsQuery(t *testing.T) {
	uc := &stubEvaluator{}
	rec, _ := serve(t, NewEvaluateHandler(nil, uc), http.MethodGet,
		"/api/evaluate?pair=WBTC/USDC&lower=2800&upper=3600&volatility=0.75&price=3200&horizons=7,30&evidence_horizon=30&prior=0.3", "")
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, "WBTC/USDC", uc.last.Pair)
	assert.Equal(t, models.PriceRange{Lower: 2800, Upper: 3600}, uc.last.Range)
	assert.Equal(t, 0.75, uc.last.Volatility)
	assert.Equal(t, []int{7, 30}, uc.last.Horizons)
	assert.Equal(t, 30, uc.last.EvidenceHorizon)
	require.NotNil(t, uc.last.Prior)
	assert.Equal(t, 0.3, *uc.last.Prior)
}

func TestEvaluateGet_InfinitePriceIsBadRequest(t *testing.T) {
	uc := usecase.NewEvaluator(probability.NewGBMModel(), bayes.NewEngine(0.5), usecase.EvaluatorConfig{Pair: "ETH/USDC"})
	rec, env := serve(t, NewEvaluateHandler(nil, uc), http.MethodGet,
		"/api/evaluate?lower=2800&upper=3600&volatility=0.75&price=Inf", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, []string{"ERR_INVALID_RANGE"}, errorCodes(t, env.Data))
}

func TestEvaluateGet_BadQuery(t *testing.T) {
	for _, q := range []string{
		"lower=abc&upper=3600&volatility=0.5",
		"lower=2800&upper=3600&volatility=high",
		"lower=2800&upper=3600&volatility=0.5&horizons=14,x",
		"lower=2800&upper=3600",
	} {
		t.Run(q, func(t *testing.T) {
			rec, _ := serve(t, NewEvaluateHandler(nil, &stubEvaluator{}), http.MethodGet, "/api/evaluate?"+q, "")
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestEvaluate_ErrorMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{fmt.Errorf("%w: horizon 7d", models.ErrInvalidHorizon), http.StatusBadRequest, "ERR_INVALID_HORIZON"},
		{usecase.ErrNoPriceSource, http.StatusBadRequest, "ERR_NO_PRICE"},
		{fmt.Errorf("%w (uniswap_v3): %w", usecase.ErrPriceFetch, errors.New("timeout")), http.StatusBadGateway, "ERR_UPSTREAM"},
		{errors.New("boom"), http.StatusInternalServerError, "ERR_INTERNAL"},
	}
	for _, tc := range cases {
		t.Run(tc.code, func(t *testing.T) {
			uc := &stubEvaluator{err: tc.err}
			rec, env := serve(t, NewEvaluateHandler(nil, uc), http.MethodPost, "/api/evaluate",
				`{"lower":2800,"upper":3600,"volatility":0.5}`)
			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, []string{tc.code}, errorCodes(t, env.Data))
		})
	}
}

func TestHistory(t *testing.T) {
	uc := &stubEvaluator{history: []models.EvaluationSummary{{ID: "a"}, {ID: "b"}}}
	rec, env := serve(t, NewEvaluateHandler(nil, uc), http.MethodGet, "/api/evaluations?pair=ETH/USDC", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ETH/USDC", uc.pair)
	assert.Equal(t, 20, uc.limit)

	var list struct {
		Rows  []models.EvaluationSummary `json:"rows"`
		Total int64                      `json:"total"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.Equal(t, int64(2), list.Total)

	rec, _ = serve(t, NewEvaluateHandler(nil, uc), http.MethodGet, "/api/evaluations?limit=1000", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = serve(t, NewEvaluateHandler(nil, &stubEvaluator{err: usecase.ErrHistoryDisabled}), http.MethodGet, "/api/evaluations", "")
	assert.Equal(t, http.StatusNotImplemented, rec.Code)
}

func TestRateLimit(t *testing.T) {
	h := NewEvaluateHandler(nil, &stubEvaluator{})
	h.SetRateLimiter(ratelimit.New(0.001, 1))
	e := echo.New()
	h.RegisterRoutes(e)

	codes := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/evaluations", nil)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestHealth(t *testing.T) {
	h := NewEvaluateHandler(nil, &stubEvaluator{})
	h.AddHealthCheck("clickhouse", func(context.Context) error { return nil })
	rec, _ := serve(t, h, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	h.AddHealthCheck("redis", func(context.Context) error { return errors.New("refused") })
	rec, env := serve(t, h, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var checks map[string]string
	require.NoError(t, json.Unmarshal(env.Data, &checks))
	assert.Equal(t, "ok", checks["clickhouse"])
	assert.Equal(t, "refused", checks["redis"])
}
