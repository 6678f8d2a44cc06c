package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"LPRange/internal/domain/models"
	"LPRange/internal/report"
	"LPRange/internal/service/ratelimit"
	"LPRange/internal/usecase"
	xhttp "LPRange/pkg/http"
	xlogger "LPRange/pkg/logger"

	"github.com/labstack/echo/v4"
)

// Evaluator is the use case behind the evaluation routes.
type Evaluator interface {
	Evaluate(ctx context.Context, p usecase.EvaluateParams) (*models.Evaluation, error)
	Recent(ctx context.Context, pair string, limit int) ([]models.EvaluationSummary, error)
}

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

// EvaluateHandler serves evaluations over HTTP.
type EvaluateHandler struct {
	logger *xlogger.Logger
	uc     Evaluator
	rl     *ratelimit.Limiter
	checks map[string]HealthCheck
}

func NewEvaluateHandler(logger *xlogger.Logger, uc Evaluator) *EvaluateHandler {
	return &EvaluateHandler{logger: logger, uc: uc, checks: map[string]HealthCheck{}}
}

// SetRateLimiter enables per-client rate limiting on /api routes.
func (h *EvaluateHandler) SetRateLimiter(rl *ratelimit.Limiter) { h.rl = rl }

// AddHealthCheck registers a dependency checked by /healthz.
func (h *EvaluateHandler) AddHealthCheck(name string, check HealthCheck) { h.checks[name] = check }

func (h *EvaluateHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)

	g := e.Group("/api", h.rateLimit)
	g.POST("/evaluate", h.EvaluatePost)
	g.GET("/evaluate", h.EvaluateGet)
	g.GET("/evaluations", h.History)
}

func (h *EvaluateHandler) rateLimit(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if h.rl != nil && !h.rl.Allow(c.RealIP()) {
			return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("rate limit exceeded"))
		}
		return next(c)
	}
}

func (h *EvaluateHandler) EvaluatePost(c echo.Context) error {
	req := &models.EvaluateRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	return h.evaluate(c, req)
}

func (h *EvaluateHandler) EvaluateGet(c echo.Context) error {
	req, err := bindEvaluateQuery(c)
	if err != nil {
		return xhttp.BadRequestResponse(c, []xhttp.ValidationError{{Code: "ERR_BAD_REQUEST", Message: err.Error()}})
	}
	if verr := xhttp.ValidateRequest(c.Request().Context(), req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	return h.evaluate(c, req)
}

func (h *EvaluateHandler) evaluate(c echo.Context, req *models.EvaluateRequest) error {
	ev, err := h.uc.Evaluate(c.Request().Context(), ToParams(req))
	if err != nil {
		return h.fail(c, "evaluate", err)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "no-store")
	return xhttp.SuccessResponse(c, report.NewDocument(ev))
}

func (h *EvaluateHandler) History(c echo.Context) error {
	req := &models.HistoryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	rows, err := h.uc.Recent(c.Request().Context(), req.Pair, req.Limit)
	if err != nil {
		return h.fail(c, "history", err)
	}
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

func (h *EvaluateHandler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	checks := make(map[string]string, len(h.checks))
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			checks[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}
	return xhttp.DataResponse(c, status, checks)
}

func (h *EvaluateHandler) fail(c echo.Context, op string, err error) error {
	appErr := toAppError(err)
	if appErr.Status >= http.StatusInternalServerError && h.logger != nil {
		h.logger.Error(op+" usecase error", xlogger.Error(err))
	}
	return xhttp.AppErrorResponse(c, appErr)
}

func toAppError(err error) *xhttp.AppError {
	if code := models.ErrorCode(err); code != "" {
		return xhttp.NewAppError(code, "", err.Error(), http.StatusBadRequest).WithError(err)
	}
	switch {
	case errors.Is(err, usecase.ErrNoPriceSource):
		return xhttp.NewAppError("ERR_NO_PRICE", "price", err.Error(), http.StatusBadRequest)
	case errors.Is(err, usecase.ErrPriceFetch):
		return xhttp.BadGatewayError(err.Error()).WithError(err)
	case errors.Is(err, usecase.ErrHistoryDisabled):
		return xhttp.NewAppError("ERR_HISTORY_DISABLED", "", err.Error(), http.StatusNotImplemented)
	default:
		return xhttp.InternalError("evaluation failed").WithError(err)
	}
}

// ToParams converts a validated request into use case parameters.
func ToParams(req *models.EvaluateRequest) usecase.EvaluateParams {
	p := usecase.EvaluateParams{
		Pair:            req.Pair,
		Range:           models.PriceRange{Lower: req.Lower, Upper: req.Upper},
		Price:           req.Price,
		Horizons:        req.Horizons,
		EvidenceHorizon: req.EvidenceHorizon,
		Prior:           req.Prior,
	}
	if req.Volatility != nil {
		p.Volatility = *req.Volatility
	}
	return p
}

// bindEvaluateQuery reads an EvaluateRequest from query parameters.
// horizons accepts a comma separated list.
func bindEvaluateQuery(c echo.Context) (*models.EvaluateRequest, error) {
	req := &models.EvaluateRequest{}
	var horizons string
	err := echo.QueryParamsBinder(c).
		String("pair", &req.Pair).
		Float64("lower", &req.Lower).
		Float64("upper", &req.Upper).
		Float64("price", &req.Price).
		Int("evidence_horizon", &req.EvidenceHorizon).
		String("horizons", &horizons).
		BindError()
	if err != nil {
		return nil, err
	}

	if req.Volatility, err = optionalFloat(c, "volatility"); err != nil {
		return nil, err
	}
	if req.Prior, err = optionalFloat(c, "prior"); err != nil {
		return nil, err
	}
	if horizons != "" {
		for _, s := range strings.Split(horizons, ",") {
			d, err := strconv.Atoi(strings.TrimSpace(s))
			if err != nil {
				return nil, errors.New("horizons must be a comma separated list of days")
			}
			req.Horizons = append(req.Horizons, d)
		}
	}
	return req, nil
}

func optionalFloat(c echo.Context, name string) (*float64, error) {
	s := c.QueryParam(name)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, errors.New(name + " must be a number")
	}
	return &v, nil
}
