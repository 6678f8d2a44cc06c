package models

import "errors"

// Input errors raised by the probability model and the decision engine.
// Callers match them with errors.Is; the wrapped message carries the offending values.
var (
	ErrInvalidRange      = errors.New("invalid price range")
	ErrInvalidVolatility = errors.New("invalid volatility")
	ErrInvalidHorizon    = errors.New("invalid horizon")
	ErrInvalidPrior      = errors.New("invalid prior")
	ErrInvalidLikelihood = errors.New("invalid likelihood")
)

// ErrorCode maps a domain input error to a stable API error code.
// It returns "" for errors outside the taxonomy.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrInvalidRange):
		return "ERR_INVALID_RANGE"
	case errors.Is(err, ErrInvalidVolatility):
		return "ERR_INVALID_VOLATILITY"
	case errors.Is(err, ErrInvalidHorizon):
		return "ERR_INVALID_HORIZON"
	case errors.Is(err, ErrInvalidPrior):
		return "ERR_INVALID_PRIOR"
	case errors.Is(err, ErrInvalidLikelihood):
		return "ERR_INVALID_LIKELIHOOD"
	default:
		return ""
	}
}
