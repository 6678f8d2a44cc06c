package models

// Requests accepted by the HTTP API and the CLI. Defined in domain for reuse by both edges.

// EvaluateRequest describes one evaluation. Nil pointers and empty fields fall back to
// the configured engine defaults.
type EvaluateRequest struct {
	Pair            string   `json:"pair" validate:"max=32"`
	Lower           float64  `json:"lower" validate:"required,gt=0"`
	Upper           float64  `json:"upper" validate:"required,gtfield=Lower"`
	Volatility      *float64 `json:"volatility" validate:"required,gte=0,lte=1"`
	Price           float64  `json:"price,omitempty" validate:"omitempty,gt=0"`
	Horizons        []int    `json:"horizons,omitempty" validate:"omitempty,max=16,unique,dive,gt=0,lte=3650"`
	EvidenceHorizon int      `json:"evidence_horizon,omitempty" validate:"omitempty,gt=0,lte=3650"`
	Prior           *float64 `json:"prior,omitempty" validate:"omitempty,gt=0,lt=1"`
}

// HistoryRequest lists recent persisted evaluations.
type HistoryRequest struct {
	Pair  string `query:"pair" json:"pair" validate:"max=32"`
	Limit int    `query:"limit" json:"limit" default:"20" validate:"gte=1,lte=500"`
}
