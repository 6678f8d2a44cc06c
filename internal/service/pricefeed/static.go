package pricefeed

import (
	"context"
	"fmt"
	"math"
	"time"

	"LPRange/internal/domain/models"
	"LPRange/internal/domain/repository"
)

// StaticSource identifies manually supplied prices.
const StaticSource = "static"

// StaticOracle always returns the same price.
type StaticOracle struct {
	price float64
	now   func() time.Time
}

var _ repository.PriceOracle = (*StaticOracle)(nil)

func NewStaticOracle(price float64) (*StaticOracle, error) {
	if !(price > 0) || math.IsInf(price, 1) {
		return nil, fmt.Errorf("%w: static price must be positive, got %v", models.ErrInvalidRange, price)
	}
	return &StaticOracle{price: price, now: time.Now}, nil
}

func (s *StaticOracle) Source() string { return StaticSource }

func (s *StaticOracle) LatestPrice(context.Context) (models.PriceQuote, error) {
	return models.PriceQuote{Price: s.price, Source: StaticSource, FetchedAt: s.now().UTC()}, nil
}
