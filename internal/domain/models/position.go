package models

import (
	"fmt"
	"math"
	"sort"
)

// DefaultPrior is the base-rate belief that providing liquidity is justified
// before any market evidence is observed.
const DefaultPrior = 0.40

// PriceRange is the band a concentrated liquidity position is active in.
type PriceRange struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

// Validate checks 0 < Lower < Upper. Upper may be +Inf for an unbounded range.
func (r PriceRange) Validate() error {
	if !(r.Lower > 0) {
		return fmt.Errorf("%w: lower bound %v must be positive", ErrInvalidRange, r.Lower)
	}
	if !(r.Lower < r.Upper) {
		return fmt.Errorf("%w: lower bound %v must be below upper bound %v", ErrInvalidRange, r.Lower, r.Upper)
	}
	return nil
}

// IsFinite reports whether both bounds are finite numbers.
func (r PriceRange) IsFinite() bool {
	return !math.IsInf(r.Lower, 0) && !math.IsInf(r.Upper, 0)
}

// Contains reports whether price lies in the closed interval [Lower, Upper].
func (r PriceRange) Contains(price float64) bool {
	return r.Lower <= price && price <= r.Upper
}

// MarketSnapshot is a single point-in-time observation of the reference asset.
// Volatility is annualized and supplied externally.
type MarketSnapshot struct {
	Price      float64 `json:"price"`
	Volatility float64 `json:"volatility"`
}

// Validate checks the price is positive and finite and the volatility non-negative.
func (s MarketSnapshot) Validate() error {
	if !(s.Price > 0) || math.IsInf(s.Price, 1) {
		return fmt.Errorf("%w: current price %v must be positive and finite", ErrInvalidRange, s.Price)
	}
	if !(s.Volatility >= 0) || math.IsInf(s.Volatility, 1) {
		return fmt.Errorf("%w: annualized volatility %v must be finite and non-negative", ErrInvalidVolatility, s.Volatility)
	}
	return nil
}

// Horizon is a number of days until the probability is evaluated.
type Horizon int

// Validate checks the horizon is at least one day.
func (h Horizon) Validate() error {
	if h <= 0 {
		return fmt.Errorf("%w: horizon %d days must be positive", ErrInvalidHorizon, int(h))
	}
	return nil
}

// HorizonSet is an ordered set of distinct horizons. Order is evaluation order.
type HorizonSet []Horizon

// DefaultHorizons returns the stock evaluation horizons in days.
func DefaultHorizons() HorizonSet {
	return HorizonSet{14, 30, 60, 90, 180}
}

// NewHorizonSet converts raw day counts into a validated set.
func NewHorizonSet(days []int) (HorizonSet, error) {
	hs := make(HorizonSet, 0, len(days))
	for _, d := range days {
		hs = append(hs, Horizon(d))
	}
	if err := hs.Validate(); err != nil {
		return nil, err
	}
	return hs, nil
}

// Validate checks the set is non-empty with positive, distinct members.
func (hs HorizonSet) Validate() error {
	if len(hs) == 0 {
		return fmt.Errorf("%w: horizon set is empty", ErrInvalidHorizon)
	}
	seen := make(map[Horizon]struct{}, len(hs))
	for _, h := range hs {
		if err := h.Validate(); err != nil {
			return err
		}
		if _, dup := seen[h]; dup {
			return fmt.Errorf("%w: horizon %d days listed twice", ErrInvalidHorizon, int(h))
		}
		seen[h] = struct{}{}
	}
	return nil
}

// Shortest returns the minimum horizon, or 0 for an empty set.
func (hs HorizonSet) Shortest() Horizon {
	if len(hs) == 0 {
		return 0
	}
	min := hs[0]
	for _, h := range hs[1:] {
		if h < min {
			min = h
		}
	}
	return min
}

// Contains reports whether h is a member of the set.
func (hs HorizonSet) Contains(h Horizon) bool {
	for _, x := range hs {
		if x == h {
			return true
		}
	}
	return false
}

// Sorted returns an ascending copy of the set.
func (hs HorizonSet) Sorted() HorizonSet {
	out := append(HorizonSet(nil), hs...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Days returns the set as plain integers.
func (hs HorizonSet) Days() []int {
	out := make([]int, len(hs))
	for i, h := range hs {
		out[i] = int(h)
	}
	return out
}

// InRangeProbability is the model output for a single horizon.
type InRangeProbability struct {
	Horizon     Horizon `json:"horizon_days"`
	Probability float64 `json:"probability"`
}
