// Package risk converts a fixed-dollar risk budget into a tradable lot size.
package risk

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// Sizer computes lot volumes from a fixed dollar risk per trade and the stop
// distance of the entry. All symbol attributes (pip size, pip value, lot
// limits) are fixed at construction.
type Sizer struct {
	riskPerTradeUSD float64
	pipSize         float64
	pipValuePerLot  float64
	minLot          float64
	maxLot          float64
	lotStep         float64

	// When true an under-minimum computed volume rejects the trade instead
	// of being floored to minLot.
	rejectBelowMin bool
}

// Config carries the sizer parameters.
type Config struct {
	RiskPerTradeUSD float64
	PipSize         float64
	PipValuePerLot  float64
	MinLot          float64
	MaxLot          float64
	LotStep         float64
	RejectBelowMin  bool
}

// NewSizer validates cfg and builds a Sizer. Invalid configuration is an
// error at construction, never a silent clamp.
func NewSizer(cfg Config) (*Sizer, error) {
	if cfg.RiskPerTradeUSD <= 0 {
		return nil, fmt.Errorf("risk per trade must be positive, got %v", cfg.RiskPerTradeUSD)
	}
	if cfg.PipSize <= 0 {
		return nil, fmt.Errorf("pip size must be positive, got %v", cfg.PipSize)
	}
	if cfg.PipValuePerLot <= 0 {
		return nil, fmt.Errorf("pip value per lot must be positive, got %v", cfg.PipValuePerLot)
	}
	if cfg.MinLot <= 0 || cfg.LotStep <= 0 {
		return nil, fmt.Errorf("min lot and lot step must be positive")
	}
	if cfg.MaxLot < cfg.MinLot {
		return nil, fmt.Errorf("max lot %v is below min lot %v", cfg.MaxLot, cfg.MinLot)
	}
	return &Sizer{
		riskPerTradeUSD: cfg.RiskPerTradeUSD,
		pipSize:         cfg.PipSize,
		pipValuePerLot:  cfg.PipValuePerLot,
		minLot:          cfg.MinLot,
		maxLot:          cfg.MaxLot,
		lotStep:         cfg.LotStep,
		rejectBelowMin:  cfg.RejectBelowMin,
	}, nil
}

// Size returns the lot volume that risks the configured dollar amount between
// entry and stop. The result is a multiple of the lot step within
// [minLot, maxLot]. It returns 0 when the trade cannot be sized: zero stop
// distance, non-finite prices, or an under-minimum volume while rejection is
// active.
func (s *Sizer) Size(entryPrice, stopPrice float64) float64 {
	if math.IsNaN(entryPrice) || math.IsInf(entryPrice, 0) ||
		math.IsNaN(stopPrice) || math.IsInf(stopPrice, 0) {
		return 0
	}

	stopDistancePips := math.Abs(entryPrice-stopPrice) / s.pipSize
	if stopDistancePips == 0 {
		return 0
	}

	valuePerPip := s.riskPerTradeUSD / stopDistancePips
	rawVolume := valuePerPip / s.pipValuePerLot

	volume := s.quantize(rawVolume)
	if volume > s.maxLot {
		volume = s.maxLot
	}
	if volume < s.minLot {
		if s.rejectBelowMin {
			return 0
		}
		volume = s.minLot
	}
	return volume
}

// quantize rounds the volume to the nearest lot-step multiple, half up.
// Decimal arithmetic keeps 0.01-lot steps exact.
func (s *Sizer) quantize(volume float64) float64 {
	v := decimal.NewFromFloat(volume)
	step := decimal.NewFromFloat(s.lotStep)
	steps := v.Div(step).Round(0)
	q, _ := steps.Mul(step).Float64()
	return q
}
