package controller

import (
	"fmt"
	"math/big"

	"feeScope/internal/feemath"
)

// Bounds are the externally supplied global sanity ranges a parameter set
// must satisfy before it is accepted. The administrative layer decides the
// numbers; the controller only enforces them.
type Bounds struct {
	AbsMinFee     uint64
	AbsMaxFee     uint64
	MinCooldown   uint64 // seconds
	MaxCooldown   uint64 // seconds
	MaxLookback   uint64 // days
	MaxTolerance  *big.Int
	MaxSideFactor *big.Int
	MaxAdjRate    *big.Int
}

// DefaultBounds covers the full fee domain with a one-minute-to-30-day
// cooldown span and permissive WAD multipliers.
func DefaultBounds() Bounds {
	return Bounds{
		AbsMinFee:     0,
		AbsMaxFee:     feemath.MaxFeeUnits,
		MinCooldown:   60,
		MaxCooldown:   30 * 24 * 3600,
		MaxLookback:   365,
		MaxTolerance:  feemath.WAD,
		MaxSideFactor: new(big.Int).Mul(feemath.WAD, big.NewInt(100)),
		MaxAdjRate:    feemath.WAD,
	}
}

// ValidateParams checks a parameter set against the global sanity bounds.
// All failures wrap ErrInvalidParameter.
func ValidateParams(p feemath.Params, b Bounds) error {
	if p.MinFee > p.MaxFee {
		return fmt.Errorf("min fee %d above max fee %d: %w", p.MinFee, p.MaxFee, ErrInvalidParameter)
	}
	if p.MinFee < b.AbsMinFee || p.MaxFee > b.AbsMaxFee {
		return fmt.Errorf("fee range [%d,%d] outside [%d,%d]: %w",
			p.MinFee, p.MaxFee, b.AbsMinFee, b.AbsMaxFee, ErrInvalidParameter)
	}
	if p.MinPeriod < b.MinCooldown || p.MinPeriod > b.MaxCooldown {
		return fmt.Errorf("cooldown %ds outside [%ds,%ds]: %w",
			p.MinPeriod, b.MinCooldown, b.MaxCooldown, ErrInvalidParameter)
	}
	if p.LookbackPeriod == 0 || p.LookbackPeriod > b.MaxLookback {
		return fmt.Errorf("lookback %dd outside [1,%d]: %w", p.LookbackPeriod, b.MaxLookback, ErrInvalidParameter)
	}
	if err := validateWad("ratio tolerance", p.RatioTolerance, b.MaxTolerance); err != nil {
		return err
	}
	if p.LinearSlope == nil || p.LinearSlope.Sign() <= 0 {
		return fmt.Errorf("linear slope must be positive: %w", ErrInvalidParameter)
	}
	if p.MaxCurrentRatio == nil || p.MaxCurrentRatio.Sign() <= 0 {
		return fmt.Errorf("max current ratio must be positive: %w", ErrInvalidParameter)
	}
	if err := validateWad("lower side factor", p.LowerSideFactor, b.MaxSideFactor); err != nil {
		return err
	}
	if err := validateWad("upper side factor", p.UpperSideFactor, b.MaxSideFactor); err != nil {
		return err
	}
	return nil
}

// ValidateAdjustmentRate checks the per-update adjustment-rate ceiling.
func ValidateAdjustmentRate(rate *big.Int, b Bounds) error {
	if rate == nil || rate.Sign() <= 0 {
		return fmt.Errorf("adjustment rate must be positive: %w", ErrInvalidParameter)
	}
	if b.MaxAdjRate != nil && rate.Cmp(b.MaxAdjRate) > 0 {
		return fmt.Errorf("adjustment rate %s above ceiling %s: %w", rate, b.MaxAdjRate, ErrInvalidParameter)
	}
	return nil
}

func validateWad(name string, value, max *big.Int) error {
	if value == nil || value.Sign() <= 0 {
		return fmt.Errorf("%s must be positive: %w", name, ErrInvalidParameter)
	}
	if max != nil && value.Cmp(max) > 0 {
		return fmt.Errorf("%s %s above ceiling %s: %w", name, value, max, ErrInvalidParameter)
	}
	return nil
}
