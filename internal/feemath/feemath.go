package feemath

import "math/big"

// WAD is the 18-decimal fixed-point scale: 1.0 is encoded as 1e18.
var WAD = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

// MaxFeeUnits is the top of the fee domain in parts-per-million of notional.
const MaxFeeUnits = 1_000_000

// capAllowance keeps the per-update delta cap from collapsing to zero when
// the current fee (and with it the rate-based cap) is near zero.
const capAllowance = 1

// Params is the tunable parameter set for one pool (or pool category).
// Fee fields are in ppm, ratio fields are WAD fixed point.
type Params struct {
	MinFee          uint64
	MaxFee          uint64
	BaseMaxFeeDelta uint64
	LookbackPeriod  uint64 // EMA window, whole days
	MinPeriod       uint64 // cooldown between committed updates, seconds
	RatioTolerance  *big.Int
	LinearSlope     *big.Int
	MaxCurrentRatio *big.Int
	LowerSideFactor *big.Int
	UpperSideFactor *big.Int
}

// OOBState tracks the out-of-bounds streak across observations.
type OOBState struct {
	LastSideWasUpper bool
	ConsecutiveHits  uint64
}

// ClampFee clamps fee into [minFee, maxFee]. Inputs of any magnitude
// (including negative intermediates) saturate to the nearer bound.
func ClampFee(fee *big.Int, minFee, maxFee uint64) uint64 {
	if fee == nil {
		return minFee
	}
	if fee.Cmp(new(big.Int).SetUint64(minFee)) < 0 {
		return minFee
	}
	if fee.Cmp(new(big.Int).SetUint64(maxFee)) > 0 {
		return maxFee
	}
	return fee.Uint64()
}

// WithinBounds classifies current against the tolerance band around target.
// The band is target ± target·tolerance/WAD, boundary inclusive. A zero
// target has an empty band: only current == 0 is in band, anything positive
// is upper. isUpper and inBand are never both true.
func WithinBounds(target, tolerance, current *big.Int) (isUpper bool, inBand bool) {
	cur := current
	if cur == nil {
		cur = new(big.Int)
	}
	if target == nil || target.Sign() == 0 {
		if cur.Sign() == 0 {
			return false, true
		}
		return true, false
	}

	delta := new(big.Int).Mul(target, tolerance)
	delta.Quo(delta, WAD)
	lower := new(big.Int).Sub(target, delta)
	upper := new(big.Int).Add(target, delta)

	if cur.Cmp(lower) >= 0 && cur.Cmp(upper) <= 0 {
		return false, true
	}
	return cur.Cmp(upper) > 0, false
}

// EMA returns one smoothing step of previous toward current with
// alpha = 2·WAD/(lookbackDays+1), saturated at WAD. lookbackDays == 1
// yields current exactly; larger windows pull the result toward previous.
// The result always lies between current and previous.
func EMA(current, previous *big.Int, lookbackDays uint64) *big.Int {
	if lookbackDays == 0 {
		lookbackDays = 1
	}
	alpha := new(big.Int).Lsh(WAD, 1)
	alpha.Quo(alpha, new(big.Int).SetUint64(lookbackDays+1))
	if alpha.Cmp(WAD) > 0 {
		alpha.Set(WAD)
	}

	step := new(big.Int).Sub(current, previous)
	step.Mul(step, alpha)
	step.Quo(step, WAD)
	return new(big.Int).Add(previous, step)
}

// ComputeNewFee is the composite fee decision for one observation.
//
// In-band observations (and a zero target) leave the fee untouched apart
// from clamping and reset the streak counter. Out-of-band observations
// grow or reset the streak depending on which side of the band was hit,
// derive a fee delta from how far past the tolerance boundary the ratio
// landed, cap it, and apply it toward the violated side.
func ComputeNewFee(
	currentFee uint64,
	currentRatio, targetRatio, maxAdjRate *big.Int,
	p Params,
	oob OOBState,
) (uint64, OOBState) {
	fee := new(big.Int).SetUint64(currentFee)
	if targetRatio == nil || targetRatio.Sign() == 0 {
		return ClampFee(fee, p.MinFee, p.MaxFee), OOBState{LastSideWasUpper: oob.LastSideWasUpper}
	}

	isUpper, inBand := WithinBounds(targetRatio, p.RatioTolerance, currentRatio)
	if inBand {
		return ClampFee(fee, p.MinFee, p.MaxFee), OOBState{LastSideWasUpper: oob.LastSideWasUpper}
	}

	next := OOBState{LastSideWasUpper: isUpper, ConsecutiveHits: 1}
	if oob.ConsecutiveHits > 0 && isUpper == oob.LastSideWasUpper {
		next.ConsecutiveHits = oob.ConsecutiveHits + 1
	}

	delta := proposedDelta(currentRatio, targetRatio, isUpper, p)
	limit := deltaCap(currentFee, next.ConsecutiveHits, p.BaseMaxFeeDelta, maxAdjRate)
	if delta.Cmp(limit) > 0 {
		delta.Set(limit)
	}

	if isUpper {
		fee.Add(fee, delta)
	} else {
		fee.Sub(fee, delta)
	}
	return ClampFee(fee, p.MinFee, p.MaxFee), next
}

// proposedDelta maps the distance past the violated tolerance boundary,
// normalized by the target, through the linear slope and the side factor
// into fee units.
func proposedDelta(currentRatio, targetRatio *big.Int, isUpper bool, p Params) *big.Int {
	tolDelta := new(big.Int).Mul(targetRatio, p.RatioTolerance)
	tolDelta.Quo(tolDelta, WAD)

	dist := new(big.Int)
	side := p.LowerSideFactor
	if isUpper {
		bound := new(big.Int).Add(targetRatio, tolDelta)
		dist.Sub(currentRatio, bound)
		side = p.UpperSideFactor
	} else {
		bound := new(big.Int).Sub(targetRatio, tolDelta)
		dist.Sub(bound, currentRatio)
	}
	if dist.Sign() < 0 {
		dist.SetInt64(0)
	}

	deviation := dist.Mul(dist, WAD)
	deviation.Quo(deviation, targetRatio)

	deviation.Mul(deviation, p.LinearSlope)
	deviation.Quo(deviation, WAD)
	deviation.Mul(deviation, side)
	deviation.Quo(deviation, WAD)
	deviation.Mul(deviation, big.NewInt(MaxFeeUnits))
	deviation.Quo(deviation, WAD)
	return deviation
}

// deltaCap combines the streak-amplified base cap with the rate-based cap
// (maxAdjRate applied as a WAD fraction of the current fee). The binding cap
// is the smaller of the two, plus a fixed one-unit allowance.
func deltaCap(currentFee uint64, hits uint64, baseMaxDelta uint64, maxAdjRate *big.Int) *big.Int {
	limit := new(big.Int).SetUint64(baseMaxDelta)
	limit.Mul(limit, new(big.Int).SetUint64(hits))

	if maxAdjRate != nil && maxAdjRate.Sign() > 0 {
		rateCap := new(big.Int).SetUint64(currentFee)
		rateCap.Mul(rateCap, maxAdjRate)
		rateCap.Quo(rateCap, WAD)
		if rateCap.Cmp(limit) < 0 {
			limit = rateCap
		}
	}

	return limit.Add(limit, big.NewInt(capAllowance))
}
