package feemath

import (
	"math/big"
	"testing"
)

func wad(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), WAD)
}

// wadFrac returns num/den scaled to WAD.
func wadFrac(num, den int64) *big.Int {
	v := new(big.Int).Mul(big.NewInt(num), WAD)
	return v.Quo(v, big.NewInt(den))
}

func testParams() Params {
	return Params{
		MinFee:          100,
		MaxFee:          10000,
		BaseMaxFeeDelta: 200,
		LookbackPeriod:  30,
		MinPeriod:       3600,
		RatioTolerance:  wadFrac(5, 100),
		LinearSlope:     wadFrac(1, 10),
		MaxCurrentRatio: wad(100),
		LowerSideFactor: WAD,
		UpperSideFactor: WAD,
	}
}

func TestClampFeeInRange(t *testing.T) {
	if got := ClampFee(big.NewInt(5000), 100, 10000); got != 5000 {
		t.Fatalf("in-range fee changed: %d", got)
	}
}

func TestClampFeeSaturates(t *testing.T) {
	if got := ClampFee(big.NewInt(50), 100, 10000); got != 100 {
		t.Fatalf("below min: got %d, want 100", got)
	}
	if got := ClampFee(big.NewInt(20000), 100, 10000); got != 10000 {
		t.Fatalf("above max: got %d, want 10000", got)
	}
	if got := ClampFee(big.NewInt(-42), 100, 10000); got != 100 {
		t.Fatalf("negative: got %d, want 100", got)
	}

	huge := new(big.Int).Mul(WAD, WAD)
	if got := ClampFee(huge, 100, 10000); got != 10000 {
		t.Fatalf("oversized: got %d, want 10000", got)
	}
}

func TestClampFeeIdempotent(t *testing.T) {
	inputs := []*big.Int{big.NewInt(-5), big.NewInt(0), big.NewInt(500), big.NewInt(99999)}
	for _, in := range inputs {
		once := ClampFee(in, 100, 10000)
		twice := ClampFee(new(big.Int).SetUint64(once), 100, 10000)
		if once != twice {
			t.Fatalf("not idempotent for %s: %d != %d", in, once, twice)
		}
	}
}

func TestWithinBoundsBand(t *testing.T) {
	target := wad(1)
	tolerance := wadFrac(5, 100)

	cases := []struct {
		name    string
		current *big.Int
		isUpper bool
		inBand  bool
	}{
		{"at target", wad(1), false, true},
		{"at upper boundary", wadFrac(105, 100), false, true},
		{"at lower boundary", wadFrac(95, 100), false, true},
		{"one past upper", new(big.Int).Add(wadFrac(105, 100), big.NewInt(1)), true, false},
		{"one past lower", new(big.Int).Sub(wadFrac(95, 100), big.NewInt(1)), false, false},
		{"far above", wad(2), true, false},
		{"far below", wadFrac(1, 2), false, false},
	}

	for _, tc := range cases {
		isUpper, inBand := WithinBounds(target, tolerance, tc.current)
		if isUpper != tc.isUpper || inBand != tc.inBand {
			t.Fatalf("%s: got (upper=%v, inBand=%v), want (upper=%v, inBand=%v)",
				tc.name, isUpper, inBand, tc.isUpper, tc.inBand)
		}
		if isUpper && inBand {
			t.Fatalf("%s: isUpper and inBand both true", tc.name)
		}
	}
}

func TestWithinBoundsZeroTarget(t *testing.T) {
	if isUpper, inBand := WithinBounds(big.NewInt(0), wadFrac(5, 100), big.NewInt(0)); !inBand || isUpper {
		t.Fatalf("zero target, zero current: got (upper=%v, inBand=%v)", isUpper, inBand)
	}
	if isUpper, inBand := WithinBounds(big.NewInt(0), wadFrac(5, 100), big.NewInt(1)); !isUpper || inBand {
		t.Fatalf("zero target, positive current: got (upper=%v, inBand=%v)", isUpper, inBand)
	}
}

func TestEMAEqualInputs(t *testing.T) {
	got := EMA(wad(3), wad(3), 30)
	if got.Cmp(wad(3)) != 0 {
		t.Fatalf("equal inputs: got %s", got)
	}
}

func TestEMALookbackOne(t *testing.T) {
	got := EMA(wad(7), wad(3), 1)
	if got.Cmp(wad(7)) != 0 {
		t.Fatalf("lookback 1 should return current: got %s", got)
	}
}

func TestEMABetweenInputs(t *testing.T) {
	prev := wad(1)
	cur := wad(2)
	got := EMA(cur, prev, 30)
	if got.Cmp(prev) < 0 || got.Cmp(cur) > 0 {
		t.Fatalf("result %s outside [%s, %s]", got, prev, cur)
	}

	down := EMA(prev, cur, 30)
	if down.Cmp(prev) < 0 || down.Cmp(cur) > 0 {
		t.Fatalf("result %s outside [%s, %s]", down, prev, cur)
	}
}

func TestEMALongerLookbackSmoothsMore(t *testing.T) {
	prev := wad(1)
	cur := wad(2)

	short := EMA(cur, prev, 7)
	long := EMA(cur, prev, 90)
	if long.Cmp(short) > 0 {
		t.Fatalf("longer lookback moved further: %s > %s", long, short)
	}

	shortDown := EMA(prev, cur, 7)
	longDown := EMA(prev, cur, 90)
	if longDown.Cmp(shortDown) < 0 {
		t.Fatalf("longer lookback moved further down: %s < %s", longDown, shortDown)
	}
}

func TestComputeNewFeeInBand(t *testing.T) {
	p := testParams()
	oob := OOBState{LastSideWasUpper: true, ConsecutiveHits: 3}

	fee, next := ComputeNewFee(5000, wad(1), wad(1), WAD, p, oob)
	if fee != 5000 {
		t.Fatalf("in-band fee changed: %d", fee)
	}
	if next.ConsecutiveHits != 0 {
		t.Fatalf("streak not reset: %d", next.ConsecutiveHits)
	}
	if !next.LastSideWasUpper {
		t.Fatalf("in-band reset should keep the last side")
	}
}

func TestComputeNewFeeFirstUpperHit(t *testing.T) {
	p := testParams()
	fee, next := ComputeNewFee(5000, wadFrac(12, 10), wad(1), WAD, p, OOBState{})
	if fee < 5000 {
		t.Fatalf("upper hit decreased fee: %d", fee)
	}
	if fee > p.MaxFee {
		t.Fatalf("fee above max: %d", fee)
	}
	if !next.LastSideWasUpper {
		t.Fatalf("side should be upper")
	}
	if next.ConsecutiveHits != 1 {
		t.Fatalf("first hit streak: got %d, want 1", next.ConsecutiveHits)
	}
}

func TestComputeNewFeeLowerHit(t *testing.T) {
	p := testParams()
	fee, next := ComputeNewFee(5000, wadFrac(8, 10), wad(1), WAD, p, OOBState{})
	if fee > 5000 {
		t.Fatalf("lower hit increased fee: %d", fee)
	}
	if fee < p.MinFee {
		t.Fatalf("fee below min: %d", fee)
	}
	if next.LastSideWasUpper {
		t.Fatalf("side should be lower")
	}
	if next.ConsecutiveHits != 1 {
		t.Fatalf("first hit streak: got %d, want 1", next.ConsecutiveHits)
	}
}

func TestComputeNewFeeStreakGrowsAndFlips(t *testing.T) {
	p := testParams()
	ratio := wadFrac(15, 10)
	target := wad(1)

	oob := OOBState{}
	fee := uint64(1000)
	var lastDelta uint64
	for i := 1; i <= 4; i++ {
		newFee, next := ComputeNewFee(fee, ratio, target, WAD, p, oob)
		if next.ConsecutiveHits != uint64(i) {
			t.Fatalf("hit %d: streak %d", i, next.ConsecutiveHits)
		}
		delta := newFee - fee
		if i > 1 && delta < lastDelta && newFee < p.MaxFee {
			t.Fatalf("hit %d: delta shrank from %d to %d", i, lastDelta, delta)
		}
		lastDelta = delta
		fee = newFee
		oob = next
	}

	// Flipping to the lower side resets amplification.
	_, next := ComputeNewFee(fee, wadFrac(5, 10), target, WAD, p, oob)
	if next.LastSideWasUpper {
		t.Fatalf("side should have flipped to lower")
	}
	if next.ConsecutiveHits != 1 {
		t.Fatalf("flip should reset streak: got %d", next.ConsecutiveHits)
	}
}

func TestComputeNewFeeStaysPinnedAtBound(t *testing.T) {
	p := testParams()
	fee, _ := ComputeNewFee(p.MaxFee, wad(3), wad(1), WAD, p, OOBState{LastSideWasUpper: true, ConsecutiveHits: 5})
	if fee != p.MaxFee {
		t.Fatalf("fee pushed past max: %d", fee)
	}

	fee, _ = ComputeNewFee(p.MinFee, wadFrac(1, 10), wad(1), WAD, p, OOBState{LastSideWasUpper: false, ConsecutiveHits: 5})
	if fee != p.MinFee {
		t.Fatalf("fee pushed past min: %d", fee)
	}
}

func TestComputeNewFeeRateCapBinds(t *testing.T) {
	p := testParams()
	p.BaseMaxFeeDelta = 100000

	// 1% per-update ceiling on a 1000 ppm fee caps the delta near 10.
	rate := wadFrac(1, 100)
	fee, _ := ComputeNewFee(1000, wad(5), wad(1), rate, p, OOBState{})
	if fee > 1011 {
		t.Fatalf("rate cap not binding: %d", fee)
	}
	if fee <= 1000 {
		t.Fatalf("upper hit did not raise fee: %d", fee)
	}
}

func TestComputeNewFeeZeroTarget(t *testing.T) {
	p := testParams()
	fee, next := ComputeNewFee(5000, wad(1), big.NewInt(0), WAD, p, OOBState{LastSideWasUpper: true, ConsecutiveHits: 2})
	if fee != 5000 {
		t.Fatalf("zero target changed fee: %d", fee)
	}
	if next.ConsecutiveHits != 0 {
		t.Fatalf("zero target should reset streak: %d", next.ConsecutiveHits)
	}
}

func TestComputeNewFeeAsymmetricSides(t *testing.T) {
	p := testParams()
	p.UpperSideFactor = new(big.Int).Mul(WAD, big.NewInt(2))
	p.BaseMaxFeeDelta = 100000

	// Equal distance past each boundary, below every cap.
	upFee, _ := ComputeNewFee(5000, wadFrac(106, 100), wad(1), WAD, p, OOBState{})
	downFee, _ := ComputeNewFee(5000, wadFrac(94, 100), wad(1), WAD, p, OOBState{})

	upDelta := upFee - 5000
	downDelta := uint64(5000) - downFee
	if upDelta != 2*downDelta {
		t.Fatalf("upper factor 2x should double the move: up=%d down=%d", upDelta, downDelta)
	}
}
