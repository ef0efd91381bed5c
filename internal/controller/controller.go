package controller

import (
	"fmt"
	"math/big"

	"go.uber.org/zap"

	"feeScope/internal/feemath"
)

// Update reports the outcome of one fee update computation.
type Update struct {
	OldFee    uint64
	NewFee    uint64
	OldTarget *big.Int
	NewTarget *big.Int
	OOB       feemath.OOBState
}

// Engine is the behavior boundary over a pool fee controller. Persistent
// state is snapshotted through the stable StateV1 layout so the behavior
// behind this interface can be replaced without losing stored state.
type Engine interface {
	Initialize(initialFee uint64, initialTarget *big.Int) error
	PreviewUpdate(currentRatio *big.Int) (Update, error)
	CommitUpdate(currentRatio *big.Int) (Update, error)
	SetParams(p feemath.Params, b Bounds) error
	SetAdjustmentRate(rate *big.Int, b Bounds) error

	Active() bool
	CurrentFee() uint64
	TargetRatio() *big.Int
	OOB() feemath.OOBState
	Params() feemath.Params
	AdjustmentRate() *big.Int
	NextEligible() uint64
	Snapshot() StateV1
}

var _ Engine = (*PoolController)(nil)

// PoolController owns the fee state for one pool and gates updates behind
// the cooldown. The caller serializes mutating calls per pool; the
// controller does no locking of its own.
type PoolController struct {
	params  feemath.Params
	adjRate *big.Int

	fee    uint64
	target *big.Int
	oob    feemath.OOBState
	lastTS uint64
	active bool

	clock  Clock
	logger *zap.Logger
}

func NewPoolController(params feemath.Params, adjRate *big.Int, clock Clock, logger *zap.Logger) *PoolController {
	if clock == nil {
		clock = SystemClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PoolController{
		params:  params,
		adjRate: cloneBig(adjRate),
		clock:   clock,
		logger:  logger,
	}
}

// Initialize activates the pool with a starting fee and target ratio. Both
// must already satisfy the parameter set's bounds.
func (c *PoolController) Initialize(initialFee uint64, initialTarget *big.Int) error {
	if c.active {
		return fmt.Errorf("pool already initialized: %w", ErrInvalidParameter)
	}
	if initialFee < c.params.MinFee || initialFee > c.params.MaxFee {
		return fmt.Errorf("initial fee %d outside [%d,%d]: %w",
			initialFee, c.params.MinFee, c.params.MaxFee, ErrInvalidFee)
	}
	if initialTarget == nil || initialTarget.Sign() <= 0 {
		return fmt.Errorf("initial target ratio must be positive: %w", ErrInvalidRatio)
	}
	if c.params.MaxCurrentRatio != nil && initialTarget.Cmp(c.params.MaxCurrentRatio) > 0 {
		return fmt.Errorf("initial target ratio %s above ceiling %s: %w",
			initialTarget, c.params.MaxCurrentRatio, ErrInvalidRatio)
	}

	c.fee = initialFee
	c.target = cloneBig(initialTarget)
	c.oob = feemath.OOBState{}
	c.lastTS = c.now()
	c.active = true
	return nil
}

// PreviewUpdate runs the fee computation without the cooldown gate and
// without touching persisted state.
func (c *PoolController) PreviewUpdate(currentRatio *big.Int) (Update, error) {
	if !c.active {
		return Update{}, ErrNotActive
	}
	return c.compute(currentRatio)
}

// CommitUpdate runs the fee computation behind the cooldown gate and, if it
// succeeds, commits the new fee, target, streak state, and timestamp
// together. A failed call leaves no partial writes.
func (c *PoolController) CommitUpdate(currentRatio *big.Int) (Update, error) {
	if !c.active {
		return Update{}, ErrNotActive
	}

	now := c.now()
	if now < c.lastTS+c.params.MinPeriod {
		return Update{}, &CooldownError{Now: now, NextEligible: c.lastTS + c.params.MinPeriod}
	}

	upd, err := c.compute(currentRatio)
	if err != nil {
		return Update{}, err
	}

	c.fee = upd.NewFee
	c.target = cloneBig(upd.NewTarget)
	c.oob = upd.OOB
	c.lastTS = now

	c.logger.Debug("fee update committed",
		zap.Uint64("old_fee", upd.OldFee),
		zap.Uint64("new_fee", upd.NewFee),
		zap.String("new_target", upd.NewTarget.String()),
		zap.Bool("side_upper", upd.OOB.LastSideWasUpper),
		zap.Uint64("streak", upd.OOB.ConsecutiveHits),
		zap.Uint64("ts", now),
	)
	return upd, nil
}

func (c *PoolController) compute(currentRatio *big.Int) (Update, error) {
	if currentRatio == nil || currentRatio.Sign() <= 0 {
		return Update{}, fmt.Errorf("ratio must be positive: %w", ErrInvalidRatio)
	}
	if c.params.MaxCurrentRatio != nil && currentRatio.Cmp(c.params.MaxCurrentRatio) > 0 {
		return Update{}, fmt.Errorf("ratio %s above ceiling %s: %w",
			currentRatio, c.params.MaxCurrentRatio, ErrInvalidRatio)
	}

	newTarget := feemath.EMA(currentRatio, c.target, c.params.LookbackPeriod)
	if newTarget.Sign() == 0 {
		return Update{}, fmt.Errorf("smoothed target collapsed to zero: %w", ErrInvalidRatio)
	}

	newFee, newOOB := feemath.ComputeNewFee(c.fee, currentRatio, newTarget, c.adjRate, c.params, c.oob)
	return Update{
		OldFee:    c.fee,
		NewFee:    newFee,
		OldTarget: cloneBig(c.target),
		NewTarget: newTarget,
		OOB:       newOOB,
	}, nil
}

// SetParams replaces the tunable parameter set. It takes effect on the next
// commit, never retroactively.
func (c *PoolController) SetParams(p feemath.Params, b Bounds) error {
	if err := ValidateParams(p, b); err != nil {
		return err
	}
	c.params = p
	return nil
}

// SetAdjustmentRate replaces the per-update adjustment-rate ceiling.
func (c *PoolController) SetAdjustmentRate(rate *big.Int, b Bounds) error {
	if err := ValidateAdjustmentRate(rate, b); err != nil {
		return err
	}
	c.adjRate = cloneBig(rate)
	return nil
}

func (c *PoolController) Active() bool             { return c.active }
func (c *PoolController) CurrentFee() uint64       { return c.fee }
func (c *PoolController) TargetRatio() *big.Int    { return cloneBig(c.target) }
func (c *PoolController) OOB() feemath.OOBState    { return c.oob }
func (c *PoolController) Params() feemath.Params   { return c.params }
func (c *PoolController) AdjustmentRate() *big.Int { return cloneBig(c.adjRate) }

// NextEligible returns the earliest unix timestamp at which CommitUpdate
// can succeed.
func (c *PoolController) NextEligible() uint64 {
	return c.lastTS + c.params.MinPeriod
}

func (c *PoolController) now() uint64 {
	ts := c.clock.Now().Unix()
	if ts < 0 {
		return 0
	}
	return uint64(ts)
}

func cloneBig(v *big.Int) *big.Int {
	if v == nil {
		return nil
	}
	return new(big.Int).Set(v)
}
