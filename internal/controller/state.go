package controller

import (
	"fmt"
	"math/big"

	"go.uber.org/zap"

	"feeScope/internal/feemath"
)

// StateVersion is the current persisted state layout version.
const StateVersion = 1

// StateV1 is the stable layout of persisted pool fee state. The layout is
// versioned explicitly so controller behavior can change without breaking
// stored snapshots.
type StateV1 struct {
	Version          uint32
	Fee              uint64
	TargetRatio      *big.Int
	LastSideWasUpper bool
	ConsecutiveHits  uint64
	LastUpdateTS     uint64
	Active           bool
}

// Snapshot captures the controller's persistent state.
func (c *PoolController) Snapshot() StateV1 {
	return StateV1{
		Version:          StateVersion,
		Fee:              c.fee,
		TargetRatio:      cloneBig(c.target),
		LastSideWasUpper: c.oob.LastSideWasUpper,
		ConsecutiveHits:  c.oob.ConsecutiveHits,
		LastUpdateTS:     c.lastTS,
		Active:           c.active,
	}
}

// Restore rebuilds a controller from a persisted snapshot.
func Restore(state StateV1, params feemath.Params, adjRate *big.Int, clock Clock, logger *zap.Logger) (*PoolController, error) {
	if state.Version != StateVersion {
		return nil, fmt.Errorf("unknown state version %d: %w", state.Version, ErrInvalidParameter)
	}
	c := NewPoolController(params, adjRate, clock, logger)
	c.fee = state.Fee
	c.target = cloneBig(state.TargetRatio)
	c.oob = feemath.OOBState{
		LastSideWasUpper: state.LastSideWasUpper,
		ConsecutiveHits:  state.ConsecutiveHits,
	}
	c.lastTS = state.LastUpdateTS
	c.active = state.Active
	return c, nil
}
