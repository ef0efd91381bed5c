package updater

import (
	"encoding/json"
	"fmt"
	"math/big"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"feeScope/internal/controller"
	"feeScope/internal/feemath"
	"feeScope/internal/model"
)

// LoadParamsFile reads a JSON array of pool parameter records.
func LoadParamsFile(path string) ([]model.PoolParamsRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read params file: %w", err)
	}
	var records []model.PoolParamsRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse params file: %w", err)
	}
	return records, nil
}

func paramsFromRecord(rec model.PoolParamsRecord) (feemath.Params, *big.Int, error) {
	tolerance, err := model.ParseBigInt(rec.RatioTolerance)
	if err != nil {
		return feemath.Params{}, nil, fmt.Errorf("ratio_tolerance: %w", err)
	}
	slope, err := model.ParseBigInt(rec.LinearSlope)
	if err != nil {
		return feemath.Params{}, nil, fmt.Errorf("linear_slope: %w", err)
	}
	maxRatio, err := model.ParseBigInt(rec.MaxCurrentRatio)
	if err != nil {
		return feemath.Params{}, nil, fmt.Errorf("max_current_ratio: %w", err)
	}
	lower, err := model.ParseBigInt(rec.LowerSideFactor)
	if err != nil {
		return feemath.Params{}, nil, fmt.Errorf("lower_side_factor: %w", err)
	}
	upper, err := model.ParseBigInt(rec.UpperSideFactor)
	if err != nil {
		return feemath.Params{}, nil, fmt.Errorf("upper_side_factor: %w", err)
	}
	adjRate, err := model.ParseBigInt(rec.MaxAdjRate)
	if err != nil {
		return feemath.Params{}, nil, fmt.Errorf("max_adjustment_rate: %w", err)
	}

	params := feemath.Params{
		MinFee:          rec.MinFee,
		MaxFee:          rec.MaxFee,
		BaseMaxFeeDelta: rec.BaseMaxFeeDelta,
		LookbackPeriod:  rec.LookbackDays,
		MinPeriod:       rec.MinPeriodSecs,
		RatioTolerance:  tolerance,
		LinearSlope:     slope,
		MaxCurrentRatio: maxRatio,
		LowerSideFactor: lower,
		UpperSideFactor: upper,
	}
	return params, adjRate, nil
}

// BuildRegistry constructs one controller per parameter record, restoring
// persisted snapshots where present and initializing fresh pools otherwise.
func BuildRegistry(
	records []model.PoolParamsRecord,
	states []model.PoolStateRecord,
	bounds controller.Bounds,
	clock controller.Clock,
	logger *zap.Logger,
) (*controller.Registry, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	byAddress := make(map[common.Address]model.PoolStateRecord, len(states))
	for _, st := range states {
		if !common.IsHexAddress(st.PoolAddress) {
			return nil, fmt.Errorf("state has invalid pool address %q", st.PoolAddress)
		}
		byAddress[common.HexToAddress(st.PoolAddress)] = st
	}

	registry := controller.NewRegistry()
	for _, rec := range records {
		if !common.IsHexAddress(rec.PoolAddress) {
			return nil, fmt.Errorf("params have invalid pool address %q", rec.PoolAddress)
		}
		addr := common.HexToAddress(rec.PoolAddress)

		params, adjRate, err := paramsFromRecord(rec)
		if err != nil {
			return nil, fmt.Errorf("pool %s: %w", rec.PoolAddress, err)
		}
		if err := controller.ValidateParams(params, bounds); err != nil {
			return nil, fmt.Errorf("pool %s: %w", rec.PoolAddress, err)
		}
		if err := controller.ValidateAdjustmentRate(adjRate, bounds); err != nil {
			return nil, fmt.Errorf("pool %s: %w", rec.PoolAddress, err)
		}

		if st, ok := byAddress[addr]; ok {
			target, err := model.ParseBigInt(st.TargetRatio)
			if err != nil {
				return nil, fmt.Errorf("pool %s target: %w", rec.PoolAddress, err)
			}
			eng, err := controller.Restore(controller.StateV1{
				Version:          st.Version,
				Fee:              st.Fee,
				TargetRatio:      target,
				LastSideWasUpper: st.SideUpper,
				ConsecutiveHits:  st.Streak,
				LastUpdateTS:     st.LastUpdateTS,
				Active:           st.Active,
			}, params, adjRate, clock, logger)
			if err != nil {
				return nil, fmt.Errorf("pool %s: %w", rec.PoolAddress, err)
			}
			registry.Put(addr, eng)
			logger.Info("pool restored",
				zap.String("pool", addr.Hex()),
				zap.Uint64("fee", st.Fee),
				zap.Uint64("last_update_ts", st.LastUpdateTS),
			)
			continue
		}

		eng := controller.NewPoolController(params, adjRate, clock, logger)
		initialTarget, err := model.ParseBigInt(rec.InitialTarget)
		if err != nil {
			return nil, fmt.Errorf("pool %s initial target: %w", rec.PoolAddress, err)
		}
		if err := eng.Initialize(rec.InitialFee, initialTarget); err != nil {
			return nil, fmt.Errorf("pool %s: %w", rec.PoolAddress, err)
		}
		registry.Put(addr, eng)
		logger.Info("pool initialized",
			zap.String("pool", addr.Hex()),
			zap.Uint64("fee", rec.InitialFee),
		)
	}

	return registry, nil
}
