package model

// PoolParamsRecord is the on-disk form of one pool's tunable parameter set,
// together with the values the pool is activated with. WAD fields are
// decimal strings.
type PoolParamsRecord struct {
	ChainID         uint64 `json:"chain_id"`
	PoolAddress     string `json:"pool_address"`
	MinFee          uint64 `json:"min_fee"`
	MaxFee          uint64 `json:"max_fee"`
	BaseMaxFeeDelta uint64 `json:"base_max_fee_delta"`
	LookbackDays    uint64 `json:"lookback_days"`
	MinPeriodSecs   uint64 `json:"min_period_seconds"`
	RatioTolerance  string `json:"ratio_tolerance"`
	LinearSlope     string `json:"linear_slope"`
	MaxCurrentRatio string `json:"max_current_ratio"`
	LowerSideFactor string `json:"lower_side_factor"`
	UpperSideFactor string `json:"upper_side_factor"`
	MaxAdjRate      string `json:"max_adjustment_rate"`
	InitialFee      uint64 `json:"initial_fee"`
	InitialTarget   string `json:"initial_target_ratio"`
}
