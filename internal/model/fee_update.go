package model

// FeeUpdateRecord captures one committed fee update for storage. Fees are
// ppm integers, targets are WAD decimal strings.
type FeeUpdateRecord struct {
	ChainID     uint64 `json:"chain_id"`
	PoolAddress string `json:"pool_address"`
	OldFee      uint64 `json:"old_fee"`
	NewFee      uint64 `json:"new_fee"`
	OldTarget   string `json:"old_target"`
	NewTarget   string `json:"new_target"`
	SideUpper   bool   `json:"side_upper"`
	Streak      uint64 `json:"streak"`
	Timestamp   uint64 `json:"timestamp"`
}
