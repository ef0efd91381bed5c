package model

// PoolStateRecord is the persisted form of a pool fee state snapshot.
// Version pins the snapshot layout.
type PoolStateRecord struct {
	ChainID      uint64 `json:"chain_id"`
	PoolAddress  string `json:"pool_address"`
	Version      uint32 `json:"version"`
	Fee          uint64 `json:"fee"`
	TargetRatio  string `json:"target_ratio"`
	SideUpper    bool   `json:"side_upper"`
	Streak       uint64 `json:"streak"`
	LastUpdateTS uint64 `json:"last_update_ts"`
	Active       bool   `json:"active"`
}
