package model

import (
	"fmt"
	"math/big"
)

// RatioObservation is one observed volume/liquidity ratio for a pool.
// Ratio is a WAD (1e18) fixed-point value carried as a decimal string so
// JSON round-trips never lose precision.
type RatioObservation struct {
	ChainID     uint64 `json:"chain_id"`
	PoolAddress string `json:"pool_address"`
	Ratio       string `json:"ratio"`
	Timestamp   uint64 `json:"timestamp"`
}

// RatioBig parses the ratio string.
func (o RatioObservation) RatioBig() (*big.Int, error) {
	return ParseBigInt(o.Ratio)
}

// ParseBigInt parses a decimal big-int string; empty means zero.
func ParseBigInt(value string) (*big.Int, error) {
	if value == "" {
		return big.NewInt(0), nil
	}
	parsed, ok := new(big.Int).SetString(value, 10)
	if !ok {
		return nil, fmt.Errorf("invalid int: %s", value)
	}
	return parsed, nil
}
