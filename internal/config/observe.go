package config

import (
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
)

// ObserveConfig holds configuration for the live observation command.
type ObserveConfig struct {
	RPCURL     string
	ChainID    uint64
	Pool       string
	QuoteToken string
	Volume     string
	Out        string
	LogLevel   string
}

// LoadObserve merges config file, environment variables, and flags into
// ObserveConfig.
func LoadObserve(cfgFile string, flags *pflag.FlagSet) (ObserveConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]interface{}{
		"out":       "./data/observations.jsonl",
		"log-level": "info",
	})
	if err != nil {
		return ObserveConfig{}, err
	}

	cfg := ObserveConfig{
		RPCURL:     v.GetString("rpc"),
		ChainID:    v.GetUint64("chain-id"),
		Pool:       v.GetString("pool"),
		QuoteToken: v.GetString("quote-token"),
		Volume:     v.GetString("volume"),
		Out:        v.GetString("out"),
		LogLevel:   v.GetString("log-level"),
	}

	return cfg, nil
}

// ParseTimestamp parses a timestamp value (unix seconds or RFC3339).
func ParseTimestamp(input string) (uint64, error) {
	if strings.TrimSpace(input) == "" {
		return 0, nil
	}

	if isNumeric(input) {
		val, err := strconv.ParseUint(input, 10, 64)
		if err != nil {
			return 0, err
		}
		return val, nil
	}

	tm, err := time.Parse(time.RFC3339, input)
	if err != nil {
		return 0, err
	}
	return uint64(tm.Unix()), nil
}

func isNumeric(input string) bool {
	for _, r := range input {
		if r < '0' || r > '9' {
			return false
		}
	}
	return input != ""
}
