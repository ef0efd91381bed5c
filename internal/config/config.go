package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// UpdateConfig holds configuration for the fee update replay command.
type UpdateConfig struct {
	ChainID      uint64
	Input        string
	ParamsFile   string
	Out          string
	PGDSN        string
	BatchSize    int
	StateFile    string
	From         string
	MaxRetries   int
	RetryBackoff time.Duration
	LogLevel     string
}

// LoadUpdate merges config file, environment variables, and flags into
// UpdateConfig.
func LoadUpdate(cfgFile string, flags *pflag.FlagSet) (UpdateConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]interface{}{
		"batch-size":    1000,
		"out":           "./data/fee_updates.jsonl",
		"max-retries":   5,
		"retry-backoff": 500 * time.Millisecond,
		"log-level":     "info",
	})
	if err != nil {
		return UpdateConfig{}, err
	}

	cfg := UpdateConfig{
		ChainID:      v.GetUint64("chain-id"),
		Input:        v.GetString("in"),
		ParamsFile:   v.GetString("params"),
		Out:          v.GetString("out"),
		PGDSN:        v.GetString("pg-dsn"),
		BatchSize:    v.GetInt("batch-size"),
		StateFile:    v.GetString("state-file"),
		From:         v.GetString("from"),
		MaxRetries:   v.GetInt("max-retries"),
		RetryBackoff: v.GetDuration("retry-backoff"),
		LogLevel:     v.GetString("log-level"),
	}

	return cfg, nil
}

func newViper(cfgFile string, flags *pflag.FlagSet, defaults map[string]interface{}) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix("FEESCOPE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	return v, nil
}
