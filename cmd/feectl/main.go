package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	root := &cobra.Command{
		Use:          "feectl",
		Short:        "Adaptive AMM fee controller",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	updateCmd := &cobra.Command{
		Use:   "update",
		Short: "Replay ratio observations and commit fee updates",
		RunE:  runUpdate,
	}

	updateCmd.Flags().Uint64("chain-id", 0, "chain id filter (0 accepts all)")
	updateCmd.Flags().String("in", "", "input ratio observations JSONL")
	updateCmd.Flags().String("params", "", "pool parameter sets JSON")
	updateCmd.Flags().String("out", "./data/fee_updates.jsonl", "output fee updates JSONL")
	updateCmd.Flags().String("pg-dsn", "", "Postgres DSN")
	updateCmd.Flags().Int("batch-size", 1000, "batch size for writes")
	updateCmd.Flags().String("state-file", "", "optional local state file for progress tracking")
	updateCmd.Flags().String("from", "", "replay from timestamp (unix seconds or RFC3339)")
	updateCmd.Flags().Int("max-retries", 5, "maximum retry attempts")
	updateCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	updateCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(updateCmd)

	observeCmd := &cobra.Command{
		Use:   "observe",
		Short: "Emit a live volume/liquidity ratio observation for a pool",
		RunE:  runObserve,
	}

	observeCmd.Flags().String("rpc", "", "RPC URL")
	observeCmd.Flags().Uint64("chain-id", 0, "chain id recorded in the observation")
	observeCmd.Flags().String("pool", "", "pool address")
	observeCmd.Flags().String("quote-token", "", "quote token address for the liquidity probe")
	observeCmd.Flags().String("volume", "", "window volume in quote token units (WAD decimal)")
	observeCmd.Flags().String("out", "./data/observations.jsonl", "output observations JSONL")
	observeCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(observeCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
