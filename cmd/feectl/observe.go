package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"feeScope/internal/chain"
	"feeScope/internal/config"
	"feeScope/internal/feemath"
	"feeScope/internal/model"
)

func runObserve(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadObserve(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.RPCURL == "" {
		return fmt.Errorf("rpc url is required")
	}
	if !common.IsHexAddress(cfg.Pool) {
		return fmt.Errorf("pool address is required")
	}
	if !common.IsHexAddress(cfg.QuoteToken) {
		return fmt.Errorf("quote token address is required")
	}

	volume, err := model.ParseBigInt(cfg.Volume)
	if err != nil {
		return fmt.Errorf("parse volume: %w", err)
	}
	if volume.Sign() <= 0 {
		return fmt.Errorf("volume must be positive")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()

	header, err := chainClient.LatestHeader(ctx)
	if err != nil {
		return fmt.Errorf("latest header: %w", err)
	}

	pool := common.HexToAddress(cfg.Pool)
	quote := common.HexToAddress(cfg.QuoteToken)

	balance, err := chainClient.BalanceOf(ctx, quote, pool, header.Number)
	if err != nil {
		return fmt.Errorf("balanceOf: %w", err)
	}

	// Both pool sides hold roughly equal value, so twice the quote side
	// approximates total liquidity in quote units.
	liquidity := new(big.Int).Lsh(balance, 1)
	if liquidity.Sign() == 0 {
		return fmt.Errorf("pool holds no quote token liquidity")
	}

	ratio := new(big.Int).Mul(volume, feemath.WAD)
	ratio.Quo(ratio, liquidity)

	obs := model.RatioObservation{
		ChainID:     cfg.ChainID,
		PoolAddress: pool.Hex(),
		Ratio:       ratio.String(),
		Timestamp:   header.Time,
	}

	if err := appendObservation(cfg.Out, obs); err != nil {
		return err
	}

	logger.Info("observation recorded",
		zap.String("pool", pool.Hex()),
		zap.String("ratio", obs.Ratio),
		zap.Uint64("block", header.Number.Uint64()),
		zap.Uint64("ts", obs.Timestamp),
		zap.String("out", cfg.Out),
	)
	return nil
}

func appendObservation(path string, obs model.RatioObservation) error {
	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open output file: %w", err)
	}
	defer file.Close()

	line, err := json.Marshal(obs)
	if err != nil {
		return fmt.Errorf("marshal observation: %w", err)
	}
	line = append(line, '\n')
	if _, err := file.Write(line); err != nil {
		return fmt.Errorf("write observation: %w", err)
	}
	return nil
}
