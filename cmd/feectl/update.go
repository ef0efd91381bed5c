package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"feeScope/internal/config"
	"feeScope/internal/controller"
	"feeScope/internal/model"
	"feeScope/internal/storage"
	"feeScope/internal/storage/postgres"
	"feeScope/internal/updater"
)

func runUpdate(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadUpdate(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.Input == "" {
		return fmt.Errorf("input path is required")
	}
	if cfg.ParamsFile == "" {
		return fmt.Errorf("params file is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	records, err := updater.LoadParamsFile(cfg.ParamsFile)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return fmt.Errorf("params file has no pools")
	}

	var store *postgres.Store
	var states []model.PoolStateRecord
	if cfg.PGDSN != "" {
		store, err = postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer store.Close()

		states, err = store.LoadPoolStates(ctx, cfg.ChainID)
		if err != nil {
			return err
		}
	}

	clock := controller.NewManualClock(0)
	registry, err := updater.BuildRegistry(records, states, controller.DefaultBounds(), clock, logger)
	if err != nil {
		return err
	}

	stateStore, err := buildStateStore(cfg)
	if err != nil {
		return err
	}

	var sink storage.Storage
	if cfg.Out != "" {
		sink = storage.NewJsonlStorage(cfg.Out)
	}

	logger.Info("update replay start",
		zap.Uint64("chain_id", cfg.ChainID),
		zap.String("in", cfg.Input),
		zap.Int("pools", registry.Len()),
		zap.Int("restored", len(states)),
		zap.String("out", cfg.Out),
		zap.Bool("postgres", store != nil),
	)

	u := updater.NewUpdater(updater.Config{
		ChainID:      cfg.ChainID,
		BatchSize:    cfg.BatchSize,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
		StateStore:   stateStore,
	}, registry, clock, store, sink, logger)

	return u.Run(ctx, cfg.Input)
}

// staticState replays from a fixed timestamp when no state file is used.
type staticState struct {
	ts uint64
}

func (s staticState) Load(ctx context.Context) (uint64, bool, error) { return s.ts, s.ts > 0, nil }

func (s staticState) Save(ctx context.Context, ts uint64) error { return nil }

func buildStateStore(cfg config.UpdateConfig) (updater.StateStore, error) {
	if cfg.StateFile != "" {
		return &updater.FileStateStore{Path: cfg.StateFile}, nil
	}
	if cfg.From != "" {
		ts, err := config.ParseTimestamp(cfg.From)
		if err != nil {
			return nil, fmt.Errorf("parse from: %w", err)
		}
		return staticState{ts: ts}, nil
	}
	return nil, nil
}
