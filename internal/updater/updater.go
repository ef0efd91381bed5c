package updater

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"feeScope/internal/controller"
	"feeScope/internal/model"
	"feeScope/internal/storage"
	"feeScope/internal/storage/postgres"
)

// Config controls the update replay loop.
type Config struct {
	ChainID      uint64
	BatchSize    int
	MaxRetries   int
	RetryBackoff time.Duration
	StateStore   StateStore
}

// Updater streams ratio observations and drives the per-pool controllers,
// persisting committed updates and state snapshots.
type Updater struct {
	cfg      Config
	registry *controller.Registry
	clock    *controller.ManualClock
	store    *postgres.Store
	sink     storage.Storage
	logger   *zap.Logger
}

// NewUpdater wires the replay loop. store and sink may each be nil to skip
// that destination; clock is the shared manual clock the controllers read.
func NewUpdater(
	cfg Config,
	registry *controller.Registry,
	clock *controller.ManualClock,
	store *postgres.Store,
	sink storage.Storage,
	logger *zap.Logger,
) *Updater {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Updater{
		cfg:      cfg,
		registry: registry,
		clock:    clock,
		store:    store,
		sink:     sink,
		logger:   logger,
	}
}

// Run consumes a ratio observation JSONL file and applies each observation
// to its pool's controller. Cooldown-gated observations are skipped;
// invalid ones are counted and logged.
func (u *Updater) Run(ctx context.Context, inputPath string) error {
	if u.registry == nil {
		return fmt.Errorf("registry is nil")
	}
	if u.clock == nil {
		return fmt.Errorf("clock is nil")
	}
	if u.cfg.BatchSize <= 0 {
		u.cfg.BatchSize = 1000
	}

	startTS, err := u.loadStartTimestamp(ctx)
	if err != nil {
		return err
	}

	file, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 10*1024*1024)

	updates := make([]model.FeeUpdateRecord, 0, u.cfg.BatchSize)
	snapshots := make([]model.PoolStateRecord, 0, u.cfg.BatchSize)
	maxTS := startTS
	var total, committed, cooled, skipped, failed int

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}

		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		total++

		var obs model.RatioObservation
		if err := json.Unmarshal(line, &obs); err != nil {
			failed++
			u.logger.Warn("decode observation", zap.Error(err))
			continue
		}

		if obs.Timestamp <= startTS {
			skipped++
			continue
		}
		if u.cfg.ChainID != 0 && obs.ChainID != u.cfg.ChainID {
			skipped++
			continue
		}
		if !common.IsHexAddress(obs.PoolAddress) {
			failed++
			u.logger.Warn("invalid pool address", zap.String("pool", obs.PoolAddress))
			continue
		}

		addr := common.HexToAddress(obs.PoolAddress)
		eng, ok := u.registry.Get(addr)
		if !ok {
			skipped++
			u.logger.Debug("unknown pool", zap.String("pool", addr.Hex()))
			continue
		}

		ratio, err := obs.RatioBig()
		if err != nil {
			failed++
			u.logger.Warn("invalid ratio", zap.String("pool", addr.Hex()), zap.Error(err))
			continue
		}

		u.clock.Advance(obs.Timestamp)
		upd, err := eng.CommitUpdate(ratio)
		if err != nil {
			var cooldown *controller.CooldownError
			switch {
			case errors.As(err, &cooldown):
				cooled++
				u.logger.Debug("cooldown gate",
					zap.String("pool", addr.Hex()),
					zap.Uint64("next_eligible", cooldown.NextEligible),
				)
			case errors.Is(err, controller.ErrInvalidRatio):
				failed++
				u.logger.Warn("rejected observation", zap.String("pool", addr.Hex()), zap.Error(err))
			default:
				return fmt.Errorf("pool %s: %w", addr.Hex(), err)
			}
			continue
		}

		committed++
		if obs.Timestamp > maxTS {
			maxTS = obs.Timestamp
		}

		updates = append(updates, model.FeeUpdateRecord{
			ChainID:     obs.ChainID,
			PoolAddress: addr.Hex(),
			OldFee:      upd.OldFee,
			NewFee:      upd.NewFee,
			OldTarget:   upd.OldTarget.String(),
			NewTarget:   upd.NewTarget.String(),
			SideUpper:   upd.OOB.LastSideWasUpper,
			Streak:      upd.OOB.ConsecutiveHits,
			Timestamp:   obs.Timestamp,
		})
		snapshots = append(snapshots, snapshotRecord(obs.ChainID, addr, eng))

		if len(updates) >= u.cfg.BatchSize {
			if err := u.flush(ctx, updates, snapshots); err != nil {
				return err
			}
			updates = updates[:0]
			snapshots = snapshots[:0]
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan input: %w", err)
	}

	if err := u.flush(ctx, updates, snapshots); err != nil {
		return err
	}

	if u.cfg.StateStore != nil && maxTS > startTS {
		if err := u.cfg.StateStore.Save(ctx, maxTS); err != nil {
			return err
		}
	}

	u.logger.Info("update replay done",
		zap.Int("total", total),
		zap.Int("committed", committed),
		zap.Int("cooldown_skipped", cooled),
		zap.Int("skipped", skipped),
		zap.Int("failed", failed),
		zap.Uint64("last_processed_ts", maxTS),
	)
	return nil
}

func (u *Updater) loadStartTimestamp(ctx context.Context) (uint64, error) {
	if u.cfg.StateStore == nil {
		return 0, nil
	}
	ts, ok, err := u.cfg.StateStore.Load(ctx)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	return ts, nil
}

func (u *Updater) flush(ctx context.Context, updates []model.FeeUpdateRecord, snapshots []model.PoolStateRecord) error {
	if len(updates) == 0 {
		return nil
	}

	if u.sink != nil {
		if err := u.sink.PutUpdateBatch(updates); err != nil {
			return fmt.Errorf("write updates: %w", err)
		}
	}
	if u.store != nil {
		err := withRetry(ctx, u.cfg.MaxRetries, u.cfg.RetryBackoff, func(ctx context.Context) error {
			if err := u.store.InsertFeeUpdates(ctx, updates); err != nil {
				return err
			}
			return u.store.UpsertPoolStates(ctx, snapshots)
		})
		if err != nil {
			return fmt.Errorf("persist updates: %w", err)
		}
	}
	return nil
}

func snapshotRecord(chainID uint64, addr common.Address, eng controller.Engine) model.PoolStateRecord {
	snap := eng.Snapshot()
	return model.PoolStateRecord{
		ChainID:      chainID,
		PoolAddress:  addr.Hex(),
		Version:      snap.Version,
		Fee:          snap.Fee,
		TargetRatio:  snap.TargetRatio.String(),
		SideUpper:    snap.LastSideWasUpper,
		Streak:       snap.ConsecutiveHits,
		LastUpdateTS: snap.LastUpdateTS,
		Active:       snap.Active,
	}
}
