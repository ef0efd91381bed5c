package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"feeScope/internal/model"
)

// Store provides Postgres persistence for pool fee state and update history.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// UpsertPoolStates inserts or updates pool fee state snapshots.
func (s *Store) UpsertPoolStates(ctx context.Context, states []model.PoolStateRecord) error {
	if len(states) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, st := range states {
		batch.Queue(`
			INSERT INTO pool_fee_state (
				chain_id, pool_address, version, fee, target_ratio,
				side_upper, streak, last_update_ts, active, created_at, updated_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,now(),now())
			ON CONFLICT (chain_id, pool_address)
			DO UPDATE SET
				version = EXCLUDED.version,
				fee = EXCLUDED.fee,
				target_ratio = EXCLUDED.target_ratio,
				side_upper = EXCLUDED.side_upper,
				streak = EXCLUDED.streak,
				last_update_ts = EXCLUDED.last_update_ts,
				active = EXCLUDED.active,
				updated_at = now()
		`,
			int64(st.ChainID),
			st.PoolAddress,
			int32(st.Version),
			int64(st.Fee),
			st.TargetRatio,
			st.SideUpper,
			int64(st.Streak),
			int64(st.LastUpdateTS),
			st.Active,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range states {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// InsertFeeUpdates appends committed fee updates to the history table.
func (s *Store) InsertFeeUpdates(ctx context.Context, updates []model.FeeUpdateRecord) error {
	if len(updates) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, u := range updates {
		batch.Queue(`
			INSERT INTO fee_updates (
				chain_id, pool_address, old_fee, new_fee, old_target, new_target,
				side_upper, streak, update_ts, created_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,now())
			ON CONFLICT (chain_id, pool_address, update_ts) DO NOTHING
		`,
			int64(u.ChainID),
			u.PoolAddress,
			int64(u.OldFee),
			int64(u.NewFee),
			u.OldTarget,
			u.NewTarget,
			u.SideUpper,
			int64(u.Streak),
			int64(u.Timestamp),
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range updates {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// LoadPoolStates returns all persisted state snapshots for a chain.
func (s *Store) LoadPoolStates(ctx context.Context, chainID uint64) ([]model.PoolStateRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT chain_id, pool_address, version, fee, target_ratio,
		       side_upper, streak, last_update_ts, active
		FROM pool_fee_state
		WHERE chain_id = $1
		ORDER BY pool_address
	`, int64(chainID))
	if err != nil {
		return nil, fmt.Errorf("query pool states: %w", err)
	}
	defer rows.Close()

	var states []model.PoolStateRecord
	for rows.Next() {
		var (
			st      model.PoolStateRecord
			chain   int64
			version int32
			fee     int64
			streak  int64
			lastTS  int64
		)
		if err := rows.Scan(&chain, &st.PoolAddress, &version, &fee, &st.TargetRatio,
			&st.SideUpper, &streak, &lastTS, &st.Active); err != nil {
			return nil, fmt.Errorf("scan pool state: %w", err)
		}
		st.ChainID = uint64(chain)
		st.Version = uint32(version)
		st.Fee = uint64(fee)
		st.Streak = uint64(streak)
		st.LastUpdateTS = uint64(lastTS)
		states = append(states, st)
	}
	return states, rows.Err()
}
