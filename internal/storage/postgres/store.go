package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"ammPool/internal/model"
)

// Store provides Postgres persistence for pool events and state snapshots.
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

// PutEventBatch inserts pool events, skipping any (pool_id, seq) already
// present so a replay can be resumed safely.
func (s *Store) PutEventBatch(events []model.PoolEvent) error {
	return s.InsertEvents(context.Background(), events)
}

// InsertEvents inserts pool events in one batch.
func (s *Store) InsertEvents(ctx context.Context, events []model.PoolEvent) error {
	if len(events) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, event := range events {
		batch.Queue(`
			INSERT INTO pool_events (
				pool_id, seq, kind, actor, asset_a, asset_b, amount_a, amount_b, derived, emitted_at, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now())
			ON CONFLICT (pool_id, seq) DO NOTHING
		`,
			int64(event.PoolID),
			int64(event.Seq),
			event.Kind,
			event.Actor,
			event.AssetA,
			event.AssetB,
			event.AmountA,
			event.AmountB,
			event.Derived,
			event.EmittedAt,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range events {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// UpsertPoolStates inserts or updates pool accounting snapshots.
func (s *Store) UpsertPoolStates(ctx context.Context, states []model.PoolState) error {
	if len(states) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, state := range states {
		batch.Queue(`
			INSERT INTO pool_states (
				pool_id, asset_a, asset_b, reserve_a, reserve_b, total_shares, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, now(), now())
			ON CONFLICT (pool_id)
			DO UPDATE SET
				reserve_a = EXCLUDED.reserve_a,
				reserve_b = EXCLUDED.reserve_b,
				total_shares = EXCLUDED.total_shares,
				updated_at = now()
		`,
			int64(state.PoolID),
			state.AssetA,
			state.AssetB,
			state.ReserveA,
			state.ReserveB,
			state.TotalShares,
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

// LoadCheckpoint returns the last replayed journal line for a name.
func (s *Store) LoadCheckpoint(ctx context.Context, name string) (uint64, bool, error) {
	if name == "" {
		return 0, false, fmt.Errorf("checkpoint name required")
	}
	var line uint64
	row := s.pool.QueryRow(ctx, `SELECT last_journal_line FROM replay_state WHERE name=$1`, name)
	if err := row.Scan(&line); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return line, true, nil
}

// SaveCheckpoint upserts the last replayed journal line for a name.
func (s *Store) SaveCheckpoint(ctx context.Context, name string, line uint64) error {
	if name == "" {
		return fmt.Errorf("checkpoint name required")
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO replay_state (name, last_journal_line, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (name) DO UPDATE
		SET last_journal_line = EXCLUDED.last_journal_line, updated_at = now()
	`, name, line)
	return err
}
