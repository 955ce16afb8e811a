package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"prizePool/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS pool_events (
	id          UUID PRIMARY KEY,
	pool        TEXT NOT NULL,
	seq         BIGINT NOT NULL,
	name        TEXT NOT NULL,
	ts          BIGINT NOT NULL,
	data        JSONB NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS pool_snapshots (
	pool            TEXT PRIMARY KEY,
	asset           TEXT NOT NULL,
	balance         NUMERIC NOT NULL,
	local           NUMERIC NOT NULL,
	staked          NUMERIC NOT NULL,
	owed            NUMERIC NOT NULL,
	award_balance   NUMERIC NOT NULL,
	timelock_total  NUMERIC NOT NULL,
	tickets         JSONB NOT NULL,
	ts              BIGINT NOT NULL,
	updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS pool_holdings (
	pool        TEXT NOT NULL,
	block       BIGINT NOT NULL,
	asset       TEXT NOT NULL,
	ts          BIGINT NOT NULL,
	local       NUMERIC NOT NULL,
	staked      NUMERIC NOT NULL,
	owed        NUMERIC NOT NULL,
	total       NUMERIC NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (pool, block)
);
CREATE TABLE IF NOT EXISTS audit_state (
	name                  TEXT PRIMARY KEY,
	last_processed_block  BIGINT NOT NULL,
	updated_at            TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// Store provides Postgres persistence for pool events, snapshots and audits.
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

// EnsureSchema creates missing tables.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// InsertEvents stores events. Events already stored are left untouched.
func (s *Store) InsertEvents(ctx context.Context, events []model.PoolEvent) error {
	if len(events) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, ev := range events {
		data, err := json.Marshal(ev.Data)
		if err != nil {
			return fmt.Errorf("marshal event %s: %w", ev.ID, err)
		}
		batch.Queue(`
			INSERT INTO pool_events (id, pool, seq, name, ts, data)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (id) DO NOTHING
		`,
			ev.ID,
			ev.Pool,
			int64(ev.Seq),
			ev.Name,
			int64(ev.Timestamp),
			data,
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

// PutSnapshot inserts or replaces the pool's latest snapshot.
func (s *Store) PutSnapshot(ctx context.Context, snap model.PoolSnapshot) error {
	tickets, err := json.Marshal(snap.Tickets)
	if err != nil {
		return fmt.Errorf("marshal tickets: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO pool_snapshots (
			pool, asset, balance, local, staked, owed, award_balance, timelock_total, tickets, ts, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now())
		ON CONFLICT (pool)
		DO UPDATE SET
			asset = EXCLUDED.asset,
			balance = EXCLUDED.balance,
			local = EXCLUDED.local,
			staked = EXCLUDED.staked,
			owed = EXCLUDED.owed,
			award_balance = EXCLUDED.award_balance,
			timelock_total = EXCLUDED.timelock_total,
			tickets = EXCLUDED.tickets,
			ts = EXCLUDED.ts,
			updated_at = now()
	`,
		snap.Pool,
		snap.Asset,
		snap.Balance,
		snap.Local,
		snap.Staked,
		snap.Owed,
		snap.AwardBalance,
		snap.TimelockTotal,
		tickets,
		int64(snap.Timestamp),
	)
	return err
}

// PutHoldings inserts or updates audit reports keyed by pool and block.
func (s *Store) PutHoldings(ctx context.Context, reports []model.HoldingsReport) error {
	if len(reports) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, r := range reports {
		batch.Queue(`
			INSERT INTO pool_holdings (pool, block, asset, ts, local, staked, owed, total, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
			ON CONFLICT (pool, block)
			DO UPDATE SET
				asset = EXCLUDED.asset,
				ts = EXCLUDED.ts,
				local = EXCLUDED.local,
				staked = EXCLUDED.staked,
				owed = EXCLUDED.owed,
				total = EXCLUDED.total,
				updated_at = now()
		`,
			r.Pool,
			int64(r.Block),
			r.Asset,
			int64(r.Timestamp),
			r.Local,
			r.Staked,
			r.Owed,
			r.Total,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range reports {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// LoadState returns the last audited block for a name.
func (s *Store) LoadState(ctx context.Context, name string) (uint64, bool, error) {
	if name == "" {
		return 0, false, fmt.Errorf("state name required")
	}
	var block int64
	row := s.pool.QueryRow(ctx, `SELECT last_processed_block FROM audit_state WHERE name=$1`, name)
	if err := row.Scan(&block); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return uint64(block), true, nil
}

// SaveState upserts the last audited block for a name.
func (s *Store) SaveState(ctx context.Context, name string, block uint64) error {
	if name == "" {
		return fmt.Errorf("state name required")
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO audit_state (name, last_processed_block, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (name) DO UPDATE
		SET last_processed_block = EXCLUDED.last_processed_block, updated_at = now()
	`, name, int64(block))
	return err
}

// EventSink adapts the store to a pool event sink bound to ctx.
func (s *Store) EventSink(ctx context.Context) *EventSink {
	return &EventSink{ctx: ctx, store: s}
}

// EventSink writes pool events to Postgres.
type EventSink struct {
	ctx   context.Context
	store *Store
}

func (e *EventSink) PutEventBatch(events []model.PoolEvent) error {
	return e.store.InsertEvents(e.ctx, events)
}
