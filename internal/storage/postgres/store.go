// Package postgres provides the PostgreSQL-backed gacha store for
// multi-instance deployments. Row locks on the wallet make the debit
// safe across processes, not just across goroutines.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"

	"github.com/aetherforge/gacha-engine/internal/engine"
	"github.com/aetherforge/gacha-engine/internal/gacha"
)

// Store persists wallets, pity state and pull history in PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// Open connects a pgx pool to dsn, pings it and ensures the schema.
func Open(ctx context.Context, dsn string, maxConns int32) (*Store, error) {
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	if maxConns > 0 {
		poolConfig.MaxConns = maxConns
	}
	poolConfig.MaxConnLifetime = 1 * time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := ensureSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	log.Info("connected to PostgreSQL")
	return &Store{pool: pool}, nil
}

func ensureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS wallets (
			user_id      TEXT PRIMARY KEY,
			balance      BIGINT NOT NULL DEFAULT 0 CHECK (balance >= 0),
			total_earned BIGINT NOT NULL DEFAULT 0,
			total_spent  BIGINT NOT NULL DEFAULT 0,
			created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS pity (
			user_id          TEXT NOT NULL,
			pool_id          TEXT NOT NULL,
			pulls_since_top  INTEGER NOT NULL DEFAULT 0,
			pulls_since_rare INTEGER NOT NULL DEFAULT 0,
			total_pulls      INTEGER NOT NULL DEFAULT 0,
			updated_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (user_id, pool_id)
		);

		CREATE TABLE IF NOT EXISTS pulls (
			id          TEXT PRIMARY KEY,
			seq         BIGSERIAL,
			user_id     TEXT NOT NULL,
			pool_id     TEXT NOT NULL,
			reward_id   TEXT NOT NULL,
			rarity      TEXT NOT NULL,
			pull_number INTEGER NOT NULL,
			is_pity     BOOLEAN NOT NULL DEFAULT FALSE,
			cost_paid   BIGINT NOT NULL,
			pulled_at   TIMESTAMPTZ NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_pulls_user_time ON pulls (user_id, pulled_at DESC, seq DESC);
		CREATE INDEX IF NOT EXISTS idx_pulls_user_pool_time ON pulls (user_id, pool_id, pulled_at DESC, seq DESC);
	`)
	return err
}

// Close releases the connection pool.
func (s *Store) Close() error {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
	return nil
}

// CreateWallet inserts a wallet row. The initial balance counts as earned.
func (s *Store) CreateWallet(ctx context.Context, userID string, initialBalance int64) error {
	if userID == "" {
		return fmt.Errorf("user id is required")
	}
	if initialBalance < 0 {
		return fmt.Errorf("initial balance must not be negative")
	}
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO wallets (user_id, balance, total_earned, total_spent)
		VALUES ($1, $2, $2, 0)
		ON CONFLICT (user_id) DO NOTHING
	`, userID, initialBalance)
	if err != nil {
		return &engine.PersistenceError{Op: "create wallet", Err: err}
	}
	if tag.RowsAffected() == 0 {
		return engine.ErrConflict
	}
	return nil
}

// GetWallet returns the user's wallet.
func (s *Store) GetWallet(ctx context.Context, userID string) (engine.Wallet, error) {
	var w engine.Wallet
	err := s.pool.QueryRow(ctx, `
		SELECT user_id, balance, total_earned, total_spent, created_at, updated_at
		FROM wallets
		WHERE user_id = $1
	`, userID).Scan(&w.UserID, &w.Balance, &w.TotalEarned, &w.TotalSpent, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return engine.Wallet{}, engine.ErrWalletNotFound
		}
		return engine.Wallet{}, &engine.PersistenceError{Op: "get wallet", Err: err}
	}
	return w, nil
}

// Credit adds amount to the wallet's balance and lifetime earnings.
func (s *Store) Credit(ctx context.Context, userID string, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("credit amount must be positive")
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE wallets
		SET balance = balance + $2, total_earned = total_earned + $2, updated_at = NOW()
		WHERE user_id = $1
	`, userID, amount)
	if err != nil {
		return &engine.PersistenceError{Op: "credit wallet", Err: err}
	}
	if tag.RowsAffected() == 0 {
		return engine.ErrWalletNotFound
	}
	return nil
}

// GetPity returns the pair's pity counters, or the zero state when the
// pair has never pulled.
func (s *Store) GetPity(ctx context.Context, userID, poolID string) (gacha.PityState, error) {
	var state gacha.PityState
	err := s.pool.QueryRow(ctx, `
		SELECT pulls_since_top, pulls_since_rare, total_pulls
		FROM pity
		WHERE user_id = $1 AND pool_id = $2
	`, userID, poolID).Scan(&state.PullsSinceTop, &state.PullsSinceRareOrBetter, &state.TotalPulls)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return gacha.PityState{}, nil
		}
		return gacha.PityState{}, &engine.PersistenceError{Op: "get pity", Err: err}
	}
	return state, nil
}

// CommitPull applies one pull transaction atomically. The wallet row is
// locked for the duration so a concurrent debit from another instance
// waits instead of double-spending.
func (s *Store) CommitPull(ctx context.Context, p engine.CommitPullParams) error {
	if len(p.Records) == 0 {
		return fmt.Errorf("commit needs at least one record")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return &engine.PersistenceError{Op: "begin commit", Err: err}
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var balance int64
	err = tx.QueryRow(ctx, `
		SELECT balance FROM wallets WHERE user_id = $1 FOR UPDATE
	`, p.UserID).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return engine.ErrWalletNotFound
		}
		return &engine.PersistenceError{Op: "lock wallet", Err: err}
	}
	if balance < p.Cost {
		return engine.ErrConflict
	}

	if _, err := tx.Exec(ctx, `
		UPDATE wallets
		SET balance = balance - $2, total_spent = total_spent + $2, updated_at = NOW()
		WHERE user_id = $1
	`, p.UserID, p.Cost); err != nil {
		return &engine.PersistenceError{Op: "debit wallet", Err: err}
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO pity (user_id, pool_id, pulls_since_top, pulls_since_rare, total_pulls, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (user_id, pool_id) DO UPDATE SET
			pulls_since_top = EXCLUDED.pulls_since_top,
			pulls_since_rare = EXCLUDED.pulls_since_rare,
			total_pulls = EXCLUDED.total_pulls,
			updated_at = EXCLUDED.updated_at
	`, p.UserID, p.PoolID, p.Pity.PullsSinceTop, p.Pity.PullsSinceRareOrBetter, p.Pity.TotalPulls); err != nil {
		return &engine.PersistenceError{Op: "upsert pity", Err: err}
	}

	for _, rec := range p.Records {
		if _, err := tx.Exec(ctx, `
			INSERT INTO pulls (id, user_id, pool_id, reward_id, rarity, pull_number, is_pity, cost_paid, pulled_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`, rec.ID, rec.UserID, rec.PoolID, rec.RewardID,
			rec.Rarity.String(), rec.PullNumber, rec.IsPity, rec.CostPaid, rec.PulledAt); err != nil {
			return &engine.PersistenceError{Op: "insert pull record", Err: err}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return &engine.PersistenceError{Op: "commit pull", Err: err}
	}
	return nil
}

// ListPulls returns one page of pull records, newest first.
func (s *Store) ListPulls(ctx context.Context, userID, poolID string, limit, offset int) ([]engine.PullRecord, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be greater than zero")
	}

	query := `
		SELECT id, user_id, pool_id, reward_id, rarity, pull_number, is_pity, cost_paid, pulled_at
		FROM pulls
		WHERE user_id = $1`
	args := []any{userID}
	if poolID != "" {
		query += ` AND pool_id = $2 ORDER BY pulled_at DESC, seq DESC LIMIT $3 OFFSET $4`
		args = append(args, poolID, limit, offset)
	} else {
		query += ` ORDER BY pulled_at DESC, seq DESC LIMIT $2 OFFSET $3`
		args = append(args, limit, offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, &engine.PersistenceError{Op: "list pulls", Err: err}
	}
	defer rows.Close()

	records := make([]engine.PullRecord, 0, limit)
	for rows.Next() {
		var rec engine.PullRecord
		var rarity string
		if err := rows.Scan(
			&rec.ID, &rec.UserID, &rec.PoolID, &rec.RewardID,
			&rarity, &rec.PullNumber, &rec.IsPity, &rec.CostPaid, &rec.PulledAt,
		); err != nil {
			return nil, &engine.PersistenceError{Op: "list pulls", Err: err}
		}
		tier, err := gacha.ParseRarity(rarity)
		if err != nil {
			return nil, &engine.PersistenceError{Op: "list pulls", Err: err}
		}
		rec.Rarity = tier
		rec.PulledAt = rec.PulledAt.UTC()
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, &engine.PersistenceError{Op: "list pulls", Err: err}
	}
	return records, nil
}

// TierCounts returns per-tier pull counts for the user plus the total
// amount spent across all recorded pulls.
func (s *Store) TierCounts(ctx context.Context, userID string) (map[gacha.Rarity]int64, int64, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT rarity, COUNT(*), COALESCE(SUM(cost_paid), 0)
		FROM pulls
		WHERE user_id = $1
		GROUP BY rarity
	`, userID)
	if err != nil {
		return nil, 0, &engine.PersistenceError{Op: "tier counts", Err: err}
	}
	defer rows.Close()

	counts := make(map[gacha.Rarity]int64)
	var totalSpent int64
	for rows.Next() {
		var rarity string
		var count, spent int64
		if err := rows.Scan(&rarity, &count, &spent); err != nil {
			return nil, 0, &engine.PersistenceError{Op: "tier counts", Err: err}
		}
		tier, err := gacha.ParseRarity(rarity)
		if err != nil {
			return nil, 0, &engine.PersistenceError{Op: "tier counts", Err: err}
		}
		counts[tier] = count
		totalSpent += spent
	}
	if err := rows.Err(); err != nil {
		return nil, 0, &engine.PersistenceError{Op: "tier counts", Err: err}
	}
	return counts, totalSpent, nil
}

var _ engine.Store = (*Store)(nil)
