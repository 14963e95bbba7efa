// Package sqlite provides the SQLite-backed gacha store. It is the
// default backend: a single file, no server, safe for local runs and
// tests.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/aetherforge/gacha-engine/internal/engine"
	"github.com/aetherforge/gacha-engine/internal/gacha"
	"github.com/aetherforge/gacha-engine/internal/storage/sqlite/migrations"
)

// Store persists wallets, pity state and pull history in SQLite.
type Store struct {
	sqlDB *sql.DB
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite store at path and applies embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// CreateWallet inserts a wallet row. The initial balance counts as earned.
func (s *Store) CreateWallet(ctx context.Context, userID string, initialBalance int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if userID == "" {
		return fmt.Errorf("user id is required")
	}
	if initialBalance < 0 {
		return fmt.Errorf("initial balance must not be negative")
	}
	now := toMillis(time.Now())
	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO wallets (user_id, balance, total_earned, total_spent, created_at, updated_at)
		 VALUES (?, ?, ?, 0, ?, ?)`,
		userID, initialBalance, initialBalance, now, now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return engine.ErrConflict
		}
		return &engine.PersistenceError{Op: "create wallet", Err: err}
	}
	return nil
}

// GetWallet returns the user's wallet.
func (s *Store) GetWallet(ctx context.Context, userID string) (engine.Wallet, error) {
	if err := ctx.Err(); err != nil {
		return engine.Wallet{}, err
	}
	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT user_id, balance, total_earned, total_spent, created_at, updated_at
		   FROM wallets
		  WHERE user_id = ?`,
		userID,
	)

	var w engine.Wallet
	var createdAt, updatedAt int64
	err := row.Scan(&w.UserID, &w.Balance, &w.TotalEarned, &w.TotalSpent, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return engine.Wallet{}, engine.ErrWalletNotFound
		}
		return engine.Wallet{}, &engine.PersistenceError{Op: "get wallet", Err: err}
	}
	w.CreatedAt = fromMillis(createdAt)
	w.UpdatedAt = fromMillis(updatedAt)
	return w, nil
}

// Credit adds amount to the wallet's balance and lifetime earnings.
func (s *Store) Credit(ctx context.Context, userID string, amount int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if amount <= 0 {
		return fmt.Errorf("credit amount must be positive")
	}
	res, err := s.sqlDB.ExecContext(
		ctx,
		`UPDATE wallets
		    SET balance = balance + ?, total_earned = total_earned + ?, updated_at = ?
		  WHERE user_id = ?`,
		amount, amount, toMillis(time.Now()), userID,
	)
	if err != nil {
		return &engine.PersistenceError{Op: "credit wallet", Err: err}
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return &engine.PersistenceError{Op: "credit wallet", Err: err}
	}
	if affected == 0 {
		return engine.ErrWalletNotFound
	}
	return nil
}

// GetPity returns the pair's pity counters, or the zero state when the
// pair has never pulled.
func (s *Store) GetPity(ctx context.Context, userID, poolID string) (gacha.PityState, error) {
	if err := ctx.Err(); err != nil {
		return gacha.PityState{}, err
	}
	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT pulls_since_top, pulls_since_rare, total_pulls
		   FROM pity
		  WHERE user_id = ? AND pool_id = ?`,
		userID, poolID,
	)

	var state gacha.PityState
	err := row.Scan(&state.PullsSinceTop, &state.PullsSinceRareOrBetter, &state.TotalPulls)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return gacha.PityState{}, nil
		}
		return gacha.PityState{}, &engine.PersistenceError{Op: "get pity", Err: err}
	}
	return state, nil
}

// CommitPull applies one pull transaction atomically: the guarded wallet
// debit, the pity upsert and every record insert. The debit predicate
// rejects an overdraw even if a writer outside this process raced us.
func (s *Store) CommitPull(ctx context.Context, p engine.CommitPullParams) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(p.Records) == 0 {
		return fmt.Errorf("commit needs at least one record")
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return &engine.PersistenceError{Op: "begin commit", Err: err}
	}
	defer func() { _ = tx.Rollback() }()

	now := toMillis(time.Now())

	res, err := tx.ExecContext(
		ctx,
		`UPDATE wallets
		    SET balance = balance - ?, total_spent = total_spent + ?, updated_at = ?
		  WHERE user_id = ? AND balance >= ?`,
		p.Cost, p.Cost, now, p.UserID, p.Cost,
	)
	if err != nil {
		return &engine.PersistenceError{Op: "debit wallet", Err: err}
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return &engine.PersistenceError{Op: "debit wallet", Err: err}
	}
	if affected == 0 {
		return engine.ErrConflict
	}

	if _, err := tx.ExecContext(
		ctx,
		`INSERT INTO pity (user_id, pool_id, pulls_since_top, pulls_since_rare, total_pulls, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (user_id, pool_id) DO UPDATE SET
		     pulls_since_top = excluded.pulls_since_top,
		     pulls_since_rare = excluded.pulls_since_rare,
		     total_pulls = excluded.total_pulls,
		     updated_at = excluded.updated_at`,
		p.UserID, p.PoolID,
		p.Pity.PullsSinceTop, p.Pity.PullsSinceRareOrBetter, p.Pity.TotalPulls,
		now,
	); err != nil {
		return &engine.PersistenceError{Op: "upsert pity", Err: err}
	}

	for _, rec := range p.Records {
		if _, err := tx.ExecContext(
			ctx,
			`INSERT INTO pulls (id, user_id, pool_id, reward_id, rarity, pull_number, is_pity, cost_paid, pulled_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			rec.ID, rec.UserID, rec.PoolID, rec.RewardID,
			rec.Rarity.String(), rec.PullNumber, boolToInt(rec.IsPity),
			rec.CostPaid, toMillis(rec.PulledAt),
		); err != nil {
			return &engine.PersistenceError{Op: "insert pull record", Err: err}
		}
	}

	if err := tx.Commit(); err != nil {
		return &engine.PersistenceError{Op: "commit pull", Err: err}
	}
	return nil
}

// ListPulls returns one page of pull records, newest first. Records that
// share a timestamp come back in reverse insertion order, so the last
// draw of a batch leads.
func (s *Store) ListPulls(ctx context.Context, userID, poolID string, limit, offset int) ([]engine.PullRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be greater than zero")
	}

	query := `SELECT id, user_id, pool_id, reward_id, rarity, pull_number, is_pity, cost_paid, pulled_at
	            FROM pulls
	           WHERE user_id = ?`
	args := []any{userID}
	if poolID != "" {
		query += ` AND pool_id = ?`
		args = append(args, poolID)
	}
	query += ` ORDER BY pulled_at DESC, rowid DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &engine.PersistenceError{Op: "list pulls", Err: err}
	}
	defer rows.Close()

	records := make([]engine.PullRecord, 0, limit)
	for rows.Next() {
		var rec engine.PullRecord
		var rarity string
		var isPity int
		var pulledAt int64
		if err := rows.Scan(
			&rec.ID, &rec.UserID, &rec.PoolID, &rec.RewardID,
			&rarity, &rec.PullNumber, &isPity, &rec.CostPaid, &pulledAt,
		); err != nil {
			return nil, &engine.PersistenceError{Op: "list pulls", Err: err}
		}
		tier, err := gacha.ParseRarity(rarity)
		if err != nil {
			return nil, &engine.PersistenceError{Op: "list pulls", Err: err}
		}
		rec.Rarity = tier
		rec.IsPity = isPity != 0
		rec.PulledAt = fromMillis(pulledAt)
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
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT rarity, COUNT(*), COALESCE(SUM(cost_paid), 0)
		   FROM pulls
		  WHERE user_id = ?
		  GROUP BY rarity`,
		userID,
	)
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

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func isUniqueViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

var _ engine.Store = (*Store)(nil)
