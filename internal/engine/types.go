package engine

import (
	"context"
	"time"

	"github.com/aetherforge/gacha-engine/internal/gacha"
)

// Wallet is the user's aether balance as this engine sees it. The balance
// never goes negative; it is only mutated inside the single-writer section
// of a pull transaction (or by Credit, for funding).
type Wallet struct {
	UserID      string
	Balance     int64
	TotalEarned int64
	TotalSpent  int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// PullRecord is one drawn item. Append-only: written once per draw, never
// updated or deleted.
type PullRecord struct {
	ID         string
	UserID     string
	PoolID     string
	RewardID   string
	Rarity     gacha.Rarity
	PullNumber int   // 1-based position inside its batch
	IsPity     bool  // a hard-pity threshold decided this draw
	CostPaid   int64 // this record's share of the batch charge
	PulledAt   time.Time
}

// PullBatchResult is the outcome of one pull request. Ephemeral: the
// records persist individually, the batch itself does not.
type PullBatchResult struct {
	Pulls       []PullRecord     // presentation order: top tier first
	AmountSpent int64
	Pity        gacha.PityState // state after the whole batch
}

// CommitPullParams is everything one atomic commit writes: the wallet
// debit, the final pity state, and every record of the batch.
type CommitPullParams struct {
	UserID  string
	PoolID  string
	Cost    int64
	Pity    gacha.PityState
	Records []PullRecord
}

// HistoryPage is one page of pull history. HasMore is true iff the page is
// exactly limit long; an exactly-full final page still reports true, which
// costs the caller one empty probe. That trade is deliberate.
type HistoryPage struct {
	Records []PullRecord
	HasMore bool
}

// StatsResult aggregates a user's pulls across all pools.
type StatsResult struct {
	TotalPulls   int64
	TotalSpent   int64
	CountsByTier map[string]int64
	RatesByTier  map[string]float64 // fraction of total pulls, 0 when none
}

// PityStatusResult is the pity state plus the client-facing countdowns.
type PityStatusResult struct {
	Pity               gacha.PityState
	UntilTopGuarantee  int
	UntilRareGuarantee int
}

// Store is the persistence contract. CommitPull must be atomic: the debit
// (guarded so the balance cannot go negative), the pity upsert and the
// record inserts all land or none do.
type Store interface {
	CreateWallet(ctx context.Context, userID string, initialBalance int64) error
	GetWallet(ctx context.Context, userID string) (Wallet, error)
	Credit(ctx context.Context, userID string, amount int64) error

	// GetPity returns the zero state for a pair that never pulled.
	GetPity(ctx context.Context, userID, poolID string) (gacha.PityState, error)

	CommitPull(ctx context.Context, p CommitPullParams) error

	// ListPulls returns records reverse-chronological by PulledAt.
	// poolID == "" means all pools.
	ListPulls(ctx context.Context, userID, poolID string, limit, offset int) ([]PullRecord, error)

	// TierCounts returns per-tier pull counts and the summed cost paid.
	TierCounts(ctx context.Context, userID string) (map[gacha.Rarity]int64, int64, error)

	Close() error
}
