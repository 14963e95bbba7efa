// Package engine is the pull engine proper: it validates requests, runs
// the ledger transaction (debit + draws + history in one commit) under a
// per-(user,pool) single-writer lock, and shapes results for presentation.
package engine

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/aetherforge/gacha-engine/internal/gacha"
	"github.com/aetherforge/gacha-engine/internal/pool"
	"github.com/aetherforge/gacha-engine/internal/pricing"
)

// Engine is the public entry point for the pull surface.
type Engine struct {
	catalog *pool.Catalog
	store   Store
	rng     gacha.RandomSource
	locks   *lockTable
}

// New builds an engine. A nil rng falls back to the crypto-backed default;
// tests pass a seeded source to make draws replayable.
func New(catalog *pool.Catalog, store Store, rng gacha.RandomSource) *Engine {
	if rng == nil {
		rng = gacha.DefaultRNG()
	}
	return &Engine{
		catalog: catalog,
		store:   store,
		rng:     rng,
		locks:   newLockTable(),
	}
}

// Pull performs one paid pull request of 1 or 10 draws.
//
// Not idempotent by request identity: a retry after a lost response is a
// second real pull and a second real debit.
func (e *Engine) Pull(ctx context.Context, userID, poolID string, count int) (PullBatchResult, error) {
	if userID == "" {
		return PullBatchResult{}, &ValidationError{Msg: "userID is required"}
	}
	if poolID == "" {
		return PullBatchResult{}, &ValidationError{Msg: "poolID is required"}
	}
	if count != 1 && count != 10 {
		return PullBatchResult{}, &ValidationError{Msg: fmt.Sprintf("count must be 1 or 10, got %d", count)}
	}

	p, ok := e.catalog.Pool(poolID)
	if !ok {
		return PullBatchResult{}, ErrPoolNotFound
	}
	cost := pricing.Cost{Single: p.CostSingle, Multi: p.CostMulti}.ForCount(count)

	// single-writer section for this (user, pool) pair: balance check,
	// pity read, draw loop and commit must not interleave with another
	// request for the same pair
	mu := e.locks.acquire(userID, poolID)
	defer mu.Unlock()

	wallet, err := e.store.GetWallet(ctx, userID)
	if err != nil {
		return PullBatchResult{}, err
	}
	if wallet.Balance < cost {
		return PullBatchResult{}, &InsufficientBalanceError{Balance: wallet.Balance, Required: cost}
	}

	pity, err := e.store.GetPity(ctx, userID, poolID)
	if err != nil {
		return PullBatchResult{}, err
	}

	shares := pricing.Split(cost, count)
	now := time.Now().UTC()
	records := make([]PullRecord, 0, count)
	for i := 0; i < count; i++ {
		// resolve against the *current* pity state, then advance it, so
		// a guarantee coming due mid-batch fires on the exact draw
		out := gacha.Resolve(pity, p.Table, e.rng)
		reward, ok := gacha.PickReward(p.Catalog, out.Tier, e.rng)
		if !ok {
			return PullBatchResult{}, fmt.Errorf("pool %s: empty catalog", poolID)
		}
		records = append(records, PullRecord{
			ID:         uuid.NewString(),
			UserID:     userID,
			PoolID:     poolID,
			RewardID:   reward.ID,
			Rarity:     out.Tier,
			PullNumber: i + 1,
			IsPity:     out.Forced,
			CostPaid:   shares[i],
			PulledAt:   now,
		})
		pity = gacha.Update(pity, out.Tier)
	}

	if err := e.store.CommitPull(ctx, CommitPullParams{
		UserID:  userID,
		PoolID:  poolID,
		Cost:    cost,
		Pity:    pity,
		Records: records,
	}); err != nil {
		return PullBatchResult{}, err
	}

	log.WithFields(log.Fields{
		"user":  userID,
		"pool":  poolID,
		"count": count,
		"cost":  cost,
	}).Info("pull committed")

	return PullBatchResult{
		Pulls:       presentationOrder(records),
		AmountSpent: cost,
		Pity:        pity,
	}, nil
}

// History returns one reverse-chronological page of the user's pulls.
// poolID == "" spans all pools. The limit is clamped to [1, 200] with a
// default of 50.
func (e *Engine) History(ctx context.Context, userID, poolID string, limit, offset int) (HistoryPage, error) {
	if userID == "" {
		return HistoryPage{}, &ValidationError{Msg: "userID is required"}
	}
	limit = clampLimit(limit)
	if offset < 0 {
		offset = 0
	}

	records, err := e.store.ListPulls(ctx, userID, poolID, limit, offset)
	if err != nil {
		return HistoryPage{}, err
	}
	return HistoryPage{
		Records: records,
		HasMore: len(records) == limit,
	}, nil
}

// Stats aggregates the user's pulls: counts and observed rates per tier.
func (e *Engine) Stats(ctx context.Context, userID string) (StatsResult, error) {
	if userID == "" {
		return StatsResult{}, &ValidationError{Msg: "userID is required"}
	}

	counts, spent, err := e.store.TierCounts(ctx, userID)
	if err != nil {
		return StatsResult{}, err
	}

	res := StatsResult{
		TotalSpent:   spent,
		CountsByTier: make(map[string]int64, len(gacha.Tiers)),
		RatesByTier:  make(map[string]float64, len(gacha.Tiers)),
	}
	for _, tier := range gacha.Tiers {
		res.TotalPulls += counts[tier]
	}
	for _, tier := range gacha.Tiers {
		res.CountsByTier[tier.String()] = counts[tier]
		if res.TotalPulls > 0 {
			res.RatesByTier[tier.String()] = float64(counts[tier]) / float64(res.TotalPulls)
		} else {
			res.RatesByTier[tier.String()] = 0
		}
	}
	return res, nil
}

// Quote returns the pool's pull pricing.
func (e *Engine) Quote(poolID string) (pricing.Quote, error) {
	p, ok := e.catalog.Pool(poolID)
	if !ok {
		return pricing.Quote{}, ErrPoolNotFound
	}
	return pricing.QuoteFor(pricing.Cost{Single: p.CostSingle, Multi: p.CostMulti}), nil
}

// PityStatus returns the pair's pity counters plus pulls remaining until
// each guarantee, for the "N pulls until guarantee" display.
func (e *Engine) PityStatus(ctx context.Context, userID, poolID string) (PityStatusResult, error) {
	if userID == "" {
		return PityStatusResult{}, &ValidationError{Msg: "userID is required"}
	}
	p, ok := e.catalog.Pool(poolID)
	if !ok {
		return PityStatusResult{}, ErrPoolNotFound
	}

	pity, err := e.store.GetPity(ctx, userID, poolID)
	if err != nil {
		return PityStatusResult{}, err
	}
	return PityStatusResult{
		Pity:               pity,
		UntilTopGuarantee:  p.Table.HardPityTop - pity.PullsSinceTop,
		UntilRareGuarantee: p.Table.HardPityRare - pity.PullsSinceRareOrBetter,
	}, nil
}

// presentationOrder sorts a batch by rarity rank, top tier first, keeping
// draw order among equal tiers. Reveal ordering only; storage keeps draw
// order via PullNumber.
func presentationOrder(records []PullRecord) []PullRecord {
	out := append([]PullRecord(nil), records...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Rarity.Rank() < out[j].Rarity.Rank()
	})
	return out
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return 50
	}
	if limit > 200 {
		return 200
	}
	return limit
}
