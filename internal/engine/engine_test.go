package engine_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aetherforge/gacha-engine/internal/engine"
	"github.com/aetherforge/gacha-engine/internal/gacha"
	"github.com/aetherforge/gacha-engine/internal/pool"
	"github.com/aetherforge/gacha-engine/internal/storage/sqlite"
)

const defaultYAML = `version: "1"
draw:
  rates:
    common: 8000
    rare: 1500
    epic: 450
    legendary: 50
  hard_pity_top: 90
  hard_pity_rare: 10
  soft:
    top_start: 75
    top_boost: 600
    rare_start: 8
    rare_boost: 500
cost:
  single: 10
  multi: 90
`

const standardYAML = `name: Standard
rewards:
  - id: leg-a
    rarity: legendary
    weight: 10
  - id: epic-a
    rarity: epic
    weight: 30
  - id: rare-a
    rarity: rare
    weight: 50
  - id: common-a
    rarity: common
    weight: 100
`

// pricy exists to make two concurrent singles exceed a 150 balance
const pricyYAML = `name: Pricy
cost:
  single: 100
  multi: 900
rewards:
  - id: rare-a
    rarity: rare
    weight: 50
  - id: common-a
    rarity: common
    weight: 100
`

// shortpity has no legendary base rate, so the only legendaries are the
// hard guarantee firing every 5th pull
const shortPityYAML = `name: Short Pity
draw:
  rates:
    common: 9000
    rare: 1000
    epic: 0
    legendary: 0
  hard_pity_top: 5
  hard_pity_rare: 3
  soft:
    top_start: 0
    rare_start: 0
rewards:
  - id: leg-a
    rarity: legendary
    weight: 10
  - id: rare-a
    rarity: rare
    weight: 50
  - id: common-a
    rarity: common
    weight: 100
`

func newTestEngine(t *testing.T) (*engine.Engine, engine.Store) {
	t.Helper()

	base := t.TempDir()
	dir := filepath.Join(base, "pools")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	files := map[string]string{
		"default.yaml":   defaultYAML,
		"standard.yaml":  standardYAML,
		"pricy.yaml":     pricyYAML,
		"shortpity.yaml": shortPityYAML,
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}

	catalog, err := pool.NewCatalog(pool.NewLoader(base))
	require.NoError(t, err)

	store, err := sqlite.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	return engine.New(catalog, store, gacha.NewSeededRNG(42)), store
}

func TestPullSingle(t *testing.T) {
	eng, store := newTestEngine(t)
	ctx := context.Background()
	require.NoError(t, store.CreateWallet(ctx, "u1", 100))

	res, err := eng.Pull(ctx, "u1", "standard", 1)
	require.NoError(t, err)
	require.Len(t, res.Pulls, 1)
	require.Equal(t, int64(10), res.AmountSpent)
	require.Equal(t, int64(10), res.Pulls[0].CostPaid)
	require.Equal(t, 1, res.Pity.TotalPulls)

	w, err := store.GetWallet(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, int64(90), w.Balance)
	require.Equal(t, int64(10), w.TotalSpent)
}

func TestPullTenCostsFlatMulti(t *testing.T) {
	eng, store := newTestEngine(t)
	ctx := context.Background()
	require.NoError(t, store.CreateWallet(ctx, "u1", 100))

	res, err := eng.Pull(ctx, "u1", "standard", 10)
	require.NoError(t, err)
	require.Len(t, res.Pulls, 10)
	require.Equal(t, int64(90), res.AmountSpent)

	var sum int64
	seen := make(map[int]bool)
	for _, rec := range res.Pulls {
		sum += rec.CostPaid
		seen[rec.PullNumber] = true
	}
	require.Equal(t, int64(90), sum, "per-record costs must sum to the batch charge")
	require.Len(t, seen, 10, "pull numbers 1..10 must all be present")

	w, err := store.GetWallet(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, int64(10), w.Balance)
}

func TestPullValidation(t *testing.T) {
	eng, store := newTestEngine(t)
	ctx := context.Background()
	require.NoError(t, store.CreateWallet(ctx, "u1", 100))

	var ve *engine.ValidationError
	_, err := eng.Pull(ctx, "u1", "standard", 5)
	require.ErrorAs(t, err, &ve)
	_, err = eng.Pull(ctx, "", "standard", 1)
	require.ErrorAs(t, err, &ve)
	_, err = eng.Pull(ctx, "u1", "", 1)
	require.ErrorAs(t, err, &ve)

	_, err = eng.Pull(ctx, "u1", "no-such-pool", 1)
	require.ErrorIs(t, err, engine.ErrPoolNotFound)

	_, err = eng.Pull(ctx, "ghost", "standard", 1)
	require.ErrorIs(t, err, engine.ErrWalletNotFound)
}

func TestPullInsufficientBalanceLeavesState(t *testing.T) {
	eng, store := newTestEngine(t)
	ctx := context.Background()
	require.NoError(t, store.CreateWallet(ctx, "u1", 50))

	_, err := eng.Pull(ctx, "u1", "standard", 10)
	var ibe *engine.InsufficientBalanceError
	require.ErrorAs(t, err, &ibe)
	require.Equal(t, int64(50), ibe.Balance)
	require.Equal(t, int64(90), ibe.Required)

	w, err := store.GetWallet(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, int64(50), w.Balance)
	require.Zero(t, w.TotalSpent)

	pity, err := store.GetPity(ctx, "u1", "standard")
	require.NoError(t, err)
	require.Equal(t, gacha.PityState{}, pity)

	page, err := eng.History(ctx, "u1", "", 50, 0)
	require.NoError(t, err)
	require.Empty(t, page.Records)
}

func TestPullConcurrentSamePair(t *testing.T) {
	eng, store := newTestEngine(t)
	ctx := context.Background()
	require.NoError(t, store.CreateWallet(ctx, "u1", 150))

	// two concurrent 100-cost singles against 150: exactly one may win
	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = eng.Pull(ctx, "u1", "pricy", 1)
		}(i)
	}
	wg.Wait()

	var ok, insufficient int
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		var ibe *engine.InsufficientBalanceError
		require.ErrorAs(t, err, &ibe)
		insufficient++
	}
	require.Equal(t, 1, ok)
	require.Equal(t, 1, insufficient)

	w, err := store.GetWallet(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, int64(50), w.Balance)
}

func TestPullBatchGuaranteesRareOrBetter(t *testing.T) {
	eng, store := newTestEngine(t)
	ctx := context.Background()
	require.NoError(t, store.CreateWallet(ctx, "u1", 90))

	// hard rare pity is 10, so a fresh ten-pull cannot be all common
	res, err := eng.Pull(ctx, "u1", "standard", 10)
	require.NoError(t, err)

	rareUp := 0
	for _, rec := range res.Pulls {
		if rec.Rarity.RareOrBetter() {
			rareUp++
		}
	}
	require.GreaterOrEqual(t, rareUp, 1)
}

func TestPullHardPityFiresMidStream(t *testing.T) {
	eng, store := newTestEngine(t)
	ctx := context.Background()
	require.NoError(t, store.CreateWallet(ctx, "u1", 1000))

	// shortpity has a zero legendary base rate, so the only possible
	// legendary is the guarantee on the 5th consecutive miss
	legendaries := 0
	for i := 0; i < 5; i++ {
		res, err := eng.Pull(ctx, "u1", "shortpity", 1)
		require.NoError(t, err)
		rec := res.Pulls[0]
		if rec.Rarity == gacha.RarityLegendary {
			legendaries++
			require.True(t, rec.IsPity, "a zero-rate legendary can only come from the guarantee")
			require.Equal(t, 0, res.Pity.PullsSinceTop, "the guarantee must reset the counter")
		}
	}
	require.Equal(t, 1, legendaries, "exactly the 5th pull is the guaranteed legendary")
}

func TestPullPresentationOrder(t *testing.T) {
	eng, store := newTestEngine(t)
	ctx := context.Background()
	require.NoError(t, store.CreateWallet(ctx, "u1", 90))

	res, err := eng.Pull(ctx, "u1", "standard", 10)
	require.NoError(t, err)

	for i := 1; i < len(res.Pulls); i++ {
		require.LessOrEqual(t, res.Pulls[i-1].Rarity.Rank(), res.Pulls[i].Rarity.Rank(),
			"results must be sorted best tier first")
	}
}

func TestBalanceConservation(t *testing.T) {
	eng, store := newTestEngine(t)
	ctx := context.Background()
	require.NoError(t, store.CreateWallet(ctx, "u1", 1000))

	for i := 0; i < 4; i++ {
		_, err := eng.Pull(ctx, "u1", "standard", 10)
		require.NoError(t, err)
	}
	_, err := eng.Pull(ctx, "u1", "standard", 1)
	require.NoError(t, err)

	w, err := store.GetWallet(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, int64(1000), w.Balance+w.TotalSpent)

	stats, err := eng.Stats(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, w.TotalSpent, stats.TotalSpent, "recorded costs must sum to the amount debited")
}

func TestHistoryPagination(t *testing.T) {
	eng, store := newTestEngine(t)
	ctx := context.Background()
	require.NoError(t, store.CreateWallet(ctx, "u1", 1000))

	for i := 0; i < 6; i++ {
		_, err := eng.Pull(ctx, "u1", "standard", 10)
		require.NoError(t, err)
	}

	page, err := eng.History(ctx, "u1", "", 50, 0)
	require.NoError(t, err)
	require.Len(t, page.Records, 50)
	require.True(t, page.HasMore)

	page, err = eng.History(ctx, "u1", "", 50, 50)
	require.NoError(t, err)
	require.Len(t, page.Records, 10)
	require.False(t, page.HasMore)

	// default limit
	page, err = eng.History(ctx, "u1", "", 0, 0)
	require.NoError(t, err)
	require.Len(t, page.Records, 50)

	// pool filter
	page, err = eng.History(ctx, "u1", "pricy", 50, 0)
	require.NoError(t, err)
	require.Empty(t, page.Records)
}

func TestStats(t *testing.T) {
	eng, store := newTestEngine(t)
	ctx := context.Background()
	require.NoError(t, store.CreateWallet(ctx, "u1", 1000))

	for i := 0; i < 3; i++ {
		_, err := eng.Pull(ctx, "u1", "standard", 10)
		require.NoError(t, err)
	}

	stats, err := eng.Stats(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, int64(30), stats.TotalPulls)
	require.Equal(t, int64(270), stats.TotalSpent)

	var count int64
	var rate float64
	for _, tier := range gacha.Tiers {
		count += stats.CountsByTier[tier.String()]
		rate += stats.RatesByTier[tier.String()]
	}
	require.Equal(t, int64(30), count)
	require.InDelta(t, 1.0, rate, 1e-9)
}

func TestStatsEmpty(t *testing.T) {
	eng, _ := newTestEngine(t)
	stats, err := eng.Stats(context.Background(), "nobody")
	require.NoError(t, err)
	require.Zero(t, stats.TotalPulls)
	require.Zero(t, stats.RatesByTier["legendary"])
}

func TestQuote(t *testing.T) {
	eng, _ := newTestEngine(t)

	q, err := eng.Quote("standard")
	require.NoError(t, err)
	require.Equal(t, int64(10), q.CostSingle)
	require.Equal(t, int64(90), q.CostMulti)
	require.Equal(t, 10, q.DiscountPercent)

	_, err = eng.Quote("no-such-pool")
	require.ErrorIs(t, err, engine.ErrPoolNotFound)
}

func TestPityStatus(t *testing.T) {
	eng, store := newTestEngine(t)
	ctx := context.Background()
	require.NoError(t, store.CreateWallet(ctx, "u1", 1000))

	status, err := eng.PityStatus(ctx, "u1", "standard")
	require.NoError(t, err)
	require.Equal(t, 90, status.UntilTopGuarantee)
	require.Equal(t, 10, status.UntilRareGuarantee)

	res, err := eng.Pull(ctx, "u1", "standard", 10)
	require.NoError(t, err)

	status, err = eng.PityStatus(ctx, "u1", "standard")
	require.NoError(t, err)
	require.Equal(t, res.Pity, status.Pity)
	require.Equal(t, 90-res.Pity.PullsSinceTop, status.UntilTopGuarantee)
	require.Equal(t, 10-res.Pity.PullsSinceRareOrBetter, status.UntilRareGuarantee)

	_, err = eng.PityStatus(ctx, "u1", "no-such-pool")
	require.ErrorIs(t, err, engine.ErrPoolNotFound)
}

func TestPityIsPerPool(t *testing.T) {
	eng, store := newTestEngine(t)
	ctx := context.Background()
	require.NoError(t, store.CreateWallet(ctx, "u1", 1000))

	_, err := eng.Pull(ctx, "u1", "standard", 10)
	require.NoError(t, err)

	status, err := eng.PityStatus(ctx, "u1", "shortpity")
	require.NoError(t, err)
	require.Zero(t, status.Pity.TotalPulls, "pity must not leak across pools")
}

func TestPityPersistsAcrossBatches(t *testing.T) {
	eng, store := newTestEngine(t)
	ctx := context.Background()
	require.NoError(t, store.CreateWallet(ctx, "u1", 1000))

	res1, err := eng.Pull(ctx, "u1", "standard", 10)
	require.NoError(t, err)
	res2, err := eng.Pull(ctx, "u1", "standard", 1)
	require.NoError(t, err)

	require.Equal(t, res1.Pity.TotalPulls+1, res2.Pity.TotalPulls)
	if res2.Pulls[0].Rarity != gacha.RarityLegendary {
		require.Equal(t, res1.Pity.PullsSinceTop+1, res2.Pity.PullsSinceTop)
	}
}
