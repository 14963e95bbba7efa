package gacha

import "testing"

func testCatalog() []Reward {
	return []Reward{
		{ID: "leg-a", Rarity: RarityLegendary, Weight: 10},
		{ID: "leg-b", Rarity: RarityLegendary, Weight: 30},
		{ID: "epic-a", Rarity: RarityEpic, Weight: 50},
		{ID: "rare-a", Rarity: RarityRare, Weight: 50},
		{ID: "common-a", Rarity: RarityCommon, Weight: 100},
	}
}

func TestPickRewardMatchesTier(t *testing.T) {
	catalog := testCatalog()
	rng := NewSeededRNG(1)
	for i := 0; i < 1000; i++ {
		rw, ok := PickReward(catalog, RarityLegendary, rng)
		if !ok {
			t.Fatal("pick failed on a populated catalog")
		}
		if rw.Rarity != RarityLegendary {
			t.Fatalf("got tier %s, want legendary", rw.Rarity)
		}
	}
}

func TestPickRewardWeighting(t *testing.T) {
	catalog := testCatalog()
	rng := NewSeededRNG(5)

	const n = 100000
	hits := make(map[string]int)
	for i := 0; i < n; i++ {
		rw, _ := PickReward(catalog, RarityLegendary, rng)
		hits[rw.ID]++
	}
	// weights 10 vs 30
	freqB := float64(hits["leg-b"]) / float64(n)
	if freqB < 0.73 || freqB > 0.77 {
		t.Fatalf("leg-b freq=%f not close to 0.75", freqB)
	}
}

func TestPickRewardFallbackOnEmptyTier(t *testing.T) {
	catalog := []Reward{
		{ID: "common-a", Rarity: RarityCommon, Weight: 100},
		{ID: "rare-a", Rarity: RarityRare, Weight: 50},
	}
	rw, ok := PickReward(catalog, RarityLegendary, NewSeededRNG(3))
	if !ok {
		t.Fatal("fallback pick must succeed")
	}
	if rw.ID != "common-a" && rw.ID != "rare-a" {
		t.Fatalf("fallback picked unknown reward %q", rw.ID)
	}
}

func TestPickRewardEmptyCatalog(t *testing.T) {
	if _, ok := PickReward(nil, RarityCommon, NewSeededRNG(1)); ok {
		t.Fatal("empty catalog must report failure")
	}
}
