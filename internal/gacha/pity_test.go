package gacha

import "testing"

func TestUpdateResets(t *testing.T) {
	start := PityState{PullsSinceTop: 40, PullsSinceRareOrBetter: 5, TotalPulls: 100}

	cases := []struct {
		tier     Rarity
		wantTop  int
		wantRare int
	}{
		{RarityLegendary, 0, 0},
		{RarityEpic, 41, 0},
		{RarityRare, 41, 0},
		{RarityCommon, 41, 6},
	}
	for _, c := range cases {
		got := Update(start, c.tier)
		if got.PullsSinceTop != c.wantTop {
			t.Fatalf("%s: PullsSinceTop=%d, want %d", c.tier, got.PullsSinceTop, c.wantTop)
		}
		if got.PullsSinceRareOrBetter != c.wantRare {
			t.Fatalf("%s: PullsSinceRareOrBetter=%d, want %d", c.tier, got.PullsSinceRareOrBetter, c.wantRare)
		}
		if got.TotalPulls != 101 {
			t.Fatalf("%s: TotalPulls=%d, want 101", c.tier, got.TotalPulls)
		}
	}
}

func TestUpdateDoesNotMutateInput(t *testing.T) {
	start := PityState{PullsSinceTop: 40, PullsSinceRareOrBetter: 5, TotalPulls: 100}
	_ = Update(start, RarityLegendary)
	if start.PullsSinceTop != 40 || start.PullsSinceRareOrBetter != 5 || start.TotalPulls != 100 {
		t.Fatalf("input mutated: %+v", start)
	}
}

func TestUpdateFromZero(t *testing.T) {
	got := Update(PityState{}, RarityCommon)
	want := PityState{PullsSinceTop: 1, PullsSinceRareOrBetter: 1, TotalPulls: 1}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}
