package pricing

import "testing"

func TestForCount(t *testing.T) {
	c := Cost{Single: 10, Multi: 90}
	if got := c.ForCount(1); got != 10 {
		t.Fatalf("single: got %d, want 10", got)
	}
	if got := c.ForCount(10); got != 90 {
		t.Fatalf("ten-pull: got %d, want flat 90", got)
	}
	if got := c.ForCount(3); got != 30 {
		t.Fatalf("three singles: got %d, want 30", got)
	}
	if got := c.ForCount(0); got != 0 {
		t.Fatalf("zero draws: got %d, want 0", got)
	}
}

func TestForCountNoMultiPrice(t *testing.T) {
	c := Cost{Single: 10}
	if got := c.ForCount(10); got != 100 {
		t.Fatalf("without a multi price a ten-pull is 10x single, got %d", got)
	}
}

func TestDiscountPercent(t *testing.T) {
	if got := (Cost{Single: 10, Multi: 90}).DiscountPercent(); got != 10 {
		t.Fatalf("got %d%%, want 10%%", got)
	}
	if got := (Cost{Single: 10, Multi: 100}).DiscountPercent(); got != 0 {
		t.Fatalf("no saving must report 0%%, got %d%%", got)
	}
	if got := (Cost{Single: 10}).DiscountPercent(); got != 0 {
		t.Fatalf("missing multi price must report 0%%, got %d%%", got)
	}
}

func TestSplitSumsExactly(t *testing.T) {
	cases := []struct {
		total int64
		count int
	}{
		{90, 10},
		{95, 10},
		{10, 1},
		{7, 3},
	}
	for _, c := range cases {
		shares := Split(c.total, c.count)
		if len(shares) != c.count {
			t.Fatalf("total=%d count=%d: got %d shares", c.total, c.count, len(shares))
		}
		var sum int64
		for _, s := range shares {
			sum += s
		}
		if sum != c.total {
			t.Fatalf("total=%d count=%d: shares sum to %d", c.total, c.count, sum)
		}
	}
}

func TestSplitRemainderOnFirst(t *testing.T) {
	shares := Split(95, 10)
	if shares[0] != 14 {
		t.Fatalf("first share=%d, want 14", shares[0])
	}
	for i := 1; i < len(shares); i++ {
		if shares[i] != 9 {
			t.Fatalf("share[%d]=%d, want 9", i, shares[i])
		}
	}
}

func TestQuoteFor(t *testing.T) {
	q := QuoteFor(Cost{Single: 10, Multi: 90})
	if q.CostSingle != 10 || q.CostMulti != 90 || q.DiscountPercent != 10 {
		t.Fatalf("unexpected quote %+v", q)
	}
}
