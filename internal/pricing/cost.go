package pricing

import "math"

// Cost defines what a pull costs in aether for one pool.

type Cost struct {
	Single int64 // cost of one draw, e.g. 10
	Multi  int64 // cost of a ten-pull; normally priced below 10 * Single
}

// ForCount returns the charge for a pull request. A ten-pull is always the
// flat Multi price, never 10x Single, no matter what happens inside the
// batch.
func (c Cost) ForCount(n int) int64 {
	if n <= 0 {
		return 0
	}
	if n == 10 && c.Multi > 0 {
		return c.Multi
	}
	return int64(n) * c.Single
}

// DiscountPercent is the rounded percentage saved by a ten-pull versus ten
// singles. Zero when the multi price gives no discount.
func (c Cost) DiscountPercent() int {
	full := 10 * c.Single
	if full <= 0 || c.Multi <= 0 || c.Multi >= full {
		return 0
	}
	return int(math.Round((1 - float64(c.Multi)/float64(full)) * 100))
}

// Split spreads a batch charge across its records so per-record costs sum
// exactly to the total; any remainder lands on the first record.
func Split(total int64, count int) []int64 {
	if count <= 0 {
		return nil
	}
	share := total / int64(count)
	out := make([]int64, count)
	for i := range out {
		out[i] = share
	}
	out[0] += total - share*int64(count)
	return out
}

// Quote is the cost summary exposed to clients.
type Quote struct {
	CostSingle      int64 `json:"costSingle"`
	CostMulti       int64 `json:"costMulti"`
	DiscountPercent int   `json:"discountPercent"`
}

// QuoteFor builds the client-facing quote for one pool's pricing.
func QuoteFor(c Cost) Quote {
	return Quote{
		CostSingle:      c.Single,
		CostMulti:       c.Multi,
		DiscountPercent: c.DiscountPercent(),
	}
}
