package gacha

// RateScale is the probability denominator. Rates are integer basis
// points out of 10000 so pool files stay exact (0.5% == 50).
const RateScale = 10000

// RateTable holds the per-tier base rates and pity tuning for one pool.
// Tables are validated at pool load; draw-time code assumes a good table.
type RateTable struct {
	Rates [numRarities]int // basis points per tier; must sum to RateScale

	HardPityTop  int // draws between guaranteed top-tier hits, e.g. 90
	HardPityRare int // draws between guaranteed rare-or-better hits, e.g. 10

	SoftPityTopStart  int // counter value where the top-tier ramp begins; 0 disables
	SoftPityTopBoost  int // basis points added per pull at/past the start
	SoftPityRareStart int
	SoftPityRareBoost int
}

// Rate returns the base rate for one tier.
func (t RateTable) Rate(r Rarity) int {
	if !r.Valid() {
		return 0
	}
	return t.Rates[r]
}

// rollScaled returns a uniform roll in [0, scale).
func rollScaled(rng RandomSource, scale int) int {
	if rng == nil {
		rng = DefaultRNG()
	}
	v := int(rng.Float64() * float64(scale))
	if v >= scale { // Float64 is [0,1) but guard the edge anyway
		v = scale - 1
	}
	return v
}

// pickByRates inverts the cumulative distribution for one roll. Tiers are
// checked from rarest down, matching the order the rates were laid out in;
// anything past the accumulated rates falls through to common.
func pickByRates(rates [numRarities]int, roll int) Rarity {
	cum := 0
	for i := numRarities - 1; i > 0; i-- {
		cum += rates[i]
		if roll < cum {
			return Rarity(i)
		}
	}
	return RarityCommon
}
