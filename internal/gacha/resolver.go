package gacha

// Outcome is the result of resolving one draw's rarity.
type Outcome struct {
	Tier   Rarity
	Forced bool // true when a hard pity threshold decided the tier
}

// Resolve decides the rarity of a single draw. Pure: the same pity state,
// table and roll sequence always produce the same outcome.
//
// Priority per draw:
//  1. hard pity, top tier: the draw that would reach HardPityTop is forced
//  2. hard pity, rare-or-better: forced draw restricted to tiers at-or-above
//     rare, weighted by their relative base rates
//  3. soft pity: counters at/past their ramp start add a linear per-pull
//     boost to the top/rare rates, so the forced threshold is a ceiling
//     rather than a jump
//  4. plain CDF inversion over the base rates
func Resolve(pity PityState, tbl RateTable, rng RandomSource) Outcome {
	if rng == nil {
		rng = DefaultRNG()
	}

	// hard pity checks count the draw being made now
	if pity.PullsSinceTop+1 >= tbl.HardPityTop {
		return Outcome{Tier: RarityLegendary, Forced: true}
	}
	if pity.PullsSinceRareOrBetter+1 >= tbl.HardPityRare {
		return Outcome{Tier: forcedRareOrBetter(tbl, rng), Forced: true}
	}

	rates := tbl.Rates
	rates[RarityLegendary] = boosted(rates[RarityLegendary], pity.PullsSinceTop, tbl.SoftPityTopStart, tbl.SoftPityTopBoost)
	rates[RarityRare] = boosted(rates[RarityRare], pity.PullsSinceRareOrBetter, tbl.SoftPityRareStart, tbl.SoftPityRareBoost)

	roll := rollScaled(rng, RateScale)
	return Outcome{Tier: pickByRates(rates, roll)}
}

// boosted applies the linear soft-pity ramp to one base rate.
func boosted(base, count, start, boost int) int {
	if start <= 0 || count < start {
		return base
	}
	r := base + (count-start+1)*boost
	if r > RateScale {
		r = RateScale
	}
	return r
}

// forcedRareOrBetter draws among {rare, epic, legendary} weighted by their
// relative base rates. The table validator guarantees a positive total.
func forcedRareOrBetter(tbl RateTable, rng RandomSource) Rarity {
	total := tbl.Rates[RarityRare] + tbl.Rates[RarityEpic] + tbl.Rates[RarityLegendary]
	roll := rollScaled(rng, total)

	cum := tbl.Rates[RarityLegendary]
	if roll < cum {
		return RarityLegendary
	}
	cum += tbl.Rates[RarityEpic]
	if roll < cum {
		return RarityEpic
	}
	return RarityRare
}
