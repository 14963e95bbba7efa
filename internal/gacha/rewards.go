package gacha

// Reward is one entry of a pool's catalog.
type Reward struct {
	ID       string
	Rarity   Rarity
	Weight   int // relative weight within its tier; must be positive
	Featured bool
}

// PickReward selects one reward of the given tier by weighted draw.
// A tier with no rewards falls back to a uniform pick over the whole
// catalog, so a sparse pool still yields something rather than nothing.
// Returns false only for an empty catalog.
func PickReward(catalog []Reward, tier Rarity, rng RandomSource) (Reward, bool) {
	if len(catalog) == 0 {
		return Reward{}, false
	}
	if rng == nil {
		rng = DefaultRNG()
	}

	total := 0
	for _, rw := range catalog {
		if rw.Rarity == tier {
			total += rw.Weight
		}
	}
	if total <= 0 {
		// fallback: any reward, uniform
		return catalog[rollScaled(rng, len(catalog))], true
	}

	roll := rollScaled(rng, total)
	for _, rw := range catalog {
		if rw.Rarity != tier {
			continue
		}
		roll -= rw.Weight
		if roll < 0 {
			return rw, true
		}
	}

	// unreachable when weights are positive; keep the first of the tier
	for _, rw := range catalog {
		if rw.Rarity == tier {
			return rw, true
		}
	}
	return catalog[0], true
}
