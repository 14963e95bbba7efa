package gacha

// PityState tracks how long a (user, pool) pair has gone without lucky
// draws. The zero value is the state of a user who has never pulled.

type PityState struct {
	PullsSinceTop          int // pulls since the last legendary
	PullsSinceRareOrBetter int // pulls since the last rare/epic/legendary
	TotalPulls             int
}

// Update advances the counters for one completed draw. Pure: the input is
// never mutated, so a batch can advance a local copy draw by draw and
// commit only the final state.
//   - a top-tier draw resets both counters
//   - a rare-or-better draw resets only the rare counter
//   - anything else increments both
func Update(s PityState, tier Rarity) PityState {
	next := s
	next.TotalPulls++

	if tier == RarityLegendary {
		next.PullsSinceTop = 0
	} else {
		next.PullsSinceTop++
	}

	if tier.RareOrBetter() {
		next.PullsSinceRareOrBetter = 0
	} else {
		next.PullsSinceRareOrBetter++
	}
	return next
}
