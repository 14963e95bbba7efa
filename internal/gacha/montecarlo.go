package gacha

import (
	"math"
	"sort"
)

// TrialGoal selects what the simulation measures per trial.
type TrialGoal string

const (
	// Draws until the first top-tier hit.
	GoalFirstTop TrialGoal = "first_top"
	// Draws until the first rare-or-better hit.
	GoalFirstRare TrialGoal = "first_rare"
	// Given a fixed budget of draws, count the top-tier hits.
	GoalFixedBudget TrialGoal = "fixed_budget"
)

// SimParams describes one simulation run.
type SimParams struct {
	Table RateTable
	Start PityState // carry-over pity when entering the pool
}

// SimBudget controls the number of draws used in GoalFixedBudget.
type SimBudget struct {
	NumDraws int
}

// Stats summarizes simulation results.
type Stats struct {
	Mean   float64
	Var    float64
	StdDev float64
	P50    float64
	P90    float64
	P99    float64
	Max    int
	// Raw samples if the caller needs histograms/exports
	Samples []int `json:"-"`
}

// simulateOne runs one trial through Resolve/Update and returns its metric.
func simulateOne(p SimParams, goal TrialGoal, budget *SimBudget, rng RandomSource) int {
	state := p.Start

	switch goal {
	case GoalFirstTop, GoalFirstRare:
		draws := 0
		for {
			draws++
			out := Resolve(state, p.Table, rng)
			state = Update(state, out.Tier)
			if goal == GoalFirstTop && out.Tier == RarityLegendary {
				return draws
			}
			if goal == GoalFirstRare && out.Tier.RareOrBetter() {
				return draws
			}
		}

	case GoalFixedBudget:
		if budget == nil || budget.NumDraws <= 0 {
			return 0
		}
		hits := 0
		for i := 0; i < budget.NumDraws; i++ {
			out := Resolve(state, p.Table, rng)
			state = Update(state, out.Tier)
			if out.Tier == RarityLegendary {
				hits++
			}
		}
		return hits
	}

	return 0
}

// RunMonteCarlo repeats trials and returns summary stats. With a seeded
// RandomSource the whole run replays byte for byte.
func RunMonteCarlo(p SimParams, goal TrialGoal, trials int, budget *SimBudget, rng RandomSource) Stats {
	if trials <= 0 {
		return Stats{}
	}
	if rng == nil {
		rng = DefaultRNG()
	}
	samples := make([]int, trials)
	for i := 0; i < trials; i++ {
		samples[i] = simulateOne(p, goal, budget, rng)
	}
	return calcStats(samples)
}

// calcStats computes mean/variance/percentiles for integer samples.
func calcStats(xs []int) Stats {
	n := len(xs)
	if n == 0 {
		return Stats{}
	}
	var sum float64
	for _, v := range xs {
		sum += float64(v)
	}
	mean := sum / float64(n)

	// variance (population)
	var acc float64
	for _, v := range xs {
		d := float64(v) - mean
		acc += d * d
	}
	variance := acc / float64(n)

	cp := append([]int(nil), xs...)
	sort.Ints(cp)
	percentile := func(p float64) float64 {
		if p <= 0 || n == 1 {
			return float64(cp[0])
		}
		if p >= 1 {
			return float64(cp[n-1])
		}
		pos := p * float64(n-1)
		i := int(math.Floor(pos))
		f := pos - float64(i)
		if i+1 >= n {
			return float64(cp[i])
		}
		return float64(cp[i])*(1-f) + float64(cp[i+1])*f
	}

	return Stats{
		Mean:    mean,
		Var:     variance,
		StdDev:  math.Sqrt(variance),
		P50:     percentile(0.50),
		P90:     percentile(0.90),
		P99:     percentile(0.99),
		Max:     cp[n-1],
		Samples: xs,
	}
}
