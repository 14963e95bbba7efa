package gacha

import (
	"fmt"
	"strings"
)

// ValidateTable checks the semantic constraints of a rate table.
// Called once at pool load; draws never re-validate.
func ValidateTable(t RateTable) error {
	var errs []string

	sum := 0
	for _, tier := range Tiers {
		r := t.Rates[tier]
		if r < 0 {
			errs = append(errs, fmt.Sprintf("rate for %s must be >= 0", tier))
		}
		sum += r
	}
	if sum != RateScale {
		errs = append(errs, fmt.Sprintf("rates must sum to %d, got %d", RateScale, sum))
	}

	if t.HardPityTop <= 0 {
		errs = append(errs, "hard_pity_top must be >= 1")
	}
	if t.HardPityRare <= 0 {
		errs = append(errs, "hard_pity_rare must be >= 1")
	}

	if t.SoftPityTopStart < 0 || (t.SoftPityTopStart > 0 && t.SoftPityTopStart >= t.HardPityTop) {
		errs = append(errs, "soft_pity_top_start must satisfy 0 <= start < hard_pity_top")
	}
	if t.SoftPityTopStart > 0 && t.SoftPityTopBoost <= 0 {
		errs = append(errs, "soft_pity_top_boost must be > 0 when the ramp is enabled")
	}
	if t.SoftPityRareStart < 0 || (t.SoftPityRareStart > 0 && t.SoftPityRareStart >= t.HardPityRare) {
		errs = append(errs, "soft_pity_rare_start must satisfy 0 <= start < hard_pity_rare")
	}
	if t.SoftPityRareStart > 0 && t.SoftPityRareBoost <= 0 {
		errs = append(errs, "soft_pity_rare_boost must be > 0 when the ramp is enabled")
	}

	// The restricted rare-or-better draw weights by base rates, so at least
	// one tier at-or-above rare needs a positive rate.
	if t.Rates[RarityRare]+t.Rates[RarityEpic]+t.Rates[RarityLegendary] <= 0 {
		errs = append(errs, "at least one tier at-or-above rare must have a positive rate")
	}

	if len(errs) > 0 {
		return fmt.Errorf("rate table validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
