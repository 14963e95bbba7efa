package gacha

import "fmt"

// Rarity is an ordered reward tier. Higher values are rarer.
type Rarity int

const (
	RarityCommon Rarity = iota
	RarityRare
	RarityEpic
	RarityLegendary

	numRarities = 4
)

// Tiers lists every rarity from most to least common.
var Tiers = []Rarity{RarityCommon, RarityRare, RarityEpic, RarityLegendary}

func (r Rarity) String() string {
	switch r {
	case RarityCommon:
		return "common"
	case RarityRare:
		return "rare"
	case RarityEpic:
		return "epic"
	case RarityLegendary:
		return "legendary"
	default:
		return fmt.Sprintf("rarity(%d)", int(r))
	}
}

// Rank orders tiers for presentation: the top tier sorts first.
func (r Rarity) Rank() int { return int(RarityLegendary) - int(r) }

// RareOrBetter reports whether the tier resets the rare pity counter.
func (r Rarity) RareOrBetter() bool { return r >= RarityRare }

// Valid reports whether r is one of the closed set of tiers.
func (r Rarity) Valid() bool { return r >= RarityCommon && r <= RarityLegendary }

// ParseRarity maps a config/storage string onto a tier.
func ParseRarity(s string) (Rarity, error) {
	switch s {
	case "common":
		return RarityCommon, nil
	case "rare":
		return RarityRare, nil
	case "epic":
		return RarityEpic, nil
	case "legendary":
		return RarityLegendary, nil
	}
	return 0, fmt.Errorf("unknown rarity %q", s)
}
