// types.go
package pool

import (
	"fmt"
	"strings"

	"github.com/aetherforge/gacha-engine/internal/gacha"
)

// Pool is a fully validated pool: rates, pity tuning, catalog and prices.
// Built once at load time; draw-time code never re-checks it.
type Pool struct {
	ID      string
	Name    string
	Table   gacha.RateTable
	Catalog []gacha.Reward

	CostSingle int64
	CostMulti  int64

	Version string // effective config version for tracing
}

// RawConfig mirrors the YAML schema. Pointer fields distinguish "absent"
// from zero so the default file can be merged under a pool file.
type RawConfig struct {
	Version string         `yaml:"version,omitempty"`
	Name    string         `yaml:"name,omitempty"`
	Draw    DrawConfig     `yaml:"draw"`
	Cost    *CostConfig    `yaml:"cost,omitempty"`
	Rewards []RewardConfig `yaml:"rewards,omitempty"`
	Notes   string         `yaml:"notes,omitempty"`
}

type DrawConfig struct {
	Rates        map[string]int `yaml:"rates,omitempty"` // rarity name -> basis points
	HardPityTop  *int           `yaml:"hard_pity_top,omitempty"`
	HardPityRare *int           `yaml:"hard_pity_rare,omitempty"`
	Soft         *SoftCfg       `yaml:"soft,omitempty"`
}

type SoftCfg struct {
	TopStart  *int `yaml:"top_start,omitempty"`
	TopBoost  *int `yaml:"top_boost,omitempty"` // basis points per pull
	RareStart *int `yaml:"rare_start,omitempty"`
	RareBoost *int `yaml:"rare_boost,omitempty"`
}

type CostConfig struct {
	Single *int64 `yaml:"single,omitempty"`
	Multi  *int64 `yaml:"multi,omitempty"`
}

type RewardConfig struct {
	ID       string `yaml:"id"`
	Rarity   string `yaml:"rarity"`
	Weight   int    `yaml:"weight"`
	Featured bool   `yaml:"featured,omitempty"`
}

// Build converts a merged RawConfig into a validated Pool.
func Build(id string, raw RawConfig) (Pool, error) {
	var errs []string

	p := Pool{ID: id, Name: raw.Name, Version: raw.Version}
	if p.Name == "" {
		p.Name = id
	}

	for name, bp := range raw.Draw.Rates {
		tier, err := gacha.ParseRarity(name)
		if err != nil {
			errs = append(errs, err.Error())
			continue
		}
		p.Table.Rates[tier] = bp
	}
	if raw.Draw.HardPityTop != nil {
		p.Table.HardPityTop = *raw.Draw.HardPityTop
	}
	if raw.Draw.HardPityRare != nil {
		p.Table.HardPityRare = *raw.Draw.HardPityRare
	}
	if soft := raw.Draw.Soft; soft != nil {
		if soft.TopStart != nil {
			p.Table.SoftPityTopStart = *soft.TopStart
		}
		if soft.TopBoost != nil {
			p.Table.SoftPityTopBoost = *soft.TopBoost
		}
		if soft.RareStart != nil {
			p.Table.SoftPityRareStart = *soft.RareStart
		}
		if soft.RareBoost != nil {
			p.Table.SoftPityRareBoost = *soft.RareBoost
		}
	}
	if err := gacha.ValidateTable(p.Table); err != nil {
		errs = append(errs, err.Error())
	}

	if raw.Cost != nil {
		if raw.Cost.Single != nil {
			p.CostSingle = *raw.Cost.Single
		}
		if raw.Cost.Multi != nil {
			p.CostMulti = *raw.Cost.Multi
		}
	}
	if p.CostSingle <= 0 {
		errs = append(errs, "cost.single must be > 0")
	}
	if p.CostMulti <= 0 {
		errs = append(errs, "cost.multi must be > 0")
	}

	if len(raw.Rewards) == 0 {
		errs = append(errs, "pool must define at least one reward")
	}
	for i, rc := range raw.Rewards {
		tier, err := gacha.ParseRarity(rc.Rarity)
		if err != nil {
			errs = append(errs, fmt.Sprintf("rewards[%d]: %v", i, err))
			continue
		}
		if rc.ID == "" {
			errs = append(errs, fmt.Sprintf("rewards[%d]: id is required", i))
			continue
		}
		if rc.Weight <= 0 {
			errs = append(errs, fmt.Sprintf("rewards[%d]: weight must be > 0", i))
			continue
		}
		p.Catalog = append(p.Catalog, gacha.Reward{
			ID:       rc.ID,
			Rarity:   tier,
			Weight:   rc.Weight,
			Featured: rc.Featured,
		})
	}

	if len(errs) > 0 {
		return Pool{}, fmt.Errorf("pool %q validation failed: %s", id, strings.Join(errs, "; "))
	}
	return p, nil
}
