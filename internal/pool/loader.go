package pool

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Paths helper for default/pool files.
type Paths struct {
	BaseDir string // base directory, e.g. /opt/app/configs
}

func (p Paths) DefaultPath() string {
	return filepath.Join(p.BaseDir, "pools", "default.yaml")
}
func (p Paths) PoolPath(id string) string {
	return filepath.Join(p.BaseDir, "pools", id+".yaml")
}
func (p Paths) PoolsDir() string {
	return filepath.Join(p.BaseDir, "pools")
}

// Loader reads YAML configs and merges default → pool.
type Loader struct {
	paths Paths

	mu    sync.RWMutex
	cache map[string]RawConfig // key: pool id or "$default"
}

// NewLoader creates a config loader with the given base directory.
func NewLoader(baseDir string) *Loader {
	return &Loader{
		paths: Paths{BaseDir: baseDir},
		cache: make(map[string]RawConfig),
	}
}

// PoolIDs lists the pool files present on disk (minus the default file).
func (l *Loader) PoolIDs() ([]string, error) {
	entries, err := os.ReadDir(l.paths.PoolsDir())
	if err != nil {
		return nil, fmt.Errorf("read pools dir: %w", err)
	}
	var ids []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".yaml") {
			continue
		}
		id := strings.TrimSuffix(name, ".yaml")
		if id == "default" {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// LoadMerged loads and merges default → pool for one pool id.
// The default file is required; the pool file is not optional here because
// a pull against a pool with no file of its own is a configuration error.
func (l *Loader) LoadMerged(id string) (RawConfig, error) {
	l.mu.RLock()
	if cfg, ok := l.cache[id]; ok {
		l.mu.RUnlock()
		return cfg, nil
	}
	l.mu.RUnlock()

	defCfg, err := readYAML(l.paths.DefaultPath())
	if err != nil {
		return RawConfig{}, fmt.Errorf("read default: %w", err)
	}
	poolCfg, err := readYAML(l.paths.PoolPath(id))
	if err != nil {
		return RawConfig{}, fmt.Errorf("read pool %s: %w", id, err)
	}

	merged := mergeRaw(defCfg, poolCfg)

	l.mu.Lock()
	l.cache[id] = merged
	l.cache["$default"] = defCfg
	l.mu.Unlock()

	return merged, nil
}

// Invalidate clears the loader's cache. Call after hot-reload detects changes.
func (l *Loader) Invalidate() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cache = make(map[string]RawConfig)
}

// readYAML loads a YAML file into RawConfig.
func readYAML(path string) (RawConfig, error) {
	var cfg RawConfig
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return RawConfig{}, fmt.Errorf("config file missing: %s", path)
		}
		return RawConfig{}, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return RawConfig{}, err
	}
	return cfg, nil
}

// mergeRaw overlays pool config 'b' on top of default 'a'. Scalars from 'b'
// win where set; the rates map and reward list replace wholesale when given.
func mergeRaw(a, b RawConfig) RawConfig {
	out := a

	if b.Version != "" {
		out.Version = b.Version
	}
	if b.Name != "" {
		out.Name = b.Name
	}
	if b.Notes != "" {
		out.Notes = b.Notes
	}

	// draw
	if len(b.Draw.Rates) > 0 {
		out.Draw.Rates = b.Draw.Rates
	}
	if b.Draw.HardPityTop != nil {
		out.Draw.HardPityTop = b.Draw.HardPityTop
	}
	if b.Draw.HardPityRare != nil {
		out.Draw.HardPityRare = b.Draw.HardPityRare
	}
	switch {
	case out.Draw.Soft == nil && b.Draw.Soft != nil:
		softCopy := *b.Draw.Soft
		out.Draw.Soft = &softCopy
	case out.Draw.Soft != nil && b.Draw.Soft != nil:
		merged := *out.Draw.Soft
		if b.Draw.Soft.TopStart != nil {
			merged.TopStart = b.Draw.Soft.TopStart
		}
		if b.Draw.Soft.TopBoost != nil {
			merged.TopBoost = b.Draw.Soft.TopBoost
		}
		if b.Draw.Soft.RareStart != nil {
			merged.RareStart = b.Draw.Soft.RareStart
		}
		if b.Draw.Soft.RareBoost != nil {
			merged.RareBoost = b.Draw.Soft.RareBoost
		}
		out.Draw.Soft = &merged
	}

	// cost
	switch {
	case out.Cost == nil && b.Cost != nil:
		c := *b.Cost
		out.Cost = &c
	case out.Cost != nil && b.Cost != nil:
		merged := *out.Cost
		if b.Cost.Single != nil {
			merged.Single = b.Cost.Single
		}
		if b.Cost.Multi != nil {
			merged.Multi = b.Cost.Multi
		}
		out.Cost = &merged
	}

	// rewards always come from the pool file; the default has none
	if len(b.Rewards) > 0 {
		out.Rewards = b.Rewards
	}

	return out
}
