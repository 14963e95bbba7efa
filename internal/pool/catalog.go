package pool

import (
	"fmt"
	"sync"
)

// Catalog holds the validated pools currently served to the engine.
// Lookups are lock-cheap reads; Reload swaps the whole set atomically so a
// half-loaded config set is never observable.
type Catalog struct {
	loader *Loader

	mu    sync.RWMutex
	pools map[string]Pool
}

// NewCatalog builds a catalog over the given loader and loads every pool
// file found on disk. A single invalid pool fails the whole load: bad
// config is rejected at startup, not at draw time.
func NewCatalog(loader *Loader) (*Catalog, error) {
	c := &Catalog{loader: loader, pools: make(map[string]Pool)}
	if err := c.Reload(); err != nil {
		return nil, err
	}
	return c, nil
}

// Pool returns the validated pool for an id.
func (c *Catalog) Pool(id string) (Pool, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.pools[id]
	return p, ok
}

// IDs lists the loaded pool ids.
func (c *Catalog) IDs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ids := make([]string, 0, len(c.pools))
	for id := range c.pools {
		ids = append(ids, id)
	}
	return ids
}

// Reload re-reads every pool file and replaces the served set. On any
// validation error the previous set stays in place.
func (c *Catalog) Reload() error {
	c.loader.Invalidate()

	ids, err := c.loader.PoolIDs()
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return fmt.Errorf("no pool files found")
	}

	next := make(map[string]Pool, len(ids))
	for _, id := range ids {
		raw, err := c.loader.LoadMerged(id)
		if err != nil {
			return err
		}
		p, err := Build(id, raw)
		if err != nil {
			return err
		}
		next[id] = p
	}

	c.mu.Lock()
	c.pools = next
	c.mu.Unlock()
	return nil
}
