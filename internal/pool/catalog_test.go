package pool

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCatalogLoadsAllPools(t *testing.T) {
	base := writePoolDir(t, map[string]string{
		"default.yaml":  defaultYAML,
		"standard.yaml": standardYAML,
		"event.yaml":    eventYAML,
	})

	c, err := NewCatalog(NewLoader(base))
	if err != nil {
		t.Fatal(err)
	}
	if len(c.IDs()) != 2 {
		t.Fatalf("ids=%v", c.IDs())
	}
	if _, ok := c.Pool("standard"); !ok {
		t.Fatal("standard pool missing")
	}
	if _, ok := c.Pool("nope"); ok {
		t.Fatal("unknown pool must not resolve")
	}
}

func TestCatalogFailsOnAnyInvalidPool(t *testing.T) {
	base := writePoolDir(t, map[string]string{
		"default.yaml":  defaultYAML,
		"standard.yaml": standardYAML,
		"broken.yaml":   "rewards: []\n",
	})
	if _, err := NewCatalog(NewLoader(base)); err == nil {
		t.Fatal("one invalid pool must fail the whole catalog load")
	}
}

func TestCatalogReloadKeepsPreviousOnError(t *testing.T) {
	base := writePoolDir(t, map[string]string{
		"default.yaml":  defaultYAML,
		"standard.yaml": standardYAML,
	})

	c, err := NewCatalog(NewLoader(base))
	if err != nil {
		t.Fatal(err)
	}

	// break the pool file on disk, then reload
	broken := filepath.Join(base, "pools", "standard.yaml")
	if err := os.WriteFile(broken, []byte("rewards: []\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := c.Reload(); err == nil {
		t.Fatal("reload over a broken file must fail")
	}

	// previous set still served
	if _, ok := c.Pool("standard"); !ok {
		t.Fatal("failed reload must keep the previous catalog")
	}
}

func TestCatalogReloadPicksUpChanges(t *testing.T) {
	base := writePoolDir(t, map[string]string{
		"default.yaml":  defaultYAML,
		"standard.yaml": standardYAML,
	})

	c, err := NewCatalog(NewLoader(base))
	if err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(filepath.Join(base, "pools", "event.yaml"), []byte(eventYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := c.Reload(); err != nil {
		t.Fatal(err)
	}
	if _, ok := c.Pool("event"); !ok {
		t.Fatal("new pool file must appear after reload")
	}
}
