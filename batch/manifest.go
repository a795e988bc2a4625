package batch

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"orderflow/internal/platform"
)

const manifestKey = "job-metrics/manifests/processed-keys.json"

// manifest tracks which raw landing objects have already been transformed,
// making repeated runs over the append-only canonical dataset idempotent.
type manifest struct {
	store platform.ObjectStore
	keys  map[string]bool
}

func loadManifest(ctx context.Context, store platform.ObjectStore) *manifest {
	m := &manifest{store: store, keys: make(map[string]bool)}
	body, err := store.Get(ctx, manifestKey)
	if err != nil {
		// First run or missing manifest; every key counts as unprocessed.
		return m
	}
	var keys []string
	if err := json.Unmarshal(body, &keys); err != nil {
		return m
	}
	for _, k := range keys {
		m.keys[k] = true
	}
	return m
}

func (m *manifest) processed(key string) bool {
	return m.keys[key]
}

func (m *manifest) add(keys []string) {
	for _, k := range keys {
		m.keys[k] = true
	}
}

func (m *manifest) save(ctx context.Context) error {
	keys := make([]string, 0, len(m.keys))
	for k := range m.keys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	body, err := json.MarshalIndent(keys, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	if err := m.store.Put(ctx, manifestKey, body, "application/json"); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}
