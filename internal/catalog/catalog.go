// Package catalog registers the canonical dataset's schema and partition
// metadata so downstream query engines can discover it. The catalog is a
// set of JSON documents in the object store, updated in place on every
// batch run.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"orderflow/internal/platform"
)

// Column describes one column of a registered table.
type Column struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Table is the catalog document for one dataset.
type Table struct {
	Name          string   `json:"name"`
	Database      string   `json:"database"`
	TableUUID     string   `json:"table-uuid"`
	Location      string   `json:"location"`
	Format        string   `json:"format"`
	Columns       []Column `json:"columns"`
	PartitionKeys []string `json:"partition-keys"`
	LastRunID     string   `json:"last-run-id"`
	UpdatedAtMs   int64    `json:"updated-at-ms"`
}

// Registrar writes catalog documents for one database. The table UUID is
// preserved across updates so the entry behaves like an in-place refresh
// rather than a re-creation.
type Registrar struct {
	store    platform.ObjectStore
	database string
}

// NewRegistrar returns a registrar for the given database name.
func NewRegistrar(store platform.ObjectStore, database string) *Registrar {
	return &Registrar{store: store, database: database}
}

func (r *Registrar) key(table string) string {
	return fmt.Sprintf("catalog/%s/%s.json", r.database, table)
}

// Register creates or refreshes the catalog entry for the table. An
// existing entry keeps its UUID; only schema, partition keys and run
// provenance are replaced.
func (r *Registrar) Register(ctx context.Context, name, location, format string, columns []Column, partitionKeys []string, runID string) error {
	entry := Table{
		Name:          name,
		Database:      r.database,
		TableUUID:     uuid.NewString(),
		Location:      location,
		Format:        format,
		Columns:       columns,
		PartitionKeys: partitionKeys,
		LastRunID:     runID,
		UpdatedAtMs:   time.Now().UnixMilli(),
	}

	if existing, err := r.store.Get(ctx, r.key(name)); err == nil {
		var prior Table
		if err := json.Unmarshal(existing, &prior); err == nil && prior.TableUUID != "" {
			entry.TableUUID = prior.TableUUID
		}
	}

	body, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal catalog entry %s: %w", name, err)
	}
	if err := r.store.Put(ctx, r.key(name), body, "application/json"); err != nil {
		return fmt.Errorf("write catalog entry %s: %w", name, err)
	}
	return nil
}

// Lookup fetches a registered table entry.
func (r *Registrar) Lookup(ctx context.Context, name string) (*Table, error) {
	body, err := r.store.Get(ctx, r.key(name))
	if err != nil {
		return nil, fmt.Errorf("catalog entry %s: %w", name, err)
	}
	var entry Table
	if err := json.Unmarshal(body, &entry); err != nil {
		return nil, fmt.Errorf("decode catalog entry %s: %w", name, err)
	}
	return &entry, nil
}
