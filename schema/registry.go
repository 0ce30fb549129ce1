package schema

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

// ErrUnknownTable is returned when a fingerprint or schema lookup names a
// table the registry has never seen or that has been dropped.
var ErrUnknownTable = errors.New("unknown table")

// Registry holds the live schema metadata for dynamically created tables.
// Table names are case-insensitive. The registry stores metadata only; it
// never issues DDL.
type Registry struct {
	mu     sync.RWMutex
	tables map[string]Table
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tables: make(map[string]Table)}
}

// Create registers a table schema. Registering a name that already exists
// replaces the previous schema, which is how a dropped-and-recreated table
// gets a fresh fingerprint.
func (r *Registry) Create(name string, columns []Column) error {
	if name == "" {
		return fmt.Errorf("empty table name")
	}
	if len(columns) == 0 {
		return fmt.Errorf("table %s has no columns", name)
	}
	t := Table{Name: strings.ToLower(name), Columns: append([]Column(nil), columns...)}

	r.mu.Lock()
	r.tables[t.Name] = t
	r.mu.Unlock()
	return nil
}

// Alter replaces the column set of an existing table.
func (r *Registry) Alter(name string, columns []Column) error {
	key := strings.ToLower(name)

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tables[key]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTable, name)
	}
	if len(columns) == 0 {
		return fmt.Errorf("table %s has no columns", name)
	}
	r.tables[key] = Table{Name: key, Columns: append([]Column(nil), columns...)}
	return nil
}

// Drop removes a table. Dropping an unknown table is a no-op.
func (r *Registry) Drop(name string) {
	r.mu.Lock()
	delete(r.tables, strings.ToLower(name))
	r.mu.Unlock()
}

// Exists reports whether a table is registered.
func (r *Registry) Exists(name string) bool {
	r.mu.RLock()
	_, ok := r.tables[strings.ToLower(name)]
	r.mu.RUnlock()
	return ok
}

// Tables returns the schemas of the named tables in the given order.
func (r *Registry) Tables(names ...string) ([]Table, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Table, 0, len(names))
	for _, name := range names {
		t, ok := r.tables[strings.ToLower(name)]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownTable, name)
		}
		out = append(out, t)
	}
	return out, nil
}

// Fingerprint computes the current combined fingerprint of the named tables,
// in order. Join queries spanning multiple tables get one fingerprint over
// the whole ordered set.
func (r *Registry) Fingerprint(names ...string) (Fingerprint, error) {
	tables, err := r.Tables(names...)
	if err != nil {
		return "", err
	}
	return ComputeFingerprint(tables), nil
}
