// Package schema tracks live table schemas and derives the fingerprints the
// cache uses to decide whether a stored answer still matches the tables it
// was generated against.
package schema

import (
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Fingerprint is an opaque hash over an ordered table set's column names,
// declared types, and ordering. Two fingerprints compare equal iff the
// schemas they were derived from are identical; row data never matters.
type Fingerprint string

// Column is one declared column of a table.
type Column struct {
	Name string `json:"name" yaml:"name"`
	Type string `json:"type" yaml:"type"`
}

// Table is the schema metadata of one table. Columns are ordered.
type Table struct {
	Name    string   `json:"name"`
	Columns []Column `json:"columns"`
}

// ComputeFingerprint hashes the ordered table set. Any added, removed,
// renamed, or retyped column, and any change to table order, yields a
// different fingerprint.
func ComputeFingerprint(tables []Table) Fingerprint {
	h := xxhash.New()
	for _, t := range tables {
		// Unit separators keep ("ab","c") distinct from ("a","bc").
		_, _ = h.WriteString(strings.ToLower(t.Name))
		_, _ = h.Write([]byte{0x1f})
		for _, c := range t.Columns {
			_, _ = h.WriteString(strings.ToLower(c.Name))
			_, _ = h.Write([]byte{0x1f})
			_, _ = h.WriteString(strings.ToLower(c.Type))
			_, _ = h.Write([]byte{0x1f})
		}
		_, _ = h.Write([]byte{0x1e})
	}
	return Fingerprint(fmt.Sprintf("%016x", h.Sum64()))
}
