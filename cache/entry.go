// Package cache defines the cached resolution record and the store contract
// used by the semantic query cache.
package cache

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"nl2sql_cache/schema"
)

// Status reports how a resolve call was answered.
type Status string

const (
	StatusHit  Status = "HIT"
	StatusMiss Status = "MISS"
)

// Entry is one cached question resolution. Apart from the access
// bookkeeping fields it is immutable once stored; schema drift is detected
// by comparing Fingerprint against the live schema, never by rewriting it.
type Entry struct {
	ID             string             `json:"id"`
	Question       string             `json:"question"`
	Embedding      []float32          `json:"embedding"`
	Tables         []string           `json:"tables"`
	Fingerprint    schema.Fingerprint `json:"fingerprint"`
	SQL            string             `json:"sql"`
	Reasoning      []string           `json:"reasoning"`
	CreatedAt      time.Time          `json:"created_at"`
	LastAccessedAt time.Time          `json:"last_accessed_at"`
	HitCount       int64              `json:"hit_count"`
}

// NewEntry builds an entry for a freshly resolved question.
func NewEntry(question string, embedding []float32, tables []string, fp schema.Fingerprint, sql string, reasoning []string) *Entry {
	now := time.Now()
	lowered := make([]string, len(tables))
	for i, t := range tables {
		lowered[i] = strings.ToLower(t)
	}
	return &Entry{
		ID:             uuid.New().String(),
		Question:       question,
		Embedding:      append([]float32(nil), embedding...),
		Tables:         lowered,
		Fingerprint:    fp,
		SQL:            sql,
		Reasoning:      append([]string(nil), reasoning...),
		CreatedAt:      now,
		LastAccessedAt: now,
	}
}

// TouchesTable reports whether the entry was resolved against the named
// table. Used by invalidation.
func (e *Entry) TouchesTable(name string) bool {
	name = strings.ToLower(name)
	for _, t := range e.Tables {
		if t == name {
			return true
		}
	}
	return false
}

// Clone returns a deep copy, so callers can hold a result while the store
// keeps updating access bookkeeping on the original.
func (e *Entry) Clone() *Entry {
	c := *e
	c.Embedding = append([]float32(nil), e.Embedding...)
	c.Tables = append([]string(nil), e.Tables...)
	c.Reasoning = append([]string(nil), e.Reasoning...)
	return &c
}
