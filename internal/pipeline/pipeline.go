// Package pipeline defines the typed aggregation stages the query and
// reconciliation engines assemble. Stages are plain values; translating them
// into the store's native pipeline format is the store adapter's job, so the
// engines never touch driver-level document syntax.
package pipeline

import "time"

// Stage is one transformation step in an ordered pipeline.
type Stage interface {
	stage()
}

// Join expands each document with the matching documents of another
// collection. Unwound joins use inner semantics: documents without a match
// are dropped.
type Join struct {
	From         string
	LocalField   string
	ForeignField string
	As           string
	Unwind       bool
}

// Match keeps documents satisfying every predicate (logical AND).
type Match struct {
	Predicates []Predicate
}

// ToDouble adds a computed field holding the numeric value of Field, so
// numeric-looking text sorts and compares as a number.
type ToDouble struct {
	Field string
}

// Sort orders documents by Field. TieBreak, when set, is a secondary
// ascending key applied after the primary field for deterministic paging.
type Sort struct {
	Field      string
	Descending bool
	TieBreak   string
}

// Project keeps only the named output fields. From is the source path when it
// differs from the output name; empty From passes the field through.
type Project struct {
	Fields []ProjectedField
}

type ProjectedField struct {
	Name string
	From string
}

// Skip drops the first N documents.
type Skip struct {
	N int64
}

// Limit keeps at most N documents.
type Limit struct {
	N int64
}

// Count replaces the stream with a single document {As: <count>}.
type Count struct {
	As string
}

func (Join) stage()     {}
func (Match) stage()    {}
func (ToDouble) stage() {}
func (Sort) stage()     {}
func (Project) stage()  {}
func (Skip) stage()     {}
func (Limit) stage()    {}
func (Count) stage()    {}

// Predicate is one field-level condition inside a Match stage.
type Predicate interface {
	predicate()
}

// Eq matches exact equality on a single value.
type Eq struct {
	Field string
	Value any
}

// In matches membership in a value set.
type In struct {
	Field  string
	Values []any
}

// EqFold matches case-insensitive exact equality against any of Values
// (logical OR within the set). Values are compared whole, never as
// substrings.
type EqFold struct {
	Field  string
	Values []string
}

// TimeRange bounds a timestamp field inclusively. Nil bounds are open.
type TimeRange struct {
	Field string
	Start *time.Time
	End   *time.Time
}

func (Eq) predicate()        {}
func (In) predicate()        {}
func (EqFold) predicate()    {}
func (TimeRange) predicate() {}
